package models

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func topic(id string, day int, status TopicStatus) Topic {
	return Topic{
		ID:               id,
		Title:            "Topic " + id,
		DayNumber:        day,
		EstimatedMinutes: DefaultEstimatedMinutes,
		Status:           status,
		Resources:        []string{},
	}
}

func sampleRoadmap() *Roadmap {
	return &Roadmap{
		ID:        "rm-1",
		Name:      "Go in two days",
		TotalDays: 2,
		Days: []DayTopics{
			{DayNumber: 1, Topics: []Topic{
				topic("a", 1, StatusCompleted),
				topic("b", 1, StatusCompleted),
				topic("c", 1, StatusCompleted),
			}},
			{DayNumber: 2, Topics: []Topic{
				topic("d", 2, StatusCompleted),
				topic("e", 2, StatusTodo),
				topic("f", 2, StatusTodo),
			}},
		},
	}
}

func TestRoadmapAggregates(t *testing.T) {
	r := sampleRoadmap()

	assert.Equal(t, 6, r.TotalTopics())
	assert.Equal(t, StatusCounts{Remaining: 2, Completed: 4, Skipped: 0}, r.OverallStatusCounts())
	assert.InDelta(t, 4.0/6.0, r.OverallCompletionPercentage(), 1e-9)
	assert.Equal(t, "66% Complete", r.StatusLabel())
	assert.True(t, r.HasStarted())
	assert.False(t, r.IsFullyCompleted())

	assert.True(t, r.Days[0].IsCompleted())
	assert.False(t, r.Days[1].IsCompleted())
	assert.Equal(t, 90, r.Days[1].TotalEstimatedMinutes())
}

func TestRoadmapStatusLabel(t *testing.T) {
	r := sampleRoadmap()
	for i := range r.Days {
		for j := range r.Days[i].Topics {
			r.Days[i].Topics[j].Status = StatusCompleted
		}
	}
	assert.True(t, r.IsFullyCompleted())
	assert.Equal(t, "Completed", r.StatusLabel())

	fresh := sampleRoadmap()
	for i := range fresh.Days {
		for j := range fresh.Days[i].Topics {
			fresh.Days[i].Topics[j].Status = StatusTodo
		}
	}
	assert.False(t, fresh.HasStarted())
	assert.Equal(t, "Just Started", fresh.StatusLabel())
}

func TestRoadmapStatusLabelPercent(t *testing.T) {
	tests := []struct {
		completed, total int
		want             string
	}{
		{29, 100, "29% Complete"},
		{57, 100, "57% Complete"},
		{7, 25, "28% Complete"},
		{4, 6, "66% Complete"},
		{1, 200, "Just Started"},
		{99, 100, "99% Complete"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d of %d", tt.completed, tt.total), func(t *testing.T) {
			topics := make([]Topic, tt.total)
			for i := range topics {
				topics[i] = Topic{ID: fmt.Sprintf("t%d", i), Title: "t", DayNumber: 1, Status: StatusTodo}
				if i < tt.completed {
					topics[i].Status = StatusCompleted
				}
			}
			r := &Roadmap{ID: "r", Name: "r", TotalDays: 1, Days: []DayTopics{{DayNumber: 1, Topics: topics}}}
			assert.Equal(t, tt.want, r.StatusLabel())
		})
	}
}

func TestEmptyRoadmapStats(t *testing.T) {
	r := &Roadmap{ID: "empty", Name: "empty", TotalDays: 3}

	assert.Equal(t, 0, r.TotalTopics())
	assert.Zero(t, r.OverallCompletionPercentage())
	assert.False(t, r.IsFullyCompleted())
	assert.False(t, r.HasStarted())

	var day DayTopics
	assert.Zero(t, day.CompletionPercentage())
	assert.False(t, day.IsCompleted())
}

func TestStatusCountsConsistency(t *testing.T) {
	r := sampleRoadmap()
	r.Days[1].Topics[1].Status = StatusSkipped

	counts := r.OverallStatusCounts()
	assert.Equal(t, r.TotalTopics(), counts.Total())
	assert.Equal(t, 1, counts.Skipped)
}

func TestWithTopicStatusLeavesOriginalUntouched(t *testing.T) {
	r := sampleRoadmap()

	next, ok := r.WithTopicStatus("e", StatusSkipped)
	require.True(t, ok)

	got, found := next.FindTopic("e")
	require.True(t, found)
	assert.Equal(t, StatusSkipped, got.Status)

	orig, _ := r.FindTopic("e")
	assert.Equal(t, StatusTodo, orig.Status)

	_, ok = r.WithTopicStatus("missing", StatusCompleted)
	assert.False(t, ok)
}

func TestCloneIsDeep(t *testing.T) {
	r := sampleRoadmap()
	r.Days[0].Topics[0].Resources = []string{"https://go.dev/doc"}

	c := r.Clone()
	require.Equal(t, r, c)

	c.Days[0].Topics[0].Resources[0] = "changed"
	c.Days[0].Topics[0].Title = "changed"
	assert.Equal(t, "https://go.dev/doc", r.Days[0].Topics[0].Resources[0])
	assert.Equal(t, "Topic a", r.Days[0].Topics[0].Title)
}

func TestParseTopicStatus(t *testing.T) {
	s, err := ParseTopicStatus("COMPLETED")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, s)

	_, err = ParseTopicStatus("done")
	assert.Error(t, err)
}

func TestGenerateRequestValidate(t *testing.T) {
	valid := GenerateRequest{SyllabusContent: "Week 1: basics", Name: "Go", TargetDays: 7}
	require.NoError(t, valid.Validate(90))

	cases := map[string]struct {
		mutate func(*GenerateRequest)
		field  string
	}{
		"empty name":    {func(r *GenerateRequest) { r.Name = "  " }, "name"},
		"long name":     {func(r *GenerateRequest) { r.Name = strings.Repeat("x", 51) }, "name"},
		"zero days":     {func(r *GenerateRequest) { r.TargetDays = 0 }, "target_days"},
		"too many days": {func(r *GenerateRequest) { r.TargetDays = 91 }, "target_days"},
		"no syllabus":   {func(r *GenerateRequest) { r.SyllabusContent = "" }, "syllabus_content"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := valid
			tc.mutate(&req)
			err := req.Validate(90)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
		})
	}

	// Multi-byte names are measured in characters, not bytes.
	unicodeName := valid
	unicodeName.Name = strings.Repeat("é", 50)
	assert.NoError(t, unicodeName.Validate(0))
}

func TestApiClientPermissions(t *testing.T) {
	reader := &ApiClient{Name: "reader", Permissions: []string{PermissionRoadmapsRead}}
	assert.True(t, reader.HasPermission(PermissionRoadmapsRead))
	assert.False(t, reader.HasPermission(PermissionRoadmapsWrite))

	wildcard := &ApiClient{Name: "app", Permissions: []string{"roadmaps:*"}}
	assert.True(t, wildcard.HasPermission(PermissionRoadmapsWrite))

	admin := &ApiClient{Name: "admin", Permissions: []string{PermissionAll}}
	assert.True(t, admin.HasPermission("anything"))

	var nobody *ApiClient
	assert.False(t, nobody.HasPermission(PermissionRoadmapsRead))
}
