package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/daywise/internal/models"
)

func sampleDays() []DayResponse {
	return []DayResponse{
		{DayNumber: 1, Topics: []TopicResponse{
			{Title: "Intro", EstimatedMinutes: 30, Resources: []string{}},
			{Title: "Setup", EstimatedMinutes: 15, Resources: []string{"https://go.dev/doc/install"}},
		}},
		{DayNumber: 2, Topics: []TopicResponse{
			{Title: "Syntax", Description: "basics", EstimatedMinutes: 60, Resources: []string{}},
		}},
	}
}

func TestBuildRoadmap(t *testing.T) {
	ids := newIDGeneratorWithPrefix("test")

	roadmap, err := BuildRoadmap(BuildInput{
		Name:               "Go Basics",
		TotalDays:          2,
		Days:               sampleDays(),
		SourceSyllabusName: "go.pdf",
	}, ids)
	require.NoError(t, err)

	assert.Equal(t, "test-0000", roadmap.ID)
	assert.Equal(t, "Go Basics", roadmap.Name)
	assert.Equal(t, 2, roadmap.TotalDays)
	assert.Equal(t, "go.pdf", roadmap.SourceSyllabusName)
	assert.True(t, roadmap.CreatedAt.IsZero())
	require.Len(t, roadmap.Days, 2)

	assert.Equal(t, "test-0001", roadmap.Days[0].Topics[0].ID)
	assert.Equal(t, "test-0002", roadmap.Days[0].Topics[1].ID)
	assert.Equal(t, "test-0003", roadmap.Days[1].Topics[0].ID)
	assert.Equal(t, "basics", roadmap.Days[1].Topics[0].Description)

	for _, day := range roadmap.Days {
		for _, topic := range day.Topics {
			assert.Equal(t, day.DayNumber, topic.DayNumber)
			assert.Equal(t, models.StatusTodo, topic.Status)
			assert.NotNil(t, topic.Resources)
		}
	}
}

func TestBuildRoadmapUniqueIDsAcrossBuilds(t *testing.T) {
	ids := newIDGeneratorWithPrefix("u")
	seen := make(map[string]bool)

	for i := 0; i < 5; i++ {
		roadmap, err := BuildRoadmap(BuildInput{Name: "r", TotalDays: 2, Days: sampleDays()}, ids)
		require.NoError(t, err)

		require.False(t, seen[roadmap.ID])
		seen[roadmap.ID] = true
		for _, day := range roadmap.Days {
			for _, topic := range day.Topics {
				require.False(t, seen[topic.ID])
				seen[topic.ID] = true
			}
		}
	}
	assert.Len(t, seen, 5*4)
}

func TestBuildRoadmapDoesNotAliasResources(t *testing.T) {
	days := sampleDays()
	roadmap, err := BuildRoadmap(BuildInput{Name: "r", TotalDays: 2, Days: days}, newIDGeneratorWithPrefix("a"))
	require.NoError(t, err)

	days[0].Topics[1].Resources[0] = "changed"
	assert.Equal(t, "https://go.dev/doc/install", roadmap.Days[0].Topics[1].Resources[0])
}

func TestBuildRoadmapFailures(t *testing.T) {
	ids := newIDGeneratorWithPrefix("f")

	_, err := BuildRoadmap(BuildInput{Name: "r", TotalDays: 0, Days: sampleDays()}, ids)
	assert.Error(t, err)

	_, err = BuildRoadmap(BuildInput{Name: "r", TotalDays: 2, Days: sampleDays()}, nil)
	assert.Error(t, err)
}

func TestBuildRoadmapWithoutDays(t *testing.T) {
	ids := newIDGeneratorWithPrefix("e")

	roadmap, err := BuildRoadmap(BuildInput{Name: "r", TotalDays: 3, Days: []DayResponse{}}, ids)
	require.NoError(t, err)
	assert.Equal(t, "e-0000", roadmap.ID)
	assert.Equal(t, 3, roadmap.TotalDays)
	assert.NotNil(t, roadmap.Days)
	assert.Empty(t, roadmap.Days)
	assert.Zero(t, roadmap.TotalTopics())
	assert.Equal(t, "Just Started", roadmap.StatusLabel())
}
