package models

import (
	"fmt"
	"strings"
	"time"
)

// TopicStatus represents the learner's progress on a single topic
type TopicStatus string

const (
	StatusTodo      TopicStatus = "todo"
	StatusCompleted TopicStatus = "completed"
	StatusSkipped   TopicStatus = "skipped"
)

// DefaultEstimatedMinutes is applied when the model omits a time estimate
const DefaultEstimatedMinutes = 30

// MaxRoadmapNameLength is the maximum roadmap name length in characters
const MaxRoadmapNameLength = 50

// IsValid reports whether s is one of the known statuses
func (s TopicStatus) IsValid() bool {
	switch s {
	case StatusTodo, StatusCompleted, StatusSkipped:
		return true
	}
	return false
}

// ParseTopicStatus parses a status name case-insensitively
func ParseTopicStatus(s string) (TopicStatus, error) {
	status := TopicStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", fmt.Errorf("unknown topic status: %q", s)
	}
	return status, nil
}

// Topic is a single trackable learning item
type Topic struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	Description      string      `json:"description,omitempty"`
	DayNumber        int         `json:"day_number"`
	EstimatedMinutes int         `json:"estimated_minutes"`
	Status           TopicStatus `json:"status"`
	Resources        []string    `json:"resources"`
}

// StatusCounts holds topic counts grouped by status
type StatusCounts struct {
	Remaining int `json:"remaining"`
	Completed int `json:"completed"`
	Skipped   int `json:"skipped"`
}

// Total returns the number of topics across all statuses
func (c StatusCounts) Total() int {
	return c.Remaining + c.Completed + c.Skipped
}

func (c StatusCounts) add(other StatusCounts) StatusCounts {
	return StatusCounts{
		Remaining: c.Remaining + other.Remaining,
		Completed: c.Completed + other.Completed,
		Skipped:   c.Skipped + other.Skipped,
	}
}

// DayTopics groups the topics scheduled for one day of a roadmap
type DayTopics struct {
	DayNumber int     `json:"day_number"`
	Topics    []Topic `json:"topics"`
	Date      string  `json:"date,omitempty"` // YYYY-MM-DD
}

// TotalEstimatedMinutes sums the estimates of all topics of the day
func (d DayTopics) TotalEstimatedMinutes() int {
	total := 0
	for _, t := range d.Topics {
		total += t.EstimatedMinutes
	}
	return total
}

// StatusCounts counts the day's topics by status
func (d DayTopics) StatusCounts() StatusCounts {
	var c StatusCounts
	for _, t := range d.Topics {
		switch t.Status {
		case StatusCompleted:
			c.Completed++
		case StatusSkipped:
			c.Skipped++
		default:
			c.Remaining++
		}
	}
	return c
}

// CompletionPercentage returns completed/total in the range [0, 1]
func (d DayTopics) CompletionPercentage() float64 {
	if len(d.Topics) == 0 {
		return 0
	}
	return float64(d.StatusCounts().Completed) / float64(len(d.Topics))
}

// IsCompleted is true when the day has topics and all of them are completed
func (d DayTopics) IsCompleted() bool {
	if len(d.Topics) == 0 {
		return false
	}
	for _, t := range d.Topics {
		if t.Status != StatusCompleted {
			return false
		}
	}
	return true
}

// Roadmap is a named, day-partitioned learning plan.
// A zero CreatedAt means the roadmap has not been persisted yet.
type Roadmap struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	TotalDays          int         `json:"total_days"`
	Days               []DayTopics `json:"days"`
	CreatedAt          time.Time   `json:"created_at"`
	SourceSyllabusName string      `json:"source_syllabus_name,omitempty"`
}

// TotalTopics returns the number of topics across all days
func (r *Roadmap) TotalTopics() int {
	total := 0
	for _, d := range r.Days {
		total += len(d.Topics)
	}
	return total
}

// OverallStatusCounts aggregates status counts across all days
func (r *Roadmap) OverallStatusCounts() StatusCounts {
	var c StatusCounts
	for _, d := range r.Days {
		c = c.add(d.StatusCounts())
	}
	return c
}

// OverallCompletionPercentage returns completed/total in the range [0, 1]
func (r *Roadmap) OverallCompletionPercentage() float64 {
	total := r.TotalTopics()
	if total == 0 {
		return 0
	}
	return float64(r.OverallStatusCounts().Completed) / float64(total)
}

// IsFullyCompleted is true when the roadmap has topics and every day is completed
func (r *Roadmap) IsFullyCompleted() bool {
	if r.TotalTopics() == 0 {
		return false
	}
	for _, d := range r.Days {
		if !d.IsCompleted() {
			return false
		}
	}
	return true
}

// HasStarted is true once any topic has been completed or skipped
func (r *Roadmap) HasStarted() bool {
	c := r.OverallStatusCounts()
	return c.Completed > 0 || c.Skipped > 0
}

// StatusLabel returns a short progress label for list views
func (r *Roadmap) StatusLabel() string {
	if r.IsFullyCompleted() {
		return "Completed"
	}
	total := r.TotalTopics()
	if total == 0 {
		return "Just Started"
	}
	percent := r.OverallStatusCounts().Completed * 100 / total
	if percent == 0 {
		return "Just Started"
	}
	return fmt.Sprintf("%d%% Complete", percent)
}

// FindTopic returns the topic with the given ID
func (r *Roadmap) FindTopic(topicID string) (Topic, bool) {
	for _, d := range r.Days {
		for _, t := range d.Topics {
			if t.ID == topicID {
				return t, true
			}
		}
	}
	return Topic{}, false
}

// WithTopicStatus returns a new snapshot where only the given topic's status
// is replaced. The receiver is left untouched. ok is false if no topic matches.
func (r *Roadmap) WithTopicStatus(topicID string, status TopicStatus) (next *Roadmap, ok bool) {
	next = r.Clone()
	for i := range next.Days {
		for j := range next.Days[i].Topics {
			if next.Days[i].Topics[j].ID == topicID {
				next.Days[i].Topics[j].Status = status
				return next, true
			}
		}
	}
	return nil, false
}

// Clone returns a deep copy of the roadmap
func (r *Roadmap) Clone() *Roadmap {
	if r == nil {
		return nil
	}
	out := *r
	out.Days = make([]DayTopics, len(r.Days))
	for i, d := range r.Days {
		day := d
		day.Topics = make([]Topic, len(d.Topics))
		for j, t := range d.Topics {
			topic := t
			topic.Resources = append([]string{}, t.Resources...)
			day.Topics[j] = topic
		}
		out.Days[i] = day
	}
	return &out
}
