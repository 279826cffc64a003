package api

import (
	"time"

	"github.com/terra-clan/daywise/internal/models"
)

// RoadmapView is a roadmap as served by the API, with derived progress
type RoadmapView struct {
	ID                   string              `json:"id"`
	Name                 string              `json:"name"`
	TotalDays            int                 `json:"total_days"`
	CreatedAt            time.Time           `json:"created_at"`
	SourceSyllabusName   string              `json:"source_syllabus_name,omitempty"`
	Days                 []DayView           `json:"days"`
	TotalTopics          int                 `json:"total_topics"`
	StatusCounts         models.StatusCounts `json:"status_counts"`
	CompletionPercentage float64             `json:"completion_percentage"`
	IsFullyCompleted     bool                `json:"is_fully_completed"`
	HasStarted           bool                `json:"has_started"`
	StatusLabel          string              `json:"status_label"`
}

// DayView is one day of a RoadmapView
type DayView struct {
	DayNumber             int                 `json:"day_number"`
	Date                  string              `json:"date,omitempty"`
	Topics                []models.Topic      `json:"topics"`
	StatusCounts          models.StatusCounts `json:"status_counts"`
	CompletionPercentage  float64             `json:"completion_percentage"`
	IsCompleted           bool                `json:"is_completed"`
	TotalEstimatedMinutes int                 `json:"total_estimated_minutes"`
}

// GenerationView is the generation state as served by the API
type GenerationView struct {
	Phase     models.GenerationPhase `json:"phase"`
	AttemptID string                 `json:"attempt_id,omitempty"`
	StartedAt *time.Time             `json:"started_at,omitempty"`
	Roadmap   *RoadmapView           `json:"roadmap,omitempty"`
	Message   string                 `json:"message,omitempty"`
}

func newRoadmapView(r *models.Roadmap) *RoadmapView {
	if r == nil {
		return nil
	}

	days := make([]DayView, 0, len(r.Days))
	for _, d := range r.Days {
		topics := d.Topics
		if topics == nil {
			topics = []models.Topic{}
		}
		days = append(days, DayView{
			DayNumber:             d.DayNumber,
			Date:                  d.Date,
			Topics:                topics,
			StatusCounts:          d.StatusCounts(),
			CompletionPercentage:  d.CompletionPercentage(),
			IsCompleted:           d.IsCompleted(),
			TotalEstimatedMinutes: d.TotalEstimatedMinutes(),
		})
	}

	return &RoadmapView{
		ID:                   r.ID,
		Name:                 r.Name,
		TotalDays:            r.TotalDays,
		CreatedAt:            r.CreatedAt,
		SourceSyllabusName:   r.SourceSyllabusName,
		Days:                 days,
		TotalTopics:          r.TotalTopics(),
		StatusCounts:         r.OverallStatusCounts(),
		CompletionPercentage: r.OverallCompletionPercentage(),
		IsFullyCompleted:     r.IsFullyCompleted(),
		HasStarted:           r.HasStarted(),
		StatusLabel:          r.StatusLabel(),
	}
}

func newRoadmapViews(roadmaps []*models.Roadmap) []*RoadmapView {
	views := make([]*RoadmapView, 0, len(roadmaps))
	for _, r := range roadmaps {
		views = append(views, newRoadmapView(r))
	}
	return views
}

func newGenerationView(state models.GenerationState) GenerationView {
	return GenerationView{
		Phase:     state.Phase,
		AttemptID: state.AttemptID,
		StartedAt: state.StartedAt,
		Roadmap:   newRoadmapView(state.Roadmap),
		Message:   state.Message,
	}
}
