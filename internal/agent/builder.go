package agent

import (
	"fmt"

	"github.com/terra-clan/daywise/internal/models"
)

// BuildInput holds everything needed to assemble a roadmap
type BuildInput struct {
	Name               string
	TotalDays          int
	Days               []DayResponse
	SourceSyllabusName string
}

// BuildRoadmap assigns fresh ids and turns parsed days into a Roadmap.
// Every topic takes its day number from the day that contains it and starts
// as todo. Days keep the model's order; missing days are not backfilled, so
// a response without days yields a roadmap without days.
// CreatedAt is left zero for the store to set on persistence.
func BuildRoadmap(in BuildInput, ids *IDGenerator) (*models.Roadmap, error) {
	if ids == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	if in.TotalDays <= 0 {
		return nil, fmt.Errorf("total days must be positive, got %d", in.TotalDays)
	}

	roadmap := &models.Roadmap{
		ID:                 ids.Next(),
		Name:               in.Name,
		TotalDays:          in.TotalDays,
		Days:               make([]models.DayTopics, 0, len(in.Days)),
		SourceSyllabusName: in.SourceSyllabusName,
	}

	for _, day := range in.Days {
		topics := make([]models.Topic, 0, len(day.Topics))
		for _, t := range day.Topics {
			topics = append(topics, models.Topic{
				ID:               ids.Next(),
				Title:            t.Title,
				Description:      t.Description,
				DayNumber:        day.DayNumber,
				EstimatedMinutes: t.EstimatedMinutes,
				Status:           models.StatusTodo,
				Resources:        append([]string{}, t.Resources...),
			})
		}
		roadmap.Days = append(roadmap.Days, models.DayTopics{
			DayNumber: day.DayNumber,
			Topics:    topics,
		})
	}

	return roadmap, nil
}
