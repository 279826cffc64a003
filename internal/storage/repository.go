package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/terra-clan/daywise/internal/models"
)

// ErrInvalidRoadmap is returned when a roadmap cannot be stored as given
var ErrInvalidRoadmap = errors.New("invalid roadmap")

// UpdateFunc computes the next version of a stored roadmap.
// Returning a nil roadmap leaves the stored value untouched.
type UpdateFunc func(current *models.Roadmap) (*models.Roadmap, error)

// Repository defines the interface for roadmap persistence.
// Implementations hand out copies: callers may mutate what they receive
// without affecting stored state.
type Repository interface {
	// Save inserts or replaces a roadmap. Replacing keeps its original
	// insertion position.
	Save(ctx context.Context, r *models.Roadmap) error

	// Load returns the roadmap with the given ID, or nil, nil if absent.
	Load(ctx context.Context, id string) (*models.Roadmap, error)

	// LoadAll returns every roadmap in insertion order.
	LoadAll(ctx context.Context) ([]*models.Roadmap, error)

	// Delete removes a roadmap and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)

	// Update atomically loads, transforms and stores one roadmap.
	// It returns nil, nil when the ID is unknown.
	Update(ctx context.Context, id string, fn UpdateFunc) (*models.Roadmap, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}

func validateForSave(r *models.Roadmap) error {
	if r == nil {
		return fmt.Errorf("%w: roadmap is nil", ErrInvalidRoadmap)
	}
	if r.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRoadmap)
	}
	return nil
}

// roadmapRecord is the serialized form shared by backends that store
// whole documents
type roadmapRecord struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	TotalDays          int                `json:"total_days"`
	Days               []models.DayTopics `json:"days"`
	CreatedAtNano      int64              `json:"created_at_ns"`
	SourceSyllabusName string             `json:"source_syllabus_name,omitempty"`
}

func encodeDays(days []models.DayTopics) ([]byte, error) {
	if days == nil {
		days = []models.DayTopics{}
	}
	data, err := json.Marshal(days)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal days: %w", err)
	}
	return data, nil
}

func decodeDays(data []byte) ([]models.DayTopics, error) {
	var days []models.DayTopics
	if err := json.Unmarshal(data, &days); err != nil {
		return nil, fmt.Errorf("failed to unmarshal days: %w", err)
	}
	normalizeDays(days)
	return days, nil
}

// normalizeDays restores non-nil slices lost in serialization
func normalizeDays(days []models.DayTopics) {
	for i := range days {
		if days[i].Topics == nil {
			days[i].Topics = []models.Topic{}
		}
		for j := range days[i].Topics {
			if days[i].Topics[j].Resources == nil {
				days[i].Topics[j].Resources = []string{}
			}
		}
	}
}

// unixNano maps the zero time to 0 so unsaved timestamps survive a round trip
func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
