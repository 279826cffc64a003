package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// GenerationPhase is the tag of a GenerationState
type GenerationPhase string

const (
	PhaseIdle       GenerationPhase = "idle"
	PhaseGenerating GenerationPhase = "generating"
	PhaseSuccess    GenerationPhase = "success"
	PhaseError      GenerationPhase = "error"
)

// IsTerminal returns true if the phase ends a generation attempt
func (p GenerationPhase) IsTerminal() bool {
	return p == PhaseSuccess || p == PhaseError
}

// GenerationState is the observable state of roadmap generation.
// Roadmap is set only for PhaseSuccess and Message only for PhaseError.
type GenerationState struct {
	Phase     GenerationPhase `json:"phase"`
	AttemptID string          `json:"attempt_id,omitempty"`
	StartedAt *time.Time      `json:"started_at,omitempty"`
	Roadmap   *Roadmap        `json:"roadmap,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// IdleState returns the initial generation state
func IdleState() GenerationState {
	return GenerationState{Phase: PhaseIdle}
}

// GeneratingState marks attemptID as in flight since startedAt
func GeneratingState(attemptID string, startedAt time.Time) GenerationState {
	return GenerationState{
		Phase:     PhaseGenerating,
		AttemptID: attemptID,
		StartedAt: &startedAt,
	}
}

// SuccessState records a generated roadmap
func SuccessState(attemptID string, roadmap *Roadmap) GenerationState {
	return GenerationState{
		Phase:     PhaseSuccess,
		AttemptID: attemptID,
		Roadmap:   roadmap,
	}
}

// ErrorState records a failed attempt with a human-readable message
func ErrorState(attemptID, message string) GenerationState {
	return GenerationState{
		Phase:     PhaseError,
		AttemptID: attemptID,
		Message:   message,
	}
}

// GenerateRequest holds the inputs for a roadmap generation
type GenerateRequest struct {
	SyllabusContent    string `json:"syllabus_content"`
	Name               string `json:"name"`
	TargetDays         int    `json:"target_days"`
	SourceSyllabusName string `json:"source_syllabus_name,omitempty"`
}

// ValidationError reports invalid caller input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Validate checks the request. maxDays <= 0 disables the upper bound.
func (r GenerateRequest) Validate(maxDays int) error {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if utf8.RuneCountInString(name) > MaxRoadmapNameLength {
		return &ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("name must be at most %d characters", MaxRoadmapNameLength),
		}
	}
	if r.TargetDays <= 0 {
		return &ValidationError{Field: "target_days", Message: "target_days must be positive"}
	}
	if maxDays > 0 && r.TargetDays > maxDays {
		return &ValidationError{
			Field:   "target_days",
			Message: fmt.Sprintf("target_days must be at most %d", maxDays),
		}
	}
	if strings.TrimSpace(r.SyllabusContent) == "" {
		return &ValidationError{Field: "syllabus_content", Message: "syllabus content is required"}
	}
	return nil
}

// UpdateStatusRequest is the body of a topic status change
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// PromptTemplate is a named pair of system and user prompts.
// UserPrompt is a text/template rendered with the syllabus and day count.
type PromptTemplate struct {
	Name         string `yaml:"name" json:"name"`
	Description  string `yaml:"description" json:"description"`
	SystemPrompt string `yaml:"system_prompt" json:"system_prompt"`
	UserPrompt   string `yaml:"user_prompt" json:"user_prompt"`
}
