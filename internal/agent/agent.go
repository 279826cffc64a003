package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/terra-clan/daywise/internal/models"
)

// Completer is the remote language-model collaborator.
// Implementations must surface transport, auth, quota and empty-response
// failures as errors.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Stage identifies where a generation failed
type Stage string

const (
	StageRemoteCall Stage = "remote_call"
	StageParse      Stage = "parse"
	StageBuild      Stage = "build"
)

// Generation failure categories, matched with errors.Is
var (
	ErrRemoteCall = errors.New("remote model call failed")
	ErrParse      = errors.New("model response could not be parsed")
	ErrBuild      = errors.New("roadmap could not be assembled")
)

// GenerationError is the single failure type returned by Agent.Generate
type GenerationError struct {
	Stage Stage
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %v", e.sentinel(), e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is matches the stage's category sentinel
func (e *GenerationError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *GenerationError) sentinel() error {
	switch e.Stage {
	case StageRemoteCall:
		return ErrRemoteCall
	case StageParse:
		return ErrParse
	default:
		return ErrBuild
	}
}

// Agent orchestrates prompt building, the remote call, parsing and
// roadmap assembly. It never retries; retries are the caller's decision.
type Agent struct {
	llm     Completer
	prompts *PromptBuilder
	ids     *IDGenerator
	maxDays int
}

// Option configures an Agent
type Option func(*Agent)

// WithIDGenerator replaces the agent's id source
func WithIDGenerator(ids *IDGenerator) Option {
	return func(a *Agent) {
		a.ids = ids
	}
}

// WithMaxDays caps the accepted target day count
func WithMaxDays(n int) Option {
	return func(a *Agent) {
		a.maxDays = n
	}
}

// New creates an Agent with its own id generator
func New(llm Completer, prompts *PromptBuilder, opts ...Option) (*Agent, error) {
	if llm == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if prompts == nil {
		return nil, fmt.Errorf("prompt builder is required")
	}

	a := &Agent{
		llm:     llm,
		prompts: prompts,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.ids == nil {
		ids, err := NewIDGenerator()
		if err != nil {
			return nil, err
		}
		a.ids = ids
	}

	return a, nil
}

// Generate produces a roadmap from syllabus text. Invalid input is returned
// as *models.ValidationError before any remote call; every other failure is
// a *GenerationError. No partial roadmap is ever returned.
func (a *Agent) Generate(ctx context.Context, req models.GenerateRequest) (*models.Roadmap, error) {
	if err := req.Validate(a.maxDays); err != nil {
		return nil, err
	}

	userPrompt, err := a.prompts.UserPrompt(req.SyllabusContent, req.TargetDays)
	if err != nil {
		return nil, &GenerationError{Stage: StageBuild, Err: err}
	}

	start := time.Now()
	output, err := a.llm.Complete(ctx, a.prompts.SystemPrompt(), userPrompt)
	if err != nil {
		return nil, &GenerationError{Stage: StageRemoteCall, Err: err}
	}
	if strings.TrimSpace(output) == "" {
		return nil, &GenerationError{Stage: StageRemoteCall, Err: errors.New("empty response")}
	}

	slog.Debug("model response received",
		"template", a.prompts.Name(),
		"bytes", len(output),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	days, err := ParseResponse(output)
	if err != nil {
		return nil, &GenerationError{Stage: StageParse, Err: err}
	}

	roadmap, err := BuildRoadmap(BuildInput{
		Name:               strings.TrimSpace(req.Name),
		TotalDays:          req.TargetDays,
		Days:               days,
		SourceSyllabusName: req.SourceSyllabusName,
	}, a.ids)
	if err != nil {
		return nil, &GenerationError{Stage: StageBuild, Err: err}
	}

	if len(roadmap.Days) < req.TargetDays {
		slog.Warn("model produced fewer days than requested",
			"roadmap_id", roadmap.ID,
			"requested", req.TargetDays,
			"produced", len(roadmap.Days),
		)
	}

	return roadmap, nil
}
