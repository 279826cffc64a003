// Package store owns the roadmap collection and the observable generation
// and roadmap-list state.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/daywise/internal/agent"
	"github.com/terra-clan/daywise/internal/metrics"
	"github.com/terra-clan/daywise/internal/models"
	"github.com/terra-clan/daywise/internal/observe"
	"github.com/terra-clan/daywise/internal/storage"
)

// ErrClosed is returned by operations started after Close
var ErrClosed = errors.New("store is closed")

// StaleGenerationMessage is the error shown for attempts expired by the watchdog
const StaleGenerationMessage = "Generation timed out. Please try again."

// Generator produces a roadmap from a validated request
type Generator interface {
	Generate(ctx context.Context, req models.GenerateRequest) (*models.Roadmap, error)
}

// Store is the single owner of roadmap state. Mutations are serialized so
// the published list always reflects the order in which they were applied.
type Store struct {
	repo    storage.Repository
	gen     Generator
	now     func() time.Time
	maxDays int

	mu         sync.Mutex // serializes mutations and list publishes
	generation *observe.Subject[models.GenerationState]
	roadmaps   *observe.Subject[[]*models.Roadmap]

	attemptsMu sync.Mutex
	attempts   map[string]context.CancelFunc

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces the wall clock used for createdAt and attempt start times
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithMaxTargetDays caps the accepted target day count. Zero means no cap.
func WithMaxTargetDays(n int) Option {
	return func(s *Store) {
		s.maxDays = n
	}
}

// New creates a store over repo and publishes the current roadmap list
func New(ctx context.Context, repo storage.Repository, gen Generator, opts ...Option) (*Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())
	s := &Store{
		repo:       repo,
		gen:        gen,
		now:        time.Now,
		generation: observe.NewSubject(models.IdleState()),
		roadmaps:   observe.NewSubject([]*models.Roadmap{}),
		attempts:   make(map[string]context.CancelFunc),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mu.Lock()
	err := s.refreshLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		baseCancel()
		return nil, fmt.Errorf("failed to load roadmaps: %w", err)
	}

	return s, nil
}

// Generation returns the observable generation state
func (s *Store) Generation() *observe.Subject[models.GenerationState] {
	return s.generation
}

// Roadmaps returns the observable roadmap list, newest first.
// Published slices are shared between subscribers and must not be modified.
func (s *Store) Roadmaps() *observe.Subject[[]*models.Roadmap] {
	return s.roadmaps
}

// GenerationState returns the current generation state
func (s *Store) GenerationState() models.GenerationState {
	return s.generation.Value()
}

// Generate runs one generation attempt and waits for it. Invalid input
// fails fast with *models.ValidationError and leaves the generation state
// untouched. Other failures are published as the Error state and returned.
// Cancelling ctx resets the state to Idle if this attempt still owns it.
func (s *Store) Generate(ctx context.Context, req models.GenerateRequest) (*models.Roadmap, error) {
	if err := req.Validate(s.maxDays); err != nil {
		metrics.RecordGeneration(metrics.OutcomeValidation, 0)
		return nil, err
	}
	if s.baseCtx.Err() != nil {
		return nil, ErrClosed
	}

	attemptID := uuid.NewString()
	attemptCtx, done := s.begin(ctx, attemptID)
	defer done()

	return s.run(attemptCtx, attemptID, req)
}

// GenerateAsync validates req, moves the state to Generating and runs the
// attempt in the background. The attempt lives until it finishes, is
// cancelled or the store is closed.
func (s *Store) GenerateAsync(req models.GenerateRequest) (string, error) {
	if err := req.Validate(s.maxDays); err != nil {
		metrics.RecordGeneration(metrics.OutcomeValidation, 0)
		return "", err
	}
	if s.baseCtx.Err() != nil {
		return "", ErrClosed
	}

	attemptID := uuid.NewString()
	attemptCtx, done := s.begin(s.baseCtx, attemptID)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer done()
		if _, err := s.run(attemptCtx, attemptID, req); err != nil {
			slog.Debug("background generation finished with error", "attempt_id", attemptID, "error", err)
		}
	}()

	return attemptID, nil
}

// begin registers the attempt's cancel func and publishes Generating
func (s *Store) begin(parent context.Context, attemptID string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	s.attemptsMu.Lock()
	s.attempts[attemptID] = cancel
	s.attemptsMu.Unlock()

	s.generation.Publish(models.GeneratingState(attemptID, s.now()))
	slog.Info("roadmap generation started", "attempt_id", attemptID)

	return ctx, func() {
		s.attemptsMu.Lock()
		delete(s.attempts, attemptID)
		s.attemptsMu.Unlock()
		cancel()
	}
}

func (s *Store) run(ctx context.Context, attemptID string, req models.GenerateRequest) (*models.Roadmap, error) {
	start := time.Now()

	roadmap, err := s.gen.Generate(ctx, req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			s.abandon(attemptID)
			metrics.RecordGeneration(metrics.OutcomeCancelled, time.Since(start).Seconds())
			return nil, fmt.Errorf("generation cancelled: %w", ctx.Err())
		}
		return nil, s.fail(attemptID, outcomeFor(err), FailureMessage(err), err, start)
	}

	roadmap.CreatedAt = s.now().UTC().Truncate(time.Microsecond)

	// A finished roadmap is persisted even if the caller went away meanwhile.
	persistCtx := context.WithoutCancel(ctx)

	s.mu.Lock()
	if err := s.repo.Save(persistCtx, roadmap); err != nil {
		s.mu.Unlock()
		return nil, s.fail(attemptID, metrics.OutcomeStorage,
			"The roadmap was generated but could not be saved. Please try again.", err, start)
	}
	if err := s.refreshLocked(persistCtx); err != nil {
		slog.Warn("failed to republish roadmap list", "error", err)
	}
	s.mu.Unlock()

	s.generation.Publish(models.SuccessState(attemptID, roadmap.Clone()))
	metrics.RecordGeneration(metrics.OutcomeSuccess, time.Since(start).Seconds())

	slog.Info("roadmap generated",
		"attempt_id", attemptID,
		"roadmap_id", roadmap.ID,
		"days", len(roadmap.Days),
		"topics", roadmap.TotalTopics(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return roadmap.Clone(), nil
}

func (s *Store) fail(attemptID, outcome, message string, err error, start time.Time) error {
	s.generation.Publish(models.ErrorState(attemptID, message))
	metrics.RecordGeneration(outcome, time.Since(start).Seconds())
	slog.Warn("roadmap generation failed",
		"attempt_id", attemptID,
		"outcome", outcome,
		"error", err,
	)
	return err
}

// abandon resets to Idle only while the cancelled attempt owns the state
func (s *Store) abandon(attemptID string) {
	reset := s.generation.Update(func(cur models.GenerationState) (models.GenerationState, bool) {
		if cur.Phase != models.PhaseGenerating || cur.AttemptID != attemptID {
			return cur, false
		}
		return models.IdleState(), true
	})
	slog.Info("roadmap generation cancelled", "attempt_id", attemptID, "state_reset", reset)
}

// CancelGeneration cancels every in-flight attempt and returns how many
// were cancelled
func (s *Store) CancelGeneration() int {
	s.attemptsMu.Lock()
	defer s.attemptsMu.Unlock()

	for _, cancel := range s.attempts {
		cancel()
	}
	return len(s.attempts)
}

// ResetGenerationState forces the generation state back to Idle
func (s *Store) ResetGenerationState() {
	s.generation.Publish(models.IdleState())
}

// ExpireStaleGeneration moves an attempt stuck in Generating for longer than
// maxAge to the Error state and cancels it. It reports whether one expired.
func (s *Store) ExpireStaleGeneration(maxAge time.Duration) bool {
	now := s.now()

	var expired string
	s.generation.Update(func(cur models.GenerationState) (models.GenerationState, bool) {
		if cur.Phase != models.PhaseGenerating || cur.StartedAt == nil {
			return cur, false
		}
		if now.Sub(*cur.StartedAt) < maxAge {
			return cur, false
		}
		expired = cur.AttemptID
		return models.ErrorState(cur.AttemptID, StaleGenerationMessage), true
	})
	if expired == "" {
		return false
	}

	s.attemptsMu.Lock()
	if cancel, ok := s.attempts[expired]; ok {
		cancel()
	}
	s.attemptsMu.Unlock()

	metrics.RecordStaleGeneration()
	slog.Warn("stale roadmap generation expired", "attempt_id", expired, "max_age", maxAge.String())
	return true
}

// GetByID returns a snapshot of the roadmap, or nil if it does not exist
func (s *Store) GetByID(ctx context.Context, id string) (*models.Roadmap, error) {
	roadmap, err := s.repo.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load roadmap: %w", err)
	}
	return roadmap, nil
}

// GetAll returns snapshots of all roadmaps, newest first. Roadmaps created
// at the same instant keep their insertion order.
func (s *Store) GetAll(ctx context.Context) ([]*models.Roadmap, error) {
	roadmaps, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load roadmaps: %w", err)
	}
	sortNewestFirst(roadmaps)
	return roadmaps, nil
}

// UpdateTopicStatus sets one topic's status and returns the new snapshot.
// It returns nil without side effects when the roadmap or topic is unknown.
func (s *Store) UpdateTopicStatus(ctx context.Context, roadmapID, topicID string, status models.TopicStatus) (*models.Roadmap, error) {
	if !status.IsValid() {
		return nil, &models.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	topicFound := false
	updated, err := s.repo.Update(ctx, roadmapID, func(current *models.Roadmap) (*models.Roadmap, error) {
		topicFound = false
		next, ok := current.WithTopicStatus(topicID, status)
		if !ok {
			return nil, nil
		}
		topicFound = true
		return next, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update topic status: %w", err)
	}
	if updated == nil || !topicFound {
		slog.Debug("topic status update ignored", "roadmap_id", roadmapID, "topic_id", topicID)
		return nil, nil
	}

	if err := s.refreshLocked(ctx); err != nil {
		slog.Warn("failed to republish roadmap list", "error", err)
	}
	metrics.RecordTopicStatusUpdate(string(status))

	slog.Debug("topic status updated",
		"roadmap_id", roadmapID,
		"topic_id", topicID,
		"status", status,
	)
	return updated, nil
}

// Delete removes a roadmap. It returns false when the roadmap is unknown.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete roadmap: %w", err)
	}
	if !deleted {
		return false, nil
	}

	if err := s.refreshLocked(ctx); err != nil {
		slog.Warn("failed to republish roadmap list", "error", err)
	}
	metrics.RecordRoadmapDeleted()
	slog.Info("roadmap deleted", "roadmap_id", id)
	return true, nil
}

// Refresh reloads the roadmap list from the repository and republishes it
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Store) refreshLocked(ctx context.Context) error {
	roadmaps, err := s.repo.LoadAll(ctx)
	if err != nil {
		return err
	}
	sortNewestFirst(roadmaps)
	if roadmaps == nil {
		roadmaps = []*models.Roadmap{}
	}
	s.roadmaps.Publish(roadmaps)
	return nil
}

// Close cancels background attempts, waits for them and closes the
// observable state
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.baseCancel()
		s.wg.Wait()
		s.generation.Close()
		s.roadmaps.Close()
	})
}

func sortNewestFirst(roadmaps []*models.Roadmap) {
	sort.SliceStable(roadmaps, func(i, j int) bool {
		return roadmaps[i].CreatedAt.After(roadmaps[j].CreatedAt)
	})
}

func outcomeFor(err error) string {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return metrics.OutcomeValidation
	case errors.Is(err, agent.ErrRemoteCall):
		return metrics.OutcomeRemoteCall
	case errors.Is(err, agent.ErrParse):
		return metrics.OutcomeParse
	default:
		return metrics.OutcomeBuild
	}
}

// FailureMessage turns a generation error into a message for the learner
func FailureMessage(err error) string {
	var (
		verr *models.ValidationError
		gerr *agent.GenerationError
	)
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.As(err, &gerr) && gerr.Stage == agent.StageRemoteCall:
		if errors.Is(err, context.DeadlineExceeded) {
			return "The roadmap generator took too long to respond. Please try again."
		}
		return fmt.Sprintf("Could not reach the roadmap generator: %v", gerr.Err)
	case errors.As(err, &gerr) && gerr.Stage == agent.StageParse:
		return "The generated roadmap could not be read. Please try again."
	case errors.As(err, &gerr):
		return "The generated roadmap could not be assembled. Please try again."
	default:
		return fmt.Sprintf("Roadmap generation failed: %v", err)
	}
}
