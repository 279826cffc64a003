package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/daywise/internal/models"
)

func sampleRoadmap(id string, created time.Time) *models.Roadmap {
	return &models.Roadmap{
		ID:        id,
		Name:      "Roadmap " + id,
		TotalDays: 2,
		CreatedAt: created,
		Days: []models.DayTopics{
			{DayNumber: 1, Topics: []models.Topic{
				{ID: id + "-t1", Title: "Intro", DayNumber: 1, EstimatedMinutes: 30, Status: models.StatusTodo, Resources: []string{"https://example.com"}},
				{ID: id + "-t2", Title: "Setup", DayNumber: 1, EstimatedMinutes: 15, Status: models.StatusTodo, Resources: []string{}},
			}},
			{DayNumber: 2, Topics: []models.Topic{
				{ID: id + "-t3", Title: "Practice", Description: "drills", DayNumber: 2, EstimatedMinutes: 60, Status: models.StatusTodo, Resources: []string{}},
			}},
		},
		SourceSyllabusName: "syllabus.txt",
	}
}

// runRepositoryTests exercises the Repository contract against any backend
func runRepositoryTests(t *testing.T, newRepo func(t *testing.T) Repository) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("save and load", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		want := sampleRoadmap("a", base)
		require.NoError(t, repo.Save(ctx, want))

		got, err := repo.Load(ctx, "a")
		require.NoError(t, err)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Load mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("load missing", func(t *testing.T) {
		repo := newRepo(t)

		got, err := repo.Load(context.Background(), "nope")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("returned values are copies", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		original := sampleRoadmap("a", base)
		require.NoError(t, repo.Save(ctx, original))
		original.Days[0].Topics[0].Title = "mutated"

		got, err := repo.Load(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "Intro", got.Days[0].Topics[0].Title)

		got.Days[0].Topics[0].Status = models.StatusCompleted
		again, err := repo.Load(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, models.StatusTodo, again.Days[0].Topics[0].Status)
	})

	t.Run("load all keeps insertion order", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for i, id := range []string{"c", "a", "b"} {
			require.NoError(t, repo.Save(ctx, sampleRoadmap(id, base.Add(time.Duration(i)*time.Minute))))
		}
		// Replacing keeps the original position.
		updated := sampleRoadmap("c", base)
		updated.Name = "renamed"
		require.NoError(t, repo.Save(ctx, updated))

		all, err := repo.LoadAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"c", "a", "b"}, []string{all[0].ID, all[1].ID, all[2].ID})
		assert.Equal(t, "renamed", all[0].Name)
	})

	t.Run("load all empty", func(t *testing.T) {
		repo := newRepo(t)

		all, err := repo.LoadAll(context.Background())
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("delete twice", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.Save(ctx, sampleRoadmap("a", base)))

		deleted, err := repo.Delete(ctx, "a")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.Delete(ctx, "a")
		require.NoError(t, err)
		assert.False(t, deleted)

		all, err := repo.LoadAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("update", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.Save(ctx, sampleRoadmap("a", base)))

		got, err := repo.Update(ctx, "a", func(current *models.Roadmap) (*models.Roadmap, error) {
			next, ok := current.WithTopicStatus("a-t3", models.StatusSkipped)
			require.True(t, ok)
			return next, nil
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusSkipped, got.Days[1].Topics[0].Status)

		stored, err := repo.Load(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, models.StatusSkipped, stored.Days[1].Topics[0].Status)
		assert.True(t, stored.CreatedAt.Equal(base))
	})

	t.Run("update missing", func(t *testing.T) {
		repo := newRepo(t)
		called := false

		got, err := repo.Update(context.Background(), "nope", func(current *models.Roadmap) (*models.Roadmap, error) {
			called = true
			return current, nil
		})
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.False(t, called)
	})

	t.Run("update error leaves value", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.Save(ctx, sampleRoadmap("a", base)))

		boom := errors.New("boom")
		_, err := repo.Update(ctx, "a", func(current *models.Roadmap) (*models.Roadmap, error) {
			current.Name = "changed"
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)

		stored, err := repo.Load(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "Roadmap a", stored.Name)
	})

	t.Run("concurrent updates are not lost", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		roadmap := sampleRoadmap("a", base)
		require.NoError(t, repo.Save(ctx, roadmap))

		topicIDs := []string{"a-t1", "a-t2", "a-t3"}
		var wg sync.WaitGroup
		errs := make(chan error, len(topicIDs))
		for _, topicID := range topicIDs {
			wg.Add(1)
			go func(topicID string) {
				defer wg.Done()
				_, err := repo.Update(ctx, "a", func(current *models.Roadmap) (*models.Roadmap, error) {
					next, ok := current.WithTopicStatus(topicID, models.StatusCompleted)
					if !ok {
						return nil, fmt.Errorf("topic %s missing", topicID)
					}
					return next, nil
				})
				errs <- err
			}(topicID)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		stored, err := repo.Load(ctx, "a")
		require.NoError(t, err)
		assert.True(t, stored.IsFullyCompleted())
	})

	t.Run("save rejects invalid", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		assert.ErrorIs(t, repo.Save(ctx, nil), ErrInvalidRoadmap)
		assert.ErrorIs(t, repo.Save(ctx, &models.Roadmap{Name: "no id"}), ErrInvalidRoadmap)
	})

	t.Run("ping", func(t *testing.T) {
		repo := newRepo(t)
		assert.NoError(t, repo.Ping(context.Background()))
	})
}

func TestMemoryRepository(t *testing.T) {
	runRepositoryTests(t, func(t *testing.T) Repository {
		return NewMemoryRepository()
	})
}

func TestMemoryRepositoryCancelledContext(t *testing.T) {
	repo := NewMemoryRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, repo.Save(ctx, sampleRoadmap("a", time.Now())), context.Canceled)
	_, err := repo.LoadAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
