package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(context.Background(), filepath.Join(t.TempDir(), "data", "daywise.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository(t *testing.T) {
	runRepositoryTests(t, func(t *testing.T) Repository {
		return newTestSQLite(t)
	})
}

func TestSQLiteRepositoryPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "daywise.db")
	created := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)

	repo, err := NewSQLiteRepository(ctx, path)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, sampleRoadmap("a", created)))
	require.NoError(t, repo.Close())

	reopened, err := NewSQLiteRepository(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.Equal(t, 3, got.TotalTopics())
}

func TestSQLiteRepositoryZeroCreatedAt(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleRoadmap("a", time.Time{})))
	got, err := repo.Load(ctx, "a")
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.IsZero())
}
