package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/daywise/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 10
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 1
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Pool exposes the connection pool for migrations
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Save inserts a roadmap or replaces an existing one in place
func (r *PostgresRepository) Save(ctx context.Context, roadmap *models.Roadmap) error {
	if err := validateForSave(roadmap); err != nil {
		return err
	}

	daysJSON, err := encodeDays(roadmap.Days)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO roadmaps (id, name, total_days, created_at, source_syllabus_name, days)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			total_days = EXCLUDED.total_days,
			created_at = EXCLUDED.created_at,
			source_syllabus_name = EXCLUDED.source_syllabus_name,
			days = EXCLUDED.days,
			updated_at = NOW()
	`

	_, err = r.pool.Exec(ctx, query,
		roadmap.ID,
		roadmap.Name,
		roadmap.TotalDays,
		roadmap.CreatedAt,
		nullString(roadmap.SourceSyllabusName),
		daysJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save roadmap: %w", err)
	}

	return nil
}

const selectRoadmapColumns = `id, name, total_days, created_at, source_syllabus_name, days`

// Load retrieves a roadmap by ID
func (r *PostgresRepository) Load(ctx context.Context, id string) (*models.Roadmap, error) {
	query := `SELECT ` + selectRoadmapColumns + ` FROM roadmaps WHERE id = $1`

	roadmap, err := scanRoadmap(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get roadmap: %w", err)
	}
	return roadmap, nil
}

// LoadAll returns all roadmaps in insertion order
func (r *PostgresRepository) LoadAll(ctx context.Context) ([]*models.Roadmap, error) {
	query := `SELECT ` + selectRoadmapColumns + ` FROM roadmaps ORDER BY seq ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list roadmaps: %w", err)
	}
	defer rows.Close()

	var roadmaps []*models.Roadmap
	for rows.Next() {
		roadmap, err := scanRoadmap(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan roadmap: %w", err)
		}
		roadmaps = append(roadmaps, roadmap)
	}

	return roadmaps, rows.Err()
}

// Delete removes a roadmap
func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM roadmaps WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete roadmap: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Update runs fn inside a transaction holding a row lock
func (r *PostgresRepository) Update(ctx context.Context, id string, fn UpdateFunc) (*models.Roadmap, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + selectRoadmapColumns + ` FROM roadmaps WHERE id = $1 FOR UPDATE`
	current, err := scanRoadmap(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock roadmap: %w", err)
	}

	next, err := fn(current.Clone())
	if err != nil {
		return nil, err
	}
	if next == nil {
		return current, nil
	}

	daysJSON, err := encodeDays(next.Days)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE roadmaps
		SET name = $2, total_days = $3, created_at = $4, source_syllabus_name = $5, days = $6, updated_at = NOW()
		WHERE id = $1
	`,
		id,
		next.Name,
		next.TotalDays,
		next.CreatedAt,
		nullString(next.SourceSyllabusName),
		daysJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update roadmap: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit roadmap update: %w", err)
	}

	next = next.Clone()
	next.ID = id
	return next, nil
}

func scanRoadmap(row pgx.Row) (*models.Roadmap, error) {
	var roadmap models.Roadmap
	var source sql.NullString
	var daysJSON []byte

	err := row.Scan(
		&roadmap.ID,
		&roadmap.Name,
		&roadmap.TotalDays,
		&roadmap.CreatedAt,
		&source,
		&daysJSON,
	)
	if err != nil {
		return nil, err
	}

	roadmap.SourceSyllabusName = source.String
	if roadmap.Days, err = decodeDays(daysJSON); err != nil {
		return nil, err
	}
	roadmap.CreatedAt = roadmap.CreatedAt.UTC()

	return &roadmap, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
