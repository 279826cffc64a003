package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/terra-clan/daywise/internal/models"
)

// SQLiteRepository implements Repository on a single SQLite file.
// The pool is limited to one connection so transactions serialize.
type SQLiteRepository struct {
	db   *sql.DB
	path string
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS roadmaps (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	total_days INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	source_syllabus_name TEXT,
	days TEXT NOT NULL
);
`

// NewSQLiteRepository opens (creating if needed) the database at path.
// ":memory:" gives a private in-memory database.
func NewSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteRepository{db: db, path: path}, nil
}

// Ping checks database connectivity
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Save inserts a roadmap or replaces an existing one in place
func (r *SQLiteRepository) Save(ctx context.Context, roadmap *models.Roadmap) error {
	if err := validateForSave(roadmap); err != nil {
		return err
	}

	daysJSON, err := encodeDays(roadmap.Days)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO roadmaps (id, name, total_days, created_at, source_syllabus_name, days)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			total_days = excluded.total_days,
			created_at = excluded.created_at,
			source_syllabus_name = excluded.source_syllabus_name,
			days = excluded.days
	`,
		roadmap.ID,
		roadmap.Name,
		roadmap.TotalDays,
		unixNano(roadmap.CreatedAt),
		nullString(roadmap.SourceSyllabusName),
		string(daysJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save roadmap: %w", err)
	}
	return nil
}

const sqliteSelect = `SELECT id, name, total_days, created_at, source_syllabus_name, days FROM roadmaps`

// Load retrieves a roadmap by ID
func (r *SQLiteRepository) Load(ctx context.Context, id string) (*models.Roadmap, error) {
	roadmap, err := scanSQLiteRoadmap(r.db.QueryRowContext(ctx, sqliteSelect+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get roadmap: %w", err)
	}
	return roadmap, nil
}

// LoadAll returns all roadmaps in insertion order
func (r *SQLiteRepository) LoadAll(ctx context.Context) ([]*models.Roadmap, error) {
	rows, err := r.db.QueryContext(ctx, sqliteSelect+` ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roadmaps: %w", err)
	}
	defer rows.Close()

	var roadmaps []*models.Roadmap
	for rows.Next() {
		roadmap, err := scanSQLiteRoadmap(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan roadmap: %w", err)
		}
		roadmaps = append(roadmaps, roadmap)
	}
	return roadmaps, rows.Err()
}

// Delete removes a roadmap
func (r *SQLiteRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM roadmaps WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete roadmap: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete roadmap: %w", err)
	}
	return n > 0, nil
}

// Update runs fn inside a transaction
func (r *SQLiteRepository) Update(ctx context.Context, id string, fn UpdateFunc) (*models.Roadmap, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := scanSQLiteRoadmap(tx.QueryRowContext(ctx, sqliteSelect+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get roadmap: %w", err)
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

	_, err = tx.ExecContext(ctx, `
		UPDATE roadmaps
		SET name = ?, total_days = ?, created_at = ?, source_syllabus_name = ?, days = ?
		WHERE id = ?
	`,
		next.Name,
		next.TotalDays,
		unixNano(next.CreatedAt),
		nullString(next.SourceSyllabusName),
		string(daysJSON),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update roadmap: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit roadmap update: %w", err)
	}

	next = next.Clone()
	next.ID = id
	return next, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRoadmap(row rowScanner) (*models.Roadmap, error) {
	var roadmap models.Roadmap
	var createdAt int64
	var source sql.NullString
	var daysJSON string

	err := row.Scan(
		&roadmap.ID,
		&roadmap.Name,
		&roadmap.TotalDays,
		&createdAt,
		&source,
		&daysJSON,
	)
	if err != nil {
		return nil, err
	}

	roadmap.CreatedAt = fromUnixNano(createdAt)
	roadmap.SourceSyllabusName = source.String
	if roadmap.Days, err = decodeDays([]byte(daysJSON)); err != nil {
		return nil, err
	}
	return &roadmap, nil
}
