// Package store persists trigger jobs.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/homecoming/core/model"
	"github.com/kilianp07/homecoming/core/scheduler"
)

// Config selects the job store backend.
type Config struct {
	// Driver is "sqlite" or "memory".
	Driver string `json:"driver"`
	Path   string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Driver == "" {
		c.Driver = "sqlite"
	}
	if c.Path == "" {
		c.Path = "homecoming.db"
	}
}

// Validate checks the driver name.
func (c Config) Validate() error {
	switch c.Driver {
	case "", "sqlite", "memory":
		return nil
	default:
		return fmt.Errorf("unknown store driver %q", c.Driver)
	}
}

// Open returns the store described by cfg.
func Open(cfg Config) (scheduler.Store, error) {
	cfg.SetDefaults()
	if cfg.Driver == "memory" {
		return scheduler.NewMemoryStore(), nil
	}
	return NewSQLiteStore(cfg.Path)
}

// SQLiteStore persists trigger jobs in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	schema := `CREATE TABLE IF NOT EXISTS trigger_jobs (
        id TEXT PRIMARY KEY,
        user_id TEXT NOT NULL,
        phase TEXT NOT NULL,
        fire_at INTEGER NOT NULL,
        state TEXT NOT NULL,
        created_at INTEGER NOT NULL
    );
    CREATE UNIQUE INDEX IF NOT EXISTS trigger_jobs_pending_key
        ON trigger_jobs(user_id, phase, fire_at) WHERE state = 'pending';
    CREATE INDEX IF NOT EXISTS trigger_jobs_state ON trigger_jobs(state, fire_at);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Save inserts job or replaces the stored copy with the same ID.
func (s *SQLiteStore) Save(ctx context.Context, j model.TriggerJob) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO trigger_jobs (id, user_id, phase, fire_at, state, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            user_id = excluded.user_id,
            phase = excluded.phase,
            fire_at = excluded.fire_at,
            state = excluded.state`,
		j.ID, j.UserID, string(j.Phase), j.FireAt.UnixMilli(), string(j.State), j.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save job %s: %w", j.Key(), err)
	}
	return nil
}

// SetState updates the state of a stored job.
func (s *SQLiteStore) SetState(ctx context.Context, id string, state model.JobState) error {
	res, err := s.db.ExecContext(ctx, `UPDATE trigger_jobs SET state = ? WHERE id = ?`, string(state), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return scheduler.ErrJobNotFound
	}
	return nil
}

// List returns jobs matching f ordered by firing time.
func (s *SQLiteStore) List(ctx context.Context, f scheduler.Filter) ([]model.TriggerJob, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.State != "" {
		where = append(where, "state = ?")
		args = append(args, string(f.State))
	}
	q := `SELECT id, user_id, phase, fire_at, state, created_at FROM trigger_jobs`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY fire_at, id"
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	res := []model.TriggerJob{}
	for rows.Next() {
		var (
			j                 model.TriggerJob
			phase, state      string
			fireAt, createdAt int64
		)
		if err := rows.Scan(&j.ID, &j.UserID, &phase, &fireAt, &state, &createdAt); err != nil {
			return nil, err
		}
		j.Phase = model.Phase(phase)
		j.State = model.JobState(state)
		j.FireAt = time.UnixMilli(fireAt)
		j.CreatedAt = time.UnixMilli(createdAt)
		res = append(res, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
