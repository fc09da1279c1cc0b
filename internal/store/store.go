// Package store persists saved weekly plans in SQLite. The store keeps
// at most MaxSaved plans; saving past the cap evicts the oldest entries
// in the same transaction.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite" // Pure Go sqlite driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"dineahead/internal/plan"
	"dineahead/internal/restaurant"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MaxSaved caps how many plans the store retains.
const MaxSaved = 10

// ErrNotFound is returned when the requested plan id does not exist.
var ErrNotFound = errors.New("saved plan not found")

// SavedPlan is one persisted plan with the filters it was built under.
type SavedPlan struct {
	ID        int64              `json:"id"`
	Name      string             `json:"name"`
	Plan      plan.WeeklyPlan    `json:"plan"`
	Filters   restaurant.Filters `json:"filters"`
	TotalCost int                `json:"total_cost"`
	CreatedAt time.Time          `json:"created_at"`
}

// Store wraps the database connection.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// New opens the SQLite database at dbPath, creating the parent directory
// and applying migrations first.
func New(dbPath string, log *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func runMigrations(dbPath string) error {
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create iofs driver: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, fmt.Sprintf("sqlite://%s", dbPath))
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Save persists a plan snapshot and evicts the oldest rows past MaxSaved.
// It returns the stored record including its assigned id.
func (s *Store) Save(ctx context.Context, name string, p plan.WeeklyPlan, filters restaurant.Filters) (SavedPlan, error) {
	planJSON, err := json.Marshal(p)
	if err != nil {
		return SavedPlan{}, fmt.Errorf("failed to marshal plan: %w", err)
	}
	filtersJSON, err := json.Marshal(filters)
	if err != nil {
		return SavedPlan{}, fmt.Errorf("failed to marshal filters: %w", err)
	}

	total := plan.TotalCost(p)
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SavedPlan{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO saved_plans (name, plan_json, filters_json, total_cost, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		name, string(planJSON), string(filtersJSON), total, now)
	if err != nil {
		return SavedPlan{}, fmt.Errorf("failed to insert plan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return SavedPlan{}, fmt.Errorf("failed to get plan id: %w", err)
	}

	// Keep only the MaxSaved most recent rows.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM saved_plans WHERE id IN (
			SELECT id FROM saved_plans
			ORDER BY created_at DESC, id DESC
			LIMIT -1 OFFSET ?
		)`, MaxSaved); err != nil {
		return SavedPlan{}, fmt.Errorf("failed to evict old plans: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return SavedPlan{}, fmt.Errorf("failed to commit save: %w", err)
	}

	return SavedPlan{
		ID:        id,
		Name:      name,
		Plan:      p,
		Filters:   filters,
		TotalCost: total,
		CreatedAt: now,
	}, nil
}

// List returns the saved plans, most recent first. Rows whose JSON no
// longer parses are skipped rather than failing the whole listing.
func (s *Store) List(ctx context.Context) ([]SavedPlan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, plan_json, filters_json, total_cost, created_at
		 FROM saved_plans
		 ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []SavedPlan
	for rows.Next() {
		sp, err := scanPlan(rows)
		if err != nil {
			s.log.Warn("skipping unreadable saved plan", "error", err)
			continue
		}
		plans = append(plans, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read plans: %w", err)
	}
	return plans, nil
}

// Load fetches one saved plan by id.
func (s *Store) Load(ctx context.Context, id int64) (SavedPlan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, plan_json, filters_json, total_cost, created_at
		 FROM saved_plans WHERE id = ?`, id)

	sp, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SavedPlan{}, ErrNotFound
	}
	if err != nil {
		return SavedPlan{}, fmt.Errorf("failed to load plan %d: %w", id, err)
	}
	return sp, nil
}

// Delete removes one saved plan by id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete plan %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(row scanner) (SavedPlan, error) {
	var (
		sp          SavedPlan
		planJSON    string
		filtersJSON string
	)
	if err := row.Scan(&sp.ID, &sp.Name, &planJSON, &filtersJSON, &sp.TotalCost, &sp.CreatedAt); err != nil {
		return SavedPlan{}, err
	}
	if err := json.Unmarshal([]byte(planJSON), &sp.Plan); err != nil {
		return SavedPlan{}, fmt.Errorf("corrupt plan json for id %d: %w", sp.ID, err)
	}
	if err := json.Unmarshal([]byte(filtersJSON), &sp.Filters); err != nil {
		return SavedPlan{}, fmt.Errorf("corrupt filters json for id %d: %w", sp.ID, err)
	}
	return sp, nil
}
