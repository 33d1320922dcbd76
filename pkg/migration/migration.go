// Package migration runs and tracks GORM schema migrations.
//
// Usage (in database/migrations):
//
//	func init() {
//	    migration.Register("20260101000000_create_users_table", &CreateUsersTable{})
//	}
//
// Run from CLI:
//
//	grocerylist migrate             // run all pending
//	grocerylist migrate:rollback    // rollback last batch
//	grocerylist migrate:status
package migration

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/grocerylist/pkg/logger"
)

// Migration is the interface every migration must implement.
type Migration interface {
	Up(db *gorm.DB) error
	Down(db *gorm.DB) error
}

// Named pairs a migration with its timestamp-prefixed name.
type Named struct {
	Name      string
	Migration Migration
}

type migrationRecord struct {
	ID    uint      `gorm:"primaryKey;autoIncrement"`
	Name  string    `gorm:"uniqueIndex;size:255;not null"`
	Batch int       `gorm:"not null"`
	RunAt time.Time `gorm:"autoCreateTime"`
}

func (migrationRecord) TableName() string { return "grocerylist_migrations" }

var (
	mu       sync.Mutex
	registry []Named
)

// Register adds a migration to the global registry. Call it from init().
func Register(name string, m Migration) {
	mu.Lock()
	defer mu.Unlock()
	registry = append(registry, Named{Name: name, Migration: m})
}

// Registered returns the registry sorted by name.
func Registered() []Named {
	mu.Lock()
	out := append([]Named(nil), registry...)
	mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Status is one line of migrate:status.
type Status struct {
	Name  string
	Ran   bool
	Batch int
}

// Runner executes and tracks migrations.
type Runner struct {
	db         *gorm.DB
	out        io.Writer
	migrations []Named
}

// New creates a Runner over the registered migrations. Progress lines go
// to out.
func New(db *gorm.DB, out io.Writer) *Runner {
	return &Runner{db: db, out: out, migrations: Registered()}
}

// WithMigrations replaces the migration set, sorted by name.
func (r *Runner) WithMigrations(ms ...Named) *Runner {
	sorted := append([]Named(nil), ms...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return &Runner{db: r.db, out: r.out, migrations: sorted}
}

func (r *Runner) ensureTable(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&migrationRecord{}); err != nil {
		return fmt.Errorf("migration: ensure table: %w", err)
	}
	return nil
}

func (r *Runner) ran(ctx context.Context) (map[string]migrationRecord, error) {
	var recs []migrationRecord
	if err := r.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("migration: list ran: %w", err)
	}
	out := make(map[string]migrationRecord, len(recs))
	for _, rec := range recs {
		out[rec.Name] = rec
	}
	return out, nil
}

func (r *Runner) lastBatch(ctx context.Context) (int, error) {
	var n int
	row := r.db.WithContext(ctx).Model(&migrationRecord{}).Select("COALESCE(MAX(batch), 0)").Row()
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("migration: last batch: %w", err)
	}
	return n, nil
}

// Run executes all pending migrations as one batch and returns how many ran.
func (r *Runner) Run(ctx context.Context) (int, error) {
	if err := r.ensureTable(ctx); err != nil {
		return 0, err
	}
	done, err := r.ran(ctx)
	if err != nil {
		return 0, err
	}

	var pending []Named
	for _, m := range r.migrations {
		if _, ok := done[m.Name]; !ok {
			pending = append(pending, m)
		}
	}
	if len(pending) == 0 {
		fmt.Fprintln(r.out, "Nothing to migrate.")
		return 0, nil
	}

	last, err := r.lastBatch(ctx)
	if err != nil {
		return 0, err
	}
	batch := last + 1

	db := r.db.WithContext(ctx)
	for i, m := range pending {
		fmt.Fprintf(r.out, "  Migrating: %s\n", m.Name)
		if err := m.Migration.Up(db); err != nil {
			return i, fmt.Errorf("migration: %s up: %w", m.Name, err)
		}
		if err := db.Create(&migrationRecord{Name: m.Name, Batch: batch}).Error; err != nil {
			return i, fmt.Errorf("migration: record %s: %w", m.Name, err)
		}
		fmt.Fprintf(r.out, "  Migrated:  %s\n", m.Name)
	}

	logger.Info("migration: done", "ran", len(pending), "batch", batch)
	return len(pending), nil
}

// Rollback reverses the most recent batch and returns how many were undone.
func (r *Runner) Rollback(ctx context.Context) (int, error) {
	if err := r.ensureTable(ctx); err != nil {
		return 0, err
	}
	batch, err := r.lastBatch(ctx)
	if err != nil {
		return 0, err
	}
	if batch == 0 {
		fmt.Fprintln(r.out, "Nothing to roll back.")
		return 0, nil
	}

	db := r.db.WithContext(ctx)
	var recs []migrationRecord
	if err := db.Where("batch = ?", batch).Order("id desc").Find(&recs).Error; err != nil {
		return 0, fmt.Errorf("migration: list batch %d: %w", batch, err)
	}

	known := make(map[string]Migration, len(r.migrations))
	for _, m := range r.migrations {
		known[m.Name] = m.Migration
	}

	for i, rec := range recs {
		m, ok := known[rec.Name]
		if !ok {
			return i, fmt.Errorf("migration: cannot roll back %s: not registered", rec.Name)
		}
		fmt.Fprintf(r.out, "  Rolling back: %s\n", rec.Name)
		if err := m.Down(db); err != nil {
			return i, fmt.Errorf("migration: %s down: %w", rec.Name, err)
		}
		if err := db.Delete(&rec).Error; err != nil {
			return i, fmt.Errorf("migration: forget %s: %w", rec.Name, err)
		}
		fmt.Fprintf(r.out, "  Rolled back:  %s\n", rec.Name)
	}

	logger.Info("migration: rolled back", "count", len(recs), "batch", batch)
	return len(recs), nil
}

// Status reports every known migration and whether it ran.
func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	done, err := r.ran(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Status, 0, len(r.migrations))
	for _, m := range r.migrations {
		rec, ok := done[m.Name]
		out = append(out, Status{Name: m.Name, Ran: ok, Batch: rec.Batch})
	}
	return out, nil
}
