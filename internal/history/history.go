// Package history implements a SQLite-backed run ledger: one row per
// snapshot-builder run, grounded in the teacher's internal/db package (same
// embed.FS migrations-directory pattern, same sqlite3:// DSN handling).
// This serves spec.md §1's "comparison across firmware versions" use case
// without computing a diff itself (non-goal): it only records enough
// metadata for a later, out-of-scope tool to find the two most recent runs
// for a given root and diff their MS artifacts.
package history

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// Register migrate's sqlite3 driver.
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	// Register the database/sql sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Run is one row of the run ledger.
type Run struct {
	ID           int64
	RootPath     string
	TargetUnit   string
	DepthLimit   int
	GeneratedAt  time.Time
	ToolVersion  string
	OutputPrefix string
	UnitCount    int
	EdgeCount    int
	WarningCount int
}

// Store wraps a sqlite3 connection holding the run ledger.
type Store struct {
	db *sql.DB
}

// Open connects to (creating if absent) the sqlite3 database at dbPath and
// applies any pending migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history database %q: %w", dbPath, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connecting to history database %q: %w", dbPath, err)
	}
	if err := migrateUp(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history database %q: %w", dbPath, err)
	}
	return &Store{db: db}, nil
}

func migrateUp(dbPath string) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, connectionString(dbPath))
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func connectionString(dbPath string) string {
	return "sqlite3://" + strings.TrimPrefix(dbPath, "sqlite3://")
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun inserts one row describing a completed snapshot-builder run and
// returns its row ID.
func (s *Store) RecordRun(r Run) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO runs (root_path, target_unit, depth_limit, generated_at, tool_version, output_prefix, unit_count, edge_count, warning_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RootPath, r.TargetUnit, r.DepthLimit, r.GeneratedAt, r.ToolVersion, r.OutputPrefix, r.UnitCount, r.EdgeCount, r.WarningCount,
	)
	if err != nil {
		return 0, fmt.Errorf("recording run: %w", err)
	}
	return result.LastInsertId()
}

// LatestForRoot returns up to limit most recent runs for rootPath, newest
// first — the query a future diff tool would use to find the two MS
// artifacts to compare.
func (s *Store) LatestForRoot(rootPath string, limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT id, root_path, target_unit, depth_limit, generated_at, tool_version, output_prefix, unit_count, edge_count, warning_count
		 FROM runs WHERE root_path = ? ORDER BY generated_at DESC LIMIT ?`,
		rootPath, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying run history: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.RootPath, &r.TargetUnit, &r.DepthLimit, &r.GeneratedAt, &r.ToolVersion, &r.OutputPrefix, &r.UnitCount, &r.EdgeCount, &r.WarningCount); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
