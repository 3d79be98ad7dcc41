// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog records export runs in a SQLite database: one row per run,
// per exported program and per fetched longread page. It is a ledger only;
// nothing reads it back to skip work.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/equeo-export/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "catalog.db"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one invocation of the export pipeline.
type Run struct {
	ID         string    `json:"id" yaml:"id"`
	ModuleID   string    `json:"module_id" yaml:"module_id"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero" yaml:"finished_at,omitempty"`
	Status     string    `json:"status" yaml:"status"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
	Programs   int       `json:"programs" yaml:"programs"`
}

// Program is one learning program written during a run.
type Program struct {
	ProgramID int64    `json:"program_id" yaml:"program_id"`
	Name      string   `json:"name" yaml:"name"`
	Files     []string `json:"files" yaml:"files"`
	Materials int      `json:"materials" yaml:"materials"`
	Longreads int      `json:"longreads" yaml:"longreads"`
	Missing   int      `json:"missing" yaml:"missing"`
}

// Page is one longread page fetched during a run.
type Page struct {
	ProgramID  int64  `json:"program_id" yaml:"program_id"`
	LongreadID int64  `json:"longread_id" yaml:"longread_id"`
	UUID       string `json:"uuid" yaml:"uuid"`
	Title      string `json:"title,omitempty" yaml:"title,omitempty"`
	BodyBytes  int    `json:"body_bytes" yaml:"body_bytes"`
}

// Catalog manages the run database.
type Catalog struct {
	db  *sql.DB
	dir string
	now func() time.Time
}

// DefaultPath returns outputDir/index/catalog.db.
func DefaultPath(outputDir string) string {
	return filepath.Join(outputDir, indexDir, dbFile)
}

// Open opens or creates the database at cfg.Path, falling back to
// DefaultPath(outputDir). It creates the schema if it does not exist.
func Open(cfg types.CatalogConfig, outputDir string) (*Catalog, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultPath(outputDir)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	c := &Catalog{db: db, dir: dir, now: time.Now}
	if err := c.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return c, nil
}

// Close releases the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			module_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			status TEXT NOT NULL,
			error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS programs (
			run_id TEXT NOT NULL REFERENCES runs(id),
			program_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			md_path TEXT,
			html_path TEXT,
			pdf_path TEXT,
			materials INTEGER,
			longreads INTEGER,
			missing INTEGER,
			PRIMARY KEY (run_id, program_id)
		)`,
		`CREATE TABLE IF NOT EXISTS longread_pages (
			run_id TEXT NOT NULL REFERENCES runs(id),
			program_id INTEGER NOT NULL,
			longread_id INTEGER NOT NULL,
			uuid TEXT NOT NULL,
			title TEXT,
			body_bytes INTEGER,
			PRIMARY KEY (run_id, program_id, longread_id, uuid)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, stmt := range statements {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// BeginRun inserts a running run for moduleID and returns its id.
func (c *Catalog) BeginRun(ctx context.Context, moduleID string) (string, error) {
	id := uuid.NewString()
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO runs (id, module_id, started_at, status) VALUES (?, ?, ?, ?)`,
		id, moduleID, formatTime(c.now()), StatusRunning)
	if err != nil {
		return "", fmt.Errorf("recording run start: %w", err)
	}
	return id, nil
}

// FinishRun marks the run succeeded, or failed with runErr's message.
func (c *Catalog) FinishRun(ctx context.Context, runID string, runErr error) error {
	status, msg := StatusSucceeded, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	res, err := c.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, error = ? WHERE id = ?`,
		formatTime(c.now()), status, msg, runID)
	if err != nil {
		return fmt.Errorf("recording run end: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("recording run end: run %s not found", runID)
	}
	return nil
}

// RecordProgram stores an exported program. Files are keyed by extension.
func (c *Catalog) RecordProgram(ctx context.Context, runID string, p Program) error {
	var md, htm, pdf string
	for _, f := range p.Files {
		switch filepath.Ext(f) {
		case types.FormatMarkdown.Extension():
			md = f
		case types.FormatHTML.Extension():
			htm = f
		case types.FormatPDF.Extension():
			pdf = f
		}
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO programs
		 (run_id, program_id, name, md_path, html_path, pdf_path, materials, longreads, missing)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, p.ProgramID, p.Name, md, htm, pdf, p.Materials, p.Longreads, p.Missing)
	if err != nil {
		return fmt.Errorf("recording program %d: %w", p.ProgramID, err)
	}
	return nil
}

// RecordPage stores a fetched longread page.
func (c *Catalog) RecordPage(ctx context.Context, runID string, p Page) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO longread_pages
		 (run_id, program_id, longread_id, uuid, title, body_bytes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, p.ProgramID, p.LongreadID, p.UUID, p.Title, p.BodyBytes)
	if err != nil {
		return fmt.Errorf("recording page %d/%s: %w", p.LongreadID, p.UUID, err)
	}
	return nil
}

// Runs returns the most recent runs first. limit <= 0 returns all.
func (c *Catalog) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT r.id, r.module_id, r.started_at, COALESCE(r.finished_at, ''), r.status,
		COALESCE(r.error, ''), (SELECT count(*) FROM programs p WHERE p.run_id = r.id)
		FROM runs r ORDER BY r.started_at DESC, r.rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.ModuleID, &started, &finished, &r.Status, &r.Error, &r.Programs); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Programs returns the programs recorded for runID in program id order.
func (c *Catalog) Programs(ctx context.Context, runID string) ([]Program, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT program_id, name, COALESCE(md_path, ''), COALESCE(html_path, ''), COALESCE(pdf_path, ''),
		 materials, longreads, missing
		 FROM programs WHERE run_id = ? ORDER BY program_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying programs: %w", err)
	}
	defer rows.Close()

	var programs []Program
	for rows.Next() {
		var p Program
		var md, htm, pdf string
		if err := rows.Scan(&p.ProgramID, &p.Name, &md, &htm, &pdf, &p.Materials, &p.Longreads, &p.Missing); err != nil {
			return nil, fmt.Errorf("scanning program: %w", err)
		}
		for _, f := range []string{md, htm, pdf} {
			if f != "" {
				p.Files = append(p.Files, f)
			}
		}
		programs = append(programs, p)
	}
	return programs, rows.Err()
}

// Pages returns the longread pages recorded for runID.
func (c *Catalog) Pages(ctx context.Context, runID string) ([]Page, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT program_id, longread_id, uuid, COALESCE(title, ''), body_bytes
		 FROM longread_pages WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying pages: %w", err)
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.ProgramID, &p.LongreadID, &p.UUID, &p.Title, &p.BodyBytes); err != nil {
			return nil, fmt.Errorf("scanning page: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// timeLayout has fixed-width fractions so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
