// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export writes completed discovery runs to disk as SQLite,
// YAML, or JSON. The pipeline never reads these files back; they exist
// for downstream tooling and inspection.
package export

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-graph/pkg/types"
)

const dbFile = "runs.db"

// WriteYAML writes one mapping response to outputDir/<run-id>.yaml.
func WriteYAML(outputDir string, resp *types.MappingResponse) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(outputDir, runFileName(resp)+".yaml")
	data, err := yaml.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

// WriteJSON writes one mapping response to outputDir/<run-id>.json.
func WriteJSON(outputDir string, resp *types.MappingResponse) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(outputDir, runFileName(resp)+".json")
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

func runFileName(resp *types.MappingResponse) string {
	if resp.MappingStats.RunID != "" {
		return "run-" + resp.MappingStats.RunID
	}
	return "run-" + time.Now().UTC().Format("20060102-150405")
}

// WriteSQLite appends one mapping response to outputDir/runs.db,
// creating the schema on first use. Each run is insert-only; the
// database accumulates history across invocations.
func WriteSQLite(outputDir string, resp *types.MappingResponse) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path := filepath.Join(outputDir, dbFile)
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return "", fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := createSchema(db); err != nil {
		return "", fmt.Errorf("creating schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	runID := resp.MappingStats.RunID
	_, err = tx.Exec(
		`INSERT INTO runs (id, topic, total_found, urls_visited, shortfall, analysis_unavailable, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, resp.MappingStats.Topic, resp.TotalFound, resp.MappingStats.URLsVisited,
		resp.MappingStats.Shortfall, resp.AnalysisUnavailable,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	for _, p := range resp.Papers {
		_, err = tx.Exec(
			`INSERT INTO papers (run_id, paper_id, url, title, authors, venue, year, citations, credibility, relevance, source)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, p.ID, p.URL, p.Title, strings.Join(p.Authors, "; "),
			p.Venue, p.Year, p.Citations, p.Credibility, p.Relevance, p.Source,
		)
		if err != nil {
			return "", fmt.Errorf("inserting paper %s: %w", p.ID, err)
		}
	}

	for _, e := range resp.GraphData.Edges {
		_, err = tx.Exec(
			`INSERT INTO edges (run_id, source, target, relationship, weight, description)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			runID, e.Source, e.Target, e.Relationship, e.Weight, e.Description,
		)
		if err != nil {
			return "", fmt.Errorf("inserting edge %s->%s: %w", e.Source, e.Target, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return path, nil
}

func createSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			topic TEXT,
			total_found INTEGER,
			urls_visited INTEGER,
			shortfall INTEGER,
			analysis_unavailable INTEGER,
			created_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS papers (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			paper_id TEXT NOT NULL,
			url TEXT,
			title TEXT,
			authors TEXT,
			venue TEXT,
			year INTEGER,
			citations INTEGER,
			credibility REAL,
			relevance REAL,
			source TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS edges (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			source TEXT NOT NULL,
			target TEXT NOT NULL,
			relationship TEXT,
			weight REAL,
			description TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_run_id ON papers(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_run_id ON edges(run_id)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}
