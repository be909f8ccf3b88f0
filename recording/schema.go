package recording

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS episodes (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		ended_at INTEGER NOT NULL,
		target TEXT NOT NULL DEFAULT '',
		faults INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_episodes_started ON episodes(started_at)`,
	`CREATE TABLE IF NOT EXISTS points (
		episode_id TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
		sequence INTEGER NOT NULL,
		contact INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		ord INTEGER NOT NULL DEFAULT 0,
		x REAL NOT NULL,
		y REAL NOT NULL,
		at INTEGER NOT NULL,
		is_start INTEGER NOT NULL DEFAULT 0,
		is_end INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (episode_id, sequence, seq)
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		episode_id TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
		ord INTEGER NOT NULL,
		registration INTEGER NOT NULL,
		identifier TEXT NOT NULL,
		first_match INTEGER NOT NULL DEFAULT 0,
		terminal INTEGER NOT NULL DEFAULT 0,
		at INTEGER NOT NULL,
		PRIMARY KEY (episode_id, ord)
	)`,
}

func applyPragmas(ctx context.Context, db *sql.DB, readOnly bool) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", int(defaultBusyTimeout.Milliseconds())),
		"PRAGMA foreign_keys = ON",
	}
	if !readOnly {
		pragmas = append(pragmas,
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
		)
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("recording: apply pragma %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("recording: begin schema transaction: %w", err)
	}
	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording: apply schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("recording: commit schema: %w", err)
	}
	return nil
}
