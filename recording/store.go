// Package recording persists finished gesture episodes in SQLite and turns
// them back into replay scripts.
package recording

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/phanxgames/gesture"
)

const defaultBusyTimeout = 5 * time.Second

// Options describes how to open a Store.
type Options struct {
	Path     string // database file; defaults to the configured recording path
	ReadOnly bool
	Logger   *zerolog.Logger
}

// Store reads and writes recorded episodes.
type Store struct {
	db   *sql.DB
	path string
	log  zerolog.Logger
}

// NotFoundError reports a missing episode.
type NotFoundError struct {
	ID uuid.UUID
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("episode %s not found", e.ID)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

// Summary describes a stored episode.
type Summary struct {
	ID       uuid.UUID
	Started  time.Time
	Ended    time.Time
	Target   string
	Contacts int
	Matches  int
	Faults   int
}

// Duration returns how long the episode lasted.
func (s Summary) Duration() time.Duration { return s.Ended.Sub(s.Started) }

// Contact is the recorded trajectory of one contact. A contact id lifted and
// pressed again within an episode appears once per press.
type Contact struct {
	ID     int
	Points []gesture.TouchPoint
}

// Recorded is a fully loaded episode.
type Recorded struct {
	Summary
	Contacts []Contact
	Matches  []gesture.MatchRecord
}

// Open opens (creating if needed) the database at opts.Path.
func Open(ctx context.Context, opts Options) (*Store, error) {
	path := opts.Path
	if path == "" {
		path = gesture.DefaultConfig().Recording.Path
	}
	if !opts.ReadOnly {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("recording: create directory: %w", err)
		}
	}

	dsn := path
	if opts.ReadOnly {
		dsn = fmt.Sprintf("file:%s?mode=ro", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("recording: open sqlite store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := applyPragmas(ctx, db, opts.ReadOnly); err != nil {
		db.Close()
		return nil, err
	}
	if !opts.ReadOnly {
		if err := applySchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = gesture.ComponentLogger(*opts.Logger, "recording")
	}
	return &Store{db: db, path: path, log: log}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Hook returns an OnEpisodeEnd hook saving every episode. Failures are
// logged.
func (s *Store) Hook() func(gesture.Episode) {
	return func(ep gesture.Episode) {
		ctx, cancel := context.WithTimeout(context.Background(), defaultBusyTimeout)
		defer cancel()
		if err := s.Save(ctx, ep); err != nil {
			s.log.Error().Err(err).Str("episode", ep.ID.String()).Msg("save episode")
			return
		}
		s.log.Debug().Str("episode", ep.ID.String()).Msg("episode recorded")
	}
}

func targetName(target any) string {
	if target == nil {
		return ""
	}
	if s, ok := target.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(target)
}

// Save stores ep. Saving the same episode twice fails.
func (s *Store) Save(ctx context.Context, ep gesture.Episode) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("recording: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO episodes (id, started_at, ended_at, target, faults) VALUES (?, ?, ?, ?, ?)`,
		ep.ID.String(), ep.Started.UnixNano(), ep.Ended.UnixNano(), targetName(ep.Target), len(ep.Faults),
	); err != nil {
		return fmt.Errorf("recording: insert episode %s: %w", ep.ID, err)
	}

	pointStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO points (episode_id, sequence, contact, seq, ord, x, y, at, is_start, is_end) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("recording: prepare points: %w", err)
	}
	defer pointStmt.Close()

	for n, seq := range ep.Sequences {
		for i, p := range seq.Points() {
			if _, err := pointStmt.ExecContext(ctx,
				ep.ID.String(), n, seq.ID(), i, p.Order, p.X, p.Y, p.Time.UnixNano(), p.IsStart, p.IsEnd,
			); err != nil {
				return fmt.Errorf("recording: insert point: %w", err)
			}
		}
	}

	for i, m := range ep.Matches {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO matches (episode_id, ord, registration, identifier, first_match, terminal, at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ep.ID.String(), i, int64(m.Registration), m.Identifier, m.FirstMatch, m.Terminal, m.Time.UnixNano(),
		); err != nil {
			return fmt.Errorf("recording: insert match: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("recording: commit episode %s: %w", ep.ID, err)
	}
	return nil
}

const summaryQuery = `
SELECT e.id, e.started_at, e.ended_at, e.target, e.faults,
	(SELECT COUNT(DISTINCT sequence) FROM points p WHERE p.episode_id = e.id),
	(SELECT COUNT(*) FROM matches m WHERE m.episode_id = e.id)
FROM episodes e`

func scanSummary(row interface{ Scan(...any) error }) (Summary, error) {
	var (
		id             string
		started, ended int64
		sum            Summary
	)
	if err := row.Scan(&id, &started, &ended, &sum.Target, &sum.Faults, &sum.Contacts, &sum.Matches); err != nil {
		return Summary{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Summary{}, fmt.Errorf("recording: bad episode id %q: %w", id, err)
	}
	sum.ID = parsed
	sum.Started = time.Unix(0, started).UTC()
	sum.Ended = time.Unix(0, ended).UTC()
	return sum, nil
}

// List returns the most recent episodes first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	query := summaryQuery + ` ORDER BY e.started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("recording: list episodes: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("recording: scan episode: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Load reads one episode with its points and matches.
func (s *Store) Load(ctx context.Context, id uuid.UUID) (Recorded, error) {
	sum, err := scanSummary(s.db.QueryRowContext(ctx, summaryQuery+` WHERE e.id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return Recorded{}, NotFoundError{ID: id}
	}
	if err != nil {
		return Recorded{}, fmt.Errorf("recording: load episode %s: %w", id, err)
	}
	rec := Recorded{Summary: sum}

	rows, err := s.db.QueryContext(ctx,
		`SELECT sequence, contact, ord, x, y, at, is_start, is_end FROM points WHERE episode_id = ? ORDER BY sequence, seq`, id.String())
	if err != nil {
		return Recorded{}, fmt.Errorf("recording: load points: %w", err)
	}
	defer rows.Close()

	index := make(map[int]int)
	for rows.Next() {
		var (
			sequence, contact int
			at                int64
			p                 gesture.TouchPoint
		)
		if err := rows.Scan(&sequence, &contact, &p.Order, &p.X, &p.Y, &at, &p.IsStart, &p.IsEnd); err != nil {
			return Recorded{}, fmt.Errorf("recording: scan point: %w", err)
		}
		p.Time = time.Unix(0, at).UTC()
		i, ok := index[sequence]
		if !ok {
			i = len(rec.Contacts)
			index[sequence] = i
			rec.Contacts = append(rec.Contacts, Contact{ID: contact})
		}
		rec.Contacts[i].Points = append(rec.Contacts[i].Points, p)
	}
	if err := rows.Err(); err != nil {
		return Recorded{}, fmt.Errorf("recording: load points: %w", err)
	}

	mrows, err := s.db.QueryContext(ctx,
		`SELECT registration, identifier, first_match, terminal, at FROM matches WHERE episode_id = ? ORDER BY ord`, id.String())
	if err != nil {
		return Recorded{}, fmt.Errorf("recording: load matches: %w", err)
	}
	defer mrows.Close()
	for mrows.Next() {
		var (
			reg int64
			at  int64
			m   gesture.MatchRecord
		)
		if err := mrows.Scan(&reg, &m.Identifier, &m.FirstMatch, &m.Terminal, &at); err != nil {
			return Recorded{}, fmt.Errorf("recording: scan match: %w", err)
		}
		m.Registration = gesture.RegistrationID(reg)
		m.Time = time.Unix(0, at).UTC()
		rec.Matches = append(rec.Matches, m)
	}
	return rec, mrows.Err()
}

// Delete removes an episode.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM episodes WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("recording: delete episode %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return NotFoundError{ID: id}
	}
	return nil
}

type timedPoint struct {
	contact int
	point   gesture.TouchPoint
}

// Script converts the recording into a replay script. Contacts keep their
// ids, points are replayed in time order with ties broken by the order they
// were recorded in, and the gaps between samples become wait steps rounded
// down to the millisecond.
func (r Recorded) Script() gesture.Script {
	var all []timedPoint
	for _, c := range r.Contacts {
		for _, p := range c.Points {
			all = append(all, timedPoint{contact: c.ID, point: p})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i].point, all[j].point
		if !a.Time.Equal(b.Time) {
			return a.Time.Before(b.Time)
		}
		return a.Order < b.Order
	})

	var script gesture.Script
	var last time.Time
	for i, tp := range all {
		if i > 0 {
			if ms := int(tp.point.Time.Sub(last) / time.Millisecond); ms > 0 {
				script.Steps = append(script.Steps, gesture.ScriptStep{Action: "wait", MS: ms})
				last = last.Add(time.Duration(ms) * time.Millisecond)
			}
		} else {
			last = tp.point.Time
		}

		step := gesture.ScriptStep{ID: tp.contact, X: tp.point.X, Y: tp.point.Y}
		switch {
		case tp.point.IsStart:
			step.Action = "press"
		case tp.point.IsEnd:
			step = gesture.ScriptStep{Action: "release", ID: tp.contact}
		default:
			step.Action = "move"
		}
		script.Steps = append(script.Steps, step)
	}
	return script
}
