package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Run is one ledger row.
type Run struct {
	ID           string
	Input        string
	VideoPath    string
	AudioPath    string
	SubtitlePath string
	Engine       string
	Model        string
	State        string
	FailedStage  string
	ErrorKind    string
	ErrorMessage string
	SegmentCount int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration returns the run's wall time, or 0 while it is still open.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Transition is one recorded state change.
type Transition struct {
	From string
	To   string
	At   time.Time
}

// Begin inserts a new run in its first state.
func (s *Store) Begin(ctx context.Context, run Run) error {
	_, err := s.exec(ctx,
		`INSERT INTO runs (id, input, engine, model, state, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Input, nullable(run.Engine), nullable(run.Model), run.State, formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Update overwrites the mutable columns of a run.
func (s *Store) Update(ctx context.Context, run Run) error {
	res, err := s.exec(ctx,
		`UPDATE runs SET
            video_path = ?, audio_path = ?, subtitle_path = ?, state = ?,
            failed_stage = ?, error_kind = ?, error_message = ?,
            segment_count = ?, finished_at = ?
        WHERE id = ?`,
		nullable(run.VideoPath), nullable(run.AudioPath), nullable(run.SubtitlePath), run.State,
		nullable(run.FailedStage), nullable(run.ErrorKind), nullable(run.ErrorMessage),
		run.SegmentCount, formatTime(run.FinishedAt), run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run %s: %w", run.ID, ErrRunNotFound)
	}
	return nil
}

// AddTransition appends a state change to a run.
func (s *Store) AddTransition(ctx context.Context, runID string, t Transition) error {
	_, err := s.exec(ctx,
		`INSERT INTO transitions (run_id, from_state, to_state, at) VALUES (?, ?, ?, ?)`,
		runID, nullable(t.From), t.To, formatTime(t.At),
	)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

const runColumns = `id, input, video_path, audio_path, subtitle_path, engine, model, state,
    failed_stage, error_kind, error_message, segment_count, started_at, finished_at`

// List returns the most recent runs first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns the run whose id equals or uniquely starts with idOrPrefix.
func (s *Store) Get(ctx context.Context, idOrPrefix string) (Run, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return Run{}, ErrRunNotFound
	}
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(idOrPrefix)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ESCAPE '\' LIMIT 2`,
		idOrPrefix, escaped+"%",
	)
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		if run.ID == idOrPrefix {
			return run, nil
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}
	switch len(matches) {
	case 0:
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, idOrPrefix)
	case 1:
		return matches[0], nil
	default:
		return Run{}, fmt.Errorf("run id prefix %q is ambiguous", idOrPrefix)
	}
}

// Transitions returns the state changes of a run in order.
func (s *Store) Transitions(ctx context.Context, runID string) ([]Transition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT from_state, to_state, at FROM transitions WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var from sql.NullString
		var at sql.NullString
		var t Transition
		if err := rows.Scan(&from, &t.To, &at); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.From = from.String
		t.At = parseTime(at)
		out = append(out, t)
	}
	return out, rows.Err()
}

// Clear deletes every run and transition and returns the number of runs
// removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	if _, err := s.exec(ctx, `DELETE FROM transitions`); err != nil {
		return 0, fmt.Errorf("clear transitions: %w", err)
	}
	res, err := s.exec(ctx, `DELETE FROM runs`)
	if err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}
	return res.RowsAffected()
}

// Prune keeps the newest keep runs and deletes the rest.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, errors.New("prune: keep must be >= 0")
	}
	res, err := s.exec(ctx,
		`DELETE FROM runs WHERE id NOT IN (
            SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?
        )`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run                                   Run
		video, audio, subtitle, engine, model sql.NullString
		failedStage, errorKind, errorMessage  sql.NullString
		startedAt, finishedAt                 sql.NullString
	)
	if err := row.Scan(
		&run.ID, &run.Input, &video, &audio, &subtitle, &engine, &model, &run.State,
		&failedStage, &errorKind, &errorMessage, &run.SegmentCount, &startedAt, &finishedAt,
	); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.VideoPath = video.String
	run.AudioPath = audio.String
	run.SubtitlePath = subtitle.String
	run.Engine = engine.String
	run.Model = model.String
	run.FailedStage = failedStage.String
	run.ErrorKind = errorKind.String
	run.ErrorMessage = errorMessage.String
	run.StartedAt = parseTime(startedAt)
	run.FinishedAt = parseTime(finishedAt)
	return run, nil
}
