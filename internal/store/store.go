// Package store handles SQLite persistence of completed runs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/adalan/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout is a fixed-width UTC timestamp, so text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// Store wraps SQLite access for run data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			total INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			incorrect INTEGER NOT NULL,
			upper_bound INTEGER NOT NULL,
			time_limit INTEGER NOT NULL,
			operators TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS run_answers (
			run_id TEXT NOT NULL,
			question_index INTEGER NOT NULL,
			operator TEXT NOT NULL,
			operand_a INTEGER NOT NULL,
			operand_b INTEGER NOT NULL,
			correct_answer REAL NOT NULL,
			entered REAL NOT NULL,
			passed INTEGER NOT NULL,
			response_s INTEGER NOT NULL,
			timed_out INTEGER NOT NULL,
			remaining INTEGER NOT NULL,
			blank INTEGER NOT NULL,
			PRIMARY KEY (run_id, question_index)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ended_at ON runs(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_run_answers_operator ON run_answers(operator);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun stores a completed run and its answers.
func (s *Store) InsertRun(ctx context.Context, run model.RunSummary) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, ended_at, total, correct, incorrect, upper_bound, time_limit, operators)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		formatTime(run.StartedAt),
		formatTime(run.EndedAt),
		run.Total,
		run.Correct,
		run.Incorrect,
		run.Config.UpperBound,
		run.Config.TimeLimit,
		joinOperators(run.Config.Operators),
	)
	if err != nil {
		return err
	}

	if len(run.Answers) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO run_answers (run_id, question_index, operator, operand_a, operand_b, correct_answer, entered, passed, response_s, timed_out, remaining, blank)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, a := range run.Answers {
			if _, err = stmt.ExecContext(ctx, run.ID, a.Index, string(a.Operator), a.A, a.B, a.Correct, a.Entered, boolInt(a.Passed), a.ResponseSeconds, boolInt(a.TimedOut), a.Remaining, boolInt(a.Blank)); err != nil {
				return err
			}
		}
	}

	err = tx.Commit()
	return err
}

const runColumns = `r.id, r.started_at, r.ended_at, r.total, r.correct, r.incorrect, r.upper_bound, r.time_limit, r.operators,
	COALESCE((SELECT SUM(a.response_s) FROM run_answers a WHERE a.run_id = r.id), 0)`

// ListRuns returns run aggregates filtered by stats config, oldest first.
func (s *Store) ListRuns(ctx context.Context, cfg model.StatsConfig) ([]model.RunAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Operator != "" {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM run_answers a WHERE a.run_id = r.id AND a.operator = ?)")
		args = append(args, string(cfg.Operator))
	}
	if cfg.Since != nil {
		clauses = append(clauses, "r.ended_at >= ?")
		args = append(args, formatTime(*cfg.Since))
	}
	query := fmt.Sprintf(`SELECT %s
		FROM runs r
		WHERE %s
		ORDER BY r.ended_at ASC`, runColumns, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []model.RunAggregate
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(runs) > cfg.Last {
		runs = runs[len(runs)-cfg.Last:]
	}
	return runs, nil
}

// GetRun returns a single run.
func (s *Store) GetRun(ctx context.Context, id string) (model.RunAggregate, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM runs r WHERE r.id = ?`, runColumns), id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RunAggregate{}, ErrRunNotFound
	}
	return run, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (model.RunAggregate, error) {
	var run model.RunAggregate
	var startedAt, endedAt, ops string
	if err := row.Scan(&run.ID, &startedAt, &endedAt, &run.Total, &run.Correct, &run.Incorrect, &run.UpperBound, &run.TimeLimit, &ops, &run.ResponseSumSeconds); err != nil {
		return model.RunAggregate{}, err
	}
	var err error
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return model.RunAggregate{}, err
	}
	if run.EndedAt, err = parseTime(endedAt); err != nil {
		return model.RunAggregate{}, err
	}
	run.Operators = splitOperators(ops)
	return run, nil
}

// ListAnswers returns the graded answers of a run in question order.
func (s *Store) ListAnswers(ctx context.Context, runID string) ([]model.AnswerRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_index, operator, operand_a, operand_b, correct_answer, entered, passed, response_s, timed_out, remaining, blank
		 FROM run_answers WHERE run_id = ? ORDER BY question_index ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var answers []model.AnswerRecord
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return answers, nil
}

func scanAnswer(row scanner, extra ...any) (model.AnswerRecord, error) {
	var a model.AnswerRecord
	var op string
	var passed, timedOut, blank int
	dest := append([]any{&a.Index, &op, &a.A, &a.B, &a.Correct, &a.Entered, &passed, &a.ResponseSeconds, &timedOut, &a.Remaining, &blank}, extra...)
	if err := row.Scan(dest...); err != nil {
		return model.AnswerRecord{}, err
	}
	a.Operator = model.Operator(op)
	a.Passed = passed != 0
	a.TimedOut = timedOut != 0
	a.Blank = blank != 0
	return a, nil
}

// OperatorAggregates aggregates answers per operator across runs.
func (s *Store) OperatorAggregates(ctx context.Context, runIDs []string) ([]model.OperatorAggregate, error) {
	if len(runIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(runIDs))
	args := make([]any, len(runIDs))
	for i, id := range runIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT operator, SUM(passed), SUM(1 - passed), SUM(response_s), SUM(timed_out)
		FROM run_answers
		WHERE run_id IN (%s)
		GROUP BY operator`, strings.Join(placeholders, ","))
	return s.queryOperatorAggregates(ctx, query, args...)
}

// GetWeakOperators aggregates operator stats over the most recent runs.
func (s *Store) GetWeakOperators(ctx context.Context, window int) ([]model.OperatorAggregate, error) {
	if window <= 0 {
		return nil, nil
	}
	query := `WITH recent_runs AS (
		SELECT id FROM runs
		ORDER BY ended_at DESC
		LIMIT ?
	)
	SELECT a.operator, SUM(a.passed), SUM(1 - a.passed), SUM(a.response_s), SUM(a.timed_out)
	FROM run_answers a
	JOIN recent_runs r ON r.id = a.run_id
	GROUP BY a.operator`
	return s.queryOperatorAggregates(ctx, query, window)
}

// Totals aggregates operator stats over every stored run.
func (s *Store) Totals(ctx context.Context) (int, []model.OperatorAggregate, error) {
	var runs int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&runs); err != nil {
		return 0, nil, err
	}
	aggs, err := s.queryOperatorAggregates(ctx,
		`SELECT operator, SUM(passed), SUM(1 - passed), SUM(response_s), SUM(timed_out)
		 FROM run_answers GROUP BY operator`)
	if err != nil {
		return 0, nil, err
	}
	return runs, aggs, nil
}

func (s *Store) queryOperatorAggregates(ctx context.Context, query string, args ...any) ([]model.OperatorAggregate, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.OperatorAggregate
	for rows.Next() {
		var agg model.OperatorAggregate
		var op string
		if err := rows.Scan(&op, &agg.Correct, &agg.Incorrect, &agg.ResponseSumSeconds, &agg.TimedOut); err != nil {
			return nil, err
		}
		agg.Operator = model.Operator(op)
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// RecentMistakes returns the latest failed answers, newest first.
func (s *Store) RecentMistakes(ctx context.Context, limit int) ([]model.Mistake, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.question_index, a.operator, a.operand_a, a.operand_b, a.correct_answer, a.entered, a.passed, a.response_s, a.timed_out, a.remaining, a.blank,
			r.id, r.ended_at
		 FROM run_answers a
		 JOIN runs r ON r.id = a.run_id
		 WHERE a.passed = 0
		 ORDER BY r.ended_at DESC, a.question_index ASC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.Mistake
	for rows.Next() {
		var m model.Mistake
		var endedAt string
		a, err := scanAnswer(rows, &m.RunID, &endedAt)
		if err != nil {
			return nil, err
		}
		m.Answer = a
		if m.EndedAt, err = parseTime(endedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", raw, err)
	}
	return t, nil
}

func joinOperators(ops []model.Operator) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = string(op)
	}
	return strings.Join(parts, ",")
}

func splitOperators(raw string) []model.Operator {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ops := make([]model.Operator, 0, len(parts))
	for _, p := range parts {
		ops = append(ops, model.Operator(p))
	}
	return ops
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
