// Package export converts stored runs into JSON or YAML documents.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/adalan/internal/model"
)

// ErrUnknownFormat is returned for unsupported output formats.
var ErrUnknownFormat = errors.New("unknown export format")

// Format is an output encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Source reads stored runs.
type Source interface {
	ListRuns(ctx context.Context, cfg model.StatsConfig) ([]model.RunAggregate, error)
	ListAnswers(ctx context.Context, runID string) ([]model.AnswerRecord, error)
}

// Answer is one exported question.
type Answer struct {
	Index           int     `json:"index" yaml:"index"`
	Remaining       int     `json:"remaining" yaml:"remaining"`
	Operator        string  `json:"operator" yaml:"operator"`
	A               int     `json:"a" yaml:"a"`
	B               int     `json:"b" yaml:"b"`
	Correct         float64 `json:"correct_answer" yaml:"correct_answer"`
	Entered         float64 `json:"entered" yaml:"entered"`
	Passed          bool    `json:"passed" yaml:"passed"`
	ResponseSeconds int     `json:"response_seconds" yaml:"response_seconds"`
	TimedOut        bool    `json:"timed_out,omitempty" yaml:"timed_out,omitempty"`
	Blank           bool    `json:"blank,omitempty" yaml:"blank,omitempty"`
}

// Run is one exported run.
type Run struct {
	ID             string    `json:"id" yaml:"id"`
	StartedAt      time.Time `json:"started_at" yaml:"started_at"`
	EndedAt        time.Time `json:"ended_at" yaml:"ended_at"`
	Total          int       `json:"total" yaml:"total"`
	Correct        int       `json:"correct" yaml:"correct"`
	Incorrect      int       `json:"incorrect" yaml:"incorrect"`
	PassPercentage int       `json:"pass_percentage" yaml:"pass_percentage"`
	UpperBound     int       `json:"upper_bound" yaml:"upper_bound"`
	TimeLimit      int       `json:"time_limit" yaml:"time_limit"`
	Operators      []string  `json:"operators" yaml:"operators"`
	Answers        []Answer  `json:"answers,omitempty" yaml:"answers,omitempty"`
}

// Document is the top-level export.
type Document struct {
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Runs        []Run     `json:"runs" yaml:"runs"`
}

// FromAggregate converts a stored run and its answers.
func FromAggregate(run model.RunAggregate, answers []model.AnswerRecord) Run {
	ops := make([]string, len(run.Operators))
	for i, op := range run.Operators {
		ops[i] = string(op)
	}
	out := Run{
		ID:             run.ID,
		StartedAt:      run.StartedAt.UTC(),
		EndedAt:        run.EndedAt.UTC(),
		Total:          run.Total,
		Correct:        run.Correct,
		Incorrect:      run.Incorrect,
		PassPercentage: run.PassPercentage(),
		UpperBound:     run.UpperBound,
		TimeLimit:      run.TimeLimit,
		Operators:      ops,
	}
	for _, a := range answers {
		out.Answers = append(out.Answers, Answer{
			Index:           a.Index,
			Remaining:       a.Remaining,
			Operator:        string(a.Operator),
			A:               a.A,
			B:               a.B,
			Correct:         a.Correct,
			Entered:         a.Entered,
			Passed:          a.Passed,
			ResponseSeconds: a.ResponseSeconds,
			TimedOut:        a.TimedOut,
			Blank:           a.Blank,
		})
	}
	return out
}

// Load reads matching runs with their answers.
func Load(ctx context.Context, src Source, cfg model.StatsConfig) ([]Run, error) {
	runs, err := src.ListRuns(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	out := make([]Run, 0, len(runs))
	for _, run := range runs {
		answers, err := src.ListAnswers(ctx, run.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list answers for %s: %w", run.ID, err)
		}
		out = append(out, FromAggregate(run, answers))
	}
	return out, nil
}

// Write encodes doc in the requested format.
func Write(w io.Writer, format Format, doc Document) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
