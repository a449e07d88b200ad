package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/adalan/internal/export"
	"github.com/verte-zerg/adalan/internal/metrics"
	"github.com/verte-zerg/adalan/internal/model"
	"github.com/verte-zerg/adalan/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "adalan.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	for i, id := range []string{"run-1", "run-2"} {
		start := time.Date(2024, 1, 1+i, 9, 0, 0, 0, time.UTC)
		op := model.OpAdd
		if i == 1 {
			op = model.OpCube
		}
		run := model.RunSummary{
			ID:        id,
			StartedAt: start,
			EndedAt:   start.Add(time.Minute),
			Config:    model.QuizConfig{UpperBound: 10, TotalQuestions: 1, TimeLimit: 5, Operators: []model.Operator{op}},
			Total:     1,
			Correct:   1,
			Answers: []model.AnswerRecord{
				{Index: 1, Operator: op, A: 2, B: 2, Correct: 4, Entered: 4, Passed: true, ResponseSeconds: 2},
			},
		}
		if err := st.InsertRun(ctx, run); err != nil {
			t.Fatalf("insert run: %v", err)
		}
	}

	logger := zap.NewNop()
	reg := metrics.NewRegistry(metrics.NewCollector(st, logger))
	srv := httptest.NewServer(New(st, logger, reg).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	status, body := get(t, srv.URL+"/healthz")
	if status != http.StatusOK || body != "ok" {
		t.Fatalf("unexpected health response %d %q", status, body)
	}
}

func TestListRuns(t *testing.T) {
	srv := newTestServer(t)
	status, body := get(t, srv.URL+"/api/runs")
	if status != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", status, body)
	}
	var runs []export.Run
	if err := json.Unmarshal([]byte(body), &runs); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-1" {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	if len(runs[0].Answers) != 0 {
		t.Fatalf("list should not include answers")
	}

	status, body = get(t, srv.URL+"/api/runs?operator=cube")
	if status != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", status, body)
	}
	runs = nil
	if err := json.Unmarshal([]byte(body), &runs); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-2" {
		t.Fatalf("unexpected filtered runs: %+v", runs)
	}
}

func TestListRunsRejectsBadQuery(t *testing.T) {
	srv := newTestServer(t)
	for _, q := range []string{"operator=modulo", "last=-1", "since=yesterday"} {
		status, _ := get(t, srv.URL+"/api/runs?"+q)
		if status != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", q, status)
		}
	}
}

func TestGetRun(t *testing.T) {
	srv := newTestServer(t)
	status, body := get(t, srv.URL+"/api/runs/run-2")
	if status != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", status, body)
	}
	var run export.Run
	if err := json.Unmarshal([]byte(body), &run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if run.PassPercentage != 100 || len(run.Answers) != 1 || run.Answers[0].Operator != "cube" {
		t.Fatalf("unexpected run: %+v", run)
	}

	status, body = get(t, srv.URL+"/api/runs/missing")
	if status != http.StatusNotFound || !strings.Contains(body, "run not found") {
		t.Fatalf("expected 404, got %d %s", status, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	get(t, srv.URL+"/healthz")
	status, body := get(t, srv.URL+"/metrics")
	if status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	for _, want := range []string{
		"adalan_runs_total 2",
		`adalan_answers_total{operator="add",result="correct"} 1`,
		`adalan_http_requests_total{method="GET",route="/healthz",status="200"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output", want)
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, "127.0.0.1:0", http.NotFoundHandler(), zap.NewNop())
	}()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
}
