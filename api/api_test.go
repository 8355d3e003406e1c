package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/meridianhq/steward"
	"github.com/meridianhq/steward/audit"
	"github.com/meridianhq/steward/backoff"
	"github.com/meridianhq/steward/engine"
	"github.com/meridianhq/steward/llm"
	"github.com/meridianhq/steward/routine"
	"github.com/meridianhq/steward/store/memory"
	"github.com/meridianhq/steward/workflow"
)

func newTestAPI(t *testing.T, client llm.Client) (http.Handler, *memory.Store) {
	t.Helper()

	st := memory.New()
	cfg := steward.DefaultConfig()

	reg := workflow.NewRegistry()
	reg.Register(audit.Definition(st, client, cfg))
	reg.Register(routine.Definition(st, client, cfg))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(reg, st,
		engine.WithBackoff(backoff.NewConstant(0)),
		engine.WithLogger(logger),
		engine.WithConfig(cfg),
	)

	return New(eng, st, WithLogger(logger)).Handler(), st
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// runDTO mirrors RunResponse with the state left raw, since the
// concrete state type is not known on the client side.
type runDTO struct {
	ThreadID string          `json:"thread_id"`
	Status   workflow.Status `json:"status"`
	Error    string          `json:"error"`
	State    json.RawMessage `json:"state"`
}

func decodeRun(t *testing.T, rec *httptest.ResponseRecorder) runDTO {
	t.Helper()

	var res runDTO
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, rec.Body)
	}
	return res
}

func TestDailyAuditEmptyDayCompletes(t *testing.T) {
	llmCalled := false
	h, _ := newTestAPI(t, llm.ClientFunc(func(_ context.Context, _ []llm.Message) (string, error) {
		llmCalled = true
		return "", nil
	}))

	rec := doJSON(t, h, http.MethodPost, "/v1/workflows/daily-audit",
		StartAuditRequest{Date: "2026-08-27"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body)
	}

	res := decodeRun(t, rec)
	if res.Status != workflow.StatusCompleted {
		t.Fatalf("run status = %s, want completed", res.Status)
	}
	if res.ThreadID == "" {
		t.Fatal("no thread ID in response")
	}
	if llmCalled {
		t.Fatal("a day with no notes must not call the model")
	}
}

func TestDailyAuditApprovalFlow(t *testing.T) {
	h, st := newTestAPI(t, llm.ClientFunc(func(_ context.Context, _ []llm.Message) (string, error) {
		return `{"summary":"a hard day","risk_level":8,"insights":["low sleep"]}`, nil
	}))
	ctx := context.Background()

	if _, err := st.AddNote(ctx, "2026-08-27", "could not sleep at all"); err != nil {
		t.Fatalf("AddNote: %v", err)
	}

	rec := doJSON(t, h, http.MethodPost, "/v1/workflows/daily-audit",
		StartAuditRequest{Date: "2026-08-27", RequiresHumanApproval: true})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (body %s)", rec.Code, rec.Body)
	}

	res := decodeRun(t, rec)
	if res.Status != workflow.StatusPaused {
		t.Fatalf("run status = %s, want paused", res.Status)
	}

	// Status endpoint sees the pause.
	rec = doJSON(t, h, http.MethodGet, "/v1/workflows/status/"+res.ThreadID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d (body %s)", rec.Code, rec.Body)
	}
	if got := decodeRun(t, rec); got.Status != workflow.StatusPaused {
		t.Fatalf("reported status = %s, want paused", got.Status)
	}

	// Approve and finish.
	rec = doJSON(t, h, http.MethodPost, "/v1/workflows/approve/"+res.ThreadID,
		ApproveRequest{Approved: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("approve = %d (body %s)", rec.Code, rec.Body)
	}
	if got := decodeRun(t, rec); got.Status != workflow.StatusCompleted {
		t.Fatalf("final status = %s, want completed", got.Status)
	}

	sums := st.Summaries()
	if len(sums) != 1 {
		t.Fatalf("expected exactly 1 saved summary, got %d", len(sums))
	}
	if sums[0].RiskLevel != 8 || sums[0].Summary != "a hard day" {
		t.Fatalf("unexpected summary: %+v", sums[0])
	}

	// A second approval hits a completed thread.
	rec = doJSON(t, h, http.MethodPost, "/v1/workflows/approve/"+res.ThreadID,
		ApproveRequest{Approved: true})
	if rec.Code != http.StatusConflict {
		t.Fatalf("re-approve = %d, want 409 (body %s)", rec.Code, rec.Body)
	}
}

func TestRoutineGeneration(t *testing.T) {
	response := `{"activities":[
		{"time":"07:00","activity":"Morning walk","description":"Thirty minutes outside before breakfast"},
		{"time":"09:00","activity":"Deep work","description":"Two focused hours on the main project"},
		{"time":"12:30","activity":"Lunch break","description":"A proper meal away from the desk"}
	]}`
	h, st := newTestAPI(t, llm.ClientFunc(func(_ context.Context, _ []llm.Message) (string, error) {
		return response, nil
	}))

	rec := doJSON(t, h, http.MethodPost, "/v1/workflows/routine",
		StartRoutineRequest{Date: "2026-08-27"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body)
	}
	if got := decodeRun(t, rec); got.Status != workflow.StatusCompleted {
		t.Fatalf("run status = %s, want completed", got.Status)
	}

	routines := st.Routines()
	if len(routines) != 1 || len(routines[0].Activities) != 3 {
		t.Fatalf("unexpected routines: %+v", routines)
	}
}

func TestCheckpointsEndpoint(t *testing.T) {
	h, _ := newTestAPI(t, llm.ClientFunc(func(_ context.Context, _ []llm.Message) (string, error) {
		return "", nil
	}))

	rec := doJSON(t, h, http.MethodPost, "/v1/workflows/daily-audit",
		StartAuditRequest{Date: "2026-08-27"})
	res := decodeRun(t, rec)

	rec = doJSON(t, h, http.MethodGet, "/v1/workflows/checkpoints/"+res.ThreadID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("checkpoints = %d (body %s)", rec.Code, rec.Body)
	}

	var cps []json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&cps); err != nil {
		t.Fatalf("decode checkpoints: %v", err)
	}
	if len(cps) < 2 {
		t.Fatalf("expected at least 2 checkpoints, got %d", len(cps))
	}
}

func TestBadRequests(t *testing.T) {
	h, _ := newTestAPI(t, llm.ClientFunc(func(_ context.Context, _ []llm.Message) (string, error) {
		return "", nil
	}))

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"missing date", http.MethodPost, "/v1/workflows/daily-audit", `{}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/v1/workflows/daily-audit", `{nope`, http.StatusBadRequest},
		{"bad thread id", http.MethodGet, "/v1/workflows/status/not-an-id!", "", http.StatusBadRequest},
		{"unknown thread", http.MethodGet, "/v1/workflows/status/thread_01h2xcejqtf2nbrexx3vqjhp41", "", http.StatusNotFound},
		{"approve unknown thread", http.MethodPost, "/v1/workflows/approve/thread_01h2xcejqtf2nbrexx3vqjhp41", `{"approved":true}`, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.want, rec.Body)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	h, _ := newTestAPI(t, nil)

	rec := doJSON(t, h, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
}
