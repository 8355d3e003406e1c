package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridianhq/steward/audit"
	"github.com/meridianhq/steward/engine"
	"github.com/meridianhq/steward/id"
	"github.com/meridianhq/steward/routine"
	"github.com/meridianhq/steward/workflow"
)

// StartAuditRequest kicks off a daily-audit run.
type StartAuditRequest struct {
	Date                  string `json:"date"`
	RequiresHumanApproval bool   `json:"requires_human_approval"`
}

// StartRoutineRequest kicks off a routine-generation run.
type StartRoutineRequest struct {
	Date string `json:"date"`
}

// ApproveRequest carries the human decision for a paused thread.
type ApproveRequest struct {
	Approved bool `json:"approved"`
}

// RunResponse reports where a run settled.
type RunResponse struct {
	ThreadID string          `json:"thread_id"`
	Status   workflow.Status `json:"status"`
	Error    string          `json:"error,omitempty"`
	State    workflow.State  `json:"state,omitempty"`
}

func runResponse(res *engine.Result) RunResponse {
	return RunResponse{
		ThreadID: res.ThreadID.String(),
		Status:   res.Status,
		Error:    res.State.Meta().Error,
		State:    res.State,
	}
}

// runStatusCode picks the HTTP status for a settled run: 202 while a
// human decision is pending, 200 otherwise. Workflow failure is still a
// successful request.
func runStatusCode(status workflow.Status) int {
	if status == workflow.StatusPaused {
		return http.StatusAccepted
	}
	return http.StatusOK
}

func (a *API) startDailyAudit(w http.ResponseWriter, r *http.Request) {
	var req StartAuditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if req.Date == "" {
		a.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "date is required"})
		return
	}

	res, err := a.eng.Execute(r.Context(), audit.Type,
		audit.NewState(req.Date, req.RequiresHumanApproval), engine.Options{})
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, runStatusCode(res.Status), runResponse(res))
}

func (a *API) startRoutine(w http.ResponseWriter, r *http.Request) {
	var req StartRoutineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if req.Date == "" {
		a.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "date is required"})
		return
	}

	res, err := a.eng.Execute(r.Context(), routine.Type, routine.NewState(req.Date), engine.Options{})
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, runStatusCode(res.Status), runResponse(res))
}

func (a *API) approve(w http.ResponseWriter, r *http.Request) {
	threadID, err := id.ParseThreadID(chi.URLParam(r, "threadID"))
	if err != nil {
		a.writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid thread ID: %v", err)})
		return
	}

	var req ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	res, err := a.eng.Resume(r.Context(), threadID, workflow.Decision{Approved: req.Approved})
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, runResponse(res))
}

func (a *API) status(w http.ResponseWriter, r *http.Request) {
	threadID, err := id.ParseThreadID(chi.URLParam(r, "threadID"))
	if err != nil {
		a.writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid thread ID: %v", err)})
		return
	}

	res, err := a.eng.Status(r.Context(), threadID)
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, runResponse(res))
}

func (a *API) checkpoints(w http.ResponseWriter, r *http.Request) {
	threadID, err := id.ParseThreadID(chi.URLParam(r, "threadID"))
	if err != nil {
		a.writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid thread ID: %v", err)})
		return
	}

	cps, err := a.store.ListCheckpoints(r.Context(), threadID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if len(cps) == 0 {
		a.writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("thread not found: %s", threadID)})
		return
	}

	a.writeJSON(w, http.StatusOK, cps)
}

func (a *API) cancel(w http.ResponseWriter, r *http.Request) {
	threadID, err := id.ParseThreadID(chi.URLParam(r, "threadID"))
	if err != nil {
		a.writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid thread ID: %v", err)})
		return
	}

	if err := a.eng.Cancel(r.Context(), threadID); err != nil {
		a.writeError(w, err)
		return
	}

	res, err := a.eng.Status(r.Context(), threadID)
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, runResponse(res))
}
