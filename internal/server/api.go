package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ericvanlare/aimod/internal/auditlog"
	"github.com/ericvanlare/aimod/internal/request"
)

// envelope is the response format for every endpoint, success or failure.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// writeError maps an operation failure to a response. Validation failures
// carry their own message and map to 400; anything else gets the
// operation's fixed message with the underlying error in details.
func writeError(w http.ResponseWriter, err error, failMsg string) {
	var vErr *request.ValidationError
	if errors.As(err, &vErr) {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Error: vErr.Msg})
		return
	}
	writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Error: failMsg, Details: err.Error()})
}

type apiHandler struct {
	broker     Broker
	reconciler Reconciler
	audit      Audit
	hub        *Hub
	logger     *slog.Logger
}

// record journals an action; journal failures are logged, never surfaced.
func (h *apiHandler) record(action string, issueNumber, prNumber int, detail string) {
	if h.audit == nil {
		return
	}
	if err := h.audit.Record(action, issueNumber, prNumber, detail); err != nil {
		h.logger.Warn("recording audit entry", "action", action, "error", err)
	}
}

// broadcast notifies connected admin panels about a completed action.
func (h *apiHandler) broadcast(msgType string, payload any) {
	if h.hub == nil {
		return
	}
	msg, err := NewEventMessage(msgType, payload)
	if err != nil {
		h.logger.Warn("building event message", "type", msgType, "error", err)
		return
	}
	h.hub.Broadcast(msg)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid request body"})
		return false
	}
	return true
}

func (h *apiHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Description string `json:"description"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	res, err := h.broker.Create(r.Context(), body.Description)
	if err != nil {
		writeError(w, err, "Failed to create AI modification request")
		return
	}

	h.record(auditlog.ActionRequestCreated, res.IssueNumber, 0, body.Description)
	h.broadcast(MsgRequestCreated, res)
	writeData(w, http.StatusCreated, res)
}

func (h *apiHandler) handleList(w http.ResponseWriter, r *http.Request) {
	requests, err := h.reconciler.List(r.Context())
	if err != nil {
		writeError(w, err, "Failed to list requests")
		return
	}
	writeData(w, http.StatusOK, requests)
}

func (h *apiHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	issueNumber, err := strconv.Atoi(r.URL.Query().Get("issue"))
	if err != nil || issueNumber <= 0 {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "Issue number is required"})
		return
	}

	st, err := h.reconciler.Status(r.Context(), issueNumber)
	if err != nil {
		writeError(w, err, "Failed to get status")
		return
	}
	writeData(w, http.StatusOK, st)
}

func (h *apiHandler) handleApprove(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PRNumber int `json:"prNumber"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	res, err := h.broker.Approve(r.Context(), body.PRNumber)
	if err != nil {
		writeError(w, err, "Failed to merge PR")
		return
	}

	h.record(auditlog.ActionRequestApproved, 0, res.PRNumber, "")
	h.broadcast(MsgRequestApproved, res)
	writeData(w, http.StatusOK, res)
}

func (h *apiHandler) handleReject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PRNumber int `json:"prNumber"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	res, err := h.broker.Reject(r.Context(), body.PRNumber)
	if err != nil {
		writeError(w, err, "Failed to reject changes")
		return
	}

	h.record(auditlog.ActionRequestRejected, 0, res.PRNumber, "")
	h.broadcast(MsgRequestRejected, res)
	writeData(w, http.StatusOK, res)
}

func (h *apiHandler) handleRevise(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IssueNumber         int    `json:"issueNumber"`
		PRNumber            int    `json:"prNumber"`
		OriginalDescription string `json:"originalDescription"`
		Feedback            string `json:"feedback"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	res, err := h.broker.Revise(r.Context(), request.ReviseParams{
		IssueNumber:         body.IssueNumber,
		PRNumber:            body.PRNumber,
		OriginalDescription: body.OriginalDescription,
		Feedback:            body.Feedback,
	})
	if err != nil {
		writeError(w, err, "Failed to create revision")
		return
	}

	h.record(auditlog.ActionRequestRevised, res.IssueNumber, body.PRNumber, body.Feedback)
	h.broadcast(MsgRequestRevised, res)
	writeData(w, http.StatusCreated, res)
}

func (h *apiHandler) handleRevert(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PRNumber    int    `json:"prNumber"`
		Description string `json:"description"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	res, err := h.broker.Revert(r.Context(), body.PRNumber, body.Description)
	if err != nil {
		writeError(w, err, "Failed to create revert request")
		return
	}

	h.record(auditlog.ActionRequestReverted, res.IssueNumber, body.PRNumber, body.Description)
	h.broadcast(MsgRequestReverted, res)
	writeData(w, http.StatusCreated, res)
}

func (h *apiHandler) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	entries, err := h.audit.Recent(limit)
	if err != nil {
		writeError(w, err, "Failed to list activity")
		return
	}
	if entries == nil {
		entries = []auditlog.Entry{}
	}
	writeData(w, http.StatusOK, entries)
}
