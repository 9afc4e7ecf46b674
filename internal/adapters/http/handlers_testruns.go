package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/reqquli/reqquli/internal/application"
)

func (h *Handler) createTestRun(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeMissingAuthError(r.Context(), w, "test_run_create")
		return
	}
	var req application.CreateTestRunRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "test_run_create", err)
		return
	}
	item, err := h.service.CreateTestRun(r.Context(), actor, req)
	if err != nil {
		writeMappedError(r.Context(), w, "test_run_create", err)
		return
	}
	writeSuccess(w, http.StatusCreated, item)
}

func (h *Handler) getTestRun(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetTestRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeMappedError(r.Context(), w, "test_run_get", err)
		return
	}
	writeSuccess(w, http.StatusOK, detail)
}

func (h *Handler) listTestRuns(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ListTestRuns(r.Context(), listQueryFromRequest(r))
	if err != nil {
		writeMappedError(r.Context(), w, "test_run_list", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) recordStepResult(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeMissingAuthError(r.Context(), w, "test_run_step_result")
		return
	}
	position := parseIntDefault(chi.URLParam(r, "position"), 0)
	if position < 1 {
		writeValidationError(r.Context(), w, "test_run_step_result", errors.New("invalid step position"))
		return
	}
	var req application.RecordStepResultRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "test_run_step_result", err)
		return
	}
	step, err := h.service.RecordStepResult(r.Context(), actor, chi.URLParam(r, "id"), chi.URLParam(r, "case_id"), position, req)
	if err != nil {
		writeMappedError(r.Context(), w, "test_run_step_result", err)
		return
	}
	writeSuccess(w, http.StatusOK, step)
}

func (h *Handler) approveTestRun(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeMissingAuthError(r.Context(), w, "test_run_approve")
		return
	}
	var req application.ApproveRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "test_run_approve", err)
		return
	}
	item, err := h.service.ApproveTestRun(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		writeMappedError(r.Context(), w, "test_run_approve", err)
		return
	}
	writeSuccess(w, http.StatusOK, item)
}

func (h *Handler) deleteTestRun(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeMissingAuthError(r.Context(), w, "test_run_delete")
		return
	}
	var req application.DeleteRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "test_run_delete", err)
		return
	}
	if err := h.service.DeleteTestRun(r.Context(), actor, chi.URLParam(r, "id"), req); err != nil {
		writeMappedError(r.Context(), w, "test_run_delete", err)
		return
	}
	writeMessage(w, http.StatusOK, "Test run deleted successfully")
}
