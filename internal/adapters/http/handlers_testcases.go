package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/reqquli/reqquli/internal/application"
)

func (h *Handler) createTestCase(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeMissingAuthError(r.Context(), w, "test_case_create")
		return
	}
	var req application.CreateTestCaseRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "test_case_create", err)
		return
	}
	item, err := h.service.CreateTestCase(r.Context(), actor, req)
	if err != nil {
		writeMappedError(r.Context(), w, "test_case_create", err)
		return
	}
	writeSuccess(w, http.StatusCreated, item)
}

func (h *Handler) getTestCase(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetTestCase(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeMappedError(r.Context(), w, "test_case_get", err)
		return
	}
	writeSuccess(w, http.StatusOK, item)
}

func (h *Handler) listTestCases(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ListTestCases(r.Context(), listQueryFromRequest(r))
	if err != nil {
		writeMappedError(r.Context(), w, "test_case_list", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) updateTestCase(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeMissingAuthError(r.Context(), w, "test_case_update")
		return
	}
	var req application.UpdateTestCaseRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "test_case_update", err)
		return
	}
	item, err := h.service.UpdateTestCase(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		writeMappedError(r.Context(), w, "test_case_update", err)
		return
	}
	writeSuccess(w, http.StatusOK, item)
}

func (h *Handler) approveTestCase(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeMissingAuthError(r.Context(), w, "test_case_approve")
		return
	}
	var req application.ApproveRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "test_case_approve", err)
		return
	}
	item, err := h.service.ApproveTestCase(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		writeMappedError(r.Context(), w, "test_case_approve", err)
		return
	}
	writeSuccess(w, http.StatusOK, item)
}

func (h *Handler) deleteTestCase(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeMissingAuthError(r.Context(), w, "test_case_delete")
		return
	}
	var req application.DeleteRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "test_case_delete", err)
		return
	}
	if err := h.service.DeleteTestCase(r.Context(), actor, chi.URLParam(r, "id"), req); err != nil {
		writeMappedError(r.Context(), w, "test_case_delete", err)
		return
	}
	writeMessage(w, http.StatusOK, "Test case deleted successfully")
}
