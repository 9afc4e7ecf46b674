package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/reqquli/reqquli/internal/application"
)

func (h *Handler) createRisk(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeMissingAuthError(r.Context(), w, "risk_create")
		return
	}
	var req application.CreateRiskRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "risk_create", err)
		return
	}
	item, err := h.service.CreateRisk(r.Context(), actor, req)
	if err != nil {
		writeMappedError(r.Context(), w, "risk_create", err)
		return
	}
	writeSuccess(w, http.StatusCreated, item)
}

func (h *Handler) getRisk(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetRisk(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeMappedError(r.Context(), w, "risk_get", err)
		return
	}
	writeSuccess(w, http.StatusOK, item)
}

func (h *Handler) listRisks(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ListRisks(r.Context(), listQueryFromRequest(r))
	if err != nil {
		writeMappedError(r.Context(), w, "risk_list", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) updateRisk(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeMissingAuthError(r.Context(), w, "risk_update")
		return
	}
	var req application.UpdateRiskRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "risk_update", err)
		return
	}
	item, err := h.service.UpdateRisk(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		writeMappedError(r.Context(), w, "risk_update", err)
		return
	}
	writeSuccess(w, http.StatusOK, item)
}

func (h *Handler) approveRisk(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeMissingAuthError(r.Context(), w, "risk_approve")
		return
	}
	var req application.ApproveRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "risk_approve", err)
		return
	}
	item, err := h.service.ApproveRisk(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		writeMappedError(r.Context(), w, "risk_approve", err)
		return
	}
	writeSuccess(w, http.StatusOK, item)
}

func (h *Handler) deleteRisk(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeMissingAuthError(r.Context(), w, "risk_delete")
		return
	}
	var req application.DeleteRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "risk_delete", err)
		return
	}
	if err := h.service.DeleteRisk(r.Context(), actor, chi.URLParam(r, "id"), req); err != nil {
		writeMappedError(r.Context(), w, "risk_delete", err)
		return
	}
	writeMessage(w, http.StatusOK, "Risk deleted successfully")
}
