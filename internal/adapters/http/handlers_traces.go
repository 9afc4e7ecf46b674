package http

import (
	"errors"
	"net/http"

	"github.com/reqquli/reqquli/internal/application"
)

func (h *Handler) createTrace(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeMissingAuthError(r.Context(), w, "trace_create")
		return
	}
	var req application.CreateTraceRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "trace_create", err)
		return
	}
	item, err := h.service.CreateTrace(r.Context(), actor, req)
	if err != nil {
		writeMappedError(r.Context(), w, "trace_create", err)
		return
	}
	writeSuccess(w, http.StatusCreated, item)
}

func (h *Handler) deleteTrace(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeMissingAuthError(r.Context(), w, "trace_delete")
		return
	}
	fromID := r.URL.Query().Get("fromId")
	toID := r.URL.Query().Get("toId")
	if fromID == "" || toID == "" {
		writeValidationError(r.Context(), w, "trace_delete", errors.New("fromId and toId are required"))
		return
	}
	if err := h.service.DeleteTrace(r.Context(), actor, fromID, toID); err != nil {
		writeMappedError(r.Context(), w, "trace_delete", err)
		return
	}
	writeMessage(w, http.StatusOK, "Trace deleted successfully")
}

func (h *Handler) listTraces(w http.ResponseWriter, r *http.Request) {
	recordID := r.URL.Query().Get("recordId")
	if recordID == "" {
		writeValidationError(r.Context(), w, "trace_list", errors.New("recordId is required"))
		return
	}
	res, err := h.service.ListTracesForRecord(r.Context(), recordID)
	if err != nil {
		writeMappedError(r.Context(), w, "trace_list", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) traceGraph(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.TraceGraph(r.Context())
	if err != nil {
		writeMappedError(r.Context(), w, "trace_graph", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}
