package http

import (
	"net/http"

	"github.com/reqquli/reqquli/internal/application"
)

func (h *Handler) auditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := application.AuditTrailQuery{
		EntityID: q.Get("entityId"),
		Action:   q.Get("action"),
		ActorID:  q.Get("actorId"),
		Page:     parseIntDefault(q.Get("page"), 1),
		Limit:    parseIntDefault(q.Get("limit"), 0),
	}
	res, err := h.service.ListAuditTrail(r.Context(), query)
	if err != nil {
		writeMappedError(r.Context(), w, "audit_log", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}
