package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/reqquli/reqquli/internal/application"
)

// recordOps binds one requirement family's use-cases to the shared handlers.
// Both requirement collections expose the same surface, so the handlers are
// written once and bound twice by the router.
type recordOps struct {
	name    string
	create  func(context.Context, application.Actor, application.CreateRecordRequest) (application.RequirementItem, error)
	get     func(context.Context, string) (application.RequirementItem, error)
	list    func(context.Context, application.ListQuery) (application.RequirementListResponse, error)
	update  func(context.Context, application.Actor, string, application.UpdateRecordRequest) (application.RequirementItem, error)
	approve func(context.Context, application.Actor, string, application.ApproveRequest) (application.RequirementItem, error)
	remove  func(context.Context, application.Actor, string, application.DeleteRequest) error
}

func (h *Handler) userRequirementOps() recordOps {
	return recordOps{
		name:    "user_requirement",
		create:  h.service.CreateUserRequirement,
		get:     h.service.GetUserRequirement,
		list:    h.service.ListUserRequirements,
		update:  h.service.UpdateUserRequirement,
		approve: h.service.ApproveUserRequirement,
		remove:  h.service.DeleteUserRequirement,
	}
}

func (h *Handler) systemRequirementOps() recordOps {
	return recordOps{
		name:    "system_requirement",
		create:  h.service.CreateSystemRequirement,
		get:     h.service.GetSystemRequirement,
		list:    h.service.ListSystemRequirements,
		update:  h.service.UpdateSystemRequirement,
		approve: h.service.ApproveSystemRequirement,
		remove:  h.service.DeleteSystemRequirement,
	}
}

func (h *Handler) recordRoutes(ops recordOps) func(chi.Router) {
	return func(r chi.Router) {
		r.Post("/", h.createRecord(ops))
		r.Get("/", h.listRecords(ops))
		r.Get("/{id}", h.getRecord(ops))
		r.Put("/{id}", h.updateRecord(ops))
		r.Post("/{id}/approve", h.approveRecord(ops))
		r.Delete("/{id}", h.deleteRecord(ops))
	}
}

func (h *Handler) createRecord(ops recordOps) http.HandlerFunc {
	op := ops.name + "_create"
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(r)
		if !ok {
			writeMissingAuthError(r.Context(), w, op)
			return
		}
		var req application.CreateRecordRequest
		if err := decodeBody(r, &req); err != nil {
			writeValidationError(r.Context(), w, op, err)
			return
		}
		item, err := ops.create(r.Context(), actor, req)
		if err != nil {
			writeMappedError(r.Context(), w, op, err)
			return
		}
		writeSuccess(w, http.StatusCreated, item)
	}
}

func (h *Handler) getRecord(ops recordOps) http.HandlerFunc {
	op := ops.name + "_get"
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := ops.get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeMappedError(r.Context(), w, op, err)
			return
		}
		writeSuccess(w, http.StatusOK, item)
	}
}

func (h *Handler) listRecords(ops recordOps) http.HandlerFunc {
	op := ops.name + "_list"
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := ops.list(r.Context(), listQueryFromRequest(r))
		if err != nil {
			writeMappedError(r.Context(), w, op, err)
			return
		}
		writeSuccess(w, http.StatusOK, res)
	}
}

func (h *Handler) updateRecord(ops recordOps) http.HandlerFunc {
	op := ops.name + "_update"
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(r)
		if !ok {
			writeMissingAuthError(r.Context(), w, op)
			return
		}
		var req application.UpdateRecordRequest
		if err := decodeBody(r, &req); err != nil {
			writeValidationError(r.Context(), w, op, err)
			return
		}
		item, err := ops.update(r.Context(), actor, chi.URLParam(r, "id"), req)
		if err != nil {
			writeMappedError(r.Context(), w, op, err)
			return
		}
		writeSuccess(w, http.StatusOK, item)
	}
}

func (h *Handler) approveRecord(ops recordOps) http.HandlerFunc {
	op := ops.name + "_approve"
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(r)
		if !ok {
			writeMissingAuthError(r.Context(), w, op)
			return
		}
		var req application.ApproveRequest
		if err := decodeBody(r, &req); err != nil {
			writeValidationError(r.Context(), w, op, err)
			return
		}
		item, err := ops.approve(r.Context(), actor, chi.URLParam(r, "id"), req)
		if err != nil {
			writeMappedError(r.Context(), w, op, err)
			return
		}
		writeSuccess(w, http.StatusOK, item)
	}
}

func (h *Handler) deleteRecord(ops recordOps) http.HandlerFunc {
	op := ops.name + "_delete"
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(r)
		if !ok {
			writeMissingAuthError(r.Context(), w, op)
			return
		}
		var req application.DeleteRequest
		if err := decodeBody(r, &req); err != nil {
			writeValidationError(r.Context(), w, op, err)
			return
		}
		if err := ops.remove(r.Context(), actor, chi.URLParam(r, "id"), req); err != nil {
			writeMappedError(r.Context(), w, op, err)
			return
		}
		writeMessage(w, http.StatusOK, "Record deleted successfully")
	}
}
