package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/reqquli/reqquli/internal/domain"
	"github.com/reqquli/reqquli/internal/ports"
)

// ListAuditTrail pages through audit events, newest first.
// Filters combine with AND; an unknown entity or actor simply matches nothing.
func (s *Service) ListAuditTrail(ctx context.Context, q AuditTrailQuery) (AuditTrailResponse, error) {
	page, limit := clampPage(q.Page, q.Limit)

	actorID := uuid.Nil
	if q.ActorID != "" {
		parsed, err := uuid.Parse(q.ActorID)
		if err != nil {
			return AuditTrailResponse{}, fmt.Errorf("%w: actor_id must be a UUID", domain.ErrInvalidInput)
		}
		actorID = parsed
	}

	events, total, err := s.audit.List(ctx, ports.AuditQuery{
		EntityID: q.EntityID,
		Action:   q.Action,
		ActorID:  actorID,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	})
	if err != nil {
		return AuditTrailResponse{}, err
	}

	items := make([]AuditItem, 0, len(events))
	for _, ev := range events {
		items = append(items, toAuditItem(ev))
	}
	return AuditTrailResponse{
		Events:     items,
		Pagination: paginationFor(page, limit, total),
	}, nil
}
