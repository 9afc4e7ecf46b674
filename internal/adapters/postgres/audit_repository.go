package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/reqquli/reqquli/internal/domain"
	"github.com/reqquli/reqquli/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type auditRepository struct {
	db *gorm.DB
}

func (r *auditRepository) List(ctx context.Context, q ports.AuditQuery) ([]domain.AuditEvent, int64, error) {
	base := r.db.WithContext(ctx).Model(&auditEventModel{})
	if q.EntityID != "" {
		base = base.Where("entity_id = ?", q.EntityID)
	}
	if q.Action != "" {
		base = base.Where("action = ?", q.Action)
	}
	if q.ActorID != uuid.Nil {
		base = base.Where("actor_id = ?", q.ActorID)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []auditEventModel
	if err := base.Session(&gorm.Session{}).
		Order("occurred_at DESC").
		Scopes(pageScope(q.Limit, q.Offset)).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	result := make([]domain.AuditEvent, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainAuditEvent(row))
	}
	return result, total, nil
}

func (r *auditRepository) ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]ports.AuditDelivery, error) {
	if limit <= 0 {
		return nil, nil
	}
	if claimToken == "" {
		return nil, fmt.Errorf("claim token is required")
	}

	now := time.Now().UTC()
	var rows []auditEventModel
	if err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subquery := tx.Model(&auditEventModel{}).
			Select("event_id").
			Where("published_at IS NULL").
			Where("dead_lettered_at IS NULL").
			Where("claim_until IS NULL OR claim_until < ?", now).
			Order("occurred_at ASC").
			Limit(limit).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})

		if err := tx.Model(&auditEventModel{}).
			Where("event_id IN (?)", subquery).
			Updates(map[string]any{
				"claim_token": claimToken,
				"claim_until": claimUntil,
			}).Error; err != nil {
			return err
		}

		return tx.Where("claim_token = ?", claimToken).
			Where("published_at IS NULL").
			Where("dead_lettered_at IS NULL").
			Order("occurred_at ASC").
			Find(&rows).Error
	}); err != nil {
		return nil, err
	}

	result := make([]ports.AuditDelivery, 0, len(rows))
	for _, row := range rows {
		result = append(result, ports.AuditDelivery{
			EventID:        row.EventID,
			EntityID:       row.EntityID,
			EntityType:     row.EntityType,
			Action:         row.Action,
			Payload:        []byte(row.Payload),
			RetryCount:     row.RetryCount,
			LastError:      row.LastError,
			OccurredAt:     row.OccurredAt,
			PublishedAt:    row.PublishedAt,
			ClaimToken:     row.ClaimToken,
			ClaimUntil:     row.ClaimUntil,
			DeadLetteredAt: row.DeadLetteredAt,
		})
	}
	return result, nil
}

func (r *auditRepository) MarkPublished(ctx context.Context, eventID uuid.UUID, claimToken string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&auditEventModel{}).
		Where("event_id = ?", eventID).
		Where("claim_token = ?", claimToken).
		Updates(map[string]any{
			"published_at": at,
			"claim_token":  nil,
			"claim_until":  nil,
		}).Error
}

func (r *auditRepository) MarkFailed(ctx context.Context, eventID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&auditEventModel{}).
		Where("event_id = ?", eventID).
		Where("claim_token = ?", claimToken).
		Updates(map[string]any{
			"retry_count":   gorm.Expr("retry_count + 1"),
			"last_error":    errMsg,
			"last_error_at": at,
			"claim_token":   nil,
			"claim_until":   nil,
		}).Error
}

func (r *auditRepository) MarkDeadLettered(ctx context.Context, eventID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&auditEventModel{}).
		Where("event_id = ?", eventID).
		Where("claim_token = ?", claimToken).
		Updates(map[string]any{
			"retry_count":      gorm.Expr("retry_count + 1"),
			"last_error":       errMsg,
			"last_error_at":    at,
			"dead_lettered_at": at,
			"claim_token":      nil,
			"claim_until":      nil,
		}).Error
}
