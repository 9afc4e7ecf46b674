package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/reqquli/reqquli/internal/domain"
	"gorm.io/gorm"
)

type traceRepository struct {
	db *gorm.DB
}

func (r *traceRepository) Create(ctx context.Context, trace domain.Trace, event domain.AuditEvent) (domain.Trace, error) {
	var result domain.Trace
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := traceModel{
			FromID:            trace.FromID,
			FromKind:          string(trace.FromKind),
			ToID:              trace.ToID,
			ToKind:            string(trace.ToKind),
			CreatedBy:         trace.CreatedBy,
			CreatedAt:         trace.CreatedAt,
			IsSystemGenerated: trace.IsSystemGenerated,
		}
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: trace already exists", domain.ErrConflict)
			}
			return err
		}
		if err := appendAudit(tx, event); err != nil {
			return err
		}
		result = toDomainTrace(rec)
		return nil
	})
	if err != nil {
		return domain.Trace{}, err
	}
	return result, nil
}

func (r *traceRepository) Delete(ctx context.Context, fromID, toID string, event domain.AuditEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec traceModel
		if err := tx.Where("from_id = ?", fromID).
			Where("to_id = ?", toID).
			Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if rec.IsSystemGenerated {
			return fmt.Errorf("%w: system-generated traces cannot be deleted", domain.ErrConflict)
		}
		if err := tx.Where("trace_id = ?", rec.TraceID).Delete(&traceModel{}).Error; err != nil {
			return err
		}
		return appendAudit(tx, event)
	})
}

func (r *traceRepository) ListByRecord(ctx context.Context, recordID string) ([]domain.Trace, error) {
	var rows []traceModel
	if err := r.db.WithContext(ctx).
		Where("from_id = ? OR to_id = ?", recordID, recordID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Trace, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainTrace(row))
	}
	return result, nil
}

func (r *traceRepository) ListAll(ctx context.Context) ([]domain.Trace, error) {
	var rows []traceModel
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Trace, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainTrace(row))
	}
	return result, nil
}
