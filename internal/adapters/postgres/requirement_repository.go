package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/reqquli/reqquli/internal/domain"
	"github.com/reqquli/reqquli/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// requirementRepository serves both requirement tables; the table name and
// kind are fixed per instance at wiring time.
type requirementRepository struct {
	db    *gorm.DB
	table string
	kind  domain.RecordKind
}

var requirementSortColumns = map[string]string{
	"id":           "id",
	"title":        "title",
	"createdAt":    "created_at",
	"lastModified": "last_modified",
}

func (r *requirementRepository) Create(ctx context.Context, draft domain.Requirement, event domain.AuditEvent) (domain.Requirement, error) {
	var result domain.Requirement
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := nextRecordID(tx, r.kind)
		if err != nil {
			return err
		}
		rec := requirementModel{
			ID:           id,
			Title:        draft.Title,
			Description:  draft.Description,
			Status:       string(domain.StatusDraft),
			Revision:     0,
			CreatedAt:    draft.CreatedAt,
			CreatedBy:    draft.CreatedBy,
			LastModified: draft.CreatedAt,
			ModifiedBy:   draft.CreatedBy,
		}
		if err := tx.Table(r.table).Create(&rec).Error; err != nil {
			return err
		}

		event.EntityID = id
		if err := appendAudit(tx, event); err != nil {
			return err
		}

		result = toDomainRequirement(rec, r.kind)
		return nil
	})
	if err != nil {
		return domain.Requirement{}, err
	}
	return result, nil
}

func (r *requirementRepository) GetByID(ctx context.Context, id string) (domain.Requirement, error) {
	var rec requirementModel
	if err := r.db.WithContext(ctx).
		Table(r.table).
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Requirement{}, domain.ErrNotFound
		}
		return domain.Requirement{}, err
	}
	return toDomainRequirement(rec, r.kind), nil
}

func (r *requirementRepository) List(ctx context.Context, q ports.RecordQuery) ([]domain.Requirement, int64, error) {
	base := r.db.WithContext(ctx).Table(r.table).Where("deleted_at IS NULL")
	if q.Status != "" {
		base = base.Where("status = ?", string(q.Status))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		base = base.Where("title ILIKE ?", "%"+escapeLike(s)+"%")
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []requirementModel
	if err := base.Session(&gorm.Session{}).
		Order(orderClause(requirementSortColumns, q.SortBy, q.SortOrder, "last_modified")).
		Scopes(pageScope(q.Limit, q.Offset)).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	result := make([]domain.Requirement, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainRequirement(row, r.kind))
	}
	return result, total, nil
}

func (r *requirementRepository) Update(ctx context.Context, id, title, description string, modifiedBy uuid.UUID, at time.Time, event domain.AuditEvent) (domain.Requirement, error) {
	var result domain.Requirement
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := r.lockLive(tx, id)
		if err != nil {
			return err
		}

		// Any edit lands the record back in draft; the revision only moves on
		// the next approval.
		rec.Title = title
		rec.Description = description
		rec.Status = string(domain.StatusDraft)
		rec.LastModified = at
		rec.ModifiedBy = modifiedBy
		if err := tx.Table(r.table).Where("id = ?", id).Updates(map[string]any{
			"title":         title,
			"description":   description,
			"status":        rec.Status,
			"last_modified": at,
			"modified_by":   modifiedBy,
		}).Error; err != nil {
			return err
		}

		if err := appendAudit(tx, event); err != nil {
			return err
		}

		result = toDomainRequirement(rec, r.kind)
		return nil
	})
	if err != nil {
		return domain.Requirement{}, err
	}
	return result, nil
}

func (r *requirementRepository) Approve(ctx context.Context, id string, approvedBy uuid.UUID, notes string, at time.Time, event domain.AuditEvent) (domain.Requirement, error) {
	var result domain.Requirement
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := r.lockLive(tx, id)
		if err != nil {
			return err
		}
		if rec.Status != string(domain.StatusDraft) {
			return fmt.Errorf("%w: only draft records can be approved", domain.ErrConflict)
		}

		rec.Status = string(domain.StatusApproved)
		rec.Revision++
		rec.ApprovedAt = &at
		rec.ApprovedBy = &approvedBy
		rec.ApprovalNotes = notes
		rec.LastModified = at
		rec.ModifiedBy = approvedBy
		if err := tx.Table(r.table).Where("id = ?", id).Updates(map[string]any{
			"status":         rec.Status,
			"revision":       rec.Revision,
			"approved_at":    at,
			"approved_by":    approvedBy,
			"approval_notes": notes,
			"last_modified":  at,
			"modified_by":    approvedBy,
		}).Error; err != nil {
			return err
		}

		if err := appendAudit(tx, event); err != nil {
			return err
		}

		result = toDomainRequirement(rec, r.kind)
		return nil
	})
	if err != nil {
		return domain.Requirement{}, err
	}
	return result, nil
}

func (r *requirementRepository) SoftDelete(ctx context.Context, id string, at time.Time, event domain.AuditEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Table(r.table).
			Where("id = ?", id).
			Where("deleted_at IS NULL").
			Update("deleted_at", at)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return appendAudit(tx, event)
	})
}

// lockLive loads a non-deleted row under FOR UPDATE so status transitions
// serialize per record.
func (r *requirementRepository) lockLive(tx *gorm.DB, id string) (requirementModel, error) {
	var rec requirementModel
	if err := tx.Table(r.table).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return requirementModel{}, domain.ErrNotFound
		}
		return requirementModel{}, err
	}
	return rec, nil
}
