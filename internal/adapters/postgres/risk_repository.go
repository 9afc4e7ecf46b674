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

type riskRepository struct {
	db *gorm.DB
}

var riskSortColumns = map[string]string{
	"id":           "id",
	"title":        "title",
	"createdAt":    "created_at",
	"lastModified": "last_modified",
	"riskScore":    "risk_score",
}

func (r *riskRepository) Create(ctx context.Context, draft domain.Risk, event domain.AuditEvent) (domain.Risk, error) {
	var result domain.Risk
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := nextRecordID(tx, domain.KindRisk)
		if err != nil {
			return err
		}
		rec := riskModel{
			ID:           id,
			Title:        draft.Title,
			Description:  draft.Description,
			Severity:     draft.Severity,
			Probability:  draft.Probability,
			RiskScore:    draft.RiskScore,
			RiskLevel:    string(draft.RiskLevel),
			Mitigation:   draft.Mitigation,
			Status:       string(domain.StatusDraft),
			Revision:     0,
			CreatedAt:    draft.CreatedAt,
			CreatedBy:    draft.CreatedBy,
			LastModified: draft.CreatedAt,
			ModifiedBy:   draft.CreatedBy,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}

		event.EntityID = id
		if err := appendAudit(tx, event); err != nil {
			return err
		}

		result = toDomainRisk(rec)
		return nil
	})
	if err != nil {
		return domain.Risk{}, err
	}
	return result, nil
}

func (r *riskRepository) GetByID(ctx context.Context, id string) (domain.Risk, error) {
	var rec riskModel
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Risk{}, domain.ErrNotFound
		}
		return domain.Risk{}, err
	}
	return toDomainRisk(rec), nil
}

func (r *riskRepository) List(ctx context.Context, q ports.RecordQuery) ([]domain.Risk, int64, error) {
	base := r.db.WithContext(ctx).Model(&riskModel{}).Where("deleted_at IS NULL")
	if q.Status != "" {
		base = base.Where("status = ?", string(q.Status))
	}
	if q.RiskLevel != "" {
		base = base.Where("risk_level = ?", string(q.RiskLevel))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		base = base.Where("title ILIKE ?", "%"+escapeLike(s)+"%")
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []riskModel
	if err := base.Session(&gorm.Session{}).
		Order(orderClause(riskSortColumns, q.SortBy, q.SortOrder, "last_modified")).
		Scopes(pageScope(q.Limit, q.Offset)).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	result := make([]domain.Risk, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainRisk(row))
	}
	return result, total, nil
}

func (r *riskRepository) Update(ctx context.Context, id string, upd ports.RiskUpdate, modifiedBy uuid.UUID, at time.Time, event domain.AuditEvent) (domain.Risk, error) {
	var result domain.Risk
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := r.lockLive(tx, id)
		if err != nil {
			return err
		}

		score, level := domain.ScoreRisk(upd.Severity, upd.Probability)
		rec.Title = upd.Title
		rec.Description = upd.Description
		rec.Severity = upd.Severity
		rec.Probability = upd.Probability
		rec.RiskScore = score
		rec.RiskLevel = string(level)
		rec.Mitigation = upd.Mitigation
		rec.Status = string(domain.StatusDraft)
		rec.LastModified = at
		rec.ModifiedBy = modifiedBy
		if err := tx.Model(&riskModel{}).Where("id = ?", id).Updates(map[string]any{
			"title":         upd.Title,
			"description":   upd.Description,
			"severity":      upd.Severity,
			"probability":   upd.Probability,
			"risk_score":    score,
			"risk_level":    string(level),
			"mitigation":    upd.Mitigation,
			"status":        rec.Status,
			"last_modified": at,
			"modified_by":   modifiedBy,
		}).Error; err != nil {
			return err
		}

		if err := appendAudit(tx, event); err != nil {
			return err
		}

		result = toDomainRisk(rec)
		return nil
	})
	if err != nil {
		return domain.Risk{}, err
	}
	return result, nil
}

func (r *riskRepository) Approve(ctx context.Context, id string, approvedBy uuid.UUID, notes string, at time.Time, event domain.AuditEvent) (domain.Risk, error) {
	var result domain.Risk
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
		if err := tx.Model(&riskModel{}).Where("id = ?", id).Updates(map[string]any{
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

		result = toDomainRisk(rec)
		return nil
	})
	if err != nil {
		return domain.Risk{}, err
	}
	return result, nil
}

func (r *riskRepository) SoftDelete(ctx context.Context, id string, at time.Time, event domain.AuditEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&riskModel{}).
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

func (r *riskRepository) lockLive(tx *gorm.DB, id string) (riskModel, error) {
	var rec riskModel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return riskModel{}, domain.ErrNotFound
		}
		return riskModel{}, err
	}
	return rec, nil
}
