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

type testCaseRepository struct {
	db *gorm.DB
}

var testCaseSortColumns = map[string]string{
	"id":           "id",
	"title":        "title",
	"createdAt":    "created_at",
	"lastModified": "last_modified",
}

func (r *testCaseRepository) Create(ctx context.Context, draft domain.TestCase, event domain.AuditEvent) (domain.TestCase, error) {
	var result domain.TestCase
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := nextRecordID(tx, domain.KindTestCase)
		if err != nil {
			return err
		}
		rec := testCaseModel{
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
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}

		steps, err := insertSteps(tx, id, draft.Steps)
		if err != nil {
			return err
		}

		event.EntityID = id
		if err := appendAudit(tx, event); err != nil {
			return err
		}

		result = toDomainTestCase(rec, steps)
		return nil
	})
	if err != nil {
		return domain.TestCase{}, err
	}
	return result, nil
}

func (r *testCaseRepository) GetByID(ctx context.Context, id string) (domain.TestCase, error) {
	var rec testCaseModel
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.TestCase{}, domain.ErrNotFound
		}
		return domain.TestCase{}, err
	}

	steps, err := r.loadSteps(ctx, id)
	if err != nil {
		return domain.TestCase{}, err
	}
	return toDomainTestCase(rec, steps), nil
}

func (r *testCaseRepository) List(ctx context.Context, q ports.RecordQuery) ([]domain.TestCase, int64, error) {
	base := r.db.WithContext(ctx).Model(&testCaseModel{}).Where("deleted_at IS NULL")
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

	var rows []testCaseModel
	if err := base.Session(&gorm.Session{}).
		Order(orderClause(testCaseSortColumns, q.SortBy, q.SortOrder, "last_modified")).
		Scopes(pageScope(q.Limit, q.Offset)).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	// Step bodies stay out of list responses; only the case rows are needed.
	result := make([]domain.TestCase, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainTestCase(row, nil))
	}
	return result, total, nil
}

func (r *testCaseRepository) Update(ctx context.Context, id, title, description string, steps []domain.TestStep, modifiedBy uuid.UUID, at time.Time, event domain.AuditEvent) (domain.TestCase, error) {
	var result domain.TestCase
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := r.lockLive(tx, id)
		if err != nil {
			return err
		}

		rec.Title = title
		rec.Description = description
		rec.Status = string(domain.StatusDraft)
		rec.LastModified = at
		rec.ModifiedBy = modifiedBy
		if err := tx.Model(&testCaseModel{}).Where("id = ?", id).Updates(map[string]any{
			"title":         title,
			"description":   description,
			"status":        rec.Status,
			"last_modified": at,
			"modified_by":   modifiedBy,
		}).Error; err != nil {
			return err
		}

		// Steps are replaced wholesale; partial step edits do not exist.
		if err := tx.Where("test_case_id = ?", id).Delete(&testStepModel{}).Error; err != nil {
			return err
		}
		inserted, err := insertSteps(tx, id, steps)
		if err != nil {
			return err
		}

		if err := appendAudit(tx, event); err != nil {
			return err
		}

		result = toDomainTestCase(rec, inserted)
		return nil
	})
	if err != nil {
		return domain.TestCase{}, err
	}
	return result, nil
}

func (r *testCaseRepository) Approve(ctx context.Context, id string, approvedBy uuid.UUID, notes string, at time.Time, event domain.AuditEvent) (domain.TestCase, error) {
	var result domain.TestCase
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := r.lockLive(tx, id)
		if err != nil {
			return err
		}
		if rec.Status != string(domain.StatusDraft) {
			return fmt.Errorf("%w: only draft records can be approved", domain.ErrConflict)
		}

		var stepCount int64
		if err := tx.Model(&testStepModel{}).Where("test_case_id = ?", id).Count(&stepCount).Error; err != nil {
			return err
		}
		if stepCount == 0 {
			return fmt.Errorf("%w: test case has no steps", domain.ErrConflict)
		}

		rec.Status = string(domain.StatusApproved)
		rec.Revision++
		rec.ApprovedAt = &at
		rec.ApprovedBy = &approvedBy
		rec.ApprovalNotes = notes
		rec.LastModified = at
		rec.ModifiedBy = approvedBy
		if err := tx.Model(&testCaseModel{}).Where("id = ?", id).Updates(map[string]any{
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

		steps, err := loadStepsTx(tx, id)
		if err != nil {
			return err
		}
		result = toDomainTestCase(rec, steps)
		return nil
	})
	if err != nil {
		return domain.TestCase{}, err
	}
	return result, nil
}

func (r *testCaseRepository) SoftDelete(ctx context.Context, id string, at time.Time, event domain.AuditEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&testCaseModel{}).
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

func (r *testCaseRepository) lockLive(tx *gorm.DB, id string) (testCaseModel, error) {
	var rec testCaseModel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return testCaseModel{}, domain.ErrNotFound
		}
		return testCaseModel{}, err
	}
	return rec, nil
}

func (r *testCaseRepository) loadSteps(ctx context.Context, caseID string) ([]testStepModel, error) {
	return loadStepsTx(r.db.WithContext(ctx), caseID)
}

func loadStepsTx(tx *gorm.DB, caseID string) ([]testStepModel, error) {
	var rows []testStepModel
	if err := tx.Where("test_case_id = ?", caseID).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// insertSteps writes the step list with positions renumbered from 1.
func insertSteps(tx *gorm.DB, caseID string, steps []domain.TestStep) ([]testStepModel, error) {
	if len(steps) == 0 {
		return nil, nil
	}
	rows := make([]testStepModel, 0, len(steps))
	for i, s := range steps {
		rows = append(rows, testStepModel{
			TestCaseID:     caseID,
			Position:       i + 1,
			Action:         s.Action,
			ExpectedResult: s.ExpectedResult,
		})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
