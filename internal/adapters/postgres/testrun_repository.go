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

type testRunRepository struct {
	db *gorm.DB
}

var testRunSortColumns = map[string]string{
	"id":           "id",
	"name":         "name",
	"title":        "name",
	"createdAt":    "created_at",
	"lastModified": "last_modified",
}

func (r *testRunRepository) Create(ctx context.Context, run domain.TestRun, testCaseIDs []string, event domain.AuditEvent) (domain.TestRun, error) {
	var result domain.TestRun
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := nextRecordID(tx, domain.KindTestRun)
		if err != nil {
			return err
		}
		rec := testRunModel{
			ID:           id,
			Name:         run.Name,
			Description:  run.Description,
			Status:       string(domain.TestRunPending),
			Revision:     0,
			CreatedAt:    run.CreatedAt,
			CreatedBy:    run.CreatedBy,
			LastModified: run.CreatedAt,
			ModifiedBy:   run.CreatedBy,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}

		for _, caseID := range testCaseIDs {
			var tc testCaseModel
			if err := tx.Where("id = ?", caseID).Where("deleted_at IS NULL").Take(&tc).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: test case %s not found", domain.ErrNotFound, caseID)
				}
				return err
			}
			if tc.Status != string(domain.StatusApproved) {
				return fmt.Errorf("%w: test case %s is not approved", domain.ErrConflict, caseID)
			}

			steps, err := loadStepsTx(tx, caseID)
			if err != nil {
				return err
			}
			if len(steps) == 0 {
				return fmt.Errorf("%w: test case %s has no steps", domain.ErrConflict, caseID)
			}

			runCase := testRunCaseModel{
				TestRunID:    id,
				TestCaseID:   caseID,
				CaseTitle:    tc.Title,
				CaseRevision: tc.Revision,
			}
			if err := tx.Create(&runCase).Error; err != nil {
				return err
			}

			snapshots := make([]testRunStepModel, 0, len(steps))
			for _, s := range steps {
				snapshots = append(snapshots, testRunStepModel{
					TestRunID:      id,
					TestCaseID:     caseID,
					Position:       s.Position,
					Action:         s.Action,
					ExpectedResult: s.ExpectedResult,
				})
			}
			if err := tx.Create(&snapshots).Error; err != nil {
				return err
			}
		}

		event.EntityID = id
		if err := appendAudit(tx, event); err != nil {
			return err
		}

		result = toDomainTestRun(rec)
		return nil
	})
	if err != nil {
		return domain.TestRun{}, err
	}
	return result, nil
}

func (r *testRunRepository) GetByID(ctx context.Context, id string) (domain.TestRun, error) {
	var rec testRunModel
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.TestRun{}, domain.ErrNotFound
		}
		return domain.TestRun{}, err
	}
	return toDomainTestRun(rec), nil
}

func (r *testRunRepository) List(ctx context.Context, q ports.RecordQuery) ([]domain.TestRun, int64, error) {
	base := r.db.WithContext(ctx).Model(&testRunModel{}).Where("deleted_at IS NULL")
	if q.Status != "" {
		base = base.Where("status = ?", string(q.Status))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		base = base.Where("name ILIKE ?", "%"+escapeLike(s)+"%")
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []testRunModel
	if err := base.Session(&gorm.Session{}).
		Order(orderClause(testRunSortColumns, q.SortBy, q.SortOrder, "last_modified")).
		Scopes(pageScope(q.Limit, q.Offset)).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	result := make([]domain.TestRun, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainTestRun(row))
	}
	return result, total, nil
}

func (r *testRunRepository) ListCases(ctx context.Context, runID string) ([]domain.TestRunCase, error) {
	var rows []testRunCaseModel
	if err := r.db.WithContext(ctx).
		Where("test_run_id = ?", runID).
		Order("test_case_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.TestRunCase, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainTestRunCase(row))
	}
	return result, nil
}

func (r *testRunRepository) ListSteps(ctx context.Context, runID string) ([]domain.TestRunStep, error) {
	var rows []testRunStepModel
	if err := r.db.WithContext(ctx).
		Where("test_run_id = ?", runID).
		Order("test_case_id ASC, position ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.TestRunStep, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainTestRunStep(row))
	}
	return result, nil
}

func (r *testRunRepository) RecordStepResult(ctx context.Context, runID, caseID string, position int, status domain.TestResult, actualResult string, recordedBy uuid.UUID, at time.Time, event domain.AuditEvent) (domain.TestRunStep, error) {
	var result domain.TestRunStep
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		run, err := r.lockLive(tx, runID)
		if err != nil {
			return err
		}
		if run.Status == string(domain.TestRunApproved) {
			return fmt.Errorf("%w: test run is already approved", domain.ErrConflict)
		}

		res := tx.Model(&testRunStepModel{}).
			Where("test_run_id = ?", runID).
			Where("test_case_id = ?", caseID).
			Where("position = ?", position).
			Updates(map[string]any{
				"status":        string(status),
				"actual_result": actualResult,
				"recorded_at":   at,
				"recorded_by":   recordedBy,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: step not found in run", domain.ErrNotFound)
		}

		if err := rollupRunCase(tx, runID, caseID, at); err != nil {
			return err
		}
		if err := rollupRun(tx, run, recordedBy, at); err != nil {
			return err
		}

		if err := appendAudit(tx, event); err != nil {
			return err
		}

		var updated testRunStepModel
		if err := tx.Where("test_run_id = ?", runID).
			Where("test_case_id = ?", caseID).
			Where("position = ?", position).
			Take(&updated).Error; err != nil {
			return err
		}
		result = toDomainTestRunStep(updated)
		return nil
	})
	if err != nil {
		return domain.TestRunStep{}, err
	}
	return result, nil
}

func (r *testRunRepository) Approve(ctx context.Context, id string, approvedBy uuid.UUID, notes string, at time.Time, event domain.AuditEvent) (domain.TestRun, error) {
	var result domain.TestRun
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := r.lockLive(tx, id)
		if err != nil {
			return err
		}
		if rec.Status != string(domain.TestRunComplete) {
			return fmt.Errorf("%w: only completed test runs can be approved", domain.ErrConflict)
		}

		rec.Status = string(domain.TestRunApproved)
		rec.Revision++
		rec.ApprovedAt = &at
		rec.ApprovedBy = &approvedBy
		rec.ApprovalNotes = notes
		rec.LastModified = at
		rec.ModifiedBy = approvedBy
		if err := tx.Model(&testRunModel{}).Where("id = ?", id).Updates(map[string]any{
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

		// Approval proves which cases were executed, so the case-to-run edges
		// are written here, not by hand.
		var cases []testRunCaseModel
		if err := tx.Where("test_run_id = ?", id).Find(&cases).Error; err != nil {
			return err
		}
		for _, c := range cases {
			trace := traceModel{
				FromID:            c.TestCaseID,
				FromKind:          string(domain.KindTestCase),
				ToID:              id,
				ToKind:            string(domain.KindTestRun),
				CreatedBy:         approvedBy,
				CreatedAt:         at,
				IsSystemGenerated: true,
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&trace).Error; err != nil {
				return err
			}
		}

		if err := appendAudit(tx, event); err != nil {
			return err
		}

		result = toDomainTestRun(rec)
		return nil
	})
	if err != nil {
		return domain.TestRun{}, err
	}
	return result, nil
}

func (r *testRunRepository) SoftDelete(ctx context.Context, id string, at time.Time, event domain.AuditEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&testRunModel{}).
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

func (r *testRunRepository) lockLive(tx *gorm.DB, id string) (testRunModel, error) {
	var rec testRunModel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return testRunModel{}, domain.ErrNotFound
		}
		return testRunModel{}, err
	}
	return rec, nil
}

// rollupRunCase recomputes one run-case verdict from its step rows.
// The case completes when no step is left unrecorded and passes only when no
// step failed.
func rollupRunCase(tx *gorm.DB, runID, caseID string, at time.Time) error {
	var pending, failed int64
	if err := tx.Model(&testRunStepModel{}).
		Where("test_run_id = ?", runID).
		Where("test_case_id = ?", caseID).
		Where("status = ''").
		Count(&pending).Error; err != nil {
		return err
	}
	if err := tx.Model(&testRunStepModel{}).
		Where("test_run_id = ?", runID).
		Where("test_case_id = ?", caseID).
		Where("status = ?", string(domain.ResultFail)).
		Count(&failed).Error; err != nil {
		return err
	}

	updates := map[string]any{"result": "", "completed_at": nil}
	if pending == 0 {
		verdict := domain.ResultPass
		if failed > 0 {
			verdict = domain.ResultFail
		}
		updates["result"] = string(verdict)
		updates["completed_at"] = at
	}
	return tx.Model(&testRunCaseModel{}).
		Where("test_run_id = ?", runID).
		Where("test_case_id = ?", caseID).
		Updates(updates).Error
}

// rollupRun recomputes run status and overall result from its case rows.
func rollupRun(tx *gorm.DB, run testRunModel, actor uuid.UUID, at time.Time) error {
	var pending, failed int64
	if err := tx.Model(&testRunCaseModel{}).
		Where("test_run_id = ?", run.ID).
		Where("result = ''").
		Count(&pending).Error; err != nil {
		return err
	}
	if err := tx.Model(&testRunCaseModel{}).
		Where("test_run_id = ?", run.ID).
		Where("result = ?", string(domain.ResultFail)).
		Count(&failed).Error; err != nil {
		return err
	}

	status := string(domain.TestRunInProgress)
	overall := ""
	if pending == 0 {
		status = string(domain.TestRunComplete)
		if failed > 0 {
			overall = string(domain.ResultFail)
		} else {
			overall = string(domain.ResultPass)
		}
	}
	return tx.Model(&testRunModel{}).
		Where("id = ?", run.ID).
		Updates(map[string]any{
			"status":         status,
			"overall_result": overall,
			"last_modified":  at,
			"modified_by":    actor,
		}).Error
}
