package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/reqquli/reqquli/internal/domain"
)

func (s *Service) CreateTestRun(ctx context.Context, actor Actor, req CreateTestRunRequest) (TestRunItem, error) {
	name := strings.TrimSpace(req.Name)
	if err := domain.ValidateTitle(name); err != nil {
		return TestRunItem{}, err
	}
	if err := domain.ValidateDescription(req.Description); err != nil {
		return TestRunItem{}, err
	}
	if len(req.TestCaseIDs) == 0 {
		return TestRunItem{}, fmt.Errorf("%w: at least one test case is required", domain.ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(req.TestCaseIDs))
	for _, caseID := range req.TestCaseIDs {
		if err := ensureKind(caseID, domain.KindTestCase); err != nil {
			return TestRunItem{}, err
		}
		if _, dup := seen[caseID]; dup {
			return TestRunItem{}, fmt.Errorf("%w: test case %s listed twice", domain.ErrInvalidInput, caseID)
		}
		seen[caseID] = struct{}{}
	}

	now := s.nowFn()
	run := domain.TestRun{
		Name:         name,
		Description:  req.Description,
		Status:       domain.TestRunPending,
		CreatedAt:    now,
		CreatedBy:    actor.UserID,
		LastModified: now,
		ModifiedBy:   actor.UserID,
	}
	event := s.newAuditEvent(actor, string(domain.KindTestRun), domain.AuditCreated, "", map[string]any{
		"name":          name,
		"test_case_ids": req.TestCaseIDs,
	})

	created, err := s.testRuns.Create(ctx, run, req.TestCaseIDs, event)
	if err != nil {
		return TestRunItem{}, err
	}
	return toTestRunItem(created), nil
}

// GetTestRun returns the run with its case snapshots and every step outcome,
// grouped per case in execution order.
func (s *Service) GetTestRun(ctx context.Context, id string) (TestRunDetail, error) {
	if err := ensureKind(id, domain.KindTestRun); err != nil {
		return TestRunDetail{}, err
	}
	run, err := s.testRuns.GetByID(ctx, id)
	if err != nil {
		return TestRunDetail{}, err
	}
	cases, err := s.testRuns.ListCases(ctx, id)
	if err != nil {
		return TestRunDetail{}, err
	}
	steps, err := s.testRuns.ListSteps(ctx, id)
	if err != nil {
		return TestRunDetail{}, err
	}

	stepsByCase := make(map[string][]TestRunStepItem, len(cases))
	for _, st := range steps {
		stepsByCase[st.TestCaseID] = append(stepsByCase[st.TestCaseID], toTestRunStepItem(st))
	}
	caseItems := make([]TestRunCaseItem, 0, len(cases))
	for _, c := range cases {
		caseItems = append(caseItems, TestRunCaseItem{
			TestCaseID:   c.TestCaseID,
			CaseTitle:    c.CaseTitle,
			CaseRevision: c.CaseRevision,
			Result:       string(c.Result),
			CompletedAt:  c.CompletedAt,
			Steps:        stepsByCase[c.TestCaseID],
		})
	}
	return TestRunDetail{
		TestRunItem: toTestRunItem(run),
		Cases:       caseItems,
	}, nil
}

func (s *Service) ListTestRuns(ctx context.Context, q ListQuery) (TestRunListResponse, error) {
	query, page, limit, err := recordQueryFrom(q)
	if err != nil {
		return TestRunListResponse{}, err
	}
	records, total, err := s.testRuns.List(ctx, query)
	if err != nil {
		return TestRunListResponse{}, err
	}

	items := make([]TestRunItem, 0, len(records))
	for _, rec := range records {
		items = append(items, toTestRunItem(rec))
	}
	return TestRunListResponse{
		TestRuns:   items,
		Pagination: paginationFor(page, limit, total),
	}, nil
}

// RecordStepResult stores one executed step outcome. Re-recording a step of an
// unapproved run overwrites the previous outcome and recomputes the rollups.
func (s *Service) RecordStepResult(ctx context.Context, actor Actor, runID, caseID string, position int, req RecordStepResultRequest) (TestRunStepItem, error) {
	if err := ensureKind(runID, domain.KindTestRun); err != nil {
		return TestRunStepItem{}, err
	}
	if err := ensureKind(caseID, domain.KindTestCase); err != nil {
		return TestRunStepItem{}, err
	}
	if position < 1 {
		return TestRunStepItem{}, fmt.Errorf("%w: position must be >= 1", domain.ErrInvalidInput)
	}
	status := domain.TestResult(req.Status)
	if status != domain.ResultPass && status != domain.ResultFail {
		return TestRunStepItem{}, fmt.Errorf("%w: status must be pass or fail", domain.ErrInvalidInput)
	}
	if err := domain.ValidateActualResult(req.ActualResult); err != nil {
		return TestRunStepItem{}, err
	}

	event := s.newAuditEvent(actor, string(domain.KindTestRun), domain.AuditCaseResult, runID, map[string]any{
		"test_case_id": caseID,
		"position":     position,
		"status":       string(status),
	})
	step, err := s.testRuns.RecordStepResult(ctx, runID, caseID, position, status, req.ActualResult, actor.UserID, s.nowFn(), event)
	if err != nil {
		return TestRunStepItem{}, err
	}
	return toTestRunStepItem(step), nil
}

func (s *Service) ApproveTestRun(ctx context.Context, actor Actor, id string, req ApproveRequest) (TestRunItem, error) {
	if err := ensureKind(id, domain.KindTestRun); err != nil {
		return TestRunItem{}, err
	}
	if err := domain.ValidateApprovalNotes(req.ApprovalNotes); err != nil {
		return TestRunItem{}, err
	}
	if err := s.confirmPassword(ctx, actor.UserID, req.Password); err != nil {
		return TestRunItem{}, err
	}

	event := s.newAuditEvent(actor, string(domain.KindTestRun), domain.AuditApproved, id, map[string]any{
		"approval_notes": req.ApprovalNotes,
	})
	run, err := s.testRuns.Approve(ctx, id, actor.UserID, req.ApprovalNotes, s.nowFn(), event)
	if err != nil {
		return TestRunItem{}, err
	}
	return toTestRunItem(run), nil
}

func (s *Service) DeleteTestRun(ctx context.Context, actor Actor, id string, req DeleteRequest) error {
	if err := ensureKind(id, domain.KindTestRun); err != nil {
		return err
	}
	if err := s.confirmPassword(ctx, actor.UserID, req.Password); err != nil {
		return err
	}

	event := s.newAuditEvent(actor, string(domain.KindTestRun), domain.AuditDeleted, id, nil)
	return s.testRuns.SoftDelete(ctx, id, s.nowFn(), event)
}
