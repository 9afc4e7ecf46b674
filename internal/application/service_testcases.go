package application

import (
	"context"
	"strings"

	"github.com/reqquli/reqquli/internal/domain"
)

func (s *Service) CreateTestCase(ctx context.Context, actor Actor, req CreateTestCaseRequest) (TestCaseItem, error) {
	title := strings.TrimSpace(req.Title)
	if err := domain.ValidateTitle(title); err != nil {
		return TestCaseItem{}, err
	}
	if err := domain.ValidateDescription(req.Description); err != nil {
		return TestCaseItem{}, err
	}
	steps := stepsFromInputs(req.Steps)
	if err := domain.ValidateTestSteps(steps); err != nil {
		return TestCaseItem{}, err
	}

	now := s.nowFn()
	draft := domain.TestCase{
		Title:        title,
		Description:  req.Description,
		Steps:        steps,
		CreatedAt:    now,
		CreatedBy:    actor.UserID,
		LastModified: now,
		ModifiedBy:   actor.UserID,
	}
	event := s.newAuditEvent(actor, string(domain.KindTestCase), domain.AuditCreated, "", map[string]any{
		"title":      title,
		"step_count": len(steps),
	})

	rec, err := s.testCases.Create(ctx, draft, event)
	if err != nil {
		return TestCaseItem{}, err
	}
	return toTestCaseItem(rec), nil
}

func (s *Service) GetTestCase(ctx context.Context, id string) (TestCaseItem, error) {
	if err := ensureKind(id, domain.KindTestCase); err != nil {
		return TestCaseItem{}, err
	}
	rec, err := s.testCases.GetByID(ctx, id)
	if err != nil {
		return TestCaseItem{}, err
	}
	return toTestCaseItem(rec), nil
}

func (s *Service) ListTestCases(ctx context.Context, q ListQuery) (TestCaseListResponse, error) {
	query, page, limit, err := recordQueryFrom(q)
	if err != nil {
		return TestCaseListResponse{}, err
	}
	records, total, err := s.testCases.List(ctx, query)
	if err != nil {
		return TestCaseListResponse{}, err
	}

	items := make([]TestCaseItem, 0, len(records))
	for _, rec := range records {
		items = append(items, toTestCaseItem(rec))
	}
	return TestCaseListResponse{
		TestCases:  items,
		Pagination: paginationFor(page, limit, total),
	}, nil
}

// UpdateTestCase replaces title, description, and the entire step list.
// Steps are renumbered from the submitted order, so callers never manage
// positions themselves.
func (s *Service) UpdateTestCase(ctx context.Context, actor Actor, id string, req UpdateTestCaseRequest) (TestCaseItem, error) {
	if err := ensureKind(id, domain.KindTestCase); err != nil {
		return TestCaseItem{}, err
	}
	title := strings.TrimSpace(req.Title)
	if err := domain.ValidateTitle(title); err != nil {
		return TestCaseItem{}, err
	}
	if err := domain.ValidateDescription(req.Description); err != nil {
		return TestCaseItem{}, err
	}
	steps := stepsFromInputs(req.Steps)
	if err := domain.ValidateTestSteps(steps); err != nil {
		return TestCaseItem{}, err
	}

	event := s.newAuditEvent(actor, string(domain.KindTestCase), domain.AuditUpdated, id, map[string]any{
		"title":      title,
		"step_count": len(steps),
	})
	rec, err := s.testCases.Update(ctx, id, title, req.Description, steps, actor.UserID, s.nowFn(), event)
	if err != nil {
		return TestCaseItem{}, err
	}
	return toTestCaseItem(rec), nil
}

func (s *Service) ApproveTestCase(ctx context.Context, actor Actor, id string, req ApproveRequest) (TestCaseItem, error) {
	if err := ensureKind(id, domain.KindTestCase); err != nil {
		return TestCaseItem{}, err
	}
	if err := domain.ValidateApprovalNotes(req.ApprovalNotes); err != nil {
		return TestCaseItem{}, err
	}
	if err := s.confirmPassword(ctx, actor.UserID, req.Password); err != nil {
		return TestCaseItem{}, err
	}

	event := s.newAuditEvent(actor, string(domain.KindTestCase), domain.AuditApproved, id, map[string]any{
		"approval_notes": req.ApprovalNotes,
	})
	rec, err := s.testCases.Approve(ctx, id, actor.UserID, req.ApprovalNotes, s.nowFn(), event)
	if err != nil {
		return TestCaseItem{}, err
	}
	return toTestCaseItem(rec), nil
}

func (s *Service) DeleteTestCase(ctx context.Context, actor Actor, id string, req DeleteRequest) error {
	if err := ensureKind(id, domain.KindTestCase); err != nil {
		return err
	}
	if err := s.confirmPassword(ctx, actor.UserID, req.Password); err != nil {
		return err
	}

	event := s.newAuditEvent(actor, string(domain.KindTestCase), domain.AuditDeleted, id, nil)
	return s.testCases.SoftDelete(ctx, id, s.nowFn(), event)
}
