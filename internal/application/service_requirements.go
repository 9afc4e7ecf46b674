package application

import (
	"context"
	"strings"

	"github.com/reqquli/reqquli/internal/domain"
	"github.com/reqquli/reqquli/internal/ports"
)

// User and system requirements share one lifecycle; the public methods pin the
// kind and table, the private helpers do the work.

func (s *Service) CreateUserRequirement(ctx context.Context, actor Actor, req CreateRecordRequest) (RequirementItem, error) {
	return s.createRequirement(ctx, s.userRequirements, domain.KindUserRequirement, actor, req)
}

func (s *Service) CreateSystemRequirement(ctx context.Context, actor Actor, req CreateRecordRequest) (RequirementItem, error) {
	return s.createRequirement(ctx, s.systemRequirements, domain.KindSystemRequirement, actor, req)
}

func (s *Service) GetUserRequirement(ctx context.Context, id string) (RequirementItem, error) {
	return s.getRequirement(ctx, s.userRequirements, domain.KindUserRequirement, id)
}

func (s *Service) GetSystemRequirement(ctx context.Context, id string) (RequirementItem, error) {
	return s.getRequirement(ctx, s.systemRequirements, domain.KindSystemRequirement, id)
}

func (s *Service) ListUserRequirements(ctx context.Context, q ListQuery) (RequirementListResponse, error) {
	return s.listRequirements(ctx, s.userRequirements, q)
}

func (s *Service) ListSystemRequirements(ctx context.Context, q ListQuery) (RequirementListResponse, error) {
	return s.listRequirements(ctx, s.systemRequirements, q)
}

func (s *Service) UpdateUserRequirement(ctx context.Context, actor Actor, id string, req UpdateRecordRequest) (RequirementItem, error) {
	return s.updateRequirement(ctx, s.userRequirements, domain.KindUserRequirement, actor, id, req)
}

func (s *Service) UpdateSystemRequirement(ctx context.Context, actor Actor, id string, req UpdateRecordRequest) (RequirementItem, error) {
	return s.updateRequirement(ctx, s.systemRequirements, domain.KindSystemRequirement, actor, id, req)
}

func (s *Service) ApproveUserRequirement(ctx context.Context, actor Actor, id string, req ApproveRequest) (RequirementItem, error) {
	return s.approveRequirement(ctx, s.userRequirements, domain.KindUserRequirement, actor, id, req)
}

func (s *Service) ApproveSystemRequirement(ctx context.Context, actor Actor, id string, req ApproveRequest) (RequirementItem, error) {
	return s.approveRequirement(ctx, s.systemRequirements, domain.KindSystemRequirement, actor, id, req)
}

func (s *Service) DeleteUserRequirement(ctx context.Context, actor Actor, id string, req DeleteRequest) error {
	return s.deleteRequirement(ctx, s.userRequirements, domain.KindUserRequirement, actor, id, req)
}

func (s *Service) DeleteSystemRequirement(ctx context.Context, actor Actor, id string, req DeleteRequest) error {
	return s.deleteRequirement(ctx, s.systemRequirements, domain.KindSystemRequirement, actor, id, req)
}

func (s *Service) createRequirement(ctx context.Context, repo ports.RequirementRepository, kind domain.RecordKind, actor Actor, req CreateRecordRequest) (RequirementItem, error) {
	title := strings.TrimSpace(req.Title)
	if err := domain.ValidateTitle(title); err != nil {
		return RequirementItem{}, err
	}
	if err := domain.ValidateDescription(req.Description); err != nil {
		return RequirementItem{}, err
	}

	now := s.nowFn()
	draft := domain.Requirement{
		Kind:         kind,
		Title:        title,
		Description:  req.Description,
		CreatedAt:    now,
		CreatedBy:    actor.UserID,
		LastModified: now,
		ModifiedBy:   actor.UserID,
	}
	event := s.newAuditEvent(actor, string(kind), domain.AuditCreated, "", map[string]any{
		"title": title,
	})

	rec, err := repo.Create(ctx, draft, event)
	if err != nil {
		return RequirementItem{}, err
	}
	return toRequirementItem(rec), nil
}

func (s *Service) getRequirement(ctx context.Context, repo ports.RequirementRepository, kind domain.RecordKind, id string) (RequirementItem, error) {
	if err := ensureKind(id, kind); err != nil {
		return RequirementItem{}, err
	}
	rec, err := repo.GetByID(ctx, id)
	if err != nil {
		return RequirementItem{}, err
	}
	return toRequirementItem(rec), nil
}

func (s *Service) listRequirements(ctx context.Context, repo ports.RequirementRepository, q ListQuery) (RequirementListResponse, error) {
	query, page, limit, err := recordQueryFrom(q)
	if err != nil {
		return RequirementListResponse{}, err
	}
	records, total, err := repo.List(ctx, query)
	if err != nil {
		return RequirementListResponse{}, err
	}

	items := make([]RequirementItem, 0, len(records))
	for _, rec := range records {
		items = append(items, toRequirementItem(rec))
	}
	return RequirementListResponse{
		Requirements: items,
		Pagination:   paginationFor(page, limit, total),
	}, nil
}

func (s *Service) updateRequirement(ctx context.Context, repo ports.RequirementRepository, kind domain.RecordKind, actor Actor, id string, req UpdateRecordRequest) (RequirementItem, error) {
	if err := ensureKind(id, kind); err != nil {
		return RequirementItem{}, err
	}
	title := strings.TrimSpace(req.Title)
	if err := domain.ValidateTitle(title); err != nil {
		return RequirementItem{}, err
	}
	if err := domain.ValidateDescription(req.Description); err != nil {
		return RequirementItem{}, err
	}

	event := s.newAuditEvent(actor, string(kind), domain.AuditUpdated, id, map[string]any{
		"title": title,
	})
	rec, err := repo.Update(ctx, id, title, req.Description, actor.UserID, s.nowFn(), event)
	if err != nil {
		return RequirementItem{}, err
	}
	return toRequirementItem(rec), nil
}

func (s *Service) approveRequirement(ctx context.Context, repo ports.RequirementRepository, kind domain.RecordKind, actor Actor, id string, req ApproveRequest) (RequirementItem, error) {
	if err := ensureKind(id, kind); err != nil {
		return RequirementItem{}, err
	}
	if err := domain.ValidateApprovalNotes(req.ApprovalNotes); err != nil {
		return RequirementItem{}, err
	}
	if err := s.confirmPassword(ctx, actor.UserID, req.Password); err != nil {
		return RequirementItem{}, err
	}

	event := s.newAuditEvent(actor, string(kind), domain.AuditApproved, id, map[string]any{
		"approval_notes": req.ApprovalNotes,
	})
	rec, err := repo.Approve(ctx, id, actor.UserID, req.ApprovalNotes, s.nowFn(), event)
	if err != nil {
		return RequirementItem{}, err
	}
	return toRequirementItem(rec), nil
}

func (s *Service) deleteRequirement(ctx context.Context, repo ports.RequirementRepository, kind domain.RecordKind, actor Actor, id string, req DeleteRequest) error {
	if err := ensureKind(id, kind); err != nil {
		return err
	}
	if err := s.confirmPassword(ctx, actor.UserID, req.Password); err != nil {
		return err
	}

	event := s.newAuditEvent(actor, string(kind), domain.AuditDeleted, id, nil)
	return repo.SoftDelete(ctx, id, s.nowFn(), event)
}

// ensureKind rejects IDs from the wrong collection. A well-formed ID of
// another kind is a miss, not a validation error: the record does not exist
// under this collection.
func ensureKind(id string, want domain.RecordKind) error {
	kind, err := domain.KindFromID(id)
	if err != nil {
		return err
	}
	if kind != want {
		return domain.ErrNotFound
	}
	return nil
}
