package application

import (
	"context"
	"strings"

	"github.com/reqquli/reqquli/internal/domain"
	"github.com/reqquli/reqquli/internal/ports"
)

func (s *Service) CreateRisk(ctx context.Context, actor Actor, req CreateRiskRequest) (RiskItem, error) {
	title := strings.TrimSpace(req.Title)
	if err := domain.ValidateTitle(title); err != nil {
		return RiskItem{}, err
	}
	if err := domain.ValidateDescription(req.Description); err != nil {
		return RiskItem{}, err
	}
	if err := domain.ValidateRiskFactor("severity", req.Severity); err != nil {
		return RiskItem{}, err
	}
	if err := domain.ValidateRiskFactor("probability", req.Probability); err != nil {
		return RiskItem{}, err
	}
	if err := domain.ValidateDescription(req.Mitigation); err != nil {
		return RiskItem{}, err
	}

	score, level := domain.ScoreRisk(req.Severity, req.Probability)
	now := s.nowFn()
	draft := domain.Risk{
		Title:        title,
		Description:  req.Description,
		Severity:     req.Severity,
		Probability:  req.Probability,
		RiskScore:    score,
		RiskLevel:    level,
		Mitigation:   req.Mitigation,
		CreatedAt:    now,
		CreatedBy:    actor.UserID,
		LastModified: now,
		ModifiedBy:   actor.UserID,
	}
	event := s.newAuditEvent(actor, string(domain.KindRisk), domain.AuditCreated, "", map[string]any{
		"title":      title,
		"risk_score": score,
		"risk_level": string(level),
	})

	rec, err := s.risks.Create(ctx, draft, event)
	if err != nil {
		return RiskItem{}, err
	}
	return toRiskItem(rec), nil
}

func (s *Service) GetRisk(ctx context.Context, id string) (RiskItem, error) {
	if err := ensureKind(id, domain.KindRisk); err != nil {
		return RiskItem{}, err
	}
	rec, err := s.risks.GetByID(ctx, id)
	if err != nil {
		return RiskItem{}, err
	}
	return toRiskItem(rec), nil
}

func (s *Service) ListRisks(ctx context.Context, q ListQuery) (RiskListResponse, error) {
	query, page, limit, err := recordQueryFrom(q)
	if err != nil {
		return RiskListResponse{}, err
	}
	records, total, err := s.risks.List(ctx, query)
	if err != nil {
		return RiskListResponse{}, err
	}

	items := make([]RiskItem, 0, len(records))
	for _, rec := range records {
		items = append(items, toRiskItem(rec))
	}
	return RiskListResponse{
		Risks:      items,
		Pagination: paginationFor(page, limit, total),
	}, nil
}

// UpdateRisk replaces the editable fields and recomputes score and level, so
// stored derivations never drift from their inputs.
func (s *Service) UpdateRisk(ctx context.Context, actor Actor, id string, req UpdateRiskRequest) (RiskItem, error) {
	if err := ensureKind(id, domain.KindRisk); err != nil {
		return RiskItem{}, err
	}
	title := strings.TrimSpace(req.Title)
	if err := domain.ValidateTitle(title); err != nil {
		return RiskItem{}, err
	}
	if err := domain.ValidateDescription(req.Description); err != nil {
		return RiskItem{}, err
	}
	if err := domain.ValidateRiskFactor("severity", req.Severity); err != nil {
		return RiskItem{}, err
	}
	if err := domain.ValidateRiskFactor("probability", req.Probability); err != nil {
		return RiskItem{}, err
	}
	if err := domain.ValidateDescription(req.Mitigation); err != nil {
		return RiskItem{}, err
	}

	score, level := domain.ScoreRisk(req.Severity, req.Probability)
	event := s.newAuditEvent(actor, string(domain.KindRisk), domain.AuditUpdated, id, map[string]any{
		"title":      title,
		"risk_score": score,
		"risk_level": string(level),
	})
	rec, err := s.risks.Update(ctx, id, ports.RiskUpdate{
		Title:       title,
		Description: req.Description,
		Severity:    req.Severity,
		Probability: req.Probability,
		Mitigation:  req.Mitigation,
	}, actor.UserID, s.nowFn(), event)
	if err != nil {
		return RiskItem{}, err
	}
	return toRiskItem(rec), nil
}

func (s *Service) ApproveRisk(ctx context.Context, actor Actor, id string, req ApproveRequest) (RiskItem, error) {
	if err := ensureKind(id, domain.KindRisk); err != nil {
		return RiskItem{}, err
	}
	if err := domain.ValidateApprovalNotes(req.ApprovalNotes); err != nil {
		return RiskItem{}, err
	}
	if err := s.confirmPassword(ctx, actor.UserID, req.Password); err != nil {
		return RiskItem{}, err
	}

	event := s.newAuditEvent(actor, string(domain.KindRisk), domain.AuditApproved, id, map[string]any{
		"approval_notes": req.ApprovalNotes,
	})
	rec, err := s.risks.Approve(ctx, id, actor.UserID, req.ApprovalNotes, s.nowFn(), event)
	if err != nil {
		return RiskItem{}, err
	}
	return toRiskItem(rec), nil
}

func (s *Service) DeleteRisk(ctx context.Context, actor Actor, id string, req DeleteRequest) error {
	if err := ensureKind(id, domain.KindRisk); err != nil {
		return err
	}
	if err := s.confirmPassword(ctx, actor.UserID, req.Password); err != nil {
		return err
	}

	event := s.newAuditEvent(actor, string(domain.KindRisk), domain.AuditDeleted, id, nil)
	return s.risks.SoftDelete(ctx, id, s.nowFn(), event)
}
