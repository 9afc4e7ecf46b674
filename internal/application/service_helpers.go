package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/reqquli/reqquli/internal/domain"
	"github.com/reqquli/reqquli/internal/ports"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// confirmPassword is the signing gate on approvals and deletions: the caller
// re-enters their password and we compare it against the same hash used at
// login. Failures are indistinguishable from a login mismatch.
func (s *Service) confirmPassword(ctx context.Context, userID uuid.UUID, password string) error {
	if password == "" {
		return fmt.Errorf("%w: password confirmation is required", domain.ErrInvalidInput)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.ErrUnauthorized
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return domain.ErrInvalidCredentials
	}
	return nil
}

// newAuditEvent composes the audit row written alongside a mutation.
// Action is entity type + "." + verb, e.g. "user-requirement.approved".
func (s *Service) newAuditEvent(actor Actor, entityType, verb, entityID string, payload map[string]any) domain.AuditEvent {
	return domain.AuditEvent{
		EventID:    uuid.New(),
		EntityID:   entityID,
		EntityType: entityType,
		Action:     entityType + "." + verb,
		ActorID:    actor.UserID,
		ActorEmail: actor.Email,
		Payload:    payload,
		OccurredAt: s.nowFn(),
	}
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func paginationFor(page, limit int, total int64) Pagination {
	pages := int((total + int64(limit) - 1) / int64(limit))
	if pages < 1 {
		pages = 1
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// recordQueryFrom validates and normalizes a list query into the repository
// filter. The sort key allow-list lives in the repositories; status and level
// are checked here because unknown values would silently return empty pages.
func recordQueryFrom(q ListQuery) (ports.RecordQuery, int, int, error) {
	page, limit := clampPage(q.Page, q.Limit)

	out := ports.RecordQuery{
		Search:    strings.TrimSpace(q.Search),
		SortBy:    strings.TrimSpace(q.SortBy),
		SortOrder: strings.TrimSpace(q.SortOrder),
		Limit:     limit,
		Offset:    (page - 1) * limit,
	}

	switch status := strings.TrimSpace(q.Status); status {
	case "":
	case string(domain.StatusDraft), string(domain.StatusApproved):
		out.Status = domain.RecordStatus(status)
	default:
		return ports.RecordQuery{}, 0, 0, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}

	switch level := strings.TrimSpace(q.Level); level {
	case "":
	case string(domain.RiskLevelLow), string(domain.RiskLevelMedium), string(domain.RiskLevelHigh):
		out.RiskLevel = domain.RiskLevel(level)
	default:
		return ports.RecordQuery{}, 0, 0, fmt.Errorf("%w: unknown risk level %q", domain.ErrInvalidInput, level)
	}

	return out, page, limit, nil
}

// recordSummary is the slice of a record that trace resolution needs.
type recordSummary struct {
	ID     string
	Kind   domain.RecordKind
	Title  string
	Status string
}

// resolveRecord dispatches on the ID prefix to the owning repository and
// returns the live record's summary. Soft-deleted and unknown IDs surface as
// ErrNotFound from the repositories.
func (s *Service) resolveRecord(ctx context.Context, id string) (recordSummary, error) {
	kind, err := domain.KindFromID(id)
	if err != nil {
		return recordSummary{}, err
	}

	switch kind {
	case domain.KindUserRequirement:
		rec, err := s.userRequirements.GetByID(ctx, id)
		if err != nil {
			return recordSummary{}, err
		}
		return recordSummary{ID: rec.ID, Kind: kind, Title: rec.Title, Status: string(rec.Status)}, nil
	case domain.KindSystemRequirement:
		rec, err := s.systemRequirements.GetByID(ctx, id)
		if err != nil {
			return recordSummary{}, err
		}
		return recordSummary{ID: rec.ID, Kind: kind, Title: rec.Title, Status: string(rec.Status)}, nil
	case domain.KindRisk:
		rec, err := s.risks.GetByID(ctx, id)
		if err != nil {
			return recordSummary{}, err
		}
		return recordSummary{ID: rec.ID, Kind: kind, Title: rec.Title, Status: string(rec.Status)}, nil
	case domain.KindTestCase:
		rec, err := s.testCases.GetByID(ctx, id)
		if err != nil {
			return recordSummary{}, err
		}
		return recordSummary{ID: rec.ID, Kind: kind, Title: rec.Title, Status: string(rec.Status)}, nil
	case domain.KindTestRun:
		rec, err := s.testRuns.GetByID(ctx, id)
		if err != nil {
			return recordSummary{}, err
		}
		return recordSummary{ID: rec.ID, Kind: kind, Title: rec.Name, Status: string(rec.Status)}, nil
	default:
		return recordSummary{}, fmt.Errorf("%w: unknown record kind for %s", domain.ErrInvalidInput, id)
	}
}

// stepsFromInputs renumbers submitted steps from 1 in list order.
func stepsFromInputs(inputs []TestStepInput) []domain.TestStep {
	steps := make([]domain.TestStep, 0, len(inputs))
	for i, in := range inputs {
		steps = append(steps, domain.TestStep{
			Position:       i + 1,
			Action:         strings.TrimSpace(in.Action),
			ExpectedResult: strings.TrimSpace(in.ExpectedResult),
		})
	}
	return steps
}
