package postgres

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/reqquli/reqquli/internal/domain"
	"gorm.io/gorm"
)

func toDomainUser(row userModel) domain.User {
	return domain.User{
		UserID:       row.UserID,
		Email:        row.Email,
		FullName:     row.FullName,
		PasswordHash: row.PasswordHash,
		IsActive:     row.IsActive,
		DeletedAt:    row.DeletedAt,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func toDomainSession(row sessionModel) domain.Session {
	ip := ""
	if row.IPAddress != nil {
		ip = *row.IPAddress
	}
	return domain.Session{
		SessionID:      row.SessionID,
		UserID:         row.UserID,
		IPAddress:      ip,
		UserAgent:      row.UserAgent,
		CreatedAt:      row.CreatedAt,
		LastActivityAt: row.LastActivityAt,
		ExpiresAt:      row.ExpiresAt,
		RevokedAt:      row.RevokedAt,
	}
}

func toDomainLoginAttempt(row loginAttemptModel) domain.LoginAttempt {
	ip := ""
	if row.IPAddress != nil {
		ip = *row.IPAddress
	}
	return domain.LoginAttempt{
		ID:            row.ID,
		UserID:        row.UserID,
		AttemptAt:     row.AttemptAt,
		IPAddress:     ip,
		UserAgent:     row.UserAgent,
		Status:        row.Status,
		FailureReason: row.FailureReason,
	}
}

func toDomainRequirement(row requirementModel, kind domain.RecordKind) domain.Requirement {
	return domain.Requirement{
		ID:            row.ID,
		Kind:          kind,
		Title:         row.Title,
		Description:   row.Description,
		Status:        domain.RecordStatus(row.Status),
		Revision:      row.Revision,
		CreatedAt:     row.CreatedAt,
		CreatedBy:     row.CreatedBy,
		LastModified:  row.LastModified,
		ModifiedBy:    row.ModifiedBy,
		ApprovedAt:    row.ApprovedAt,
		ApprovedBy:    row.ApprovedBy,
		ApprovalNotes: row.ApprovalNotes,
		DeletedAt:     row.DeletedAt,
	}
}

func toDomainRisk(row riskModel) domain.Risk {
	return domain.Risk{
		ID:            row.ID,
		Title:         row.Title,
		Description:   row.Description,
		Severity:      row.Severity,
		Probability:   row.Probability,
		RiskScore:     row.RiskScore,
		RiskLevel:     domain.RiskLevel(row.RiskLevel),
		Mitigation:    row.Mitigation,
		Status:        domain.RecordStatus(row.Status),
		Revision:      row.Revision,
		CreatedAt:     row.CreatedAt,
		CreatedBy:     row.CreatedBy,
		LastModified:  row.LastModified,
		ModifiedBy:    row.ModifiedBy,
		ApprovedAt:    row.ApprovedAt,
		ApprovedBy:    row.ApprovedBy,
		ApprovalNotes: row.ApprovalNotes,
		DeletedAt:     row.DeletedAt,
	}
}

func toDomainTestCase(row testCaseModel, steps []testStepModel) domain.TestCase {
	out := domain.TestCase{
		ID:            row.ID,
		Title:         row.Title,
		Description:   row.Description,
		Status:        domain.RecordStatus(row.Status),
		Revision:      row.Revision,
		CreatedAt:     row.CreatedAt,
		CreatedBy:     row.CreatedBy,
		LastModified:  row.LastModified,
		ModifiedBy:    row.ModifiedBy,
		ApprovedAt:    row.ApprovedAt,
		ApprovedBy:    row.ApprovedBy,
		ApprovalNotes: row.ApprovalNotes,
		DeletedAt:     row.DeletedAt,
	}
	for _, s := range steps {
		out.Steps = append(out.Steps, domain.TestStep{
			Position:       s.Position,
			Action:         s.Action,
			ExpectedResult: s.ExpectedResult,
		})
	}
	return out
}

func toDomainTestRun(row testRunModel) domain.TestRun {
	return domain.TestRun{
		ID:            row.ID,
		Name:          row.Name,
		Description:   row.Description,
		Status:        domain.TestRunStatus(row.Status),
		OverallResult: domain.TestResult(row.OverallResult),
		Revision:      row.Revision,
		CreatedAt:     row.CreatedAt,
		CreatedBy:     row.CreatedBy,
		LastModified:  row.LastModified,
		ModifiedBy:    row.ModifiedBy,
		ApprovedAt:    row.ApprovedAt,
		ApprovedBy:    row.ApprovedBy,
		ApprovalNotes: row.ApprovalNotes,
		DeletedAt:     row.DeletedAt,
	}
}

func toDomainTestRunCase(row testRunCaseModel) domain.TestRunCase {
	return domain.TestRunCase{
		TestRunID:    row.TestRunID,
		TestCaseID:   row.TestCaseID,
		CaseTitle:    row.CaseTitle,
		CaseRevision: row.CaseRevision,
		Result:       domain.TestResult(row.Result),
		CompletedAt:  row.CompletedAt,
	}
}

func toDomainTestRunStep(row testRunStepModel) domain.TestRunStep {
	return domain.TestRunStep{
		TestRunID:      row.TestRunID,
		TestCaseID:     row.TestCaseID,
		Position:       row.Position,
		Action:         row.Action,
		ExpectedResult: row.ExpectedResult,
		Status:         domain.TestResult(row.Status),
		ActualResult:   row.ActualResult,
		RecordedAt:     row.RecordedAt,
		RecordedBy:     row.RecordedBy,
	}
}

func toDomainTrace(row traceModel) domain.Trace {
	return domain.Trace{
		TraceID:           row.TraceID,
		FromID:            row.FromID,
		FromKind:          domain.RecordKind(row.FromKind),
		ToID:              row.ToID,
		ToKind:            domain.RecordKind(row.ToKind),
		CreatedBy:         row.CreatedBy,
		CreatedAt:         row.CreatedAt,
		IsSystemGenerated: row.IsSystemGenerated,
	}
}

func toDomainAuditEvent(row auditEventModel) domain.AuditEvent {
	var payload map[string]any
	if row.Payload != "" {
		_ = json.Unmarshal([]byte(row.Payload), &payload)
	}
	return domain.AuditEvent{
		EventID:    row.EventID,
		EntityID:   row.EntityID,
		EntityType: row.EntityType,
		Action:     row.Action,
		ActorID:    row.ActorID,
		ActorEmail: row.ActorEmail,
		Payload:    payload,
		OccurredAt: row.OccurredAt,
	}
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
