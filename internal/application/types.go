package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/reqquli/reqquli/internal/domain"
)

// Actor is the authenticated caller, extracted from validated claims by the
// transport layer. Service methods trust it; token checks already happened.
type Actor struct {
	UserID    uuid.UUID
	Email     string
	FullName  string
	SessionID uuid.UUID
}

type RegisterRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	UserID uuid.UUID `json:"user_id"`
}

type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
}

type LoginResponse struct {
	Token     string      `json:"token"`
	SessionID uuid.UUID   `json:"session_id"`
	ExpiresIn int64       `json:"expires_in"`
	User      UserProfile `json:"user"`
}

type RefreshResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

type UserProfile struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionItem struct {
	SessionID      uuid.UUID  `json:"session_id"`
	IPAddress      string     `json:"ip_address"`
	UserAgent      string     `json:"user_agent"`
	CreatedAt      time.Time  `json:"created_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	IsCurrent      bool       `json:"is_current"`
}

type LoginHistoryQuery struct {
	Page   int
	Limit  int
	Days   int
	Status string
}

type LoginHistoryItem struct {
	ID            int64     `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Status        string    `json:"status"`
	FailureReason string    `json:"failure_reason,omitempty"`
	IPAddress     string    `json:"ip_address"`
	UserAgent     string    `json:"user_agent,omitempty"`
}

// ListQuery is the query surface shared by all record collections.
type ListQuery struct {
	Page      int
	Limit     int
	Status    string
	Level     string // risks only
	Search    string
	SortBy    string
	SortOrder string
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

type CreateRecordRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type UpdateRecordRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ApproveRequest gates approval behind password re-confirmation.
type ApproveRequest struct {
	Password      string `json:"password"`
	ApprovalNotes string `json:"approval_notes"`
}

// DeleteRequest gates deletion behind the same password re-confirmation.
type DeleteRequest struct {
	Password string `json:"password"`
}

type RequirementItem struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	Revision      int        `json:"revision"`
	CreatedAt     time.Time  `json:"created_at"`
	CreatedBy     uuid.UUID  `json:"created_by"`
	LastModified  time.Time  `json:"last_modified"`
	ModifiedBy    uuid.UUID  `json:"modified_by"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	ApprovedBy    *uuid.UUID `json:"approved_by,omitempty"`
	ApprovalNotes string     `json:"approval_notes,omitempty"`
}

type RequirementListResponse struct {
	Requirements []RequirementItem `json:"requirements"`
	Pagination   Pagination        `json:"pagination"`
}

type CreateRiskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    int    `json:"severity"`
	Probability int    `json:"probability"`
	Mitigation  string `json:"mitigation"`
}

type UpdateRiskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    int    `json:"severity"`
	Probability int    `json:"probability"`
	Mitigation  string `json:"mitigation"`
}

type RiskItem struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Severity      int        `json:"severity"`
	Probability   int        `json:"probability"`
	RiskScore     int        `json:"risk_score"`
	RiskLevel     string     `json:"risk_level"`
	Mitigation    string     `json:"mitigation,omitempty"`
	Status        string     `json:"status"`
	Revision      int        `json:"revision"`
	CreatedAt     time.Time  `json:"created_at"`
	CreatedBy     uuid.UUID  `json:"created_by"`
	LastModified  time.Time  `json:"last_modified"`
	ModifiedBy    uuid.UUID  `json:"modified_by"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	ApprovedBy    *uuid.UUID `json:"approved_by,omitempty"`
	ApprovalNotes string     `json:"approval_notes,omitempty"`
}

type RiskListResponse struct {
	Risks      []RiskItem `json:"risks"`
	Pagination Pagination `json:"pagination"`
}

type TestStepInput struct {
	Action         string `json:"action"`
	ExpectedResult string `json:"expected_result"`
}

type TestStepItem struct {
	Position       int    `json:"position"`
	Action         string `json:"action"`
	ExpectedResult string `json:"expected_result"`
}

type CreateTestCaseRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Steps       []TestStepInput `json:"steps"`
}

type UpdateTestCaseRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Steps       []TestStepInput `json:"steps"`
}

type TestCaseItem struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Steps         []TestStepItem `json:"steps,omitempty"`
	Status        string         `json:"status"`
	Revision      int            `json:"revision"`
	CreatedAt     time.Time      `json:"created_at"`
	CreatedBy     uuid.UUID      `json:"created_by"`
	LastModified  time.Time      `json:"last_modified"`
	ModifiedBy    uuid.UUID      `json:"modified_by"`
	ApprovedAt    *time.Time     `json:"approved_at,omitempty"`
	ApprovedBy    *uuid.UUID     `json:"approved_by,omitempty"`
	ApprovalNotes string         `json:"approval_notes,omitempty"`
}

type TestCaseListResponse struct {
	TestCases  []TestCaseItem `json:"test_cases"`
	Pagination Pagination     `json:"pagination"`
}

type CreateTestRunRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	TestCaseIDs []string `json:"test_case_ids"`
}

type TestRunItem struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	OverallResult string     `json:"overall_result,omitempty"`
	Revision      int        `json:"revision"`
	CreatedAt     time.Time  `json:"created_at"`
	CreatedBy     uuid.UUID  `json:"created_by"`
	LastModified  time.Time  `json:"last_modified"`
	ModifiedBy    uuid.UUID  `json:"modified_by"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	ApprovedBy    *uuid.UUID `json:"approved_by,omitempty"`
	ApprovalNotes string     `json:"approval_notes,omitempty"`
}

type TestRunCaseItem struct {
	TestCaseID   string            `json:"test_case_id"`
	CaseTitle    string            `json:"case_title"`
	CaseRevision int               `json:"case_revision"`
	Result       string            `json:"result,omitempty"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	Steps        []TestRunStepItem `json:"steps"`
}

type TestRunStepItem struct {
	Position       int        `json:"position"`
	Action         string     `json:"action"`
	ExpectedResult string     `json:"expected_result"`
	Status         string     `json:"status,omitempty"`
	ActualResult   string     `json:"actual_result,omitempty"`
	RecordedAt     *time.Time `json:"recorded_at,omitempty"`
	RecordedBy     *uuid.UUID `json:"recorded_by,omitempty"`
}

type TestRunDetail struct {
	TestRunItem
	Cases []TestRunCaseItem `json:"cases"`
}

type TestRunListResponse struct {
	TestRuns   []TestRunItem `json:"test_runs"`
	Pagination Pagination    `json:"pagination"`
}

type RecordStepResultRequest struct {
	Status       string `json:"status"`
	ActualResult string `json:"actual_result"`
}

type CreateTraceRequest struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
}

type TraceItem struct {
	TraceID           uuid.UUID `json:"trace_id"`
	FromID            string    `json:"from_id"`
	FromKind          string    `json:"from_kind"`
	ToID              string    `json:"to_id"`
	ToKind            string    `json:"to_kind"`
	CreatedBy         uuid.UUID `json:"created_by"`
	CreatedAt         time.Time `json:"created_at"`
	IsSystemGenerated bool      `json:"is_system_generated"`
}

// TracedRecord is one far end of a trace as seen from a record.
type TracedRecord struct {
	ID                string `json:"id"`
	Kind              string `json:"kind"`
	Title             string `json:"title"`
	Status            string `json:"status"`
	IsSystemGenerated bool   `json:"is_system_generated"`
}

type RecordTracesResponse struct {
	RecordID   string         `json:"record_id"`
	Upstream   []TracedRecord `json:"upstream"`
	Downstream []TracedRecord `json:"downstream"`
}

type TraceGraphNode struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

type TraceGraphLink struct {
	FromID            string `json:"from_id"`
	ToID              string `json:"to_id"`
	IsSystemGenerated bool   `json:"is_system_generated"`
}

type TraceGraphResponse struct {
	Nodes []TraceGraphNode `json:"nodes"`
	Links []TraceGraphLink `json:"links"`
}

type AuditTrailQuery struct {
	EntityID string
	Action   string
	ActorID  string
	Page     int
	Limit    int
}

type AuditItem struct {
	EventID    uuid.UUID      `json:"event_id"`
	EntityID   string         `json:"entity_id"`
	EntityType string         `json:"entity_type"`
	Action     string         `json:"action"`
	ActorID    uuid.UUID      `json:"actor_id"`
	ActorEmail string         `json:"actor_email"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type AuditTrailResponse struct {
	Events     []AuditItem `json:"events"`
	Pagination Pagination  `json:"pagination"`
}

func toUserProfile(u domain.User) UserProfile {
	return UserProfile{
		UserID:    u.UserID,
		Email:     u.Email,
		FullName:  u.FullName,
		CreatedAt: u.CreatedAt,
	}
}

func toSessionItem(s domain.Session, currentSessionID uuid.UUID) SessionItem {
	return SessionItem{
		SessionID:      s.SessionID,
		IPAddress:      s.IPAddress,
		UserAgent:      s.UserAgent,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
		ExpiresAt:      s.ExpiresAt,
		RevokedAt:      s.RevokedAt,
		IsCurrent:      s.SessionID == currentSessionID,
	}
}

func toRequirementItem(r domain.Requirement) RequirementItem {
	return RequirementItem{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		Status:        string(r.Status),
		Revision:      r.Revision,
		CreatedAt:     r.CreatedAt,
		CreatedBy:     r.CreatedBy,
		LastModified:  r.LastModified,
		ModifiedBy:    r.ModifiedBy,
		ApprovedAt:    r.ApprovedAt,
		ApprovedBy:    r.ApprovedBy,
		ApprovalNotes: r.ApprovalNotes,
	}
}

func toRiskItem(r domain.Risk) RiskItem {
	return RiskItem{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		Severity:      r.Severity,
		Probability:   r.Probability,
		RiskScore:     r.RiskScore,
		RiskLevel:     string(r.RiskLevel),
		Mitigation:    r.Mitigation,
		Status:        string(r.Status),
		Revision:      r.Revision,
		CreatedAt:     r.CreatedAt,
		CreatedBy:     r.CreatedBy,
		LastModified:  r.LastModified,
		ModifiedBy:    r.ModifiedBy,
		ApprovedAt:    r.ApprovedAt,
		ApprovedBy:    r.ApprovedBy,
		ApprovalNotes: r.ApprovalNotes,
	}
}

func toTestCaseItem(tc domain.TestCase) TestCaseItem {
	steps := make([]TestStepItem, 0, len(tc.Steps))
	for _, s := range tc.Steps {
		steps = append(steps, TestStepItem{
			Position:       s.Position,
			Action:         s.Action,
			ExpectedResult: s.ExpectedResult,
		})
	}
	return TestCaseItem{
		ID:            tc.ID,
		Title:         tc.Title,
		Description:   tc.Description,
		Steps:         steps,
		Status:        string(tc.Status),
		Revision:      tc.Revision,
		CreatedAt:     tc.CreatedAt,
		CreatedBy:     tc.CreatedBy,
		LastModified:  tc.LastModified,
		ModifiedBy:    tc.ModifiedBy,
		ApprovedAt:    tc.ApprovedAt,
		ApprovedBy:    tc.ApprovedBy,
		ApprovalNotes: tc.ApprovalNotes,
	}
}

func toTestRunItem(tr domain.TestRun) TestRunItem {
	return TestRunItem{
		ID:            tr.ID,
		Name:          tr.Name,
		Description:   tr.Description,
		Status:        string(tr.Status),
		OverallResult: string(tr.OverallResult),
		Revision:      tr.Revision,
		CreatedAt:     tr.CreatedAt,
		CreatedBy:     tr.CreatedBy,
		LastModified:  tr.LastModified,
		ModifiedBy:    tr.ModifiedBy,
		ApprovedAt:    tr.ApprovedAt,
		ApprovedBy:    tr.ApprovedBy,
		ApprovalNotes: tr.ApprovalNotes,
	}
}

func toTestRunStepItem(s domain.TestRunStep) TestRunStepItem {
	return TestRunStepItem{
		Position:       s.Position,
		Action:         s.Action,
		ExpectedResult: s.ExpectedResult,
		Status:         string(s.Status),
		ActualResult:   s.ActualResult,
		RecordedAt:     s.RecordedAt,
		RecordedBy:     s.RecordedBy,
	}
}

func toTraceItem(t domain.Trace) TraceItem {
	return TraceItem{
		TraceID:           t.TraceID,
		FromID:            t.FromID,
		FromKind:          string(t.FromKind),
		ToID:              t.ToID,
		ToKind:            string(t.ToKind),
		CreatedBy:         t.CreatedBy,
		CreatedAt:         t.CreatedAt,
		IsSystemGenerated: t.IsSystemGenerated,
	}
}

func toAuditItem(e domain.AuditEvent) AuditItem {
	return AuditItem{
		EventID:    e.EventID,
		EntityID:   e.EntityID,
		EntityType: e.EntityType,
		Action:     e.Action,
		ActorID:    e.ActorID,
		ActorEmail: e.ActorEmail,
		Payload:    e.Payload,
		OccurredAt: e.OccurredAt,
	}
}
