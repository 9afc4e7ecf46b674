package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/reqquli/reqquli/internal/domain"
)

// CreateUserParams captures atomic user-creation inputs.
type CreateUserParams struct {
	Email        string
	FullName     string
	PasswordHash string
	RegisteredAt time.Time
}

// UserRepository defines persistence operations for accounts.
// The transactional create enforces user+audit consistency.
type UserRepository interface {
	CreateWithAuditTx(ctx context.Context, params CreateUserParams, event domain.AuditEvent) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error)
	Count(ctx context.Context) (int64, error)
}

// SessionCreateParams captures metadata required to create a session record.
// Network fields are stored for auditability.
type SessionCreateParams struct {
	UserID         uuid.UUID
	IPAddress      string
	UserAgent      string
	ExpiresAt      time.Time
	LastActivityAt time.Time
}

// SessionRepository manages persistent session lifecycle.
// It is separate from token parsing so revocation and activity tracking remain
// source-of-truth driven.
type SessionRepository interface {
	Create(ctx context.Context, params SessionCreateParams) (domain.Session, error)
	GetByID(ctx context.Context, sessionID uuid.UUID) (domain.Session, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Session, error)
	TouchActivity(ctx context.Context, sessionID uuid.UUID, touchedAt time.Time) error
	RevokeByID(ctx context.Context, sessionID uuid.UUID, revokedAt time.Time) error
	RevokeAllByUser(ctx context.Context, userID uuid.UUID, revokedAt time.Time) error
}

// LoginAttemptRepository stores login outcomes used by lockout and history endpoints.
type LoginAttemptRepository interface {
	Insert(ctx context.Context, attempt domain.LoginAttempt) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int, since *time.Time, status string) ([]domain.LoginAttempt, error)
}

// RecordQuery is the shared list filter for record collections.
// Zero values mean "no filter"; a non-positive Limit disables paging.
type RecordQuery struct {
	Status    domain.RecordStatus
	RiskLevel domain.RiskLevel // risks only
	Search    string
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// RequirementRepository persists one requirement family (user or system).
// Two instances of the same implementation back the two tables.
//
// Mutating methods run load-guard-write and the audit append in a single
// transaction. Create allocates the next sequence ID and stamps it into the
// audit event before the append.
type RequirementRepository interface {
	Create(ctx context.Context, draft domain.Requirement, event domain.AuditEvent) (domain.Requirement, error)
	GetByID(ctx context.Context, id string) (domain.Requirement, error)
	List(ctx context.Context, q RecordQuery) ([]domain.Requirement, int64, error)
	Update(ctx context.Context, id, title, description string, modifiedBy uuid.UUID, at time.Time, event domain.AuditEvent) (domain.Requirement, error)
	Approve(ctx context.Context, id string, approvedBy uuid.UUID, notes string, at time.Time, event domain.AuditEvent) (domain.Requirement, error)
	SoftDelete(ctx context.Context, id string, at time.Time, event domain.AuditEvent) error
}

// RiskUpdate carries the replaceable fields of a risk record.
type RiskUpdate struct {
	Title       string
	Description string
	Severity    int
	Probability int
	Mitigation  string
}

// RiskRepository persists risk records with the same transactional contract as
// RequirementRepository.
type RiskRepository interface {
	Create(ctx context.Context, draft domain.Risk, event domain.AuditEvent) (domain.Risk, error)
	GetByID(ctx context.Context, id string) (domain.Risk, error)
	List(ctx context.Context, q RecordQuery) ([]domain.Risk, int64, error)
	Update(ctx context.Context, id string, upd RiskUpdate, modifiedBy uuid.UUID, at time.Time, event domain.AuditEvent) (domain.Risk, error)
	Approve(ctx context.Context, id string, approvedBy uuid.UUID, notes string, at time.Time, event domain.AuditEvent) (domain.Risk, error)
	SoftDelete(ctx context.Context, id string, at time.Time, event domain.AuditEvent) error
}

// TestCaseRepository persists test cases and their ordered steps.
// Update replaces the step list wholesale. Approve fails on a stepless case.
type TestCaseRepository interface {
	Create(ctx context.Context, draft domain.TestCase, event domain.AuditEvent) (domain.TestCase, error)
	GetByID(ctx context.Context, id string) (domain.TestCase, error)
	List(ctx context.Context, q RecordQuery) ([]domain.TestCase, int64, error)
	Update(ctx context.Context, id, title, description string, steps []domain.TestStep, modifiedBy uuid.UUID, at time.Time, event domain.AuditEvent) (domain.TestCase, error)
	Approve(ctx context.Context, id string, approvedBy uuid.UUID, notes string, at time.Time, event domain.AuditEvent) (domain.TestCase, error)
	SoftDelete(ctx context.Context, id string, at time.Time, event domain.AuditEvent) error
}

// TestRunRepository persists runs, their case snapshots, and step outcomes.
//
// Create verifies every referenced case is approved and live, then snapshots
// case steps into the run. RecordStepResult rolls case and run status forward
// as results land. Approve guards on run completion and emits the system
// case-to-run traces in the same transaction.
type TestRunRepository interface {
	Create(ctx context.Context, run domain.TestRun, testCaseIDs []string, event domain.AuditEvent) (domain.TestRun, error)
	GetByID(ctx context.Context, id string) (domain.TestRun, error)
	List(ctx context.Context, q RecordQuery) ([]domain.TestRun, int64, error)
	ListCases(ctx context.Context, runID string) ([]domain.TestRunCase, error)
	ListSteps(ctx context.Context, runID string) ([]domain.TestRunStep, error)
	RecordStepResult(ctx context.Context, runID, caseID string, position int, status domain.TestResult, actualResult string, recordedBy uuid.UUID, at time.Time, event domain.AuditEvent) (domain.TestRunStep, error)
	Approve(ctx context.Context, id string, approvedBy uuid.UUID, notes string, at time.Time, event domain.AuditEvent) (domain.TestRun, error)
	SoftDelete(ctx context.Context, id string, at time.Time, event domain.AuditEvent) error
}

// TraceRepository persists the polymorphic trace edges.
// Endpoint existence is checked by the caller; uniqueness and provenance
// guards live here so they hold under concurrent writers.
type TraceRepository interface {
	Create(ctx context.Context, trace domain.Trace, event domain.AuditEvent) (domain.Trace, error)
	Delete(ctx context.Context, fromID, toID string, event domain.AuditEvent) error
	ListByRecord(ctx context.Context, recordID string) ([]domain.Trace, error)
	ListAll(ctx context.Context) ([]domain.Trace, error)
}

// AuditQuery filters the audit trail. Zero values mean "no filter".
type AuditQuery struct {
	EntityID string
	Action   string
	ActorID  uuid.UUID
	Limit    int
	Offset   int
}

// AuditDelivery is the stream-delivery view of an audit row, including
// retry/claim metadata the worker needs.
type AuditDelivery struct {
	EventID        uuid.UUID
	EntityID       string
	EntityType     string
	Action         string
	Payload        []byte
	RetryCount     int
	LastError      *string
	OccurredAt     time.Time
	PublishedAt    *time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// AuditRepository reads the trail and drives publish-retry workflow.
// Appends happen inside the other repositories' transactions; there is no
// standalone append on purpose.
type AuditRepository interface {
	List(ctx context.Context, q AuditQuery) ([]domain.AuditEvent, int64, error)
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]AuditDelivery, error)
	MarkPublished(ctx context.Context, eventID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, eventID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, eventID uuid.UUID, claimToken, errMsg string, at time.Time) error
}
