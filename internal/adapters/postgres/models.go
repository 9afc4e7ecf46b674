package postgres

import (
	"time"

	"github.com/google/uuid"
)

type userModel struct {
	UserID       uuid.UUID  `gorm:"column:user_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string     `gorm:"column:email"`
	FullName     string     `gorm:"column:full_name"`
	PasswordHash string     `gorm:"column:password_hash"`
	IsActive     bool       `gorm:"column:is_active"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
	DeletedAt    *time.Time `gorm:"column:deleted_at"`
}

func (userModel) TableName() string { return "users" }

type sessionModel struct {
	SessionID      uuid.UUID  `gorm:"column:session_id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID  `gorm:"column:user_id"`
	IPAddress      *string    `gorm:"column:ip_address"`
	UserAgent      string     `gorm:"column:user_agent"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	LastActivityAt time.Time  `gorm:"column:last_activity_at"`
	ExpiresAt      time.Time  `gorm:"column:expires_at"`
	RevokedAt      *time.Time `gorm:"column:revoked_at"`
}

func (sessionModel) TableName() string { return "sessions" }

type loginAttemptModel struct {
	ID            int64      `gorm:"column:id;primaryKey"`
	UserID        *uuid.UUID `gorm:"column:user_id"`
	AttemptAt     time.Time  `gorm:"column:attempt_at"`
	IPAddress     *string    `gorm:"column:ip_address"`
	UserAgent     string     `gorm:"column:user_agent"`
	Status        string     `gorm:"column:status"`
	FailureReason string     `gorm:"column:failure_reason"`
}

func (loginAttemptModel) TableName() string { return "login_attempts" }

type recordSequenceModel struct {
	Kind      string `gorm:"column:kind;primaryKey"`
	NextValue int64  `gorm:"column:next_value"`
}

func (recordSequenceModel) TableName() string { return "record_sequences" }

// requirementModel backs both requirement tables; queries select the table
// explicitly, so there is no TableName method on purpose.
type requirementModel struct {
	ID            string     `gorm:"column:id;primaryKey"`
	Title         string     `gorm:"column:title"`
	Description   string     `gorm:"column:description"`
	Status        string     `gorm:"column:status"`
	Revision      int        `gorm:"column:revision"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	CreatedBy     uuid.UUID  `gorm:"column:created_by"`
	LastModified  time.Time  `gorm:"column:last_modified"`
	ModifiedBy    uuid.UUID  `gorm:"column:modified_by"`
	ApprovedAt    *time.Time `gorm:"column:approved_at"`
	ApprovedBy    *uuid.UUID `gorm:"column:approved_by"`
	ApprovalNotes string     `gorm:"column:approval_notes"`
	DeletedAt     *time.Time `gorm:"column:deleted_at"`
}

type riskModel struct {
	ID            string     `gorm:"column:id;primaryKey"`
	Title         string     `gorm:"column:title"`
	Description   string     `gorm:"column:description"`
	Severity      int        `gorm:"column:severity"`
	Probability   int        `gorm:"column:probability"`
	RiskScore     int        `gorm:"column:risk_score"`
	RiskLevel     string     `gorm:"column:risk_level"`
	Mitigation    string     `gorm:"column:mitigation"`
	Status        string     `gorm:"column:status"`
	Revision      int        `gorm:"column:revision"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	CreatedBy     uuid.UUID  `gorm:"column:created_by"`
	LastModified  time.Time  `gorm:"column:last_modified"`
	ModifiedBy    uuid.UUID  `gorm:"column:modified_by"`
	ApprovedAt    *time.Time `gorm:"column:approved_at"`
	ApprovedBy    *uuid.UUID `gorm:"column:approved_by"`
	ApprovalNotes string     `gorm:"column:approval_notes"`
	DeletedAt     *time.Time `gorm:"column:deleted_at"`
}

func (riskModel) TableName() string { return "risks" }

type testCaseModel struct {
	ID            string     `gorm:"column:id;primaryKey"`
	Title         string     `gorm:"column:title"`
	Description   string     `gorm:"column:description"`
	Status        string     `gorm:"column:status"`
	Revision      int        `gorm:"column:revision"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	CreatedBy     uuid.UUID  `gorm:"column:created_by"`
	LastModified  time.Time  `gorm:"column:last_modified"`
	ModifiedBy    uuid.UUID  `gorm:"column:modified_by"`
	ApprovedAt    *time.Time `gorm:"column:approved_at"`
	ApprovedBy    *uuid.UUID `gorm:"column:approved_by"`
	ApprovalNotes string     `gorm:"column:approval_notes"`
	DeletedAt     *time.Time `gorm:"column:deleted_at"`
}

func (testCaseModel) TableName() string { return "test_cases" }

type testStepModel struct {
	TestCaseID     string `gorm:"column:test_case_id;primaryKey"`
	Position       int    `gorm:"column:position;primaryKey"`
	Action         string `gorm:"column:action"`
	ExpectedResult string `gorm:"column:expected_result"`
}

func (testStepModel) TableName() string { return "test_steps" }

type testRunModel struct {
	ID            string     `gorm:"column:id;primaryKey"`
	Name          string     `gorm:"column:name"`
	Description   string     `gorm:"column:description"`
	Status        string     `gorm:"column:status"`
	OverallResult string     `gorm:"column:overall_result"`
	Revision      int        `gorm:"column:revision"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	CreatedBy     uuid.UUID  `gorm:"column:created_by"`
	LastModified  time.Time  `gorm:"column:last_modified"`
	ModifiedBy    uuid.UUID  `gorm:"column:modified_by"`
	ApprovedAt    *time.Time `gorm:"column:approved_at"`
	ApprovedBy    *uuid.UUID `gorm:"column:approved_by"`
	ApprovalNotes string     `gorm:"column:approval_notes"`
	DeletedAt     *time.Time `gorm:"column:deleted_at"`
}

func (testRunModel) TableName() string { return "test_runs" }

type testRunCaseModel struct {
	TestRunID    string     `gorm:"column:test_run_id;primaryKey"`
	TestCaseID   string     `gorm:"column:test_case_id;primaryKey"`
	CaseTitle    string     `gorm:"column:case_title"`
	CaseRevision int        `gorm:"column:case_revision"`
	Result       string     `gorm:"column:result"`
	CompletedAt  *time.Time `gorm:"column:completed_at"`
}

func (testRunCaseModel) TableName() string { return "test_run_cases" }

type testRunStepModel struct {
	TestRunID      string     `gorm:"column:test_run_id;primaryKey"`
	TestCaseID     string     `gorm:"column:test_case_id;primaryKey"`
	Position       int        `gorm:"column:position;primaryKey"`
	Action         string     `gorm:"column:action"`
	ExpectedResult string     `gorm:"column:expected_result"`
	Status         string     `gorm:"column:status"`
	ActualResult   string     `gorm:"column:actual_result"`
	RecordedAt     *time.Time `gorm:"column:recorded_at"`
	RecordedBy     *uuid.UUID `gorm:"column:recorded_by"`
}

func (testRunStepModel) TableName() string { return "test_run_steps" }

type traceModel struct {
	TraceID           uuid.UUID `gorm:"column:trace_id;type:uuid;default:gen_random_uuid();primaryKey"`
	FromID            string    `gorm:"column:from_id"`
	FromKind          string    `gorm:"column:from_kind"`
	ToID              string    `gorm:"column:to_id"`
	ToKind            string    `gorm:"column:to_kind"`
	CreatedBy         uuid.UUID `gorm:"column:created_by"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	IsSystemGenerated bool      `gorm:"column:is_system_generated"`
}

func (traceModel) TableName() string { return "traces" }

type auditEventModel struct {
	EventID        uuid.UUID  `gorm:"column:event_id;type:uuid;primaryKey"`
	EntityID       string     `gorm:"column:entity_id"`
	EntityType     string     `gorm:"column:entity_type"`
	Action         string     `gorm:"column:action"`
	ActorID        uuid.UUID  `gorm:"column:actor_id"`
	ActorEmail     string     `gorm:"column:actor_email"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	OccurredAt     time.Time  `gorm:"column:occurred_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (auditEventModel) TableName() string { return "audit_events" }
