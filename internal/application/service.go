package application

import (
	"time"

	"github.com/reqquli/reqquli/internal/ports"
)

// Config carries the application-level tunables resolved by bootstrap.
type Config struct {
	TokenTTL             time.Duration
	SessionTTL           time.Duration
	SessionAbsoluteTTL   time.Duration
	FailedLoginThreshold int
	LockoutDuration      time.Duration

	// Seed account for a fresh install. Only used when the users table is empty.
	DefaultAdminEmail    string
	DefaultAdminPassword string
	DefaultAdminFullName string
}

// Service implements the requirements-management use-cases over the ports.
// It owns validation, password gates, and audit event composition; the
// repositories own transactional state transitions.
type Service struct {
	cfg                Config
	users              ports.UserRepository
	sessions           ports.SessionRepository
	loginAttempts      ports.LoginAttemptRepository
	userRequirements   ports.RequirementRepository
	systemRequirements ports.RequirementRepository
	risks              ports.RiskRepository
	testCases          ports.TestCaseRepository
	testRuns           ports.TestRunRepository
	traces             ports.TraceRepository
	audit              ports.AuditRepository
	lockouts           ports.LockoutStore
	revocations        ports.SessionRevocationStore
	hasher             ports.PasswordHasher
	tokenSigner        ports.TokenSigner
	nowFn              func() time.Time
}

type Dependencies struct {
	Config             Config
	Users              ports.UserRepository
	Sessions           ports.SessionRepository
	LoginAttempts      ports.LoginAttemptRepository
	UserRequirements   ports.RequirementRepository
	SystemRequirements ports.RequirementRepository
	Risks              ports.RiskRepository
	TestCases          ports.TestCaseRepository
	TestRuns           ports.TestRunRepository
	Traces             ports.TraceRepository
	Audit              ports.AuditRepository
	Lockouts           ports.LockoutStore
	Revocations        ports.SessionRevocationStore
	Hasher             ports.PasswordHasher
	TokenSigner        ports.TokenSigner
}

func NewService(deps Dependencies) *Service {
	return &Service{
		cfg:                deps.Config,
		users:              deps.Users,
		sessions:           deps.Sessions,
		loginAttempts:      deps.LoginAttempts,
		userRequirements:   deps.UserRequirements,
		systemRequirements: deps.SystemRequirements,
		risks:              deps.Risks,
		testCases:          deps.TestCases,
		testRuns:           deps.TestRuns,
		traces:             deps.Traces,
		audit:              deps.Audit,
		lockouts:           deps.Lockouts,
		revocations:        deps.Revocations,
		hasher:             deps.Hasher,
		tokenSigner:        deps.TokenSigner,
		nowFn:              func() time.Time { return time.Now().UTC() },
	}
}
