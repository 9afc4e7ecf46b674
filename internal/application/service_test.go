package application_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/reqquli/reqquli/internal/application"
	"github.com/reqquli/reqquli/internal/domain"
	"github.com/reqquli/reqquli/internal/ports"
)

func TestRegisterLoginRefreshLogout(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	registerRes, err := f.service.Register(ctx, application.RegisterRequest{
		Email:    "user@example.com",
		FullName: "Test User",
		Password: "SecurePass123!",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if registerRes.UserID == uuid.Nil {
		t.Fatalf("register returned empty user id")
	}

	loginRes, err := f.service.Login(ctx, application.LoginRequest{
		Email:     "user@example.com",
		Password:  "SecurePass123!",
		IPAddress: "127.0.0.1",
		UserAgent: "unit-test",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if loginRes.Token == "" {
		t.Fatalf("login token should not be empty")
	}
	if loginRes.User.Email != "user@example.com" {
		t.Fatalf("unexpected profile email: %s", loginRes.User.Email)
	}

	refreshRes, err := f.service.Refresh(ctx, loginRes.Token)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if refreshRes.Token == "" {
		t.Fatalf("refresh token should not be empty")
	}

	actor := application.Actor{UserID: registerRes.UserID, Email: "user@example.com", SessionID: loginRes.SessionID}
	if err := f.service.Logout(ctx, actor); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := f.service.Refresh(ctx, loginRes.Token); !errors.Is(err, domain.ErrSessionRevoked) {
		t.Fatalf("expected revoked session after logout, got %v", err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	req := application.RegisterRequest{Email: "dup@example.com", FullName: "First", Password: "SecurePass123!"}
	if _, err := f.service.Register(ctx, req); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, err := f.service.Register(ctx, req); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on duplicate email, got %v", err)
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	cases := []struct {
		name string
		req  application.RegisterRequest
	}{
		{name: "bad email", req: application.RegisterRequest{Email: "not-an-email", FullName: "X", Password: "SecurePass123!"}},
		{name: "missing name", req: application.RegisterRequest{Email: "a@example.com", Password: "SecurePass123!"}},
		{name: "short password", req: application.RegisterRequest{Email: "a@example.com", FullName: "X", Password: "short"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := f.service.Register(ctx, tc.req); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	t.Parallel()

	cfg := defaultTestConfig()
	cfg.FailedLoginThreshold = 2

	f := newFixtureWithConfig(cfg)
	ctx := context.Background()

	if _, err := f.service.Register(ctx, application.RegisterRequest{
		Email:    "locked@example.com",
		FullName: "Locked Out",
		Password: "SecurePass123!",
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := f.service.Login(ctx, application.LoginRequest{Email: "locked@example.com", Password: "wrong-1"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials on first failure, got %v", err)
	}
	if _, err := f.service.Login(ctx, application.LoginRequest{Email: "locked@example.com", Password: "wrong-2"}); !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("expected lockout at threshold, got %v", err)
	}
	// Even the right password is refused while the lock holds.
	if _, err := f.service.Login(ctx, application.LoginRequest{Email: "locked@example.com", Password: "SecurePass123!"}); !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("expected lockout with correct password, got %v", err)
	}

	f.attempts.mu.Lock()
	defer f.attempts.mu.Unlock()
	failed := 0
	for _, a := range f.attempts.attempts {
		if a.Status == domain.LoginFailed {
			failed++
		}
	}
	if failed != 2 {
		t.Fatalf("expected 2 recorded failures, got %d", failed)
	}
}

func TestValidateTokenChecksSessionState(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	actor, token := f.seedActor(t, "session@example.com")

	claims, err := f.service.ValidateToken(ctx, token)
	if err != nil {
		t.Fatalf("validate token failed: %v", err)
	}
	if claims.UserID != actor.UserID || claims.SessionID != actor.SessionID {
		t.Fatalf("claims do not match the login session")
	}

	if err := f.service.Logout(ctx, actor); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := f.service.ValidateToken(ctx, token); !errors.Is(err, domain.ErrSessionRevoked) {
		t.Fatalf("expected session revoked, got %v", err)
	}
}

func TestEnsureDefaultAdminSeedsEmptyInstall(t *testing.T) {
	t.Parallel()

	cfg := defaultTestConfig()
	cfg.DefaultAdminEmail = "admin@example.com"
	cfg.DefaultAdminPassword = "AdminPass123!"
	cfg.DefaultAdminFullName = "Administrator"

	f := newFixtureWithConfig(cfg)
	ctx := context.Background()

	if err := f.service.EnsureDefaultAdmin(ctx); err != nil {
		t.Fatalf("seed admin failed: %v", err)
	}
	if _, err := f.service.Login(ctx, application.LoginRequest{Email: "admin@example.com", Password: "AdminPass123!"}); err != nil {
		t.Fatalf("seeded admin login failed: %v", err)
	}

	// A second call must not touch a populated instance.
	if err := f.service.EnsureDefaultAdmin(ctx); err != nil {
		t.Fatalf("second seed call failed: %v", err)
	}
	f.users.mu.Lock()
	defer f.users.mu.Unlock()
	if len(f.users.byID) != 1 {
		t.Fatalf("expected exactly one user after double seed, got %d", len(f.users.byID))
	}
}

func TestRevokeSessionGuardsOwnership(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	alice, _ := f.seedActor(t, "alice@example.com")
	bob, _ := f.seedActor(t, "bob@example.com")

	if err := f.service.RevokeSession(ctx, alice, bob.SessionID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized revoking another user's session, got %v", err)
	}
	if err := f.service.RevokeSession(ctx, alice, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown session, got %v", err)
	}
	if err := f.service.RevokeSession(ctx, alice, alice.SessionID); err != nil {
		t.Fatalf("revoke own session failed: %v", err)
	}

	sessions, err := f.service.ListSessions(ctx, alice)
	if err != nil {
		t.Fatalf("list sessions failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].RevokedAt == nil {
		t.Fatalf("expected the single session to be revoked")
	}
}

func TestRequirementLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	actor, _ := f.seedActor(t, "editor@example.com")

	created, err := f.service.CreateUserRequirement(ctx, actor, application.CreateRecordRequest{
		Title:       "Operators can export reports",
		Description: "The system shall let operators export monthly reports.",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ID != "UR-1" {
		t.Fatalf("expected UR-1, got %s", created.ID)
	}
	if created.Status != string(domain.StatusDraft) || created.Revision != 0 {
		t.Fatalf("new records must be draft revision 0, got %s rev %d", created.Status, created.Revision)
	}

	approved, err := f.service.ApproveUserRequirement(ctx, actor, created.ID, application.ApproveRequest{
		Password:      "SecurePass123!",
		ApprovalNotes: "reviewed",
	})
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if approved.Status != string(domain.StatusApproved) || approved.Revision != 1 {
		t.Fatalf("expected approved revision 1, got %s rev %d", approved.Status, approved.Revision)
	}
	if approved.ApprovedAt == nil || approved.ApprovedBy == nil {
		t.Fatalf("approval metadata missing")
	}

	// Editing an approved record drops it to draft without touching the revision.
	updated, err := f.service.UpdateUserRequirement(ctx, actor, created.ID, application.UpdateRecordRequest{
		Title:       "Operators can export reports as CSV",
		Description: "Scoped to CSV only.",
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Status != string(domain.StatusDraft) || updated.Revision != 1 {
		t.Fatalf("expected draft revision 1 after edit, got %s rev %d", updated.Status, updated.Revision)
	}

	reapproved, err := f.service.ApproveUserRequirement(ctx, actor, created.ID, application.ApproveRequest{Password: "SecurePass123!"})
	if err != nil {
		t.Fatalf("second approve failed: %v", err)
	}
	if reapproved.Revision != 2 {
		t.Fatalf("expected revision 2 after reapproval, got %d", reapproved.Revision)
	}
}

func TestApprovePasswordGate(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	actor, _ := f.seedActor(t, "gate@example.com")

	created, err := f.service.CreateUserRequirement(ctx, actor, application.CreateRecordRequest{Title: "Gated"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := f.service.ApproveUserRequirement(ctx, actor, created.ID, application.ApproveRequest{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for missing password, got %v", err)
	}
	if _, err := f.service.ApproveUserRequirement(ctx, actor, created.ID, application.ApproveRequest{Password: "wrong"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for wrong password, got %v", err)
	}

	if _, err := f.service.ApproveUserRequirement(ctx, actor, created.ID, application.ApproveRequest{Password: "SecurePass123!"}); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if _, err := f.service.ApproveUserRequirement(ctx, actor, created.ID, application.ApproveRequest{Password: "SecurePass123!"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict approving an approved record, got %v", err)
	}
}

func TestDeleteRequirementIsSoftAndGated(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	actor, _ := f.seedActor(t, "remover@example.com")

	created, err := f.service.CreateSystemRequirement(ctx, actor, application.CreateRecordRequest{Title: "Disposable"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := f.service.DeleteSystemRequirement(ctx, actor, created.ID, application.DeleteRequest{Password: "wrong"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if err := f.service.DeleteSystemRequirement(ctx, actor, created.ID, application.DeleteRequest{Password: "SecurePass123!"}); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := f.service.GetSystemRequirement(ctx, created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := f.service.DeleteSystemRequirement(ctx, actor, created.ID, application.DeleteRequest{Password: "SecurePass123!"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found deleting twice, got %v", err)
	}

	// The row survives as history even though reads no longer see it.
	f.sysReqs.mu.Lock()
	defer f.sysReqs.mu.Unlock()
	rec, ok := f.sysReqs.items[created.ID]
	if !ok || rec.DeletedAt == nil {
		t.Fatalf("expected soft-deleted row to remain with deleted_at set")
	}
}

func TestRequirementFamiliesUseSeparateSequences(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	actor, _ := f.seedActor(t, "seq@example.com")

	ur, err := f.service.CreateUserRequirement(ctx, actor, application.CreateRecordRequest{Title: "First user requirement"})
	if err != nil {
		t.Fatalf("create user requirement failed: %v", err)
	}
	sr, err := f.service.CreateSystemRequirement(ctx, actor, application.CreateRecordRequest{Title: "First system requirement"})
	if err != nil {
		t.Fatalf("create system requirement failed: %v", err)
	}
	if ur.ID != "UR-1" || sr.ID != "SR-1" {
		t.Fatalf("expected independent sequences, got %s and %s", ur.ID, sr.ID)
	}

	// A system requirement ID does not exist in the user requirement collection.
	if _, err := f.service.GetUserRequirement(ctx, "SR-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected kind mismatch to read as a miss, got %v", err)
	}
}

func TestListRequirementsFiltersAndPaginates(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	actor, _ := f.seedActor(t, "lister@example.com")

	for _, title := range []string{"Alpha export", "Beta import", "Gamma export"} {
		if _, err := f.service.CreateUserRequirement(ctx, actor, application.CreateRecordRequest{Title: title}); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}
	if _, err := f.service.ApproveUserRequirement(ctx, actor, "UR-1", application.ApproveRequest{Password: "SecurePass123!"}); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	res, err := f.service.ListUserRequirements(ctx, application.ListQuery{Status: "approved"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(res.Requirements) != 1 || res.Requirements[0].ID != "UR-1" {
		t.Fatalf("expected only UR-1 approved, got %+v", res.Requirements)
	}
	if res.Pagination.Total != 1 {
		t.Fatalf("expected total 1, got %d", res.Pagination.Total)
	}

	res, err = f.service.ListUserRequirements(ctx, application.ListQuery{Search: "export"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(res.Requirements) != 2 {
		t.Fatalf("expected 2 search hits, got %d", len(res.Requirements))
	}

	res, err = f.service.ListUserRequirements(ctx, application.ListQuery{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("paged list failed: %v", err)
	}
	if len(res.Requirements) != 1 || res.Pagination.Pages != 2 {
		t.Fatalf("expected 1 row on page 2 of 2, got %d rows %d pages", len(res.Requirements), res.Pagination.Pages)
	}

	if _, err := f.service.ListUserRequirements(ctx, application.ListQuery{Status: "reviewed"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown status, got %v", err)
	}
}

func TestRiskScoreAndLevelDerivation(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	actor, _ := f.seedActor(t, "risk@example.com")

	created, err := f.service.CreateRisk(ctx, actor, application.CreateRiskRequest{
		Title:       "Sensor drift",
		Severity:    5,
		Probability: 4,
		Mitigation:  "Quarterly recalibration",
	})
	if err != nil {
		t.Fatalf("create risk failed: %v", err)
	}
	if created.ID != "RISK-1" {
		t.Fatalf("expected RISK-1, got %s", created.ID)
	}
	if created.RiskScore != 20 || created.RiskLevel != string(domain.RiskLevelHigh) {
		t.Fatalf("expected score 20 high, got %d %s", created.RiskScore, created.RiskLevel)
	}

	updated, err := f.service.UpdateRisk(ctx, actor, created.ID, application.UpdateRiskRequest{
		Title:       "Sensor drift",
		Severity:    2,
		Probability: 3,
	})
	if err != nil {
		t.Fatalf("update risk failed: %v", err)
	}
	if updated.RiskScore != 6 || updated.RiskLevel != string(domain.RiskLevelLow) {
		t.Fatalf("expected recomputed score 6 low, got %d %s", updated.RiskScore, updated.RiskLevel)
	}

	if _, err := f.service.CreateRisk(ctx, actor, application.CreateRiskRequest{Title: "Bad", Severity: 6, Probability: 1}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid severity to be rejected, got %v", err)
	}
}

func TestListRisksFiltersByLevel(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	actor, _ := f.seedActor(t, "risklist@example.com")

	if _, err := f.service.CreateRisk(ctx, actor, application.CreateRiskRequest{Title: "High one", Severity: 5, Probability: 5}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := f.service.CreateRisk(ctx, actor, application.CreateRiskRequest{Title: "Low one", Severity: 1, Probability: 2}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	res, err := f.service.ListRisks(ctx, application.ListQuery{Level: "high"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(res.Risks) != 1 || res.Risks[0].Title != "High one" {
		t.Fatalf("expected only the high risk, got %+v", res.Risks)
	}

	if _, err := f.service.ListRisks(ctx, application.ListQuery{Level: "severe"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown level, got %v", err)
	}
}

func TestTestCaseStepsAreRenumbered(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	actor, _ := f.seedActor(t, "steps@example.com")

	created, err := f.service.CreateTestCase(ctx, actor, application.CreateTestCaseRequest{
		Title: "Login flow",
		Steps: []application.TestStepInput{
			{Action: "Open the login page", ExpectedResult: "Form is shown"},
			{Action: "Submit valid credentials", ExpectedResult: "Dashboard loads"},
		},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(created.Steps) != 2 || created.Steps[0].Position != 1 || created.Steps[1].Position != 2 {
		t.Fatalf("expected positions 1..2 from list order, got %+v", created.Steps)
	}

	updated, err := f.service.UpdateTestCase(ctx, actor, created.ID, application.UpdateTestCaseRequest{
		Title: "Login flow",
		Steps: []application.TestStepInput{
			{Action: "Open the login page"},
			{Action: "Submit valid credentials"},
			{Action: "Log out again"},
		},
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if len(updated.Steps) != 3 || updated.Steps[2].Position != 3 {
		t.Fatalf("expected replaced steps renumbered 1..3, got %+v", updated.Steps)
	}

	if _, err := f.service.CreateTestCase(ctx, actor, application.CreateTestCaseRequest{
		Title: "Broken",
		Steps: []application.TestStepInput{{Action: "   "}},
	}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected blank action to be rejected, got %v", err)
	}
}

func TestApproveTestCaseRequiresSteps(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	actor, _ := f.seedActor(t, "stepless@example.com")

	created, err := f.service.CreateTestCase(ctx, actor, application.CreateTestCaseRequest{Title: "Stepless"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := f.service.ApproveTestCase(ctx, actor, created.ID, application.ApproveRequest{Password: "SecurePass123!"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict approving a stepless case, got %v", err)
	}
}

func TestTestRunLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	actor, _ := f.seedActor(t, "runner@example.com")
	caseID := f.seedApprovedCase(t, actor, "Smoke test", 2)

	run, err := f.service.CreateTestRun(ctx, actor, application.CreateTestRunRequest{
		Name:        "Release 1.0 verification",
		TestCaseIDs: []string{caseID},
	})
	if err != nil {
		t.Fatalf("create run failed: %v", err)
	}
	if run.ID != "TR-1" || run.Status != string(domain.TestRunPending) {
		t.Fatalf("expected pending TR-1, got %s %s", run.ID, run.Status)
	}

	step, err := f.service.RecordStepResult(ctx, actor, run.ID, caseID, 1, application.RecordStepResultRequest{
		Status:       "pass",
		ActualResult: "as expected",
	})
	if err != nil {
		t.Fatalf("record step 1 failed: %v", err)
	}
	if step.Status != "pass" || step.RecordedAt == nil {
		t.Fatalf("expected recorded pass, got %+v", step)
	}

	detail, err := f.service.GetTestRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run failed: %v", err)
	}
	if detail.Status != string(domain.TestRunInProgress) {
		t.Fatalf("expected in_progress after first result, got %s", detail.Status)
	}
	if len(detail.Cases) != 1 || detail.Cases[0].Result != "" {
		t.Fatalf("case verdict must stay open until every step lands")
	}

	if _, err := f.service.RecordStepResult(ctx, actor, run.ID, caseID, 2, application.RecordStepResultRequest{Status: "pass"}); err != nil {
		t.Fatalf("record step 2 failed: %v", err)
	}

	detail, err = f.service.GetTestRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run failed: %v", err)
	}
	if detail.Status != string(domain.TestRunComplete) || detail.OverallResult != "pass" {
		t.Fatalf("expected complete pass, got %s %s", detail.Status, detail.OverallResult)
	}
	if detail.Cases[0].Result != "pass" || detail.Cases[0].CompletedAt == nil {
		t.Fatalf("expected completed passing case, got %+v", detail.Cases[0])
	}

	approved, err := f.service.ApproveTestRun(ctx, actor, run.ID, application.ApproveRequest{Password: "SecurePass123!", ApprovalNotes: "sign-off"})
	if err != nil {
		t.Fatalf("approve run failed: %v", err)
	}
	if approved.Status != string(domain.TestRunApproved) || approved.Revision != 1 {
		t.Fatalf("expected approved revision 1, got %s rev %d", approved.Status, approved.Revision)
	}

	// Approval writes the case-to-run trace so coverage is queryable.
	traces, err := f.service.ListTracesForRecord(ctx, caseID)
	if err != nil {
		t.Fatalf("list traces failed: %v", err)
	}
	if len(traces.Downstream) != 1 || traces.Downstream[0].ID != run.ID || !traces.Downstream[0].IsSystemGenerated {
		t.Fatalf("expected system trace to the run, got %+v", traces.Downstream)
	}
	if err := f.service.DeleteTrace(ctx, actor, caseID, run.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected system trace to be undeletable, got %v", err)
	}
}

func TestTestRunFailingStepFailsTheRun(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	actor, _ := f.seedActor(t, "failer@example.com")
	caseID := f.seedApprovedCase(t, actor, "Regression", 2)

	run, err := f.service.CreateTestRun(ctx, actor, application.CreateTestRunRequest{Name: "Nightly", TestCaseIDs: []string{caseID}})
	if err != nil {
		t.Fatalf("create run failed: %v", err)
	}
	if _, err := f.service.RecordStepResult(ctx, actor, run.ID, caseID, 1, application.RecordStepResultRequest{Status: "pass"}); err != nil {
		t.Fatalf("record step 1 failed: %v", err)
	}
	if _, err := f.service.RecordStepResult(ctx, actor, run.ID, caseID, 2, application.RecordStepResultRequest{Status: "fail", ActualResult: "timeout"}); err != nil {
		t.Fatalf("record step 2 failed: %v", err)
	}

	detail, err := f.service.GetTestRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run failed: %v", err)
	}
	if detail.Status != string(domain.TestRunComplete) || detail.OverallResult != "fail" {
		t.Fatalf("expected complete fail, got %s %s", detail.Status, detail.OverallResult)
	}
	if detail.Cases[0].Result != "fail" {
		t.Fatalf("expected failing case verdict, got %s", detail.Cases[0].Result)
	}

	// A re-recorded step can flip the verdict while the run is unapproved.
	if _, err := f.service.RecordStepResult(ctx, actor, run.ID, caseID, 2, application.RecordStepResultRequest{Status: "pass"}); err != nil {
		t.Fatalf("re-record step failed: %v", err)
	}
	detail, err = f.service.GetTestRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run failed: %v", err)
	}
	if detail.OverallResult != "pass" {
		t.Fatalf("expected pass after re-record, got %s", detail.OverallResult)
	}
}

func TestCreateTestRunGuards(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	actor, _ := f.seedActor(t, "guards@example.com")

	draft, err := f.service.CreateTestCase(ctx, actor, application.CreateTestCaseRequest{
		Title: "Still drafting",
		Steps: []application.TestStepInput{{Action: "Do the thing"}},
	})
	if err != nil {
		t.Fatalf("create case failed: %v", err)
	}

	if _, err := f.service.CreateTestRun(ctx, actor, application.CreateTestRunRequest{Name: "Run"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input without cases, got %v", err)
	}
	if _, err := f.service.CreateTestRun(ctx, actor, application.CreateTestRunRequest{Name: "Run", TestCaseIDs: []string{draft.ID}}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for unapproved case, got %v", err)
	}
	if _, err := f.service.CreateTestRun(ctx, actor, application.CreateTestRunRequest{Name: "Run", TestCaseIDs: []string{"TC-99"}}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown case, got %v", err)
	}

	approvedID := f.seedApprovedCase(t, actor, "Approved case", 1)
	if _, err := f.service.CreateTestRun(ctx, actor, application.CreateTestRunRequest{Name: "Run", TestCaseIDs: []string{approvedID, approvedID}}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected duplicate case rejection, got %v", err)
	}
	if _, err := f.service.CreateTestRun(ctx, actor, application.CreateTestRunRequest{Name: "Run", TestCaseIDs: []string{"UR-1"}}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected non-case id to read as a miss, got %v", err)
	}
}

func TestRecordStepResultGuards(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	actor, _ := f.seedActor(t, "recorder@example.com")
	caseID := f.seedApprovedCase(t, actor, "Single step", 1)

	run, err := f.service.CreateTestRun(ctx, actor, application.CreateTestRunRequest{Name: "Guard run", TestCaseIDs: []string{caseID}})
	if err != nil {
		t.Fatalf("create run failed: %v", err)
	}

	if _, err := f.service.RecordStepResult(ctx, actor, run.ID, caseID, 1, application.RecordStepResultRequest{Status: "maybe"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid status rejection, got %v", err)
	}
	if _, err := f.service.RecordStepResult(ctx, actor, run.ID, caseID, 7, application.RecordStepResultRequest{Status: "pass"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown position, got %v", err)
	}
	if _, err := f.service.ApproveTestRun(ctx, actor, run.ID, application.ApproveRequest{Password: "SecurePass123!"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict approving an incomplete run, got %v", err)
	}

	if _, err := f.service.RecordStepResult(ctx, actor, run.ID, caseID, 1, application.RecordStepResultRequest{Status: "pass"}); err != nil {
		t.Fatalf("record step failed: %v", err)
	}
	if _, err := f.service.ApproveTestRun(ctx, actor, run.ID, application.ApproveRequest{Password: "SecurePass123!"}); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if _, err := f.service.RecordStepResult(ctx, actor, run.ID, caseID, 1, application.RecordStepResultRequest{Status: "fail"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected approved runs to be frozen, got %v", err)
	}
}

func TestCreateTraceEnforcesDirectionMatrix(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	actor, _ := f.seedActor(t, "tracer@example.com")

	ur, err := f.service.CreateUserRequirement(ctx, actor, application.CreateRecordRequest{Title: "Need"})
	if err != nil {
		t.Fatalf("create ur failed: %v", err)
	}
	sr, err := f.service.CreateSystemRequirement(ctx, actor, application.CreateRecordRequest{Title: "Spec"})
	if err != nil {
		t.Fatalf("create sr failed: %v", err)
	}

	trace, err := f.service.CreateTrace(ctx, actor, application.CreateTraceRequest{FromID: ur.ID, ToID: sr.ID})
	if err != nil {
		t.Fatalf("create trace failed: %v", err)
	}
	if trace.IsSystemGenerated {
		t.Fatalf("hand-made traces must not be system generated")
	}

	if _, err := f.service.CreateTrace(ctx, actor, application.CreateTraceRequest{FromID: sr.ID, ToID: ur.ID}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected reversed direction rejection, got %v", err)
	}
	if _, err := f.service.CreateTrace(ctx, actor, application.CreateTraceRequest{FromID: ur.ID, ToID: ur.ID}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected self trace rejection, got %v", err)
	}
	if _, err := f.service.CreateTrace(ctx, actor, application.CreateTraceRequest{FromID: ur.ID, ToID: sr.ID}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected duplicate trace conflict, got %v", err)
	}
	if _, err := f.service.CreateTrace(ctx, actor, application.CreateTraceRequest{FromID: ur.ID, ToID: "SR-42"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected missing endpoint rejection, got %v", err)
	}
}

func TestListTracesSplitsDirections(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	actor, _ := f.seedActor(t, "split@example.com")

	ur, _ := f.service.CreateUserRequirement(ctx, actor, application.CreateRecordRequest{Title: "Need"})
	sr, _ := f.service.CreateSystemRequirement(ctx, actor, application.CreateRecordRequest{Title: "Spec"})
	tc, err := f.service.CreateTestCase(ctx, actor, application.CreateTestCaseRequest{
		Title: "Check",
		Steps: []application.TestStepInput{{Action: "Verify"}},
	})
	if err != nil {
		t.Fatalf("create case failed: %v", err)
	}

	if _, err := f.service.CreateTrace(ctx, actor, application.CreateTraceRequest{FromID: ur.ID, ToID: sr.ID}); err != nil {
		t.Fatalf("trace ur->sr failed: %v", err)
	}
	if _, err := f.service.CreateTrace(ctx, actor, application.CreateTraceRequest{FromID: sr.ID, ToID: tc.ID}); err != nil {
		t.Fatalf("trace sr->tc failed: %v", err)
	}

	res, err := f.service.ListTracesForRecord(ctx, sr.ID)
	if err != nil {
		t.Fatalf("list traces failed: %v", err)
	}
	if len(res.Upstream) != 1 || res.Upstream[0].ID != ur.ID {
		t.Fatalf("expected upstream UR, got %+v", res.Upstream)
	}
	if len(res.Downstream) != 1 || res.Downstream[0].ID != tc.ID {
		t.Fatalf("expected downstream TC, got %+v", res.Downstream)
	}

	if err := f.service.DeleteTrace(ctx, actor, ur.ID, sr.ID); err != nil {
		t.Fatalf("delete trace failed: %v", err)
	}
	res, err = f.service.ListTracesForRecord(ctx, sr.ID)
	if err != nil {
		t.Fatalf("list traces failed: %v", err)
	}
	if len(res.Upstream) != 0 {
		t.Fatalf("expected upstream to be empty after delete, got %+v", res.Upstream)
	}
}

func TestTraceGraphHidesDeletedEndpoints(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	actor, _ := f.seedActor(t, "graph@example.com")

	ur, _ := f.service.CreateUserRequirement(ctx, actor, application.CreateRecordRequest{Title: "Need"})
	sr, _ := f.service.CreateSystemRequirement(ctx, actor, application.CreateRecordRequest{Title: "Spec"})
	if _, err := f.service.CreateTrace(ctx, actor, application.CreateTraceRequest{FromID: ur.ID, ToID: sr.ID}); err != nil {
		t.Fatalf("create trace failed: %v", err)
	}

	graph, err := f.service.TraceGraph(ctx)
	if err != nil {
		t.Fatalf("graph failed: %v", err)
	}
	if len(graph.Nodes) != 2 || len(graph.Links) != 1 {
		t.Fatalf("expected 2 nodes 1 link, got %d nodes %d links", len(graph.Nodes), len(graph.Links))
	}

	if err := f.service.DeleteSystemRequirement(ctx, actor, sr.ID, application.DeleteRequest{Password: "SecurePass123!"}); err != nil {
		t.Fatalf("delete sr failed: %v", err)
	}

	graph, err = f.service.TraceGraph(ctx)
	if err != nil {
		t.Fatalf("graph failed: %v", err)
	}
	if len(graph.Nodes) != 1 || graph.Nodes[0].ID != ur.ID {
		t.Fatalf("expected only the live node, got %+v", graph.Nodes)
	}
	if len(graph.Links) != 0 {
		t.Fatalf("links to deleted records must disappear, got %+v", graph.Links)
	}
}

func TestAuditTrailRecordsLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	actor, _ := f.seedActor(t, "auditor@example.com")

	created, err := f.service.CreateUserRequirement(ctx, actor, application.CreateRecordRequest{Title: "Traceable"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := f.service.ApproveUserRequirement(ctx, actor, created.ID, application.ApproveRequest{Password: "SecurePass123!", ApprovalNotes: "ok"}); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	res, err := f.service.ListAuditTrail(ctx, application.AuditTrailQuery{EntityID: created.ID})
	if err != nil {
		t.Fatalf("list audit failed: %v", err)
	}
	if len(res.Events) != 2 {
		t.Fatalf("expected 2 events for the record, got %d", len(res.Events))
	}
	// Newest first.
	if res.Events[0].Action != "user-requirement.approved" || res.Events[1].Action != "user-requirement.created" {
		t.Fatalf("unexpected event order: %s then %s", res.Events[0].Action, res.Events[1].Action)
	}
	if res.Events[0].ActorID != actor.UserID || res.Events[0].ActorEmail != actor.Email {
		t.Fatalf("approval event must carry the actor")
	}

	res, err = f.service.ListAuditTrail(ctx, application.AuditTrailQuery{Action: "user-requirement.approved"})
	if err != nil {
		t.Fatalf("filtered list failed: %v", err)
	}
	if len(res.Events) != 1 {
		t.Fatalf("expected 1 approval event, got %d", len(res.Events))
	}
	if notes, ok := res.Events[0].Payload["approval_notes"]; !ok || notes != "ok" {
		t.Fatalf("expected approval notes in payload, got %+v", res.Events[0].Payload)
	}

	if _, err := f.service.ListAuditTrail(ctx, application.AuditTrailQuery{ActorID: "not-a-uuid"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid actor id rejection, got %v", err)
	}
}

func newFixture() *fixture {
	return newFixtureWithConfig(defaultTestConfig())
}

func defaultTestConfig() application.Config {
	return application.Config{
		TokenTTL:             24 * time.Hour,
		SessionTTL:           30 * 24 * time.Hour,
		SessionAbsoluteTTL:   90 * 24 * time.Hour,
		FailedLoginThreshold: 5,
		LockoutDuration:      30 * time.Minute,
	}
}

func newFixtureWithConfig(cfg application.Config) *fixture {
	audit := &fakeAudit{}
	users := &fakeUsers{byEmail: map[string]domain.User{}, byID: map[uuid.UUID]domain.User{}, audit: audit}
	sessions := &fakeSessions{byID: map[uuid.UUID]domain.Session{}}
	attempts := &fakeLoginAttempts{}
	userReqs := newFakeRequirements(domain.KindUserRequirement, audit)
	sysReqs := newFakeRequirements(domain.KindSystemRequirement, audit)
	risks := &fakeRisks{items: map[string]domain.Risk{}, audit: audit}
	cases := &fakeTestCases{items: map[string]domain.TestCase{}, audit: audit}
	traces := &fakeTraces{audit: audit}
	runs := &fakeTestRuns{
		items:  map[string]domain.TestRun{},
		cases:  map[string][]domain.TestRunCase{},
		steps:  map[string][]domain.TestRunStep{},
		tcs:    cases,
		traces: traces,
		audit:  audit,
	}

	svc := application.NewService(application.Dependencies{
		Config:             cfg,
		Users:              users,
		Sessions:           sessions,
		LoginAttempts:      attempts,
		UserRequirements:   userReqs,
		SystemRequirements: sysReqs,
		Risks:              risks,
		TestCases:          cases,
		TestRuns:           runs,
		Traces:             traces,
		Audit:              audit,
		Lockouts:           &fakeLockouts{state: map[string]ports.LockoutState{}},
		Revocations:        &fakeRevocations{revoked: map[uuid.UUID]bool{}},
		Hasher:             &fakeHasher{},
		TokenSigner:        &fakeSigner{tokens: map[string]ports.AuthClaims{}},
	})

	return &fixture{
		service:  svc,
		users:    users,
		sessions: sessions,
		attempts: attempts,
		userReqs: userReqs,
		sysReqs:  sysReqs,
		audit:    audit,
	}
}

type fixture struct {
	service  *application.Service
	users    *fakeUsers
	sessions *fakeSessions
	attempts *fakeLoginAttempts
	userReqs *fakeRequirements
	sysReqs  *fakeRequirements
	audit    *fakeAudit
}

// seedActor registers and logs in a user, returning the actor the middleware
// would hand to handlers. Every seeded account shares the fixture password.
func (f *fixture) seedActor(t *testing.T, email string) (application.Actor, string) {
	t.Helper()
	ctx := context.Background()

	regRes, err := f.service.Register(ctx, application.RegisterRequest{
		Email:    email,
		FullName: "Fixture User",
		Password: "SecurePass123!",
	})
	if err != nil {
		t.Fatalf("seed register failed: %v", err)
	}
	loginRes, err := f.service.Login(ctx, application.LoginRequest{Email: email, Password: "SecurePass123!"})
	if err != nil {
		t.Fatalf("seed login failed: %v", err)
	}
	return application.Actor{
		UserID:    regRes.UserID,
		Email:     email,
		FullName:  "Fixture User",
		SessionID: loginRes.SessionID,
	}, loginRes.Token
}

// seedApprovedCase creates and approves a test case with the given number of
// steps, returning its ID.
func (f *fixture) seedApprovedCase(t *testing.T, actor application.Actor, title string, stepCount int) string {
	t.Helper()
	ctx := context.Background()

	steps := make([]application.TestStepInput, 0, stepCount)
	for i := 0; i < stepCount; i++ {
		steps = append(steps, application.TestStepInput{Action: "Do step", ExpectedResult: "It works"})
	}
	created, err := f.service.CreateTestCase(ctx, actor, application.CreateTestCaseRequest{Title: title, Steps: steps})
	if err != nil {
		t.Fatalf("seed case create failed: %v", err)
	}
	if _, err := f.service.ApproveTestCase(ctx, actor, created.ID, application.ApproveRequest{Password: "SecurePass123!"}); err != nil {
		t.Fatalf("seed case approve failed: %v", err)
	}
	return created.ID
}

type fakeUsers struct {
	mu      sync.Mutex
	byEmail map[string]domain.User
	byID    map[uuid.UUID]domain.User
	audit   *fakeAudit
}

func (f *fakeUsers) CreateWithAuditTx(_ context.Context, params ports.CreateUserParams, event domain.AuditEvent) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[params.Email]; ok {
		return domain.User{}, domain.ErrConflict
	}
	u := domain.User{
		UserID:       uuid.New(),
		Email:        params.Email,
		FullName:     params.FullName,
		PasswordHash: params.PasswordHash,
		IsActive:     true,
		CreatedAt:    params.RegisteredAt,
		UpdatedAt:    params.RegisteredAt,
	}
	f.byEmail[u.Email] = u
	f.byID[u.UserID] = u

	event.EntityID = u.UserID.String()
	event.ActorID = u.UserID
	f.audit.append(event)
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, userID uuid.UUID) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) Count(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.byID)), nil
}

type fakeSessions struct {
	mu   sync.Mutex
	byID map[uuid.UUID]domain.Session
}

func (f *fakeSessions) Create(_ context.Context, params ports.SessionCreateParams) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := domain.Session{
		SessionID:      uuid.New(),
		UserID:         params.UserID,
		IPAddress:      params.IPAddress,
		UserAgent:      params.UserAgent,
		CreatedAt:      params.LastActivityAt,
		LastActivityAt: params.LastActivityAt,
		ExpiresAt:      params.ExpiresAt,
	}
	f.byID[s.SessionID] = s
	return s, nil
}

func (f *fakeSessions) GetByID(_ context.Context, sessionID uuid.UUID) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[sessionID]
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeSessions) ListByUser(_ context.Context, userID uuid.UUID, _, _ int) ([]domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Session
	for _, s := range f.byID {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessions) TouchActivity(_ context.Context, sessionID uuid.UUID, touchedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.byID[sessionID]
	s.LastActivityAt = touchedAt
	f.byID[sessionID] = s
	return nil
}

func (f *fakeSessions) RevokeByID(_ context.Context, sessionID uuid.UUID, revokedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	s.RevokedAt = &revokedAt
	f.byID[sessionID] = s
	return nil
}

func (f *fakeSessions) RevokeAllByUser(_ context.Context, userID uuid.UUID, revokedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, s := range f.byID {
		if s.UserID == userID {
			s.RevokedAt = &revokedAt
			f.byID[k] = s
		}
	}
	return nil
}

type fakeLoginAttempts struct {
	mu       sync.Mutex
	attempts []domain.LoginAttempt
}

func (f *fakeLoginAttempts) Insert(_ context.Context, attempt domain.LoginAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt.ID = int64(len(f.attempts) + 1)
	f.attempts = append(f.attempts, attempt)
	return nil
}

func (f *fakeLoginAttempts) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int, since *time.Time, status string) ([]domain.LoginAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.LoginAttempt
	for i := len(f.attempts) - 1; i >= 0; i-- {
		a := f.attempts[i]
		if a.UserID == nil || *a.UserID != userID {
			continue
		}
		if since != nil && a.AttemptAt.Before(*since) {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, a)
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeRequirements struct {
	mu    sync.Mutex
	kind  domain.RecordKind
	seq   int64
	items map[string]domain.Requirement
	order []string
	audit *fakeAudit
}

func newFakeRequirements(kind domain.RecordKind, audit *fakeAudit) *fakeRequirements {
	return &fakeRequirements{kind: kind, items: map[string]domain.Requirement{}, audit: audit}
}

func (f *fakeRequirements) Create(_ context.Context, draft domain.Requirement, event domain.AuditEvent) (domain.Requirement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := domain.FormatRecordID(f.kind, f.seq)
	rec := draft
	rec.ID = id
	rec.Kind = f.kind
	rec.Status = domain.StatusDraft
	rec.Revision = 0
	rec.LastModified = draft.CreatedAt
	rec.ModifiedBy = draft.CreatedBy
	f.items[id] = rec
	f.order = append(f.order, id)

	event.EntityID = id
	f.audit.append(event)
	return rec, nil
}

func (f *fakeRequirements) GetByID(_ context.Context, id string) (domain.Requirement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.items[id]
	if !ok || rec.DeletedAt != nil {
		return domain.Requirement{}, domain.ErrNotFound
	}
	return rec, nil
}

func (f *fakeRequirements) List(_ context.Context, q ports.RecordQuery) ([]domain.Requirement, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []domain.Requirement
	for _, id := range f.order {
		rec := f.items[id]
		if rec.DeletedAt != nil {
			continue
		}
		if q.Status != "" && rec.Status != q.Status {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(rec.Title), strings.ToLower(q.Search)) {
			continue
		}
		all = append(all, rec)
	}
	total := int64(len(all))
	return pageSlice(all, q.Limit, q.Offset), total, nil
}

func (f *fakeRequirements) Update(_ context.Context, id, title, description string, modifiedBy uuid.UUID, at time.Time, event domain.AuditEvent) (domain.Requirement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.items[id]
	if !ok || rec.DeletedAt != nil {
		return domain.Requirement{}, domain.ErrNotFound
	}
	rec.Title = title
	rec.Description = description
	rec.Status = domain.StatusDraft
	rec.LastModified = at
	rec.ModifiedBy = modifiedBy
	f.items[id] = rec
	f.audit.append(event)
	return rec, nil
}

func (f *fakeRequirements) Approve(_ context.Context, id string, approvedBy uuid.UUID, notes string, at time.Time, event domain.AuditEvent) (domain.Requirement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.items[id]
	if !ok || rec.DeletedAt != nil {
		return domain.Requirement{}, domain.ErrNotFound
	}
	if rec.Status != domain.StatusDraft {
		return domain.Requirement{}, domain.ErrConflict
	}
	rec.Status = domain.StatusApproved
	rec.Revision++
	rec.ApprovedAt = &at
	rec.ApprovedBy = &approvedBy
	rec.ApprovalNotes = notes
	rec.LastModified = at
	rec.ModifiedBy = approvedBy
	f.items[id] = rec
	f.audit.append(event)
	return rec, nil
}

func (f *fakeRequirements) SoftDelete(_ context.Context, id string, at time.Time, event domain.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.items[id]
	if !ok || rec.DeletedAt != nil {
		return domain.ErrNotFound
	}
	rec.DeletedAt = &at
	f.items[id] = rec
	f.audit.append(event)
	return nil
}

type fakeRisks struct {
	mu    sync.Mutex
	seq   int64
	items map[string]domain.Risk
	order []string
	audit *fakeAudit
}

func (f *fakeRisks) Create(_ context.Context, draft domain.Risk, event domain.AuditEvent) (domain.Risk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := domain.FormatRecordID(domain.KindRisk, f.seq)
	rec := draft
	rec.ID = id
	rec.Status = domain.StatusDraft
	rec.Revision = 0
	rec.LastModified = draft.CreatedAt
	rec.ModifiedBy = draft.CreatedBy
	f.items[id] = rec
	f.order = append(f.order, id)

	event.EntityID = id
	f.audit.append(event)
	return rec, nil
}

func (f *fakeRisks) GetByID(_ context.Context, id string) (domain.Risk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.items[id]
	if !ok || rec.DeletedAt != nil {
		return domain.Risk{}, domain.ErrNotFound
	}
	return rec, nil
}

func (f *fakeRisks) List(_ context.Context, q ports.RecordQuery) ([]domain.Risk, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []domain.Risk
	for _, id := range f.order {
		rec := f.items[id]
		if rec.DeletedAt != nil {
			continue
		}
		if q.Status != "" && rec.Status != q.Status {
			continue
		}
		if q.RiskLevel != "" && rec.RiskLevel != q.RiskLevel {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(rec.Title), strings.ToLower(q.Search)) {
			continue
		}
		all = append(all, rec)
	}
	total := int64(len(all))
	return pageSlice(all, q.Limit, q.Offset), total, nil
}

func (f *fakeRisks) Update(_ context.Context, id string, upd ports.RiskUpdate, modifiedBy uuid.UUID, at time.Time, event domain.AuditEvent) (domain.Risk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.items[id]
	if !ok || rec.DeletedAt != nil {
		return domain.Risk{}, domain.ErrNotFound
	}
	score, level := domain.ScoreRisk(upd.Severity, upd.Probability)
	rec.Title = upd.Title
	rec.Description = upd.Description
	rec.Severity = upd.Severity
	rec.Probability = upd.Probability
	rec.RiskScore = score
	rec.RiskLevel = level
	rec.Mitigation = upd.Mitigation
	rec.Status = domain.StatusDraft
	rec.LastModified = at
	rec.ModifiedBy = modifiedBy
	f.items[id] = rec
	f.audit.append(event)
	return rec, nil
}

func (f *fakeRisks) Approve(_ context.Context, id string, approvedBy uuid.UUID, notes string, at time.Time, event domain.AuditEvent) (domain.Risk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.items[id]
	if !ok || rec.DeletedAt != nil {
		return domain.Risk{}, domain.ErrNotFound
	}
	if rec.Status != domain.StatusDraft {
		return domain.Risk{}, domain.ErrConflict
	}
	rec.Status = domain.StatusApproved
	rec.Revision++
	rec.ApprovedAt = &at
	rec.ApprovedBy = &approvedBy
	rec.ApprovalNotes = notes
	rec.LastModified = at
	rec.ModifiedBy = approvedBy
	f.items[id] = rec
	f.audit.append(event)
	return rec, nil
}

func (f *fakeRisks) SoftDelete(_ context.Context, id string, at time.Time, event domain.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.items[id]
	if !ok || rec.DeletedAt != nil {
		return domain.ErrNotFound
	}
	rec.DeletedAt = &at
	f.items[id] = rec
	f.audit.append(event)
	return nil
}

type fakeTestCases struct {
	mu    sync.Mutex
	seq   int64
	items map[string]domain.TestCase
	order []string
	audit *fakeAudit
}

func (f *fakeTestCases) Create(_ context.Context, draft domain.TestCase, event domain.AuditEvent) (domain.TestCase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := domain.FormatRecordID(domain.KindTestCase, f.seq)
	rec := draft
	rec.ID = id
	rec.Status = domain.StatusDraft
	rec.Revision = 0
	rec.LastModified = draft.CreatedAt
	rec.ModifiedBy = draft.CreatedBy
	f.items[id] = rec
	f.order = append(f.order, id)

	event.EntityID = id
	f.audit.append(event)
	return rec, nil
}

func (f *fakeTestCases) GetByID(_ context.Context, id string) (domain.TestCase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.items[id]
	if !ok || rec.DeletedAt != nil {
		return domain.TestCase{}, domain.ErrNotFound
	}
	return rec, nil
}

func (f *fakeTestCases) List(_ context.Context, q ports.RecordQuery) ([]domain.TestCase, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []domain.TestCase
	for _, id := range f.order {
		rec := f.items[id]
		if rec.DeletedAt != nil {
			continue
		}
		if q.Status != "" && rec.Status != q.Status {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(rec.Title), strings.ToLower(q.Search)) {
			continue
		}
		all = append(all, rec)
	}
	total := int64(len(all))
	return pageSlice(all, q.Limit, q.Offset), total, nil
}

func (f *fakeTestCases) Update(_ context.Context, id, title, description string, steps []domain.TestStep, modifiedBy uuid.UUID, at time.Time, event domain.AuditEvent) (domain.TestCase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.items[id]
	if !ok || rec.DeletedAt != nil {
		return domain.TestCase{}, domain.ErrNotFound
	}
	rec.Title = title
	rec.Description = description
	rec.Steps = steps
	rec.Status = domain.StatusDraft
	rec.LastModified = at
	rec.ModifiedBy = modifiedBy
	f.items[id] = rec
	f.audit.append(event)
	return rec, nil
}

func (f *fakeTestCases) Approve(_ context.Context, id string, approvedBy uuid.UUID, notes string, at time.Time, event domain.AuditEvent) (domain.TestCase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.items[id]
	if !ok || rec.DeletedAt != nil {
		return domain.TestCase{}, domain.ErrNotFound
	}
	if rec.Status != domain.StatusDraft {
		return domain.TestCase{}, domain.ErrConflict
	}
	if len(rec.Steps) == 0 {
		return domain.TestCase{}, domain.ErrConflict
	}
	rec.Status = domain.StatusApproved
	rec.Revision++
	rec.ApprovedAt = &at
	rec.ApprovedBy = &approvedBy
	rec.ApprovalNotes = notes
	rec.LastModified = at
	rec.ModifiedBy = approvedBy
	f.items[id] = rec
	f.audit.append(event)
	return rec, nil
}

func (f *fakeTestCases) SoftDelete(_ context.Context, id string, at time.Time, event domain.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.items[id]
	if !ok || rec.DeletedAt != nil {
		return domain.ErrNotFound
	}
	rec.DeletedAt = &at
	f.items[id] = rec
	f.audit.append(event)
	return nil
}

// getLive is used by the run fake to validate referenced cases the way the
// database would inside the create transaction.
func (f *fakeTestCases) getLive(id string) (domain.TestCase, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.items[id]
	if !ok || rec.DeletedAt != nil {
		return domain.TestCase{}, false
	}
	return rec, true
}

type fakeTestRuns struct {
	mu     sync.Mutex
	seq    int64
	items  map[string]domain.TestRun
	order  []string
	cases  map[string][]domain.TestRunCase
	steps  map[string][]domain.TestRunStep
	tcs    *fakeTestCases
	traces *fakeTraces
	audit  *fakeAudit
}

func (f *fakeTestRuns) Create(_ context.Context, run domain.TestRun, testCaseIDs []string, event domain.AuditEvent) (domain.TestRun, error) {
	type snapshot struct {
		runCase domain.TestRunCase
		steps   []domain.TestRunStep
	}
	snapshots := make([]snapshot, 0, len(testCaseIDs))
	for _, caseID := range testCaseIDs {
		tc, ok := f.tcs.getLive(caseID)
		if !ok {
			return domain.TestRun{}, domain.ErrNotFound
		}
		if tc.Status != domain.StatusApproved {
			return domain.TestRun{}, domain.ErrConflict
		}
		if len(tc.Steps) == 0 {
			return domain.TestRun{}, domain.ErrConflict
		}
		snap := snapshot{runCase: domain.TestRunCase{
			TestCaseID:   caseID,
			CaseTitle:    tc.Title,
			CaseRevision: tc.Revision,
		}}
		for _, s := range tc.Steps {
			snap.steps = append(snap.steps, domain.TestRunStep{
				TestCaseID:     caseID,
				Position:       s.Position,
				Action:         s.Action,
				ExpectedResult: s.ExpectedResult,
			})
		}
		snapshots = append(snapshots, snap)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := domain.FormatRecordID(domain.KindTestRun, f.seq)
	rec := run
	rec.ID = id
	rec.Status = domain.TestRunPending
	rec.Revision = 0
	f.items[id] = rec
	f.order = append(f.order, id)
	for _, snap := range snapshots {
		rc := snap.runCase
		rc.TestRunID = id
		f.cases[id] = append(f.cases[id], rc)
		for _, s := range snap.steps {
			s.TestRunID = id
			f.steps[id] = append(f.steps[id], s)
		}
	}

	event.EntityID = id
	f.audit.append(event)
	return rec, nil
}

func (f *fakeTestRuns) GetByID(_ context.Context, id string) (domain.TestRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.items[id]
	if !ok || rec.DeletedAt != nil {
		return domain.TestRun{}, domain.ErrNotFound
	}
	return rec, nil
}

func (f *fakeTestRuns) List(_ context.Context, q ports.RecordQuery) ([]domain.TestRun, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []domain.TestRun
	for _, id := range f.order {
		rec := f.items[id]
		if rec.DeletedAt != nil {
			continue
		}
		if q.Status != "" && string(rec.Status) != string(q.Status) {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(rec.Name), strings.ToLower(q.Search)) {
			continue
		}
		all = append(all, rec)
	}
	total := int64(len(all))
	return pageSlice(all, q.Limit, q.Offset), total, nil
}

func (f *fakeTestRuns) ListCases(_ context.Context, runID string) ([]domain.TestRunCase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.TestRunCase{}, f.cases[runID]...), nil
}

func (f *fakeTestRuns) ListSteps(_ context.Context, runID string) ([]domain.TestRunStep, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.TestRunStep{}, f.steps[runID]...), nil
}

func (f *fakeTestRuns) RecordStepResult(_ context.Context, runID, caseID string, position int, status domain.TestResult, actualResult string, recordedBy uuid.UUID, at time.Time, event domain.AuditEvent) (domain.TestRunStep, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.items[runID]
	if !ok || run.DeletedAt != nil {
		return domain.TestRunStep{}, domain.ErrNotFound
	}
	if run.Status == domain.TestRunApproved {
		return domain.TestRunStep{}, domain.ErrConflict
	}

	var updated *domain.TestRunStep
	for i := range f.steps[runID] {
		s := &f.steps[runID][i]
		if s.TestCaseID == caseID && s.Position == position {
			s.Status = status
			s.ActualResult = actualResult
			s.RecordedAt = &at
			s.RecordedBy = &recordedBy
			updated = s
			break
		}
	}
	if updated == nil {
		return domain.TestRunStep{}, domain.ErrNotFound
	}

	f.rollup(runID, caseID, recordedBy, at)
	f.audit.append(event)
	return *updated, nil
}

// rollup mirrors the database-side aggregation: a case completes when every
// step has a result, the run completes when every case has a verdict.
func (f *fakeTestRuns) rollup(runID, caseID string, actor uuid.UUID, at time.Time) {
	casePending, caseFailed := 0, 0
	for _, s := range f.steps[runID] {
		if s.TestCaseID != caseID {
			continue
		}
		switch s.Status {
		case "":
			casePending++
		case domain.ResultFail:
			caseFailed++
		}
	}
	for i := range f.cases[runID] {
		c := &f.cases[runID][i]
		if c.TestCaseID != caseID {
			continue
		}
		if casePending == 0 {
			verdict := domain.ResultPass
			if caseFailed > 0 {
				verdict = domain.ResultFail
			}
			c.Result = verdict
			completed := at
			c.CompletedAt = &completed
		} else {
			c.Result = ""
			c.CompletedAt = nil
		}
	}

	runPending, runFailed := 0, 0
	for _, c := range f.cases[runID] {
		switch c.Result {
		case "":
			runPending++
		case domain.ResultFail:
			runFailed++
		}
	}
	run := f.items[runID]
	if runPending == 0 {
		run.Status = domain.TestRunComplete
		run.OverallResult = domain.ResultPass
		if runFailed > 0 {
			run.OverallResult = domain.ResultFail
		}
	} else {
		run.Status = domain.TestRunInProgress
		run.OverallResult = ""
	}
	run.LastModified = at
	run.ModifiedBy = actor
	f.items[runID] = run
}

func (f *fakeTestRuns) Approve(_ context.Context, id string, approvedBy uuid.UUID, notes string, at time.Time, event domain.AuditEvent) (domain.TestRun, error) {
	f.mu.Lock()
	run, ok := f.items[id]
	if !ok || run.DeletedAt != nil {
		f.mu.Unlock()
		return domain.TestRun{}, domain.ErrNotFound
	}
	if run.Status != domain.TestRunComplete {
		f.mu.Unlock()
		return domain.TestRun{}, domain.ErrConflict
	}
	run.Status = domain.TestRunApproved
	run.Revision++
	run.ApprovedAt = &at
	run.ApprovedBy = &approvedBy
	run.ApprovalNotes = notes
	run.LastModified = at
	run.ModifiedBy = approvedBy
	f.items[id] = run
	runCases := append([]domain.TestRunCase{}, f.cases[id]...)
	f.mu.Unlock()

	for _, c := range runCases {
		f.traces.upsertSystem(domain.Trace{
			FromID:            c.TestCaseID,
			FromKind:          domain.KindTestCase,
			ToID:              id,
			ToKind:            domain.KindTestRun,
			CreatedBy:         approvedBy,
			CreatedAt:         at,
			IsSystemGenerated: true,
		})
	}
	f.audit.append(event)
	return run, nil
}

func (f *fakeTestRuns) SoftDelete(_ context.Context, id string, at time.Time, event domain.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.items[id]
	if !ok || rec.DeletedAt != nil {
		return domain.ErrNotFound
	}
	rec.DeletedAt = &at
	f.items[id] = rec
	f.audit.append(event)
	return nil
}

type fakeTraces struct {
	mu    sync.Mutex
	items []domain.Trace
	audit *fakeAudit
}

func (f *fakeTraces) Create(_ context.Context, trace domain.Trace, event domain.AuditEvent) (domain.Trace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.items {
		if t.FromID == trace.FromID && t.ToID == trace.ToID {
			return domain.Trace{}, domain.ErrConflict
		}
	}
	trace.TraceID = uuid.New()
	f.items = append(f.items, trace)
	f.audit.append(event)
	return trace, nil
}

// upsertSystem mirrors an insert with conflict-do-nothing semantics.
func (f *fakeTraces) upsertSystem(trace domain.Trace) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.items {
		if t.FromID == trace.FromID && t.ToID == trace.ToID {
			return
		}
	}
	trace.TraceID = uuid.New()
	f.items = append(f.items, trace)
}

func (f *fakeTraces) Delete(_ context.Context, fromID, toID string, event domain.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.items {
		if t.FromID != fromID || t.ToID != toID {
			continue
		}
		if t.IsSystemGenerated {
			return domain.ErrConflict
		}
		f.items = append(f.items[:i], f.items[i+1:]...)
		f.audit.append(event)
		return nil
	}
	return domain.ErrNotFound
}

func (f *fakeTraces) ListByRecord(_ context.Context, recordID string) ([]domain.Trace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Trace
	for _, t := range f.items {
		if t.FromID == recordID || t.ToID == recordID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTraces) ListAll(context.Context) ([]domain.Trace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Trace{}, f.items...), nil
}

type fakeAudit struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (f *fakeAudit) append(event domain.AuditEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeAudit) List(_ context.Context, q ports.AuditQuery) ([]domain.AuditEvent, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var filtered []domain.AuditEvent
	for i := len(f.events) - 1; i >= 0; i-- {
		e := f.events[i]
		if q.EntityID != "" && e.EntityID != q.EntityID {
			continue
		}
		if q.Action != "" && e.Action != q.Action {
			continue
		}
		if q.ActorID != uuid.Nil && e.ActorID != q.ActorID {
			continue
		}
		filtered = append(filtered, e)
	}
	total := int64(len(filtered))
	return pageSlice(filtered, q.Limit, q.Offset), total, nil
}

func (f *fakeAudit) ClaimUnpublished(context.Context, int, string, time.Time) ([]ports.AuditDelivery, error) {
	return nil, nil
}
func (f *fakeAudit) MarkPublished(context.Context, uuid.UUID, string, time.Time) error { return nil }
func (f *fakeAudit) MarkFailed(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}
func (f *fakeAudit) MarkDeadLettered(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}

type fakeLockouts struct {
	mu    sync.Mutex
	state map[string]ports.LockoutState
}

func (f *fakeLockouts) Get(_ context.Context, key string) (ports.LockoutState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state[key], nil
}

func (f *fakeLockouts) RecordFailure(_ context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LockoutState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.state[key]
	st.FailedCount++
	if st.FailedCount >= threshold {
		lockUntil := now.Add(lockoutWindow)
		st.LockedUntil = &lockUntil
	}
	f.state[key] = st
	return st, nil
}

func (f *fakeLockouts) Clear(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.state, key)
	return nil
}

type fakeRevocations struct {
	mu      sync.Mutex
	revoked map[uuid.UUID]bool
}

func (f *fakeRevocations) MarkRevoked(_ context.Context, sessionID uuid.UUID, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[sessionID] = true
	return nil
}

func (f *fakeRevocations) IsRevoked(_ context.Context, sessionID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revoked[sessionID], nil
}

type fakeHasher struct{}

func (f *fakeHasher) Hash(password string) (string, error) { return "hash:" + password, nil }

func (f *fakeHasher) Compare(hash, password string) error {
	if hash != "hash:"+password {
		return errors.New("hash mismatch")
	}
	return nil
}

type fakeSigner struct {
	mu     sync.Mutex
	tokens map[string]ports.AuthClaims
}

func (f *fakeSigner) Sign(claims ports.AuthClaims) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token := uuid.NewString()
	f.tokens[token] = claims
	return token, nil
}

func (f *fakeSigner) ParseAndValidate(token string) (ports.AuthClaims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claims, ok := f.tokens[token]
	if !ok {
		return ports.AuthClaims{}, domain.ErrUnauthorized
	}
	return claims, nil
}

func (f *fakeSigner) PublicJWKs() ([]map[string]any, error) {
	return []map[string]any{{"kid": "fake", "kty": "RSA"}}, nil
}

// pageSlice applies limit/offset the way the repositories do: a non-positive
// limit returns everything.
func pageSlice[T any](all []T, limit, offset int) []T {
	if limit <= 0 {
		return all
	}
	if offset >= len(all) {
		return nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}
