package domain

import (
	"time"

	"github.com/google/uuid"
)

// TestStep is one ordered action/expectation pair inside a test case.
// Positions are assigned server-side from list order, starting at 1.
type TestStep struct {
	Position       int
	Action         string
	ExpectedResult string
}

// TestCase is an approvable procedure of ordered steps.
// Replacing the steps counts as an edit, so an approved case drops back to
// draft when its steps change.
type TestCase struct {
	ID            string
	Title         string
	Description   string
	Steps         []TestStep
	Status        RecordStatus
	Revision      int
	CreatedAt     time.Time
	CreatedBy     uuid.UUID
	LastModified  time.Time
	ModifiedBy    uuid.UUID
	ApprovedAt    *time.Time
	ApprovedBy    *uuid.UUID
	ApprovalNotes string
	DeletedAt     *time.Time
}

// TestRunStatus tracks execution progress of a run.
type TestRunStatus string

const (
	TestRunPending    TestRunStatus = "pending"
	TestRunInProgress TestRunStatus = "in_progress"
	TestRunComplete   TestRunStatus = "complete"
	TestRunApproved   TestRunStatus = "approved"
)

// TestResult is a recorded step outcome or a rolled-up case/run verdict.
type TestResult string

const (
	ResultPass TestResult = "pass"
	ResultFail TestResult = "fail"
)

// TestRun executes a fixed set of approved test cases.
// Name and description are frozen at creation; only step results and the final
// approval mutate a run. Approval snapshots the verdict and generates the
// case-to-run traces.
type TestRun struct {
	ID            string
	Name          string
	Description   string
	Status        TestRunStatus
	OverallResult TestResult // empty until every case completes
	Revision      int
	CreatedAt     time.Time
	CreatedBy     uuid.UUID
	LastModified  time.Time
	ModifiedBy    uuid.UUID
	ApprovedAt    *time.Time
	ApprovedBy    *uuid.UUID
	ApprovalNotes string
	DeletedAt     *time.Time
}

// TestRunCase pins one test case inside a run.
// CaseRevision records the revision that was executed even if the case is
// edited afterwards.
type TestRunCase struct {
	TestRunID    string
	TestCaseID   string
	CaseTitle    string
	CaseRevision int
	Result       TestResult // empty until every step has a recorded result
	CompletedAt  *time.Time
}

// TestRunStep is a step snapshot taken at run creation plus its recorded
// outcome. Copying action and expectation into the run keeps execution stable
// when the source case is edited mid-run.
type TestRunStep struct {
	TestRunID      string
	TestCaseID     string
	Position       int
	Action         string
	ExpectedResult string
	Status         TestResult // empty until recorded
	ActualResult   string
	RecordedAt     *time.Time
	RecordedBy     *uuid.UUID
}
