package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Trace is one directed edge in the traceability graph.
// Endpoint kinds are resolved from the ID prefixes; a (FromID, ToID) pair is
// unique regardless of who created it.
type Trace struct {
	TraceID           uuid.UUID
	FromID            string
	FromKind          RecordKind
	ToID              string
	ToKind            RecordKind
	CreatedBy         uuid.UUID
	CreatedAt         time.Time
	IsSystemGenerated bool
}

// userTraceMatrix lists the directed kind pairs users may link by hand.
// Test-case to test-run edges are created by the system at run approval and
// are deliberately absent here.
var userTraceMatrix = map[RecordKind][]RecordKind{
	KindUserRequirement:   {KindSystemRequirement, KindRisk},
	KindSystemRequirement: {KindTestCase},
	KindRisk:              {KindSystemRequirement},
}

// ValidateUserTrace checks that a hand-made trace direction is allowed.
func ValidateUserTrace(from, to RecordKind) error {
	for _, allowed := range userTraceMatrix[from] {
		if to == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: traces from %s to %s are not allowed", ErrInvalidInput, from, to)
}
