package domain

import (
	"time"

	"github.com/google/uuid"
)

// Audit action verbs. Full actions compose the entity type with a verb,
// e.g. "user-requirement.approved" or "trace.created".
const (
	AuditCreated    = "created"
	AuditUpdated    = "updated"
	AuditApproved   = "approved"
	AuditDeleted    = "deleted"
	AuditRegistered = "registered"
	AuditCaseResult = "case_result"
)

// AuditEvent is one immutable entry in the audit trail.
// Rows are written in the same transaction as the mutation they describe and
// are never deleted; stream delivery bookkeeping lives on the storage row, not
// here.
type AuditEvent struct {
	EventID    uuid.UUID
	EntityID   string
	EntityType string
	Action     string
	ActorID    uuid.UUID
	ActorEmail string
	Payload    map[string]any
	OccurredAt time.Time
}
