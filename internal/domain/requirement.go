package domain

import (
	"time"

	"github.com/google/uuid"
)

// Requirement is the shared shape of user and system requirements.
// Which family a value belongs to travels in Kind; the two families have
// identical lifecycles, so one aggregate serves both.
type Requirement struct {
	ID            string
	Kind          RecordKind
	Title         string
	Description   string
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
