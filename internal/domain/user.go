package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an authenticated account. Approval and deletion gates compare the
// re-entered password against the same PasswordHash used at login.
type User struct {
	UserID       uuid.UUID
	Email        string
	FullName     string
	PasswordHash string
	IsActive     bool
	DeletedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session models a login session.
// We persist this separately to support per-device revocation and session history.
type Session struct {
	SessionID      uuid.UUID
	UserID         uuid.UUID
	IPAddress      string
	UserAgent      string
	CreatedAt      time.Time
	LastActivityAt time.Time
	ExpiresAt      time.Time
	RevokedAt      *time.Time
}

// Login attempt outcomes stored on LoginAttempt.Status.
const (
	LoginSucceeded = "SUCCESS"
	LoginFailed    = "FAILED"
)

// LoginAttempt records authentication outcomes for lockout decisions and the
// login-history endpoint.
type LoginAttempt struct {
	ID            int64
	UserID        *uuid.UUID
	AttemptAt     time.Time
	IPAddress     string
	UserAgent     string
	Status        string
	FailureReason string
}
