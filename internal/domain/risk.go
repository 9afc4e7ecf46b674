package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RiskLevel buckets a risk score for filtering and display.
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// Risk extends the common record shape with hazard-analysis fields.
// RiskScore and RiskLevel are derived from severity and probability and are
// recomputed on every update so the stored values never drift.
type Risk struct {
	ID            string
	Title         string
	Description   string
	Severity      int
	Probability   int
	RiskScore     int
	RiskLevel     RiskLevel
	Mitigation    string
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

// ScoreRisk computes the stored score and derived level.
// Thresholds: score >= 15 is high, >= 8 is medium, everything else low.
func ScoreRisk(severity, probability int) (int, RiskLevel) {
	score := severity * probability
	switch {
	case score >= 15:
		return score, RiskLevelHigh
	case score >= 8:
		return score, RiskLevelMedium
	default:
		return score, RiskLevelLow
	}
}

// ValidateRiskFactor checks a severity or probability value.
func ValidateRiskFactor(field string, v int) error {
	if v < 1 || v > 5 {
		return fmt.Errorf("%w: %s must be between 1 and 5", ErrInvalidInput, field)
	}
	return nil
}
