package domain

import (
	"fmt"
	"net/mail"
	"strings"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 10000
	maxNotesLength       = 1000
	maxStepTextLength    = 2000
	maxFullNameLength    = 100
)

// NormalizeEmail trims, parses, and lowercases an email address.
func NormalizeEmail(v string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(v))
	if err != nil {
		return "", fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	return strings.ToLower(addr.Address), nil
}

func ValidateTitle(v string) error {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if len(trimmed) > maxTitleLength {
		return fmt.Errorf("%w: title must be <= %d chars", ErrInvalidInput, maxTitleLength)
	}
	return nil
}

func ValidateDescription(v string) error {
	if len(v) > maxDescriptionLength {
		return fmt.Errorf("%w: description must be <= %d chars", ErrInvalidInput, maxDescriptionLength)
	}
	return nil
}

func ValidateApprovalNotes(v string) error {
	if len(v) > maxNotesLength {
		return fmt.Errorf("%w: approval_notes must be <= %d chars", ErrInvalidInput, maxNotesLength)
	}
	return nil
}

func ValidateFullName(v string) error {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return fmt.Errorf("%w: full_name is required", ErrInvalidInput)
	}
	if len(trimmed) > maxFullNameLength {
		return fmt.Errorf("%w: full_name must be <= %d chars", ErrInvalidInput, maxFullNameLength)
	}
	return nil
}

// ValidateTestSteps checks a replacement step list for a test case.
// An empty list is fine while drafting; approval requires at least one step.
// Positions are not validated here; they are reassigned from list order.
func ValidateTestSteps(steps []TestStep) error {
	for i, s := range steps {
		if strings.TrimSpace(s.Action) == "" {
			return fmt.Errorf("%w: step %d action is required", ErrInvalidInput, i+1)
		}
		if len(s.Action) > maxStepTextLength {
			return fmt.Errorf("%w: step %d action must be <= %d chars", ErrInvalidInput, i+1, maxStepTextLength)
		}
		if len(s.ExpectedResult) > maxStepTextLength {
			return fmt.Errorf("%w: step %d expected result must be <= %d chars", ErrInvalidInput, i+1, maxStepTextLength)
		}
	}
	return nil
}

// ValidateActualResult bounds the free-text outcome recorded for a step.
func ValidateActualResult(v string) error {
	if len(v) > maxStepTextLength {
		return fmt.Errorf("%w: actual_result must be <= %d chars", ErrInvalidInput, maxStepTextLength)
	}
	return nil
}
