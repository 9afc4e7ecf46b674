package domain

import (
	"fmt"
	"regexp"
	"strconv"
)

// RecordKind identifies one of the traceable record families.
// Every record ID carries its kind as a prefix, so an ID alone is enough to
// route lookups to the owning table.
type RecordKind string

const (
	KindUserRequirement   RecordKind = "user-requirement"
	KindSystemRequirement RecordKind = "system-requirement"
	KindRisk              RecordKind = "risk"
	KindTestCase          RecordKind = "test-case"
	KindTestRun           RecordKind = "test-run"
)

var kindPrefixes = map[RecordKind]string{
	KindUserRequirement:   "UR",
	KindSystemRequirement: "SR",
	KindRisk:              "RISK",
	KindTestCase:          "TC",
	KindTestRun:           "TR",
}

var prefixKinds = map[string]RecordKind{
	"UR":   KindUserRequirement,
	"SR":   KindSystemRequirement,
	"RISK": KindRisk,
	"TC":   KindTestCase,
	"TR":   KindTestRun,
}

var recordIDPattern = regexp.MustCompile(`^(UR|SR|RISK|TC|TR)-([1-9][0-9]{0,8})$`)

// Prefix returns the ID prefix for the kind, e.g. "UR" for user requirements.
func (k RecordKind) Prefix() string { return kindPrefixes[k] }

// Valid reports whether k names a known record family.
func (k RecordKind) Valid() bool {
	_, ok := kindPrefixes[k]
	return ok
}

// FormatRecordID renders the canonical ID for a kind and sequence number.
func FormatRecordID(kind RecordKind, seq int64) string {
	return fmt.Sprintf("%s-%d", kindPrefixes[kind], seq)
}

// ParseRecordID dispatches an ID like "UR-12" or "RISK-3" to its kind and
// sequence number. Unknown prefixes and malformed numbers are invalid input,
// not not-found: the caller never looked anything up.
func ParseRecordID(id string) (RecordKind, int64, error) {
	m := recordIDPattern.FindStringSubmatch(id)
	if m == nil {
		return "", 0, fmt.Errorf("%w: malformed record id %q", ErrInvalidInput, id)
	}
	seq, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: malformed record id %q", ErrInvalidInput, id)
	}
	return prefixKinds[m[1]], seq, nil
}

// KindFromID returns just the kind component of a record ID.
func KindFromID(id string) (RecordKind, error) {
	kind, _, err := ParseRecordID(id)
	return kind, err
}

// RecordStatus is the approval state shared by all record kinds.
// Editing an approved record reverts it to draft; the revision counter only
// moves forward, on approval.
type RecordStatus string

const (
	StatusDraft    RecordStatus = "draft"
	StatusApproved RecordStatus = "approved"
)
