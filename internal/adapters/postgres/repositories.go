package postgres

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/reqquli/reqquli/internal/domain"
	"github.com/reqquli/reqquli/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repositories struct {
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
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:         &userRepository{db: db},
		Sessions:      &sessionRepository{db: db},
		LoginAttempts: &loginAttemptRepository{db: db},
		UserRequirements: &requirementRepository{
			db:    db,
			table: "user_requirements",
			kind:  domain.KindUserRequirement,
		},
		SystemRequirements: &requirementRepository{
			db:    db,
			table: "system_requirements",
			kind:  domain.KindSystemRequirement,
		},
		Risks:     &riskRepository{db: db},
		TestCases: &testCaseRepository{db: db},
		TestRuns:  &testRunRepository{db: db},
		Traces:    &traceRepository{db: db},
		Audit:     &auditRepository{db: db},
	}
}

// nextRecordID allocates the next per-kind sequence value inside tx.
// The row lock serializes allocation so concurrent creates of the same kind
// never mint the same ID. Rolled-back transactions leave gaps, which is fine:
// IDs identify, they do not count.
func nextRecordID(tx *gorm.DB, kind domain.RecordKind) (string, error) {
	var seq recordSequenceModel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("kind = ?", string(kind)).
		Take(&seq).Error; err != nil {
		return "", fmt.Errorf("load sequence for %s: %w", kind, err)
	}
	if err := tx.Model(&recordSequenceModel{}).
		Where("kind = ?", string(kind)).
		Update("next_value", seq.NextValue+1).Error; err != nil {
		return "", fmt.Errorf("advance sequence for %s: %w", kind, err)
	}
	return domain.FormatRecordID(kind, seq.NextValue), nil
}

// appendAudit writes one audit event inside tx so the trail commits or rolls
// back with the mutation it describes.
func appendAudit(tx *gorm.DB, event domain.AuditEvent) error {
	payload := "{}"
	if event.Payload != nil {
		raw, err := json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("marshal audit payload: %w", err)
		}
		payload = string(raw)
	}
	rec := auditEventModel{
		EventID:    event.EventID,
		EntityID:   event.EntityID,
		EntityType: event.EntityType,
		Action:     event.Action,
		ActorID:    event.ActorID,
		ActorEmail: event.ActorEmail,
		Payload:    payload,
		OccurredAt: event.OccurredAt,
	}
	return tx.Create(&rec).Error
}

// orderClause maps an API sort key to a SQL order expression through an
// allow-list, falling back when the key is unknown.
func orderClause(columns map[string]string, sortBy, sortOrder, fallback string) string {
	col, ok := columns[sortBy]
	if !ok {
		col = fallback
	}
	dir := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		dir = "ASC"
	}
	return col + " " + dir
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(v string) string {
	return likeEscaper.Replace(v)
}

// pageScope applies limit/offset when a positive limit is set. A non-positive
// limit returns every row; the trace graph lists whole collections that way.
func pageScope(limit, offset int) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return tx
		}
		return tx.Limit(limit).Offset(offset)
	}
}
