package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/reqquli/reqquli/internal/domain"
	"gorm.io/gorm"
)

// loginAttemptRepository is append-plus-read: attempts are never updated or
// deleted, they exist to answer "what happened to this account lately".
type loginAttemptRepository struct {
	db *gorm.DB
}

func (r *loginAttemptRepository) Insert(ctx context.Context, attempt domain.LoginAttempt) error {
	return r.db.WithContext(ctx).Create(&loginAttemptModel{
		UserID:        attempt.UserID,
		AttemptAt:     attempt.AttemptAt,
		IPAddress:     nullableString(attempt.IPAddress),
		UserAgent:     attempt.UserAgent,
		Status:        attempt.Status,
		FailureReason: attempt.FailureReason,
	}).Error
}

func (r *loginAttemptRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int, since *time.Time, status string) ([]domain.LoginAttempt, error) {
	tx := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if since != nil {
		tx = tx.Where("attempt_at >= ?", *since)
	}
	if status = strings.TrimSpace(status); status != "" {
		tx = tx.Where("status = ?", status)
	}

	var rows []loginAttemptModel
	err := tx.Order("attempt_at DESC").
		Scopes(pageScope(limit, offset)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.LoginAttempt, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainLoginAttempt(row))
	}
	return out, nil
}
