package application

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/reqquli/reqquli/internal/domain"
)

// ListSessions returns the caller's sessions, flagging the one behind the
// current token.
func (s *Service) ListSessions(ctx context.Context, actor Actor) ([]SessionItem, error) {
	sessions, err := s.sessions.ListByUser(ctx, actor.UserID, 100, 0)
	if err != nil {
		return nil, err
	}
	result := make([]SessionItem, 0, len(sessions))
	for _, it := range sessions {
		result = append(result, toSessionItem(it, actor.SessionID))
	}
	return result, nil
}

// RevokeSession revokes one of the caller's sessions by ID. A session that
// belongs to another user is ErrUnauthorized, not a miss.
func (s *Service) RevokeSession(ctx context.Context, actor Actor, sessionID uuid.UUID) error {
	target, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return domain.ErrNotFound
	}
	if target.UserID != actor.UserID {
		return domain.ErrUnauthorized
	}

	now := s.nowFn()
	if err := s.sessions.RevokeByID(ctx, sessionID, now); err != nil {
		return err
	}
	_ = s.revocations.MarkRevoked(ctx, sessionID, now.Add(s.cfg.TokenTTL))
	return nil
}

// ListLoginHistory returns the caller's login attempts, newest first.
func (s *Service) ListLoginHistory(ctx context.Context, actor Actor, q LoginHistoryQuery) ([]LoginHistoryItem, error) {
	page, limit := clampPage(q.Page, q.Limit)
	offset := (page - 1) * limit

	var since *time.Time
	if q.Days > 0 {
		t := s.nowFn().Add(-time.Duration(q.Days) * 24 * time.Hour)
		since = &t
	}

	attempts, err := s.loginAttempts.ListByUser(ctx, actor.UserID, limit, offset, since, strings.ToUpper(strings.TrimSpace(q.Status)))
	if err != nil {
		return nil, err
	}

	result := make([]LoginHistoryItem, 0, len(attempts))
	for _, attempt := range attempts {
		result = append(result, LoginHistoryItem{
			ID:            attempt.ID,
			Timestamp:     attempt.AttemptAt,
			Status:        attempt.Status,
			FailureReason: attempt.FailureReason,
			IPAddress:     attempt.IPAddress,
			UserAgent:     attempt.UserAgent,
		})
	}
	return result, nil
}
