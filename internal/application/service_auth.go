package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/reqquli/reqquli/internal/domain"
	"github.com/reqquli/reqquli/internal/ports"
)

// Register creates an account and writes the registration audit event in the
// same transaction, so an account either exists with its trail entry or not
// at all.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (RegisterResponse, error) {
	email, err := domain.NormalizeEmail(req.Email)
	if err != nil {
		return RegisterResponse{}, err
	}
	if err := domain.ValidateFullName(req.FullName); err != nil {
		return RegisterResponse{}, err
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return RegisterResponse{}, err
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return RegisterResponse{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.nowFn()
	// EntityID and ActorID are stamped by the repository once the user row
	// exists; a fresh registration is its own actor.
	event := s.newAuditEvent(Actor{Email: email}, "user", domain.AuditRegistered, "", map[string]any{
		"email":     email,
		"full_name": req.FullName,
	})

	user, err := s.users.CreateWithAuditTx(ctx, ports.CreateUserParams{
		Email:        email,
		FullName:     req.FullName,
		PasswordHash: passwordHash,
		RegisteredAt: now,
	}, event)
	if err != nil {
		return RegisterResponse{}, err
	}

	return RegisterResponse{UserID: user.UserID}, nil
}

// Login verifies credentials, opens a session, and signs the session token.
// Repeated failures for one email lock further attempts for the configured
// window.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	email, err := domain.NormalizeEmail(req.Email)
	if err != nil {
		return LoginResponse{}, err
	}

	lockKey := "login:" + email
	lockState, err := s.lockouts.Get(ctx, lockKey)
	if err == nil && lockState.LockedUntil != nil && lockState.LockedUntil.After(s.nowFn()) {
		return LoginResponse{}, domain.ErrAccountLocked
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		s.recordLoginFailure(ctx, nil, req, "USER_NOT_FOUND")
		return LoginResponse{}, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		s.recordLoginFailure(ctx, &user.UserID, req, "ACCOUNT_DISABLED")
		return LoginResponse{}, domain.ErrInvalidCredentials
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		s.recordLoginFailure(ctx, &user.UserID, req, "INVALID_PASSWORD")
		state, lockErr := s.lockouts.RecordFailure(ctx, lockKey, s.nowFn(), s.cfg.FailedLoginThreshold, s.cfg.LockoutDuration)
		if lockErr == nil && state.LockedUntil != nil {
			return LoginResponse{}, domain.ErrAccountLocked
		}
		return LoginResponse{}, domain.ErrInvalidCredentials
	}

	_ = s.lockouts.Clear(ctx, lockKey)

	now := s.nowFn()
	session, err := s.sessions.Create(ctx, ports.SessionCreateParams{
		UserID:         user.UserID,
		IPAddress:      req.IPAddress,
		UserAgent:      req.UserAgent,
		ExpiresAt:      now.Add(s.cfg.SessionTTL),
		LastActivityAt: now,
	})
	if err != nil {
		return LoginResponse{}, fmt.Errorf("create session: %w", err)
	}

	_ = s.loginAttempts.Insert(ctx, domain.LoginAttempt{
		UserID:    &user.UserID,
		AttemptAt: now,
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
		Status:    domain.LoginSucceeded,
	})

	token, err := s.tokenSigner.Sign(ports.AuthClaims{
		UserID:    user.UserID,
		Email:     user.Email,
		FullName:  user.FullName,
		SessionID: session.SessionID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.TokenTTL),
	})
	if err != nil {
		return LoginResponse{}, fmt.Errorf("sign token: %w", err)
	}

	return LoginResponse{
		Token:     token,
		SessionID: session.SessionID,
		ExpiresIn: int64(s.cfg.TokenTTL.Seconds()),
		User:      toUserProfile(user),
	}, nil
}

// Refresh re-signs the token when the backing session is still alive.
func (s *Service) Refresh(ctx context.Context, jwtToken string) (RefreshResponse, error) {
	claims, err := s.tokenSigner.ParseAndValidate(jwtToken)
	if err != nil {
		return RefreshResponse{}, domain.ErrUnauthorized
	}

	session, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		return RefreshResponse{}, domain.ErrUnauthorized
	}
	if session.RevokedAt != nil {
		return RefreshResponse{}, domain.ErrSessionRevoked
	}
	if session.ExpiresAt.Before(s.nowFn()) {
		return RefreshResponse{}, domain.ErrSessionExpired
	}
	if session.CreatedAt.Add(s.cfg.SessionAbsoluteTTL).Before(s.nowFn()) {
		return RefreshResponse{}, domain.ErrSessionExpired
	}
	if revoked, _ := s.revocations.IsRevoked(ctx, session.SessionID); revoked {
		return RefreshResponse{}, domain.ErrSessionRevoked
	}

	now := s.nowFn()
	_ = s.sessions.TouchActivity(ctx, session.SessionID, now)

	newToken, err := s.tokenSigner.Sign(ports.AuthClaims{
		UserID:    claims.UserID,
		Email:     claims.Email,
		FullName:  claims.FullName,
		SessionID: claims.SessionID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.TokenTTL),
	})
	if err != nil {
		return RefreshResponse{}, fmt.Errorf("sign refreshed token: %w", err)
	}

	return RefreshResponse{
		Token:     newToken,
		ExpiresIn: int64(s.cfg.TokenTTL.Seconds()),
	}, nil
}

// Logout revokes the caller's current session in the database and marks it in
// the revocation cache so already-issued tokens die immediately.
func (s *Service) Logout(ctx context.Context, actor Actor) error {
	now := s.nowFn()
	if err := s.sessions.RevokeByID(ctx, actor.SessionID, now); err != nil {
		return err
	}
	_ = s.revocations.MarkRevoked(ctx, actor.SessionID, now.Add(s.cfg.TokenTTL))
	return nil
}

// LogoutAll revokes every session of the caller.
func (s *Service) LogoutAll(ctx context.Context, actor Actor) error {
	return s.sessions.RevokeAllByUser(ctx, actor.UserID, s.nowFn())
}

// Me returns the caller's profile.
func (s *Service) Me(ctx context.Context, actor Actor) (UserProfile, error) {
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return UserProfile{}, err
	}
	return toUserProfile(user), nil
}

// ValidateToken is the bearer check shared by the HTTP middleware and the
// internal gRPC surface: parse, revocation cache, then the session row.
func (s *Service) ValidateToken(ctx context.Context, token string) (ports.AuthClaims, error) {
	claims, err := s.tokenSigner.ParseAndValidate(token)
	if err != nil {
		return ports.AuthClaims{}, domain.ErrUnauthorized
	}
	if revoked, _ := s.revocations.IsRevoked(ctx, claims.SessionID); revoked {
		return ports.AuthClaims{}, domain.ErrSessionRevoked
	}
	session, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		return ports.AuthClaims{}, domain.ErrUnauthorized
	}
	if session.UserID != claims.UserID {
		return ports.AuthClaims{}, domain.ErrUnauthorized
	}
	if session.RevokedAt != nil {
		return ports.AuthClaims{}, domain.ErrSessionRevoked
	}
	if session.ExpiresAt.Before(s.nowFn()) {
		return ports.AuthClaims{}, domain.ErrSessionExpired
	}
	if session.CreatedAt.Add(s.cfg.SessionAbsoluteTTL).Before(s.nowFn()) {
		return ports.AuthClaims{}, domain.ErrSessionExpired
	}
	return claims, nil
}

// PublicJWKs exposes the verification keys for token consumers.
func (s *Service) PublicJWKs() ([]map[string]any, error) {
	return s.tokenSigner.PublicJWKs()
}

// EnsureDefaultAdmin seeds the first account on an empty install so the
// instance is loggable-in. Does nothing once any user exists.
func (s *Service) EnsureDefaultAdmin(ctx context.Context) error {
	count, err := s.users.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}
	if s.cfg.DefaultAdminEmail == "" || s.cfg.DefaultAdminPassword == "" {
		return nil
	}

	email, err := domain.NormalizeEmail(s.cfg.DefaultAdminEmail)
	if err != nil {
		return fmt.Errorf("default admin email: %w", err)
	}
	passwordHash, err := s.hasher.Hash(s.cfg.DefaultAdminPassword)
	if err != nil {
		return fmt.Errorf("hash default admin password: %w", err)
	}

	fullName := s.cfg.DefaultAdminFullName
	if fullName == "" {
		fullName = "Administrator"
	}

	event := s.newAuditEvent(Actor{Email: email}, "user", domain.AuditRegistered, "", map[string]any{
		"email": email,
		"seed":  true,
	})
	_, err = s.users.CreateWithAuditTx(ctx, ports.CreateUserParams{
		Email:        email,
		FullName:     fullName,
		PasswordHash: passwordHash,
		RegisteredAt: s.nowFn(),
	}, event)
	return err
}

func (s *Service) recordLoginFailure(ctx context.Context, userID *uuid.UUID, req LoginRequest, reason string) {
	_ = s.loginAttempts.Insert(ctx, domain.LoginAttempt{
		UserID:        userID,
		AttemptAt:     s.nowFn(),
		IPAddress:     req.IPAddress,
		UserAgent:     req.UserAgent,
		Status:        domain.LoginFailed,
		FailureReason: reason,
	})
}
