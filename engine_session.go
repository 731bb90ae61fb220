package authkit

import (
	"context"
	"time"

	"github.com/artawanmay/authkit/session"
)

// CreateSession issues a session for an already-authenticated user without
// running the login flow. Intended for flows like post-signup auto-login
// where the host has verified the user by other means.
func (e *Engine) CreateSession(ctx context.Context, userID string) (*LoginResult, error) {
	if e == nil || e.sessionStore == nil || e.userProvider == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.userProvider.GetUserByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	sessionID, err := session.NewSessionID()
	if err != nil {
		return nil, ErrSessionCreationFailed
	}
	csrfToken, err := session.NewCSRFToken()
	if err != nil {
		return nil, ErrSessionCreationFailed
	}

	now := time.Now()
	sess := &session.Session{
		SessionID: sessionID,
		UserID:    user.UserID,
		CSRFToken: csrfToken,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(e.config.Session.Lifetime).Unix(),
	}
	if err := e.sessionStore.Save(ctx, sess); err != nil {
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, sessionID, ErrSessionCreationFailed, nil)
		return nil, ErrSessionCreationFailed
	}

	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.UserID, sessionID, nil, func() map[string]string {
		return map[string]string{
			"origin": "create_session",
		}
	})

	return &LoginResult{
		SessionID: sessionID,
		CSRFToken: csrfToken,
		ExpiresAt: time.Unix(sess.ExpiresAt, 0),
		User:      user,
	}, nil
}

// ValidateSession looks up a session by id and returns the full record,
// including the CSRF token, so callers can run their own checks. Absent,
// malformed, or expired sessions return [ErrSessionNotFound].
func (e *Engine) ValidateSession(ctx context.Context, sessionID string) (*session.Session, error) {
	if e == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}
	if !session.ValidSessionID(sessionID) {
		return nil, ErrSessionNotFound
	}

	sess, err := e.sessionStore.Get(ctx, sessionID)
	if err != nil {
		if sessionMissing(err) {
			return nil, ErrSessionNotFound
		}
		return nil, ErrStoreUnavailable
	}
	return sess, nil
}

// GenerateSessionID returns a syntactically valid identifier from the same
// random source as [Engine.CreateSession] without persisting anything.
func (e *Engine) GenerateSessionID() (string, error) {
	return session.NewSessionID()
}

// InvalidateSession revokes one session by id. Unlike [Engine.Logout] it is
// meant for administrative revocation and emits a distinct audit event.
func (e *Engine) InvalidateSession(ctx context.Context, sessionID string) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}
	if !session.ValidSessionID(sessionID) {
		return nil
	}

	if err := e.sessionStore.Delete(ctx, sessionID); err != nil {
		return ErrSessionInvalidationFailed
	}

	e.metricInc(MetricSessionInvalidated)
	e.emitAudit(ctx, auditEventSessionRevoked, true, "", sessionID, nil, nil)
	return nil
}

// InvalidateUserSessions revokes every session belonging to a user, for
// password changes or account compromise response.
func (e *Engine) InvalidateUserSessions(ctx context.Context, userID string) error {
	return e.LogoutAll(ctx, userID)
}

// ActiveSessions returns the ids of sessions currently tracked for a user.
// Lazily expired sessions may appear until their next read or Redis TTL.
func (e *Engine) ActiveSessions(ctx context.Context, userID string) ([]string, error) {
	if e == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}
	ids, err := e.sessionStore.ActiveSessionIDs(ctx, userID)
	if err != nil {
		return nil, ErrStoreUnavailable
	}
	return ids, nil
}
