package authkit

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/artawanmay/authkit/internal/flows"
	"github.com/artawanmay/authkit/role"
	"github.com/artawanmay/authkit/session"
)

// Authenticate describes the authenticate operation and its observable behavior.
//
// Authenticate may return an error when input validation, dependency calls, or security checks fail.
// Authenticate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Authenticate(ctx context.Context, sessionID string) (*Principal, error) {
	if e == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}

	result, err := flows.RunAuthenticate(ctx, sessionID, e.authDeps())
	if err != nil {
		return nil, err
	}
	return principalFromResult(result), nil
}

// AuthenticateCSRF describes the authenticatecsrf operation and its observable behavior.
//
// AuthenticateCSRF may return an error when input validation, dependency calls, or security checks fail.
// AuthenticateCSRF does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuthenticateCSRF(ctx context.Context, sessionID, csrfToken string) (*Principal, error) {
	if e == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}

	result, err := flows.RunAuthenticateCSRF(ctx, sessionID, csrfToken, e.authDeps())
	if err != nil {
		return nil, err
	}
	return principalFromResult(result), nil
}

// RequireRole describes the requirerole operation and its observable behavior.
//
// RequireRole may return an error when input validation, dependency calls, or security checks fail.
// RequireRole does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RequireRole(ctx context.Context, sessionID string, minRole role.Role) (*Principal, error) {
	if e == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}

	result, err := flows.RunRequireRole(ctx, sessionID, uint8(minRole), e.authDeps())
	if err != nil {
		return nil, err
	}
	return principalFromResult(result), nil
}

// LockoutRemaining returns how long the lockout for an email has left.
// Zero means the email is not locked.
func (e *Engine) LockoutRemaining(ctx context.Context, email string) (time.Duration, error) {
	if e == nil || e.lockout == nil {
		return 0, ErrEngineNotReady
	}
	remaining, err := e.lockout.Remaining(ctx, flows.NormalizeEmail(email))
	if err != nil {
		return 0, ErrStoreUnavailable
	}
	return remaining, nil
}

// FailedAttempts returns the current failed-login count for an email.
func (e *Engine) FailedAttempts(ctx context.Context, email string) (int, error) {
	if e == nil || e.lockout == nil {
		return 0, ErrEngineNotReady
	}
	count, err := e.lockout.FailureCount(ctx, flows.NormalizeEmail(email))
	if err != nil {
		return 0, ErrStoreUnavailable
	}
	return count, nil
}

// UnlockAccount clears the failure counter and any active lock for an
// email. Intended for support tooling; regular unlock happens by expiry.
func (e *Engine) UnlockAccount(ctx context.Context, email string) error {
	if e == nil || e.lockout == nil {
		return ErrEngineNotReady
	}
	normalized := flows.NormalizeEmail(email)
	if err := e.lockout.Reset(ctx, normalized); err != nil {
		return ErrStoreUnavailable
	}
	e.emitAudit(ctx, auditEventLockoutCleared, true, "", "", nil, func() map[string]string {
		return map[string]string{
			"email": normalized,
		}
	})
	return nil
}

func (e *Engine) authDeps() flows.AuthDeps {
	return flows.AuthDeps{
		ValidSessionID: session.ValidSessionID,
		GetSession:     e.sessionStore.Get,
		SessionMissing: sessionMissing,

		GetUserByID: func(ctx context.Context, userID string) (flows.LoginUserRecord, error) {
			user, err := e.userProvider.GetUserByID(ctx, userID)
			if err != nil {
				return flows.LoginUserRecord{}, err
			}
			return flowUserRecord(user), nil
		},

		CompareTokens: func(a, b string) bool {
			return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
		},
		RoleAtLeast: func(have, want uint8) bool {
			return role.Role(have).AtLeast(role.Role(want))
		},

		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		ObserveLatency: func(d time.Duration) {
			if e.metrics.LatencyEnabled() {
				e.metrics.Observe(MetricValidateLatency, d)
			}
		},
		EmitAudit: func(ctx context.Context, event string, success bool, userID, sessionID string, cause error, fields func() map[string]string) {
			e.emitAudit(ctx, event, success, userID, sessionID, cause, fields)
		},

		Metrics: flows.AuthMetrics{
			ValidateSuccess: int(MetricValidateSuccess),
			ValidateFailure: int(MetricValidateFailure),
			CSRFMismatch:    int(MetricCSRFMismatch),
			RoleDenied:      int(MetricRoleDenied),
		},
		Events: flows.AuthEvents{
			CSRFMismatch: auditEventCSRFMismatch,
			RoleDenied:   auditEventRoleDenied,
		},
		Errors: flows.AuthErrors{
			EngineNotReady:   ErrEngineNotReady,
			Unauthorized:     ErrUnauthorized,
			CSRFMismatch:     ErrCSRFMismatch,
			PermissionDenied: ErrPermissionDenied,
			StoreUnavailable: ErrStoreUnavailable,
		},
	}
}

func principalFromResult(result *flows.AuthResult) *Principal {
	return &Principal{
		UserID:    result.User.UserID,
		Email:     result.User.Email,
		Name:      result.User.Name,
		Role:      role.Role(result.User.Role),
		SessionID: result.SessionID,
		CSRFToken: result.CSRFToken,
		ExpiresAt: time.Unix(result.ExpiresAt, 0),
	}
}
