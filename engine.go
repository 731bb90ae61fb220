package authkit

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/artawanmay/authkit/internal/flows"
	"github.com/artawanmay/authkit/internal/limiters"
	"github.com/artawanmay/authkit/internal/rate"
	"github.com/artawanmay/authkit/password"
	"github.com/artawanmay/authkit/role"
	"github.com/artawanmay/authkit/session"
	"github.com/redis/go-redis/v9"
)

// Engine defines a public type used by authkit APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config       Config
	sessionStore *session.Store
	rateLimiter  *rate.Limiter
	lockout      *limiters.Lockout
	audit        *auditDispatcher
	metrics      *Metrics
	passwordHash *password.Hasher
	userProvider UserProvider
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Config returns a copy of the engine's active configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return e.config
}

// Ping verifies connectivity to the session backend.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.sessionStore == nil {
		return 0, ErrEngineNotReady
	}
	return e.sessionStore.Ping(ctx)
}

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, email, plainPassword string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	result, err := flows.RunLogin(ctx, email, plainPassword, e.loginDeps())
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		SessionID: result.SessionID,
		CSRFToken: result.CSRFToken,
		ExpiresAt: time.Unix(result.ExpiresAt, 0),
		User: UserRecord{
			UserID:       result.User.UserID,
			Email:        result.User.Email,
			Name:         result.User.Name,
			PasswordHash: result.User.PasswordHash,
			Role:         role.Role(result.User.Role),
		},
	}, nil
}

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}

	return flows.RunLogout(ctx, sessionID, e.logoutDeps())
}

// LogoutAll invalidates every session belonging to a user.
func (e *Engine) LogoutAll(ctx context.Context, userID string) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}

	return flows.RunLogoutAll(ctx, userID, e.logoutDeps())
}

func (e *Engine) loginDeps() flows.LoginDeps {
	deps := flows.LoginDeps{
		PasswordRehashOnLogin: e.config.Password.RehashOnLogin,

		ClientIPFromContext: clientIPFromContext,

		IsLocked:             e.lockout.IsLocked,
		RecordLockoutFailure: e.lockout.RecordFailure,
		ResetLockout:         e.lockout.Reset,

		GetUserByEmail: func(ctx context.Context, email string) (flows.LoginUserRecord, error) {
			user, err := e.userProvider.GetUserByEmail(ctx, email)
			if err != nil {
				return flows.LoginUserRecord{}, err
			}
			return flowUserRecord(user), nil
		},
		UpdatePasswordHash: e.userProvider.UpdatePasswordHash,

		VerifyPassword:      e.passwordHash.Verify,
		PasswordNeedsRehash: e.passwordHash.NeedsRehash,
		HashPassword:        e.passwordHash.Hash,

		NewSessionID: session.NewSessionID,
		NewCSRFToken: session.NewCSRFToken,
		SessionLifetime: func() time.Duration {
			return e.config.Session.Lifetime
		},
		SaveSession: e.sessionStore.Save,

		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: func(ctx context.Context, event string, success bool, userID, sessionID string, cause error, fields func() map[string]string) {
			e.emitAudit(ctx, event, success, userID, sessionID, cause, fields)
		},
		Warn: log.Printf,

		Metrics: flows.LoginMetrics{
			LoginSuccess:     int(MetricLoginSuccess),
			LoginFailure:     int(MetricLoginFailure),
			LoginRateLimited: int(MetricLoginRateLimited),
			LoginLocked:      int(MetricLoginLocked),
			LockoutTriggered: int(MetricLockoutTriggered),
			SessionCreated:   int(MetricSessionCreated),
		},
		Events: flows.LoginEvents{
			LoginSuccess:     auditEventLoginSuccess,
			LoginFailure:     auditEventLoginFailure,
			LoginRateLimited: auditEventLoginRateLimited,
			LoginLocked:      auditEventLoginLocked,
			LockoutTriggered: auditEventLockoutTriggered,
		},
		Errors: flows.LoginErrors{
			EngineNotReady:       ErrEngineNotReady,
			MalformedCredentials: ErrMalformedCredentials,
			InvalidCredentials:   ErrInvalidCredentials,
			AccountLocked:        ErrAccountLocked,
			LoginRateLimited:     ErrLoginRateLimited,
			StoreUnavailable:     ErrStoreUnavailable,
		},
	}

	if e.config.Security.EnableIPThrottle {
		deps.CheckLoginRate = e.rateLimiter.CheckLogin
		deps.IncrementLoginRate = e.rateLimiter.IncrementLogin
		deps.ResetLoginRate = e.rateLimiter.ResetLogin
	}

	return deps
}

func (e *Engine) logoutDeps() flows.LogoutDeps {
	return flows.LogoutDeps{
		ValidSessionID:   session.ValidSessionID,
		DeleteSession:    e.sessionStore.Delete,
		DeleteAllForUser: e.sessionStore.DeleteAllForUser,

		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: func(ctx context.Context, event string, success bool, userID, sessionID string, cause error, fields func() map[string]string) {
			e.emitAudit(ctx, event, success, userID, sessionID, cause, fields)
		},

		Metrics: flows.LogoutMetrics{
			LogoutSuccess:      int(MetricLogout),
			LogoutAll:          int(MetricLogoutAll),
			SessionInvalidated: int(MetricSessionInvalidated),
		},
		Events: flows.LogoutEvents{
			Logout:    auditEventLogoutSession,
			LogoutAll: auditEventLogoutAll,
		},
		Errors: flows.LogoutErrors{
			EngineNotReady:   ErrEngineNotReady,
			StoreUnavailable: ErrStoreUnavailable,
		},
	}
}

func flowUserRecord(user UserRecord) flows.LoginUserRecord {
	return flows.LoginUserRecord{
		UserID:       user.UserID,
		Email:        user.Email,
		Name:         user.Name,
		PasswordHash: user.PasswordHash,
		Role:         uint8(user.Role),
	}
}

func sessionMissing(err error) bool {
	return errors.Is(err, redis.Nil)
}
