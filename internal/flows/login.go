package flows

import (
	"context"
	"strings"
	"time"

	"github.com/artawanmay/authkit/session"
)

// LoginUserRecord is a flow-local user model used by login and authenticate flows.
type LoginUserRecord struct {
	UserID       string
	Email        string
	Name         string
	PasswordHash string
	Role         uint8
}

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	SessionID string
	CSRFToken string
	ExpiresAt int64
	User      LoginUserRecord
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess     int
	LoginFailure     int
	LoginRateLimited int
	LoginLocked      int
	LockoutTriggered int
	SessionCreated   int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess     string
	LoginFailure     string
	LoginRateLimited string
	LoginLocked      string
	LockoutTriggered string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady       error
	MalformedCredentials error
	InvalidCredentials   error
	AccountLocked        error
	LoginRateLimited     error
	StoreUnavailable     error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	PasswordRehashOnLogin bool

	ClientIPFromContext func(context.Context) string
	Now                 func() time.Time

	CheckLoginRate     func(context.Context, string, string) error
	IncrementLoginRate func(context.Context, string, string) error
	ResetLoginRate     func(context.Context, string, string) error

	IsLocked             func(context.Context, string) (bool, error)
	RecordLockoutFailure func(context.Context, string) (bool, error)
	ResetLockout         func(context.Context, string) error

	GetUserByEmail     func(context.Context, string) (LoginUserRecord, error)
	UpdatePasswordHash func(context.Context, string, string) error

	VerifyPassword      func(string, string) (bool, error)
	PasswordNeedsRehash func(string) (bool, error)
	HashPassword        func(string) (string, error)

	NewSessionID    func() (string, error)
	NewCSRFToken    func() (string, error)
	SessionLifetime func() time.Duration
	SaveSession     func(context.Context, *session.Session) error

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, userID, sessionID string, cause error, fields func() map[string]string)
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// NormalizeEmail canonicalizes an email for lookup and lockout keying.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RunLogin executes the login flow: throttle and lockout gates, credential
// verification, then session issuance. Unknown emails and wrong passwords
// take the same failure path so the caller cannot tell them apart.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) (*LoginResult, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.GetUserByEmail == nil ||
		deps.VerifyPassword == nil ||
		deps.IsLocked == nil ||
		deps.RecordLockoutFailure == nil ||
		deps.ResetLockout == nil ||
		deps.NewSessionID == nil ||
		deps.NewCSRFToken == nil ||
		deps.SessionLifetime == nil ||
		deps.SaveSession == nil {
		return nil, deps.Errors.EngineNotReady
	}

	email = NormalizeEmail(email)
	ip := deps.ClientIPFromContext(ctx)

	if email == "" || !strings.Contains(email, "@") || password == "" {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", "", deps.Errors.MalformedCredentials, func() map[string]string {
			return map[string]string{
				"reason": "malformed_credentials",
			}
		})
		return nil, deps.Errors.MalformedCredentials
	}

	if deps.CheckLoginRate != nil {
		if err := deps.CheckLoginRate(ctx, email, ip); err != nil {
			deps.MetricInc(deps.Metrics.LoginRateLimited)
			deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, "", "", deps.Errors.LoginRateLimited, func() map[string]string {
				return map[string]string{
					"email": email,
				}
			})
			return nil, deps.Errors.LoginRateLimited
		}
	}

	locked, err := deps.IsLocked(ctx, email)
	if err != nil {
		return nil, deps.Errors.StoreUnavailable
	}
	if locked {
		deps.MetricInc(deps.Metrics.LoginLocked)
		deps.EmitAudit(ctx, deps.Events.LoginLocked, false, "", "", deps.Errors.AccountLocked, func() map[string]string {
			return map[string]string{
				"email": email,
			}
		})
		return nil, deps.Errors.AccountLocked
	}

	user, lookupErr := deps.GetUserByEmail(ctx, email)
	passwordOK := false
	if lookupErr == nil {
		passwordOK, err = deps.VerifyPassword(password, user.PasswordHash)
		if err != nil {
			passwordOK = false
		}
	}
	if !passwordOK {
		// Unknown email and wrong password converge here so the two cases
		// return identical errors, identical metrics, and matching audit shape.
		return nil, runLoginFailure(ctx, email, ip, deps)
	}

	if err := deps.ResetLockout(ctx, email); err != nil {
		deps.Warn("authkit: lockout reset failed after successful login")
	}
	if deps.ResetLoginRate != nil {
		if err := deps.ResetLoginRate(ctx, email, ip); err != nil {
			deps.Warn("authkit: login rate reset failed after successful login")
		}
	}

	if deps.PasswordRehashOnLogin && deps.PasswordNeedsRehash != nil && deps.HashPassword != nil && deps.UpdatePasswordHash != nil {
		if needsRehash, err := deps.PasswordNeedsRehash(user.PasswordHash); err == nil && needsRehash {
			if rehashed, err := deps.HashPassword(password); err == nil {
				if err := deps.UpdatePasswordHash(ctx, user.UserID, rehashed); err != nil {
					deps.Warn("authkit: password rehash update failed")
				}
			} else {
				deps.Warn("authkit: password rehash generation failed")
			}
		}
	}
	password = ""

	sessionID, err := deps.NewSessionID()
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.UserID, "", err, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": "session_id_generation",
			}
		})
		return nil, err
	}
	csrfToken, err := deps.NewCSRFToken()
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.UserID, sessionID, err, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": "csrf_token_generation",
			}
		})
		return nil, err
	}

	now := deps.Now()
	expiresAt := now.Add(deps.SessionLifetime()).Unix()
	sess := &session.Session{
		SessionID: sessionID,
		UserID:    user.UserID,
		CSRFToken: csrfToken,
		CreatedAt: now.Unix(),
		ExpiresAt: expiresAt,
	}

	if err := deps.SaveSession(ctx, sess); err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.UserID, sessionID, err, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": "session_save_failed",
			}
		})
		return nil, deps.Errors.StoreUnavailable
	}

	deps.MetricInc(deps.Metrics.SessionCreated)
	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, user.UserID, sessionID, nil, func() map[string]string {
		return map[string]string{
			"email": email,
		}
	})

	return &LoginResult{
		SessionID: sessionID,
		CSRFToken: csrfToken,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

// runLoginFailure is the shared failure tail for unknown-email and
// wrong-password attempts. It records the lockout failure, bumps the IP
// throttle, and maps a threshold-crossing failure to the locked error.
func runLoginFailure(ctx context.Context, email, ip string, deps LoginDeps) error {
	lockedNow, err := deps.RecordLockoutFailure(ctx, email)
	if err != nil {
		return deps.Errors.StoreUnavailable
	}

	if deps.IncrementLoginRate != nil {
		if err := deps.IncrementLoginRate(ctx, email, ip); err != nil {
			deps.MetricInc(deps.Metrics.LoginRateLimited)
			deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, "", "", deps.Errors.LoginRateLimited, func() map[string]string {
				return map[string]string{
					"email": email,
				}
			})
			return deps.Errors.LoginRateLimited
		}
	}

	if lockedNow {
		deps.MetricInc(deps.Metrics.LockoutTriggered)
		deps.EmitAudit(ctx, deps.Events.LockoutTriggered, false, "", "", deps.Errors.AccountLocked, func() map[string]string {
			return map[string]string{
				"email": email,
			}
		})
		return deps.Errors.AccountLocked
	}

	deps.MetricInc(deps.Metrics.LoginFailure)
	deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", "", deps.Errors.InvalidCredentials, func() map[string]string {
		return map[string]string{
			"email":  email,
			"reason": "credential_mismatch",
		}
	})
	return deps.Errors.InvalidCredentials
}
