package flows

import (
	"context"
	"time"

	"github.com/artawanmay/authkit/session"
)

// AuthResult is the flow-local authenticated-request shape.
type AuthResult struct {
	SessionID string
	CSRFToken string
	ExpiresAt int64
	User      LoginUserRecord
}

// AuthMetrics carries metric IDs needed by the authenticate flow.
type AuthMetrics struct {
	ValidateSuccess int
	ValidateFailure int
	CSRFMismatch    int
	RoleDenied      int
}

// AuthEvents carries audit event names used by the authenticate flow.
type AuthEvents struct {
	CSRFMismatch string
	RoleDenied   string
}

// AuthErrors carries host-level sentinel errors used by the authenticate flow.
type AuthErrors struct {
	EngineNotReady   error
	Unauthorized     error
	CSRFMismatch     error
	PermissionDenied error
	StoreUnavailable error
}

// AuthDeps captures authenticate dependencies.
type AuthDeps struct {
	ValidSessionID func(string) bool
	GetSession     func(context.Context, string) (*session.Session, error)
	SessionMissing func(error) bool

	// GetUserByID re-reads the credential store on every call so role and
	// profile changes take effect immediately, never from the session record.
	GetUserByID func(context.Context, string) (LoginUserRecord, error)

	CompareTokens func(a, b string) bool
	RoleAtLeast   func(have, want uint8) bool

	MetricInc      func(int)
	ObserveLatency func(time.Duration)
	EmitAudit      func(ctx context.Context, event string, success bool, userID, sessionID string, cause error, fields func() map[string]string)

	Metrics AuthMetrics
	Events  AuthEvents
	Errors  AuthErrors
}

// RunAuthenticate resolves a session id to an authenticated user. Every
// failure maps to the same unauthorized error so callers cannot probe for
// session existence.
func RunAuthenticate(ctx context.Context, sessionID string, deps AuthDeps) (*AuthResult, error) {
	start := time.Now()
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.GetSession == nil || deps.GetUserByID == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if deps.SessionMissing == nil {
		deps.SessionMissing = func(error) bool { return false }
	}
	defer func() {
		if deps.ObserveLatency != nil {
			deps.ObserveLatency(time.Since(start))
		}
	}()

	if deps.ValidSessionID != nil && !deps.ValidSessionID(sessionID) {
		deps.MetricInc(deps.Metrics.ValidateFailure)
		return nil, deps.Errors.Unauthorized
	}

	sess, err := deps.GetSession(ctx, sessionID)
	if err != nil {
		deps.MetricInc(deps.Metrics.ValidateFailure)
		if deps.SessionMissing(err) {
			return nil, deps.Errors.Unauthorized
		}
		return nil, deps.Errors.StoreUnavailable
	}

	user, err := deps.GetUserByID(ctx, sess.UserID)
	if err != nil {
		// The account vanished after the session was issued. Treat like any
		// other invalid session.
		deps.MetricInc(deps.Metrics.ValidateFailure)
		return nil, deps.Errors.Unauthorized
	}

	deps.MetricInc(deps.Metrics.ValidateSuccess)
	return &AuthResult{
		SessionID: sess.SessionID,
		CSRFToken: sess.CSRFToken,
		ExpiresAt: sess.ExpiresAt,
		User:      user,
	}, nil
}

// RunAuthenticateCSRF runs session authentication and then checks the
// submitted CSRF token against the session's token in constant time.
func RunAuthenticateCSRF(ctx context.Context, sessionID, csrfToken string, deps AuthDeps) (*AuthResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	result, err := RunAuthenticate(ctx, sessionID, deps)
	if err != nil {
		return nil, err
	}
	if deps.CompareTokens == nil {
		return nil, deps.Errors.EngineNotReady
	}

	if csrfToken == "" || !deps.CompareTokens(csrfToken, result.CSRFToken) {
		deps.MetricInc(deps.Metrics.CSRFMismatch)
		if deps.EmitAudit != nil {
			deps.EmitAudit(ctx, deps.Events.CSRFMismatch, false, result.User.UserID, result.SessionID, deps.Errors.CSRFMismatch, nil)
		}
		return nil, deps.Errors.CSRFMismatch
	}
	return result, nil
}

// RunRequireRole runs session authentication and then enforces a minimum
// role. The role comes from the fresh user record, not the session.
func RunRequireRole(ctx context.Context, sessionID string, minRole uint8, deps AuthDeps) (*AuthResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	result, err := RunAuthenticate(ctx, sessionID, deps)
	if err != nil {
		return nil, err
	}
	if deps.RoleAtLeast == nil {
		return nil, deps.Errors.EngineNotReady
	}

	if !deps.RoleAtLeast(result.User.Role, minRole) {
		deps.MetricInc(deps.Metrics.RoleDenied)
		if deps.EmitAudit != nil {
			deps.EmitAudit(ctx, deps.Events.RoleDenied, false, result.User.UserID, result.SessionID, deps.Errors.PermissionDenied, nil)
		}
		return nil, deps.Errors.PermissionDenied
	}
	return result, nil
}
