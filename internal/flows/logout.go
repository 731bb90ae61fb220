package flows

import "context"

// LogoutMetrics carries metric IDs needed by the logout flows.
type LogoutMetrics struct {
	LogoutSuccess      int
	LogoutAll          int
	SessionInvalidated int
}

// LogoutEvents carries audit event names used by the logout flows.
type LogoutEvents struct {
	Logout    string
	LogoutAll string
}

// LogoutErrors carries host-level sentinel errors used by the logout flows.
type LogoutErrors struct {
	EngineNotReady   error
	StoreUnavailable error
}

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	ValidSessionID   func(string) bool
	DeleteSession    func(context.Context, string) error
	DeleteAllForUser func(context.Context, string) error

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, userID, sessionID string, cause error, fields func() map[string]string)

	Metrics LogoutMetrics
	Events  LogoutEvents
	Errors  LogoutErrors
}

// RunLogout invalidates a single session. Unknown or malformed session ids
// succeed silently: logout is idempotent and never leaks session validity.
func RunLogout(ctx context.Context, sessionID string, deps LogoutDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if deps.DeleteSession == nil {
		return deps.Errors.EngineNotReady
	}

	if deps.ValidSessionID != nil && !deps.ValidSessionID(sessionID) {
		deps.MetricInc(deps.Metrics.LogoutSuccess)
		return nil
	}

	if err := deps.DeleteSession(ctx, sessionID); err != nil {
		return deps.Errors.StoreUnavailable
	}

	deps.MetricInc(deps.Metrics.SessionInvalidated)
	deps.MetricInc(deps.Metrics.LogoutSuccess)
	deps.EmitAudit(ctx, deps.Events.Logout, true, "", sessionID, nil, nil)
	return nil
}

// RunLogoutAll invalidates every session belonging to a user.
func RunLogoutAll(ctx context.Context, userID string, deps LogoutDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if deps.DeleteAllForUser == nil {
		return deps.Errors.EngineNotReady
	}
	if userID == "" {
		return nil
	}

	if err := deps.DeleteAllForUser(ctx, userID); err != nil {
		return deps.Errors.StoreUnavailable
	}

	deps.MetricInc(deps.Metrics.SessionInvalidated)
	deps.MetricInc(deps.Metrics.LogoutAll)
	deps.EmitAudit(ctx, deps.Events.LogoutAll, true, userID, "", nil, nil)
	return nil
}
