package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	authkit "github.com/artawanmay/authkit"
	"github.com/artawanmay/authkit/role"
)

// CSRFHeader is the request header checked by CSRF-protected guards.
const CSRFHeader = "X-CSRF-Token"

type principalContextKey struct{}

// PrincipalFromContext returns the authenticated principal attached by a
// guard, or false when the request did not pass through one.
func PrincipalFromContext(ctx context.Context) (*authkit.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*authkit.Principal)
	return p, ok
}

// RequireAuth validates the session cookie and attaches the principal to
// the request context.
func RequireAuth(engine *authkit.Engine) func(http.Handler) http.Handler {
	return guard(engine, func(r *http.Request, sessionID string) (*authkit.Principal, error) {
		return engine.Authenticate(requestContext(r), sessionID)
	})
}

// RequireCSRF validates the session cookie and the X-CSRF-Token header.
// Use it on state-changing routes.
func RequireCSRF(engine *authkit.Engine) func(http.Handler) http.Handler {
	return guard(engine, func(r *http.Request, sessionID string) (*authkit.Principal, error) {
		return engine.AuthenticateCSRF(requestContext(r), sessionID, r.Header.Get(CSRFHeader))
	})
}

// RequireRole validates the session cookie and enforces a minimum role.
func RequireRole(engine *authkit.Engine, minRole role.Role) func(http.Handler) http.Handler {
	return guard(engine, func(r *http.Request, sessionID string) (*authkit.Principal, error) {
		return engine.RequireRole(requestContext(r), sessionID, minRole)
	})
}

func guard(engine *authkit.Engine, authenticate func(*http.Request, string) (*authkit.Principal, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			sessionID, ok := sessionIDFromRequest(engine, r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			principal, err := authenticate(r, sessionID)
			if err != nil {
				writeGuardError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeGuardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authkit.ErrCSRFMismatch):
		writeError(w, http.StatusForbidden, "csrf token mismatch")
	case errors.Is(err, authkit.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, authkit.ErrStoreUnavailable):
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		writeError(w, http.StatusUnauthorized, "unauthorized")
	}
}

func sessionIDFromRequest(engine *authkit.Engine, r *http.Request) (string, bool) {
	cookie, err := r.Cookie(engine.Config().Cookie.Name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// requestContext attaches the client IP and User-Agent to the request
// context so the engine can throttle and audit with them.
func requestContext(r *http.Request) context.Context {
	ctx := r.Context()
	if ip := clientIP(r); ip != "" {
		ctx = authkit.WithClientIP(ctx, ip)
	}
	if ua := r.UserAgent(); ua != "" {
		ctx = authkit.WithUserAgent(ctx, ua)
	}
	return ctx
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
