package middleware

import (
	"net/http"
	"time"

	authkit "github.com/artawanmay/authkit"
)

// setSessionCookie writes the session cookie from the engine's cookie
// config. The cookie is always HttpOnly; scripts get the CSRF token from
// the login response body instead.
func setSessionCookie(w http.ResponseWriter, cfg authkit.CookieConfig, sessionID string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    sessionID,
		Path:     cookiePath(cfg),
		Domain:   cfg.Domain,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

// clearSessionCookie expires the session cookie immediately.
func clearSessionCookie(w http.ResponseWriter, cfg authkit.CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     cookiePath(cfg),
		Domain:   cfg.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

func cookiePath(cfg authkit.CookieConfig) string {
	if cfg.Path == "" {
		return "/"
	}
	return cfg.Path
}
