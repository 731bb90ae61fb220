package middleware

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	authkit "github.com/artawanmay/authkit"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type loginResponse struct {
	Success   bool        `json:"success"`
	User      userPayload `json:"user"`
	CSRFToken string      `json:"csrfToken"`
}

type errorResponse struct {
	Success        bool   `json:"success"`
	Error          string `json:"error"`
	LockoutMinutes int    `json:"lockoutMinutes,omitempty"`
}

type logoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// LoginHandler returns an http.Handler that accepts a JSON email+password
// body, runs the login flow, and sets the session cookie on success.
func LoginHandler(engine *authkit.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed credentials")
			return
		}

		result, err := engine.Login(requestContext(r), req.Email, req.Password)
		if err != nil {
			writeLoginError(w, r, engine, req.Email, err)
			return
		}

		setSessionCookie(w, engine.Config().Cookie, result.SessionID, result.ExpiresAt)
		writeJSON(w, http.StatusOK, loginResponse{
			Success: true,
			User: userPayload{
				ID:    result.User.UserID,
				Email: result.User.Email,
				Name:  result.User.Name,
				Role:  result.User.Role.String(),
			},
			CSRFToken: result.CSRFToken,
		})
	})
}

// LogoutHandler returns an http.Handler that invalidates the current
// session and clears the cookie. It always answers 200: logging out an
// already-dead session is not an error.
func LogoutHandler(engine *authkit.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		if sessionID, ok := sessionIDFromRequest(engine, r); ok {
			// Best effort. The cookie is cleared regardless.
			_ = engine.Logout(requestContext(r), sessionID)
		}

		clearSessionCookie(w, engine.Config().Cookie)
		writeJSON(w, http.StatusOK, logoutResponse{
			Success: true,
			Message: "logged out",
		})
	})
}

func writeLoginError(w http.ResponseWriter, r *http.Request, engine *authkit.Engine, email string, err error) {
	switch {
	case errors.Is(err, authkit.ErrMalformedCredentials):
		writeError(w, http.StatusBadRequest, "malformed credentials")
	case errors.Is(err, authkit.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, authkit.ErrAccountLocked):
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Error:          "account locked",
			LockoutMinutes: lockoutMinutes(r, engine, email),
		})
	case errors.Is(err, authkit.ErrLoginRateLimited):
		writeError(w, http.StatusTooManyRequests, "too many attempts")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// lockoutMinutes reports the remaining lockout rounded up to whole minutes
// so a lock with seconds left still reads as 1.
func lockoutMinutes(r *http.Request, engine *authkit.Engine, email string) int {
	remaining, err := engine.LockoutRemaining(r.Context(), email)
	if err != nil || remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Minutes()))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
