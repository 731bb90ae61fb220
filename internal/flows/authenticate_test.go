package flows

import (
	"context"
	"crypto/subtle"
	"errors"
	"testing"
	"time"

	"github.com/artawanmay/authkit/session"
)

var testAuthErrors = AuthErrors{
	EngineNotReady:   errors.New("engine not ready"),
	Unauthorized:     errors.New("unauthorized"),
	CSRFMismatch:     errors.New("csrf token mismatch"),
	PermissionDenied: errors.New("insufficient permissions"),
	StoreUnavailable: errors.New("store unavailable"),
}

var errSessionMissing = errors.New("session missing")

func newAuthDeps(role uint8) AuthDeps {
	sess := &session.Session{
		SessionID: "0123456789abcdef0123456789abcdef",
		UserID:    "u1",
		CSRFToken: "token-a",
		CreatedAt: time.Now().Unix(),
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}
	return AuthDeps{
		GetSession: func(_ context.Context, id string) (*session.Session, error) {
			if id == sess.SessionID {
				return sess, nil
			}
			return nil, errSessionMissing
		},
		SessionMissing: func(err error) bool { return errors.Is(err, errSessionMissing) },
		GetUserByID: func(_ context.Context, id string) (LoginUserRecord, error) {
			if id == "u1" {
				return LoginUserRecord{UserID: "u1", Email: "alice@example.com", Role: role}, nil
			}
			return LoginUserRecord{}, errors.New("not found")
		},
		CompareTokens: func(a, b string) bool {
			return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
		},
		RoleAtLeast: func(have, want uint8) bool { return have >= want },
		Errors:      testAuthErrors,
	}
}

func TestRunAuthenticateSuccess(t *testing.T) {
	deps := newAuthDeps(2)

	result, err := RunAuthenticate(context.Background(), "0123456789abcdef0123456789abcdef", deps)
	if err != nil {
		t.Fatalf("RunAuthenticate failed: %v", err)
	}
	if result.User.UserID != "u1" || result.User.Role != 2 {
		t.Fatalf("unexpected result user: %+v", result.User)
	}
}

func TestRunAuthenticateUnknownSession(t *testing.T) {
	deps := newAuthDeps(2)

	_, err := RunAuthenticate(context.Background(), "ffffffffffffffffffffffffffffffff", deps)
	if !errors.Is(err, testAuthErrors.Unauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

func TestRunAuthenticateRoleIsFresh(t *testing.T) {
	deps := newAuthDeps(2)

	// The role comes from the credential store on every call, so a role
	// change is visible without touching the session record.
	currentRole := uint8(2)
	deps.GetUserByID = func(_ context.Context, id string) (LoginUserRecord, error) {
		return LoginUserRecord{UserID: "u1", Role: currentRole}, nil
	}

	result, err := RunAuthenticate(context.Background(), "0123456789abcdef0123456789abcdef", deps)
	if err != nil {
		t.Fatalf("RunAuthenticate failed: %v", err)
	}
	if result.User.Role != 2 {
		t.Fatalf("Role = %d, want 2", result.User.Role)
	}

	currentRole = 4
	result, err = RunAuthenticate(context.Background(), "0123456789abcdef0123456789abcdef", deps)
	if err != nil {
		t.Fatalf("RunAuthenticate failed: %v", err)
	}
	if result.User.Role != 4 {
		t.Fatalf("Role after change = %d, want 4", result.User.Role)
	}
}

func TestRunAuthenticateDeletedUser(t *testing.T) {
	deps := newAuthDeps(2)
	deps.GetUserByID = func(context.Context, string) (LoginUserRecord, error) {
		return LoginUserRecord{}, errors.New("not found")
	}

	_, err := RunAuthenticate(context.Background(), "0123456789abcdef0123456789abcdef", deps)
	if !errors.Is(err, testAuthErrors.Unauthorized) {
		t.Fatalf("expected Unauthorized for deleted user, got %v", err)
	}
}

func TestRunAuthenticateCSRF(t *testing.T) {
	deps := newAuthDeps(2)
	ctx := context.Background()
	sid := "0123456789abcdef0123456789abcdef"

	if _, err := RunAuthenticateCSRF(ctx, sid, "token-a", deps); err != nil {
		t.Fatalf("matching token rejected: %v", err)
	}

	for _, tok := range []string{"", "token-b", "token-a2"} {
		if _, err := RunAuthenticateCSRF(ctx, sid, tok, deps); !errors.Is(err, testAuthErrors.CSRFMismatch) {
			t.Errorf("token %q: got %v, want CSRFMismatch", tok, err)
		}
	}

	// A bad session id fails authentication before the token is inspected.
	if _, err := RunAuthenticateCSRF(ctx, "ffffffffffffffffffffffffffffffff", "token-a", deps); !errors.Is(err, testAuthErrors.Unauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

func TestRunRequireRole(t *testing.T) {
	ctx := context.Background()
	sid := "0123456789abcdef0123456789abcdef"

	deps := newAuthDeps(2)
	if _, err := RunRequireRole(ctx, sid, 2, deps); err != nil {
		t.Fatalf("equal role rejected: %v", err)
	}
	if _, err := RunRequireRole(ctx, sid, 1, deps); err != nil {
		t.Fatalf("higher role rejected: %v", err)
	}
	if _, err := RunRequireRole(ctx, sid, 3, deps); !errors.Is(err, testAuthErrors.PermissionDenied) {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}
}
