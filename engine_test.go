package authkit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/artawanmay/authkit/password"
	"github.com/artawanmay/authkit/role"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	return mr, rdb
}

type mockUserProvider struct {
	mu      sync.RWMutex
	users   map[string]UserRecord
	byEmail map[string]string

	getByEmailCalls     int
	getByIDCalls        int
	updatePasswordCalls int
}

func newMockUserProvider() *mockUserProvider {
	return &mockUserProvider{
		users:   make(map[string]UserRecord),
		byEmail: make(map[string]string),
	}
}

func (p *mockUserProvider) put(u UserRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[u.UserID] = u
	p.byEmail[u.Email] = u.UserID
}

func (p *mockUserProvider) setRole(userID string, r role.Role) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u := p.users[userID]
	u.Role = r
	p.users[userID] = u
}

func (p *mockUserProvider) GetUserByEmail(_ context.Context, email string) (UserRecord, error) {
	p.mu.Lock()
	p.getByEmailCalls++
	p.mu.Unlock()

	p.mu.RLock()
	defer p.mu.RUnlock()
	id, ok := p.byEmail[email]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return p.users[id], nil
}

func (p *mockUserProvider) GetUserByID(_ context.Context, userID string) (UserRecord, error) {
	p.mu.Lock()
	p.getByIDCalls++
	p.mu.Unlock()

	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.users[userID]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return u, nil
}

func (p *mockUserProvider) UpdatePasswordHash(_ context.Context, userID string, newHash string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updatePasswordCalls++

	u, ok := p.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = newHash
	p.users[userID] = u
	return nil
}

// engineTestConfig lowers argon2 cost so the suite stays fast.
func engineTestConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func newTestHasher(t *testing.T, cfg Config) *password.Hasher {
	t.Helper()

	hasher, err := password.New(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		t.Fatalf("password.New failed: %v", err)
	}
	return hasher
}

// seedUser hashes pass and stores a member-role user under the provider.
func seedUser(t *testing.T, cfg Config, up *mockUserProvider, userID, email, pass string) {
	t.Helper()

	hash, err := newTestHasher(t, cfg).Hash(pass)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	up.put(UserRecord{
		UserID:       userID,
		Email:        email,
		Name:         "Test User",
		PasswordHash: hash,
		Role:         role.Member,
	})
}

func buildTestEngine(t *testing.T, cfg Config, up UserProvider, sink AuditSink) *Engine {
	t.Helper()

	_, rdb := newTestRedis(t)
	builder := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(up)
	if sink != nil {
		builder = builder.WithAuditSink(sink)
	}

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine
}

func TestEngineLoginAuthenticateLogout(t *testing.T) {
	cfg := engineTestConfig()
	up := newMockUserProvider()
	seedUser(t, cfg, up, "u1", "alice@example.com", "correct-horse")
	engine := buildTestEngine(t, cfg, up, nil)

	ctx := context.Background()

	result, err := engine.Login(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.User.UserID != "u1" {
		t.Fatalf("expected user u1, got %q", result.User.UserID)
	}
	if len(result.SessionID) != 32 {
		t.Fatalf("expected 32-char session id, got %d chars", len(result.SessionID))
	}
	if len(result.CSRFToken) != 64 {
		t.Fatalf("expected 64-char csrf token, got %d chars", len(result.CSRFToken))
	}

	principal, err := engine.Authenticate(ctx, result.SessionID)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if principal.UserID != "u1" || principal.Role != role.Member {
		t.Fatalf("unexpected principal: %+v", principal)
	}

	if err := engine.Logout(ctx, result.SessionID); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := engine.Authenticate(ctx, result.SessionID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
	}
}

func TestEngineLoginWrongPassword(t *testing.T) {
	cfg := engineTestConfig()
	up := newMockUserProvider()
	seedUser(t, cfg, up, "u1", "alice@example.com", "correct-horse")
	engine := buildTestEngine(t, cfg, up, nil)

	if _, err := engine.Login(context.Background(), "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestEngineRoleFreshness(t *testing.T) {
	cfg := engineTestConfig()
	up := newMockUserProvider()
	seedUser(t, cfg, up, "u1", "alice@example.com", "correct-horse")
	engine := buildTestEngine(t, cfg, up, nil)

	ctx := context.Background()
	result, err := engine.Login(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, err := engine.RequireRole(ctx, result.SessionID, role.Admin); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for member, got %v", err)
	}

	// Promotion must be visible on the existing session without re-login.
	up.setRole("u1", role.Admin)
	if _, err := engine.RequireRole(ctx, result.SessionID, role.Admin); err != nil {
		t.Fatalf("expected promoted role to pass, got %v", err)
	}
}

func TestEngineCreateSession(t *testing.T) {
	cfg := engineTestConfig()
	up := newMockUserProvider()
	seedUser(t, cfg, up, "u1", "alice@example.com", "correct-horse")
	engine := buildTestEngine(t, cfg, up, nil)

	ctx := context.Background()
	result, err := engine.CreateSession(ctx, "u1")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if result.User.Email != "alice@example.com" {
		t.Fatalf("unexpected user in result: %+v", result.User)
	}

	if _, err := engine.Authenticate(ctx, result.SessionID); err != nil {
		t.Fatalf("expected created session to authenticate, got %v", err)
	}

	if _, err := engine.CreateSession(ctx, "nope"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for unknown user, got %v", err)
	}
}

func TestEngineValidateSession(t *testing.T) {
	cfg := engineTestConfig()
	up := newMockUserProvider()
	seedUser(t, cfg, up, "u1", "alice@example.com", "correct-horse")
	engine := buildTestEngine(t, cfg, up, nil)

	ctx := context.Background()
	result, err := engine.Login(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	sess, err := engine.ValidateSession(ctx, result.SessionID)
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if sess.UserID != "u1" || sess.CSRFToken != result.CSRFToken {
		t.Fatalf("unexpected session record: %+v", sess)
	}

	// A fresh id from the same generator must be valid in shape yet unknown.
	unknown, err := engine.GenerateSessionID()
	if err != nil {
		t.Fatalf("GenerateSessionID failed: %v", err)
	}
	if _, err := engine.ValidateSession(ctx, unknown); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for unknown id, got %v", err)
	}
	if _, err := engine.ValidateSession(ctx, "BAD"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for malformed id, got %v", err)
	}
}

func TestEngineInvalidateSession(t *testing.T) {
	cfg := engineTestConfig()
	up := newMockUserProvider()
	seedUser(t, cfg, up, "u1", "alice@example.com", "correct-horse")
	engine := buildTestEngine(t, cfg, up, nil)

	ctx := context.Background()
	result, err := engine.Login(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := engine.InvalidateSession(ctx, result.SessionID); err != nil {
		t.Fatalf("InvalidateSession failed: %v", err)
	}
	if _, err := engine.Authenticate(ctx, result.SessionID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after revoke, got %v", err)
	}

	// Malformed ids are treated as already-gone.
	if err := engine.InvalidateSession(ctx, "not-a-session-id"); err != nil {
		t.Fatalf("expected nil for malformed id, got %v", err)
	}
}

func TestEngineActiveSessionsAndLogoutAll(t *testing.T) {
	cfg := engineTestConfig()
	up := newMockUserProvider()
	seedUser(t, cfg, up, "u1", "alice@example.com", "correct-horse")
	engine := buildTestEngine(t, cfg, up, nil)

	ctx := context.Background()
	first, err := engine.Login(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("first login failed: %v", err)
	}
	second, err := engine.Login(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("second login failed: %v", err)
	}
	if first.SessionID == second.SessionID {
		t.Fatal("expected distinct session ids per login")
	}

	ids, err := engine.ActiveSessions(ctx, "u1")
	if err != nil {
		t.Fatalf("ActiveSessions failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 active sessions, got %d", len(ids))
	}

	if err := engine.LogoutAll(ctx, "u1"); err != nil {
		t.Fatalf("LogoutAll failed: %v", err)
	}
	for _, sid := range []string{first.SessionID, second.SessionID} {
		if _, err := engine.Authenticate(ctx, sid); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected session %s to be gone, got %v", sid, err)
		}
	}
}

func TestEngineLockoutAdminOperations(t *testing.T) {
	cfg := engineTestConfig()
	up := newMockUserProvider()
	seedUser(t, cfg, up, "u1", "alice@example.com", "correct-horse")
	engine := buildTestEngine(t, cfg, up, nil)

	ctx := context.Background()
	for i := 0; i < int(cfg.Lockout.Threshold); i++ {
		_, _ = engine.Login(ctx, "alice@example.com", "wrong")
	}

	if _, err := engine.Login(ctx, "alice@example.com", "correct-horse"); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}

	remaining, err := engine.LockoutRemaining(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("LockoutRemaining failed: %v", err)
	}
	if remaining <= 0 || remaining > cfg.Lockout.Duration {
		t.Fatalf("expected remaining in (0, %s], got %s", cfg.Lockout.Duration, remaining)
	}

	attempts, err := engine.FailedAttempts(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("FailedAttempts failed: %v", err)
	}
	if attempts < int(cfg.Lockout.Threshold) {
		t.Fatalf("expected at least %d failed attempts, got %d", cfg.Lockout.Threshold, attempts)
	}

	if err := engine.UnlockAccount(ctx, "alice@example.com"); err != nil {
		t.Fatalf("UnlockAccount failed: %v", err)
	}
	if _, err := engine.Login(ctx, "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("expected login after unlock, got %v", err)
	}
}

func TestEngineSuccessfulLoginResetsFailureCounter(t *testing.T) {
	cfg := engineTestConfig()
	up := newMockUserProvider()
	seedUser(t, cfg, up, "u1", "alice@example.com", "correct-horse")
	engine := buildTestEngine(t, cfg, up, nil)

	ctx := context.Background()
	for i := 0; i < int(cfg.Lockout.Threshold)-1; i++ {
		_, _ = engine.Login(ctx, "alice@example.com", "wrong")
	}
	if _, err := engine.Login(ctx, "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	attempts, err := engine.FailedAttempts(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("FailedAttempts failed: %v", err)
	}
	if attempts != 0 {
		t.Fatalf("expected counter reset after success, got %d", attempts)
	}
}

func TestEngineSessionExpiry(t *testing.T) {
	cfg := engineTestConfig()
	cfg.Session.Lifetime = time.Minute
	up := newMockUserProvider()
	seedUser(t, cfg, up, "u1", "alice@example.com", "correct-horse")

	mr, rdb := newTestRedis(t)
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(up).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	ctx := context.Background()
	result, err := engine.Login(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := engine.Authenticate(ctx, result.SessionID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after expiry, got %v", err)
	}
}

func TestEngineSecurityReport(t *testing.T) {
	cfg := engineTestConfig()
	up := newMockUserProvider()
	engine := buildTestEngine(t, cfg, up, nil)

	report := engine.SecurityReport()
	if report.SessionLifetime != cfg.Session.Lifetime {
		t.Fatalf("expected lifetime %s, got %s", cfg.Session.Lifetime, report.SessionLifetime)
	}
	if !report.SecureCookies || !report.SameSiteStrict {
		t.Fatalf("expected hardened cookie flags in report: %+v", report)
	}
	if !report.LockoutEnabled {
		t.Fatal("expected lockout enabled in report")
	}
}

func TestEngineMetricsCounters(t *testing.T) {
	cfg := engineTestConfig()
	cfg.Metrics.Enabled = true
	up := newMockUserProvider()
	seedUser(t, cfg, up, "u1", "alice@example.com", "correct-horse")
	engine := buildTestEngine(t, cfg, up, nil)

	ctx := context.Background()
	if _, err := engine.Login(ctx, "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	_, _ = engine.Login(ctx, "alice@example.com", "wrong")

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("expected 1 login success, got %d", snap.Counters[MetricLoginSuccess])
	}
	if snap.Counters[MetricLoginFailure] != 1 {
		t.Fatalf("expected 1 login failure, got %d", snap.Counters[MetricLoginFailure])
	}
	if snap.Counters[MetricSessionCreated] != 1 {
		t.Fatalf("expected 1 session created, got %d", snap.Counters[MetricSessionCreated])
	}
}

func TestBuilderRejectsDoubleBuild(t *testing.T) {
	cfg := engineTestConfig()
	up := newMockUserProvider()
	_, rdb := newTestRedis(t)

	builder := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(up)

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	if _, err := builder.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestBuilderRequiresRedisAndProvider(t *testing.T) {
	if _, err := New().WithConfig(engineTestConfig()).Build(); err == nil {
		t.Fatal("expected Build without redis to fail")
	}

	_, rdb := newTestRedis(t)
	if _, err := New().WithConfig(engineTestConfig()).WithRedis(rdb).Build(); err == nil {
		t.Fatal("expected Build without provider to fail")
	}
}
