package authkit

import (
	"net/http"
	"time"
)

type SecurityReport struct {
	SessionLifetime    time.Duration
	LockoutEnabled     bool
	LockoutThreshold   int
	LockoutWindow      time.Duration
	LockoutDuration    time.Duration
	Argon2             PasswordConfigReport
	IPThrottleActive   bool
	SecureCookies      bool
	SameSiteStrict     bool
	AuditEnabled       bool
	MetricsEnabled     bool
	DefaultMinimumRole string
}

type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	ipThrottle := e.config.Security.EnableIPThrottle &&
		e.config.Security.MaxLoginAttempts > 0 &&
		e.config.Security.LoginCooldownDuration > 0

	return SecurityReport{
		SessionLifetime:  e.config.Session.Lifetime,
		LockoutEnabled:   e.config.Lockout.Enabled,
		LockoutThreshold: e.config.Lockout.Threshold,
		LockoutWindow:    e.config.Lockout.Window,
		LockoutDuration:  e.config.Lockout.Duration,
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		IPThrottleActive:   ipThrottle,
		SecureCookies:      e.config.Cookie.Secure,
		SameSiteStrict:     e.config.Cookie.SameSite == http.SameSiteStrictMode,
		AuditEnabled:       e.config.Audit.Enabled,
		MetricsEnabled:     e.config.Metrics.Enabled,
		DefaultMinimumRole: e.config.Security.DefaultMinimumRole.String(),
	}
}
