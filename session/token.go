package session

import (
	"crypto/rand"
	"io"
)

const (
	sessionIDBytes = 16
	csrfTokenBytes = 32

	// SessionIDLength is the length in characters of every session id
	// (128 bits rendered as lowercase hex).
	SessionIDLength = sessionIDBytes * 2
	// CSRFTokenLength is the length in characters of every CSRF token
	// (256 bits rendered as lowercase hex).
	CSRFTokenLength = csrfTokenBytes * 2
)

const hexDigits = "0123456789abcdef"

// NewSessionID returns a fresh session id: 128 bits from crypto/rand as
// lowercase hex. Collision probability is negligible at this entropy; the
// store's key uniqueness is the backstop.
func NewSessionID() (string, error) {
	return randomHex(sessionIDBytes)
}

// NewCSRFToken returns a fresh CSRF token: 256 bits from crypto/rand as
// lowercase hex.
func NewCSRFToken() (string, error) {
	return randomHex(csrfTokenBytes)
}

// ValidSessionID reports whether s has the shape of a generated session id.
// It is a syntactic check only; existence is decided by the store.
func ValidSessionID(s string) bool {
	if len(s) != SessionIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func randomHex(n int) (string, error) {
	raw := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", err
	}

	out := make([]byte, n*2)
	for i, b := range raw {
		out[i*2] = hexDigits[b>>4]
		out[i*2+1] = hexDigits[b&0x0f]
	}
	return string(out), nil
}
