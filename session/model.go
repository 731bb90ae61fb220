package session

// Session is the server-side record behind a session cookie.
//
// Session instances are immutable once persisted; the store only ever creates
// and deletes them.
type Session struct {
	SessionID string
	UserID    string
	CSRFToken string

	CreatedAt int64
	ExpiresAt int64
}
