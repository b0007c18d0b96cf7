package session

// Session is the server-side record behind a session token. It is written
// once at sign-in and deleted at logout or expiry; it is never updated in
// place.
type Session struct {
	SessionID string
	UserID    string
	Role      string

	IPHash        [32]byte
	UserAgentHash [32]byte

	CreatedAt int64
	ExpiresAt int64
}
