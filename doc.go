// Package arena is the authentication core of the arena platform: it issues
// JWT session tokens backed by Redis session records, validates them, and
// owns the account transitions around them (signup, Google sign-in,
// onboarding completion, password reset).
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// arena is the public surface. It exposes [Engine], [Builder], [Config] and
// the value types the HTTP layer serializes. Session encoding, rate limiting,
// reset records and audit dispatch live under internal/. Account storage is
// reached only through the [UserStore] interface; see package store for the
// memory and Postgres implementations.
//
// # Sessions
//
// A session is a signed token carrying the user ID, session ID and role,
// plus a Redis record keyed by the session ID. [Engine.Validate] requires
// both. The edge gate checks only the token, so revoking a session takes
// effect on API calls immediately and on page navigation once the client
// controller asks for /api/auth/me.
package arena
