// Package middleware exposes HTTP middleware that authenticates API requests
// through arena.Engine validation.
//
// # Guards
//
//   - [Guard] validates the session token and stores the [arena.Principal]
//     in the request context.
//   - [RequireRole] rejects principals without the given role. It must run
//     after Guard.
//
// Tokens are read from the "token" cookie first, then from the
// Authorization bearer header.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does not
// parse JWTs or touch Redis itself; every decision is delegated to the
// Validator.
package middleware
