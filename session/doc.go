// Package session provides Redis-backed session persistence and compact binary session
// encoding.
//
// # Binary encoding
//
// Sessions are stored as a versioned binary blob. Decode rejects versions it does
// not know, so an older binary never misreads a newer record.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Session] model. It does NOT
// interpret JWT tokens or make routing decisions; those belong to the Engine and the
// gate packages.
//
// # What this package must NOT do
//
//   - Import arena, jwt, or routes (no upward imports).
//   - Store plaintext secrets in [Session] fields.
package session
