// Package stores provides Redis-backed, short-lived records for the
// password reset flow.
//
// Each record is a versioned binary blob with a TTL. Check and Consume run
// inside WATCH/MULTI optimistic transactions and retry on contention.
// Secrets are compared in constant time and only their SHA-256 hash is
// stored.
package stores
