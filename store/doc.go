// Package store holds the account storage implementations of
// arena.UserStore: Memory for development and tests, Postgres for
// deployments.
package store
