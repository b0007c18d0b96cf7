// Package internal contains helpers private to the arena module: random
// session and reset identifiers and the reset token codec.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - config: process configuration (.env, YAML overlay, environment)
//   - metrics: Prometheus collectors for auth, gate and proxy outcomes
//   - rate: Redis-backed fixed-window limiters
//   - resource: initialize-once accessors for process-wide clients
//   - stores: short-lived Redis records (password reset)
package internal
