// Package rate provides Redis-backed fixed-window counters: INCR plus a
// conditional EXPIRE on the first hit.
//
// Key prefixes:
//   - al:   login failures per identifier
//   - ali:  login failures per IP
//   - arq:  password reset requests per identifier
//   - awin: API requests per caller (see [Window])
package rate
