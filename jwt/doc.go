// Package jwt issues and verifies the signed session tokens carried in the
// "token" cookie. Verification is purely local (signature, expiry, issuer,
// audience) so the edge gate can run it without any backend call.
package jwt
