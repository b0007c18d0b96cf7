package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/MrEthical07/arena"
)

const maxBodyBytes = 1 << 20

// envelope is the response body of every API endpoint: success, an optional
// message, and endpoint fields merged in at the top level.
type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, status int, message string, fields envelope) {
	body := envelope{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, status, body)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := envelope{"success": false, "message": messageFor(err)}

	var ve *arena.ValidationError
	if errors.As(err, &ve) && ve.Field != "" {
		body["field"] = ve.Field
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
		if s.development {
			body["error"] = err.Error()
		}
	}
	writeJSON(w, status, body)
}

// statusFor maps the arena error taxonomy to an HTTP status.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, arena.ErrValidation), errors.Is(err, arena.ErrResetTokenInvalid):
		return http.StatusBadRequest
	case errors.Is(err, arena.ErrInvalidCredentials),
		errors.Is(err, arena.ErrOAuthVerificationFailed),
		errors.Is(err, arena.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, arena.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, arena.ErrUserNotFound), errors.Is(err, arena.ErrPasswordResetDisabled):
		return http.StatusNotFound
	case errors.Is(err, arena.ErrDuplicateAccount):
		return http.StatusConflict
	case errors.Is(err, arena.ErrLoginRateLimited),
		errors.Is(err, arena.ErrPasswordResetRateLimited),
		errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, arena.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	var ve *arena.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, arena.ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, arena.ErrOAuthVerificationFailed):
		return "Google authentication failed"
	case errors.Is(err, arena.ErrUnauthenticated):
		return "Not authorized"
	case errors.Is(err, arena.ErrForbidden):
		return "Not authorized for this resource"
	case errors.Is(err, arena.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, arena.ErrPasswordResetDisabled):
		return "Password reset is not available"
	case errors.Is(err, arena.ErrDuplicateAccount):
		return "An account with this email or username already exists"
	case errors.Is(err, arena.ErrLoginRateLimited), errors.Is(err, arena.ErrPasswordResetRateLimited):
		return "Too many attempts, please try again later"
	case errors.Is(err, errRateLimited):
		return "Too many requests, please try again later"
	case errors.Is(err, arena.ErrResetTokenInvalid):
		return "Invalid or expired reset token"
	case errors.Is(err, arena.ErrUpstreamUnavailable):
		return "Service temporarily unavailable"
	default:
		return "Internal server error"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &arena.ValidationError{Field: "body", Message: "Request body is required"}
		}
		return &arena.ValidationError{Field: "body", Message: "Request body is not valid JSON"}
	}
	return nil
}
