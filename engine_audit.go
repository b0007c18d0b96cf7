package arena

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventLoginRateLimited      = "login_rate_limited"
	auditEventSignupSuccess         = "signup_success"
	auditEventSignupDuplicate       = "signup_duplicate"
	auditEventGoogleAuthSuccess     = "google_auth_success"
	auditEventGoogleAuthFailure     = "google_auth_failure"
	auditEventGoogleAccountLinked   = "google_account_linked"
	auditEventLogout                = "logout"
	auditEventOnboardingComplete    = "onboarding_complete"
	auditEventSessionTokenIssued    = "session_token_issued"
	auditEventSessionTokenDenied    = "session_token_denied"
	auditEventSessionsRevoked       = "sessions_revoked"
	auditEventRoleChanged           = "role_changed"
	auditEventPasswordResetRequest  = "password_reset_request"
	auditEventPasswordResetConfirm  = "password_reset_confirm"
	auditEventPasswordResetRejected = "password_reset_rejected"
)

type auditErrorCode string

const (
	auditErrInvalidCredentials auditErrorCode = "invalid_credentials"
	auditErrValidation         auditErrorCode = "validation"
	auditErrRateLimited        auditErrorCode = "rate_limited"
	auditErrDuplicate          auditErrorCode = "duplicate"
	auditErrOAuth              auditErrorCode = "oauth_verification_failed"
	auditErrUnauthenticated    auditErrorCode = "unauthenticated"
	auditErrForbidden          auditErrorCode = "forbidden"
	auditErrResetToken         auditErrorCode = "reset_token_invalid"
	auditErrUnavailable        auditErrorCode = "backend_unavailable"
	auditErrInternal           auditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditCode(err error) auditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrLoginRateLimited), errors.Is(err, ErrPasswordResetRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrDuplicateAccount):
		return auditErrDuplicate
	case errors.Is(err, ErrOAuthVerificationFailed):
		return auditErrOAuth
	case errors.Is(err, ErrUnauthenticated):
		return auditErrUnauthenticated
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrResetTokenInvalid):
		return auditErrResetToken
	case errors.Is(err, ErrUpstreamUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

func (e *Engine) countOp(op string, err error) {
	if e == nil || e.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = string(auditCode(err))
	}
	e.metrics.AuthOp(op, outcome)
}
