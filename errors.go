package arena

import "errors"

var (
	// ErrInvalidCredentials is returned by Login for an unknown email or a
	// wrong password. The two cases are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateAccount is returned by Signup when the email is taken.
	ErrDuplicateAccount = errors.New("account already exists")
	// ErrValidation wraps every input validation failure. Use errors.As with
	// *ValidationError to get the offending field.
	ErrValidation = errors.New("validation failed")
	// ErrOAuthVerificationFailed is returned when a Google credential cannot
	// be verified or its email is unverified.
	ErrOAuthVerificationFailed = errors.New("oauth verification failed")
	// ErrUnauthenticated means no valid session accompanied the request.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the session is valid but its role does not permit
	// the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrUpstreamUnavailable wraps failures of Redis, the user store or the
	// mailer.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrUserNotFound is returned by UserStore implementations.
	ErrUserNotFound = errors.New("user not found")
	// ErrLoginRateLimited is returned once the failed-login budget of an
	// email or client IP is spent.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrPasswordResetDisabled is returned when the reset flow is switched off.
	ErrPasswordResetDisabled = errors.New("password reset disabled")
	// ErrPasswordResetRateLimited is returned when an email asks for too many
	// reset links.
	ErrPasswordResetRateLimited = errors.New("password reset rate limited")
	// ErrResetTokenInvalid covers unknown, expired, consumed and exhausted
	// reset tokens.
	ErrResetTokenInvalid = errors.New("reset token invalid or expired")
	// ErrEngineNotReady is returned by methods called on a nil or partially
	// built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ValidationError names the input field that failed validation. It matches
// ErrValidation under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
