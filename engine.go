package arena

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/MrEthical07/arena/internal"
	"github.com/MrEthical07/arena/internal/audit"
	"github.com/MrEthical07/arena/internal/metrics"
	"github.com/MrEthical07/arena/internal/rate"
	"github.com/MrEthical07/arena/internal/stores"
	"github.com/MrEthical07/arena/jwt"
	"github.com/MrEthical07/arena/password"
	"github.com/MrEthical07/arena/session"
)

const (
	maxNameRunes  = 100
	maxEmailBytes = 254
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)

// Engine issues, validates and revokes sessions. It is safe for concurrent
// use once returned by [Builder.Build].
type Engine struct {
	config       Config
	users        UserStore
	verifier     IdentityVerifier
	mailer       Mailer
	sessions     *session.Store
	limiter      *rate.Limiter
	resets       *stores.PasswordResetStore
	audit        *audit.Dispatcher
	metrics      *metrics.Registry
	passwordHash *password.Argon2
	dummyHash    string
	jwtManager   *jwt.Manager
	logger       *slog.Logger

	// in-flight reset mails
	mailWG sync.WaitGroup
}

// Close waits for reset mails still being sent and flushes pending audit
// events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.flushMail()
	e.audit.Close()
}

func (e *Engine) flushMail() {
	e.mailWG.Wait()
}

// AuditDropped returns the number of audit events dropped because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Login checks an email and password and opens a session. Unknown emails,
// accounts without a password and wrong passwords all fail with
// ErrInvalidCredentials.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	res, err := e.login(ctx, req)
	e.countOp("login", err)
	return res, err
}

func (e *Engine) login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	if e == nil || e.users == nil || e.passwordHash == nil {
		return nil, ErrEngineNotReady
	}
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, invalid("", "email and password are required")
	}
	ip := clientIPFromContext(ctx)

	if err := e.limiter.CheckLogin(ctx, email, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metrics.RateLimited("login")
			e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrLoginRateLimited, func() map[string]string {
				return map[string]string{"identifier": email}
			})
			return nil, ErrLoginRateLimited
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	user, err := e.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		_, _ = e.passwordHash.Verify(req.Password, e.dummyHash)
		return nil, e.loginFailed(ctx, email, ip, "", "user_not_found")
	}

	if user.PasswordHash == "" {
		_, _ = e.passwordHash.Verify(req.Password, e.dummyHash)
		return nil, e.loginFailed(ctx, email, ip, user.ID, "no_password")
	}

	ok, err := e.passwordHash.Verify(req.Password, user.PasswordHash)
	if err != nil || !ok {
		return nil, e.loginFailed(ctx, email, ip, user.ID, "password_mismatch")
	}

	if err := e.limiter.ResetLogin(ctx, email, ip); err != nil {
		e.logger.Warn("reset login counters", slog.String("error", err.Error()))
	}
	e.maybeUpgradeHash(ctx, user, req.Password)

	res, err := e.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, res.sessionID, nil, nil)
	return res, nil
}

func (e *Engine) loginFailed(ctx context.Context, email, ip, userID, reason string) error {
	if err := e.limiter.IncrementLogin(ctx, email, ip); err != nil && errors.Is(err, rate.ErrRateLimited) {
		e.metrics.RateLimited("login")
		e.emitAudit(ctx, auditEventLoginRateLimited, false, userID, "", ErrLoginRateLimited, func() map[string]string {
			return map[string]string{"identifier": email}
		})
		return ErrLoginRateLimited
	}
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"identifier": email,
			"reason":     reason,
		}
	})
	return ErrInvalidCredentials
}

func (e *Engine) maybeUpgradeHash(ctx context.Context, user *User, plain string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	upgrade, err := e.passwordHash.NeedsUpgrade(user.PasswordHash)
	if err != nil || !upgrade {
		return
	}
	hash, err := e.passwordHash.Hash(plain)
	if err != nil {
		return
	}
	if err := e.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		e.logger.Warn("password hash upgrade failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	user.PasswordHash = hash
}

// Signup creates a USER account and opens a session for it.
func (e *Engine) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	res, err := e.signup(ctx, req)
	e.countOp("signup", err)
	return res, err
}

func (e *Engine) signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	if e == nil || e.users == nil || e.passwordHash == nil {
		return nil, ErrEngineNotReady
	}

	email := normalizeEmail(req.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "name is required")
	}
	if utf8.RuneCountInString(name) > maxNameRunes {
		return nil, invalid("name", fmt.Sprintf("name must be at most %d characters", maxNameRunes))
	}
	username := strings.TrimSpace(req.Username)
	if username != "" && !usernamePattern.MatchString(username) {
		return nil, invalid("username", "username must be 3-30 letters, digits or underscores")
	}
	if err := e.passwordHash.CheckPolicy(req.Password); err != nil {
		return nil, invalid("password", err.Error())
	}

	if _, err := e.users.GetByEmail(ctx, email); err == nil {
		e.emitAudit(ctx, auditEventSignupDuplicate, false, "", "", ErrDuplicateAccount, func() map[string]string {
			return map[string]string{"identifier": email}
		})
		return nil, ErrDuplicateAccount
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	hash, err := e.passwordHash.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := e.users.Create(ctx, NewUser{
		Email:        email,
		Name:         name,
		Username:     username,
		PasswordHash: hash,
		Role:         RoleUser,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateAccount) {
			return nil, ErrDuplicateAccount
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	res, err := e.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	e.emitAudit(ctx, auditEventSignupSuccess, true, user.ID, res.sessionID, nil, nil)
	return res, nil
}

// GoogleAuth verifies a Google ID token and opens a session for the
// matching account. The first sign-in creates the account; an existing
// password account with the same email gets the Google subject linked.
func (e *Engine) GoogleAuth(ctx context.Context, credential string) (*AuthResult, error) {
	res, err := e.googleAuth(ctx, credential)
	e.countOp("google", err)
	return res, err
}

func (e *Engine) googleAuth(ctx context.Context, credential string) (*AuthResult, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	if e.verifier == nil {
		return nil, fmt.Errorf("%w: google sign-in is not configured", ErrOAuthVerificationFailed)
	}
	if strings.TrimSpace(credential) == "" {
		return nil, fmt.Errorf("%w: missing credential", ErrOAuthVerificationFailed)
	}

	ident, err := e.verifier.Verify(ctx, credential)
	if err != nil {
		e.emitAudit(ctx, auditEventGoogleAuthFailure, false, "", "", ErrOAuthVerificationFailed, nil)
		return nil, fmt.Errorf("%w: %v", ErrOAuthVerificationFailed, err)
	}
	if !ident.EmailVerified {
		e.emitAudit(ctx, auditEventGoogleAuthFailure, false, "", "", ErrOAuthVerificationFailed, func() map[string]string {
			return map[string]string{"reason": "email_unverified"}
		})
		return nil, fmt.Errorf("%w: email not verified by google", ErrOAuthVerificationFailed)
	}
	email := normalizeEmail(ident.Email)

	user, err := e.users.GetByGoogleID(ctx, ident.Subject)
	switch {
	case err == nil:
	case errors.Is(err, ErrUserNotFound):
		user, err = e.googleAccountFor(ctx, email, ident.Name, ident.Subject)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	res, err := e.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	e.emitAudit(ctx, auditEventGoogleAuthSuccess, true, user.ID, res.sessionID, nil, nil)
	return res, nil
}

func (e *Engine) googleAccountFor(ctx context.Context, email, name, subject string) (*User, error) {
	user, err := e.users.GetByEmail(ctx, email)
	if err == nil {
		if err := e.users.LinkGoogle(ctx, user.ID, subject); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		user.GoogleID = subject
		e.emitAudit(ctx, auditEventGoogleAccountLinked, true, user.ID, "", nil, nil)
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	if name = strings.TrimSpace(name); name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	user, err = e.users.Create(ctx, NewUser{
		Email:         email,
		Name:          name,
		GoogleID:      subject,
		Role:          RoleUser,
		EmailVerified: true,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateAccount) {
			return nil, ErrDuplicateAccount
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return user, nil
}

// Validate checks the token signature and expiry and that its server-side
// session still exists. It is what API middleware calls on every request.
func (e *Engine) Validate(ctx context.Context, token string) (*Principal, error) {
	if e == nil || e.jwtManager == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}
	if token == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := e.jwtManager.ParseAccess(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	sess, err := e.sessions.Get(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if sess.UserID != claims.UID {
		return nil, ErrUnauthenticated
	}

	return &Principal{
		UserID:    sess.UserID,
		SessionID: sess.SessionID,
		Role:      Role(sess.Role),
		ExpiresAt: time.Unix(sess.ExpiresAt, 0),
	}, nil
}

// Me returns the authoritative user record behind token.
func (e *Engine) Me(ctx context.Context, token string) (*User, error) {
	p, err := e.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	return e.CurrentUser(ctx, p)
}

// CurrentUser loads the user of an already validated principal.
func (e *Engine) CurrentUser(ctx context.Context, p *Principal) (*User, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	if p == nil {
		return nil, ErrUnauthenticated
	}
	user, err := e.users.GetByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return user, nil
}

// Logout deletes the session behind token. It is idempotent: a missing,
// malformed or expired token, or a session that is already gone, is not an
// error. Only a Redis failure is reported.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if e == nil || e.jwtManager == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	if token == "" {
		return nil
	}

	// Expired tokens still name a session worth deleting.
	claims, err := e.jwtManager.ParseAccessAllowExpired(token)
	if err != nil {
		return nil
	}

	if err := e.sessions.DeleteForUser(ctx, claims.UID, claims.SID); err != nil {
		e.countOp("logout", ErrUpstreamUnavailable)
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	e.countOp("logout", nil)
	e.emitAudit(ctx, auditEventLogout, true, claims.UID, claims.SID, nil, nil)
	return nil
}

// IssueSessionFor opens a fresh session for userID and returns its token.
// The caller must be that user or an ADMIN.
func (e *Engine) IssueSessionFor(ctx context.Context, caller *Principal, userID string) (string, error) {
	if e == nil || e.users == nil {
		return "", ErrEngineNotReady
	}
	if caller == nil {
		return "", ErrUnauthenticated
	}
	if err := e.requireSelfOrAdmin(ctx, caller, userID); err != nil {
		if errors.Is(err, ErrForbidden) {
			e.emitAudit(ctx, auditEventSessionTokenDenied, false, caller.UserID, caller.SessionID, ErrForbidden, func() map[string]string {
				return map[string]string{"target": userID}
			})
		}
		return "", err
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	res, err := e.issueSession(ctx, user)
	if err != nil {
		return "", err
	}
	e.emitAudit(ctx, auditEventSessionTokenIssued, true, caller.UserID, caller.SessionID, nil, func() map[string]string {
		return map[string]string{"target": userID}
	})
	return res.Token, nil
}

// requireSelfOrAdmin lets a caller act on its own account, or on any account
// when the stored record says ADMIN. The session role is not trusted here:
// it is fixed at issue time and may be stale.
func (e *Engine) requireSelfOrAdmin(ctx context.Context, caller *Principal, userID string) error {
	if caller.UserID == userID {
		return nil
	}
	if caller.Role != RoleAdmin {
		return ErrForbidden
	}
	current, err := e.users.GetByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUnauthenticated
		}
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if current.Role != RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// SetRole changes the role of userID and revokes all of its sessions, so
// the new role applies from the next login.
func (e *Engine) SetRole(ctx context.Context, userID string, role Role) error {
	err := e.setRole(ctx, userID, role)
	e.countOp("set_role", err)
	return err
}

func (e *Engine) setRole(ctx context.Context, userID string, role Role) error {
	if e == nil || e.users == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	if !role.Valid() {
		return invalid("role", "unknown role")
	}
	if err := e.users.SetRole(ctx, userID, role); err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrValidation) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if err := e.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	e.emitAudit(ctx, auditEventRoleChanged, true, userID, "", nil, func() map[string]string {
		return map[string]string{"role": string(role)}
	})
	return nil
}

func (e *Engine) issueSession(ctx context.Context, user *User) (*AuthResult, error) {
	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, err
	}
	sessionID := sid.String()

	token, expiresAt, err := e.jwtManager.CreateAccess(user.ID, sessionID, string(user.Role))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &session.Session{
		SessionID:     sessionID,
		UserID:        user.ID,
		Role:          string(user.Role),
		IPHash:        internal.HashString(clientIPFromContext(ctx)),
		UserAgentHash: internal.HashString(userAgentFromContext(ctx)),
		CreatedAt:     now.Unix(),
		ExpiresAt:     expiresAt.Unix(),
	}
	if err := e.sessions.Save(ctx, sess, expiresAt.Sub(now)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	return &AuthResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
		sessionID: sessionID,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return invalid("email", "email is required")
	}
	if len(email) > maxEmailBytes {
		return invalid("email", "email is too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return invalid("email", "email is not a valid address")
	}
	return nil
}
