package arena

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/arena/internal"
	"github.com/MrEthical07/arena/internal/rate"
	"github.com/MrEthical07/arena/internal/stores"
)

const resetMailTimeout = 30 * time.Second

// ForgotPassword mails a reset link to email when an account exists. The
// caller cannot tell whether it did: unknown emails succeed too, the mail
// is sent in the background, and every successful call is padded to
// PasswordReset.MinResponseTime.
func (e *Engine) ForgotPassword(ctx context.Context, email string) error {
	start := time.Now()
	err := e.forgotPassword(ctx, email)
	e.countOp("forgot_password", err)
	if err != nil {
		return err
	}
	return e.padResponse(ctx, start)
}

func (e *Engine) forgotPassword(ctx context.Context, email string) error {
	if e == nil || e.users == nil || e.resets == nil {
		return ErrEngineNotReady
	}
	if !e.config.PasswordReset.Enabled {
		return ErrPasswordResetDisabled
	}
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}

	if err := e.limiter.CheckResetRequest(ctx, email); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metrics.RateLimited("password_reset")
			e.emitAudit(ctx, auditEventPasswordResetRequest, false, "", "", ErrPasswordResetRateLimited, func() map[string]string {
				return map[string]string{"identifier": email}
			})
			return ErrPasswordResetRateLimited
		}
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	user, err := e.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		e.emitAudit(ctx, auditEventPasswordResetRequest, true, "", "", nil, func() map[string]string {
			return map[string]string{
				"identifier":       email,
				"enumeration_safe": "true",
			}
		})
		return nil
	}

	rid, err := internal.NewSessionID()
	if err != nil {
		return err
	}
	secret, err := internal.NewResetSecret()
	if err != nil {
		return err
	}
	token, err := internal.EncodeResetToken(rid.String(), secret)
	if err != nil {
		return err
	}

	ttl := e.config.PasswordReset.ResetTTL
	record := &stores.PasswordResetRecord{
		UserID:     user.ID,
		SecretHash: internal.HashResetSecret(secret),
		ExpiresAt:  time.Now().Add(ttl).Unix(),
	}
	if err := e.resets.Save(ctx, rid.String(), record, ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	e.emitAudit(ctx, auditEventPasswordResetRequest, true, user.ID, "", nil, nil)

	if e.mailer == nil {
		e.logger.Warn("no mailer configured, reset link not delivered", slog.String("user_id", user.ID))
		return nil
	}
	e.sendResetMail(ctx, user, e.resetLink(token))
	return nil
}

// sendResetMail delivers in the background; failures are only logged.
func (e *Engine) sendResetMail(ctx context.Context, user *User, link string) {
	e.mailWG.Add(1)
	go func() {
		defer e.mailWG.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resetMailTimeout)
		defer cancel()
		if err := e.mailer.SendPasswordReset(sendCtx, user.Email, user.Name, link); err != nil {
			e.logger.Error("send password reset mail",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// ValidateResetToken reports whether token can still be redeemed. It does
// not consume the token, but a token with a valid ID and a wrong secret
// spends one attempt.
func (e *Engine) ValidateResetToken(ctx context.Context, token string) error {
	if e == nil || e.resets == nil {
		return ErrEngineNotReady
	}
	if !e.config.PasswordReset.Enabled {
		return ErrPasswordResetDisabled
	}

	rid, secret, err := internal.DecodeResetToken(strings.TrimSpace(token))
	if err != nil {
		return ErrResetTokenInvalid
	}
	_, err = e.resets.Check(ctx, rid, internal.HashResetSecret(secret), e.config.PasswordReset.MaxAttempts)
	return mapResetStoreError(err)
}

// ResetPassword redeems token, sets newPassword and revokes every session
// of the user.
func (e *Engine) ResetPassword(ctx context.Context, token, newPassword string) error {
	err := e.resetPassword(ctx, token, newPassword)
	e.countOp("reset_password", err)
	return err
}

func (e *Engine) resetPassword(ctx context.Context, token, newPassword string) error {
	if e == nil || e.users == nil || e.resets == nil || e.passwordHash == nil {
		return ErrEngineNotReady
	}
	if !e.config.PasswordReset.Enabled {
		return ErrPasswordResetDisabled
	}
	// Policy first, so a weak password does not burn the token.
	if err := e.passwordHash.CheckPolicy(newPassword); err != nil {
		return invalid("password", err.Error())
	}

	rid, secret, err := internal.DecodeResetToken(strings.TrimSpace(token))
	if err != nil {
		return ErrResetTokenInvalid
	}

	record, err := e.resets.Consume(ctx, rid, internal.HashResetSecret(secret), e.config.PasswordReset.MaxAttempts)
	if err != nil {
		mapped := mapResetStoreError(err)
		e.emitAudit(ctx, auditEventPasswordResetRejected, false, "", "", mapped, nil)
		return mapped
	}

	hash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := e.users.UpdatePasswordHash(ctx, record.UserID, hash); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	if err := e.sessions.DeleteAllForUser(ctx, record.UserID); err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, record.UserID, "", nil, nil)
	return nil
}

func (e *Engine) resetLink(token string) string {
	base := strings.TrimRight(e.config.PasswordReset.LinkBase, "/")
	return base + "/reset-password?token=" + url.QueryEscape(token)
}

func mapResetStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, stores.ErrResetNotFound),
		errors.Is(err, stores.ErrResetSecretMismatch),
		errors.Is(err, stores.ErrResetAttemptsExceeded):
		return ErrResetTokenInvalid
	default:
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
}

// padResponse sleeps until MinResponseTime has passed since start, plus up
// to 20ms of jitter.
func (e *Engine) padResponse(ctx context.Context, start time.Time) error {
	floor := e.config.PasswordReset.MinResponseTime
	if floor <= 0 {
		return nil
	}
	n, err := rand.Int(rand.Reader, big.NewInt(21))
	if err != nil {
		return err
	}
	delay := time.Until(start.Add(floor + time.Duration(n.Int64())*time.Millisecond))
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
