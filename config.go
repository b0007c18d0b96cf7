package arena

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/arena/jwt"
	"github.com/MrEthical07/arena/password"
)

// Config holds the Engine's settings. It is copied by [Builder.WithConfig]
// and again by [Builder.Build]; later changes to the caller's value have no
// effect.
type Config struct {
	JWT           JWTConfig
	Session       SessionConfig
	Password      PasswordConfig
	PasswordReset PasswordResetConfig
	Security      SecurityConfig
	Audit         AuditConfig
	Google        GoogleConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures session token signing. AccessTTL is also the
// lifetime of the server-side session record.
type JWTConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

type SessionConfig struct {
	RedisPrefix string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

type PasswordConfig struct {
	Memory         uint32
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

/*
====================================
PASSWORD RESET CONFIG
====================================
*/

// PasswordResetConfig controls the forgot/reset password flow. LinkBase is
// the frontend origin the mailed link points at. MinResponseTime is the
// floor every successful forgot-password call is padded to, whether or not
// the account exists.
type PasswordResetConfig struct {
	Enabled         bool
	ResetTTL        time.Duration
	MaxAttempts     int
	MaxRequests     int
	RequestWindow   time.Duration
	LinkBase        string
	MinResponseTime time.Duration
}

/*
====================================
SECURITY CONFIG
====================================
*/

type SecurityConfig struct {
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
GOOGLE CONFIG
====================================
*/

type GoogleConfig struct {
	ClientID string
}

// DefaultConfig returns production defaults. JWT keys must still be set.
func DefaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		JWT: JWTConfig{
			AccessTTL:     7 * 24 * time.Hour,
			SigningMethod: "hs256",
			Issuer:        "arena",
			Leeway:        30 * time.Second,
		},
		Session: SessionConfig{
			RedisPrefix: "as",
		},
		Password: PasswordConfig{
			Memory:         pw.Memory,
			Time:           pw.Time,
			Parallelism:    pw.Parallelism,
			SaltLength:     pw.SaltLength,
			KeyLength:      pw.KeyLength,
			UpgradeOnLogin: true,
		},
		PasswordReset: PasswordResetConfig{
			Enabled:         true,
			ResetTTL:        time.Hour,
			MaxAttempts:     5,
			MaxRequests:     3,
			RequestWindow:   time.Hour,
			LinkBase:        "http://localhost:3000",
			MinResponseTime: 250 * time.Millisecond,
		},
		Security: SecurityConfig{
			EnableIPThrottle:      true,
			MaxLoginAttempts:      10,
			LoginCooldownDuration: 15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks cfg for settings the Engine cannot run with.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	switch strings.ToLower(c.JWT.SigningMethod) {
	case "", "hs256", "ed25519":
	default:
		return fmt.Errorf("unsupported JWT signing method %q", c.JWT.SigningMethod)
	}
	if len(c.JWT.PrivateKey) == 0 {
		return errors.New("JWT signing key is required")
	}

	// Session
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}

	// Password
	if _, err := password.NewArgon2(c.passwordConfig()); err != nil {
		return fmt.Errorf("password config: %w", err)
	}

	// Reset
	if c.PasswordReset.Enabled {
		if c.PasswordReset.ResetTTL <= 0 {
			return errors.New("PasswordReset ResetTTL must be > 0")
		}
		if c.PasswordReset.MaxAttempts <= 0 {
			return errors.New("PasswordReset MaxAttempts must be > 0")
		}
		if c.PasswordReset.MinResponseTime < 0 || c.PasswordReset.MinResponseTime > 5*time.Second {
			return errors.New("PasswordReset MinResponseTime must be between 0 and 5s")
		}
		if c.PasswordReset.MaxRequests > 0 && c.PasswordReset.RequestWindow <= 0 {
			return errors.New("PasswordReset RequestWindow must be > 0 when MaxRequests is set")
		}
		u, err := url.Parse(c.PasswordReset.LinkBase)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("PasswordReset LinkBase %q is not an absolute URL", c.PasswordReset.LinkBase)
		}
	}

	// Security
	if c.Security.MaxLoginAttempts <= 0 {
		return errors.New("Security MaxLoginAttempts must be > 0")
	}
	if c.Security.LoginCooldownDuration <= 0 {
		return errors.New("Security LoginCooldownDuration must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}

func (c *Config) passwordConfig() password.Config {
	return password.Config{
		Memory:           c.Password.Memory,
		Time:             c.Password.Time,
		Parallelism:      c.Password.Parallelism,
		SaltLength:       c.Password.SaltLength,
		KeyLength:        c.Password.KeyLength,
		MaxPasswordBytes: password.DefaultMaxPasswordBytes,
	}
}

func (c *Config) jwtConfig() jwt.Config {
	method := jwt.MethodHS256
	if strings.EqualFold(c.JWT.SigningMethod, "ed25519") {
		method = jwt.MethodEd25519
	}
	return jwt.Config{
		AccessTTL:     c.JWT.AccessTTL,
		SigningMethod: method,
		PrivateKey:    c.JWT.PrivateKey,
		PublicKey:     c.JWT.PublicKey,
		Issuer:        c.JWT.Issuer,
		Audience:      c.JWT.Audience,
		Leeway:        c.JWT.Leeway,
	}
}
