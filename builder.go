package arena

import (
	"errors"
	"log/slog"

	"github.com/MrEthical07/arena/internal/audit"
	"github.com/MrEthical07/arena/internal/metrics"
	"github.com/MrEthical07/arena/internal/rate"
	"github.com/MrEthical07/arena/internal/stores"
	"github.com/MrEthical07/arena/jwt"
	"github.com/MrEthical07/arena/password"
	"github.com/MrEthical07/arena/session"
	"github.com/redis/go-redis/v9"
)

// dummyPassword is hashed once at build time so that logins for unknown
// emails spend the same Argon2 cost as logins with a wrong password.
const dummyPassword = "arena-timing-equalizer"

// Builder assembles an [Engine]. Configure it during initialization, call
// Build once, then discard it.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users    UserStore
	verifier IdentityVerifier
	mailer   Mailer

	auditSink AuditSink
	metrics   *metrics.Registry
	logger    *slog.Logger

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client used for sessions, rate limits and reset
// records. Both *redis.Client and *redis.ClusterClient are accepted.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithUserStore(users UserStore) *Builder {
	b.users = users
	return b
}

// WithIdentityVerifier enables GoogleAuth. Without one, GoogleAuth always
// fails with ErrOAuthVerificationFailed.
func (b *Builder) WithIdentityVerifier(v IdentityVerifier) *Builder {
	b.verifier = v
	return b
}

// WithMailer sets the delivery channel for password reset links.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetrics(reg *metrics.Registry) *Builder {
	b.metrics = reg
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the configuration and returns a ready Engine. A Builder
// can be built only once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := &Engine{
		config:   cfg,
		users:    b.users,
		verifier: b.verifier,
		mailer:   b.mailer,
		metrics:  b.metrics,
		logger:   logger.With(slog.String("component", "engine")),
	}

	// -------- SESSION STORE --------
	engine.sessions = session.NewStore(b.redis, cfg.Session.RedisPrefix)

	// -------- LIMITERS --------
	engine.limiter = rate.New(b.redis, rate.Config{
		EnableIPThrottle:      cfg.Security.EnableIPThrottle,
		MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
		LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
		MaxResetRequests:      cfg.PasswordReset.MaxRequests,
		ResetRequestWindow:    cfg.PasswordReset.RequestWindow,
	})
	engine.resets = stores.NewPasswordResetStore(b.redis, cfg.Session.RedisPrefix+"r")

	// -------- AUDIT --------
	reg := b.metrics
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		OnDrop:     reg.AuditDropped,
	}, b.auditSink)

	// -------- CRYPTO --------
	ph, err := password.NewArgon2(cfg.passwordConfig())
	if err != nil {
		return nil, err
	}
	engine.passwordHash = ph

	dummy, err := ph.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}
	engine.dummyHash = dummy

	jm, err := jwt.NewManager(cfg.jwtConfig())
	if err != nil {
		return nil, err
	}
	engine.jwtManager = jm

	b.built = true

	return engine, nil
}
