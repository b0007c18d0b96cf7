package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/arena"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

const uniqueViolation = "23505"

// DB is the subset of pgx used by the Postgres stores. *pgxpool.Pool,
// *pgx.Conn and pgx.Tx all satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// OpenPool connects to databaseURL and checks the connection.
func OpenPool(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Migrate creates the tables the API reads and writes. It is safe to run on
// every start.
func Migrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Postgres is a UserStore backed by the users table.
type Postgres struct {
	db DB
}

func NewPostgres(db DB) *Postgres {
	return &Postgres{db: db}
}

const userColumns = `id::text, email, name, COALESCE(username, ''), password_hash,
	COALESCE(google_id, ''), role, onboarding_complete, email_verified, profile,
	created_at, updated_at`

func (p *Postgres) GetByID(ctx context.Context, id string) (*arena.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, arena.ErrUserNotFound
	}
	return p.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (p *Postgres) GetByEmail(ctx context.Context, email string) (*arena.User, error) {
	return p.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
}

func (p *Postgres) GetByGoogleID(ctx context.Context, googleID string) (*arena.User, error) {
	if googleID == "" {
		return nil, arena.ErrUserNotFound
	}
	return p.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID)
}

func (p *Postgres) getOne(ctx context.Context, query string, arg any) (*arena.User, error) {
	u, err := scanUser(p.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, arena.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (p *Postgres) Create(ctx context.Context, in arena.NewUser) (*arena.User, error) {
	role := in.Role
	if role == "" {
		role = arena.RoleUser
	}

	u, err := scanUser(p.db.QueryRow(ctx, `
		INSERT INTO users (id, email, name, username, password_hash, google_id, role, email_verified)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), $7, $8)
		RETURNING `+userColumns,
		uuid.NewString(), strings.ToLower(in.Email), in.Name, in.Username,
		in.PasswordHash, in.GoogleID, string(role), in.EmailVerified,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, arena.ErrDuplicateAccount
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (p *Postgres) LinkGoogle(ctx context.Context, userID, googleID string) error {
	tag, err := p.db.Exec(ctx, `
		UPDATE users SET google_id = $2, email_verified = TRUE, updated_at = now()
		WHERE id = $1`, userID, googleID)
	if err != nil {
		if isUniqueViolation(err) {
			return arena.ErrDuplicateAccount
		}
		return fmt.Errorf("link google account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return arena.ErrUserNotFound
	}
	return nil
}

func (p *Postgres) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	tag, err := p.db.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = now()
		WHERE id = $1`, userID, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return arena.ErrUserNotFound
	}
	return nil
}

// SetRole changes a user's role. It does not touch sessions; use
// arena.Engine.SetRole to revoke them as well.
func (p *Postgres) SetRole(ctx context.Context, userID string, role arena.Role) error {
	if !role.Valid() {
		return arena.ErrValidation
	}
	tag, err := p.db.Exec(ctx, `
		UPDATE users SET role = $2, updated_at = now()
		WHERE id = $1`, userID, string(role))
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return arena.ErrUserNotFound
	}
	return nil
}

// CompleteOnboarding relies on the WHERE clause for the one-way transition:
// of two concurrent calls only one updates a row.
func (p *Postgres) CompleteOnboarding(ctx context.Context, userID string, data arena.OnboardingData) (*arena.User, bool, error) {
	profile, err := json.Marshal(data)
	if err != nil {
		return nil, false, fmt.Errorf("encode profile: %w", err)
	}

	u, err := scanUser(p.db.QueryRow(ctx, `
		UPDATE users SET profile = $2, onboarding_complete = TRUE, updated_at = now()
		WHERE id = $1 AND onboarding_complete = FALSE
		RETURNING `+userColumns, userID, profile))
	switch {
	case err == nil:
		return u, true, nil
	case errors.Is(err, pgx.ErrNoRows):
		u, err := p.GetByID(ctx, userID)
		if err != nil {
			return nil, false, err
		}
		return u, false, nil
	default:
		return nil, false, fmt.Errorf("complete onboarding: %w", err)
	}
}

func scanUser(row pgx.Row) (*arena.User, error) {
	var (
		u       arena.User
		role    string
		profile []byte
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.Username, &u.PasswordHash,
		&u.GoogleID, &role, &u.OnboardingComplete, &u.EmailVerified, &profile,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Role = arena.Role(role)
	if len(profile) > 0 {
		var data arena.OnboardingData
		if err := json.Unmarshal(profile, &data); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
		u.Profile = &data
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
