package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Querier is the read side of a pgx pool or connection.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Postgres searches titles, slugs, usernames and names with ILIKE.
type Postgres struct {
	db Querier
}

func NewPostgres(db Querier) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Search(ctx context.Context, query string, limit int) (*Results, error) {
	pattern := "%" + escapeLike(query) + "%"
	out := Empty()

	rows, err := p.db.Query(ctx, `
		SELECT id::text, slug, title, difficulty FROM challenges
		WHERE title ILIKE $1 OR slug ILIKE $1
		ORDER BY title LIMIT $2`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search challenges: %w", err)
	}
	out.Challenges, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Challenge, error) {
		var c Challenge
		err := row.Scan(&c.ID, &c.Slug, &c.Title, &c.Difficulty)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("search challenges: %w", err)
	}

	rows, err = p.db.Query(ctx, `
		SELECT id::text, slug, title, starts_at FROM contests
		WHERE title ILIKE $1 OR slug ILIKE $1
		ORDER BY starts_at DESC LIMIT $2`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search contests: %w", err)
	}
	out.Contests, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Contest, error) {
		var c Contest
		err := row.Scan(&c.ID, &c.Slug, &c.Title, &c.StartsAt)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("search contests: %w", err)
	}

	rows, err = p.db.Query(ctx, `
		SELECT id::text, COALESCE(username, ''), name FROM users
		WHERE username ILIKE $1 OR name ILIKE $1
		ORDER BY name LIMIT $2`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	out.Users, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (User, error) {
		var u User
		err := row.Scan(&u.ID, &u.Username, &u.Name)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	return out.normalize(), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
