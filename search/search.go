// Package search answers the global search box: challenges, contests and
// users matching a free-text query.
package search

import (
	"context"
	"strings"
	"time"
)

// DefaultLimit bounds each result list when the caller passes a
// non-positive limit.
const DefaultLimit = 10

const maxQueryLength = 100

type Challenge struct {
	ID         string `json:"id"`
	Slug       string `json:"slug"`
	Title      string `json:"title"`
	Difficulty string `json:"difficulty"`
}

type Contest struct {
	ID       string    `json:"id"`
	Slug     string    `json:"slug"`
	Title    string    `json:"title"`
	StartsAt time.Time `json:"startsAt"`
}

// User is the public part of an account shown in search results.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Results always serializes with three arrays, never null.
type Results struct {
	Challenges []Challenge `json:"challenges"`
	Contests   []Contest   `json:"contests"`
	Users      []User      `json:"users"`
}

// Empty returns a Results with empty, non-nil lists.
func Empty() *Results {
	return &Results{
		Challenges: []Challenge{},
		Contests:   []Contest{},
		Users:      []User{},
	}
}

func (r *Results) normalize() *Results {
	if r == nil {
		return Empty()
	}
	if r.Challenges == nil {
		r.Challenges = []Challenge{}
	}
	if r.Contests == nil {
		r.Contests = []Contest{}
	}
	if r.Users == nil {
		r.Users = []User{}
	}
	return r
}

// Searcher runs a query. Implementations receive a query already passed
// through Normalize and a positive limit.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) (*Results, error)
}

// Normalize trims and truncates a raw query. An empty result means there
// is nothing to search for.
func Normalize(q string) string {
	q = strings.Join(strings.Fields(q), " ")
	if r := []rune(q); len(r) > maxQueryLength {
		q = string(r[:maxQueryLength])
	}
	return q
}

// Run normalizes q, short-circuits blank queries and calls s.
func Run(ctx context.Context, s Searcher, q string, limit int) (*Results, error) {
	q = Normalize(q)
	if q == "" {
		return Empty(), nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	res, err := s.Search(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	return res.normalize(), nil
}
