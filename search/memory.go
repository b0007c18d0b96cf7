package search

import (
	"context"
	"sort"
	"strings"
)

// Memory searches fixed catalogs and a user source in process. It backs the
// API when no database is configured.
type Memory struct {
	challenges []Challenge
	contests   []Contest
	users      func() []User
}

func NewMemory(challenges []Challenge, contests []Contest, users func() []User) *Memory {
	return &Memory{challenges: challenges, contests: contests, users: users}
}

func (m *Memory) Search(_ context.Context, query string, limit int) (*Results, error) {
	q := strings.ToLower(query)
	out := Empty()

	for _, c := range m.challenges {
		if len(out.Challenges) == limit {
			break
		}
		if contains(q, c.Title, c.Slug) {
			out.Challenges = append(out.Challenges, c)
		}
	}
	for _, c := range m.contests {
		if len(out.Contests) == limit {
			break
		}
		if contains(q, c.Title, c.Slug) {
			out.Contests = append(out.Contests, c)
		}
	}

	if m.users != nil {
		users := m.users()
		sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
		for _, u := range users {
			if len(out.Users) == limit {
				break
			}
			if contains(q, u.Username, u.Name) {
				out.Users = append(out.Users, u)
			}
		}
	}
	return out, nil
}

func contains(q string, fields ...string) bool {
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
