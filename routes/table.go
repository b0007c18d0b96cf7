package routes

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
)

// Category is the access class of a path.
type Category int

const (
	// Public paths are reachable by anyone.
	Public Category = iota
	// AuthOnly paths are meant for visitors without a session (login, signup).
	AuthOnly
	// Protected paths require a session.
	Protected
)

func (c Category) String() string {
	switch c {
	case Public:
		return "public"
	case AuthOnly:
		return "auth-only"
	case Protected:
		return "protected"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// ParseCategory accepts the names produced by [Category.String].
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public":
		return Public, nil
	case "auth-only", "authonly", "auth_only":
		return AuthOnly, nil
	case "protected":
		return Protected, nil
	}
	return Public, fmt.Errorf("unknown route category %q", s)
}

// Rule classifies every path equal to Prefix or below it. Role, when set,
// names the role a session must carry for a Protected rule.
type Rule struct {
	Prefix   string   `yaml:"prefix" json:"prefix"`
	Category Category `yaml:"category" json:"category"`
	Role     string   `yaml:"role,omitempty" json:"role,omitempty"`
}

// Matches reports whether p falls under the rule at a segment boundary:
// "/challenge" matches "/challenge" and "/challenge/42" but not
// "/challenges".
func (r Rule) Matches(p string) bool {
	if p == r.Prefix {
		return true
	}
	if r.Prefix == "/" {
		return strings.HasPrefix(p, "/")
	}
	return strings.HasPrefix(p, r.Prefix+"/")
}

var fallback = Rule{Prefix: "", Category: Public}

// Table is the one classification table shared by the edge gate and the
// client redirect controller. It is immutable after construction and safe
// for concurrent use.
type Table struct {
	exact map[string]Rule
	// sorted by descending prefix length
	rules []Rule
}

var (
	ErrEmptyPrefix     = errors.New("route prefix must start with /")
	ErrDuplicatePrefix = errors.New("duplicate route prefix")
)

// NewTable validates rules and builds a Table.
func NewTable(rules []Rule) (*Table, error) {
	t := &Table{
		exact: make(map[string]Rule, len(rules)),
		rules: make([]Rule, 0, len(rules)),
	}

	for _, r := range rules {
		if !strings.HasPrefix(r.Prefix, "/") {
			return nil, fmt.Errorf("%w: %q", ErrEmptyPrefix, r.Prefix)
		}
		r.Prefix = Normalize(r.Prefix)
		if r.Category < Public || r.Category > Protected {
			return nil, fmt.Errorf("route %q: invalid category %d", r.Prefix, int(r.Category))
		}
		if r.Role != "" && r.Category != Protected {
			return nil, fmt.Errorf("route %q: role requirement only applies to protected routes", r.Prefix)
		}
		if _, ok := t.exact[r.Prefix]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePrefix, r.Prefix)
		}
		t.exact[r.Prefix] = r
		t.rules = append(t.rules, r)
	}

	sort.SliceStable(t.rules, func(i, j int) bool {
		return len(t.rules[i].Prefix) > len(t.rules[j].Prefix)
	})

	return t, nil
}

// MustNewTable is NewTable for static rule sets; it panics on invalid input.
func MustNewTable(rules []Rule) *Table {
	t, err := NewTable(rules)
	if err != nil {
		panic(err)
	}
	return t
}

// Classify resolves p by exact match, then by longest matching prefix, and
// falls back to Public.
func (t *Table) Classify(p string) Rule {
	if t == nil {
		return fallback
	}
	p = Normalize(p)

	if r, ok := t.exact[p]; ok {
		return r
	}
	for _, r := range t.rules {
		if r.Matches(p) {
			return r
		}
	}
	return fallback
}

// Category is shorthand for Classify(p).Category.
func (t *Table) Category(p string) Category {
	return t.Classify(p).Category
}

// Rules returns a copy of the table's rules, longest prefix first.
func (t *Table) Rules() []Rule {
	if t == nil {
		return nil
	}
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Normalize cleans p so that "//profile/", "/profile/." and "/profile" all
// classify the same way. The query string, if any, is dropped.
func Normalize(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
