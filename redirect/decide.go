// Package redirect is the client redirect controller: once the
// authoritative session state is known it decides whether a navigation may
// proceed or must be sent elsewhere. Its decision supersedes the edge
// gate's.
package redirect

import (
	"github.com/MrEthical07/arena/routes"
)

const (
	DefaultLoginPath      = "/login"
	DefaultOnboardingPath = "/onboarding"
	userLanding           = "/"
	adminLanding          = "/admin"
)

// Resolution is the authoritative session state for one navigation.
// Pending means the me call has not returned yet.
type Resolution struct {
	Pending            bool   `json:"pending"`
	Authenticated      bool   `json:"authenticated"`
	UserID             string `json:"userId,omitempty"`
	Role               string `json:"role,omitempty"`
	OnboardingComplete bool   `json:"onboardingComplete"`
}

// Unauthenticated is the resolution used when there is no session or the
// me call failed.
func Unauthenticated() Resolution {
	return Resolution{}
}

// Policy holds the choices the route table does not encode.
type Policy struct {
	// RequireOnboarding sends signed-in users who have not finished
	// onboarding to OnboardingPath from every other protected page.
	RequireOnboarding bool
	LoginPath         string
	OnboardingPath    string
}

func DefaultPolicy() Policy {
	return Policy{
		RequireOnboarding: true,
		LoginPath:         DefaultLoginPath,
		OnboardingPath:    DefaultOnboardingPath,
	}
}

func (p Policy) withDefaults() Policy {
	if p.LoginPath == "" {
		p.LoginPath = DefaultLoginPath
	}
	if p.OnboardingPath == "" {
		p.OnboardingPath = DefaultOnboardingPath
	}
	return p
}

// Landing is where a signed-in user of role is sent away from auth pages.
func Landing(role string) string {
	if role == routes.RoleAdmin {
		return adminLanding
	}
	return userLanding
}

// Decide is a pure function of the session state, the rule the path was
// classified under, and the path itself.
func Decide(res Resolution, rule routes.Rule, path string, policy Policy) routes.Decision {
	if res.Pending {
		return routes.WaitDecision()
	}
	policy = policy.withDefaults()

	switch rule.Category {
	case routes.AuthOnly:
		if res.Authenticated {
			return routes.RedirectTo(Landing(res.Role))
		}
	case routes.Protected:
		if !res.Authenticated {
			return routes.RedirectTo(policy.LoginPath)
		}
		if rule.Role != "" && res.Role != rule.Role {
			return routes.RedirectTo(Landing(res.Role))
		}

		onboarding := routes.Rule{Prefix: policy.OnboardingPath}.Matches(routes.Normalize(path))
		if res.OnboardingComplete && onboarding {
			return routes.RedirectTo(Landing(res.Role))
		}
		if !res.OnboardingComplete && policy.RequireOnboarding && !onboarding {
			return routes.RedirectTo(policy.OnboardingPath)
		}
	}
	return routes.AllowDecision()
}
