package arena

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxOnboardingText  = 1000
	maxOnboardingList  = 20
	maxOnboardingEntry = 50
)

var experienceLevels = map[string]bool{
	"":             true,
	"beginner":     true,
	"intermediate": true,
	"advanced":     true,
	"expert":       true,
}

// CompleteOnboarding moves the user behind token from Incomplete to
// Complete and stores data as their profile. A repeated call succeeds with
// AlreadyComplete set and leaves the stored profile unchanged.
func (e *Engine) CompleteOnboarding(ctx context.Context, token string, data OnboardingData) (*OnboardingResult, error) {
	p, err := e.Validate(ctx, token)
	if err != nil {
		e.countOp("onboarding", err)
		return nil, err
	}
	return e.CompleteOnboardingFor(ctx, p, data)
}

// CompleteOnboardingFor is CompleteOnboarding for an already validated
// principal.
func (e *Engine) CompleteOnboardingFor(ctx context.Context, p *Principal, data OnboardingData) (*OnboardingResult, error) {
	res, err := e.completeOnboarding(ctx, p, data)
	e.countOp("onboarding", err)
	return res, err
}

func (e *Engine) completeOnboarding(ctx context.Context, p *Principal, data OnboardingData) (*OnboardingResult, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	if p == nil {
		return nil, ErrUnauthenticated
	}

	data, err := cleanOnboarding(data)
	if err != nil {
		// A completed account ignores the payload, valid or not.
		if user, lookupErr := e.users.GetByID(ctx, p.UserID); lookupErr == nil && user.OnboardingComplete {
			return &OnboardingResult{User: user, AlreadyComplete: true}, nil
		}
		return nil, err
	}

	user, changed, err := e.users.CompleteOnboarding(ctx, p.UserID, data)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	if changed {
		e.emitAudit(ctx, auditEventOnboardingComplete, true, p.UserID, p.SessionID, nil, nil)
	}
	return &OnboardingResult{User: user, AlreadyComplete: !changed}, nil
}

func cleanOnboarding(data OnboardingData) (OnboardingData, error) {
	out := OnboardingData{
		ExperienceLevel: strings.ToLower(strings.TrimSpace(data.ExperienceLevel)),
		Goals:           strings.TrimSpace(data.Goals),
		Bio:             strings.TrimSpace(data.Bio),
	}
	if !experienceLevels[out.ExperienceLevel] {
		return out, invalid("experienceLevel", "unknown experience level")
	}
	if utf8.RuneCountInString(out.Goals) > maxOnboardingText {
		return out, invalid("goals", fmt.Sprintf("goals must be at most %d characters", maxOnboardingText))
	}
	if utf8.RuneCountInString(out.Bio) > maxOnboardingText {
		return out, invalid("bio", fmt.Sprintf("bio must be at most %d characters", maxOnboardingText))
	}

	var err error
	if out.PreferredLanguages, err = cleanList("preferredLanguages", data.PreferredLanguages); err != nil {
		return out, err
	}
	if out.Interests, err = cleanList("interests", data.Interests); err != nil {
		return out, err
	}
	return out, nil
}

func cleanList(field string, in []string) ([]string, error) {
	if len(in) > maxOnboardingList {
		return nil, invalid(field, fmt.Sprintf("at most %d entries allowed", maxOnboardingList))
	}
	seen := make(map[string]bool, len(in))
	var out []string
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		if utf8.RuneCountInString(v) > maxOnboardingEntry {
			return nil, invalid(field, fmt.Sprintf("entries must be at most %d characters", maxOnboardingEntry))
		}
		seen[v] = true
		out = append(out, v)
	}
	return out, nil
}
