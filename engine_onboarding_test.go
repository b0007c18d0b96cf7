package arena

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestCompleteOnboardingOneWay(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	res := env.signup(t, "olga@example.com")

	first, err := env.engine.CompleteOnboarding(ctx, res.Token, OnboardingData{
		ExperienceLevel:    "Intermediate",
		PreferredLanguages: []string{"go", " rust ", "go", ""},
		Goals:              "win a contest",
	})
	if err != nil {
		t.Fatalf("CompleteOnboarding failed: %v", err)
	}
	if first.AlreadyComplete {
		t.Fatal("first call must perform the transition")
	}
	if !first.User.OnboardingComplete {
		t.Fatal("expected onboarding complete")
	}
	if got := first.User.Profile.PreferredLanguages; len(got) != 2 || got[0] != "go" || got[1] != "rust" {
		t.Fatalf("languages not cleaned: %v", got)
	}
	if first.User.Profile.ExperienceLevel != "intermediate" {
		t.Fatalf("experience level not normalized: %q", first.User.Profile.ExperienceLevel)
	}

	second, err := env.engine.CompleteOnboarding(ctx, res.Token, OnboardingData{Goals: "something else"})
	if err != nil {
		t.Fatalf("repeat CompleteOnboarding must succeed, got %v", err)
	}
	if !second.AlreadyComplete {
		t.Fatal("repeat call must report AlreadyComplete")
	}
	if second.User.Profile.Goals != "win a contest" {
		t.Fatalf("repeat call overwrote profile: %q", second.User.Profile.Goals)
	}

	me, err := env.engine.Me(ctx, res.Token)
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if !me.OnboardingComplete {
		t.Fatal("onboarding flag reverted")
	}
}

func TestCompleteOnboardingConcurrentSingleTransition(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	res := env.signup(t, "pat@example.com")

	const n = 8
	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		transitions int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := env.engine.CompleteOnboarding(ctx, res.Token, OnboardingData{Goals: "x"})
			if err != nil {
				t.Errorf("CompleteOnboarding failed: %v", err)
				return
			}
			if !out.AlreadyComplete {
				mu.Lock()
				transitions++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if transitions != 1 {
		t.Fatalf("expected exactly one transition, got %d", transitions)
	}
}

func TestCompleteOnboardingRequiresSession(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	if _, err := env.engine.CompleteOnboarding(ctx, "", OnboardingData{}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	res := env.signup(t, "quinn@example.com")
	if err := env.engine.Logout(ctx, res.Token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := env.engine.CompleteOnboarding(ctx, res.Token, OnboardingData{}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated after logout, got %v", err)
	}
	if env.users.onboardingCalls != 0 {
		t.Fatalf("store must not be touched without a session, got %d calls", env.users.onboardingCalls)
	}
}

func TestCompleteOnboardingValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	res := env.signup(t, "rita@example.com")

	cases := map[string]OnboardingData{
		"experienceLevel":    {ExperienceLevel: "wizard"},
		"goals":              {Goals: strings.Repeat("g", maxOnboardingText+1)},
		"interests":          {Interests: make([]string, maxOnboardingList+1)},
		"preferredLanguages": {PreferredLanguages: []string{strings.Repeat("l", maxOnboardingEntry+1)}},
	}
	for field, data := range cases {
		t.Run(field, func(t *testing.T) {
			_, err := env.engine.CompleteOnboarding(ctx, res.Token, data)
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != field {
				t.Fatalf("expected validation error on %s, got %v", field, err)
			}
		})
	}

	me, err := env.engine.Me(ctx, res.Token)
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if me.OnboardingComplete {
		t.Fatal("invalid data must not complete onboarding")
	}
}

func TestRepeatOnboardingIgnoresInvalidPayload(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	res := env.signup(t, "sam@example.com")

	if _, err := env.engine.CompleteOnboarding(ctx, res.Token, OnboardingData{ExperienceLevel: "beginner"}); err != nil {
		t.Fatalf("first CompleteOnboarding failed: %v", err)
	}

	again, err := env.engine.CompleteOnboarding(ctx, res.Token, OnboardingData{ExperienceLevel: "guru"})
	if err != nil {
		t.Fatalf("repeat call with invalid payload must succeed, got %v", err)
	}
	if !again.AlreadyComplete {
		t.Fatal("expected AlreadyComplete")
	}
	if again.User.Profile == nil || again.User.Profile.ExperienceLevel != "beginner" {
		t.Fatalf("stored profile changed: %+v", again.User.Profile)
	}
}
