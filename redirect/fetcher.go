package redirect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/arena/middleware"
)

var ErrSessionRejected = errors.New("session rejected by backend")

// HTTPFetcher resolves sessions with GET {BaseURL}/api/auth/me.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

func NewHTTPFetcher(baseURL string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPFetcher{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type meResponse struct {
	Success bool `json:"success"`
	User    *struct {
		ID                 string `json:"id"`
		Role               string `json:"role"`
		OnboardingComplete bool   `json:"onboardingComplete"`
	} `json:"user"`
}

func (f *HTTPFetcher) FetchSession(ctx context.Context, token string) (Resolution, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/api/auth/me", nil)
	if err != nil {
		return Resolution{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.AddCookie(&http.Cookie{Name: middleware.CookieName, Value: token})

	resp, err := f.client.Do(req)
	if err != nil {
		return Resolution{}, fmt.Errorf("fetch session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return Resolution{}, fmt.Errorf("%w: status %d", ErrSessionRejected, resp.StatusCode)
	}

	var body meResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return Resolution{}, fmt.Errorf("decode session: %w", err)
	}
	if !body.Success || body.User == nil || body.User.ID == "" {
		return Resolution{}, ErrSessionRejected
	}

	return Resolution{
		Authenticated:      true,
		UserID:             body.User.ID,
		Role:               body.User.Role,
		OnboardingComplete: body.User.OnboardingComplete,
	}, nil
}
