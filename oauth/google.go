// Package oauth verifies Google Sign-In credentials (ID tokens) by asking
// Google's tokeninfo endpoint, then checking audience, issuer and expiry
// locally.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultTokenInfoURL is Google's ID token introspection endpoint.
const DefaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

var (
	ErrInvalidToken     = errors.New("google id token rejected")
	ErrAudienceMismatch = errors.New("google id token issued for another client")
	ErrTokenExpired     = errors.New("google id token expired")
	ErrUnavailable      = errors.New("google tokeninfo unavailable")
)

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// Identity is the verified subject of a Google credential.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// GoogleVerifier checks ID tokens against one OAuth client ID.
type GoogleVerifier struct {
	clientID string
	endpoint string
	client   *http.Client
	now      func() time.Time
}

// Option customizes a GoogleVerifier.
type Option func(*GoogleVerifier)

// WithEndpoint points the verifier at another tokeninfo URL (tests).
func WithEndpoint(u string) Option {
	return func(v *GoogleVerifier) { v.endpoint = u }
}

// WithHTTPClient replaces the default client, which has a 5s timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(v *GoogleVerifier) { v.client = c }
}

func withClock(now func() time.Time) Option {
	return func(v *GoogleVerifier) { v.now = now }
}

func NewGoogleVerifier(clientID string, opts ...Option) (*GoogleVerifier, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, errors.New("google client id is required")
	}
	v := &GoogleVerifier{
		clientID: clientID,
		endpoint: DefaultTokenInfoURL,
		client:   &http.Client{Timeout: 5 * time.Second},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// tokenInfo mirrors the tokeninfo response. Google encodes booleans and
// timestamps as strings.
type tokenInfo struct {
	Iss           string `json:"iss"`
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Exp           string `json:"exp"`
}

// Verify resolves credential to an Identity. Callers decide what to do with
// an unverified email; Verify only reports it.
func (v *GoogleVerifier) Verify(ctx context.Context, credential string) (*Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, ErrInvalidToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint+"?id_token="+url.QueryEscape(credential), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, ErrInvalidToken
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var info tokenInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}

	return v.check(info)
}

func (v *GoogleVerifier) check(info tokenInfo) (*Identity, error) {
	if info.Aud != v.clientID {
		return nil, ErrAudienceMismatch
	}
	if !googleIssuers[info.Iss] {
		return nil, fmt.Errorf("%w: issuer %q", ErrInvalidToken, info.Iss)
	}
	if info.Sub == "" || info.Email == "" {
		return nil, fmt.Errorf("%w: missing subject or email", ErrInvalidToken)
	}
	exp, err := strconv.ParseInt(info.Exp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad exp", ErrInvalidToken)
	}
	if !v.now().Before(time.Unix(exp, 0)) {
		return nil, ErrTokenExpired
	}

	verified, _ := strconv.ParseBool(info.EmailVerified)
	return &Identity{
		Subject:       info.Sub,
		Email:         info.Email,
		EmailVerified: verified,
		Name:          info.Name,
		Picture:       info.Picture,
	}, nil
}
