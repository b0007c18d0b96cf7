package arena

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/arena/oauth"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type mockUserStore struct {
	mu      sync.Mutex
	users   map[string]*User
	nextID  int
	getErr  error
	saveErr error

	onboardingCalls int
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[string]*User)}
}

func (m *mockUserStore) find(match func(*User) bool) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockUserStore) GetByID(_ context.Context, id string) (*User, error) {
	return m.find(func(u *User) bool { return u.ID == id })
}

func (m *mockUserStore) GetByEmail(_ context.Context, email string) (*User, error) {
	return m.find(func(u *User) bool { return u.Email == email })
}

func (m *mockUserStore) GetByGoogleID(_ context.Context, googleID string) (*User, error) {
	return m.find(func(u *User) bool { return u.GoogleID != "" && u.GoogleID == googleID })
}

func (m *mockUserStore) Create(_ context.Context, in NewUser) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return nil, m.saveErr
	}
	for _, u := range m.users {
		if u.Email == in.Email {
			return nil, ErrDuplicateAccount
		}
	}
	m.nextID++
	now := time.Now().UTC()
	u := &User{
		ID:            fmt.Sprintf("u%d", m.nextID),
		Email:         in.Email,
		Name:          in.Name,
		Username:      in.Username,
		Role:          in.Role,
		EmailVerified: in.EmailVerified,
		PasswordHash:  in.PasswordHash,
		GoogleID:      in.GoogleID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *mockUserStore) LinkGoogle(_ context.Context, userID, googleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.GoogleID = googleID
	u.EmailVerified = true
	return nil
}

func (m *mockUserStore) UpdatePasswordHash(_ context.Context, userID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *mockUserStore) CompleteOnboarding(_ context.Context, userID string, data OnboardingData) (*User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onboardingCalls++
	u, ok := m.users[userID]
	if !ok {
		return nil, false, ErrUserNotFound
	}
	changed := false
	if !u.OnboardingComplete {
		profile := data
		u.Profile = &profile
		u.OnboardingComplete = true
		changed = true
	}
	cp := *u
	return &cp, changed, nil
}

func (m *mockUserStore) SetRole(_ context.Context, userID string, role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !role.Valid() {
		return ErrValidation
	}
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.Role = role
	return nil
}

type fakeVerifier struct {
	ident *oauth.Identity
	err   error
}

func (f *fakeVerifier) Verify(_ context.Context, credential string) (*oauth.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	if credential != "good-credential" {
		return nil, errors.New("bad credential")
	}
	return f.ident, nil
}

type sentMail struct {
	to, name, link string
}

type fakeMailer struct {
	mu    sync.Mutex
	sent  []sentMail
	err   error
	block chan struct{}
}

func (f *fakeMailer) SendPasswordReset(_ context.Context, to, name, link string) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, name: name, link: link})
	return nil
}

func (f *fakeMailer) last(t *testing.T) sentMail {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("no mail sent")
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// lastMail waits for background sends before reading the mailer.
func (env *testEnv) lastMail(t *testing.T) sentMail {
	t.Helper()
	env.engine.flushMail()
	return env.mailer.last(t)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = []byte(testSecret)
	cfg.JWT.AccessTTL = time.Hour
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Audit.Enabled = false
	cfg.PasswordReset.MinResponseTime = 0
	return cfg
}

type testEnv struct {
	engine *Engine
	users  *mockUserStore
	mailer *fakeMailer
	mr     *miniredis.Miniredis
	rdb    *redis.Client
}

func newTestEnv(t *testing.T, mutate func(*Config, *Builder)) *testEnv {
	t.Helper()

	mr, rdb := newTestRedis(t)
	users := newMockUserStore()
	mailer := &fakeMailer{}

	cfg := testConfig()
	b := New().
		WithRedis(rdb).
		WithUserStore(users).
		WithMailer(mailer)
	if mutate != nil {
		mutate(&cfg, b)
	}
	b.WithConfig(cfg)

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, users: users, mailer: mailer, mr: mr, rdb: rdb}
}

func (env *testEnv) signup(t *testing.T, email string) *AuthResult {
	t.Helper()
	res, err := env.engine.Signup(context.Background(), SignupRequest{
		Email:    email,
		Password: "correct-horse-battery",
		Name:     "Test User",
	})
	if err != nil {
		t.Fatalf("Signup(%s) failed: %v", email, err)
	}
	return res
}

// admin signs up email, promotes it and returns the principal of a fresh
// login.
func (env *testEnv) admin(t *testing.T, email string) *Principal {
	t.Helper()
	ctx := context.Background()
	res := env.signup(t, email)
	if err := env.users.SetRole(ctx, res.User.ID, RoleAdmin); err != nil {
		t.Fatalf("SetRole failed: %v", err)
	}
	login, err := env.engine.Login(ctx, LoginRequest{Email: email, Password: "correct-horse-battery"})
	if err != nil {
		t.Fatalf("Login(%s) failed: %v", email, err)
	}
	p, err := env.engine.Validate(ctx, login.Token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	return p
}

func TestBuildRequiresDependencies(t *testing.T) {
	_, rdb := newTestRedis(t)

	if _, err := New().WithConfig(testConfig()).WithUserStore(newMockUserStore()).Build(); err == nil {
		t.Fatal("expected error without redis")
	}
	if _, err := New().WithConfig(testConfig()).WithRedis(rdb).Build(); err == nil {
		t.Fatal("expected error without user store")
	}

	cfg := testConfig()
	cfg.JWT.PrivateKey = nil
	if _, err := New().WithConfig(cfg).WithRedis(rdb).WithUserStore(newMockUserStore()).Build(); err == nil {
		t.Fatal("expected error without signing key")
	}

	b := New().WithConfig(testConfig()).WithRedis(rdb).WithUserStore(newMockUserStore())
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestSignupThenMe(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	res := env.signup(t, "  Alice@Example.com ")
	if res.Token == "" {
		t.Fatal("expected token")
	}
	if res.User.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", res.User.Email)
	}
	if res.User.Role != RoleUser {
		t.Fatalf("expected USER role, got %q", res.User.Role)
	}
	if res.User.OnboardingComplete {
		t.Fatal("new account must start with onboarding incomplete")
	}
	if !res.ExpiresAt.After(time.Now()) {
		t.Fatal("expected future expiry")
	}

	me, err := env.engine.Me(ctx, res.Token)
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if me.ID != res.User.ID {
		t.Fatalf("Me returned %q, want %q", me.ID, res.User.ID)
	}
}

func TestSignupValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	cases := []struct {
		name  string
		req   SignupRequest
		field string
	}{
		{"bad email", SignupRequest{Email: "not-an-email", Password: "long-enough-pw", Name: "A"}, "email"},
		{"display name email", SignupRequest{Email: "Bob <bob@example.com>", Password: "long-enough-pw", Name: "A"}, "email"},
		{"no tld", SignupRequest{Email: "bob@localhost", Password: "long-enough-pw", Name: "A"}, "email"},
		{"short password", SignupRequest{Email: "bob@example.com", Password: "short", Name: "A"}, "password"},
		{"missing name", SignupRequest{Email: "bob@example.com", Password: "long-enough-pw", Name: "  "}, "name"},
		{"long name", SignupRequest{Email: "bob@example.com", Password: "long-enough-pw", Name: strings.Repeat("n", 101)}, "name"},
		{"bad username", SignupRequest{Email: "bob@example.com", Password: "long-enough-pw", Name: "A", Username: "no spaces"}, "username"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.engine.Signup(ctx, tc.req)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tc.field {
				t.Fatalf("expected field %q, got %v", tc.field, err)
			}
		})
	}
}

func TestSignupDuplicate(t *testing.T) {
	env := newTestEnv(t, nil)
	env.signup(t, "dup@example.com")

	_, err := env.engine.Signup(context.Background(), SignupRequest{
		Email:    "DUP@example.com",
		Password: "another-password",
		Name:     "Other",
	})
	if !errors.Is(err, ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}
}

func TestLoginRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := WithClientIP(context.Background(), "203.0.113.7")
	env.signup(t, "carol@example.com")

	res, err := env.engine.Login(ctx, LoginRequest{Email: "carol@example.com", Password: "correct-horse-battery"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	p, err := env.engine.Validate(ctx, res.Token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if p.UserID != res.User.ID || p.Role != RoleUser || p.SessionID == "" {
		t.Fatalf("unexpected principal %+v", p)
	}

	me, err := env.engine.Me(ctx, res.Token)
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if me.Email != "carol@example.com" {
		t.Fatalf("unexpected user %+v", me)
	}
}

func TestLoginUpgradesLegacyHash(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	legacy, err := bcrypt.GenerateFromPassword([]byte("imported-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	u, err := env.users.Create(ctx, NewUser{
		Email:        "legacy@example.com",
		Name:         "Legacy",
		PasswordHash: string(legacy),
		Role:         RoleUser,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := env.engine.Login(ctx, LoginRequest{Email: "legacy@example.com", Password: "imported-password"}); err != nil {
		t.Fatalf("Login with bcrypt hash failed: %v", err)
	}

	stored, _ := env.users.GetByID(ctx, u.ID)
	if !strings.HasPrefix(stored.PasswordHash, "$argon2id$") {
		t.Fatalf("hash not upgraded: %q", stored.PasswordHash)
	}
	if _, err := env.engine.Login(ctx, LoginRequest{Email: "legacy@example.com", Password: "imported-password"}); err != nil {
		t.Fatalf("Login after upgrade failed: %v", err)
	}
}

func TestLoginInvalidCredentialsAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.signup(t, "dave@example.com")

	_, errWrong := env.engine.Login(ctx, LoginRequest{Email: "dave@example.com", Password: "wrong-password!"})
	_, errUnknown := env.engine.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "wrong-password!"})

	if !errors.Is(errWrong, ErrInvalidCredentials) || !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v / %v", errWrong, errUnknown)
	}
	if errWrong.Error() != errUnknown.Error() {
		t.Fatalf("errors differ: %q vs %q", errWrong, errUnknown)
	}
}

func TestLoginRejectsGoogleOnlyAccount(t *testing.T) {
	env := newTestEnv(t, func(_ *Config, b *Builder) {
		b.WithIdentityVerifier(&fakeVerifier{ident: &oauth.Identity{
			Subject: "g-1", Email: "gina@example.com", EmailVerified: true, Name: "Gina",
		}})
	})
	ctx := context.Background()
	if _, err := env.engine.GoogleAuth(ctx, "good-credential"); err != nil {
		t.Fatalf("GoogleAuth failed: %v", err)
	}

	_, err := env.engine.Login(ctx, LoginRequest{Email: "gina@example.com", Password: "anything-at-all"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginRateLimited(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config, _ *Builder) {
		cfg.Security.MaxLoginAttempts = 3
	})
	ctx := WithClientIP(context.Background(), "198.51.100.1")
	env.signup(t, "erin@example.com")

	for i := 0; i < 3; i++ {
		_, err := env.engine.Login(ctx, LoginRequest{Email: "erin@example.com", Password: "wrong-password!"})
		if err == nil {
			t.Fatal("expected failure")
		}
	}

	_, err := env.engine.Login(ctx, LoginRequest{Email: "erin@example.com", Password: "correct-horse-battery"})
	if !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}

	env.mr.FastForward(16 * time.Minute)
	if _, err := env.engine.Login(ctx, LoginRequest{Email: "erin@example.com", Password: "correct-horse-battery"}); err != nil {
		t.Fatalf("expected login after cooldown, got %v", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	res := env.signup(t, "frank@example.com")

	if err := env.engine.Logout(ctx, res.Token); err != nil {
		t.Fatalf("first Logout failed: %v", err)
	}
	if err := env.engine.Logout(ctx, res.Token); err != nil {
		t.Fatalf("second Logout failed: %v", err)
	}
	if err := env.engine.Logout(ctx, ""); err != nil {
		t.Fatalf("empty Logout failed: %v", err)
	}
	if err := env.engine.Logout(ctx, "garbage.token.value"); err != nil {
		t.Fatalf("garbage Logout failed: %v", err)
	}

	if _, err := env.engine.Me(ctx, res.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated after logout, got %v", err)
	}
}

func TestLogoutKeepsOtherSessions(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	first := env.signup(t, "gail@example.com")
	second, err := env.engine.Login(ctx, LoginRequest{Email: "gail@example.com", Password: "correct-horse-battery"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := env.engine.Logout(ctx, first.Token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := env.engine.Validate(ctx, second.Token); err != nil {
		t.Fatalf("second session should survive, got %v", err)
	}
}

func TestValidateRejectsBadTokens(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	if _, err := env.engine.Validate(ctx, ""); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for empty token, got %v", err)
	}
	if _, err := env.engine.Validate(ctx, "a.b.c"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for garbage, got %v", err)
	}

	res := env.signup(t, "hank@example.com")
	env.mr.FlushAll()
	if _, err := env.engine.Validate(ctx, res.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated without session record, got %v", err)
	}
}

func TestValidateReportsRedisOutage(t *testing.T) {
	env := newTestEnv(t, nil)
	res := env.signup(t, "ivy@example.com")

	env.mr.SetError("READONLY down")
	defer env.mr.SetError("")

	_, err := env.engine.Validate(context.Background(), res.Token)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestIssueSessionFor(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	alice := env.signup(t, "alice2@example.com")
	bob := env.signup(t, "bob2@example.com")

	pa, err := env.engine.Validate(ctx, alice.Token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	token, err := env.engine.IssueSessionFor(ctx, pa, alice.User.ID)
	if err != nil || token == "" {
		t.Fatalf("self IssueSessionFor failed: %v", err)
	}

	if _, err := env.engine.IssueSessionFor(ctx, pa, bob.User.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	admin := env.admin(t, "admin2@example.com")
	token, err = env.engine.IssueSessionFor(ctx, admin, bob.User.ID)
	if err != nil {
		t.Fatalf("admin IssueSessionFor failed: %v", err)
	}
	p, err := env.engine.Validate(ctx, token)
	if err != nil || p.UserID != bob.User.ID {
		t.Fatalf("issued token does not validate as bob: %v %+v", err, p)
	}

	if _, err := env.engine.IssueSessionFor(ctx, admin, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := env.engine.IssueSessionFor(ctx, nil, bob.User.ID); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAdminRoleCarriedOnSession(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	res := env.signup(t, "root@example.com")
	if err := env.users.SetRole(ctx, res.User.ID, RoleAdmin); err != nil {
		t.Fatalf("SetRole failed: %v", err)
	}

	login, err := env.engine.Login(ctx, LoginRequest{Email: "root@example.com", Password: "correct-horse-battery"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	p, err := env.engine.Validate(ctx, login.Token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if p.Role != RoleAdmin {
		t.Fatalf("expected ADMIN, got %q", p.Role)
	}
}

func TestDemotedAdminLosesAdminPower(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	victim := env.signup(t, "victim@example.com")

	// Role changed in the store only: the session still says ADMIN.
	stale := env.admin(t, "stale@example.com")
	if err := env.users.SetRole(ctx, stale.UserID, RoleUser); err != nil {
		t.Fatalf("SetRole failed: %v", err)
	}
	if _, err := env.engine.IssueSessionFor(ctx, stale, victim.User.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for demoted admin, got %v", err)
	}
	if err := env.engine.RevokeAllSessions(ctx, stale, victim.User.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for demoted admin revoke, got %v", err)
	}
	if _, err := env.engine.IssueSessionFor(ctx, stale, stale.UserID); err != nil {
		t.Fatalf("self IssueSessionFor must still work: %v", err)
	}

	// Engine.SetRole also revokes every session of the account.
	admin := env.admin(t, "boss@example.com")
	if err := env.engine.SetRole(ctx, admin.UserID, RoleUser); err != nil {
		t.Fatalf("SetRole failed: %v", err)
	}
	sessions, err := env.engine.sessions.ActiveSessionIDs(ctx, admin.UserID)
	if err != nil {
		t.Fatalf("ActiveSessionIDs: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected sessions revoked, %d left", len(sessions))
	}
	if _, err := env.engine.IssueSessionFor(ctx, admin, victim.User.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden after SetRole, got %v", err)
	}

	if err := env.engine.SetRole(ctx, admin.UserID, "ROOT"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if err := env.engine.SetRole(ctx, "missing", RoleAdmin); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuditEventsEmitted(t *testing.T) {
	sink := NewChannelSink(16)
	env := newTestEnv(t, func(cfg *Config, b *Builder) {
		cfg.Audit.Enabled = true
		b.WithAuditSink(sink)
	})
	res := env.signup(t, "jack@example.com")
	if err := env.engine.Logout(context.Background(), res.Token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	want := []string{auditEventSignupSuccess, auditEventLogout}
	for _, w := range want {
		select {
		case ev := <-sink.Events():
			if ev.EventType != w {
				t.Fatalf("expected %s, got %s", w, ev.EventType)
			}
			if ev.UserID != res.User.ID {
				t.Fatalf("unexpected user %q", ev.UserID)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", w)
		}
	}
}

func TestNilEngine(t *testing.T) {
	var e *Engine
	ctx := context.Background()

	if _, err := e.Login(ctx, LoginRequest{}); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := e.Validate(ctx, "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if err := e.Logout(ctx, "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	e.Close()
}
