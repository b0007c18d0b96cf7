package arena

import (
	"context"
	"time"

	"github.com/MrEthical07/arena/oauth"
)

// Role is the coarse authorization class of a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// OnboardingData is the profile a new user fills in on /onboarding.
type OnboardingData struct {
	ExperienceLevel    string   `json:"experienceLevel,omitempty"`
	PreferredLanguages []string `json:"preferredLanguages,omitempty"`
	Interests          []string `json:"interests,omitempty"`
	Goals              string   `json:"goals,omitempty"`
	Bio                string   `json:"bio,omitempty"`
}

// User is the authoritative account record. OnboardingComplete moves from
// false to true once and never back.
type User struct {
	ID                 string          `json:"id"`
	Email              string          `json:"email"`
	Name               string          `json:"name"`
	Username           string          `json:"username,omitempty"`
	Role               Role            `json:"role"`
	OnboardingComplete bool            `json:"onboardingComplete"`
	EmailVerified      bool            `json:"emailVerified"`
	Profile            *OnboardingData `json:"profile,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`

	PasswordHash string `json:"-"`
	GoogleID     string `json:"-"`
}

// NewUser carries the fields of an account to be created.
type NewUser struct {
	Email         string
	Name          string
	Username      string
	PasswordHash  string
	GoogleID      string
	Role          Role
	EmailVerified bool
}

// UserStore persists user accounts. Lookups of a missing account return
// ErrUserNotFound; Create returns ErrDuplicateAccount when the email or
// username is taken.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*User, error)
	Create(ctx context.Context, u NewUser) (*User, error)
	LinkGoogle(ctx context.Context, userID, googleID string) error
	UpdatePasswordHash(ctx context.Context, userID, hash string) error
	// SetRole returns ErrValidation for an unknown role.
	SetRole(ctx context.Context, userID string, role Role) error
	// CompleteOnboarding stores data and sets OnboardingComplete only if it
	// is still false. changed reports whether this call made the transition;
	// when it did not, the stored profile is left untouched.
	CompleteOnboarding(ctx context.Context, userID string, data OnboardingData) (user *User, changed bool, err error)
}

// IdentityVerifier checks a Google ID token credential.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (*oauth.Identity, error)
}

// Mailer delivers password reset links.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, name, link string) error
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
}

// AuthResult is returned by every operation that opens a session.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      *User

	sessionID string
}

// Principal is the identity behind a validated session.
type Principal struct {
	UserID    string
	SessionID string
	Role      Role
	ExpiresAt time.Time
}

// OnboardingResult is returned by CompleteOnboarding. AlreadyComplete is
// set when the user had finished onboarding before this call.
type OnboardingResult struct {
	User            *User
	AlreadyComplete bool
}
