package routes

// RoleAdmin is the role required by the admin area.
const RoleAdmin = "ADMIN"

// DefaultRules is the platform's route classification. Both the edge gate
// and the client controller are built from the same *Table, so the two
// layers cannot disagree on which prefixes are protected.
func DefaultRules() []Rule {
	return []Rule{
		{Prefix: "/", Category: Public},
		{Prefix: "/about", Category: Public},
		{Prefix: "/api/auth", Category: Public},

		{Prefix: "/login", Category: AuthOnly},
		{Prefix: "/signup", Category: AuthOnly},
		{Prefix: "/forgot-password", Category: AuthOnly},
		{Prefix: "/reset-password", Category: AuthOnly},

		{Prefix: "/profile", Category: Protected},
		{Prefix: "/challenges", Category: Protected},
		{Prefix: "/challenge", Category: Protected},
		{Prefix: "/contests", Category: Protected},
		{Prefix: "/settings", Category: Protected},
		{Prefix: "/onboarding", Category: Protected},
		{Prefix: "/certifications", Category: Protected},
		{Prefix: "/battles", Category: Protected},
		{Prefix: "/admin", Category: Protected, Role: RoleAdmin},
	}
}

// Default returns a Table built from [DefaultRules].
func Default() *Table {
	return MustNewTable(DefaultRules())
}
