package user

// Demo credentials accepted by the sign-in form as a shortcut into demo mode.
const (
	DemoEmail    = "demo@developpeurs.com"
	DemoPassword = "demo123"
)

// DemoID identifies the synthetic demo identity. It never exists remotely.
const DemoID = "demo-user-id"

// Demo returns the fixed guided-tour identity.
func Demo() Identity {
	return Identity{
		ID:                DemoID,
		Email:             DemoEmail,
		Name:              "Achbel Neri Sodjinou",
		Avatar:            "https://images.unsplash.com/photo-1472099645785-5658abf4ff4e?ixlib=rb-1.2.1&auto=format&fit=facearea&facepad=2&w=256&h=256&q=80",
		Role:              RoleProvider,
		ProfileCompletion: 85,
		Skills:            []string{"React", "TypeScript", "Node.js", "Tailwind"},
		Location:          "Paris, France",
		Bio:               "Full-stack developer focused on modern web architectures.",
		Rank:              "Expert",
		Rating:            4.9,
		ProjectsCount:     12,
		Recommendations:   5,
		Achievements:      4,
		Verifications:     []string{"email", "phone", "identity"},
	}
}
