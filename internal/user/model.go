package user

import (
	"net/url"
	"slices"
)

// Role is the marketplace side an Identity acts on.
type Role string

const (
	RoleClient   Role = "client"
	RoleProvider Role = "provider"
)

// Values of the remote "type" attribute.
const (
	TypeClient    = "client"
	TypeFreelance = "freelance"
)

// RoleFromType maps the remote "type" attribute; anything but "client" is a provider.
func RoleFromType(t string) Role {
	if t == TypeClient {
		return RoleClient
	}
	return RoleProvider
}

// RemoteType is the inverse of RoleFromType.
func (r Role) RemoteType() string {
	if r == RoleClient {
		return TypeClient
	}
	return TypeFreelance
}

// SocialLinks are the optional public profile links.
type SocialLinks struct {
	Website  string `json:"website,omitempty"`
	GitHub   string `json:"github,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	Twitter  string `json:"twitter,omitempty"`
}

// Identity is the current user's client-side profile.
type Identity struct {
	ID                string      `json:"id"`
	Email             string      `json:"email"`
	Name              string      `json:"name"`
	Avatar            string      `json:"avatar_url"`
	Role              Role        `json:"role"`
	ProfileCompletion int         `json:"profile_completion"`
	Skills            []string    `json:"skills"`
	HourlyRate        float64     `json:"hourly_rate"`
	Location          string      `json:"location,omitempty"`
	Tagline           string      `json:"tagline,omitempty"`
	Bio               string      `json:"bio,omitempty"`
	Social            SocialLinks `json:"social"`
	Rank              string      `json:"rank"`
	Rating            float64     `json:"rating"`
	ProjectsCount     int         `json:"projects_count"`
	Recommendations   int         `json:"recommendations"`
	Achievements      int         `json:"achievements"`
	Verifications     []string    `json:"verifications"`
}

// Clone returns a deep copy.
func (i Identity) Clone() Identity {
	i.Skills = slices.Clone(i.Skills)
	i.Verifications = slices.Clone(i.Verifications)
	return i
}

// DefaultRank labels identities that have no remote rank yet.
const DefaultRank = "Newcomer"

// PlaceholderAvatar builds a generated avatar URL for name.
func PlaceholderAvatar(name string) string {
	return "https://ui-avatars.com/api/?background=6366f1&color=fff&name=" + url.QueryEscape(name)
}
