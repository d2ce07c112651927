package user

import (
	"strings"

	"github.com/sudo-init-do/lanceo/internal/remote"
)

// FromAuthUser maps a remote account onto an Identity, filling everything the
// account metadata does not carry with fixed defaults.
func FromAuthUser(u remote.AuthUser) Identity {
	meta := remote.Row(u.Metadata)

	name := meta.String("name")
	if name == "" {
		name, _, _ = strings.Cut(u.Email, "@")
	}

	avatar := meta.String("avatar")
	if avatar == "" {
		label := meta.String("name")
		if label == "" {
			label = "User"
		}
		avatar = PlaceholderAvatar(label)
	}

	return Identity{
		ID:            u.ID,
		Email:         u.Email,
		Name:          name,
		Avatar:        avatar,
		Role:          RoleFromType(meta.String("type")),
		Skills:        []string{},
		Rank:          DefaultRank,
		Verifications: []string{"email"},
	}
}

// OverlayProfile copies every non-null column of a profiles row onto id.
func OverlayProfile(id *Identity, row remote.Row) {
	if s := row.String("name"); s != "" {
		id.Name = s
	}
	if s := row.String("avatar_url"); s != "" {
		id.Avatar = s
	}
	if row.Has("type") {
		id.Role = RoleFromType(row.String("type"))
	}
	if row.Has("tagline") {
		id.Tagline = row.String("tagline")
	}
	if row.Has("bio") {
		id.Bio = row.String("bio")
	}
	if row.Has("location") {
		id.Location = row.String("location")
	}
	if f, ok := row.Float("hourly_rate"); ok {
		id.HourlyRate = f
	}
	if skills, ok := row.Strings("skills"); ok {
		id.Skills = skills
	}
	if f, ok := row.Float("rating"); ok {
		id.Rating = f
	}
	if n, ok := row.Int("projects_count"); ok {
		id.ProjectsCount = n
	}
	if n, ok := row.Int("profile_completion"); ok {
		id.ProfileCompletion = n
	}
	if row.Has("rank") {
		id.Rank = row.String("rank")
	}
	if v, ok := row.Bool("verified"); ok && v && !containsString(id.Verifications, "identity") {
		id.Verifications = append(id.Verifications, "identity")
	}
	if row.Has("website") {
		id.Social.Website = row.String("website")
	}
	if row.Has("github") {
		id.Social.GitHub = row.String("github")
	}
	if row.Has("linkedin") {
		id.Social.LinkedIn = row.String("linkedin")
	}
	if row.Has("twitter") {
		id.Social.Twitter = row.String("twitter")
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
