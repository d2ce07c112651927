package user

import (
	"slices"

	"github.com/sudo-init-do/lanceo/internal/remote"
)

// Patch is a partial Identity update. Nil fields are left unchanged; a non-nil
// empty Skills slice clears the list.
type Patch struct {
	Name       *string  `json:"name,omitempty"`
	Tagline    *string  `json:"tagline,omitempty"`
	Location   *string  `json:"location,omitempty"`
	HourlyRate *float64 `json:"hourly_rate,omitempty"`
	Bio        *string  `json:"bio,omitempty"`
	Skills     []string `json:"skills,omitempty"`
	Avatar     *string  `json:"avatar_url,omitempty"`
	Website    *string  `json:"website,omitempty"`
	GitHub     *string  `json:"github,omitempty"`
	LinkedIn   *string  `json:"linkedin,omitempty"`
	Twitter    *string  `json:"twitter,omitempty"`
}

// Empty reports whether the patch sets nothing.
func (p Patch) Empty() bool {
	return len(p.Columns()) == 0
}

// Apply writes the set fields onto id.
func (p Patch) Apply(id *Identity) {
	setString(&id.Name, p.Name)
	setString(&id.Tagline, p.Tagline)
	setString(&id.Location, p.Location)
	setString(&id.Bio, p.Bio)
	setString(&id.Avatar, p.Avatar)
	setString(&id.Social.Website, p.Website)
	setString(&id.Social.GitHub, p.GitHub)
	setString(&id.Social.LinkedIn, p.LinkedIn)
	setString(&id.Social.Twitter, p.Twitter)
	if p.HourlyRate != nil {
		id.HourlyRate = *p.HourlyRate
	}
	if p.Skills != nil {
		id.Skills = slices.Clone(p.Skills)
	}
}

// Columns maps the set fields to profiles column names.
func (p Patch) Columns() remote.Row {
	cols := remote.Row{}
	putString(cols, "name", p.Name)
	putString(cols, "tagline", p.Tagline)
	putString(cols, "location", p.Location)
	putString(cols, "bio", p.Bio)
	putString(cols, "avatar_url", p.Avatar)
	putString(cols, "website", p.Website)
	putString(cols, "github", p.GitHub)
	putString(cols, "linkedin", p.LinkedIn)
	putString(cols, "twitter", p.Twitter)
	if p.HourlyRate != nil {
		cols["hourly_rate"] = *p.HourlyRate
	}
	if p.Skills != nil {
		cols["skills"] = slices.Clone(p.Skills)
	}
	return cols
}

// Inverse returns a patch that restores, from prev, exactly the fields p sets.
func (p Patch) Inverse(prev Identity) Patch {
	var inv Patch
	if p.Name != nil {
		inv.Name = ptr(prev.Name)
	}
	if p.Tagline != nil {
		inv.Tagline = ptr(prev.Tagline)
	}
	if p.Location != nil {
		inv.Location = ptr(prev.Location)
	}
	if p.Bio != nil {
		inv.Bio = ptr(prev.Bio)
	}
	if p.Avatar != nil {
		inv.Avatar = ptr(prev.Avatar)
	}
	if p.Website != nil {
		inv.Website = ptr(prev.Social.Website)
	}
	if p.GitHub != nil {
		inv.GitHub = ptr(prev.Social.GitHub)
	}
	if p.LinkedIn != nil {
		inv.LinkedIn = ptr(prev.Social.LinkedIn)
	}
	if p.Twitter != nil {
		inv.Twitter = ptr(prev.Social.Twitter)
	}
	if p.HourlyRate != nil {
		inv.HourlyRate = ptr(prev.HourlyRate)
	}
	if p.Skills != nil {
		inv.Skills = slices.Clone(prev.Skills)
		if inv.Skills == nil {
			inv.Skills = []string{}
		}
	}
	return inv
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func putString(cols remote.Row, col string, v *string) {
	if v != nil {
		cols[col] = *v
	}
}

func ptr[T any](v T) *T { return &v }
