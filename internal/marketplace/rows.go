package marketplace

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sudo-init-do/lanceo/internal/remote"
)

// Defaults applied to provider rows with missing columns.
const (
	DefaultProviderName     = "Anonymous"
	DefaultProviderRating   = 5.0
	DefaultProviderTagline  = "Certified freelancer"
	DefaultProviderLocation = "France"
	DefaultResponseTime     = "1h"
	DefaultClientLabel      = "Client"
)

// ListingFromRow maps a projects row. now anchors the relative date label.
func ListingFromRow(row remote.Row, now time.Time) Listing {
	l := Listing{
		ID:          row.String("id"),
		Title:       row.String("title"),
		Description: row.String("description"),
		Status:      ParseStatus(row.String("status")),
		OwnerID:     row.String("owner_id"),
		ClientLabel: row.String("client_id"),
		Sync:        SyncCommitted,
	}
	l.Budget.Min, _ = row.Float("budget_min")
	l.Budget.Max, _ = row.Float("budget_max")
	l.Offers, _ = row.Int("offers_count")
	l.Views, _ = row.Int("views_count")
	if skills, ok := row.Strings("skills"); ok {
		l.Skills = skills
	} else {
		l.Skills = []string{}
	}
	if l.ClientLabel == "" {
		l.ClientLabel = DefaultClientLabel
	}
	if t, ok := row.Time("created_at"); ok {
		l.CreatedAt = t
		l.DateLabel = RelativeLabel(t, now)
	}
	return l
}

// ProviderFromRow maps a profiles row of a freelance account.
func ProviderFromRow(row remote.Row) ProviderProfile {
	p := ProviderProfile{
		ID:           row.String("id"),
		Name:         row.String("name"),
		Available:    true,
		Avatar:       row.String("avatar_url"),
		Tagline:      row.String("tagline"),
		Location:     row.String("location"),
		ResponseTime: DefaultResponseTime,
		Bio:          row.String("bio"),
	}
	if p.Name == "" {
		p.Name = DefaultProviderName
	}
	if p.Avatar == "" {
		p.Avatar = "https://ui-avatars.com/api/?name=" + url.QueryEscape(p.Name)
	}
	if p.Tagline == "" {
		p.Tagline = DefaultProviderTagline
	}
	if p.Location == "" {
		p.Location = DefaultProviderLocation
	}
	if v, ok := row.Bool("available"); ok {
		p.Available = v
	}
	if f, ok := row.Float("rating"); ok && f > 0 {
		p.Rating = f
	} else {
		p.Rating = DefaultProviderRating
	}
	p.ReviewCount, _ = row.Int("reviews_count")
	p.HourlyRate, _ = row.Float("hourly_rate")
	p.ProjectsCompleted, _ = row.Int("projects_count")
	if skills, ok := row.Strings("skills"); ok {
		p.Skills = skills
	} else {
		p.Skills = []string{}
	}
	if t, ok := row.Time("created_at"); ok {
		p.MemberSince = strconv.Itoa(t.Year())
	}
	if v, _ := row.Bool("verified"); v {
		p.Verifications = []string{"email", "identity"}
	} else {
		p.Verifications = []string{"email"}
	}
	return p
}

// Row maps a draft to projects columns for an insert on behalf of ownerID.
func (d Draft) Row(ownerID, clientLabel string) remote.Row {
	skills := d.Skills
	if skills == nil {
		skills = []string{}
	}
	if d.ClientLabel != "" {
		clientLabel = d.ClientLabel
	}
	return remote.Row{
		"owner_id":    ownerID,
		"title":       d.Title,
		"description": d.Description,
		"status":      string(StatusOpen),
		"budget_min":  d.Budget.Min,
		"budget_max":  d.Budget.Max,
		"skills":      skills,
		"client_id":   clientLabel,
	}
}

// Normalize trims the free-text fields and drops blank skills.
func (d Draft) Normalize() Draft {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	skills := make([]string, 0, len(d.Skills))
	for _, s := range d.Skills {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	d.Skills = skills
	return d
}

// RelativeLabel renders t relative to now, e.g. "2 hours ago".
func RelativeLabel(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
