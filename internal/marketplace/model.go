package marketplace

import (
	"slices"
	"strings"
	"time"
)

// Status is a listing's lifecycle state.
type Status string

const (
	StatusOpen    Status = "open"
	StatusClosed  Status = "closed"
	StatusAwarded Status = "awarded"
)

// ParseStatus accepts the canonical values, the legacy French labels and the
// life cycle values of older schemas. Unknown values are treated as open.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "closed", "fermé", "ferme", "cancelled":
		return StatusClosed
	case "awarded", "attribué", "attribue", "in_progress", "completed":
		return StatusAwarded
	default:
		return StatusOpen
	}
}

// Budget is a numeric range. Min <= Max is expected, not enforced.
type Budget struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// SyncState tracks an optimistic listing against the remote store.
type SyncState string

const (
	// SyncCommitted rows came from, or were confirmed by, the remote store.
	SyncCommitted SyncState = "committed"
	// SyncPending rows are optimistic inserts awaiting the remote write.
	SyncPending SyncState = "pending"
	// SyncLocal rows exist only in this process (demo sessions).
	SyncLocal SyncState = "local"
)

// Listing is a posted work request ("project").
type Listing struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Status       Status    `json:"status"`
	Budget       Budget    `json:"budget"`
	CreatedAt    time.Time `json:"created_at"`
	DateLabel    string    `json:"date"`
	Offers       int       `json:"offers"`
	Views        int       `json:"views"`
	Interactions int       `json:"interactions"`
	OwnerID      string    `json:"owner_id,omitempty"`
	ClientLabel  string    `json:"client"`
	Skills       []string  `json:"skills"`
	Followed     bool      `json:"followed"`
	Sync         SyncState `json:"sync"`
}

// Clone returns a deep copy.
func (l Listing) Clone() Listing {
	l.Skills = slices.Clone(l.Skills)
	return l
}

// Draft is the caller-supplied part of a new listing.
type Draft struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Budget      Budget   `json:"budget"`
	Skills      []string `json:"skills"`
	ClientLabel string   `json:"client,omitempty"`
}

// ProviderProfile is a freelancer's public directory entry.
type ProviderProfile struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Available         bool     `json:"available"`
	Rating            float64  `json:"rating"`
	ReviewCount       int      `json:"review_count"`
	Avatar            string   `json:"avatar_url"`
	Tagline           string   `json:"tagline"`
	Skills            []string `json:"skills"`
	HourlyRate        float64  `json:"hourly_rate"`
	ProjectsCompleted int      `json:"projects_completed"`
	Location          string   `json:"location"`
	MemberSince       string   `json:"member_since"`
	ResponseTime      string   `json:"response_time"`
	Verifications     []string `json:"verifications"`
	Bio               string   `json:"bio,omitempty"`
}

// Clone returns a deep copy.
func (p ProviderProfile) Clone() ProviderProfile {
	p.Skills = slices.Clone(p.Skills)
	p.Verifications = slices.Clone(p.Verifications)
	return p
}
