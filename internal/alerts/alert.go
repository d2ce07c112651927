package alerts

import (
	"time"

	"github.com/oklog/ulid/v2"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
)

// Alert is a notification surfaced to the current identity.
type Alert struct {
	ID        string    `json:"id"`
	Severity  Severity  `json:"type"`
	Message   string    `json:"message"`
	Date      string    `json:"date"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// New builds an unread alert stamped at now.
func New(sev Severity, message string, now time.Time) Alert {
	return Alert{
		ID:        ulid.Make().String(),
		Severity:  sev,
		Message:   message,
		Date:      now.Format("02/01/2006 15:04"),
		CreatedAt: now,
	}
}

// Messages pushed by the marketplace flows.
const (
	MsgWelcome          = "Welcome to Lanceo! Complete your profile to stand out."
	MsgListingPublished = "Your project has been published."
	MsgListingFailed    = "Your project could not be published. Please try again."
	MsgProposalSent     = "Your proposal has been sent."
	MsgProposalFailed   = "Your proposal could not be delivered."
	MsgProfileFailed    = "Your profile changes could not be saved."
)
