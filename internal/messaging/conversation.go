package messaging

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/sudo-init-do/lanceo/internal/marketplace"
	"github.com/sudo-init-do/lanceo/internal/user"
)

type Sender string

const (
	SenderSelf  Sender = "self"
	SenderOther Sender = "other"
)

// Message is one entry of a thread. Timestamp is the display label.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp string    `json:"timestamp"`
	SentAt    time.Time `json:"sent_at"`
}

// Conversation is a client-side thread between the current identity and a
// counterparty. Messages are kept in send order.
type Conversation struct {
	ID            string    `json:"id"`
	Correspondent string    `json:"correspondent"`
	Messages      []Message `json:"messages"`
	Unread        bool      `json:"unread"`
	Avatar        string    `json:"avatar"`
	LastActivity  string    `json:"last_message_date"`
	ListingID     string    `json:"listing_id,omitempty"`
}

// ClockLabel is the display label used for message timestamps.
func ClockLabel(t time.Time) string {
	return t.Format("15:04")
}

// NewFromProposal opens a thread with the owner of l, seeded with the
// proposal text as its first message.
func NewFromProposal(l marketplace.Listing, text string, now time.Time) Conversation {
	correspondent := l.ClientLabel
	if correspondent == "" {
		correspondent = marketplace.DefaultClientLabel
	}
	c := Conversation{
		ID:            uuid.NewString(),
		Correspondent: correspondent,
		Avatar:        user.PlaceholderAvatar(correspondent),
		ListingID:     l.ID,
	}
	c.Append(text, SenderSelf, now)
	return c
}

// Append adds a message at the end of the thread and moves the last-activity
// label forward. Messages from the counterparty mark the thread unread.
func (c *Conversation) Append(text string, from Sender, now time.Time) Message {
	m := Message{
		ID:        ulid.Make().String(),
		Text:      strings.TrimSpace(text),
		Sender:    from,
		Timestamp: ClockLabel(now),
		SentAt:    now,
	}
	c.Messages = append(c.Messages, m)
	c.LastActivity = m.Timestamp
	if from == SenderOther {
		c.Unread = true
	}
	return m
}

// Last returns the most recent message, if any.
func (c Conversation) Last() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

func (c Conversation) Clone() Conversation {
	out := c
	out.Messages = append([]Message(nil), c.Messages...)
	return out
}
