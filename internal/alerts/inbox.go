package alerts

// DefaultLimit bounds an inbox created by the cache. Oldest alerts are
// evicted first.
const DefaultLimit = 200

// Inbox keeps alerts newest first. It is not safe for concurrent use; the
// owner serialises access.
type Inbox struct {
	items []Alert
	limit int
}

// NewInbox returns an empty inbox. A limit of zero or less keeps every alert.
func NewInbox(limit int) *Inbox {
	return &Inbox{limit: limit}
}

// Push prepends a and evicts the oldest entries beyond the limit.
func (in *Inbox) Push(a Alert) {
	in.items = append([]Alert{a}, in.items...)
	if in.limit > 0 && len(in.items) > in.limit {
		in.items = in.items[:in.limit]
	}
}

// MarkRead flags the alert with id as read and reports whether it exists.
func (in *Inbox) MarkRead(id string) bool {
	for i := range in.items {
		if in.items[i].ID == id {
			in.items[i].Read = true
			return true
		}
	}
	return false
}

// MarkAllRead flags every alert as read and returns how many changed.
func (in *Inbox) MarkAllRead() int {
	n := 0
	for i := range in.items {
		if !in.items[i].Read {
			in.items[i].Read = true
			n++
		}
	}
	return n
}

func (in *Inbox) Unread() int {
	n := 0
	for _, a := range in.items {
		if !a.Read {
			n++
		}
	}
	return n
}

func (in *Inbox) Len() int { return len(in.items) }

// List returns a copy of the alerts, newest first.
func (in *Inbox) List() []Alert {
	return append([]Alert(nil), in.items...)
}

// Reset drops every alert.
func (in *Inbox) Reset() {
	in.items = nil
}
