// Package history keeps a bounded rolling chat transcript per user.
package history

import (
	"strings"
	"time"

	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/session"
)

// DefaultLimit is the number of entries kept per user.
const DefaultLimit = 20

// Role of a transcript entry
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Entry is one turn of the conversation.
type Entry struct {
	Role Role
	Text string
}

// Tracker stores transcripts in memory only.
type Tracker struct {
	limit   int
	entries *session.Store[[]Entry]
}

// NewTracker creates a tracker keeping at most limit entries per user.
// A non-positive limit means DefaultLimit.
func NewTracker(limit int) *Tracker {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Tracker{
		limit:   limit,
		entries: session.NewStore[[]Entry](),
	}
}

// Append adds an entry and drops the oldest ones beyond the limit.
func (t *Tracker) Append(userID int64, role Role, text string) {
	t.entries.With(userID, func(cur []Entry, _ bool) ([]Entry, bool) {
		cur = append(cur, Entry{Role: role, Text: text})
		if n := len(cur); n > t.limit {
			trimmed := make([]Entry, t.limit)
			copy(trimmed, cur[n-t.limit:])
			cur = trimmed
		}
		return cur, true
	})
}

// Get returns a copy of the transcript, oldest first.
func (t *Tracker) Get(userID int64) []Entry {
	cur, ok := t.entries.Get(userID)
	if !ok {
		return []Entry{}
	}
	out := make([]Entry, len(cur))
	copy(out, cur)
	return out
}

// Clear removes the user's transcript.
func (t *Tracker) Clear(userID int64) {
	t.entries.Delete(userID)
}

// Sweep drops transcripts idle for longer than idle.
func (t *Tracker) Sweep(idle time.Duration) int {
	return t.entries.Sweep(idle)
}

// Render formats entries as "role: text" lines.
func Render(entries []Entry) string {
	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(string(e.Role))
		sb.WriteString(": ")
		sb.WriteString(e.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}
