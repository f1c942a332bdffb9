package audit

import (
	"time"

	"github.com/ziadkadry99/opbot/internal/interactions"
)

// Entry is one recorded interaction outcome.
type Entry struct {
	ID            string               `json:"id"`
	Timestamp     time.Time            `json:"timestamp"`
	InteractionID string               `json:"interaction_id,omitempty"`
	UserID        string               `json:"user_id,omitempty"`
	Username      string               `json:"username,omitempty"`
	Command       string               `json:"command,omitempty"`
	Outcome       interactions.Outcome `json:"outcome"`
	Detail        string               `json:"detail,omitempty"`
	DurationMS    int64                `json:"duration_ms"`
}

// FromEvent converts a dispatcher event into an Entry.
func FromEvent(ev interactions.Event) Entry {
	return Entry{
		ID:            ev.ID,
		Timestamp:     ev.Timestamp,
		InteractionID: ev.InteractionID,
		UserID:        ev.UserID,
		Username:      ev.Username,
		Command:       ev.Command,
		Outcome:       ev.Outcome,
		Detail:        ev.Detail,
		DurationMS:    ev.Duration.Milliseconds(),
	}
}
