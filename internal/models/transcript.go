// Package models defines the data structures for display events.
package models

// Display event types.
const (
	EventDisplay     = "transcript.display"
	EventClear       = "transcript.clear"
	EventPlaceholder = "transcript.placeholder"
	EventStatus      = "transcript.status"
	EventSnapshot    = "transcript.snapshot"
)

// DisplayUpdate is one change to the display surface, as sent to browser
// clients and remote sinks.
type DisplayUpdate struct {
	EventType   string `json:"eventType"`
	SessionID   string `json:"sessionId,omitempty"`
	Text        string `json:"text,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Status      string `json:"status,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}

// DisplayState is the last known state of a display, replayed to late joiners.
type DisplayState struct {
	SessionID   string `json:"sessionId,omitempty"`
	Text        string `json:"text"`
	Placeholder string `json:"placeholder"`
	Status      string `json:"status"`
}

// Apply folds an update into the state.
func (s *DisplayState) Apply(u DisplayUpdate) {
	if u.SessionID != "" {
		s.SessionID = u.SessionID
	}
	switch u.EventType {
	case EventDisplay:
		s.Text = u.Text
	case EventClear:
		s.Text = ""
	case EventPlaceholder:
		s.Placeholder = u.Placeholder
	case EventStatus:
		s.Status = u.Status
	case EventSnapshot:
		s.Text = u.Text
		s.Placeholder = u.Placeholder
		s.Status = u.Status
	}
}

// Snapshot returns the state as a single update.
func (s DisplayState) Snapshot(ts int64) DisplayUpdate {
	return DisplayUpdate{
		EventType:   EventSnapshot,
		SessionID:   s.SessionID,
		Text:        s.Text,
		Placeholder: s.Placeholder,
		Status:      s.Status,
		Timestamp:   ts,
	}
}
