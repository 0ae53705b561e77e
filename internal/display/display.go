// Package display renders the running transcript on one or more surfaces.
package display

import (
	"errors"
	"sync"
	"time"

	"live-transcriber/internal/models"
)

var errDropped = errors.New("display update dropped")

// Surface is the writable text sink the session controller drives.
type Surface interface {
	// Show replaces the displayed transcript.
	Show(text string)

	// Clear blanks the displayed transcript.
	Clear()

	// SetPlaceholder sets the text shown while the transcript is empty.
	SetPlaceholder(text string)

	// SetStatus sets the one-line status message.
	SetStatus(text string)
}

// SessionBinder is implemented by surfaces that tag updates with a session ID.
type SessionBinder interface {
	BindSession(sessionId string)
}

// Sink receives display updates. Implementations must not block for long and
// must not call back into the controller.
type Sink interface {
	Publish(u models.DisplayUpdate)
}

// Emitter turns Surface calls into DisplayUpdates and fans them out to sinks.
type Emitter struct {
	mu        sync.Mutex
	sessionId string
	sinks     []Sink
	now       func() time.Time
}

// NewEmitter creates an emitter publishing to sinks in order.
func NewEmitter(sinks ...Sink) *Emitter {
	return &Emitter{
		sinks: sinks,
		now:   time.Now,
	}
}

// BindSession tags subsequent updates with sessionId.
func (e *Emitter) BindSession(sessionId string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessionId = sessionId
}

// Show implements Surface.
func (e *Emitter) Show(text string) {
	e.emit(models.DisplayUpdate{EventType: models.EventDisplay, Text: text})
}

// Clear implements Surface.
func (e *Emitter) Clear() {
	e.emit(models.DisplayUpdate{EventType: models.EventClear})
}

// SetPlaceholder implements Surface.
func (e *Emitter) SetPlaceholder(text string) {
	e.emit(models.DisplayUpdate{EventType: models.EventPlaceholder, Placeholder: text})
}

// SetStatus implements Surface.
func (e *Emitter) SetStatus(text string) {
	e.emit(models.DisplayUpdate{EventType: models.EventStatus, Status: text})
}

func (e *Emitter) emit(u models.DisplayUpdate) {
	e.mu.Lock()
	u.SessionID = e.sessionId
	u.Timestamp = e.now().UnixMilli()
	sinks := e.sinks
	e.mu.Unlock()

	for _, s := range sinks {
		s.Publish(u)
	}
}
