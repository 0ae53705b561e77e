// Package recognition defines the interface for continuous speech recognition engines.
package recognition

import (
	"context"
	"errors"

	"live-transcriber/internal/service/transcript"
)

// Error codes reported through Handler.OnError. Engines pass any other code
// through verbatim.
const (
	CodeNoSpeech     = "no-speech"
	CodeAudioCapture = "audio-capture"
	CodeNotAllowed   = "not-allowed"
)

// ErrAlreadyStarted is returned by Start while a session is still running.
var ErrAlreadyStarted = errors.New("recognition already started")

// Config is passed through to the engine at construction.
type Config struct {
	Locale         string
	Continuous     bool
	InterimResults bool
}

// DefaultConfig returns the fixed configuration used by the transcriber.
func DefaultConfig() Config {
	return Config{
		Locale:         "en-US",
		Continuous:     true,
		InterimResults: true,
	}
}

// Handler receives session events from an engine.
// Engines never invoke the handler from inside Start or Stop.
type Handler interface {
	// OnSessionStart is called once the engine is capturing.
	OnSessionStart()

	// OnBatch is called for every incremental result delivery.
	OnBatch(batch transcript.ResultBatch)

	// OnSessionEnd is called when the session ends, for any reason.
	OnSessionEnd()

	// OnError is called with a delivery error code. OnSessionEnd follows.
	OnError(code string)
}

// Engine is a continuous speech recognition capability (mock, Google, etc.).
type Engine interface {
	// Start begins a recognition session that reports to h.
	Start(ctx context.Context, h Handler) error

	// Stop ends the running session. Idempotent.
	Stop() error

	// Name identifies the engine in logs and metrics.
	Name() string
}
