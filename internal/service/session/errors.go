package session

import (
	"errors"
	"fmt"

	"live-transcriber/internal/service/recognition"
)

// ErrCapabilityUnavailable is returned by Start when no recognition engine exists.
var ErrCapabilityUnavailable = errors.New("speech recognition not supported")

// ErrAlreadyActive is wrapped in a StartError when a session is already running.
var ErrAlreadyActive = errors.New("session already active")

// StartError reports a rejected start (session start failure).
type StartError struct {
	Err error
}

func (e *StartError) Error() string {
	return "start failed: " + e.Err.Error()
}

func (e *StartError) Unwrap() error {
	return e.Err
}

// DeliveryKind classifies engine-reported errors for status text.
type DeliveryKind int

const (
	DeliveryOther DeliveryKind = iota
	DeliveryNoSpeech
	DeliveryCaptureUnavailable
	DeliveryPermissionDenied
)

// String returns the metric label for the kind.
func (k DeliveryKind) String() string {
	switch k {
	case DeliveryNoSpeech:
		return "no-speech"
	case DeliveryCaptureUnavailable:
		return "capture-unavailable"
	case DeliveryPermissionDenied:
		return "permission-denied"
	default:
		return "other"
	}
}

// DeliveryError is an error reported by the engine while listening.
type DeliveryError struct {
	Kind DeliveryKind
	Code string // Engine code, verbatim
}

// NewDeliveryError classifies an engine error code.
func NewDeliveryError(code string) *DeliveryError {
	kind := DeliveryOther
	switch code {
	case recognition.CodeNoSpeech:
		kind = DeliveryNoSpeech
	case recognition.CodeAudioCapture:
		kind = DeliveryCaptureUnavailable
	case recognition.CodeNotAllowed:
		kind = DeliveryPermissionDenied
	}
	return &DeliveryError{Kind: kind, Code: code}
}

func (e *DeliveryError) Error() string {
	return e.Message()
}

// Message returns the user-facing description.
func (e *DeliveryError) Message() string {
	switch e.Kind {
	case DeliveryNoSpeech:
		return "No speech detected"
	case DeliveryCaptureUnavailable:
		return "Microphone not available"
	case DeliveryPermissionDenied:
		return "Microphone access denied"
	default:
		return fmt.Sprintf("Error: %s", e.Code)
	}
}

// CopyError reports a failed clipboard copy. The transcript is unaffected.
type CopyError struct {
	Err error
}

func (e *CopyError) Error() string {
	return "copy failed: " + e.Err.Error()
}

func (e *CopyError) Unwrap() error {
	return e.Err
}
