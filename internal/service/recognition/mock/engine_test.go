package mock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"live-transcriber/internal/service/recognition"
	"live-transcriber/internal/service/transcript"
)

// testHandler implements recognition.Handler for testing
type testHandler struct {
	mu      sync.Mutex
	starts  int
	batches []transcript.ResultBatch
	errors  []string
	ended   chan struct{}
}

func newTestHandler() *testHandler {
	return &testHandler{ended: make(chan struct{}, 4)}
}

func (h *testHandler) OnSessionStart() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.starts++
}

func (h *testHandler) OnBatch(b transcript.ResultBatch) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.batches = append(h.batches, b)
}

func (h *testHandler) OnSessionEnd() {
	h.ended <- struct{}{}
}

func (h *testHandler) OnError(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, code)
}

func (h *testHandler) getBatches() []transcript.ResultBatch {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]transcript.ResultBatch{}, h.batches...)
}

func (h *testHandler) waitEnd(t *testing.T) {
	t.Helper()
	select {
	case <-h.ended:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session end")
	}
}

var testScript = []Utterance{
	{Interims: []string{"a", "a b"}, Final: "a b c", Confidence: 0.9},
	{Interims: []string{"d"}, Final: "d e", Confidence: 0.8},
}

func TestEngine_New_Defaults(t *testing.T) {
	e := New(Config{})

	if len(e.cfg.Script) != len(DefaultScript) {
		t.Errorf("expected default script, got %d utterances", len(e.cfg.Script))
	}
	if e.cfg.Interval != DefaultConfig().Interval {
		t.Errorf("expected default interval, got %v", e.cfg.Interval)
	}
	if e.Name() != "mock" {
		t.Errorf("expected name 'mock', got %s", e.Name())
	}
}

func TestEngine_SessionDeliversInterimsThenFinal(t *testing.T) {
	e := New(Config{Interval: 2 * time.Millisecond, UtterancesPerSession: 2, Script: testScript})
	h := newTestHandler()

	if err := e.Start(context.Background(), h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.waitEnd(t)

	batches := h.getBatches()
	if len(batches) != 5 {
		t.Fatalf("expected 5 batches, got %d", len(batches))
	}

	acc := transcript.New()
	for _, b := range batches {
		acc.ApplyBatch(b)
	}
	if acc.Committed() != "a b c d e " {
		t.Errorf("unexpected transcript %q", acc.Committed())
	}

	if batches[3].StartIndex != 1 {
		t.Errorf("expected second utterance at index 1, got %d", batches[3].StartIndex)
	}
	if !batches[2].Segments[0].IsFinal || batches[2].Segments[0].Confidence != 0.9 {
		t.Errorf("expected final with confidence 0.9, got %+v", batches[2].Segments[0])
	}
	if h.starts != 1 {
		t.Errorf("expected one session start, got %d", h.starts)
	}
}

func TestEngine_Start_AlreadyStarted(t *testing.T) {
	e := New(Config{Interval: time.Hour, Script: testScript})
	h := newTestHandler()

	if err := e.Start(context.Background(), h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer e.Stop()

	if err := e.Start(context.Background(), h); !errors.Is(err, recognition.ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestEngine_Stop_EndsSession(t *testing.T) {
	e := New(Config{Interval: time.Hour, Script: testScript})
	h := newTestHandler()

	if err := e.Start(context.Background(), h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
	h.waitEnd(t)

	if len(h.getBatches()) != 0 {
		t.Errorf("expected no batches after immediate stop, got %d", len(h.getBatches()))
	}

	// Stop is idempotent.
	if err := e.Stop(); err != nil {
		t.Errorf("second stop returned error: %v", err)
	}
}

func TestEngine_StartAfterStop(t *testing.T) {
	e := New(Config{Interval: time.Hour, Script: testScript})
	h := newTestHandler()

	if err := e.Start(context.Background(), h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e.Stop()

	// Start waits for the draining session instead of failing.
	if err := e.Start(context.Background(), h); err != nil {
		t.Fatalf("restart after stop failed: %v", err)
	}
	e.Stop()
	h.waitEnd(t)
	h.waitEnd(t)
}

func TestEngine_CursorCarriesAcrossSessions(t *testing.T) {
	e := New(Config{Interval: 2 * time.Millisecond, UtterancesPerSession: 1, Script: testScript})
	h := newTestHandler()

	for i := 0; i < 2; i++ {
		if err := e.Start(context.Background(), h); err != nil {
			t.Fatalf("session %d: unexpected error: %v", i, err)
		}
		h.waitEnd(t)
	}

	var finals []string
	for _, b := range h.getBatches() {
		for _, s := range b.Segments {
			if s.IsFinal {
				finals = append(finals, s.Text)
			}
		}
	}
	if len(finals) != 2 || finals[0] != "a b c" || finals[1] != "d e" {
		t.Errorf("unexpected finals across sessions: %v", finals)
	}
}
