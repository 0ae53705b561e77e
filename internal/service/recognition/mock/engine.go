// Package mock provides a scripted recognition engine for running without cloud credentials.
// It simulates a continuous recognizer: progressive interim revisions, exactly one
// final per utterance, and a platform-imposed session length after which the
// session ends on its own.
package mock

import (
	"context"
	"sync"
	"time"

	"live-transcriber/internal/service/recognition"
	"live-transcriber/internal/service/transcript"
)

// Utterance is one scripted utterance.
type Utterance struct {
	Interims   []string // Progressive interim readings
	Final      string   // Final text
	Confidence float64  // Confidence reported with the final
}

// DefaultScript cycles through a few short dictation-style utterances.
var DefaultScript = []Utterance{
	{
		Interims:   []string{"note", "note to", "note to self"},
		Final:      "note to self",
		Confidence: 0.93,
	},
	{
		Interims:   []string{"pick up", "pick up the", "pick up the dry"},
		Final:      "pick up the dry cleaning",
		Confidence: 0.9,
	},
	{
		Interims:   []string{"call", "call mom"},
		Final:      "call mom on sunday",
		Confidence: 0.96,
	},
	{
		Interims:   []string{"and", "and book", "and book the train"},
		Final:      "and book the train tickets",
		Confidence: 0.88,
	},
}

// Config controls the simulation.
type Config struct {
	Interval             time.Duration // Delay between deliveries
	UtterancesPerSession int           // Session ends after this many finals, 0 = never
	Script               []Utterance   // Defaults to DefaultScript
}

// DefaultConfig returns sensible simulation defaults.
func DefaultConfig() Config {
	return Config{
		Interval:             300 * time.Millisecond,
		UtterancesPerSession: 2,
		Script:               DefaultScript,
	}
}

// Engine implements recognition.Engine with scripted results.
type Engine struct {
	cfg Config

	mu       sync.Mutex
	running  bool
	stopping bool
	cancel   context.CancelFunc
	done     chan struct{}
	cursor   int // Next utterance, carried across sessions
}

// New creates a mock engine.
func New(cfg Config) *Engine {
	if len(cfg.Script) == 0 {
		cfg.Script = DefaultScript
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Engine{cfg: cfg}
}

// Name implements recognition.Engine.
func (e *Engine) Name() string {
	return "mock"
}

// Start begins a simulated session. Results are delivered from a separate goroutine.
func (e *Engine) Start(ctx context.Context, h recognition.Handler) error {
	e.mu.Lock()
	if e.running && e.stopping {
		// Previous session is draining after Stop; wait for it.
		done := e.done
		e.mu.Unlock()
		<-done
		e.mu.Lock()
	}
	if e.running {
		e.mu.Unlock()
		return recognition.ErrAlreadyStarted
	}

	sctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.running = true
	e.stopping = false
	e.cancel = cancel
	e.done = done
	e.mu.Unlock()

	go e.run(sctx, h, done)
	return nil
}

// Stop cancels the running session. The session still ends with OnSessionEnd.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return nil
	}
	e.stopping = true
	e.cancel()
	return nil
}

func (e *Engine) run(ctx context.Context, h recognition.Handler, done chan struct{}) {
	defer func() {
		e.mu.Lock()
		e.running = false
		e.stopping = false
		e.cancel()
		e.mu.Unlock()
		close(done)
		h.OnSessionEnd()
	}()

	h.OnSessionStart()

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	finals := 0
	for e.cfg.UtterancesPerSession <= 0 || finals < e.cfg.UtterancesPerSession {
		utt := e.nextUtterance()

		for _, text := range utt.Interims {
			if !wait(ctx, ticker) {
				return
			}
			h.OnBatch(transcript.ResultBatch{
				StartIndex: finals,
				Segments:   []transcript.Segment{{Text: text}},
			})
		}

		if !wait(ctx, ticker) {
			return
		}
		h.OnBatch(transcript.ResultBatch{
			StartIndex: finals,
			Segments: []transcript.Segment{{
				Text:       utt.Final,
				IsFinal:    true,
				Confidence: utt.Confidence,
			}},
		})
		finals++
	}
}

func (e *Engine) nextUtterance() Utterance {
	e.mu.Lock()
	defer e.mu.Unlock()
	utt := e.cfg.Script[e.cursor%len(e.cfg.Script)]
	e.cursor++
	return utt
}

func wait(ctx context.Context, ticker *time.Ticker) bool {
	select {
	case <-ctx.Done():
		return false
	case <-ticker.C:
		return true
	}
}
