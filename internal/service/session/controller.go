package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"live-transcriber/internal/clipboard"
	"live-transcriber/internal/display"
	"live-transcriber/internal/observability/logging"
	"live-transcriber/internal/observability/metrics"
	"live-transcriber/internal/service/recognition"
	"live-transcriber/internal/service/transcript"
)

// Placeholder texts shown while the transcript is empty.
const (
	PlaceholderIdle      = "Your transcribed text will appear here..."
	PlaceholderListening = "Speak now..."
)

const statusPrefix = "Status: "

var errNoClipboard = errors.New("no clipboard configured")

// Options tunes a Controller. Zero values are valid.
type Options struct {
	// InterimTimeout clears stale interim text this long after the last batch.
	// Zero disables the debounce.
	InterimTimeout time.Duration
	Scheduler      Scheduler
	Metrics        *metrics.Metrics
	NewSessionID   func() string
}

// Snapshot is a point-in-time view of the controller.
type Snapshot struct {
	SessionID string `json:"sessionId"`
	State     string `json:"state"`
	Status    string `json:"status"`
	Display   string `json:"display"`
	Committed string `json:"committed"`
	Interim   string `json:"interim"`
}

// Controller owns one listening session at a time and the transcript it
// produces. Engine callbacks, user controls and debounce timers are
// serialized under one mutex; engine Start/Stop are called outside it.
//
// State transitions:
//
//	IDLE ──Start──→ STARTING ──OnSessionStart──→ LISTENING
//	                   ↑                            │
//	                   └──── natural end (auto) ────┤
//	                                                ├── OnError ──→ ERROR ──→ STOPPED
//	STOPPED/ERROR ──Start──→ STARTING               └── Stop / tab hidden ──→ STOPPED
//
// A nil engine puts the controller in UNSUPPORTED for good.
type Controller struct {
	mu      sync.Mutex
	engine  recognition.Engine
	acc     *transcript.Accumulator
	surface display.Surface
	clip    clipboard.Clipboard
	metrics *metrics.Metrics
	logger  zerolog.Logger

	state         State
	status        string
	sessionId     string
	gen           uint64 // Identifies the current engine session
	resetOnListen bool   // Next LISTENING entry is user-initiated
	userStopped   bool
	ctx           context.Context
	lastErr       error

	interimTimeout time.Duration
	scheduler      Scheduler
	clearTask      Task
	clearGen       uint64

	newSessionID func() string
}

// New creates a controller. engine may be nil when the platform offers no
// recognition capability.
func New(engine recognition.Engine, surface display.Surface, clip clipboard.Clipboard, opts Options) *Controller {
	if opts.Scheduler == nil {
		opts.Scheduler = TimerScheduler{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.DefaultMetrics
	}
	if opts.NewSessionID == nil {
		opts.NewSessionID = uuid.NewString
	}

	c := &Controller{
		engine:         engine,
		acc:            transcript.New(),
		surface:        surface,
		clip:           clip,
		metrics:        opts.Metrics,
		logger:         logging.WithComponent("session"),
		state:          StateIdle,
		ctx:            context.Background(),
		interimTimeout: opts.InterimTimeout,
		scheduler:      opts.Scheduler,
		newSessionID:   opts.NewSessionID,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.surface.SetPlaceholder(PlaceholderIdle)
	if engine == nil {
		c.state = StateUnsupported
		c.lastErr = ErrCapabilityUnavailable
		c.setStatus("Speech recognition not supported")
		c.logger.Warn().Msg("No recognition engine available, start disabled")
		return c
	}
	c.setStatus("Ready")
	return c
}

// Start begins a new user-initiated session. The transcript is reset once the
// engine confirms the session.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateUnsupported {
		c.mu.Unlock()
		return ErrCapabilityUnavailable
	}
	if !c.state.CanStart() {
		state, logger := c.state, c.logger
		c.mu.Unlock()
		logger.Debug().Str("state", state.String()).Msg("Start ignored, session active")
		return &StartError{Err: ErrAlreadyActive}
	}

	c.sessionId = c.newSessionID()
	c.logger = logging.WithEngine(c.sessionId, c.engine.Name())
	if b, ok := c.surface.(display.SessionBinder); ok {
		b.BindSession(c.sessionId)
	}

	c.gen++
	gen := c.gen
	c.ctx = ctx
	c.resetOnListen = true
	c.userStopped = false
	c.lastErr = nil
	c.transition(StateStarting)
	c.setStatus("Starting...")
	c.surface.SetPlaceholder(PlaceholderListening)
	c.metrics.RecordSessionStart()
	engine := c.engine
	c.mu.Unlock()

	err := engine.Start(ctx, engineHandler{c: c, gen: gen})
	if err == nil {
		c.releaseIfSuperseded(engine, gen)
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	serr := &StartError{Err: err}
	if c.gen == gen && c.state == StateStarting {
		c.lastErr = serr
		c.resetOnListen = false
		c.transition(StateStopped)
		c.setStatus(err.Error())
	}
	c.logger.Error().Err(err).Msg("Recognition start rejected")
	return serr
}

// Stop ends the session. The transcript is kept until Clear or the next Start.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.state == StateUnsupported {
		c.mu.Unlock()
		return
	}
	c.stopLocked("Ready")
	engine := c.engine
	c.mu.Unlock()

	c.stopEngine(engine)
}

// SetVisibility reports whether the display became hidden. Hiding it while a
// session is active pauses listening.
func (c *Controller) SetVisibility(hidden bool) {
	c.mu.Lock()
	if !hidden || !c.state.IsActive() {
		c.mu.Unlock()
		return
	}
	c.logger.Info().Msg("Display hidden, pausing")
	c.stopLocked("Paused (tab inactive)")
	engine := c.engine
	c.mu.Unlock()

	c.stopEngine(engine)
}

// Clear discards the transcript without changing the session state.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelInterimClear()
	c.acc.Reset()
	c.surface.Clear()
	c.surface.SetPlaceholder(PlaceholderIdle)
	c.metrics.TranscriptLength.Set(0)
}

// Copy writes the displayed transcript to the clipboard.
func (c *Controller) Copy() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := errNoClipboard
	if c.clip != nil {
		err = c.clip.WriteAll(c.acc.Display())
	}
	c.metrics.RecordCopy(err)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Copy failed")
		c.setStatus("Copy failed")
		return &CopyError{Err: err}
	}
	c.setStatus("Copied to clipboard")
	return nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the error that ended the last session, if any.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Transcript returns the display string.
func (c *Controller) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acc.Display()
}

// Snapshot returns a consistent view of the controller.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		SessionID: c.sessionId,
		State:     c.state.String(),
		Status:    c.status,
		Display:   c.acc.Display(),
		Committed: c.acc.Committed(),
		Interim:   c.acc.Interim(),
	}
}

// --- engine callbacks ---

// engineHandler binds callbacks to one engine session so that late events
// from a replaced session are ignored.
type engineHandler struct {
	c   *Controller
	gen uint64
}

func (h engineHandler) OnSessionStart()                      { h.c.onSessionStart(h.gen) }
func (h engineHandler) OnBatch(batch transcript.ResultBatch) { h.c.onBatch(h.gen, batch) }
func (h engineHandler) OnSessionEnd()                        { h.c.onSessionEnd(h.gen) }
func (h engineHandler) OnError(code string)                  { h.c.onError(h.gen, code) }

func (c *Controller) onSessionStart(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.state != StateStarting {
		return
	}
	if c.resetOnListen {
		c.resetOnListen = false
		c.acc.Reset()
		c.surface.Clear()
	}
	c.transition(StateListening)
	c.setStatus("Listening...")
}

func (c *Controller) onBatch(gen uint64, batch transcript.ResultBatch) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.state != StateListening {
		c.logger.Debug().Str("state", c.state.String()).Msg("Batch ignored")
		return
	}

	text := c.acc.ApplyBatch(batch)
	finals := 0
	for _, s := range batch.Segments {
		if s.IsFinal {
			finals++
		}
	}
	c.metrics.RecordBatch(finals, len(batch.Segments)-finals, len(c.acc.Committed()))
	c.surface.Show(text)
	c.scheduleInterimClear()
}

func (c *Controller) onSessionEnd(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}

	switch {
	case c.state == StateListening && !c.userStopped:
		// Platform-imposed end of session: keep listening.
		c.gen++
		newGen := c.gen
		c.cancelInterimClear()
		c.acc.Restart()
		c.surface.Show(c.acc.Display())
		c.transition(StateStarting)
		engine, ctx := c.engine, c.ctx
		c.logger.Info().Msg("Session ended by engine, restarting")
		c.mu.Unlock()

		err := engine.Start(ctx, engineHandler{c: c, gen: newGen})
		c.metrics.RecordAutoRestart(err)
		if err == nil {
			c.releaseIfSuperseded(engine, newGen)
			return
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		c.logger.Error().Err(err).Msg("Automatic restart rejected")
		if c.gen == newGen && c.state == StateStarting {
			c.lastErr = &StartError{Err: err}
			c.transition(StateStopped)
			c.setStatus(err.Error())
		}

	case c.state.IsActive():
		// Ended before it ever listened, or while stopping.
		c.transition(StateStopped)
		c.setStatus("Ready")
		c.mu.Unlock()

	default:
		c.mu.Unlock()
	}
}

func (c *Controller) onError(gen uint64, code string) {
	c.mu.Lock()
	if gen != c.gen || !c.state.IsActive() {
		c.mu.Unlock()
		return
	}

	derr := NewDeliveryError(code)
	c.metrics.RecordDeliveryError(derr.Kind.String())
	c.logger.Warn().Str("code", code).Str("kind", derr.Kind.String()).Msg("Recognition error")

	c.transition(StateError)
	c.stopLocked(derr.Message())
	c.lastErr = derr
	engine := c.engine
	c.mu.Unlock()

	c.stopEngine(engine)
}

// --- helpers, callers hold c.mu ---

func (c *Controller) stopLocked(status string) {
	c.gen++
	c.userStopped = true
	c.resetOnListen = false
	c.lastErr = nil
	c.cancelInterimClear()
	if c.state != StateStopped {
		c.transition(StateStopped)
	}
	c.setStatus(status)
}

func (c *Controller) transition(to State) {
	from := c.state
	c.state = to
	c.metrics.RecordTransition(from.String(), to.String())
	c.metrics.RecordListening(to == StateListening)
	c.logger.Debug().Str("from", from.String()).Str("to", to.String()).Msg("Session state changed")
}

func (c *Controller) setStatus(msg string) {
	c.status = statusPrefix + msg
	c.surface.SetStatus(c.status)
}

func (c *Controller) scheduleInterimClear() {
	c.cancelInterimClear()
	if c.interimTimeout <= 0 || c.acc.Interim() == "" {
		return
	}
	gen := c.clearGen
	c.clearTask = c.scheduler.AfterFunc(c.interimTimeout, func() {
		c.onInterimTimeout(gen)
	})
}

// cancelInterimClear stops the pending task and invalidates it in case it is
// already running.
func (c *Controller) cancelInterimClear() {
	if c.clearTask != nil {
		c.clearTask.Stop()
		c.clearTask = nil
	}
	c.clearGen++
}

func (c *Controller) onInterimTimeout(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.clearGen {
		return
	}
	c.clearTask = nil
	if c.acc.Interim() == "" {
		return
	}
	c.acc.ClearInterim()
	c.surface.Show(c.acc.Display())
	c.metrics.RecordInterimClear()
}

// releaseIfSuperseded stops an engine session that was accepted after the
// controller had already moved on, e.g. Stop ran while engine.Start blocked.
func (c *Controller) releaseIfSuperseded(engine recognition.Engine, gen uint64) {
	c.mu.Lock()
	superseded := c.gen != gen
	logger := c.logger
	c.mu.Unlock()
	if !superseded {
		return
	}
	logger.Info().Msg("Session stopped while starting, releasing engine")
	c.stopEngine(engine)
}

func (c *Controller) stopEngine(engine recognition.Engine) {
	if engine == nil {
		return
	}
	if err := engine.Stop(); err != nil {
		c.mu.Lock()
		logger := c.logger
		c.mu.Unlock()
		logger.Warn().Err(err).Msg("Engine stop failed")
	}
}
