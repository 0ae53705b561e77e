package display

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"live-transcriber/internal/models"
	"live-transcriber/internal/observability/metrics"
)

type recordingSink struct {
	mu      sync.Mutex
	updates []models.DisplayUpdate
}

func (s *recordingSink) Publish(u models.DisplayUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, u)
}

func TestEmitter_FansOutWithSession(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	e := NewEmitter(a, b)
	e.now = func() time.Time { return time.UnixMilli(42) }

	e.BindSession("sess-1")
	e.Show("hello ")
	e.SetStatus("Status: Listening...")
	e.SetPlaceholder("Speak now...")
	e.Clear()

	for _, s := range []*recordingSink{a, b} {
		if len(s.updates) != 4 {
			t.Fatalf("expected 4 updates, got %d", len(s.updates))
		}
		want := []string{models.EventDisplay, models.EventStatus, models.EventPlaceholder, models.EventClear}
		for i, u := range s.updates {
			if u.EventType != want[i] {
				t.Errorf("update %d: expected %s, got %s", i, want[i], u.EventType)
			}
			if u.SessionID != "sess-1" {
				t.Errorf("update %d: expected session sess-1, got %q", i, u.SessionID)
			}
			if u.Timestamp != 42 {
				t.Errorf("update %d: expected timestamp 42, got %d", i, u.Timestamp)
			}
		}
	}
	if a.updates[0].Text != "hello " {
		t.Errorf("expected text 'hello ', got %q", a.updates[0].Text)
	}
}

func TestConsole_PlainOutput(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false)

	c.Publish(models.DisplayUpdate{EventType: models.EventStatus, Status: "Status: Listening..."})
	c.Publish(models.DisplayUpdate{EventType: models.EventDisplay, Text: "hello"})
	c.Publish(models.DisplayUpdate{EventType: models.EventDisplay, Text: "hello"})
	c.Publish(models.DisplayUpdate{EventType: models.EventPlaceholder, Placeholder: "Speak now..."})
	c.Publish(models.DisplayUpdate{EventType: models.EventDisplay, Text: "hello world "})

	want := "Status: Listening...\nhello\nhello world \n"
	if buf.String() != want {
		t.Errorf("unexpected output %q, want %q", buf.String(), want)
	}
}

func TestConsole_TerminalRedraw(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, true)

	c.Publish(models.DisplayUpdate{EventType: models.EventPlaceholder, Placeholder: "Speak now..."})
	if !strings.Contains(buf.String(), "Speak now...") {
		t.Errorf("expected placeholder while empty, got %q", buf.String())
	}

	buf.Reset()
	c.Publish(models.DisplayUpdate{EventType: models.EventDisplay, Text: "hi"})
	if buf.String() != eraseLine+"hi" {
		t.Errorf("expected in-place redraw, got %q", buf.String())
	}

	buf.Reset()
	c.Publish(models.DisplayUpdate{EventType: models.EventStatus, Status: "Status: Ready"})
	if buf.String() != eraseLine+"Status: Ready\n"+eraseLine+"hi" {
		t.Errorf("expected status line then transcript, got %q", buf.String())
	}
}

func TestHub_SnapshotThenBroadcast(t *testing.T) {
	hub := NewHub(metrics.DefaultMetrics)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var snap models.DisplayUpdate
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snap.EventType != models.EventSnapshot {
		t.Errorf("expected snapshot first, got %s", snap.EventType)
	}

	hub.Publish(models.DisplayUpdate{EventType: models.EventDisplay, SessionID: "s", Text: "live text"})

	var u models.DisplayUpdate
	if err := conn.ReadJSON(&u); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if u.EventType != models.EventDisplay || u.Text != "live text" {
		t.Errorf("unexpected update %+v", u)
	}

	// A late joiner sees the current transcript in its snapshot.
	late, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer late.Close()
	late.SetReadDeadline(time.Now().Add(2 * time.Second))

	if err := late.ReadJSON(&snap); err != nil {
		t.Fatalf("read late snapshot: %v", err)
	}
	if snap.Text != "live text" || snap.SessionID != "s" {
		t.Errorf("unexpected late snapshot %+v", snap)
	}
}

func TestHub_DroppedUpdatesReachSnapshot(t *testing.T) {
	// Run is not started, so the broadcast buffer fills up.
	hub := NewHub(metrics.DefaultMetrics)
	for i := 0; i < cap(hub.broadcast); i++ {
		hub.Publish(models.DisplayUpdate{EventType: models.EventDisplay, Text: "filler"})
	}

	hub.Publish(models.DisplayUpdate{EventType: models.EventClear})
	hub.Publish(models.DisplayUpdate{EventType: models.EventStatus, Status: "Status: Ready"})
	if len(hub.broadcast) != cap(hub.broadcast) {
		t.Fatalf("expected full buffer, got %d", len(hub.broadcast))
	}

	snap := hub.snapshot()
	if snap.Text != "" {
		t.Errorf("expected dropped clear applied, got %q", snap.Text)
	}
	if snap.Status != "Status: Ready" {
		t.Errorf("expected dropped status applied, got %q", snap.Status)
	}
}

func TestDisplayState_Apply(t *testing.T) {
	var s models.DisplayState

	s.Apply(models.DisplayUpdate{EventType: models.EventDisplay, SessionID: "a", Text: "x"})
	s.Apply(models.DisplayUpdate{EventType: models.EventStatus, Status: "Status: Ready"})
	s.Apply(models.DisplayUpdate{EventType: models.EventPlaceholder, Placeholder: "p"})

	if s.Text != "x" || s.Status != "Status: Ready" || s.Placeholder != "p" || s.SessionID != "a" {
		t.Errorf("unexpected state %+v", s)
	}

	s.Apply(models.DisplayUpdate{EventType: models.EventClear})
	if s.Text != "" {
		t.Errorf("expected text cleared, got %q", s.Text)
	}
}
