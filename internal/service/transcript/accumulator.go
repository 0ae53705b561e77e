// Package transcript folds streaming recognition results into a running transcript.
package transcript

import (
	"strings"
	"time"
)

// Segment is one recognized utterance within a result batch.
type Segment struct {
	Text       string
	IsFinal    bool
	Confidence float64       // 0 when the engine does not report one
	EndOffset  time.Duration // offset from session start, 0 when unknown
}

// ResultBatch is an incremental delivery from a recognition engine.
// StartIndex is the position of Segments[0] in the engine's growing result list.
type ResultBatch struct {
	StartIndex int
	Segments   []Segment
}

// Accumulator holds the transcript state for one session.
//
// Committed text only grows until Reset. Interim text is re-derived from every
// batch and is dropped as soon as a final segment arrives.
//
// Not safe for concurrent use; the session controller serializes access.
type Accumulator struct {
	committed          strings.Builder
	pendingInterim     string
	lastProcessedIndex int
}

// New returns an empty accumulator.
func New() *Accumulator {
	return &Accumulator{}
}

// Reset discards all committed and interim text and the processed boundary.
func (a *Accumulator) Reset() {
	a.committed.Reset()
	a.pendingInterim = ""
	a.lastProcessedIndex = 0
}

// Restart prepares for a new engine session whose result list starts again at
// index 0. Committed text is kept.
func (a *Accumulator) Restart() {
	a.pendingInterim = ""
	a.lastProcessedIndex = 0
}

// ClearInterim drops the pending interim text only.
func (a *Accumulator) ClearInterim() {
	a.pendingInterim = ""
}

// ApplyBatch folds a batch into the state and returns the display string.
//
// Segments below the processed boundary were already committed and are
// skipped. Final segments advance the boundary; interim segments never do,
// since the engine may re-deliver the same index once it is final.
func (a *Accumulator) ApplyBatch(batch ResultBatch) string {
	start := batch.StartIndex
	if start < 0 {
		start = 0
	}

	a.pendingInterim = ""
	for i, seg := range batch.Segments {
		idx := start + i
		if idx < a.lastProcessedIndex {
			continue
		}
		if seg.IsFinal {
			a.committed.WriteString(seg.Text)
			a.committed.WriteByte(' ')
			a.pendingInterim = ""
			a.lastProcessedIndex = idx + 1
			continue
		}
		a.pendingInterim = seg.Text
	}

	return a.Display()
}

// Display returns committed text followed by the pending interim text.
func (a *Accumulator) Display() string {
	return a.committed.String() + a.pendingInterim
}

// Committed returns the text of all final segments.
func (a *Accumulator) Committed() string {
	return a.committed.String()
}

// Interim returns the pending interim text.
func (a *Accumulator) Interim() string {
	return a.pendingInterim
}

// LastProcessedIndex returns the boundary below which segments are skipped.
func (a *Accumulator) LastProcessedIndex() int {
	return a.lastProcessedIndex
}
