package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAutoRestart(t *testing.T) {
	m := DefaultMetrics
	restarts := testutil.ToFloat64(m.AutoRestarts)
	failures := testutil.ToFloat64(m.RestartFailures)

	m.RecordAutoRestart(nil)
	m.RecordAutoRestart(errors.New("rejected"))

	if got := testutil.ToFloat64(m.AutoRestarts); got != restarts+2 {
		t.Errorf("expected %v restarts, got %v", restarts+2, got)
	}
	if got := testutil.ToFloat64(m.RestartFailures); got != failures+1 {
		t.Errorf("expected %v failures, got %v", failures+1, got)
	}
}

func TestRecordBatch(t *testing.T) {
	m := DefaultMetrics
	finals := testutil.ToFloat64(m.SegmentsFinal)
	interims := testutil.ToFloat64(m.SegmentsInterim)

	m.RecordBatch(2, 1, 42)

	if got := testutil.ToFloat64(m.SegmentsFinal); got != finals+2 {
		t.Errorf("expected %v finals, got %v", finals+2, got)
	}
	if got := testutil.ToFloat64(m.SegmentsInterim); got != interims+1 {
		t.Errorf("expected %v interims, got %v", interims+1, got)
	}
	if got := testutil.ToFloat64(m.TranscriptLength); got != 42 {
		t.Errorf("expected transcript length 42, got %v", got)
	}
}

func TestRecordCopy(t *testing.T) {
	m := DefaultMetrics
	ok := testutil.ToFloat64(m.CopyTotal.WithLabelValues("success"))
	failed := testutil.ToFloat64(m.CopyTotal.WithLabelValues("failure"))

	m.RecordCopy(nil)
	m.RecordCopy(errors.New("no clipboard"))

	if got := testutil.ToFloat64(m.CopyTotal.WithLabelValues("success")); got != ok+1 {
		t.Errorf("expected %v successes, got %v", ok+1, got)
	}
	if got := testutil.ToFloat64(m.CopyTotal.WithLabelValues("failure")); got != failed+1 {
		t.Errorf("expected %v failures, got %v", failed+1, got)
	}
}
