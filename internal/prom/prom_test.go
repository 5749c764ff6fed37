package prom

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHelpersAreNoopsBeforeInit(t *testing.T) {
	IncApplied("StakeStart")
	IncRejected("StakeEnd", "redundant")
	IncDecodeFailure()
	SetCursorBlock(10)
	ObserveApply(time.Millisecond)
}

func TestCountersAfterInit(t *testing.T) {
	Init()
	Init()

	IncApplied("StakeStart")
	IncApplied("StakeStart")
	IncRejected("StakeEnd", "redundant")
	SetCursorBlock(12345)

	if got := testutil.ToFloat64(eventsApplied.WithLabelValues("StakeStart")); got != 2 {
		t.Fatalf("applied mismatch: %v", got)
	}
	if got := testutil.ToFloat64(eventsRejected.WithLabelValues("StakeEnd", "redundant")); got != 1 {
		t.Fatalf("rejected mismatch: %v", got)
	}
	if got := testutil.ToFloat64(cursorBlock); got != 12345 {
		t.Fatalf("cursor mismatch: %v", got)
	}
}
