package engine

import (
	"time"

	"github.com/gammazero/deque"
)

// fpsEstimator derives the achieved frame rate from a sliding window
// of draw timestamps.
type fpsEstimator struct {
	samples deque.Deque[time.Time]
	window  time.Duration
}

func newFPSEstimator(window time.Duration) *fpsEstimator {
	return &fpsEstimator{window: window}
}

func (e *fpsEstimator) Tick(now time.Time) {
	e.samples.PushBack(now)
	for e.samples.Len() > 0 && now.Sub(e.samples.Front()) > e.window {
		e.samples.PopFront()
	}
}

func (e *fpsEstimator) Estimate() float64 {
	n := e.samples.Len()
	if n < 2 {
		return 0
	}
	span := e.samples.Back().Sub(e.samples.Front())
	if span <= 0 {
		return 0
	}
	return float64(n-1) / span.Seconds()
}

func (e *fpsEstimator) Reset() {
	e.samples.Clear()
}
