package recorder

import "sync/atomic"

// track tracks readiness of one output track. Producers reserve a slot
// before scheduling an append; the writer releases it once the append has
// run. The track is ready while reserved slots stay below depth.
type track struct {
	depth    int32
	pending  atomic.Int32
	finished atomic.Bool
	samples  atomic.Int64
}

func newTrack(depth int32) *track {
	return &track{depth: depth}
}

// ready reports whether the track can accept another append.
func (t *track) ready() bool {
	return !t.finished.Load() && t.pending.Load() < t.depth
}

// reserve claims an append slot.
func (t *track) reserve() bool {
	if t.finished.Load() {
		return false
	}
	if t.pending.Add(1) > t.depth {
		t.pending.Add(-1)
		return false
	}
	return true
}

// release returns a slot claimed by reserve.
func (t *track) release() {
	t.pending.Add(-1)
}

// finish marks the track as no longer accepting data. Appends already
// queued are dropped when they run.
func (t *track) finish() {
	t.finished.Store(true)
}
