package recorder

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
)

func TestSerialExecutor_RunsInOrder(t *testing.T) {
	e := newSerialExecutor(8)
	defer e.stop()

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		if !e.trySubmit(func() { got = append(got, i) }) {
			t.Fatalf("trySubmit %d rejected", i)
		}
	}
	if err := e.call(func() error { return nil }); err != nil {
		t.Fatalf("call failed: %v", err)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("jobs ran out of order: %v", got)
		}
	}
}

func TestSerialExecutor_FullQueue(t *testing.T) {
	e := newSerialExecutor(1)
	defer e.stop()

	block := make(chan struct{})
	started := make(chan struct{})
	e.trySubmit(func() { close(started); <-block })
	<-started

	if !e.trySubmit(func() {}) {
		t.Fatal("expected one queued job to fit")
	}
	if e.trySubmit(func() {}) {
		t.Error("expected trySubmit to fail on a full queue")
	}
	close(block)
}

func TestSerialExecutor_Stop(t *testing.T) {
	e := newSerialExecutor(1)
	e.stop()
	e.stop()

	if e.trySubmit(func() {}) {
		t.Error("trySubmit accepted a job after stop")
	}
	if err := e.call(func() error { return nil }); err != errExecutorStopped {
		t.Errorf("expected errExecutorStopped, got %v", err)
	}
}

func TestTrack_Readiness(t *testing.T) {
	tr := newTrack(2)
	if !tr.ready() {
		t.Fatal("new track not ready")
	}
	if !tr.reserve() || !tr.reserve() {
		t.Fatal("expected two reservations to succeed")
	}
	if tr.ready() || tr.reserve() {
		t.Error("track accepted more than its depth")
	}
	tr.release()
	if !tr.reserve() {
		t.Error("reserve failed after release")
	}

	tr.release()
	tr.finish()
	if tr.ready() || tr.reserve() {
		t.Error("finished track still accepts data")
	}
}

func TestTrack_ConcurrentReserve(t *testing.T) {
	tr := newTrack(3)
	var ok atomic.Int32
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			if tr.reserve() {
				ok.Add(1)
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out")
		}
	}
	if n := ok.Load(); n != 3 {
		t.Errorf("expected 3 reservations, got %d", n)
	}
}

func TestBufferPool(t *testing.T) {
	p := newBufferPool(Size{Width: 4, Height: 2}, gputypes.TextureFormatRGBA8Unorm, 2)

	a, fresh, ok := p.get()
	if !ok || !fresh {
		t.Fatalf("expected fresh buffer, got fresh=%v ok=%v", fresh, ok)
	}
	if len(a.Pix) != 4*2*4 || a.Stride != 16 {
		t.Errorf("unexpected buffer layout: %d bytes, stride %d", len(a.Pix), a.Stride)
	}
	if _, _, ok := p.get(); !ok {
		t.Fatal("expected second buffer")
	}
	if _, _, ok := p.get(); ok {
		t.Error("pool exceeded its cap")
	}

	p.put(a)
	b, fresh, ok := p.get()
	if !ok || fresh || b != a {
		t.Errorf("expected recycled buffer, got fresh=%v ok=%v same=%v", fresh, ok, b == a)
	}

	p.discard()
	if _, fresh, ok := p.get(); !ok || !fresh {
		t.Errorf("expected allocation after discard, got fresh=%v ok=%v", fresh, ok)
	}
}

func TestOptions_Depths(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		video int32
		audio int32
		pool  int
	}{
		{"real time readback", Options{ExpectsRealTimeData: true}, 2, 4, 2},
		{"real time cache", Options{ExpectsRealTimeData: true, EnableTextureCache: true}, 2, 4, 3},
		{"buffered readback", Options{}, 16, 32, 16},
		{"buffered cache", Options{EnableTextureCache: true}, 16, 32, 17},
		{"explicit pool", Options{PoolSize: 5}, 16, 32, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.opts.videoDepth(); got != tt.video {
				t.Errorf("videoDepth = %d, want %d", got, tt.video)
			}
			if got := tt.opts.audioDepth(); got != tt.audio {
				t.Errorf("audioDepth = %d, want %d", got, tt.audio)
			}
			if got := tt.opts.poolSize(); got != tt.pool {
				t.Errorf("poolSize = %d, want %d", got, tt.pool)
			}
		})
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateIdle:      "idle",
		StateRecording: "recording",
		StateFinishing: "finishing",
		StateCompleted: "completed",
		StateCancelled: "cancelled",
		StateFailed:    "failed",
		State(99):      "unknown",
	}
	for st, want := range tests {
		if got := st.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", st, got, want)
		}
	}
	if StateRecording.Terminal() || !StateFailed.Terminal() {
		t.Error("unexpected Terminal result")
	}
}

func TestAudioBuffer_Frames(t *testing.T) {
	b := AudioBuffer{Samples: make([]int16, 6)}
	if got := b.Frames(2); got != 3 {
		t.Errorf("Frames(2) = %d, want 3", got)
	}
	if got := b.Frames(0); got != 0 {
		t.Errorf("Frames(0) = %d, want 0", got)
	}
}
