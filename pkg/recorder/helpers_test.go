package recorder

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/user/videowriter/pkg/adapters/swgraphics"
	"github.com/user/videowriter/pkg/mocks"
	"github.com/user/videowriter/pkg/ports"
)

const testLocation = "/tmp/out.mp4"

var testSize = Size{Width: 32, Height: 24}

// events records observer notifications.
type events struct {
	mu        sync.Mutex
	completed []string
	cancelled int
	saved     int
	errs      []error
	exported  chan error
}

func newEvents() *events {
	return &events{exported: make(chan error, 4)}
}

func (e *events) OnComplete(location string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.completed = append(e.completed, location)
}

func (e *events) OnCancelled() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelled++
}

func (e *events) OnSavedToLibrary() {
	e.mu.Lock()
	e.saved++
	e.mu.Unlock()
	e.exported <- nil
}

func (e *events) OnError(err error) {
	e.mu.Lock()
	e.errs = append(e.errs, err)
	e.mu.Unlock()
	if errors.Is(err, ErrExportFailure) {
		e.exported <- err
	}
}

func (e *events) snapshot() (completed []string, cancelled int, errs []error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append(completed, e.completed...), e.cancelled, append(errs, e.errs...)
}

// fixture bundles a session with its collaborators.
type fixture struct {
	sess      *Session
	gfx       *swgraphics.Context
	container *mocks.ContainerWriter
	codec     *mocks.VideoCodec
	library   *mocks.MediaLibrary
	events    *events
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		gfx:       swgraphics.New(testSize.Width, testSize.Height),
		container: &mocks.ContainerWriter{},
		codec:     &mocks.VideoCodec{},
		library:   &mocks.MediaLibrary{},
		events:    newEvents(),
	}
	sess, err := NewSession(testLocation, testSize, Dependencies{
		Graphics:  f.gfx,
		Container: f.container,
		Codec:     f.codec,
		Library:   f.library,
		Observer:  f.events,
	}, opts)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	f.sess = sess
	return f
}

func bufferedOptions() Options {
	return Options{ExpectsRealTimeData: false}
}

// appendFrame appends a readback frame, retrying while the writer catches up.
func appendFrame(t *testing.T, s *Session, ts time.Duration, src FrameSource) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		err := s.AppendFrame(ts, src)
		if err == nil {
			return
		}
		if !errors.Is(err, ErrNotReady) || time.Now().After(deadline) {
			t.Fatalf("AppendFrame(%v) failed: %v", ts, err)
		}
		time.Sleep(time.Millisecond)
	}
}

func wait(t *testing.T, s *Session) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := s.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	return res
}

// eventually polls cond until it holds or the test times out.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// trackingGraphics records the texture caches created through it.
type trackingGraphics struct {
	*swgraphics.Context
	mu     sync.Mutex
	caches []*swgraphics.TextureCache
}

func (g *trackingGraphics) NewTextureCache() (ports.TextureCache, error) {
	c, err := g.Context.NewTextureCache()
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.caches = append(g.caches, c.(*swgraphics.TextureCache))
	g.mu.Unlock()
	return c, nil
}

// bgraGraphics reports a BGRA surface and fills read-back buffers with a
// fixed BGRA pixel.
type bgraGraphics struct {
	*swgraphics.Context
	pixel [4]byte // B, G, R, A
	srgb  bool
}

func (g *bgraGraphics) SurfaceFormat() gputypes.TextureFormat {
	if g.srgb {
		return gputypes.TextureFormatBGRA8UnormSrgb
	}
	return gputypes.TextureFormatBGRA8Unorm
}

func (g *bgraGraphics) ReadPixels(dst *ports.PixelBuffer) error {
	for i := 0; i+3 < len(dst.Pix); i += 4 {
		copy(dst.Pix[i:i+4], g.pixel[:])
	}
	return nil
}

// formatGraphics reports an arbitrary surface format.
type formatGraphics struct {
	*swgraphics.Context
	format gputypes.TextureFormat
}

func (g *formatGraphics) SurfaceFormat() gputypes.TextureFormat {
	return g.format
}

func solidImage(w, h int, r, g, b uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = r, g, b, 255
	}
	return img
}
