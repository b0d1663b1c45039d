package recorder

import (
	"bytes"
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/fogleman/gg"

	"github.com/user/videowriter/pkg/adapters/mjpegcodec"
	"github.com/user/videowriter/pkg/adapters/swgraphics"
	"github.com/user/videowriter/pkg/mocks"
	"github.com/user/videowriter/pkg/ports"
)

// drawPattern renders a deterministic scene for frame n.
func drawPattern(dc *gg.Context, n int) {
	w, h := float64(dc.Width()), float64(dc.Height())
	dc.SetRGB(0.1, 0.1, 0.2)
	dc.Clear()
	dc.SetRGB(0.9, 0.4, 0.1)
	dc.DrawCircle(float64(n*3%dc.Width()), h/2, h/4)
	dc.Fill()
	dc.SetRGB(0.2, 0.8, 0.3)
	dc.DrawRectangle(0, h-4, w*float64(n)/10, 4)
	dc.Fill()
}

func TestCapture_CacheAndReadbackProduceIdenticalOutput(t *testing.T) {
	record := func(cache bool) []ports.VideoSample {
		gfx := swgraphics.New(testSize.Width, testSize.Height)
		container := &mocks.ContainerWriter{}
		s, err := NewSession(testLocation, testSize, Dependencies{
			Graphics:  gfx,
			Container: container,
			Codec:     mjpegcodec.New(90),
		}, Options{EnableTextureCache: cache})
		if err != nil {
			t.Fatalf("NewSession failed: %v", err)
		}
		if err := s.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		for n := 0; n < 6; n++ {
			ts := time.Duration(n) * 40 * time.Millisecond
			if cache {
				h, ok := s.TextureTarget()
				if !ok {
					t.Fatal("no texture target on cache path")
				}
				dc, err := gfx.TextureCanvas(h)
				if err != nil {
					t.Fatalf("TextureCanvas failed: %v", err)
				}
				drawPattern(dc, n)
				appendFrame(t, s, ts, FromTexture(h))
			} else {
				drawPattern(gfx.Canvas(), n)
				appendFrame(t, s, ts, FromSurface())
			}
		}
		s.Finish()
		if res := wait(t, s); res.State != StateCompleted {
			t.Fatalf("expected Completed, got %v (%v)", res.State, res.Err)
		}
		video, _ := container.Snapshot()
		return video
	}

	readback := record(false)
	cached := record(true)

	if len(readback) != 6 || len(cached) != 6 {
		t.Fatalf("expected 6 samples on both paths, got %d and %d", len(readback), len(cached))
	}
	for i := range readback {
		if !bytes.Equal(readback[i].Data, cached[i].Data) {
			t.Errorf("frame %d differs between capture paths", i)
		}
		if readback[i].PTS != cached[i].PTS {
			t.Errorf("frame %d: PTS %v vs %v", i, readback[i].PTS, cached[i].PTS)
		}
	}
}

func TestCapture_TextureTargetRotates(t *testing.T) {
	gfx := &trackingGraphics{Context: swgraphics.New(testSize.Width, testSize.Height)}
	s, _ := NewSession(testLocation, testSize, Dependencies{
		Graphics:  gfx,
		Container: &mocks.ContainerWriter{},
		Codec:     &mocks.VideoCodec{},
	}, Options{EnableTextureCache: true})

	if _, ok := s.TextureTarget(); ok {
		t.Error("texture target available before Start")
	}
	s.Start()
	if !s.IsTextureCached() {
		t.Fatal("expected texture cache path")
	}

	first, ok := s.TextureTarget()
	if !ok || first == 0 {
		t.Fatalf("expected a texture target, got %d (%v)", first, ok)
	}
	if err := s.AppendFrame(0, FromTexture(first)); err != nil {
		t.Fatalf("AppendFrame failed: %v", err)
	}
	second, _ := s.TextureTarget()
	if second == first {
		t.Error("expected texture target to change after an accepted frame")
	}

	// Sources that are not the current target are refused.
	if err := s.AppendFrame(time.Millisecond, FromTexture(first)); !errors.Is(err, ErrInvalidSource) {
		t.Errorf("stale texture: expected ErrInvalidSource, got %v", err)
	}
	if err := s.AppendFrame(time.Millisecond, FromSurface()); !errors.Is(err, ErrInvalidSource) {
		t.Errorf("surface on cache path: expected ErrInvalidSource, got %v", err)
	}
	if now, _ := s.TextureTarget(); now != second {
		t.Error("rejected frame moved the texture target")
	}
	appendFrame(t, s, time.Millisecond, FromTexture(second))

	s.Finish()
	wait(t, s)

	if s.IsTextureCached() {
		t.Error("IsTextureCached true after completion")
	}
	gfx.mu.Lock()
	caches := gfx.caches
	gfx.mu.Unlock()
	if len(caches) != 1 {
		t.Fatalf("expected one texture cache, got %d", len(caches))
	}
	if n := caches[0].Bound(); n != 0 {
		t.Errorf("expected all textures unbound, got %d", n)
	}
	if _, err := caches[0].Bind(ports.NewPixelBuffer(1, 1, gfx.SurfaceFormat())); !errors.Is(err, swgraphics.ErrCacheClosed) {
		t.Errorf("expected cache to be closed, got %v", err)
	}
}

func TestCapture_TextureOnReadbackPath(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.sess.Start()
	defer func() { f.sess.Cancel(); wait(t, f.sess) }()

	if f.sess.IsTextureCached() {
		t.Error("expected readback path")
	}
	if _, ok := f.sess.TextureTarget(); ok {
		t.Error("unexpected texture target on readback path")
	}
	if err := f.sess.AppendFrame(0, FromTexture(7)); !errors.Is(err, ErrInvalidSource) {
		t.Errorf("expected ErrInvalidSource, got %v", err)
	}
}

func TestCapture_SwizzlesBGRA(t *testing.T) {
	for _, srgb := range []bool{false, true} {
		gfx := &bgraGraphics{
			Context: swgraphics.New(testSize.Width, testSize.Height),
			pixel:   [4]byte{10, 20, 30, 255},
			srgb:    srgb,
		}
		t.Run(gfx.SurfaceFormat().String(), func(t *testing.T) {
			container := &mocks.ContainerWriter{}
			s, _ := NewSession(testLocation, testSize, Dependencies{
				Graphics:  gfx,
				Container: container,
				Codec:     &mocks.VideoCodec{},
			}, DefaultOptions())

			if err := s.Start(); err != nil {
				t.Fatalf("Start failed: %v", err)
			}
			s.AddFrame(0, FromSurface())
			s.Finish()
			wait(t, s)

			video, _ := container.Snapshot()
			if len(video) != 1 {
				t.Fatalf("expected 1 sample, got %d", len(video))
			}
			if got := video[0].Data[:4]; !bytes.Equal(got, []byte{30, 20, 10, 255}) {
				t.Errorf("expected RGBA 30,20,10,255, got %v", got)
			}
		})
	}
}

func TestCapture_FromImageScales(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	s := f.sess
	s.Start()

	img := solidImage(testSize.Width*2, testSize.Height*2, 200, 100, 50)
	if err := s.AppendFrame(0, FromImage(img)); err != nil {
		t.Fatalf("AppendFrame failed: %v", err)
	}
	s.Finish()
	wait(t, s)

	video, _ := f.container.Snapshot()
	if len(video) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(video))
	}
	data := video[0].Data
	if len(data) != testSize.Width*testSize.Height*4 {
		t.Errorf("expected %dx%d frame, got %d bytes", testSize.Width, testSize.Height, len(data))
	}
	if !bytes.Equal(data[:4], []byte{200, 100, 50, 255}) {
		t.Errorf("unexpected first pixel %v", data[:4])
	}
}

func TestCapture_Backpressure(t *testing.T) {
	f := newFixture(t, Options{
		ExpectsRealTimeData: true,
		Audio:               &ports.AudioFormat{SampleRate: 8000, Channels: 1},
	})
	s := f.sess

	entered := make(chan struct{}, 8)
	gate := make(chan struct{})
	f.codec.EncodeFunc = func(img *image.RGBA, pts time.Duration) ([]ports.VideoSample, error) {
		entered <- struct{}{}
		<-gate
		return []ports.VideoSample{{Data: []byte{1}, PTS: pts, Keyframe: true}}, nil
	}

	s.Start()
	if err := s.AppendFrame(0, FromSurface()); err != nil {
		t.Fatalf("first frame: %v", err)
	}
	<-entered
	if err := s.AppendFrame(time.Millisecond, FromSurface()); err != nil {
		t.Fatalf("second frame: %v", err)
	}
	if err := s.AppendFrame(2*time.Millisecond, FromSurface()); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady with the writer busy, got %v", err)
	}
	if got := s.Stats().DroppedFrames; got != 1 {
		t.Errorf("expected 1 dropped frame, got %d", got)
	}

	// The audio track reports readiness independently.
	if err := s.AppendAudio(AudioBuffer{Samples: []int16{1, 2, 3}}); err != nil {
		t.Errorf("expected audio to be accepted while video is full, got %v", err)
	}

	close(gate)
	// The rejected timestamp was not recorded, so it can be retried.
	appendFrame(t, s, 2*time.Millisecond, FromSurface())
	s.Finish()
	if res := wait(t, s); res.State != StateCompleted {
		t.Fatalf("expected Completed, got %v (%v)", res.State, res.Err)
	}

	video, audio := f.container.Snapshot()
	if len(video) != 3 || len(audio) != 1 {
		t.Errorf("expected 3 video and 1 audio samples, got %d and %d", len(video), len(audio))
	}
}

func TestCapture_AudioBackpressureLeavesVideoReady(t *testing.T) {
	f := newFixture(t, Options{
		ExpectsRealTimeData: true,
		Audio:               &ports.AudioFormat{SampleRate: 8000, Channels: 1},
	})
	s := f.sess

	entered := make(chan struct{}, 8)
	gate := make(chan struct{})
	f.container.WriteAudioFunc = func(ports.AudioSample) error {
		entered <- struct{}{}
		<-gate
		return nil
	}

	s.Start()
	buf := AudioBuffer{Samples: []int16{1, 2, 3}}
	if err := s.AppendAudio(buf); err != nil {
		t.Fatalf("first audio buffer: %v", err)
	}
	<-entered
	for i := 1; i < int(realTimeAudioDepth); i++ {
		if err := s.AppendAudio(buf); err != nil {
			t.Fatalf("audio buffer %d: %v", i, err)
		}
	}
	if err := s.AppendAudio(buf); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady with the audio track full, got %v", err)
	}

	for i := 0; i < int(realTimeVideoDepth); i++ {
		if err := s.AppendFrame(time.Duration(i)*time.Millisecond, FromSurface()); err != nil {
			t.Errorf("video frame %d rejected while audio is full: %v", i, err)
		}
	}
	if got := s.Stats().DroppedFrames; got != 0 {
		t.Errorf("expected no dropped frames, got %d", got)
	}

	close(gate)
	s.Finish()
	if res := wait(t, s); res.State != StateCompleted {
		t.Fatalf("expected Completed, got %v (%v)", res.State, res.Err)
	}

	video, audio := f.container.Snapshot()
	if len(video) != int(realTimeVideoDepth) || len(audio) != int(realTimeAudioDepth) {
		t.Errorf("expected %d video and %d audio samples, got %d and %d",
			realTimeVideoDepth, realTimeAudioDepth, len(video), len(audio))
	}
}

func TestAudio_Validation(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.sess.Start()
	if err := f.sess.AppendAudio(AudioBuffer{Samples: []int16{1, 2}}); !errors.Is(err, ErrNoAudioTrack) {
		t.Errorf("expected ErrNoAudioTrack, got %v", err)
	}
	f.sess.Cancel()
	wait(t, f.sess)

	f = newFixture(t, Options{Audio: &ports.AudioFormat{SampleRate: 48000, Channels: 2}})
	f.sess.Start()
	defer func() { f.sess.Cancel(); wait(t, f.sess) }()
	if err := f.sess.AppendAudio(AudioBuffer{Samples: []int16{1, 2, 3}}); !errors.Is(err, ErrInvalidAudio) {
		t.Errorf("misaligned buffer: expected ErrInvalidAudio, got %v", err)
	}
	if err := f.sess.AppendAudio(AudioBuffer{}); !errors.Is(err, ErrInvalidAudio) {
		t.Errorf("empty buffer: expected ErrInvalidAudio, got %v", err)
	}
}

func TestAudio_PacksLittleEndianAndCopies(t *testing.T) {
	f := newFixture(t, Options{Audio: &ports.AudioFormat{SampleRate: 48000, Channels: 2}})
	s := f.sess
	s.Start()

	samples := []int16{1, -2}
	if !s.AddAudio(AudioBuffer{Samples: samples}) {
		t.Fatal("audio rejected")
	}
	samples[0] = 99
	s.AddFrame(0, FromSurface())
	s.Finish()
	wait(t, s)

	_, audio := f.container.Snapshot()
	if len(audio) != 1 {
		t.Fatalf("expected 1 audio sample, got %d", len(audio))
	}
	if !bytes.Equal(audio[0].Data, []byte{0x01, 0x00, 0xfe, 0xff}) {
		t.Errorf("unexpected PCM bytes %x", audio[0].Data)
	}
	if audio[0].Frames != 1 {
		t.Errorf("expected 1 frame, got %d", audio[0].Frames)
	}
	if got := s.Stats().AudioBuffers; got != 1 {
		t.Errorf("expected 1 audio buffer in stats, got %d", got)
	}
}

func TestSaveToLibrary(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	s := f.sess

	if err := s.SaveToLibrary(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState before completion, got %v", err)
	}
	s.Start()
	s.AddFrame(0, FromSurface())
	s.Finish()
	wait(t, s)

	if err := s.SaveToLibrary(context.Background()); err != nil {
		t.Fatalf("SaveToLibrary failed: %v", err)
	}
	select {
	case err := <-f.events.exported:
		if err != nil {
			t.Fatalf("export failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for export")
	}
	if paths := f.library.SavedPaths(); len(paths) != 1 || paths[0] != testLocation {
		t.Errorf("expected library to receive %q, got %v", testLocation, paths)
	}
}

func TestSaveToLibrary_Failure(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	saveErr := errors.New("library offline")
	f.library.SaveFunc = func(_ context.Context, _ string) error { return saveErr }

	f.sess.Start()
	f.sess.AddFrame(0, FromSurface())
	f.sess.Finish()
	wait(t, f.sess)

	f.sess.SaveToLibrary(context.Background())
	select {
	case err := <-f.events.exported:
		if !errors.Is(err, ErrExportFailure) || !errors.Is(err, saveErr) {
			t.Errorf("expected ErrExportFailure wrapping cause, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for export error")
	}
	if st := f.sess.State(); st != StateCompleted {
		t.Errorf("export failure changed state to %v", st)
	}
}

func TestSaveToLibrary_NoLibrary(t *testing.T) {
	s, _ := NewSession(testLocation, testSize, Dependencies{
		Graphics:  swgraphics.New(testSize.Width, testSize.Height),
		Container: &mocks.ContainerWriter{},
		Codec:     &mocks.VideoCodec{},
	}, DefaultOptions())
	s.Start()
	s.AddFrame(0, FromSurface())
	s.Finish()
	wait(t, s)

	if err := s.SaveToLibrary(context.Background()); !errors.Is(err, ErrNoLibrary) {
		t.Errorf("expected ErrNoLibrary, got %v", err)
	}
}
