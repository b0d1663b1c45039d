package recorder

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"

	"github.com/user/videowriter/pkg/ports"
)

// FrameSource identifies where the pixels of a frame come from.
type FrameSource struct {
	// Texture is the render target returned by Session.TextureTarget.
	// Used on the texture cache path.
	Texture ports.TextureHandle

	// Image is a CPU-side frame. Used on the readback path; when nil the
	// graphics context's surface is read instead.
	Image image.Image
}

// FromTexture returns a source for the texture cache path.
func FromTexture(h ports.TextureHandle) FrameSource {
	return FrameSource{Texture: h}
}

// FromSurface returns a source that reads back the current surface.
func FromSurface() FrameSource {
	return FrameSource{}
}

// FromImage returns a source that copies img. Images of a different size
// are scaled to the session's frame size.
func FromImage(img image.Image) FrameSource {
	return FrameSource{Image: img}
}

// readbackCapturer is the fallback path: pixels are copied into a pooled
// CPU buffer on the producer goroutine.
type readbackCapturer struct {
	gfx  ports.GraphicsContext
	pool *bufferPool
}

func newReadbackCapturer(gfx ports.GraphicsContext, size Size, poolSize int) *readbackCapturer {
	return &readbackCapturer{
		gfx:  gfx,
		pool: newBufferPool(size, gfx.SurfaceFormat(), poolSize),
	}
}

func (r *readbackCapturer) capture(src FrameSource) (*ports.PixelBuffer, error) {
	if src.Texture != 0 {
		return nil, fmt.Errorf("texture %d given without texture cache: %w", src.Texture, ErrInvalidSource)
	}
	buf, _, ok := r.pool.get()
	if !ok {
		return nil, ErrNotReady
	}

	if src.Image != nil {
		buf.Format = gputypes.TextureFormatRGBA8Unorm
		drawInto(buf, src.Image)
		return buf, nil
	}

	buf.Format = r.gfx.SurfaceFormat()
	if err := r.gfx.ReadPixels(buf); err != nil {
		r.pool.put(buf)
		return nil, fmt.Errorf("read pixels: %w", err)
	}
	return buf, nil
}

func (r *readbackCapturer) recycle(buf *ports.PixelBuffer) {
	r.pool.put(buf)
}

func (r *readbackCapturer) release() error {
	return nil
}

// drawInto copies img into an RGBA buffer, scaling when sizes differ.
func drawInto(buf *ports.PixelBuffer, img image.Image) {
	dst := &image.RGBA{
		Pix:    buf.Pix,
		Stride: buf.Stride,
		Rect:   image.Rect(0, 0, buf.Width, buf.Height),
	}
	sb := img.Bounds()
	if sb.Dx() == buf.Width && sb.Dy() == buf.Height {
		draw.Draw(dst, dst.Rect, img, sb.Min, draw.Src)
		return
	}
	draw.NearestNeighbor.Scale(dst, dst.Rect, img, sb, draw.Src, nil)
}

// AddFrame appends a frame at timestamp ts, measured on the caller's
// monotonic clock. It reports false when the frame was not accepted; see
// AppendFrame for the reason.
func (s *Session) AddFrame(ts time.Duration, src FrameSource) bool {
	return s.AppendFrame(ts, src) == nil
}

// AppendFrame appends a frame at timestamp ts and returns why a frame was
// rejected. The first accepted frame defines time zero.
//
// AppendFrame never waits for the writer. It must not be called
// concurrently with itself.
func (s *Session) AppendFrame(ts time.Duration, src FrameSource) error {
	if State(s.state.Load()) != StateRecording {
		return ErrInvalidState
	}
	if ts < 0 {
		return fmt.Errorf("negative timestamp %v: %w", ts, ErrNonMonotonicTimestamp)
	}
	if s.hasFrame && ts <= s.lastTS {
		return fmt.Errorf("timestamp %v after %v: %w", ts, s.lastTS, ErrNonMonotonicTimestamp)
	}

	if !s.video.reserve() {
		s.dropped.Add(1)
		return ErrNotReady
	}
	buf, err := s.capturer.capture(src)
	if err != nil {
		s.video.release()
		if errors.Is(err, ErrNotReady) {
			s.dropped.Add(1)
		}
		return err
	}

	zero := s.zeroTS
	if !s.hasFrame {
		zero = ts
	}
	pts := ts - zero
	if !s.exec.trySubmit(func() { s.writeFrame(buf, pts) }) {
		s.capturer.recycle(buf)
		s.video.release()
		s.dropped.Add(1)
		return ErrNotReady
	}

	s.zeroTS = zero
	s.lastTS = ts
	s.hasFrame = true
	return nil
}

// writeFrame encodes and appends one frame. Runs on the writer.
func (s *Session) writeFrame(buf *ports.PixelBuffer, pts time.Duration) {
	defer s.video.release()
	defer s.capturer.recycle(buf)

	if s.video.finished.Load() {
		return
	}
	samples, err := s.codec.Encode(s.rgbaView(buf), pts)
	if err != nil {
		s.fail(fmt.Errorf("encode frame at %v: %w", pts, err))
		return
	}
	if err := s.writeVideoSamples(samples); err != nil {
		s.fail(err)
		return
	}
	n := s.video.samples.Add(1)
	s.log.Debug("Frame %d appended at %v", n, pts)
}

func (s *Session) writeVideoSamples(samples []ports.VideoSample) error {
	for _, sample := range samples {
		if err := s.container.WriteVideo(sample); err != nil {
			return fmt.Errorf("write video sample at %v: %w", sample.PTS, err)
		}
	}
	return nil
}

// rgbaView presents buf as RGBA. RGBA buffers are wrapped without copying;
// BGRA buffers are swizzled into a scratch image owned by the writer.
func (s *Session) rgbaView(buf *ports.PixelBuffer) *image.RGBA {
	rect := image.Rect(0, 0, buf.Width, buf.Height)
	if !isBGRA(buf.Format) {
		return &image.RGBA{Pix: buf.Pix, Stride: buf.Stride, Rect: rect}
	}

	if s.scratch == nil || s.scratch.Rect != rect {
		s.scratch = image.NewRGBA(rect)
	}
	dst := s.scratch
	for y := 0; y < buf.Height; y++ {
		src := buf.Pix[y*buf.Stride : y*buf.Stride+buf.Width*4]
		row := dst.Pix[y*dst.Stride : y*dst.Stride+buf.Width*4]
		for i := 0; i < len(src); i += 4 {
			row[i] = src[i+2]
			row[i+1] = src[i+1]
			row[i+2] = src[i]
			row[i+3] = src[i+3]
		}
	}
	return dst
}

// checkSurfaceFormat accepts the 8-bit, four-channel layouts the capture
// paths can hand to a codec.
func checkSurfaceFormat(f gputypes.TextureFormat) error {
	switch f {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb:
		return nil
	}
	return fmt.Errorf("surface format %v: %w", f, ErrUnsupportedSurface)
}

func isBGRA(f gputypes.TextureFormat) bool {
	return f == gputypes.TextureFormatBGRA8Unorm || f == gputypes.TextureFormatBGRA8UnormSrgb
}
