// Package mjpegcodec encodes frames as independent JPEG images.
package mjpegcodec

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	"github.com/user/videowriter/pkg/ports"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 85

// Codec implements ports.VideoCodec. Every sample is a keyframe.
type Codec struct {
	quality int
	width   int
	height  int
	begun   bool
	buf     bytes.Buffer
}

// New creates a codec with the given JPEG quality (1-100).
// Out-of-range values select DefaultQuality.
func New(quality int) *Codec {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	return &Codec{quality: quality}
}

func (c *Codec) Name() string { return ports.CodecJPEG }

// Quality returns the configured JPEG quality.
func (c *Codec) Quality() int { return c.quality }

func (c *Codec) Begin(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("mjpegcodec: invalid size %dx%d", width, height)
	}
	c.width, c.height = width, height
	c.begun = true
	return nil
}

func (c *Codec) Encode(img *image.RGBA, pts time.Duration) ([]ports.VideoSample, error) {
	if !c.begun {
		return nil, fmt.Errorf("mjpegcodec: encode before begin")
	}
	if b := img.Bounds(); b.Dx() != c.width || b.Dy() != c.height {
		return nil, fmt.Errorf("mjpegcodec: frame is %dx%d, want %dx%d", b.Dx(), b.Dy(), c.width, c.height)
	}

	c.buf.Reset()
	if err := jpeg.Encode(&c.buf, img, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, fmt.Errorf("encode JPEG: %w", err)
	}
	data := make([]byte, c.buf.Len())
	copy(data, c.buf.Bytes())
	return []ports.VideoSample{{Data: data, PTS: pts, Keyframe: true}}, nil
}

func (c *Codec) Flush() ([]ports.VideoSample, error) {
	return nil, nil
}

func (c *Codec) Close() error {
	c.begun = false
	return nil
}

var _ ports.VideoCodec = (*Codec)(nil)
