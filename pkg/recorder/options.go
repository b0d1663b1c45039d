package recorder

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/user/videowriter/pkg/ports"
)

// Append queue depths per track. Real-time mode keeps queues shallow so
// backpressure is reported before the writer falls behind.
const (
	realTimeVideoDepth = 2
	realTimeAudioDepth = 4
	bufferedVideoDepth = 16
	bufferedAudioDepth = 32

	// controlSlack reserves executor capacity for finish and cancel jobs.
	controlSlack = 4
)

// Size is a frame size in pixels.
type Size struct {
	Width  int
	Height int
}

// String returns the size as WxH.
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Options configures a recording session.
type Options struct {
	// EnableTextureCache selects the zero-copy capture path: the renderer
	// draws into TextureTarget() and passes that handle to AddFrame.
	// When false, frames are read back from the surface or copied from a
	// CPU image.
	EnableTextureCache bool

	// ExpectsRealTimeData keeps track queues shallow so AddFrame and AddAudio
	// report not-ready early instead of queueing behind a slow writer.
	ExpectsRealTimeData bool

	// Audio configures the audio track. Nil records video only.
	Audio *ports.AudioFormat

	// PoolSize caps the number of pooled pixel buffers.
	// Zero sizes the pool from the video queue depth.
	PoolSize int
}

// DefaultOptions returns options for a real-time, video-only session using
// the readback path.
func DefaultOptions() Options {
	return Options{
		ExpectsRealTimeData: true,
	}
}

func (o Options) videoDepth() int32 {
	if o.ExpectsRealTimeData {
		return realTimeVideoDepth
	}
	return bufferedVideoDepth
}

func (o Options) audioDepth() int32 {
	if o.ExpectsRealTimeData {
		return realTimeAudioDepth
	}
	return bufferedAudioDepth
}

// poolSize returns the buffer cap. The cache path needs one buffer more than
// the queue depth for the texture the renderer is currently drawing into.
func (o Options) poolSize() int {
	if o.PoolSize > 0 {
		return o.PoolSize
	}
	n := int(o.videoDepth())
	if o.EnableTextureCache {
		n++
	}
	return n
}

// Dependencies are the collaborators a session calls into.
type Dependencies struct {
	// Graphics provides the rendering surface and texture cache. The session
	// references it but never closes it.
	Graphics ports.GraphicsContext

	// Container and Codec are owned by the session from Start until it
	// reaches a terminal state.
	Container ports.ContainerWriter
	Codec     ports.VideoCodec

	// Library is optional; SaveToLibrary fails without it.
	Library ports.MediaLibrary

	// Observer is optional; defaults to NopObserver.
	Observer Observer

	// Logger is optional; defaults to a no-op logger.
	Logger ports.Logger
}

// ParseLocation normalizes an output location given as a plain path or a
// file URL into a filesystem path.
func ParseLocation(location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", fmt.Errorf("empty output location")
	}
	if !strings.HasPrefix(strings.ToLower(location), "file:") {
		return location, nil
	}
	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parse output location: %w", err)
	}
	return locationFromURL(u)
}

func locationFromURL(u *url.URL) (string, error) {
	if u == nil {
		return "", fmt.Errorf("nil output location")
	}
	if u.Scheme != "" && !strings.EqualFold(u.Scheme, "file") {
		return "", fmt.Errorf("unsupported output location scheme %q", u.Scheme)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("remote output location %q", u.Host)
	}
	if u.Path == "" {
		return "", fmt.Errorf("output location has no path")
	}
	return u.Path, nil
}
