package ports

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// TextureHandle identifies a GPU texture owned by a GraphicsContext.
// Zero is never a valid handle.
type TextureHandle uint32

// PixelBuffer is a CPU-visible frame buffer.
// Pix holds Height rows of Stride bytes in the given Format.
type PixelBuffer struct {
	Width  int
	Height int
	Stride int
	Format gputypes.TextureFormat
	Pix    []byte
}

// NewPixelBuffer allocates a tightly packed 4-byte-per-pixel buffer.
func NewPixelBuffer(width, height int, format gputypes.TextureFormat) *PixelBuffer {
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Stride: width * 4,
		Format: format,
		Pix:    make([]byte, width*height*4),
	}
}

// GraphicsContext abstracts the rendering engine that produces frames.
//
// The host application owns the context; recorders hold a non-owning
// reference to it for the lifetime of a session and never close it.
type GraphicsContext interface {
	// SurfaceFormat must be an 8-bit RGBA or BGRA layout; sessions refuse
	// to start otherwise. AdapterInfo is logged when a session starts.
	gpucontext.DeviceProvider

	// ReadPixels synchronously copies the top-left dst.Width x dst.Height
	// region of the current rendering surface into dst.
	// dst.Format is always SurfaceFormat().
	ReadPixels(dst *PixelBuffer) error

	// NewTextureCache creates a cache that can expose pixel buffers as
	// textures without copying.
	NewTextureCache() (TextureCache, error)
}

// TextureCache exposes CPU pixel buffers to the GPU as render targets.
type TextureCache interface {
	// Bind creates a texture whose storage aliases buf.Pix.
	// Rendering into the texture writes directly into buf.
	Bind(buf *PixelBuffer) (TextureHandle, error)

	// Unbind releases the texture created by Bind. The buffer is untouched.
	Unbind(h TextureHandle)

	// Flush waits for pending GPU work on bound textures to complete.
	Flush() error

	// Close releases the cache. All bound textures must be unbound first.
	Close() error
}
