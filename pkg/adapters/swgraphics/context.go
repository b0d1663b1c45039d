// Package swgraphics provides a CPU graphics context backed by the gg library.
//
// It stands in for a GPU device: the surface is an RGBA image that callers
// draw on through Canvas, and texture cache bindings alias pixel buffers so
// drawing through TextureCanvas writes straight into recorder buffers.
package swgraphics

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/fogleman/gg"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/user/videowriter/pkg/ports"
)

var (
	// ErrUnknownTexture is returned for handles that are not bound.
	ErrUnknownTexture = errors.New("swgraphics: unknown texture")

	// ErrCacheClosed is returned when using a closed texture cache.
	ErrCacheClosed = errors.New("swgraphics: texture cache closed")
)

// AdapterName is reported through AdapterInfo.
const AdapterName = "swgraphics"

// Context implements ports.GraphicsContext in software.
type Context struct {
	surface *image.RGBA
	dc      *gg.Context

	mu         sync.Mutex
	nextHandle ports.TextureHandle
	textures   map[ports.TextureHandle]*ports.PixelBuffer
}

// New creates a context with a surface of the given size.
func New(width, height int) *Context {
	surface := image.NewRGBA(image.Rect(0, 0, width, height))
	return &Context{
		surface:  surface,
		dc:       gg.NewContextForRGBA(surface),
		textures: make(map[ports.TextureHandle]*ports.PixelBuffer),
	}
}

// Device returns the context itself. Textures are created and drawn through
// it directly.
func (c *Context) Device() gpucontext.Device { return c }

// Queue returns the context itself; drawing completes synchronously.
func (c *Context) Queue() gpucontext.Queue { return c }

// Adapter returns nil. There is no physical adapter.
func (c *Context) Adapter() gpucontext.Adapter { return nil }

// AdapterInfo reports a software adapter.
func (c *Context) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: AdapterName, Type: gpucontext.AdapterTypeSoftware}
}

// SurfaceFormat returns RGBA8Unorm, the layout of image.RGBA.
func (c *Context) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatRGBA8Unorm }

// Canvas returns the drawing context for the surface.
func (c *Context) Canvas() *gg.Context {
	return c.dc
}

// Surface returns the surface image.
func (c *Context) Surface() *image.RGBA {
	return c.surface
}

// ReadPixels copies the top-left region of the surface into dst.
func (c *Context) ReadPixels(dst *ports.PixelBuffer) error {
	b := c.surface.Rect
	if dst.Width > b.Dx() || dst.Height > b.Dy() {
		return fmt.Errorf("swgraphics: read %dx%d from %dx%d surface", dst.Width, dst.Height, b.Dx(), b.Dy())
	}
	row := dst.Width * 4
	for y := 0; y < dst.Height; y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+row], c.surface.Pix[y*c.surface.Stride:])
	}
	return nil
}

// TextureCanvas returns a drawing context that renders into the bound
// texture h.
func (c *Context) TextureCanvas(h ports.TextureHandle) (*gg.Context, error) {
	c.mu.Lock()
	buf, ok := c.textures[h]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTexture, h)
	}
	img := &image.RGBA{
		Pix:    buf.Pix,
		Stride: buf.Stride,
		Rect:   image.Rect(0, 0, buf.Width, buf.Height),
	}
	return gg.NewContextForRGBA(img), nil
}

// NewTextureCache creates a texture cache on this context.
func (c *Context) NewTextureCache() (ports.TextureCache, error) {
	return &TextureCache{ctx: c, bound: make(map[ports.TextureHandle]bool)}, nil
}

// TextureCache implements ports.TextureCache.
type TextureCache struct {
	ctx *Context

	mu     sync.Mutex
	bound  map[ports.TextureHandle]bool
	closed bool
}

// Bind exposes buf as a texture.
func (t *TextureCache) Bind(buf *ports.PixelBuffer) (ports.TextureHandle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, ErrCacheClosed
	}
	if buf.Format != gputypes.TextureFormatRGBA8Unorm {
		return 0, fmt.Errorf("swgraphics: unsupported texture format %v", buf.Format)
	}

	t.ctx.mu.Lock()
	t.ctx.nextHandle++
	h := t.ctx.nextHandle
	t.ctx.textures[h] = buf
	t.ctx.mu.Unlock()

	t.bound[h] = true
	return h, nil
}

// Unbind releases the texture h.
func (t *TextureCache) Unbind(h ports.TextureHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.bound[h] {
		return
	}
	delete(t.bound, h)
	t.ctx.mu.Lock()
	delete(t.ctx.textures, h)
	t.ctx.mu.Unlock()
}

// Flush is a no-op; drawing is synchronous.
func (t *TextureCache) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrCacheClosed
	}
	return nil
}

// Close releases the cache.
func (t *TextureCache) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	if len(t.bound) > 0 {
		return fmt.Errorf("swgraphics: closing cache with %d bound textures", len(t.bound))
	}
	t.closed = true
	return nil
}

// Bound returns the number of textures currently bound.
func (t *TextureCache) Bound() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.bound)
}

var _ ports.GraphicsContext = (*Context)(nil)
var _ ports.TextureCache = (*TextureCache)(nil)
