package recorder

import (
	"fmt"
	"sync"

	"github.com/user/videowriter/pkg/ports"
)

// frameCapturer turns a frame source into a pixel buffer for the writer.
type frameCapturer interface {
	// capture runs on the producer goroutine.
	capture(src FrameSource) (*ports.PixelBuffer, error)
	// recycle runs on the writer once the buffer has been encoded.
	recycle(buf *ports.PixelBuffer)
	// release frees pooled and GPU resources. Later calls are no-ops.
	release() error
}

// textureCacheBinding is the zero-copy capture path. Every pooled buffer is
// bound to a texture through the context's texture cache; the renderer draws
// into the current target and AddFrame hands that buffer to the writer as is.
//
// The graphics context is referenced, not owned.
type textureCacheBinding struct {
	gfx   ports.GraphicsContext
	cache ports.TextureCache
	pool  *bufferPool

	mu       sync.Mutex
	handles  map[*ports.PixelBuffer]ports.TextureHandle
	current  *ports.PixelBuffer
	released bool
}

func newTextureCacheBinding(gfx ports.GraphicsContext, size Size, poolSize int) (*textureCacheBinding, error) {
	cache, err := gfx.NewTextureCache()
	if err != nil {
		return nil, fmt.Errorf("create texture cache: %w", err)
	}
	b := &textureCacheBinding{
		gfx:     gfx,
		cache:   cache,
		pool:    newBufferPool(size, gfx.SurfaceFormat(), poolSize),
		handles: make(map[*ports.PixelBuffer]ports.TextureHandle),
	}
	b.current, err = b.acquireLocked()
	if err != nil {
		cache.Close()
		return nil, fmt.Errorf("bind render target: %w", err)
	}
	return b, nil
}

// target returns the texture the renderer should draw the next frame into.
func (b *textureCacheBinding) target() (ports.TextureHandle, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released || b.current == nil {
		return 0, false
	}
	return b.handles[b.current], true
}

func (b *textureCacheBinding) capture(src FrameSource) (*ports.PixelBuffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return nil, ErrInvalidState
	}
	if src.Texture == 0 || b.current == nil || b.handles[b.current] != src.Texture {
		return nil, fmt.Errorf("texture %d is not the current render target: %w", src.Texture, ErrInvalidSource)
	}

	next, err := b.acquireLocked()
	if err != nil {
		return nil, err
	}
	if err := b.cache.Flush(); err != nil {
		b.pool.put(next)
		return nil, fmt.Errorf("flush texture cache: %w", err)
	}

	frame := b.current
	b.current = next
	return frame, nil
}

// acquireLocked takes a buffer from the pool, binding a texture to it when
// it was just allocated.
func (b *textureCacheBinding) acquireLocked() (*ports.PixelBuffer, error) {
	buf, fresh, ok := b.pool.get()
	if !ok {
		return nil, ErrNotReady
	}
	if fresh {
		h, err := b.cache.Bind(buf)
		if err != nil {
			b.pool.discard()
			return nil, fmt.Errorf("bind texture: %w", err)
		}
		b.handles[buf] = h
	}
	return buf, nil
}

func (b *textureCacheBinding) recycle(buf *ports.PixelBuffer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return
	}
	b.pool.put(buf)
}

func (b *textureCacheBinding) release() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return nil
	}
	b.released = true
	for _, h := range b.handles {
		b.cache.Unbind(h)
	}
	b.handles = nil
	b.current = nil
	return b.cache.Close()
}
