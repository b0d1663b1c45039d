package recorder

import (
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/user/videowriter/pkg/ports"
)

// bufferPool recycles fixed-size pixel buffers up to a cap.
type bufferPool struct {
	width     int
	height    int
	format    gputypes.TextureFormat
	max       int32
	allocated atomic.Int32
	free      chan *ports.PixelBuffer
}

func newBufferPool(size Size, format gputypes.TextureFormat, max int) *bufferPool {
	if max < 1 {
		max = 1
	}
	return &bufferPool{
		width:  size.Width,
		height: size.Height,
		format: format,
		max:    int32(max),
		free:   make(chan *ports.PixelBuffer, max),
	}
}

// get returns a free buffer, allocating one when none is free and the cap
// allows. fresh reports a new allocation; ok is false when the pool is
// exhausted.
func (p *bufferPool) get() (buf *ports.PixelBuffer, fresh, ok bool) {
	select {
	case buf = <-p.free:
		return buf, false, true
	default:
	}
	if p.allocated.Add(1) > p.max {
		p.allocated.Add(-1)
		return nil, false, false
	}
	return ports.NewPixelBuffer(p.width, p.height, p.format), true, true
}

// put returns a buffer obtained from get.
func (p *bufferPool) put(buf *ports.PixelBuffer) {
	select {
	case p.free <- buf:
	default:
		p.allocated.Add(-1)
	}
}

// discard forgets a buffer obtained from get without recycling it.
func (p *bufferPool) discard() {
	p.allocated.Add(-1)
}
