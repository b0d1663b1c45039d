package mocks

import (
	"image"
	"sync"
	"time"

	"github.com/user/videowriter/pkg/ports"
)

// VideoCodec is a mock implementation of ports.VideoCodec. By default every
// frame becomes one keyframe sample holding a copy of its pixels.
type VideoCodec struct {
	BeginFunc  func(width, height int) error
	EncodeFunc func(img *image.RGBA, pts time.Duration) ([]ports.VideoSample, error)
	FlushFunc  func() ([]ports.VideoSample, error)

	mu          sync.Mutex
	BeginCalled bool
	EncodedPTS  []time.Duration
	CloseCalls  int
}

func (m *VideoCodec) Name() string { return ports.CodecJPEG }

func (m *VideoCodec) Begin(width, height int) error {
	m.mu.Lock()
	m.BeginCalled = true
	m.mu.Unlock()
	if m.BeginFunc != nil {
		return m.BeginFunc(width, height)
	}
	return nil
}

func (m *VideoCodec) Encode(img *image.RGBA, pts time.Duration) ([]ports.VideoSample, error) {
	m.mu.Lock()
	m.EncodedPTS = append(m.EncodedPTS, pts)
	m.mu.Unlock()
	if m.EncodeFunc != nil {
		return m.EncodeFunc(img, pts)
	}
	return []ports.VideoSample{{
		Data:     append([]byte(nil), img.Pix...),
		PTS:      pts,
		Keyframe: true,
	}}, nil
}

func (m *VideoCodec) Flush() ([]ports.VideoSample, error) {
	if m.FlushFunc != nil {
		return m.FlushFunc()
	}
	return nil, nil
}

func (m *VideoCodec) Close() error {
	m.mu.Lock()
	m.CloseCalls++
	m.mu.Unlock()
	return nil
}

// PTS returns a copy of the encoded presentation times.
func (m *VideoCodec) PTS() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.EncodedPTS...)
}

var _ ports.VideoCodec = (*VideoCodec)(nil)
