// Package recorder records rendered frames and PCM audio into a video file.
//
// A Session moves through Idle, Recording and Finishing to one of the
// terminal states Completed, Cancelled or Failed. Frames and audio are
// accepted on producer goroutines without blocking; encoding and muxing run
// on a single writer goroutine per session, and the outcome is reported once
// through the Observer and the Done channel.
package recorder

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/user/videowriter/pkg/adapters/logger"
	"github.com/user/videowriter/pkg/ports"
)

// Result is the terminal outcome of a session.
type Result struct {
	State    State
	Location string
	Err      error
}

// Stats reports per-track sample counts.
type Stats struct {
	VideoFrames   int64 // frames encoded into the video track
	AudioBuffers  int64 // buffers written to the audio track
	DroppedFrames int64 // frames rejected because the video track was not ready
}

// Session records one output file.
type Session struct {
	id       string
	location string
	size     Size
	opts     Options

	gfx       ports.GraphicsContext
	container ports.ContainerWriter
	codec     ports.VideoCodec
	library   ports.MediaLibrary
	observer  Observer
	log       ports.Logger

	state atomic.Int32

	// Set by Start before the session becomes Recording.
	exec     *serialExecutor
	video    *track
	audio    *track
	capturer frameCapturer

	// Owned by the single frame producer.
	hasFrame bool
	lastTS   time.Duration
	zeroTS   time.Duration

	dropped atomic.Int64

	// Owned by the writer.
	scratch  *image.RGBA
	terminal bool

	result Result
	done   chan struct{}
}

// NewSession creates an idle session that will write a file of the given
// frame size to location, a plain path or a file:// URL.
func NewSession(location string, size Size, deps Dependencies, opts Options) (*Session, error) {
	path, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %s", size)
	}
	if deps.Graphics == nil || deps.Container == nil || deps.Codec == nil {
		return nil, fmt.Errorf("graphics context, container writer and codec are required")
	}
	if a := opts.Audio; a != nil && (a.SampleRate <= 0 || a.Channels <= 0) {
		return nil, fmt.Errorf("invalid audio format: %d Hz, %d channels", a.SampleRate, a.Channels)
	}

	observer := deps.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNoop()
	}

	return &Session{
		id:        uuid.NewString(),
		location:  path,
		size:      size,
		opts:      opts,
		gfx:       deps.Graphics,
		container: deps.Container,
		codec:     deps.Codec,
		library:   deps.Library,
		observer:  observer,
		log:       log.WithComponent("recorder"),
		done:      make(chan struct{}),
	}, nil
}

// NewSessionURL is NewSession for a file URL.
func NewSessionURL(location *url.URL, size Size, deps Dependencies, opts Options) (*Session, error) {
	path, err := locationFromURL(location)
	if err != nil {
		return nil, err
	}
	return NewSession(path, size, deps, opts)
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Location returns the output file path.
func (s *Session) Location() string { return s.location }

// Size returns the frame size.
func (s *Session) Size() Size { return s.size }

// State returns the current lifecycle state.
func (s *Session) State() State {
	st := State(s.state.Load())
	if st == stateStarting {
		return StateIdle
	}
	return st
}

// IsWriting reports whether the session is Recording.
func (s *Session) IsWriting() bool {
	return State(s.state.Load()) == StateRecording
}

// Stats returns sample counts so far.
func (s *Session) Stats() Stats {
	st := Stats{DroppedFrames: s.dropped.Load()}
	if cur := State(s.state.Load()); cur == StateIdle || cur == stateStarting {
		return st
	}
	if s.video != nil {
		st.VideoFrames = s.video.samples.Load()
	}
	if s.audio != nil {
		st.AudioBuffers = s.audio.samples.Load()
	}
	return st
}

// IsTextureCached reports whether frames are captured through the texture
// cache.
func (s *Session) IsTextureCached() bool {
	if State(s.state.Load()) != StateRecording {
		return false
	}
	_, ok := s.capturer.(*textureCacheBinding)
	return ok
}

// TextureTarget returns the texture the renderer should draw the next frame
// into on the texture cache path. The target changes after every accepted
// frame.
func (s *Session) TextureTarget() (ports.TextureHandle, bool) {
	if State(s.state.Load()) != StateRecording {
		return 0, false
	}
	b, ok := s.capturer.(*textureCacheBinding)
	if !ok {
		return 0, false
	}
	return b.target()
}

// Start opens the output and begins recording at time zero.
func (s *Session) Start() error {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(stateStarting)) {
		return fmt.Errorf("start while %s: %w", s.State(), ErrInvalidState)
	}

	depth := int(s.opts.videoDepth() + s.opts.audioDepth())
	exec := newSerialExecutor(depth + controlSlack)
	if err := exec.call(s.open); err != nil {
		exec.stop()
		s.state.Store(int32(StateIdle))
		s.log.Error("Failed to start recording: %v", err)
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	s.exec = exec
	s.state.Store(int32(StateRecording))
	s.log.Info("Recording %s at %s (session %s)", s.location, s.size, s.id)
	return nil
}

// open prepares codec, container and capture path. Runs on the writer.
func (s *Session) open() error {
	format := s.gfx.SurfaceFormat()
	adapter := s.gfx.AdapterInfo()
	s.log.Debug("Graphics adapter %s (%s), surface %v", adapter.Name, adapter.Type, format)
	if err := checkSurfaceFormat(format); err != nil {
		return err
	}

	if err := s.codec.Begin(s.size.Width, s.size.Height); err != nil {
		return fmt.Errorf("begin codec: %w", err)
	}
	cfg := ports.ContainerConfig{
		Width:      s.size.Width,
		Height:     s.size.Height,
		VideoCodec: s.codec.Name(),
		Audio:      s.opts.Audio,
	}
	if err := s.container.Open(s.location, cfg); err != nil {
		s.codec.Close()
		return fmt.Errorf("open %s: %w", s.location, err)
	}

	var capturer frameCapturer
	if s.opts.EnableTextureCache {
		binding, err := newTextureCacheBinding(s.gfx, s.size, s.opts.poolSize())
		if err != nil {
			s.container.Abort()
			s.codec.Close()
			return err
		}
		capturer = binding
		s.log.Debug("Texture cache enabled")
	} else {
		capturer = newReadbackCapturer(s.gfx, s.size, s.opts.poolSize())
	}

	s.capturer = capturer
	s.video = newTrack(s.opts.videoDepth())
	if s.opts.Audio != nil {
		s.audio = newTrack(s.opts.audioDepth())
	}
	s.hasFrame = false
	return nil
}

// Finish stops accepting data and finalizes the file asynchronously.
// The outcome is delivered through OnComplete or OnError.
func (s *Session) Finish() error {
	if !s.state.CompareAndSwap(int32(StateRecording), int32(StateFinishing)) {
		return fmt.Errorf("finish while %s: %w", s.State(), ErrInvalidState)
	}
	s.log.Info("Finishing recording")
	s.exec.submit(s.finalize)
	return nil
}

// Cancel abandons the recording. The session is Cancelled when Cancel
// returns; the partial file is removed asynchronously and OnCancelled follows.
// Cancelling a cancelled session is a no-op.
func (s *Session) Cancel() error {
	for {
		st := State(s.state.Load())
		switch st {
		case StateCancelled:
			return nil
		case StateRecording, StateFinishing:
			if s.state.CompareAndSwap(int32(st), int32(StateCancelled)) {
				s.log.Info("Cancelling recording")
				s.exec.submit(s.abort)
				return nil
			}
		default:
			return fmt.Errorf("cancel while %s: %w", st, ErrInvalidState)
		}
	}
}

// Done is closed once the session has reached a terminal state and released
// its resources.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session reaches a terminal state or ctx ends.
func (s *Session) Wait(ctx context.Context) (Result, error) {
	select {
	case <-s.done:
		return s.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
