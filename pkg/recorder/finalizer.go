package recorder

import (
	"fmt"
)

// finalize runs the Finishing sequence on the writer: quiesce the tracks,
// release capture resources, flush the codec and publish the container.
func (s *Session) finalize() {
	if State(s.state.Load()) != StateFinishing {
		// Cancelled before the writer got here; abort cleans up.
		return
	}

	s.quiesce()
	s.releaseCapture()

	samples, err := s.codec.Flush()
	if err == nil {
		err = s.writeVideoSamples(samples)
	}
	if err == nil {
		err = s.container.Finalize()
	}
	s.codec.Close()
	if err != nil {
		s.fail(fmt.Errorf("finalize: %w", err))
		return
	}

	if !s.state.CompareAndSwap(int32(StateFinishing), int32(StateCompleted)) {
		// Cancel won the race; its abort job removes the published file.
		return
	}
	stats := s.Stats()
	s.log.Info("Recording completed: %s (%d frames, %d audio buffers)", s.location, stats.VideoFrames, stats.AudioBuffers)
	s.deliver(Result{State: StateCompleted, Location: s.location}, func(o Observer) {
		o.OnComplete(s.location)
	})
}

// abort runs the cancellation sequence on the writer.
func (s *Session) abort() {
	s.quiesce()
	s.releaseCapture()
	s.codec.Close()
	if err := s.container.Abort(); err != nil {
		s.log.Warn("Failed to remove partial output: %v", err)
	}
	s.log.Info("Recording cancelled")
	s.deliver(Result{State: StateCancelled, Location: s.location}, func(o Observer) {
		o.OnCancelled()
	})
}

// fail moves a Recording or Finishing session to Failed, discards the output
// and reports cause. Runs on the writer. If the session was cancelled in the
// meantime the abort job owns cleanup and fail does nothing.
func (s *Session) fail(cause error) {
	for {
		st := State(s.state.Load())
		if st != StateRecording && st != StateFinishing {
			return
		}
		if s.state.CompareAndSwap(int32(st), int32(StateFailed)) {
			break
		}
	}

	err := fmt.Errorf("%w: %w", ErrWriterFailure, cause)
	s.log.Error("Recording failed: %v", cause)

	s.quiesce()
	s.releaseCapture()
	s.codec.Close()
	if abortErr := s.container.Abort(); abortErr != nil {
		s.log.Warn("Failed to remove partial output: %v", abortErr)
	}
	s.deliver(Result{State: StateFailed, Location: s.location, Err: err}, func(o Observer) {
		o.OnError(err)
	})
}

func (s *Session) quiesce() {
	s.video.finish()
	if s.audio != nil {
		s.audio.finish()
	}
}

func (s *Session) releaseCapture() {
	if err := s.capturer.release(); err != nil {
		s.log.Warn("Failed to release texture cache: %v", err)
	}
}

// deliver records the terminal result, notifies the observer, resolves Done
// and stops the writer. Only the first call has any effect.
func (s *Session) deliver(res Result, notify func(Observer)) {
	if s.terminal {
		return
	}
	s.terminal = true
	s.result = res
	notify(s.observer)
	close(s.done)
	s.exec.stop()
}
