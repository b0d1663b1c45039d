package recorder

import (
	"encoding/binary"
	"fmt"

	"github.com/user/videowriter/pkg/ports"
)

// AudioBuffer is a block of interleaved signed 16-bit PCM in the session's
// configured audio format.
type AudioBuffer struct {
	Samples []int16
}

// Frames returns the number of PCM frames for the given channel count.
func (b AudioBuffer) Frames(channels int) int {
	if channels <= 0 {
		return 0
	}
	return len(b.Samples) / channels
}

// AddAudio appends an audio buffer. It reports false when the buffer was not
// accepted; see AppendAudio for the reason.
func (s *Session) AddAudio(buf AudioBuffer) bool {
	return s.AppendAudio(buf) == nil
}

// AppendAudio appends an audio buffer to the audio track. The samples are
// copied before AppendAudio returns, so the caller may reuse buf.
// Audio is laid out contiguously from time zero in arrival order.
func (s *Session) AppendAudio(buf AudioBuffer) error {
	if State(s.state.Load()) != StateRecording {
		return ErrInvalidState
	}
	if s.audio == nil {
		return ErrNoAudioTrack
	}
	channels := s.opts.Audio.Channels
	if len(buf.Samples) == 0 || len(buf.Samples)%channels != 0 {
		return fmt.Errorf("%d samples for %d channels: %w", len(buf.Samples), channels, ErrInvalidAudio)
	}
	if !s.audio.reserve() {
		return ErrNotReady
	}

	sample := ports.AudioSample{
		Data:   packPCM(buf.Samples),
		Frames: buf.Frames(channels),
	}
	if !s.exec.trySubmit(func() { s.writeAudio(sample) }) {
		s.audio.release()
		return ErrNotReady
	}
	return nil
}

// writeAudio appends one audio sample. Runs on the writer.
func (s *Session) writeAudio(sample ports.AudioSample) {
	defer s.audio.release()

	if s.audio.finished.Load() {
		return
	}
	if err := s.container.WriteAudio(sample); err != nil {
		s.fail(fmt.Errorf("write audio sample: %w", err))
		return
	}
	s.audio.samples.Add(1)
}

// packPCM serializes samples as little-endian bytes.
func packPCM(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, v := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}
