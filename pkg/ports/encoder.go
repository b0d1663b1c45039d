package ports

import (
	"image"
	"time"
)

// Video codec identifiers, also used as the MP4 sample entry type.
const (
	CodecJPEG = "jpeg"
	CodecAVC  = "avc1"
)

// VideoSample is one encoded video access unit.
type VideoSample struct {
	Data     []byte        // codec payload; AVCC length-prefixed NAL units for avc1
	PTS      time.Duration // presentation time relative to time zero
	Keyframe bool

	// Parameter sets carried on keyframes by codecs that need them (avc1).
	SPS [][]byte
	PPS [][]byte
}

// AudioSample is one block of packed PCM audio.
type AudioSample struct {
	Data   []byte
	Frames int // number of PCM frames (samples per channel)
}

// AudioFormat describes interleaved signed 16-bit PCM.
type AudioFormat struct {
	SampleRate int
	Channels   int
}

// VideoCodec abstracts per-frame video compression.
type VideoCodec interface {
	// Name returns the codec identifier (CodecJPEG, CodecAVC).
	Name() string

	// Begin prepares the codec for frames of the given size.
	Begin(width, height int) error

	// Encode compresses one frame. The codec must not retain img after
	// returning. It may return zero or more samples, because some codecs
	// buffer internally.
	Encode(img *image.RGBA, pts time.Duration) ([]VideoSample, error)

	// Flush returns any buffered samples and ends the stream.
	Flush() ([]VideoSample, error)

	// Close releases codec resources. Safe to call more than once.
	Close() error
}
