package recorder

import "errors"

var (
	// ErrInvalidState is returned when an operation is not allowed in the
	// session's current state.
	ErrInvalidState = errors.New("recorder: invalid state")

	// ErrNotReady is returned when a track cannot accept more data right now.
	// The caller should drop the frame or sample and try the next one.
	ErrNotReady = errors.New("recorder: track not ready")

	// ErrNonMonotonicTimestamp is returned for a negative frame timestamp or
	// one that does not exceed the previously accepted timestamp.
	ErrNonMonotonicTimestamp = errors.New("recorder: non-monotonic timestamp")

	// ErrIOFailure is returned by Start when the output cannot be opened.
	ErrIOFailure = errors.New("recorder: output could not be opened")

	// ErrWriterFailure wraps encode and container errors that end a session.
	ErrWriterFailure = errors.New("recorder: writer failure")

	// ErrInvalidSource is returned when a frame source does not match the
	// active capture path.
	ErrInvalidSource = errors.New("recorder: invalid frame source")

	// ErrNoAudioTrack is returned by AddAudio when no audio format was configured.
	ErrNoAudioTrack = errors.New("recorder: no audio track")

	// ErrInvalidAudio is returned for empty or misaligned audio buffers.
	ErrInvalidAudio = errors.New("recorder: invalid audio buffer")

	// ErrNoLibrary is returned by SaveToLibrary when no library was provided.
	ErrNoLibrary = errors.New("recorder: no media library")

	// ErrUnsupportedSurface is returned by Start when the graphics context
	// renders in a format other than 8-bit RGBA or BGRA.
	ErrUnsupportedSurface = errors.New("recorder: unsupported surface format")

	// ErrExportFailure wraps media library errors delivered to OnError.
	ErrExportFailure = errors.New("recorder: export failed")
)
