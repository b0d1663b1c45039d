package ports

// ContainerConfig describes the tracks of an output container.
type ContainerConfig struct {
	Width      int
	Height     int
	VideoCodec string       // CodecJPEG or CodecAVC
	Audio      *AudioFormat // nil when the container has no audio track
}

// ContainerWriter muxes encoded samples into an output file.
//
// A ContainerWriter is not safe for concurrent use; callers serialize every
// method onto a single goroutine.
type ContainerWriter interface {
	// Open creates the output. The final file at path must not appear before
	// Finalize succeeds.
	Open(path string, cfg ContainerConfig) error

	// WriteVideo appends a sample to the video track.
	WriteVideo(s VideoSample) error

	// WriteAudio appends a sample to the audio track.
	WriteAudio(s AudioSample) error

	// Finalize flushes buffered samples and publishes the file at path.
	Finalize() error

	// Abort discards the output, including a file already published by
	// Finalize. Safe to call more than once.
	Abort() error
}
