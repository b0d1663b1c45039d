// Package smartencoder selects the best available video codec with fallback
// support.
package smartencoder

import (
	"errors"

	"github.com/user/videowriter/pkg/adapters/h264encoder"
	"github.com/user/videowriter/pkg/adapters/logger"
	"github.com/user/videowriter/pkg/adapters/mjpegcodec"
	"github.com/user/videowriter/pkg/ports"
)

// Codec represents the video codec type.
type Codec string

const (
	// CodecAuto prefers H.264 and falls back to MJPEG.
	CodecAuto Codec = "auto"
	// CodecH264 represents H.264/AVC through ffmpeg.
	CodecH264 Codec = "h264"
	// CodecMJPEG represents Motion JPEG.
	CodecMJPEG Codec = "mjpeg"
)

// ParseCodec parses a codec name. The empty string selects CodecAuto.
func ParseCodec(s string) (Codec, error) {
	switch Codec(s) {
	case "", CodecAuto:
		return CodecAuto, nil
	case CodecH264, CodecMJPEG:
		return Codec(s), nil
	}
	return "", errors.New("smartencoder: unknown codec " + s)
}

// Info contains information about the selected codec.
type Info struct {
	// Codec is the codec actually used.
	Codec Codec
	// RequestedCodec is the codec that was originally requested.
	RequestedCodec Codec
	// FFmpegPath is the ffmpeg binary used for H.264.
	FFmpegPath string
	// FallbackUsed indicates whether a fallback occurred.
	FallbackUsed bool
}

// Options configures codec selection.
type Options struct {
	// FFmpegPath is an optional custom path to the ffmpeg binary.
	FFmpegPath string
	// NoFallback makes an explicit H.264 request fail instead of falling
	// back to MJPEG when ffmpeg is missing.
	NoFallback bool
	// JPEGQuality configures the MJPEG codec.
	JPEGQuality int
	// H264 configures the H.264 codec.
	H264 h264encoder.Options
	// Logger is used to log the selection.
	Logger ports.Logger
}

var (
	// ErrNoEncoderAvailable is returned when no codec is available.
	ErrNoEncoderAvailable = errors.New("smartencoder: no encoder available")
)

// New creates a codec for the preferred type.
//
// H.264 requires ffmpeg. When it cannot be found, CodecAuto always falls
// back to MJPEG and CodecH264 does unless NoFallback is set.
func New(preferred Codec, opts Options) (ports.VideoCodec, Info, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoop()
	}
	log = log.WithComponent("encoder")

	if opts.FFmpegPath != "" {
		h264encoder.SetFFmpegPath(opts.FFmpegPath)
	}

	info := Info{RequestedCodec: preferred}
	if preferred == CodecMJPEG {
		info.Codec = CodecMJPEG
		return mjpegcodec.New(opts.JPEGQuality), info, nil
	}

	path, err := h264encoder.FindFFmpeg()
	if err == nil {
		log.Info("Using H.264 encoder (ffmpeg at %s)", path)
		info.Codec = CodecH264
		info.FFmpegPath = path
		return h264encoder.New(log, opts.H264), info, nil
	}

	if preferred == CodecH264 && opts.NoFallback {
		return nil, Info{}, errors.Join(ErrNoEncoderAvailable, err)
	}

	log.Warn("ffmpeg not found, falling back to MJPEG")
	info.Codec = CodecMJPEG
	info.FallbackUsed = true
	return mjpegcodec.New(opts.JPEGQuality), info, nil
}

// IsH264Available checks if H.264 encoding is available.
func IsH264Available() bool {
	return h264encoder.IsFFmpegAvailable()
}
