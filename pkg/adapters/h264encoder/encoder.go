// Package h264encoder encodes frames to H.264 with an ffmpeg subprocess.
//
// Raw RGBA frames are piped to ffmpeg's stdin and the Annex B elementary
// stream is read back from stdout. Access unit delimiters split the stream
// into samples, which are matched to presentation times in submission order.
package h264encoder

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/user/videowriter/pkg/ports"
)

const defaultFrameInterval = time.Second / 30

// Options configures the encoder.
type Options struct {
	// CRF is the x264 constant rate factor (0-51). Zero selects 23.
	CRF int

	// Preset is the x264 preset. Empty selects "ultrafast".
	Preset string

	// KeyframeInterval is the maximum distance between IDR frames.
	// Zero selects 60.
	KeyframeInterval int
}

// Encoder implements ports.VideoCodec.
type Encoder struct {
	opts Options
	log  ports.Logger

	width, height int
	cmd           *exec.Cmd
	stdin         io.WriteCloser
	stderr        bytes.Buffer
	readerDone    chan struct{}
	closed        bool

	mu       sync.Mutex
	pending  []time.Duration
	ready    []ports.VideoSample
	lastPTS  time.Duration
	readErr  error
	sps, pps [][]byte
}

// New creates an encoder.
func New(log ports.Logger, opts Options) *Encoder {
	if opts.CRF <= 0 || opts.CRF > 51 {
		opts.CRF = 23
	}
	if opts.Preset == "" {
		opts.Preset = "ultrafast"
	}
	if opts.KeyframeInterval <= 0 {
		opts.KeyframeInterval = 60
	}
	return &Encoder{opts: opts, log: log.WithComponent("h264encoder")}
}

func (e *Encoder) Name() string { return ports.CodecAVC }

// Begin starts the ffmpeg process for frames of the given size.
func (e *Encoder) Begin(width, height int) error {
	if width%2 != 0 || height%2 != 0 {
		return fmt.Errorf("h264encoder: size %dx%d must be even", width, height)
	}
	ffmpegPath, err := FindFFmpeg()
	if err != nil {
		return err
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-i", "pipe:0",
		"-c:v", "libx264",
		"-preset", e.opts.Preset,
		"-tune", "zerolatency",
		"-bf", "0",
		"-crf", strconv.Itoa(e.opts.CRF),
		"-g", strconv.Itoa(e.opts.KeyframeInterval),
		"-pix_fmt", "yuv420p",
		"-x264-params", "aud=1",
		"-f", "h264",
		"pipe:1",
	}
	cmd := exec.Command(ffmpegPath, args...)
	e.stderr.Reset()
	cmd.Stderr = &e.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	e.log.Debug("Started ffmpeg: %s", ffmpegPath)

	e.width, e.height = width, height
	e.cmd = cmd
	e.stdin = stdin
	e.closed = false
	e.readerDone = make(chan struct{})
	e.mu.Lock()
	e.pending, e.ready, e.readErr = nil, nil, nil
	e.sps, e.pps = nil, nil
	e.lastPTS = -defaultFrameInterval
	e.mu.Unlock()

	go e.readLoop(stdout)
	return nil
}

// Encode submits a frame and returns whatever samples ffmpeg has finished.
func (e *Encoder) Encode(img *image.RGBA, pts time.Duration) ([]ports.VideoSample, error) {
	if e.cmd == nil || e.closed {
		return nil, ErrNotInitialized
	}
	if b := img.Bounds(); b.Dx() != e.width || b.Dy() != e.height {
		return nil, fmt.Errorf("h264encoder: frame is %dx%d, want %dx%d", b.Dx(), b.Dy(), e.width, e.height)
	}

	e.mu.Lock()
	if e.readErr != nil {
		err := e.readErr
		e.mu.Unlock()
		return nil, err
	}
	e.pending = append(e.pending, pts)
	e.mu.Unlock()

	row := e.width * 4
	if img.Stride == row {
		if _, err := e.stdin.Write(img.Pix[:row*e.height]); err != nil {
			return nil, fmt.Errorf("%w: write frame: %v", ErrEncodingFailed, err)
		}
	} else {
		for y := 0; y < e.height; y++ {
			if _, err := e.stdin.Write(img.Pix[y*img.Stride : y*img.Stride+row]); err != nil {
				return nil, fmt.Errorf("%w: write frame: %v", ErrEncodingFailed, err)
			}
		}
	}
	return e.take(), nil
}

// Flush ends the stream and returns the remaining samples.
func (e *Encoder) Flush() ([]ports.VideoSample, error) {
	if e.cmd == nil || e.closed {
		return nil, ErrNotInitialized
	}
	e.stdin.Close()
	<-e.readerDone
	err := e.cmd.Wait()
	e.closed = true
	if err != nil {
		return nil, fmt.Errorf("%w: %v\nstderr: %s", ErrEncodingFailed, err, e.stderr.String())
	}

	e.mu.Lock()
	readErr := e.readErr
	e.mu.Unlock()
	if readErr != nil {
		return nil, readErr
	}
	return e.take(), nil
}

// Close stops ffmpeg if it is still running.
func (e *Encoder) Close() error {
	if e.cmd == nil || e.closed {
		return nil
	}
	e.closed = true
	e.stdin.Close()
	if e.cmd.Process != nil {
		e.cmd.Process.Kill()
	}
	<-e.readerDone
	e.cmd.Wait()
	return nil
}

func (e *Encoder) take() []ports.VideoSample {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.ready
	e.ready = nil
	return out
}

func (e *Encoder) readLoop(r io.Reader) {
	defer close(e.readerDone)

	var buf []byte
	chunk := make([]byte, 64*1024)
	scanned := 0
	for {
		n, err := r.Read(chunk)
		buf = append(buf, chunk[:n]...)

		// Every unit starts with a delimiter, so searching from offset 3
		// skips the current unit's own.
		for {
			from := scanned
			if from < 3 {
				from = 3
			}
			next := nextAUD(buf, from)
			if next < 0 {
				if len(buf) > 5 {
					scanned = len(buf) - 5
				}
				break
			}
			e.emit(buf[:next])
			buf = append([]byte(nil), buf[next:]...)
			scanned = 0
		}

		if err != nil {
			if err != io.EOF {
				e.mu.Lock()
				e.readErr = fmt.Errorf("%w: read output: %v", ErrEncodingFailed, err)
				e.mu.Unlock()
			}
			if len(buf) > 0 {
				e.emit(buf)
			}
			return
		}
	}
}

// emit converts one access unit and queues it with the oldest pending
// presentation time.
func (e *Encoder) emit(annexB []byte) {
	au := parseAccessUnit(annexB)
	if len(au.data) == 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(au.sps) > 0 {
		e.sps, e.pps = au.sps, au.pps
	}

	pts := e.lastPTS + defaultFrameInterval
	if len(e.pending) > 0 {
		pts = e.pending[0]
		e.pending = e.pending[1:]
	}
	e.lastPTS = pts

	s := ports.VideoSample{Data: au.data, PTS: pts, Keyframe: au.keyframe}
	if au.keyframe {
		s.SPS, s.PPS = e.sps, e.pps
	}
	e.ready = append(e.ready, s)
}

var _ ports.VideoCodec = (*Encoder)(nil)
