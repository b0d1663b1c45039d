// Package mp4writer streams encoded samples into a fragmented MP4 file.
//
// Samples are written to a hidden temporary file next to the destination as
// they arrive, one moof/mdat fragment at a time. Finalize renames the
// temporary file into place; Abort removes it.
package mp4writer

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/google/uuid"

	"github.com/user/videowriter/pkg/ports"
)

const (
	// VideoTimescale is the video track's tick rate.
	VideoTimescale = 90000

	videoTrackID = 1
	audioTrackID = 2

	defaultFrameDuration = VideoTimescale / 30
	maxSampleRate        = 65535
)

var (
	// ErrOutputExists is returned by Open when the destination already exists.
	ErrOutputExists = errors.New("mp4writer: output file already exists")

	// ErrNoFrames is returned by Finalize when no video sample was written.
	ErrNoFrames = errors.New("mp4writer: no video frames")

	// ErrNotOpen is returned when writing to a writer that is not open.
	ErrNotOpen = errors.New("mp4writer: not open")
)

// Options configures the writer.
type Options struct {
	// FragmentFrames is the number of video samples per fragment.
	FragmentFrames int
}

// DefaultOptions returns the default writer options.
func DefaultOptions() Options {
	return Options{FragmentFrames: 30}
}

type writerState int

const (
	stateClosed writerState = iota
	stateOpen
	stateCommitted
	stateAborted
)

// Writer implements ports.ContainerWriter.
type Writer struct {
	fs   ports.FileSystem
	log  ports.Logger
	opts Options

	state   writerState
	path    string
	tmpPath string
	out     io.WriteCloser
	cfg     ports.ContainerConfig

	initWritten bool
	seq         uint32
	sps, pps    [][]byte

	pending   *ports.VideoSample
	lastDur   uint32
	video     []mp4.FullSample
	audio     []mp4.FullSample
	audioTime uint64

	videoCount int
}

// New creates a writer that stores files through fs.
func New(fs ports.FileSystem, log ports.Logger, opts Options) *Writer {
	if opts.FragmentFrames <= 0 {
		opts.FragmentFrames = DefaultOptions().FragmentFrames
	}
	return &Writer{
		fs:   fs,
		log:  log.WithComponent("mp4writer"),
		opts: opts,
	}
}

// Open creates the temporary output for path.
func (w *Writer) Open(path string, cfg ports.ContainerConfig) error {
	if w.state == stateOpen {
		return fmt.Errorf("mp4writer: already open")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > 0xFFFF || cfg.Height > 0xFFFF {
		return fmt.Errorf("mp4writer: invalid size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.VideoCodec != ports.CodecJPEG && cfg.VideoCodec != ports.CodecAVC {
		return fmt.Errorf("mp4writer: unsupported video codec %q", cfg.VideoCodec)
	}
	if a := cfg.Audio; a != nil {
		if a.SampleRate <= 0 || a.SampleRate > maxSampleRate || a.Channels <= 0 {
			return fmt.Errorf("mp4writer: unsupported audio format %d Hz, %d channels", a.SampleRate, a.Channels)
		}
	}

	exists, err := w.fs.Exists(path)
	if err != nil {
		return fmt.Errorf("stat output: %w", err)
	}
	if exists {
		return fmt.Errorf("%s: %w", path, ErrOutputExists)
	}

	tmpPath := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.%s.partial", filepath.Base(path), uuid.NewString()))
	out, err := w.fs.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	*w = Writer{
		fs:      w.fs,
		log:     w.log,
		opts:    w.opts,
		state:   stateOpen,
		path:    path,
		tmpPath: tmpPath,
		out:     out,
		cfg:     cfg,
	}
	return nil
}

// WriteVideo appends an encoded video sample. Samples must arrive in
// presentation order.
func (w *Writer) WriteVideo(s ports.VideoSample) error {
	if w.state != stateOpen {
		return ErrNotOpen
	}
	if w.sps == nil && len(s.SPS) > 0 {
		w.sps, w.pps = s.SPS, s.PPS
	}
	if w.pending != nil {
		dur := ticks(s.PTS) - ticks(w.pending.PTS)
		if dur < 1 {
			dur = 1
		}
		w.appendVideo(*w.pending, uint32(dur))
	}
	w.pending = &s

	if len(w.video) >= w.opts.FragmentFrames {
		return w.flush()
	}
	return nil
}

// WriteAudio appends a block of PCM frames to the audio track.
func (w *Writer) WriteAudio(s ports.AudioSample) error {
	if w.state != stateOpen {
		return ErrNotOpen
	}
	if w.cfg.Audio == nil {
		return fmt.Errorf("mp4writer: no audio track")
	}
	if s.Frames <= 0 {
		return nil
	}
	w.audio = append(w.audio, mp4.FullSample{
		Sample: mp4.Sample{
			Flags: mp4.SyncSampleFlags,
			Size:  uint32(len(s.Data)),
			Dur:   uint32(s.Frames),
		},
		DecodeTime: w.audioTime,
		Data:       s.Data,
	})
	w.audioTime += uint64(s.Frames)
	return nil
}

// Finalize writes the remaining samples and moves the file into place.
func (w *Writer) Finalize() error {
	if w.state != stateOpen {
		return ErrNotOpen
	}
	if w.pending != nil {
		dur := w.lastDur
		if dur == 0 {
			dur = defaultFrameDuration
		}
		w.appendVideo(*w.pending, dur)
		w.pending = nil
	}
	if w.videoCount == 0 {
		w.Abort()
		return ErrNoFrames
	}
	if err := w.flush(); err != nil {
		return err
	}
	if err := w.out.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	w.out = nil
	if err := w.fs.Rename(w.tmpPath, w.path); err != nil {
		return fmt.Errorf("publish output: %w", err)
	}
	w.state = stateCommitted
	w.log.Debug("Published %s", w.path)
	return nil
}

// Abort discards the output, including a file already published by
// Finalize. Safe to call more than once.
func (w *Writer) Abort() error {
	var errs []error
	switch w.state {
	case stateOpen:
		if w.out != nil {
			w.out.Close()
			w.out = nil
		}
		if err := w.removeIfExists(w.tmpPath); err != nil {
			errs = append(errs, err)
		}
	case stateCommitted:
		if err := w.removeIfExists(w.path); err != nil {
			errs = append(errs, err)
		}
	}
	if w.state != stateClosed {
		w.state = stateAborted
	}
	w.pending = nil
	w.video, w.audio = nil, nil
	return errors.Join(errs...)
}

func (w *Writer) removeIfExists(path string) error {
	ok, err := w.fs.Exists(path)
	if err != nil || !ok {
		return err
	}
	return w.fs.Remove(path)
}

func (w *Writer) appendVideo(s ports.VideoSample, dur uint32) {
	flags := mp4.NonSyncSampleFlags
	if s.Keyframe {
		flags = mp4.SyncSampleFlags
	}
	w.video = append(w.video, mp4.FullSample{
		Sample: mp4.Sample{
			Flags: flags,
			Size:  uint32(len(s.Data)),
			Dur:   dur,
		},
		DecodeTime: uint64(ticks(s.PTS)),
		Data:       s.Data,
	})
	w.lastDur = dur
	w.videoCount++
}

// flush writes buffered samples as one fragment, emitting the init segment
// first if needed.
func (w *Writer) flush() error {
	if len(w.video) == 0 && len(w.audio) == 0 {
		return nil
	}
	if !w.initWritten {
		if len(w.video) == 0 {
			// Sample entries need the first video sample; keep buffering audio.
			return nil
		}
		if err := w.writeInit(); err != nil {
			return err
		}
		w.initWritten = true
	}

	var trackIDs []uint32
	if len(w.video) > 0 {
		trackIDs = append(trackIDs, videoTrackID)
	}
	if len(w.audio) > 0 {
		trackIDs = append(trackIDs, audioTrackID)
	}
	w.seq++
	frag, err := mp4.CreateMultiTrackFragment(w.seq, trackIDs)
	if err != nil {
		return fmt.Errorf("create fragment: %w", err)
	}
	for _, fs := range w.video {
		if err := frag.AddFullSampleToTrack(fs, videoTrackID); err != nil {
			return fmt.Errorf("add video sample: %w", err)
		}
	}
	for _, fs := range w.audio {
		if err := frag.AddFullSampleToTrack(fs, audioTrackID); err != nil {
			return fmt.Errorf("add audio sample: %w", err)
		}
	}
	w.log.Debug("Writing fragment %d (%d video, %d audio samples)", w.seq, len(w.video), len(w.audio))
	if err := frag.Encode(w.out); err != nil {
		return fmt.Errorf("encode fragment: %w", err)
	}
	w.video = w.video[:0]
	w.audio = w.audio[:0]
	return nil
}

func (w *Writer) writeInit() error {
	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(VideoTimescale, "video", "en")
	vtrak := init.Moov.Trak

	width, height := uint16(w.cfg.Width), uint16(w.cfg.Height)
	switch w.cfg.VideoCodec {
	case ports.CodecAVC:
		if len(w.sps) == 0 || len(w.pps) == 0 {
			return fmt.Errorf("mp4writer: first H.264 sample carries no SPS/PPS")
		}
		avcC, err := mp4.CreateAvcC(w.sps, w.pps, true)
		if err != nil {
			return fmt.Errorf("create avcC: %w", err)
		}
		vtrak.Mdia.Minf.Stbl.Stsd.AddChild(mp4.CreateVisualSampleEntryBox("avc1", width, height, avcC))
	default:
		vtrak.Mdia.Minf.Stbl.Stsd.AddChild(mp4.CreateVisualSampleEntryBox("jpeg", width, height, nil))
	}
	vtrak.Tkhd.Width = mp4.Fixed32(w.cfg.Width << 16)
	vtrak.Tkhd.Height = mp4.Fixed32(w.cfg.Height << 16)

	if a := w.cfg.Audio; a != nil {
		init.AddEmptyTrack(uint32(a.SampleRate), "audio", "en")
		atrak := init.Moov.Traks[len(init.Moov.Traks)-1]
		atrak.Mdia.Minf.Stbl.Stsd.AddChild(
			mp4.CreateAudioSampleEntryBox("sowt", uint16(a.Channels), 16, uint16(a.SampleRate), nil))
	}

	brands := []string{"isom", "iso2", "mp41"}
	if w.cfg.VideoCodec == ports.CodecAVC {
		brands = append(brands, "avc1")
	}
	if err := mp4.NewFtyp("isom", 0x200, brands).Encode(w.out); err != nil {
		return fmt.Errorf("encode ftyp: %w", err)
	}
	if err := init.Moov.Encode(w.out); err != nil {
		return fmt.Errorf("encode moov: %w", err)
	}
	return nil
}

// ticks converts a presentation time to video timescale units. Whole seconds
// are scaled separately so long recordings do not overflow int64.
func ticks(d time.Duration) int64 {
	sec, frac := d/time.Second, d%time.Second
	return int64(sec)*VideoTimescale + int64(frac)*VideoTimescale/int64(time.Second)
}

var _ ports.ContainerWriter = (*Writer)(nil)
