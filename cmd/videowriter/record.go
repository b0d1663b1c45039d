package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/user/videowriter/pkg/adapters/dirlibrary"
	"github.com/user/videowriter/pkg/adapters/h264encoder"
	"github.com/user/videowriter/pkg/adapters/logger"
	"github.com/user/videowriter/pkg/adapters/mp4writer"
	"github.com/user/videowriter/pkg/adapters/osfilesystem"
	"github.com/user/videowriter/pkg/adapters/smartencoder"
	"github.com/user/videowriter/pkg/adapters/swgraphics"
	"github.com/user/videowriter/pkg/config"
	"github.com/user/videowriter/pkg/ports"
	"github.com/user/videowriter/pkg/recorder"
)

// retryInterval is how long buffered producers wait when a track is full.
const retryInterval = 2 * time.Millisecond

// audioChunk is the duration of each audio buffer.
const audioChunk = 20 * time.Millisecond

func recordCommand() *cli.Command {
	return &cli.Command{
		Name:  "record",
		Usage: l10n.T("Record an animated test scene"),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Category: l10n.T("Output"), Usage: l10n.T("Output MP4 file path or file:// URL")},
			&cli.StringFlag{Name: "library-dir", Category: l10n.T("Output"), Usage: l10n.T("Copy the finished file into this directory")},

			&cli.IntFlag{Name: "width", Aliases: []string{"W"}, Category: l10n.T("Frames"), Usage: l10n.T("Frame width in pixels")},
			&cli.IntFlag{Name: "height", Aliases: []string{"H"}, Category: l10n.T("Frames"), Usage: l10n.T("Frame height in pixels")},
			&cli.Float64Flag{Name: "fps", Category: l10n.T("Frames"), Usage: l10n.T("Frames per second")},
			&cli.DurationFlag{Name: "duration", Aliases: []string{"d"}, Category: l10n.T("Frames"), Usage: l10n.T("Recording duration")},

			&cli.BoolFlag{Name: "texture-cache", Category: l10n.T("Session"), Usage: l10n.T("Render into pooled textures instead of reading back the surface")},
			&cli.BoolFlag{Name: "real-time", Category: l10n.T("Session"), Usage: l10n.T("Pace producers in real time and drop frames when the writer is busy")},
			&cli.IntFlag{Name: "pool-size", Category: l10n.T("Session"), Usage: l10n.T("Pixel buffer pool size (0 = automatic)")},

			&cli.BoolFlag{Name: "audio", Category: l10n.T("Audio"), Usage: l10n.T("Record a sine tone on an audio track")},
			&cli.IntFlag{Name: "sample-rate", Category: l10n.T("Audio"), Usage: l10n.T("Audio sample rate in Hz")},
			&cli.IntFlag{Name: "channels", Category: l10n.T("Audio"), Usage: l10n.T("Audio channel count")},

			&cli.StringFlag{Name: "codec", Category: l10n.T("Encoding"), Usage: l10n.T("Video codec (auto, h264, mjpeg)")},
			&cli.IntFlag{Name: "quality", Aliases: []string{"q"}, Category: l10n.T("Encoding"), Usage: l10n.T("JPEG quality for MJPEG (1-100)")},
			&cli.IntFlag{Name: "crf", Category: l10n.T("Encoding"), Usage: l10n.T("x264 CRF for H.264 (0-51, lower is better)")},
			&cli.StringFlag{Name: "ffmpeg-path", Category: l10n.T("Encoding"), Usage: l10n.T("Path to the ffmpeg executable")},
			&cli.IntFlag{Name: "fragment-frames", Category: l10n.T("Encoding"), Usage: l10n.T("Video frames per MP4 fragment")},

			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML config file")},
			&cli.StringFlag{Name: "env-file", Usage: l10n.T("Load environment variables from this file")},

			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Category: l10n.T("Logging"), Usage: l10n.T("Log level (debug, info, warn, error)")},
			&cli.StringFlag{Name: "log-format", Category: l10n.T("Logging"), Usage: l10n.T("Log format (console, json)")},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"Q"}, Category: l10n.T("Logging"), Usage: l10n.T("Suppress all log output")},
		},
		Action: runRecord,
	}
}

// loadConfig layers defaults, config file, environment and flags.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.LoadFromFile(path); err != nil {
			return cfg, err
		}
	}
	if path := c.String("env-file"); path != "" {
		if err := config.LoadEnvFile(path); err != nil {
			return cfg, fmt.Errorf("load env file: %w", err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	if c.IsSet("output") {
		cfg.OutputPath = c.String("output")
	}
	if c.IsSet("library-dir") {
		cfg.LibraryDir = c.String("library-dir")
	}
	if c.IsSet("width") {
		cfg.Width = c.Int("width")
	}
	if c.IsSet("height") {
		cfg.Height = c.Int("height")
	}
	if c.IsSet("fps") {
		cfg.FPS = c.Float64("fps")
	}
	if c.IsSet("duration") {
		cfg.Duration = c.Duration("duration")
	}
	if c.IsSet("texture-cache") {
		cfg.TextureCache = c.Bool("texture-cache")
	}
	if c.IsSet("real-time") {
		cfg.RealTime = c.Bool("real-time")
	}
	if c.IsSet("pool-size") {
		cfg.PoolSize = c.Int("pool-size")
	}
	if c.IsSet("audio") {
		cfg.Audio.Enabled = c.Bool("audio")
	}
	if c.IsSet("sample-rate") {
		cfg.Audio.SampleRate = c.Int("sample-rate")
	}
	if c.IsSet("channels") {
		cfg.Audio.Channels = c.Int("channels")
	}
	if c.IsSet("codec") {
		cfg.Codec = c.String("codec")
	}
	if c.IsSet("quality") {
		cfg.Quality = c.Int("quality")
	}
	if c.IsSet("crf") {
		cfg.CRF = c.Int("crf")
	}
	if c.IsSet("ffmpeg-path") {
		cfg.FFmpegPath = c.String("ffmpeg-path")
	}
	if c.IsSet("fragment-frames") {
		cfg.FragmentFrames = c.Int("fragment-frames")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.LogFormat = c.String("log-format")
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config, quiet bool) ports.Logger {
	level := ports.ParseLogLevel(cfg.LogLevel)
	switch {
	case quiet:
		return logger.NewNoop()
	case cfg.LogFormat == "json":
		return logger.NewJSON(os.Stderr, level)
	default:
		return logger.NewConsole(level)
	}
}

func runRecord(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := newLogger(cfg, c.Bool("quiet"))
	if path := c.String("config"); path != "" {
		log.Debug("Loaded config from %s", path)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, cancelling recording...")
			cancel()
		case <-ctx.Done():
		}
	}()

	// Create adapters
	fs := osfilesystem.New()
	gfx := swgraphics.New(cfg.Width, cfg.Height)

	preferred, err := smartencoder.ParseCodec(cfg.Codec)
	if err != nil {
		return err
	}
	codec, _, err := smartencoder.New(preferred, smartencoder.Options{
		FFmpegPath:  cfg.FFmpegPath,
		JPEGQuality: cfg.Quality,
		H264:        h264encoder.Options{CRF: cfg.CRF},
		Logger:      log,
	})
	if err != nil {
		return err
	}
	container := mp4writer.New(fs, log, mp4writer.Options{FragmentFrames: cfg.FragmentFrames})

	var library ports.MediaLibrary
	if cfg.LibraryDir != "" {
		library = dirlibrary.New(cfg.LibraryDir, fs, log)
	}

	exported := make(chan error, 1)
	observer := recorder.ObserverFuncs{
		SavedToLibrary: func() { exported <- nil },
		Error: func(err error) {
			if errors.Is(err, recorder.ErrExportFailure) {
				exported <- err
			}
		},
	}

	opts := recorder.Options{
		EnableTextureCache:  cfg.TextureCache,
		ExpectsRealTimeData: cfg.RealTime,
		PoolSize:            cfg.PoolSize,
	}
	if cfg.Audio.Enabled {
		opts.Audio = &ports.AudioFormat{SampleRate: cfg.Audio.SampleRate, Channels: cfg.Audio.Channels}
	}

	sess, err := recorder.NewSession(cfg.OutputPath, recorder.Size{Width: cfg.Width, Height: cfg.Height}, recorder.Dependencies{
		Graphics:  gfx,
		Container: container,
		Codec:     codec,
		Library:   library,
		Observer:  observer,
		Logger:    log,
	}, opts)
	if err != nil {
		return err
	}
	if err := sess.Start(); err != nil {
		return err
	}

	p := &producer{sess: sess, gfx: gfx, cfg: cfg, log: log}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.video(gctx) })
	if cfg.Audio.Enabled {
		g.Go(func() error { return p.audio(gctx) })
	}
	produceErr := g.Wait()

	if ctx.Err() != nil || produceErr != nil {
		sess.Cancel()
	} else {
		sess.Finish()
	}

	res, err := sess.Wait(context.Background())
	if err != nil {
		return err
	}
	switch {
	case res.State == recorder.StateFailed:
		return res.Err
	case produceErr != nil:
		return produceErr
	case res.State == recorder.StateCancelled:
		return fmt.Errorf("recording cancelled")
	}

	if stats := sess.Stats(); stats.DroppedFrames > 0 {
		log.Warn("Dropped %d frames (%d recorded)", stats.DroppedFrames, stats.VideoFrames)
	}

	if library != nil {
		if err := sess.SaveToLibrary(ctx); err != nil {
			return err
		}
		if err := <-exported; err != nil {
			return err
		}
	}
	log.Info("Output saved to %s", res.Location)
	return nil
}

// producer feeds the session from the demo scene and tone.
type producer struct {
	sess *recorder.Session
	gfx  *swgraphics.Context
	cfg  config.Config
	log  ports.Logger
}

func (p *producer) video(ctx context.Context) error {
	interval := time.Duration(float64(time.Second) / p.cfg.FPS)
	total := int(p.cfg.Duration / interval)
	p.log.Info("Rendering %d frames at %d fps", total, int(p.cfg.FPS))

	if p.cfg.RealTime {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		start := time.Now()
		for n := 0; ; n++ {
			ts := time.Since(start)
			if ts >= p.cfg.Duration {
				return nil
			}
			// Frames the writer cannot take are dropped.
			if err := p.frame(n, ts); err != nil && !errors.Is(err, recorder.ErrNotReady) {
				return err
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	}

	for n := 0; n < total; n++ {
		ts := time.Duration(n) * interval
		for {
			err := p.frame(n, ts)
			if err == nil {
				break
			}
			if !errors.Is(err, recorder.ErrNotReady) {
				return err
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(retryInterval):
			}
		}
	}
	return nil
}

// frame renders frame n and appends it at ts.
func (p *producer) frame(n int, ts time.Duration) error {
	if h, ok := p.sess.TextureTarget(); ok {
		dc, err := p.gfx.TextureCanvas(h)
		if err != nil {
			return err
		}
		drawScene(dc, n, ts)
		return p.sess.AppendFrame(ts, recorder.FromTexture(h))
	}
	drawScene(p.gfx.Canvas(), n, ts)
	return p.sess.AppendFrame(ts, recorder.FromSurface())
}

func (p *producer) audio(ctx context.Context) error {
	a := p.cfg.Audio
	gen := &toneGenerator{freq: a.ToneHz, sampleRate: a.SampleRate, channels: a.Channels}
	frames := int(int64(a.SampleRate) * int64(audioChunk) / int64(time.Second))
	chunks := int(p.cfg.Duration / audioChunk)

	var ticker *time.Ticker
	if p.cfg.RealTime {
		ticker = time.NewTicker(audioChunk)
		defer ticker.Stop()
	}

	for i := 0; i < chunks; i++ {
		buf := recorder.AudioBuffer{Samples: gen.next(frames)}
		for {
			err := p.sess.AppendAudio(buf)
			if err == nil || (p.cfg.RealTime && errors.Is(err, recorder.ErrNotReady)) {
				break
			}
			if !errors.Is(err, recorder.ErrNotReady) {
				return err
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(retryInterval):
			}
		}
		if ticker != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			return nil
		}
	}
	return nil
}
