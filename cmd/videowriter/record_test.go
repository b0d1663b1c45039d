package main

import (
	"bytes"
	"encoding/binary"
	"go/format"
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fogleman/gg"
	"github.com/urfave/cli/v2"

	"github.com/user/videowriter/pkg/adapters/mp4probe"
)

func TestToneGenerator_ContinuousPhase(t *testing.T) {
	whole := &toneGenerator{freq: 440, sampleRate: 8000, channels: 2}
	split := &toneGenerator{freq: 440, sampleRate: 8000, channels: 2}

	want := whole.next(100)
	got := append(split.next(40), split.next(60)...)

	if len(want) != 200 {
		t.Fatalf("expected 200 interleaved samples, got %d", len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d differs across chunk boundary: %d vs %d", i, got[i], want[i])
		}
	}
	for i := 0; i < len(want); i += 2 {
		if want[i] != want[i+1] {
			t.Fatalf("channels differ at frame %d", i/2)
		}
	}
}

func TestToneGenerator_Amplitude(t *testing.T) {
	g := &toneGenerator{freq: 1000, sampleRate: 48000, channels: 1}
	var peak int16
	for _, v := range g.next(4800) {
		if v > peak {
			peak = v
		}
	}
	limit := int16(math.MaxInt16 / 4)
	if peak == 0 || peak > limit {
		t.Errorf("peak %d outside (0, %d]", peak, limit)
	}
}

func TestDrawScene_Deterministic(t *testing.T) {
	render := func() *image.RGBA {
		dc := gg.NewContext(64, 48)
		drawScene(dc, 3, 250*time.Millisecond)
		return dc.Image().(*image.RGBA)
	}
	a, b := render(), render()
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("drawScene output differs for identical arguments")
	}

	dc := gg.NewContext(64, 48)
	drawScene(dc, 4, 500*time.Millisecond)
	if bytes.Equal(a.Pix, dc.Image().(*image.RGBA).Pix) {
		t.Error("expected different frames to differ")
	}
}

func runApp(t *testing.T, args ...string) error {
	t.Helper()
	app := &cli.App{
		Name:     "videowriter",
		Commands: []*cli.Command{recordCommand()},
	}
	return app.Run(append([]string{"videowriter", "record"}, args...))
}

// assertMP4 checks that path holds an MP4 file starting with ftyp.
func assertMP4(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(data) < 8 || string(data[4:8]) != "ftyp" {
		t.Fatalf("%s does not start with ftyp", path)
	}
	size := binary.BigEndian.Uint32(data[:4])
	if int(size) > len(data) {
		t.Fatalf("ftyp size %d exceeds file size %d", size, len(data))
	}
	if !bytes.Contains(data, []byte("moof")) || !bytes.Contains(data, []byte("mdat")) {
		t.Error("expected fragmented MP4 with moof and mdat boxes")
	}
}

func TestRecord_EndToEnd(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		audioSamples int
	}{
		{"readback", []string{"--texture-cache=false"}, 0},
		{"texture cache", []string{"--texture-cache=true"}, 0},
		{"with audio", []string{"--audio", "--sample-rate", "8000", "--channels", "1"}, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			out := filepath.Join(dir, "out.mp4")
			args := append([]string{
				"-o", out,
				"-W", "64", "-H", "48",
				"--fps", "10", "-d", "500ms",
				"--codec", "mjpeg",
				"--real-time=false",
				"--fragment-frames", "2",
				"--quiet",
			}, tt.args...)

			if err := runApp(t, args...); err != nil {
				t.Fatalf("record failed: %v", err)
			}
			assertMP4(t, out)

			info, err := mp4probe.ProbeFile(out)
			if err != nil {
				t.Fatalf("probe output: %v", err)
			}
			if video, _ := info.Track(mp4probe.KindVideo); video.Samples != 5 || video.Codec != "jpeg" {
				t.Errorf("expected 5 jpeg samples, got %d %q", video.Samples, video.Codec)
			}
			audio, hasAudio := info.Track(mp4probe.KindAudio)
			if hasAudio != (tt.audioSamples > 0) || audio.Samples != tt.audioSamples {
				t.Errorf("expected %d audio samples, got %d (track present: %v)", tt.audioSamples, audio.Samples, hasAudio)
			}

			entries, _ := os.ReadDir(dir)
			if len(entries) != 1 {
				t.Errorf("expected only the output file, found %d entries", len(entries))
			}
		})
	}
}

func TestRecord_CopiesToLibrary(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.mp4")
	lib := filepath.Join(dir, "library")

	err := runApp(t,
		"-o", out, "--library-dir", lib,
		"-W", "32", "-H", "32", "--fps", "10", "-d", "300ms",
		"--codec", "mjpeg", "--real-time=false", "--quiet",
	)
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	assertMP4(t, filepath.Join(lib, "out.mp4"))
}

func TestRecord_ExistingOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.mp4")
	if err := os.WriteFile(out, []byte("keep"), 0644); err != nil {
		t.Fatal(err)
	}

	err := runApp(t, "-o", out, "-W", "32", "-H", "32", "-d", "100ms", "--codec", "mjpeg", "--quiet")
	if err == nil {
		t.Fatal("expected an error for an existing output file")
	}
	if data, _ := os.ReadFile(out); string(data) != "keep" {
		t.Error("existing output was modified")
	}
}

func TestRecord_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "from-config.mp4")
	cfgPath := filepath.Join(dir, "videowriter.yaml")
	yaml := "output: " + out + "\nwidth: 32\nheight: 32\nfps: 10\nduration: 200ms\ncodec: mjpeg\nreal_time: false\n"
	if err := os.WriteFile(cfgPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	if err := runApp(t, "--config", cfgPath, "--quiet"); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	assertMP4(t, out)
}

func TestRecord_InvalidCodec(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.mp4")
	if err := runApp(t, "-o", out, "--codec", "vp9", "--quiet"); err == nil {
		t.Error("expected an error for an unknown codec")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("output created despite invalid codec")
	}
}

func TestInspect(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.mp4")
	if err := runApp(t, "-o", out, "-W", "32", "-H", "32", "--fps", "10", "-d", "300ms",
		"--codec", "mjpeg", "--real-time=false", "--quiet"); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	var buf bytes.Buffer
	app := &cli.App{
		Name:     "videowriter",
		Writer:   &buf,
		Commands: []*cli.Command{inspectCommand()},
	}
	if err := app.Run([]string{"videowriter", "inspect", out}); err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("jpeg")) {
		t.Errorf("expected codec in output, got %q", buf.String())
	}
}

func TestLexiconFormatted(t *testing.T) {
	src, err := os.ReadFile("i18n.go")
	if err != nil {
		t.Fatal(err)
	}
	formatted, err := format.Source(src)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if !bytes.Equal(src, formatted) {
		t.Error("i18n.go is not gofmt-formatted")
	}
}
