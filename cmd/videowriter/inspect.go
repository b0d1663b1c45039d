package main

import (
	"fmt"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/videowriter/pkg/adapters/mp4probe"
)

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     l10n.T("Show tracks and sample counts of a recorded MP4 file"),
		ArgsUsage: "<file.mp4>",
		Action:    runInspect,
	}
}

func runInspect(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit(l10n.T("Exactly one MP4 file is required"), 2)
	}
	path := c.Args().First()

	info, err := mp4probe.ProbeFile(path)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", path, err)
	}

	w := c.App.Writer
	if info.Fragmented {
		fmt.Fprintln(w, l10n.F("%s: fragmented, %d fragments", path, info.Fragments))
	} else {
		fmt.Fprintln(w, l10n.F("%s: progressive", path))
	}
	for _, t := range info.Tracks {
		fmt.Fprintln(w, l10n.F("Track %d: %s %s, %d samples (%d sync), %v, %d bytes",
			t.ID, t.Kind, t.Codec, t.Samples, t.SyncCount, t.Duration(), t.Bytes))
		switch {
		case t.Width > 0:
			fmt.Fprintln(w, l10n.F("  %dx%d", t.Width, t.Height))
		case t.SampleRate > 0:
			fmt.Fprintln(w, l10n.F("  %d Hz, %d channels", t.SampleRate, t.Channels))
		}
	}
	return nil
}
