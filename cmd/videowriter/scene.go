package main

import (
	"fmt"
	"math"
	"time"

	"github.com/fogleman/gg"
)

// drawScene renders the test pattern for frame n at time t. The output
// depends only on its arguments.
func drawScene(dc *gg.Context, n int, t time.Duration) {
	w, h := float64(dc.Width()), float64(dc.Height())
	sec := t.Seconds()

	dc.SetRGB(0.1, 0.1, 0.18)
	dc.Clear()

	// Color bars
	bars := [][3]float64{
		{0.75, 0.75, 0.75}, {0.75, 0.75, 0}, {0, 0.75, 0.75}, {0, 0.75, 0},
		{0.75, 0, 0.75}, {0.75, 0, 0}, {0, 0, 0.75},
	}
	bw := w / float64(len(bars))
	for i, c := range bars {
		dc.SetRGB(c[0], c[1], c[2])
		dc.DrawRectangle(float64(i)*bw, 0, bw, h/4)
		dc.Fill()
	}

	// A ball orbiting the center, one revolution every two seconds
	r := math.Min(w, h) / 4
	angle := sec * math.Pi
	dc.SetRGB(0.29, 0.87, 0.5)
	dc.DrawCircle(w/2+r*math.Cos(angle), h*5/8+r/2*math.Sin(angle), math.Min(w, h)/16)
	dc.Fill()

	// Progress bar
	dc.SetRGB(0.29, 0.87, 0.5)
	dc.DrawRectangle(0, h-8, w*math.Mod(sec, 1), 8)
	dc.Fill()

	dc.SetRGB(1, 1, 1)
	dc.DrawString(fmt.Sprintf("frame %d  %.3fs", n, sec), 8, h/4+20)
}

// toneGenerator produces an interleaved sine tone with continuous phase.
type toneGenerator struct {
	freq       float64
	sampleRate int
	channels   int
	pos        int64
}

// next returns the following frames of the tone.
func (g *toneGenerator) next(frames int) []int16 {
	out := make([]int16, frames*g.channels)
	for i := 0; i < frames; i++ {
		t := float64(g.pos+int64(i)) / float64(g.sampleRate)
		v := int16(math.Sin(2*math.Pi*g.freq*t) * 0.25 * math.MaxInt16)
		for c := 0; c < g.channels; c++ {
			out[i*g.channels+c] = v
		}
	}
	g.pos += int64(frames)
	return out
}
