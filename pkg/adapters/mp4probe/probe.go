// Package mp4probe reads track and sample information back from MP4 files.
package mp4probe

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"
)

// Track kinds, from the handler type of each trak.
const (
	KindVideo = "video"
	KindAudio = "audio"
	KindOther = "other"
)

// Track describes one track of a file.
type Track struct {
	ID        uint32
	Kind      string
	Codec     string // sample entry type, e.g. "avc1", "jpeg", "sowt"
	Timescale uint32

	Width  int
	Height int

	SampleRate int
	Channels   int

	Samples   int
	SyncCount int
	Bytes     int64
	Ticks     uint64
}

// Duration returns the summed sample durations.
func (t Track) Duration() time.Duration {
	if t.Timescale == 0 {
		return 0
	}
	return time.Duration(t.Ticks * uint64(time.Second) / uint64(t.Timescale))
}

// Info summarizes a file.
type Info struct {
	Fragmented bool
	Fragments  int
	Tracks     []Track
}

// Track returns the first track of the given kind.
func (i Info) Track(kind string) (Track, bool) {
	for _, t := range i.Tracks {
		if t.Kind == kind {
			return t, true
		}
	}
	return Track{}, false
}

// ProbeFile reads the MP4 file at path.
func ProbeFile(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return Probe(f)
}

// Probe reads an MP4 file from r.
func Probe(r io.Reader) (Info, error) {
	file, err := mp4.DecodeFile(r)
	if err != nil {
		return Info{}, fmt.Errorf("decode mp4: %w", err)
	}

	if file.IsFragmented() {
		return probeFragmented(file)
	}
	return probeProgressive(file)
}

func probeFragmented(file *mp4.File) (Info, error) {
	if file.Init == nil || file.Init.Moov == nil {
		return Info{}, fmt.Errorf("no init segment found")
	}
	info := Info{Fragmented: true}
	for _, trak := range file.Init.Moov.Traks {
		info.Tracks = append(info.Tracks, describeTrak(trak))
	}

	trexs := make(map[uint32]*mp4.TrexBox)
	if mvex := file.Init.Moov.Mvex; mvex != nil {
		for _, trex := range mvex.Trexs {
			trexs[trex.TrackID] = trex
		}
	}

	for _, seg := range file.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			info.Fragments++
			for i := range info.Tracks {
				t := &info.Tracks[i]
				trex, ok := trexs[t.ID]
				if !ok {
					return Info{}, fmt.Errorf("no trex for track %d", t.ID)
				}
				// Nil when the track has no traf in this fragment.
				samples, err := frag.GetFullSamples(trex)
				if err != nil {
					return Info{}, fmt.Errorf("get samples for track %d: %w", t.ID, err)
				}
				for _, s := range samples {
					t.Samples++
					t.Ticks += uint64(s.Dur)
					t.Bytes += int64(s.Size)
					if s.Flags == mp4.SyncSampleFlags {
						t.SyncCount++
					}
				}
			}
		}
	}
	return info, nil
}

func probeProgressive(file *mp4.File) (Info, error) {
	if file.Moov == nil {
		return Info{}, fmt.Errorf("no moov box found")
	}
	var info Info
	for _, trak := range file.Moov.Traks {
		t := describeTrak(trak)
		if trak.Mdia != nil && trak.Mdia.Minf != nil && trak.Mdia.Minf.Stbl != nil {
			stbl := trak.Mdia.Minf.Stbl
			if stbl.Stsz != nil {
				t.Samples = int(stbl.Stsz.SampleNumber)
				for nr := 1; nr <= t.Samples; nr++ {
					t.Bytes += int64(stbl.Stsz.GetSampleSize(nr))
				}
			}
			if stbl.Stts != nil && t.Samples > 0 {
				decodeTime, dur := stbl.Stts.GetDecodeTime(uint32(t.Samples))
				t.Ticks = decodeTime + uint64(dur)
			}
			if stbl.Stss != nil {
				t.SyncCount = len(stbl.Stss.SampleNumber)
			} else {
				t.SyncCount = t.Samples
			}
		}
		info.Tracks = append(info.Tracks, t)
	}
	return info, nil
}

// describeTrak reads the static description of a track from its trak box.
func describeTrak(trak *mp4.TrakBox) Track {
	t := Track{ID: trak.Tkhd.TrackID, Kind: KindOther}
	if trak.Mdia == nil {
		return t
	}
	if trak.Mdia.Mdhd != nil {
		t.Timescale = trak.Mdia.Mdhd.Timescale
	}
	if trak.Mdia.Hdlr != nil {
		switch trak.Mdia.Hdlr.HandlerType {
		case "vide":
			t.Kind = KindVideo
		case "soun":
			t.Kind = KindAudio
		}
	}
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return t
	}

	children := trak.Mdia.Minf.Stbl.Stsd.Children
	if len(children) == 0 {
		return t
	}
	switch entry := children[0].(type) {
	case *mp4.VisualSampleEntryBox:
		t.Codec = entry.Type()
		t.Width, t.Height = int(entry.Width), int(entry.Height)
	case *mp4.AudioSampleEntryBox:
		t.Codec = entry.Type()
		t.SampleRate, t.Channels = int(entry.SampleRate), int(entry.ChannelCount)
	default:
		t.Codec = entry.Type()
	}
	return t
}
