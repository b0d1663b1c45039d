package h264encoder

import (
	"encoding/binary"

	"github.com/Eyevinn/mp4ff/avc"
)

// accessUnit is one encoded picture in length-prefixed form.
type accessUnit struct {
	data     []byte
	keyframe bool
	sps, pps [][]byte
}

// nextAUD returns the offset of the first start code at or after from that
// introduces an access unit delimiter, or -1. A 4-byte start code is
// reported from its leading zero.
func nextAUD(buf []byte, from int) int {
	for i := from; i+3 < len(buf); i++ {
		if buf[i] != 0 || buf[i+1] != 0 || buf[i+2] != 1 {
			continue
		}
		if avc.GetNaluType(buf[i+3]) != avc.NALU_AUD {
			continue
		}
		if i > 0 && buf[i-1] == 0 {
			return i - 1
		}
		return i
	}
	return -1
}

// parseAccessUnit converts an Annex B access unit to AVCC sample data.
// Parameter sets and delimiters are moved out of the sample.
func parseAccessUnit(annexB []byte) accessUnit {
	var au accessUnit
	nalus := avc.ExtractNalusFromByteStream(annexB)

	size := 0
	for _, n := range nalus {
		size += 4 + len(n)
	}
	out := make([]byte, 0, size)

	for _, n := range nalus {
		if len(n) == 0 {
			continue
		}
		switch avc.GetNaluType(n[0]) {
		case avc.NALU_SPS:
			au.sps = append(au.sps, n)
			continue
		case avc.NALU_PPS:
			au.pps = append(au.pps, n)
			continue
		case avc.NALU_AUD:
			continue
		case avc.NALU_IDR:
			au.keyframe = true
		}
		out = binary.BigEndian.AppendUint32(out, uint32(len(n)))
		out = append(out, n...)
	}
	au.data = out
	return au
}
