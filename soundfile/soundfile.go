// SPDX-License-Identifier: EPL-2.0

package soundfile

import (
	"math"
	"os"

	"github.com/rs/zerolog"

	"github.com/ik5/sndfiler/utils"
)

const (
	// MaxChans is the most channels any soundfile may carry.
	MaxChans = 64

	// MaxBytes is the "no limit" sentinel for BytesLimit.
	MaxBytes int64 = math.MaxInt64

	// MaxFrames is the "write everything" sentinel for frame counts.
	MaxFrames int64 = math.MaxInt64
)

// Soundfile is the per-file descriptor shared by the batch and streaming
// engines. A descriptor with a non-nil File always has Type set and
// consistent geometry (BytesPerFrame == Channels * BytesPerSample).
type Soundfile struct {
	File           *os.File
	Type           Type
	SampleRate     int
	Channels       int
	BytesPerSample int // 2, 3 or 4; 4 means IEEE 754 binary32
	BigEndian      bool
	HeaderSize     int64 // -1 means "detect from header"
	BytesPerFrame  int
	BytesLimit     int64 // payload bytes still to stream
	Data           any   // per-format state, owned by Type while open
}

// Clear resets the descriptor to the closed state with no byte limit.
func (sf *Soundfile) Clear() {
	*sf = Soundfile{BytesLimit: MaxBytes}
}

// ClearInfo resets the sample format fields, leaving the file handle, type
// and per-format state untouched.
func (sf *Soundfile) ClearInfo() {
	sf.SampleRate = 0
	sf.Channels = 0
	sf.BytesPerSample = 0
	sf.HeaderSize = 0
	sf.BigEndian = false
	sf.BytesPerFrame = 0
	sf.BytesLimit = MaxBytes
}

// IsOpen reports whether the descriptor holds an open file handle.
func (sf *Soundfile) IsOpen() bool { return sf.File != nil }

// FramesInFile derives the frame count from the remaining byte limit.
func (sf *Soundfile) FramesInFile() int64 {
	if sf.BytesPerFrame <= 0 {
		return 0
	}
	return sf.BytesLimit / int64(sf.BytesPerFrame)
}

// NeedsByteSwap reports whether sample bytes differ from host order.
func (sf *Soundfile) NeedsByteSwap() bool {
	return sf.BigEndian != utils.IsBigEndian()
}

// Info captures the five-element format tuple reported to callers.
type Info struct {
	SampleRate     int
	HeaderSize     int64 // 0 when unknown
	Channels       int
	BytesPerSample int
	BigEndian      bool
}

// Info snapshots the descriptor's format tuple.
func (sf *Soundfile) Info() Info {
	hs := sf.HeaderSize
	if hs < 0 {
		hs = 0
	}
	return Info{
		SampleRate:     sf.SampleRate,
		HeaderSize:     hs,
		Channels:       sf.Channels,
		BytesPerSample: sf.BytesPerSample,
		BigEndian:      sf.BigEndian,
	}
}

// Endianness is the single-letter form used on the wire of the command
// surface: 'b' or 'l'.
func (i Info) Endianness() byte {
	if i.BigEndian {
		return 'b'
	}
	return 'l'
}

// LogTo dumps the descriptor at debug level.
func (sf *Soundfile) LogTo(log zerolog.Logger) {
	name := "(none)"
	if sf.Type != nil {
		name = sf.Type.Name()
	}
	log.Debug().
		Str("type", name).
		Int("samplerate", sf.SampleRate).
		Int("channels", sf.Channels).
		Int("bytespersample", sf.BytesPerSample).
		Bool("bigendian", sf.BigEndian).
		Int64("headersize", sf.HeaderSize).
		Int64("bytelimit", sf.BytesLimit).
		Bool("open", sf.IsOpen()).
		Msg("soundfile")
}
