// SPDX-License-Identifier: EPL-2.0

package raw

import (
	"os"
	"strings"

	"github.com/ik5/sndfiler/soundfile"
	"github.com/ik5/sndfiler/utils"
)

// format is the headerless passthrough. It never matches a sniff and is
// selected only when the caller supplies the geometry, so it lives outside
// the registry.
type format struct{}

// New returns the raw type implementation.
func New() soundfile.Type { return format{} }

func (format) Name() string       { return "raw" }
func (format) MinHeaderSize() int { return 0 }

func (format) IsHeader(buf []byte) bool { return false }

func (format) Open(sf *soundfile.Soundfile, f *os.File) error {
	return soundfile.RawOpen(sf, f)
}

func (format) Close(sf *soundfile.Soundfile) error {
	return soundfile.RawClose(sf)
}

// ReadHeader trusts the caller-provided geometry and derives the byte limit
// from the file size past the declared header.
func (f format) ReadHeader(sf *soundfile.Soundfile) error {
	if sf.Channels < 1 || sf.Channels > soundfile.MaxChans {
		return soundfile.ErrTooManyChans
	}
	if sf.BytesPerSample < 2 || sf.BytesPerSample > 4 {
		return soundfile.ErrSampleFormat
	}
	sf.BytesPerFrame = sf.Channels * sf.BytesPerSample
	if sf.HeaderSize < 0 {
		sf.HeaderSize = 0
	}
	st, err := sf.File.Stat()
	if err != nil {
		return err
	}
	sf.BytesLimit = st.Size() - sf.HeaderSize
	if sf.BytesLimit < 0 {
		sf.BytesLimit = 0
	}
	return nil
}

func (format) WriteHeader(sf *soundfile.Soundfile, nframes int64) (int64, error) {
	return 0, nil
}

func (format) UpdateHeader(sf *soundfile.Soundfile, nframes int64) error { return nil }

func (format) SeekToFrame(sf *soundfile.Soundfile, frame int64) error {
	return soundfile.RawSeekToFrame(sf, frame)
}

func (format) ReadSamples(sf *soundfile.Soundfile, buf []byte) (int, error) {
	return soundfile.RawRead(sf, buf)
}

func (format) WriteSamples(sf *soundfile.Soundfile, buf []byte) (int, error) {
	return soundfile.RawWrite(sf, buf)
}

func (format) HasExtension(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".raw")
}

func (format) AddExtension(name string) string { return name + ".raw" }

func (format) Endianness(requested soundfile.Endianness) bool {
	switch requested {
	case soundfile.EndianBig:
		return true
	case soundfile.EndianLittle:
		return false
	default:
		return utils.IsBigEndian()
	}
}
