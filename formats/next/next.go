// SPDX-License-Identifier: EPL-2.0

package next

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ik5/sndfiler/soundfile"
)

const (
	minHeaderSize   = 24
	writeHeaderSize = 28 // 24 byte header + 4 byte annotation pad

	encodingLinear16 = 3
	encodingLinear24 = 4
	encodingFloat32  = 6

	// sizeUnknown is the on-disk marker for "written while streaming".
	sizeUnknown = 0xffffffff
)

// format implements the NeXT/Sun ".snd" container. The magic doubles as the
// byte-order marker: ".snd" means big-endian header and samples, "dns."
// (a byte-swapped magic) means little-endian throughout.
type format struct{}

// New returns the next type implementation.
func New() soundfile.Type { return format{} }

func (format) Name() string       { return "next" }
func (format) MinHeaderSize() int { return minHeaderSize }

func (format) IsHeader(buf []byte) bool {
	return len(buf) >= 4 &&
		(bytes.Equal(buf[:4], []byte(".snd")) || bytes.Equal(buf[:4], []byte("dns.")))
}

func (format) Open(sf *soundfile.Soundfile, f *os.File) error {
	return soundfile.RawOpen(sf, f)
}

func (format) Close(sf *soundfile.Soundfile) error {
	return soundfile.RawClose(sf)
}

func (format) ReadHeader(sf *soundfile.Soundfile) error {
	var hdr [minHeaderSize]byte
	if _, err := io.ReadFull(sf.File, hdr[:]); err != nil {
		return fmt.Errorf("%w: %v", soundfile.ErrBadHeader, err)
	}

	var order binary.ByteOrder
	var bigEndian bool
	switch {
	case bytes.Equal(hdr[:4], []byte(".snd")):
		order, bigEndian = binary.BigEndian, true
	case bytes.Equal(hdr[:4], []byte("dns.")):
		order, bigEndian = binary.LittleEndian, false
	default:
		return soundfile.ErrBadHeader
	}

	dataLocation := int64(order.Uint32(hdr[4:8]))
	dataSize := order.Uint32(hdr[8:12])
	encoding := order.Uint32(hdr[12:16])
	sampleRate := int(order.Uint32(hdr[16:20]))
	channels := int(order.Uint32(hdr[20:24]))

	var bps int
	switch encoding {
	case encodingLinear16:
		bps = 2
	case encodingLinear24:
		bps = 3
	case encodingFloat32:
		bps = 4
	default:
		return soundfile.ErrSampleFormat
	}
	if channels < 1 || channels > soundfile.MaxChans {
		return soundfile.ErrTooManyChans
	}
	if dataLocation < minHeaderSize {
		return soundfile.ErrBadHeader
	}

	sf.SampleRate = sampleRate
	sf.Channels = channels
	sf.BytesPerSample = bps
	sf.BigEndian = bigEndian
	sf.BytesPerFrame = channels * bps
	sf.HeaderSize = dataLocation

	limit := int64(-1)
	if dataSize != sizeUnknown {
		limit = int64(dataSize)
	}
	if st, err := sf.File.Stat(); err == nil {
		if avail := st.Size() - dataLocation; limit < 0 || limit > avail {
			limit = avail
		}
	}
	if limit < 0 {
		limit = 0
	}
	sf.BytesLimit = limit
	return nil
}

func (format) WriteHeader(sf *soundfile.Soundfile, nframes int64) (int64, error) {
	order := binary.ByteOrder(binary.LittleEndian)
	magic := "dns."
	if sf.BigEndian {
		order = binary.BigEndian
		magic = ".snd"
	}

	size := uint32(sizeUnknown)
	if nframes != soundfile.MaxFrames {
		size = clampUint32(nframes * int64(sf.BytesPerFrame))
	}

	var encoding uint32
	switch sf.BytesPerSample {
	case 2:
		encoding = encodingLinear16
	case 3:
		encoding = encodingLinear24
	case 4:
		encoding = encodingFloat32
	default:
		return -1, soundfile.ErrSampleFormat
	}

	header := make([]byte, writeHeaderSize)
	copy(header[0:4], magic)
	order.PutUint32(header[4:8], writeHeaderSize)
	order.PutUint32(header[8:12], size)
	order.PutUint32(header[12:16], encoding)
	order.PutUint32(header[16:20], uint32(sf.SampleRate))
	order.PutUint32(header[20:24], uint32(sf.Channels))

	if _, err := sf.File.Write(header); err != nil {
		return -1, err
	}
	return writeHeaderSize, nil
}

func (format) UpdateHeader(sf *soundfile.Soundfile, nframes int64) error {
	order := binary.ByteOrder(binary.LittleEndian)
	if sf.BigEndian {
		order = binary.BigEndian
	}
	var b [4]byte
	order.PutUint32(b[:], clampUint32(nframes*int64(sf.BytesPerFrame)))
	_, err := sf.File.WriteAt(b[:], 8)
	return err
}

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
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".snd") || strings.HasSuffix(lower, ".au")
}

func (format) AddExtension(name string) string { return name + ".snd" }

// Endianness: either order; the traditional default is big.
func (format) Endianness(requested soundfile.Endianness) bool {
	return requested != soundfile.EndianLittle
}

func clampUint32(v int64) uint32 {
	if v < 0 {
		return 0
	}
	if v >= sizeUnknown {
		return sizeUnknown - 1
	}
	return uint32(v)
}
