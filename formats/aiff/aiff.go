// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ik5/sndfiler/soundfile"
	"github.com/ik5/sndfiler/utils"
)

const (
	headerSizeInt   = 54 // FORM + COMM(18) + SSND preamble
	headerSizeFloat = 72 // FORM + FVER + COMM(24, fl32) + SSND preamble

	aifcVersion1 = 0xA2805140
)

// format implements FORM/AIFF and the AIFC variants this engine speaks:
// integer PCM at 16 or 24 bits, fl32 float, and the sowt little-endian
// 16-bit flavor (read only).
type format struct{}

// New returns the aiff type implementation.
func New() soundfile.Type { return format{} }

func (format) Name() string       { return "aiff" }
func (format) MinHeaderSize() int { return headerSizeInt }

func (format) IsHeader(buf []byte) bool {
	return len(buf) >= 12 &&
		bytes.Equal(buf[:4], []byte("FORM")) &&
		(bytes.Equal(buf[8:12], []byte("AIFF")) || bytes.Equal(buf[8:12], []byte("AIFC")))
}

func (format) Open(sf *soundfile.Soundfile, f *os.File) error {
	return soundfile.RawOpen(sf, f)
}

func (format) Close(sf *soundfile.Soundfile) error {
	return soundfile.RawClose(sf)
}

func (format) ReadHeader(sf *soundfile.Soundfile) error {
	f := sf.File
	var hdr [12]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		return fmt.Errorf("%w: %v", soundfile.ErrBadHeader, err)
	}
	if !bytes.Equal(hdr[:4], []byte("FORM")) {
		return soundfile.ErrBadHeader
	}
	isAIFC := bytes.Equal(hdr[8:12], []byte("AIFC"))
	if !isAIFC && !bytes.Equal(hdr[8:12], []byte("AIFF")) {
		return soundfile.ErrBadHeader
	}

	var (
		haveComm, haveSSND bool
		channels           int
		commFrames         int64
		bits               int
		compression        [4]byte
		payloadOffset      int64
		dataSize           int64
	)
	copy(compression[:], "NONE")

	pos := int64(12)
	for !haveComm || !haveSSND {
		if _, err := f.Seek(pos, io.SeekStart); err != nil {
			return fmt.Errorf("%w: %v", soundfile.ErrBadHeader, err)
		}
		var ch [8]byte
		if _, err := io.ReadFull(f, ch[:]); err != nil {
			return fmt.Errorf("%w: %v", soundfile.ErrBadHeader, err)
		}
		size := int64(binary.BigEndian.Uint32(ch[4:8]))
		switch string(ch[:4]) {
		case "COMM":
			body := make([]byte, size)
			if _, err := io.ReadFull(f, body); err != nil {
				return fmt.Errorf("%w: %v", soundfile.ErrBadHeader, err)
			}
			if len(body) < 18 {
				return soundfile.ErrBadHeader
			}
			channels = int(binary.BigEndian.Uint16(body[0:2]))
			commFrames = int64(binary.BigEndian.Uint32(body[2:6]))
			bits = int(binary.BigEndian.Uint16(body[6:8]))
			sf.SampleRate = int(utils.DecodeFloat80(body[8:18]))
			if isAIFC {
				if len(body) < 22 {
					return soundfile.ErrBadHeader
				}
				copy(compression[:], body[18:22])
			}
			haveComm = true
		case "SSND":
			var pre [8]byte
			if _, err := io.ReadFull(f, pre[:]); err != nil {
				return fmt.Errorf("%w: %v", soundfile.ErrBadHeader, err)
			}
			offset := int64(binary.BigEndian.Uint32(pre[0:4]))
			payloadOffset = pos + 16 + offset
			dataSize = size - 8 - offset
			haveSSND = true
		}
		pos += 8 + size + size&1
	}

	bigEndian := true
	var bps int
	switch string(compression[:]) {
	case "NONE":
		switch bits {
		case 16:
			bps = 2
		case 24:
			bps = 3
		default:
			return soundfile.ErrSampleFormat
		}
	case "sowt":
		if bits != 16 {
			return soundfile.ErrSampleFormat
		}
		bps = 2
		bigEndian = false
	case "fl32", "FL32":
		if bits != 32 {
			return soundfile.ErrSampleFormat
		}
		bps = 4
	default:
		return soundfile.ErrSampleFormat
	}

	if channels < 1 || channels > soundfile.MaxChans {
		return soundfile.ErrTooManyChans
	}

	sf.Channels = channels
	sf.BytesPerSample = bps
	sf.BigEndian = bigEndian
	sf.BytesPerFrame = channels * bps
	sf.HeaderSize = payloadOffset

	limit := commFrames * int64(sf.BytesPerFrame)
	if dataSize >= 0 && dataSize < limit {
		limit = dataSize
	}
	if st, err := f.Stat(); err == nil {
		if avail := st.Size() - payloadOffset; limit > avail {
			limit = avail
		}
	}
	if limit < 0 {
		limit = 0
	}
	sf.BytesLimit = limit
	return nil
}

// WriteHeader emits plain AIFF for integer samples and an AIFC fl32 header
// for 32-bit float.
func (f format) WriteHeader(sf *soundfile.Soundfile, nframes int64) (int64, error) {
	isFloat := sf.BytesPerSample == 4
	headerSize := int64(headerSizeInt)
	if isFloat {
		headerSize = headerSizeFloat
	}
	dataSize := nframes * int64(sf.BytesPerFrame)

	header := make([]byte, headerSize)
	w := header
	copy(w[0:4], "FORM")
	binary.BigEndian.PutUint32(w[4:8], clampUint32(headerSize-8+dataSize))
	if isFloat {
		copy(w[8:12], "AIFC")
		copy(w[12:16], "FVER")
		binary.BigEndian.PutUint32(w[16:20], 4)
		binary.BigEndian.PutUint32(w[20:24], aifcVersion1)
		w = w[24:]
	} else {
		copy(w[8:12], "AIFF")
		w = w[12:]
	}

	copy(w[0:4], "COMM")
	commSize := uint32(18)
	if isFloat {
		commSize = 24
	}
	binary.BigEndian.PutUint32(w[4:8], commSize)
	binary.BigEndian.PutUint16(w[8:10], uint16(sf.Channels))
	binary.BigEndian.PutUint32(w[10:14], clampUint32(nframes))
	binary.BigEndian.PutUint16(w[14:16], uint16(sf.BytesPerSample*8))
	utils.EncodeFloat80(w[16:26], float64(sf.SampleRate))
	if isFloat {
		copy(w[26:30], "fl32")
		// empty pascal compression name, padded
		w[30], w[31] = 0, 0
		w = w[32:]
	} else {
		w = w[26:]
	}

	copy(w[0:4], "SSND")
	binary.BigEndian.PutUint32(w[4:8], clampUint32(8+dataSize))
	binary.BigEndian.PutUint32(w[8:12], 0)  // offset
	binary.BigEndian.PutUint32(w[12:16], 0) // block size

	if _, err := sf.File.Write(header); err != nil {
		return -1, err
	}
	return headerSize, nil
}

// UpdateHeader patches the FORM size, COMM frame count and SSND size.
func (f format) UpdateHeader(sf *soundfile.Soundfile, nframes int64) error {
	dataSize := nframes * int64(sf.BytesPerFrame)
	isFloat := sf.BytesPerSample == 4

	commDataStart := int64(20) // after FORM(12) + COMM header(8)
	if isFloat {
		commDataStart = 32 // FVER in between
	}

	var b [4]byte
	binary.BigEndian.PutUint32(b[:], clampUint32(sf.HeaderSize-8+dataSize))
	if _, err := sf.File.WriteAt(b[:], 4); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(b[:], clampUint32(nframes))
	if _, err := sf.File.WriteAt(b[:], commDataStart+2); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(b[:], clampUint32(8+dataSize))
	_, err := sf.File.WriteAt(b[:], sf.HeaderSize-12)
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
	return strings.HasSuffix(lower, ".aif") ||
		strings.HasSuffix(lower, ".aiff") ||
		strings.HasSuffix(lower, ".aifc")
}

func (format) AddExtension(name string) string { return name + ".aif" }

// Endianness: AIFF sample data is big-endian (sowt exists on read only).
func (format) Endianness(requested soundfile.Endianness) bool { return true }

func clampUint32(v int64) uint32 {
	if v < 0 {
		return 0
	}
	if v > 0xfffffff0 {
		return 0xfffffff0
	}
	return uint32(v)
}
