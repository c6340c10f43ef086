// SPDX-License-Identifier: EPL-2.0

package wave

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/go-audio/riff"

	"github.com/ik5/sndfiler/soundfile"
)

const headerSize = 44 // canonical RIFF + fmt(16) + data headers

var dataID = [4]byte{'d', 'a', 't', 'a'}

const (
	fmtPCM   = 1
	fmtFloat = 3
)

// format implements the RIFF/WAVE container: little-endian samples, fmt tags
// 1 (integer PCM) and 3 (IEEE float).
type format struct{}

// New returns the wave type implementation.
func New() soundfile.Type { return format{} }

func (format) Name() string       { return "wave" }
func (format) MinHeaderSize() int { return headerSize }

func (format) IsHeader(buf []byte) bool {
	return len(buf) >= 12 &&
		bytes.Equal(buf[:4], []byte("RIFF")) &&
		bytes.Equal(buf[8:12], []byte("WAVE"))
}

func (format) Open(sf *soundfile.Soundfile, f *os.File) error {
	return soundfile.RawOpen(sf, f)
}

func (format) Close(sf *soundfile.Soundfile) error {
	return soundfile.RawClose(sf)
}

// ReadHeader walks the RIFF chunks up to the data chunk. Chunks other than
// fmt and data are skipped; the payload offset becomes the header size.
func (format) ReadHeader(sf *soundfile.Soundfile) error {
	p := riff.New(sf.File)
	if err := p.ParseHeaders(); err != nil {
		return fmt.Errorf("%w: %v", soundfile.ErrBadHeader, err)
	}

	offset := int64(12)
	haveFmt := false
	for {
		ch, err := p.NextChunk()
		if err != nil {
			return fmt.Errorf("%w: %v", soundfile.ErrBadHeader, err)
		}
		offset += 8
		if ch.ID == riff.FmtID {
			if err := ch.DecodeWavHeader(p); err != nil {
				return fmt.Errorf("%w: %v", soundfile.ErrBadHeader, err)
			}
			haveFmt = true
			ch.Done()
			offset += int64(ch.Size)
			continue
		}
		if ch.ID == dataID {
			if !haveFmt {
				return soundfile.ErrBadHeader
			}
			return fillFromFmt(sf, p, offset, int64(ch.Size))
		}
		ch.Done()
		offset += int64(ch.Size)
	}
}

func fillFromFmt(sf *soundfile.Soundfile, p *riff.Parser, payloadOffset, dataSize int64) error {
	var bps int
	switch p.WavAudioFormat {
	case fmtPCM:
		switch p.BitsPerSample {
		case 16:
			bps = 2
		case 24:
			bps = 3
		default:
			return soundfile.ErrSampleFormat
		}
	case fmtFloat:
		if p.BitsPerSample != 32 {
			return soundfile.ErrSampleFormat
		}
		bps = 4
	default:
		return soundfile.ErrSampleFormat
	}

	channels := int(p.NumChannels)
	if channels < 1 || channels > soundfile.MaxChans {
		return soundfile.ErrTooManyChans
	}

	sf.SampleRate = int(p.SampleRate)
	sf.Channels = channels
	sf.BytesPerSample = bps
	sf.BigEndian = false
	sf.BytesPerFrame = channels * bps
	sf.HeaderSize = payloadOffset

	// Trust the container but never past the end of the file.
	limit := dataSize
	if st, err := sf.File.Stat(); err == nil {
		if avail := st.Size() - payloadOffset; limit > avail || limit < 0 {
			limit = avail
		}
	}
	if limit < 0 {
		limit = 0
	}
	sf.BytesLimit = limit
	return nil
}

// WriteHeader emits the canonical 44-byte header declaring nframes frames.
func (format) WriteHeader(sf *soundfile.Soundfile, nframes int64) (int64, error) {
	dataSize := clampUint32(nframes * int64(sf.BytesPerFrame))

	tag := uint16(fmtPCM)
	if sf.BytesPerSample == 4 {
		tag = fmtFloat
	}
	byteRate := uint32(sf.SampleRate * sf.BytesPerFrame)

	header := make([]byte, headerSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36+dataSize)
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], tag)
	binary.LittleEndian.PutUint16(header[22:24], uint16(sf.Channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sf.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], byteRate)
	binary.LittleEndian.PutUint16(header[32:34], uint16(sf.BytesPerFrame))
	binary.LittleEndian.PutUint16(header[34:36], uint16(sf.BytesPerSample*8))
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	if _, err := sf.File.Write(header); err != nil {
		return -1, err
	}
	return headerSize, nil
}

// UpdateHeader patches the RIFF and data chunk sizes in place.
func (format) UpdateHeader(sf *soundfile.Soundfile, nframes int64) error {
	dataSize := clampUint32(nframes * int64(sf.BytesPerFrame))

	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(sf.HeaderSize)-8+dataSize)
	if _, err := sf.File.WriteAt(b[:], 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b[:], dataSize)
	_, err := sf.File.WriteAt(b[:], sf.HeaderSize-4)
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
	return strings.HasSuffix(lower, ".wav") || strings.HasSuffix(lower, ".wave")
}

func (format) AddExtension(name string) string { return name + ".wav" }

// Endianness: WAVE sample data is always little-endian.
func (format) Endianness(requested soundfile.Endianness) bool { return false }

func clampUint32(v int64) uint32 {
	if v < 0 {
		return 0
	}
	if v > 0xfffffff0 {
		return 0xfffffff0
	}
	return uint32(v)
}
