// SPDX-License-Identifier: EPL-2.0

package caf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/ik5/sndfiler/soundfile"
)

const (
	fileHeaderSize = 8       // "caff" + version + flags
	descChunkSize  = 12 + 32 // chunk header + desc body
	dataPreamble   = 12 + 4  // chunk header + edit count
	baseHeaderSize = fileHeaderSize + descChunkSize + dataPreamble

	flagIsFloat        = 1
	flagIsLittleEndian = 2

	// unknownSize marks a data chunk whose length was not known when the
	// header was written.
	unknownSize = int64(-1)
)

// state carries the metadata entries staged for the info chunk.
type state struct {
	meta [][2]string
}

// format implements Apple's Core Audio Format for linear PCM. The chunk
// structure is big-endian; the sample data endianness is a desc flag, so the
// format accepts either byte order.
type format struct{}

// New returns the caf type implementation.
func New() soundfile.Type { return format{} }

func (format) Name() string       { return "caf" }
func (format) MinHeaderSize() int { return baseHeaderSize }

func (format) IsHeader(buf []byte) bool {
	return len(buf) >= 8 &&
		bytes.Equal(buf[:4], []byte("caff")) &&
		binary.BigEndian.Uint16(buf[4:6]) == 1
}

func (format) Open(sf *soundfile.Soundfile, f *os.File) error {
	sf.Data = &state{}
	return soundfile.RawOpen(sf, f)
}

func (format) Close(sf *soundfile.Soundfile) error {
	return soundfile.RawClose(sf)
}

func (format) ReadHeader(sf *soundfile.Soundfile) error {
	f := sf.File
	var hdr [8]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		return fmt.Errorf("%w: %v", soundfile.ErrBadHeader, err)
	}
	if !bytes.Equal(hdr[:4], []byte("caff")) || binary.BigEndian.Uint16(hdr[4:6]) != 1 {
		return soundfile.ErrBadHeader
	}

	haveDesc := false
	pos := int64(fileHeaderSize)
	for {
		if _, err := f.Seek(pos, io.SeekStart); err != nil {
			return fmt.Errorf("%w: %v", soundfile.ErrBadHeader, err)
		}
		var ch [12]byte
		if _, err := io.ReadFull(f, ch[:]); err != nil {
			return fmt.Errorf("%w: %v", soundfile.ErrBadHeader, err)
		}
		size := int64(binary.BigEndian.Uint64(ch[4:12]))
		switch string(ch[:4]) {
		case "desc":
			var body [32]byte
			if _, err := io.ReadFull(f, body[:]); err != nil {
				return fmt.Errorf("%w: %v", soundfile.ErrBadHeader, err)
			}
			if err := fillFromDesc(sf, body[:]); err != nil {
				return err
			}
			haveDesc = true
		case "data":
			if !haveDesc {
				return soundfile.ErrBadHeader
			}
			sf.HeaderSize = pos + dataPreamble
			limit := unknownSize
			if size >= 4 {
				limit = size - 4
			}
			if st, err := f.Stat(); err == nil {
				if avail := st.Size() - sf.HeaderSize; limit < 0 || limit > avail {
					limit = avail
				}
			}
			if limit < 0 {
				limit = 0
			}
			sf.BytesLimit = limit
			return nil
		}
		if size < 0 {
			// only the final data chunk may have unknown size
			return soundfile.ErrBadHeader
		}
		pos += 12 + size
	}
}

func fillFromDesc(sf *soundfile.Soundfile, body []byte) error {
	rate := binary.BigEndian.Uint64(body[0:8])
	formatID := string(body[8:12])
	flags := binary.BigEndian.Uint32(body[12:16])
	channels := int(binary.BigEndian.Uint32(body[24:28]))
	bits := int(binary.BigEndian.Uint32(body[28:32]))

	if formatID != "lpcm" {
		return soundfile.ErrSampleFormat
	}
	isFloat := flags&flagIsFloat != 0
	var bps int
	switch {
	case isFloat && bits == 32:
		bps = 4
	case !isFloat && bits == 16:
		bps = 2
	case !isFloat && bits == 24:
		bps = 3
	default:
		return soundfile.ErrSampleFormat
	}
	if channels < 1 || channels > soundfile.MaxChans {
		return soundfile.ErrTooManyChans
	}

	sf.SampleRate = int(math.Float64frombits(rate))
	sf.Channels = channels
	sf.BytesPerSample = bps
	sf.BigEndian = flags&flagIsLittleEndian == 0
	sf.BytesPerFrame = channels * bps
	return nil
}

func (f format) WriteHeader(sf *soundfile.Soundfile, nframes int64) (int64, error) {
	header := make([]byte, baseHeaderSize)
	copy(header[0:4], "caff")
	binary.BigEndian.PutUint16(header[4:6], 1)

	writeDesc(header[fileHeaderSize:], sf)
	writeDataPreamble(header[fileHeaderSize+descChunkSize:], sf, nframes)

	if _, err := sf.File.Write(header); err != nil {
		return -1, err
	}
	return baseHeaderSize, nil
}

func writeDesc(b []byte, sf *soundfile.Soundfile) {
	copy(b[0:4], "desc")
	binary.BigEndian.PutUint64(b[4:12], 32)
	binary.BigEndian.PutUint64(b[12:20], math.Float64bits(float64(sf.SampleRate)))
	copy(b[20:24], "lpcm")
	var flags uint32
	if sf.BytesPerSample == 4 {
		flags |= flagIsFloat
	}
	if !sf.BigEndian {
		flags |= flagIsLittleEndian
	}
	binary.BigEndian.PutUint32(b[24:28], flags)
	binary.BigEndian.PutUint32(b[28:32], uint32(sf.BytesPerFrame)) // bytes per packet
	binary.BigEndian.PutUint32(b[32:36], 1)                        // frames per packet
	binary.BigEndian.PutUint32(b[36:40], uint32(sf.Channels))
	binary.BigEndian.PutUint32(b[40:44], uint32(sf.BytesPerSample*8))
}

func writeDataPreamble(b []byte, sf *soundfile.Soundfile, nframes int64) {
	copy(b[0:4], "data")
	size := unknownSize
	if nframes != soundfile.MaxFrames {
		size = 4 + nframes*int64(sf.BytesPerFrame)
	}
	binary.BigEndian.PutUint64(b[4:12], uint64(size))
	binary.BigEndian.PutUint32(b[12:16], 0) // edit count
}

func (f format) UpdateHeader(sf *soundfile.Soundfile, nframes int64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(4+nframes*int64(sf.BytesPerFrame)))
	_, err := sf.File.WriteAt(b[:], sf.HeaderSize-dataPreamble+4)
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
	return strings.HasSuffix(strings.ToLower(name), ".caf")
}

func (format) AddExtension(name string) string { return name + ".caf" }

// Endianness: either order; big unless asked otherwise.
func (format) Endianness(requested soundfile.Endianness) bool {
	return requested != soundfile.EndianLittle
}

// ReadMeta surfaces the key/value pairs of the info chunk, if present.
func (format) ReadMeta(sf *soundfile.Soundfile, sink soundfile.MetaFunc) error {
	f := sf.File
	pos := int64(fileHeaderSize)
	for pos < sf.HeaderSize-dataPreamble {
		if _, err := f.Seek(pos, io.SeekStart); err != nil {
			return err
		}
		var ch [12]byte
		if _, err := io.ReadFull(f, ch[:]); err != nil {
			return err
		}
		size := int64(binary.BigEndian.Uint64(ch[4:12]))
		if string(ch[:4]) == "info" {
			body := make([]byte, size)
			if _, err := io.ReadFull(f, body); err != nil {
				return err
			}
			emitInfo(body, sink)
			return nil
		}
		if size < 0 {
			break
		}
		pos += 12 + size
	}
	return nil
}

func emitInfo(body []byte, sink soundfile.MetaFunc) {
	if len(body) < 4 {
		return
	}
	n := int(binary.BigEndian.Uint32(body[:4]))
	fields := bytes.Split(body[4:], []byte{0})
	for i := 0; i < n && 2*i+1 < len(fields); i++ {
		sink([]string{"info", string(fields[2*i]), string(fields[2*i+1])})
	}
}

// WriteMeta stages a key/value pair for the info chunk and rewrites the
// chunk list. Valid only before the first sample lands, which the command
// surfaces guarantee.
func (f format) WriteMeta(sf *soundfile.Soundfile, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: caf meta wants <key> <value...>", soundfile.ErrMetadata)
	}
	st, ok := sf.Data.(*state)
	if !ok {
		return soundfile.ErrMetadata
	}
	st.meta = append(st.meta, [2]string{args[0], strings.Join(args[1:], " ")})

	// Rebuild info + data preamble right after the desc chunk.
	var body bytes.Buffer
	var count [4]byte
	binary.BigEndian.PutUint32(count[:], uint32(len(st.meta)))
	body.Write(count[:])
	for _, kv := range st.meta {
		body.WriteString(kv[0])
		body.WriteByte(0)
		body.WriteString(kv[1])
		body.WriteByte(0)
	}

	out := make([]byte, 12+body.Len()+dataPreamble)
	copy(out[0:4], "info")
	binary.BigEndian.PutUint64(out[4:12], uint64(body.Len()))
	copy(out[12:], body.Bytes())
	writeDataPreamble(out[12+body.Len():], sf, soundfile.MaxFrames)

	at := int64(fileHeaderSize + descChunkSize)
	if _, err := sf.File.WriteAt(out, at); err != nil {
		return err
	}
	sf.HeaderSize = at + int64(12+body.Len()) + dataPreamble
	if _, err := sf.File.Seek(sf.HeaderSize, io.SeekStart); err != nil {
		return err
	}
	return nil
}
