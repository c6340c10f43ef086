// SPDX-License-Identifier: EPL-2.0

package soundfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// PathResolver turns a host-relative soundfile name into an absolute path.
// Resolvers handed to the streaming engine must be safe for concurrent use.
type PathResolver interface {
	Resolve(name string) (string, error)
}

// DirResolver resolves names relative to a fixed directory, the stand-in for
// the host document's folder. It is immutable and therefore safe to share.
type DirResolver string

func (d DirResolver) Resolve(name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}
	return filepath.Join(string(d), name), nil
}

// Open resolves name and opens it into sf, skipping skipFrames frames.
func Open(res PathResolver, name string, sf *Soundfile, skipFrames int64) error {
	path, err := res.Resolve(name)
	if err != nil {
		return fmt.Errorf("resolving %q: %w", name, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return OpenFile(f, sf, skipFrames)
}

// OpenFile runs header detection on an already-open file and fills sf.
//
// When sf.HeaderSize >= 0 the caller supplied the geometry and detection is
// skipped in favor of the raw type. Otherwise, if sf.Type is set its sniff
// must accept the header; if unset, registered formats are probed in order.
// On success the handle is positioned at skipFrames and the byte limit is
// decremented accordingly. On failure the handle is closed.
func OpenFile(f *os.File, sf *Soundfile, skipFrames int64) error {
	if sf.HeaderSize >= 0 {
		raw := RawType()
		if raw == nil {
			f.Close()
			return ErrNoRawType
		}
		sf.Type = raw
	} else {
		probeSize := Default.MinHeaderSize()
		if sf.Type != nil && sf.Type.MinHeaderSize() > probeSize {
			probeSize = sf.Type.MinHeaderSize()
		}
		buf := make([]byte, probeSize)
		n, _ := io.ReadFull(f, buf)
		buf = buf[:n]

		if sf.Type == nil {
			t, ok := Default.Sniff(buf)
			if !ok {
				f.Close()
				return ErrBadHeader
			}
			sf.Type = t
		} else if !sf.Type.IsHeader(buf) {
			f.Close()
			return fmt.Errorf("%w (%s)", ErrBadHeader, sf.Type.Name())
		}

		if _, err := f.Seek(0, io.SeekStart); err != nil {
			f.Close()
			return err
		}
	}

	if err := sf.Type.Open(sf, f); err != nil {
		f.Close()
		return err
	}
	if err := sf.Type.ReadHeader(sf); err != nil {
		closeOnError(sf)
		return err
	}
	if err := sf.Type.SeekToFrame(sf, skipFrames); err != nil {
		closeOnError(sf)
		return err
	}
	sf.BytesLimit -= int64(sf.BytesPerFrame) * skipFrames
	if sf.BytesLimit < 0 {
		sf.BytesLimit = 0
	}
	return nil
}

func closeOnError(sf *Soundfile) {
	if sf.IsOpen() && sf.Type != nil {
		sf.Type.Close(sf)
	}
	sf.File = nil
	sf.Data = nil
}

// Create makes a new soundfile for writing: the name gets the format's
// extension if missing, the file is truncated, and the header for nframes
// frames is written. The resulting header size is stored in sf.
func Create(res PathResolver, name string, sf *Soundfile, nframes int64) error {
	if !sf.Type.HasExtension(name) {
		name = sf.Type.AddExtension(name)
	}
	path, err := res.Resolve(name)
	if err != nil {
		return fmt.Errorf("resolving %q: %w", name, err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	if err := sf.Type.Open(sf, f); err != nil {
		f.Close()
		return err
	}
	headerSize, err := sf.Type.WriteHeader(sf, nframes)
	if err != nil {
		closeOnError(sf)
		return err
	}
	sf.HeaderSize = headerSize
	return nil
}

// FinishWrite patches the header when fewer frames landed than declared.
// Best-effort: a failed patch is logged, the file data already written is
// preserved either way.
func FinishWrite(sf *Soundfile, nframes, framesWritten int64, log zerolog.Logger) {
	if framesWritten >= nframes {
		return
	}
	if nframes < MaxFrames {
		log.Error().
			Int64("written", framesWritten).
			Int64("expected", nframes).
			Msg("short soundfile write")
	}
	if err := sf.Type.UpdateHeader(sf, framesWritten); err != nil {
		log.Error().Err(err).Msg("updating soundfile header")
	}
}

// RawOpen is the default Type.Open: it just attaches the handle.
func RawOpen(sf *Soundfile, f *os.File) error {
	sf.File = f
	return nil
}

// RawClose is the default Type.Close: close the handle, drop state.
func RawClose(sf *Soundfile) error {
	var err error
	if sf.File != nil {
		err = sf.File.Close()
	}
	sf.File = nil
	sf.Data = nil
	return err
}

// RawRead is the default Type.ReadSamples: a plain short-read-permitting
// read against the handle.
func RawRead(sf *Soundfile, buf []byte) (int, error) {
	return sf.File.Read(buf)
}

// RawWrite is the default Type.WriteSamples.
func RawWrite(sf *Soundfile, buf []byte) (int, error) {
	return sf.File.Write(buf)
}

// RawSeekToFrame is the default Type.SeekToFrame: header plus whole frames.
func RawSeekToFrame(sf *Soundfile, frame int64) error {
	hs := sf.HeaderSize
	if hs < 0 {
		hs = 0
	}
	_, err := sf.File.Seek(hs+frame*int64(sf.BytesPerFrame), io.SeekStart)
	return err
}
