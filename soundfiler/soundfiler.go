// SPDX-License-Identifier: EPL-2.0

package soundfiler

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/ik5/sndfiler/soundfile"
)

// transferBufSize is the scratch buffer for chunked transfers; any whole
// multiple of the frame size is carved out of it.
const transferBufSize = 1024

// Soundfiler is the synchronous batch engine behind the read/write/list
// command surface. It moves whole soundfiles between disk and host tables.
type Soundfiler struct {
	Resolver soundfile.PathResolver
	Tables   Finder

	// SampleRate supplies the host sample rate, used as the default when
	// writing and reported for raw reads.
	SampleRate func() int

	// Meta receives metadata items when a read passes -meta.
	Meta soundfile.MetaFunc

	Log zerolog.Logger
}

// New returns a Soundfiler rooted at dir with the given table finder.
func New(dir string, tables Finder, log zerolog.Logger) *Soundfiler {
	return &Soundfiler{
		Resolver:   soundfile.DirResolver(dir),
		Tables:     tables,
		SampleRate: func() int { return 44100 },
		Log:        log,
	}
}

// List returns the registered format names.
func (s *Soundfiler) List() []string {
	var names []string
	for _, t := range soundfile.Default.All() {
		names = append(names, t.Name())
	}
	return names
}

// Read executes "read [flags] filename [table...]": it opens the file,
// optionally resizes the target tables, transfers the frames and zeroes the
// leftovers. It returns the number of frames read and the format info tuple.
// On error zero frames are reported.
func (s *Soundfiler) Read(argv []string) (int64, soundfile.Info, error) {
	ra, err := parseReadArgs(argv)
	if err != nil {
		return 0, soundfile.Info{}, err
	}

	var sf soundfile.Soundfile
	sf.Clear()
	sf.HeaderSize = -1
	if ra.raw {
		if ra.ascii {
			s.Log.Warn().Msg("'-raw' overridden by '-ascii'")
		} else {
			sf = ra.rawInfo
			sf.SampleRate = s.SampleRate()
			sf.BytesLimit = soundfile.MaxBytes
		}
	}
	sf.Type = ra.typ

	// look the tables up before touching the disk
	tables := make([]Table, len(ra.tables))
	vecs := make([][]float32, len(ra.tables))
	finalSize := int64(0)
	resize := ra.resize
	for i, name := range ra.tables {
		tab, ok := s.Tables.FindTable(name)
		if !ok {
			return 0, soundfile.Info{}, fmt.Errorf("%w: %s", ErrNoSuchTable, name)
		}
		tables[i] = tab
		vecs[i] = tab.Samples()
		if finalSize != 0 && finalSize != int64(len(vecs[i])) && !resize {
			s.Log.Warn().Msg("arrays have different lengths; resizing...")
			resize = true
		}
		finalSize = int64(len(vecs[i]))
	}

	if ra.ascii {
		frames, err := s.readASCII(ra.filename, tables, vecs, resize, finalSize)
		return frames, soundfile.Info{}, err
	}

	if err := soundfile.Open(s.Resolver, ra.filename, &sf, ra.skipFrames); err != nil {
		return 0, soundfile.Info{}, err
	}
	defer func() {
		if sf.IsOpen() {
			sf.Type.Close(&sf)
		}
	}()

	framesInFile := sf.FramesInFile()

	if ra.meta && s.Meta != nil {
		if mr, ok := sf.Type.(soundfile.MetaReader); ok {
			if err := mr.ReadMeta(&sf, s.Meta); err != nil {
				s.Log.Error().Err(err).Msg("reading meta data failed")
			}
		}
	}

	if resize {
		if framesInFile > ra.maxSize {
			s.Log.Error().Int64("maxsize", ra.maxSize).Msg("truncated to maxsize elements")
			framesInFile = ra.maxSize
		}
		finalSize = framesInFile
		for i, tab := range tables {
			if err := tab.Resize(int(finalSize)); err != nil {
				return 0, sf.Info(), fmt.Errorf("%w: %v", ErrResize, err)
			}
			tab.SetSaveInPatch(false)
			vecs[i] = tab.Samples()
			if int64(len(vecs[i])) != finalSize {
				return 0, sf.Info(), ErrResize
			}
		}
	}

	if finalSize == 0 {
		finalSize = soundfile.MaxFrames
	}
	if finalSize > framesInFile {
		finalSize = framesInFile
	}

	// without tables the header already answers the question, except for
	// raw or unknown-length files which must be stream-counted
	if len(tables) == 0 && sf.Type != soundfile.RawType() && finalSize != soundfile.MaxFrames {
		return finalSize, sf.Info(), nil
	}

	bufFrames := transferBufSize / sf.BytesPerFrame
	buf := make([]byte, bufFrames*sf.BytesPerFrame)
	framesRead := int64(0)
	for framesRead < finalSize {
		thisRead := finalSize - framesRead
		if thisRead > int64(bufFrames) {
			thisRead = int64(bufFrames)
		}
		n, rerr := sf.Type.ReadSamples(&sf, buf[:thisRead*int64(sf.BytesPerFrame)])
		nframes := n / sf.BytesPerFrame
		if nframes <= 0 {
			if rerr != nil && !errors.Is(rerr, io.EOF) {
				s.Log.Error().Err(rerr).Str("file", ra.filename).Msg("read failed")
			}
			break
		}
		soundfile.XferIn(&sf, vecs, framesRead, buf, nframes)
		framesRead += int64(nframes)
	}

	// zero out remaining elements of the vectors
	for i := range vecs {
		for j := framesRead; j < int64(len(vecs[i])); j++ {
			vecs[i][j] = 0
		}
	}
	// zero out vectors in excess of the file's channels
	for i := sf.Channels; i < len(vecs); i++ {
		for j := range vecs[i] {
			vecs[i][j] = 0
		}
	}
	for _, tab := range tables {
		tab.Redraw()
	}
	return framesRead, sf.Info(), nil
}

// Write executes "write [flags] filename table...": it scans the onset
// window for the peak, creates the file, streams the frames through the
// format and patches the header if the transfer came up short.
func (s *Soundfiler) Write(argv []string) (int64, soundfile.Info, error) {
	wa, rest, err := ParseWriteArgs(argv)
	if err != nil {
		return 0, soundfile.Info{}, err
	}
	if wa.Overridden {
		s.Log.Warn().
			Str("type", wa.Type.Name()).
			Bool("big", wa.BigEndian).
			Msg("file forced to format's endianness")
	}
	if len(rest) < 1 || len(rest) > soundfile.MaxChans {
		return 0, soundfile.Info{}, usageError(WriteUsage, "bad table count")
	}

	var sf soundfile.Soundfile
	sf.Clear()
	sf.Type = wa.Type
	sf.Channels = len(rest)
	sf.SampleRate = wa.SampleRate
	sf.BytesPerSample = wa.BytesPerSample
	sf.BigEndian = wa.BigEndian
	sf.BytesPerFrame = len(rest) * wa.BytesPerSample
	if sf.SampleRate <= 0 {
		sf.SampleRate = s.SampleRate()
	}

	nframes := wa.NFrames
	vecs := make([][]float32, len(rest))
	for i, name := range rest {
		tab, ok := s.Tables.FindTable(name)
		if !ok {
			return 0, soundfile.Info{}, fmt.Errorf("%w: %s", ErrNoSuchTable, name)
		}
		vecs[i] = tab.Samples()
		if avail := int64(len(vecs[i])) - wa.OnsetFrames; nframes > avail {
			nframes = avail
		}
	}
	if nframes <= 0 {
		return 0, soundfile.Info{}, fmt.Errorf("%w %d", ErrNoSamples, wa.OnsetFrames)
	}

	// find the biggest sample for normalizing
	var biggest float32
	for i := range vecs {
		for j := wa.OnsetFrames; j < wa.OnsetFrames+nframes; j++ {
			v := vecs[i][j]
			if v > biggest {
				biggest = v
			} else if -v > biggest {
				biggest = -v
			}
		}
	}

	if err := soundfile.Create(s.Resolver, wa.Filename, &sf, nframes); err != nil {
		return 0, soundfile.Info{}, err
	}
	defer func() {
		if sf.IsOpen() {
			sf.Type.Close(&sf)
		}
	}()

	normalize := wa.Normalize
	if !normalize {
		if sf.BytesPerSample != 4 && biggest > 1 {
			s.Log.Warn().
				Str("file", wa.Filename).
				Float32("amplitude", biggest).
				Msg("reducing max amplitude to 1")
			normalize = true
		} else {
			s.Log.Info().
				Str("file", wa.Filename).
				Float32("amplitude", biggest).
				Msg("biggest amplitude")
		}
	}
	normalFactor := float32(1)
	if normalize && biggest > 0 {
		normalFactor = float32(32767.0 / (32768.0 * float64(biggest)))
	}

	if len(wa.Meta) > 0 {
		mw, ok := sf.Type.(soundfile.MetaWriter)
		if !ok {
			s.Log.Error().
				Str("type", sf.Type.Name()).
				Msg("format does not support writing metadata")
		} else {
			for _, group := range wa.Meta {
				if err := mw.WriteMeta(&sf, group); err != nil {
					s.Log.Error().Err(err).Msg("writing metadata failed")
				}
			}
		}
	}

	bufFrames := transferBufSize / sf.BytesPerFrame
	buf := make([]byte, bufFrames*sf.BytesPerFrame)
	framesWritten := int64(0)
	onset := wa.OnsetFrames
	for framesWritten < nframes {
		thisWrite := nframes - framesWritten
		if thisWrite > int64(bufFrames) {
			thisWrite = int64(bufFrames)
		}
		dataSize := int(thisWrite) * sf.BytesPerFrame
		soundfile.XferOut(&sf, vecs, buf[:dataSize], int(thisWrite), onset, normalFactor)
		n, werr := sf.Type.WriteSamples(&sf, buf[:dataSize])
		if n < dataSize {
			s.Log.Error().Err(werr).Str("file", wa.Filename).Msg("write failed")
			if n > 0 {
				framesWritten += int64(n / sf.BytesPerFrame)
			}
			break
		}
		framesWritten += thisWrite
		onset += thisWrite
	}

	soundfile.FinishWrite(&sf, nframes, framesWritten, s.Log)
	info := sf.Info()
	if err := sf.Type.Close(&sf); err != nil {
		return framesWritten, info, err
	}
	return framesWritten, info, nil
}
