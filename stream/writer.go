// SPDX-License-Identifier: EPL-2.0

package stream

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ik5/sndfiler/soundfile"
	"github.com/ik5/sndfiler/soundfiler"
)

// Writer streams signal vectors to a soundfile: the audio thread fills the
// FIFO and the I/O worker drains it to disk in large chunks.
type Writer struct {
	core

	channels int

	// inSampleRate is the rate reported by the DSP graph; used as the file
	// rate when the open command gives none.
	inSampleRate int

	// DefaultSampleRate is the fallback when neither the command nor the
	// graph supplies a rate.
	DefaultSampleRate int
}

// NewWriter creates a capture streamer with nchannels signal inlets and
// starts its worker.
func NewWriter(nchannels, bufSize int, resolver soundfile.PathResolver, log zerolog.Logger) *Writer {
	nchannels = clampChannels(nchannels)
	w := &Writer{
		channels:          nchannels,
		DefaultSampleRate: 44100,
	}
	w.init(resolver, log, clampBufSize(bufSize, nchannels))
	w.sf.Channels = nchannels
	w.sf.BytesPerSample = 2
	w.sf.BytesPerFrame = nchannels * 2
	go w.worker()
	return w
}

// Channels reports the number of signal inlets.
func (w *Writer) Channels() int { return w.channels }

// Open installs a pending create request. It accepts the write-command
// flags; normalize, onset and frame-count arguments do not apply to
// streaming and are ignored with a warning. An open while streaming issues
// an implicit stop first.
func (w *Writer) Open(argv []string) error {
	if w.State() != Idle {
		w.Stop()
	}
	wa, rest, err := soundfiler.ParseWriteArgs(argv)
	if err != nil {
		return fmt.Errorf("usage: open [flags] filename: %w", err)
	}
	if wa.Normalize || wa.OnsetFrames != 0 || wa.NFrames != soundfile.MaxFrames {
		w.log.Warn().Msg("normalize/onset/nframes arguments ignored for streaming")
	}
	if len(rest) > 0 {
		w.log.Warn().Strs("extra", rest).Msg("extra arguments ignored")
	}
	if wa.Overridden {
		w.log.Warn().
			Str("type", wa.Type.Name()).
			Bool("big", wa.BigEndian).
			Msg("file forced to format's endianness")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// wait for any in-flight job to settle before rewriting the request
	for w.req != reqNothing {
		w.request.Signal()
		w.answer.Wait()
	}
	w.filename = wa.Filename
	w.sf.Type = wa.Type
	switch {
	case wa.SampleRate > 0:
		w.sf.SampleRate = wa.SampleRate
	case w.inSampleRate > 0:
		w.sf.SampleRate = w.inSampleRate
	default:
		w.sf.SampleRate = w.DefaultSampleRate
	}
	if wa.BytesPerSample > 2 {
		w.sf.BytesPerSample = wa.BytesPerSample
	} else {
		w.sf.BytesPerSample = 2
	}
	w.sf.BigEndian = wa.BigEndian
	w.sf.BytesPerFrame = w.sf.Channels * w.sf.BytesPerSample
	w.framesWritten = 0
	w.req = reqOpen
	w.fifoTail = 0
	w.fifoHead = 0
	w.eof = false
	w.fileErr = nil
	w.state = Startup
	w.setFifoGeometry()
	w.request.Signal()
	return nil
}

// Meta forwards a metadata group to the format. Valid only between open and
// start, while the header exists but no samples have landed.
func (w *Writer) Meta(args []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case Idle:
		return errors.New("meta with no prior 'open'")
	case Streaming:
		return errors.New("meta after 'start'")
	}
	if w.sf.Type == nil {
		return errors.New("meta ignored, unknown type implementation")
	}
	mw, ok := w.sf.Type.(soundfile.MetaWriter)
	if !ok {
		return fmt.Errorf("%s does not support writing metadata", w.sf.Type.Name())
	}
	// wait until the worker has created the file and gone back to sleep
	for w.req == reqOpen || !w.sf.IsOpen() {
		if w.fileErr != nil || w.eof {
			return fmt.Errorf("open failed: %w", w.fileErr)
		}
		w.request.Signal()
		w.answer.Wait()
	}
	return mw.WriteMeta(&w.sf, args)
}

// Start switches a pending open into the streaming state.
func (w *Writer) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != Startup {
		return errors.New("start requested with no prior 'open'")
	}
	w.state = Streaming
	return nil
}

// Stop ends streaming and asks the worker to finalize the file.
func (w *Writer) Stop() {
	w.mu.Lock()
	w.state = Idle
	// let the worker take up a pending open first, so the samples already
	// queued land in the new file instead of being dropped with the request
	for w.req == reqOpen {
		w.request.Signal()
		w.answer.Wait()
	}
	w.req = reqClose
	w.request.Signal()
	w.mu.Unlock()
}

// State reports the audio-side state.
func (w *Writer) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// FramesWritten reports the frames the worker has landed on disk so far.
func (w *Writer) FramesWritten() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.framesWritten
}

// SetSignal installs the DSP tick size and the graph sample rate.
func (w *Writer) SetSignal(vecSize, sampleRate int) {
	if vecSize < 1 {
		vecSize = 1
	} else if vecSize > MaxVecSize {
		vecSize = MaxVecSize
	}
	w.mu.Lock()
	w.vecSize = vecSize
	w.inSampleRate = sampleRate
	if w.fifoSize > 0 && w.sf.BytesPerFrame > 0 {
		w.sigPeriod = w.fifoSize / (16 * w.sf.BytesPerFrame * w.vecSize)
	}
	w.mu.Unlock()
}

// Print dumps the streaming state.
func (w *Writer) Print() { w.printState("writesf") }

// Close is the destructor: any open file is finalized, then the worker is
// joined. The Writer must not be used afterwards.
func (w *Writer) Close() {
	w.shutdown()
}

// Perform is the per-tick audio callback: it encodes one tick of the input
// vectors into the FIFO, waiting only when the FIFO is saturated. After a
// file error the samples are dropped so the audio thread stays live.
func (w *Writer) Perform(ins [][]float32) {
	if len(ins) == 0 {
		return
	}
	vecSize := len(ins[0])

	w.mu.Lock()
	if w.state != Streaming {
		w.mu.Unlock()
		return
	}
	sf := w.sf
	want := vecSize * sf.BytesPerFrame

	room := w.fifoTail - w.fifoHead
	if room <= 0 {
		room += w.fifoSize
	}
	for room < want+1 && !w.eof {
		w.log.Warn().Msg("waiting for disk write")
		w.request.Signal()
		w.answer.Wait()
		room = w.fifoTail - w.fifoHead
		if room <= 0 {
			room += w.fifoSize
		}
	}
	if w.eof {
		w.mu.Unlock()
		return
	}

	soundfile.XferOut(&sf, ins, w.buf[w.fifoHead:], vecSize, 0, 1)
	w.fifoHead += want
	if w.fifoHead >= w.fifoSize {
		w.fifoHead = 0
	}
	w.sigCountdown--
	if w.sigCountdown <= 0 {
		w.request.Signal()
		w.sigCountdown = w.sigPeriod
	}
	w.mu.Unlock()
}

// worker is the I/O thread: it creates files on demand and drains the FIFO
// to disk until told to close or quit.
func (w *Writer) worker() {
	var snap soundfile.Soundfile
	snap.Clear()

	w.mu.Lock()
	for {
		switch w.req {
		case reqNothing:
			w.answer.Signal()
			w.request.Wait()

		case reqOpen:
			w.serveOpen(&snap)

		case reqClose, reqQuit:
			quit := w.req == reqQuit
			w.finalize(&snap)
			w.req = reqNothing
			w.answer.Signal()
			if quit {
				w.mu.Unlock()
				close(w.workerDone)
				return
			}

		default:
			w.request.Wait()
		}
	}
}

// serveOpen creates the file and runs the drain loop. Called and returned
// with mu held.
func (w *Writer) serveOpen(snap *soundfile.Soundfile) {
	filename := w.filename
	resolver := w.resolver

	w.req = reqBusy
	w.fileErr = nil

	// an already-open file should not happen since Open stops first, but
	// finalize it anyway rather than leak it
	if w.sf.IsOpen() {
		w.finalize(snap)
		if w.req != reqBusy {
			return
		}
	}

	*snap = w.sf
	w.mu.Unlock()
	err := soundfile.Create(resolver, filename, snap, 0)
	w.mu.Lock()

	if err != nil {
		w.sf.File = nil
		w.sf.Data = nil
		w.eof = true
		w.fileErr = err
		w.req = reqNothing
		w.answer.Signal()
		return
	}
	if w.req != reqBusy && w.req != reqClose {
		// superseded while the file was being created; don't leak it. A
		// close goes on to drain what is queued and finalize the file.
		w.closeSnapshot(snap)
		return
	}
	w.sf = *snap
	w.fifoTail = 0
	w.framesWritten = 0

	// wait for the fifo to have data and write it to disk
	for w.req == reqBusy || (w.req == reqClose && w.fifoHead != w.fifoTail) {
		fifoSize := w.fifoSize
		var writeBytes int
		if w.fifoHead < w.fifoTail ||
			w.fifoHead >= w.fifoTail+WriteSize ||
			(w.req == reqClose && w.fifoHead != w.fifoTail) {
			if w.fifoHead < w.fifoTail {
				writeBytes = fifoSize - w.fifoTail
			} else {
				writeBytes = w.fifoHead - w.fifoTail
			}
			if writeBytes > ReadSize {
				writeBytes = ReadSize
			}
		} else {
			w.answer.Signal()
			w.request.Wait()
			continue
		}

		tail := w.fifoTail
		*snap = w.sf
		w.mu.Unlock()
		n, werr := snap.Type.WriteSamples(snap, w.buf[tail:tail+writeBytes])
		w.mu.Lock()

		if w.req != reqBusy && w.req != reqClose {
			break
		}
		if n < writeBytes {
			w.fileErr = werr
			w.eof = true
			break
		}
		w.fifoTail += n
		if w.fifoTail == fifoSize {
			w.fifoTail = 0
		}
		w.framesWritten += int64(n / w.sf.BytesPerFrame)
		w.answer.Signal()
	}

	// a write error leaves the request at busy; settle it so control
	// commands stop blocking, then finalize what landed
	if w.req == reqBusy {
		w.req = reqNothing
		w.finalize(snap)
		w.answer.Signal()
	}
}

// finalize patches the header with the real frame count and closes the
// file. Called with mu held; the disk work happens unlocked on a snapshot.
func (w *Writer) finalize(snap *soundfile.Soundfile) {
	if !w.sf.IsOpen() {
		return
	}
	framesWritten := w.framesWritten
	*snap = w.sf
	w.mu.Unlock()
	soundfile.FinishWrite(snap, soundfile.MaxFrames, framesWritten, w.log)
	if err := snap.Type.Close(snap); err != nil {
		w.log.Error().Err(err).Msg("closing soundfile")
	}
	w.mu.Lock()
	w.sf.File = nil
	w.sf.Data = nil
}
