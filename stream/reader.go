// SPDX-License-Identifier: EPL-2.0

package stream

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ik5/sndfiler/soundfile"
	"github.com/ik5/sndfiler/utils"
)

// Reader streams a soundfile from disk to signal vectors: a dedicated I/O
// worker fills the FIFO while the audio thread drains it one tick at a time.
type Reader struct {
	core

	channels int

	// OnDone is delivered through Sched when the file runs out. Set both
	// before the first Open.
	OnDone func()
	Sched  Scheduler
}

// NewReader creates a playback streamer with nchannels signal outlets and
// the given buffer size (0 picks the default) and starts its worker.
func NewReader(nchannels, bufSize int, resolver soundfile.PathResolver, log zerolog.Logger) *Reader {
	nchannels = clampChannels(nchannels)
	r := &Reader{
		channels: nchannels,
		Sched:    GoScheduler{},
	}
	r.init(resolver, log, clampBufSize(bufSize, nchannels))
	r.sf.Channels = nchannels
	r.sf.BytesPerSample = 2
	r.sf.BytesPerFrame = nchannels * 2
	go r.worker()
	return r
}

// Channels reports the number of signal outlets.
func (r *Reader) Channels() int { return r.channels }

// Open installs a pending open request:
//
//	open [flags] filename [onset] [headersize] [channels] [bytespersample] [endian]
//
// A headersize of 0 means detect from the header; a positive value reads the
// file raw past that many bytes; -1 means truly headerless. A format flag
// together with an explicit headersize is dropped with a warning. The worker
// picks the request up asynchronously; a second Open supersedes a pending
// one without surfacing an error.
func (r *Reader) Open(argv []string) error {
	var typ soundfile.Type
	for len(argv) > 0 && strings.HasPrefix(argv[0], "-") {
		flag := argv[0][1:]
		if flag == "-" {
			argv = argv[1:]
			break
		}
		t, ok := soundfile.Default.Find(flag)
		if !ok {
			return errors.New("usage: open [flags] filename [onset] [headersize] [channels] [bytespersample] [endian (b or l)]\nflags: " +
				soundfile.Default.FlagUsage() + " --")
		}
		typ = t
		argv = argv[1:]
	}
	if len(argv) == 0 || argv[0] == "" {
		return nil // no filename
	}
	filename := argv[0]
	onset := floatArg(argv, 1)
	headerSize := floatArg(argv, 2)
	nchannels := floatArg(argv, 3)
	bytesPerSample := floatArg(argv, 4)
	endian := ""
	if len(argv) > 5 {
		endian = argv[5]
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sf.ClearInfo()
	r.req = reqOpen
	r.filename = filename
	r.fifoTail = 0
	r.fifoHead = 0
	switch {
	case strings.HasPrefix(endian, "b"):
		r.sf.BigEndian = true
	case strings.HasPrefix(endian, "l"):
		r.sf.BigEndian = false
	case endian != "":
		r.log.Error().Str("endian", endian).Msg("endianness neither 'b' nor 'l'")
		r.sf.BigEndian = utils.IsBigEndian()
	default:
		r.sf.BigEndian = utils.IsBigEndian()
	}
	if onset > 0 {
		r.onsetFrames = onset
	} else {
		r.onsetFrames = 0
	}
	switch {
	case headerSize > 0:
		r.sf.HeaderSize = headerSize
	case headerSize == 0:
		r.sf.HeaderSize = -1 // autodetect
	default:
		r.sf.HeaderSize = 0 // truly headerless
	}
	if nchannels >= 1 {
		r.sf.Channels = int(nchannels)
	} else {
		r.sf.Channels = 1
	}
	if bytesPerSample > 2 {
		r.sf.BytesPerSample = int(bytesPerSample)
	} else {
		r.sf.BytesPerSample = 2
	}
	r.sf.BytesPerFrame = r.sf.Channels * r.sf.BytesPerSample
	if typ != nil && r.sf.HeaderSize >= 0 {
		r.log.Warn().Str("type", typ.Name()).Msg("format flag overridden by headersize")
		r.sf.Type = nil
	} else {
		r.sf.Type = typ
	}
	r.eof = false
	r.fileErr = nil
	r.state = Startup
	r.request.Signal()
	return nil
}

// Start switches a pending open into the streaming state.
func (r *Reader) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Startup {
		return errors.New("start requested with no prior 'open'")
	}
	r.state = Streaming
	return nil
}

// Stop ends streaming and asks the worker to close the file.
func (r *Reader) Stop() {
	r.mu.Lock()
	r.state = Idle
	r.req = reqClose
	r.request.Signal()
	r.mu.Unlock()
}

// Float is the scalar control: nonzero starts, zero stops.
func (r *Reader) Float(f float64) error {
	if f != 0 {
		return r.Start()
	}
	r.Stop()
	return nil
}

// SetSignal installs the DSP tick size, as the host's dsp routine does on
// every graph reconfiguration.
func (r *Reader) SetSignal(vecSize int) {
	if vecSize < 1 {
		vecSize = 1
	} else if vecSize > MaxVecSize {
		vecSize = MaxVecSize
	}
	r.mu.Lock()
	r.vecSize = vecSize
	if r.fifoSize > 0 && r.sf.BytesPerFrame > 0 {
		r.sigPeriod = r.fifoSize / (16 * r.sf.BytesPerFrame * r.vecSize)
	}
	r.mu.Unlock()
}

// Print dumps the streaming state.
func (r *Reader) Print() { r.printState("readsf") }

// Close is the destructor: it quits and joins the worker. The Reader must
// not be used afterwards.
func (r *Reader) Close() {
	r.shutdown()
}

// Perform is the per-tick audio callback. Each vector in outs must be
// vecSize long; len(outs) is the outlet count. The call only blocks when
// the FIFO is starved, which is a fault of the disk, not of the design.
func (r *Reader) Perform(outs [][]float32) {
	if len(outs) == 0 {
		return
	}
	vecSize := len(outs[0])

	r.mu.Lock()
	if r.state != Streaming {
		r.mu.Unlock()
		zeroAll(outs, 0)
		return
	}

	sf := r.sf
	want := vecSize * sf.BytesPerFrame
	for !r.eof && r.fifoHead >= r.fifoTail && r.fifoHead < r.fifoTail+want-1 {
		r.log.Warn().Msg("waiting for disk read")
		r.request.Signal()
		r.answer.Wait()
		// the descriptor may have changed while waiting
		sf = r.sf
		want = vecSize * sf.BytesPerFrame
	}

	if r.eof && r.fifoHead >= r.fifoTail && r.fifoHead < r.fifoTail+want-1 {
		if r.fileErr != nil {
			r.log.Error().Err(r.fileErr).Str("file", r.filename).Msg("streaming read failed")
		}
		if r.OnDone != nil {
			r.Sched.Schedule(r.OnDone)
		}
		r.state = Idle

		// drain the partial frames that are left, zero the rest
		xferSize := 0
		if sf.BytesPerFrame > 0 {
			xferSize = (r.fifoHead - r.fifoTail + 1) / sf.BytesPerFrame
		}
		if xferSize > 0 {
			soundfile.XferIn(&sf, outs, 0, r.buf[r.fifoTail:], xferSize)
		}
		zeroAll(outs, xferSize)
		r.request.Signal()
		r.mu.Unlock()
		return
	}

	soundfile.XferIn(&sf, outs, 0, r.buf[r.fifoTail:], vecSize)
	r.fifoTail += want
	if r.fifoTail >= r.fifoSize {
		r.fifoTail = 0
	}
	r.sigCountdown--
	if r.sigCountdown <= 0 {
		r.request.Signal()
		r.sigCountdown = r.sigPeriod
	}
	r.mu.Unlock()
}

// worker is the I/O thread: it waits for requests and, while serving an
// open, keeps the FIFO fed until EOF, error or cancellation.
func (r *Reader) worker() {
	var snap soundfile.Soundfile
	snap.Clear()

	r.mu.Lock()
	for {
		switch r.req {
		case reqNothing:
			r.answer.Signal()
			r.request.Wait()

		case reqOpen:
			r.serveOpen(&snap)

		case reqClose:
			r.closeSnapshot(&snap)
			if r.req == reqClose {
				r.req = reqNothing
			}
			r.answer.Signal()

		case reqQuit:
			r.closeSnapshot(&snap)
			r.req = reqNothing
			r.answer.Signal()
			r.mu.Unlock()
			close(r.workerDone)
			return

		default:
			// reqBusy only exists inside serveOpen; wait for a change
			r.request.Wait()
		}
	}
}

// serveOpen handles one open request. Called and returned with mu held.
func (r *Reader) serveOpen(snap *soundfile.Soundfile) {
	onset := r.onsetFrames
	filename := r.filename
	resolver := r.resolver

	// flip to busy so an ensuing open is noticed
	r.req = reqBusy
	r.fileErr = nil

	// close a previously open file first
	if r.sf.IsOpen() {
		r.closeSnapshot(snap)
		if r.req != reqBusy {
			r.finishOpen(snap)
			return
		}
	}

	// cache after the close: the shared descriptor may have been rewritten
	// by a newer Open while the mutex was released
	*snap = r.sf
	r.mu.Unlock()
	err := soundfile.Open(resolver, filename, snap, onset)
	r.mu.Lock()
	r.sf = *snap
	if err != nil {
		r.fileErr = err
		r.eof = true
		r.finishOpen(snap)
		return
	}
	if r.req != reqBusy {
		r.finishOpen(snap)
		return
	}

	r.fifoHead = 0
	r.setFifoGeometry()

	// wait for the fifo to get hungry and feed it
	for r.req == reqBusy {
		fifoSize := r.fifoSize
		if r.eof {
			break
		}
		var want int
		if r.fifoHead >= r.fifoTail {
			// Reading to the end of the buffer with tail at zero would
			// fill it completely, which is indistinguishable from empty:
			// hold off until the tail moves.
			if r.fifoTail != 0 || fifoSize-r.fifoHead > ReadSize {
				want = fifoSize - r.fifoHead
				if want > ReadSize {
					want = ReadSize
				}
				if int64(want) > r.sf.BytesLimit {
					want = int(r.sf.BytesLimit)
				}
			} else {
				r.answer.Signal()
				r.request.Wait()
				continue
			}
		} else {
			want = r.fifoTail - r.fifoHead - 1
			if want < ReadSize {
				r.answer.Signal()
				r.request.Wait()
				continue
			}
			want = ReadSize
			if int64(want) > r.sf.BytesLimit {
				want = int(r.sf.BytesLimit)
			}
		}

		snap.File = r.sf.File
		head := r.fifoHead
		buf := r.buf
		r.mu.Unlock()
		n, rerr := snap.Type.ReadSamples(snap, buf[head:head+want])
		r.mu.Lock()

		if r.req != reqBusy {
			break
		}
		if rerr != nil && !errors.Is(rerr, io.EOF) {
			r.fileErr = rerr
			break
		}
		if n == 0 {
			r.eof = true
			break
		}
		r.fifoHead += n
		r.sf.BytesLimit -= int64(n)
		if r.fifoHead == fifoSize {
			r.fifoHead = 0
		}
		if r.sf.BytesLimit <= 0 {
			r.eof = true
			break
		}
		r.answer.Signal()
	}

	r.finishOpen(snap)
}

// finishOpen leaves the open handler: revert busy, close whatever is still
// open and wake the audio side one last time.
func (r *Reader) finishOpen(snap *soundfile.Soundfile) {
	if r.req == reqBusy {
		r.req = reqNothing
	}
	r.closeSnapshot(snap)
	r.answer.Signal()
}

func zeroAll(outs [][]float32, from int) {
	for i := range outs {
		vec := outs[i]
		for j := from; j < len(vec); j++ {
			vec[j] = 0
		}
	}
}

// floatArg mirrors the message surface: a missing or non-numeric argument
// reads as zero.
func floatArg(argv []string, i int) int64 {
	if len(argv) <= i {
		return 0
	}
	f, err := strconv.ParseFloat(argv[i], 64)
	if err != nil {
		return 0
	}
	return int64(f)
}
