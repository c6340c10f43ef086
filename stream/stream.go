// SPDX-License-Identifier: EPL-2.0

package stream

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/ik5/sndfiler/soundfile"
)

const (
	// ReadSize and WriteSize are the disk transfer granularity.
	ReadSize  = 65536
	WriteSize = 65536

	// DefBufPerChan is the default buffer allocation per channel.
	DefBufPerChan = 262144

	// MinBufSize and MaxBufSize clamp caller-requested buffer sizes.
	MinBufSize = 4 * ReadSize
	MaxBufSize = 16777216

	// MaxVecSize is the pessimistic upper bound on the DSP tick size used
	// when sizing the FIFO.
	MaxVecSize = 128

	// MaxChans mirrors the soundfile channel bound.
	MaxChans = soundfile.MaxChans
)

// request is the control word shared between the audio side and the I/O
// worker. Only the audio side sets Open, Close and Quit; only the worker
// sets Busy and reverts to Nothing.
type request int

const (
	reqNothing request = iota
	reqOpen
	reqBusy
	reqClose
	reqQuit
)

// State is the audio-side streaming state.
type State int

const (
	Idle State = iota
	Startup
	Streaming
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Startup:
		return "startup"
	case Streaming:
		return "stream"
	}
	return "unknown"
}

// Scheduler defers a callback onto the host's main thread. The audio thread
// must never call back into the host message layer directly.
type Scheduler interface {
	Schedule(fn func())
}

// GoScheduler runs callbacks on their own goroutine, for hosts without a
// main-thread dispatcher.
type GoScheduler struct{}

func (GoScheduler) Schedule(fn func()) { go fn() }

// core is the state shared by the playback and capture objects: the FIFO,
// the request machinery and the descriptor. Everything here is protected by
// mu; the two condition variables pair with it. "request" wakes the worker,
// "answer" wakes the audio side. Disk I/O always happens with mu released,
// against a snapshot taken under the lock.
type core struct {
	mu      sync.Mutex
	request *sync.Cond
	answer  *sync.Cond

	req   request
	state State

	buf      []byte
	bufSize  int
	fifoSize int
	fifoHead int // producer index
	fifoTail int // consumer index

	sf          soundfile.Soundfile
	filename    string
	onsetFrames int64

	eof     bool
	fileErr error

	sigCountdown int
	sigPeriod    int
	vecSize      int

	framesWritten int64 // capture only

	resolver soundfile.PathResolver
	log      zerolog.Logger

	workerDone chan struct{}
}

func (c *core) init(resolver soundfile.PathResolver, log zerolog.Logger, bufSize int) {
	c.request = sync.NewCond(&c.mu)
	c.answer = sync.NewCond(&c.mu)
	c.buf = make([]byte, bufSize)
	c.bufSize = bufSize
	c.vecSize = MaxVecSize
	c.resolver = resolver
	c.log = log
	c.workerDone = make(chan struct{})
	c.sf.Clear()
}

// clampBufSize applies the construction-time buffer policy.
func clampBufSize(bufSize, channels int) int {
	if bufSize <= 0 {
		return DefBufPerChan * channels
	}
	if bufSize < MinBufSize {
		return MinBufSize
	}
	if bufSize > MaxBufSize {
		return MaxBufSize
	}
	return bufSize
}

func clampChannels(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxChans {
		return MaxChans
	}
	return n
}

// setFifoGeometry sizes the FIFO as a whole multiple of the largest possible
// tick and arranges for the request condition to be signaled 16 times per
// buffer. Called with mu held, after the descriptor geometry is known.
func (c *core) setFifoGeometry() {
	bpf := c.sf.BytesPerFrame
	c.fifoSize = c.bufSize - c.bufSize%(bpf*MaxVecSize)
	c.sigPeriod = c.fifoSize / (16 * bpf * c.vecSize)
	c.sigCountdown = c.sigPeriod
}

// closeSnapshot closes the worker's cached descriptor with the mutex
// released and clears the shared handle. The close call owns the per-format
// state; nulling Data afterwards keeps a superseding Open from double-freeing.
func (c *core) closeSnapshot(snap *soundfile.Soundfile) {
	if !snap.IsOpen() {
		return
	}
	c.mu.Unlock()
	if err := snap.Type.Close(snap); err != nil {
		c.log.Error().Err(err).Msg("closing soundfile")
	}
	c.mu.Lock()
	c.sf.File = nil
	c.sf.Data = nil
}

// shutdown runs the destructor handshake: request Quit, re-signal on every
// wake until the worker acknowledges, then join it.
func (c *core) shutdown() {
	c.mu.Lock()
	c.req = reqQuit
	c.request.Signal()
	for c.req != reqNothing {
		c.request.Signal()
		c.answer.Wait()
	}
	c.mu.Unlock()
	<-c.workerDone
}

// printState dumps the shared state for the print command.
func (c *core) printState(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.log.Info().
		Str("object", name).
		Stringer("state", c.state).
		Int("fifohead", c.fifoHead).
		Int("fifotail", c.fifoTail).
		Int("fifosize", c.fifoSize).
		Bool("open", c.sf.IsOpen()).
		Bool("eof", c.eof).
		Msg("stream state")
}
