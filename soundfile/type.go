// SPDX-License-Identifier: EPL-2.0

package soundfile

import (
	"os"
	"strings"
	"sync"
)

// Endianness is a caller request for sample byte order. Formats map it to
// what they actually support through Type.Endianness.
type Endianness int

const (
	EndianUnspecified Endianness = iota
	EndianLittle
	EndianBig
)

// Type is the contract a container format implementation fulfills. A Type
// value is stateless; everything per-file lives in the Soundfile it is
// handed, including the opaque Data slot.
type Type interface {
	// Name is the printable format name, also used as the -<name> flag.
	Name() string

	// MinHeaderSize is the least number of bytes a valid header occupies.
	MinHeaderSize() int

	// IsHeader reports whether buf plausibly begins a file of this format.
	IsHeader(buf []byte) bool

	// Open attaches the file handle and allocates per-format state.
	Open(sf *Soundfile, f *os.File) error

	// Close releases per-format state and closes the handle. Ownership of
	// sf.Data transfers to this call; callers null it afterwards.
	Close(sf *Soundfile) error

	// ReadHeader parses the header with the handle at byte 0, filling
	// channels, sample rate, bytes per sample, endianness, header size and
	// byte limit.
	ReadHeader(sf *Soundfile) error

	// WriteHeader emits a header declaring nframes frames and returns the
	// header size in bytes.
	WriteHeader(sf *Soundfile, nframes int64) (int64, error)

	// UpdateHeader patches length fields after the final frame count is
	// known. It must be idempotent.
	UpdateHeader(sf *Soundfile, nframes int64) error

	// SeekToFrame positions the handle at the given absolute sample frame.
	SeekToFrame(sf *Soundfile, frame int64) error

	// ReadSamples and WriteSamples perform byte-granular payload I/O.
	ReadSamples(sf *Soundfile, buf []byte) (int, error)
	WriteSamples(sf *Soundfile, buf []byte) (int, error)

	// HasExtension reports whether name carries one of the format's
	// filename extensions; AddExtension appends the preferred one.
	HasExtension(name string) bool
	AddExtension(name string) string

	// Endianness maps the caller's request to the byte order the format
	// will actually use.
	Endianness(requested Endianness) bool
}

// MetaFunc receives metadata items surfaced by a format.
type MetaFunc func(args []string)

// MetaReader is implemented by formats that can surface metadata chunks.
type MetaReader interface {
	ReadMeta(sf *Soundfile, sink MetaFunc) error
}

// MetaWriter is implemented by formats that accept metadata before samples
// are written.
type MetaWriter interface {
	WriteMeta(sf *Soundfile, args []string) error
}

// MaxTypes bounds the registry.
const MaxTypes = 8

// Registry is an ordered collection of format implementations. The order
// defines sniff priority and the default format. Registration is append-only
// and expected to happen at startup; lookups after that need no locking, but
// adds are guarded anyway.
type Registry struct {
	mtx           sync.Mutex
	types         []Type
	minHeaderSize int
}

// Default is the process-wide registry the open and command surfaces use.
var Default = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends a format. Duplicate names are rejected silently by keeping the
// first registration, mirroring append-only semantics.
func (r *Registry) Add(t Type) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	for _, have := range r.types {
		if have.Name() == t.Name() {
			return nil
		}
	}
	if len(r.types) >= MaxTypes {
		return ErrTooManyTypes
	}
	r.types = append(r.types, t)
	if t.MinHeaderSize() > r.minHeaderSize {
		r.minHeaderSize = t.MinHeaderSize()
	}
	return nil
}

// Find returns the format registered under name.
func (r *Registry) Find(name string) (Type, bool) {
	for _, t := range r.All() {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// ByExtension returns the first format claiming the filename's extension.
func (r *Registry) ByExtension(name string) (Type, bool) {
	for _, t := range r.All() {
		if t.HasExtension(name) {
			return t, true
		}
	}
	return nil, false
}

// Sniff probes formats in registration order against the header bytes.
func (r *Registry) Sniff(buf []byte) (Type, bool) {
	for _, t := range r.All() {
		if t.IsHeader(buf) {
			return t, true
		}
	}
	return nil, false
}

// First returns the default format: the first one registered.
func (r *Registry) First() (Type, bool) {
	all := r.All()
	if len(all) == 0 {
		return nil, false
	}
	return all[0], true
}

// All returns the formats in registration order.
func (r *Registry) All() []Type {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	out := make([]Type, len(r.types))
	copy(out, r.types)
	return out
}

// MinHeaderSize is the largest minimum header among registered formats: the
// number of bytes read before sniffing.
func (r *Registry) MinHeaderSize() int {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	return r.minHeaderSize
}

// FlagUsage renders the dash-prefixed format flags for usage messages.
func (r *Registry) FlagUsage() string {
	var sb strings.Builder
	for i, t := range r.All() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte('-')
		sb.WriteString(t.Name())
	}
	return sb.String()
}

// The raw passthrough type lives outside the registry so header detection
// never matches it.
var (
	rawMtx  sync.Mutex
	rawType Type
)

// SetRawType installs the raw type singleton. Called once at setup.
func SetRawType(t Type) {
	rawMtx.Lock()
	defer rawMtx.Unlock()

	rawType = t
}

// RawType returns the raw type singleton, or nil before setup.
func RawType() Type {
	rawMtx.Lock()
	defer rawMtx.Unlock()

	return rawType
}
