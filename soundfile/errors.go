// SPDX-License-Identifier: EPL-2.0

package soundfile

import "errors"

var (
	ErrBadHeader    = errors.New("unknown or bad header format")
	ErrSampleFormat = errors.New("supported sample formats: uncompressed 16 bit int, 24 bit int, or 32 bit float")
	ErrTooManyTypes = errors.New("soundfile type registry is full")
	ErrNoRawType    = errors.New("raw type implementation not registered")
	ErrTooManyChans = errors.New("too many channels")
	ErrMetadata     = errors.New("format does not support metadata")
)
