// SPDX-License-Identifier: EPL-2.0

// Package soundfile defines the core soundfile descriptor, the pluggable
// container-format contract, and the shared open/create machinery.
//
// A Soundfile value carries an open handle plus its resolved geometry:
// channel count, bytes per sample, endianness, header size and the number of
// payload bytes remaining. Format implementations (package formats/...)
// satisfy the Type interface and register themselves, in sniff-priority
// order, in the Default registry. The raw passthrough type lives outside the
// registry and is selected whenever a caller supplies the geometry directly.
//
// Opening a file for reading runs header detection: up to the registry's
// minimum header size is read, formats sniff the bytes in registration
// order, the winner parses the header and the handle is positioned at the
// requested onset frame. Creation is the mirror image: extension completion,
// truncating open, header emission.
//
// XferIn and XferOut move interleaved PCM frames between disk buffers and
// float vectors using the codecs in package utils.
package soundfile
