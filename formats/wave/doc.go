// SPDX-License-Identifier: EPL-2.0

// Package wave implements the RIFF/WAVE soundfile type: little-endian
// samples, integer PCM at 16 or 24 bits or IEEE float at 32 bits. Reading
// walks the chunk list with go-audio/riff; writing emits the canonical
// 44-byte header and patches the length fields on close.
package wave
