// SPDX-License-Identifier: EPL-2.0

// Package sndfiler is a soundfile I/O engine for realtime audio hosts.
//
// It reads and writes uncompressed PCM (16- and 24-bit integer, 32-bit IEEE
// float) wrapped in WAVE, AIFF/AIFC, CAF or NeXT/Sun containers, plus
// headerless raw files, with header detection, both byte orders and
// saturating sample conversion.
//
// # Layout
//
// The work happens in the subpackages:
//
//   - soundfile: the descriptor, the pluggable format contract and the
//     process-wide registry
//   - formats/...: the built-in container implementations
//   - soundfiler: the synchronous batch engine behind the read/write/list
//     command surface
//   - stream: the realtime producer/consumer engine (disk to signal vectors
//     and back) built around a ring buffer and a dedicated I/O worker
//   - utils: the PCM byte codecs
//
// # Quick start
//
// The root package offers whole-file conveniences:
//
//	channels, info, err := sndfiler.ReadFile("loop.wav")
//	// channels[0] holds the first channel as float32 in [-1, 1)
//
//	frames, err := sndfiler.WriteFile("out.aif", channels, "-bytes", "3")
//
// Hosts with realtime needs use stream.Reader and stream.Writer directly
// and drive them from their audio callback.
package sndfiler
