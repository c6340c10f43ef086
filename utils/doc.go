// SPDX-License-Identifier: EPL-2.0

// Package utils provides the low-level byte codecs shared by every soundfile
// format implementation.
//
// The read paths convert interleaved PCM bytes to normalized float32 samples
// in [-1, 1): 16- and 24-bit integers are sign-extended into the high bits of
// a 32-bit word and scaled by 2^-31, 32-bit words are reinterpreted as IEEE
// 754 binary32. The write paths are symmetric and saturate integer formats
// at the symmetric extremes (±32767, ±8388607); float output is not clamped.
//
// Both byte orders are supported everywhere, along with in-place swap
// helpers and the 80-bit extended float encoding AIFF uses for sample rates.
package utils
