// SPDX-License-Identifier: EPL-2.0

// Package caf implements Apple's Core Audio Format for linear PCM. The chunk
// framing is big-endian with 64-bit sizes; sample endianness is a desc flag,
// so the format honors the caller's byte-order request. Free-form key/value
// metadata travels in the info chunk.
package caf
