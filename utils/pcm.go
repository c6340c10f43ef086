// SPDX-License-Identifier: EPL-2.0

package utils

import "math"

// scale maps a sample placed in the high bits of an int32 into [-1, 1).
const scale = 1.0 / 2147483648.0

// ReadPCM16 decodes a 16-bit sample from the first two bytes of b.
func ReadPCM16(b []byte, bigEndian bool) float32 {
	var v int32
	if bigEndian {
		v = int32(uint32(b[0])<<24 | uint32(b[1])<<16)
	} else {
		v = int32(uint32(b[1])<<24 | uint32(b[0])<<16)
	}
	return float32(scale * float64(v))
}

// ReadPCM24 decodes a packed 24-bit sample from the first three bytes of b.
func ReadPCM24(b []byte, bigEndian bool) float32 {
	var v int32
	if bigEndian {
		v = int32(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8)
	} else {
		v = int32(uint32(b[2])<<24 | uint32(b[1])<<16 | uint32(b[0])<<8)
	}
	return float32(scale * float64(v))
}

// ReadPCM32 decodes an IEEE 754 binary32 sample from the first four bytes of b.
func ReadPCM32(b []byte, bigEndian bool) float32 {
	var bits uint32
	if bigEndian {
		bits = uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	} else {
		bits = uint32(b[3])<<24 | uint32(b[2])<<16 | uint32(b[1])<<8 | uint32(b[0])
	}
	return math.Float32frombits(bits)
}

// PutPCM16 encodes x into the first two bytes of b, rounding down and
// saturating at [-32767, 32767].
func PutPCM16(b []byte, x float32, bigEndian bool) {
	v := int(32768.0+float64(x)*32768.0) - 32768
	if v < -32767 {
		v = -32767
	} else if v > 32767 {
		v = 32767
	}
	if bigEndian {
		b[0], b[1] = byte(v>>8), byte(v)
	} else {
		b[1], b[0] = byte(v>>8), byte(v)
	}
}

// PutPCM24 encodes x into the first three bytes of b, rounding down and
// saturating at [-8388607, 8388607].
func PutPCM24(b []byte, x float32, bigEndian bool) {
	v := int(8388608.0+float64(x)*8388608.0) - 8388608
	if v < -8388607 {
		v = -8388607
	} else if v > 8388607 {
		v = 8388607
	}
	if bigEndian {
		b[0], b[1], b[2] = byte(v>>16), byte(v>>8), byte(v)
	} else {
		b[2], b[1], b[0] = byte(v>>16), byte(v>>8), byte(v)
	}
}

// PutPCM32 encodes x as IEEE 754 binary32 into the first four bytes of b.
// No clamping is applied.
func PutPCM32(b []byte, x float32, bigEndian bool) {
	bits := math.Float32bits(x)
	if bigEndian {
		b[0], b[1], b[2], b[3] = byte(bits>>24), byte(bits>>16), byte(bits>>8), byte(bits)
	} else {
		b[3], b[2], b[1], b[0] = byte(bits>>24), byte(bits>>16), byte(bits>>8), byte(bits)
	}
}

// Float32ToInt16 converts a normalized sample to 16-bit PCM with clamping.
func Float32ToInt16(x float32) int16 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	// Use 32767 for positive max to avoid overflow
	return int16(x * 32767.0)
}
