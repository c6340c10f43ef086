// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"encoding/binary"
	"math"
)

// EncodeFloat80 writes f as a big-endian 80-bit IEEE 754 extended float into
// the first ten bytes of b. AIFF stores sample rates this way.
func EncodeFloat80(b []byte, f float64) {
	if f == 0 {
		for i := 0; i < 10; i++ {
			b[i] = 0
		}
		return
	}
	var sign uint16
	if f < 0 {
		sign = 0x8000
		f = -f
	}
	mant, exp := math.Frexp(f) // f == mant * 2**exp, mant in [0.5, 1)
	binary.BigEndian.PutUint16(b, sign|uint16(exp+16382))
	binary.BigEndian.PutUint64(b[2:], uint64(mant*(1<<32)*(1<<32)))
}

// DecodeFloat80 reads a big-endian 80-bit extended float from the first ten
// bytes of b.
func DecodeFloat80(b []byte) float64 {
	se := binary.BigEndian.Uint16(b)
	mant := binary.BigEndian.Uint64(b[2:])
	if se&0x7fff == 0 && mant == 0 {
		return 0
	}
	exp := int(se&0x7fff) - 16383
	f := float64(mant) * math.Ldexp(1, exp-63)
	if se&0x8000 != 0 {
		return -f
	}
	return f
}
