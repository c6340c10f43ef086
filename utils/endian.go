// SPDX-License-Identifier: EPL-2.0

package utils

import "encoding/binary"

// IsBigEndian reports the host byte order.
func IsBigEndian() bool {
	var probe [2]byte
	binary.NativeEndian.PutUint16(probe[:], 1)
	return probe[0] == 0
}

// Swap2 swaps a 2-byte quantity in place.
func Swap2(b []byte) {
	b[0], b[1] = b[1], b[0]
}

// Swap4 swaps a 4-byte quantity in place.
func Swap4(b []byte) {
	b[0], b[3] = b[3], b[0]
	b[1], b[2] = b[2], b[1]
}

// Swap8 swaps an 8-byte quantity in place.
func Swap8(b []byte) {
	b[0], b[7] = b[7], b[0]
	b[1], b[6] = b[6], b[1]
	b[2], b[5] = b[5], b[2]
	b[3], b[4] = b[4], b[3]
}
