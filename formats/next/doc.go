// SPDX-License-Identifier: EPL-2.0

// Package next implements the NeXT/Sun ".snd"/".au" soundfile type. A
// byte-swapped magic marks little-endian files; a data size of 0xffffffff
// means the length was unknown when the header was written.
package next
