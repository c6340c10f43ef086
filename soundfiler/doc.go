// SPDX-License-Identifier: EPL-2.0

// Package soundfiler implements the synchronous batch transfer engine and
// its command surface: reading whole soundfiles into host-owned float tables
// and writing tables out, with normalization, truncation, resizing, onset
// skip and metadata passthrough.
//
// The command grammar is a left-to-right flag list; unknown dash tokens name
// a registered format, "--" ends flag parsing:
//
//	read  [-skip n] [-ascii] [-raw H C B {b|l|n}] [-resize] [-maxsize n]
//	      [-meta] [-<format>] [--] filename [table...]
//	write [-skip n] [-nframes n] [-bytes {2|3|4}] [-normalize] [-big]
//	      [-little] [-rate n] [-meta args...] [-<format>] [--] filename table...
//
// Results come back as the frame count plus a five-element info tuple:
// sample rate, header size, channels, bytes per sample, endianness letter.
package soundfiler
