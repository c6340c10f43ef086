// SPDX-License-Identifier: EPL-2.0

// Package aiff implements the FORM/AIFF soundfile type, including the AIFC
// variants the engine speaks: fl32 float on both paths and the sowt
// little-endian 16-bit flavor on the read path. Sample rates travel as
// 80-bit extended floats in the COMM chunk.
package aiff
