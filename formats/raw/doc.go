// SPDX-License-Identifier: EPL-2.0

// Package raw implements the headerless passthrough soundfile type used when
// the caller supplies the sample geometry directly.
package raw
