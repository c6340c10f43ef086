// SPDX-License-Identifier: EPL-2.0

package soundfiler

import "errors"

var (
	ErrUsage       = errors.New("usage error")
	ErrNoSuchTable = errors.New("no such table")
	ErrResize      = errors.New("resize failed")
	ErrNoSamples   = errors.New("no samples at onset")
)
