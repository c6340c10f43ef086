// SPDX-License-Identifier: EPL-2.0

// Package formats wires the built-in soundfile types into the process-wide
// registry. The registration order is significant: it is both the sniff
// priority and the default-format preference.
package formats

import (
	"sync"

	"github.com/ik5/sndfiler/formats/aiff"
	"github.com/ik5/sndfiler/formats/caf"
	"github.com/ik5/sndfiler/formats/next"
	"github.com/ik5/sndfiler/formats/raw"
	"github.com/ik5/sndfiler/formats/wave"
	"github.com/ik5/sndfiler/soundfile"
)

var (
	once sync.Once
	err  error
)

// Register installs the built-in types: wave, aiff, caf, next, plus the raw
// singleton. Safe to call more than once.
func Register() error {
	once.Do(func() {
		for _, t := range []soundfile.Type{wave.New(), aiff.New(), caf.New(), next.New()} {
			if err = soundfile.Default.Add(t); err != nil {
				return
			}
		}
		soundfile.SetRawType(raw.New())
	})
	return err
}
