// SPDX-License-Identifier: EPL-2.0

package soundfiler

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// readASCII is the text fallback: the file is whitespace-separated floats
// read row-major, one value per table per row.
func (s *Soundfiler) readASCII(filename string, tables []Table, vecs [][]float32, resize bool, finalSize int64) (int64, error) {
	path, err := s.Resolver.Resolve(filename)
	if err != nil {
		return 0, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(string(raw))
	if len(tables) == 0 {
		return 0, usageError(ReadUsage, "-ascii needs at least one table")
	}

	nframes := int64(len(fields) / len(tables))
	if nframes < 1 {
		return 0, fmt.Errorf("%w: %s: empty or very short file", ErrUsage, filename)
	}

	if resize {
		for i, tab := range tables {
			if err := tab.Resize(int(nframes)); err != nil {
				return 0, fmt.Errorf("%w: %v", ErrResize, err)
			}
			vecs[i] = tab.Samples()
		}
	} else if finalSize < nframes {
		nframes = finalSize
	}

	idx := 0
	for j := int64(0); j < nframes; j++ {
		for i := range tables {
			v, err := strconv.ParseFloat(fields[idx], 32)
			if err != nil {
				v = 0
			}
			if j < int64(len(vecs[i])) {
				vecs[i][j] = float32(v)
			}
			idx++
		}
	}

	for i := range tables {
		for j := nframes; j < int64(len(vecs[i])); j++ {
			vecs[i][j] = 0
		}
	}
	for _, tab := range tables {
		tab.Redraw()
	}
	return nframes, nil
}
