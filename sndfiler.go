// SPDX-License-Identifier: EPL-2.0

package sndfiler

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ik5/sndfiler/formats"
	"github.com/ik5/sndfiler/soundfile"
	"github.com/ik5/sndfiler/soundfiler"
)

// ReadFile loads a whole soundfile, one float32 slice per channel.
func ReadFile(path string) ([][]float32, soundfile.Info, error) {
	if err := formats.Register(); err != nil {
		return nil, soundfile.Info{}, err
	}

	// probe the header for the channel count
	probe := soundfiler.New(".", soundfiler.Tables{}, zerolog.Nop())
	_, info, err := probe.Read([]string{path})
	if err != nil {
		return nil, soundfile.Info{}, err
	}

	tables := soundfiler.Tables{}
	argv := []string{"-resize", path}
	slices := make([]*soundfiler.SliceTable, info.Channels)
	for i := range slices {
		slices[i] = soundfiler.NewSliceTable(0)
		name := fmt.Sprintf("ch%d", i)
		tables[name] = slices[i]
		argv = append(argv, name)
	}

	s := soundfiler.New(".", tables, zerolog.Nop())
	if _, info, err = s.Read(argv); err != nil {
		return nil, soundfile.Info{}, err
	}

	channels := make([][]float32, len(slices))
	for i, tab := range slices {
		channels[i] = tab.Samples()
	}
	return channels, info, nil
}

// WriteFile writes one float32 slice per channel to path. Extra write flags
// (e.g. "-bytes", "3", "-normalize", "-aiff") go through unchanged.
func WriteFile(path string, channels [][]float32, flags ...string) (int64, error) {
	if err := formats.Register(); err != nil {
		return 0, err
	}
	if len(channels) == 0 {
		return 0, fmt.Errorf("%w: no channels", soundfiler.ErrUsage)
	}

	tables := soundfiler.Tables{}
	argv := append([]string{}, flags...)
	argv = append(argv, path)
	for i, ch := range channels {
		name := fmt.Sprintf("ch%d", i)
		tab := soundfiler.NewSliceTable(len(ch))
		copy(tab.Samples(), ch)
		tables[name] = tab
		argv = append(argv, name)
	}

	s := soundfiler.New(".", tables, zerolog.Nop())
	frames, _, err := s.Write(argv)
	return frames, err
}
