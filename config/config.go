// SPDX-License-Identifier: EPL-2.0

// Package config loads the engine settings from an optional sndfiler.yaml
// plus SNDFILER_-prefixed environment variables, which are read only when
// that file exists.
package config

import (
	"errors"

	"github.com/kkyr/fig"
)

const EnvPrefix = "SNDFILER"

// Stream holds the streaming-engine buffer settings.
type Stream struct {
	// BufsizePerChannel is the byte budget per channel when no explicit
	// buffer size is given.
	BufsizePerChannel int `fig:"bufsize_per_channel" default:"262144"`

	// Bufsize overrides the buffer size outright when positive.
	Bufsize int `fig:"bufsize"`
}

// Config is the full settings tree.
type Config struct {
	Debug bool `fig:"debug"`

	// DefaultFormat names the format used when neither a flag nor the
	// filename extension decides.
	DefaultFormat string `fig:"default_format" default:"wave"`

	// SampleRate is the host fallback sample rate for writes.
	SampleRate int `fig:"sample_rate" default:"44100"`

	Stream Stream `fig:"stream"`
}

// Load reads the config file from dir and applies the environment on top.
// When the file does not exist it returns Default() unchanged; the
// environment is not read in that case.
func Load(dir string) (Config, error) {
	var cfg Config
	err := fig.Load(&cfg,
		fig.File("sndfiler.yaml"),
		fig.Dirs(dir, "."),
		fig.UseEnv(EnvPrefix),
	)
	if errors.Is(err, fig.ErrFileNotFound) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the compiled-in settings.
func Default() Config {
	return Config{
		DefaultFormat: "wave",
		SampleRate:    44100,
		Stream: Stream{
			BufsizePerChannel: 262144,
		},
	}
}
