// SPDX-License-Identifier: EPL-2.0

// Command sndfiler exposes the batch engine on the command line:
//
//	sndfiler list
//	sndfiler info [readflags] <file>
//	sndfiler read [readflags] <file>
//	sndfiler convert [writeflags] <in> <out>
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ik5/sndfiler"
	"github.com/ik5/sndfiler/config"
	"github.com/ik5/sndfiler/formats"
	"github.com/ik5/sndfiler/logger"
	"github.com/ik5/sndfiler/soundfile"
	"github.com/ik5/sndfiler/soundfiler"
)

func main() {
	args := os.Args[1:]
	debug := false
	if len(args) > 0 && args[0] == "-v" {
		debug = true
		args = args[1:]
	}
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(".")
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.Console(debug || cfg.Debug, "sndfiler")

	if err := formats.Register(); err != nil {
		log.Fatal().Err(err).Msg("registering formats")
	}

	if err := run(args[0], args[1:], cfg, log); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func run(cmd string, args []string, cfg config.Config, log zerolog.Logger) error {
	s := soundfiler.New(".", soundfiler.Tables{}, log)
	s.SampleRate = func() int { return cfg.SampleRate }
	s.Meta = func(items []string) {
		fmt.Println("meta:", strings.Join(items, " "))
	}

	switch cmd {
	case "list":
		for _, name := range s.List() {
			fmt.Println(name)
		}
		return nil

	case "info", "read":
		frames, info, err := s.Read(args)
		if err != nil {
			return err
		}
		fmt.Printf("%d frames\n", frames)
		fmt.Printf("samplerate %d headersize %d channels %d bytespersample %d endian %c\n",
			info.SampleRate, info.HeaderSize, info.Channels, info.BytesPerSample,
			info.Endianness())
		return nil

	case "convert":
		if len(args) < 2 {
			return fmt.Errorf("convert [writeflags] <in> <out>")
		}
		in, out := args[len(args)-2], args[len(args)-1]
		flags := args[:len(args)-2]

		channels, info, err := sndfiler.ReadFile(in)
		if err != nil {
			return err
		}
		log.Info().
			Int("channels", info.Channels).
			Int("samplerate", info.SampleRate).
			Msg("source loaded")

		if !hasRateFlag(flags) {
			flags = append(flags, "-rate", fmt.Sprint(info.SampleRate))
		}
		// honor the configured default when neither a flag nor the target
		// extension picks a format
		if _, known := soundfile.Default.ByExtension(out); !known && !hasFormatFlag(flags) {
			if _, ok := soundfile.Default.Find(cfg.DefaultFormat); ok {
				flags = append(flags, "-"+cfg.DefaultFormat)
			}
		}
		frames, err := sndfiler.WriteFile(out, channels, flags...)
		if err != nil {
			return err
		}
		fmt.Printf("%d frames written\n", frames)
		return nil

	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func hasRateFlag(flags []string) bool {
	for _, f := range flags {
		if f == "-rate" || f == "-r" {
			return true
		}
	}
	return false
}

func hasFormatFlag(flags []string) bool {
	for _, f := range flags {
		if !strings.HasPrefix(f, "-") {
			continue
		}
		if _, ok := soundfile.Default.Find(strings.TrimPrefix(f, "-")); ok {
			return true
		}
	}
	return false
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: sndfiler [-v] <command> [args]

commands:
  list                              registered soundfile formats
  info [readflags] <file>           frame count and format tuple
  read [readflags] <file>           alias of info
  convert [writeflags] <in> <out>   re-encode a soundfile

read flags:  `+soundfiler.ReadUsage+`
write flags: `+soundfiler.WriteUsage)
}
