// SPDX-License-Identifier: EPL-2.0

package soundfiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ik5/sndfiler/soundfile"
	"github.com/ik5/sndfiler/utils"
)

// ReadUsage and WriteUsage are printed on malformed commands.
const (
	ReadUsage = "read [flags] filename [tablename]...\n" +
		"flags: -skip <n> -resize -maxsize <n> -ascii -meta --\n" +
		"-raw <headerbytes> <channels> <bytespersample> <endian (b, l, or n)>"
	WriteUsage = "write [flags] filename tablename...\n" +
		"flags: -skip <n> -nframes <n> -bytes <n> -big -little -normalize\n" +
		"-rate <n> -meta <type> [args...] --\n" +
		"(defaults to a 16 bit wave file)"
)

func usageError(usage, detail string) error {
	return fmt.Errorf("%w: %s\nusage: %s", ErrUsage, detail, usage)
}

// readArgs is the parsed form of the read command line.
type readArgs struct {
	skipFrames int64
	ascii      bool
	resize     bool
	maxSize    int64
	meta       bool
	raw        bool
	typ        soundfile.Type
	rawInfo    soundfile.Soundfile // geometry carrier when -raw given
	filename   string
	tables     []string
}

// parseReadArgs walks the flag list left to right, mirroring the message
// grammar: unknown dash tokens are format names, "--" ends flag parsing.
func parseReadArgs(argv []string) (*readArgs, error) {
	ra := &readArgs{maxSize: soundfile.MaxFrames}

	for len(argv) > 0 && strings.HasPrefix(argv[0], "-") {
		flag := argv[0][1:]
		switch flag {
		case "skip":
			n, ok := intArg(argv, 1)
			if !ok || n < 0 {
				return nil, usageError(ReadUsage, "-skip wants a nonnegative frame count")
			}
			ra.skipFrames = n
			argv = argv[2:]
		case "ascii":
			ra.ascii = true
			argv = argv[1:]
		case "raw":
			if len(argv) < 5 {
				return nil, usageError(ReadUsage, "-raw wants <headersize channels bytes endian>")
			}
			header, ok1 := intArg(argv, 1)
			channels, ok2 := intArg(argv, 2)
			bytes, ok3 := intArg(argv, 3)
			endian := argv[4]
			if !ok1 || header < 0 ||
				!ok2 || channels < 1 || channels > soundfile.MaxChans ||
				!ok3 || bytes < 2 || bytes > 4 ||
				len(endian) == 0 || (endian[0] != 'b' && endian[0] != 'l' && endian[0] != 'n') {
				return nil, usageError(ReadUsage, "bad -raw arguments")
			}
			ra.raw = true
			ra.rawInfo.HeaderSize = header
			ra.rawInfo.Channels = int(channels)
			ra.rawInfo.BytesPerSample = int(bytes)
			switch endian[0] {
			case 'b':
				ra.rawInfo.BigEndian = true
			case 'l':
				ra.rawInfo.BigEndian = false
			default:
				ra.rawInfo.BigEndian = utils.IsBigEndian()
			}
			ra.rawInfo.BytesPerFrame = ra.rawInfo.Channels * ra.rawInfo.BytesPerSample
			argv = argv[5:]
		case "resize":
			ra.resize = true
			argv = argv[1:]
		case "maxsize":
			n, ok := intArg(argv, 1)
			if !ok || n < 0 {
				return nil, usageError(ReadUsage, "-maxsize wants a nonnegative frame count")
			}
			ra.maxSize = n
			ra.resize = true // maxsize implies resize
			argv = argv[2:]
		case "meta":
			ra.meta = true
			argv = argv[1:]
		case "-":
			argv = argv[1:]
			goto positional
		default:
			t, ok := soundfile.Default.Find(flag)
			if !ok {
				return nil, usageError(ReadUsage, "unknown flag -"+flag)
			}
			ra.typ = t
			argv = argv[1:]
		}
	}

positional:
	if len(argv) < 1 {
		return nil, usageError(ReadUsage, "missing filename")
	}
	if len(argv) > soundfile.MaxChans+1 {
		return nil, usageError(ReadUsage, "too many tables")
	}
	ra.filename = argv[0]
	ra.tables = argv[1:]
	return ra, nil
}

// WriteArgs is the parsed form of the write command line, shared with the
// streaming capture object.
type WriteArgs struct {
	Filename       string
	Type           soundfile.Type
	SampleRate     int // -1 when unset
	BytesPerSample int
	BigEndian      bool
	Overridden     bool // endianness request overridden by the format
	NFrames        int64
	OnsetFrames    int64
	Normalize      bool
	Meta           [][]string
}

// MaxWriteMeta bounds the number of -meta groups per command.
const MaxWriteMeta = 8

// ParseWriteArgs consumes flags and the filename, returning the remaining
// tokens (the table names).
func ParseWriteArgs(argv []string) (*WriteArgs, []string, error) {
	wa := &WriteArgs{
		SampleRate:     -1,
		BytesPerSample: 2,
		NFrames:        soundfile.MaxFrames,
	}
	endianness := soundfile.EndianUnspecified

	for len(argv) > 0 && strings.HasPrefix(argv[0], "-") {
		flag := argv[0][1:]
		switch flag {
		case "skip":
			n, ok := intArg(argv, 1)
			if !ok || n < 0 {
				return nil, nil, usageError(WriteUsage, "-skip wants a nonnegative frame count")
			}
			wa.OnsetFrames = n
			argv = argv[2:]
		case "nframes":
			n, ok := intArg(argv, 1)
			if !ok || n < 0 {
				return nil, nil, usageError(WriteUsage, "-nframes wants a nonnegative frame count")
			}
			wa.NFrames = n
			argv = argv[2:]
		case "bytes":
			n, ok := intArg(argv, 1)
			if !ok || n < 2 || n > 4 {
				return nil, nil, usageError(WriteUsage, "-bytes wants 2, 3 or 4")
			}
			wa.BytesPerSample = int(n)
			argv = argv[2:]
		case "normalize":
			wa.Normalize = true
			argv = argv[1:]
		case "big":
			endianness = soundfile.EndianBig
			argv = argv[1:]
		case "little":
			endianness = soundfile.EndianLittle
			argv = argv[1:]
		case "rate", "r":
			n, ok := intArg(argv, 1)
			if !ok || n <= 0 {
				return nil, nil, usageError(WriteUsage, "-rate wants a positive sample rate")
			}
			wa.SampleRate = int(n)
			argv = argv[2:]
		case "meta":
			// collect tokens until the next dash token
			argv = argv[1:]
			var group []string
			for len(argv) > 0 && !strings.HasPrefix(argv[0], "-") {
				group = append(group, argv[0])
				argv = argv[1:]
			}
			if len(group) == 0 {
				return nil, nil, usageError(WriteUsage, "empty -meta flag")
			}
			if len(wa.Meta) == MaxWriteMeta {
				return nil, nil, usageError(WriteUsage, "too many -meta flags")
			}
			wa.Meta = append(wa.Meta, group)
		case "-":
			argv = argv[1:]
			goto positional
		case "nextstep":
			// old alias for the NeXT type
			if t, ok := soundfile.Default.Find("next"); ok {
				wa.Type = t
			}
			argv = argv[1:]
		default:
			t, ok := soundfile.Default.Find(flag)
			if !ok {
				return nil, nil, usageError(WriteUsage, "unknown flag -"+flag)
			}
			wa.Type = t
			argv = argv[1:]
		}
	}

positional:
	if len(argv) < 1 {
		return nil, nil, usageError(WriteUsage, "missing filename")
	}
	wa.Filename = argv[0]
	argv = argv[1:]

	// deduce the type from the filename extension, else default
	if wa.Type == nil {
		if t, ok := soundfile.Default.ByExtension(wa.Filename); ok {
			wa.Type = t
		} else if t, ok := soundfile.Default.First(); ok {
			wa.Type = t
		} else {
			return nil, nil, usageError(WriteUsage, "no soundfile types registered")
		}
	}

	wa.BigEndian = wa.Type.Endianness(endianness)
	if endianness != soundfile.EndianUnspecified &&
		wa.BigEndian != (endianness == soundfile.EndianBig) {
		wa.Overridden = true
	}
	return wa, argv, nil
}

func intArg(argv []string, i int) (int64, bool) {
	if len(argv) <= i {
		return 0, false
	}
	// the message surface carries floats; accept and truncate them
	f, err := strconv.ParseFloat(argv[i], 64)
	if err != nil {
		return 0, false
	}
	return int64(f), true
}
