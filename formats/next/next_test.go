// SPDX-License-Identifier: EPL-2.0

package next

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ik5/sndfiler/soundfile"
)

func writeFile(t *testing.T, bps, chans int, big bool, frames [][]float32, declared int64) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "out.snd")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		t.Fatal(err)
	}
	w := New()
	var sf soundfile.Soundfile
	sf.Clear()
	sf.Type = w
	sf.SampleRate = 44100
	sf.Channels = chans
	sf.BytesPerSample = bps
	sf.BigEndian = big
	sf.BytesPerFrame = chans * bps
	if err := w.Open(&sf, f); err != nil {
		t.Fatal(err)
	}
	hs, err := w.WriteHeader(&sf, declared)
	if err != nil {
		t.Fatal(err)
	}
	sf.HeaderSize = hs

	nframes := len(frames[0])
	buf := make([]byte, nframes*sf.BytesPerFrame)
	soundfile.XferOut(&sf, frames, buf, nframes, 0, 1)
	if _, err := w.WriteSamples(&sf, buf); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(&sf); err != nil {
		t.Fatal(err)
	}
	return path
}

func openFile(t *testing.T, path string) (*soundfile.Soundfile, func()) {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	var sf soundfile.Soundfile
	sf.Clear()
	sf.HeaderSize = -1
	sf.Type = New()
	if err := soundfile.OpenFile(f, &sf, 0); err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	return &sf, func() { sf.Type.Close(&sf) }
}

func TestRoundTripBothEndians(t *testing.T) {
	t.Parallel()

	const nframes = 40
	src := [][]float32{make([]float32, nframes), make([]float32, nframes)}
	for j := 0; j < nframes; j++ {
		src[0][j] = float32(math.Sin(2 * math.Pi * float64(j) / nframes))
		src[1][j] = float32(j%5) / 5
	}

	for _, big := range []bool{true, false} {
		path := writeFile(t, 2, 2, big, src, nframes)
		sf, done := openFile(t, path)

		if sf.BigEndian != big {
			t.Fatalf("big = %v, want %v", sf.BigEndian, big)
		}
		if sf.HeaderSize != writeHeaderSize {
			t.Fatalf("HeaderSize = %d", sf.HeaderSize)
		}
		if sf.FramesInFile() != nframes {
			t.Fatalf("FramesInFile = %d", sf.FramesInFile())
		}

		buf := make([]byte, nframes*sf.BytesPerFrame)
		if _, err := sf.Type.ReadSamples(sf, buf); err != nil {
			t.Fatal(err)
		}
		got := [][]float32{make([]float32, nframes), make([]float32, nframes)}
		soundfile.XferIn(sf, got, 0, buf, nframes)

		const tol = 1.0 / 32768.0
		for ch := range src {
			for j := range src[ch] {
				if diff := math.Abs(float64(got[ch][j] - src[ch][j])); diff > tol {
					t.Fatalf("big %v ch %d frame %d: %v != %v", big, ch, j, got[ch][j], src[ch][j])
				}
			}
		}
		done()
	}
}

func TestSaturation24BigBytes(t *testing.T) {
	t.Parallel()

	// {+1, 0, -1} at 24-bit big-endian must land as the exact saturated
	// byte patterns.
	src := [][]float32{{1.0, 0.0, -1.0}}
	path := writeFile(t, 3, 1, true, src, 3)

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	payload := raw[writeHeaderSize:]
	want := []byte{0x7f, 0xff, 0xff, 0x00, 0x00, 0x00, 0x80, 0x00, 0x01}
	if len(payload) != len(want) {
		t.Fatalf("payload length %d", len(payload))
	}
	for i := range want {
		if payload[i] != want[i] {
			t.Fatalf("payload = % x, want % x", payload, want)
		}
	}
}

func TestUnknownSizeReadsToEOF(t *testing.T) {
	t.Parallel()

	const nframes = 12
	src := [][]float32{make([]float32, nframes)}
	path := writeFile(t, 2, 1, true, src, soundfile.MaxFrames)

	sf, done := openFile(t, path)
	defer done()
	if sf.FramesInFile() != nframes {
		t.Errorf("FramesInFile = %d, want %d", sf.FramesInFile(), nframes)
	}
}

func TestEndiannessPolicy(t *testing.T) {
	t.Parallel()

	f := New()
	if !f.Endianness(soundfile.EndianUnspecified) {
		t.Error("default must be big")
	}
	if f.Endianness(soundfile.EndianLittle) {
		t.Error("little request must be honored")
	}
}

func TestExtensions(t *testing.T) {
	t.Parallel()

	f := New()
	if !f.HasExtension("a.au") || !f.HasExtension("a.snd") {
		t.Error("au/snd extensions rejected")
	}
	if got := f.AddExtension("x"); got != "x.snd" {
		t.Errorf("AddExtension = %q", got)
	}
}
