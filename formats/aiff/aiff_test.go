// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"

	"github.com/ik5/sndfiler/soundfile"
)

func TestIsHeader(t *testing.T) {
	t.Parallel()

	f := New()
	if !f.IsHeader([]byte("FORM\x00\x00\x00\x00AIFF")) {
		t.Error("AIFF header rejected")
	}
	if !f.IsHeader([]byte("FORM\x00\x00\x00\x00AIFC")) {
		t.Error("AIFC header rejected")
	}
	if f.IsHeader([]byte("RIFF\x00\x00\x00\x00WAVE")) {
		t.Error("WAVE header accepted")
	}
}

func TestEndiannessPolicy(t *testing.T) {
	t.Parallel()

	f := New()
	if !f.Endianness(soundfile.EndianLittle) {
		t.Error("little endian request not overridden; AIFF writes big")
	}
}

func writeFile(t *testing.T, bps, chans, sampleRate int, frames [][]float32) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "out.aif")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		t.Fatal(err)
	}

	w := New()
	var sf soundfile.Soundfile
	sf.Clear()
	sf.Type = w
	sf.SampleRate = sampleRate
	sf.Channels = chans
	sf.BytesPerSample = bps
	sf.BigEndian = true
	sf.BytesPerFrame = chans * bps

	if err := w.Open(&sf, f); err != nil {
		t.Fatal(err)
	}
	nframes := len(frames[0])
	hs, err := w.WriteHeader(&sf, int64(nframes))
	if err != nil {
		t.Fatal(err)
	}
	sf.HeaderSize = hs

	buf := make([]byte, nframes*sf.BytesPerFrame)
	soundfile.XferOut(&sf, frames, buf, nframes, 0, 1)
	if _, err := w.WriteSamples(&sf, buf); err != nil {
		t.Fatal(err)
	}
	if err := w.UpdateHeader(&sf, int64(nframes)); err != nil {
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

func TestRoundTrip24(t *testing.T) {
	t.Parallel()

	const nframes = 100
	src := [][]float32{make([]float32, nframes)}
	for j := 0; j < nframes; j++ {
		src[0][j] = float32(math.Sin(2 * math.Pi * float64(j) / nframes))
	}

	path := writeFile(t, 3, 1, 48000, src)
	sf, done := openFile(t, path)
	defer done()

	if sf.BytesPerSample != 3 || !sf.BigEndian || sf.SampleRate != 48000 {
		t.Fatalf("geometry: %d bytes big=%v sr=%d", sf.BytesPerSample, sf.BigEndian, sf.SampleRate)
	}
	if sf.HeaderSize != headerSizeInt {
		t.Errorf("HeaderSize = %d, want %d", sf.HeaderSize, headerSizeInt)
	}
	if sf.FramesInFile() != nframes {
		t.Fatalf("FramesInFile = %d", sf.FramesInFile())
	}

	buf := make([]byte, nframes*sf.BytesPerFrame)
	if _, err := sf.Type.ReadSamples(sf, buf); err != nil {
		t.Fatal(err)
	}
	got := [][]float32{make([]float32, nframes)}
	soundfile.XferIn(sf, got, 0, buf, nframes)

	const tol = 1.0 / 8388608.0
	for j := range src[0] {
		if diff := math.Abs(float64(got[0][j] - src[0][j])); diff > tol {
			t.Fatalf("frame %d: got %v want %v", j, got[0][j], src[0][j])
		}
	}
}

func TestRoundTripFloatAIFC(t *testing.T) {
	t.Parallel()

	const nframes = 64
	src := [][]float32{make([]float32, nframes), make([]float32, nframes)}
	for j := 0; j < nframes; j++ {
		src[0][j] = float32(j) / nframes
		src[1][j] = -src[0][j]
	}

	path := writeFile(t, 4, 2, 44100, src)
	sf, done := openFile(t, path)
	defer done()

	if sf.BytesPerSample != 4 || sf.Channels != 2 {
		t.Fatalf("geometry: %d bytes %d ch", sf.BytesPerSample, sf.Channels)
	}
	if sf.HeaderSize != headerSizeFloat {
		t.Errorf("HeaderSize = %d, want %d", sf.HeaderSize, headerSizeFloat)
	}

	buf := make([]byte, nframes*sf.BytesPerFrame)
	if _, err := sf.Type.ReadSamples(sf, buf); err != nil {
		t.Fatal(err)
	}
	got := [][]float32{make([]float32, nframes), make([]float32, nframes)}
	soundfile.XferIn(sf, got, 0, buf, nframes)

	for ch := range src {
		for j := range src[ch] {
			if got[ch][j] != src[ch][j] {
				t.Fatalf("ch %d frame %d: %v != %v (float must be bit exact)", ch, j, got[ch][j], src[ch][j])
			}
		}
	}
}

// TestGoAudioCrossCheck decodes a 16-bit file written by this plug-in with
// the go-audio aiff decoder.
func TestGoAudioCrossCheck(t *testing.T) {
	t.Parallel()

	const nframes = 16
	src := [][]float32{make([]float32, nframes)}
	for j := 0; j < nframes; j++ {
		src[0][j] = 0.25
	}
	path := writeFile(t, 2, 1, 22050, src)

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	d := aiff.NewDecoder(f)
	if !d.IsValidFile() {
		t.Fatal("go-audio rejects our AIFF file")
	}
	if _, err := f.Seek(0, 0); err != nil {
		t.Fatal(err)
	}
	d = aiff.NewDecoder(f)
	d.ReadInfo()
	if d.BitDepth != 16 {
		t.Fatalf("go-audio BitDepth = %d", d.BitDepth)
	}
	format := d.Format()
	if format.NumChannels != 1 || format.SampleRate != 22050 {
		t.Fatalf("go-audio format %+v", format)
	}

	pcm := &goaudio.IntBuffer{Data: make([]int, nframes), Format: format}
	n, err := d.PCMBuffer(pcm)
	if err != nil {
		t.Fatal(err)
	}
	if n != nframes {
		t.Fatalf("go-audio frames = %d", n)
	}
	for i := 0; i < n; i++ {
		if pcm.Data[i] != 8192 {
			t.Fatalf("sample %d = %d, want 8192", i, pcm.Data[i])
		}
	}
}

func TestUpdateHeaderPatchesFrames(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "short.aif")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		t.Fatal(err)
	}
	w := New()
	var sf soundfile.Soundfile
	sf.Clear()
	sf.Type = w
	sf.SampleRate = 8000
	sf.Channels = 1
	sf.BytesPerSample = 2
	sf.BytesPerFrame = 2
	if err := w.Open(&sf, f); err != nil {
		t.Fatal(err)
	}
	hs, err := w.WriteHeader(&sf, 1000)
	if err != nil {
		t.Fatal(err)
	}
	sf.HeaderSize = hs
	if _, err := w.WriteSamples(&sf, make([]byte, 6)); err != nil {
		t.Fatal(err)
	}
	if err := w.UpdateHeader(&sf, 3); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(&sf); err != nil {
		t.Fatal(err)
	}

	sf2, done := openFile(t, path)
	defer done()
	if sf2.FramesInFile() != 3 {
		t.Errorf("FramesInFile after patch = %d, want 3", sf2.FramesInFile())
	}
}
