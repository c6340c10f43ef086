// SPDX-License-Identifier: EPL-2.0

package soundfiler

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ik5/sndfiler/formats"
)

func newTestFiler(t *testing.T, tables Tables) (*Soundfiler, string) {
	t.Helper()
	if err := formats.Register(); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	return New(dir, tables, zerolog.Nop()), dir
}

// TestWriteReadRoundTrip is the canonical scenario: a two-channel 16-bit
// little-endian file of 1000 frames of DC at +0.5/-0.5.
func TestWriteReadRoundTrip(t *testing.T) {
	const nframes = 1000
	left := NewSliceTable(nframes)
	right := NewSliceTable(nframes)
	for j := 0; j < nframes; j++ {
		left.Samples()[j] = 0.5
		right.Samples()[j] = -0.5
	}
	tables := Tables{"left": left, "right": right}
	s, _ := newTestFiler(t, tables)

	wrote, winfo, err := s.Write([]string{"-little", "dc.wav", "left", "right"})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if wrote != nframes {
		t.Fatalf("wrote %d frames", wrote)
	}
	if winfo.Channels != 2 || winfo.BytesPerSample != 2 || winfo.Endianness() != 'l' {
		t.Fatalf("write info %+v", winfo)
	}

	outL := NewSliceTable(nframes)
	outR := NewSliceTable(nframes)
	tables["outL"] = outL
	tables["outR"] = outR

	got, info, err := s.Read([]string{"dc.wav", "outL", "outR"})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != nframes {
		t.Fatalf("read %d frames", got)
	}
	if info.Channels != 2 || info.BytesPerSample != 2 || info.Endianness() != 'l' || info.SampleRate != 44100 {
		t.Fatalf("info %+v", info)
	}
	if info.HeaderSize == 0 {
		t.Fatal("header size not reported")
	}

	const tol = 1.0 / 32768.0
	for j := 0; j < nframes; j++ {
		if d := math.Abs(float64(outL.Samples()[j] - 0.5)); d > tol {
			t.Fatalf("left frame %d = %v", j, outL.Samples()[j])
		}
		if d := math.Abs(float64(outR.Samples()[j] + 0.5)); d > tol {
			t.Fatalf("right frame %d = %v", j, outR.Samples()[j])
		}
	}
	if outL.Redraws() == 0 {
		t.Error("no redraw notification")
	}
}

// TestRawReadFloatRamp: -raw 0 1 4 l over 128 little-endian float32 samples
// 0/128 .. 127/128 must land bit-exact.
func TestRawReadFloatRamp(t *testing.T) {
	target := NewSliceTable(128)
	s, dir := newTestFiler(t, Tables{"target": target})

	buf := make([]byte, 128*4)
	for i := 0; i < 128; i++ {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(float32(i)/128))
	}
	if err := os.WriteFile(filepath.Join(dir, "ramp.raw"), buf, 0666); err != nil {
		t.Fatal(err)
	}

	got, _, err := s.Read([]string{"-raw", "0", "1", "4", "l", "ramp.raw", "target"})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != 128 {
		t.Fatalf("read %d frames", got)
	}
	for i := 0; i < 128; i++ {
		if target.Samples()[i] != float32(i)/128 {
			t.Fatalf("sample %d = %v, want %v", i, target.Samples()[i], float32(i)/128)
		}
	}
}

// TestNormalizePeak: -normalize with peak 2.0 must write a peak integer
// sample of exactly 32767, sign preserved.
func TestNormalizePeak(t *testing.T) {
	tab := NewSliceTable(4)
	copy(tab.Samples(), []float32{2.0, -2.0, 1.0, 0})
	s, dir := newTestFiler(t, Tables{"t": tab})

	if _, _, err := s.Write([]string{"-normalize", "norm.wav", "t"}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "norm.wav"))
	if err != nil {
		t.Fatal(err)
	}
	payload := raw[44:]
	samples := make([]int16, 4)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(payload[2*i:]))
	}
	if samples[0] != 32767 {
		t.Errorf("peak = %d, want 32767", samples[0])
	}
	if samples[1] != -32767 {
		t.Errorf("negative peak = %d, want -32767", samples[1])
	}
	if samples[2] != 16383 && samples[2] != 16384 {
		t.Errorf("half peak = %d", samples[2])
	}
}

// TestAutoNormalize: peak above 1 on an integer format flips
// normalization on even without the flag.
func TestAutoNormalize(t *testing.T) {
	tab := NewSliceTable(2)
	copy(tab.Samples(), []float32{4.0, -4.0})
	s, dir := newTestFiler(t, Tables{"t": tab})

	if _, _, err := s.Write([]string{"auto.wav", "t"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "auto.wav"))
	if err != nil {
		t.Fatal(err)
	}
	got := int16(binary.LittleEndian.Uint16(raw[44:]))
	if got != 32767 {
		t.Errorf("sample = %d, want 32767 after auto-normalize", got)
	}
}

func TestReadResize(t *testing.T) {
	tab := NewSliceTable(10)
	s, _ := newTestFiler(t, Tables{"t": tab, "src": mustRamp(1000)})

	if _, _, err := s.Write([]string{"big.wav", "src"}); err != nil {
		t.Fatal(err)
	}

	got, _, err := s.Read([]string{"-resize", "big.wav", "t"})
	if err != nil {
		t.Fatal(err)
	}
	if got != 1000 {
		t.Fatalf("read %d frames", got)
	}
	if len(tab.Samples()) != 1000 {
		t.Fatalf("table not resized: %d", len(tab.Samples()))
	}
	if tab.SaveInPatch() {
		t.Error("save-in-patch attribute not cleared on resize")
	}
}

func TestReadMaxsizeTruncates(t *testing.T) {
	tab := NewSliceTable(0)
	s, _ := newTestFiler(t, Tables{"t": tab, "src": mustRamp(500)})
	if _, _, err := s.Write([]string{"cap.wav", "src"}); err != nil {
		t.Fatal(err)
	}

	got, _, err := s.Read([]string{"-maxsize", "100", "cap.wav", "t"})
	if err != nil {
		t.Fatal(err)
	}
	if got != 100 || len(tab.Samples()) != 100 {
		t.Fatalf("got %d frames, table %d", got, len(tab.Samples()))
	}
}

func TestReadDifferingLengthsResizes(t *testing.T) {
	a := NewSliceTable(64)
	b := NewSliceTable(128)
	s, _ := newTestFiler(t, Tables{"a": a, "b": b, "src": mustRamp(32)})
	if _, _, err := s.Write([]string{"d.wav", "src", "src"}); err != nil {
		t.Fatal(err)
	}

	got, _, err := s.Read([]string{"d.wav", "a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if got != 32 {
		t.Fatalf("read %d", got)
	}
	if len(a.Samples()) != 32 || len(b.Samples()) != 32 {
		t.Fatalf("tables %d/%d, want implicit resize to 32", len(a.Samples()), len(b.Samples()))
	}
}

func TestReadSkip(t *testing.T) {
	src := mustRamp(100)
	tab := NewSliceTable(0)
	s, _ := newTestFiler(t, Tables{"src": src, "t": tab})
	if _, _, err := s.Write([]string{"skip.wav", "src"}); err != nil {
		t.Fatal(err)
	}

	got, _, err := s.Read([]string{"-skip", "40", "-resize", "skip.wav", "t"})
	if err != nil {
		t.Fatal(err)
	}
	if got != 60 {
		t.Fatalf("read %d frames after skip", got)
	}
	const tol = 1.0 / 32768.0
	if d := math.Abs(float64(tab.Samples()[0] - src.Samples()[40])); d > tol {
		t.Errorf("first frame after skip = %v, want %v", tab.Samples()[0], src.Samples()[40])
	}
}

func TestReadExcessTablesZeroed(t *testing.T) {
	extra := NewSliceTable(16)
	for i := range extra.Samples() {
		extra.Samples()[i] = 9
	}
	s, _ := newTestFiler(t, Tables{"src": mustRamp(16), "main": NewSliceTable(16), "extra": extra})
	if _, _, err := s.Write([]string{"mono.wav", "src"}); err != nil {
		t.Fatal(err)
	}

	if _, _, err := s.Read([]string{"mono.wav", "main", "extra"}); err != nil {
		t.Fatal(err)
	}
	for i, v := range extra.Samples() {
		if v != 0 {
			t.Fatalf("excess table sample %d = %v, want silence", i, v)
		}
	}
}

func TestReadNoTablesReportsHeaderCount(t *testing.T) {
	s, _ := newTestFiler(t, Tables{"src": mustRamp(77)})
	if _, _, err := s.Write([]string{"probe.wav", "src"}); err != nil {
		t.Fatal(err)
	}
	got, info, err := s.Read([]string{"probe.wav"})
	if err != nil {
		t.Fatal(err)
	}
	if got != 77 {
		t.Fatalf("probe frames = %d", got)
	}
	if info.Channels != 1 {
		t.Fatalf("probe info %+v", info)
	}
}

func TestReadASCII(t *testing.T) {
	a := NewSliceTable(0)
	b := NewSliceTable(0)
	s, dir := newTestFiler(t, Tables{"a": a, "b": b})

	content := "0.5 -0.5\n0.25 -0.25\n0.125 -0.125\n"
	if err := os.WriteFile(filepath.Join(dir, "vals.txt"), []byte(content), 0666); err != nil {
		t.Fatal(err)
	}

	got, _, err := s.Read([]string{"-ascii", "-resize", "vals.txt", "a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if got != 3 {
		t.Fatalf("ascii frames = %d", got)
	}
	wantA := []float32{0.5, 0.25, 0.125}
	wantB := []float32{-0.5, -0.25, -0.125}
	for i := 0; i < 3; i++ {
		if a.Samples()[i] != wantA[i] || b.Samples()[i] != wantB[i] {
			t.Fatalf("ascii row %d = %v/%v", i, a.Samples()[i], b.Samples()[i])
		}
	}
}

func TestUsageErrors(t *testing.T) {
	s, _ := newTestFiler(t, Tables{})

	cases := [][]string{
		{"-skip"},                             // missing value
		{"-skip", "-1", "f.wav"},              // negative skip
		{"-bogusflag", "f.wav"},               // unknown flag
		{},                                    // missing filename
		{"-raw", "0", "1", "f.wav"},           // short raw tuple
		{"-raw", "0", "1", "5", "l", "f.wav"}, // bad width
	}
	for _, argv := range cases {
		if _, _, err := s.Read(argv); !errors.Is(err, ErrUsage) {
			t.Errorf("Read(%v) = %v, want ErrUsage", argv, err)
		}
	}

	if _, _, err := s.Write([]string{"-bytes", "5", "f.wav", "t"}); !errors.Is(err, ErrUsage) {
		t.Error("write with -bytes 5 accepted")
	}
	if _, _, err := s.Write([]string{"f.wav"}); !errors.Is(err, ErrUsage) {
		t.Error("write without tables accepted")
	}
}

func TestReadNoSuchTable(t *testing.T) {
	s, dir := newTestFiler(t, Tables{})
	if err := os.WriteFile(filepath.Join(dir, "x.wav"), []byte("RIFF"), 0666); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Read([]string{"x.wav", "ghost"}); !errors.Is(err, ErrNoSuchTable) {
		t.Errorf("err = %v, want ErrNoSuchTable", err)
	}
}

func TestWriteNextstepAliasAndBigEndian24(t *testing.T) {
	tab := NewSliceTable(3)
	copy(tab.Samples(), []float32{1.0, 0.0, -1.0})
	s, dir := newTestFiler(t, Tables{"t": tab})

	if _, info, err := s.Write([]string{"-nextstep", "-bytes", "3", "-big", "sat", "t"}); err != nil {
		t.Fatal(err)
	} else if info.Endianness() != 'b' {
		t.Fatalf("info %+v", info)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "sat.snd"))
	if err != nil {
		t.Fatal(err)
	}
	payload := raw[28:]
	want := []byte{0x7f, 0xff, 0xff, 0x00, 0x00, 0x00, 0x80, 0x00, 0x01}
	for i := range want {
		if payload[i] != want[i] {
			t.Fatalf("payload = % x, want % x", payload[:9], want)
		}
	}
}

func TestWriteEndianOverrideWarns(t *testing.T) {
	tab := NewSliceTable(4)
	s, _ := newTestFiler(t, Tables{"t": tab})

	// wave refuses big-endian; the write must still succeed as little.
	_, info, err := s.Write([]string{"-big", "o.wav", "t"})
	if err != nil {
		t.Fatal(err)
	}
	if info.Endianness() != 'l' {
		t.Errorf("endianness = %c, want forced little", info.Endianness())
	}
}

func TestWriteSkipAndNFrames(t *testing.T) {
	src := mustRamp(100)
	s, _ := newTestFiler(t, Tables{"src": src, "out": NewSliceTable(0)})

	wrote, _, err := s.Write([]string{"-skip", "10", "-nframes", "20", "part.wav", "src"})
	if err != nil {
		t.Fatal(err)
	}
	if wrote != 20 {
		t.Fatalf("wrote %d frames", wrote)
	}

	got, _, err := s.Read([]string{"-resize", "part.wav", "out"})
	if err != nil {
		t.Fatal(err)
	}
	if got != 20 {
		t.Fatalf("read back %d frames", got)
	}
}

func TestList(t *testing.T) {
	s, _ := newTestFiler(t, Tables{})
	names := s.List()
	want := []string{"wave", "aiff", "caf", "next"}
	if len(names) != len(want) {
		t.Fatalf("List() = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("List()[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestWriteCAFMeta(t *testing.T) {
	tab := NewSliceTable(8)
	s, _ := newTestFiler(t, Tables{"t": tab})

	var items [][]string
	s.Meta = func(args []string) { items = append(items, args) }

	if _, _, err := s.Write([]string{"-caf", "-meta", "artist", "someone", "--", "tagged", "t"}); err != nil {
		t.Fatal(err)
	}
	got, _, err := s.Read([]string{"-meta", "tagged.caf"})
	if err != nil {
		t.Fatal(err)
	}
	if got != 8 {
		t.Fatalf("frames = %d", got)
	}
	if len(items) != 1 || items[0][1] != "artist" || items[0][2] != "someone" {
		t.Fatalf("meta = %v", items)
	}
}

func mustRamp(n int) *SliceTable {
	t := NewSliceTable(n)
	for i := 0; i < n; i++ {
		t.Samples()[i] = float32(i%100) / 200
	}
	return t
}
