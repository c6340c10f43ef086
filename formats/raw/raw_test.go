// SPDX-License-Identifier: EPL-2.0

package raw

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ik5/sndfiler/soundfile"
)

func TestNeverSniffs(t *testing.T) {
	t.Parallel()

	f := New()
	if f.IsHeader([]byte(".snd")) || f.IsHeader([]byte("RIFF....WAVE")) {
		t.Error("raw must never match a header")
	}
}

func TestReadHeaderUsesCallerGeometry(t *testing.T) {
	t.Parallel()

	// 128 little-endian float32 samples after an 8-byte fake header.
	path := filepath.Join(t.TempDir(), "f.raw")
	buf := make([]byte, 8+128*4)
	for i := 0; i < 128; i++ {
		binary.LittleEndian.PutUint32(buf[8+4*i:], math.Float32bits(float32(i)/128))
	}
	if err := os.WriteFile(path, buf, 0666); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	var sf soundfile.Soundfile
	sf.Clear()
	sf.Type = nil
	sf.HeaderSize = 8
	sf.Channels = 1
	sf.BytesPerSample = 4
	sf.BigEndian = false
	sf.BytesPerFrame = 4

	soundfile.SetRawType(New())
	if err := soundfile.OpenFile(f, &sf, 0); err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer sf.Type.Close(&sf)

	if sf.Type.Name() != "raw" {
		t.Fatalf("type = %s", sf.Type.Name())
	}
	if sf.FramesInFile() != 128 {
		t.Fatalf("FramesInFile = %d", sf.FramesInFile())
	}

	data := make([]byte, 128*4)
	if _, err := sf.Type.ReadSamples(&sf, data); err != nil {
		t.Fatal(err)
	}
	got := [][]float32{make([]float32, 128)}
	soundfile.XferIn(&sf, got, 0, data, 128)
	for i := range got[0] {
		if got[0][i] != float32(i)/128 {
			t.Fatalf("sample %d = %v, want %v", i, got[0][i], float32(i)/128)
		}
	}
}

func TestRejectsBadGeometry(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "g.raw")
	if err := os.WriteFile(path, make([]byte, 16), 0666); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	r := New()
	var sf soundfile.Soundfile
	sf.Clear()
	sf.File = f
	sf.HeaderSize = 0
	sf.Channels = 1
	sf.BytesPerSample = 5
	if err := r.ReadHeader(&sf); err == nil {
		t.Error("5-byte samples accepted")
	}
	sf.BytesPerSample = 2
	sf.Channels = soundfile.MaxChans + 1
	if err := r.ReadHeader(&sf); err == nil {
		t.Error("65 channels accepted")
	}
}
