// SPDX-License-Identifier: EPL-2.0

package formats

import (
	"testing"

	"github.com/ik5/sndfiler/soundfile"
)

func TestRegisterOrder(t *testing.T) {
	if err := Register(); err != nil {
		t.Fatal(err)
	}
	// Idempotent.
	if err := Register(); err != nil {
		t.Fatal(err)
	}

	want := []string{"wave", "aiff", "caf", "next"}
	all := soundfile.Default.All()
	if len(all) != len(want) {
		t.Fatalf("registered %d types", len(all))
	}
	for i, name := range want {
		if all[i].Name() != name {
			t.Errorf("type[%d] = %s, want %s", i, all[i].Name(), name)
		}
	}
	if soundfile.RawType() == nil {
		t.Error("raw type not installed")
	}
}

func TestSniffPriority(t *testing.T) {
	if err := Register(); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		header string
		want   string
	}{
		{"RIFF\x00\x00\x00\x00WAVEfmt ", "wave"},
		{"FORM\x00\x00\x00\x00AIFFCOMM", "aiff"},
		{"caff\x00\x01\x00\x00desc", "caf"},
		{".snd\x00\x00\x00\x1c", "next"},
		{"dns.\x1c\x00\x00\x00", "next"},
	}
	for _, c := range cases {
		tp, ok := soundfile.Default.Sniff([]byte(c.header))
		if !ok || tp.Name() != c.want {
			t.Errorf("Sniff(%q) = %v", c.header, tp)
		}
	}
}
