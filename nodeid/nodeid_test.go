package nodeid

import (
	"strings"
	"testing"
)

func TestFormatWidth(t *testing.T) {
	cases := []struct {
		name   string
		prefix string
		raw    string
	}{
		{"empty", "", ""},
		{"short", "dd-", "abc123"},
		{"exact", "dd-", strings.Repeat("a", 27)},
		{"long raw", "dd-", strings.Repeat("b", 64)},
		{"long prefix", strings.Repeat("p", 40), "abc"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Format(tc.prefix, tc.raw)
			if len(got) != Width {
				t.Fatalf("Format(%q, %q) has length %d, want %d", tc.prefix, tc.raw, len(got), Width)
			}
		})
	}
}

func TestFormatPadding(t *testing.T) {
	got := Format("node-", "1234")
	want := "node-1234" + strings.Repeat("0", Width-len("node-1234"))
	if got != want {
		t.Fatalf("Format = %q, want %q", got, want)
	}
	if !strings.HasPrefix(got, "node-") {
		t.Fatalf("Format = %q, prefix lost", got)
	}
}

func TestFormatTruncation(t *testing.T) {
	prefix := "archive-"
	raw := strings.Repeat("f", 64)
	got := Format(prefix, raw)
	if want := (prefix + raw)[:Width]; got != want {
		t.Fatalf("Format = %q, want %q", got, want)
	}
}

// A prefix longer than Width swallows the raw id. This is the documented
// behavior, not an accident.
func TestFormatOversizedPrefix(t *testing.T) {
	prefix := strings.Repeat("x", Width+5)
	got := Format(prefix, "raw")
	if got != prefix[:Width] {
		t.Fatalf("Format = %q, want %q", got, prefix[:Width])
	}
}

func TestFormatExactWidth(t *testing.T) {
	prefix := "p-"
	raw := strings.Repeat("r", Width-2)
	got := Format(prefix, raw)
	if got != prefix+raw {
		t.Fatalf("Format = %q, want %q", got, prefix+raw)
	}
}

func TestRandom(t *testing.T) {
	a, err := Random()
	if err != nil {
		t.Fatal(err)
	}
	b, err := Random()
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 64 {
		t.Fatalf("raw id length = %d, want 64", len(a))
	}
	if a == b {
		t.Fatal("two random ids are equal")
	}
}
