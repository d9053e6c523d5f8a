package util

import (
	"path/filepath"
	"testing"
)

func TestWithinDir(t *testing.T) {
	t.Parallel()

	root := filepath.FromSlash("/work/fw")
	cases := []struct {
		name string
		path string
		want bool
	}{
		{name: "Same", path: "/work/fw", want: true},
		{name: "Nested", path: "/work/fw/src/main.S", want: true},
		{name: "Sibling", path: "/work/fw2/main.S", want: false},
		{name: "Parent", path: "/work", want: false},
		{name: "Escapes", path: "/work/fw/../other/a.s", want: false},
		{name: "Empty", path: "", want: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := WithinDir(root, filepath.FromSlash(tc.path)); got != tc.want {
				t.Fatalf("WithinDir(%q, %q) = %v, want %v", root, tc.path, got, tc.want)
			}
		})
	}
}

func TestSortedStringKeys(t *testing.T) {
	t.Parallel()

	got := SortedStringKeys(map[string]int{"m328p": 1, "avr128da32": 2, "tn85": 3})
	want := []string{"avr128da32", "m328p", "tn85"}
	if len(got) != len(want) {
		t.Fatalf("expected %d keys, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := Truncate("ldi r16, 0xff", 3); got != "ldi..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := Truncate("nop", 10); got != "nop" {
		t.Fatalf("expected untouched string, got %q", got)
	}
	if got := Truncate("nop", 0); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}
