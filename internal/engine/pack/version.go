package pack

import (
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D+`)

// CompareVersions compares dot/non-digit separated numeric component
// sequences left to right. Missing components count as zero, so "1.0" and
// "1.0.0" are equal. It returns -1, 0 or 1.
func CompareVersions(a, b string) int {
	pa, pb := versionParts(a), versionParts(b)
	n := max(len(pa), len(pb))
	for i := 0; i < n; i++ {
		ca, cb := "0", "0"
		if i < len(pa) {
			ca = pa[i]
		}
		if i < len(pb) {
			cb = pb[i]
		}
		if c := compareDigits(ca, cb); c != 0 {
			return c
		}
	}
	return 0
}

// compareLatest orders versions for "latest" selection: numeric order
// first, then the raw string so the choice is deterministic.
func compareLatest(a, b string) int {
	if c := CompareVersions(a, b); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func versionParts(v string) []string {
	var out []string
	for _, p := range nonDigits.Split(v, -1) {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// compareDigits compares two non-empty decimal strings of any length.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
