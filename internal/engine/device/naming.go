package device

import (
	"regexp"
	"strings"
)

var (
	leadingDigit  = regexp.MustCompile(`^[0-9]`)
	avrShorthand  = regexp.MustCompile(`^[0-9]+[A-Z]{2}[0-9]+`)
	familyPrefix  = regexp.MustCompile(`^(?i)(atxmega|atmega|attiny|avr)`)
	shortPrefixes = []struct {
		prefix string
		family string
	}{
		{"ATXMEGA", "ATxmega"},
		{"ATMEGA", "ATmega"},
		{"ATTINY", "ATtiny"},
		{"XMEGA", "ATxmega"},
		{"MEGA", "ATmega"},
		{"TINY", "ATtiny"},
		{"TN", "ATtiny"},
		{"X", "ATxmega"},
		{"M", "ATmega"},
		{"T", "ATtiny"},
	}
)

// Canonicalize maps shorthand device spellings found in sources to the
// canonical vendor family name. The rules are heuristic; file resolution
// depends on their exact output.
//
//	atmega328p -> ATmega328P
//	m328p      -> ATmega328P
//	tn85       -> ATtiny85
//	x128a1     -> ATxmega128A1
//	128DA32    -> AVR128DA32
//	328P       -> ATmega328P
func Canonicalize(raw string) string {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	if upper == "" {
		return ""
	}
	if strings.HasPrefix(upper, "AVR") && len(upper) > 3 && leadingDigit.MatchString(upper[3:]) {
		return upper
	}
	for _, p := range shortPrefixes {
		rest, ok := strings.CutPrefix(upper, p.prefix)
		if !ok || rest == "" || !leadingDigit.MatchString(rest) {
			continue
		}
		return p.family + rest
	}
	if leadingDigit.MatchString(upper) {
		if avrShorthand.MatchString(upper) {
			return "AVR" + upper
		}
		return "ATmega" + upper
	}
	return upper
}

// LibraryName returns the internal device-library name used by pack file
// names (io<lib>.h, <lib>def.inc).
func LibraryName(device string) string {
	d := strings.TrimSpace(device)
	lower := strings.ToLower(d)
	switch {
	case strings.HasPrefix(lower, "atxmega"):
		return "x" + lower[len("atxmega"):]
	case strings.HasPrefix(lower, "atmega"):
		return "m" + lower[len("atmega"):]
	case strings.HasPrefix(lower, "attiny"):
		return "tn" + lower[len("attiny"):]
	default:
		return lower
	}
}

// Token returns the family-stripped, lower-case part of a device name used
// for fuzzy file matching.
func Token(device string) string {
	d := strings.TrimSpace(device)
	if loc := familyPrefix.FindStringIndex(d); loc != nil {
		d = d[loc[1]:]
	}
	return strings.ToLower(d)
}
