package device

import (
	"regexp"
	"sort"
	"strings"
)

// HardInferenceCap bounds how many workspace files device inference reads,
// regardless of the configured scan limit.
const HardInferenceCap = 60

type inferencePattern struct {
	name    string
	weight  int
	pattern *regexp.Regexp
}

// Weights grow with how specific the evidence is: a bare family token in a
// comment is weak, an include of the device's definition file is strong.
var inferencePatterns = []inferencePattern{
	{
		name:    "family-token",
		weight:  5,
		pattern: regexp.MustCompile(`(?i)\b(at(?:xmega|mega|tiny)[0-9]+[a-z0-9]*|avr[0-9]+[a-z]{2}[0-9]+)\b`),
	},
	{
		name:    "compiler-macro",
		weight:  8,
		pattern: regexp.MustCompile(`__AVR_((?:AT(?:xmega|mega|tiny)|AVR)[0-9][A-Za-z0-9]*)__`),
	},
	{
		name:    "header-include",
		weight:  12,
		pattern: regexp.MustCompile(`(?i)#\s*include\s*[<"](?:avr/)?io([a-z]+[0-9][a-z0-9]*)\.h[>"]`),
	},
	{
		name:    "include-definition",
		weight:  14,
		pattern: regexp.MustCompile(`(?i)[.#]\s*include\s*[<"](?:[^"<>]*/)?([a-z0-9]+)def\.inc[>"]`),
	},
}

// Candidate is one inferred device and its accumulated score.
type Candidate struct {
	Device string
	Score  int
}

// Scorer accumulates weighted device evidence across files.
type Scorer struct {
	scores map[string]int
}

func NewScorer() *Scorer {
	return &Scorer{scores: make(map[string]int)}
}

// Add scans one file's text and adds every match's weight to its
// canonicalized candidate.
func (s *Scorer) Add(text string) {
	for _, p := range inferencePatterns {
		for _, m := range p.pattern.FindAllStringSubmatch(text, -1) {
			if p.name == "family-token" && strings.HasSuffix(strings.ToLower(m[1]), "def") {
				continue
			}
			name := Canonicalize(m[1])
			if name == "" {
				continue
			}
			s.scores[name] += p.weight
		}
	}
}

// Candidates returns all candidates ordered by score descending, then name.
func (s *Scorer) Candidates() []Candidate {
	out := make([]Candidate, 0, len(s.scores))
	for name, score := range s.scores {
		out = append(out, Candidate{Device: name, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Device < out[j].Device
	})
	return out
}

// Best returns the highest scoring device, or "" when nothing scored above
// zero.
func (s *Scorer) Best() (string, int) {
	cands := s.Candidates()
	if len(cands) == 0 || cands[0].Score <= 0 {
		return "", 0
	}
	return cands[0].Device, cands[0].Score
}

// Infer is a convenience wrapper that scores texts in one pass.
func Infer(texts ...string) string {
	s := NewScorer()
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		s.Add(t)
	}
	name, _ := s.Best()
	return name
}
