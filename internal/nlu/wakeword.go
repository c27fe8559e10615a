package nlu

import (
	"regexp"
	"sort"
	"strings"
)

// WakeGate checks final utterances for a trigger phrase
type WakeGate struct {
	patterns []*regexp.Regexp
}

// NewWakeGate compiles the trigger phrases. Longer phrases are tried first so
// "hey asistent" wins over "asistent".
func NewWakeGate(phrases []string) *WakeGate {
	cleaned := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = Normalize(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	sort.SliceStable(cleaned, func(i, j int) bool {
		return len(cleaned[i]) > len(cleaned[j])
	})

	g := &WakeGate{}
	for _, p := range cleaned {
		words := strings.Fields(p)
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		g.patterns = append(g.patterns,
			regexp.MustCompile(`(?i)(?:^|[\s,.!?])`+strings.Join(words, `[\s,]+`)+`(?:[\s,.!?:]|$)`))
	}
	return g
}

// Admit reports whether text contains a trigger phrase and returns the
// command that follows it. Text before the phrase is dropped.
func (g *WakeGate) Admit(text string) (string, bool) {
	normalized := Normalize(text)
	for _, re := range g.patterns {
		loc := re.FindStringIndex(normalized)
		if loc == nil {
			continue
		}
		rest := strings.TrimLeft(normalized[loc[1]:], " ,.!?:")
		return strings.TrimSpace(rest), true
	}
	return "", false
}
