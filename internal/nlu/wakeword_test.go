package nlu

import (
	"strings"
	"testing"

	"github.com/medvox/voice-command-gateway/internal/voice"
)

func TestWakeGate_Admit(t *testing.T) {
	g := NewWakeGate([]string{"asistent", "hey asistent", "  "})

	tests := []struct {
		text string
		rest string
		ok   bool
	}{
		{"asistent, programează pentru Ana", "programează pentru Ana", true},
		{"Hey   Asistent torque la 45", "torque la 45", true},
		{"bună ziua asistent: stop", "stop", true},
		{"asistent", "", true},
		{"programează pentru Ana", "", false},
		{"asistentul meu", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		rest, ok := g.Admit(tt.text)
		if ok != tt.ok || rest != tt.rest {
			t.Errorf("Admit(%q) = %q, %v; want %q, %v", tt.text, rest, ok, tt.rest, tt.ok)
		}
	}
}

func TestLoadRules(t *testing.T) {
	src := `
rules:
  - name: ro.sterilize
    language: ro-RO
    category: procedural
    kind: StartProcedure
    confidence: 0.88
    pattern: '(?:^|\s)sterilizează\s+(.+?)\s*$'
    params:
      - {name: instrument, group: 1}
`
	rules, err := LoadRules(strings.NewReader(src))
	if err != nil {
		t.Fatalf("LoadRules() failed: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("Expected 1 rule, got %d", len(rules))
	}
	if rules[0].Language != "ro" {
		t.Errorf("Expected language reduced to 'ro', got %q", rules[0].Language)
	}

	c, err := DefaultCatalog().Extend(rules...)
	if err != nil {
		t.Fatalf("Extend() failed: %v", err)
	}

	got := NewResolver(c).Resolve("Sterilizează trusa doi", "ro-RO")
	if got.Kind != voice.IntentStartProcedure || got.Rule != "ro.sterilize" {
		t.Fatalf("Expected ro.sterilize, got %s (%s)", got.Kind, got.Rule)
	}
	if got.Params["instrument"] != "trusa doi" {
		t.Errorf("Expected instrument 'trusa doi', got %q", got.Params["instrument"])
	}
	if got.Confidence != 0.88 {
		t.Errorf("Expected confidence 0.88, got %f", got.Confidence)
	}
}

func TestLoadRules_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"bad category", "rules:\n  - {name: a, language: ro, category: urgent, kind: NextStep, pattern: a}\n"},
		{"bad pattern", "rules:\n  - {name: a, language: ro, category: procedural, kind: NextStep, pattern: '(a'}\n"},
		{"bad param type", "rules:\n  - {name: a, language: ro, category: procedural, kind: NextStep, pattern: '(a)', params: [{name: x, group: 1, type: date}]}\n"},
		{"unknown field", "rules:\n  - {name: a, language: ro, category: procedural, kind: NextStep, pattern: a, weight: 3}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadRules(strings.NewReader(tt.src)); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestLoadRules_Empty(t *testing.T) {
	rules, err := LoadRules(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadRules() failed: %v", err)
	}
	if len(rules) != 0 {
		t.Errorf("Expected no rules, got %d", len(rules))
	}
}
