package nlu

import (
	"fmt"
	"io"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/medvox/voice-command-gateway/internal/voice"
)

// ruleFile is the on-disk shape of an operator supplied catalog extension:
//
//	rules:
//	  - name: ro.sterilize
//	    language: ro
//	    category: procedural
//	    kind: StartProcedure
//	    pattern: '(?:^|\s)sterilizează\s+(.+?)\s*$'
//	    params:
//	      - {name: instrument, group: 1}
type ruleFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	Name       string      `yaml:"name"`
	Language   string      `yaml:"language"`
	Category   string      `yaml:"category"`
	Kind       string      `yaml:"kind"`
	Pattern    string      `yaml:"pattern"`
	Confidence float64     `yaml:"confidence"`
	Params     []paramSpec `yaml:"params"`
}

type paramSpec struct {
	Name  string `yaml:"name"`
	Group int    `yaml:"group"`
	Type  string `yaml:"type"` // text, time, number
}

// LoadRules parses YAML rules. Patterns are matched case-insensitively.
func LoadRules(r io.Reader) ([]Rule, error) {
	var f ruleFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode rules: %w", err)
	}

	rules := make([]Rule, 0, len(f.Rules))
	for i, s := range f.Rules {
		cat, err := ParseCategory(s.Category)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, s.Name, err)
		}
		re, err := regexp.Compile(`(?i)` + s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): compile pattern: %w", i, s.Name, err)
		}
		if s.Confidence < 0 || s.Confidence > 1 {
			return nil, fmt.Errorf("rule %d (%s): confidence %.2f out of range", i, s.Name, s.Confidence)
		}

		params := make([]ParamExtractor, 0, len(s.Params))
		for _, p := range s.Params {
			typ, err := parseParamType(p.Type)
			if err != nil {
				return nil, fmt.Errorf("rule %d (%s): %w", i, s.Name, err)
			}
			params = append(params, ParamExtractor{Name: p.Name, Group: p.Group, Type: typ})
		}

		rules = append(rules, Rule{
			Name:       s.Name,
			Language:   BaseLanguage(s.Language),
			Category:   cat,
			Kind:       voice.IntentKind(s.Kind),
			Pattern:    re,
			Params:     params,
			Confidence: s.Confidence,
		})
	}
	return rules, nil
}

// LoadCatalogFile extends base with the rules in path
func LoadCatalogFile(base *Catalog, path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	rules, err := LoadRules(f)
	if err != nil {
		return nil, err
	}
	return base.Extend(rules...)
}

func parseParamType(s string) (ParamType, error) {
	switch s {
	case "", "text":
		return ParamText, nil
	case "time":
		return ParamTime, nil
	case "number":
		return ParamNumber, nil
	default:
		return 0, fmt.Errorf("unknown param type %q", s)
	}
}
