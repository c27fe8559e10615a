// Package nlu resolves transcribed text into a structured intent by matching
// it against an ordered catalog of regular-expression rules. Resolution is
// deterministic: the same text and language always yield the same intent.
package nlu

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/medvox/voice-command-gateway/internal/voice"
)

// Category groups rules by urgency. Lower values are tried first.
type Category int

const (
	CategoryEmergency Category = iota
	CategoryProcedural
	CategoryInformational
	CategoryOperational
)

func (c Category) String() string {
	switch c {
	case CategoryEmergency:
		return "emergency"
	case CategoryProcedural:
		return "procedural"
	case CategoryInformational:
		return "informational"
	case CategoryOperational:
		return "operational"
	default:
		return "unknown"
	}
}

// ParseCategory is the inverse of Category.String
func ParseCategory(s string) (Category, error) {
	switch s {
	case "emergency":
		return CategoryEmergency, nil
	case "procedural":
		return CategoryProcedural, nil
	case "informational":
		return CategoryInformational, nil
	case "operational":
		return CategoryOperational, nil
	default:
		return 0, fmt.Errorf("unknown category %q", s)
	}
}

// ParamType controls how a captured group is normalized
type ParamType int

const (
	// ParamText keeps the capture as spoken, trimmed
	ParamText ParamType = iota
	// ParamTime normalizes "10", "10.30" and "10:30" to HH:MM
	ParamTime
	// ParamNumber normalizes a decimal comma to a point
	ParamNumber
)

// ParamExtractor maps a capture group of a rule's pattern to a named parameter
type ParamExtractor struct {
	Name  string
	Group int
	Type  ParamType
}

// DefaultConfidence is assigned to a match when the rule does not set one
const DefaultConfidence = 0.9

// UnknownConfidence is assigned when no rule matched
const UnknownConfidence = 0.2

// Rule is one catalog entry. Rules are data; adding an intent never requires
// touching the resolver.
type Rule struct {
	Name       string
	Language   string
	Category   Category
	Kind       voice.IntentKind
	Pattern    *regexp.Regexp
	Params     []ParamExtractor
	Confidence float64
}

// Catalog is an immutable, priority-ordered rule set
type Catalog struct {
	byLang map[string][]Rule
}

// NewCatalog validates the rules and orders them per language by category,
// keeping declaration order within a category.
func NewCatalog(rules ...Rule) (*Catalog, error) {
	byLang := make(map[string][]Rule)
	seen := make(map[string]bool)

	for i, r := range rules {
		if r.Name == "" {
			return nil, fmt.Errorf("rule %d: name is required", i)
		}
		if r.Pattern == nil {
			return nil, fmt.Errorf("rule %s: pattern is required", r.Name)
		}
		if r.Kind == "" || r.Kind == voice.IntentUnknown {
			return nil, fmt.Errorf("rule %s: kind is required", r.Name)
		}
		if r.Language == "" {
			return nil, fmt.Errorf("rule %s: language is required", r.Name)
		}
		key := r.Language + "/" + r.Name
		if seen[key] {
			return nil, fmt.Errorf("rule %s: duplicate name for language %s", r.Name, r.Language)
		}
		seen[key] = true

		groups := r.Pattern.NumSubexp()
		for _, p := range r.Params {
			if p.Group < 1 || p.Group > groups {
				return nil, fmt.Errorf("rule %s: param %s refers to group %d, pattern has %d", r.Name, p.Name, p.Group, groups)
			}
		}
		if r.Confidence == 0 {
			r.Confidence = DefaultConfidence
		}
		byLang[r.Language] = append(byLang[r.Language], r)
	}

	for lang := range byLang {
		rs := byLang[lang]
		sort.SliceStable(rs, func(i, j int) bool {
			return rs[i].Category < rs[j].Category
		})
	}

	return &Catalog{byLang: byLang}, nil
}

// Rules returns the ordered rules for a base language
func (c *Catalog) Rules(lang string) []Rule {
	return c.byLang[lang]
}

// Languages lists the base languages the catalog has rules for
func (c *Catalog) Languages() []string {
	langs := make([]string, 0, len(c.byLang))
	for l := range c.byLang {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// Extend returns a new catalog containing c's rules followed by extra.
// The receiver is left untouched.
func (c *Catalog) Extend(extra ...Rule) (*Catalog, error) {
	var all []Rule
	for _, lang := range c.Languages() {
		all = append(all, c.byLang[lang]...)
	}
	all = append(all, extra...)
	return NewCatalog(all...)
}

// DefaultCatalog returns the built-in Romanian and English catalog
func DefaultCatalog() *Catalog {
	rules := append(romanianRules(), englishRules()...)
	c, err := NewCatalog(rules...)
	if err != nil {
		panic(fmt.Sprintf("nlu: invalid built-in catalog: %v", err))
	}
	return c
}
