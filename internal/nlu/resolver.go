package nlu

import (
	"github.com/medvox/voice-command-gateway/internal/voice"
)

// Resolver matches text against a catalog. It holds no mutable state and is
// safe for concurrent use.
type Resolver struct {
	catalog *Catalog
}

// NewResolver creates a resolver over catalog; nil selects DefaultCatalog
func NewResolver(catalog *Catalog) *Resolver {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Resolver{catalog: catalog}
}

// Catalog returns the catalog the resolver matches against
func (r *Resolver) Catalog() *Catalog {
	return r.catalog
}

// Resolve returns the intent of the first rule, in priority order, whose
// pattern matches text. It never fails: no match yields IntentUnknown.
func (r *Resolver) Resolve(text, locale string) voice.ResolvedIntent {
	normalized := Normalize(text)

	unknown := voice.ResolvedIntent{
		Kind:       voice.IntentUnknown,
		Params:     map[string]string{},
		Confidence: UnknownConfidence,
		RawText:    text,
	}
	if normalized == "" {
		return unknown
	}

	for _, rule := range r.rulesFor(locale) {
		m := rule.Pattern.FindStringSubmatchIndex(normalized)
		if m == nil {
			continue
		}

		params := make(map[string]string, len(rule.Params))
		for _, p := range rule.Params {
			start, end := m[2*p.Group], m[2*p.Group+1]
			if start < 0 {
				// optional group did not participate
				continue
			}
			value := normalizeParam(normalized[start:end], p.Type)
			if value == "" {
				continue
			}
			params[p.Name] = value
		}

		return voice.ResolvedIntent{
			Kind:       rule.Kind,
			Params:     params,
			Confidence: rule.Confidence,
			RawText:    text,
			Rule:       rule.Name,
		}
	}

	return unknown
}

func (r *Resolver) rulesFor(locale string) []Rule {
	if rules := r.catalog.Rules(BaseLanguage(locale)); len(rules) > 0 {
		return rules
	}
	return r.catalog.Rules(FallbackLanguage)
}
