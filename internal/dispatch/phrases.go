package dispatch

import (
	"golang.org/x/text/language"
)

// Phrases are the fixed responses the pipeline speaks on its own
type Phrases struct {
	NotUnderstood   string
	TimedOut        string
	Apology         string
	ExecutionFailed string
	Done            string
}

const defaultLanguage = "ro"

var phrasesByLanguage = map[string]Phrases{
	"ro": {
		NotUnderstood:   "Nu am înțeles comanda, vă rog repetați.",
		TimedOut:        "Timpul a expirat, vă rog încercați din nou.",
		Apology:         "Ne pare rău, a apărut o problemă. Vă rog încercați din nou.",
		ExecutionFailed: "Comanda nu a putut fi executată.",
		Done:            "Gata.",
	},
	"en": {
		NotUnderstood:   "Sorry, I did not understand the command, please repeat.",
		TimedOut:        "The request timed out, please try again.",
		Apology:         "Sorry, something went wrong. Please try again.",
		ExecutionFailed: "The command could not be completed.",
		Done:            "Done.",
	},
}

// PhrasesFor returns the phrases for a BCP 47 locale, falling back to
// Romanian for unsupported languages
func PhrasesFor(locale string) Phrases {
	if tag, err := language.Parse(locale); err == nil {
		base, _ := tag.Base()
		if p, ok := phrasesByLanguage[base.String()]; ok {
			return p
		}
	}
	return phrasesByLanguage[defaultLanguage]
}
