package nlu

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// FallbackLanguage is used when a locale has no rules in the catalog
const FallbackLanguage = "ro"

// legacy Romanian cedilla forms still produced by some recognizers
var cedillaReplacer = strings.NewReplacer(
	"ş", "ș", "Ş", "Ș",
	"ţ", "ț", "Ţ", "Ț",
)

// Normalize prepares recognized text for matching: NFC composition, comma-below
// Romanian letters and single spaces. Case is preserved so extracted
// parameters keep the speaker's spelling.
func Normalize(text string) string {
	text = norm.NFC.String(text)
	text = cedillaReplacer.Replace(text)
	return strings.Join(strings.Fields(text), " ")
}

// BaseLanguage reduces a BCP 47 locale such as "ro-RO" to its base language
// subtag. Unparseable locales yield FallbackLanguage.
func BaseLanguage(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return FallbackLanguage
	}
	base, _ := tag.Base()
	return base.String()
}

func normalizeParam(value string, typ ParamType) string {
	value = strings.TrimSpace(value)
	switch typ {
	case ParamTime:
		// invalid clock times are dropped
		t, _ := normalizeTime(value)
		return t
	case ParamNumber:
		return strings.Replace(value, ",", ".", 1)
	}
	return value
}

// normalizeTime turns "9", "9.30", "14:00" and "2 pm" into HH:MM
func normalizeTime(value string) (string, bool) {
	v := strings.ToLower(strings.ReplaceAll(value, ".", ":"))
	v = strings.ReplaceAll(v, " ", "")

	var pm, am bool
	switch {
	case strings.HasSuffix(v, "p:m:"), strings.HasSuffix(v, "pm"):
		pm = true
	case strings.HasSuffix(v, "a:m:"), strings.HasSuffix(v, "am"):
		am = true
	}
	v = strings.TrimRight(v, "apm:")

	hourPart, minPart, hasMin := strings.Cut(v, ":")
	hour, err := strconv.Atoi(hourPart)
	if err != nil {
		return "", false
	}
	minute := 0
	if hasMin {
		if minute, err = strconv.Atoi(minPart); err != nil {
			return "", false
		}
	}

	if pm && hour < 12 {
		hour += 12
	}
	if am && hour == 12 {
		hour = 0
	}
	if hour > 23 || minute > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}
