package matching

import (
	"strings"

	"golang.org/x/text/cases"
)

// Cue is one campaign intent detected in a free-text prompt.
type Cue string

const (
	CueAggressive  Cue = "aggressive"
	CueSeasonal    Cue = "seasonal"
	CueAcquisition Cue = "acquisition"
	CueRetention   Cue = "retention"
)

// Intent is the set of cues found in a prompt.
type Intent map[Cue]bool

func (i Intent) Has(c Cue) bool { return i[c] }

// Keyword families, English and Turkish. Matching is substring based on folded text.
var keywords = map[Cue][]string{
	CueAggressive: {
		"clearance", "clear out", "liquidat", "aggressive", "flash sale", "big sale", "deep discount",
		"overstock", "excess stock",
		"tasfiye", "stok eritme", "büyük indirim", "agresif", "fırsat", "stok fazlası",
	},
	CueSeasonal: {
		"season", "holiday", "christmas", "new year", "valentine", "black friday", "halloween",
		"mother's day", "father's day", "summer", "winter", "spring", "autumn", "back to school",
		"sezon", "mevsim", "yılbaşı", "bayram", "sevgililer", "anneler günü", "babalar günü",
		"yaz kampanya", "kış kampanya", "okula dönüş",
	},
	CueAcquisition: {
		"new customer", "acquisition", "acquire", "welcome", "first purchase", "first order", "onboard",
		"yeni müşteri", "hoş geldin", "ilk alışveriş", "ilk sipariş", "müşteri kazan",
	},
	CueRetention: {
		"retention", "retain", "win back", "win-back", "winback", "churn", "loyal", "re-engage", "reactivat",
		"sadakat", "geri kazan", "elde tut", "kayıp müşteri", "tekrar alışveriş",
	},
}

// fold lowercases with Unicode case folding. Turkish dotted and dotless i both
// end up as plain "i", since an upper-case prompt loses the distinction.
func fold(s string) string {
	s = strings.ReplaceAll(s, "İ", "i")
	// golang.org/x/text/cases: a Caser is stateful, so one is built per call
	return strings.ReplaceAll(cases.Fold().String(s), "ı", "i")
}

var foldedKeywords = func() map[Cue][]string {
	out := make(map[Cue][]string, len(keywords))
	for cue, words := range keywords {
		for _, w := range words {
			out[cue] = append(out[cue], fold(w))
		}
	}
	return out
}()

// ClassifyIntent returns every cue whose keywords occur in the prompt.
func ClassifyIntent(prompt string) Intent {
	intent := Intent{}
	text := fold(prompt)
	if strings.TrimSpace(text) == "" {
		return intent
	}
	for cue, words := range foldedKeywords {
		for _, w := range words {
			if strings.Contains(text, w) {
				intent[cue] = true
				break
			}
		}
	}
	return intent
}
