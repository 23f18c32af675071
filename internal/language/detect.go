// Package language detects which languages an item description is written in.
package language

import (
	"sort"
	"strings"

	"github.com/pemistahl/lingua-go"

	"github.com/workshopindex/workshop-server/internal/domain"
)

// wordShare is the fraction of detected words a language must account for
// to be reported. Descriptions frequently carry translated sections, which
// is why detection returns a set rather than a single language.
const wordShare = 0.2

// minimumRelativeDistance filters out low-confidence single-word guesses.
const minimumRelativeDistance = 0.9

// Detector wraps a lingua detector over the closed language set.
// It is safe for concurrent use.
type Detector struct {
	detector lingua.LanguageDetector
}

// NewDetector builds the detector. Construction is expensive (the language
// models are loaded eagerly), so one detector is shared process-wide.
func NewDetector() *Detector {
	return &Detector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(
				lingua.English,
				lingua.Russian,
				lingua.Chinese,
				lingua.Japanese,
				lingua.Korean,
				lingua.Spanish,
				lingua.Portuguese,
			).
			WithMinimumRelativeDistance(minimumRelativeDistance).
			Build(),
	}
}

// Detect returns the set of languages whose word share exceeds the
// threshold, in ascending enum order. Empty or ambiguous text yields an
// empty set.
func (d *Detector) Detect(text string) []domain.Language {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	counts := make(map[domain.Language]int)
	total := 0
	for _, section := range d.detector.DetectMultipleLanguagesOf(text) {
		words := len(strings.Fields(text[section.StartIndex():section.EndIndex()]))
		counts[fromLingua(section.Language())] += words
		total += words
	}
	if total == 0 {
		return nil
	}

	var langs []domain.Language
	for lang, count := range counts {
		if float64(count)/float64(total) > wordShare {
			langs = append(langs, lang)
		}
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}

// fromLingua maps a lingua language onto the closed domain enumeration.
func fromLingua(l lingua.Language) domain.Language {
	switch l {
	case lingua.English:
		return domain.LanguageEnglish
	case lingua.Russian:
		return domain.LanguageRussian
	case lingua.Chinese:
		return domain.LanguageChinese
	case lingua.Japanese:
		return domain.LanguageJapanese
	case lingua.Korean:
		return domain.LanguageKorean
	case lingua.Spanish:
		return domain.LanguageSpanish
	case lingua.Portuguese:
		return domain.LanguagePortuguese
	default:
		return domain.LanguageUnknown
	}
}

// Parse resolves a configured language name to its enum value.
// Unrecognized names map to Unknown.
func Parse(name string) domain.Language {
	switch strings.ToLower(name) {
	case "english":
		return domain.LanguageEnglish
	case "russian":
		return domain.LanguageRussian
	case "chinese":
		return domain.LanguageChinese
	case "japanese":
		return domain.LanguageJapanese
	case "korean":
		return domain.LanguageKorean
	case "spanish":
		return domain.LanguageSpanish
	case "portuguese":
		return domain.LanguagePortuguese
	default:
		return domain.LanguageUnknown
	}
}
