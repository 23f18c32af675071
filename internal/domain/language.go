package domain

// Language is the closed set of languages the detector can report.
//
// Values are persisted inside indexed array-membership queries, so they
// serialize as stable small integers, never names. Unknown must stay 0.
type Language uint8

const (
	LanguageUnknown    Language = 0
	LanguageEnglish    Language = 1
	LanguageRussian    Language = 2
	LanguageChinese    Language = 3
	LanguageJapanese   Language = 4
	LanguageKorean     Language = 5
	LanguageSpanish    Language = 6
	LanguagePortuguese Language = 7
)

// String returns the language name for logging.
func (l Language) String() string {
	switch l {
	case LanguageEnglish:
		return "English"
	case LanguageRussian:
		return "Russian"
	case LanguageChinese:
		return "Chinese"
	case LanguageJapanese:
		return "Japanese"
	case LanguageKorean:
		return "Korean"
	case LanguageSpanish:
		return "Spanish"
	case LanguagePortuguese:
		return "Portuguese"
	default:
		return "Unknown"
	}
}

// ContainsLanguage reports whether langs includes want.
func ContainsLanguage(langs []Language, want Language) bool {
	for _, l := range langs {
		if l == want {
			return true
		}
	}
	return false
}
