package models

// Language is a voice language code as the game INIs spell it
// (sLanguage), matching the suffixes of the shipped Voices BA2s.
type Language string

const (
	LanguageChinese             Language = "cn"
	LanguageGerman              Language = "de"
	LanguageEnglish             Language = "en"
	LanguageSpanish             Language = "es"
	LanguageSpanishLatinAmerica Language = "esmx"
	LanguageFrench              Language = "fr"
	LanguageItalian             Language = "it"
	LanguageJapanese            Language = "ja"
	LanguagePolish              Language = "pl"
	LanguagePortuguese          Language = "ptbr"
	LanguageRussian             Language = "ru"
)

func (l Language) String() string {
	return string(l)
}

func AllLanguages() []Language {
	return []Language{
		LanguageChinese, LanguageGerman, LanguageEnglish, LanguageSpanish,
		LanguageSpanishLatinAmerica, LanguageFrench, LanguageItalian,
		LanguageJapanese, LanguagePolish, LanguagePortuguese, LanguageRussian,
	}
}

// ParseLanguage maps an sLanguage value onto a known code, falling back
// to English for anything unrecognised.
func ParseLanguage(value string) Language {
	candidate := Language(value)
	for _, known := range AllLanguages() {
		if candidate == known {
			return known
		}
	}
	return LanguageEnglish
}
