package domain

import (
	"strings"

	"golang.org/x/text/language"
)

// Locale is a supported conversation language.
type Locale string

const (
	LocaleEnglish  Locale = "en"
	LocaleJapanese Locale = "ja"

	DefaultLocale = LocaleEnglish
)

// SupportedLocales lists the locales in matcher preference order.
var SupportedLocales = []Locale{LocaleEnglish, LocaleJapanese}

var localeMatcher = language.NewMatcher([]language.Tag{
	language.English,
	language.Japanese,
})

// ParseLocale returns the supported locale for a tag such as "ja-JP".
// Unsupported or empty values fall back to DefaultLocale.
func ParseLocale(s string) Locale {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultLocale
	}
	tag, err := language.Parse(s)
	if err != nil {
		return DefaultLocale
	}
	return matchTags(tag)
}

// MatchAcceptLanguage resolves an Accept-Language header value.
func MatchAcceptLanguage(header string) Locale {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}
	return matchTags(tags...)
}

// ResolveLocale prefers an explicit locale and falls back to the
// Accept-Language header.
func ResolveLocale(explicit, acceptLanguage string) Locale {
	if strings.TrimSpace(explicit) != "" {
		return ParseLocale(explicit)
	}
	return MatchAcceptLanguage(acceptLanguage)
}

func matchTags(tags ...language.Tag) Locale {
	_, idx, conf := localeMatcher.Match(tags...)
	if conf == language.No {
		return DefaultLocale
	}
	return SupportedLocales[idx]
}

// Valid reports whether l is a supported locale.
func (l Locale) Valid() bool {
	for _, s := range SupportedLocales {
		if l == s {
			return true
		}
	}
	return false
}

func (l Locale) String() string { return string(l) }
