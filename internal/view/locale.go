package view

import (
	"time"

	"golang.org/x/text/language"
)

// Locale selects how dates are printed.
type Locale struct {
	Tag    language.Tag
	layout string
}

// Locales the dashboard formats dates for. The first one is the fallback.
var locales = []Locale{
	{Tag: language.AmericanEnglish, layout: "1/2/2006"},
	{Tag: language.BritishEnglish, layout: "02/01/2006"},
	{Tag: language.German, layout: "2.1.2006"},
	{Tag: language.French, layout: "02/01/2006"},
	{Tag: language.Japanese, layout: "2006/1/2"},
}

var matcher = language.NewMatcher(func() []language.Tag {
	tags := make([]language.Tag, len(locales))
	for i, l := range locales {
		tags[i] = l.Tag
	}
	return tags
}())

// DefaultLocale is used when the request states no usable preference.
var DefaultLocale = locales[0]

// MatchLocale picks the closest supported locale for an Accept-Language header.
func MatchLocale(acceptLanguage string) Locale {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return DefaultLocale
	}
	return locales[idx]
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// FormatDate prints raw as a short local date. Values that do not parse are
// returned unchanged.
func (l Locale) FormatDate(raw string) string {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(l.layout)
		}
	}
	return raw
}
