package daterange

import (
	"strconv"

	"golang.org/x/text/language"
)

type longFormat struct {
	months [12]string
	layout func(day int, month string, year int) string
}

var supportedLocales = []language.Tag{
	language.English,
	language.German,
	language.French,
	language.Spanish,
}

var localeMatcher = language.NewMatcher(supportedLocales)

var longFormats = []longFormat{
	{
		months: [12]string{"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"},
		layout: func(day int, month string, year int) string {
			return month + " " + strconv.Itoa(day) + ", " + strconv.Itoa(year)
		},
	},
	{
		months: [12]string{"Januar", "Februar", "März", "April", "Mai", "Juni", "Juli", "August", "September", "Oktober", "November", "Dezember"},
		layout: func(day int, month string, year int) string {
			return strconv.Itoa(day) + ". " + month + " " + strconv.Itoa(year)
		},
	},
	{
		months: [12]string{"janvier", "février", "mars", "avril", "mai", "juin", "juillet", "août", "septembre", "octobre", "novembre", "décembre"},
		layout: func(day int, month string, year int) string {
			d := strconv.Itoa(day)
			if day == 1 {
				d = "1er"
			}
			return d + " " + month + " " + strconv.Itoa(year)
		},
	},
	{
		months: [12]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"},
		layout: func(day int, month string, year int) string {
			return strconv.Itoa(day) + " de " + month + " de " + strconv.Itoa(year)
		},
	},
}

// ParseLocale turns a BCP 47 string such as "de-CH" into a tag, defaulting to
// English when the string does not parse.
func ParseLocale(s string) language.Tag {
	tag, err := language.Parse(s)
	if err != nil {
		return language.English
	}
	return tag
}

// FormatLong renders r in long form for the closest supported locale. A single
// day range renders as one date.
func FormatLong(r Range, tag language.Tag) string {
	if !r.Valid() {
		return ""
	}
	_, idx, _ := localeMatcher.Match(tag)
	if idx < 0 || idx >= len(longFormats) {
		idx = 0
	}
	f := longFormats[idx]
	start := f.date(r.Start)
	if r.SingleDay() {
		return start
	}
	return start + " - " + f.date(r.End)
}

func (f longFormat) date(d Date) string {
	return f.layout(d.Day, f.months[d.Month-1], d.Year)
}
