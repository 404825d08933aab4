package daterange

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date is a calendar date without time of day or zone. Canonical text form is
// YYYY-MM-DD, which also sorts lexicographically.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// FromTime takes the calendar fields of t as seen in t's own location. It does
// not convert to UTC first, so a late-evening local time keeps its local day.
func FromTime(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Valid reports whether d names a real calendar day in years 1..9999.
func (d Date) Valid() bool {
	if d.Year < 1 || d.Year > 9999 || d.Month < time.January || d.Month > time.December || d.Day < 1 {
		return false
	}
	return d.Day <= daysIn(d.Year, d.Month)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns midnight of d in loc (UTC when loc is nil).
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) AddDays(n int) Date {
	return FromTime(d.Time(time.UTC).AddDate(0, 0, n))
}

// InYear re-anchors month and day onto year. Feb 29 on a non-leap year rolls
// over to Mar 1.
func (d Date) InYear(year int) Date {
	return FromTime(time.Date(year, d.Month, d.Day, 0, 0, 0, 0, time.UTC))
}

func (d Date) Before(o Date) bool { return Compare(d, o) < 0 }
func (d Date) After(o Date) bool  { return Compare(d, o) > 0 }

// Compare orders dates chronologically and returns -1, 0 or 1.
func Compare(a, b Date) int {
	switch {
	case a.Year != b.Year:
		return sign(a.Year - b.Year)
	case a.Month != b.Month:
		return sign(int(a.Month) - int(b.Month))
	default:
		return sign(a.Day - b.Day)
	}
}

// CompareAsc compares two canonical YYYY-MM-DD strings. Plain string comparison is
// enough because the canonical form is zero padded.
func CompareAsc(a, b string) int {
	return strings.Compare(a, b)
}

// ParseStrict accepts a time.Time (or pointer), a Date, an ISO "YYYY-MM-DD" string
// or a localized "DD.MM.YYYY" string. Every other input, and every string that
// does not name a real calendar day, yields ok == false.
func ParseStrict(v any) (Date, bool) {
	switch x := v.(type) {
	case Date:
		return x, x.Valid()
	case time.Time:
		if x.IsZero() {
			return Date{}, false
		}
		return FromTime(x), true
	case *time.Time:
		if x == nil || x.IsZero() {
			return Date{}, false
		}
		return FromTime(*x), true
	case string:
		return parseString(strings.TrimSpace(x))
	case *string:
		if x == nil {
			return Date{}, false
		}
		return parseString(strings.TrimSpace(*x))
	default:
		return Date{}, false
	}
}

func parseString(s string) (Date, bool) {
	if len(s) != 10 {
		return Date{}, false
	}
	var y, m, d string
	switch {
	case s[4] == '-' && s[7] == '-':
		y, m, d = s[0:4], s[5:7], s[8:10]
	case s[2] == '.' && s[5] == '.':
		d, m, y = s[0:2], s[3:5], s[6:10]
	default:
		return Date{}, false
	}
	year, ok := digits(y)
	if !ok {
		return Date{}, false
	}
	month, ok := digits(m)
	if !ok {
		return Date{}, false
	}
	day, ok := digits(d)
	if !ok {
		return Date{}, false
	}
	out := Date{Year: year, Month: time.Month(month), Day: day}
	if !out.Valid() {
		return Date{}, false
	}
	return out, true
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON never fails on a malformed date: it leaves the zero Date so the
// mappers can drop the value instead of rejecting the whole payload.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*d = Date{}
		return nil
	}
	parsed, ok := ParseStrict(s)
	if !ok {
		*d = Date{}
		return nil
	}
	*d = parsed
	return nil
}

func digits(s string) (int, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
