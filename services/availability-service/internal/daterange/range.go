package daterange

import (
	"encoding/json"
	"time"

	"github.com/teambition/rrule-go"
)

// Range is an inclusive span of calendar days.
type Range struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// NormalizeRange parses both ends with ParseStrict. It fails when either end is
// unparseable or start is after end; start == end is a single-day range.
func NormalizeRange(a, b any) (Range, bool) {
	start, ok := ParseStrict(a)
	if !ok {
		return Range{}, false
	}
	end, ok := ParseStrict(b)
	if !ok {
		return Range{}, false
	}
	if start.After(end) {
		return Range{}, false
	}
	return Range{Start: start, End: end}, true
}

func (r Range) Valid() bool {
	return r.Start.Valid() && r.End.Valid() && !r.Start.After(r.End)
}

func (r Range) SingleDay() bool {
	return r.Start == r.End
}

func (r Range) String() string {
	return r.Start.String() + ".." + r.End.String()
}

func (r Range) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r Range) Overlaps(o Range) bool {
	return Overlaps(r.Start, r.End, o.Start, o.End)
}

// Overlaps is inclusive on both ends: ranges sharing a boundary day overlap.
func Overlaps(a1, a2, b1, b2 Date) bool {
	return !a1.After(b2) && !b1.After(a2)
}

// UnmarshalJSON accepts {"start": ..., "end": ...} in any format ParseStrict
// understands. An unusable pair decodes to the zero Range without error.
func (r *Range) UnmarshalJSON(data []byte) error {
	var raw struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		*r = Range{}
		return nil
	}
	norm, ok := NormalizeRange(raw.Start, raw.End)
	if !ok {
		*r = Range{}
		return nil
	}
	*r = norm
	return nil
}

// MaterializeYearlyOccurrence places the month/day of startMD and endMD on year.
// When the end would fall before the start the range crosses New Year and the
// end is placed on year+1 instead.
func MaterializeYearlyOccurrence(startMD, endMD Date, year int) Range {
	start := startMD.InYear(year)
	end := endMD.InYear(year)
	if end.Before(start) {
		end = endMD.InYear(year + 1)
	}
	return Range{Start: start, End: end}
}

// NextOccurrenceFrom returns the occurrence for from's year, or the following
// year's occurrence when that one already ended before from. The returned year
// is the year the occurrence was anchored on.
func NextOccurrenceFrom(startMD, endMD, from Date) (Range, int) {
	year := from.Year
	occ := MaterializeYearlyOccurrence(startMD, endMD, year)
	if occ.End.Before(from) {
		year++
		occ = MaterializeYearlyOccurrence(startMD, endMD, year)
	}
	return occ, year
}

// ExtendFilterToFit widens filter to the smallest range covering both filter and
// value. An invalid filter is replaced by value.
func ExtendFilterToFit(filter, value Range) Range {
	if !filter.Valid() {
		return value
	}
	if !value.Valid() {
		return filter
	}
	out := filter
	if value.Start.Before(out.Start) {
		out.Start = value.Start
	}
	if value.End.After(out.End) {
		out.End = value.End
	}
	return out
}

// YearlyOccurrencesBetween lists every yearly occurrence of the month/day range
// that overlaps window, in chronological order. A range crossing New Year can be
// anchored on the year before window starts, so expansion begins one year early.
func YearlyOccurrencesBetween(startMD, endMD Date, window Range) []Range {
	if !window.Valid() || !startMD.Valid() || !endMD.Valid() {
		return nil
	}
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.YEARLY,
		Dtstart: time.Date(window.Start.Year-1, time.January, 1, 0, 0, 0, 0, time.UTC),
		Until:   time.Date(window.End.Year, time.January, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		return nil
	}
	var out []Range
	for _, anchor := range rule.All() {
		occ := MaterializeYearlyOccurrence(startMD, endMD, anchor.Year())
		if occ.Overlaps(window) {
			out = append(out, occ)
		}
	}
	return out
}
