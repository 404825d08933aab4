package schedule

import (
	"sort"
	"strings"

	"github.com/md-rashed-zaman/availability/services/availability-service/internal/daterange"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/diag"
)

// DayOff is a named absence. For a yearly day off only the month and day of
// Range matter; the stored year is ignored when matching.
type DayOff struct {
	ID           *int64          `json:"id,omitempty"`
	Title        string          `json:"title"`
	Note         *string         `json:"note,omitempty"`
	Range        daterange.Range `json:"range"`
	RepeatYearly bool            `json:"repeat_yearly"`
}

// NextOccurrence returns the first occurrence that has not ended before from.
// A one-off day off that is already over has none.
func (d DayOff) NextOccurrence(from daterange.Date) (daterange.Range, bool) {
	if !d.Range.Valid() {
		return daterange.Range{}, false
	}
	if d.RepeatYearly {
		// An occurrence anchored on the previous year can still be running
		// when it spans New Year.
		prev := daterange.MaterializeYearlyOccurrence(d.Range.Start, d.Range.End, from.Year-1)
		if !prev.End.Before(from) {
			return prev, true
		}
		occ, _ := daterange.NextOccurrenceFrom(d.Range.Start, d.Range.End, from)
		return occ, true
	}
	if d.Range.End.Before(from) {
		return daterange.Range{}, false
	}
	return d.Range, true
}

// OccurrencesBetween lists the concrete occurrences overlapping window.
func (d DayOff) OccurrencesBetween(window daterange.Range) []daterange.Range {
	return occurrencesBetween(d.Range, d.RepeatYearly, window)
}

// occurrencesBetween expands r, re-anchored on every year when yearly is set,
// into the occurrences overlapping window.
func occurrencesBetween(r daterange.Range, yearly bool, window daterange.Range) []daterange.Range {
	if !r.Valid() || !window.Valid() {
		return nil
	}
	if yearly {
		return daterange.YearlyOccurrencesBetween(r.Start, r.End, window)
	}
	if r.Overlaps(window) {
		return []daterange.Range{r}
	}
	return nil
}

// ActiveOn reports whether day falls inside any occurrence of d.
func (d DayOff) ActiveOn(day daterange.Date) bool {
	return len(d.OccurrencesBetween(daterange.Range{Start: day, End: day})) > 0
}

// Upcoming is one concrete occurrence of a day off.
type Upcoming struct {
	DayOff     DayOff          `json:"day_off"`
	Occurrence daterange.Range `json:"occurrence"`
}

// UpcomingDaysOff returns the next occurrence of every day off that still has
// one, ordered by occurrence start then title.
func UpcomingDaysOff(list []DayOff, from daterange.Date) []Upcoming {
	out := make([]Upcoming, 0, len(list))
	for _, d := range list {
		occ, ok := d.NextOccurrence(from)
		if !ok {
			continue
		}
		out = append(out, Upcoming{DayOff: d, Occurrence: occ})
	}
	sortUpcoming(out)
	return out
}

// Calendar expands every day off into its occurrences within window.
func Calendar(list []DayOff, window daterange.Range) []Upcoming {
	var out []Upcoming
	for _, d := range list {
		for _, occ := range d.OccurrencesBetween(window) {
			out = append(out, Upcoming{DayOff: d, Occurrence: occ})
		}
	}
	sortUpcoming(out)
	return out
}

func sortUpcoming(list []Upcoming) {
	sort.SliceStable(list, func(i, j int) bool {
		if c := daterange.Compare(list[i].Occurrence.Start, list[j].Occurrence.Start); c != 0 {
			return c < 0
		}
		return list[i].DayOff.Title < list[j].DayOff.Title
	})
}

func DaysOffFromRecords(records []DayOffRecord, opts MapOptions) []DayOff {
	out := make([]DayOff, 0, len(records))
	for _, rec := range records {
		r, ok := daterange.NormalizeRange(rec.StartDate, rec.EndDate)
		if !ok {
			opts.Diagnostics.Add(diag.KindDayOff, rec.StartDate+".."+rec.EndDate, "invalid day-off date range")
			continue
		}
		d := DayOff{
			Title:        strings.TrimSpace(rec.Name),
			Note:         trimmedNote(rec.Note),
			Range:        r,
			RepeatYearly: rec.RepeatYearly != 0,
		}
		if rec.ID != nil {
			d.ID = ptr(*rec.ID)
		}
		out = append(out, d)
	}
	return out
}

func DaysOffToRecords(list []DayOff, opts MapOptions) []DayOffRecord {
	out := make([]DayOffRecord, 0, len(list))
	for _, d := range list {
		if !d.Range.Valid() {
			opts.Diagnostics.Add(diag.KindDayOff, d.Title, "invalid day-off date range")
			continue
		}
		rec := DayOffRecord{
			Name:      strings.TrimSpace(d.Title),
			Note:      trimmedNote(d.Note),
			StartDate: d.Range.Start.String(),
			EndDate:   d.Range.End.String(),
		}
		if d.RepeatYearly {
			rec.RepeatYearly = 1
		}
		if d.ID != nil {
			rec.ID = ptr(*d.ID)
		}
		out = append(out, rec)
	}
	return out
}

func trimmedNote(note *string) *string {
	if note == nil {
		return nil
	}
	v := strings.TrimSpace(*note)
	if v == "" {
		return nil
	}
	return &v
}
