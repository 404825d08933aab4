package syncdiff

import (
	"cmp"
	"slices"
	"strings"

	"github.com/md-rashed-zaman/availability/services/availability-service/internal/daterange"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/schedule"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/timerange"
)

type CanonicalInterval struct {
	Break bool
	Start string
	End   string
}

// CanonicalWorkdaySet is a workday set stripped of storage noise. Interval ids
// are not part of it: two sets with the same content are equal even when their
// intervals were stored under different ids.
type CanonicalWorkdaySet struct {
	WeekDayID int
	Label     string
	Sort      int
	Services  []int64
	Locations []int64
	Intervals []CanonicalInterval
}

func CanonicalizeWorkdaySet(s schedule.WorkdaySet) CanonicalWorkdaySet {
	c := CanonicalWorkdaySet{
		WeekDayID: s.WeekDayID,
		Sort:      s.Sort,
		Services:  schedule.SortedIDs(s.Services),
		Locations: schedule.SortedIDs(s.Locations),
		Intervals: make([]CanonicalInterval, 0, len(s.Intervals)),
	}
	if s.Label != nil {
		c.Label = strings.TrimSpace(*s.Label)
	}
	for _, raw := range s.Intervals {
		iv, ok := timerange.Normalize(raw.StartTime, raw.EndTime)
		if !ok {
			continue
		}
		c.Intervals = append(c.Intervals, CanonicalInterval{Break: raw.IsBreak != 0, Start: iv.Start, End: iv.End})
	}
	// HH:MM strings order the same way as the minutes they encode.
	slices.SortFunc(c.Intervals, func(a, b CanonicalInterval) int {
		if a.Break != b.Break {
			if a.Break {
				return 1
			}
			return -1
		}
		if n := cmp.Compare(a.Start, b.Start); n != 0 {
			return n
		}
		return cmp.Compare(a.End, b.End)
	})
	return c
}

func (c CanonicalWorkdaySet) Equal(o CanonicalWorkdaySet) bool {
	return c.WeekDayID == o.WeekDayID &&
		c.Label == o.Label &&
		c.Sort == o.Sort &&
		slices.Equal(c.Services, o.Services) &&
		slices.Equal(c.Locations, o.Locations) &&
		slices.Equal(c.Intervals, o.Intervals)
}

// CanonicalSpecialDayRow compares special-day rows by calendar dates, id sets and
// normalized times. An invalid time pair canonicalizes to the all-day form.
type CanonicalSpecialDayRow struct {
	StartDate string
	EndDate   string
	Services  []int64
	Locations []int64
	Start     string
	End       string
	Repeat    bool
}

func CanonicalizeSpecialDayRow(r schedule.SpecialDayRow) CanonicalSpecialDayRow {
	c := CanonicalSpecialDayRow{
		StartDate: canonicalDate(r.StartDate),
		EndDate:   canonicalDate(r.EndDate),
		Services:  schedule.SortedIDs(r.Services),
		Locations: schedule.SortedIDs(r.Locations),
		Repeat:    r.Repeat != nil && *r.Repeat,
	}
	if r.StartTime != nil && r.EndTime != nil {
		if iv, ok := timerange.Normalize(*r.StartTime, *r.EndTime); ok {
			c.Start, c.End = iv.Start, iv.End
		}
	}
	return c
}

func (c CanonicalSpecialDayRow) Equal(o CanonicalSpecialDayRow) bool {
	return c.StartDate == o.StartDate &&
		c.EndDate == o.EndDate &&
		c.Start == o.Start &&
		c.End == o.End &&
		c.Repeat == o.Repeat &&
		slices.Equal(c.Services, o.Services) &&
		slices.Equal(c.Locations, o.Locations)
}

// CanonicalDayOff is comparable with ==.
type CanonicalDayOff struct {
	Name         string
	Note         string
	StartDate    string
	EndDate      string
	RepeatYearly bool
}

func CanonicalizeDayOff(r schedule.DayOffRecord) CanonicalDayOff {
	c := CanonicalDayOff{
		Name:         strings.TrimSpace(r.Name),
		StartDate:    canonicalDate(r.StartDate),
		EndDate:      canonicalDate(r.EndDate),
		RepeatYearly: r.RepeatYearly != 0,
	}
	if r.Note != nil {
		c.Note = strings.TrimSpace(*r.Note)
	}
	return c
}

// canonicalDate renders parseable dates as YYYY-MM-DD and keeps anything else
// trimmed, so garbage still compares equal to identical garbage.
func canonicalDate(s string) string {
	if d, ok := daterange.ParseStrict(s); ok {
		return d.String()
	}
	return strings.TrimSpace(s)
}

var WorkdaySets = Codec[schedule.WorkdaySet, CanonicalWorkdaySet]{
	ID:        func(s schedule.WorkdaySet) (int64, bool) { return idOf(s.ID) },
	Canonical: CanonicalizeWorkdaySet,
	Equal:     CanonicalWorkdaySet.Equal,
}

var SpecialDayRows = Codec[schedule.SpecialDayRow, CanonicalSpecialDayRow]{
	ID:        func(r schedule.SpecialDayRow) (int64, bool) { return idOf(r.ID) },
	Canonical: CanonicalizeSpecialDayRow,
	Equal:     CanonicalSpecialDayRow.Equal,
}

var DaysOff = Codec[schedule.DayOffRecord, CanonicalDayOff]{
	ID:        func(r schedule.DayOffRecord) (int64, bool) { return idOf(r.ID) },
	Canonical: CanonicalizeDayOff,
	Equal:     func(a, b CanonicalDayOff) bool { return a == b },
}

func idOf(id *int64) (int64, bool) {
	if id == nil {
		return 0, false
	}
	return *id, true
}
