package schedule

import (
	"sort"

	"github.com/md-rashed-zaman/availability/services/availability-service/internal/daterange"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/diag"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/timerange"
)

// Override replaces the weekly model for a date range. Breaks are derived from
// the gaps between consecutive work intervals and are never stored.
//
// RowIDs keeps the ids of the persisted rows the override was built from, in
// work-interval order, so that saving an unchanged override re-emits the same
// row ids.
type Override struct {
	ID          *int64               `json:"id,omitempty"`
	RowIDs      []int64              `json:"row_ids,omitempty"`
	DateRange   daterange.Range      `json:"date_range"`
	ServiceIDs  []int64              `json:"service_ids"`
	LocationIDs []int64              `json:"location_ids"`
	Work        []timerange.Interval `json:"work"`
	Breaks      []timerange.Interval `json:"breaks"`
	Repeat      bool                 `json:"repeat"`
}

// AllDay reports whether the override has no timed sub-blocks.
func (o Override) AllDay() bool {
	return len(o.Work) == 0
}

// OccurrencesBetween lists the concrete date ranges of o overlapping window.
// A repeating override recurs every year on the same month and day.
func (o Override) OccurrencesBetween(window daterange.Range) []daterange.Range {
	return occurrencesBetween(o.DateRange, o.Repeat, window)
}

// AppliesOn reports whether day falls inside any occurrence of o.
func (o Override) AppliesOn(day daterange.Date) bool {
	return len(o.OccurrencesBetween(daterange.Range{Start: day, End: day})) > 0
}

// OverrideOccurrence is one concrete occurrence of a special day.
type OverrideOccurrence struct {
	Override   Override        `json:"override"`
	Occurrence daterange.Range `json:"occurrence"`
}

// OverridesOn returns the overrides that apply on day, each with the
// occurrence covering it.
func OverridesOn(list []Override, day daterange.Date) []OverrideOccurrence {
	return OverrideCalendar(list, daterange.Range{Start: day, End: day})
}

// OverrideCalendar expands every override into its occurrences within window,
// ordered by occurrence start.
func OverrideCalendar(list []Override, window daterange.Range) []OverrideOccurrence {
	out := []OverrideOccurrence{}
	for _, o := range list {
		for _, occ := range o.OccurrencesBetween(window) {
			out = append(out, OverrideOccurrence{Override: o, Occurrence: occ})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Occurrence.Start.Before(out[j].Occurrence.Start)
	})
	return out
}

// GroupKey identifies the rows that make up one override. Id lists are sorted
// and de-duplicated before comparison.
type GroupKey struct {
	Range     daterange.Range
	Services  []int64
	Locations []int64
}

func (k GroupKey) Equal(o GroupKey) bool {
	return k.Range == o.Range && equalIDs(k.Services, o.Services) && equalIDs(k.Locations, o.Locations)
}

type rowGroup struct {
	key    GroupKey
	repeat bool
	ids    []int64
	work   []workRow
}

type workRow struct {
	iv timerange.Interval
	id *int64
}

// OverridesFromRows ungroups persisted special-day rows into overrides. Work
// intervals of a group are sorted by start (stable, so equal starts keep input
// order); overlapping ones are merged before breaks are derived from the gaps.
// A group without valid work is kept as an all-day override.
func OverridesFromRows(rows []SpecialDayRow, opts MapOptions) []Override {
	byRange := map[daterange.Range][]*rowGroup{}
	var groups []*rowGroup
	for _, row := range rows {
		r, ok := daterange.NormalizeRange(row.StartDate, row.EndDate)
		if !ok {
			opts.Diagnostics.Add(diag.KindDateRange, row.StartDate+".."+row.EndDate, "invalid special-day date range")
			continue
		}
		key := GroupKey{Range: r, Services: SortedIDs(row.Services), Locations: SortedIDs(row.Locations)}
		var g *rowGroup
		for _, cand := range byRange[r] {
			if cand.key.Equal(key) {
				g = cand
				break
			}
		}
		repeat := row.Repeat != nil && *row.Repeat
		if g == nil {
			g = &rowGroup{key: key, repeat: repeat}
			byRange[r] = append(byRange[r], g)
			groups = append(groups, g)
		} else if repeat != g.repeat {
			opts.Diagnostics.Add(diag.KindOverride, r.String(), "rows of one special day disagree on repeat; first row wins")
		}
		if row.StartTime == nil && row.EndTime == nil {
			if row.ID != nil {
				g.ids = append(g.ids, *row.ID)
			}
			continue
		}
		iv, ok := timerange.Normalize(deref(row.StartTime), deref(row.EndTime))
		if !ok {
			opts.Diagnostics.Add(diag.KindInterval, deref(row.StartTime)+"-"+deref(row.EndTime), "invalid special-day interval")
			if row.ID != nil {
				g.ids = append(g.ids, *row.ID)
			}
			continue
		}
		g.work = append(g.work, workRow{iv: iv, id: row.ID})
	}

	out := make([]Override, 0, len(groups))
	for _, g := range groups {
		out = append(out, overrideFromGroup(g, opts.Diagnostics))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := daterange.Compare(out[i].DateRange.Start, out[j].DateRange.Start); c != 0 {
			return c < 0
		}
		return out[i].DateRange.End.Before(out[j].DateRange.End)
	})
	return out
}

func overrideFromGroup(g *rowGroup, rep *diag.Report) Override {
	sort.SliceStable(g.work, func(i, j int) bool {
		a, _ := timerange.ToMinutes(g.work[i].iv.Start)
		b, _ := timerange.ToMinutes(g.work[j].iv.Start)
		return a < b
	})
	work := make([]timerange.Interval, 0, len(g.work))
	var rowIDs []int64
	for _, w := range g.work {
		work = append(work, w.iv)
		if w.id != nil {
			rowIDs = append(rowIDs, *w.id)
		}
	}
	// Rows that carried no usable time keep their ids at the end so they are
	// reused before new ids are needed.
	rowIDs = append(rowIDs, g.ids...)

	merged, folded := timerange.MergeOverlapping(work)
	if folded > 0 {
		rep.Add(diag.KindOverlapFix, g.key.Range.String(), "overlapping special-day intervals were merged")
	}

	o := Override{
		RowIDs:      rowIDs,
		DateRange:   g.key.Range,
		ServiceIDs:  g.key.Services,
		LocationIDs: g.key.Locations,
		Work:        merged,
		Breaks:      timerange.Gaps(merged),
		Repeat:      g.repeat,
	}
	if o.Breaks == nil {
		o.Breaks = []timerange.Interval{}
	}
	if len(rowIDs) > 0 {
		o.ID = ptr(rowIDs[0])
	}
	return o
}

// OverridesToRows flattens overrides into one row per work interval. An override
// without valid work becomes a single row without times, the all-day marker.
// Breaks on the input are ignored; they are always derived on the way back.
func OverridesToRows(overrides []Override, opts MapOptions) []SpecialDayRow {
	var out []SpecialDayRow
	for _, o := range overrides {
		if !o.DateRange.Valid() {
			opts.Diagnostics.Add(diag.KindOverride, o.DateRange.String(), "invalid special-day date range")
			continue
		}
		work := timerange.SanitizeList(o.Work, opts.Diagnostics)
		timerange.SortByStart(work)
		work, folded := timerange.MergeOverlapping(work)
		if folded > 0 {
			opts.Diagnostics.Add(diag.KindOverlapFix, o.DateRange.String(), "overlapping special-day intervals were merged")
		}

		ids := o.RowIDs
		if len(ids) == 0 && o.ID != nil {
			ids = []int64{*o.ID}
		}
		base := SpecialDayRow{
			StartDate: o.DateRange.Start.String(),
			EndDate:   o.DateRange.End.String(),
			Services:  SortedIDs(o.ServiceIDs),
			Locations: SortedIDs(o.LocationIDs),
		}
		if o.Repeat {
			base.Repeat = ptr(true)
		}
		if len(work) == 0 {
			row := base
			if len(ids) > 0 {
				row.ID = ptr(ids[0])
			}
			out = append(out, row)
			continue
		}
		for i, iv := range work {
			row := base
			row.Services = SortedIDs(o.ServiceIDs)
			row.Locations = SortedIDs(o.LocationIDs)
			row.StartTime = ptr(iv.Start)
			row.EndTime = ptr(iv.End)
			if i < len(ids) {
				row.ID = ptr(ids[i])
			}
			out = append(out, row)
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
