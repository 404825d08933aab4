package schedule

import (
	"fmt"
	"sort"
	"strings"

	"github.com/md-rashed-zaman/availability/services/availability-service/internal/diag"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/timerange"
)

// WeekdayKeys lists the bucket keys in persistence order; week_day_id is the
// 1-based index into this slice.
var WeekdayKeys = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// Labels maps weekday keys to display labels.
type Labels map[string]string

var DefaultLabels = Labels{
	"mon": "Monday",
	"tue": "Tuesday",
	"wed": "Wednesday",
	"thu": "Thursday",
	"fri": "Friday",
	"sat": "Saturday",
	"sun": "Sunday",
}

func (l Labels) label(key string) string {
	if v := strings.TrimSpace(l[key]); v != "" {
		return v
	}
	return DefaultLabels[key]
}

// WeekdayID returns the 1..7 id of a bucket key.
func WeekdayID(key string) (int, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for i, k := range WeekdayKeys {
		if k == key {
			return i + 1, true
		}
	}
	return 0, false
}

// Combo is a block of work and break intervals that applies to a set of
// services and locations on one weekday.
type Combo struct {
	ID          *int64               `json:"id,omitempty"`
	ServiceIDs  []int64              `json:"service_ids"`
	LocationIDs []int64              `json:"location_ids"`
	Label       string               `json:"label,omitempty"`
	Work        []timerange.Interval `json:"work"`
	Breaks      []timerange.Interval `json:"breaks"`
	SortIndex   int                  `json:"sort_index"`
}

type DayBucket struct {
	Key    string  `json:"key"`
	Label  string  `json:"label"`
	Combos []Combo `json:"combos"`
}

// WeeklyAvailability always holds the seven buckets mon..sun in order when built
// by this package.
type WeeklyAvailability struct {
	Days []DayBucket `json:"days"`
}

func NewWeeklyAvailability(labels Labels) WeeklyAvailability {
	days := make([]DayBucket, len(WeekdayKeys))
	for i, key := range WeekdayKeys {
		days[i] = DayBucket{Key: key, Label: labels.label(key), Combos: []Combo{}}
	}
	return WeeklyAvailability{Days: days}
}

// Day returns the bucket for key.
func (w WeeklyAvailability) Day(key string) (DayBucket, bool) {
	for _, d := range w.Days {
		if d.Key == key {
			return d, true
		}
	}
	return DayBucket{}, false
}

type comboKey struct {
	weekday int
	id      int64
	// seq separates records without an id; each of them is its own combo.
	seq int
}

type comboGroup struct {
	weekday int
	first   int
	record  WorkdaySet
	raw     []WorkdayInterval
}

// WeeklyFromRecords groups persisted workday sets by (weekday, combo id), filters
// their intervals through timerange.Normalize and splits them into work and
// breaks. Combos are ordered by sort value, then id (records without an id
// last), then input order.
func WeeklyFromRecords(records []WorkdaySet, opts MapOptions) WeeklyAvailability {
	groups := map[comboKey]*comboGroup{}
	var order []comboKey
	for i, rec := range records {
		if rec.WeekDayID < 1 || rec.WeekDayID > len(WeekdayKeys) {
			opts.Diagnostics.Add(diag.KindWeekday, fmt.Sprint(rec.WeekDayID), "week_day_id must be 1..7")
			continue
		}
		key := comboKey{weekday: rec.WeekDayID, seq: i}
		if rec.ID != nil {
			key = comboKey{weekday: rec.WeekDayID, id: *rec.ID, seq: -1}
		}
		g, ok := groups[key]
		if !ok {
			g = &comboGroup{weekday: rec.WeekDayID, first: i, record: rec}
			groups[key] = g
			order = append(order, key)
		}
		g.raw = append(g.raw, rec.Intervals...)
	}

	vm := NewWeeklyAvailability(opts.Labels)
	perDay := make([][]*comboGroup, len(WeekdayKeys))
	for _, key := range order {
		g := groups[key]
		perDay[g.weekday-1] = append(perDay[g.weekday-1], g)
	}
	for day, list := range perDay {
		sort.SliceStable(list, func(i, j int) bool {
			a, b := list[i].record, list[j].record
			if a.Sort != b.Sort {
				return a.Sort < b.Sort
			}
			switch {
			case a.ID != nil && b.ID != nil && *a.ID != *b.ID:
				return *a.ID < *b.ID
			case a.ID != nil && b.ID == nil:
				return true
			case a.ID == nil && b.ID != nil:
				return false
			}
			return list[i].first < list[j].first
		})
		combos := make([]Combo, 0, len(list))
		for _, g := range list {
			combos = append(combos, comboFromGroup(g, opts.Diagnostics))
		}
		vm.Days[day].Combos = combos
	}
	return vm
}

func comboFromGroup(g *comboGroup, rep *diag.Report) Combo {
	c := Combo{
		ServiceIDs:  SortedIDs(g.record.Services),
		LocationIDs: SortedIDs(g.record.Locations),
		Work:        []timerange.Interval{},
		Breaks:      []timerange.Interval{},
		SortIndex:   g.record.Sort,
	}
	if g.record.ID != nil {
		c.ID = ptr(*g.record.ID)
	}
	if g.record.Label != nil {
		c.Label = strings.TrimSpace(*g.record.Label)
	}
	for _, raw := range g.raw {
		iv, ok := timerange.Normalize(raw.StartTime, raw.EndTime)
		if !ok {
			rep.Add(diag.KindInterval, raw.StartTime+"-"+raw.EndTime, "invalid workday interval")
			continue
		}
		if raw.IsBreak != 0 {
			c.Breaks = append(c.Breaks, iv)
		} else {
			c.Work = append(c.Work, iv)
		}
	}
	return c
}

// WeeklyToRecords flattens every combo into one workday set with tagged
// intervals. Combos without a single valid interval are not persisted.
func WeeklyToRecords(vm WeeklyAvailability, opts MapOptions) []WorkdaySet {
	var out []WorkdaySet
	seen := map[int]bool{}
	for _, day := range vm.Days {
		weekday, ok := WeekdayID(day.Key)
		if !ok {
			opts.Diagnostics.Add(diag.KindWeekday, day.Key, "unknown weekday key")
			continue
		}
		if seen[weekday] {
			opts.Diagnostics.Add(diag.KindWeekday, day.Key, "duplicate weekday bucket")
			continue
		}
		seen[weekday] = true
		for _, c := range day.Combos {
			work := timerange.SanitizeList(c.Work, opts.Diagnostics)
			breaks := timerange.SanitizeList(c.Breaks, opts.Diagnostics)
			if len(work) == 0 && len(breaks) == 0 {
				opts.Diagnostics.Add(diag.KindCombo, day.Key, "combo has no valid intervals")
				continue
			}
			intervals := make([]WorkdayInterval, 0, len(work)+len(breaks))
			for _, iv := range work {
				intervals = append(intervals, WorkdayInterval{StartTime: iv.Start, EndTime: iv.End})
			}
			for _, iv := range breaks {
				intervals = append(intervals, WorkdayInterval{StartTime: iv.Start, EndTime: iv.End, IsBreak: 1})
			}
			rec := WorkdaySet{
				WeekDayID: weekday,
				Services:  SortedIDs(c.ServiceIDs),
				Locations: SortedIDs(c.LocationIDs),
				Sort:      c.SortIndex,
				Intervals: intervals,
			}
			if c.ID != nil {
				rec.ID = ptr(*c.ID)
			}
			if label := strings.TrimSpace(c.Label); label != "" {
				rec.Label = ptr(label)
			}
			out = append(out, rec)
		}
	}
	return out
}
