// Package schedule maps persisted availability records to the editor view
// models and back. Every mapper is a pure function: inputs are never mutated and
// invalid values are filtered out rather than reported as errors.
package schedule

import (
	"sort"

	"github.com/md-rashed-zaman/availability/services/availability-service/internal/diag"
)

// WorkdayInterval is one tagged interval of a persisted workday set.
type WorkdayInterval struct {
	ID        *int64 `json:"id,omitempty"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsBreak   int    `json:"is_break"`
}

// WorkdaySet is one persisted (weekday, combo) record.
type WorkdaySet struct {
	ID        *int64            `json:"id,omitempty"`
	WeekDayID int               `json:"week_day_id"`
	Services  []int64           `json:"services"`
	Locations []int64           `json:"locations"`
	Label     *string           `json:"label"`
	Sort      int               `json:"sort"`
	Intervals []WorkdayInterval `json:"intervals"`
}

// SpecialDayRow is one persisted special-day row. Several rows sharing dates,
// services and locations form one logical override.
type SpecialDayRow struct {
	ID        *int64  `json:"id,omitempty"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Services  []int64 `json:"services"`
	Locations []int64 `json:"locations"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
	Repeat    *bool   `json:"repeat,omitempty"`
}

// DayOffRecord is the persisted form of a named absence.
type DayOffRecord struct {
	ID           *int64  `json:"id,omitempty"`
	Name         string  `json:"name"`
	Note         *string `json:"note,omitempty"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	RepeatYearly int     `json:"repeat_yearly"`
}

// MapOptions carries the explicit configuration the mappers need.
type MapOptions struct {
	Labels      Labels
	Diagnostics *diag.Report
}

// SortedIDs returns a sorted copy of ids with duplicates removed. A nil or empty
// input yields an empty, non-nil slice so JSON renders [] instead of null.
func SortedIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func ptr[T any](v T) *T {
	return &v
}
