// Package diag collects raw inputs that the schedule primitives rejected.
//
// Rejection never changes what the primitives accept; a Report only makes the
// silently dropped values visible to callers that ask for them. A nil *Report
// is valid everywhere and discards everything.
package diag

import "fmt"

// Kind names the type of value that was rejected.
type Kind string

const (
	KindInterval   Kind = "interval"
	KindDateRange  Kind = "date_range"
	KindWeekday    Kind = "weekday"
	KindCombo      Kind = "combo"
	KindOverride   Kind = "override"
	KindDayOff     Kind = "day_off"
	KindOverlapFix Kind = "overlap_merged"
)

type Rejection struct {
	Kind   Kind   `json:"kind"`
	Raw    string `json:"raw"`
	Reason string `json:"reason"`
}

func (r Rejection) String() string {
	return fmt.Sprintf("%s %q: %s", r.Kind, r.Raw, r.Reason)
}

type Report struct {
	items []Rejection
}

func (r *Report) Add(kind Kind, raw, reason string) {
	if r == nil {
		return
	}
	r.items = append(r.items, Rejection{Kind: kind, Raw: raw, Reason: reason})
}

func (r *Report) Len() int {
	if r == nil {
		return 0
	}
	return len(r.items)
}

// Items returns a copy of the collected rejections in insertion order.
func (r *Report) Items() []Rejection {
	if r == nil || len(r.items) == 0 {
		return nil
	}
	out := make([]Rejection, len(r.items))
	copy(out, r.items)
	return out
}

// CountByKind is used for metrics labels.
func (r *Report) CountByKind() map[Kind]int {
	out := map[Kind]int{}
	if r == nil {
		return out
	}
	for _, it := range r.items {
		out[it.Kind]++
	}
	return out
}
