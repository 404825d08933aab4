package timerange

import (
	"fmt"
	"sort"
	"strings"

	"github.com/md-rashed-zaman/availability/services/availability-service/internal/diag"
)

const minutesPerDay = 24 * 60

// Interval is a wall-clock range within one day. Bounds are kept as text so that
// raw editor input can be carried until it passes through Normalize; values
// produced by this package are always canonical HH:MM.
type Interval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (iv Interval) String() string {
	return iv.Start + "-" + iv.End
}

// Minutes returns both bounds as minutes since midnight. ok is false when either
// bound is unparseable or the interval is empty or inverted.
func (iv Interval) Minutes() (start, end int, ok bool) {
	start, okStart := ToMinutes(iv.Start)
	end, okEnd := ToMinutes(iv.End)
	if !okStart || !okEnd || start >= end {
		return 0, 0, false
	}
	return start, end, true
}

// ToMinutes parses "HH:MM" or "HH:MM:SS" (seconds are ignored) into minutes since
// midnight. Fields must be two digits. Anything else, including "", is invalid.
func ToMinutes(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 5 && len(s) != 8 {
		return 0, false
	}
	if s[2] != ':' {
		return 0, false
	}
	h, ok := twoDigits(s[0:2])
	if !ok || h > 23 {
		return 0, false
	}
	m, ok := twoDigits(s[3:5])
	if !ok || m > 59 {
		return 0, false
	}
	if len(s) == 8 {
		if s[5] != ':' {
			return 0, false
		}
		sec, ok := twoDigits(s[6:8])
		if !ok || sec > 59 {
			return 0, false
		}
	}
	return h*60 + m, true
}

// FormatMinutes renders minutes since midnight as HH:MM. Values outside a day are
// clamped to 00:00..23:59.
func FormatMinutes(m int) string {
	if m < 0 {
		m = 0
	}
	if m >= minutesPerDay {
		m = minutesPerDay - 1
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// Normalize is the only gate raw interval input passes before it is stored.
func Normalize(startRaw, endRaw string) (Interval, bool) {
	start, ok := ToMinutes(startRaw)
	if !ok {
		return Interval{}, false
	}
	end, ok := ToMinutes(endRaw)
	if !ok {
		return Interval{}, false
	}
	if start >= end {
		return Interval{}, false
	}
	return Interval{Start: FormatMinutes(start), End: FormatMinutes(end)}, true
}

// SanitizeList normalizes every interval and drops the invalid ones. Order of the
// surviving intervals is preserved.
func SanitizeList(in []Interval, rep *diag.Report) []Interval {
	out := make([]Interval, 0, len(in))
	for _, raw := range in {
		iv, ok := Normalize(raw.Start, raw.End)
		if !ok {
			rep.Add(diag.KindInterval, raw.String(), rejectReason(raw))
			continue
		}
		out = append(out, iv)
	}
	return out
}

func rejectReason(raw Interval) string {
	if _, ok := ToMinutes(raw.Start); !ok {
		return "start is not HH:MM"
	}
	if _, ok := ToMinutes(raw.End); !ok {
		return "end is not HH:MM"
	}
	return "start must be before end"
}

// Overlaps uses half-open semantics: touching endpoints do not overlap.
func Overlaps(a, b Interval) bool {
	as, ae, ok := a.Minutes()
	if !ok {
		return false
	}
	bs, be, ok := b.Minutes()
	if !ok {
		return false
	}
	return as < be && bs < ae
}

func Contains(outer, inner Interval) bool {
	outStart, outEnd, ok := outer.Minutes()
	if !ok {
		return false
	}
	inStart, inEnd, ok := inner.Minutes()
	if !ok {
		return false
	}
	return outStart <= inStart && inEnd <= outEnd
}

// SortByStart sorts valid intervals by start time. The sort is stable so equal
// starts keep their input order.
func SortByStart(in []Interval) {
	sort.SliceStable(in, func(i, j int) bool {
		si, _ := ToMinutes(in[i].Start)
		sj, _ := ToMinutes(in[j].Start)
		return si < sj
	})
}

// MergeOverlapping expects intervals sorted by start and folds every interval that
// overlaps its predecessor into it. Touching intervals stay separate. The second
// return value counts how many intervals were folded.
func MergeOverlapping(sorted []Interval) ([]Interval, int) {
	if len(sorted) < 2 {
		return sorted, 0
	}
	merged := make([]Interval, 0, len(sorted))
	folded := 0
	for _, cur := range sorted {
		if len(merged) == 0 {
			merged = append(merged, cur)
			continue
		}
		last := &merged[len(merged)-1]
		if !Overlaps(*last, cur) {
			merged = append(merged, cur)
			continue
		}
		folded++
		_, lastEnd, _ := last.Minutes()
		_, curEnd, _ := cur.Minutes()
		if curEnd > lastEnd {
			last.End = cur.End
		}
	}
	return merged, folded
}

// Gaps returns the holes between consecutive intervals of a start-sorted list,
// i.e. {work[i].End, work[i+1].Start} wherever the former is strictly earlier.
func Gaps(sorted []Interval) []Interval {
	var out []Interval
	for i := 0; i+1 < len(sorted); i++ {
		_, end, ok := sorted[i].Minutes()
		if !ok {
			continue
		}
		next, _, ok := sorted[i+1].Minutes()
		if !ok {
			continue
		}
		if end < next {
			out = append(out, Interval{Start: FormatMinutes(end), End: FormatMinutes(next)})
		}
	}
	return out
}

func twoDigits(s string) (int, bool) {
	if len(s) != 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}
