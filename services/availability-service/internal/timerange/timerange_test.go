package timerange

import (
	"testing"

	"github.com/md-rashed-zaman/availability/services/availability-service/internal/diag"
)

func TestToMinutes(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"00:00", 0, true},
		{"09:30", 570, true},
		{"23:59", 1439, true},
		{"09:30:45", 570, true},
		{" 08:15 ", 495, true},
		{"24:00", 0, false},
		{"12:60", 0, false},
		{"9:30", 0, false},
		{"09:30:", 0, false},
		{"09:30:61", 0, false},
		{"0930", 0, false},
		{"", 0, false},
		{"ab:cd", 0, false},
	}
	for _, tc := range cases {
		got, ok := ToMinutes(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ToMinutes(%q) = %d,%v; want %d,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNormalize(t *testing.T) {
	iv, ok := Normalize(" 09:00 ", "17:30:00")
	if !ok {
		t.Fatal("expected valid interval")
	}
	if iv.Start != "09:00" || iv.End != "17:30" {
		t.Fatalf("unexpected interval %v", iv)
	}

	if _, ok := Normalize("10:00", "10:00"); ok {
		t.Fatal("equal bounds must be rejected")
	}
	if _, ok := Normalize("11:00", "10:00"); ok {
		t.Fatal("inverted bounds must be rejected")
	}
	if _, ok := Normalize("", "10:00"); ok {
		t.Fatal("empty start must be rejected")
	}
	if _, ok := Normalize("10:00", "later"); ok {
		t.Fatal("garbage end must be rejected")
	}
}

func TestNormalizeKeepsValidPairs(t *testing.T) {
	for start := 0; start < minutesPerDay; start += 37 {
		for end := start + 1; end < minutesPerDay; end += 53 {
			s, e := FormatMinutes(start), FormatMinutes(end)
			iv, ok := Normalize(s, e)
			if !ok || iv.Start != s || iv.End != e {
				t.Fatalf("Normalize(%s,%s) = %v,%v", s, e, iv, ok)
			}
		}
	}
}

func TestSanitizeListReportsRejected(t *testing.T) {
	var rep diag.Report
	in := []Interval{
		{Start: "09:00", End: "12:00"},
		{Start: "13:00", End: "13:00"},
		{Start: "x", End: "14:00"},
		{Start: "14:00:10", End: "18:00:59"},
	}
	got := SanitizeList(in, &rep)
	if len(got) != 2 {
		t.Fatalf("expected 2 intervals, got %d", len(got))
	}
	if got[1].Start != "14:00" || got[1].End != "18:00" {
		t.Fatalf("expected seconds to be truncated, got %v", got[1])
	}
	if rep.Len() != 2 {
		t.Fatalf("expected 2 rejections, got %d", rep.Len())
	}

	// Nil report is allowed and must not change the output.
	again := SanitizeList(in, nil)
	if len(again) != len(got) {
		t.Fatalf("nil report changed output: %v vs %v", again, got)
	}
}

func TestOverlapsHalfOpen(t *testing.T) {
	a := Interval{Start: "09:00", End: "10:00"}
	b := Interval{Start: "10:00", End: "11:00"}
	if Overlaps(a, b) || Overlaps(b, a) {
		t.Fatal("touching intervals must not overlap")
	}
	c := Interval{Start: "09:59", End: "10:30"}
	if !Overlaps(a, c) || !Overlaps(c, a) {
		t.Fatal("expected overlap")
	}
	if Overlaps(a, Interval{Start: "bad", End: "10:30"}) {
		t.Fatal("invalid interval never overlaps")
	}
}

func TestContains(t *testing.T) {
	outer := Interval{Start: "08:00", End: "18:00"}
	if !Contains(outer, Interval{Start: "08:00", End: "18:00"}) {
		t.Fatal("interval contains itself")
	}
	if !Contains(outer, Interval{Start: "12:00", End: "13:00"}) {
		t.Fatal("expected containment")
	}
	if Contains(outer, Interval{Start: "07:59", End: "09:00"}) {
		t.Fatal("start before outer start")
	}
	if Contains(outer, Interval{Start: "17:00", End: "18:01"}) {
		t.Fatal("end after outer end")
	}
}

func TestMergeOverlappingAndGaps(t *testing.T) {
	in := []Interval{
		{Start: "13:00", End: "17:00"},
		{Start: "09:00", End: "12:00"},
		{Start: "11:00", End: "12:30"},
		{Start: "17:00", End: "18:00"},
	}
	SortByStart(in)
	merged, folded := MergeOverlapping(in)
	if folded != 1 {
		t.Fatalf("expected 1 folded interval, got %d", folded)
	}
	if len(merged) != 3 || merged[0].End != "12:30" {
		t.Fatalf("unexpected merge result %v", merged)
	}
	gaps := Gaps(merged)
	if len(gaps) != 1 || gaps[0].Start != "12:30" || gaps[0].End != "13:00" {
		t.Fatalf("unexpected gaps %v", gaps)
	}
}
