// Copyright (c) 2025 BVK Chaitanya

package timerange

import (
	"testing"
	"time"
)

func TestInRange(t *testing.T) {
	begin := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	r := &Range{Begin: begin, End: begin.Add(time.Hour)}

	if !r.InRange(begin) {
		t.Fatalf("want begin to be in range")
	}
	if r.InRange(begin.Add(time.Hour)) {
		t.Fatalf("want end to be out of range")
	}
	if r.InRange(begin.Add(-time.Nanosecond)) {
		t.Fatalf("want time before begin to be out of range")
	}

	var zero *Range
	if !zero.InRange(begin) || !(&Range{}).InRange(time.Time{}) {
		t.Fatalf("want zero range to include everything")
	}
	if open := (&Range{Begin: begin}); !open.InRange(begin.AddDate(10, 0, 0)) {
		t.Fatalf("want open ended range to include future times")
	}
}

func TestParse(t *testing.T) {
	// Wednesday.
	now := time.Date(2025, 3, 5, 15, 30, 0, 0, time.UTC)
	day := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		period     string
		begin, end time.Time
	}{
		{"today", day, day.AddDate(0, 0, 1)},
		{"Yesterday", day.AddDate(0, 0, -1), day},
		{"this-week", day.AddDate(0, 0, -3), day.AddDate(0, 0, 4)},
		{"last-week", day.AddDate(0, 0, -10), day.AddDate(0, 0, -3)},
		{"90m", now.Add(-90 * time.Minute), now},
	}
	for _, tc := range testCases {
		r, err := Parse(tc.period, now)
		if err != nil {
			t.Fatalf("%s: %v", tc.period, err)
		}
		if !r.Begin.Equal(tc.begin) || !r.End.Equal(tc.end) {
			t.Fatalf("%s: want [%v, %v), got %s", tc.period, tc.begin, tc.end, r)
		}
	}

	if r, err := Parse("", now); err != nil || !r.IsZero() {
		t.Fatalf("want zero range for empty period")
	}
	for _, p := range []string{"fortnight", "-1h", "0s"} {
		if _, err := Parse(p, now); err == nil {
			t.Fatalf("want error for period %q", p)
		}
	}
}
