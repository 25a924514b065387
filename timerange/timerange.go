// Copyright (c) 2024 BVK Chaitanya

// Package timerange selects opportunities by their detection time.
package timerange

import (
	"fmt"
	"strings"
	"time"
)

// Range is a half-open time interval. Zero Begin or End leaves that side
// unbounded.
type Range struct {
	Begin, End time.Time
}

func (r *Range) IsZero() bool {
	return r == nil || (r.Begin.IsZero() && r.End.IsZero())
}

func (r *Range) InRange(v time.Time) bool {
	if r.IsZero() {
		return true
	}
	if !r.Begin.IsZero() && v.Before(r.Begin) {
		return false
	}
	if !r.End.IsZero() && !v.Before(r.End) {
		return false
	}
	return true
}

func (r *Range) String() string {
	if r.IsZero() {
		return "all time"
	}
	format := func(v time.Time) string {
		if v.IsZero() {
			return "*"
		}
		return v.Format(time.DateTime)
	}
	return fmt.Sprintf("[%s, %s)", format(r.Begin), format(r.End))
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Today returns the calendar day of now.
func Today(now time.Time) *Range {
	begin := midnight(now)
	return &Range{Begin: begin, End: begin.AddDate(0, 0, 1)}
}

func Yesterday(now time.Time) *Range {
	end := midnight(now)
	return &Range{Begin: end.AddDate(0, 0, -1), End: end}
}

// ThisWeek returns the week of now, starting on Sunday.
func ThisWeek(now time.Time) *Range {
	begin := midnight(now).AddDate(0, 0, -int(now.Weekday()))
	return &Range{Begin: begin, End: begin.AddDate(0, 0, 7)}
}

func LastWeek(now time.Time) *Range {
	end := midnight(now).AddDate(0, 0, -int(now.Weekday()))
	return &Range{Begin: end.AddDate(0, 0, -7), End: end}
}

// Last returns the duration d till now.
func Last(now time.Time, d time.Duration) *Range {
	return &Range{Begin: now.Add(-d), End: now}
}

// Parse returns the range for a period relative to now. Period is one of
// "today", "yesterday", "this-week", "last-week" or a duration like "90m",
// which selects that much time till now. Empty period selects all time.
func Parse(period string, now time.Time) (*Range, error) {
	switch p := strings.ToLower(strings.TrimSpace(period)); p {
	case "", "all":
		return &Range{}, nil
	case "today":
		return Today(now), nil
	case "yesterday":
		return Yesterday(now), nil
	case "this-week":
		return ThisWeek(now), nil
	case "last-week":
		return LastWeek(now), nil
	default:
		d, err := time.ParseDuration(p)
		if err != nil {
			return nil, fmt.Errorf("invalid period %q: %w", period, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("period duration %s must be positive", d)
		}
		return Last(now, d), nil
	}
}
