// Package calendar resolves calendar-day keys and the quick date ranges
// used to filter the ledger. All boundaries are computed in the location
// of the time value passed in.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DayLayout is the sortable calendar-day key format stored on every record.
const DayLayout = "2006-01-02"

var ErrUnknownRange = errors.New("unknown date range")

// Selector names a quick range.
type Selector string

const (
	Today  Selector = "today"
	Week   Selector = "week"
	Month  Selector = "month"
	Year   Selector = "year"
	All    Selector = "all"
	Custom Selector = "custom"
)

// Range is an inclusive window. A nil bound is unbounded on that side.
type Range struct {
	From *time.Time
	To   *time.Time
}

func (r Range) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

func (r Range) Unbounded() bool {
	return r.From == nil && r.To == nil
}

// TodayKey returns the calendar day of now as a DayLayout key.
func TodayKey(now time.Time) string {
	return StartOfDay(now).Format(DayLayout)
}

// ParseDay parses a DayLayout key at midnight in loc.
func ParseDay(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation(DayLayout, strings.TrimSpace(key), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid calendar day %q: %w", key, err)
	}
	return day, nil
}

func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay is 23:59:59.999 on the same calendar day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// StartOfWeek returns the Monday of t's week; a Sunday belongs to the week
// that started six days earlier.
func StartOfWeek(t time.Time) time.Time {
	offset := int(t.Weekday()) - int(time.Monday)
	if t.Weekday() == time.Sunday {
		offset = 6
	}
	return StartOfDay(t).AddDate(0, 0, -offset)
}

func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func StartOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}

// Resolve turns a selector into concrete bounds relative to now. Relative
// ranges end at the end of today. Custom ranges take from and to as given,
// widened to whole days; either may be nil.
func Resolve(now time.Time, selector Selector, from, to *time.Time) (Range, error) {
	end := EndOfDay(now)
	var start time.Time
	switch Selector(strings.ToLower(strings.TrimSpace(string(selector)))) {
	case Today:
		start = StartOfDay(now)
	case Week:
		start = StartOfWeek(now)
	case Month:
		start = StartOfMonth(now)
	case Year:
		start = StartOfYear(now)
	case All, "":
		return Range{}, nil
	case Custom:
		var r Range
		if from != nil {
			f := StartOfDay(*from)
			r.From = &f
		}
		if to != nil {
			t := EndOfDay(*to)
			r.To = &t
		}
		return r, nil
	default:
		return Range{}, fmt.Errorf("%w: %s", ErrUnknownRange, selector)
	}
	return Range{From: &start, To: &end}, nil
}
