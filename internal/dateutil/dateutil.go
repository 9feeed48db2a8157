// Package dateutil decodes the wildcard day numbers used for charter dates.
package dateutil

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/jinzhu/now"
)

// ErrInvalidDate is returned for values that are not a decodable date
var ErrInvalidDate = errors.New("invalid date")

// MaxContributingDates is the number of day bounds a charter date is expected
// to have at most: start and end of a point plus start and end of a range.
const MaxContributingDates = 4

// Range is an inclusive span of days
type Range struct {
	Start time.Time
	End   time.Time
}

// Decode decodes an 8-digit YYYYMMDD value. Month and day may be 00 or 99
// to mean "unknown"; an unknown month widens to the whole year and an
// unknown day to the whole month. Returns (nil, nil) for an unknown year.
func Decode(value string) (*Range, error) {
	if len(value) != 8 {
		return nil, fmt.Errorf("%w: %q is not 8 digits", ErrInvalidDate, value)
	}
	for _, c := range value {
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("%w: %q is not 8 digits", ErrInvalidDate, value)
		}
	}

	year, _ := strconv.Atoi(value[0:4])
	month, _ := strconv.Atoi(value[4:6])
	day, _ := strconv.Atoi(value[6:8])

	if year == 0 || year == 9999 {
		return nil, nil
	}

	if isWildcard(month) {
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return &Range{Start: start, End: dayOf(now.With(start).EndOfYear())}, nil
	}
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: %q has month %d", ErrInvalidDate, value, month)
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := dayOf(now.With(first).EndOfMonth())
	if isWildcard(day) {
		return &Range{Start: first, End: last}, nil
	}
	if day < 1 || day > last.Day() {
		return nil, fmt.Errorf("%w: %q has day %d", ErrInvalidDate, value, day)
	}

	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return &Range{Start: d, End: d}, nil
}

// Resolution is the union of a point date and a date range
type Resolution struct {
	Range *Range
	// Contributing is the number of day bounds the range was built from
	Contributing int
}

// TooMany reports whether more bounds contributed than a charter should have
func (r Resolution) TooMany() bool {
	return r.Contributing > MaxContributingDates
}

// Resolve unions the day bounds of the given ranges. Nil ranges are ignored.
// The point contributes start and end, the range its outer bounds.
func Resolve(point, from, to *Range) Resolution {
	var days []time.Time
	if point != nil {
		days = append(days, point.Start, point.End)
	}
	if from != nil {
		days = append(days, from.Start)
	}
	if to != nil {
		days = append(days, to.End)
	}
	return Union(days...)
}

// Union returns the [min, max] span of the given days
func Union(days ...time.Time) Resolution {
	if len(days) == 0 {
		return Resolution{}
	}
	sorted := append([]time.Time(nil), days...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	return Resolution{
		Range:        &Range{Start: sorted[0], End: sorted[len(sorted)-1]},
		Contributing: len(sorted),
	}
}

// SortDate returns the start of the range, or fallback's day when unknown
func SortDate(r *Range, fallback time.Time) time.Time {
	if r != nil {
		return r.Start
	}
	return dayOf(fallback)
}

// ParseTimestamp parses the free-form timestamps found in user save records
func ParseTimestamp(s string) (time.Time, error) {
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func isWildcard(n int) bool {
	return n == 0 || n == 99
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
