package naming

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"dbextract/pkg/errors"
)

// Granularity selects how fetched rows are bucketed into output files
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// ParseGranularity validates a granularity string from configuration
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case Daily, Weekly, Monthly:
		return Granularity(s), nil
	default:
		return "", errors.NewUnsupported(fmt.Sprintf("aggregation granularity: %q", s))
	}
}

// Strategy maps instants to stable file base names. Equal periods always map
// to the same name, so appends from different windows land in one file.
type Strategy struct {
	base        string
	granularity Granularity
}

// NewStrategy creates a naming strategy. The granularity must already be
// validated via ParseGranularity.
func NewStrategy(base string, granularity Granularity) *Strategy {
	return &Strategy{base: base, granularity: granularity}
}

// FileName returns the extension-less file name for the period containing t.
// Weekly buckets use the ISO week and its ISO year, so late-December days can
// bucket into the following year's week 1.
func (s *Strategy) FileName(t time.Time) string {
	switch s.granularity {
	case Daily:
		return fmt.Sprintf("%s_%04d_%02d_%02d", s.base, t.Year(), int(t.Month()), t.Day())
	case Weekly:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%s_%04d_week%02d", s.base, year, week)
	default:
		return fmt.Sprintf("%s_%04d_%02d", s.base, t.Year(), int(t.Month()))
	}
}

// Granularity returns the configured bucketing granularity
func (s *Strategy) Granularity() Granularity {
	return s.granularity
}

var (
	dailyPattern   = regexp.MustCompile(`^(.+)_(\d{4})_(\d{2})_(\d{2})$`)
	weeklyPattern  = regexp.MustCompile(`^(.+)_(\d{4})_week(\d{2})$`)
	monthlyPattern = regexp.MustCompile(`^(.+)_(\d{4})_(\d{2})$`)
)

// PeriodStart parses an extension-less file name produced by FileName back
// into the start instant of its period. Names with the wrong base or shape
// return an unsupported error.
func (s *Strategy) PeriodStart(name string) (time.Time, error) {
	switch s.granularity {
	case Daily:
		m := dailyPattern.FindStringSubmatch(name)
		if m == nil || m[1] != s.base {
			return time.Time{}, errors.NewUnsupported(fmt.Sprintf("file name: %q", name))
		}
		year, _ := strconv.Atoi(m[2])
		month, _ := strconv.Atoi(m[3])
		day, _ := strconv.Atoi(m[4])
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil

	case Weekly:
		m := weeklyPattern.FindStringSubmatch(name)
		if m == nil || m[1] != s.base {
			return time.Time{}, errors.NewUnsupported(fmt.Sprintf("file name: %q", name))
		}
		year, _ := strconv.Atoi(m[2])
		week, _ := strconv.Atoi(m[3])
		return isoWeekStart(year, week), nil

	default:
		m := monthlyPattern.FindStringSubmatch(name)
		if m == nil || m[1] != s.base {
			return time.Time{}, errors.NewUnsupported(fmt.Sprintf("file name: %q", name))
		}
		year, _ := strconv.Atoi(m[2])
		month, _ := strconv.Atoi(m[3])
		return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), nil
	}
}

// isoWeekStart returns the Monday starting the given ISO week. January 4th
// always falls in ISO week 1 of its year.
func isoWeekStart(year, week int) time.Time {
	jan4 := time.Date(year, 1, 4, 0, 0, 0, 0, time.UTC)
	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	week1Monday := jan4.AddDate(0, 0, 1-weekday)
	return week1Monday.AddDate(0, 0, (week-1)*7)
}
