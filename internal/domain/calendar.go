package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// CF calendar names.
const (
	CalendarGregorian = "gregorian"
	CalendarStandard  = "standard"
	CalendarProleptic = "proleptic_gregorian"
	Calendar360Day    = "360_day"
	Calendar365Day    = "365_day"
	CalendarNoLeap    = "noleap"
)

// cumulative day-of-year at the start of each month in a 365-day year.
var noLeapMonthStart = [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}

// timeReference is a parsed "<unit> since <date>" CF time unit string.
type timeReference struct {
	unit                 float64 // length of one unit in days
	year, month, day     int
	hour, minute, second int
}

// parseTimeUnits parses CF time units such as "hours since 1970-01-01 00:00:00".
func parseTimeUnits(units string) (timeReference, error) {
	parts := strings.SplitN(strings.TrimSpace(units), " since ", 2)
	if len(parts) != 2 {
		return timeReference{}, fmt.Errorf("parse time units %q: expected \"<unit> since <date>\"", units)
	}

	var ref timeReference
	switch strings.ToLower(strings.TrimSpace(parts[0])) {
	case "days", "day", "d":
		ref.unit = 1
	case "hours", "hour", "hrs", "h":
		ref.unit = 1.0 / 24
	case "minutes", "minute", "mins", "min":
		ref.unit = 1.0 / (24 * 60)
	case "seconds", "second", "secs", "sec", "s":
		ref.unit = 1.0 / (24 * 60 * 60)
	default:
		return timeReference{}, fmt.Errorf("parse time units %q: unsupported unit %q", units, parts[0])
	}

	stamp := strings.Fields(strings.Replace(strings.TrimSpace(parts[1]), "T", " ", 1))
	if len(stamp) == 0 {
		return timeReference{}, fmt.Errorf("parse time units %q: missing reference date", units)
	}
	date := strings.Split(stamp[0], "-")
	if len(date) != 3 {
		return timeReference{}, fmt.Errorf("parse time units %q: invalid reference date %q", units, stamp[0])
	}
	var err error
	if ref.year, err = strconv.Atoi(date[0]); err != nil {
		return timeReference{}, fmt.Errorf("parse time units %q: %w", units, err)
	}
	if ref.month, err = strconv.Atoi(date[1]); err != nil || ref.month < 1 || ref.month > 12 {
		return timeReference{}, fmt.Errorf("parse time units %q: invalid month %q", units, date[1])
	}
	if ref.day, err = strconv.Atoi(date[2]); err != nil || ref.day < 1 || ref.day > 31 {
		return timeReference{}, fmt.Errorf("parse time units %q: invalid day %q", units, date[2])
	}

	if len(stamp) > 1 {
		clock := strings.Split(stamp[1], ":")
		fields := []*int{&ref.hour, &ref.minute, &ref.second}
		for i := 0; i < len(clock) && i < len(fields); i++ {
			// Fractional seconds are dropped; only the year is ever derived.
			whole, _, _ := strings.Cut(clock[i], ".")
			if *fields[i], err = strconv.Atoi(whole); err != nil {
				return timeReference{}, fmt.Errorf("parse time units %q: invalid time %q", units, stamp[1])
			}
		}
	}
	return ref, nil
}

// fractionOfDay returns the reference time-of-day as a fraction of a day.
func (r timeReference) fractionOfDay() float64 {
	return (float64(r.hour)*3600 + float64(r.minute)*60 + float64(r.second)) / 86400
}

// yearOf returns the calendar year of a time value expressed in r's units.
func (r timeReference) yearOf(value float64, calendar string) (int, error) {
	days := value * r.unit
	switch strings.ToLower(calendar) {
	case "", CalendarGregorian, CalendarStandard, CalendarProleptic:
		base := time.Date(r.year, time.Month(r.month), r.day, r.hour, r.minute, r.second, 0, time.UTC)
		// Whole days keep the arithmetic exact for large offsets.
		whole := math.Floor(days)
		t := base.AddDate(0, 0, int(whole)).Add(time.Duration((days - whole) * float64(24*time.Hour)))
		return t.Year(), nil
	case Calendar360Day:
		start := float64(r.year*360+(r.month-1)*30+(r.day-1)) + r.fractionOfDay()
		return int(math.Floor((start + days) / 360)), nil
	case Calendar365Day, CalendarNoLeap:
		start := float64(r.year*365+noLeapMonthStart[r.month-1]+(r.day-1)) + r.fractionOfDay()
		return int(math.Floor((start + days) / 365)), nil
	default:
		return 0, fmt.Errorf("unsupported calendar %q", calendar)
	}
}

// AddYearCoord derives the year coordinate of f from its time coordinate.
func AddYearCoord(f Field) (Field, error) {
	if !f.HasDim(DimTime) {
		return Field{}, fmt.Errorf("add year coordinate to %s: no time dimension", f.Name)
	}
	ref, err := parseTimeUnits(f.TimeUnits)
	if err != nil {
		return Field{}, fmt.Errorf("add year coordinate to %s: %w", f.Name, err)
	}
	years := make([]int, len(f.Time))
	for i, v := range f.Time {
		y, err := ref.yearOf(v, f.Calendar)
		if err != nil {
			return Field{}, fmt.Errorf("add year coordinate to %s: %w", f.Name, err)
		}
		years[i] = y
	}
	out := f.Clone()
	out.Year = years
	return out, nil
}
