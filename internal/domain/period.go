package domain

import (
	"slices"
	"strings"
)

// PeriodType is the granularity of source files selected by a period list.
type PeriodType int

const (
	PeriodUnknown PeriodType = iota
	PeriodAnnual
	PeriodSeasonal
	PeriodMonthly
)

// PeriodAnnualName selects annual-mean source files.
const PeriodAnnualName = "ann"

var (
	// Seasons are the seasonal period identifiers.
	Seasons = []string{"djf", "mam", "jja", "son"}
	// Months are the monthly period identifiers.
	Months = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}
)

func (t PeriodType) String() string {
	switch t {
	case PeriodAnnual:
		return "annual"
	case PeriodSeasonal:
		return "seasonal"
	case PeriodMonthly:
		return "monthly"
	default:
		return "unknown"
	}
}

// PeriodTypeOf classifies a single period identifier.
func PeriodTypeOf(period string) PeriodType {
	switch {
	case period == PeriodAnnualName:
		return PeriodAnnual
	case slices.Contains(Seasons, period):
		return PeriodSeasonal
	case slices.Contains(Months, period):
		return PeriodMonthly
	default:
		return PeriodUnknown
	}
}

// ClassifyPeriods checks a configured period list and returns its type.
// "ann" must appear alone; seasons and months may not be mixed, and every
// entry must belong to the chosen kind.
func ClassifyPeriods(periods []string) (PeriodType, error) {
	has := func(set []string) bool {
		return slices.ContainsFunc(periods, func(p string) bool { return slices.Contains(set, p) })
	}

	switch {
	case slices.Contains(periods, PeriodAnnualName):
		if len(periods) != 1 {
			return PeriodUnknown, NewConfigurationError("period", "to choose annual the period list must only contain %q, got [%s]",
				PeriodAnnualName, strings.Join(periods, ", "))
		}
		return PeriodAnnual, nil
	case has(Seasons) && has(Months):
		return PeriodUnknown, NewConfigurationError("period", "both seasonal and monthly periods chosen: [%s]", strings.Join(periods, ", "))
	case has(Seasons):
		for _, p := range periods {
			if !slices.Contains(Seasons, p) {
				return PeriodUnknown, NewConfigurationError("period", "possible typo in seasons: %q", p)
			}
		}
		return PeriodSeasonal, nil
	case has(Months):
		for _, p := range periods {
			if !slices.Contains(Months, p) {
				return PeriodUnknown, NewConfigurationError("period", "possible typo in months: %q", p)
			}
		}
		return PeriodMonthly, nil
	default:
		return PeriodUnknown, NewConfigurationError("period", "choose a valid list of periods, got [%s]", strings.Join(periods, ", "))
	}
}
