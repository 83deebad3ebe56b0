package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Period is one origin row of a triangle: the half-open calendar interval
// [Start, End). Dates are UTC midnights.
type Period struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewPeriod returns the grain-length period beginning at start.
func NewPeriod(g Grain, start time.Time) Period {
	start = Day(start)
	return Period{
		Label: g.Label(start),
		Start: start,
		End:   start.AddDate(0, g.Months(), 0),
	}
}

// ParsePeriod parses an origin label such as "2005", "2005Q3", "2005-Q3",
// "2005-07" or "200507" for the given grain.
func ParsePeriod(g Grain, label string) (Period, error) {
	s := strings.ToUpper(strings.TrimSpace(label))
	if len(s) < 4 {
		return Period{}, ShapeError(label, "invalid origin label")
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil {
		return Period{}, ShapeError(label, "invalid origin year")
	}
	rest := strings.TrimPrefix(s[4:], "-")

	month := 1
	switch g {
	case GrainYear:
		if rest != "" {
			return Period{}, ShapeError(label, "unexpected suffix for annual grain")
		}
	case GrainQuarter:
		q, err := strconv.Atoi(strings.TrimPrefix(rest, "Q"))
		if err != nil || q < 1 || q > 4 {
			return Period{}, ShapeError(label, "invalid quarter")
		}
		month = (q-1)*3 + 1
	case GrainMonth:
		m, err := strconv.Atoi(rest)
		if err != nil || m < 1 || m > 12 {
			return Period{}, ShapeError(label, "invalid month")
		}
		month = m
	default:
		return Period{}, ConfigurationError("grain", "unsupported grain %q", g)
	}
	return NewPeriod(g, time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)), nil
}

// Years is the period length on the decimal-year axis.
func (p Period) Years() float64 {
	return YearFraction(p.End) - YearFraction(p.Start)
}

func (p Period) String() string {
	return fmt.Sprintf("%s [%s, %s)", p.Label, p.Start.Format(DateLayout), p.End.Format(DateLayout))
}

// DateLayout is the canonical calendar date format.
const DateLayout = "2006-01-02"

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// YearFraction maps a date onto the decimal-year axis: a date in year Y is
// Y + (day of year - 1) / days in Y. Whole calendar years have length 1.
func YearFraction(t time.Time) float64 {
	t = Day(t)
	y := t.Year()
	start := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	next := time.Date(y+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	days := next.Sub(start).Hours() / 24
	return float64(y) + t.Sub(start).Hours()/24/days
}

// DateFromYearFraction is the inverse of YearFraction, rounded to the day.
func DateFromYearFraction(x float64) time.Time {
	start, days, frac := splitYearFraction(x)
	return start.AddDate(0, 0, int(frac*days+0.5))
}

// FloorDateFromYearFraction is DateFromYearFraction rounded down, so that
// YearFraction of the result never exceeds x.
func FloorDateFromYearFraction(x float64) time.Time {
	start, days, frac := splitYearFraction(x)
	return start.AddDate(0, 0, int(math.Floor(frac*days)))
}

func splitYearFraction(x float64) (start time.Time, days, frac float64) {
	y := int(math.Floor(x))
	start = time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	next := time.Date(y+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, next.Sub(start).Hours() / 24, x - float64(y)
}
