package model

import (
	"fmt"
	"strings"
	"time"
)

// Grain is the length of one origin period.
// Keep these values stable; they appear in triangle files and CSV output.
type Grain string

const (
	GrainYear    Grain = "Y"
	GrainQuarter Grain = "Q"
	GrainMonth   Grain = "M"
)

func ParseGrain(s string) (Grain, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "Y", "A", "YEAR", "ANNUAL", "":
		return GrainYear, nil
	case "Q", "QUARTER":
		return GrainQuarter, nil
	case "M", "MONTH":
		return GrainMonth, nil
	default:
		return "", ConfigurationError("grain", "unsupported grain %q", s)
	}
}

// Months returns the number of calendar months in one period of the grain.
func (g Grain) Months() int {
	switch g {
	case GrainQuarter:
		return 3
	case GrainMonth:
		return 1
	default:
		return 12
	}
}

// Label formats the period starting at start, e.g. "2005", "2005Q3", "2005-07".
func (g Grain) Label(start time.Time) string {
	switch g {
	case GrainQuarter:
		return fmt.Sprintf("%dQ%d", start.Year(), (int(start.Month())-1)/3+1)
	case GrainMonth:
		return fmt.Sprintf("%d-%02d", start.Year(), int(start.Month()))
	default:
		return fmt.Sprintf("%d", start.Year())
	}
}
