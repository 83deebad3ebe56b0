package ratelevel

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"onlevel-reserving/internal/model"
)

// Extrapolation decides what a query before the index origin returns.
type Extrapolation string

const (
	// ExtrapolateError fails with a date range error.
	ExtrapolateError Extrapolation = "error"
	// ExtrapolateClamp returns the earliest segment's level.
	ExtrapolateClamp Extrapolation = "clamp"
)

func ParseExtrapolation(s string) (Extrapolation, error) {
	switch Extrapolation(strings.ToLower(strings.TrimSpace(s))) {
	case ExtrapolateError, "":
		return ExtrapolateError, nil
	case ExtrapolateClamp:
		return ExtrapolateClamp, nil
	default:
		return "", model.ConfigurationError("extrapolation", "unsupported policy %q", s)
	}
}

// Segment is one constant-level piece of the index. The last segment is
// open-ended and has a zero End.
type Segment struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end,omitempty"`
	Level float64   `json:"level"`
}

// Index is a piecewise-constant rate level over calendar time. Levels are
// normalised so the current (last) segment is 1.0; for t1 < t2,
// Level(t2)/Level(t1) is the compounded change of every event in (t1, t2].
type Index struct {
	segments  []Segment
	bounds    []float64 // segment starts on the decimal-year axis
	reference time.Time
	policy    Extrapolation
}

// BuildIndex builds the level index from the earlier of from and the first
// event through reference. Events effective after reference are not yet in
// force and are left out. Same-date events compound in supplied order.
func (s *Schedule) BuildIndex(from, reference time.Time, policy Extrapolation) (*Index, error) {
	if policy == "" {
		policy = ExtrapolateError
	}
	reference = model.Day(reference)
	from = model.Day(from)

	// Aggregate same-date events by compounding.
	type step struct {
		date   time.Time
		factor float64
	}
	var steps []step
	for _, e := range s.events {
		if e.Date.After(reference) {
			break
		}
		if n := len(steps); n > 0 && steps[n-1].date.Equal(e.Date) {
			steps[n-1].factor *= 1 + e.RateChange
			continue
		}
		steps = append(steps, step{date: e.Date, factor: 1 + e.RateChange})
	}

	origin := from
	if len(steps) > 0 && steps[0].date.Before(origin) {
		origin = steps[0].date
	}

	// Walk backward from the latest date accumulating the compounded change
	// still to come; the level of a segment is its reciprocal.
	levels := make([]float64, len(steps)+1)
	levels[len(steps)] = 1
	acc := 1.0
	for k := len(steps) - 1; k >= 0; k-- {
		acc *= steps[k].factor
		levels[k] = 1 / acc
	}

	ix := &Index{reference: reference, policy: policy}
	start := origin
	for k := 0; k <= len(steps); k++ {
		var end time.Time
		if k < len(steps) {
			end = steps[k].date
			if !end.After(start) {
				// Event on the origin itself: nothing precedes it.
				continue
			}
		}
		ix.segments = append(ix.segments, Segment{Start: start, End: end, Level: levels[k]})
		ix.bounds = append(ix.bounds, model.YearFraction(start))
		start = end
	}
	return ix, nil
}

// Origin is the start of the earliest segment.
func (ix *Index) Origin() time.Time { return ix.segments[0].Start }

// Reference is the date the index is current as of.
func (ix *Index) Reference() time.Time { return ix.reference }

// Policy is the extrapolation policy for queries before Origin.
func (ix *Index) Policy() Extrapolation { return ix.policy }

// Segments returns a copy of the segments in date order.
func (ix *Index) Segments() []Segment {
	return append([]Segment(nil), ix.segments...)
}

// LevelAt returns the level of the segment containing t.
func (ix *Index) LevelAt(t time.Time) (float64, error) {
	t = model.Day(t)
	if t.Before(ix.Origin()) {
		if ix.policy != ExtrapolateClamp {
			return 0, model.DateRangeError(t.Format(model.DateLayout), "precedes index origin %s", ix.Origin().Format(model.DateLayout))
		}
		return ix.segments[0].Level, nil
	}
	return ix.segments[ix.find(model.YearFraction(t))].Level, nil
}

// Ratio returns Level(t2)/Level(t1).
func (ix *Index) Ratio(t1, t2 time.Time) (float64, error) {
	l1, err := ix.LevelAt(t1)
	if err != nil {
		return 0, err
	}
	l2, err := ix.LevelAt(t2)
	if err != nil {
		return 0, err
	}
	return l2 / l1, nil
}

// find returns the segment containing x (x >= origin).
func (ix *Index) find(x float64) int {
	return sort.Search(len(ix.bounds), func(i int) bool { return ix.bounds[i] > x }) - 1
}

// WeightedAverage integrates the level against a weight density whose
// antiderivative is cum, over the support [lo, hi] on the decimal-year axis:
//
//	Σ level_i·(cum(b_i) − cum(a_i)) / (cum(hi) − cum(lo))
//
// where [a_i, b_i] is segment i clipped to the support.
func (ix *Index) WeightedAverage(cum func(float64) float64, lo, hi float64) (float64, error) {
	if !(hi > lo) {
		return 0, model.ConfigurationError("support", "empty weight support [%v, %v]", lo, hi)
	}
	if lo < ix.bounds[0] && ix.policy != ExtrapolateClamp {
		return 0, model.DateRangeError(model.FloorDateFromYearFraction(lo).Format(model.DateLayout),
			"precedes index origin %s", ix.Origin().Format(model.DateLayout))
	}
	total := cum(hi) - cum(lo)
	if !(total > 0) {
		return 0, model.ConfigurationError("support", "weight integrates to %v", total)
	}

	sum := 0.0
	for i, seg := range ix.segments {
		a := ix.bounds[i]
		if i == 0 || a < lo {
			// The first segment also covers clamped time before the origin.
			a = lo
		}
		b := hi
		if i+1 < len(ix.bounds) {
			b = math.Min(ix.bounds[i+1], hi)
		}
		if b <= a {
			continue
		}
		sum += seg.Level * (cum(b) - cum(a))
	}
	return sum / total, nil
}

func (ix *Index) String() string {
	var b strings.Builder
	for _, s := range ix.segments {
		end := "current"
		if !s.End.IsZero() {
			end = s.End.Format(model.DateLayout)
		}
		fmt.Fprintf(&b, "[%s, %s) %.6f\n", s.Start.Format(model.DateLayout), end, s.Level)
	}
	return b.String()
}
