package model

import (
	"math"
	"time"
)

// Triangle is a loss or premium triangle indexed by origin period and
// development age.
//
// A Triangle is treated as immutable once built: every operation in this
// module returns a new value and never writes to the receiver. Missing
// (unobserved) cells hold NaN.
type Triangle struct {
	Name          string
	Grain         Grain
	ValuationDate time.Time

	Origins []Period
	// Ages are development ages in months. A single-column triangle is a
	// vector by origin (e.g. a latest diagonal).
	Ages   []int
	Values [][]float64 // [origin][age]

	// CDF is the cumulative development pattern by age, attached by a
	// development stage. Nil until then.
	CDF []float64
}

// NewVector builds a single-column triangle from one value per origin.
func NewVector(name string, grain Grain, valuation time.Time, origins []Period, values []float64) *Triangle {
	rows := make([][]float64, len(values))
	for i, v := range values {
		rows[i] = []float64{v}
	}
	return &Triangle{
		Name:          name,
		Grain:         grain,
		ValuationDate: valuation,
		Origins:       append([]Period(nil), origins...),
		Ages:          []int{0},
		Values:        rows,
	}
}

// Validate checks shape consistency.
func (t *Triangle) Validate() error {
	if t == nil {
		return ShapeError("", "triangle is nil")
	}
	if len(t.Origins) == 0 {
		return ShapeError(t.Name, "triangle has no origin periods")
	}
	if len(t.Ages) == 0 {
		return ShapeError(t.Name, "triangle has no development ages")
	}
	if len(t.Values) != len(t.Origins) {
		return ShapeError(t.Name, "%d value rows for %d origins", len(t.Values), len(t.Origins))
	}
	seen := make(map[string]struct{}, len(t.Origins))
	for i, o := range t.Origins {
		if !o.End.After(o.Start) {
			return ConfigurationError(o.Label, "origin period end %s is not after start %s",
				o.End.Format(DateLayout), o.Start.Format(DateLayout))
		}
		if _, dup := seen[o.Label]; dup {
			return ShapeError(o.Label, "duplicate origin label")
		}
		seen[o.Label] = struct{}{}
		if len(t.Values[i]) != len(t.Ages) {
			return ShapeError(o.Label, "row has %d cells for %d ages", len(t.Values[i]), len(t.Ages))
		}
	}
	if t.CDF != nil && len(t.CDF) != len(t.Ages) {
		return ShapeError(t.Name, "cdf has %d entries for %d ages", len(t.CDF), len(t.Ages))
	}
	return nil
}

// Clone returns a deep copy.
func (t *Triangle) Clone() *Triangle {
	if t == nil {
		return nil
	}
	out := *t
	out.Origins = append([]Period(nil), t.Origins...)
	out.Ages = append([]int(nil), t.Ages...)
	if t.CDF != nil {
		out.CDF = append([]float64(nil), t.CDF...)
	}
	out.Values = make([][]float64, len(t.Values))
	for i, row := range t.Values {
		out.Values[i] = append([]float64(nil), row...)
	}
	return &out
}

// OriginIndex returns the row index of the origin with the given label.
func (t *Triangle) OriginIndex(label string) (int, bool) {
	for i, o := range t.Origins {
		if o.Label == label {
			return i, true
		}
	}
	return -1, false
}

// LatestIndex returns the column of the latest observed cell in row i, or -1.
func (t *Triangle) LatestIndex(i int) int {
	row := t.Values[i]
	for j := len(row) - 1; j >= 0; j-- {
		if !math.IsNaN(row[j]) {
			return j
		}
	}
	return -1
}

// LatestDiagonal projects each origin onto its most recent evaluation.
// Origins with no observation carry NaN.
func (t *Triangle) LatestDiagonal() *Triangle {
	vals := make([]float64, len(t.Origins))
	for i := range t.Origins {
		j := t.LatestIndex(i)
		if j < 0 {
			vals[i] = math.NaN()
			continue
		}
		vals[i] = t.Values[i][j]
	}
	return NewVector(t.Name, t.Grain, t.ValuationDate, t.Origins, vals)
}

// Vector returns the first column, one value per origin.
func (t *Triangle) Vector() []float64 {
	out := make([]float64, len(t.Values))
	for i, row := range t.Values {
		if len(row) == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = row[0]
	}
	return out
}

// Scale multiplies every cell of origin i by factors[i].
func (t *Triangle) Scale(factors []float64) *Triangle {
	out := t.Clone()
	for i, row := range out.Values {
		for j := range row {
			row[j] *= factors[i]
		}
	}
	return out
}

// ScaleLatest multiplies only the latest observed cell of origin i by factors[i].
func (t *Triangle) ScaleLatest(factors []float64) *Triangle {
	out := t.Clone()
	for i := range out.Values {
		if j := out.LatestIndex(i); j >= 0 {
			out.Values[i][j] *= factors[i]
		}
	}
	return out
}

// WithCDF returns a copy carrying the given development pattern.
func (t *Triangle) WithCDF(cdf []float64) *Triangle {
	out := t.Clone()
	out.CDF = append([]float64(nil), cdf...)
	return out
}
