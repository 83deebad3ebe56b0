// Package report holds the output of a reserving run: per-origin rows, the
// fitted on-level factors and the development pattern.
package report

import (
	"math"
	"sort"
	"time"

	"onlevel-reserving/internal/onlevel"
)

// OriginRow is one origin of a reserving run.
type OriginRow struct {
	Origin string `json:"origin"`

	Latest        float64 `json:"latest"`         // reported, before on-leveling
	OnLevelLatest float64 `json:"onlevel_latest"` // after the pipeline transforms
	CDF           float64 `json:"cdf"`

	Exposure float64 `json:"exposure"` // sample weight seen by the terminal stage
	ELR      float64 `json:"elr"`
	Apriori  float64 `json:"apriori"`

	Ultimate float64 `json:"ultimate"`
	IBNR     float64 `json:"ibnr"`
}

// FactorTable is the on-level factor table of one stage.
type FactorTable struct {
	Step    string           `json:"step"`
	Factors []onlevel.Factor `json:"factors"`
}

type Pattern struct {
	Ages []int     `json:"ages"`
	LDF  []float64 `json:"ldf"`
	CDF  []float64 `json:"cdf"`
}

type Totals struct {
	Latest   float64 `json:"latest"`
	Exposure float64 `json:"exposure"`
	Ultimate float64 `json:"ultimate"`
	IBNR     float64 `json:"ibnr"`
}

type Result struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"created_at"`
	ValuationDate time.Time `json:"valuation_date"`

	Factors     []FactorTable `json:"factors"`
	Development *Pattern      `json:"development,omitempty"`
	Rows        []OriginRow   `json:"rows"`
	Totals      Totals        `json:"totals"`
}

// Total sums the rows, skipping NaN cells.
func Total(rows []OriginRow) Totals {
	var t Totals
	for _, r := range rows {
		t.Latest += nz(r.Latest)
		t.Exposure += nz(r.Exposure)
		t.Ultimate += nz(r.Ultimate)
		t.IBNR += nz(r.IBNR)
	}
	return t
}

// FactorsFor returns the factor table of the named step.
func (r *Result) FactorsFor(step string) ([]onlevel.Factor, bool) {
	for _, ft := range r.Factors {
		if ft.Step == step {
			return ft.Factors, true
		}
	}
	return nil, false
}

// ByIBNR returns the rows ordered by IBNR, largest first.
func ByIBNR(rows []OriginRow) []OriginRow {
	out := append([]OriginRow(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		return nz(out[i].IBNR) > nz(out[j].IBNR)
	})
	return out
}

func nz(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
