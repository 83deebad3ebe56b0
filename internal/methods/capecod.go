// Package methods holds terminal reserving estimators.
package methods

import (
	"math"

	"go.uber.org/zap"

	"onlevel-reserving/internal/model"
	"onlevel-reserving/internal/pipeline"
)

type CapeCodParams struct {
	// Trend is the annual loss trend applied between origins.
	Trend float64
	// Decay discounts the contribution of distant origins. It must lie in
	// (0, 1]; the zero value selects 1.
	Decay float64
}

// CapeCod estimates ultimate losses from a development pattern on X and the
// exposure passed as the sample weight.
type CapeCod struct {
	Params CapeCodParams

	logger   *zap.Logger
	latest   *model.Triangle
	ultimate *model.Triangle
	exposure []float64
	elr      []float64
	apriori  []float64
}

func NewCapeCod(params CapeCodParams, logger *zap.Logger) *CapeCod {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CapeCod{Params: params, logger: logger}
}

func (c *CapeCod) Capabilities() pipeline.Capability { return pipeline.CapConsumesWeight }

// Fit needs X.CDF, set by a development stage, and the exposure w with the
// same origins as X. y is not used.
func (c *CapeCod) Fit(X, y, w *model.Triangle) error {
	if err := X.Validate(); err != nil {
		return err
	}
	if X.CDF == nil {
		return model.ConfigurationError(X.Name, "no development pattern; fit a development stage first")
	}
	if w == nil {
		return model.ConfigurationError("sample_weight", "cape cod needs exposure as the sample weight")
	}
	if err := w.Validate(); err != nil {
		return err
	}
	if len(w.Origins) != len(X.Origins) {
		return model.ShapeError("sample_weight", "%d exposure origins for %d loss origins", len(w.Origins), len(X.Origins))
	}
	decay := c.Params.Decay
	if decay == 0 {
		decay = 1
	}
	if decay < 0 || decay > 1 {
		return model.ConfigurationError("decay", "decay must be in (0, 1] (zero selects 1), got %v", decay)
	}
	if c.Params.Trend <= -1 {
		return model.ConfigurationError("trend", "trend must exceed -100%%, got %v", c.Params.Trend)
	}

	n := len(X.Origins)
	exposure := w.LatestDiagonal().Vector()
	losses := make([]float64, n)
	cdf := make([]float64, n)
	usedUp := make([]float64, n)
	when := make([]float64, n)
	for i, o := range X.Origins {
		if w.Origins[i].Label != o.Label {
			return model.ShapeError(w.Origins[i].Label, "exposure origin does not match loss origin %s", o.Label)
		}
		when[i] = model.YearFraction(o.Start)
		j := X.LatestIndex(i)
		if j < 0 {
			losses[i], cdf[i], usedUp[i] = math.NaN(), math.NaN(), math.NaN()
			continue
		}
		losses[i] = X.Values[i][j]
		cdf[i] = X.CDF[j]
		usedUp[i] = exposure[i] / cdf[i]
	}

	elr := make([]float64, n)
	apriori := make([]float64, n)
	ult := make([]float64, n)
	for i := range X.Origins {
		num, den := 0.0, 0.0
		for j := range X.Origins {
			if math.IsNaN(losses[j]) || math.IsNaN(usedUp[j]) {
				continue
			}
			wt := math.Pow(decay, math.Abs(float64(i-j)))
			trend := math.Pow(1+c.Params.Trend, when[i]-when[j])
			num += losses[j] * trend * wt
			den += usedUp[j] * wt
		}
		if den == 0 {
			return model.ShapeError(X.Origins[i].Label, "no used-up exposure to estimate a loss ratio")
		}
		elr[i] = num / den
		apriori[i] = elr[i] * exposure[i]
		ult[i] = losses[i] + (1-1/cdf[i])*apriori[i]
	}

	c.latest = X.LatestDiagonal()
	c.exposure, c.elr, c.apriori = exposure, elr, apriori
	c.ultimate = model.NewVector("Ultimate", X.Grain, X.ValuationDate, X.Origins, ult)
	c.logger.Debug("fitted cape cod",
		zap.Float64("trend", c.Params.Trend),
		zap.Float64("decay", decay),
		zap.Int("origins", n),
	)
	return nil
}

// Ultimate returns the projected ultimate by origin, nil before Fit.
func (c *CapeCod) Ultimate() *model.Triangle {
	if c.ultimate == nil {
		return nil
	}
	return c.ultimate.Clone()
}

// IBNR is ultimate minus the latest reported value.
func (c *CapeCod) IBNR() *model.Triangle {
	if c.ultimate == nil {
		return nil
	}
	u, l := c.ultimate.Vector(), c.latest.Vector()
	out := make([]float64, len(u))
	for i := range u {
		out[i] = u[i] - l[i]
	}
	return model.NewVector("IBNR", c.ultimate.Grain, c.ultimate.ValuationDate, c.ultimate.Origins, out)
}

// Exposure returns the latest sample weight by origin as seen by Fit.
func (c *CapeCod) Exposure() []float64 { return append([]float64(nil), c.exposure...) }

// ELR returns the expected loss ratio by origin.
func (c *CapeCod) ELR() []float64 { return append([]float64(nil), c.elr...) }

// Apriori returns the expected ultimate loss, ELR times exposure.
func (c *CapeCod) Apriori() []float64 { return append([]float64(nil), c.apriori...) }
