// Package development estimates chain-ladder development patterns.
package development

import (
	"math"

	"go.uber.org/zap"

	"onlevel-reserving/internal/model"
	"onlevel-reserving/internal/pipeline"
)

// Params configures a Development stage.
type Params struct {
	// NPeriods limits each age-to-age factor to the latest n origins that
	// observe both ages. -1 or 0 uses every origin.
	NPeriods int
	// Tail is the factor from the last age to ultimate (default 1.0).
	Tail float64
}

// Development fits volume-weighted age-to-age factors and attaches the
// cumulative pattern to the triangles it transforms.
type Development struct {
	Params Params

	logger *zap.Logger
	ages   []int
	ldf    []float64
	cdf    []float64
}

func New(params Params, logger *zap.Logger) *Development {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Development{Params: params, logger: logger}
}

func (d *Development) Capabilities() pipeline.Capability { return pipeline.CapTransform }

// Fit estimates the pattern from X. y and w are not used.
func (d *Development) Fit(X, y, w *model.Triangle) error {
	if err := X.Validate(); err != nil {
		return err
	}
	n := len(X.Ages)
	if n < 2 {
		return model.ShapeError(X.Name, "need at least two development ages, got %d", n)
	}
	tail := d.Params.Tail
	if tail == 0 {
		tail = 1
	}
	if tail < 0 {
		return model.ConfigurationError("tail", "tail factor must be positive, got %v", tail)
	}

	ldf := make([]float64, n)
	for j := 0; j < n-1; j++ {
		var rows []int
		for i := range X.Origins {
			a, b := X.Values[i][j], X.Values[i][j+1]
			if !math.IsNaN(a) && !math.IsNaN(b) {
				rows = append(rows, i)
			}
		}
		if k := d.Params.NPeriods; k > 0 && len(rows) > k {
			rows = rows[len(rows)-k:]
		}
		num, den := 0.0, 0.0
		for _, i := range rows {
			num += X.Values[i][j+1]
			den += X.Values[i][j]
		}
		if len(rows) == 0 || den == 0 {
			return model.ShapeError(X.Name, "no observations to develop age %d to %d", X.Ages[j], X.Ages[j+1])
		}
		ldf[j] = num / den
	}
	ldf[n-1] = tail

	cdf := make([]float64, n)
	acc := 1.0
	for j := n - 1; j >= 0; j-- {
		acc *= ldf[j]
		cdf[j] = acc
	}

	d.ages = append([]int(nil), X.Ages...)
	d.ldf, d.cdf = ldf, cdf
	d.logger.Debug("fitted development pattern",
		zap.String("triangle", X.Name),
		zap.Int("n_periods", d.Params.NPeriods),
		zap.Float64s("cdf", cdf),
	)
	return nil
}

// Transform returns a copy of X carrying the fitted cumulative pattern.
func (d *Development) Transform(X *model.Triangle) (*model.Triangle, error) {
	if d.cdf == nil {
		return nil, model.ConfigurationError("development", "pattern is not fitted")
	}
	if err := X.Validate(); err != nil {
		return nil, err
	}
	if len(X.Ages) != len(d.ages) {
		return nil, model.ShapeError(X.Name, "triangle has %d ages, pattern has %d", len(X.Ages), len(d.ages))
	}
	for j, a := range X.Ages {
		if a != d.ages[j] {
			return nil, model.ShapeError(X.Name, "age %d does not match fitted age %d", a, d.ages[j])
		}
	}
	return X.WithCDF(d.cdf), nil
}

// Ages returns the development ages of the fitted pattern.
func (d *Development) Ages() []int { return append([]int(nil), d.ages...) }

// LDF returns the age-to-age factors; the last entry is the tail.
func (d *Development) LDF() []float64 { return append([]float64(nil), d.ldf...) }

// CDF returns the age-to-ultimate factors.
func (d *Development) CDF() []float64 { return append([]float64(nil), d.cdf...) }
