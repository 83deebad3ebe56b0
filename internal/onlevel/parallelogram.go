// Package onlevel restates premium and losses written at historical rate
// levels to the level in force at a reference date.
package onlevel

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"onlevel-reserving/internal/model"
	"onlevel-reserving/internal/pipeline"
	"onlevel-reserving/internal/ratelevel"
)

// Params configures a ParallelogramOLF.
type Params struct {
	// VerticalLine treats each rate change as taking effect on all exposure
	// at once; otherwise the parallelogram method is used.
	VerticalLine bool
	// TermMonths is the policy term (default 12).
	TermMonths int
	// Basis is the parallelogram exposure basis (default policy).
	Basis Basis
	// LevelSampleWeight also on-levels the sample weight seen by later
	// pipeline stages.
	LevelSampleWeight bool
	// OnlyLatestDiagonal scales only the latest cell of each origin.
	OnlyLatestDiagonal bool
	// Extrapolation applies to dates before the index origin.
	Extrapolation ratelevel.Extrapolation
	// Reference overrides the triangle valuation date as the current date.
	Reference time.Time
	// Workers bounds per-origin parallelism; 0 means no limit.
	Workers int
}

// Factor is the fitted on-level result for one origin.
type Factor struct {
	Label        string    `json:"label"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	AverageLevel float64   `json:"average_level"`
	Factor       float64   `json:"factor"`
}

// ParallelogramOLF computes per-origin on-level factors from a rate change
// schedule and applies them to triangles.
type ParallelogramOLF struct {
	Params   Params
	Schedule *ratelevel.Schedule

	logger  *zap.Logger
	index   *ratelevel.Index
	factors []Factor
	byLabel map[string]int
}

func New(schedule *ratelevel.Schedule, params Params, logger *zap.Logger) *ParallelogramOLF {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParallelogramOLF{Params: params, Schedule: schedule, logger: logger}
}

// Capabilities: always a transformer; a weight transformer only when the
// sample weight is on-leveled too.
func (o *ParallelogramOLF) Capabilities() pipeline.Capability {
	c := pipeline.CapTransform
	if o.Params.LevelSampleWeight {
		c |= pipeline.CapTransformsWeight
	}
	return c
}

func (o *ParallelogramOLF) termMonths() int {
	if o.Params.TermMonths == 0 {
		return 12
	}
	return o.Params.TermMonths
}

func (o *ParallelogramOLF) term() float64 { return float64(o.termMonths()) / 12 }

// Fit computes factors for the origins of X as of its valuation date (or
// Params.Reference). y and w are not used.
func (o *ParallelogramOLF) Fit(X, y, w *model.Triangle) error {
	if X == nil {
		return model.ShapeError("", "triangle is nil")
	}
	ref := o.Params.Reference
	if ref.IsZero() {
		ref = X.ValuationDate
	}
	return o.FitOrigins(X.Origins, ref)
}

// FitOrigins computes the average rate level and factor of every origin
// against the level in force at reference. A previous fit is replaced only
// on success.
func (o *ParallelogramOLF) FitOrigins(origins []model.Period, reference time.Time) error {
	if o.Schedule == nil {
		return model.ConfigurationError("schedule", "no rate change schedule")
	}
	if len(origins) == 0 {
		return model.ShapeError("origins", "no origin periods to fit")
	}
	if o.Params.TermMonths < 0 {
		return model.ConfigurationError("term_months", "term must be positive, got %d", o.Params.TermMonths)
	}
	basis, err := ParseBasis(string(o.Params.Basis))
	if err != nil {
		return err
	}
	policy, err := ratelevel.ParseExtrapolation(string(o.Params.Extrapolation))
	if err != nil {
		return err
	}
	if reference.IsZero() {
		return model.ConfigurationError("reference", "reference date is required")
	}

	earliest := origins[0].Start
	for _, p := range origins {
		if !p.End.After(p.Start) {
			return model.ConfigurationError(p.Label, "origin period end %s is not after start %s",
				p.End.Format(model.DateLayout), p.Start.Format(model.DateLayout))
		}
		if p.Start.Before(earliest) {
			earliest = p.Start
		}
	}

	T := o.term()
	// The calendar kernel starts exactly one term before the earliest
	// origin; the index must not start after that point.
	from := earliest.AddDate(0, -o.termMonths(), 0)
	if f := model.FloorDateFromYearFraction(model.YearFraction(earliest) - T); f.Before(from) {
		from = f
	}
	ix, err := o.Schedule.BuildIndex(from, reference, policy)
	if err != nil {
		return err
	}
	current, err := ix.LevelAt(reference)
	if err != nil {
		return err
	}

	factors := make([]Factor, len(origins))
	g, _ := errgroup.WithContext(context.Background())
	if o.Params.Workers > 0 {
		g.SetLimit(o.Params.Workers)
	}
	for i, p := range origins {
		g.Go(func() error {
			k, err := newKernel(o.Params.VerticalLine, basis, model.YearFraction(p.Start), model.YearFraction(p.End), T)
			if err != nil {
				return model.ConfigurationError("basis", "%v", err)
			}
			avg, err := ix.WeightedAverage(k.cum, k.lo, k.hi)
			if err != nil {
				return err
			}
			factors[i] = Factor{
				Label:        p.Label,
				Start:        p.Start,
				End:          p.End,
				AverageLevel: avg,
				Factor:       current / avg,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	byLabel := make(map[string]int, len(factors))
	for i, f := range factors {
		byLabel[f.Label] = i
	}
	o.index, o.factors, o.byLabel = ix, factors, byLabel
	o.logger.Debug("fitted on-level factors",
		zap.Int("origins", len(factors)),
		zap.Bool("vertical_line", o.Params.VerticalLine),
		zap.String("basis", string(basis)),
		zap.Time("reference", reference),
	)
	return nil
}

// Transform returns a copy of X with each origin scaled by its factor.
func (o *ParallelogramOLF) Transform(X *model.Triangle) (*model.Triangle, error) {
	f, err := o.originFactors(X)
	if err != nil {
		return nil, err
	}
	if o.Params.OnlyLatestDiagonal {
		return X.ScaleLatest(f), nil
	}
	return X.Scale(f), nil
}

// FitTransform fits on X and returns the transformed copy.
func (o *ParallelogramOLF) FitTransform(X, w *model.Triangle) (*model.Triangle, error) {
	if err := o.Fit(X, nil, w); err != nil {
		return nil, err
	}
	return o.Transform(X)
}

// TransformWeight on-levels the sample weight when LevelSampleWeight is set
// and returns it unchanged otherwise.
func (o *ParallelogramOLF) TransformWeight(w *model.Triangle) (*model.Triangle, error) {
	if !o.Params.LevelSampleWeight || w == nil {
		return w, nil
	}
	f, err := o.originFactors(w)
	if err != nil {
		return nil, err
	}
	return w.Scale(f), nil
}

func (o *ParallelogramOLF) originFactors(X *model.Triangle) ([]float64, error) {
	if o.factors == nil {
		return nil, model.ConfigurationError("olf", "on-level factors are not fitted")
	}
	if err := X.Validate(); err != nil {
		return nil, err
	}
	out := make([]float64, len(X.Origins))
	for i, p := range X.Origins {
		k, ok := o.byLabel[p.Label]
		if !ok {
			return nil, model.ShapeError(p.Label, "origin was not present at fit")
		}
		out[i] = o.factors[k].Factor
	}
	return out, nil
}

// Factors returns the fitted factor table in origin order, nil before Fit.
func (o *ParallelogramOLF) Factors() []Factor {
	if o.factors == nil {
		return nil
	}
	return append([]Factor(nil), o.factors...)
}

// Index returns the rate level index built by the last Fit.
func (o *ParallelogramOLF) Index() *ratelevel.Index { return o.index }
