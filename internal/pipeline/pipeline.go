// Package pipeline composes transform stages and one terminal estimator into
// a single fit/transform unit.
package pipeline

import (
	"time"

	"go.uber.org/zap"

	"onlevel-reserving/internal/model"
)

type Pipeline struct {
	steps  []Step
	index  map[string]int
	logger *zap.Logger
}

type Option func(*Pipeline)

// WithLogger sets the logger used for stage progress. Default is a no-op.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New checks the stage contracts and returns the pipeline. The last step is
// the terminal estimator; every step before it must be a transformer.
func New(steps []Step, opts ...Option) (*Pipeline, error) {
	if len(steps) == 0 {
		return nil, model.StageContractError("", "pipeline has no steps")
	}
	p := &Pipeline{
		steps:  append([]Step(nil), steps...),
		index:  make(map[string]int, len(steps)),
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(p)
	}

	last := len(steps) - 1
	for i, s := range steps {
		if s.Name == "" {
			return nil, model.StageContractError("", "step %d has an empty name", i)
		}
		if _, dup := p.index[s.Name]; dup {
			return nil, model.StageContractError(s.Name, "duplicate step name")
		}
		p.index[s.Name] = i
		if s.Stage == nil {
			return nil, model.StageContractError(s.Name, "stage is nil")
		}

		caps := s.Stage.Capabilities()
		if caps.Has(CapTransform) {
			if _, ok := s.Stage.(Transformer); !ok {
				return nil, model.StageContractError(s.Name, "declares transform but has no Transform method")
			}
		} else if i < last {
			return nil, model.StageContractError(s.Name, "non-terminal stage does not declare the transform capability")
		}
		if caps.Has(CapTransformsWeight) {
			if _, ok := s.Stage.(WeightTransformer); !ok {
				return nil, model.StageContractError(s.Name, "declares transforms_weight but has no TransformWeight method")
			}
		}
	}
	return p, nil
}

// Fit runs FitTransform on every non-terminal stage in order and Fit on the
// terminal one. The weight reaches only stages declaring CapConsumesWeight
// and is replaced by stages declaring CapTransformsWeight. The first failure
// is returned as is and later stages are not touched.
func (p *Pipeline) Fit(X, y, w *model.Triangle) error {
	last := len(p.steps) - 1
	for i, s := range p.steps {
		caps := s.Stage.Capabilities()
		sw := w
		if !caps.Has(CapConsumesWeight) {
			sw = nil
		}

		start := time.Now()
		p.logger.Debug("fitting stage",
			zap.String("stage", s.Name),
			zap.Stringer("capabilities", caps),
			zap.Bool("weighted", sw != nil),
		)
		if err := s.Stage.Fit(X, y, sw); err != nil {
			return err
		}
		if i < last {
			next, err := s.Stage.(Transformer).Transform(X)
			if err != nil {
				return err
			}
			X = next
			if caps.Has(CapTransformsWeight) && w != nil {
				nw, err := s.Stage.(WeightTransformer).TransformWeight(w)
				if err != nil {
					return err
				}
				w = nw
			}
		}
		p.logger.Debug("fitted stage",
			zap.String("stage", s.Name),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return nil
}

// Transform runs the fitted non-terminal transforms over X.
func (p *Pipeline) Transform(X *model.Triangle) (*model.Triangle, error) {
	for _, s := range p.steps[:len(p.steps)-1] {
		next, err := s.Stage.(Transformer).Transform(X)
		if err != nil {
			return nil, err
		}
		X = next
	}
	return X, nil
}

// Step returns the stage registered under name.
func (p *Pipeline) Step(name string) (Estimator, bool) {
	i, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return p.steps[i].Stage, true
}

// Steps returns the steps in order.
func (p *Pipeline) Steps() []Step {
	return append([]Step(nil), p.steps...)
}

// Ultimate returns the terminal estimator's projection, or a
// ConfigurationError when the terminal stage does not produce one.
func (p *Pipeline) Ultimate() (*model.Triangle, error) {
	term := p.steps[len(p.steps)-1]
	pr, ok := term.Stage.(Predictor)
	if !ok {
		return nil, model.ConfigurationError(term.Name, "terminal stage has no ultimate projection")
	}
	u := pr.Ultimate()
	if u == nil {
		return nil, model.ConfigurationError(term.Name, "terminal stage is not fitted")
	}
	return u.Clone(), nil
}
