package pipeline

import (
	"strings"

	"onlevel-reserving/internal/model"
)

// Capability is a bit set a stage declares about itself. The pipeline routes
// data and the sample weight according to these flags, never by probing.
type Capability uint8

const (
	// CapTransform marks a stage that can transform X after fitting.
	// Every non-terminal step must declare it.
	CapTransform Capability = 1 << iota
	// CapConsumesWeight marks a stage whose Fit uses the sample weight.
	CapConsumesWeight
	// CapTransformsWeight marks a stage that rewrites the sample weight
	// seen by the stages after it.
	CapTransformsWeight
)

func (c Capability) Has(flag Capability) bool { return c&flag == flag }

func (c Capability) String() string {
	var parts []string
	if c.Has(CapTransform) {
		parts = append(parts, "transform")
	}
	if c.Has(CapConsumesWeight) {
		parts = append(parts, "consumes_weight")
	}
	if c.Has(CapTransformsWeight) {
		parts = append(parts, "transforms_weight")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Estimator is anything that can be fitted on a triangle. w is the
// per-origin sample weight, nil when the stage does not consume one.
type Estimator interface {
	Fit(X, y, w *model.Triangle) error
	Capabilities() Capability
}

// Transformer is a fitted estimator that maps X to a new triangle.
type Transformer interface {
	Estimator
	Transform(X *model.Triangle) (*model.Triangle, error)
}

// WeightTransformer rewrites the sample weight for downstream stages.
type WeightTransformer interface {
	TransformWeight(w *model.Triangle) (*model.Triangle, error)
}

// Predictor is a terminal estimator exposing its ultimate projection.
type Predictor interface {
	Estimator
	Ultimate() *model.Triangle
}

// Step is one named stage of a pipeline.
type Step struct {
	Name  string
	Stage Estimator
}
