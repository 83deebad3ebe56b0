package model

// ReservingInputs bundles the triangles a reserving run consumes once they are
// loaded: the loss triangle the pipeline fits on, and the exposure (premium)
// series used as the sample weight of the terminal estimator.
type ReservingInputs struct {
	Losses   *Triangle
	Exposure *Triangle
}
