package models

import (
	"time"

	"onlevel-reserving/internal/data"
	"onlevel-reserving/internal/onlevel"
	"onlevel-reserving/internal/ratelevel"
	"onlevel-reserving/internal/report"
)

// IndexResponse is the fitted level index
type IndexResponse struct {
	Origin    time.Time           `json:"origin"`
	Reference time.Time           `json:"reference"`
	Segments  []ratelevel.Segment `json:"segments"`
	Levels    []LevelPoint        `json:"levels,omitempty"`
}

// LevelPoint is the index level on one requested date
type LevelPoint struct {
	Date  string  `json:"date"`
	Level float64 `json:"level"`
}

// OnLevelResponse carries the per-origin factors and the restated triangle
type OnLevelResponse struct {
	Factors  []onlevel.Factor   `json:"factors"`
	Triangle *data.TriangleFile `json:"triangle"`
}

// RunResponse is the result of a reserving run
type RunResponse struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Result *report.Result `json:"result"`
}

// SamplesResponse lists the bundled datasets
type SamplesResponse struct {
	Samples []data.Sample `json:"samples"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
