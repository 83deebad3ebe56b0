package models

import (
	"onlevel-reserving/internal/config"
	"onlevel-reserving/internal/data"
)

// IndexRequest represents the request body for building a rate level index
type IndexRequest struct {
	Schedule      ScheduleSource `json:"schedule"`
	From          string         `json:"from,omitempty"` // default: first event
	Reference     string         `json:"reference" binding:"required"`
	Extrapolation string         `json:"extrapolation,omitempty"` // "error" (default) or "clamp"
	At            []string       `json:"at,omitempty"`            // dates to evaluate the level at
}

// ScheduleSource is either inline events or a bundled sample name
type ScheduleSource struct {
	Sample string           `json:"sample,omitempty"`
	Events []data.EventJSON `json:"events,omitempty"`
}

// OnLevelRequest represents the request body for on-leveling a triangle
type OnLevelRequest struct {
	Triangle *data.TriangleFile     `json:"triangle,omitempty"`
	Sample   string                 `json:"sample,omitempty"`
	Column   string                 `json:"column" binding:"required"`
	Schedule ScheduleSource         `json:"schedule"`
	Params   map[string]interface{} `json:"params,omitempty"` // parallelogram_olf step params
}

// ReserveRequest is a full run configuration, the JSON form of the YAML
// config file. File sources are rejected over HTTP.
type ReserveRequest = config.Config
