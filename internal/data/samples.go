package data

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"onlevel-reserving/internal/model"
	"onlevel-reserving/internal/ratelevel"
)

//go:embed samples/*
var samplesFS embed.FS

// Sample describes one bundled dataset.
type Sample struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"` // "triangle" or "schedule"
	File        string `json:"file"`
	Description string `json:"description"`
}

var sampleCatalog = map[string]Sample{
	"casualty_ay": {
		Kind:        "triangle",
		File:        "casualty_ay.json",
		Description: "Annual accident-year Incurred and Premium, 1998-2008, valued 2008-12-31",
	},
	"tort_reform": {
		Kind:        "schedule",
		File:        "tort_reform.csv",
		Description: "Loss cost level changes from tort reform: -10.67% 2006, -25% 2007",
	},
	"rate_history": {
		Kind:        "schedule",
		File:        "rate_history.csv",
		Description: "Ten annual premium rate changes effective each January 1, 1999-2008",
	},
}

// Samples lists the bundled datasets sorted by name.
func Samples() []Sample {
	out := make([]Sample, 0, len(sampleCatalog))
	for name, s := range sampleCatalog {
		s.Name = name
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func lookupSample(name, kind string) (Sample, []byte, error) {
	s, ok := sampleCatalog[strings.TrimSpace(name)]
	if !ok {
		return Sample{}, nil, model.ConfigurationError("sample", "unknown sample %q", name)
	}
	if s.Kind != kind {
		return Sample{}, nil, model.ConfigurationError("sample", "sample %q is a %s, not a %s", name, s.Kind, kind)
	}
	raw, err := samplesFS.ReadFile(path.Join("samples", s.File))
	if err != nil {
		return Sample{}, nil, fmt.Errorf("read sample %s: %w", name, err)
	}
	return s, raw, nil
}

// SampleTriangles loads a bundled triangle set, keyed by column.
func SampleTriangles(name string) (map[string]*model.Triangle, error) {
	_, raw, err := lookupSample(name, "triangle")
	if err != nil {
		return nil, err
	}
	return DecodeTriangles(bytes.NewReader(raw))
}

// SampleSchedule loads a bundled rate history.
func SampleSchedule(name string) (*ratelevel.Schedule, error) {
	_, raw, err := lookupSample(name, "schedule")
	if err != nil {
		return nil, err
	}
	return ReadScheduleCSV(bytes.NewReader(raw), DefaultDateCol, DefaultChangeCol)
}
