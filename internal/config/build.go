package config

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"onlevel-reserving/internal/data"
	"onlevel-reserving/internal/development"
	"onlevel-reserving/internal/methods"
	"onlevel-reserving/internal/model"
	"onlevel-reserving/internal/onlevel"
	"onlevel-reserving/internal/pipeline"
	"onlevel-reserving/internal/ratelevel"
)

// Step kinds.
const (
	KindParallelogramOLF = "parallelogram_olf"
	KindDevelopment      = "development"
	KindCapeCod          = "cape_cod"
)

// LoadInputs reads the loss triangle and, when configured, the exposure.
func (c *Config) LoadInputs() (*model.ReservingInputs, error) {
	var (
		tris map[string]*model.Triangle
		err  error
	)
	switch {
	case c.Data.Triangles != nil:
		tris, err = c.Data.Triangles.Triangles()
	case c.Data.Sample != "":
		tris, err = data.SampleTriangles(c.Data.Sample)
	case strings.HasSuffix(strings.ToLower(c.Data.File), ".xlsx"):
		grain, gerr := model.ParseGrain(c.Data.Grain)
		if gerr != nil {
			return nil, gerr
		}
		valuation, verr := ratelevel.ParseDate(c.Data.ValuationDate)
		if verr != nil {
			return nil, model.ConfigurationError("data.valuation_date", "%v", verr)
		}
		tris, err = data.LoadTrianglesXLSX(c.Resolve(c.Data.File), grain, valuation)
	default:
		tris, err = data.LoadTrianglesJSON(c.Resolve(c.Data.File))
	}
	if err != nil {
		return nil, err
	}

	in := &model.ReservingInputs{}
	if in.Losses, err = column(tris, c.Data.Losses); err != nil {
		return nil, err
	}
	name := c.Data.Exposure
	if name == "" && c.SampleWeight != nil {
		name = c.SampleWeight.Column
	}
	if name != "" {
		if in.Exposure, err = column(tris, name); err != nil {
			return nil, err
		}
	}
	return in, nil
}

func column(tris map[string]*model.Triangle, name string) (*model.Triangle, error) {
	t, ok := tris[name]
	if !ok {
		names := make([]string, 0, len(tris))
		for n := range tris {
			names = append(names, n)
		}
		return nil, model.ConfigurationError("data", "column %q not found, have %v", name, names)
	}
	return t, nil
}

// LoadSchedules parses every configured rate history.
func (c *Config) LoadSchedules() (map[string]*ratelevel.Schedule, error) {
	out := make(map[string]*ratelevel.Schedule, len(c.Schedules))
	for name, sc := range c.Schedules {
		var (
			s   *ratelevel.Schedule
			err error
		)
		switch {
		case len(sc.Events) > 0:
			s, err = data.ScheduleFromEvents(sc.Events)
		case sc.Sample != "":
			s, err = data.SampleSchedule(sc.Sample)
		case strings.HasSuffix(strings.ToLower(sc.File), ".xlsx"):
			s, err = data.LoadScheduleXLSX(c.Resolve(sc.File), sc.Sheet, sc.DateCol, sc.ChangeCol)
		default:
			s, err = data.LoadSchedule(c.Resolve(sc.File), sc.DateCol, sc.ChangeCol)
		}
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}

// BuildPipeline constructs the configured steps.
func (c *Config) BuildPipeline(schedules map[string]*ratelevel.Schedule, logger *zap.Logger) (*pipeline.Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	steps := make([]pipeline.Step, 0, len(c.Pipeline))
	for _, sc := range c.Pipeline {
		stage, err := BuildStage(sc, schedules, logger.With(zap.String("stage", sc.Name)))
		if err != nil {
			return nil, err
		}
		steps = append(steps, pipeline.Step{Name: sc.Name, Stage: stage})
	}
	return pipeline.New(steps, pipeline.WithLogger(logger))
}

// BuildStage turns one step definition into an estimator.
func BuildStage(sc StepConfig, schedules map[string]*ratelevel.Schedule, logger *zap.Logger) (pipeline.Estimator, error) {
	p := sc.Params
	switch sc.Kind {
	case KindParallelogramOLF:
		name := mustStr(p, "schedule", "")
		s, ok := schedules[name]
		if !ok {
			return nil, model.ConfigurationError(sc.Name, "unknown schedule %q", name)
		}
		params, err := OnLevelParams(p)
		if err != nil {
			return nil, err
		}
		return onlevel.New(s, params, logger), nil
	case KindDevelopment:
		return development.New(development.Params{
			NPeriods: int(mustNum(p, "n_periods", -1)),
			Tail:     mustNum(p, "tail", 1),
		}, logger), nil
	case KindCapeCod:
		decay := mustNum(p, "decay", 1)
		if decay <= 0 || decay > 1 {
			return nil, model.ConfigurationError(sc.Name, "decay must be in (0, 1], got %v", decay)
		}
		return methods.NewCapeCod(methods.CapeCodParams{
			Trend: mustNum(p, "trend", 0),
			Decay: decay,
		}, logger), nil
	default:
		return nil, model.ConfigurationError(sc.Name, "unsupported step kind %q", sc.Kind)
	}
}

// OnLevelParams reads parallelogram_olf step params.
func OnLevelParams(p map[string]any) (onlevel.Params, error) {
	basis, err := onlevel.ParseBasis(mustStr(p, "basis", string(onlevel.BasisPolicy)))
	if err != nil {
		return onlevel.Params{}, err
	}
	ext, err := ratelevel.ParseExtrapolation(mustStr(p, "extrapolation", string(ratelevel.ExtrapolateError)))
	if err != nil {
		return onlevel.Params{}, err
	}
	out := onlevel.Params{
		VerticalLine:       mustBool(p, "vertical_line", false),
		TermMonths:         int(mustNum(p, "term_months", 12)),
		Basis:              basis,
		LevelSampleWeight:  mustBool(p, "level_sample_weight", false),
		OnlyLatestDiagonal: mustBool(p, "only_latest_diagonal", false),
		Extrapolation:      ext,
		Workers:            int(mustNum(p, "workers", 0)),
	}
	if ref := mustStr(p, "reference", ""); ref != "" {
		d, err := ratelevel.ParseDate(ref)
		if err != nil {
			return onlevel.Params{}, model.ConfigurationError("reference", "%v", err)
		}
		out.Reference = d
	}
	if out.TermMonths <= 0 {
		return onlevel.Params{}, model.ConfigurationError("term_months", "term must be positive, got %d", out.TermMonths)
	}
	return out, nil
}

// BuildSampleWeight returns the weight handed to the pipeline: the latest
// diagonal of the configured column, on-leveled when requested. The factor
// table is nil unless on-leveling ran.
func (c *Config) BuildSampleWeight(in *model.ReservingInputs, schedules map[string]*ratelevel.Schedule, logger *zap.Logger) (*model.Triangle, []onlevel.Factor, error) {
	sw := c.SampleWeight
	if sw == nil {
		return nil, nil, nil
	}
	if in.Exposure == nil {
		return nil, nil, model.ConfigurationError("sample_weight.column", "exposure %q was not loaded", sw.Column)
	}
	w := in.Exposure.LatestDiagonal()
	if sw.OnLevel == nil {
		return w, nil, nil
	}
	s, ok := schedules[sw.OnLevel.Schedule]
	if !ok {
		return nil, nil, model.ConfigurationError("sample_weight.onlevel.schedule", "unknown schedule %q", sw.OnLevel.Schedule)
	}
	basis, err := onlevel.ParseBasis(sw.OnLevel.Basis)
	if err != nil {
		return nil, nil, err
	}
	olf := onlevel.New(s, onlevel.Params{
		VerticalLine: sw.OnLevel.VerticalLine,
		TermMonths:   sw.OnLevel.TermMonths,
		Basis:        basis,
	}, logger)
	leveled, err := olf.FitTransform(w, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("on-level sample weight: %w", err)
	}
	return leveled, olf.Factors(), nil
}

// mustNum reads a number from decoded YAML or JSON params.
func mustNum(m map[string]any, key string, def float64) float64 {
	if v, ok := m[key]; ok && v != nil {
		switch x := v.(type) {
		case float64:
			return x
		case int:
			return float64(x)
		case int64:
			return float64(x)
		}
	}
	return def
}

func mustStr(m map[string]any, key string, def string) string {
	if v, ok := m[key]; ok && v != nil {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return def
}

func mustBool(m map[string]any, key string, def bool) bool {
	if v, ok := m[key]; ok && v != nil {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}
