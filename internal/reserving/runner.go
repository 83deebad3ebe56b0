// Package reserving runs configured reserving pipelines end to end and
// collects their report.
package reserving

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"onlevel-reserving/internal/config"
	"onlevel-reserving/internal/development"
	"onlevel-reserving/internal/methods"
	"onlevel-reserving/internal/metrics"
	"onlevel-reserving/internal/model"
	"onlevel-reserving/internal/onlevel"
	"onlevel-reserving/internal/pipeline"
	"onlevel-reserving/internal/ratelevel"
	"onlevel-reserving/internal/report"
)

// SampleWeightStep names the factor table of the sample-weight on-leveling.
const SampleWeightStep = "sample_weight"

type Runner struct {
	logger  *zap.Logger
	metrics *metrics.Recorder
}

// New returns a Runner. Both arguments may be nil.
func New(logger *zap.Logger, rec *metrics.Recorder) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger, metrics: rec}
}

// Reserve loads the configured data, fits the pipeline and reports the
// terminal projection.
func (r *Runner) Reserve(cfg *config.Config) (res *report.Result, err error) {
	start := time.Now()
	origins := 0
	defer func() { r.record("reserve", start, origins, err) }()

	log := r.logger.With(zap.String("run", cfg.Name))
	schedules, err := cfg.LoadSchedules()
	if err != nil {
		return nil, err
	}
	in, err := cfg.LoadInputs()
	if err != nil {
		return nil, err
	}
	origins = len(in.Losses.Origins)

	w, wFactors, err := cfg.BuildSampleWeight(in, schedules, log)
	if err != nil {
		return nil, err
	}
	p, err := cfg.BuildPipeline(schedules, log)
	if err != nil {
		return nil, err
	}
	if err := p.Fit(in.Losses, nil, w); err != nil {
		return nil, err
	}

	res, err = Summarize(p, in.Losses)
	if err != nil {
		return nil, err
	}
	res.Name = cfg.Name
	if wFactors != nil {
		res.Factors = append(res.Factors, report.FactorTable{Step: SampleWeightStep, Factors: wFactors})
	}
	log.Info("reserving run complete",
		zap.Int("origins", origins),
		zap.Int("steps", len(p.Steps())),
		zap.String("ultimate", report.FormatAmount(res.Totals.Ultimate)),
		zap.String("ibnr", report.FormatAmount(res.Totals.IBNR)),
	)
	return res, nil
}

// Summarize reads the fitted state of every stage into a report. X is the
// untransformed loss triangle the pipeline was fitted on.
func Summarize(p *pipeline.Pipeline, X *model.Triangle) (*report.Result, error) {
	res := &report.Result{
		CreatedAt:     time.Now().UTC(),
		ValuationDate: X.ValuationDate,
	}
	for _, s := range p.Steps() {
		switch st := s.Stage.(type) {
		case *onlevel.ParallelogramOLF:
			res.Factors = append(res.Factors, report.FactorTable{Step: s.Name, Factors: st.Factors()})
		case *development.Development:
			res.Development = &report.Pattern{Ages: st.Ages(), LDF: st.LDF(), CDF: st.CDF()}
		}
	}

	leveled, err := p.Transform(X)
	if err != nil {
		return nil, err
	}
	raw := X.LatestDiagonal().Vector()
	lev := leveled.LatestDiagonal().Vector()
	rows := make([]report.OriginRow, len(X.Origins))
	for i, o := range X.Origins {
		rows[i] = report.OriginRow{Origin: o.Label, Latest: raw[i], OnLevelLatest: lev[i]}
		if leveled.CDF != nil {
			if j := leveled.LatestIndex(i); j >= 0 {
				rows[i].CDF = leveled.CDF[j]
			}
		}
	}

	ult, err := p.Ultimate()
	if err != nil {
		return nil, err
	}
	u := ult.Vector()
	for i := range rows {
		rows[i].Ultimate = u[i]
		rows[i].IBNR = u[i] - lev[i]
	}
	term := p.Steps()[len(p.Steps())-1]
	if cc, ok := term.Stage.(*methods.CapeCod); ok {
		exp, elr, apr := cc.Exposure(), cc.ELR(), cc.Apriori()
		for i := range rows {
			rows[i].Exposure, rows[i].ELR, rows[i].Apriori = exp[i], elr[i], apr[i]
		}
	}
	res.Rows = rows
	res.Totals = report.Total(rows)
	return res, nil
}

// OnLevel fits a standalone on-level stage on X and returns the transformed
// copy with its factors.
func (r *Runner) OnLevel(s *ratelevel.Schedule, X *model.Triangle, params onlevel.Params) (out *model.Triangle, factors []onlevel.Factor, err error) {
	start := time.Now()
	defer func() { r.record("onlevel", start, len(factors), err) }()

	olf := onlevel.New(s, params, r.logger)
	out, err = olf.FitTransform(X, nil)
	if err != nil {
		return nil, nil, err
	}
	return out, olf.Factors(), nil
}

func (r *Runner) record(kind string, start time.Time, origins int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(model.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
		r.logger.Warn(fmt.Sprintf("%s run failed", kind), zap.Error(err))
	}
	r.metrics.RecordRun(kind, outcome, time.Since(start).Seconds(), origins)
}
