package onlevel

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onlevel-reserving/internal/model"
	"onlevel-reserving/internal/pipeline"
	"onlevel-reserving/internal/ratelevel"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func schedule(t *testing.T, first int, changes ...float64) *ratelevel.Schedule {
	t.Helper()
	events := make([]ratelevel.Event, len(changes))
	for i, c := range changes {
		events[i] = ratelevel.Event{Date: date(first+i, 1, 1), RateChange: c}
	}
	s, err := ratelevel.NewScheduleFromEvents(events)
	require.NoError(t, err)
	return s
}

func tortReform(t *testing.T) *ratelevel.Schedule {
	return schedule(t, 2006, -0.1067, -0.25)
}

func rateHistory(t *testing.T) *ratelevel.Schedule {
	return schedule(t, 1999, .02, .02, .02, .02, .05, .075, .15, .1, -.2, -.2)
}

func years(from, to int) []model.Period {
	var out []model.Period
	for y := from; y <= to; y++ {
		out = append(out, model.NewPeriod(model.GrainYear, date(y, 1, 1)))
	}
	return out
}

// lossTriangle is an annual triangle with 12-month development steps.
func lossTriangle(from, to int) *model.Triangle {
	origins := years(from, to)
	n := len(origins)
	ages := make([]int, n)
	for j := range ages {
		ages[j] = 12 * (j + 1)
	}
	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
		for j := range values[i] {
			if i+j >= n {
				values[i][j] = math.NaN()
				continue
			}
			values[i][j] = 1000 + 100*float64(i) + 250*float64(j)
		}
	}
	return &model.Triangle{
		Name:          "Incurred",
		Grain:         model.GrainYear,
		ValuationDate: date(to, 12, 31),
		Origins:       origins,
		Ages:          ages,
		Values:        values,
	}
}

func factorOf(t *testing.T, o *ParallelogramOLF, label string) Factor {
	t.Helper()
	for _, f := range o.Factors() {
		if f.Label == label {
			return f
		}
	}
	t.Fatalf("no factor for %s", label)
	return Factor{}
}

func TestTortReformVerticalLine(t *testing.T) {
	o := New(tortReform(t), Params{VerticalLine: true}, nil)
	require.NoError(t, o.Fit(lossTriangle(2004, 2008), nil, nil))

	f05 := factorOf(t, o, "2005")
	assert.InDelta(t, 0.6700, f05.Factor, 5e-5)
	assert.InDelta(t, (1-0.1067)*(1-0.25), f05.Factor, 1e-12)
	assert.InDelta(t, 1.4925, f05.AverageLevel, 1e-4)

	assert.InDelta(t, 0.75, factorOf(t, o, "2006").Factor, 1e-12)
	// origins entirely in the current segment need no adjustment
	assert.InDelta(t, 1.0, factorOf(t, o, "2007").Factor, 1e-12)
	assert.InDelta(t, 1.0, factorOf(t, o, "2008").Factor, 1e-12)
}

func TestPolicyYearStraddlesChange(t *testing.T) {
	s := rateHistory(t)
	o := New(s, Params{}, nil)
	require.NoError(t, o.FitOrigins(years(2000, 2008), date(2008, 12, 31)))

	ix := o.Index()
	l2000, err := ix.LevelAt(date(2000, 1, 1))
	require.NoError(t, err)
	l2001, err := ix.LevelAt(date(2001, 1, 1))
	require.NoError(t, err)

	avg := factorOf(t, o, "2000").AverageLevel
	assert.Greater(t, avg, math.Min(l2000, l2001))
	assert.Less(t, avg, math.Max(l2000, l2001))
	// policies written through 2000 spend equal exposure either side of 2001-01-01
	assert.InDelta(t, (l2000+l2001)/2, avg, 1e-12)
}

func TestParallelogramWithoutInnerChangeMatchesVertical(t *testing.T) {
	s := tortReform(t)
	vertical := New(s, Params{VerticalLine: true}, nil)
	require.NoError(t, vertical.FitOrigins(years(2002, 2005), date(2008, 12, 31)))

	// policy basis: no change in [s, e+T)
	policy := New(s, Params{Basis: BasisPolicy}, nil)
	require.NoError(t, policy.FitOrigins(years(2002, 2004), date(2008, 12, 31)))
	for _, label := range []string{"2002", "2003", "2004"} {
		assert.InDelta(t, factorOf(t, vertical, label).Factor, factorOf(t, policy, label).Factor, 1e-12, label)
	}

	// calendar basis: no change in [s-T, e)
	cal := New(s, Params{Basis: BasisCalendar}, nil)
	require.NoError(t, cal.FitOrigins(years(2003, 2005), date(2008, 12, 31)))
	for _, label := range []string{"2003", "2004", "2005"} {
		assert.InDelta(t, factorOf(t, vertical, label).Factor, factorOf(t, cal, label).Factor, 1e-12, label)
	}
}

func TestCalendarBasisSplitsAcrossChange(t *testing.T) {
	o := New(tortReform(t), Params{Basis: BasisCalendar}, nil)
	require.NoError(t, o.FitOrigins(years(2006, 2006), date(2008, 12, 31)))

	want := (1/((1-0.1067)*0.75) + 1/0.75) / 2
	assert.InDelta(t, want, factorOf(t, o, "2006").AverageLevel, 1e-12)
}

func TestTransformIsPureAndInvertible(t *testing.T) {
	o := New(rateHistory(t), Params{}, nil)
	tri := lossTriangle(2000, 2008)
	orig := tri.Clone()

	out, err := o.FitTransform(tri, nil)
	require.NoError(t, err)
	again, err := o.Transform(tri)
	require.NoError(t, err)

	assert.Equal(t, orig.Values, tri.Values, "input mutated")
	assert.Equal(t, out.Values, again.Values)

	inv := make([]float64, len(o.Factors()))
	for i, f := range o.Factors() {
		inv[i] = 1 / f.Factor
	}
	back := out.Scale(inv)
	for i := range tri.Values {
		for j, v := range tri.Values[i] {
			if math.IsNaN(v) {
				assert.True(t, math.IsNaN(back.Values[i][j]))
				continue
			}
			assert.InDelta(t, v, back.Values[i][j], 1e-9)
		}
	}
}

func TestOnlyLatestDiagonal(t *testing.T) {
	o := New(tortReform(t), Params{VerticalLine: true, OnlyLatestDiagonal: true}, nil)
	tri := lossTriangle(2004, 2008)
	out, err := o.FitTransform(tri, nil)
	require.NoError(t, err)

	f := factorOf(t, o, "2005").Factor
	i, _ := tri.OriginIndex("2005")
	j := tri.LatestIndex(i)
	assert.InDelta(t, tri.Values[i][j]*f, out.Values[i][j], 1e-9)
	assert.Equal(t, tri.Values[i][0], out.Values[i][0])
}

func TestWorkersDoNotChangeResult(t *testing.T) {
	s := rateHistory(t)
	serial := New(s, Params{Workers: 1}, nil)
	parallel := New(s, Params{Workers: 4}, nil)
	require.NoError(t, serial.FitOrigins(years(1999, 2008), date(2008, 12, 31)))
	require.NoError(t, parallel.FitOrigins(years(1999, 2008), date(2008, 12, 31)))
	assert.Equal(t, serial.Factors(), parallel.Factors())
}

func TestTransformWeight(t *testing.T) {
	s := tortReform(t)
	premium := model.NewVector("Premium", model.GrainYear, date(2008, 12, 31), years(2004, 2008),
		[]float64{100, 100, 100, 100, 100})

	plain := New(s, Params{VerticalLine: true}, nil)
	assert.Equal(t, pipeline.CapTransform, plain.Capabilities())
	require.NoError(t, plain.Fit(premium, nil, nil))
	w, err := plain.TransformWeight(premium)
	require.NoError(t, err)
	assert.Same(t, premium, w)

	leveled := New(s, Params{VerticalLine: true, LevelSampleWeight: true}, nil)
	assert.True(t, leveled.Capabilities().Has(pipeline.CapTransformsWeight))
	require.NoError(t, leveled.Fit(premium, nil, nil))
	w, err = leveled.TransformWeight(premium)
	require.NoError(t, err)
	assert.InDelta(t, 75.0, w.Vector()[2], 1e-9)
	assert.Equal(t, 100.0, premium.Vector()[2])
}

func TestErrors(t *testing.T) {
	s := tortReform(t)
	tri := lossTriangle(2004, 2008)

	_, err := New(s, Params{}, nil).Transform(tri)
	assert.ErrorIs(t, err, model.ErrConfiguration, "not fitted")

	o := New(s, Params{}, nil)
	require.NoError(t, o.FitOrigins(years(2005, 2006), date(2008, 12, 31)))
	_, err = o.Transform(tri)
	assert.ErrorIs(t, err, model.ErrShape, "unknown origin")

	assert.ErrorIs(t, o.FitOrigins(nil, date(2008, 12, 31)), model.ErrShape)
	// failed fit keeps the previous factors
	assert.Len(t, o.Factors(), 2)

	bad := years(2005, 2005)
	bad[0].End = bad[0].Start
	assert.ErrorIs(t, o.FitOrigins(bad, date(2008, 12, 31)), model.ErrConfiguration)

	assert.ErrorIs(t, New(s, Params{TermMonths: -6}, nil).FitOrigins(years(2005, 2005), date(2008, 12, 31)), model.ErrConfiguration)
	assert.ErrorIs(t, New(s, Params{Basis: "written"}, nil).FitOrigins(years(2005, 2005), date(2008, 12, 31)), model.ErrConfiguration)
	assert.ErrorIs(t, New(nil, Params{}, nil).FitOrigins(years(2005, 2005), date(2008, 12, 31)), model.ErrConfiguration)
}

func TestShortTermQuarterlyOrigins(t *testing.T) {
	// six-month policies: a quarter written just before a change is fully
	// earned within two quarters, so the factor moves toward the new level
	s, err := ratelevel.NewScheduleFromEvents([]ratelevel.Event{{Date: date(2006, 1, 1), RateChange: 0.1}})
	require.NoError(t, err)
	origins := []model.Period{
		model.NewPeriod(model.GrainQuarter, date(2005, 4, 1)),
		model.NewPeriod(model.GrainQuarter, date(2005, 10, 1)),
		model.NewPeriod(model.GrainQuarter, date(2006, 1, 1)),
	}
	o := New(s, Params{TermMonths: 6}, nil)
	require.NoError(t, o.FitOrigins(origins, date(2006, 12, 31)))

	assert.InDelta(t, 1.1, factorOf(t, o, "2005Q2").Factor, 1e-12)
	assert.InDelta(t, 1.0, factorOf(t, o, "2006Q1").Factor, 1e-12)
	q4 := factorOf(t, o, "2005Q4").Factor
	assert.Greater(t, q4, 1.0)
	assert.Less(t, q4, 1.1)
}

func TestCalendarBasisLeapYearQuarters(t *testing.T) {
	s, err := ratelevel.NewScheduleFromEvents([]ratelevel.Event{{Date: date(2005, 1, 1), RateChange: 0.1}})
	require.NoError(t, err)
	origins := []model.Period{
		model.NewPeriod(model.GrainQuarter, date(2004, 4, 1)),
		model.NewPeriod(model.GrainQuarter, date(2004, 7, 1)),
		model.NewPeriod(model.GrainQuarter, date(2005, 4, 1)),
	}

	o := New(s, Params{Basis: BasisCalendar}, nil)
	require.NoError(t, o.FitOrigins(origins, date(2006, 12, 31)))
	assert.False(t, o.Index().Origin().After(date(2003, 4, 1)))

	// everything earned in 2004 was written before the change
	assert.InDelta(t, 1.1, factorOf(t, o, "2004Q2").Factor, 1e-12)
	assert.InDelta(t, 1.1, factorOf(t, o, "2004Q3").Factor, 1e-12)
	q := factorOf(t, o, "2005Q2").Factor
	assert.Greater(t, q, 1.0)
	assert.Less(t, q, 1.1)
}

func TestCalendarBasisLeapYearMonths(t *testing.T) {
	s, err := ratelevel.NewScheduleFromEvents([]ratelevel.Event{{Date: date(2009, 1, 1), RateChange: -0.05}})
	require.NoError(t, err)
	var origins []model.Period
	for m := time.March; m <= time.December; m++ {
		origins = append(origins, model.NewPeriod(model.GrainMonth, date(2008, m, 1)))
	}
	for _, months := range []int{6, 12} {
		o := New(s, Params{Basis: BasisCalendar, TermMonths: months}, nil)
		require.NoError(t, o.FitOrigins(origins, date(2009, 12, 31)), "term %d", months)
		for _, f := range o.Factors() {
			assert.InDelta(t, 0.95, f.Factor, 1e-12, f.Label)
		}
	}
}
