package development

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onlevel-reserving/internal/model"
)

func sample() *model.Triangle {
	nan := math.NaN()
	var origins []model.Period
	for y := 2006; y <= 2008; y++ {
		origins = append(origins, model.NewPeriod(model.GrainYear, time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)))
	}
	return &model.Triangle{
		Name:          "Incurred",
		Grain:         model.GrainYear,
		ValuationDate: time.Date(2008, 12, 31, 0, 0, 0, 0, time.UTC),
		Origins:       origins,
		Ages:          []int{12, 24, 36},
		Values: [][]float64{
			{100, 150, 165},
			{200, 280, nan},
			{300, nan, nan},
		},
	}
}

func TestVolumeWeightedFactors(t *testing.T) {
	d := New(Params{}, nil)
	require.NoError(t, d.Fit(sample(), nil, nil))

	ldf := d.LDF()
	assert.InDelta(t, 430.0/300, ldf[0], 1e-12)
	assert.InDelta(t, 1.1, ldf[1], 1e-12)
	assert.Equal(t, 1.0, ldf[2])

	cdf := d.CDF()
	assert.InDelta(t, 430.0/300*1.1, cdf[0], 1e-12)
	assert.InDelta(t, 1.1, cdf[1], 1e-12)
	assert.Equal(t, 1.0, cdf[2])
	assert.Equal(t, []int{12, 24, 36}, d.Ages())
}

func TestNPeriodsUsesLatestOrigins(t *testing.T) {
	d := New(Params{NPeriods: 1, Tail: 1.05}, nil)
	require.NoError(t, d.Fit(sample(), nil, nil))
	ldf := d.LDF()
	assert.InDelta(t, 1.4, ldf[0], 1e-12)
	assert.Equal(t, 1.05, ldf[2])
	assert.InDelta(t, 1.05, d.CDF()[2], 1e-12)

	all := New(Params{NPeriods: -1}, nil)
	require.NoError(t, all.Fit(sample(), nil, nil))
	assert.InDelta(t, 430.0/300, all.LDF()[0], 1e-12)
}

func TestTransformAttachesPattern(t *testing.T) {
	tri := sample()
	d := New(Params{}, nil)

	_, err := d.Transform(tri)
	assert.ErrorIs(t, err, model.ErrConfiguration)

	require.NoError(t, d.Fit(tri, nil, nil))
	out, err := d.Transform(tri)
	require.NoError(t, err)
	assert.Equal(t, d.CDF(), out.CDF)
	assert.Nil(t, tri.CDF)

	short := tri.Clone()
	short.Ages = short.Ages[:2]
	for i := range short.Values {
		short.Values[i] = short.Values[i][:2]
	}
	_, err = d.Transform(short)
	assert.ErrorIs(t, err, model.ErrShape)
}

func TestFitErrors(t *testing.T) {
	vec := model.NewVector("Paid", model.GrainYear, time.Now(), sample().Origins, []float64{1, 2, 3})
	assert.ErrorIs(t, New(Params{}, nil).Fit(vec, nil, nil), model.ErrShape)
	assert.ErrorIs(t, New(Params{Tail: -1}, nil).Fit(sample(), nil, nil), model.ErrConfiguration)

	empty := sample()
	empty.Values[0][1] = math.NaN()
	empty.Values[0][2] = math.NaN()
	empty.Values[1][1] = math.NaN()
	assert.ErrorIs(t, New(Params{}, nil).Fit(empty, nil, nil), model.ErrShape)
}
