package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg)

	r.RecordRequest("POST", "/api/v1/onlevel", "200", 0.01)
	r.RecordRequest("POST", "/api/v1/onlevel", "200", 0.02)
	r.RecordRun("onlevel", "ok", 0.001, 11)
	r.RecordRun("reserve", "shape", 0.001, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.requests.WithLabelValues("POST", "/api/v1/onlevel", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("reserve", "shape")))

	var nilRec *Recorder
	assert.NotPanics(t, func() { nilRec.RecordRun("x", "ok", 0, 0) })
}
