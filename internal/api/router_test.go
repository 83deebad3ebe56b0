package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap/zaptest"

	"onlevel-reserving/internal/api/models"
	"onlevel-reserving/internal/data"
	"onlevel-reserving/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewRouter(Options{
		Logger:   zaptest.NewLogger(t),
		Metrics:  metrics.NewWithRegistry(reg),
		Gatherer: reg,
	})
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(v))
}

const tortEvents = `[{"date": "2006-01-01", "rate_change": -0.1067}, {"date": "2007-01-01", "rate_change": -0.25}]`

func TestHealthAndSamples(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/samples", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.SamplesResponse
	decode(t, w, &resp)
	names := []string{}
	for _, s := range resp.Samples {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"casualty_ay", "rate_history", "tort_reform"}, names)
}

func TestScheduleIndex(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/v1/schedule/index", `{
		"schedule": {"events": `+tortEvents+`},
		"from": "2005-01-01",
		"reference": "2008-12-31",
		"at": ["2005-06-30", "2006-06-30", "2008-06-30"]
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.IndexResponse
	decode(t, w, &resp)
	require.Len(t, resp.Segments, 3)
	require.Len(t, resp.Levels, 3)
	assert.InDelta(t, 1/(0.8933*0.75), resp.Levels[0].Level, 1e-9)
	assert.InDelta(t, 1/0.75, resp.Levels[1].Level, 1e-9)
	assert.InDelta(t, 1.0, resp.Levels[2].Level, 1e-12)
}

func TestScheduleIndexErrors(t *testing.T) {
	r := newTestRouter(t)
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed", `{`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"no schedule", `{"reference": "2008-12-31"}`, http.StatusBadRequest, "CONFIGURATION_ERROR"},
		{"bad event", `{"schedule": {"events": [{"date": "2006-01-01", "rate_change": -1}]}, "reference": "2008-12-31"}`, http.StatusUnprocessableEntity, "SCHEDULE_ERROR"},
		{"before origin", `{"schedule": {"events": ` + tortEvents + `}, "reference": "2008-12-31", "at": ["2004-01-01"]}`, http.StatusUnprocessableEntity, "DATE_RANGE_ERROR"},
		{"unknown sample", `{"schedule": {"sample": "nope"}, "reference": "2008-12-31"}`, http.StatusBadRequest, "CONFIGURATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/api/v1/schedule/index", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			var resp models.ErrorResponse
			decode(t, w, &resp)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestOnLevel(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/v1/onlevel", `{
		"sample": "casualty_ay",
		"column": "Incurred",
		"schedule": {"sample": "tort_reform"},
		"params": {"vertical_line": true}
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.OnLevelResponse
	decode(t, w, &resp)
	require.Len(t, resp.Factors, 11)
	assert.Equal(t, "2005", resp.Factors[7].Label)
	assert.InDelta(t, 0.669975, resp.Factors[7].Factor, 1e-6)
	require.NotNil(t, resp.Triangle)
	assert.Contains(t, resp.Triangle.Columns, "Incurred")
}

func TestOnLevelRejectsBadParams(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/v1/onlevel", `{
		"sample": "casualty_ay",
		"column": "Incurred",
		"schedule": {"sample": "tort_reform"},
		"params": {"basis": "written"}
	}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/api/v1/onlevel", `{
		"sample": "casualty_ay",
		"column": "Paid",
		"schedule": {"sample": "tort_reform"}
	}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

const reserveBody = `{
	"name": "api_run",
	"data": {"sample": "casualty_ay", "losses": "Incurred", "exposure": "Premium"},
	"schedules": {
		"tort_reform": {"events": ` + tortEvents + `},
		"rate_history": {"sample": "rate_history"}
	},
	"sample_weight": {"column": "Premium", "onlevel": {"schedule": "rate_history"}},
	"pipeline": [
		{"name": "olf", "kind": "parallelogram_olf", "params": {"schedule": "tort_reform", "vertical_line": true}},
		{"name": "dev", "kind": "development", "params": {"n_periods": 2}},
		{"name": "model", "kind": "cape_cod", "params": {"trend": 0.034}}
	]
}`

func TestReserveAndRuns(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/v1/reserve", reserveBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var run models.RunResponse
	decode(t, w, &run)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, "completed", run.Status)
	require.NotNil(t, run.Result)
	assert.Len(t, run.Result.Rows, 11)
	assert.Greater(t, run.Result.Totals.IBNR, 0.0)

	w = do(t, r, http.MethodGet, "/api/v1/runs/"+run.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var again models.RunResponse
	decode(t, w, &again)
	assert.Equal(t, run.ID, again.ID)

	w = do(t, r, http.MethodGet, "/api/v1/runs/"+run.ID+"/factors.csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "step,"), w.Body.String())
	assert.Contains(t, w.Body.String(), "olf,2005")

	w = do(t, r, http.MethodGet, "/api/v1/runs/"+run.ID+"/rows.csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "2008")

	w = do(t, r, http.MethodGet, "/api/v1/runs/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReserveRejectsFiles(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/v1/reserve", `{
		"data": {"file": "/etc/passwd"},
		"pipeline": [{"name": "dev", "kind": "development"}]
	}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp models.ErrorResponse
	decode(t, w, &resp)
	assert.Equal(t, "CONFIGURATION_ERROR", resp.Error.Code)
}

func TestReserveStageContract(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/v1/reserve", `{
		"data": {"sample": "casualty_ay"},
		"sample_weight": {"column": "Premium"},
		"pipeline": [
			{"name": "model", "kind": "cape_cod"},
			{"name": "dev", "kind": "development"}
		]
	}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp models.ErrorResponse
	decode(t, w, &resp)
	assert.Equal(t, "STAGE_CONTRACT_ERROR", resp.Error.Code)
	assert.Equal(t, "model", resp.Error.Details["stage"])
}

func TestMetricsAndCORS(t *testing.T) {
	r := newTestRouter(t)
	do(t, r, http.MethodGet, "/health", "")

	w := do(t, r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `onlevel_http_requests_total{method="GET",route="/health",status="200"} 1`)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/onlevel", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func upload(t *testing.T, r http.Handler, book []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "gl.xlsx")
	require.NoError(t, err)
	_, err = fw.Write(book)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/triangles/xlsx", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// xlsxBook writes each sheet starting at the row given by its offset.
func xlsxBook(t *testing.T, offset int, sheets ...string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	first := f.GetSheetName(0)
	rows := [][]any{
		{"origin", 12, 24},
		{"2007", 200, 280},
		{"2008", 300},
	}
	for _, name := range sheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1+offset)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	require.NoError(t, f.DeleteSheet(first))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestConvertXLSX(t *testing.T) {
	r := newTestRouter(t)
	w := upload(t, r, xlsxBook(t, 0, "Paid", "Incurred"), map[string]string{
		"grain":          "Y",
		"valuation_date": "2008-12-31",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var file data.TriangleFile
	decode(t, w, &file)
	assert.Equal(t, "gl", file.Name)
	assert.Equal(t, "2008-12-31", file.ValuationDate)
	assert.Equal(t, []string{"2007", "2008"}, file.Origins)
	assert.Equal(t, []int{12, 24}, file.Development)
	assert.Equal(t, []string{"Incurred", "Paid"}, file.ColumnNames())
	require.NotNil(t, file.Columns["Paid"][0][1])
	assert.Equal(t, 280.0, *file.Columns["Paid"][0][1])
	assert.Nil(t, file.Columns["Paid"][1][1])

	tris, err := file.Triangles()
	require.NoError(t, err)
	assert.Len(t, tris, 2)
}

func TestConvertXLSXErrors(t *testing.T) {
	r := newTestRouter(t)
	fields := map[string]string{"valuation_date": "2008-12-31"}

	// A blank first row leaves no header to read ages from.
	w := upload(t, r, xlsxBook(t, 1, "Paid"), fields)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp models.ErrorResponse
	decode(t, w, &resp)
	assert.Equal(t, "SHAPE_ERROR", resp.Error.Code)

	w = upload(t, r, []byte("not a workbook"), fields)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = upload(t, r, xlsxBook(t, 0, "Paid"), map[string]string{"valuation_date": "2008-12-31", "grain": "W"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, "CONFIGURATION_ERROR", resp.Error.Code)

	w = upload(t, r, xlsxBook(t, 0, "Paid"), map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/api/v1/triangles/xlsx", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
