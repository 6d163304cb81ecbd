package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"porosity/internal/errors"
	"porosity/internal/metrics"
	"porosity/internal/porestats"
)

func newTestServer() *Server {
	reg := prometheus.NewRegistry()
	return NewServer(Config{
		Thresholds: porestats.DefaultThresholds(),
		Metrics:    metrics.NewWithRegistry(reg),
		Gatherer:   reg,
	})
}

func post(t *testing.T, s *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

const scenarioBody = `{
	"sample_id": "P001_B001_A01",
	"part_volume": 1000,
	"pores": [
		{"x": 0, "y": 0, "z": 0, "volume": 1},
		{"x": 1, "y": 0, "z": 0, "volume": 1},
		{"x": 0, "y": 0, "z": 10, "volume": 8}
	]
}`

func TestCompute_Scenario(t *testing.T) {
	s := newTestServer()
	rec := post(t, s, "/api/v1/porosity", scenarioBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ComputeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Metrics.PoreCount)
	require.NotNil(t, resp.Metrics.MaxDiameter)
	assert.InDelta(t, 2.4814, *resp.Metrics.MaxDiameter, 1e-4)
	assert.Equal(t, []float64{1, 1, 10}, resp.Metrics.NeighborDistances)
	require.NotNil(t, resp.Metrics.FractionPorosity)
	assert.InDelta(t, 0.01, *resp.Metrics.FractionPorosity, 1e-12)
	assert.Equal(t, porestats.WarningGreen, resp.Metrics.SizeWarning)

	id, ok := resp.Record.SampleID()
	require.True(t, ok)
	assert.Equal(t, "P001_B001_A01", id.String())
	_, ok = resp.Record.Property(porestats.PropCenterOfMassZ)
	assert.True(t, ok)
}

func TestCompute_EngineErrorIs422(t *testing.T) {
	s := newTestServer()
	rec := post(t, s, "/api/v1/porosity", `{"sample_id":"S1","pores":[{"x":0,"y":0,"z":0,"volume":5}]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Code    string                 `json:"code"`
		Partial map[string]interface{} `json:"partial"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, errors.CodeInvalidInput, resp.Code)
	assert.Contains(t, resp.Partial, "max_diameter", "metrics that succeeded are returned")
}

func TestCompute_BadRequests(t *testing.T) {
	s := newTestServer()

	rec := post(t, s, "/api/v1/porosity", `{"sample_id":"S1","pores":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), errors.CodeValidationError)

	rec = post(t, s, "/api/v1/porosity", `{"pores":[{"volume":1}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = post(t, s, "/api/v1/porosity", `not json`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestClassify(t *testing.T) {
	s := newTestServer()
	body := `{"ids":[{"name":"Sample ID","value":"S1"}],"properties":[
		{"name":"max pore diameter","scalars":{"value":150}},
		{"name":"median pore diameter","scalars":{"value":30}}
	]}`
	rec := post(t, s, "/api/v1/porosity/classify", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ClassifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Properties, 3)
	warning, _ := resp.Properties[0].Scalars.Text()
	assert.Equal(t, "YELLOW", warning)
	class, _ := resp.Properties[2].Scalars.Text()
	assert.Equal(t, "COARSE", class)

	rec = post(t, s, "/api/v1/porosity/classify", `{"ids":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"properties":[]}`, rec.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer()
	post(t, s, "/api/v1/porosity", scenarioBody)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.Contains(rec.Body.Bytes(), []byte("porosity_pores_per_sample")))
}

func TestUnknownRouteIsJSONNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/pores", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, errors.CodeNotFound, body.Code)
	assert.Contains(t, body.Error, "/api/v1/pores")
}
