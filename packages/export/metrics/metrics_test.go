package metrics

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitpad/packages/stress"
)

func sampleResult() *stress.Result {
	return &stress.Result{
		Summary: &stress.Summary{
			Duration:      10 * time.Second,
			TotalRequests: 100,
			SuccessCount:  97,
			ErrorCount:    3,
			RPS:           10,
			P50:           20 * time.Millisecond,
			P95:           45 * time.Millisecond,
			P99:           80 * time.Millisecond,
			Min:           5 * time.Millisecond,
			Max:           120 * time.Millisecond,
			Mean:          25 * time.Millisecond,
			StatusCodes:   map[uint16]int64{500: 3, 200: 97},
			Targets: map[string]*stress.TargetSummary{
				"GET /a": {Name: "GET /a", Total: 60, P95: 40 * time.Millisecond},
				"GET /b": {Name: "GET /b", Total: 40, P95: 50 * time.Millisecond},
			},
		},
		Thresholds: []stress.ThresholdResult{{Name: "p95<50ms", Passed: true}},
		Passed:     true,
	}
}

func TestPrometheusExporter(t *testing.T) {
	var buf bytes.Buffer
	exp := NewPrometheusExporter(&buf, WithPrometheusLabels(map[string]string{"env": "dev"}))
	require.NoError(t, exp.Export(sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "# TYPE hitpad_bench_requests_total counter\n")
	assert.Contains(t, out, `hitpad_bench_requests_total{env="dev"} 100`)
	assert.Contains(t, out, `hitpad_bench_latency_ms{env="dev",quantile="0.95"} 45`)
	assert.Contains(t, out, `hitpad_bench_target_requests_total{env="dev",target="GET /a"} 60`)
	assert.Contains(t, out, `hitpad_bench_threshold_passed{env="dev",threshold="p95<50ms"} 1`)
	assert.Contains(t, out, `hitpad_bench_passed{env="dev"} 1`)
	assert.Less(t,
		bytes.Index(buf.Bytes(), []byte(`status="200"`)),
		bytes.Index(buf.Bytes(), []byte(`status="500"`)),
		"status codes are sorted")
}

func TestPrometheusExporter_SingleTargetAndPrefix(t *testing.T) {
	r := sampleResult()
	delete(r.Summary.Targets, "GET /b")
	r.Thresholds = nil

	var buf bytes.Buffer
	require.NoError(t, NewPrometheusExporter(&buf, WithPrometheusPrefix("api")).Export(r))
	out := buf.String()
	assert.Contains(t, out, "api_bench_requests_total 100\n")
	assert.NotContains(t, out, "bench_target_")
	assert.NotContains(t, out, "bench_threshold_passed")
}

func TestDataDogExporter(t *testing.T) {
	var (
		gotKey  string
		payload datadogPayload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("DD-API-KEY")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	exp := NewDataDogExporter(
		WithDataDogAPIKey("k1"),
		WithDataDogEndpoint(srv.URL),
		WithDataDogTags([]string{"env:dev"}),
	)
	exp.now = func() time.Time { return time.Unix(1700000000, 0) }
	require.NoError(t, exp.Export(sampleResult()))

	assert.Equal(t, "k1", gotKey)
	byName := make(map[string][]datadogMetric)
	for _, m := range payload.Series {
		byName[m.Metric] = append(byName[m.Metric], m)
	}
	require.Len(t, byName["hitpad.bench.requests.total"], 1)
	total := byName["hitpad.bench.requests.total"][0]
	assert.Equal(t, "count", total.Type)
	assert.Equal(t, [][]float64{{1700000000, 100}}, total.Points)
	assert.Equal(t, []string{"env:dev"}, total.Tags)

	responses := byName["hitpad.bench.responses"]
	require.Len(t, responses, 2)
	assert.Equal(t, []string{"status:200", "env:dev"}, responses[0].Tags)
	assert.Len(t, byName["hitpad.bench.target.requests"], 2)
}

func TestDataDogExporter_Errors(t *testing.T) {
	t.Setenv("DD_API_KEY", "")
	assert.Error(t, NewDataDogExporter().Export(sampleResult()), "missing key")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":["Forbidden"]}`))
	}))
	defer srv.Close()

	err := NewDataDogExporter(WithDataDogAPIKey("bad"), WithDataDogEndpoint(srv.URL)).Export(sampleResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestDataDogExporter_SiteFromEnv(t *testing.T) {
	t.Setenv("DD_SITE", "datadoghq.eu")
	assert.Equal(t, "https://api.datadoghq.eu/api/v1/series", NewDataDogExporter().endpoint)
}

type failingExporter struct{ calls *int }

func (f failingExporter) Export(*stress.Result) error {
	*f.calls++
	return errors.New("down")
}

func TestExporters(t *testing.T) {
	calls := 0
	var buf bytes.Buffer
	err := Exporters{NewPrometheusExporter(&buf), failingExporter{&calls}, failingExporter{&calls}}.Export(sampleResult())
	assert.EqualError(t, err, "down")
	assert.Equal(t, 1, calls)
	assert.NotEmpty(t, buf.String())
}
