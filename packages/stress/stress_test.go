package stress

import (
	"bytes"
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitpad/packages/http"
)

func quietReporter() *Reporter {
	return NewReporter(WithWriter(&bytes.Buffer{}), WithNoProgress(true), WithNoColor(true))
}

func get(url string) *http.Request {
	return &http.Request{Method: http.MethodGet, URL: url}
}

func TestRunner_RateMode(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	cfg := &Config{Mode: RateMode, Duration: time.Second, Rate: 20, Concurrency: 5}
	runner := NewRunner(cfg, http.NewClient(), WithReporter(quietReporter()))
	runner.AddTarget(Target{Request: get(server.URL + "/health")})

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	s := result.Summary
	assert.Greater(t, s.TotalRequests, int64(0))
	assert.Equal(t, s.TotalRequests, s.SuccessCount)
	assert.Equal(t, int64(0), s.ErrorCount)
	assert.Equal(t, s.TotalRequests, hits.Load())
	assert.Equal(t, s.TotalRequests, s.StatusCodes[200])
	assert.Contains(t, s.Targets, "GET "+server.URL+"/health")
	assert.True(t, result.Passed)
}

func TestRunner_ServerErrorsCountAsFailures(t *testing.T) {
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(nethttp.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := &Config{Mode: RateMode, Duration: 500 * time.Millisecond, Rate: 10, Concurrency: 5}
	runner := NewRunner(cfg, http.NewClient(), WithReporter(quietReporter()))
	runner.AddTarget(Target{Request: get(server.URL)})

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Greater(t, result.Summary.ErrorCount, int64(0))
	assert.Equal(t, result.Summary.TotalRequests, result.Summary.ErrorCount)
	assert.Equal(t, result.Summary.TotalRequests, result.Summary.StatusCodes[500])
}

func TestRunner_RequestBudget(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	cfg := &Config{Mode: RateMode, Duration: 10 * time.Second, Rate: 1000, Concurrency: 4, Requests: 25}
	runner := NewRunner(cfg, http.NewClient(), WithReporter(quietReporter()))
	runner.AddTarget(Target{Request: get(server.URL)})

	start := time.Now()
	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 5*time.Second, "budget ends the run early")
	assert.Equal(t, int64(25), result.Summary.TotalRequests)
	assert.Equal(t, int64(25), hits.Load())
}

func TestRunner_VUMode(t *testing.T) {
	var inFlight, peak atomic.Int64
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
	}))
	defer server.Close()

	cfg := &Config{Mode: VUMode, Duration: 500 * time.Millisecond, VUs: 5, Concurrency: 2, ThinkTime: 5 * time.Millisecond}
	runner := NewRunner(cfg, http.NewClient(), WithReporter(quietReporter()))
	runner.AddTarget(Target{Request: get(server.URL)})

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Greater(t, result.Summary.TotalRequests, int64(0))
	assert.LessOrEqual(t, peak.Load(), int64(2), "concurrency caps requests in flight")
}

func TestRunner_WeightedTargets(t *testing.T) {
	var heavy, light atomic.Int64
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Path == "/heavy" {
			heavy.Add(1)
		} else {
			light.Add(1)
		}
	}))
	defer server.Close()

	cfg := &Config{Mode: RateMode, Duration: 10 * time.Second, Rate: 500, Concurrency: 10, Requests: 200}
	runner := NewRunner(cfg, http.NewClient(), WithReporter(quietReporter()))
	runner.AddTarget(Target{Name: "heavy", Request: get(server.URL + "/heavy"), Weight: 9})
	runner.AddTarget(Target{Name: "light", Request: get(server.URL + "/light"), Weight: 1})

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(200), heavy.Load()+light.Load())
	assert.Greater(t, heavy.Load(), 3*light.Load())
	assert.Len(t, result.Summary.Targets, 2)
}

func TestRunner_Thresholds(t *testing.T) {
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {}))
	defer server.Close()

	cfg := &Config{
		Mode:        RateMode,
		Duration:    5 * time.Second,
		Rate:        100,
		Concurrency: 5,
		Requests:    20,
		Thresholds:  Thresholds{P95: 500 * time.Millisecond, ErrorRate: 0.01, MinRPS: 100000},
	}
	runner := NewRunner(cfg, http.NewClient(), WithReporter(quietReporter()))
	runner.AddTarget(Target{Request: get(server.URL)})

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Thresholds, 3)
	assert.True(t, result.Thresholds[0].Passed)
	assert.True(t, result.Thresholds[1].Passed)
	assert.False(t, result.Thresholds[2].Passed, "rps threshold is unreachable")
	assert.False(t, result.Passed)
}

func TestRunner_ContextCancel(t *testing.T) {
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	cfg := &Config{Mode: RateMode, Duration: 10 * time.Second, Rate: 5, Concurrency: 5}
	runner := NewRunner(cfg, http.NewClient(), WithReporter(quietReporter()))
	runner.AddTarget(Target{Request: get(server.URL)})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	result, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.Less(t, result.Summary.Duration, 2*time.Second)
}

func TestRunner_Errors(t *testing.T) {
	runner := NewRunner(DefaultConfig(), http.NewClient(), WithReporter(quietReporter()))
	_, err := runner.Run(context.Background())
	assert.ErrorContains(t, err, "no requests")

	runner = NewRunner(&Config{}, http.NewClient(), WithReporter(quietReporter()))
	runner.AddTarget(Target{Request: get("http://localhost")})
	_, err = runner.Run(context.Background())
	assert.ErrorContains(t, err, "invalid config")
}

func TestReporter_Summary(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(WithWriter(&buf), WithNoColor(true), WithNoProgress(true), WithVerbose(true))

	s := &Summary{
		Duration:      2 * time.Second,
		TotalRequests: 1500,
		SuccessCount:  1490,
		ErrorCount:    10,
		RPS:           750,
		SuccessRate:   1490.0 / 1500,
		ErrorRate:     10.0 / 1500,
		P50:           12 * time.Millisecond,
		StatusCodes:   map[uint16]int64{200: 1490, 503: 10},
		Targets: map[string]*TargetSummary{
			"a": {Name: "a", Total: 1000},
			"b": {Name: "b", Total: 500},
		},
	}
	r.Summary(s, []ThresholdResult{{Name: "p95", Passed: false, Expected: "< 10ms", Actual: "12ms"}})

	out := buf.String()
	assert.Contains(t, out, "1,500 requests (750.0 req/s)")
	assert.Contains(t, out, "200×1,490  503×10")
	assert.Contains(t, out, "PER-REQUEST")
	assert.Contains(t, out, "✗ p95 < 10ms    (actual: 12ms)")
}

func TestReporter_JSONSummary(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(WithWriter(&buf), WithNoColor(true))

	s := &Summary{
		Duration:      time.Second,
		TotalRequests: 3,
		SuccessCount:  3,
		P95:           1500 * time.Microsecond,
		StatusCodes:   map[uint16]int64{204: 3},
	}
	require.NoError(t, r.JSONSummary(s, []ThresholdResult{{Name: "p95", Passed: true}}))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "1s", decoded["duration"])
	assert.Equal(t, 1.5, decoded["latency"].(map[string]any)["p95"])
	assert.Equal(t, float64(3), decoded["statusCodes"].(map[string]any)["204"])
	assert.Len(t, decoded["thresholds"], 1)
}
