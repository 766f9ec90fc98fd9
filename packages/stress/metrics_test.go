package stress

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics()
	m.Start()

	m.Record("a", 100*time.Millisecond, 200, nil)
	m.Record("a", 150*time.Millisecond, 200, nil)
	m.Record("b", 200*time.Millisecond, 201, nil)
	m.Record("a", 50*time.Millisecond, 500, errors.New("HTTP 500"))
	m.Record("a", 5*time.Millisecond, 0, errors.New("connection refused"))

	m.Stop()

	stats := m.Stats()
	assert.Equal(t, int64(5), stats.Total)
	assert.Equal(t, int64(3), stats.Success)
	assert.Equal(t, int64(2), stats.Errors)

	s := m.Summary()
	assert.Equal(t, map[uint16]int64{200: 2, 201: 1, 500: 1}, s.StatusCodes)
}

func TestMetricsRecordTimeout(t *testing.T) {
	m := NewMetrics()
	m.Start()

	m.Record("a", 100*time.Millisecond, 200, nil)
	m.RecordTimeout("a")

	m.Stop()

	s := m.Summary()
	assert.Equal(t, int64(2), s.TotalRequests)
	assert.Equal(t, int64(1), s.TimeoutCount)
	assert.Equal(t, int64(1), s.ErrorCount)
	assert.Equal(t, int64(2), s.Targets["a"].Total)
	assert.Equal(t, int64(1), s.Targets["a"].Errors)
}

func TestMetricsActive(t *testing.T) {
	m := NewMetrics()

	m.IncrementActive()
	m.IncrementActive()
	assert.Equal(t, int32(2), m.Stats().Active)

	m.DecrementActive()
	assert.Equal(t, int32(1), m.Stats().Active)
}

func TestMetricsSummary(t *testing.T) {
	m := NewMetrics()
	m.Start()

	for i := 0; i < 100; i++ {
		m.Record("test", time.Duration(i+1)*time.Millisecond, 200, nil)
	}

	m.Stop()

	s := m.Summary()
	assert.Equal(t, int64(100), s.TotalRequests)
	assert.Equal(t, int64(100), s.SuccessCount)
	assert.InDelta(t, 1.0, s.SuccessRate, 0.001)
	assert.InDelta(t, 0.0, s.ErrorRate, 0.001)

	assert.InDelta(t, float64(50*time.Millisecond), float64(s.P50), float64(time.Millisecond))
	assert.True(t, s.P95 > s.P50)
	assert.True(t, s.P99 >= s.P95)
	assert.True(t, s.Max >= s.P99)
	assert.InDelta(t, float64(time.Millisecond), float64(s.Min), float64(10*time.Microsecond))
	assert.InDelta(t, float64(50500*time.Microsecond), float64(s.Mean), float64(time.Millisecond))
}

func TestMetricsLatencyClamped(t *testing.T) {
	m := NewMetrics()
	m.Start()
	m.Record("fast", 0, 200, nil)
	m.Record("slow", 2*time.Minute, 200, nil)
	m.Stop()

	s := m.Summary()
	assert.Equal(t, time.Microsecond, s.Min)
	assert.InDelta(t, float64(time.Minute), float64(s.Max), float64(100*time.Millisecond))
}

func TestMetricsPerTarget(t *testing.T) {
	m := NewMetrics()
	m.Start()

	m.Record("create", 100*time.Millisecond, 201, nil)
	m.Record("create", 110*time.Millisecond, 201, nil)
	m.Record("read", 50*time.Millisecond, 200, nil)
	m.Record("read", 60*time.Millisecond, 200, nil)
	m.Record("read", 55*time.Millisecond, 404, errors.New("HTTP 404"))

	m.Stop()

	s := m.Summary()
	require.Len(t, s.Targets, 2)

	create := s.Targets["create"]
	require.NotNil(t, create)
	assert.Equal(t, int64(2), create.Total)
	assert.Equal(t, int64(2), create.Success)

	read := s.Targets["read"]
	require.NotNil(t, read)
	assert.Equal(t, int64(3), read.Total)
	assert.Equal(t, int64(1), read.Errors)
}

func TestEvaluate(t *testing.T) {
	m := NewMetrics()
	m.Start()
	for i := 0; i < 100; i++ {
		m.Record("test", 10*time.Millisecond, 200, nil)
	}
	m.Record("test", 10*time.Millisecond, 500, errors.New("HTTP 500"))
	m.Stop()
	s := m.Summary()

	results := Evaluate(s, Thresholds{P95: 100 * time.Millisecond, ErrorRate: 0.05})
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Passed, "threshold %s should pass", r.Name)
	}

	results = Evaluate(s, Thresholds{P95: time.Millisecond, ErrorRate: 0.001})
	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.Passed, "threshold %s should fail", r.Name)
	}

	assert.Empty(t, Evaluate(s, Thresholds{}))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", formatNumber(0))
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1,000", formatNumber(1000))
	assert.Equal(t, "1,234,567", formatNumber(1234567))
	assert.Equal(t, "-12,345", formatNumber(-12345))
}
