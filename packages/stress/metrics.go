package stress

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// latencies are recorded in microseconds between 1us and 60s
const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
	sigFigs      = 3
)

func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(minLatencyUs, maxLatencyUs, sigFigs)
}

func clampUs(d time.Duration) int64 {
	us := d.Microseconds()
	if us < minLatencyUs {
		return minLatencyUs
	}
	if us > maxLatencyUs {
		return maxLatencyUs
	}
	return us
}

func usToDuration(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}

// Metrics collects results from concurrent dispatches.
type Metrics struct {
	mu sync.RWMutex

	total    atomic.Int64
	success  atomic.Int64
	errors   atomic.Int64
	timeouts atomic.Int64
	active   atomic.Int32

	histogram *hdrhistogram.Histogram
	targets   map[string]*targetMetrics
	statuses  map[uint16]int64

	startTime time.Time
	endTime   time.Time
}

type targetMetrics struct {
	total     int64
	success   int64
	errors    int64
	histogram *hdrhistogram.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		histogram: newHistogram(),
		targets:   make(map[string]*targetMetrics),
		statuses:  make(map[uint16]int64),
	}
}

func (m *Metrics) Start() {
	m.startTime = time.Now()
}

func (m *Metrics) Stop() {
	m.endTime = time.Now()
}

// Record stores one completed exchange. status is zero when no response
// arrived.
func (m *Metrics) Record(name string, d time.Duration, status uint16, err error) {
	m.total.Add(1)
	if err != nil {
		m.errors.Add(1)
	} else {
		m.success.Add(1)
	}

	us := clampUs(d)

	m.mu.Lock()
	defer m.mu.Unlock()

	_ = m.histogram.RecordValue(us)
	if status != 0 {
		m.statuses[status]++
	}

	tm := m.target(name)
	tm.total++
	if err != nil {
		tm.errors++
	} else {
		tm.success++
	}
	_ = tm.histogram.RecordValue(us)
}

// RecordTimeout counts an exchange cut short by the run deadline. It counts
// as an error and records no latency.
func (m *Metrics) RecordTimeout(name string) {
	m.total.Add(1)
	m.errors.Add(1)
	m.timeouts.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()

	tm := m.target(name)
	tm.total++
	tm.errors++
}

// target must be called with mu held.
func (m *Metrics) target(name string) *targetMetrics {
	tm, ok := m.targets[name]
	if !ok {
		tm = &targetMetrics{histogram: newHistogram()}
		m.targets[name] = tm
	}
	return tm
}

func (m *Metrics) IncrementActive() {
	m.active.Add(1)
}

func (m *Metrics) DecrementActive() {
	m.active.Add(-1)
}

// Summary is the final report of a run.
type Summary struct {
	Duration      time.Duration
	TotalRequests int64
	SuccessCount  int64
	ErrorCount    int64
	TimeoutCount  int64

	RPS         float64
	SuccessRate float64
	ErrorRate   float64

	P50    time.Duration
	P95    time.Duration
	P99    time.Duration
	Min    time.Duration
	Max    time.Duration
	Mean   time.Duration
	StdDev time.Duration

	StatusCodes map[uint16]int64
	Targets     map[string]*TargetSummary
}

type TargetSummary struct {
	Name    string
	Total   int64
	Success int64
	Errors  int64
	P50     time.Duration
	P95     time.Duration
	P99     time.Duration
	Mean    time.Duration
}

func (m *Metrics) elapsed() time.Duration {
	if m.endTime.IsZero() {
		return time.Since(m.startTime)
	}
	return m.endTime.Sub(m.startTime)
}

func ratio(n, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

func (m *Metrics) Summary() *Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	duration := m.elapsed()
	total := m.total.Load()

	s := &Summary{
		Duration:      duration,
		TotalRequests: total,
		SuccessCount:  m.success.Load(),
		ErrorCount:    m.errors.Load(),
		TimeoutCount:  m.timeouts.Load(),
		P50:           usToDuration(m.histogram.ValueAtQuantile(50)),
		P95:           usToDuration(m.histogram.ValueAtQuantile(95)),
		P99:           usToDuration(m.histogram.ValueAtQuantile(99)),
		Min:           usToDuration(m.histogram.Min()),
		Max:           usToDuration(m.histogram.Max()),
		Mean:          time.Duration(m.histogram.Mean() * float64(time.Microsecond)),
		StdDev:        time.Duration(m.histogram.StdDev() * float64(time.Microsecond)),
		StatusCodes:   make(map[uint16]int64, len(m.statuses)),
		Targets:       make(map[string]*TargetSummary, len(m.targets)),
	}
	if duration > 0 {
		s.RPS = float64(total) / duration.Seconds()
	}
	s.SuccessRate = ratio(s.SuccessCount, total)
	s.ErrorRate = ratio(s.ErrorCount, total)

	for code, n := range m.statuses {
		s.StatusCodes[code] = n
	}
	for name, tm := range m.targets {
		s.Targets[name] = &TargetSummary{
			Name:    name,
			Total:   tm.total,
			Success: tm.success,
			Errors:  tm.errors,
			P50:     usToDuration(tm.histogram.ValueAtQuantile(50)),
			P95:     usToDuration(tm.histogram.ValueAtQuantile(95)),
			P99:     usToDuration(tm.histogram.ValueAtQuantile(99)),
			Mean:    time.Duration(tm.histogram.Mean() * float64(time.Microsecond)),
		}
	}
	return s
}

// Stats is a live view for progress display.
type Stats struct {
	Elapsed   time.Duration
	Total     int64
	Success   int64
	Errors    int64
	RPS       float64
	P50       time.Duration
	P95       time.Duration
	P99       time.Duration
	Max       time.Duration
	Active    int32
	ErrorRate float64
}

func (m *Metrics) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	elapsed := time.Since(m.startTime)
	total := m.total.Load()
	errs := m.errors.Load()

	st := Stats{
		Elapsed:   elapsed,
		Total:     total,
		Success:   m.success.Load(),
		Errors:    errs,
		P50:       usToDuration(m.histogram.ValueAtQuantile(50)),
		P95:       usToDuration(m.histogram.ValueAtQuantile(95)),
		P99:       usToDuration(m.histogram.ValueAtQuantile(99)),
		Max:       usToDuration(m.histogram.Max()),
		Active:    m.active.Load(),
		ErrorRate: ratio(errs, total),
	}
	if elapsed > 0 {
		st.RPS = float64(total) / elapsed.Seconds()
	}
	return st
}

// Evaluate checks s against each configured threshold.
func Evaluate(s *Summary, t Thresholds) []ThresholdResult {
	var results []ThresholdResult

	latency := func(name string, limit, actual time.Duration) {
		if limit <= 0 {
			return
		}
		results = append(results, ThresholdResult{
			Name:     name,
			Passed:   actual <= limit,
			Expected: "< " + limit.String(),
			Actual:   actual.String(),
		})
	}
	latency("p50", t.P50, s.P50)
	latency("p95", t.P95, s.P95)
	latency("p99", t.P99, s.P99)
	latency("max latency", t.MaxLatency, s.Max)

	if t.ErrorRate > 0 {
		results = append(results, ThresholdResult{
			Name:     "error rate",
			Passed:   s.ErrorRate <= t.ErrorRate,
			Expected: "< " + formatPercent(t.ErrorRate),
			Actual:   formatPercent(s.ErrorRate),
		})
	}
	if t.MinRPS > 0 {
		results = append(results, ThresholdResult{
			Name:     "min RPS",
			Passed:   s.RPS >= t.MinRPS,
			Expected: "> " + formatFloat(t.MinRPS),
			Actual:   formatFloat(s.RPS),
		})
	}
	return results
}

func formatPercent(f float64) string {
	return formatFloat(f*100) + "%"
}

func formatFloat(f float64) string {
	if f == float64(int(f)) {
		return strconv.Itoa(int(f))
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
