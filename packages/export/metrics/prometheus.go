package metrics

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/hitpad/packages/stress"
)

// PrometheusExporter writes a result in the Prometheus text exposition
// format, suitable for the node exporter textfile collector or a
// Pushgateway.
type PrometheusExporter struct {
	writer io.Writer
	prefix string
	labels map[string]string
}

// PrometheusOption is a functional option for PrometheusExporter
type PrometheusOption func(*PrometheusExporter)

// WithPrometheusPrefix sets the metric name prefix (default "hitpad")
func WithPrometheusPrefix(prefix string) PrometheusOption {
	return func(p *PrometheusExporter) {
		p.prefix = prefix
	}
}

// WithPrometheusLabels adds constant labels to every sample
func WithPrometheusLabels(labels map[string]string) PrometheusOption {
	return func(p *PrometheusExporter) {
		p.labels = labels
	}
}

func NewPrometheusExporter(w io.Writer, opts ...PrometheusOption) *PrometheusExporter {
	p := &PrometheusExporter{writer: w, prefix: "hitpad"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PrometheusExporter) Export(result *stress.Result) error {
	s := result.Summary
	w := bufio.NewWriter(p.writer)

	p.family(w, "bench_requests_total", "counter", "Requests sent during the run")
	p.sample(w, "bench_requests_total", nil, float64(s.TotalRequests))
	p.family(w, "bench_requests_success_total", "counter", "Requests answered with a status below 400")
	p.sample(w, "bench_requests_success_total", nil, float64(s.SuccessCount))
	p.family(w, "bench_requests_failed_total", "counter", "Requests that failed or returned 4xx/5xx")
	p.sample(w, "bench_requests_failed_total", nil, float64(s.ErrorCount))
	p.family(w, "bench_requests_timeout_total", "counter", "Requests cut off by the timeout")
	p.sample(w, "bench_requests_timeout_total", nil, float64(s.TimeoutCount))

	p.family(w, "bench_requests_per_second", "gauge", "Achieved throughput")
	p.sample(w, "bench_requests_per_second", nil, s.RPS)
	p.family(w, "bench_duration_seconds", "gauge", "Wall time of the run")
	p.sample(w, "bench_duration_seconds", nil, s.Duration.Seconds())

	p.family(w, "bench_latency_ms", "gauge", "Request latency in milliseconds")
	for _, q := range []struct {
		name  string
		value float64
	}{
		{"min", ms(s.Min)},
		{"0.5", ms(s.P50)},
		{"0.95", ms(s.P95)},
		{"0.99", ms(s.P99)},
		{"max", ms(s.Max)},
		{"mean", ms(s.Mean)},
	} {
		p.sample(w, "bench_latency_ms", map[string]string{"quantile": q.name}, q.value)
	}

	if len(s.StatusCodes) > 0 {
		p.family(w, "bench_responses_total", "counter", "Responses by HTTP status code")
		for _, code := range statusCodes(s) {
			p.sample(w, "bench_responses_total", map[string]string{"status": itoa(code)}, float64(s.StatusCodes[code]))
		}
	}

	if len(s.Targets) > 1 {
		p.family(w, "bench_target_requests_total", "counter", "Requests per target")
		for _, name := range targetNames(s) {
			p.sample(w, "bench_target_requests_total", map[string]string{"target": name}, float64(s.Targets[name].Total))
		}
		p.family(w, "bench_target_latency_ms", "gauge", "Latency per target in milliseconds")
		for _, name := range targetNames(s) {
			t := s.Targets[name]
			p.sample(w, "bench_target_latency_ms", map[string]string{"target": name, "quantile": "0.5"}, ms(t.P50))
			p.sample(w, "bench_target_latency_ms", map[string]string{"target": name, "quantile": "0.95"}, ms(t.P95))
			p.sample(w, "bench_target_latency_ms", map[string]string{"target": name, "quantile": "0.99"}, ms(t.P99))
		}
	}

	if len(result.Thresholds) > 0 {
		p.family(w, "bench_threshold_passed", "gauge", "1 when the threshold held")
		for _, t := range result.Thresholds {
			p.sample(w, "bench_threshold_passed", map[string]string{"threshold": t.Name}, passedValue(t.Passed))
		}
	}

	p.family(w, "bench_passed", "gauge", "1 when every threshold held")
	p.sample(w, "bench_passed", nil, passedValue(result.Passed))

	return w.Flush()
}

func (p *PrometheusExporter) family(w io.Writer, name, kind, help string) {
	fmt.Fprintf(w, "# HELP %s_%s %s\n", p.prefix, name, help)
	fmt.Fprintf(w, "# TYPE %s_%s %s\n", p.prefix, name, kind)
}

func (p *PrometheusExporter) sample(w io.Writer, name string, labels map[string]string, value float64) {
	fmt.Fprintf(w, "%s_%s%s %g\n", p.prefix, name, p.formatLabels(labels), value)
}

func (p *PrometheusExporter) formatLabels(labels map[string]string) string {
	merged := make(map[string]string, len(p.labels)+len(labels))
	for k, v := range p.labels {
		merged[k] = v
	}
	for k, v := range labels {
		merged[k] = v
	}
	if len(merged) == 0 {
		return ""
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%q", k, merged[k])
	}
	return "{" + strings.Join(parts, ",") + "}"
}
