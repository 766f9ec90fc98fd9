package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hitpad/packages/stress"
)

// DataDogExporter submits a result to the DataDog series API.
type DataDogExporter struct {
	apiKey   string
	site     string // e.g., "datadoghq.com", "datadoghq.eu"
	endpoint string
	tags     []string
	prefix   string
	client   *http.Client
	now      func() time.Time
}

// DataDogOption is a functional option for DataDogExporter
type DataDogOption func(*DataDogExporter)

// WithDataDogAPIKey sets the DataDog API key
func WithDataDogAPIKey(apiKey string) DataDogOption {
	return func(d *DataDogExporter) {
		d.apiKey = apiKey
	}
}

// WithDataDogSite sets the DataDog site (e.g., "datadoghq.com", "datadoghq.eu")
func WithDataDogSite(site string) DataDogOption {
	return func(d *DataDogExporter) {
		d.site = site
	}
}

// WithDataDogEndpoint overrides the series URL derived from the site.
func WithDataDogEndpoint(url string) DataDogOption {
	return func(d *DataDogExporter) {
		d.endpoint = url
	}
}

// WithDataDogTags sets additional tags for all metrics
func WithDataDogTags(tags []string) DataDogOption {
	return func(d *DataDogExporter) {
		d.tags = tags
	}
}

// WithDataDogPrefix sets a prefix for metric names
func WithDataDogPrefix(prefix string) DataDogOption {
	return func(d *DataDogExporter) {
		d.prefix = prefix
	}
}

// NewDataDogExporter reads DD_API_KEY and DD_SITE when the options leave
// them unset.
func NewDataDogExporter(opts ...DataDogOption) *DataDogExporter {
	d := &DataDogExporter{
		prefix: "hitpad",
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.apiKey == "" {
		d.apiKey = os.Getenv("DD_API_KEY")
	}
	if d.site == "" {
		d.site = os.Getenv("DD_SITE")
	}
	if d.site == "" {
		d.site = "datadoghq.com"
	}
	if d.endpoint == "" {
		d.endpoint = fmt.Sprintf("https://api.%s/api/v1/series", d.site)
	}

	return d
}

type datadogMetric struct {
	Metric string      `json:"metric"`
	Type   string      `json:"type"`
	Points [][]float64 `json:"points"`
	Tags   []string    `json:"tags,omitempty"`
}

type datadogPayload struct {
	Series []datadogMetric `json:"series"`
}

func (d *DataDogExporter) Export(result *stress.Result) error {
	return d.ExportContext(context.Background(), result)
}

func (d *DataDogExporter) ExportContext(ctx context.Context, result *stress.Result) error {
	if d.apiKey == "" {
		return fmt.Errorf("DataDog API key not configured (set DD_API_KEY)")
	}
	return d.send(ctx, d.series(result))
}

func (d *DataDogExporter) series(result *stress.Result) []datadogMetric {
	s := result.Summary
	now := float64(d.now().Unix())
	point := func(name, kind string, value float64, extra ...string) datadogMetric {
		tags := append(append([]string{}, extra...), d.tags...)
		return datadogMetric{
			Metric: d.prefix + "." + name,
			Type:   kind,
			Points: [][]float64{{now, value}},
			Tags:   tags,
		}
	}

	series := []datadogMetric{
		point("bench.requests.total", "count", float64(s.TotalRequests)),
		point("bench.requests.success", "count", float64(s.SuccessCount)),
		point("bench.requests.failed", "count", float64(s.ErrorCount)),
		point("bench.requests.timeout", "count", float64(s.TimeoutCount)),
		point("bench.rps", "gauge", s.RPS),
		point("bench.latency.min", "gauge", ms(s.Min)),
		point("bench.latency.p50", "gauge", ms(s.P50)),
		point("bench.latency.p95", "gauge", ms(s.P95)),
		point("bench.latency.p99", "gauge", ms(s.P99)),
		point("bench.latency.max", "gauge", ms(s.Max)),
		point("bench.latency.mean", "gauge", ms(s.Mean)),
		point("bench.passed", "gauge", passedValue(result.Passed)),
	}

	for _, code := range statusCodes(s) {
		series = append(series, point("bench.responses", "count", float64(s.StatusCodes[code]), "status:"+itoa(code)))
	}
	if len(s.Targets) > 1 {
		for _, name := range targetNames(s) {
			t := s.Targets[name]
			series = append(series,
				point("bench.target.requests", "count", float64(t.Total), "target:"+name),
				point("bench.target.latency.p95", "gauge", ms(t.P95), "target:"+name),
			)
		}
	}
	return series
}

func (d *DataDogExporter) send(ctx context.Context, series []datadogMetric) error {
	jsonData, err := json.Marshal(datadogPayload{Series: series})
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("DD-API-KEY", d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send metrics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("DataDog API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
