package stress

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
)

// Reporter prints progress and summaries of a run.
type Reporter struct {
	writer     io.Writer
	noColor    bool
	noProgress bool
	verbose    bool

	green  *color.Color
	red    *color.Color
	yellow *color.Color
	cyan   *color.Color
	bold   *color.Color
}

type ReporterOption func(*Reporter)

func WithWriter(w io.Writer) ReporterOption {
	return func(r *Reporter) {
		r.writer = w
	}
}

func WithNoColor(noColor bool) ReporterOption {
	return func(r *Reporter) {
		r.noColor = noColor
	}
}

// WithNoProgress disables the live progress block.
func WithNoProgress(noProgress bool) ReporterOption {
	return func(r *Reporter) {
		r.noProgress = noProgress
	}
}

// WithVerbose adds the per-target breakdown to the summary.
func WithVerbose(verbose bool) ReporterOption {
	return func(r *Reporter) {
		r.verbose = verbose
	}
}

func NewReporter(opts ...ReporterOption) *Reporter {
	r := &Reporter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}

	color.NoColor = r.noColor
	r.green = color.New(color.FgGreen)
	r.red = color.New(color.FgRed)
	r.yellow = color.New(color.FgYellow)
	r.cyan = color.New(color.FgCyan)
	r.bold = color.New(color.Bold)

	return r
}

// Header prints what is about to run.
func (r *Reporter) Header(config *Config, targets []Target) {
	fmt.Fprintln(r.writer)
	r.bold.Fprintln(r.writer, "hitpad bench")
	for _, t := range targets {
		r.cyan.Fprintf(r.writer, "  %s %s\n", t.Request.Method, t.Request.URL)
	}

	var details []string
	if config.Mode == RateMode {
		details = append(details, fmt.Sprintf("Target: %.0f req/s", config.Rate))
	} else {
		details = append(details, fmt.Sprintf("VUs: %d", config.VUs))
	}
	details = append(details, fmt.Sprintf("Duration: %s", config.Duration))
	if config.Requests > 0 {
		details = append(details, fmt.Sprintf("Requests: %d", config.Requests))
	}
	details = append(details, fmt.Sprintf("Concurrency: %d", config.Concurrency))

	fmt.Fprintln(r.writer, strings.Join(details, " | "))
	fmt.Fprintln(r.writer)
}

const progressLines = 3

// Progress redraws the live progress block in place.
func (r *Reporter) Progress(stats Stats, duration time.Duration) {
	if r.noProgress {
		return
	}

	progress := float64(stats.Elapsed) / float64(duration)
	if progress > 1 {
		progress = 1
	}
	const barWidth = 30
	filled := int(progress * barWidth)
	bar := strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)

	fmt.Fprint(r.writer, "\r\033[K")
	fmt.Fprintf(r.writer, "Progress %s %s / %s\n", bar, formatDuration(stats.Elapsed), formatDuration(duration))

	fmt.Fprintf(r.writer, "\033[KRequests: %s total | ", formatNumber(stats.Total))
	r.green.Fprint(r.writer, formatNumber(stats.Success))
	fmt.Fprint(r.writer, " ok | ")
	if stats.Errors > 0 {
		r.red.Fprint(r.writer, formatNumber(stats.Errors))
	} else {
		fmt.Fprint(r.writer, formatNumber(stats.Errors))
	}
	fmt.Fprintf(r.writer, " errors (%.2f%%) | %.1f req/s | active %d\n", stats.ErrorRate*100, stats.RPS, stats.Active)

	fmt.Fprintf(r.writer, "\033[KLatency: p50 %s | p95 %s | p99 %s | max %s\n",
		formatLatency(stats.P50), formatLatency(stats.P95), formatLatency(stats.P99), formatLatency(stats.Max))

	fmt.Fprintf(r.writer, "\033[%dA", progressLines)
}

// ClearProgress erases the progress block.
func (r *Reporter) ClearProgress() {
	if r.noProgress {
		return
	}
	for i := 0; i < progressLines; i++ {
		fmt.Fprint(r.writer, "\r\033[K\n")
	}
	fmt.Fprintf(r.writer, "\033[%dA", progressLines)
}

// Summary prints the final report.
func (r *Reporter) Summary(s *Summary, thresholds []ThresholdResult) {
	fmt.Fprintln(r.writer)
	r.bold.Fprintln(r.writer, "SUMMARY")
	fmt.Fprintln(r.writer, strings.Repeat("─", 40))

	fmt.Fprintf(r.writer, "Duration:   %s\n", formatDuration(s.Duration))
	fmt.Fprint(r.writer, "Total:      ")
	r.bold.Fprint(r.writer, formatNumber(s.TotalRequests))
	fmt.Fprintf(r.writer, " requests (%.1f req/s)\n", s.RPS)

	fmt.Fprint(r.writer, "Success:    ")
	r.green.Fprint(r.writer, formatNumber(s.SuccessCount))
	fmt.Fprintf(r.writer, " (%.1f%%)\n", s.SuccessRate*100)

	fmt.Fprint(r.writer, "Failed:     ")
	if s.ErrorCount > 0 {
		r.red.Fprint(r.writer, formatNumber(s.ErrorCount))
	} else {
		fmt.Fprint(r.writer, formatNumber(s.ErrorCount))
	}
	fmt.Fprintf(r.writer, " (%.1f%%)\n", s.ErrorRate*100)

	if s.TimeoutCount > 0 {
		fmt.Fprint(r.writer, "Timeouts:   ")
		r.yellow.Fprintln(r.writer, formatNumber(s.TimeoutCount))
	}

	if len(s.StatusCodes) > 0 {
		codes := make([]int, 0, len(s.StatusCodes))
		for code := range s.StatusCodes {
			codes = append(codes, int(code))
		}
		sort.Ints(codes)
		parts := make([]string, 0, len(codes))
		for _, code := range codes {
			parts = append(parts, fmt.Sprintf("%d×%s", code, formatNumber(s.StatusCodes[uint16(code)])))
		}
		fmt.Fprintf(r.writer, "Status:     %s\n", strings.Join(parts, "  "))
	}

	fmt.Fprintln(r.writer)
	r.bold.Fprintln(r.writer, "LATENCY (ms)")
	fmt.Fprintf(r.writer, "  p50: %-6s | p95: %-6s | p99: %-6s | max: %s\n",
		formatLatencyMs(s.P50), formatLatencyMs(s.P95), formatLatencyMs(s.P99), formatLatencyMs(s.Max))
	fmt.Fprintf(r.writer, "  min: %-6s | mean: %-5s | stddev: %s\n",
		formatLatencyMs(s.Min), formatLatencyMs(s.Mean), formatLatencyMs(s.StdDev))

	if r.verbose && len(s.Targets) > 1 {
		names := make([]string, 0, len(s.Targets))
		for name := range s.Targets {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintln(r.writer)
		r.bold.Fprintln(r.writer, "PER-REQUEST")
		for _, name := range names {
			ts := s.Targets[name]
			fmt.Fprintf(r.writer, "  %s: %s total, %s errors | p50 %s | p95 %s | p99 %s\n",
				name, formatNumber(ts.Total), formatNumber(ts.Errors),
				formatLatency(ts.P50), formatLatency(ts.P95), formatLatency(ts.P99))
		}
	}

	if len(thresholds) > 0 {
		fmt.Fprintln(r.writer)
		r.bold.Fprintln(r.writer, "THRESHOLDS")
		for _, tr := range thresholds {
			if tr.Passed {
				r.green.Fprint(r.writer, "  ✓ ")
			} else {
				r.red.Fprint(r.writer, "  ✗ ")
			}
			fmt.Fprintf(r.writer, "%s %s    (actual: %s)\n", tr.Name, tr.Expected, tr.Actual)
		}
	}

	fmt.Fprintln(r.writer)
}

type jsonSummary struct {
	Duration    string                `json:"duration"`
	Requests    jsonRequests          `json:"requests"`
	RPS         float64               `json:"rps"`
	SuccessRate float64               `json:"successRate"`
	ErrorRate   float64               `json:"errorRate"`
	Latency     jsonLatency           `json:"latency"`
	StatusCodes map[string]int64      `json:"statusCodes,omitempty"`
	Targets     map[string]jsonTarget `json:"targets,omitempty"`
	Thresholds  []jsonThreshold       `json:"thresholds,omitempty"`
}

type jsonRequests struct {
	Total    int64 `json:"total"`
	Success  int64 `json:"success"`
	Failed   int64 `json:"failed"`
	Timeouts int64 `json:"timeouts"`
}

// jsonLatency values are milliseconds.
type jsonLatency struct {
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

type jsonTarget struct {
	Total   int64   `json:"total"`
	Success int64   `json:"success"`
	Errors  int64   `json:"errors"`
	P50     float64 `json:"p50"`
	P95     float64 `json:"p95"`
	P99     float64 `json:"p99"`
	Mean    float64 `json:"mean"`
}

type jsonThreshold struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// JSONSummary writes the summary as indented JSON.
func (r *Reporter) JSONSummary(s *Summary, thresholds []ThresholdResult) error {
	out := jsonSummary{
		Duration: s.Duration.String(),
		Requests: jsonRequests{
			Total:    s.TotalRequests,
			Success:  s.SuccessCount,
			Failed:   s.ErrorCount,
			Timeouts: s.TimeoutCount,
		},
		RPS:         s.RPS,
		SuccessRate: s.SuccessRate,
		ErrorRate:   s.ErrorRate,
		Latency: jsonLatency{
			P50: ms(s.P50), P95: ms(s.P95), P99: ms(s.P99),
			Min: ms(s.Min), Max: ms(s.Max), Mean: ms(s.Mean), StdDev: ms(s.StdDev),
		},
	}

	if len(s.StatusCodes) > 0 {
		out.StatusCodes = make(map[string]int64, len(s.StatusCodes))
		for code, n := range s.StatusCodes {
			out.StatusCodes[fmt.Sprint(code)] = n
		}
	}
	if len(s.Targets) > 0 {
		out.Targets = make(map[string]jsonTarget, len(s.Targets))
		for name, ts := range s.Targets {
			out.Targets[name] = jsonTarget{
				Total: ts.Total, Success: ts.Success, Errors: ts.Errors,
				P50: ms(ts.P50), P95: ms(ts.P95), P99: ms(ts.P99), Mean: ms(ts.Mean),
			}
		}
	}
	for _, tr := range thresholds {
		out.Thresholds = append(out.Thresholds, jsonThreshold(tr))
	}

	enc := json.NewEncoder(r.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (r *Reporter) Error(format string, args ...any) {
	r.red.Fprintf(r.writer, "Error: "+format+"\n", args...)
}

func (r *Reporter) Info(format string, args ...any) {
	fmt.Fprintf(r.writer, format+"\n", args...)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	if seconds == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dm %02ds", minutes, seconds)
}

func formatLatency(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dμs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatLatencyMs(d time.Duration) string {
	v := ms(d)
	if v < 1 {
		return fmt.Sprintf("%.2f", v)
	}
	if v < 10 {
		return fmt.Sprintf("%.1f", v)
	}
	return fmt.Sprintf("%.0f", v)
}

// formatNumber adds thousands separators.
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if n < 1000 && n > -1000 {
		return s
	}

	neg := s[0] == '-'
	if neg {
		s = s[1:]
	}
	head := len(s) % 3
	if head == 0 {
		head = 3
	}
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(s[:head])
	for i := head; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
