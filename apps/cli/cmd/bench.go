package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitpad/packages/export/metrics"
	"github.com/abdul-hamid-achik/hitpad/packages/http"
	"github.com/abdul-hamid-achik/hitpad/packages/stress"
)

var benchCmd = &cobra.Command{
	Use:   "bench [url | file.yaml]...",
	Short: "Send requests repeatedly and report latency percentiles",
	Long: `Send one or more requests at a fixed rate or from a pool of virtual users
and report throughput, latency percentiles and status codes.

Each argument is a URL or a YAML request file. With no arguments the request
is built from --file and the request flags, as with send.

Examples:
  # 50 requests per second for one minute
  hitpad bench https://api.example.com/health --duration 1m -r 50

  # 20 virtual users with think time, mixing two saved requests
  hitpad bench requests/list.yaml requests/get.yaml --vus 20 --think-time 500ms

  # Exactly 1000 requests, fail CI when p95 goes over 200ms
  hitpad bench {{base}}/items -n 1000 --env dev --threshold "p95<200ms,errors<1%"

  # Leave results for the node exporter textfile collector
  hitpad bench {{base}}/health --prometheus /var/lib/node_exporter/hitpad.prom --metric-tag env=prod`,
	RunE: benchCommand,
}

// benchFlags are the load shape options. Durations stay strings so the
// error names the flag.
type benchFlags struct {
	mode        string
	duration    string
	requests    int
	rate        float64
	vus         int
	concurrency int
	thinkTime   string
	rampUp      string
	threshold   string
	noProgress  bool
	json        bool
	prometheus  string
	datadog     bool
	metricTags  []string
}

var (
	benchRequest requestFlags
	bench        benchFlags
)

func init() {
	benchRequest.register(benchCmd)
	f := benchCmd.Flags()
	f.StringVar(&bench.mode, "mode", "", "Load mode: rate or vu (default rate, vu when --vus is set)")
	f.StringVar(&bench.duration, "duration", "30s", "Test duration (e.g., 30s, 5m, 1h)")
	f.IntVarP(&bench.requests, "requests", "n", 0, "Stop after this many requests (0 runs for the whole duration)")
	f.Float64VarP(&bench.rate, "rate", "r", 10, "Target requests per second")
	f.IntVarP(&bench.vus, "vus", "u", 0, "Number of virtual users (alternative to rate)")
	f.IntVarP(&bench.concurrency, "concurrency", "c", getEnvInt("HITPAD_CONCURRENCY", 0), "Maximum requests in flight (default from config) (env: HITPAD_CONCURRENCY)")
	f.StringVarP(&bench.thinkTime, "think-time", "t", "0s", "Think time between requests per VU")
	f.StringVar(&bench.rampUp, "ramp-up", "0s", "Ramp-up time to reach target rate/VUs")
	f.StringVar(&bench.threshold, "threshold", "", "Pass/fail thresholds (e.g., \"p95<200ms,errors<0.1%\")")
	f.BoolVar(&bench.noProgress, "no-progress", false, "Disable real-time progress display")
	f.BoolVar(&bench.json, "json", false, "Output results as JSON")
	f.StringVar(&bench.prometheus, "prometheus", "", "Write results in Prometheus text format to this file")
	f.BoolVar(&bench.datadog, "datadog", getEnvBool("HITPAD_DATADOG", false), "Send results to DataDog using DD_API_KEY and DD_SITE (env: HITPAD_DATADOG)")
	f.StringArrayVar(&bench.metricTags, "metric-tag", nil, "Tag exported metrics with key=value (repeatable)")
}

// config turns the flags into a stress config. defaultConcurrency comes from
// the config file when --concurrency is not set.
func (b *benchFlags) config(defaultConcurrency int) (*stress.Config, error) {
	cfg := stress.DefaultConfig()

	mode, err := stress.ParseMode(b.mode)
	if err != nil {
		return nil, err
	}
	cfg.Mode = mode
	if b.vus > 0 {
		cfg.VUs = b.vus
		if b.mode == "" {
			cfg.Mode = stress.VUMode
		}
	}

	if cfg.Duration, err = parseDurationFlag("duration", b.duration); err != nil {
		return nil, err
	}
	if cfg.ThinkTime, err = parseDurationFlag("think-time", b.thinkTime); err != nil {
		return nil, err
	}
	if cfg.RampUp, err = parseDurationFlag("ramp-up", b.rampUp); err != nil {
		return nil, err
	}

	cfg.Rate = b.rate
	cfg.Requests = b.requests

	switch {
	case b.concurrency > 0:
		cfg.Concurrency = b.concurrency
	case defaultConcurrency > 0:
		cfg.Concurrency = defaultConcurrency
	}

	if b.threshold != "" {
		t, err := stress.ParseThresholds(b.threshold)
		if err != nil {
			return nil, fmt.Errorf("invalid thresholds: %w", err)
		}
		cfg.Thresholds = t
	}

	return cfg, cfg.Validate()
}

// exporters builds the metric exporters selected by flags. The returned
// func closes any files they write to.
func (b *benchFlags) exporters() (metrics.Exporters, func() error, error) {
	labels := make(map[string]string, len(b.metricTags))
	tags := make([]string, 0, len(b.metricTags))
	for _, t := range b.metricTags {
		k, v, ok := strings.Cut(t, "=")
		if !ok || k == "" {
			return nil, nil, fmt.Errorf("invalid --metric-tag %q, expected key=value", t)
		}
		labels[k] = v
		tags = append(tags, k+":"+v)
	}

	var exps metrics.Exporters
	closeFile := func() error { return nil }
	if b.prometheus != "" {
		f, err := os.Create(b.prometheus)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create %s: %w", b.prometheus, err)
		}
		var once sync.Once
		closeFile = func() error {
			err := os.ErrClosed
			once.Do(func() { err = f.Close() })
			return err
		}
		exps = append(exps, metrics.NewPrometheusExporter(f, metrics.WithPrometheusLabels(labels)))
	}
	if b.datadog {
		exps = append(exps, metrics.NewDataDogExporter(metrics.WithDataDogTags(tags)))
	}
	return exps, closeFile, nil
}

func parseDurationFlag(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return d, nil
}

// benchDrafts builds one draft per argument. A .yaml/.yml argument is loaded
// as a request file, anything else is used as the URL. Request flags apply to
// every draft.
func benchDrafts(rf requestFlags, args []string) ([]*http.Draft, error) {
	if len(args) == 0 {
		d, err := rf.draft(nil)
		if err != nil {
			return nil, err
		}
		return []*http.Draft{d}, nil
	}

	drafts := make([]*http.Draft, 0, len(args))
	for _, arg := range args {
		flags := rf
		var urlArgs []string
		if strings.HasSuffix(arg, ".yaml") || strings.HasSuffix(arg, ".yml") {
			flags.file = arg
		} else {
			urlArgs = []string{arg}
		}
		d, err := flags.draft(urlArgs)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

func benchCommand(cmd *cobra.Command, args []string) error {
	drafts, err := benchDrafts(benchRequest, args)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	fileConfig, err := loadConfig()
	if err != nil {
		return err
	}
	cfg, err := bench.config(fileConfig.Concurrency)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	exps, closeExports, err := bench.exporters()
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	defer func() { _ = closeExports() }()

	s, err := openSession(fileConfig, cmd.ErrOrStderr(), sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	// JSON goes to stdout alone; the header and progress move to stderr
	runOut := cmd.OutOrStdout()
	if bench.json {
		runOut = cmd.ErrOrStderr()
	}
	reporter := stress.NewReporter(
		stress.WithWriter(runOut),
		stress.WithNoColor(fileConfig.GetNoColor()),
		stress.WithNoProgress(bench.noProgress),
		stress.WithVerbose(fileConfig.GetVerbose()),
	)
	runner := stress.NewRunner(cfg, s.client, stress.WithReporter(reporter))

	active := s.ws.Active()
	for _, d := range drafts {
		runner.AddTarget(stress.Target{Request: http.Compose(d, active)})
	}

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nReceived interrupt, stopping gracefully...")
			cancel()
		case <-ctx.Done():
		}
	}()

	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	if bench.json {
		jsonReporter := stress.NewReporter(stress.WithWriter(cmd.OutOrStdout()), stress.WithNoColor(true))
		if err := jsonReporter.JSONSummary(result.Summary, result.Thresholds); err != nil {
			return err
		}
	} else {
		reporter.Summary(result.Summary, result.Thresholds)
	}

	if err := exps.Export(result); err != nil {
		return fmt.Errorf("failed to export metrics: %w", err)
	}
	if err := closeExports(); err != nil {
		return fmt.Errorf("failed to export metrics: %w", err)
	}

	if !result.Passed {
		return withExitCode(ExitCheckFailure, fmt.Errorf("thresholds failed"))
	}
	return nil
}
