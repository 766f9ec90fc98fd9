package stress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/hitpad/packages/core/lifecycle"
)

// Runner drives a load run against a set of targets.
type Runner struct {
	config    *Config
	exec      lifecycle.Executor
	scheduler *Scheduler
	metrics   *Metrics
	reporter  *Reporter
}

type RunnerOption func(*Runner)

func WithReporter(reporter *Reporter) RunnerOption {
	return func(r *Runner) {
		r.reporter = reporter
	}
}

// NewRunner creates a runner that dispatches through exec. *http.Client
// satisfies lifecycle.Executor.
func NewRunner(config *Config, exec lifecycle.Executor, opts ...RunnerOption) *Runner {
	r := &Runner{
		config:    config,
		exec:      exec,
		metrics:   NewMetrics(),
		scheduler: NewScheduler(config),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.reporter == nil {
		r.reporter = NewReporter()
	}
	return r
}

// AddTarget registers a request. Unnamed targets are named after their
// method and URL.
func (r *Runner) AddTarget(t Target) {
	if t.Name == "" && t.Request != nil {
		t.Name = fmt.Sprintf("%s %s", t.Request.Method, t.Request.URL)
	}
	r.scheduler.Add(t)
}

// Result holds the final result of a run.
type Result struct {
	Summary    *Summary
	Thresholds []ThresholdResult
	Passed     bool
}

// Run blocks until the duration elapses, the request budget is spent or ctx
// is cancelled. Printing the summary is left to the caller.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if err := r.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	targets := r.scheduler.Targets()
	if len(targets) == 0 {
		return nil, errors.New("no requests to run")
	}

	r.reporter.Header(r.config, targets)
	r.metrics.Start()

	ctx, cancel := context.WithTimeout(ctx, r.config.Duration)
	defer cancel()

	progressDone := make(chan struct{})
	var progressWG sync.WaitGroup
	progressWG.Add(1)
	go func() {
		defer progressWG.Done()
		r.progressLoop(progressDone)
	}()

	if r.config.Mode == VUMode {
		r.runVUs(ctx)
	} else {
		r.runRate(ctx)
	}

	r.metrics.Stop()
	close(progressDone)
	progressWG.Wait()
	r.reporter.ClearProgress()

	summary := r.metrics.Summary()
	result := &Result{Summary: summary, Passed: true}
	if r.config.Thresholds.Any() {
		result.Thresholds = Evaluate(summary, r.config.Thresholds)
		for _, tr := range result.Thresholds {
			if !tr.Passed {
				result.Passed = false
			}
		}
	}
	return result, nil
}

func (r *Runner) runRate(ctx context.Context) {
	var wg sync.WaitGroup
	defer wg.Wait()

	start := time.Now()
	var ramp <-chan time.Time
	if r.config.RampUp > 0 {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		ramp = ticker.C
		r.scheduler.SetRate(r.scheduler.RateAt(0))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ramp:
			r.scheduler.SetRate(r.scheduler.RateAt(time.Since(start)))
		default:
		}

		if err := r.scheduler.Wait(ctx); err != nil {
			return
		}
		if !r.scheduler.Take() {
			return
		}
		target := r.scheduler.Pick()
		if err := r.scheduler.Acquire(ctx); err != nil {
			return
		}

		wg.Add(1)
		go func(t *Target) {
			defer wg.Done()
			defer r.scheduler.Release()
			r.hit(ctx, t)
		}(target)
	}
}

func (r *Runner) runVUs(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < r.config.VUs; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			r.vu(ctx, r.scheduler.StartDelay(n))
		}(i)
	}
	wg.Wait()
}

// vu sends requests back to back until the run ends or the budget is spent.
func (r *Runner) vu(ctx context.Context, delay time.Duration) {
	if !sleep(ctx, delay) {
		return
	}

	r.metrics.IncrementActive()
	defer r.metrics.DecrementActive()

	for ctx.Err() == nil {
		if !r.scheduler.Take() {
			return
		}
		target := r.scheduler.Pick()
		if err := r.scheduler.Acquire(ctx); err != nil {
			return
		}
		r.hit(ctx, target)
		r.scheduler.Release()

		if !sleep(ctx, r.config.ThinkTime) {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// hit sends one request and records it. Non-2xx responses count as errors.
func (r *Runner) hit(ctx context.Context, t *Target) {
	start := time.Now()
	resp, err := r.exec.Execute(ctx, t.Request)
	elapsed := time.Since(start)

	switch {
	case err != nil && ctx.Err() != nil:
		r.metrics.RecordTimeout(t.Name)
	case err != nil:
		r.metrics.Record(t.Name, elapsed, 0, err)
	case !resp.IsSuccess():
		r.metrics.Record(t.Name, elapsed, resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode))
	default:
		r.metrics.Record(t.Name, elapsed, resp.StatusCode, nil)
	}
}

func (r *Runner) progressLoop(done <-chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			r.reporter.Progress(r.metrics.Stats(), r.config.Duration)
		}
	}
}
