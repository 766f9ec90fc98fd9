// Package stress replays composed requests under load. It paces dispatches by
// rate or by virtual users, records latencies in an HDR histogram and checks
// the result against pass/fail thresholds.
package stress

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Mode selects how dispatches are scheduled.
type Mode int

const (
	// RateMode sends requests at a constant rate (requests per second)
	RateMode Mode = iota
	// VUMode runs virtual users that send back to back, with optional think time
	VUMode
)

func (m Mode) String() string {
	if m == VUMode {
		return "vu"
	}
	return "rate"
}

// ParseMode accepts "rate" and "vu".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "rate":
		return RateMode, nil
	case "vu", "vus":
		return VUMode, nil
	}
	return RateMode, fmt.Errorf("unknown mode %q (want rate or vu)", s)
}

// Config holds all configuration for a run.
type Config struct {
	Mode        Mode
	Duration    time.Duration
	Requests    int           // stop after this many dispatches; 0 runs for Duration
	Rate        float64       // requests per second (RateMode)
	VUs         int           // virtual users (VUMode)
	Concurrency int           // max requests in flight
	ThinkTime   time.Duration // pause between requests per VU
	RampUp      time.Duration
	Thresholds  Thresholds
}

func DefaultConfig() *Config {
	return &Config{
		Mode:        RateMode,
		Duration:    30 * time.Second,
		Rate:        10,
		VUs:         5,
		Concurrency: 5,
	}
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	if c.Requests < 0 {
		return fmt.Errorf("requests cannot be negative")
	}
	if c.Mode == RateMode && c.Rate <= 0 {
		return fmt.Errorf("rate must be positive in rate mode")
	}
	if c.Mode == VUMode && c.VUs <= 0 {
		return fmt.Errorf("VUs must be positive in VU mode")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	if c.RampUp < 0 {
		return fmt.Errorf("rampUp cannot be negative")
	}
	if c.RampUp > c.Duration {
		return fmt.Errorf("rampUp cannot exceed duration")
	}
	return nil
}

// Thresholds are pass/fail criteria. Zero values are not checked.
type Thresholds struct {
	P50        time.Duration
	P95        time.Duration
	P99        time.Duration
	MaxLatency time.Duration
	ErrorRate  float64 // 0.0 - 1.0
	MinRPS     float64
}

var thresholdPattern = regexp.MustCompile(`^(\w+)\s*([<>]=?)\s*(.+)$`)

// ParseThresholds parses a list like "p95<200ms,errors<0.1%,rps>50".
func ParseThresholds(s string) (Thresholds, error) {
	var t Thresholds
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if err := parseThreshold(part, &t); err != nil {
			return t, err
		}
	}
	return t, nil
}

func parseThreshold(part string, t *Thresholds) error {
	m := thresholdPattern.FindStringSubmatch(part)
	if len(m) != 4 {
		return fmt.Errorf("invalid threshold format: %s", part)
	}
	metric, op, value := strings.ToLower(m[1]), m[2], strings.TrimSpace(m[3])
	below := op == "<" || op == "<="

	latency := func(name string, dst *time.Duration) error {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %s", name, value)
		}
		if !below {
			return fmt.Errorf("%s threshold must use < or <=", name)
		}
		*dst = d
		return nil
	}

	switch metric {
	case "p50":
		return latency("p50", &t.P50)
	case "p95":
		return latency("p95", &t.P95)
	case "p99":
		return latency("p99", &t.P99)
	case "max", "maxlatency":
		return latency("max latency", &t.MaxLatency)
	case "errors", "error", "errorrate":
		f, err := strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64)
		if err != nil {
			return fmt.Errorf("invalid error rate: %s", value)
		}
		if strings.HasSuffix(value, "%") {
			f /= 100
		}
		if !below {
			return fmt.Errorf("error rate threshold must use < or <=")
		}
		t.ErrorRate = f
	case "rps", "rate":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid RPS: %s", value)
		}
		if below {
			return fmt.Errorf("RPS threshold must use > or >=")
		}
		t.MinRPS = f
	default:
		return fmt.Errorf("unknown threshold metric: %s", metric)
	}
	return nil
}

// Any reports whether at least one threshold is set.
func (t Thresholds) Any() bool {
	return t.P50 > 0 || t.P95 > 0 || t.P99 > 0 || t.MaxLatency > 0 || t.ErrorRate > 0 || t.MinRPS > 0
}

// ThresholdResult holds the result of evaluating a threshold
type ThresholdResult struct {
	Name     string
	Passed   bool
	Expected string
	Actual   string
}
