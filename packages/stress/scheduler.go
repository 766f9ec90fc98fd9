package stress

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/abdul-hamid-achik/hitpad/packages/http"
)

// Target is one composed request in the mix. Weight sets how often it is
// picked relative to the others; zero counts as one.
type Target struct {
	Name    string
	Request *http.Request
	Weight  int
}

// Scheduler paces dispatches, caps concurrency and picks targets.
type Scheduler struct {
	config  *Config
	limiter *rate.Limiter
	sem     chan struct{}

	// remaining dispatches when Config.Requests is set
	remaining atomic.Int64

	mu          sync.Mutex
	targets     []Target
	weights     []int
	totalWeight int
}

func NewScheduler(config *Config) *Scheduler {
	s := &Scheduler{config: config}

	if config.Mode == RateMode && config.Rate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(config.Rate), 1)
	}

	concurrency := config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	s.sem = make(chan struct{}, concurrency)
	s.remaining.Store(int64(config.Requests))

	return s
}

// Add registers a target.
func (s *Scheduler) Add(t Target) {
	s.mu.Lock()
	defer s.mu.Unlock()

	weight := t.Weight
	if weight < 1 {
		weight = 1
	}
	s.targets = append(s.targets, t)
	s.weights = append(s.weights, weight)
	s.totalWeight += weight
}

// Targets returns a copy of the registered targets.
func (s *Scheduler) Targets() []Target {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Target, len(s.targets))
	copy(out, s.targets)
	return out
}

// Pick returns a target chosen by weight, or nil when none are registered.
func (s *Scheduler) Pick() *Target {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch len(s.targets) {
	case 0:
		return nil
	case 1:
		return &s.targets[0]
	}

	n := rand.Intn(s.totalWeight)
	for i, w := range s.weights {
		if n < w {
			return &s.targets[i]
		}
		n -= w
	}
	return &s.targets[len(s.targets)-1]
}

// Take claims one dispatch from the request budget. It always succeeds when
// no budget is configured.
func (s *Scheduler) Take() bool {
	if s.config.Requests <= 0 {
		return true
	}
	return s.remaining.Add(-1) >= 0
}

// Wait blocks on the rate limiter in rate mode and returns at once otherwise.
func (s *Scheduler) Wait(ctx context.Context) error {
	if s.limiter != nil {
		return s.limiter.Wait(ctx)
	}
	return nil
}

// Acquire takes a concurrency slot.
func (s *Scheduler) Acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) Release() {
	<-s.sem
}

// RateAt returns the target rate after elapsed, ramping linearly.
func (s *Scheduler) RateAt(elapsed time.Duration) float64 {
	if s.config.RampUp <= 0 || elapsed >= s.config.RampUp {
		return s.config.Rate
	}
	return s.config.Rate * float64(elapsed) / float64(s.config.RampUp)
}

// StartDelay returns when virtual user n (zero based) starts, spreading
// starts evenly over the ramp-up.
func (s *Scheduler) StartDelay(n int) time.Duration {
	if s.config.RampUp <= 0 || s.config.VUs <= 1 {
		return 0
	}
	return time.Duration(int64(s.config.RampUp) * int64(n) / int64(s.config.VUs))
}

// SetRate changes the limiter rate; non-positive values are ignored.
func (s *Scheduler) SetRate(r float64) {
	if s.limiter != nil && r > 0 {
		s.limiter.SetLimit(rate.Limit(r))
	}
}
