package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"tycoon-engine/internal/pkg/clock"
)

// Report is the outcome of one RunDue pass.
type Report struct {
	RunID    string
	At       time.Time
	Ran      []string
	NotDue   []string
	Busy     []string // still running from an earlier pass
	Failed   map[string]error
	Duration time.Duration
}

// OK reports whether every claimed kind succeeded.
func (r Report) OK() bool {
	return len(r.Failed) == 0
}

// Options tune a Coordinator.
type Options struct {
	// Every is the cadence of Start.
	Every time.Duration
	// Timeout bounds a single job run. Zero means no bound.
	Timeout time.Duration
}

// Coordinator claims due job kinds through the Gate and runs them.
type Coordinator struct {
	gate     *Gate
	registry *Registry
	clock    clock.Clock
	opts     Options

	mu      sync.Mutex
	running map[string]bool
}

// NewCoordinator creates a Coordinator over the jobs in registry.
func NewCoordinator(gate *Gate, registry *Registry, c clock.Clock, opts Options) *Coordinator {
	if c == nil {
		c = clock.Real{}
	}
	if opts.Every <= 0 {
		opts.Every = time.Minute
	}
	return &Coordinator{
		gate:     gate,
		registry: registry,
		clock:    c,
		opts:     opts,
		running:  make(map[string]bool),
	}
}

// RunDue claims every due job kind and runs the claimed ones concurrently.
// A failing kind is recorded in the report and never stops the others.
// RunDue returns once every claimed kind finished.
func (c *Coordinator) RunDue(ctx context.Context) Report {
	start := c.clock.Now()
	rep := Report{
		RunID:  uuid.NewString(),
		At:     start,
		Failed: make(map[string]error),
	}
	logger := log.With().Str("run_id", rep.RunID).Logger()

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for _, job := range c.registry.List() {
		if !c.begin(job.Kind) {
			rep.Busy = append(rep.Busy, job.Kind)
			continue
		}
		claimed, err := c.gate.TryClaim(ctx, job.Kind, job.Interval)
		if err != nil {
			c.end(job.Kind)
			rep.Failed[job.Kind] = fmt.Errorf("failed to claim: %w", err)
			logger.Error().Err(err).Str("job", job.Kind).Msg("Failed to claim job")
			continue
		}
		if !claimed {
			c.end(job.Kind)
			rep.NotDue = append(rep.NotDue, job.Kind)
			continue
		}

		g.Go(func() error {
			defer c.end(job.Kind)
			err := c.run(ctx, job)

			mu.Lock()
			defer mu.Unlock()
			rep.Ran = append(rep.Ran, job.Kind)
			if err != nil {
				rep.Failed[job.Kind] = err
				logger.Error().Err(err).Str("job", job.Kind).Msg("Job failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(rep.Ran)
	rep.Duration = time.Since(start)
	if len(rep.Ran) > 0 || len(rep.Failed) > 0 {
		logger.Info().
			Strs("ran", rep.Ran).
			Int("failed", len(rep.Failed)).
			Int("not_due", len(rep.NotDue)).
			Dur("duration", rep.Duration).
			Msg("Scheduler pass finished")
	}
	return rep
}

// run executes one job under the run timeout. A panic is turned into an
// error for that kind only.
func (c *Coordinator) run(ctx context.Context, job Job) (err error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Kind, r)
		}
	}()
	return job.Run(ctx)
}

func (c *Coordinator) begin(kind string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running[kind] {
		return false
	}
	c.running[kind] = true
	return true
}

func (c *Coordinator) end(kind string) {
	c.mu.Lock()
	delete(c.running, kind)
	c.mu.Unlock()
}

// Start runs RunDue immediately and then on every tick until ctx is done.
// It blocks; a pass in flight when ctx is cancelled sees the cancellation
// through its context.
func (c *Coordinator) Start(ctx context.Context) {
	ticker := time.NewTicker(c.opts.Every)
	defer ticker.Stop()

	log.Info().
		Dur("every", c.opts.Every).
		Strs("jobs", c.registry.Kinds()).
		Msg("Scheduler started")

	for {
		c.RunDue(ctx)
		select {
		case <-ctx.Done():
			log.Info().Msg("Scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}
