package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Registry errors.
var (
	ErrNilJob          = errors.New("cannot register a job without a run function")
	ErrEmptyKind       = errors.New("job kind cannot be empty")
	ErrInvalidInterval = errors.New("job interval must be positive")
)

// Job is one registered job kind.
type Job struct {
	Kind     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Discard adapts a tick that also returns a result to Job.Run.
func Discard[R any](fn func(ctx context.Context) (R, error)) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := fn(ctx)
		return err
	}
}

// Registry holds the job kinds the coordinator drives.
type Registry struct {
	jobs map[string]Job
	mu   sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]Job),
	}
}

// Register adds a job. A job with the same kind is replaced.
func (r *Registry) Register(j Job) error {
	if j.Run == nil {
		return ErrNilJob
	}
	if j.Kind == "" {
		return ErrEmptyKind
	}
	if j.Interval <= 0 {
		return ErrInvalidInterval
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[j.Kind] = j
	return nil
}

// Get returns the job registered under kind.
func (r *Registry) Get(kind string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[kind]
	return j, ok
}

// List returns every job ordered by kind.
func (r *Registry) List() []Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make([]Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].Kind < jobs[k].Kind })
	return jobs
}

// Kinds returns every registered kind, sorted.
func (r *Registry) Kinds() []string {
	jobs := r.List()
	kinds := make([]string, len(jobs))
	for i, j := range jobs {
		kinds[i] = j.Kind
	}
	return kinds
}

// Count returns the number of registered jobs.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Unregister removes kind. It reports whether it was registered.
func (r *Registry) Unregister(kind string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[kind]; ok {
		delete(r.jobs, kind)
		return true
	}
	return false
}
