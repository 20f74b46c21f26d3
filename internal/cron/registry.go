package cron

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Job is one unit of periodic work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Schedule binds a job to its cadence and the lock guarding each run.
type Schedule struct {
	Job   Job
	Every time.Duration
	// Lock defaults to a process-local lock, which only prevents overlapping
	// runs of the same job.
	Lock Lock
}

// Registry holds the schedules one Service drives. Job names are unique.
type Registry struct {
	schedules []Schedule
	names     map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Add validates and stores a schedule.
func (r *Registry) Add(s Schedule) error {
	if s.Job == nil {
		return fmt.Errorf("job is required")
	}
	name := strings.TrimSpace(s.Job.Name())
	if name == "" {
		return fmt.Errorf("job name is required")
	}
	if s.Every <= 0 {
		return fmt.Errorf("job %s: interval must be positive", name)
	}
	if _, dup := r.names[name]; dup {
		return fmt.Errorf("job %s already scheduled", name)
	}
	if s.Lock == nil {
		s.Lock = NewLocalLock()
	}
	r.names[name] = struct{}{}
	r.schedules = append(r.schedules, s)
	return nil
}

// Schedules returns a copy in registration order.
func (r *Registry) Schedules() []Schedule {
	out := make([]Schedule, len(r.schedules))
	copy(out, r.schedules)
	return out
}

func (r *Registry) Len() int { return len(r.schedules) }
