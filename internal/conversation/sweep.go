package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/menubot/pkg/logger"
)

// SessionSweepJob evicts navigation sessions idle for longer than ttl. Carts
// are untouched.
type SessionSweepJob struct {
	sessions *SessionStore
	ttl      time.Duration
	clock    func() time.Time
	logg     *logger.Logger
}

func NewSessionSweepJob(sessions *SessionStore, ttl time.Duration, logg *logger.Logger) (*SessionSweepJob, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session idle ttl must be positive")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &SessionSweepJob{sessions: sessions, ttl: ttl, clock: time.Now, logg: logg}, nil
}

func (j *SessionSweepJob) Name() string { return "session_sweep" }

func (j *SessionSweepJob) Run(ctx context.Context) error {
	removed := j.sessions.Sweep(j.clock().Add(-j.ttl))
	if removed > 0 {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"removed":   removed,
			"remaining": j.sessions.Len(),
		}), "idle sessions swept")
	}
	return nil
}
