package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/menubot/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionSweepJob(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewSessionStore()
	store.Put(1, Session{State: StateChoosingProduct, UpdatedAt: now.Add(-2 * time.Hour)})
	store.Put(2, Session{State: StateConfirmingOrder, UpdatedAt: now.Add(-10 * time.Minute)})

	job, err := NewSessionSweepJob(store, time.Hour, logger.Nop())
	require.NoError(t, err)
	job.clock = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, StateChoosingCategory, store.Get(1).State)
	assert.Equal(t, StateConfirmingOrder, store.Get(2).State)
	assert.Equal(t, "session_sweep", job.Name())

	_, err = NewSessionSweepJob(store, 0, nil)
	assert.Error(t, err)
}
