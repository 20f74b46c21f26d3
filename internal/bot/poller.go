package bot

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

const (
	defaultPollTimeout = 25 * time.Second
	baseRetryDelay     = 500 * time.Millisecond
	maxRetryDelay      = 30 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

// Poll long-polls getUpdates until ctx is cancelled. Transport errors back off
// exponentially. The offset advances past every queued update; when a user
// queue is full the batch stops there and that update is fetched again.
func (b *Bot) Poll(ctx context.Context) error {
	b.logg.Info(ctx, "telegram long polling started")

	var offset int64
	backoff := baseRetryDelay
	for {
		select {
		case <-ctx.Done():
			b.logg.Info(ctx, "telegram long polling stopped")
			return ctx.Err()
		default:
		}

		updates, err := b.api.GetUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			b.logg.Error(ctx, "getUpdates failed", err)
			backoff = nextBackoff(backoff, baseRetryDelay, maxRetryDelay)
			if err := sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}
		backoff = baseRetryDelay

		for _, update := range updates {
			err := b.Accept(ctx, update)
			if errors.Is(err, ErrClosed) {
				return err
			}
			if errors.Is(err, ErrQueueFull) {
				b.logg.Warn(b.logg.WithField(ctx, "update_id", update.UpdateID), "user queue full, refetching")
				if err := sleep(ctx, withJitter(baseRetryDelay)); err != nil {
					return err
				}
				break
			}
			if err != nil {
				b.logg.Warn(b.logg.WithField(ctx, "error", err.Error()), "update not queued")
			}
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
		}
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
