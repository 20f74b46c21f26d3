package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/menubot/internal/conversation"
	"github.com/angelmondragon/menubot/pkg/logger"
	"github.com/angelmondragon/menubot/pkg/telegram"
)

const (
	defaultActionTimeout = 30 * time.Second
	defaultQueueLimit    = 32

	textSlowDown = "⏳ Too many requests. Please slow down a little."
)

// Handler is the conversation engine.
type Handler interface {
	Handle(ctx context.Context, action conversation.Action) conversation.Reply
}

type Params struct {
	Handler Handler
	API     botAPI
	Logger  *logger.Logger
	// Deduper defaults to an in-memory ring.
	Deduper Deduper
	// Limiter is optional; nil admits every action.
	Limiter       Limiter
	ActionTimeout time.Duration
	QueueLimit    int
	PollTimeout   time.Duration
}

// Bot feeds Telegram updates into the engine. Each user gets a private queue
// drained by a single goroutine, so one user's actions apply in arrival order
// while different users proceed in parallel.
type Bot struct {
	handler       Handler
	api           botAPI
	responder     *Responder
	logg          *logger.Logger
	dedupe        Deduper
	limiter       Limiter
	actionTimeout time.Duration
	queueLimit    int
	pollTimeout   time.Duration

	mu     sync.Mutex
	queues map[int64]*userQueue
	closed bool
	wg     sync.WaitGroup
}

type userQueue struct {
	pending []queued
}

type queued struct {
	ctx context.Context
	in  Inbound
}

var (
	ErrClosed    = errors.New("bot is shutting down")
	ErrQueueFull = errors.New("user queue is full")
)

func New(params Params) (*Bot, error) {
	if params.Handler == nil {
		return nil, errors.New("handler is required")
	}
	if params.API == nil {
		return nil, errors.New("bot api client is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	dedupe := params.Deduper
	if dedupe == nil {
		dedupe = NewMemoryDeduper(0)
	}
	timeout := params.ActionTimeout
	if timeout <= 0 {
		timeout = defaultActionTimeout
	}
	limit := params.QueueLimit
	if limit <= 0 {
		limit = defaultQueueLimit
	}
	poll := params.PollTimeout
	if poll <= 0 {
		poll = defaultPollTimeout
	}
	return &Bot{
		handler:       params.Handler,
		api:           params.API,
		responder:     NewResponder(params.API, params.Logger),
		logg:          params.Logger,
		dedupe:        dedupe,
		limiter:       params.Limiter,
		actionTimeout: timeout,
		queueLimit:    limit,
		pollTimeout:   poll,
		queues:        make(map[int64]*userQueue),
	}, nil
}

// Accept translates, dedupes and enqueues one update. It does not wait for the
// action to be handled. An update that could not be queued is unmarked so a
// redelivery is processed.
func (b *Bot) Accept(ctx context.Context, update telegram.Update) error {
	in, ok := FromUpdate(update)
	if !ok {
		b.logg.Debug(b.logg.WithField(ctx, "update_id", update.UpdateID), "update ignored")
		return nil
	}
	first, err := b.dedupe.FirstSeen(ctx, update.UpdateID)
	if err != nil {
		// fail open: a duplicate reply beats a lost one
		b.logg.Warn(b.logg.WithField(ctx, "error", err.Error()), "update dedupe unavailable")
		first = true
	}
	if !first {
		b.logg.Debug(b.logg.WithField(ctx, "update_id", update.UpdateID), "duplicate update dropped")
		return nil
	}
	if err := b.enqueue(context.WithoutCancel(ctx), in); err != nil {
		if ferr := b.dedupe.Forget(ctx, update.UpdateID); ferr != nil {
			b.logg.Warn(b.logg.WithField(ctx, "error", ferr.Error()), "update dedupe mark not cleared")
		}
		return err
	}
	return nil
}

func (b *Bot) enqueue(ctx context.Context, in Inbound) error {
	userID := in.Action.UserID

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	q, running := b.queues[userID]
	if !running {
		q = &userQueue{}
		b.queues[userID] = q
	}
	if len(q.pending) >= b.queueLimit {
		b.mu.Unlock()
		b.logg.Warn(b.logg.WithUserID(ctx, userID), "user queue full, update dropped")
		return ErrQueueFull
	}
	q.pending = append(q.pending, queued{ctx: ctx, in: in})
	if !running {
		b.wg.Add(1)
	}
	b.mu.Unlock()

	if !running {
		go b.drain(userID, q)
	}
	return nil
}

func (b *Bot) drain(userID int64, q *userQueue) {
	defer b.wg.Done()
	for {
		b.mu.Lock()
		if len(q.pending) == 0 {
			delete(b.queues, userID)
			b.mu.Unlock()
			return
		}
		item := q.pending[0]
		q.pending = q.pending[1:]
		b.mu.Unlock()

		b.process(item.ctx, item.in)
	}
}

func (b *Bot) process(ctx context.Context, in Inbound) {
	ctx, cancel := context.WithTimeout(ctx, b.actionTimeout)
	defer cancel()
	ctx = b.logg.WithFields(ctx, map[string]any{
		"update_id": in.UpdateID,
		"user_id":   in.Action.UserID,
	})

	var reply conversation.Reply
	if b.allowed(ctx, in.Action.UserID) {
		reply = b.handler.Handle(ctx, in.Action)
	} else {
		reply = conversation.Reply{Notice: textSlowDown, Alert: true}
	}
	if err := b.responder.Deliver(ctx, in, reply); err != nil {
		b.logg.Error(ctx, "reply delivery failed", err)
	}
}

func (b *Bot) allowed(ctx context.Context, userID int64) bool {
	if b.limiter == nil {
		return true
	}
	ok, err := b.limiter.Allow(ctx, userID)
	if err != nil {
		b.logg.Warn(b.logg.WithField(ctx, "error", err.Error()), "rate limiter unavailable")
		return true
	}
	if !ok {
		b.logg.Warn(ctx, "user rate limited")
	}
	return ok
}

// Shutdown stops accepting updates and waits for queued actions to finish.
func (b *Bot) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
