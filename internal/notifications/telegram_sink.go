package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/menubot/internal/orders"
	pkgerrors "github.com/angelmondragon/menubot/pkg/errors"
	"github.com/angelmondragon/menubot/pkg/telegram"
	"go.uber.org/multierr"
)

const defaultRetryDelay = time.Second

type messageSender interface {
	SendMessage(ctx context.Context, req telegram.SendMessageRequest) (*telegram.Message, error)
}

// TelegramSink sends the formatted order to every operator chat. A transient
// failure is retried once per chat if the deadline leaves room for it.
type TelegramSink struct {
	sender    messageSender
	operators []int64
	formatter orders.Formatter
	sleep     func(context.Context, time.Duration) error
}

func NewTelegramSink(sender messageSender, operators []int64, formatter orders.Formatter) *TelegramSink {
	return &TelegramSink{
		sender:    sender,
		operators: append([]int64(nil), operators...),
		formatter: formatter,
		sleep:     sleepCtx,
	}
}

func (s *TelegramSink) Name() string { return "telegram" }

func (s *TelegramSink) Deliver(ctx context.Context, order *orders.Order) error {
	text := s.formatter.Notification(order)
	var errs error
	for _, chatID := range s.operators {
		if err := s.send(ctx, chatID, text); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("operator %d: %w", chatID, err))
		}
	}
	return errs
}

func (s *TelegramSink) send(ctx context.Context, chatID int64, text string) error {
	req := telegram.SendMessageRequest{ChatID: chatID, Text: text}
	_, err := s.sender.SendMessage(ctx, req)
	if err == nil || !pkgerrors.Retryable(err) {
		return err
	}
	delay := telegram.RetryAfter(err)
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= delay {
		return err
	}
	if sleepErr := s.sleep(ctx, delay); sleepErr != nil {
		return err
	}
	_, err = s.sender.SendMessage(ctx, req)
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
