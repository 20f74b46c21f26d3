package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/angelmondragon/menubot/api/responses"
	"github.com/angelmondragon/menubot/internal/bot"
	pkgerrors "github.com/angelmondragon/menubot/pkg/errors"
	"github.com/angelmondragon/menubot/pkg/logger"
	"github.com/angelmondragon/menubot/pkg/telegram"
)

type updateAcceptor interface {
	Accept(ctx context.Context, update telegram.Update) error
}

// TelegramWebhook queues a pushed update and acknowledges immediately. Telegram
// retries anything but a 2xx, so only updates that were not queued are
// reported as errors.
func TelegramWebhook(acceptor updateAcceptor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var update telegram.Update
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&update); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid update payload"))
			return
		}
		if logg != nil {
			ctx = logg.WithField(ctx, "update_id", update.UpdateID)
		}

		if err := acceptor.Accept(ctx, update); err != nil {
			if errors.Is(err, bot.ErrClosed) {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnavailable, err, "shutting down"))
				return
			}
			if errors.Is(err, bot.ErrQueueFull) {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeRateLimit, err, "update queue full"))
				return
			}
			if logg != nil {
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "webhook update dropped")
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}
