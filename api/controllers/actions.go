package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/menubot/api/responses"
	"github.com/angelmondragon/menubot/api/validators"
	"github.com/angelmondragon/menubot/internal/conversation"
	"github.com/angelmondragon/menubot/pkg/logger"
)

type actionHandler interface {
	Handle(ctx context.Context, action conversation.Action) conversation.Reply
}

// PostAction runs one action through the engine and returns the reply as JSON.
// Business rejections still answer 200; the reply carries the notice.
func PostAction(engine actionHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var action conversation.Action
		if err := validators.DecodeJSONBody(w, r, &action); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if action.ChatID == 0 {
			action.ChatID = action.UserID
		}
		responses.WriteSuccess(w, engine.Handle(r.Context(), action))
	}
}
