package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/menubot/internal/conversation"
	"github.com/angelmondragon/menubot/pkg/logger"
	"github.com/angelmondragon/menubot/pkg/telegram"
	"go.uber.org/multierr"
)

const contactButtonText = "📱 Send contact"

type botAPI interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error)
	SendMessage(ctx context.Context, req telegram.SendMessageRequest) (*telegram.Message, error)
	EditMessageText(ctx context.Context, req telegram.EditMessageTextRequest) error
	AnswerCallbackQuery(ctx context.Context, req telegram.AnswerCallbackQueryRequest) error
}

// Responder renders conversation replies through the Bot API. Callback
// replies edit the pressed message in place when they can.
type Responder struct {
	api  botAPI
	logg *logger.Logger
}

func NewResponder(api botAPI, logg *logger.Logger) *Responder {
	return &Responder{api: api, logg: logg}
}

func (r *Responder) Deliver(ctx context.Context, in Inbound, reply conversation.Reply) error {
	var errs error
	chatID := in.Action.ChatID
	messages := reply.Messages

	if in.IsCallback() {
		// always answer, even silently, so the client stops the spinner
		if err := r.api.AnswerCallbackQuery(ctx, telegram.AnswerCallbackQueryRequest{
			CallbackQueryID: in.CallbackID,
			Text:            reply.Notice,
			ShowAlert:       reply.Alert,
		}); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("answer callback: %w", err))
		}
		if len(messages) > 0 && in.MessageID != 0 && editable(messages[0]) {
			err := r.api.EditMessageText(ctx, telegram.EditMessageTextRequest{
				ChatID:      chatID,
				MessageID:   in.MessageID,
				Text:        messages[0].Text,
				ReplyMarkup: inlineMarkup(messages[0].Keyboard),
			})
			switch {
			case err == nil, telegram.IsNotModified(err):
				messages = messages[1:]
			default:
				r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "edit failed, sending a new message")
			}
		}
	} else if len(messages) == 0 && reply.Notice != "" {
		messages = []conversation.Message{{Text: reply.Notice}}
	}

	for _, msg := range messages {
		if _, err := r.api.SendMessage(ctx, telegram.SendMessageRequest{
			ChatID:      chatID,
			Text:        msg.Text,
			ReplyMarkup: markupFor(msg),
		}); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("send message: %w", err))
		}
	}
	return errs
}

// editable reports whether msg fits editMessageText, which only carries inline keyboards.
func editable(msg conversation.Message) bool {
	return !msg.RequestContact && !msg.RemoveKeyboard
}

func markupFor(msg conversation.Message) any {
	switch {
	case msg.RequestContact:
		return telegram.ReplyKeyboardMarkup{
			Keyboard:        [][]telegram.KeyboardButton{{{Text: contactButtonText, RequestContact: true}}},
			ResizeKeyboard:  true,
			OneTimeKeyboard: true,
		}
	case msg.RemoveKeyboard:
		return telegram.ReplyKeyboardRemove{RemoveKeyboard: true}
	case len(msg.Keyboard) > 0:
		return inlineMarkup(msg.Keyboard)
	default:
		return nil
	}
}

func inlineMarkup(rows [][]conversation.Button) *telegram.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	keyboard := make([][]telegram.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		out := make([]telegram.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			out = append(out, telegram.InlineKeyboardButton{Text: b.Text, CallbackData: b.Data})
		}
		keyboard = append(keyboard, out)
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}
