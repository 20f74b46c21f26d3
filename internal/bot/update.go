package bot

import (
	"strings"

	"github.com/angelmondragon/menubot/internal/conversation"
	"github.com/angelmondragon/menubot/pkg/telegram"
)

// Inbound is a translated update plus what the responder needs to answer it.
type Inbound struct {
	UpdateID   int64
	Action     conversation.Action
	CallbackID string
	// MessageID is the message that carried the pressed keyboard.
	MessageID int64
}

func (in Inbound) IsCallback() bool {
	return in.CallbackID != ""
}

// FromUpdate maps a Bot API update onto a conversation action. Updates the
// assistant does not react to (bots, edits, stickers) report false.
func FromUpdate(update telegram.Update) (Inbound, bool) {
	in := Inbound{UpdateID: update.UpdateID}

	if cb := update.CallbackQuery; cb != nil {
		if cb.From.IsBot || cb.From.ID == 0 {
			return Inbound{}, false
		}
		in.CallbackID = cb.ID
		in.Action = conversation.Action{
			Kind:      conversation.ActionCallback,
			UserID:    cb.From.ID,
			ChatID:    cb.From.ID,
			Username:  cb.From.Username,
			FirstName: cb.From.FirstName,
			Payload:   cb.Data,
		}
		if cb.Message != nil {
			in.Action.ChatID = cb.Message.Chat.ID
			in.MessageID = cb.Message.MessageID
		}
		return in, true
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return Inbound{}, false
	}
	in.Action = conversation.Action{
		UserID:    msg.From.ID,
		ChatID:    msg.Chat.ID,
		Username:  msg.From.Username,
		FirstName: msg.From.FirstName,
	}
	switch {
	case msg.Contact != nil:
		in.Action.Kind = conversation.ActionContact
		in.Action.Phone = msg.Contact.PhoneNumber
	case msg.IsCommand():
		in.Action.Kind = conversation.ActionCommand
		in.Action.Payload = strings.TrimSpace(msg.Text)
	case strings.TrimSpace(msg.Text) != "":
		in.Action.Kind = conversation.ActionText
		in.Action.Payload = msg.Text
	default:
		return Inbound{}, false
	}
	return in, true
}
