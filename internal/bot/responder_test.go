package bot

import (
	"context"
	"testing"

	"github.com/angelmondragon/menubot/internal/conversation"
	"github.com/angelmondragon/menubot/pkg/logger"
	"github.com/angelmondragon/menubot/pkg/telegram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromUpdate(t *testing.T) {
	user := &telegram.User{ID: 42, FirstName: "Ann", Username: "ann"}
	chat := telegram.Chat{ID: 42, Type: "private"}

	cases := []struct {
		name   string
		update telegram.Update
		want   conversation.ActionKind
		ok     bool
	}{
		{name: "command", update: telegram.Update{Message: &telegram.Message{From: user, Chat: chat, Text: "/start"}}, want: conversation.ActionCommand, ok: true},
		{name: "text", update: telegram.Update{Message: &telegram.Message{From: user, Chat: chat, Text: "+7900"}}, want: conversation.ActionText, ok: true},
		{name: "contact", update: telegram.Update{Message: &telegram.Message{From: user, Chat: chat, Contact: &telegram.Contact{PhoneNumber: "+7900"}}}, want: conversation.ActionContact, ok: true},
		{name: "callback", update: telegram.Update{CallbackQuery: &telegram.CallbackQuery{ID: "cb", From: *user, Data: "c:0", Message: &telegram.Message{MessageID: 9, Chat: chat}}}, want: conversation.ActionCallback, ok: true},
		{name: "sticker", update: telegram.Update{Message: &telegram.Message{From: user, Chat: chat}}},
		{name: "bot author", update: telegram.Update{Message: &telegram.Message{From: &telegram.User{ID: 1, IsBot: true}, Chat: chat, Text: "hi"}}},
		{name: "empty", update: telegram.Update{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, ok := FromUpdate(tc.update)
			require.Equal(t, tc.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tc.want, in.Action.Kind)
			assert.Equal(t, int64(42), in.Action.UserID)
			assert.Equal(t, int64(42), in.Action.ChatID)
		})
	}

	in, _ := FromUpdate(cases[2].update)
	assert.Equal(t, "+7900", in.Action.Phone)
	in, _ = FromUpdate(cases[3].update)
	assert.Equal(t, "cb", in.CallbackID)
	assert.Equal(t, int64(9), in.MessageID)
	assert.Equal(t, "c:0", in.Action.Payload)
}

func callbackInbound() Inbound {
	return Inbound{
		CallbackID: "cb-1",
		MessageID:  77,
		Action:     conversation.Action{Kind: conversation.ActionCallback, UserID: 42, ChatID: 42},
	}
}

func TestDeliverEditsPressedMessage(t *testing.T) {
	api := &fakeAPI{}
	r := NewResponder(api, logger.Nop())

	err := r.Deliver(context.Background(), callbackInbound(), conversation.Reply{
		Notice: "✅ Added to cart",
		Messages: []conversation.Message{{
			Text:     "menu",
			Keyboard: [][]conversation.Button{{{Text: "Rolls", Data: "c:0"}}},
		}},
	})
	require.NoError(t, err)

	require.Len(t, api.answered, 1)
	assert.Equal(t, telegram.AnswerCallbackQueryRequest{CallbackQueryID: "cb-1", Text: "✅ Added to cart"}, api.answered[0])
	require.Len(t, api.edited, 1)
	assert.Equal(t, int64(77), api.edited[0].MessageID)
	assert.Equal(t, "c:0", api.edited[0].ReplyMarkup.InlineKeyboard[0][0].CallbackData)
	assert.Empty(t, api.sent)
}

func TestDeliverIgnoresNotModified(t *testing.T) {
	api := &fakeAPI{editErr: &telegram.APIError{Code: 400, Description: "Bad Request: message is not modified"}}
	r := NewResponder(api, logger.Nop())

	err := r.Deliver(context.Background(), callbackInbound(), conversation.Reply{
		Messages: []conversation.Message{{Text: "menu"}},
	})
	require.NoError(t, err)
	assert.Empty(t, api.sent)
}

func TestDeliverFallsBackToSend(t *testing.T) {
	api := &fakeAPI{editErr: &telegram.APIError{Code: 400, Description: "Bad Request: message to edit not found"}}
	r := NewResponder(api, logger.Nop())

	err := r.Deliver(context.Background(), callbackInbound(), conversation.Reply{
		Messages: []conversation.Message{{Text: "menu"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"menu"}, api.sentTexts())
}

func TestDeliverAlertOnlyAnswersCallback(t *testing.T) {
	api := &fakeAPI{}
	r := NewResponder(api, logger.Nop())

	require.NoError(t, r.Deliver(context.Background(), callbackInbound(), conversation.Reply{Notice: "nope", Alert: true}))

	require.Len(t, api.answered, 1)
	assert.True(t, api.answered[0].ShowAlert)
	assert.Empty(t, api.edited)
	assert.Empty(t, api.sent)
}

func TestDeliverReplyKeyboards(t *testing.T) {
	api := &fakeAPI{}
	r := NewResponder(api, logger.Nop())

	err := r.Deliver(context.Background(), callbackInbound(), conversation.Reply{
		Messages: []conversation.Message{{Text: "share", RequestContact: true}},
	})
	require.NoError(t, err)
	assert.Empty(t, api.edited, "reply keyboards cannot be attached by an edit")
	require.Len(t, api.sent, 1)
	markup, ok := api.sent[0].ReplyMarkup.(telegram.ReplyKeyboardMarkup)
	require.True(t, ok)
	assert.True(t, markup.Keyboard[0][0].RequestContact)
	assert.True(t, markup.OneTimeKeyboard)

	in := Inbound{Action: conversation.Action{Kind: conversation.ActionContact, UserID: 42, ChatID: 42}}
	err = r.Deliver(context.Background(), in, conversation.Reply{
		Messages: []conversation.Message{{Text: "done", RemoveKeyboard: true}, {Text: "menu"}},
	})
	require.NoError(t, err)
	require.Len(t, api.sent, 3)
	assert.Equal(t, telegram.ReplyKeyboardRemove{RemoveKeyboard: true}, api.sent[1].ReplyMarkup)
	assert.Nil(t, api.sent[2].ReplyMarkup)
}

func TestDeliverNoticeAsMessageOutsideCallbacks(t *testing.T) {
	api := &fakeAPI{}
	r := NewResponder(api, logger.Nop())

	in := Inbound{Action: conversation.Action{Kind: conversation.ActionCommand, UserID: 42, ChatID: 42}}
	require.NoError(t, r.Deliver(context.Background(), in, conversation.Reply{Notice: "menu unavailable"}))

	assert.Equal(t, []string{"menu unavailable"}, api.sentTexts())
	assert.Empty(t, api.answered)
}
