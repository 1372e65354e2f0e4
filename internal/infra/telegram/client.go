package telegram

import (
	"context"

	"landten/internal/domain/messaging"

	"gopkg.in/telebot.v3"
)

// botSender is the part of *telebot.Bot the adapter needs.
type botSender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// TelebotAdapter implements messaging.Sender using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot botSender
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// Send delivers text to the recipient's linked Telegram chat.
func (tba *TelebotAdapter) Send(ctx context.Context, to messaging.Recipient, text string) error {
	if to.TelegramChatID == 0 {
		return messaging.ErrNoAddress
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	recipient := &telebot.User{ID: to.TelegramChatID}
	_, err := tba.bot.Send(recipient, text, &telebot.SendOptions{DisableWebPagePreview: true})
	return err
}
