package telegram

import (
	"context"
	"errors"
	"testing"

	"landten/internal/domain/messaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

type fakeBot struct {
	to   telebot.Recipient
	what interface{}
	err  error
}

func (f *fakeBot) Send(to telebot.Recipient, what interface{}, _ ...interface{}) (*telebot.Message, error) {
	f.to, f.what = to, what
	return &telebot.Message{}, f.err
}

func TestTelebotAdapter_Send(t *testing.T) {
	bot := &fakeBot{}
	a := &TelebotAdapter{bot: bot}

	require.NoError(t, a.Send(context.Background(), messaging.Recipient{TelegramChatID: 42}, "hello"))
	assert.Equal(t, "42", bot.to.Recipient())
	assert.Equal(t, "hello", bot.what)
}

func TestTelebotAdapter_NoChat(t *testing.T) {
	a := &TelebotAdapter{bot: &fakeBot{}}
	assert.ErrorIs(t, a.Send(context.Background(), messaging.Recipient{Name: "x"}, "hello"), messaging.ErrNoAddress)
}

func TestTelebotAdapter_PropagatesError(t *testing.T) {
	boom := errors.New("blocked by user")
	a := &TelebotAdapter{bot: &fakeBot{err: boom}}
	assert.ErrorIs(t, a.Send(context.Background(), messaging.Recipient{TelegramChatID: 1}, "hi"), boom)
}
