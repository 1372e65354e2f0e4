// Package messaging abstracts outbound direct messages to people (email, SMS, Telegram).
package messaging

import (
	"context"
	"errors"
)

var ErrNoAddress = errors.New("messaging: recipient has no address on this channel")

// Recipient carries every address a person may be reachable on.
type Recipient struct {
	Name           string
	Email          string
	Phone          string
	TelegramChatID int64
}

// Sender delivers a plain-text message. It decouples the application from any bot or SMS library.
type Sender interface {
	Send(ctx context.Context, to Recipient, text string) error
}
