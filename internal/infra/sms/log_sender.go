// Package sms provides the SMS delivery channel. No gateway is wired yet, so messages are logged.
package sms

import (
	"context"

	"landten/internal/domain/messaging"

	"github.com/sirupsen/logrus"
)

// LogSender implements messaging.Sender by logging the message it would have sent.
type LogSender struct {
	log *logrus.Entry
}

func NewLogSender(log *logrus.Entry) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, to messaging.Recipient, text string) error {
	if to.Phone == "" {
		return messaging.ErrNoAddress
	}
	s.log.WithFields(logrus.Fields{
		"to":   to.Phone,
		"name": to.Name,
	}).Infof("SMS: %s", text)
	return nil
}
