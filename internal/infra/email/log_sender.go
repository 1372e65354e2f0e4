package email

import (
	"context"

	"landten/internal/domain/messaging"

	"github.com/sirupsen/logrus"
)

// LogSender stands in for SMTP when no server is configured.
type LogSender struct {
	log *logrus.Entry
}

func NewLogSender(log *logrus.Entry) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, to messaging.Recipient, text string) error {
	if to.Email == "" {
		return messaging.ErrNoAddress
	}
	s.log.WithFields(logrus.Fields{
		"to":   to.Email,
		"name": to.Name,
	}).Infof("Email: %s", text)
	return nil
}
