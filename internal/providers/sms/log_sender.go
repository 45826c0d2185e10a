package sms

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LogSender writes messages to the log instead of sending them. It is used
// when no SMS provider is configured.
type LogSender struct {
	Logger *logrus.Logger
}

func (s *LogSender) Send(_ context.Context, to, body string) (string, error) {
	id := "log-" + uuid.NewString()
	s.Logger.WithFields(logrus.Fields{"to": to, "message_id": id}).Info(body)
	return id, nil
}
