package email

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogSender renders messages and writes them to the log instead of sending
// them. Development only.
type LogSender struct {
	log logrus.FieldLogger
}

func NewLogSender(log logrus.FieldLogger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	subject, _, err := Render(msg)
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"to":       msg.To,
		"template": msg.Template,
		"subject":  subject,
	}).Info("email not sent: development sender")
	return nil
}
