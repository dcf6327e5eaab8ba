package email

import (
	"github.com/dimitrije/boltstax-api/internal/config"
	"github.com/sirupsen/logrus"
)

// NewSender picks the delivery backend from configuration: the hosted
// function first, then SMTP. Outside production an unconfigured service logs
// emails; in production every send fails with ErrConfigurationMissing.
func NewSender(cfg *config.Config, log logrus.FieldLogger) Sender {
	if cfg.EmailFunction.URL != "" {
		return NewFunctionSender(cfg.EmailFunction)
	}
	if smtpSender := NewSMTPSender(cfg.SMTP); smtpSender.IsConfigured() {
		return smtpSender
	}
	if !cfg.IsProduction() {
		return NewLogSender(log)
	}
	log.Warn("no email backend configured")
	return unconfigured{}
}
