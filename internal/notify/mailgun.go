package notify

import (
	"context"
	"fmt"
	"time"

	"bulk-deal-tracker/internal/config"
	"github.com/mailgun/mailgun-go/v4"
	"go.uber.org/zap"
)

// MailgunSender emails the report through the Mailgun API.
type MailgunSender struct {
	mg      mailgun.Mailgun
	from    string
	to      []string
	timeout time.Duration
	logger  *zap.Logger
}

// NewMailgunSender creates a new MailgunSender.
func NewMailgunSender(cfg *config.Email, logger *zap.Logger) *MailgunSender {
	mg := mailgun.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey)
	if cfg.MailgunAPIBase != "" {
		mg.SetAPIBase(cfg.MailgunAPIBase)
	}
	logger.Info("Mailgun client initialized", zap.String("domain", cfg.MailgunDomain))

	return &MailgunSender{
		mg:      mg,
		from:    fromAddress(cfg.SenderName, cfg.User),
		to:      cfg.To,
		timeout: cfg.Timeout,
		logger:  logger.Named("mailgun"),
	}
}

// Name implements Sender.
func (s *MailgunSender) Name() string {
	return "email"
}

// Send implements Sender.
func (s *MailgunSender) Send(ctx context.Context, msg Message) error {
	m := s.mg.NewMessage(s.from, msg.Subject, msg.Text, s.to...)
	m.SetHtml(msg.HTML)
	for _, path := range msg.Attachments {
		m.AddAttachment(path)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, id, err := s.mg.Send(ctx, m)
	if err != nil {
		return fmt.Errorf("mailgun send failed: %w. Response: %s", err, resp)
	}
	s.logger.Info("Email report sent", zap.Strings("to", s.to), zap.String("id", id))
	return nil
}
