package notify

import (
	"context"
	"fmt"
	"strings"

	"bulk-deal-tracker/internal/config"
	"go.uber.org/zap"
)

// Sender delivers a composed message over one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Dispatch sends msg through every sender once. Failures are logged and do
// not stop the remaining channels. It returns the number of channels that
// delivered the message.
func Dispatch(ctx context.Context, logger *zap.Logger, msg Message, senders ...Sender) int {
	delivered := 0
	for _, s := range senders {
		if err := s.Send(ctx, msg); err != nil {
			logger.Error("Failed to send notification", zap.String("channel", s.Name()), zap.Error(err))
			continue
		}
		logger.Info("Notification sent", zap.String("channel", s.Name()))
		delivered++
	}
	return delivered
}

// NewEmailSender returns the email sender for the configured provider.
func NewEmailSender(cfg *config.Email, logger *zap.Logger) (Sender, error) {
	switch strings.ToLower(cfg.Provider) {
	case config.ProviderMailgun:
		return NewMailgunSender(cfg, logger), nil
	case config.ProviderSMTP:
		return NewSMTPSender(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

func fromAddress(name, addr string) string {
	if name == "" {
		return addr
	}
	return fmt.Sprintf("%s <%s>", name, addr)
}
