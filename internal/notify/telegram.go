package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"bulk-deal-tracker/internal/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// telegramMaxLength is the Bot API limit for a single message.
const telegramMaxLength = 4096

// TelegramSender posts the chat rendering to a Telegram chat.
type TelegramSender struct {
	client *resty.Client
	token  string
	chatID string
	logger *zap.Logger
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type botResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NewTelegramSender creates a new TelegramSender.
func NewTelegramSender(cfg *config.Telegram, logger *zap.Logger) *TelegramSender {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIURL, "/")).
		SetTimeout(cfg.Timeout)

	return &TelegramSender{
		client: client,
		token:  cfg.BotToken,
		chatID: cfg.ChatID,
		logger: logger.Named("telegram"),
	}
}

// Name implements Sender.
func (s *TelegramSender) Name() string {
	return "chat"
}

// Send implements Sender.
func (s *TelegramSender) Send(ctx context.Context, msg Message) error {
	text := msg.Text
	if r := []rune(text); len(r) > telegramMaxLength {
		text = string(r[:telegramMaxLength-3]) + "..."
	}

	var result botResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(sendMessageRequest{ChatID: s.chatID, Text: text, ParseMode: "Markdown"}).
		SetResult(&result).
		SetError(&result).
		Post("/bot" + s.token + "/sendMessage")
	if err != nil {
		// The request URL carries the bot token; keep it out of logs.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("telegram request failed: %w", err)
	}
	if resp.IsError() || !result.OK {
		return fmt.Errorf("telegram sendMessage failed with status %s: %s", resp.Status(), result.Description)
	}

	s.logger.Info("Chat alert sent", zap.String("chat_id", s.chatID))
	return nil
}
