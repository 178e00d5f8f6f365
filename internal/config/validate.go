package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	DriverSupabase = "supabase"
	DriverSQLite   = "sqlite"

	ProviderSMTP    = "smtp"
	ProviderMailgun = "mailgun"
)

// Validate checks that every client the job needs can be constructed.
// Missing credentials are fatal before any fetch happens.
func (c *Config) Validate() error {
	if err := c.Store.validate(); err != nil {
		return err
	}
	if err := c.Email.validate(); err != nil {
		return err
	}
	if c.Telegram.BotToken == "" || c.Telegram.ChatID == "" {
		return errors.New("telegram.bot_token and telegram.chat_id are required")
	}
	if c.Exchange.Timeout <= 0 {
		return fmt.Errorf("exchange.timeout must be positive, got %s", c.Exchange.Timeout)
	}
	if _, err := c.Fetch.Location(); err != nil {
		return fmt.Errorf("fetch.timezone: %w", err)
	}
	if c.Exchange.MinInterval < 0 {
		return fmt.Errorf("exchange.min_interval must be >= 0, got %s", c.Exchange.MinInterval)
	}
	return nil
}

func (s *Store) validate() error {
	switch strings.ToLower(s.Driver) {
	case DriverSupabase:
		if s.SupabaseURL == "" || s.SupabaseKey == "" {
			return errors.New("store.supabase_url and store.supabase_key are required")
		}
	case DriverSQLite:
		if s.SQLitePath == "" {
			return errors.New("store.sqlite_path is required")
		}
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", DriverSupabase, DriverSQLite, s.Driver)
	}
	if s.BatchSize < 1 {
		return errors.New("store.batch_size must be >= 1")
	}
	return nil
}

func (e *Email) validate() error {
	switch strings.ToLower(e.Provider) {
	case ProviderSMTP:
		if e.User == "" || e.Password == "" {
			return errors.New("email.user and email.password are required")
		}
		if e.SMTPHost == "" || e.SMTPPort < 1 || e.SMTPPort > 65535 {
			return fmt.Errorf("email.smtp_host/smtp_port invalid: %q:%d", e.SMTPHost, e.SMTPPort)
		}
	case ProviderMailgun:
		if e.MailgunDomain == "" || e.MailgunAPIKey == "" || e.User == "" {
			return errors.New("email.mailgun_domain, email.mailgun_api_key and email.user are required")
		}
	default:
		return fmt.Errorf("email.provider must be %q or %q, got %q", ProviderSMTP, ProviderMailgun, e.Provider)
	}
	if len(e.To) == 0 {
		return errors.New("email.to requires at least one recipient")
	}
	return nil
}
