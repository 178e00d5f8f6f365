package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bulk-deal-tracker/internal/config"
	"go.uber.org/zap"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender emails the report through an authenticated SMTP relay.
type SMTPSender struct {
	host     string
	addr     string
	user     string
	password string
	from     string
	to       []string
	logger   *zap.Logger
	sendMail sendMailFunc
}

// NewSMTPSender creates a new SMTPSender.
func NewSMTPSender(cfg *config.Email, logger *zap.Logger) *SMTPSender {
	return &SMTPSender{
		host:     cfg.SMTPHost,
		addr:     net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		user:     cfg.User,
		password: cfg.Password,
		from:     fromAddress(cfg.SenderName, cfg.User),
		to:       cfg.To,
		logger:   logger.Named("smtp"),
		sendMail: smtp.SendMail,
	}
}

// Name implements Sender.
func (s *SMTPSender) Name() string {
	return "email"
}

// Send implements Sender. net/smtp has no context support, so ctx is only
// checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := s.build(msg, time.Now())
	if err != nil {
		return err
	}

	auth := smtp.PlainAuth("", s.user, s.password, s.host)
	if err := s.sendMail(s.addr, auth, s.user, s.to, body); err != nil {
		return fmt.Errorf("failed to send email via SMTP: %w", err)
	}
	s.logger.Info("Email report sent", zap.Strings("to", s.to), zap.Int("attachments", len(msg.Attachments)))
	return nil
}

// build renders msg as multipart/mixed: a text/html alternative followed by
// one part per attachment. Unreadable attachments are logged and left out.
func (s *SMTPSender) build(msg Message, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	mixed := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", s.from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(s.to, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", now.Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixed.Boundary())

	var alt bytes.Buffer
	altWriter := multipart.NewWriter(&alt)
	if err := writeQuotedPart(altWriter, "text/plain; charset=UTF-8", msg.Text); err != nil {
		return nil, err
	}
	if err := writeQuotedPart(altWriter, "text/html; charset=UTF-8", msg.HTML); err != nil {
		return nil, err
	}
	if err := altWriter.Close(); err != nil {
		return nil, err
	}

	part, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type": {fmt.Sprintf("multipart/alternative; boundary=%q", altWriter.Boundary())},
	})
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(alt.Bytes()); err != nil {
		return nil, err
	}

	for _, path := range msg.Attachments {
		if err := writeAttachment(mixed, path); err != nil {
			s.logger.Warn("Skipping attachment", zap.String("path", path), zap.Error(err))
		}
	}

	if err := mixed.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeQuotedPart(w *multipart.Writer, contentType, body string) error {
	part, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {contentType},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return err
	}
	qp := quotedprintable.NewWriter(part)
	if _, err := qp.Write([]byte(body)); err != nil {
		return err
	}
	return qp.Close()
}

func writeAttachment(w *multipart.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	name := filepath.Base(path)
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	part, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {mime.FormatMediaType(contentType, map[string]string{"name": name})},
		"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": name})},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return err
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		if _, err := fmt.Fprintf(part, "%s\r\n", encoded[:76]); err != nil {
			return err
		}
		encoded = encoded[76:]
	}
	_, err = fmt.Fprintf(part, "%s\r\n", encoded)
	return err
}
