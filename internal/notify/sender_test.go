package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bulk-deal-tracker/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// MockSender is a mock implementation of Sender.
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockSender) Send(ctx context.Context, msg Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

var testMessage = Message{Subject: "Daily Bulk & Block Deals Report - 15 October 2026", HTML: "<p>report</p>", Text: "*report*"}

func TestDispatch_FailureDoesNotStopOtherChannels(t *testing.T) {
	// Arrange
	core, logs := observer.New(zap.InfoLevel)
	email, chat := new(MockSender), new(MockSender)
	email.On("Name").Return("email")
	email.On("Send", mock.Anything, testMessage).Return(errors.New("smtp down"))
	chat.On("Name").Return("chat")
	chat.On("Send", mock.Anything, testMessage).Return(nil)

	// Act
	delivered := Dispatch(context.Background(), zap.New(core), testMessage, email, chat)

	// Assert
	assert.Equal(t, 1, delivered)
	email.AssertNumberOfCalls(t, "Send", 1)
	chat.AssertExpectations(t)
	failed := logs.FilterMessage("Failed to send notification").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "email", failed[0].ContextMap()["channel"])
}

func TestNewEmailSender(t *testing.T) {
	s, err := NewEmailSender(&config.Email{Provider: "SMTP", SMTPHost: "smtp.example.com", SMTPPort: 587}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &SMTPSender{}, s)

	s, err = NewEmailSender(&config.Email{Provider: "mailgun", MailgunDomain: "mg.example.com", MailgunAPIKey: "key"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &MailgunSender{}, s)

	_, err = NewEmailSender(&config.Email{Provider: "pigeon"}, zap.NewNop())
	assert.Error(t, err)
}

func writeAttachmentFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "NSE_Bulk_Deals_20261015.csv")
	require.NoError(t, os.WriteFile(path, []byte("symbol,participant_name\nACME,ACME CAPITAL\n"), 0o600))
	return path
}

func TestSMTPSender_Send(t *testing.T) {
	// Arrange
	attachment := writeAttachmentFile(t)
	sender := NewSMTPSender(&config.Email{
		User: "reports@example.com", Password: "pw", SMTPHost: "smtp.example.com", SMTPPort: 587,
		SenderName: "Bulk Deal Tracker", To: []string{"a@example.com", "b@example.com"},
	}, zap.NewNop())

	var gotAddr, gotFrom string
	var gotTo []string
	var raw []byte
	sender.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, raw = addr, from, to, msg
		return nil
	}
	msg := testMessage
	msg.Attachments = []string{attachment, filepath.Join(t.TempDir(), "missing.csv")}

	// Act
	err := sender.Send(context.Background(), msg)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "reports@example.com", gotFrom)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, gotTo)

	parsed, err := mail.ReadMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)
	subject, err := new(mime.WordDecoder).DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, testMessage.Subject, subject)
	assert.Equal(t, "Bulk Deal Tracker <reports@example.com>", parsed.Header.Get("From"))

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	reader := multipart.NewReader(parsed.Body, params["boundary"])
	alt, err := reader.NextPart()
	require.NoError(t, err)
	altType, altParams, err := mime.ParseMediaType(alt.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", altType)

	altReader := multipart.NewReader(alt, altParams["boundary"])
	textPart, err := altReader.NextPart()
	require.NoError(t, err)
	text, _ := io.ReadAll(textPart)
	assert.Equal(t, "*report*", string(text))
	htmlPart, err := altReader.NextPart()
	require.NoError(t, err)
	html, _ := io.ReadAll(htmlPart)
	assert.Equal(t, "<p>report</p>", string(html))

	att, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "NSE_Bulk_Deals_20261015.csv", att.FileName())
	encoded, _ := io.ReadAll(att)
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(string(encoded), "\r\n", ""))
	require.NoError(t, err)
	assert.Equal(t, "symbol,participant_name\nACME,ACME CAPITAL\n", string(decoded))

	_, err = reader.NextPart()
	assert.ErrorIs(t, err, io.EOF, "unreadable attachment is skipped")
}

func TestSMTPSender_SendError(t *testing.T) {
	sender := NewSMTPSender(&config.Email{SMTPHost: "smtp.example.com", SMTPPort: 587, To: []string{"a@example.com"}}, zap.NewNop())
	sender.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("535 authentication failed")
	}

	err := sender.Send(context.Background(), testMessage)

	assert.ErrorContains(t, err, "failed to send email via SMTP")
}

func TestMailgunSender_Send(t *testing.T) {
	// Arrange
	attachment := writeAttachmentFile(t)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/mg.example.com/messages"), r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "api", user)
		assert.Equal(t, "mg-key", pass)

		if assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			assert.Equal(t, testMessage.Subject, r.FormValue("subject"))
			assert.Equal(t, testMessage.HTML, r.FormValue("html"))
			assert.Equal(t, "Bulk Deal Tracker <reports@example.com>", r.FormValue("from"))
			assert.ElementsMatch(t, []string{"a@example.com"}, r.MultipartForm.Value["to"])
			assert.Len(t, r.MultipartForm.File["attachment"], 1)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "<20261015.1@mg.example.com>", "message": "Queued. Thank you."})
	})
	server := httptest.NewServer(handler)
	defer server.Close()

	sender := NewMailgunSender(&config.Email{
		MailgunDomain: "mg.example.com", MailgunAPIKey: "mg-key", MailgunAPIBase: server.URL + "/v3",
		User: "reports@example.com", SenderName: "Bulk Deal Tracker", To: []string{"a@example.com"},
		Timeout: 5 * time.Second,
	}, zap.NewNop())
	msg := testMessage
	msg.Attachments = []string{attachment}

	// Act
	err := sender.Send(context.Background(), msg)

	// Assert
	assert.NoError(t, err)
}

func TestTelegramSender_Send(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Arrange
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/botbot-token/sendMessage", r.URL.Path)
			var req sendMessageRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "-1001", req.ChatID)
			assert.Equal(t, "Markdown", req.ParseMode)
			assert.Equal(t, "*report*", req.Text)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
		})
		server := httptest.NewServer(handler)
		defer server.Close()
		sender := NewTelegramSender(&config.Telegram{BotToken: "bot-token", ChatID: "-1001", APIURL: server.URL, Timeout: 5 * time.Second}, zap.NewNop())

		// Act
		err := sender.Send(context.Background(), testMessage)

		// Assert
		assert.NoError(t, err)
	})

	t.Run("APIError", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
		})
		server := httptest.NewServer(handler)
		defer server.Close()
		sender := NewTelegramSender(&config.Telegram{BotToken: "bot-token", ChatID: "1", APIURL: server.URL, Timeout: 5 * time.Second}, zap.NewNop())

		err := sender.Send(context.Background(), testMessage)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "chat not found")
		assert.NotContains(t, err.Error(), "bot-token")
	})

	t.Run("LongMessageIsTrimmed", func(t *testing.T) {
		var got int
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req sendMessageRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			got = len([]rune(req.Text))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		server := httptest.NewServer(handler)
		defer server.Close()
		sender := NewTelegramSender(&config.Telegram{BotToken: "t", ChatID: "1", APIURL: server.URL, Timeout: 5 * time.Second}, zap.NewNop())

		err := sender.Send(context.Background(), Message{Text: strings.Repeat("x", 5000)})

		require.NoError(t, err)
		assert.Equal(t, telegramMaxLength, got)
	})
}
