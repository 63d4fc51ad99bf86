package notify

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"taskmanager/internal/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/gomail.v2"
)

type fakeSender struct {
	messages []*gomail.Message
	err      error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, m...)
	return nil
}

func TestVerificationLink(t *testing.T) {
	id := uuid.New()
	link := VerificationLink("https://tasks.example.com", id, "abc123")

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/verify-email", u.Path)
	assert.Equal(t, id.String(), u.Query().Get("id"))
	assert.Equal(t, "abc123", u.Query().Get("token"))
}

func TestEmailNotifier_SendVerification(t *testing.T) {
	fake := &fakeSender{}
	n := &EmailNotifier{from: "noreply@example.com", dialer: fake, log: zap.NewNop()}

	err := n.SendVerification(context.Background(), Verification{
		UserID: uuid.New(),
		Name:   "Jane <script>",
		Email:  "jane@example.com",
		Link:   "https://tasks.example.com/verify-email?id=1&token=t",
	})
	require.NoError(t, err)
	require.Len(t, fake.messages, 1)

	m := fake.messages[0]
	assert.Equal(t, []string{"jane@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Verify Email Address"}, m.GetHeader("Subject"))

	var sb strings.Builder
	_, err = m.WriteTo(&sb)
	require.NoError(t, err)
	assert.NotContains(t, sb.String(), "<script>")
}

func TestEmailNotifier_Errors(t *testing.T) {
	n := &EmailNotifier{from: "noreply@example.com", dialer: &fakeSender{err: errors.New("dial tcp: refused")}, log: zap.NewNop()}

	err := n.SendVerification(context.Background(), Verification{Email: "jane@example.com"})
	assert.ErrorContains(t, err, "send email")

	err = n.SendVerification(context.Background(), Verification{Email: "  "})
	assert.ErrorContains(t, err, "empty recipient")
}

func TestLogNotifier_WritesLink(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.SendVerification(context.Background(), Verification{Email: "a@b.c", Link: "http://x/verify-email"}))

	entries := logs.FilterMessage("verification link").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "http://x/verify-email", entries[0].ContextMap()["link"])
}

func TestNew_FallsBackToLog(t *testing.T) {
	assert.IsType(t, &LogNotifier{}, New(config.MailConfig{}, zap.NewNop()))
	assert.IsType(t, &EmailNotifier{}, New(config.MailConfig{SMTPHost: "smtp", From: "a@b.c", SMTPPort: 587}, zap.NewNop()))
}
