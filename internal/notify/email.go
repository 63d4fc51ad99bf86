package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"taskmanager/internal/config"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// sender is the part of gomail.Dialer the notifier uses.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier sends verification links over SMTP.
type EmailNotifier struct {
	from   string
	dialer sender
	log    *zap.Logger
}

func NewEmailNotifier(cfg config.MailConfig, log *zap.Logger) *EmailNotifier {
	return &EmailNotifier{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
		log:    log,
	}
}

var verificationTmpl = template.Must(template.New("verify").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Verify your email address</h2>
    <p>Hello {{.Name}},</p>
    <p>Thanks for signing up. Please confirm your address to start managing your tasks.</p>
    <p><a href="{{.Link}}" style="display:inline-block;padding:12px 20px;background:#2563eb;color:#fff;text-decoration:none;border-radius:8px;">Verify Email</a></p>
    <p style="font-size:12px;color:#6b7280;">If you did not create an account, no further action is required.</p>
  </div>
</body>
</html>`))

func (n *EmailNotifier) SendVerification(ctx context.Context, v Verification) error {
	if strings.TrimSpace(v.Email) == "" {
		return fmt.Errorf("empty recipient")
	}

	var body bytes.Buffer
	if err := verificationTmpl.Execute(&body, v); err != nil {
		return fmt.Errorf("render verification email: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", v.Email)
	m.SetHeader("Subject", "Verify Email Address")
	m.SetBody("text/html", body.String())
	m.AddAlternative("text/plain", "Open this link to verify your email address: "+v.Link)

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	n.log.Info("verification email sent", zap.String("to", v.Email), zap.String("user_id", v.UserID.String()))
	return nil
}

// LogNotifier writes the link to the log instead of mailing it.
// Used when SMTP is not configured.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendVerification(ctx context.Context, v Verification) error {
	n.log.Info("verification link",
		zap.String("to", v.Email),
		zap.String("user_id", v.UserID.String()),
		zap.String("link", v.Link),
	)
	return nil
}

// New picks the SMTP notifier when mail is configured.
func New(cfg config.MailConfig, log *zap.Logger) Notifier {
	if cfg.Enabled() {
		return NewEmailNotifier(cfg, log)
	}
	log.Warn("smtp is not configured, verification links will only be logged")
	return NewLogNotifier(log)
}
