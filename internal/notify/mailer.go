package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"github.com/wneessen/go-mail"
)

// MailerConfig holds SMTP settings. Operator receives a blind copy of every
// message.
type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Operator string
}

// Mailer sends messages over SMTP as plain text with an HTML alternative.
type Mailer struct {
	cfg    MailerConfig
	client *mail.Client
}

// NewMailer creates a Mailer. No connection is made until Send.
func NewMailer(cfg MailerConfig) (*Mailer, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, errors.New("notify: SMTP host and from address are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("notify: smtp client: %w", err)
	}
	return &Mailer{cfg: cfg, client: client}, nil
}

// Send delivers msg. A message with no recipient goes to the operator only.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" && m.cfg.Operator == "" {
		slog.Debug("notification skipped, no recipient", "subject", msg.Subject)
		return nil
	}
	mm, err := m.build(msg)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, mm); err != nil {
		return fmt.Errorf("notify: send: %w", err)
	}
	return nil
}

func (m *Mailer) build(msg Message) (*mail.Msg, error) {
	to, bcc := msg.To, m.cfg.Operator
	if to == "" {
		to, bcc = bcc, ""
	}

	mm := mail.NewMsg()
	if err := mm.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("notify: from: %w", err)
	}
	if err := mm.To(to); err != nil {
		return nil, fmt.Errorf("notify: to: %w", err)
	}
	if bcc != "" && !strings.EqualFold(bcc, to) {
		if err := mm.Bcc(bcc); err != nil {
			return nil, fmt.Errorf("notify: bcc: %w", err)
		}
	}
	mm.Subject(msg.Subject)

	text := msg.Text
	if msg.Link != "" {
		text += "\n\nTrack progress: " + msg.Link
	}
	mm.SetBodyString(mail.TypeTextPlain, text)

	html, err := renderHTML(msg)
	if err != nil {
		return nil, err
	}
	mm.AddAlternativeString(mail.TypeTextHTML, html)
	return mm, nil
}

var htmlTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:24px;background:#f4f5f7;font-family:-apple-system,Segoe UI,Helvetica,Arial,sans-serif;">
  <div style="max-width:560px;margin:0 auto;background:#ffffff;border-radius:8px;padding:32px;">
    <h2 style="margin-top:0;color:#1f2937;">{{.Subject}}</h2>
    {{range .Paragraphs}}<p style="color:#374151;line-height:1.5;white-space:pre-line;">{{.}}</p>
    {{end}}{{if .Link}}<p><a href="{{.Link}}" style="display:inline-block;padding:10px 18px;background:#4f46e5;color:#ffffff;border-radius:6px;text-decoration:none;">View status</a></p>{{end}}
  </div>
</body>
</html>`))

func renderHTML(msg Message) (string, error) {
	var buf bytes.Buffer
	err := htmlTemplate.Execute(&buf, struct {
		Subject    string
		Paragraphs []string
		Link       string
	}{msg.Subject, strings.Split(msg.Text, "\n\n"), msg.Link})
	if err != nil {
		return "", fmt.Errorf("notify: render html: %w", err)
	}
	return buf.String(), nil
}
