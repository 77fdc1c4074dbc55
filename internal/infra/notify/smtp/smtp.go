package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"naturezabrindes/quote_backend/internal/domain/notify"
)

type Config struct {
	Host    string
	Port    int
	Secure  bool
	User    string
	Pass    string
	Timeout time.Duration
}

type Transport struct {
	cfg  Config
	opts []mail.Option
}

// New validates credentials eagerly. A missing host, user or password yields
// a *notify.ConfigError and no transport.
func New(cfg Config) (*Transport, error) {
	var missing []string
	if cfg.Host == "" {
		missing = append(missing, "SMTP_HOST")
	}
	if cfg.User == "" {
		missing = append(missing, "SMTP_USER")
	}
	if cfg.Pass == "" {
		missing = append(missing, "SMTP_PASS")
	}
	if len(missing) > 0 {
		return nil, &notify.ConfigError{Transport: "smtp", Missing: missing}
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.User),
		mail.WithPassword(cfg.Pass),
		mail.WithTimeout(cfg.Timeout),
		mail.WithTLSConfig(&tls.Config{
			ServerName: cfg.Host,
			MinVersion: tls.VersionTLS12,
		}),
	}
	if cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	return &Transport{cfg: cfg, opts: opts}, nil
}

func (t *Transport) Name() string { return "smtp" }

func (t *Transport) Send(ctx context.Context, m notify.Message) (notify.ProviderResponse, error) {
	msg, err := buildMessage(m)
	if err != nil {
		return notify.ProviderResponse{}, err
	}

	client, err := mail.NewClient(t.cfg.Host, t.opts...)
	if err != nil {
		return notify.ProviderResponse{}, fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return notify.ProviderResponse{}, fmt.Errorf("smtp send via %s:%d: %w", t.cfg.Host, t.cfg.Port, err)
	}
	return notify.ProviderResponse{
		MessageID: msg.GetMessageID(),
		Response:  fmt.Sprintf("accepted by %s", t.cfg.Host),
	}, nil
}

func buildMessage(m notify.Message) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(m.From.Name, m.From.Email); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.AddToFormat(m.To.Name, m.To.Email); err != nil {
		return nil, fmt.Errorf("smtp to: %w", err)
	}
	for _, cc := range m.Cc {
		if err := msg.AddCcFormat(cc.Name, cc.Email); err != nil {
			return nil, fmt.Errorf("smtp cc: %w", err)
		}
	}
	if m.ReplyTo != nil {
		if err := msg.ReplyToFormat(m.ReplyTo.Name, m.ReplyTo.Email); err != nil {
			return nil, fmt.Errorf("smtp reply-to: %w", err)
		}
	}
	msg.Subject(m.Subject)
	msg.SetMessageID()
	msg.SetDate()

	switch {
	case m.HTML != "" && m.Text != "":
		msg.SetBodyString(mail.TypeTextPlain, m.Text)
		msg.AddAlternativeString(mail.TypeTextHTML, m.HTML)
	case m.HTML != "":
		msg.SetBodyString(mail.TypeTextHTML, m.HTML)
	default:
		msg.SetBodyString(mail.TypeTextPlain, m.Text)
	}

	for _, f := range m.Files {
		opts := []mail.FileOption{}
		if f.ContentType != "" {
			opts = append(opts, mail.WithFileContentType(mail.ContentType(f.ContentType)))
		}
		if err := msg.AttachReader(f.Name, bytes.NewReader(f.Data), opts...); err != nil {
			return nil, fmt.Errorf("smtp attach %s: %w", f.Name, err)
		}
	}
	return msg, nil
}
