package mail

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/eonet-report/internal/config"
	"github.com/couchcryptid/eonet-report/internal/domain"
	gomail "github.com/wneessen/go-mail"
)

// Subject is the fixed subject line of every report email.
const Subject = "EONET Data (Fires, Storms, Landslides)"

// Body returns the plain-text message body for a target month.
func Body(month string) string {
	return fmt.Sprintf("Hi. You will find attached to this mail the EONET data for the period %s.", month)
}

const sendTimeout = 30 * time.Second

// Notifier emails report attachments over SMTP.
// It implements pipeline.Notifier.
type Notifier struct {
	client    *gomail.Client
	from      string
	recipient string
	logger    *slog.Logger
}

// NewNotifier configures an SMTP client from cfg. No connection is made
// until Notify is called.
func NewNotifier(cfg *config.Config, logger *slog.Logger) (*Notifier, error) {
	client, err := gomail.NewClient(cfg.SMTPHost, clientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &Notifier{
		client:    client,
		from:      cfg.SMTPFrom,
		recipient: cfg.Recipient,
		logger:    logger,
	}, nil
}

func clientOptions(cfg *config.Config) []gomail.Option {
	opts := []gomail.Option{
		gomail.WithPort(cfg.SMTPPort),
		gomail.WithTimeout(sendTimeout),
	}
	switch {
	case cfg.SMTPPort == 465:
		opts = append(opts, gomail.WithSSL())
	case cfg.SMTPTLS:
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	default:
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}
	if cfg.SMTPUsername != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.SMTPUsername),
			gomail.WithPassword(cfg.SMTPPassword),
		)
	}
	return opts
}

// Notify sends the report for month with att attached.
func (n *Notifier) Notify(ctx context.Context, month string, att domain.Attachment) error {
	msg, err := buildMessage(n.from, n.recipient, month, att)
	if err != nil {
		return err
	}
	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send report email: %w", err)
	}
	n.logger.Info("report email sent",
		"recipient", n.recipient,
		"attachment", att.Filename,
		"bytes", len(att.Data),
	)
	return nil
}

func buildMessage(from, to, month string, att domain.Attachment) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("set sender %q: %w", from, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("set recipient %q: %w", to, err)
	}
	msg.Subject(Subject)
	msg.SetDate()
	msg.SetBodyString(gomail.TypeTextPlain, Body(month))

	var opts []gomail.FileOption
	if att.ContentType != "" {
		opts = append(opts, gomail.WithFileContentType(gomail.ContentType(att.ContentType)))
	}
	if err := msg.AttachReader(att.Filename, bytes.NewReader(att.Data), opts...); err != nil {
		return nil, fmt.Errorf("attach %s: %w", att.Filename, err)
	}
	return msg, nil
}
