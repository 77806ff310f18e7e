package services

import (
	"context"
	"fmt"

	"stride_back_end/internal/config"
	"stride_back_end/internal/models"
	"stride_back_end/internal/utils"

	"github.com/wneessen/go-mail"
)

type Mailer interface {
	SendOrderUpdate(ctx context.Context, o *models.Order) error
}

type NoopMailer struct{}

func (NoopMailer) SendOrderUpdate(context.Context, *models.Order) error { return nil }

type SMTPMailer struct {
	cfg config.SMTPConfig
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendOrderUpdate(ctx context.Context, o *models.Order) error {
	subject, body, err := utils.OrderEmail(o)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(o.Customer.Email); err != nil {
		return fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send order mail: %w", err)
	}
	return nil
}
