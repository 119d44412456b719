// Package mailer предоставляет клиент почтового релея и формирование
// HTML-писем сервиса гольф-лиги.
package mailer

import (
	"context"
	"fmt"

	mail "github.com/wneessen/go-mail"
)

// Message описывает одно исходящее письмо.
type Message struct {
	To      string
	CC      string
	Subject string
	HTML    string
}

// Client отправляет письма через SMTP-релей. Все вызывающие компоненты обязаны
// перехватывать ошибки отправки локально: уведомление никогда не меняет исход
// основной операции.
type Client struct {
	smtp    *mail.Client
	address string
}

// NewClient создаёт SMTP-клиент с аутентификацией по паролю приложения.
// address используется и как отправитель, и как внутренний адрес уведомлений.
func NewClient(host string, port int, address, password string) (*Client, error) {
	smtp, err := mail.NewClient(host,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(address),
		mail.WithPassword(password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &Client{
		smtp:    smtp,
		address: address,
	}, nil
}

// InternalAddress возвращает внутренний адрес для служебных уведомлений.
func (c *Client) InternalAddress() string {
	return c.address
}

// Send отправляет одно HTML-письмо.
func (c *Client) Send(ctx context.Context, m Message) error {
	msg := mail.NewMsg()

	if err := msg.From(c.address); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return fmt.Errorf("set to: %w", err)
	}
	if m.CC != "" {
		if err := msg.Cc(m.CC); err != nil {
			return fmt.Errorf("set cc: %w", err)
		}
	}

	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextHTML, m.HTML)

	if err := c.smtp.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	return nil
}
