package mail

import (
	"context"
	"time"

	"coco/conf"

	gomail "github.com/go-mail/mail"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender 通过 SMTP 发送提醒邮件
type Sender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSender(cfg conf.EmailConfig) *Sender {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.Timeout = 5 * time.Second
	return &Sender{dialer: d, from: cfg.Sender}
}

// Enabled 未配置 SMTP 主机时邮件通道不可用
func (s *Sender) Enabled() bool {
	return s != nil && s.dialer.Host != ""
}

func (s *Sender) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
