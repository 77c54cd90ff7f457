// Package mailer sends transactional email over SMTP. The Sender interface is
// what the rest of the application depends on, so tests can substitute a fake.
package mailer

import (
	"gopkg.in/gomail.v2"
)

type Message struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string // optional alternative body
}

type Sender interface {
	Send(m Message) error
}

// SMTPSender delivers mail through a plain SMTP dialer.
type SMTPSender struct {
	host     string
	port     int
	user     string
	password string
}

func NewSMTPSender(host string, port int, user, password string) *SMTPSender {
	return &SMTPSender{host: host, port: port, user: user, password: password}
}

func (s *SMTPSender) Send(m Message) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.Text)
	if m.HTML != "" {
		msg.AddAlternative("text/html", m.HTML)
	}

	d := gomail.NewDialer(s.host, s.port, s.user, s.password)
	return d.DialAndSend(msg)
}
