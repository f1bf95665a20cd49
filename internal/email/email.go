package email

import (
	"fmt"
	"net/smtp"

	"codegate.app/cloud/internal/logger"
)

// Sender delivers transactional mail. Handlers depend on this
// interface so tests can capture messages instead of dialing SMTP.
type Sender interface {
	Send(to, subject, body string) error
}

type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSMTPSender(host, port, username, password, from string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	if s.host == "" || s.port == "" || s.username == "" || s.password == "" {
		logger.Error("SMTP configuration missing")
		return fmt.Errorf("SMTP configuration missing")
	}

	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)

	return smtp.SendMail(addr, auth, s.from, []string{to}, message(s.from, to, subject, body))
}

func message(from, to, subject, body string) []byte {
	return []byte(fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", from, to, subject, body))
}
