package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	goGrant "github.com/MrEthical07/goGrant"
	"go.uber.org/zap"
)

// SMTPConfig configures the SMTP notifier. Username and Password enable
// PLAIN auth; net/smtp refuses PLAIN over an unencrypted connection to a
// remote host.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTP delivers mail with net/smtp, upgrading to STARTTLS when offered.
type SMTP struct {
	cfg    SMTPConfig
	logger *zap.Logger
	now    func() time.Time
	send   sendFunc
}

func NewSMTP(cfg SMTPConfig, logger *zap.Logger) (*SMTP, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.Port <= 0 {
		return nil, errors.New("smtp port must be > 0")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTP{
		cfg:    cfg,
		logger: logger.Named("notify.smtp"),
		now:    time.Now,
		send:   smtp.SendMail,
	}, nil
}

func (s *SMTP) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	msg := buildMessage(s.cfg.From, to, subject, body, s.now())
	if err := s.send(addr, auth, s.cfg.From, []string{to}, msg); err != nil {
		s.logger.Error("mail delivery failed", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("send mail: %w", err)
	}

	s.logger.Info("mail sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

func buildMessage(from, to, subject, body string, date time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", date.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.Bytes()
}

var _ goGrant.Notifier = (*SMTP)(nil)
