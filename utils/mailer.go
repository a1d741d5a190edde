package utils

import (
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/cppla/studyshare/config"
)

// ErrMailerDisabled is returned when SMTP is not configured.
var ErrMailerDisabled = errors.New("smtp not configured")

// Mailer sends plain text emails through the configured SMTP relay.
type Mailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
	useTLS   bool
}

func NewMailer(cfg config.AppConfig) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
		fromName: cfg.SMTPFromName,
		useTLS:   cfg.SMTPTLS,
	}
}

// Enabled reports whether SendMail can reach a relay.
func (m *Mailer) Enabled() bool {
	return m != nil && m.host != "" && m.from != ""
}

// SendMail sends a plain text email.
func (m *Mailer) SendMail(to, subject, body string) error {
	if !m.Enabled() {
		return ErrMailerDisabled
	}
	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))
	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	msg := m.buildMessage(to, subject, body)

	if m.useTLS {
		// STARTTLS with timeouts
		d := net.Dialer{Timeout: 5 * time.Second}
		conn, err := d.Dial("tcp", addr)
		if err != nil {
			return err
		}
		// ensure we don't hang forever
		_ = conn.SetDeadline(time.Now().Add(15 * time.Second))
		c, err := smtp.NewClient(conn, m.host)
		if err != nil {
			_ = conn.Close()
			return err
		}
		defer c.Close()
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
				return err
			}
		}
		if m.username != "" {
			if err := c.Auth(auth); err != nil {
				return err
			}
		}
		if err := c.Mail(m.from); err != nil {
			return err
		}
		if err := c.Rcpt(to); err != nil {
			return err
		}
		wc, err := c.Data()
		if err != nil {
			return err
		}
		if _, err := wc.Write([]byte(msg)); err != nil {
			_ = wc.Close()
			return err
		}
		if err := wc.Close(); err != nil {
			return err
		}
		return c.Quit()
	}

	// Plain SMTP without TLS (not recommended)
	return smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg))
}

func (m *Mailer) buildMessage(to, subject, body string) string {
	fromName := m.fromName
	if fromName == "" {
		fromName = "StudyShare"
	}
	headers := [][2]string{
		{"From", fmt.Sprintf("%s <%s>", encodeRFC2047(fromName), m.from)},
		{"To", to},
		{"Subject", encodeRFC2047(stripCRLF(subject))},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/plain; charset=UTF-8"},
	}
	var msg strings.Builder
	for _, h := range headers {
		msg.WriteString(h[0] + ": " + stripCRLF(h[1]) + "\r\n")
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return msg.String()
}

// encodeRFC2047 encodes a string for non-ASCII mail headers
func encodeRFC2047(s string) string {
	return mime.BEncoding.Encode("UTF-8", s)
}

func stripCRLF(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}
