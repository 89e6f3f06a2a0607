package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/monocle-dev/monocle/internal/types"
)

var ErrEmailNotConfigured = errors.New("email transport is not configured")

type Mail struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Mailer submits a rendered mail.
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.From != ""
}

type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, mail Mail) error {
	if len(mail.To) == 0 {
		return fmt.Errorf("no recipients specified for email notification")
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	tlsConfig := &tls.Config{
		ServerName: m.cfg.Host,
		MinVersion: tls.VersionTLS12,
	}

	var conn net.Conn
	var err error

	if m.cfg.Port == 465 {
		dialer := &tls.Dialer{Config: tlsConfig}
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	} else {
		var dialer net.Dialer
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}

	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start SMTP session: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok && m.cfg.Port != 465 {
		if err = client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if m.cfg.Username != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
			if err = client.Auth(auth); err != nil {
				return fmt.Errorf("failed to authenticate: %w", err)
			}
		}
	}

	if err = client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	for _, rcpt := range mail.To {
		if err = client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", rcpt, err)
		}
	}

	body, err := buildMIME(m.cfg.From, mail, time.Now())
	if err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to initiate data transfer: %w", err)
	}

	if _, err = w.Write(body); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data transfer: %w", err)
	}

	return client.Quit()
}

// buildMIME renders a multipart/alternative message with text and HTML parts.
func buildMIME(from string, mail Mail, date time.Time) ([]byte, error) {
	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	var header bytes.Buffer
	fmt.Fprintf(&header, "From: %s\r\n", from)
	fmt.Fprintf(&header, "To: %s\r\n", strings.Join(mail.To, ", "))
	fmt.Fprintf(&header, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", mail.Subject))
	fmt.Fprintf(&header, "Date: %s\r\n", date.Format(time.RFC1123Z))
	header.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&header, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())

	for _, part := range []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=UTF-8", mail.Text},
		{"text/html; charset=UTF-8", mail.HTML},
	} {
		pw, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, err
		}

		qp := quotedprintable.NewWriter(pw)
		if _, err := qp.Write([]byte(part.content)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}

	return append(header.Bytes(), buf.Bytes()...), nil
}

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:24px;background:#f4f5f7;font-family:-apple-system,Segoe UI,Helvetica,Arial,sans-serif;">
  <div style="max-width:600px;margin:0 auto;background:#ffffff;border-radius:8px;overflow:hidden;border-top:6px solid {{.Color}};">
    <div style="padding:20px 24px;">
      <h2 style="margin:0 0 8px 0;color:#1f2328;">{{.Emoji}} {{.Title}}</h2>
      <p style="margin:0 0 16px 0;color:#57606a;font-size:12px;text-transform:uppercase;">Priority: {{.Priority}}</p>
      <pre style="white-space:pre-wrap;font-family:inherit;font-size:14px;line-height:1.5;color:#1f2328;margin:0;">{{.Body}}</pre>
    </div>
    <div style="padding:12px 24px;background:#f6f8fa;color:#57606a;font-size:12px;">{{.Footer}}</div>
  </div>
</body>
</html>`))

func renderHTML(msg Message) (string, error) {
	var buf bytes.Buffer

	err := emailTemplate.Execute(&buf, struct {
		Title    string
		Body     string
		Emoji    string
		Priority types.Priority
		Color    string
		Footer   string
	}{
		Title:    msg.Title,
		Body:     msg.Body,
		Emoji:    PriorityEmoji(msg.Priority),
		Priority: msg.Priority,
		Color:    SlackColor(msg.Priority),
		Footer:   Footer,
	})

	if err != nil {
		return "", fmt.Errorf("failed to render email: %w", err)
	}

	return buf.String(), nil
}

type EmailSender struct {
	mailer Mailer
	to     string
}

func (s *EmailSender) Type() types.ChannelType { return types.ChannelEmail }

func (s *EmailSender) Deliver(ctx context.Context, msg Message) error {
	if s.mailer == nil {
		return ErrEmailNotConfigured
	}

	html, err := renderHTML(msg)
	if err != nil {
		return err
	}

	return s.mailer.Send(ctx, Mail{
		To:      []string{s.to},
		Subject: fmt.Sprintf("%s %s", PriorityEmoji(msg.Priority), msg.Title),
		Text:    msg.Body,
		HTML:    html,
	})
}
