// Package mailer implements the outbound notification transport over SMTP.
// Delivery outcome is reported as a boolean so the dispatcher's retry
// bookkeeping stays uniform across failure modes.
package mailer

import (
	"context"
	"fmt"
	"mime/quotedprintable"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/tarakiga/ccas/pkg/config"
)

// SMTPTransport sends multipart/alternative mail via a single SMTP endpoint.
type SMTPTransport struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
}

// NewSMTPTransport builds the transport from config.
func NewSMTPTransport(cfg config.SMTPConfig, logger *zap.Logger) *SMTPTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPTransport{cfg: cfg, logger: logger}
}

// Send delivers one message. The context bounds the whole exchange; expiry
// is reported as a failed delivery, not an error.
func (t *SMTPTransport) Send(ctx context.Context, to, subject, htmlBody, textBody string) bool {
	msg := buildMessage(t.cfg.From, to, subject, htmlBody, textBody)
	addr := fmt.Sprintf("%s:%d", t.cfg.Host, t.cfg.Port)

	done := make(chan error, 1)
	go func() {
		var auth smtp.Auth
		if t.cfg.User != "" {
			auth = smtp.PlainAuth("", t.cfg.User, t.cfg.Password, t.cfg.Host)
		}
		done <- smtp.SendMail(addr, auth, t.cfg.From, []string{to}, msg)
	}()

	select {
	case <-ctx.Done():
		t.logger.Sugar().Warnw("smtp send timed out", "to", to, "error", ctx.Err())
		return false
	case err := <-done:
		if err != nil {
			t.logger.Sugar().Errorw("smtp send failed", "to", to, "error", err)
			return false
		}
		return true
	}
}

func buildMessage(from, to, subject, htmlBody, textBody string) []byte {
	const boundary = "ccas-alt-boundary"

	b := &strings.Builder{}
	fmt.Fprintf(b, "From: %s\r\n", from)
	fmt.Fprintf(b, "To: %s\r\n", to)
	fmt.Fprintf(b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	if textBody != "" {
		fmt.Fprintf(b, "--%s\r\n", boundary)
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
		b.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
		b.WriteString(encodeQP(textBody))
		b.WriteString("\r\n")
	}

	fmt.Fprintf(b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
	b.WriteString(encodeQP(htmlBody))
	fmt.Fprintf(b, "\r\n--%s--\r\n", boundary)

	return []byte(b.String())
}

func encodeQP(body string) string {
	b := &strings.Builder{}
	w := quotedprintable.NewWriter(b)
	_, _ = w.Write([]byte(body))
	_ = w.Close()
	return b.String()
}
