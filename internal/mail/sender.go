// Package mail sends rendered campaign emails over SMTP.
package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Champ-Deep/ChampMail-sub000/internal/config"
)

// Message is one outbound email
type Message struct {
	To             string
	Subject        string
	HTML           string
	UnsubscribeURL string // adds List-Unsubscribe headers when set
}

// Sender delivers messages through an SMTP relay
type Sender struct {
	config config.SMTPConfig
	auth   smtp.Auth
	now    func() time.Time
}

// NewSender creates a sender. Auth is used only when both user and password are set.
func NewSender(cfg config.SMTPConfig) *Sender {
	var auth smtp.Auth
	if cfg.User != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	return &Sender{config: cfg, auth: auth, now: time.Now}
}

// Send delivers msg and returns the Message-ID it was sent with, so bounces can be matched later
func (s *Sender) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	messageID := NewMessageID(s.config.From)
	body := s.build(msg, messageID)
	addr := net.JoinHostPort(s.config.Host, s.config.Port)
	to := sanitizeHeader(msg.To)

	if s.auth != nil {
		if err := smtp.SendMail(addr, s.auth, s.config.From, []string{to}, body); err != nil {
			return "", fmt.Errorf("send mail: %w", err)
		}
		return messageID, nil
	}

	c, err := smtp.Dial(addr)
	if err != nil {
		return "", fmt.Errorf("dial smtp: %w", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.Mail(s.config.From); err != nil {
		return "", fmt.Errorf("mail from: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return "", fmt.Errorf("rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return "", fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close: %w", err)
	}
	if err := c.Quit(); err != nil {
		return "", fmt.Errorf("quit: %w", err)
	}
	return messageID, nil
}

func (s *Sender) build(msg Message, messageID string) []byte {
	from := s.config.From
	if name := strings.TrimSpace(s.config.FromName); name != "" {
		from = fmt.Sprintf("%s <%s>", name, s.config.From)
	}

	headers := []string{
		"From: " + sanitizeHeader(from),
		"To: " + sanitizeHeader(msg.To),
		"Subject: " + sanitizeHeader(msg.Subject),
		"Date: " + s.now().UTC().Format(time.RFC1123Z),
		"Message-ID: " + messageID,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}
	if msg.UnsubscribeURL != "" {
		headers = append(headers,
			"List-Unsubscribe: <"+sanitizeHeader(msg.UnsubscribeURL)+">",
			"List-Unsubscribe-Post: List-Unsubscribe=One-Click",
		)
	}
	return []byte(strings.Join(append(headers, "", msg.HTML), "\r\n"))
}

// NewMessageID returns a unique RFC 5322 Message-ID in the sender's domain
func NewMessageID(from string) string {
	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domain = strings.Trim(from[at+1:], "<> ")
	}
	return fmt.Sprintf("<%s@%s>", uuid.New().String(), domain)
}

func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", "")
}
