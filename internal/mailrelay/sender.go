package mailrelay

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"
)

// Message is the relay request body.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

// Sender delivers one message and returns its Message-ID.
type Sender interface {
	Send(ctx context.Context, m Message) (string, error)
}

// dialAndSend is replaced in tests so no SMTP server is needed.
var dialAndSend = func(ctx context.Context, c *mail.Client, m *mail.Msg) error {
	return c.DialAndSendWithContext(ctx, m)
}

type SMTPSender struct {
	cfg   *Config
	newID func() string
}

func NewSMTPSender(cfg *Config) *SMTPSender {
	return &SMTPSender{cfg: cfg, newID: uuid.NewString}
}

func (s *SMTPSender) client() (*mail.Client, error) {
	opts := []mail.Option{mail.WithPort(s.cfg.SMTPPort)}
	if s.cfg.SMTPSecure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if s.cfg.SMTPUser != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.SMTPUser),
			mail.WithPassword(s.cfg.SMTPPass),
		)
	}
	return mail.NewClient(s.cfg.SMTPHost, opts...)
}

// build renders m as a MIME message. The HTML part, when present, is an
// alternative to the text part.
func (s *SMTPSender) build(m Message) (*mail.Msg, string, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From()); err != nil {
		return nil, "", fmt.Errorf("invalid sender: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, "", fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(m.Subject)

	id := "<" + s.newID() + "@docuvault>"
	msg.SetGenHeader(mail.HeaderMessageID, id)

	msg.SetBodyString(mail.TypeTextPlain, m.Text)
	if m.HTML != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, m.HTML)
	}
	return msg, id, nil
}

func (s *SMTPSender) Send(ctx context.Context, m Message) (string, error) {
	msg, id, err := s.build(m)
	if err != nil {
		return "", err
	}

	c, err := s.client()
	if err != nil {
		return "", fmt.Errorf("smtp client: %w", err)
	}
	if err := dialAndSend(ctx, c, msg); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}
	return id, nil
}
