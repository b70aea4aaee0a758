// Package mailrelay is a stateless HTTP to SMTP bridge: it accepts one
// message per request and hands it to an SMTP server. There is no queue and
// no retry.
package mailrelay

import (
	"fmt"
	"os"
	"strconv"
)

// Config is read from the environment only.
//
//   - PORT: HTTP listen port (4000).
//   - SMTP_HOST / SMTP_PORT (587): SMTP server.
//   - SMTP_SECURE: "true" for implicit TLS, otherwise STARTTLS when offered.
//   - SMTP_USER / SMTP_PASS: PLAIN auth credentials, optional.
//   - MAIL_FROM: sender address, defaults to SMTP_USER.
type Config struct {
	Port       string
	SMTPHost   string
	SMTPPort   int
	SMTPSecure bool
	SMTPUser   string
	SMTPPass   string
	MailFrom   string
	LogLevel   string
}

func (c *Config) LoadDefaults() {
	c.Port = "4000"
	c.SMTPPort = 587
	c.LogLevel = "info"
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// From is the envelope sender.
func (c *Config) From() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return c.SMTPUser
}

func LoadConfig() (*Config, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	str("PORT", &cfg.Port)
	str("SMTP_HOST", &cfg.SMTPHost)
	str("SMTP_USER", &cfg.SMTPUser)
	str("SMTP_PASS", &cfg.SMTPPass)
	str("MAIL_FROM", &cfg.MailFrom)
	str("LOG_LEVEL", &cfg.LogLevel)

	if v, ok := lookup("SMTP_PORT"); ok && v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			return nil, fmt.Errorf("invalid SMTP_PORT %q", v)
		}
		cfg.SMTPPort = p
	}
	if v, ok := lookup("SMTP_SECURE"); ok {
		cfg.SMTPSecure = v == "true"
	}

	return cfg, nil
}
