// Package notify delivers account and share e-mails through the mail relay.
// Delivery is best-effort: callers never fail because a mail did not go out.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/docuvault/internal/common"
	"github.com/dmitrijs2005/docuvault/internal/logging"
	"github.com/dmitrijs2005/docuvault/internal/netx"
)

// Message is one outbound e-mail.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

type Mailer interface {
	Send(ctx context.Context, m Message) (string, error)
}

// RelayClient posts messages to the relay's /email/share endpoint.
type RelayClient struct {
	endpoint string
	client   *http.Client
}

func NewRelayClient(baseURL string, client *http.Client) *RelayClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &RelayClient{
		endpoint: strings.TrimRight(baseURL, "/") + "/email/share",
		client:   client,
	}
}

// Send returns the relay's message id. Any failure wraps common.ErrTransport.
func (c *RelayClient) Send(ctx context.Context, m Message) (string, error) {
	var reply struct {
		ID string `json:"id"`
	}
	if err := netx.PostJSON(ctx, c.client, c.endpoint, m, &reply); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrTransport, err)
	}
	return reply.ID, nil
}

// Notifier sends through a Mailer with a deadline and swallows failures.
type Notifier struct {
	mailer  Mailer
	timeout time.Duration
	logger  logging.Logger
}

func NewNotifier(mailer Mailer, timeout time.Duration, logger logging.Logger) *Notifier {
	return &Notifier{mailer: mailer, timeout: timeout, logger: logger.With("module", "notify")}
}

// Notify reports whether the relay accepted the message.
func (n *Notifier) Notify(ctx context.Context, m Message) bool {
	if n == nil || n.mailer == nil {
		return false
	}
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	id, err := n.mailer.Send(ctx, m)
	if err != nil {
		n.logger.Warn(ctx, "notification not delivered", "subject", m.Subject, "error", err)
		return false
	}
	n.logger.Debug(ctx, "notification sent", "subject", m.Subject, "message_id", id)
	return true
}
