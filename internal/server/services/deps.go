// Package services holds the vault's use cases: accounts, documents and
// share links. Services own validation and error classification; transport
// concerns live in httpapi.
package services

import (
	"context"

	"github.com/dmitrijs2005/docuvault/internal/server/notify"
)

// Notifier delivers an e-mail best-effort and reports whether it went out.
type Notifier interface {
	Notify(ctx context.Context, m notify.Message) bool
}

// LoginLimiter throttles failed logins per account.
type LoginLimiter interface {
	Allowed(ctx context.Context, identity string) (bool, error)
	Fail(ctx context.Context, identity string) error
	Reset(ctx context.Context, identity string) error
}
