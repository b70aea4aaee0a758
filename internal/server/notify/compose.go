package notify

import (
	"bytes"
	"fmt"
	"html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Composer builds the e-mails the vault sends. Share messages are written
// by users in Markdown and rendered to sanitised HTML.
type Composer struct {
	md        goldmark.Markdown
	sanitizer *bluemonday.Policy
}

func NewComposer() *Composer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
	)
	return &Composer{md: md, sanitizer: bluemonday.UGCPolicy()}
}

// renderMarkdown never fails the caller: on a render error the escaped
// source is used instead.
func (c *Composer) renderMarkdown(src string) string {
	var buf bytes.Buffer
	if err := c.md.Convert([]byte(src), &buf); err != nil {
		return "<p>" + html.EscapeString(src) + "</p>"
	}
	return c.sanitizer.Sanitize(buf.String())
}

// Share builds the recipient notification for a new share link.
func (c *Composer) Share(to, documentName, link, message string) Message {
	text := "A document has been shared with you. Open: " + link
	body := fmt.Sprintf(`<p>A document has been shared with you.</p><p><a href="%s">Open document</a></p>`,
		html.EscapeString(link))

	if message != "" {
		text += "\n\n" + message
		body += `<blockquote>` + c.renderMarkdown(message) + `</blockquote>`
	}

	return Message{
		To:      to,
		Subject: "Document shared: " + documentName,
		Text:    text,
		HTML:    body,
	}
}

// Verification builds the e-mail address confirmation mail.
func (c *Composer) Verification(to, name, link string) Message {
	return Message{
		To:      to,
		Subject: "Verify your email address",
		Text:    fmt.Sprintf("Hello %s,\n\nConfirm your email address: %s", name, link),
		HTML: fmt.Sprintf(`<p>Hello %s,</p><p><a href="%s">Confirm your email address</a></p>`,
			html.EscapeString(name), html.EscapeString(link)),
	}
}

// PasswordReset builds the reset mail.
func (c *Composer) PasswordReset(to, name, link string) Message {
	return Message{
		To:      to,
		Subject: "Reset your password",
		Text:    fmt.Sprintf("Hello %s,\n\nReset your password: %s\n\nIf you did not ask for this, ignore this mail.", name, link),
		HTML: fmt.Sprintf(`<p>Hello %s,</p><p><a href="%s">Reset your password</a></p><p>If you did not ask for this, ignore this mail.</p>`,
			html.EscapeString(name), html.EscapeString(link)),
	}
}
