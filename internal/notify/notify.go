// Package notify delivers outbound messages: registration confirmations,
// login codes and the admin feed. Senders return errors so transports can be
// tested, but callers go through Deliver, which only logs.
package notify

import (
	"context"
	"errors"
	"strings"

	"github.com/google/logger"
)

// Attachment is an in-memory file sent with a message.
type Attachment struct {
	Name string
	Data []byte
}

// Message is transport neutral. Telegram ignores To and Attachments.
type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Notifier sends one message.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Deliver sends msg and swallows the failure after logging it.
func Deliver(ctx context.Context, n Notifier, msg Message) bool {
	if n == nil {
		return false
	}
	if err := n.Send(ctx, msg); err != nil {
		logger.Warningf("notify: %q to %q failed: %v", msg.Subject, msg.To, err)
		return false
	}
	return true
}

// Log writes messages to the application log. It is the fallback when no
// SMTP server is configured, so codes remain visible in development.
type Log struct{}

func (Log) Send(_ context.Context, msg Message) error {
	logger.Infof("notify[log] to=%s subject=%q body=%q attachments=%d",
		msg.To, msg.Subject, strings.ReplaceAll(msg.Body, "\n", " / "), len(msg.Attachments))
	return nil
}

// Multi fans out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
