package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/iliyamo/fest-registration/internal/apperr"
	"github.com/iliyamo/fest-registration/internal/notify"
	"github.com/iliyamo/fest-registration/internal/queue"
)

// Outbox records sent messages.
type Outbox struct {
	mu   sync.Mutex
	Sent []notify.Message
	Err  error
}

func (o *Outbox) Send(_ context.Context, msg notify.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.Sent = append(o.Sent, msg)
	return nil
}

func (o *Outbox) Messages() []notify.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]notify.Message(nil), o.Sent...)
}

// Files is an in-memory storage.Store.
type Files struct {
	mu   sync.Mutex
	data map[string][]byte
	Fail error
}

func NewFiles() *Files { return &Files{data: map[string][]byte{}} }

func (f *Files) Save(_ context.Context, key string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return "", f.Fail
	}
	f.data[key] = append([]byte(nil), data...)
	return key, nil
}

func (f *Files) Read(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.data[key]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", key, apperr.ErrNotFound)
	}
	return append([]byte(nil), b...), nil
}

func (f *Files) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *Files) Has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

// QR returns the payload prefixed with "png:" so tests can read it back.
type QR struct{ Err error }

func (q QR) Render(payload string) ([]byte, error) {
	if q.Err != nil {
		return nil, q.Err
	}
	return []byte("png:" + payload), nil
}

// Dispatcher records registration events.
type Dispatcher struct {
	mu     sync.Mutex
	Events []queue.ParticipantRegistered
	Err    error
}

func (d *Dispatcher) Dispatch(_ context.Context, ev queue.ParticipantRegistered) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	d.Events = append(d.Events, ev)
	return nil
}

// ErrBoom is a generic injected failure.
var ErrBoom = errors.New("boom")
