package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	sent []Message
	err  error
}

func (r *recorder) Send(_ context.Context, msg Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func TestDeliverSwallowsErrors(t *testing.T) {
	r := &recorder{err: errors.New("relay down")}
	ok := Deliver(context.Background(), r, Message{To: "a@b.c", Subject: "hi"})
	assert.False(t, ok)
	assert.Len(t, r.sent, 1)

	assert.False(t, Deliver(context.Background(), nil, Message{}))
	assert.True(t, Deliver(context.Background(), Log{}, Message{Subject: "x"}))
}

func TestMultiJoinsErrors(t *testing.T) {
	good := &recorder{}
	bad := &recorder{err: errors.New("nope")}
	err := Multi{good, nil, bad}.Send(context.Background(), Message{Subject: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
	assert.Len(t, good.sent, 1)
}

func TestRegistrationConfirmed(t *testing.T) {
	msg := RegistrationConfirmed(Confirmation{
		To:         "asha@example.edu",
		Name:       "Asha",
		EventTitle: "Code Sprint",
		Location:   "Main Auditorium",
		Date:       time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
		Token:      "ID:1|REF:x",
		QR:         []byte("png"),
	})
	assert.Equal(t, "Registration Confirmed: Code Sprint", msg.Subject)
	assert.Contains(t, msg.Body, "Hi Asha,")
	assert.Contains(t, msg.Body, "Location: Main Auditorium")
	assert.Contains(t, msg.Body, "ID:1|REF:x")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "checkin-qr.png", msg.Attachments[0].Name)
}

func TestBuildMessage(t *testing.T) {
	m, err := buildMessage("no-reply@itclub.example", Message{
		To: "asha@example.edu", Subject: "s", Body: "b",
		Attachments: []Attachment{{Name: "a.txt", Data: []byte("x")}},
	})
	require.NoError(t, err)
	assert.NotNil(t, m)

	_, err = buildMessage("no-reply@itclub.example", Message{To: "not an address"})
	assert.Error(t, err)
}

func TestFormatChat(t *testing.T) {
	assert.Equal(t, "s\n\nb", FormatChat(Message{Subject: "s", Body: "b"}))
	assert.Equal(t, "b", FormatChat(Message{Body: " b "}))
	assert.Equal(t, "s", FormatChat(Message{Subject: "s"}))
}

func TestNewSMTPRequiresHost(t *testing.T) {
	_, err := NewSMTP(SMTPConfig{})
	assert.Error(t, err)
}
