// Package queue carries post-registration work (confirmation email, admin
// feed) off the request path. With a broker configured, events go through
// RabbitMQ and the worker command consumes them; without one, the server
// runs the Processor inline.
package queue

import "context"

// RegistrationQueue is the durable queue name.
const RegistrationQueue = "participant.registered"

// ParticipantRegistered is published after a registration commits. It
// contains enough to send the confirmation without querying the database.
type ParticipantRegistered struct {
	ParticipantID     uint64 `json:"participant_id"`
	EventID           uint64 `json:"event_id"`
	EventTitle        string `json:"event_title"`
	Location          string `json:"location"`
	Date              string `json:"date"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	College           string `json:"college"`
	CheckinToken      string `json:"checkin_token"`
	QRPath            string `json:"qr_path,omitempty"`
	RegistrationCount int    `json:"registration_count"`
	MaxParticipants   int    `json:"max_participants"`
	RegisteredAt      string `json:"registered_at"`
}

// Dispatcher hands an event to whatever performs the follow-up work.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev ParticipantRegistered) error
}
