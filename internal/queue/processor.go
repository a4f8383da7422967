package queue

import (
	"context"
	"time"

	"github.com/google/logger"

	"github.com/iliyamo/fest-registration/internal/notify"
	"github.com/iliyamo/fest-registration/internal/storage"
)

// Processor performs the follow-up work for a registration: it emails the
// registrant (with the QR image when one was stored) and posts to the admin
// feed. Both steps are best-effort, so Dispatch only fails on bad input.
type Processor struct {
	Mailer notify.Notifier
	Feed   notify.Notifier
	Files  storage.Store
}

// Dispatch implements Dispatcher, which makes a Processor usable directly
// when no broker is configured.
func (p *Processor) Dispatch(ctx context.Context, ev ParticipantRegistered) error {
	date, _ := time.Parse(time.RFC3339, ev.Date)
	c := notify.Confirmation{
		To:         ev.Email,
		Name:       ev.Name,
		EventTitle: ev.EventTitle,
		Location:   ev.Location,
		Date:       date,
		Token:      ev.CheckinToken,
	}
	if ev.QRPath != "" && p.Files != nil {
		png, err := p.Files.Read(ctx, ev.QRPath)
		if err != nil {
			logger.Warningf("registration: qr %s unavailable for participant %d: %v", ev.QRPath, ev.ParticipantID, err)
		} else {
			c.QR = png
		}
	}

	if ev.Email != "" {
		notify.Deliver(ctx, p.Mailer, notify.RegistrationConfirmed(c))
	}
	if p.Feed != nil {
		notify.Deliver(ctx, p.Feed, notify.AdminRegistration(c, ev.College, ev.RegistrationCount, ev.MaxParticipants))
	}
	return nil
}
