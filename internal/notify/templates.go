package notify

import (
	"fmt"
	"time"
)

// Confirmation describes a freshly admitted registration.
type Confirmation struct {
	To         string
	Name       string
	EventTitle string
	Location   string
	Date       time.Time
	Token      string
	QR         []byte
}

// RegistrationConfirmed builds the email sent to the registrant.
func RegistrationConfirmed(c Confirmation) Message {
	body := fmt.Sprintf("Hi %s,\n\nYou have successfully registered for %s.\nLocation: %s\nDate: %s\n",
		c.Name, c.EventTitle, c.Location, c.Date.Format("Mon, 2 Jan 2006 15:04 MST"))
	if c.Token != "" {
		body += "\nShow the attached QR code at the venue. Check-in code: " + c.Token + "\n"
	}
	body += "\nSee you there!"
	msg := Message{
		To:      c.To,
		Subject: "Registration Confirmed: " + c.EventTitle,
		Body:    body,
	}
	if len(c.QR) > 0 {
		msg.Attachments = []Attachment{{Name: "checkin-qr.png", Data: c.QR}}
	}
	return msg
}

// AdminRegistration is the admin feed line for a new registration.
func AdminRegistration(c Confirmation, college string, count, max int) Message {
	return Message{
		Subject: "New registration: " + c.EventTitle,
		Body:    fmt.Sprintf("%s (%s) registered. %d/%d seats taken.", c.Name, college, count, max),
	}
}

// LoginCode builds the one-time code email.
func LoginCode(to, code string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: "Your sign-in code",
		Body: fmt.Sprintf("Your sign-in code is %s. It expires in %d minutes.\n\nIf you did not request it, ignore this email.",
			code, int(ttl.Minutes())),
	}
}
