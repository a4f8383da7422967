// Package checkin encodes and decodes the payload printed in a participant's
// QR code. The payload is a "|" separated list of KEY:value fields so that a
// generic phone scanner shows something readable. Only ID and REF are
// interpreted; every other field is informational.
package checkin

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/iliyamo/fest-registration/internal/apperr"
)

var (
	idField  = regexp.MustCompile(`(?:^|\|)\s*ID:(\d+)\s*(?:\||$)`)
	refField = regexp.MustCompile(`(?:^|\|)\s*REF:([0-9A-Fa-f-]+)\s*(?:\||$)`)
)

// Token is the decoded form. Ref is empty for hand-typed tokens.
type Token struct {
	ParticipantID uint64
	Ref           string
}

// Format builds the payload for a participant. Name and title are sanitized
// so they cannot inject a field separator.
func Format(participantID uint64, name, eventTitle, ref string) string {
	return fmt.Sprintf("ID:%d|NAME:%s|EVENT:%s|REF:%s",
		participantID, clean(name), clean(eventTitle), ref)
}

// Parse extracts the participant ID and, when present, the reference. It
// returns apperr.ErrMalformedInput when no ID field exists.
func Parse(raw string) (Token, error) {
	raw = strings.TrimSpace(raw)
	m := idField.FindStringSubmatch(raw)
	if m == nil {
		return Token{}, fmt.Errorf("%w: token has no ID field", apperr.ErrMalformedInput)
	}
	id, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil || id == 0 {
		return Token{}, fmt.Errorf("%w: invalid participant id %q", apperr.ErrMalformedInput, m[1])
	}
	tok := Token{ParticipantID: id}
	if r := refField.FindStringSubmatch(raw); r != nil {
		tok.Ref = strings.ToLower(r[1])
	}
	return tok, nil
}

func clean(s string) string {
	s = strings.NewReplacer("|", "/", "\n", " ", "\r", " ").Replace(s)
	return strings.TrimSpace(s)
}
