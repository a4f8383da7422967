package checkin

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/iliyamo/fest-registration/internal/apperr"
)

func TestParseFormatted(t *testing.T) {
	ref := uuid.NewString()
	raw := Format(42, "Asha Rao", "Code Sprint", ref)

	assert.Equal(t, "ID:42|NAME:Asha Rao|EVENT:Code Sprint|REF:"+ref, raw)

	tok, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), tok.ParticipantID)
	assert.Equal(t, ref, tok.Ref)
}

func TestParseBareID(t *testing.T) {
	tok, err := Parse("ID:999")
	require.NoError(t, err)
	assert.Equal(t, uint64(999), tok.ParticipantID)
	assert.Empty(t, tok.Ref)
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"garbage-string", "", "ID:", "ID:abc", "NAME:ID:5", "ID:0", "XID:12"} {
		_, err := Parse(raw)
		assert.True(t, errors.Is(err, apperr.ErrMalformedInput), "raw=%q err=%v", raw, err)
	}
}

func TestFormatNeutralizesSeparators(t *testing.T) {
	raw := Format(7, "Evil|ID:1", "Quiz\nNight", "")
	tok, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), tok.ParticipantID)
	assert.NotContains(t, raw, "\n")
}

func TestFormatParseRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := rapid.Uint64Range(1, 1<<53).Draw(t, "id")
		name := rapid.String().Draw(t, "name")
		title := rapid.String().Draw(t, "title")
		ref := uuid.NewString()

		tok, err := Parse(Format(id, name, title, ref))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if tok.ParticipantID != id || tok.Ref != ref {
			t.Fatalf("got %+v want id=%d ref=%s", tok, id, ref)
		}
	})
}
