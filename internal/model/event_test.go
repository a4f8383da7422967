package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegistrationOpenUsesDeadlineThenDate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(-time.Hour)

	withDeadline := Event{Date: now.Add(48 * time.Hour), RegistrationDeadline: &deadline}
	assert.False(t, withDeadline.RegistrationOpen(now))

	noDeadline := Event{Date: now.Add(time.Minute)}
	assert.True(t, noDeadline.RegistrationOpen(now))

	atDate := Event{Date: now}
	assert.False(t, atDate.RegistrationOpen(now), "closed exactly at the deadline")
}

func TestSpotsLeftAndCoordinator(t *testing.T) {
	coord := uint64(7)
	ev := Event{MaxParticipants: 3, RegistrationCount: 5, CoordinatorID: &coord}
	assert.Equal(t, 0, ev.SpotsLeft())
	assert.True(t, ev.IsCoordinatedBy(7))
	assert.False(t, ev.IsCoordinatedBy(8))
	assert.False(t, Event{}.IsCoordinatedBy(0))
}

func TestMaxRound(t *testing.T) {
	assert.Equal(t, 1, MaxRound(nil))
	assert.Equal(t, 3, MaxRound([]EventRound{{Number: 2}, {Number: 3}, {Number: 1}}))
}
