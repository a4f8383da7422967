// Package service implements the fest workflows on top of storage
// interfaces. Every method that depends on who is calling takes an explicit
// Actor; there is no request-scoped caller lookup.
package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/iliyamo/fest-registration/internal/apperr"
	"github.com/iliyamo/fest-registration/internal/model"
)

var tracer = otel.Tracer("github.com/iliyamo/fest-registration/internal/service")

// Actor is the authenticated caller. The zero value is anonymous.
type Actor struct {
	UserID uint64
	Role   string
}

func (a Actor) Authenticated() bool { return a.UserID != 0 }

func (a Actor) IsSuperuser() bool { return a.Role == model.RoleSuperuser }

func (a Actor) IsStaff() bool {
	return a.Role == model.RoleSuperuser || a.Role == model.RoleCoordinator
}

// CanManage reports whether the actor may administer ev: superusers always,
// coordinators only for their own events.
func (a Actor) CanManage(ev model.Event) bool {
	if a.IsSuperuser() {
		return true
	}
	return a.Role == model.RoleCoordinator && ev.IsCoordinatedBy(a.UserID)
}

func requireManage(a Actor, ev model.Event) error {
	if !a.Authenticated() {
		return apperr.ErrUnauthorized
	}
	if !a.CanManage(ev) {
		return fmt.Errorf("event %d: %w", ev.ID, apperr.ErrForbidden)
	}
	return nil
}

func requireSuperuser(a Actor) error {
	if !a.Authenticated() {
		return apperr.ErrUnauthorized
	}
	if !a.IsSuperuser() {
		return apperr.ErrForbidden
	}
	return nil
}

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c()
}

type UserStore interface {
	Create(ctx context.Context, u model.User) (uint64, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
}

type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	Rotate(ctx context.Context, userID uint64, oldHash, newHash string, exp time.Time) error
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

type FestStore interface {
	Create(ctx context.Context, f *model.Fest) error
	Update(ctx context.Context, f model.Fest) error
	GetByID(ctx context.Context, id uint64) (model.Fest, error)
	List(ctx context.Context, activeOnly bool) ([]model.Fest, error)
}

type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	Update(ctx context.Context, e model.Event) error
	GetByID(ctx context.Context, id uint64) (model.Event, error)
	List(ctx context.Context, f model.EventFilter) ([]model.Event, error)
	Delete(ctx context.Context, id uint64) error
	SetResultsPublished(ctx context.Context, id uint64) error
}

type RoundStore interface {
	Create(ctx context.Context, r *model.EventRound) error
	Update(ctx context.Context, r model.EventRound) error
	Delete(ctx context.Context, id uint64) error
	GetByID(ctx context.Context, id uint64) (model.EventRound, error)
	ListByEvent(ctx context.Context, eventID uint64) ([]model.EventRound, error)
}

// ParticipantStore is the participant side of the entity store. Register
// must evaluate admit and insert atomically with respect to other
// registrations for the same event.
type ParticipantStore interface {
	Register(ctx context.Context, eventID uint64, p *model.Participant, admit func(model.Event, int) error) (model.Event, error)
	GetByID(ctx context.Context, id uint64) (model.Participant, error)
	ListByEvent(ctx context.Context, eventID uint64) ([]model.Participant, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Participant, error)
	FindByCredential(ctx context.Context, credential string) ([]model.Participant, error)
	// LinkUserByEmail links the registrations with email that have no account
	// yet. Registrations linked to another account keep their link.
	LinkUserByEmail(ctx context.Context, email string, userID uint64) (int64, error)
	SetArtifacts(ctx context.Context, id uint64, token, qrPath string) error
	SetAttended(ctx context.Context, id uint64, attended bool) error
	SetCertificatePath(ctx context.Context, id uint64, path string) error
	SetRank(ctx context.Context, id uint64, rank *int) error
	Promote(ctx context.Context, eventID uint64, ids []uint64, target int, allowDecrease bool) (int, error)
	Winners(ctx context.Context, f model.WinnerFilter) ([]model.Participant, error)
	Delete(ctx context.Context, id uint64) error
}

type ScheduleStore interface {
	Create(ctx context.Context, s *model.Schedule) error
	Delete(ctx context.Context, id uint64) error
	ListByFest(ctx context.Context, festID uint64) ([]model.Schedule, error)
}

type GalleryStore interface {
	Create(ctx context.Context, g *model.GalleryItem) error
	GetByID(ctx context.Context, id uint64) (model.GalleryItem, error)
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, eventID *uint64) ([]model.GalleryItem, error)
}

type FeedbackStore interface {
	Create(ctx context.Context, f *model.Feedback) error
	List(ctx context.Context, eventID *uint64) ([]model.Feedback, error)
}

type TeamMemberStore interface {
	Create(ctx context.Context, m *model.TeamMember) error
	Update(ctx context.Context, m model.TeamMember) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context) ([]model.TeamMember, error)
}
