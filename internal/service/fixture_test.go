package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fest-registration/internal/certificate"
	"github.com/iliyamo/fest-registration/internal/model"
	"github.com/iliyamo/fest-registration/internal/otp"
	"github.com/iliyamo/fest-registration/internal/registration"
	"github.com/iliyamo/fest-registration/internal/testutil"
)

type fixture struct {
	store  *testutil.MemStore
	files  *testutil.Files
	outbox *testutil.Outbox
	queue  *testutil.Dispatcher
	now    time.Time

	reg      *RegistrationService
	auth     *AuthService
	progress *ProgressionService
	checkin  *CheckinService
	certs    *CertificateService
	stats    *StatsService
	catalog  *CatalogService
	content  *ContentService

	admin Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  testutil.NewMemStore(),
		files:  testutil.NewFiles(),
		outbox: &testutil.Outbox{},
		queue:  &testutil.Dispatcher{},
		now:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	clock := Clock(func() time.Time { return f.now })
	m := f.store
	f.auth = &AuthService{
		Users:        m.Users(),
		Tokens:       m.Tokens(),
		Participants: m.Participants(),
		OTP:          otp.NewIssuer(otp.DefaultConfig(), otp.NewMemoryStore(time.Minute)),
		Mailer:       f.outbox,
		Config:       AuthConfig{Secret: "test-secret", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4},
	}
	f.reg = &RegistrationService{
		Events:       m.Events(),
		Participants: m.Participants(),
		QR:           testutil.QR{},
		Files:        f.files,
		Dispatcher:   f.queue,
		Clock:        clock,
	}
	f.progress = &ProgressionService{Events: m.Events(), Rounds: m.Rounds(), Participants: m.Participants()}
	f.checkin = &CheckinService{Events: m.Events(), Participants: m.Participants()}
	f.certs = &CertificateService{
		Events:       m.Events(),
		Fests:        m.Fests(),
		Participants: m.Participants(),
		Renderer:     certificate.PDF{Issuer: "Test College"},
		Files:        f.files,
	}
	f.stats = &StatsService{Events: m.Events(), Participants: m.Participants(), Feedback: m.Feedback()}
	f.catalog = &CatalogService{
		Fests:       m.Fests(),
		Events:      m.Events(),
		Rounds:      m.Rounds(),
		Users:       m.Users(),
		Provisioner: f.auth,
		Files:       f.files,
		Clock:       clock,
	}
	f.content = &ContentService{
		Fests:     m.Fests(),
		Events:    m.Events(),
		Schedules: m.Schedules(),
		Gallery:   m.Gallery(),
		Feedback:  m.Feedback(),
		Team:      m.TeamMembers(),
		Files:     f.files,
	}

	adminID, err := m.Users().Create(context.Background(), model.User{
		Username: "root", Role: model.RoleSuperuser, IsActive: true,
	})
	require.NoError(t, err)
	f.admin = Actor{UserID: adminID, Role: model.RoleSuperuser}
	return f
}

// event creates an event in the future with a provisioned coordinator and
// returns it together with that coordinator as an Actor.
func (f *fixture) event(t *testing.T, ev model.Event) (model.Event, Actor) {
	t.Helper()
	if ev.Title == "" {
		ev.Title = "Robo Race"
	}
	if ev.Date.IsZero() {
		ev.Date = f.now.Add(72 * time.Hour)
	}
	if ev.MaxParticipants == 0 {
		ev.MaxParticipants = 50
	}
	created, err := f.catalog.CreateEvent(context.Background(), f.admin, ev)
	require.NoError(t, err)
	return created.Event, Actor{UserID: *created.Event.CoordinatorID, Role: model.RoleCoordinator}
}

func (f *fixture) register(t *testing.T, eventID uint64, name, email string) model.Participant {
	t.Helper()
	p, err := f.reg.Register(context.Background(), Actor{}, eventID, registration.Submission{
		Name: name, Email: email, College: "City College",
	})
	require.NoError(t, err)
	return p
}

func submission(name, email, college string) registration.Submission {
	return registration.Submission{Name: name, Email: email, College: college}
}
