package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fest-registration/internal/model"
	"github.com/iliyamo/fest-registration/internal/otp"
	"github.com/iliyamo/fest-registration/internal/service"
	"github.com/iliyamo/fest-registration/internal/testutil"
)

const doc = `
fest:
  name: TechFest
  year: 2030
events:
  - title: Robo Race
    date: 2030-02-10T10:00:00Z
    max_participants: 40
    team: true
    min_team_size: 2
    max_team_size: 4
    custom_fields: [Robot name]
    rounds:
      - {number: 1, name: Heats}
      - {number: 2, name: Final, selection_limit: 8}
  - title: Quiz
    date: 2030-02-11T10:00:00Z
    max_participants: 100
    coordinator: quizmaster
schedules:
  - {title: Opening, starts_at: 2030-02-10T09:00:00Z}
  - {title: Robo Race heats, starts_at: 2030-02-10T10:00:00Z, event: Robo Race}
`

func importer(m *testutil.MemStore) *Importer {
	auth := &service.AuthService{
		Users: m.Users(), Tokens: m.Tokens(), Participants: m.Participants(),
		OTP:    otp.NewIssuer(otp.DefaultConfig(), otp.NewMemoryStore(0)),
		Config: service.AuthConfig{BcryptCost: 4},
	}
	files := testutil.NewFiles()
	return &Importer{
		Catalog: &service.CatalogService{
			Fests: m.Fests(), Events: m.Events(), Rounds: m.Rounds(), Users: m.Users(),
			Provisioner: auth, Files: files,
		},
		Content: &service.ContentService{
			Fests: m.Fests(), Events: m.Events(), Schedules: m.Schedules(), Gallery: m.Gallery(),
			Feedback: m.Feedback(), Team: m.TeamMembers(), Files: files,
		},
		Users: m.Users(),
	}
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	m := testutil.NewMemStore()
	qm, err := m.Users().Create(ctx, model.User{Username: "quizmaster", Role: model.RoleCoordinator, IsActive: true})
	require.NoError(t, err)
	root := service.Actor{UserID: 1000, Role: model.RoleSuperuser}

	f, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	res, err := importer(m).Import(ctx, root, f)
	require.NoError(t, err)

	assert.True(t, res.Fest.IsActive)
	require.Len(t, res.Events, 2)
	assert.Equal(t, model.DefaultLocation, res.Events[0].Location)
	assert.Equal(t, qm, *res.Events[1].CoordinatorID)
	require.Len(t, res.Credentials, 1, "only the event without a coordinator gets one provisioned")
	assert.Equal(t, "Robo Race", res.Credentials[0].Event)
	assert.Equal(t, 2, res.Schedules)

	rounds, err := m.Rounds().ListByEvent(ctx, res.Events[0].ID)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	assert.Equal(t, 8, rounds[1].SelectionLimit)

	sched, err := m.Schedules().ListByFest(ctx, res.Fest.ID)
	require.NoError(t, err)
	require.Len(t, sched, 2)
	assert.Equal(t, res.Events[0].ID, *sched[1].EventID)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("fest: {name: X, year: 2030}\nvenue: nowhere\n"))
	assert.Error(t, err)

	_, err = Parse(strings.NewReader(""))
	assert.ErrorContains(t, err, "empty document")
}

func TestImportUnknownScheduleEvent(t *testing.T) {
	m := testutil.NewMemStore()
	f, err := Parse(strings.NewReader(`
fest: {name: F, year: 2030}
schedules:
  - {title: Lost, starts_at: 2030-01-01T00:00:00Z, event: Nope}
`))
	require.NoError(t, err)
	_, err = importer(m).Import(context.Background(), service.Actor{UserID: 1, Role: model.RoleSuperuser}, f)
	assert.ErrorContains(t, err, `unknown event "Nope"`)
}
