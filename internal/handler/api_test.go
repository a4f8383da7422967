package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fest-registration/internal/certificate"
	"github.com/iliyamo/fest-registration/internal/handler"
	"github.com/iliyamo/fest-registration/internal/model"
	"github.com/iliyamo/fest-registration/internal/otp"
	"github.com/iliyamo/fest-registration/internal/router"
	"github.com/iliyamo/fest-registration/internal/service"
	"github.com/iliyamo/fest-registration/internal/testutil"
	"github.com/iliyamo/fest-registration/internal/utils"
)

const secret = "api-secret"

type api struct {
	e      *echo.Echo
	store  *testutil.MemStore
	outbox *testutil.Outbox
	admin  string
}

func newAPI(t *testing.T) *api {
	t.Helper()
	m := testutil.NewMemStore()
	files := testutil.NewFiles()
	outbox := &testutil.Outbox{}

	auth := &service.AuthService{
		Users:        m.Users(),
		Tokens:       m.Tokens(),
		Participants: m.Participants(),
		OTP:          otp.NewIssuer(otp.DefaultConfig(), otp.NewMemoryStore(time.Minute)),
		Mailer:       outbox,
		Config:       service.AuthConfig{Secret: secret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4},
	}
	h := router.Handlers{
		Auth: handler.NewAuthHandler(auth),
		Catalog: handler.NewCatalogHandler(&service.CatalogService{
			Fests: m.Fests(), Events: m.Events(), Rounds: m.Rounds(), Users: m.Users(),
			Provisioner: auth, Files: files,
		}),
		Participants: &handler.ParticipantHandler{
			Registration: &service.RegistrationService{
				Events: m.Events(), Participants: m.Participants(), QR: testutil.QR{},
				Files: files, Dispatcher: &testutil.Dispatcher{},
			},
			Attendance:  &service.CheckinService{Events: m.Events(), Participants: m.Participants()},
			Progression: &service.ProgressionService{Events: m.Events(), Rounds: m.Rounds(), Participants: m.Participants()},
			Certificates: &service.CertificateService{
				Events: m.Events(), Fests: m.Fests(), Participants: m.Participants(),
				Renderer: certificate.PDF{Issuer: "Test"}, Files: files,
			},
		},
		Content: &handler.ContentHandler{
			Content: &service.ContentService{
				Fests: m.Fests(), Events: m.Events(), Schedules: m.Schedules(), Gallery: m.Gallery(),
				Feedback: m.Feedback(), Team: m.TeamMembers(), Files: files,
			},
			Stats: &service.StatsService{Events: m.Events(), Participants: m.Participants(), Feedback: m.Feedback()},
		},
	}

	e := echo.New()
	e.Validator = handler.NewValidator()
	router.RegisterRoutes(e)
	router.RegisterAPI(e, h, router.Options{JWTSecret: secret})

	adminID, err := m.Users().Create(context.Background(), model.User{Username: "root", Role: model.RoleSuperuser, IsActive: true})
	require.NoError(t, err)
	return &api{e: e, store: m, outbox: outbox, admin: bearer(t, adminID, model.RoleSuperuser)}
}

func bearer(t *testing.T, id uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, id, role, 15)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func (a *api) do(t *testing.T, method, path, auth string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type createdEvent struct {
	Event               model.Event `json:"event"`
	Coordinator         model.User  `json:"coordinator"`
	CoordinatorPassword string      `json:"coordinator_password"`
}

func (a *api) createEvent(t *testing.T, body map[string]any) (model.Event, string) {
	t.Helper()
	if _, ok := body["date"]; !ok {
		body["date"] = time.Now().UTC().Add(72 * time.Hour)
	}
	rec := a.do(t, http.MethodPost, "/v1/events", a.admin, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decode[createdEvent](t, rec)
	require.NotEmpty(t, out.CoordinatorPassword)
	return out.Event, bearer(t, out.Coordinator.ID, model.RoleCoordinator)
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	rec := a.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRegistrationLifecycle(t *testing.T) {
	a := newAPI(t)
	ev, coord := a.createEvent(t, map[string]any{"title": "Code Sprint", "max_participants": 1})

	reg := fmt.Sprintf("/v1/events/%d/register", ev.ID)
	rec := a.do(t, http.MethodPost, reg, "", map[string]any{"name": "Ada", "email": "Ada@Example.com", "college": "North"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[model.Participant](t, rec)
	assert.Equal(t, "ada@example.com", p.Email)
	assert.Equal(t, 1, p.CurrentRound)
	require.NotEmpty(t, p.CheckinToken)

	rec = a.do(t, http.MethodPost, reg, "", map[string]any{"name": "Bob", "email": "bob@example.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "event_full", decode[map[string]any](t, rec)["reason"])

	rec = a.do(t, http.MethodPost, reg, "", map[string]any{"name": "Bob", "email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", decode[map[string]any](t, rec)["reason"])

	list := fmt.Sprintf("/v1/events/%d/participants", ev.ID)
	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, list, "", nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, list, bearer(t, 999, model.RoleStudent), nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, list, bearer(t, 998, model.RoleCoordinator), nil).Code)
	rec = a.do(t, http.MethodGet, list, coord, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Participant](t, rec), 1)

	rec = a.do(t, http.MethodPost, "/v1/checkin", coord, map[string]any{"token": p.CheckinToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[model.Participant](t, rec).Attended)

	rec = a.do(t, http.MethodPost, "/v1/checkin", coord, map[string]any{"token": "NAME:nobody"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	detail := decode[service.EventDetail](t, a.do(t, http.MethodGet, fmt.Sprintf("/v1/events/%d", ev.ID), "", nil))
	assert.Equal(t, 0, detail.SpotsLeft)
	assert.True(t, detail.IsRegistrationOpen)
}

func TestProgressionAndResults(t *testing.T) {
	a := newAPI(t)
	ev, coord := a.createEvent(t, map[string]any{"title": "Hackathon", "max_participants": 10})
	for _, n := range []int{1, 2} {
		rec := a.do(t, http.MethodPost, fmt.Sprintf("/v1/events/%d/rounds", ev.ID), coord, map[string]any{"round_number": n})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	rec := a.do(t, http.MethodPost, fmt.Sprintf("/v1/events/%d/rounds", ev.ID), coord, map[string]any{"round_number": 2})
	assert.Equal(t, http.StatusConflict, rec.Code)

	var ids []uint64
	for i, college := range []string{"north college", "South College"} {
		rec := a.do(t, http.MethodPost, fmt.Sprintf("/v1/events/%d/register", ev.ID), "",
			map[string]any{"name": fmt.Sprintf("P%d", i), "email": fmt.Sprintf("p%d@example.com", i), "college": college})
		require.Equal(t, http.StatusCreated, rec.Code)
		ids = append(ids, decode[model.Participant](t, rec).ID)
	}

	promote := fmt.Sprintf("/v1/events/%d/promote", ev.ID)
	rec = a.do(t, http.MethodPost, promote, coord, map[string]any{"participant_ids": ids, "target_round": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 2, decode[map[string]any](t, rec)["updated"])

	rec = a.do(t, http.MethodPost, promote, coord, map[string]any{"participant_ids": ids, "target_round": 3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_round", decode[map[string]any](t, rec)["reason"])

	quals := decode[[]model.Qualifier](t, a.do(t, http.MethodGet, fmt.Sprintf("/v1/events/%d/qualifiers?round=2", ev.ID), "", nil))
	assert.Len(t, quals, 2)

	rec = a.do(t, http.MethodPut, fmt.Sprintf("/v1/participants/%d/rank", ids[0]), coord, map[string]any{"rank": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[model.Participant](t, rec).IsWinner)

	results := fmt.Sprintf("/v1/events/%d/results", ev.ID)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, results, "", nil).Code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, results, coord, nil).Code)

	require.Equal(t, http.StatusOK, a.do(t, http.MethodPost, fmt.Sprintf("/v1/events/%d/results/publish", ev.ID), coord, nil).Code)
	standings := decode[[]service.Standing](t, a.do(t, http.MethodGet, results, "", nil))
	require.Len(t, standings, 1)
	assert.Equal(t, 1, standings[0].Rank)

	board := decode[[]map[string]any](t, a.do(t, http.MethodGet, "/v1/leaderboard", "", nil))
	require.Len(t, board, 1)
	assert.Equal(t, "North College", board[0]["college"])
	assert.EqualValues(t, 10, board[0]["points"])
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

func TestOTPSignInAndTicket(t *testing.T) {
	a := newAPI(t)
	ev, _ := a.createEvent(t, map[string]any{"title": "Quiz", "max_participants": 5})
	rec := a.do(t, http.MethodPost, fmt.Sprintf("/v1/events/%d/register", ev.ID), "",
		map[string]any{"name": "Cy", "email": "cy@example.com", "phone": "555-0101"})
	require.Equal(t, http.StatusCreated, rec.Code)
	p := decode[model.Participant](t, rec)

	rec = a.do(t, http.MethodPost, "/v1/auth/otp/request", "", map[string]any{"credential": "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/auth/otp/request", "", map[string]any{"credential": "555-0101"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	msgs := a.outbox.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "cy@example.com", msgs[0].To)
	code := codePattern.FindString(msgs[0].Body)
	require.NotEmpty(t, code)

	rec = a.do(t, http.MethodPost, "/v1/auth/otp/verify", "", map[string]any{"credential": "555-0101", "code": code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var session struct {
		User          model.User             `json:"user"`
		Registrations []model.Participant    `json:"registrations"`
		Access        struct{ Token string } `json:"access"`
		Refresh       struct{ Token string } `json:"refresh"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, model.RoleStudent, session.User.Role)
	require.Len(t, session.Registrations, 1)
	student := "Bearer " + session.Access.Token

	rec = a.do(t, http.MethodPost, "/v1/auth/otp/verify", "", map[string]any{"credential": "555-0101", "code": code})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "codes are single use")

	mine := decode[[]model.Participant](t, a.do(t, http.MethodGet, "/v1/me/registrations", student, nil))
	require.Len(t, mine, 1)
	assert.Equal(t, p.ID, mine[0].ID)

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/v1/participants/%d/ticket/qr.png", p.ID), student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))

	other := bearer(t, 4242, model.RoleStudent)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, fmt.Sprintf("/v1/participants/%d/ticket", p.ID), other, nil).Code)

	rec = a.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]any{"refresh_token": session.Refresh.Token})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]any{"refresh_token": session.Refresh.Token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "refresh tokens rotate")
}

func TestStaffLoginAndUsers(t *testing.T) {
	a := newAPI(t)
	rec := a.do(t, http.MethodPost, "/v1/users", a.admin,
		map[string]any{"username": "Judge", "email": "judge@example.com", "password": "correct horse"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, model.RoleCoordinator, decode[model.User](t, rec).Role)

	rec = a.do(t, http.MethodPost, "/v1/users", bearer(t, 77, model.RoleCoordinator),
		map[string]any{"username": "x", "password": "whatever1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/auth/login", "", map[string]any{"username": "judge", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = a.do(t, http.MethodPost, "/v1/auth/login", "", map[string]any{"username": "judge", "password": "correct horse"})
	require.Equal(t, http.StatusOK, rec.Code)

	var session struct {
		Access struct{ Token string } `json:"access"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	me := decode[model.User](t, a.do(t, http.MethodGet, "/v1/me", "Bearer "+session.Access.Token, nil))
	assert.Equal(t, "judge", me.Username)

	rec = a.do(t, http.MethodPost, "/v1/auth/logout", "Bearer "+session.Access.Token, map[string]any{})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestContentEndpoints(t *testing.T) {
	a := newAPI(t)
	rec := a.do(t, http.MethodPost, "/v1/fests", a.admin, map[string]any{"name": "TechFest", "year": 2026})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	fest := decode[model.Fest](t, rec)

	rec = a.do(t, http.MethodPost, fmt.Sprintf("/v1/fests/%d/schedules", fest.ID), a.admin,
		map[string]any{"title": "Opening", "starts_at": time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, decode[[]model.Schedule](t, a.do(t, http.MethodGet, fmt.Sprintf("/v1/fests/%d/schedules", fest.ID), "", nil)), 1)

	rec = a.do(t, http.MethodPost, "/v1/feedback", "", map[string]any{"name": "N", "email": "n@example.com", "message": "great", "rating": 6})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_rating", decode[map[string]any](t, rec)["reason"])
	rec = a.do(t, http.MethodPost, "/v1/feedback", "", map[string]any{"name": "N", "email": "n@example.com", "message": "great", "rating": 5})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, decode[[]model.Feedback](t, a.do(t, http.MethodGet, "/v1/feedback", a.admin, nil)), 1)

	rec = a.do(t, http.MethodPost, "/v1/team", a.admin, map[string]any{"name": "Dee", "position": "Lead"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, decode[[]model.TeamMember](t, a.do(t, http.MethodGet, "/v1/team", "", nil)), 1)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", "Stage"))
	fw, err := mw.CreateFormFile("image", "stage.png")
	require.NoError(t, err)
	_, err = fw.Write(pngHeader)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/v1/gallery", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, a.admin)
	rec = httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, decode[[]model.GalleryItem](t, a.do(t, http.MethodGet, "/v1/gallery", "", nil)), 1)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestMalformedPathID(t *testing.T) {
	a := newAPI(t)
	rec := a.do(t, http.MethodGet, "/v1/events/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/v1/events/12345", "", nil).Code)
}
