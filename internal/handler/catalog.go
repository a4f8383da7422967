package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fest-registration/internal/model"
	"github.com/iliyamo/fest-registration/internal/service"
)

// CatalogHandler serves fests, events and rounds.
type CatalogHandler struct {
	Catalog *service.CatalogService
}

func NewCatalogHandler(s *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{Catalog: s}
}

// ----- DTOs -----

type festReq struct {
	Name     string `json:"name" validate:"required,max=200"`
	Year     int    `json:"year" validate:"required"`
	IsActive *bool  `json:"is_active"`
}

func (r festReq) toModel() model.Fest {
	f := model.Fest{Name: r.Name, Year: r.Year, IsActive: true}
	if r.IsActive != nil {
		f.IsActive = *r.IsActive
	}
	return f
}

type eventReq struct {
	FestID               *uint64    `json:"fest_id"`
	CoordinatorID        *uint64    `json:"coordinator_id"`
	Title                string     `json:"title" validate:"required,max=200"`
	Description          string     `json:"description" validate:"max=5000"`
	Location             string     `json:"location" validate:"max=200"`
	Date                 time.Time  `json:"date" validate:"required"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	FeeCents             uint32     `json:"fee_cents"`
	MaxParticipants      int        `json:"max_participants" validate:"required"`
	IsTeamEvent          bool       `json:"is_team_event"`
	MinTeamSize          int        `json:"min_team_size"`
	MaxTeamSize          int        `json:"max_team_size"`
	CustomFields         []string   `json:"custom_fields" validate:"max=30,dive,required,max=100"`
}

func (r eventReq) toModel() model.Event {
	return model.Event{
		FestID:               r.FestID,
		CoordinatorID:        r.CoordinatorID,
		Title:                r.Title,
		Description:          r.Description,
		Location:             r.Location,
		Date:                 r.Date,
		RegistrationDeadline: r.RegistrationDeadline,
		FeeCents:             r.FeeCents,
		MaxParticipants:      r.MaxParticipants,
		IsTeamEvent:          r.IsTeamEvent,
		MinTeamSize:          r.MinTeamSize,
		MaxTeamSize:          r.MaxTeamSize,
		CustomFields:         r.CustomFields,
	}
}

type roundReq struct {
	Number         int    `json:"round_number" validate:"required"`
	Name           string `json:"name" validate:"max=100"`
	SelectionLimit int    `json:"selection_limit"`
}

// ----- fests -----

func (h *CatalogHandler) CreateFest(c echo.Context) error {
	var req festReq
	if err := bind(c, &req); err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	f, err := h.Catalog.CreateFest(ctx, actorFrom(c), req.toModel())
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *CatalogHandler) UpdateFest(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	var req festReq
	if err := bind(c, &req); err != nil {
		return respondErr(c, err)
	}
	f := req.toModel()
	f.ID = id
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Catalog.UpdateFest(ctx, actorFrom(c), f)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// DeactivateFest: DELETE /v1/fests/:id hides the fest instead of deleting it.
func (h *CatalogHandler) DeactivateFest(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	f, err := h.Catalog.DeactivateFest(ctx, actorFrom(c), id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *CatalogHandler) GetFest(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	f, err := h.Catalog.GetFest(ctx, id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, f)
}

// ListFests returns active fests unless ?all=true.
func (h *CatalogHandler) ListFests(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	fests, err := h.Catalog.ListFests(ctx, !queryBool(c, "all"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, fests)
}

// UploadBrochure: PUT /v1/fests/:id/brochure, multipart field "file".
func (h *CatalogHandler) UploadBrochure(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	data, err := readUpload(c, "file", maxDocumentBytes)
	if err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	f, err := h.Catalog.SetBrochure(ctx, actorFrom(c), id, data)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, f)
}

// ----- events -----

// CreateEvent answers 201 with the event and, when one was provisioned, the
// coordinator's one-time password.
func (h *CatalogHandler) CreateEvent(c echo.Context) error {
	var req eventReq
	if err := bind(c, &req); err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Catalog.CreateEvent(ctx, actorFrom(c), req.toModel())
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *CatalogHandler) UpdateEvent(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	var req eventReq
	if err := bind(c, &req); err != nil {
		return respondErr(c, err)
	}
	ev := req.toModel()
	ev.ID = id
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Catalog.UpdateEvent(ctx, actorFrom(c), ev)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) DeleteEvent(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Catalog.DeleteEvent(ctx, actorFrom(c), id); err != nil {
		return respondErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CatalogHandler) GetEvent(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	ev, err := h.Catalog.GetEvent(ctx, id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// ListEvents supports ?fest_id=N and ?upcoming=true.
func (h *CatalogHandler) ListEvents(c echo.Context) error {
	festID, err := queryID(c, "fest_id")
	if err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	events, err := h.Catalog.ListEvents(ctx, festID, queryBool(c, "upcoming"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, events)
}

// ManagedEvents: GET /v1/me/events
func (h *CatalogHandler) ManagedEvents(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	events, err := h.Catalog.ManagedEvents(ctx, actorFrom(c))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, events)
}

// UploadEventImage: PUT /v1/events/:id/image, multipart field "image".
func (h *CatalogHandler) UploadEventImage(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	data, err := readUpload(c, "image", maxImageBytes)
	if err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	ev, err := h.Catalog.SetEventImage(ctx, actorFrom(c), id, data)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// ----- rounds -----

func (h *CatalogHandler) AddRound(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	var req roundReq
	if err := bind(c, &req); err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rd, err := h.Catalog.AddRound(ctx, actorFrom(c), model.EventRound{
		EventID:        eventID,
		Number:         req.Number,
		Name:           req.Name,
		SelectionLimit: req.SelectionLimit,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, rd)
}

func (h *CatalogHandler) UpdateRound(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	var req roundReq
	if err := bind(c, &req); err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rd, err := h.Catalog.UpdateRound(ctx, actorFrom(c), model.EventRound{
		ID:             id,
		Number:         req.Number,
		Name:           req.Name,
		SelectionLimit: req.SelectionLimit,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, rd)
}

func (h *CatalogHandler) DeleteRound(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Catalog.DeleteRound(ctx, actorFrom(c), id); err != nil {
		return respondErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CatalogHandler) ListRounds(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rounds, err := h.Catalog.ListRounds(ctx, eventID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, rounds)
}
