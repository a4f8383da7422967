package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fest-registration/internal/model"
	"github.com/iliyamo/fest-registration/internal/service"
)

// ContentHandler serves schedules, the gallery, feedback, the organising
// team and the statistics pages.
type ContentHandler struct {
	Content *service.ContentService
	Stats   *service.StatsService
}

// ----- DTOs -----

type scheduleReq struct {
	EventID  *uint64    `json:"event_id"`
	Title    string     `json:"title" validate:"required,max=200"`
	Venue    string     `json:"venue" validate:"max=200"`
	StartsAt time.Time  `json:"starts_at" validate:"required"`
	EndsAt   *time.Time `json:"ends_at"`
}
type feedbackReq struct {
	EventID *uint64 `json:"event_id"`
	Name    string  `json:"name" validate:"required,max=100"`
	Email   string  `json:"email" validate:"required,email,max=254"`
	Message string  `json:"message" validate:"required,max=5000"`
	Rating  int     `json:"rating"`
}
type teamMemberReq struct {
	Name      string `json:"name" validate:"required,max=100"`
	Position  string `json:"position" validate:"max=100"`
	PhotoPath string `json:"photo_path" validate:"max=500"`
	SortOrder int    `json:"sort_order"`
}

func (r teamMemberReq) toModel() model.TeamMember {
	return model.TeamMember{Name: r.Name, Position: r.Position, PhotoPath: r.PhotoPath, SortOrder: r.SortOrder}
}

// ----- schedules -----

// AddSchedule: POST /v1/fests/:id/schedules
func (h *ContentHandler) AddSchedule(c echo.Context) error {
	festID, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	var req scheduleReq
	if err := bind(c, &req); err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	sc, err := h.Content.AddSchedule(ctx, actorFrom(c), model.Schedule{
		FestID:   festID,
		EventID:  req.EventID,
		Title:    req.Title,
		Venue:    req.Venue,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, sc)
}

func (h *ContentHandler) DeleteSchedule(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Content.DeleteSchedule(ctx, actorFrom(c), id); err != nil {
		return respondErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ContentHandler) FestSchedule(c echo.Context) error {
	festID, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Content.FestSchedule(ctx, festID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// ----- gallery -----

// UploadPhoto: POST /v1/gallery as multipart with "image", "title" and the
// optional "event_id" / "fest_id" form values.
func (h *ContentHandler) UploadPhoto(c echo.Context) error {
	item := model.GalleryItem{Title: c.FormValue("title")}
	for field, dst := range map[string]**uint64{"event_id": &item.EventID, "fest_id": &item.FestID} {
		raw := c.FormValue(field)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return respondErr(c, malformed(field))
		}
		*dst = &id
	}
	data, err := readUpload(c, "image", maxImageBytes)
	if err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Content.UploadPhoto(ctx, actorFrom(c), item, data)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *ContentHandler) DeletePhoto(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Content.DeletePhoto(ctx, actorFrom(c), id); err != nil {
		return respondErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Photos: GET /v1/gallery?event_id=N
func (h *ContentHandler) Photos(c echo.Context) error {
	eventID, err := queryID(c, "event_id")
	if err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Content.Photos(ctx, eventID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// ----- feedback -----

func (h *ContentHandler) SubmitFeedback(c echo.Context) error {
	var req feedbackReq
	if err := bind(c, &req); err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	f, err := h.Content.SubmitFeedback(ctx, model.Feedback{
		EventID: req.EventID,
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
		Rating:  req.Rating,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, f)
}

// ListFeedback: GET /v1/feedback?event_id=N
func (h *ContentHandler) ListFeedback(c echo.Context) error {
	eventID, err := queryID(c, "event_id")
	if err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Content.ListFeedback(ctx, actorFrom(c), eventID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// ----- team -----

func (h *ContentHandler) AddTeamMember(c echo.Context) error {
	var req teamMemberReq
	if err := bind(c, &req); err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.Content.AddTeamMember(ctx, actorFrom(c), req.toModel())
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *ContentHandler) UpdateTeamMember(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	var req teamMemberReq
	if err := bind(c, &req); err != nil {
		return respondErr(c, err)
	}
	m := req.toModel()
	m.ID = id
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Content.UpdateTeamMember(ctx, actorFrom(c), m)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ContentHandler) DeleteTeamMember(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Content.DeleteTeamMember(ctx, actorFrom(c), id); err != nil {
		return respondErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ContentHandler) TeamMembers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Content.TeamMembers(ctx)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// ----- stats -----

// EventStats: GET /v1/events/:id/stats (event managers).
func (h *ContentHandler) EventStats(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Stats.EventStats(ctx, actorFrom(c), eventID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Leaderboard: GET /v1/leaderboard?fest_id=N
func (h *ContentHandler) Leaderboard(c echo.Context) error {
	festID, err := queryID(c, "fest_id")
	if err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, err := h.Stats.CollegeLeaderboard(ctx, festID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}
