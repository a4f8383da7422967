package handler

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fest-registration/internal/model"
	"github.com/iliyamo/fest-registration/internal/registration"
	"github.com/iliyamo/fest-registration/internal/service"
)

// ParticipantHandler serves registration and everything that happens to a
// participant afterwards: check-in, promotion, ranking and certificates.
type ParticipantHandler struct {
	Registration *service.RegistrationService
	Attendance   *service.CheckinService
	Progression  *service.ProgressionService
	Certificates *service.CertificateService
}

// ----- DTOs -----

type checkinReq struct {
	Token string `json:"token" validate:"required,max=1000"`
}
type promoteReq struct {
	ParticipantIDs []uint64 `json:"participant_ids" validate:"required,min=1,max=1000"`
	TargetRound    int      `json:"target_round"`
	Correction     bool     `json:"correction"`
}
type rankReq struct {
	Rank int `json:"rank"`
}
type ticketResp struct {
	Participant model.Participant `json:"participant"`
	Event       model.Event       `json:"event"`
	Token       string            `json:"token"`
	QRPNG       string            `json:"qr_png_base64,omitempty"`
}

// ----- registration -----

// Register: POST /v1/events/:id/register. Open to guests; a signed-in
// student gets the registration linked to their account.
func (h *ParticipantHandler) Register(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	var sub registration.Submission
	if err := bind(c, &sub); err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Registration.Register(ctx, actorFrom(c), eventID, sub)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// ListForEvent: GET /v1/events/:id/participants (event managers).
func (h *ParticipantHandler) ListForEvent(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	ps, err := h.Registration.ListForEvent(ctx, actorFrom(c), eventID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, ps)
}

// Mine: GET /v1/me/registrations
func (h *ParticipantHandler) Mine(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	ps, err := h.Registration.Mine(ctx, actorFrom(c))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, ps)
}

func (h *ParticipantHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Registration.Delete(ctx, actorFrom(c), id); err != nil {
		return respondErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Ticket: GET /v1/participants/:id/ticket returns the token with the QR
// inlined as base64.
func (h *ParticipantHandler) Ticket(c echo.Context) error {
	t, err := h.ticket(c)
	if err != nil {
		return respondErr(c, err)
	}
	resp := ticketResp{Participant: t.Participant, Event: t.Event, Token: t.Token}
	if len(t.QR) > 0 {
		resp.QRPNG = base64.StdEncoding.EncodeToString(t.QR)
	}
	return c.JSON(http.StatusOK, resp)
}

// TicketQR: GET /v1/participants/:id/ticket/qr.png
func (h *ParticipantHandler) TicketQR(c echo.Context) error {
	t, err := h.ticket(c)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Blob(http.StatusOK, "image/png", t.QR)
}

func (h *ParticipantHandler) ticket(c echo.Context) (service.Ticket, error) {
	id, err := pathID(c, "id")
	if err != nil {
		return service.Ticket{}, err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	return h.Registration.Ticket(ctx, actorFrom(c), id)
}

// ----- check-in -----

// Checkin: POST /v1/checkin with the scanned token text.
func (h *ParticipantHandler) Checkin(c echo.Context) error {
	var req checkinReq
	if err := bind(c, &req); err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Attendance.Checkin(ctx, actorFrom(c), req.Token)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// ToggleAttendance: POST /v1/participants/:id/attendance/toggle
func (h *ParticipantHandler) ToggleAttendance(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Attendance.ToggleAttendance(ctx, actorFrom(c), id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// ----- progression -----

// Promote: POST /v1/events/:id/promote
func (h *ParticipantHandler) Promote(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	var req promoteReq
	if err := bind(c, &req); err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	n, err := h.Progression.Promote(ctx, actorFrom(c), eventID, req.ParticipantIDs, req.TargetRound, req.Correction)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": n, "target_round": req.TargetRound})
}

// AssignRank: PUT /v1/participants/:id/rank
func (h *ParticipantHandler) AssignRank(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	var req rankReq
	if err := bind(c, &req); err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Progression.AssignRank(ctx, actorFrom(c), id, req.Rank)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// ClearRank: DELETE /v1/participants/:id/rank
func (h *ParticipantHandler) ClearRank(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Progression.ClearRank(ctx, actorFrom(c), id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// PublishResults: POST /v1/events/:id/results/publish
func (h *ParticipantHandler) PublishResults(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	ev, err := h.Progression.PublishResults(ctx, actorFrom(c), eventID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// Results: GET /v1/events/:id/results
func (h *ParticipantHandler) Results(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rs, err := h.Progression.Results(ctx, actorFrom(c), eventID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, rs)
}

// Qualifiers: GET /v1/events/:id/qualifiers?round=N
func (h *ParticipantHandler) Qualifiers(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	minRound := 1
	if raw := c.QueryParam("round"); raw != "" {
		if minRound, err = strconv.Atoi(raw); err != nil {
			return respondErr(c, malformed("round"))
		}
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	qs, err := h.Progression.Qualifiers(ctx, eventID, minRound)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, qs)
}

// ----- certificates -----

// GenerateCertificates: POST /v1/events/:id/certificates renders a PDF for
// every attended participant and reports per-item outcomes.
func (h *ParticipantHandler) GenerateCertificates(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), batchTimeout)
	defer cancel()
	res, err := h.Certificates.Generate(ctx, actorFrom(c), eventID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// DownloadCertificate: GET /v1/participants/:id/certificate
func (h *ParticipantHandler) DownloadCertificate(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	pdf, err := h.Certificates.Download(ctx, actorFrom(c), id)
	if err != nil {
		return respondErr(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="certificate-%d.pdf"`, id))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}
