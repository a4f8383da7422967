// Package router wires handlers and middleware onto echo routes.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fest-registration/internal/handler"
	"github.com/iliyamo/fest-registration/internal/middleware"
	"github.com/iliyamo/fest-registration/internal/model"
)

// Handlers bundles every handler the API serves.
type Handlers struct {
	Auth         *handler.AuthHandler
	Catalog      *handler.CatalogHandler
	Participants *handler.ParticipantHandler
	Content      *handler.ContentHandler
}

// Options carries the shared middleware inputs. Limiter guards the sign-in
// and registration routes; nil disables it.
type Options struct {
	JWTSecret string
	Limiter   echo.MiddlewareFunc
}

// RegisterRoutes registers unauthenticated infrastructure routes.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAPI registers the /v1 API. Routes carry their own middleware so
// public, signed-in, staff and superuser endpoints can share path prefixes.
func RegisterAPI(e *echo.Echo, h Handlers, opt Options) {
	limit := opt.Limiter
	if limit == nil {
		limit = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	optional := middleware.OptionalJWT(opt.JWTSecret)
	jwt := middleware.JWTAuth(opt.JWTSecret)
	authed := []echo.MiddlewareFunc{jwt}
	staff := []echo.MiddlewareFunc{jwt, middleware.RequireRole(model.RoleSuperuser, model.RoleCoordinator)}
	super := []echo.MiddlewareFunc{jwt, middleware.RequireRole(model.RoleSuperuser)}

	v1 := e.Group("/v1")
	registerAuth(v1, h.Auth, limit, optional, authed, super)
	registerCatalog(v1, h.Catalog, staff, super)
	registerParticipants(v1, h.Participants, limit, optional, authed, staff)
	registerContent(v1, h.Content, staff, super)
}

func registerAuth(g *echo.Group, a *handler.AuthHandler, limit, optional echo.MiddlewareFunc, authed, super []echo.MiddlewareFunc) {
	g.POST("/auth/otp/request", a.RequestCode, limit)
	g.POST("/auth/otp/verify", a.VerifyCode, limit)
	g.POST("/auth/login", a.Login, limit)
	g.POST("/auth/refresh", a.Refresh)
	g.POST("/auth/logout", a.Logout, optional)

	g.GET("/me", a.Me, authed...)
	g.GET("/users", a.ListUsers, super...)
	g.POST("/users", a.CreateUser, super...)
}

func registerCatalog(g *echo.Group, h *handler.CatalogHandler, staff, super []echo.MiddlewareFunc) {
	g.GET("/fests", h.ListFests)
	g.GET("/fests/:id", h.GetFest)
	g.POST("/fests", h.CreateFest, super...)
	g.PUT("/fests/:id", h.UpdateFest, super...)
	g.DELETE("/fests/:id", h.DeactivateFest, super...)
	g.PUT("/fests/:id/brochure", h.UploadBrochure, super...)

	g.GET("/events", h.ListEvents)
	g.GET("/events/:id", h.GetEvent)
	g.POST("/events", h.CreateEvent, super...)
	g.PUT("/events/:id", h.UpdateEvent, staff...)
	g.DELETE("/events/:id", h.DeleteEvent, super...)
	g.PUT("/events/:id/image", h.UploadEventImage, staff...)
	g.GET("/me/events", h.ManagedEvents, staff...)

	g.GET("/events/:id/rounds", h.ListRounds)
	g.POST("/events/:id/rounds", h.AddRound, staff...)
	g.PUT("/rounds/:id", h.UpdateRound, staff...)
	g.DELETE("/rounds/:id", h.DeleteRound, staff...)
}

func registerParticipants(g *echo.Group, h *handler.ParticipantHandler, limit, optional echo.MiddlewareFunc, authed, staff []echo.MiddlewareFunc) {
	g.POST("/events/:id/register", h.Register, limit, optional)
	g.GET("/events/:id/participants", h.ListForEvent, staff...)
	g.DELETE("/participants/:id", h.Delete, staff...)
	g.GET("/me/registrations", h.Mine, authed...)
	g.GET("/participants/:id/ticket", h.Ticket, authed...)
	g.GET("/participants/:id/ticket/qr.png", h.TicketQR, authed...)

	g.POST("/checkin", h.Checkin, staff...)
	g.POST("/participants/:id/attendance/toggle", h.ToggleAttendance, staff...)

	g.POST("/events/:id/promote", h.Promote, staff...)
	g.PUT("/participants/:id/rank", h.AssignRank, staff...)
	g.DELETE("/participants/:id/rank", h.ClearRank, staff...)
	g.POST("/events/:id/results/publish", h.PublishResults, staff...)
	g.GET("/events/:id/results", h.Results, optional)
	g.GET("/events/:id/qualifiers", h.Qualifiers)

	g.POST("/events/:id/certificates", h.GenerateCertificates, staff...)
	g.GET("/participants/:id/certificate", h.DownloadCertificate, authed...)
}

func registerContent(g *echo.Group, h *handler.ContentHandler, staff, super []echo.MiddlewareFunc) {
	g.GET("/fests/:id/schedules", h.FestSchedule)
	g.POST("/fests/:id/schedules", h.AddSchedule, super...)
	g.DELETE("/schedules/:id", h.DeleteSchedule, super...)

	g.GET("/gallery", h.Photos)
	g.POST("/gallery", h.UploadPhoto, super...)
	g.DELETE("/gallery/:id", h.DeletePhoto, super...)

	g.POST("/feedback", h.SubmitFeedback)
	g.GET("/feedback", h.ListFeedback, staff...)

	g.GET("/team", h.TeamMembers)
	g.POST("/team", h.AddTeamMember, super...)
	g.PUT("/team/:id", h.UpdateTeamMember, super...)
	g.DELETE("/team/:id", h.DeleteTeamMember, super...)

	g.GET("/events/:id/stats", h.EventStats, staff...)
	g.GET("/leaderboard", h.Leaderboard)
}
