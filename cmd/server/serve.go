package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/logger"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/iliyamo/fest-registration/internal/database"
	"github.com/iliyamo/fest-registration/internal/handler"
	"github.com/iliyamo/fest-registration/internal/middleware"
	"github.com/iliyamo/fest-registration/internal/router"
	"github.com/iliyamo/fest-registration/internal/tracing"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", true, "apply pending migrations before serving")
}

// publicMedia lists the storage prefixes served as static files. QR codes
// and certificates stay behind their authenticated endpoints.
var publicMedia = []string{"gallery", "events", "brochures"}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			logger.Warningf("tracing shutdown: %v", err)
		}
	}()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()
	if migrateOnStart {
		if err := database.MigrateUp(a.db); err != nil {
			return err
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover(), echomw.Logger(), echomw.BodyLimit("20M"))
	if tp.Enabled() {
		e.Use(middleware.Tracing(cfg.Tracing.ServiceName))
	}
	for _, dir := range publicMedia {
		e.Static("/media/"+dir, filepath.Join(cfg.App.MediaDir, dir))
	}

	router.RegisterRoutes(e)
	router.RegisterAPI(e, router.Handlers{
		Auth:    handler.NewAuthHandler(a.auth),
		Catalog: handler.NewCatalogHandler(a.catalog),
		Participants: &handler.ParticipantHandler{
			Registration: a.registration,
			Attendance:   a.checkin,
			Progression:  a.progression,
			Certificates: a.certificates,
		},
		Content: &handler.ContentHandler{Content: a.content, Stats: a.stats},
	}, router.Options{
		JWTSecret: cfg.JWT.Secret,
		Limiter:   middleware.NewTokenBucket(cfg.RateLimit, a.rdb),
	})

	addr := ":" + cfg.App.Port
	errc := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s (env=%s)", addr, cfg.App.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Infof("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(sctx)
}
