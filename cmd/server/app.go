package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/logger"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/fest-registration/internal/certificate"
	"github.com/iliyamo/fest-registration/internal/config"
	"github.com/iliyamo/fest-registration/internal/database"
	"github.com/iliyamo/fest-registration/internal/model"
	"github.com/iliyamo/fest-registration/internal/notify"
	"github.com/iliyamo/fest-registration/internal/otp"
	"github.com/iliyamo/fest-registration/internal/qr"
	"github.com/iliyamo/fest-registration/internal/queue"
	"github.com/iliyamo/fest-registration/internal/repository"
	"github.com/iliyamo/fest-registration/internal/service"
	"github.com/iliyamo/fest-registration/internal/storage"
)

// app holds the wired services shared by the commands.
type app struct {
	db    *sql.DB
	rdb   *redis.Client
	files storage.Store

	users        *repository.UserRepo
	events       *repository.EventRepo
	participants *repository.ParticipantRepo

	processor *queue.Processor

	auth         *service.AuthService
	catalog      *service.CatalogService
	registration *service.RegistrationService
	checkin      *service.CheckinService
	progression  *service.ProgressionService
	certificates *service.CertificateService
	content      *service.ContentService
	stats        *service.StatsService
}

func newApp(cfg config.Config) (*app, error) {
	db, err := database.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	files, err := storage.NewLocal(cfg.App.MediaDir)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &app{db: db, files: files}
	a.rdb = config.NewRedisClient(cfg.Redis)
	var codes otp.Store
	if a.rdb != nil {
		codes = otp.NewRedisStore(a.rdb)
	} else {
		logger.Warningf("redis unreachable at %s: one-time codes kept in memory, rate limiting off", cfg.Redis.Address())
		codes = otp.NewMemoryStore(0)
	}

	mailer, feed := notifiers(cfg)
	a.processor = &queue.Processor{Mailer: mailer, Feed: feed, Files: files}
	var dispatcher queue.Dispatcher = a.processor
	if cfg.AMQP.URL != "" {
		dispatcher = &queue.Publisher{URL: cfg.AMQP.URL}
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	fests := repository.NewFestRepo(db)
	events := repository.NewEventRepo(db)
	rounds := repository.NewRoundRepo(db)
	participants := repository.NewParticipantRepo(db)
	feedback := repository.NewFeedbackRepo(db)
	a.users, a.events, a.participants = users, events, participants

	a.auth = &service.AuthService{
		Users:        users,
		Tokens:       tokens,
		Participants: participants,
		OTP:          otp.NewIssuer(cfg.OTP, codes),
		Mailer:       mailer,
		Config: service.AuthConfig{
			Secret:         cfg.JWT.Secret,
			AccessTTLMin:   cfg.JWT.AccessTTLMin,
			RefreshTTLDays: cfg.JWT.RefreshTTLDays,
			BcryptCost:     cfg.App.BcryptCost,
		},
	}
	a.catalog = &service.CatalogService{
		Fests:       fests,
		Events:      events,
		Rounds:      rounds,
		Users:       users,
		Provisioner: a.auth,
		Files:       files,
	}
	a.registration = &service.RegistrationService{
		Events:       events,
		Participants: participants,
		QR:           qr.PNG{},
		Files:        files,
		Dispatcher:   dispatcher,
	}
	a.checkin = &service.CheckinService{Events: events, Participants: participants}
	a.progression = &service.ProgressionService{Events: events, Rounds: rounds, Participants: participants}
	a.certificates = &service.CertificateService{
		Events:       events,
		Fests:        fests,
		Participants: participants,
		Renderer:     certificate.PDF{Issuer: cfg.App.Issuer},
		Files:        files,
	}
	a.content = &service.ContentService{
		Fests:     fests,
		Events:    events,
		Schedules: repository.NewScheduleRepo(db),
		Gallery:   repository.NewGalleryRepo(db),
		Feedback:  feedback,
		Team:      repository.NewTeamMemberRepo(db),
		Files:     files,
	}
	a.stats = &service.StatsService{Events: events, Participants: participants, Feedback: feedback}
	return a, nil
}

// notifiers picks SMTP for mail and Telegram for the admin feed when they
// are configured. Mail falls back to the log.
func notifiers(cfg config.Config) (mailer, feed notify.Notifier) {
	mailer = notify.Log{}
	if cfg.SMTP.Host != "" {
		if s, err := notify.NewSMTP(cfg.SMTP); err != nil {
			logger.Warningf("smtp disabled: %v", err)
		} else {
			mailer = s
		}
	}
	if cfg.Telegram.Token != "" {
		if t, err := notify.NewTelegram(cfg.Telegram); err != nil {
			logger.Warningf("telegram feed disabled: %v", err)
		} else {
			feed = t
		}
	}
	return mailer, feed
}

func (a *app) close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if err := a.db.Close(); err != nil {
		logger.Warningf("close database: %v", err)
	}
}

// systemActor is what CLI commands act as. They run with operator access
// to the host, so they get superuser rights.
func (a *app) systemActor(ctx context.Context) (service.Actor, error) {
	users, err := a.users.List(ctx)
	if err != nil {
		return service.Actor{}, err
	}
	for _, u := range users {
		if u.Role == model.RoleSuperuser && u.IsActive {
			return service.Actor{UserID: u.ID, Role: u.Role}, nil
		}
	}
	return service.Actor{}, fmt.Errorf("no active superuser; run create-admin first")
}
