package service

import (
	"context"
	"fmt"

	"github.com/google/logger"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/fest-registration/internal/apperr"
	"github.com/iliyamo/fest-registration/internal/certificate"
	"github.com/iliyamo/fest-registration/internal/model"
	"github.com/iliyamo/fest-registration/internal/storage"
)

// CertificateService renders certificates and keeps them in artifact storage.
type CertificateService struct {
	Events       EventStore
	Fests        FestStore
	Participants ParticipantStore
	Renderer     certificate.Renderer
	Files        storage.Store
}

// Generate renders certificates for every attended participant of the event.
// One participant failing does not stop the others; the result lists each
// outcome.
func (s *CertificateService) Generate(ctx context.Context, actor Actor, eventID uint64) (certificate.BatchResult, error) {
	ctx, span := tracer.Start(ctx, "certificate.Generate")
	defer span.End()

	ev, err := s.Events.GetByID(ctx, eventID)
	if err != nil {
		return certificate.BatchResult{}, err
	}
	if err := requireManage(actor, ev); err != nil {
		return certificate.BatchResult{}, err
	}
	all, err := s.Participants.ListByEvent(ctx, eventID)
	if err != nil {
		return certificate.BatchResult{}, err
	}
	attended := make([]model.Participant, 0, len(all))
	for _, p := range all {
		if p.Attended {
			attended = append(attended, p)
		}
	}
	festName := s.festName(ctx, ev)

	res := certificate.Batch(ctx, attended, func(ctx context.Context, p model.Participant) (string, error) {
		return s.generateOne(ctx, p, ev, festName)
	})
	span.SetAttributes(attribute.Int("certificates.succeeded", res.Succeeded), attribute.Int("certificates.failed", res.Failed))
	logger.Infof("certificate: event %d generated %d, failed %d", eventID, res.Succeeded, res.Failed)
	return res, nil
}

func (s *CertificateService) generateOne(ctx context.Context, p model.Participant, ev model.Event, festName string) (string, error) {
	pdf, err := s.Renderer.Render(certificate.TemplateFor(p), certificate.DataFor(p, ev, festName))
	if err != nil {
		return "", err
	}
	key, err := s.Files.Save(ctx, certificateKey(p.ID), pdf)
	if err != nil {
		return "", err
	}
	if err := s.Participants.SetCertificatePath(ctx, p.ID, key); err != nil {
		return "", err
	}
	return key, nil
}

func (s *CertificateService) festName(ctx context.Context, ev model.Event) string {
	if ev.FestID == nil || s.Fests == nil {
		return ""
	}
	f, err := s.Fests.GetByID(ctx, *ev.FestID)
	if err != nil {
		logger.Warningf("certificate: fest %d for event %d: %v", *ev.FestID, ev.ID, err)
		return ""
	}
	return f.Name
}

func certificateKey(participantID uint64) string {
	return fmt.Sprintf("certificates/participant-%d.pdf", participantID)
}

// Download returns the PDF for a participant, rendering it on demand when
// no stored copy exists. The registrant and the event managers may fetch it.
// Like Generate it only covers participants who attended.
func (s *CertificateService) Download(ctx context.Context, actor Actor, participantID uint64) ([]byte, error) {
	p, ev, err := ownedParticipant(ctx, s.Events, s.Participants, actor, participantID)
	if err != nil {
		return nil, err
	}
	if !p.Attended {
		return nil, fmt.Errorf("participant %d did not attend: %w", p.ID, apperr.ErrForbidden)
	}
	if p.CertificatePath != "" {
		if b, err := s.Files.Read(ctx, p.CertificatePath); err == nil {
			return b, nil
		}
	}
	return s.Renderer.Render(certificate.TemplateFor(p), certificate.DataFor(p, ev, s.festName(ctx, ev)))
}
