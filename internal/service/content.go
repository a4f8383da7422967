package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/fest-registration/internal/apperr"
	"github.com/iliyamo/fest-registration/internal/model"
	"github.com/iliyamo/fest-registration/internal/storage"
)

// ContentService manages the informational parts of the site: agenda,
// gallery, feedback and the organising team.
type ContentService struct {
	Fests     FestStore
	Events    EventStore
	Schedules ScheduleStore
	Gallery   GalleryStore
	Feedback  FeedbackStore
	Team      TeamMemberStore
	Files     storage.Store
}

func (s *ContentService) AddSchedule(ctx context.Context, actor Actor, sc model.Schedule) (model.Schedule, error) {
	if err := requireSuperuser(actor); err != nil {
		return model.Schedule{}, err
	}
	sc.Title = strings.TrimSpace(sc.Title)
	if sc.Title == "" {
		return model.Schedule{}, apperr.Validation(apperr.MissingField, "title is required")
	}
	if sc.StartsAt.IsZero() {
		return model.Schedule{}, apperr.Validation(apperr.MissingField, "starts_at is required")
	}
	if sc.EndsAt != nil && sc.EndsAt.Before(sc.StartsAt) {
		return model.Schedule{}, apperr.Validation(apperr.InvalidInput, "ends_at is before starts_at")
	}
	if _, err := s.Fests.GetByID(ctx, sc.FestID); err != nil {
		return model.Schedule{}, err
	}
	if sc.EventID != nil {
		if _, err := s.Events.GetByID(ctx, *sc.EventID); err != nil {
			return model.Schedule{}, err
		}
	}
	if err := s.Schedules.Create(ctx, &sc); err != nil {
		return model.Schedule{}, err
	}
	return sc, nil
}

func (s *ContentService) DeleteSchedule(ctx context.Context, actor Actor, id uint64) error {
	if err := requireSuperuser(actor); err != nil {
		return err
	}
	return s.Schedules.Delete(ctx, id)
}

func (s *ContentService) FestSchedule(ctx context.Context, festID uint64) ([]model.Schedule, error) {
	if _, err := s.Fests.GetByID(ctx, festID); err != nil {
		return nil, err
	}
	return s.Schedules.ListByFest(ctx, festID)
}

// UploadPhoto stores an image and records it in the gallery.
func (s *ContentService) UploadPhoto(ctx context.Context, actor Actor, item model.GalleryItem, data []byte) (model.GalleryItem, error) {
	if err := requireSuperuser(actor); err != nil {
		return model.GalleryItem{}, err
	}
	item.Title = strings.TrimSpace(item.Title)
	if item.Title == "" {
		return model.GalleryItem{}, apperr.Validation(apperr.MissingField, "title is required")
	}
	ext, err := uploadExt(data, imageTypes)
	if err != nil {
		return model.GalleryItem{}, err
	}
	if item.EventID != nil {
		if _, err := s.Events.GetByID(ctx, *item.EventID); err != nil {
			return model.GalleryItem{}, err
		}
	}
	if item.FestID != nil {
		if _, err := s.Fests.GetByID(ctx, *item.FestID); err != nil {
			return model.GalleryItem{}, err
		}
	}
	key, err := s.Files.Save(ctx, uploadKey("gallery", 0, ext), data)
	if err != nil {
		return model.GalleryItem{}, err
	}
	item.ImagePath = key
	if err := s.Gallery.Create(ctx, &item); err != nil {
		_ = s.Files.Delete(ctx, key)
		return model.GalleryItem{}, err
	}
	return s.Gallery.GetByID(ctx, item.ID)
}

func (s *ContentService) DeletePhoto(ctx context.Context, actor Actor, id uint64) error {
	if err := requireSuperuser(actor); err != nil {
		return err
	}
	item, err := s.Gallery.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Gallery.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.Files.Delete(ctx, item.ImagePath)
	return nil
}

func (s *ContentService) Photos(ctx context.Context, eventID *uint64) ([]model.GalleryItem, error) {
	return s.Gallery.List(ctx, eventID)
}

// SubmitFeedback is open to anyone. Rating must be 1..5.
func (s *ContentService) SubmitFeedback(ctx context.Context, f model.Feedback) (model.Feedback, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.Message = strings.TrimSpace(f.Message)
	switch {
	case f.Name == "":
		return model.Feedback{}, apperr.Validation(apperr.MissingField, "name is required")
	case f.Email == "":
		return model.Feedback{}, apperr.Validation(apperr.MissingField, "email is required")
	case f.Message == "":
		return model.Feedback{}, apperr.Validation(apperr.MissingField, "message is required")
	case f.Rating < 1 || f.Rating > 5:
		return model.Feedback{}, apperr.Validation(apperr.InvalidRating, "rating must be between 1 and 5, got %d", f.Rating)
	}
	if f.EventID != nil {
		if _, err := s.Events.GetByID(ctx, *f.EventID); err != nil {
			return model.Feedback{}, err
		}
	}
	if err := s.Feedback.Create(ctx, &f); err != nil {
		return model.Feedback{}, err
	}
	return f, nil
}

// ListFeedback shows all feedback to superusers; coordinators must name
// one of their events.
func (s *ContentService) ListFeedback(ctx context.Context, actor Actor, eventID *uint64) ([]model.Feedback, error) {
	if !actor.Authenticated() {
		return nil, apperr.ErrUnauthorized
	}
	if eventID == nil {
		if err := requireSuperuser(actor); err != nil {
			return nil, err
		}
		return s.Feedback.List(ctx, nil)
	}
	ev, err := s.Events.GetByID(ctx, *eventID)
	if err != nil {
		return nil, err
	}
	if err := requireManage(actor, ev); err != nil {
		return nil, err
	}
	return s.Feedback.List(ctx, eventID)
}

func (s *ContentService) AddTeamMember(ctx context.Context, actor Actor, m model.TeamMember) (model.TeamMember, error) {
	if err := requireSuperuser(actor); err != nil {
		return model.TeamMember{}, err
	}
	if m.Name = strings.TrimSpace(m.Name); m.Name == "" {
		return model.TeamMember{}, apperr.Validation(apperr.MissingField, "name is required")
	}
	if err := s.Team.Create(ctx, &m); err != nil {
		return model.TeamMember{}, err
	}
	return m, nil
}

func (s *ContentService) UpdateTeamMember(ctx context.Context, actor Actor, m model.TeamMember) (model.TeamMember, error) {
	if err := requireSuperuser(actor); err != nil {
		return model.TeamMember{}, err
	}
	if m.Name = strings.TrimSpace(m.Name); m.Name == "" {
		return model.TeamMember{}, apperr.Validation(apperr.MissingField, "name is required")
	}
	if err := s.Team.Update(ctx, m); err != nil {
		return model.TeamMember{}, err
	}
	return m, nil
}

func (s *ContentService) DeleteTeamMember(ctx context.Context, actor Actor, id uint64) error {
	if err := requireSuperuser(actor); err != nil {
		return err
	}
	return s.Team.Delete(ctx, id)
}

func (s *ContentService) TeamMembers(ctx context.Context) ([]model.TeamMember, error) {
	return s.Team.List(ctx)
}

var (
	imageTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/gif":  ".gif",
		"image/webp": ".webp",
	}
	documentTypes = map[string]string{
		"application/pdf": ".pdf",
		"image/jpeg":      ".jpg",
		"image/png":       ".png",
	}
)

// uploadExt sniffs the content type and returns the extension to store it
// under, rejecting anything not in allowed.
func uploadExt(data []byte, allowed map[string]string) (string, error) {
	if len(data) == 0 {
		return "", apperr.Validation(apperr.MissingField, "file is empty")
	}
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ext, ok := allowed[ct]
	if !ok {
		return "", apperr.Validation(apperr.InvalidInput, "unsupported file type %s", ct)
	}
	return ext, nil
}

func uploadKey(dir string, ownerID uint64, ext string) string {
	if ownerID == 0 {
		return fmt.Sprintf("%s/%s%s", dir, uuid.NewString(), ext)
	}
	return fmt.Sprintf("%s/%d-%s%s", dir, ownerID, uuid.NewString(), ext)
}
