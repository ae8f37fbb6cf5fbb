package services

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"falcontour/src/models"
	"falcontour/src/repository"
	"falcontour/src/types"
	"falcontour/src/utils"

	"github.com/google/uuid"
)

// Content holds the feedback, media and messages participants attach to an event.
type Content struct {
	store    repository.Store
	notifier *Notifier
	blobs    BlobStore
}

func NewContent(store repository.Store, notifier *Notifier, blobs BlobStore) *Content {
	return &Content{store: store, notifier: notifier, blobs: blobs}
}

// member loads the event of slug and checks the viewer belongs to it.
func (s *Content) member(ctx context.Context, viewer Viewer, slug string) (*models.Event, error) {
	event, err := s.store.Events().FindBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "Event")
	}
	if viewer.IsAdmin() {
		return event, nil
	}
	participants, err := s.store.Participants().ListByEvent(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	if !onRoster(event, participants, viewer.Email) {
		return nil, forbidden("You are not a participant of this event")
	}
	return event, nil
}

func (s *Content) SubmitFeedback(ctx context.Context, viewer Viewer, slug string, body types.FeedbackBody) (*models.EventFeedback, error) {
	event, err := s.member(ctx, viewer, slug)
	if err != nil {
		return nil, err
	}
	scores := []uint8{body.Q1, body.Q2, body.Q3, body.Q4, body.Q5}
	sum := 0
	for _, q := range scores {
		if q < 1 || q > 5 {
			return nil, validation("Ratings must be between 1 and 5")
		}
		sum += int(q)
	}
	feedback := &models.EventFeedback{
		EventID:     event.ID,
		UserID:      &viewer.ID,
		Email:       utils.NormalizeEmail(viewer.Email),
		Q1:          body.Q1,
		Q2:          body.Q2,
		Q3:          body.Q3,
		Q4:          body.Q4,
		Q5:          body.Q5,
		Average:     float64(sum) / float64(len(scores)),
		Description: body.Description,
	}
	if err := s.store.Content().CreateFeedback(ctx, feedback); err != nil {
		return nil, err
	}
	s.notifier.notify(ctx, Notice{
		Title:       "New Feedback",
		Description: fmt.Sprintf("%s has left feedback on the event (%s).", feedback.Email, event.Slug),
		Payload:     FeedbackPayload{EventSlug: event.Slug, Email: feedback.Email, Average: feedback.Average},
		Recipients:  participantEmails(ctx, s.store, event),
		EventID:     &event.ID,
		TriggeredBy: &viewer.ID,
	})
	return feedback, nil
}

// UploadMedia stores each file under events/<slug>/<email>/.
func (s *Content) UploadMedia(ctx context.Context, viewer Viewer, slug string, files []Upload) ([]models.EventMedia, error) {
	if len(files) == 0 {
		return nil, validation("No files uploaded")
	}
	if s.blobs == nil {
		return nil, &Error{Kind: KindExternal, Msg: "Media storage is not configured"}
	}
	event, err := s.member(ctx, viewer, slug)
	if err != nil {
		return nil, err
	}
	email := utils.NormalizeEmail(viewer.Email)
	media := make([]models.EventMedia, 0, len(files))
	for _, f := range files {
		key := fmt.Sprintf("events/%s/%s/%s%s", event.Slug, email, uuid.NewString(), filepath.Ext(f.Name))
		url, err := s.blobs.Put(ctx, key, f.Body, f.ContentType)
		if err != nil {
			log.Printf("Error uploading %s: %s\n", f.Name, err.Error())
			return nil, external("Could not upload media", err)
		}
		media = append(media, models.EventMedia{
			EventID:     event.ID,
			UserID:      &viewer.ID,
			Email:       email,
			Key:         key,
			URL:         url,
			ContentType: f.ContentType,
		})
	}
	if err := s.store.Content().CreateMedia(ctx, media); err != nil {
		return nil, err
	}
	return media, nil
}

func (s *Content) ListMedia(ctx context.Context, viewer Viewer, slug string, userId *uint, page types.PageQuery) ([]models.EventMedia, int64, error) {
	event, err := s.member(ctx, viewer, slug)
	if err != nil {
		return nil, 0, err
	}
	return s.store.Content().ListMedia(ctx, event.ID, userId, repository.Page{Page: page.Page, Limit: page.Limit})
}

func (s *Content) AddPersonalMessage(ctx context.Context, viewer Viewer, slug string, text string) (*models.EventMessage, error) {
	event, err := s.member(ctx, viewer, slug)
	if err != nil {
		return nil, err
	}
	message := &models.EventMessage{
		EventID: event.ID,
		UserID:  &viewer.ID,
		Email:   utils.NormalizeEmail(viewer.Email),
		Message: text,
	}
	if err := s.store.Content().CreateMessage(ctx, message); err != nil {
		return nil, err
	}
	return message, nil
}

func (s *Content) ListMessages(ctx context.Context, viewer Viewer, slug string) ([]models.EventMessage, error) {
	event, err := s.member(ctx, viewer, slug)
	if err != nil {
		return nil, err
	}
	return s.store.Content().ListMessages(ctx, event.ID)
}
