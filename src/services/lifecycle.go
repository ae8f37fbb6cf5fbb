package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"falcontour/src/config"
	"falcontour/src/lib"
	"falcontour/src/models"
	"falcontour/src/repository"
	"falcontour/src/types"
	"falcontour/src/utils"
)

const lockedMessage = "Event has already been locked. You can't proceed."

// Lifecycle drives requests into events and events through their statuses.
type Lifecycle struct {
	store    repository.Store
	notifier *Notifier
	invites  *Invites
	blobs    BlobStore
	cfg      *config.Config
	clock    Clock
}

func NewLifecycle(store repository.Store, notifier *Notifier, invites *Invites, blobs BlobStore, cfg *config.Config, clock Clock) *Lifecycle {
	if clock == nil {
		clock = systemClock{}
	}
	return &Lifecycle{store: store, notifier: notifier, invites: invites, blobs: blobs, cfg: cfg, clock: clock}
}

// ParsePickupDate accepts the API date layout and RFC 3339.
func ParsePickupDate(raw string) (time.Time, error) {
	for _, layout := range []string{config.TIME_PARSE_FORMAT, time.RFC3339} {
		if t, err := time.Parse(layout, strings.TrimSpace(raw)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, validation("Invalid pickup date: %s", raw)
}

func tripFromBody(body types.TripDetailsBody) (models.TripDetails, error) {
	required := []struct{ field, value string }{
		{"name", body.Name},
		{"client_name", body.ClientName},
		{"event_type", body.EventType},
		{"phone_number", body.PhoneNumber},
		{"pickup", body.Pickup},
		{"drop_off", body.DropOff},
		{"vehicle", body.Vehicle},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return models.TripDetails{}, validation("%s is required", r.field)
		}
	}
	if body.PassengerCount == 0 {
		return models.TripDetails{}, validation("passenger_count must be greater than 0")
	}
	if body.HoursReserved == 0 {
		return models.TripDetails{}, validation("hours_reserved must be greater than 0")
	}
	pickup, err := ParsePickupDate(body.PickupDate)
	if err != nil {
		return models.TripDetails{}, err
	}
	trip := models.TripDetails{
		Name:           strings.TrimSpace(body.Name),
		ClientName:     strings.TrimSpace(body.ClientName),
		EventType:      body.EventType,
		PhoneNumber:    body.PhoneNumber,
		PickupDate:     pickup,
		Pickup:         body.Pickup,
		DropOff:        body.DropOff,
		Stops:          body.Stops,
		Vehicle:        body.Vehicle,
		VehicleColor:   body.VehicleColor,
		PassengerCount: body.PassengerCount,
		HoursReserved:  body.HoursReserved,
	}
	if body.Description != "" {
		trip.Description = &body.Description
	}
	return trip, nil
}

func validateTerms(total, pending, division int64) error {
	if division <= 0 {
		return validation("Equity division must be a positive integer")
	}
	if total < 0 || pending < 0 {
		return validation("Amounts cannot be negative")
	}
	if pending > total {
		return validation("Pending amount cannot exceed the total amount")
	}
	return nil
}

func (l *Lifecycle) CreateRequest(ctx context.Context, body types.CreateEventRequestBody, requesterEmail string, cover *Upload) (*models.EventRequest, error) {
	trip, err := tripFromBody(body.TripDetailsBody)
	if err != nil {
		return nil, err
	}
	requesterEmail = utils.NormalizeEmail(requesterEmail)
	requester, err := l.store.Users().FindByEmail(ctx, requesterEmail)
	if err != nil {
		return nil, notFound(err, "User")
	}

	req := &models.EventRequest{
		Slug:        utils.GenerateSlug(trip.ClientName),
		TripDetails: trip,
		Status:      types.REQUEST_PENDING,
		CreatedBy:   requester.ID,
		Host:        requesterEmail,
	}
	var cohosts []string
	for _, c := range utils.NormalizeEmails(body.Cohosts) {
		if c != requesterEmail {
			cohosts = append(cohosts, c)
		}
	}
	req.Cohosts = cohosts
	req.Participants = utils.NormalizeEmails(append([]string{requesterEmail}, cohosts...))

	if cover != nil && l.blobs != nil {
		key := fmt.Sprintf("requests/%s/cover%s", req.Slug, filepath.Ext(cover.Name))
		url, err := l.blobs.Put(ctx, key, cover.Body, cover.ContentType)
		if err != nil {
			return nil, external("Could not upload cover image", err)
		}
		req.CoverImage = &url
	}

	if err := l.store.Requests().Create(ctx, req); err != nil {
		log.Printf("Error creating event request: %s\n", err.Error())
		return nil, err
	}

	l.notifier.notify(ctx, Notice{
		Title:       "New Event Request",
		Description: fmt.Sprintf("%s has requested an event (%s) for approval.", trip.ClientName, req.Slug),
		Payload:     EventRequestPayload{RequestSlug: req.Slug, ClientName: trip.ClientName},
		RequestID:   &req.ID,
		TriggeredBy: &requester.ID,
	})
	return req, nil
}

// ApproveRequest turns a pending request into a live event with its invite.
// Nothing is written unless every step succeeds.
func (l *Lifecycle) ApproveRequest(ctx context.Context, slug string, terms types.PaymentTermsBody) (*models.Event, string, error) {
	var event *models.Event
	var invite *models.InviteToken
	var req *models.EventRequest
	err := l.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		req, err = tx.Requests().FindBySlug(ctx, slug)
		if err != nil {
			return notFound(err, "Request")
		}
		if req.Status != types.REQUEST_PENDING {
			return conflict("Request has already been approved")
		}
		if err := validateTerms(terms.TotalAmount, terms.PendingAmount, terms.EquityDivision); err != nil {
			return err
		}

		paymentStatus := types.PAYMENT_PENDING
		if terms.PendingAmount == 0 {
			paymentStatus = types.PAYMENT_PAID
		}
		event = &models.Event{
			Slug:           req.Slug,
			TripDetails:    req.TripDetails,
			TotalAmount:    terms.TotalAmount,
			PendingAmount:  terms.PendingAmount,
			DepositAmount:  terms.TotalAmount - terms.PendingAmount,
			EquityDivision: terms.EquityDivision,
			InitialEquity:  terms.PendingAmount,
			EventStatus:    types.EVENT_PENDING,
			PaymentStatus:  paymentStatus,
			CreatedBy:      req.CreatedBy,
			RequestID:      &req.ID,
			CoverImage:     req.CoverImage,
		}
		if err := tx.Events().Create(ctx, event); err != nil {
			return err
		}
		invite, err = l.createEvent(ctx, tx, event, req.Host, req.Cohosts)
		if err != nil {
			return err
		}
		return tx.Requests().SoftDelete(ctx, req.ID)
	})
	if err != nil {
		log.Printf("Error approving request %s: %s\n", slug, err.Error())
		return nil, "", err
	}

	url := l.invites.InviteURL(invite.Token)
	l.notifier.notify(ctx, Notice{
		Title:       "New Event",
		Description: fmt.Sprintf("A New Event (%s) has been created.", event.Slug),
		Payload:     NewEventPayload{EventSlug: event.Slug, InviteURL: url},
		Recipients:  []string{req.Host},
		EventID:     &event.ID,
		RequestID:   &req.ID,
	})
	l.invites.SendInviteEmail(ctx, event, invite)
	return event, url, nil
}

// AddEvent creates a PENDING event straight from trip details and payment
// terms, without a request. CreateEvent opens it for registration.
func (l *Lifecycle) AddEvent(ctx context.Context, viewer Viewer, body types.AddEventBody) (*models.Event, error) {
	trip, err := tripFromBody(body.TripDetailsBody)
	if err != nil {
		return nil, err
	}
	terms := body.Terms
	if err := validateTerms(terms.TotalAmount, terms.PendingAmount, terms.EquityDivision); err != nil {
		return nil, err
	}
	paymentStatus := types.PAYMENT_PENDING
	if terms.PendingAmount == 0 {
		paymentStatus = types.PAYMENT_PAID
	}
	expiresAt := trip.EndsAt()
	event := &models.Event{
		Slug:           utils.GenerateSlug(trip.ClientName),
		TripDetails:    trip,
		TotalAmount:    terms.TotalAmount,
		PendingAmount:  terms.PendingAmount,
		DepositAmount:  terms.TotalAmount - terms.PendingAmount,
		EquityDivision: terms.EquityDivision,
		InitialEquity:  terms.PendingAmount,
		EventStatus:    types.EVENT_PENDING,
		PaymentStatus:  paymentStatus,
		CreatedBy:      viewer.ID,
		ExpiresAt:      &expiresAt,
	}
	if err := l.store.Events().Create(ctx, event); err != nil {
		log.Printf("Error adding event: %s\n", err.Error())
		return nil, err
	}
	return event, nil
}

// CreateEvent assigns the host and cohosts of a pending event and opens it
// for registration. It returns the invite URL.
func (l *Lifecycle) CreateEvent(ctx context.Context, slug string, host string, cohosts []string) (string, error) {
	var event *models.Event
	var invite *models.InviteToken
	err := l.store.Transaction(ctx, func(tx repository.Store) error {
		found, err := tx.Events().FindBySlug(ctx, slug)
		if err != nil {
			return notFound(err, "Event")
		}
		event, err = tx.Events().Lock(ctx, found.ID)
		if err != nil {
			return err
		}
		invite, err = l.createEvent(ctx, tx, event, host, cohosts)
		return err
	})
	if err != nil {
		return "", err
	}
	l.invites.SendInviteEmail(ctx, event, invite)
	return l.invites.InviteURL(invite.Token), nil
}

func (l *Lifecycle) createEvent(ctx context.Context, tx repository.Store, event *models.Event, host string, cohosts []string) (*models.InviteToken, error) {
	if !event.EventStatus.Joinable() {
		return nil, conflict(lockedMessage)
	}
	event.Host = utils.NormalizeEmail(host)
	var seeded []string
	for _, c := range utils.NormalizeEmails(cohosts) {
		if c != event.Host {
			seeded = append(seeded, c)
		}
	}
	event.Cohosts = seeded
	expiresAt := event.TripDetails.EndsAt()
	event.ExpiresAt = &expiresAt

	share := event.ShareOf(event.PendingAmount)
	for _, email := range seeded {
		_, err := tx.Participants().Find(ctx, event.ID, email)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		cohost := &models.EventParticipant{
			EventID:       event.ID,
			Email:         email,
			Role:          types.ROLE_COHOST,
			EquityAmount:  share,
			PaymentStatus: types.PAYMENT_PENDING,
		}
		cohost.MarkPaidIfCovered()
		if err := tx.Participants().Create(ctx, cohost); err != nil {
			return nil, err
		}
	}

	invite, err := l.invites.issue(ctx, tx, event)
	if err != nil {
		return nil, err
	}
	event.EventStatus = types.EVENT_CREATED
	if err := tx.Events().Update(ctx, event); err != nil {
		return nil, err
	}
	return invite, nil
}

func termsChanged(event *models.Event, terms *types.PaymentTermsBody) bool {
	if terms == nil {
		return false
	}
	return terms.TotalAmount != event.TotalAmount ||
		terms.PendingAmount != event.PendingAmount ||
		terms.EquityDivision != event.EquityDivision
}

// EditEvent updates the trip and, when they differ, the payment terms of an
// event still inside its pre-launch window. Participants that already paid
// keep their equity.
func (l *Lifecycle) EditEvent(ctx context.Context, slug string, body types.UpdateEventBody) (*models.Event, error) {
	now := l.clock.Now()
	var event *models.Event
	changed := false
	err := l.store.Transaction(ctx, func(tx repository.Store) error {
		found, err := tx.Events().FindBySlug(ctx, slug)
		if err != nil {
			return notFound(err, "Event")
		}
		event, err = tx.Events().Lock(ctx, found.ID)
		if err != nil {
			return err
		}
		if !event.EventStatus.Joinable() || !now.Before(event.CreatedAt.Add(l.cfg.PreLaunchPeriod)) {
			return conflict(lockedMessage)
		}
		trip, err := tripFromBody(body.TripDetailsBody)
		if err != nil {
			return err
		}
		event.TripDetails = trip
		expiresAt := trip.EndsAt()
		event.ExpiresAt = &expiresAt

		changed = termsChanged(event, body.Terms)
		if changed {
			if err := l.applyTerms(ctx, tx, event, *body.Terms); err != nil {
				return err
			}
		}
		return tx.Events().Update(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	l.notifier.notify(ctx, Notice{
		Title:       "Event Updated",
		Description: fmt.Sprintf("The Event (%s) has been updated.", event.Slug),
		Payload:     UpdateEventPayload{EventSlug: event.Slug, TermsChanged: changed},
		Recipients:  participantEmails(ctx, l.store, event),
		EventID:     &event.ID,
	})
	return event, nil
}

func (l *Lifecycle) applyTerms(ctx context.Context, tx repository.Store, event *models.Event, terms types.PaymentTermsBody) error {
	if err := validateTerms(terms.TotalAmount, terms.PendingAmount, terms.EquityDivision); err != nil {
		return err
	}
	event.TotalAmount = terms.TotalAmount
	event.PendingAmount = terms.PendingAmount
	event.DepositAmount = terms.TotalAmount - terms.PendingAmount
	event.EquityDivision = terms.EquityDivision
	event.InitialEquity = terms.PendingAmount
	if event.PaymentStatus != types.PAYMENT_DISCREPANCY {
		if event.PendingAmount == 0 {
			event.PaymentStatus = types.PAYMENT_PAID
		} else {
			event.PaymentStatus = types.PAYMENT_PENDING
		}
	}

	participants, err := tx.Participants().ListByEvent(ctx, event.ID)
	if err != nil {
		return err
	}
	host := utils.NormalizeEmail(event.Host)
	share := event.ShareOf(event.PendingAmount)
	for i := range participants {
		p := &participants[i]
		if p.PaymentStatus != types.PAYMENT_PENDING {
			continue
		}
		if utils.NormalizeEmail(p.Email) == host {
			p.EquityAmount = event.DepositAmount
		} else {
			p.EquityAmount = share
		}
		p.MarkPaidIfCovered()
		if err := tx.Participants().Update(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// EditRequest overwrites the trip and the participant list of a pending
// request. Only its creator and admins may edit it.
func (l *Lifecycle) EditRequest(ctx context.Context, viewer Viewer, slug string, body types.EditEventRequestBody) (*models.EventRequest, error) {
	req, err := l.store.Requests().FindBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "Request")
	}
	if !viewer.IsAdmin() && req.CreatedBy != viewer.ID {
		return nil, forbidden("Only the requester can edit this request")
	}
	if req.Status != types.REQUEST_PENDING {
		return nil, conflict("Request can no longer be edited")
	}
	trip, err := tripFromBody(body.TripDetailsBody)
	if err != nil {
		return nil, err
	}
	req.TripDetails = trip
	if body.Participants != nil {
		req.Participants = utils.NormalizeEmails(body.Participants)
	}
	if err := l.store.Requests().Update(ctx, req); err != nil {
		return nil, err
	}

	l.notifier.notify(ctx, Notice{
		Title:       "Request Updated",
		Description: fmt.Sprintf("The Request (%s) has been updated.", req.Slug),
		Payload:     UpdateRequestPayload{RequestSlug: req.Slug},
		Recipients:  req.Participants,
		RequestID:   &req.ID,
	})
	return req, nil
}

// dueStatus is the status event holds at now: STARTED once its pickup has
// passed, EXPIRED once its reservation window has, STARTED winning when both
// hold. Only PENDING and CREATED events move.
func dueStatus(event *models.Event, now time.Time) types.EventStatus {
	if !event.EventStatus.Joinable() {
		return event.EventStatus
	}
	switch {
	case !event.TripDetails.PickupDate.After(now):
		return types.EVENT_STARTED
	case !event.ExpiryTime().After(now):
		return types.EVENT_EXPIRED
	}
	return event.EventStatus
}

// CheckAndUpdateEventExpiry persists the due status of event. The write is
// conditional on the stored status, so repeated reads change the row at
// most once.
func (l *Lifecycle) CheckAndUpdateEventExpiry(ctx context.Context, event *models.Event) error {
	return reconcileExpiry(ctx, l.store, event, l.clock.Now())
}

func reconcileExpiry(ctx context.Context, store repository.Store, event *models.Event, now time.Time) error {
	from := event.EventStatus
	to := dueStatus(event, now)
	if to == from {
		return nil
	}
	changed, err := store.Events().TransitionStatus(ctx, event.ID, from, to)
	if err != nil {
		log.Printf("Error updating status of event %s: %s\n", event.Slug, err.Error())
		return err
	}
	if !changed {
		current, err := store.Events().FindByID(ctx, event.ID)
		if err != nil {
			return err
		}
		event.EventStatus = current.EventStatus
		return nil
	}
	lib.ExpiryTransitions.WithLabelValues(string(to)).Inc()
	event.EventStatus = to
	return nil
}

// SweepExpired applies expiry reconciliation to every event that is due.
func (l *Lifecycle) SweepExpired(ctx context.Context) (int, error) {
	events, err := l.store.Events().ListExpirable(ctx, l.clock.Now())
	if err != nil {
		return 0, err
	}
	moved := 0
	for i := range events {
		before := events[i].EventStatus
		if err := l.CheckAndUpdateEventExpiry(ctx, &events[i]); err != nil {
			continue
		}
		if events[i].EventStatus != before {
			moved++
		}
	}
	if moved > 0 {
		log.Printf("[ExpirySweep] moved %d events out of PENDING\n", moved)
	}
	return moved, nil
}

// DeleteEvent hard-deletes an event that has not started. Expiry is
// reconciled first and checked again under the row lock.
func (l *Lifecycle) DeleteEvent(ctx context.Context, slug string) error {
	event, err := l.store.Events().FindBySlug(ctx, slug)
	if err != nil {
		return notFound(err, "Event")
	}
	if err := l.CheckAndUpdateEventExpiry(ctx, event); err != nil {
		return err
	}
	return l.store.Transaction(ctx, func(tx repository.Store) error {
		locked, err := tx.Events().Lock(ctx, event.ID)
		if err != nil {
			return notFound(err, "Event")
		}
		switch dueStatus(locked, l.clock.Now()) {
		case types.EVENT_STARTED, types.EVENT_FINISHED:
			return conflict("Cannot delete an event that has already started")
		}
		return tx.Events().Delete(ctx, locked.ID)
	})
}

func (l *Lifecycle) GetEvents(ctx context.Context, viewer Viewer, query types.EventQueryFilters) ([]models.Event, int64, error) {
	filter := repository.EventFilter{
		Page:          repository.Page{Page: query.Page, Limit: query.Limit},
		Q:             strings.TrimSpace(query.Q),
		PaymentStatus: types.PaymentStatus(query.PaymentStatus),
	}
	if viewer.IsAdmin() {
		filter.Host = utils.NormalizeEmail(query.Host)
	} else {
		filter.ParticipantEmail = utils.NormalizeEmail(viewer.Email)
	}
	events, total, err := l.store.Events().List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	for i := range events {
		if err := l.CheckAndUpdateEventExpiry(ctx, &events[i]); err != nil {
			log.Printf("Error reconciling expiry of event %s: %s\n", events[i].Slug, err.Error())
		}
	}
	return events, total, nil
}

// GetEvent returns an event with its participants. Non-admins must be on
// the roster.
func (l *Lifecycle) GetEvent(ctx context.Context, viewer Viewer, slug string) (*models.Event, error) {
	event, err := l.store.Events().FindBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "Event")
	}
	participants, err := l.store.Participants().ListByEvent(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	if !viewer.IsAdmin() && !onRoster(event, participants, viewer.Email) {
		return nil, forbidden("You are not a participant of this event")
	}
	event.Participants = participants
	if err := l.CheckAndUpdateEventExpiry(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func onRoster(event *models.Event, participants []models.EventParticipant, email string) bool {
	email = utils.NormalizeEmail(email)
	if email == utils.NormalizeEmail(event.Host) {
		return true
	}
	for _, p := range participants {
		if p.Email == email {
			return true
		}
	}
	return false
}

// SharedEvent is the public read-only view of an event.
func (l *Lifecycle) SharedEvent(ctx context.Context, slug string) (*models.Event, error) {
	event, err := l.store.Events().FindBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "Event")
	}
	if err := l.CheckAndUpdateEventExpiry(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// GetRequests lists pending requests: all of them for admins, the caller's
// own otherwise.
func (l *Lifecycle) GetRequests(ctx context.Context, viewer Viewer, page types.PageQuery) ([]models.EventRequest, int64, error) {
	filter := repository.RequestFilter{Page: repository.Page{Page: page.Page, Limit: page.Limit}}
	if !viewer.IsAdmin() {
		filter.CreatedBy = &viewer.ID
	}
	return l.store.Requests().List(ctx, filter)
}
