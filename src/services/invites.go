package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"falcontour/src/config"
	"falcontour/src/lib"
	"falcontour/src/models"
	"falcontour/src/repository"
	"falcontour/src/types"
	"falcontour/src/utils"
)

const inviteTokenLength = 10

// Invites owns the capacity-bounded invite token of each event.
type Invites struct {
	store    repository.Store
	notifier *Notifier
	mailer   Mailer
	cfg      *config.Config
	clock    Clock
}

func NewInvites(store repository.Store, notifier *Notifier, mailer Mailer, cfg *config.Config, clock Clock) *Invites {
	if clock == nil {
		clock = systemClock{}
	}
	return &Invites{store: store, notifier: notifier, mailer: mailer, cfg: cfg, clock: clock}
}

func (s *Invites) InviteURL(token string) string {
	return fmt.Sprintf("%s/%s", s.cfg.ClientURL, token)
}

// issue returns the invite of an event, creating it on first use.
func (s *Invites) issue(ctx context.Context, tx repository.Store, event *models.Event) (*models.InviteToken, error) {
	existing, err := tx.Invites().FindByEvent(ctx, event.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	invite := &models.InviteToken{
		Token:     utils.RandomToken(inviteTokenLength),
		EventID:   event.ID,
		Email:     event.Host,
		ExpiresAt: s.clock.Now().Add(s.cfg.InviteExpiry),
	}
	if err := tx.Invites().Create(ctx, invite); err != nil {
		return nil, err
	}
	return invite, nil
}

// SendInviteEmail mails the invite link to the host. Failures are logged only:
// the event and its invite stay committed.
func (s *Invites) SendInviteEmail(ctx context.Context, event *models.Event, invite *models.InviteToken) {
	if s.mailer == nil {
		return
	}
	url := s.InviteURL(invite.Token)
	body := fmt.Sprintf(`
		<p>Hi,</p>
		<p>You have been invited to host <b>%s</b> on %s.</p>
		<p>Join using the link below before %s:</p>
		<p><a href="%s">%s</a></p>
		<p>FalconTour</p>
	`, event.TripDetails.Name, event.TripDetails.PickupDate.Format(config.TIME_PARSE_FORMAT), invite.ExpiresAt.Format(config.TIME_PARSE_FORMAT), url, url)
	err := s.mailer.Send(ctx, types.Email{
		To:      []string{invite.Email},
		Subject: "You're invited to host an event",
		Body:    body,
		Html:    true,
	})
	if err != nil {
		log.Printf("Error sending invite for %s to %s: %s\n", event.Slug, invite.Email, err.Error())
	}
}

// RedeemInvite admits email to the event of token. The capacity slot is
// consumed on every successful redemption, including when the participant
// already exists.
func (s *Invites) RedeemInvite(ctx context.Context, token string, email string, userId *uint) (*models.EventParticipant, error) {
	var r *redemption
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		r, err = s.redeem(ctx, tx, token, email, userId)
		return err
	})
	if err != nil {
		s.reconcileRejected(ctx, r)
		return nil, err
	}
	s.announce(ctx, r, userId)
	return r.participant, nil
}

type redemption struct {
	participant *models.EventParticipant
	event       *models.Event
	joined      bool
}

// redeem claims a slot of token and admits email within tx.
func (s *Invites) redeem(ctx context.Context, tx repository.Store, token string, email string, userId *uint) (*redemption, error) {
	email = utils.NormalizeEmail(email)
	invite, err := tx.Invites().Claim(ctx, token, s.clock.Now())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		lib.InviteRedemptions.WithLabelValues("invalid").Inc()
		return nil, &Error{Kind: KindNotFound, Msg: "Invalid Invite", Err: err}
	case errors.Is(err, repository.ErrInviteExpired):
		lib.InviteRedemptions.WithLabelValues("expired").Inc()
		return nil, &Error{Kind: KindNotFound, Msg: "Invite has expired", Err: err}
	case errors.Is(err, repository.ErrInviteFull):
		lib.InviteRedemptions.WithLabelValues("full").Inc()
		return nil, conflict("Participant Limit Reached")
	case err != nil:
		return nil, err
	}
	event, err := tx.Events().FindByID(ctx, invite.EventID)
	if err != nil {
		return nil, notFound(err, "Event")
	}
	if !dueStatus(event, s.clock.Now()).Joinable() {
		lib.InviteRedemptions.WithLabelValues("closed").Inc()
		return &redemption{event: event}, conflict("Cannot Join Event at this time!")
	}

	existing, err := tx.Participants().Find(ctx, event.ID, email)
	if err == nil {
		if existing.UserID == nil && userId != nil {
			existing.UserID = userId
			if err := tx.Participants().Update(ctx, existing); err != nil {
				return nil, err
			}
		}
		return &redemption{participant: existing, event: event}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	participant := newParticipant(event, email, userId)
	if err := tx.Participants().Create(ctx, participant); err != nil {
		return nil, err
	}
	return &redemption{participant: participant, event: event, joined: true}, nil
}

// reconcileRejected persists the expiry of an event that turned a joiner
// away, once the rolled back redemption no longer holds the row.
func (s *Invites) reconcileRejected(ctx context.Context, r *redemption) {
	if r == nil || r.event == nil {
		return
	}
	if err := reconcileExpiry(ctx, s.store, r.event, s.clock.Now()); err != nil {
		log.Printf("Error reconciling expiry of event %s: %s\n", r.event.Slug, err.Error())
	}
}

// announce runs after the redemption committed.
func (s *Invites) announce(ctx context.Context, r *redemption, userId *uint) {
	if !r.joined {
		lib.InviteRedemptions.WithLabelValues("relinked").Inc()
		return
	}
	lib.InviteRedemptions.WithLabelValues("joined").Inc()
	s.notifier.notify(ctx, Notice{
		Title:       "New Participant",
		Description: fmt.Sprintf("%s has joined as a %s to the event (%s).", r.participant.Email, r.participant.Role, r.event.TripDetails.Name),
		Payload:     ParticipantJoinedPayload{EventSlug: r.event.Slug, Email: r.participant.Email, Role: r.participant.Role},
		Recipients:  participantEmails(ctx, s.store, r.event),
		EventID:     &r.event.ID,
		TriggeredBy: userId,
	})
}

// newParticipant seeds the host with the deposit already covered and every
// other invitee with an equal share of the initial equity.
func newParticipant(event *models.Event, email string, userId *uint) *models.EventParticipant {
	p := &models.EventParticipant{
		EventID:       event.ID,
		Email:         email,
		Role:          types.ROLE_MEMBER,
		EquityAmount:  event.ShareOf(event.InitialEquity),
		PaymentStatus: types.PAYMENT_PENDING,
		UserID:        userId,
	}
	if email == utils.NormalizeEmail(event.Host) {
		p.Role = types.ROLE_HOST
		p.EquityAmount = event.DepositAmount
		p.DepositedAmount = event.DepositAmount
	}
	p.MarkPaidIfCovered()
	return p
}

// QRCode renders the invite link of an event. Only the host and admins may
// fetch it.
func (s *Invites) QRCode(ctx context.Context, viewer Viewer, slug string) ([]byte, error) {
	event, err := s.store.Events().FindBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "Event")
	}
	if !viewer.IsAdmin() && utils.NormalizeEmail(viewer.Email) != utils.NormalizeEmail(event.Host) {
		return nil, forbidden("Only the host can share this invite")
	}
	invite, err := s.store.Invites().FindByEvent(ctx, event.ID)
	if err != nil {
		return nil, notFound(err, "Invite")
	}
	img, err := lib.InviteQRCode(s.InviteURL(invite.Token))
	if err != nil {
		return nil, err
	}
	return img, nil
}
