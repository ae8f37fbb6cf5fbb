package services

import (
	"context"
	"encoding/json"
	"log"

	"falcontour/src/models"
	"falcontour/src/repository"
	"falcontour/src/types"
	"falcontour/src/utils"

	"gorm.io/datatypes"
)

type PayloadKind string

const (
	KIND_NEW_EVENT          PayloadKind = "NEW_EVENT"
	KIND_UPDATE_EVENT       PayloadKind = "UPDATE_EVENT"
	KIND_UPDATE_REQUEST     PayloadKind = "UPDATE_REQUEST"
	KIND_EVENT_REQUEST      PayloadKind = "EVENT_REQUEST"
	KIND_PAYMENT            PayloadKind = "PAYMENT"
	KIND_PAYMENT_FLAGGED    PayloadKind = "PAYMENT_FLAGGED"
	KIND_PARTICIPANT_JOINED PayloadKind = "PARTICIPANT_JOINED"
	KIND_FEEDBACK           PayloadKind = "FEEDBACK"
)

// Payload is the typed body of a notification. Each kind has its own struct.
type Payload interface {
	Kind() PayloadKind
	Category() types.NotificationCategory
}

type NewEventPayload struct {
	EventSlug string `json:"event_slug"`
	InviteURL string `json:"invite_url,omitempty"`
}

type UpdateEventPayload struct {
	EventSlug    string `json:"event_slug"`
	TermsChanged bool   `json:"terms_changed"`
}

type UpdateRequestPayload struct {
	RequestSlug string `json:"request_slug"`
}

type EventRequestPayload struct {
	RequestSlug string `json:"request_slug"`
	ClientName  string `json:"client_name"`
}

type PaymentPayload struct {
	EventSlug  string `json:"event_slug"`
	PayerEmail string `json:"payer_email"`
	Amount     int64  `json:"amount"`
	PaymentID  string `json:"payment_id"`
}

type PaymentFlaggedPayload struct {
	EventSlug      string `json:"event_slug"`
	PaymentID      string `json:"payment_id"`
	ExpectedMinor  int64  `json:"expected_minor"`
	ReceivedMinor  int64  `json:"received_minor"`
	TransactionRef string `json:"transaction_id"`
}

type ParticipantJoinedPayload struct {
	EventSlug string           `json:"event_slug"`
	Email     string           `json:"email"`
	Role      types.MemberRole `json:"role"`
}

type FeedbackPayload struct {
	EventSlug string  `json:"event_slug"`
	Email     string  `json:"email"`
	Average   float64 `json:"average"`
}

func (NewEventPayload) Kind() PayloadKind          { return KIND_NEW_EVENT }
func (UpdateEventPayload) Kind() PayloadKind       { return KIND_UPDATE_EVENT }
func (UpdateRequestPayload) Kind() PayloadKind     { return KIND_UPDATE_REQUEST }
func (EventRequestPayload) Kind() PayloadKind      { return KIND_EVENT_REQUEST }
func (PaymentPayload) Kind() PayloadKind           { return KIND_PAYMENT }
func (PaymentFlaggedPayload) Kind() PayloadKind    { return KIND_PAYMENT_FLAGGED }
func (ParticipantJoinedPayload) Kind() PayloadKind { return KIND_PARTICIPANT_JOINED }
func (FeedbackPayload) Kind() PayloadKind          { return KIND_FEEDBACK }

func (NewEventPayload) Category() types.NotificationCategory       { return types.CATEGORY_UPDATE }
func (UpdateEventPayload) Category() types.NotificationCategory    { return types.CATEGORY_UPDATE }
func (UpdateRequestPayload) Category() types.NotificationCategory  { return types.CATEGORY_REQUEST }
func (EventRequestPayload) Category() types.NotificationCategory   { return types.CATEGORY_REQUEST }
func (PaymentPayload) Category() types.NotificationCategory        { return types.CATEGORY_PAYMENT }
func (PaymentFlaggedPayload) Category() types.NotificationCategory { return types.CATEGORY_PAYMENT }
func (ParticipantJoinedPayload) Category() types.NotificationCategory {
	return types.CATEGORY_UPDATE
}
func (FeedbackPayload) Category() types.NotificationCategory { return types.CATEGORY_FEEDBACK }

type envelope struct {
	Kind PayloadKind `json:"kind"`
	Data Payload     `json:"data"`
}

// Notice is a single message addressed to users by email.
type Notice struct {
	Title       string
	Description string
	Payload     Payload
	Recipients  []string
	EventID     *uint
	RequestID   *uint
	TriggeredBy *uint
}

// Notifier persists one notification row per recipient plus every admin and
// pushes it over the realtime channel when one is configured.
type Notifier struct {
	store  repository.Store
	pusher Pusher
}

func NewNotifier(store repository.Store, pusher Pusher) *Notifier {
	return &Notifier{store: store, pusher: pusher}
}

func (n *Notifier) Notify(ctx context.Context, notice Notice) error {
	users, err := n.store.Users().FindByEmails(ctx, utils.NormalizeEmails(notice.Recipients))
	if err != nil {
		return err
	}
	admins, err := n.store.Users().ListAdmins(ctx)
	if err != nil {
		return err
	}
	users = append(users, admins...)

	data, err := json.Marshal(envelope{Kind: notice.Payload.Kind(), Data: notice.Payload})
	if err != nil {
		return err
	}

	seen := make(map[uint]bool, len(users))
	rows := make([]models.Notification, 0, len(users))
	emails := make([]string, 0, len(users))
	for _, u := range users {
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		rows = append(rows, models.Notification{
			Kind:          string(notice.Payload.Kind()),
			Title:         notice.Title,
			Description:   notice.Description,
			Type:          notice.Payload.Category(),
			Payload:       datatypes.JSON(data),
			UserID:        u.ID,
			EventID:       notice.EventID,
			RequestID:     notice.RequestID,
			TriggeredByID: notice.TriggeredBy,
		})
		emails = append(emails, u.Email)
	}
	if len(rows) == 0 {
		return nil
	}
	if err := n.store.Notifications().CreateMany(ctx, rows); err != nil {
		log.Printf("Error saving notifications [%s]: %s\n", notice.Title, err.Error())
		return err
	}
	if n.pusher == nil {
		return nil
	}
	for i, email := range emails {
		if err := n.pusher.Push(ctx, email, "notification", rows[i]); err != nil {
			log.Printf("[realtime] could not push to %s: %s\n", email, err.Error())
		}
	}
	return nil
}

// notify is Notify for side effects of committed work: failures are logged.
func (n *Notifier) notify(ctx context.Context, notice Notice) {
	if err := n.Notify(ctx, notice); err != nil {
		log.Printf("Error sending notification [%s]: %s\n", notice.Title, err.Error())
	}
}

// participantEmails lists the host and every participant of an event.
func participantEmails(ctx context.Context, store repository.Store, event *models.Event) []string {
	emails := []string{event.Host}
	participants, err := store.Participants().ListByEvent(ctx, event.ID)
	if err != nil {
		log.Printf("Error listing participants of %s: %s\n", event.Slug, err.Error())
		return utils.NormalizeEmails(emails)
	}
	for _, p := range participants {
		emails = append(emails, p.Email)
	}
	return utils.NormalizeEmails(emails)
}
