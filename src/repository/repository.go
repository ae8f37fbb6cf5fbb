package repository

import (
	"context"
	"errors"
	"falcontour/src/models"
	"falcontour/src/types"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicate     = errors.New("record already exists")
	ErrStaleWrite    = errors.New("record changed concurrently")
	ErrInviteExpired = errors.New("invite expired")
	ErrInviteFull    = errors.New("participant limit reached")
)

// Store groups the repositories and opens transactions spanning them.
type Store interface {
	Users() UserRepository
	Requests() RequestRepository
	Events() EventRepository
	Participants() ParticipantRepository
	Invites() InviteRepository
	Transactions() TransactionRepository
	Notifications() NotificationRepository
	Content() ContentRepository
	Invoices() InvoiceRepository
	OTPs() OTPRepository

	// Transaction runs fn against a Store bound to one database transaction.
	// Returning an error from fn rolls back every write made through it.
	Transaction(ctx context.Context, fn func(Store) error) error
}

type Page struct {
	Page  int
	Limit int
}

func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 || p.Limit > 100 {
		p.Limit = 10
	}
	return p
}

type EventFilter struct {
	Page
	Q                string
	PaymentStatus    types.PaymentStatus
	Host             string
	ParticipantEmail string
}

type RequestFilter struct {
	Page
	CreatedBy *uint
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByOAuth(ctx context.Context, provider, subject string) (*models.User, error)
	FindByEmails(ctx context.Context, emails []string) ([]models.User, error)
	ListAdmins(ctx context.Context) ([]models.User, error)
}

type RequestRepository interface {
	Create(ctx context.Context, req *models.EventRequest) error
	Update(ctx context.Context, req *models.EventRequest) error
	FindBySlug(ctx context.Context, slug string) (*models.EventRequest, error)
	SoftDelete(ctx context.Context, id uint) error
	List(ctx context.Context, filter RequestFilter) ([]models.EventRequest, int64, error)
}

type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	FindBySlug(ctx context.Context, slug string) (*models.Event, error)
	FindByID(ctx context.Context, id uint) (*models.Event, error)
	// Lock reads the event with a row lock held until the transaction ends.
	Lock(ctx context.Context, id uint) (*models.Event, error)
	// TransitionStatus moves the event from one status to another only if it
	// is still in the from status. It reports whether a row changed.
	TransitionStatus(ctx context.Context, id uint, from, to types.EventStatus) (bool, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter EventFilter) ([]models.Event, int64, error)
	ListExpirable(ctx context.Context, now time.Time) ([]models.Event, error)
}

type ParticipantRepository interface {
	Create(ctx context.Context, participant *models.EventParticipant) error
	Update(ctx context.Context, participant *models.EventParticipant) error
	Find(ctx context.Context, eventId uint, email string) (*models.EventParticipant, error)
	Lock(ctx context.Context, eventId uint, email string) (*models.EventParticipant, error)
	ListByEvent(ctx context.Context, eventId uint) ([]models.EventParticipant, error)
}

type InviteRepository interface {
	Create(ctx context.Context, invite *models.InviteToken) error
	FindByToken(ctx context.Context, token string) (*models.InviteToken, error)
	FindByEvent(ctx context.Context, eventId uint) (*models.InviteToken, error)
	// Claim atomically increments the registration counter when the token is
	// unexpired and below the event's passenger count.
	Claim(ctx context.Context, token string, now time.Time) (*models.InviteToken, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, txn *models.Transaction) error
	FindByPaymentID(ctx context.Context, paymentId string) (*models.Transaction, error)
	LockByPaymentID(ctx context.Context, paymentId string) (*models.Transaction, error)
	// Settle writes the terminal fields of txn if its stored status is still
	// from. ErrStaleWrite is returned when another writer got there first.
	Settle(ctx context.Context, txn *models.Transaction, from types.PaymentStatus) error
	ListByEvent(ctx context.Context, eventId uint) ([]models.Transaction, error)
}

type NotificationRepository interface {
	CreateMany(ctx context.Context, notifications []models.Notification) error
	ListForUser(ctx context.Context, userId uint, page Page) ([]models.Notification, int64, error)
	MarkRead(ctx context.Context, userId uint, ids []uuid.UUID) (int64, error)
}

type ContentRepository interface {
	CreateFeedback(ctx context.Context, feedback *models.EventFeedback) error
	CreateMedia(ctx context.Context, media []models.EventMedia) error
	ListMedia(ctx context.Context, eventId uint, userId *uint, page Page) ([]models.EventMedia, int64, error)
	CreateMessage(ctx context.Context, message *models.EventMessage) error
	ListMessages(ctx context.Context, eventId uint) ([]models.EventMessage, error)
}

type InvoiceRepository interface {
	FindByEvent(ctx context.Context, eventId uint) (*models.Invoice, error)
	Save(ctx context.Context, invoice *models.Invoice) error
}

type OTPRepository interface {
	Create(ctx context.Context, otp *models.OTP) error
	CountSince(ctx context.Context, userId uint, since time.Time) (int64, error)
	Count(ctx context.Context, userId uint) (int64, error)
	Latest(ctx context.Context, userId uint) (*models.OTP, error)
	FindActive(ctx context.Context, userId uint, now time.Time) ([]models.OTP, error)
	MarkUsed(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
	DeleteForUser(ctx context.Context, userId uint) error
}
