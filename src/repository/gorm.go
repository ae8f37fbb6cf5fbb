package repository

import (
	"context"
	"errors"
	"falcontour/src/models"
	"falcontour/src/models/scopes"
	"falcontour/src/types"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const uniqueViolation = "23505"

var forUpdate = clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: clause.CurrentTable}}

// GormStore is the postgres-backed Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Users() UserRepository                 { return &gormUsers{s.db} }
func (s *GormStore) Requests() RequestRepository           { return &gormRequests{s.db} }
func (s *GormStore) Events() EventRepository               { return &gormEvents{s.db} }
func (s *GormStore) Participants() ParticipantRepository   { return &gormParticipants{s.db} }
func (s *GormStore) Invites() InviteRepository             { return &gormInvites{s.db} }
func (s *GormStore) Transactions() TransactionRepository   { return &gormTransactions{s.db} }
func (s *GormStore) Notifications() NotificationRepository { return &gormNotifications{s.db} }
func (s *GormStore) Content() ContentRepository            { return &gormContent{s.db} }
func (s *GormStore) Invoices() InvoiceRepository           { return &gormInvoices{s.db} }
func (s *GormStore) OTPs() OTPRepository                   { return &gormOTPs{s.db} }

func (s *GormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

type gormUsers struct{ db *gorm.DB }

func (r *gormUsers) Create(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *gormUsers) Update(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Save(user).Error)
}

func (r *gormUsers) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Scopes(scopes.WithID(id)).First(&user).Error
	return &user, translate(err)
}

func (r *gormUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	return &user, translate(err)
}

func (r *gormUsers) FindByOAuth(ctx context.Context, provider, subject string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("o_auth_provider = ? AND o_auth_subject = ?", provider, subject).
		First(&user).
		Error
	return &user, translate(err)
}

func (r *gormUsers) FindByEmails(ctx context.Context, emails []string) ([]models.User, error) {
	var users []models.User
	if len(emails) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Where("email IN ?", emails).Find(&users).Error
	return users, translate(err)
}

func (r *gormUsers) ListAdmins(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where(clause.IN{Column: "role", Values: []any{types.ADMIN, types.SUPER_ADMIN}}).
		Find(&users).
		Error
	return users, translate(err)
}

type gormRequests struct{ db *gorm.DB }

func (r *gormRequests) Create(ctx context.Context, req *models.EventRequest) error {
	return translate(r.db.WithContext(ctx).Create(req).Error)
}

func (r *gormRequests) Update(ctx context.Context, req *models.EventRequest) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(req).Error)
}

func (r *gormRequests) FindBySlug(ctx context.Context, slug string) (*models.EventRequest, error) {
	var req models.EventRequest
	err := r.db.WithContext(ctx).Scopes(scopes.WithSlug(slug)).First(&req).Error
	return &req, translate(err)
}

func (r *gormRequests) SoftDelete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).
		Model(&models.EventRequest{}).
		Where("id = ?", id).
		Update("status", types.REQUEST_APPROVED)
	if res.Error != nil {
		return translate(res.Error)
	}
	res = r.db.WithContext(ctx).Delete(&models.EventRequest{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormRequests) List(ctx context.Context, filter RequestFilter) ([]models.EventRequest, int64, error) {
	page := filter.Page.Normalize()
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.EventRequest{})
		if filter.CreatedBy != nil {
			q = q.Where("created_by = ?", *filter.CreatedBy)
		}
		return q
	}
	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}
	var reqs []models.EventRequest
	err := base().
		Order("created_at DESC").
		Scopes(scopes.Paginate(page.Page, page.Limit)).
		Find(&reqs).
		Error
	return reqs, total, translate(err)
}

type gormEvents struct{ db *gorm.DB }

func (r *gormEvents) Create(ctx context.Context, event *models.Event) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(event).Error)
}

func (r *gormEvents) Update(ctx context.Context, event *models.Event) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(event).Error)
}

func (r *gormEvents) FindBySlug(ctx context.Context, slug string) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).Scopes(scopes.WithSlug(slug)).First(&event).Error
	return &event, translate(err)
}

func (r *gormEvents) FindByID(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).Scopes(scopes.WithID(id)).First(&event).Error
	return &event, translate(err)
}

func (r *gormEvents) Lock(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).
		Clauses(forUpdate).
		Scopes(scopes.WithID(id)).
		First(&event).
		Error
	return &event, translate(err)
}

func (r *gormEvents) TransitionStatus(ctx context.Context, id uint, from, to types.EventStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", id).
		Where(clause.IN{Column: "event_status", Values: []any{from}}).
		Update("event_status", to)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *gormEvents) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		children := []any{
			&models.EventParticipant{},
			&models.EventMedia{},
			&models.EventFeedback{},
			&models.EventMessage{},
			&models.Transaction{},
			&models.InviteToken{},
			&models.Notification{},
			&models.Invoice{},
		}
		for _, child := range children {
			if err := tx.Scopes(scopes.WithEvent(id)).Delete(child).Error; err != nil {
				return translate(err)
			}
		}
		res := tx.Delete(&models.Event{}, id)
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *gormEvents) List(ctx context.Context, filter EventFilter) ([]models.Event, int64, error) {
	page := filter.Page.Normalize()
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.Event{})
		if filter.ParticipantEmail != "" {
			member := r.db.Model(&models.EventParticipant{}).
				Select("event_id").
				Where("email = ?", filter.ParticipantEmail)
			q = q.Where("(host = ? OR id IN (?))", filter.ParticipantEmail, member)
		}
		if filter.Q != "" {
			like := "%" + filter.Q + "%"
			q = q.Where("(name ILIKE ? OR client_name ILIKE ?)", like, like)
		}
		if filter.PaymentStatus != "" {
			q = q.Where("payment_status = ?", filter.PaymentStatus)
		}
		if filter.Host != "" {
			q = q.Where("host = ?", filter.Host)
		}
		return q
	}
	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}
	var events []models.Event
	err := base().
		Order("created_at DESC").
		Scopes(scopes.Paginate(page.Page, page.Limit)).
		Find(&events).
		Error
	return events, total, translate(err)
}

func (r *gormEvents) ListExpirable(ctx context.Context, now time.Time) ([]models.Event, error) {
	var events []models.Event
	err := r.db.WithContext(ctx).
		Where("event_status IN ?", []types.EventStatus{types.EVENT_PENDING, types.EVENT_CREATED}).
		Where("(pickup_date <= ? OR expires_at <= ?)", now, now).
		Order("pickup_date asc").
		Limit(500).
		Find(&events).
		Error
	return events, translate(err)
}

type gormParticipants struct{ db *gorm.DB }

func (r *gormParticipants) Create(ctx context.Context, participant *models.EventParticipant) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(participant).Error)
}

func (r *gormParticipants) Update(ctx context.Context, participant *models.EventParticipant) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(participant).Error)
}

func (r *gormParticipants) Find(ctx context.Context, eventId uint, email string) (*models.EventParticipant, error) {
	var participant models.EventParticipant
	err := r.db.WithContext(ctx).
		Scopes(scopes.WithEvent(eventId)).
		Where("email = ?", email).
		First(&participant).
		Error
	return &participant, translate(err)
}

func (r *gormParticipants) Lock(ctx context.Context, eventId uint, email string) (*models.EventParticipant, error) {
	var participant models.EventParticipant
	err := r.db.WithContext(ctx).
		Clauses(forUpdate).
		Scopes(scopes.WithEvent(eventId)).
		Where("email = ?", email).
		First(&participant).
		Error
	return &participant, translate(err)
}

func (r *gormParticipants) ListByEvent(ctx context.Context, eventId uint) ([]models.EventParticipant, error) {
	var participants []models.EventParticipant
	err := r.db.WithContext(ctx).
		Scopes(scopes.WithEvent(eventId)).
		Order("id asc").
		Find(&participants).
		Error
	return participants, translate(err)
}

type gormInvites struct{ db *gorm.DB }

func (r *gormInvites) Create(ctx context.Context, invite *models.InviteToken) error {
	return translate(r.db.WithContext(ctx).Create(invite).Error)
}

func (r *gormInvites) FindByToken(ctx context.Context, token string) (*models.InviteToken, error) {
	var invite models.InviteToken
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&invite).Error
	return &invite, translate(err)
}

func (r *gormInvites) FindByEvent(ctx context.Context, eventId uint) (*models.InviteToken, error) {
	var invite models.InviteToken
	err := r.db.WithContext(ctx).Scopes(scopes.WithEvent(eventId)).First(&invite).Error
	return &invite, translate(err)
}

func (r *gormInvites) Claim(ctx context.Context, token string, now time.Time) (*models.InviteToken, error) {
	capacity := r.db.Model(&models.Event{}).
		Select("passenger_count").
		Where("events.id = invite_tokens.event_id")
	res := r.db.WithContext(ctx).
		Model(&models.InviteToken{}).
		Where("token = ?", token).
		Where("expires_at > ?", now).
		Where("registered < (?)", capacity).
		UpdateColumn("registered", gorm.Expr("registered + ?", 1))
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	invite, err := r.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		if !invite.ExpiresAt.After(now) {
			return nil, ErrInviteExpired
		}
		return nil, ErrInviteFull
	}
	return invite, nil
}

type gormTransactions struct{ db *gorm.DB }

func (r *gormTransactions) Create(ctx context.Context, txn *models.Transaction) error {
	return translate(r.db.WithContext(ctx).Create(txn).Error)
}

func (r *gormTransactions) FindByPaymentID(ctx context.Context, paymentId string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).Where("payment_id = ?", paymentId).First(&txn).Error
	return &txn, translate(err)
}

func (r *gormTransactions) LockByPaymentID(ctx context.Context, paymentId string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).
		Clauses(forUpdate).
		Where("payment_id = ?", paymentId).
		First(&txn).
		Error
	return &txn, translate(err)
}

func (r *gormTransactions) Settle(ctx context.Context, txn *models.Transaction, from types.PaymentStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", txn.ID).
		Where(clause.IN{Column: "status", Values: []any{from}}).
		Updates(map[string]any{
			"status":            txn.Status,
			"payment_intent_id": txn.PaymentIntentID,
			"payment_method":    txn.PaymentMethod,
			"amount_received":   txn.AmountReceived,
			"paid_at":           txn.PaidAt,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleWrite
	}
	return nil
}

func (r *gormTransactions) ListByEvent(ctx context.Context, eventId uint) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := r.db.WithContext(ctx).
		Scopes(scopes.WithEvent(eventId)).
		Order("created_at DESC").
		Find(&txns).
		Error
	return txns, translate(err)
}

type gormNotifications struct{ db *gorm.DB }

func (r *gormNotifications) CreateMany(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).CreateInBatches(notifications, 100).Error)
}

func (r *gormNotifications) ListForUser(ctx context.Context, userId uint, page Page) ([]models.Notification, int64, error) {
	page = page.Normalize()
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ?", userId).
		Count(&total).
		Error; err != nil {
		return nil, 0, translate(err)
	}
	var notifications []models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("created_at DESC").
		Scopes(scopes.Paginate(page.Page, page.Limit)).
		Find(&notifications).
		Error
	return notifications, total, translate(err)
}

func (r *gormNotifications) MarkRead(ctx context.Context, userId uint, ids []uuid.UUID) (int64, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ?", userId).
		Where("read = ?", false)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	res := q.Update("read", true)
	return res.RowsAffected, translate(res.Error)
}

type gormContent struct{ db *gorm.DB }

func (r *gormContent) CreateFeedback(ctx context.Context, feedback *models.EventFeedback) error {
	return translate(r.db.WithContext(ctx).Create(feedback).Error)
}

func (r *gormContent) CreateMedia(ctx context.Context, media []models.EventMedia) error {
	if len(media) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).Create(&media).Error)
}

func (r *gormContent) ListMedia(ctx context.Context, eventId uint, userId *uint, page Page) ([]models.EventMedia, int64, error) {
	page = page.Normalize()
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.EventMedia{}).Scopes(scopes.WithEvent(eventId))
		if userId != nil {
			q = q.Where("user_id = ?", *userId)
		}
		return q
	}
	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}
	var media []models.EventMedia
	err := base().
		Order("created_at DESC").
		Scopes(scopes.Paginate(page.Page, page.Limit)).
		Find(&media).
		Error
	return media, total, translate(err)
}

func (r *gormContent) CreateMessage(ctx context.Context, message *models.EventMessage) error {
	return translate(r.db.WithContext(ctx).Create(message).Error)
}

func (r *gormContent) ListMessages(ctx context.Context, eventId uint) ([]models.EventMessage, error) {
	var messages []models.EventMessage
	err := r.db.WithContext(ctx).
		Scopes(scopes.WithEvent(eventId)).
		Order("created_at DESC").
		Find(&messages).
		Error
	return messages, translate(err)
}

type gormInvoices struct{ db *gorm.DB }

func (r *gormInvoices) FindByEvent(ctx context.Context, eventId uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).Scopes(scopes.WithEvent(eventId)).First(&invoice).Error
	return &invoice, translate(err)
}

func (r *gormInvoices) Save(ctx context.Context, invoice *models.Invoice) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(invoice).Error)
}

type gormOTPs struct{ db *gorm.DB }

func (r *gormOTPs) Create(ctx context.Context, otp *models.OTP) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(otp).Error)
}

func (r *gormOTPs) CountSince(ctx context.Context, userId uint, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OTP{}).
		Where("user_id = ? AND created_at > ?", userId, since).
		Count(&count).
		Error
	return count, translate(err)
}

func (r *gormOTPs) Count(ctx context.Context, userId uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OTP{}).Where("user_id = ?", userId).Count(&count).Error
	return count, translate(err)
}

func (r *gormOTPs) Latest(ctx context.Context, userId uint) (*models.OTP, error) {
	var otp models.OTP
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("created_at DESC").
		First(&otp).
		Error
	return &otp, translate(err)
}

func (r *gormOTPs) FindActive(ctx context.Context, userId uint, now time.Time) ([]models.OTP, error) {
	var otps []models.OTP
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND used = ? AND expires_at > ?", userId, false, now).
		Order("created_at DESC").
		Find(&otps).
		Error
	return otps, translate(err)
}

func (r *gormOTPs) MarkUsed(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).
		Model(&models.OTP{}).
		Where("id = ? AND used = ?", id, false).
		Update("used", true)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleWrite
	}
	return nil
}

func (r *gormOTPs) Delete(ctx context.Context, id uint) error {
	return translate(r.db.WithContext(ctx).Delete(&models.OTP{}, id).Error)
}

func (r *gormOTPs) DeleteForUser(ctx context.Context, userId uint) error {
	return translate(r.db.WithContext(ctx).Where("user_id = ?", userId).Delete(&models.OTP{}).Error)
}
