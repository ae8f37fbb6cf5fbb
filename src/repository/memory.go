package repository

import (
	"context"
	"falcontour/src/models"
	"falcontour/src/types"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. Transactions are serialized and rolled
// back by restoring a snapshot, so callers observe the same all-or-nothing
// behaviour as the postgres store.
type MemoryStore struct {
	mu   *sync.Mutex
	txMu *sync.Mutex
	data *memoryData
	inTx bool
}

type memoryData struct {
	seq           uint
	users         map[uint]models.User
	requests      map[uint]models.EventRequest
	events        map[uint]models.Event
	participants  map[uint]models.EventParticipant
	invites       map[uint]models.InviteToken
	transactions  map[uuid.UUID]models.Transaction
	notifications map[uuid.UUID]models.Notification
	feedback      map[uint]models.EventFeedback
	media         map[uint]models.EventMedia
	messages      map[uint]models.EventMessage
	invoices      map[uint]models.Invoice
	otps          map[uint]models.OTP
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu:   &sync.Mutex{},
		txMu: &sync.Mutex{},
		data: &memoryData{
			users:         map[uint]models.User{},
			requests:      map[uint]models.EventRequest{},
			events:        map[uint]models.Event{},
			participants:  map[uint]models.EventParticipant{},
			invites:       map[uint]models.InviteToken{},
			transactions:  map[uuid.UUID]models.Transaction{},
			notifications: map[uuid.UUID]models.Notification{},
			feedback:      map[uint]models.EventFeedback{},
			media:         map[uint]models.EventMedia{},
			messages:      map[uint]models.EventMessage{},
			invoices:      map[uint]models.Invoice{},
			otps:          map[uint]models.OTP{},
		},
	}
}

func (d *memoryData) clone() *memoryData {
	return &memoryData{
		seq:           d.seq,
		users:         maps.Clone(d.users),
		requests:      maps.Clone(d.requests),
		events:        maps.Clone(d.events),
		participants:  maps.Clone(d.participants),
		invites:       maps.Clone(d.invites),
		transactions:  maps.Clone(d.transactions),
		notifications: maps.Clone(d.notifications),
		feedback:      maps.Clone(d.feedback),
		media:         maps.Clone(d.media),
		messages:      maps.Clone(d.messages),
		invoices:      maps.Clone(d.invoices),
		otps:          maps.Clone(d.otps),
	}
}

func (d *memoryData) nextID() uint {
	d.seq++
	return d.seq
}

func (s *MemoryStore) Users() UserRepository                 { return &memUsers{s} }
func (s *MemoryStore) Requests() RequestRepository           { return &memRequests{s} }
func (s *MemoryStore) Events() EventRepository               { return &memEvents{s} }
func (s *MemoryStore) Participants() ParticipantRepository   { return &memParticipants{s} }
func (s *MemoryStore) Invites() InviteRepository             { return &memInvites{s} }
func (s *MemoryStore) Transactions() TransactionRepository   { return &memTransactions{s} }
func (s *MemoryStore) Notifications() NotificationRepository { return &memNotifications{s} }
func (s *MemoryStore) Content() ContentRepository            { return &memContent{s} }
func (s *MemoryStore) Invoices() InvoiceRepository           { return &memInvoices{s} }
func (s *MemoryStore) OTPs() OTPRepository                   { return &memOTPs{s} }

func (s *MemoryStore) Transaction(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(&MemoryStore{mu: s.mu, txMu: s.txMu, data: s.data, inTx: true}); err != nil {
		s.mu.Lock()
		*s.data = *snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *MemoryStore) with(fn func(d *memoryData) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func stamp(ts *types.Timestamps) {
	now := time.Now()
	if ts.CreatedAt.IsZero() {
		ts.CreatedAt = now
	}
	ts.UpdatedAt = now
}

func pageOf[T any](items []T, p Page) []T {
	p = p.Normalize()
	start := (p.Page - 1) * p.Limit
	if start >= len(items) {
		return []T{}
	}
	end := min(start+p.Limit, len(items))
	return items[start:end]
}

func newestFirst[T any](items []T, createdAt func(T) time.Time) {
	slices.SortStableFunc(items, func(a, b T) int {
		return createdAt(b).Compare(createdAt(a))
	})
}

type memUsers struct{ s *MemoryStore }

func (r *memUsers) Create(ctx context.Context, user *models.User) error {
	return r.s.with(func(d *memoryData) error {
		for _, u := range d.users {
			if u.Email == user.Email {
				return ErrDuplicate
			}
			if user.OAuthProvider != nil && u.OAuthProvider != nil && user.OAuthSubject != nil && u.OAuthSubject != nil &&
				*u.OAuthProvider == *user.OAuthProvider && *u.OAuthSubject == *user.OAuthSubject {
				return ErrDuplicate
			}
		}
		user.ID = d.nextID()
		if user.Role == "" {
			user.Role = types.USER
		}
		stamp(&user.Timestamps)
		d.users[user.ID] = *user
		return nil
	})
}

func (r *memUsers) Update(ctx context.Context, user *models.User) error {
	return r.s.with(func(d *memoryData) error {
		if _, ok := d.users[user.ID]; !ok {
			return ErrNotFound
		}
		stamp(&user.Timestamps)
		d.users[user.ID] = *user
		return nil
	})
}

func (r *memUsers) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var out models.User
	err := r.s.with(func(d *memoryData) error {
		u, ok := d.users[id]
		if !ok {
			return ErrNotFound
		}
		out = u
		return nil
	})
	return &out, err
}

func (r *memUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var out models.User
	err := r.s.with(func(d *memoryData) error {
		for _, u := range d.users {
			if u.Email == email {
				out = u
				return nil
			}
		}
		return ErrNotFound
	})
	return &out, err
}

func (r *memUsers) FindByOAuth(ctx context.Context, provider, subject string) (*models.User, error) {
	var out models.User
	err := r.s.with(func(d *memoryData) error {
		for _, u := range d.users {
			if u.OAuthProvider != nil && u.OAuthSubject != nil && *u.OAuthProvider == provider && *u.OAuthSubject == subject {
				out = u
				return nil
			}
		}
		return ErrNotFound
	})
	return &out, err
}

func (r *memUsers) FindByEmails(ctx context.Context, emails []string) ([]models.User, error) {
	var out []models.User
	err := r.s.with(func(d *memoryData) error {
		for _, u := range d.users {
			if slices.Contains(emails, u.Email) {
				out = append(out, u)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b models.User) int { return int(a.ID) - int(b.ID) })
	return out, err
}

func (r *memUsers) ListAdmins(ctx context.Context) ([]models.User, error) {
	var out []models.User
	err := r.s.with(func(d *memoryData) error {
		for _, u := range d.users {
			if u.Role.IsAdmin() {
				out = append(out, u)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b models.User) int { return int(a.ID) - int(b.ID) })
	return out, err
}

type memRequests struct{ s *MemoryStore }

func (r *memRequests) Create(ctx context.Context, req *models.EventRequest) error {
	return r.s.with(func(d *memoryData) error {
		for _, existing := range d.requests {
			if existing.Slug == req.Slug {
				return ErrDuplicate
			}
		}
		req.ID = d.nextID()
		if req.Status == "" {
			req.Status = types.REQUEST_PENDING
		}
		stamp(&req.Timestamps)
		d.requests[req.ID] = *req
		return nil
	})
}

func (r *memRequests) Update(ctx context.Context, req *models.EventRequest) error {
	return r.s.with(func(d *memoryData) error {
		existing, ok := d.requests[req.ID]
		if !ok || existing.DeletedAt.Valid {
			return ErrNotFound
		}
		stamp(&req.Timestamps)
		d.requests[req.ID] = *req
		return nil
	})
}

func (r *memRequests) FindBySlug(ctx context.Context, slug string) (*models.EventRequest, error) {
	var out models.EventRequest
	err := r.s.with(func(d *memoryData) error {
		for _, req := range d.requests {
			if req.Slug == slug && !req.DeletedAt.Valid {
				out = req
				return nil
			}
		}
		return ErrNotFound
	})
	return &out, err
}

func (r *memRequests) SoftDelete(ctx context.Context, id uint) error {
	return r.s.with(func(d *memoryData) error {
		req, ok := d.requests[id]
		if !ok || req.DeletedAt.Valid {
			return ErrNotFound
		}
		req.Status = types.REQUEST_APPROVED
		req.DeletedAt.Time = time.Now()
		req.DeletedAt.Valid = true
		d.requests[id] = req
		return nil
	})
}

func (r *memRequests) List(ctx context.Context, filter RequestFilter) ([]models.EventRequest, int64, error) {
	var out []models.EventRequest
	r.s.with(func(d *memoryData) error {
		for _, req := range d.requests {
			if req.DeletedAt.Valid {
				continue
			}
			if filter.CreatedBy != nil && req.CreatedBy != *filter.CreatedBy {
				continue
			}
			out = append(out, req)
		}
		return nil
	})
	newestFirst(out, func(r models.EventRequest) time.Time { return r.CreatedAt })
	return pageOf(out, filter.Page), int64(len(out)), nil
}

type memEvents struct{ s *MemoryStore }

func (r *memEvents) Create(ctx context.Context, event *models.Event) error {
	return r.s.with(func(d *memoryData) error {
		for _, existing := range d.events {
			if existing.Slug == event.Slug {
				return ErrDuplicate
			}
		}
		event.ID = d.nextID()
		if event.EventStatus == "" {
			event.EventStatus = types.EVENT_PENDING
		}
		if event.PaymentStatus == "" {
			event.PaymentStatus = types.PAYMENT_PENDING
		}
		stamp(&event.Timestamps)
		stored := *event
		stored.Participants = nil
		d.events[event.ID] = stored
		return nil
	})
}

func (r *memEvents) Update(ctx context.Context, event *models.Event) error {
	return r.s.with(func(d *memoryData) error {
		if _, ok := d.events[event.ID]; !ok {
			return ErrNotFound
		}
		stamp(&event.Timestamps)
		stored := *event
		stored.Participants = nil
		d.events[event.ID] = stored
		return nil
	})
}

func (r *memEvents) FindBySlug(ctx context.Context, slug string) (*models.Event, error) {
	var out models.Event
	err := r.s.with(func(d *memoryData) error {
		for _, e := range d.events {
			if e.Slug == slug {
				out = e
				return nil
			}
		}
		return ErrNotFound
	})
	return &out, err
}

func (r *memEvents) FindByID(ctx context.Context, id uint) (*models.Event, error) {
	var out models.Event
	err := r.s.with(func(d *memoryData) error {
		e, ok := d.events[id]
		if !ok {
			return ErrNotFound
		}
		out = e
		return nil
	})
	return &out, err
}

func (r *memEvents) Lock(ctx context.Context, id uint) (*models.Event, error) {
	return r.FindByID(ctx, id)
}

func (r *memEvents) TransitionStatus(ctx context.Context, id uint, from, to types.EventStatus) (bool, error) {
	changed := false
	err := r.s.with(func(d *memoryData) error {
		e, ok := d.events[id]
		if !ok {
			return nil
		}
		if e.EventStatus != from {
			return nil
		}
		e.EventStatus = to
		e.UpdatedAt = time.Now()
		d.events[id] = e
		changed = true
		return nil
	})
	return changed, err
}

func (r *memEvents) Delete(ctx context.Context, id uint) error {
	return r.s.with(func(d *memoryData) error {
		if _, ok := d.events[id]; !ok {
			return ErrNotFound
		}
		delete(d.events, id)
		maps.DeleteFunc(d.participants, func(_ uint, p models.EventParticipant) bool { return p.EventID == id })
		maps.DeleteFunc(d.invites, func(_ uint, i models.InviteToken) bool { return i.EventID == id })
		maps.DeleteFunc(d.transactions, func(_ uuid.UUID, t models.Transaction) bool { return t.EventID == id })
		maps.DeleteFunc(d.notifications, func(_ uuid.UUID, n models.Notification) bool {
			return n.EventID != nil && *n.EventID == id
		})
		maps.DeleteFunc(d.feedback, func(_ uint, f models.EventFeedback) bool { return f.EventID == id })
		maps.DeleteFunc(d.media, func(_ uint, m models.EventMedia) bool { return m.EventID == id })
		maps.DeleteFunc(d.messages, func(_ uint, m models.EventMessage) bool { return m.EventID == id })
		maps.DeleteFunc(d.invoices, func(_ uint, i models.Invoice) bool { return i.EventID == id })
		return nil
	})
}

func (r *memEvents) List(ctx context.Context, filter EventFilter) ([]models.Event, int64, error) {
	var out []models.Event
	r.s.with(func(d *memoryData) error {
		for _, e := range d.events {
			if filter.ParticipantEmail != "" && e.Host != filter.ParticipantEmail && !hasParticipant(d, e.ID, filter.ParticipantEmail) {
				continue
			}
			if filter.Q != "" {
				q := strings.ToLower(filter.Q)
				if !strings.Contains(strings.ToLower(e.TripDetails.Name), q) && !strings.Contains(strings.ToLower(e.TripDetails.ClientName), q) {
					continue
				}
			}
			if filter.PaymentStatus != "" && e.PaymentStatus != filter.PaymentStatus {
				continue
			}
			if filter.Host != "" && e.Host != filter.Host {
				continue
			}
			out = append(out, e)
		}
		return nil
	})
	newestFirst(out, func(e models.Event) time.Time { return e.CreatedAt })
	return pageOf(out, filter.Page), int64(len(out)), nil
}

func hasParticipant(d *memoryData, eventId uint, email string) bool {
	for _, p := range d.participants {
		if p.EventID == eventId && p.Email == email {
			return true
		}
	}
	return false
}

func (r *memEvents) ListExpirable(ctx context.Context, now time.Time) ([]models.Event, error) {
	var out []models.Event
	err := r.s.with(func(d *memoryData) error {
		for _, e := range d.events {
			if e.EventStatus != types.EVENT_PENDING && e.EventStatus != types.EVENT_CREATED {
				continue
			}
			if !e.TripDetails.PickupDate.After(now) || (e.ExpiresAt != nil && !e.ExpiresAt.After(now)) {
				out = append(out, e)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b models.Event) int { return a.TripDetails.PickupDate.Compare(b.TripDetails.PickupDate) })
	return out, err
}

type memParticipants struct{ s *MemoryStore }

func (r *memParticipants) Create(ctx context.Context, participant *models.EventParticipant) error {
	return r.s.with(func(d *memoryData) error {
		if hasParticipant(d, participant.EventID, participant.Email) {
			return ErrDuplicate
		}
		participant.ID = d.nextID()
		if participant.PaymentStatus == "" {
			participant.PaymentStatus = types.PAYMENT_PENDING
		}
		stamp(&participant.Timestamps)
		d.participants[participant.ID] = *participant
		return nil
	})
}

func (r *memParticipants) Update(ctx context.Context, participant *models.EventParticipant) error {
	return r.s.with(func(d *memoryData) error {
		if _, ok := d.participants[participant.ID]; !ok {
			return ErrNotFound
		}
		stamp(&participant.Timestamps)
		d.participants[participant.ID] = *participant
		return nil
	})
}

func (r *memParticipants) Find(ctx context.Context, eventId uint, email string) (*models.EventParticipant, error) {
	var out models.EventParticipant
	err := r.s.with(func(d *memoryData) error {
		for _, p := range d.participants {
			if p.EventID == eventId && p.Email == email {
				out = p
				return nil
			}
		}
		return ErrNotFound
	})
	return &out, err
}

func (r *memParticipants) Lock(ctx context.Context, eventId uint, email string) (*models.EventParticipant, error) {
	return r.Find(ctx, eventId, email)
}

func (r *memParticipants) ListByEvent(ctx context.Context, eventId uint) ([]models.EventParticipant, error) {
	var out []models.EventParticipant
	err := r.s.with(func(d *memoryData) error {
		for _, p := range d.participants {
			if p.EventID == eventId {
				out = append(out, p)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b models.EventParticipant) int { return int(a.ID) - int(b.ID) })
	return out, err
}

type memInvites struct{ s *MemoryStore }

func (r *memInvites) Create(ctx context.Context, invite *models.InviteToken) error {
	return r.s.with(func(d *memoryData) error {
		for _, i := range d.invites {
			if i.Token == invite.Token || i.EventID == invite.EventID {
				return ErrDuplicate
			}
		}
		invite.ID = d.nextID()
		stamp(&invite.Timestamps)
		d.invites[invite.ID] = *invite
		return nil
	})
}

func (r *memInvites) find(d *memoryData, match func(models.InviteToken) bool) (models.InviteToken, bool) {
	for _, i := range d.invites {
		if match(i) {
			return i, true
		}
	}
	return models.InviteToken{}, false
}

func (r *memInvites) FindByToken(ctx context.Context, token string) (*models.InviteToken, error) {
	var out models.InviteToken
	err := r.s.with(func(d *memoryData) error {
		i, ok := r.find(d, func(i models.InviteToken) bool { return i.Token == token })
		if !ok {
			return ErrNotFound
		}
		out = i
		return nil
	})
	return &out, err
}

func (r *memInvites) FindByEvent(ctx context.Context, eventId uint) (*models.InviteToken, error) {
	var out models.InviteToken
	err := r.s.with(func(d *memoryData) error {
		i, ok := r.find(d, func(i models.InviteToken) bool { return i.EventID == eventId })
		if !ok {
			return ErrNotFound
		}
		out = i
		return nil
	})
	return &out, err
}

func (r *memInvites) Claim(ctx context.Context, token string, now time.Time) (*models.InviteToken, error) {
	var out models.InviteToken
	err := r.s.with(func(d *memoryData) error {
		i, ok := r.find(d, func(i models.InviteToken) bool { return i.Token == token })
		if !ok {
			return ErrNotFound
		}
		if !i.ExpiresAt.After(now) {
			return ErrInviteExpired
		}
		event, ok := d.events[i.EventID]
		if !ok {
			return ErrNotFound
		}
		if i.Registered >= event.TripDetails.PassengerCount {
			return ErrInviteFull
		}
		i.Registered++
		i.UpdatedAt = time.Now()
		d.invites[i.ID] = i
		out = i
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type memTransactions struct{ s *MemoryStore }

func (r *memTransactions) Create(ctx context.Context, txn *models.Transaction) error {
	return r.s.with(func(d *memoryData) error {
		for _, t := range d.transactions {
			if t.PaymentID == txn.PaymentID {
				return ErrDuplicate
			}
		}
		if txn.ID == uuid.Nil {
			txn.ID = uuid.New()
		}
		if txn.Status == "" {
			txn.Status = types.PAYMENT_PENDING
		}
		stamp(&txn.Timestamps)
		d.transactions[txn.ID] = *txn
		return nil
	})
}

func (r *memTransactions) FindByPaymentID(ctx context.Context, paymentId string) (*models.Transaction, error) {
	var out models.Transaction
	err := r.s.with(func(d *memoryData) error {
		for _, t := range d.transactions {
			if t.PaymentID == paymentId {
				out = t
				return nil
			}
		}
		return ErrNotFound
	})
	return &out, err
}

func (r *memTransactions) LockByPaymentID(ctx context.Context, paymentId string) (*models.Transaction, error) {
	return r.FindByPaymentID(ctx, paymentId)
}

func (r *memTransactions) Settle(ctx context.Context, txn *models.Transaction, from types.PaymentStatus) error {
	return r.s.with(func(d *memoryData) error {
		stored, ok := d.transactions[txn.ID]
		if !ok || stored.Status != from {
			return ErrStaleWrite
		}
		stored.Status = txn.Status
		stored.PaymentIntentID = txn.PaymentIntentID
		stored.PaymentMethod = txn.PaymentMethod
		stored.AmountReceived = txn.AmountReceived
		stored.PaidAt = txn.PaidAt
		stored.UpdatedAt = time.Now()
		d.transactions[txn.ID] = stored
		return nil
	})
}

func (r *memTransactions) ListByEvent(ctx context.Context, eventId uint) ([]models.Transaction, error) {
	var out []models.Transaction
	err := r.s.with(func(d *memoryData) error {
		for _, t := range d.transactions {
			if t.EventID == eventId {
				out = append(out, t)
			}
		}
		return nil
	})
	newestFirst(out, func(t models.Transaction) time.Time { return t.CreatedAt })
	return out, err
}

type memNotifications struct{ s *MemoryStore }

func (r *memNotifications) CreateMany(ctx context.Context, notifications []models.Notification) error {
	return r.s.with(func(d *memoryData) error {
		for i := range notifications {
			n := &notifications[i]
			if n.ID == uuid.Nil {
				n.ID = uuid.New()
			}
			stamp(&n.Timestamps)
			d.notifications[n.ID] = *n
		}
		return nil
	})
}

func (r *memNotifications) ListForUser(ctx context.Context, userId uint, page Page) ([]models.Notification, int64, error) {
	var out []models.Notification
	r.s.with(func(d *memoryData) error {
		for _, n := range d.notifications {
			if n.UserID == userId {
				out = append(out, n)
			}
		}
		return nil
	})
	newestFirst(out, func(n models.Notification) time.Time { return n.CreatedAt })
	return pageOf(out, page), int64(len(out)), nil
}

func (r *memNotifications) MarkRead(ctx context.Context, userId uint, ids []uuid.UUID) (int64, error) {
	var count int64
	err := r.s.with(func(d *memoryData) error {
		for id, n := range d.notifications {
			if n.UserID != userId || n.Read {
				continue
			}
			if len(ids) > 0 && !slices.Contains(ids, id) {
				continue
			}
			n.Read = true
			d.notifications[id] = n
			count++
		}
		return nil
	})
	return count, err
}

type memContent struct{ s *MemoryStore }

func (r *memContent) CreateFeedback(ctx context.Context, feedback *models.EventFeedback) error {
	return r.s.with(func(d *memoryData) error {
		feedback.ID = d.nextID()
		stamp(&feedback.Timestamps)
		d.feedback[feedback.ID] = *feedback
		return nil
	})
}

func (r *memContent) CreateMedia(ctx context.Context, media []models.EventMedia) error {
	return r.s.with(func(d *memoryData) error {
		for i := range media {
			media[i].ID = d.nextID()
			stamp(&media[i].Timestamps)
			d.media[media[i].ID] = media[i]
		}
		return nil
	})
}

func (r *memContent) ListMedia(ctx context.Context, eventId uint, userId *uint, page Page) ([]models.EventMedia, int64, error) {
	var out []models.EventMedia
	r.s.with(func(d *memoryData) error {
		for _, m := range d.media {
			if m.EventID != eventId {
				continue
			}
			if userId != nil && (m.UserID == nil || *m.UserID != *userId) {
				continue
			}
			out = append(out, m)
		}
		return nil
	})
	newestFirst(out, func(m models.EventMedia) time.Time { return m.CreatedAt })
	return pageOf(out, page), int64(len(out)), nil
}

func (r *memContent) CreateMessage(ctx context.Context, message *models.EventMessage) error {
	return r.s.with(func(d *memoryData) error {
		message.ID = d.nextID()
		stamp(&message.Timestamps)
		d.messages[message.ID] = *message
		return nil
	})
}

func (r *memContent) ListMessages(ctx context.Context, eventId uint) ([]models.EventMessage, error) {
	var out []models.EventMessage
	err := r.s.with(func(d *memoryData) error {
		for _, m := range d.messages {
			if m.EventID == eventId {
				out = append(out, m)
			}
		}
		return nil
	})
	newestFirst(out, func(m models.EventMessage) time.Time { return m.CreatedAt })
	return out, err
}

type memInvoices struct{ s *MemoryStore }

func (r *memInvoices) FindByEvent(ctx context.Context, eventId uint) (*models.Invoice, error) {
	var out models.Invoice
	err := r.s.with(func(d *memoryData) error {
		for _, i := range d.invoices {
			if i.EventID == eventId {
				out = i
				return nil
			}
		}
		return ErrNotFound
	})
	return &out, err
}

func (r *memInvoices) Save(ctx context.Context, invoice *models.Invoice) error {
	return r.s.with(func(d *memoryData) error {
		if invoice.ID == 0 {
			invoice.ID = d.nextID()
		}
		stamp(&invoice.Timestamps)
		d.invoices[invoice.ID] = *invoice
		return nil
	})
}

type memOTPs struct{ s *MemoryStore }

func (r *memOTPs) Create(ctx context.Context, otp *models.OTP) error {
	return r.s.with(func(d *memoryData) error {
		otp.ID = d.nextID()
		stamp(&otp.Timestamps)
		d.otps[otp.ID] = *otp
		return nil
	})
}

func (r *memOTPs) list(userId uint, keep func(models.OTP) bool) []models.OTP {
	var out []models.OTP
	r.s.with(func(d *memoryData) error {
		for _, o := range d.otps {
			if o.UserID == userId && keep(o) {
				out = append(out, o)
			}
		}
		return nil
	})
	newestFirst(out, func(o models.OTP) time.Time { return o.CreatedAt })
	return out
}

func (r *memOTPs) CountSince(ctx context.Context, userId uint, since time.Time) (int64, error) {
	return int64(len(r.list(userId, func(o models.OTP) bool { return o.CreatedAt.After(since) }))), nil
}

func (r *memOTPs) Count(ctx context.Context, userId uint) (int64, error) {
	return int64(len(r.list(userId, func(models.OTP) bool { return true }))), nil
}

func (r *memOTPs) Latest(ctx context.Context, userId uint) (*models.OTP, error) {
	otps := r.list(userId, func(models.OTP) bool { return true })
	if len(otps) == 0 {
		return nil, ErrNotFound
	}
	return &otps[0], nil
}

func (r *memOTPs) FindActive(ctx context.Context, userId uint, now time.Time) ([]models.OTP, error) {
	return r.list(userId, func(o models.OTP) bool { return !o.Used && o.ExpiresAt.After(now) }), nil
}

func (r *memOTPs) MarkUsed(ctx context.Context, id uint) error {
	return r.s.with(func(d *memoryData) error {
		o, ok := d.otps[id]
		if !ok || o.Used {
			return ErrStaleWrite
		}
		o.Used = true
		d.otps[id] = o
		return nil
	})
}

func (r *memOTPs) Delete(ctx context.Context, id uint) error {
	return r.s.with(func(d *memoryData) error {
		delete(d.otps, id)
		return nil
	})
}

func (r *memOTPs) DeleteForUser(ctx context.Context, userId uint) error {
	return r.s.with(func(d *memoryData) error {
		maps.DeleteFunc(d.otps, func(_ uint, o models.OTP) bool { return o.UserID == userId })
		return nil
	})
}
