package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"falcontour/src/config"
	"falcontour/src/lib"
	"falcontour/src/models"
	"falcontour/src/repository"
	"falcontour/src/types"
	"falcontour/src/utils"

	"github.com/shopspring/decimal"
)

// Payments creates checkout sessions and settles them from gateway webhooks.
type Payments struct {
	store    repository.Store
	gateway  Gateway
	notifier *Notifier
	events   PaymentEvents
	cfg      *config.Config
	clock    Clock
}

func NewPayments(store repository.Store, gateway Gateway, notifier *Notifier, events PaymentEvents, cfg *config.Config, clock Clock) *Payments {
	if clock == nil {
		clock = systemClock{}
	}
	return &Payments{store: store, gateway: gateway, notifier: notifier, events: events, cfg: cfg, clock: clock}
}

type checkoutIntent struct {
	event   *models.Event
	email   string
	userId  *uint
	cents   int64
	role    types.PayerRole
	purpose types.PaymentPurpose
	heads   uint
}

func (s *Payments) checkout(ctx context.Context, intent checkoutIntent) (*types.CheckoutSession, error) {
	metadata := map[string]string{
		"event_id":      strconv.FormatUint(uint64(intent.event.ID), 10),
		"event_slug":    intent.event.Slug,
		"payer_email":   intent.email,
		"payer_role":    string(intent.role),
		"purpose":       string(intent.purpose),
		"heads_covered": strconv.FormatUint(uint64(intent.heads), 10),
	}
	session, err := s.gateway.CreateCheckoutSession(ctx, types.CheckoutRequest{
		AmountMinor:   intent.cents,
		Currency:      s.cfg.Currency,
		ProductName:   intent.event.TripDetails.Name,
		CustomerEmail: intent.email,
		SuccessURL:    s.cfg.StripeReturnURL,
		CancelURL:     s.cfg.StripeReturnURL,
		Metadata:      metadata,
	})
	if err != nil {
		log.Printf("Error creating checkout session for %s: %s\n", intent.event.Slug, err.Error())
		return nil, external("Could not create checkout session", err)
	}

	md := types.JSONB{}
	for k, v := range metadata {
		md[k] = v
	}
	txn := &models.Transaction{
		PaymentID:      session.ID,
		Currency:       s.cfg.Currency,
		Status:         types.PAYMENT_PENDING,
		AmountIntended: FromMinorUnits(intent.cents),
		AmountMinor:    intent.cents,
		EventID:        intent.event.ID,
		UserID:         intent.userId,
		PayerEmail:     intent.email,
		PayerRole:      intent.role,
		Purpose:        intent.purpose,
		HeadsCovered:   intent.heads,
		Metadata:       md,
	}
	if err := s.store.Transactions().Create(ctx, txn); err != nil {
		log.Printf("Error saving transaction %s: %s\n", session.ID, err.Error())
		return nil, err
	}
	lib.PaymentsInitiated.WithLabelValues(string(intent.purpose)).Inc()
	return session, nil
}

// InitiateParticipantPayment opens a checkout for part or all of a
// participant's remaining share.
func (s *Payments) InitiateParticipantPayment(ctx context.Context, slug string, payerEmail string, userId *uint, amount decimal.Decimal, headsCovered uint) (*types.CheckoutSession, error) {
	if !amount.IsPositive() || !amount.IsInteger() {
		return nil, validation("Invalid Amount!")
	}
	payerEmail = utils.NormalizeEmail(payerEmail)
	event, err := s.store.Events().FindBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "Event")
	}
	if err := reconcileExpiry(ctx, s.store, event, s.clock.Now()); err != nil {
		return nil, err
	}
	participant, err := s.store.Participants().Find(ctx, event.ID, payerEmail)
	if err != nil {
		return nil, notFound(err, "Participant")
	}
	if event.PaymentStatus == types.PAYMENT_PAID {
		return nil, conflict("Event Already Paid For!")
	}
	if participant.PaymentStatus == types.PAYMENT_PAID {
		return nil, conflict("You have already paid your share")
	}
	if amount.LessThan(MinimumCharge) {
		return nil, validation("Invalid Amount!")
	}
	if share := participant.EquityAmount; share > 0 && headsCovered > 0 {
		limit := decimal.NewFromInt(share).Mul(decimal.NewFromInt(int64(headsCovered)))
		if amount.GreaterThan(limit) {
			return nil, validation("Invalid Amount!")
		}
	}
	if amount.GreaterThan(decimal.NewFromInt(event.PendingAmount)) {
		return nil, conflict("Amount exceeds the remaining balance")
	}

	return s.checkout(ctx, checkoutIntent{
		event:   event,
		email:   payerEmail,
		userId:  userId,
		cents:   ToMinorUnits(amount),
		role:    types.PAYER_PARTICIPANT,
		purpose: types.PURPOSE_PARTICIPANT_SHARE,
		heads:   headsCovered,
	})
}

// InitiateHostFinalPayment lets the host settle everything still pending.
func (s *Payments) InitiateHostFinalPayment(ctx context.Context, slug string, hostEmail string, userId *uint) (*types.CheckoutSession, error) {
	hostEmail = utils.NormalizeEmail(hostEmail)
	event, err := s.store.Events().FindBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "Event")
	}
	if err := reconcileExpiry(ctx, s.store, event, s.clock.Now()); err != nil {
		return nil, err
	}
	if hostEmail != utils.NormalizeEmail(event.Host) {
		return nil, forbidden("Only the host can pay the remaining balance")
	}
	if event.PaymentStatus == types.PAYMENT_PAID || event.PendingAmount <= 0 {
		return nil, conflict("Event Already Paid For!")
	}
	return s.checkout(ctx, checkoutIntent{
		event:   event,
		email:   hostEmail,
		userId:  userId,
		cents:   ToMinorUnits(decimal.NewFromInt(event.PendingAmount)),
		role:    types.PAYER_HOST,
		purpose: types.PURPOSE_FINAL_REMAINING,
	})
}

// ReconcileCheckoutCompletion applies a terminal gateway outcome to the
// transaction of sessionID and, for payments, to participant and event
// balances. It reports whether anything changed. A received amount that
// differs from the expected one is flagged as DISCREPANCY and never applied.
// For a host final payment the expected amount is the event's pending amount
// at settlement time, not at checkout.
func (s *Payments) ReconcileCheckoutCompletion(ctx context.Context, sessionID string, target types.PaymentStatus) (*models.Transaction, bool, error) {
	existing, err := s.store.Transactions().FindByPaymentID(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, anomaly(fmt.Sprintf("Unknown checkout session: %s", sessionID))
	}
	if err != nil {
		return nil, false, err
	}
	if existing.Status != types.PAYMENT_PENDING {
		return existing, false, nil
	}

	var details *types.PaymentDetails
	if target == types.PAYMENT_PAID {
		details, err = s.gateway.PaymentDetails(ctx, sessionID)
		if err != nil {
			log.Printf("Error retrieving payment details for %s: %s\n", sessionID, err.Error())
			return nil, false, external("Could not retrieve payment details", err)
		}
	}

	var txn *models.Transaction
	var event *models.Event
	var expectedMinor, receivedMinor int64
	applied := false
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		t, err := tx.Transactions().LockByPaymentID(ctx, sessionID)
		if err != nil {
			return err
		}
		txn = t
		if t.Status == target || t.Status != types.PAYMENT_PENDING {
			return nil
		}

		event, err = tx.Events().Lock(ctx, t.EventID)
		if err != nil {
			return err
		}

		t.Status = target
		if details != nil {
			expectedMinor = t.AmountMinor
			if isFinalPayment(t) {
				expectedMinor = ToMinorUnits(decimal.NewFromInt(event.PendingAmount))
			}
			receivedMinor = details.AmountReceived
			received := FromMinorUnits(details.AmountReceived)
			t.AmountReceived = &received
			if details.PaymentIntentID != "" {
				t.PaymentIntentID = &details.PaymentIntentID
			}
			if details.CardBrand != "" {
				t.PaymentMethod = &details.CardBrand
			}
			if receivedMinor != t.AmountMinor || receivedMinor != expectedMinor {
				t.Status = types.PAYMENT_DISCREPANCY
			} else {
				now := s.clock.Now()
				t.PaidAt = &now
			}
		}
		if err := tx.Transactions().Settle(ctx, t, types.PAYMENT_PENDING); err != nil {
			if errors.Is(err, repository.ErrStaleWrite) {
				return nil
			}
			return err
		}

		switch t.Status {
		case types.PAYMENT_DISCREPANCY:
			event.PaymentStatus = types.PAYMENT_DISCREPANCY
			if err := tx.Events().Update(ctx, event); err != nil {
				return err
			}
		case types.PAYMENT_PAID:
			if err := applyPayment(ctx, tx, event, t); err != nil {
				return err
			}
		}
		applied = true
		return nil
	})
	if err != nil {
		log.Printf("Error reconciling checkout session %s: %s\n", sessionID, err.Error())
		return nil, false, err
	}
	if !applied {
		return txn, false, nil
	}

	lib.PaymentsReconciled.WithLabelValues(string(txn.Status)).Inc()
	s.afterSettle(ctx, event, txn, expectedMinor, receivedMinor)
	return txn, true, nil
}

func isFinalPayment(t *models.Transaction) bool {
	return t.Purpose == types.PURPOSE_FINAL_REMAINING && t.PayerRole == types.PAYER_HOST
}

// applyPayment moves a settled payment into the participant and event
// balances. Both rows are locked by the caller's transaction. An event
// flagged as DISCREPANCY keeps its flag when the balance reaches zero.
func applyPayment(ctx context.Context, tx repository.Store, event *models.Event, t *models.Transaction) error {
	participant, err := tx.Participants().Lock(ctx, event.ID, t.PayerEmail)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound) && isFinalPayment(t):
		participant = nil
	default:
		return notFound(err, "Participant")
	}

	paid := *t.AmountReceived
	if isFinalPayment(t) {
		if participant != nil {
			participant.DepositedAmount += paid
			participant.PaymentStatus = types.PAYMENT_PAID
		}
		event.PendingAmount = 0
		event.DepositAmount = event.TotalAmount
	} else {
		participant.DepositedAmount += paid
		participant.EquityAmount = paid
		participant.HeadsCovered = t.HeadsCovered
		participant.PaymentStatus = types.PAYMENT_PAID

		event.PendingAmount = max(0, event.PendingAmount-paid)
		event.DepositAmount = event.TotalAmount - event.PendingAmount
	}
	if event.PendingAmount == 0 && event.PaymentStatus != types.PAYMENT_DISCREPANCY {
		event.PaymentStatus = types.PAYMENT_PAID
	}

	if participant != nil {
		if err := tx.Participants().Update(ctx, participant); err != nil {
			return err
		}
	}
	return tx.Events().Update(ctx, event)
}

func (s *Payments) afterSettle(ctx context.Context, event *models.Event, txn *models.Transaction, expectedMinor, receivedMinor int64) {
	switch txn.Status {
	case types.PAYMENT_PAID:
		s.notifier.notify(ctx, Notice{
			Title:       "Incoming Payment",
			Description: fmt.Sprintf("%s has paid $%d to the event (%s)", txn.PayerEmail, *txn.AmountReceived, event.Slug),
			Payload: PaymentPayload{
				EventSlug:  event.Slug,
				PayerEmail: txn.PayerEmail,
				Amount:     *txn.AmountReceived,
				PaymentID:  txn.PaymentID,
			},
			Recipients:  participantEmails(ctx, s.store, event),
			EventID:     &event.ID,
			TriggeredBy: txn.UserID,
		})
	case types.PAYMENT_DISCREPANCY:
		s.notifier.notify(ctx, Notice{
			Title:       "Payment Flagged",
			Description: fmt.Sprintf("a Payment was flagged for unusual behavior: %s", txn.ID.String()),
			Payload: PaymentFlaggedPayload{
				EventSlug:      event.Slug,
				PaymentID:      txn.PaymentID,
				ExpectedMinor:  expectedMinor,
				ReceivedMinor:  receivedMinor,
				TransactionRef: txn.ID.String(),
			},
			EventID: &event.ID,
		})
	}

	if s.events == nil {
		return
	}
	settled := types.PaymentSettled{
		TransactionID: txn.ID.String(),
		PaymentID:     txn.PaymentID,
		EventID:       event.ID,
		EventSlug:     event.Slug,
		PayerEmail:    txn.PayerEmail,
		Status:        txn.Status,
		Amount:        txn.AmountIntended,
		SettledAt:     s.clock.Now(),
	}
	if err := s.events.PublishSettled(ctx, settled); err != nil {
		log.Printf("Error publishing settlement of %s: %s\n", txn.PaymentID, err.Error())
	}
}

// ParticipantPayments groups the transactions of one payer.
type ParticipantPayments struct {
	Email        string               `json:"email"`
	TotalPaid    int64                `json:"total_paid"`
	Transactions []models.Transaction `json:"transactions"`
}

// GetPaymentsByParticipant groups an event's transactions by payer, most
// recent payer first.
func (s *Payments) GetPaymentsByParticipant(ctx context.Context, eventId uint) ([]ParticipantPayments, error) {
	txns, err := s.store.Transactions().ListByEvent(ctx, eventId)
	if err != nil {
		return nil, err
	}
	index := map[string]int{}
	var out []ParticipantPayments
	for _, t := range txns {
		i, ok := index[t.PayerEmail]
		if !ok {
			i = len(out)
			index[t.PayerEmail] = i
			out = append(out, ParticipantPayments{Email: t.PayerEmail})
		}
		out[i].Transactions = append(out[i].Transactions, t)
		if t.Status == types.PAYMENT_PAID && t.AmountReceived != nil {
			out[i].TotalPaid += *t.AmountReceived
		}
	}
	return out, nil
}

func (s *Payments) PaymentsForEvent(ctx context.Context, slug string) ([]ParticipantPayments, error) {
	event, err := s.store.Events().FindBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "Event")
	}
	return s.GetPaymentsByParticipant(ctx, event.ID)
}
