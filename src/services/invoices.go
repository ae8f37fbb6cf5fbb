package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"falcontour/src/config"
	"falcontour/src/models"
	"falcontour/src/repository"
	"falcontour/src/types"

	"github.com/bwmarrin/snowflake"
)

const invoiceBrand = "FalconTour"

type InvoiceLine struct {
	Email         string               `json:"email"`
	Role          types.MemberRole     `json:"role"`
	Equity        int64                `json:"equity"`
	Deposited     int64                `json:"deposited"`
	PaymentStatus types.PaymentStatus  `json:"payment_status"`
	Payments      []models.Transaction `json:"payments"`
}

type InvoicePayload struct {
	Number       snowflake.ID  `json:"number"`
	Brand        string        `json:"brand"`
	IssuedAt     time.Time     `json:"issued_at"`
	Currency     string        `json:"currency"`
	EventSlug    string        `json:"event_slug"`
	EventName    string        `json:"event_name"`
	ClientName   string        `json:"client_name"`
	PickupDate   time.Time     `json:"pickup_date"`
	Vehicle      string        `json:"vehicle"`
	Host         string        `json:"host"`
	Participants []InvoiceLine `json:"participants"`
	Total        int64         `json:"total"`
	Paid         int64         `json:"paid"`
	Due          int64         `json:"due"`
}

// Invoices numbers and stores one invoice per event.
type Invoices struct {
	store    repository.Store
	payments *Payments
	node     *snowflake.Node
	cfg      *config.Config
	clock    Clock
}

func NewInvoices(store repository.Store, payments *Payments, node *snowflake.Node, cfg *config.Config, clock Clock) *Invoices {
	if clock == nil {
		clock = systemClock{}
	}
	return &Invoices{store: store, payments: payments, node: node, cfg: cfg, clock: clock}
}

// GetInvoice builds the invoice of an event from its current balances and
// saves it, keeping the number issued the first time.
func (s *Invoices) GetInvoice(ctx context.Context, viewer Viewer, slug string) (*InvoicePayload, error) {
	event, err := s.store.Events().FindBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "Event")
	}
	participants, err := s.store.Participants().ListByEvent(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	if !viewer.IsAdmin() && !onRoster(event, participants, viewer.Email) {
		return nil, forbidden("You are not a participant of this event")
	}
	grouped, err := s.payments.GetPaymentsByParticipant(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	byEmail := make(map[string][]models.Transaction, len(grouped))
	for _, g := range grouped {
		byEmail[g.Email] = g.Transactions
	}

	invoice, err := s.store.Invoices().FindByEvent(ctx, event.ID)
	if errors.Is(err, repository.ErrNotFound) {
		invoice = &models.Invoice{Number: s.node.Generate(), EventID: event.ID, IssuedAt: s.clock.Now()}
	} else if err != nil {
		return nil, err
	}

	payload := &InvoicePayload{
		Number:     invoice.Number,
		Brand:      invoiceBrand,
		IssuedAt:   invoice.IssuedAt,
		Currency:   s.cfg.Currency,
		EventSlug:  event.Slug,
		EventName:  event.TripDetails.Name,
		ClientName: event.TripDetails.ClientName,
		PickupDate: event.TripDetails.PickupDate,
		Vehicle:    event.TripDetails.Vehicle,
		Host:       event.Host,
		Total:      event.TotalAmount,
		Paid:       event.DepositAmount,
		Due:        event.PendingAmount,
	}
	for _, p := range participants {
		payload.Participants = append(payload.Participants, InvoiceLine{
			Email:         p.Email,
			Role:          p.Role,
			Equity:        p.EquityAmount,
			Deposited:     p.DepositedAmount,
			PaymentStatus: p.PaymentStatus,
			Payments:      byEmail[p.Email],
		})
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	invoice.Currency = payload.Currency
	invoice.Amount = payload.Total
	invoice.Paid = payload.Paid
	invoice.Due = payload.Due
	invoice.Payload = raw
	if err := s.store.Invoices().Save(ctx, invoice); err != nil {
		return nil, err
	}
	return payload, nil
}
