package types

import "time"

// CheckoutRequest describes a hosted checkout for a single line item.
type CheckoutRequest struct {
	AmountMinor   int64
	Currency      string
	ProductName   string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PaymentDetails is what the gateway reports for a captured payment intent.
type PaymentDetails struct {
	PaymentIntentID string
	AmountReceived  int64
	Currency        string
	CardBrand       string
}

type Email struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	Html    bool     `json:"html"`
}

type FederatedIdentity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

// PaymentSettled is published once a checkout session reaches a terminal state.
type PaymentSettled struct {
	TransactionID string        `json:"transaction_id"`
	PaymentID     string        `json:"payment_id"`
	EventID       uint          `json:"event_id"`
	EventSlug     string        `json:"event_slug"`
	PayerEmail    string        `json:"payer_email"`
	Status        PaymentStatus `json:"status"`
	Amount        int64         `json:"amount"`
	SettledAt     time.Time     `json:"settled_at"`
}
