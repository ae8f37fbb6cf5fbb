package lib

import (
	"context"
	"errors"
	"falcontour/src/types"
	"log"
	"os"
	"time"

	"github.com/stripe/stripe-go/v82"
)

var stripeClient *stripe.Client

func GetStripeClient() *stripe.Client {
	if stripeClient != nil {
		return stripeClient
	}
	apiKey := os.Getenv("STRIPE_SECRET_KEY")
	sc := stripe.NewClient(apiKey)
	stripeClient = sc

	return sc
}

func NewStripeClient(c *stripe.Client) {
	stripeClient = c
}

// StripeGateway creates hosted checkout sessions and reads back the
// captured amount of their payment intents.
type StripeGateway struct {
	client *stripe.Client
}

func NewStripeGateway(c *stripe.Client) *StripeGateway {
	return &StripeGateway{client: c}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req types.CheckoutRequest) (*types.CheckoutSession, error) {
	start := time.Now()
	defer func() {
		GatewayRequestDuration.WithLabelValues("checkout.create").Observe(time.Since(start).Seconds())
	}()

	piParams := &stripe.CheckoutSessionCreatePaymentIntentDataParams{}
	for k, v := range req.Metadata {
		piParams.AddMetadata(k, v)
	}
	params := &stripe.CheckoutSessionCreateParams{
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		UIMode:            stripe.String("hosted"),
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentIntentData: piParams,
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.AmountMinor),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(req.ProductName),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: req.Metadata,
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	cs, err := g.client.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		log.Printf("Error creating checkout session: %s\n", err.Error())
		return nil, err
	}
	log.Printf("CheckoutSessionID: %s\n", cs.ID)
	return &types.CheckoutSession{ID: cs.ID, URL: cs.URL}, nil
}

// PaymentDetails retrieves the session with its payment intent and payment
// method expanded. A session without a payment intent reports zero received.
func (g *StripeGateway) PaymentDetails(ctx context.Context, sessionID string) (*types.PaymentDetails, error) {
	start := time.Now()
	defer func() {
		GatewayRequestDuration.WithLabelValues("checkout.retrieve").Observe(time.Since(start).Seconds())
	}()

	params := &stripe.CheckoutSessionRetrieveParams{}
	params.AddExpand("payment_intent.payment_method")
	cs, err := g.client.V1CheckoutSessions.Retrieve(ctx, sessionID, params)
	if err != nil {
		log.Printf("Error retrieving checkout session %s: %s\n", sessionID, err.Error())
		return nil, err
	}
	details := &types.PaymentDetails{Currency: string(cs.Currency)}
	pi := cs.PaymentIntent
	if pi == nil {
		return details, nil
	}
	details.PaymentIntentID = pi.ID
	details.AmountReceived = pi.AmountReceived
	if pi.Currency != "" {
		details.Currency = string(pi.Currency)
	}
	if pi.PaymentMethod != nil && pi.PaymentMethod.Card != nil {
		details.CardBrand = string(pi.PaymentMethod.Card.Brand)
	}
	return details, nil
}

// IsStripeNotFound reports whether err is a resource_missing API error.
func IsStripeNotFound(err error) bool {
	var se *stripe.Error
	if errors.As(err, &se) {
		return se.Code == stripe.ErrorCodeResourceMissing
	}
	return false
}
