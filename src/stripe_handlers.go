package main

import (
	"context"
	"encoding/json"
	"falcontour/src/lib"
	"falcontour/src/services"
	"falcontour/src/types"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const webhookDedupeTTL = 24 * time.Hour

// webhookDeduper claims a Stripe event id so redeliveries are acknowledged
// without being processed again.
type webhookDeduper interface {
	Allow(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// checkoutTarget maps a checkout session event onto the status it settles
// the transaction to. ok is false for events that settle nothing.
func checkoutTarget(eventType string, cs *stripe.CheckoutSession) (types.PaymentStatus, bool) {
	switch eventType {
	case "checkout.session.completed":
		if cs.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			return "", false
		}
		return types.PAYMENT_PAID, true
	case "checkout.session.async_payment_succeeded":
		return types.PAYMENT_PAID, true
	case "checkout.session.async_payment_failed", "checkout.session.expired":
		return types.PAYMENT_FAILED, true
	}
	return "", false
}

func stripeWebhookRoute(g *gin.Engine, app *services.App, whsecret string, dedupe webhookDeduper) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhook/stripe", func(ctx *gin.Context) {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		event, err := webhook.ConstructEvent(payload, ctx.GetHeader("Stripe-Signature"), whsecret)
		if err != nil {
			log.Printf("Error verifying webhook signature: %s\n", err.Error())
			ctx.Status(http.StatusBadRequest)
			return
		}
		eventType := string(event.Type)
		log.Printf("[StripeEvent] %s\n", eventType)

		var cs stripe.CheckoutSession
		switch eventType {
		case "checkout.session.completed",
			"checkout.session.async_payment_succeeded",
			"checkout.session.async_payment_failed",
			"checkout.session.expired":
			if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
				log.Printf("[Stripe] Error parsing CheckoutSession: %s\n", err.Error())
				lib.WebhookEvents.WithLabelValues(eventType, "malformed").Inc()
				ctx.Status(http.StatusBadRequest)
				return
			}
		default:
			lib.WebhookEvents.WithLabelValues(eventType, "ignored").Inc()
			ctx.Status(http.StatusOK)
			return
		}
		target, ok := checkoutTarget(eventType, &cs)
		if !ok {
			log.Printf("[Stripe] Session %s is not settled yet (%s)\n", cs.ID, cs.PaymentStatus)
			lib.WebhookEvents.WithLabelValues(eventType, "ignored").Inc()
			ctx.Status(http.StatusOK)
			return
		}

		if dedupe != nil {
			first, err := dedupe.Allow(ctx, event.ID, webhookDedupeTTL)
			if err != nil {
				log.Printf("[Stripe] Dedupe unavailable for %s, processing anyway: %s\n", event.ID, err.Error())
			} else if !first {
				log.Printf("[Stripe] Duplicate delivery of %s\n", event.ID)
				lib.WebhookEvents.WithLabelValues(eventType, "duplicate").Inc()
				ctx.Status(http.StatusOK)
				return
			}
		}

		txn, applied, err := app.Payments.ReconcileCheckoutCompletion(ctx, cs.ID, target)
		if err != nil {
			if services.KindOf(err) == services.KindAnomaly {
				log.Printf("[Stripe] %s\n", err.Error())
				lib.WebhookEvents.WithLabelValues(eventType, "anomaly").Inc()
				ctx.Status(http.StatusOK)
				return
			}
			log.Printf("Error reconciling session %s: %s\n", cs.ID, err.Error())
			if dedupe != nil {
				if err := dedupe.Release(ctx, event.ID); err != nil {
					log.Printf("[Stripe] Could not release %s: %s\n", event.ID, err.Error())
				}
			}
			lib.WebhookEvents.WithLabelValues(eventType, "failed").Inc()
			ctx.Status(http.StatusInternalServerError)
			return
		}
		if applied {
			log.Printf("[Stripe] Transaction %s settled as %s\n", txn.PaymentID, txn.Status)
			lib.WebhookEvents.WithLabelValues(eventType, "applied").Inc()
		} else {
			lib.WebhookEvents.WithLabelValues(eventType, "noop").Inc()
		}
		ctx.Status(http.StatusOK)
	})
	return apiv1
}
