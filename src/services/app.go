package services

import (
	"falcontour/src/config"
	"falcontour/src/repository"

	"github.com/bwmarrin/snowflake"
)

// Deps are the collaborators of the application services. Optional ones
// may be nil: Pusher, Events, Limiter, Blobs and Clock.
type Deps struct {
	Store    repository.Store
	Gateway  Gateway
	Mailer   Mailer
	Blobs    BlobStore
	Pusher   Pusher
	Verifier IdentityVerifier
	Events   PaymentEvents
	Limiter  Limiter
	Clock    Clock
	Node     *snowflake.Node
	Config   *config.Config
}

type App struct {
	Notifier  *Notifier
	Invites   *Invites
	Lifecycle *Lifecycle
	Payments  *Payments
	Users     *Users
	OTPs      *OTPs
	Content   *Content
	Invoices  *Invoices
}

func NewApp(d Deps) *App {
	clock := d.Clock
	if clock == nil {
		clock = systemClock{}
	}
	notifier := NewNotifier(d.Store, d.Pusher)
	invites := NewInvites(d.Store, notifier, d.Mailer, d.Config, clock)
	payments := NewPayments(d.Store, d.Gateway, notifier, d.Events, d.Config, clock)
	return &App{
		Notifier:  notifier,
		Invites:   invites,
		Lifecycle: NewLifecycle(d.Store, notifier, invites, d.Blobs, d.Config, clock),
		Payments:  payments,
		Users:     NewUsers(d.Store, invites, d.Verifier, d.Config),
		OTPs:      NewOTPs(d.Store, d.Mailer, d.Limiter, d.Config, clock),
		Content:   NewContent(d.Store, notifier, d.Blobs),
		Invoices:  NewInvoices(d.Store, payments, d.Node, d.Config, clock),
	}
}
