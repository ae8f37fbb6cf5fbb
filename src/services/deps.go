package services

import (
	"context"
	"io"
	"time"

	"falcontour/src/types"
)

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req types.CheckoutRequest) (*types.CheckoutSession, error)
	PaymentDetails(ctx context.Context, sessionID string) (*types.PaymentDetails, error)
}

type Mailer interface {
	Send(ctx context.Context, email types.Email) error
}

type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// Pusher delivers realtime events to a single recipient.
type Pusher interface {
	Push(ctx context.Context, recipient string, event string, payload any) error
}

type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*types.FederatedIdentity, error)
}

type PaymentEvents interface {
	PublishSettled(ctx context.Context, evt types.PaymentSettled) error
}

// Limiter admits a key once per ttl.
type Limiter interface {
	Allow(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Upload is a file received from a client.
type Upload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Viewer is the authenticated caller of an operation.
type Viewer struct {
	ID    uint
	Email string
	Role  types.UserRole
}

func (v Viewer) IsAdmin() bool {
	return v.Role.IsAdmin()
}
