package models

import (
	"falcontour/src/types"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Transaction struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`

	PaymentID       string               `gorm:"uniqueIndex;not null" json:"payment_id"`
	PaymentIntentID *string              `json:"payment_intent_id,omitempty"`
	Currency        string               `json:"currency"`
	Status          types.PaymentStatus  `gorm:"default:'PENDING';index" json:"status"`
	PaymentMethod   *string              `json:"payment_method,omitempty"`
	AmountIntended  int64                `json:"amount_intended"`
	AmountMinor     int64                `json:"-"`
	AmountReceived  *int64               `json:"amount_received,omitempty"`
	PaidAt          *time.Time           `json:"paid_at,omitempty"`
	EventID         uint                 `gorm:"index;not null" json:"event_id"`
	UserID          *uint                `json:"user_id,omitempty"`
	PayerEmail      string               `gorm:"index" json:"payer_email"`
	PayerRole       types.PayerRole      `json:"payer_role"`
	Purpose         types.PaymentPurpose `json:"purpose"`
	HeadsCovered    uint                 `json:"heads_covered"`
	Metadata        types.JSONB          `gorm:"type:jsonb" json:"metadata,omitempty"`

	types.Timestamps
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
