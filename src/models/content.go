package models

import (
	"falcontour/src/types"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type EventFeedback struct {
	ID          uint    `gorm:"primarykey" json:"id"`
	EventID     uint    `gorm:"index;not null" json:"event_id"`
	UserID      *uint   `json:"user_id,omitempty"`
	Email       string  `json:"email"`
	Q1          uint8   `json:"q1"`
	Q2          uint8   `json:"q2"`
	Q3          uint8   `json:"q3"`
	Q4          uint8   `json:"q4"`
	Q5          uint8   `json:"q5"`
	Average     float64 `json:"average"`
	Description string  `json:"description,omitempty"`

	types.Timestamps
}

type EventMedia struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	EventID     uint   `gorm:"index;not null" json:"event_id"`
	UserID      *uint  `gorm:"index" json:"user_id,omitempty"`
	Email       string `json:"email"`
	Key         string `json:"-"`
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`

	types.Timestamps
}

type EventMessage struct {
	ID      uint   `gorm:"primarykey" json:"id"`
	EventID uint   `gorm:"index;not null" json:"event_id"`
	UserID  *uint  `json:"user_id,omitempty"`
	Email   string `json:"email"`
	Message string `json:"message"`

	types.Timestamps
}

type Invoice struct {
	ID       uint           `gorm:"primarykey" json:"-"`
	Number   snowflake.ID   `gorm:"uniqueIndex;not null" json:"number"`
	EventID  uint           `gorm:"uniqueIndex;not null" json:"event_id"`
	Currency string         `json:"currency"`
	Amount   int64          `json:"amount"`
	Paid     int64          `json:"paid"`
	Due      int64          `json:"due"`
	IssuedAt time.Time      `json:"issued_at"`
	Payload  datatypes.JSON `gorm:"type:jsonb" json:"-"`

	Event Event `gorm:"foreignKey:event_id;constraint:OnDelete:CASCADE" json:"-"`

	types.Timestamps
}
