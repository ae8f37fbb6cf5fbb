package models

import (
	"falcontour/src/types"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Notification struct {
	ID            uuid.UUID                  `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`
	Kind          string                     `gorm:"index" json:"kind"`
	Title         string                     `json:"title"`
	Description   string                     `json:"description"`
	Type          types.NotificationCategory `json:"type"`
	Payload       datatypes.JSON             `gorm:"type:jsonb" json:"payload"`
	Read          bool                       `gorm:"default:false" json:"read"`
	UserID        uint                       `gorm:"index;not null" json:"user_id"`
	EventID       *uint                      `gorm:"index" json:"event_id,omitempty"`
	RequestID     *uint                      `json:"request_id,omitempty"`
	TriggeredByID *uint                      `json:"triggered_by,omitempty"`

	User User `gorm:"foreignKey:user_id;constraint:OnDelete:CASCADE" json:"-"`

	types.Timestamps
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
