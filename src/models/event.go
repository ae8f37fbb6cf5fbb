package models

import (
	"falcontour/src/types"
	"time"

	"gorm.io/datatypes"
)

// TripDetails are the client-facing trip attributes shared by requests and events.
type TripDetails struct {
	Name           string                      `gorm:"not null" json:"name"`
	ClientName     string                      `gorm:"not null" json:"client_name"`
	EventType      string                      `json:"event_type"`
	PhoneNumber    string                      `json:"phone_number"`
	PickupDate     time.Time                   `gorm:"index" json:"pickup_date"`
	Pickup         string                      `json:"pickup"`
	DropOff        string                      `json:"drop_off"`
	Stops          datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"stops,omitempty"`
	Vehicle        string                      `json:"vehicle"`
	VehicleColor   string                      `json:"vehicle_color,omitempty"`
	PassengerCount uint                        `json:"passenger_count"`
	HoursReserved  uint                        `json:"hours_reserved"`
	Description    *string                     `json:"description,omitempty"`
}

// EndsAt is the end of the reserved window.
func (t TripDetails) EndsAt() time.Time {
	return t.PickupDate.Add(time.Duration(t.HoursReserved) * time.Hour)
}

type EventRequest struct {
	ID          uint        `gorm:"primarykey" json:"id"`
	Slug        string      `gorm:"uniqueIndex;not null" json:"slug"`
	TripDetails TripDetails `gorm:"embedded" json:"trip"`

	TotalAmount    *int64 `json:"total_amount,omitempty"`
	PendingAmount  *int64 `json:"pending_amount,omitempty"`
	EquityDivision *int64 `json:"equity_division,omitempty"`

	Status       types.RequestStatus         `gorm:"default:'PENDING'" json:"status"`
	CreatedBy    uint                        `gorm:"index" json:"created_by"`
	Host         string                      `json:"host"`
	Cohosts      datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"cohosts"`
	Participants datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"participants"`
	CoverImage   *string                     `json:"cover_image,omitempty"`

	Creator User `gorm:"foreignKey:created_by" json:"-"`

	types.Timestamps
	types.SoftDeletes
}

type Event struct {
	ID          uint        `gorm:"primarykey" json:"id"`
	Slug        string      `gorm:"uniqueIndex;not null" json:"slug"`
	TripDetails TripDetails `gorm:"embedded" json:"trip"`

	TotalAmount    int64 `gorm:"not null;check:chk_events_pending,pending_amount >= 0" json:"total_amount"`
	PendingAmount  int64 `gorm:"not null" json:"pending_amount"`
	DepositAmount  int64 `gorm:"not null" json:"deposit_amount"`
	EquityDivision int64 `gorm:"not null;default:1" json:"equity_division"`
	InitialEquity  int64 `gorm:"not null" json:"initial_equity"`

	EventStatus   types.EventStatus           `gorm:"default:'PENDING';index" json:"event_status"`
	PaymentStatus types.PaymentStatus         `gorm:"default:'PENDING'" json:"payment_status"`
	ExpiresAt     *time.Time                  `json:"expires_at,omitempty"`
	Host          string                      `gorm:"index" json:"host"`
	Cohosts       datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"cohosts"`
	CoverImage    *string                     `json:"cover_image,omitempty"`
	CreatedBy     uint                        `json:"created_by"`
	RequestID     *uint                       `json:"request_id,omitempty"`

	Participants  []EventParticipant `gorm:"foreignKey:event_id;constraint:OnDelete:CASCADE" json:"participants,omitempty"`
	Invite        *InviteToken       `gorm:"foreignKey:event_id;constraint:OnDelete:CASCADE" json:"-"`
	Transactions  []Transaction      `gorm:"foreignKey:event_id;constraint:OnDelete:CASCADE" json:"-"`
	Media         []EventMedia       `gorm:"foreignKey:event_id;constraint:OnDelete:CASCADE" json:"-"`
	Feedback      []EventFeedback    `gorm:"foreignKey:event_id;constraint:OnDelete:CASCADE" json:"-"`
	Messages      []EventMessage     `gorm:"foreignKey:event_id;constraint:OnDelete:CASCADE" json:"-"`
	Notifications []Notification     `gorm:"foreignKey:event_id;constraint:OnDelete:CASCADE" json:"-"`

	types.Timestamps
}

// ShareOf returns floor(amount / EquityDivision), or 0 with no division set.
func (e *Event) ShareOf(amount int64) int64 {
	if e.EquityDivision <= 0 || amount <= 0 {
		return 0
	}
	return amount / e.EquityDivision
}

// ExpiryTime prefers the stored expiry and falls back to the reserved window.
func (e *Event) ExpiryTime() time.Time {
	if e.ExpiresAt != nil {
		return *e.ExpiresAt
	}
	return e.TripDetails.EndsAt()
}

// Balanced reports whether deposit and pending amounts add up to the total.
func (e *Event) Balanced() bool {
	return e.PendingAmount >= 0 && e.TotalAmount-e.PendingAmount == e.DepositAmount
}

type EventParticipant struct {
	ID              uint                `gorm:"primarykey" json:"id"`
	EventID         uint                `gorm:"uniqueIndex:idx_participants_event_email;not null" json:"event_id"`
	Email           string              `gorm:"uniqueIndex:idx_participants_event_email;not null" json:"email"`
	Role            types.MemberRole    `gorm:"default:'MEMBER'" json:"role"`
	EquityAmount    int64               `json:"equity_amount"`
	DepositedAmount int64               `json:"deposited_amount"`
	PaymentStatus   types.PaymentStatus `gorm:"default:'PENDING'" json:"payment_status"`
	HeadsCovered    uint                `json:"heads_covered"`
	UserID          *uint               `gorm:"index" json:"user_id,omitempty"`

	User *User `gorm:"foreignKey:user_id;constraint:OnDelete:SET NULL" json:"user,omitempty"`

	types.Timestamps
}

// MarkPaidIfCovered moves the participant to PAID once deposits cover the share.
// A PAID participant never goes back to PENDING.
func (p *EventParticipant) MarkPaidIfCovered() {
	if p.PaymentStatus == types.PAYMENT_PAID {
		return
	}
	if p.DepositedAmount >= p.EquityAmount {
		p.PaymentStatus = types.PAYMENT_PAID
	}
}

type InviteToken struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	Token      string    `gorm:"uniqueIndex;size:32;not null" json:"token"`
	EventID    uint      `gorm:"uniqueIndex;not null" json:"event_id"`
	Email      string    `json:"email"`
	ExpiresAt  time.Time `json:"expires_at"`
	Registered uint      `gorm:"not null;default:0" json:"registered"`

	types.Timestamps
}
