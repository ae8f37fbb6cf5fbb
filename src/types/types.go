package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
}

// SoftDeletes marks a model as excluded from default queries once deleted.
type SoftDeletes struct {
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type Environment string

const (
	Local      Environment = "local"
	Test       Environment = "test"
	Production Environment = "production"
)

type EventStatus string

const (
	EVENT_PENDING     EventStatus = "PENDING"
	EVENT_CREATED     EventStatus = "CREATED"
	EVENT_STARTED     EventStatus = "STARTED"
	EVENT_FINISHED    EventStatus = "FINISHED"
	EVENT_EXPIRED     EventStatus = "EXPIRED"
	EVENT_DISCREPANCY EventStatus = "DISCREPANCY"
)

// Joinable reports whether participants may still be admitted.
func (s EventStatus) Joinable() bool {
	return s == EVENT_PENDING || s == EVENT_CREATED
}

type RequestStatus string

const (
	REQUEST_PENDING  RequestStatus = "PENDING"
	REQUEST_APPROVED RequestStatus = "APPROVED"
)

type PaymentStatus string

const (
	PAYMENT_PENDING     PaymentStatus = "PENDING"
	PAYMENT_PAID        PaymentStatus = "PAID"
	PAYMENT_FAILED      PaymentStatus = "FAILED"
	PAYMENT_DISCREPANCY PaymentStatus = "DISCREPANCY"
)

type MemberRole string

const (
	ROLE_HOST   MemberRole = "HOST"
	ROLE_COHOST MemberRole = "COHOST"
	ROLE_MEMBER MemberRole = "MEMBER"
)

type UserRole string

const (
	USER        UserRole = "USER"
	ADMIN       UserRole = "ADMIN"
	SUPER_ADMIN UserRole = "SUPER_ADMIN"
)

func (r UserRole) IsAdmin() bool {
	return r == ADMIN || r == SUPER_ADMIN
}

type NotificationCategory string

const (
	CATEGORY_PAYMENT  NotificationCategory = "payment"
	CATEGORY_MESSAGE  NotificationCategory = "message"
	CATEGORY_UPDATE   NotificationCategory = "update"
	CATEGORY_REQUEST  NotificationCategory = "request"
	CATEGORY_FEEDBACK NotificationCategory = "feedback"
)

type PayerRole string

const (
	PAYER_PARTICIPANT PayerRole = "participant"
	PAYER_HOST        PayerRole = "host"
)

type PaymentPurpose string

const (
	PURPOSE_PARTICIPANT_SHARE PaymentPurpose = "participant_share"
	PURPOSE_FINAL_REMAINING   PaymentPurpose = "final_remaining"
)

type SlugRequestParams struct {
	Slug string `uri:"slug" binding:"required"`
}

type TokenRequestParams struct {
	Token string `uri:"token" binding:"required"`
}

type PageQuery struct {
	Page  int `form:"page,default=1" binding:"omitempty,min=1"`
	Limit int `form:"limit,default=10" binding:"omitempty,min=1,max=100"`
}

type TripDetailsBody struct {
	Name           string   `json:"name" binding:"required"`
	ClientName     string   `json:"client_name" binding:"required"`
	EventType      string   `json:"event_type" binding:"required"`
	PhoneNumber    string   `json:"phone_number" binding:"required"`
	PickupDate     string   `json:"pickup_date" binding:"required,tripdate" time_format:"2006-01-02 15:04:05 -07:00"`
	Pickup         string   `json:"pickup" binding:"required"`
	DropOff        string   `json:"drop_off" binding:"required"`
	Stops          []string `json:"stops,omitempty"`
	Vehicle        string   `json:"vehicle" binding:"required"`
	VehicleColor   string   `json:"vehicle_color,omitempty"`
	PassengerCount uint     `json:"passenger_count" binding:"required,gt=0"`
	HoursReserved  uint     `json:"hours_reserved" binding:"required,gt=0"`
	Description    string   `json:"description,omitempty"`
}

type PaymentTermsBody struct {
	TotalAmount    int64 `json:"total_amount" binding:"min=0"`
	PendingAmount  int64 `json:"pending_amount" binding:"min=0,ltefield=TotalAmount"`
	EquityDivision int64 `json:"equity_division" binding:"required,gt=0"`
}

type CreateEventRequestBody struct {
	TripDetailsBody
	Cohosts []string `json:"cohosts,omitempty" binding:"omitempty,emaillist"`
}

type EditEventRequestBody struct {
	TripDetailsBody
	Participants []string `json:"participants,omitempty" binding:"omitempty,emaillist"`
}

type UpdateEventBody struct {
	TripDetailsBody
	Terms *PaymentTermsBody `json:"terms,omitempty"`
}

type AddEventBody struct {
	TripDetailsBody
	Terms PaymentTermsBody `json:"terms" binding:"required"`
}

type CreateEventBody struct {
	Host    string   `json:"host" binding:"required,email"`
	Cohosts []string `json:"cohosts,omitempty" binding:"omitempty,emaillist"`
}

type EventQueryFilters struct {
	PageQuery
	Q             string `form:"q"`
	PaymentStatus string `form:"payment_status" binding:"omitempty,oneof=PENDING PAID FAILED DISCREPANCY"`
	Host          string `form:"host"`
}

type CheckoutRequestBody struct {
	Amount       string `json:"amount" binding:"required"`
	HeadsCovered uint   `json:"heads_covered,omitempty"`
}

type RegisterUserRequestBody struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name,omitempty"`
}

type LoginRequestBody struct {
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required"`
	Token    *string `json:"token,omitempty"`
}

type OAuthRequestBody struct {
	Token *string `json:"token,omitempty"`
}

type OTPRequestBody struct {
	Email string `json:"email" binding:"required,email"`
}

type OTPVerifyBody struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

type ResetPasswordBody struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

type UserDetailsBody struct {
	FullName    string  `json:"full_name" binding:"required"`
	PhoneNumber string  `json:"phone_number,omitempty"`
	DateOfBirth *string `json:"date_of_birth,omitempty"`
}

type FeedbackBody struct {
	Q1          uint8  `json:"q1" binding:"required,min=1,max=5"`
	Q2          uint8  `json:"q2" binding:"required,min=1,max=5"`
	Q3          uint8  `json:"q3" binding:"required,min=1,max=5"`
	Q4          uint8  `json:"q4" binding:"required,min=1,max=5"`
	Q5          uint8  `json:"q5" binding:"required,min=1,max=5"`
	Description string `json:"description,omitempty"`
}

type MessageBody struct {
	Message string `json:"message" binding:"required,max=2000"`
}

type MarkReadBody struct {
	IDs []string `json:"ids,omitempty"`
}

type Handler func(payload string)
