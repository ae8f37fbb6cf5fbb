package models

import (
	"falcontour/src/types"
	"time"
)

type User struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	FullName      string         `json:"full_name,omitempty"`
	Email         string         `gorm:"uniqueIndex;not null" json:"email"`
	PhoneNumber   string         `json:"phone_number,omitempty"`
	DateOfBirth   *time.Time     `json:"date_of_birth,omitempty"`
	Password      string         `json:"-"`
	Role          types.UserRole `gorm:"default:'USER'" json:"role"`
	OAuthProvider *string        `gorm:"uniqueIndex:idx_users_oauth" json:"oauth_provider,omitempty"`
	OAuthSubject  *string        `gorm:"uniqueIndex:idx_users_oauth" json:"-"`

	types.Timestamps
}

type OTP struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"-"`
	CodeHash  string    `gorm:"not null" json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `gorm:"default:false" json:"used"`

	User User `gorm:"foreignKey:user_id;constraint:OnDelete:CASCADE" json:"-"`

	types.Timestamps
}
