package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a login account. Its storefront profile is the Customer row.
type User struct {
	BaseModel
	FirstName    string     `gorm:"size:30" json:"first_name"`
	LastName     string     `gorm:"size:30" json:"last_name"`
	Username     string     `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"size:254;uniqueIndex;not null" json:"email"`
	PasswordHash string     `json:"-"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
	IsStaff      bool       `gorm:"not null;default:false" json:"is_staff"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	Customer     *Customer  `json:"customer,omitempty"`
	Addresses    []Address  `json:"addresses,omitempty"`
}

// OneTimeCode is an emailed verification code for a pending registration.
type OneTimeCode struct {
	BaseModel
	Email     string     `gorm:"size:254;index:idx_otp_email_used" json:"email"`
	Code      string     `gorm:"size:6;not null" json:"-"`
	Used      bool       `gorm:"not null;default:false;index:idx_otp_email_used" json:"used"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
}

// IsExpired reports whether the code is past its expiry at now.
func (c *OneTimeCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Address is a saved shipping address.
type Address struct {
	BaseModel
	UserID      uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Country     string    `gorm:"size:100" json:"country"`
	City        string    `gorm:"size:100" json:"city"`
	State       string    `gorm:"size:100" json:"state"`
	PostalCode  string    `gorm:"size:20" json:"postal_code"`
	AddressLine string    `gorm:"size:255" json:"address_line"`
	IsDefault   bool      `json:"is_default"`
}
