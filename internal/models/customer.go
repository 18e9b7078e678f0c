package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Membership is a loyalty tier offering. When several active rows share a
// tier the lowest id is used.
type Membership struct {
	SerialModel
	Name               string          `gorm:"size:100;not null;default:'Standard Membership'" json:"name"`
	Tier               string          `gorm:"size:50;not null;index" json:"tier"`
	Description        string          `json:"description"`
	Benefits           pq.StringArray  `gorm:"type:text[]" json:"benefits"`
	DiscountPercentage decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"discount_percentage"`
	IsActive           bool            `gorm:"not null;default:true" json:"is_active"`
	IsFeatured         bool            `gorm:"not null;default:false" json:"is_featured"`
}

// Customer is the storefront profile of a User and its loyalty account.
type Customer struct {
	SerialModel
	UserID                   uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User                     *User           `json:"user,omitempty"`
	Name                     string          `gorm:"size:100" json:"name"`
	Email                    string          `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Phone                    string          `gorm:"size:15" json:"phone"`
	MembershipID             *uint           `json:"membership_id"`
	Membership               *Membership     `json:"membership,omitempty"`
	Points                   int             `gorm:"not null;default:0" json:"points"`
	PointsDiscountPercentage decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"points_discount_percentage"`
	IsActive                 bool            `gorm:"not null;default:true" json:"is_active"`
}
