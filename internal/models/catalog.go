package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Brand struct {
	BaseModel
	Name     string    `gorm:"size:100;not null" json:"name"`
	IsActive bool      `gorm:"not null;default:true" json:"is_active"`
	Products []Product `json:"products,omitempty"`
}

type Category struct {
	BaseModel
	Name        string    `gorm:"size:50;not null" json:"name"`
	Slug        string    `gorm:"uniqueIndex;not null" json:"slug"`
	Description string    `json:"description"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	Products    []Product `json:"products,omitempty"`
}

type Product struct {
	BaseModel
	Name           string          `gorm:"size:100;not null" json:"name"`
	Slug           string          `gorm:"uniqueIndex;not null" json:"slug"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Weight         decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"weight"`
	BrandID        *uuid.UUID      `gorm:"type:uuid;index" json:"brand_id"`
	Brand          *Brand          `json:"brand,omitempty"`
	CategoryID     *uuid.UUID      `gorm:"type:uuid;index" json:"category_id"`
	Category       *Category       `json:"category,omitempty"`
	Images         pq.StringArray  `gorm:"type:text[]" json:"images"`
	DeliveryDayMin int             `json:"delivery_day_min"`
	DeliveryDayMax int             `json:"delivery_day_max"`
	AverageRating  decimal.Decimal `gorm:"type:numeric(3,2);not null;default:0" json:"average_rating"`
	TotalReview    int             `gorm:"not null;default:0" json:"total_review"`
	IsActive       bool            `gorm:"not null;default:true" json:"is_active"`
}
