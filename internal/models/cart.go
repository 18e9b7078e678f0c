package models

import "github.com/google/uuid"

// Cart holds products a customer intends to order. One per customer.
type Cart struct {
	BaseModel
	CustomerID uint       `gorm:"uniqueIndex;not null" json:"customer_id"`
	Items      []CartItem `json:"items,omitempty"`
}

type CartItem struct {
	BaseModel
	CartID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_product;not null" json:"cart_id"`
	ProductID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_product;not null" json:"product_id"`
	Product   *Product  `json:"product,omitempty"`
	Quantity  int       `gorm:"not null" json:"quantity"`
}

type Wishlist struct {
	BaseModel
	CustomerID uint           `gorm:"uniqueIndex;not null" json:"customer_id"`
	Items      []WishlistItem `json:"items,omitempty"`
}

type WishlistItem struct {
	BaseModel
	WishlistID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_wishlist_product;not null" json:"wishlist_id"`
	ProductID  uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_wishlist_product;not null" json:"product_id"`
	Product    *Product  `json:"product,omitempty"`
}
