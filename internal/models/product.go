package models

import "fmt"

// InventoryStatus is the coarse stock-availability flag of a product.
type InventoryStatus string

const (
	InventoryStatusInStock    InventoryStatus = "INSTOCK"
	InventoryStatusLowStock   InventoryStatus = "LOWSTOCK"
	InventoryStatusOutOfStock InventoryStatus = "OUTOFSTOCK"
)

// ParseInventoryStatus converts a raw form value into an InventoryStatus.
func ParseInventoryStatus(s string) (InventoryStatus, error) {
	switch InventoryStatus(s) {
	case InventoryStatusInStock, InventoryStatusLowStock, InventoryStatusOutOfStock:
		return InventoryStatus(s), nil
	}
	return "", fmt.Errorf("invalid inventory status %q", s)
}

// Product represents a catalog item. Timestamps are epoch seconds, matching
// the wire format of the API.
type Product struct {
	ID                uint            `json:"id" gorm:"primaryKey"`
	Code              string          `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name              string          `json:"name" gorm:"size:255;not null" validate:"required"`
	Description       *string         `json:"description" gorm:"size:1024"`
	Image             *string         `json:"image" gorm:"size:255"`
	Category          *string         `json:"category" gorm:"size:255"`
	Price             float64         `json:"price" gorm:"not null" validate:"gt=0"`
	Quantity          int             `json:"quantity" gorm:"not null" validate:"gte=0"`
	InternalReference string          `json:"internalReference" gorm:"size:32;uniqueIndex;not null"`
	ShellID           int64           `json:"shellId" gorm:"column:shell_id;not null;default:15"`
	InventoryStatus   InventoryStatus `json:"inventoryStatus" gorm:"size:16;not null" validate:"required,oneof=INSTOCK LOWSTOCK OUTOFSTOCK"`
	Rating            float64         `json:"rating" gorm:"not null;default:0"`
	CreatedAt         int64           `json:"createdAt" gorm:"not null"`
	UpdatedAt         int64           `json:"updatedAt" gorm:"not null"`
}

// TableName keeps the singular table name used by the existing schema.
func (Product) TableName() string {
	return "product"
}
