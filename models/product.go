package models

import (
	"time"
)

// Product is a read-side reference here: product CRUD lives in the master-data
// service; this engine only needs names and units for reporting.
type Product struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Sku       string    `gorm:"size:100;not null" json:"sku" binding:"required"`
	UnitName  string    `gorm:"size:50" json:"unit_name"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
