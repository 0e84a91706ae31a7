package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tool is a physical item that can be checked out. ScanCode is assigned once
// and never changes.
type Tool struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Name          string     `gorm:"size:200;not null" json:"name"`
	Description   string     `gorm:"type:text" json:"description"`
	Category      string     `gorm:"size:100" json:"category"`
	ScanCode      string     `gorm:"size:20;not null;uniqueIndex:tools_scan_code_key" json:"scan_code"`
	Location      string     `gorm:"size:200" json:"location"`
	StoragePlace  string     `gorm:"size:200" json:"storage_place"`
	IsAvailable   bool       `gorm:"not null" json:"is_available"`
	SerialNumber  *string    `gorm:"size:100;uniqueIndex:tools_serial_number_key" json:"serial_number,omitempty"`
	Model         string     `gorm:"size:100" json:"model"`
	Manufacturer  string     `gorm:"size:100" json:"manufacturer"`
	PurchaseDate  *time.Time `gorm:"type:date" json:"purchase_date,omitempty"`
	Price         *float64   `gorm:"type:numeric(12,2)" json:"price,omitempty"`
	WarrantyUntil *time.Time `gorm:"type:date" json:"warranty_until,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Tool) TableName() string { return "tools" }

// NewScanCode returns eight uppercase hex characters taken from a random UUID.
func NewScanCode() string {
	return strings.ToUpper(uuid.NewString()[:8])
}
