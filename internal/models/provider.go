package models

import "time"

// Provider is a collection company that can be assigned to pickups.
type Provider struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:160;unique;not null" json:"name"`
	NIT       string    `gorm:"size:40" json:"nit,omitempty"`
	Contact   string    `gorm:"size:160" json:"contact,omitempty"`
	Active    bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
