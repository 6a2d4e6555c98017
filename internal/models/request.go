// Package models contains the domain entities of the waste-collection
// lifecycle: requests, pickups, their association history and the
// collected-residue records produced on completion.
package models

import "time"

// RequestStatus defines lifecycle states for collection requests.
// Values are the Spanish labels stored on the wire and in the database.
type RequestStatus string

const (
	// RequestStatusPending indicates the request is awaiting scheduling.
	RequestStatusPending RequestStatus = "Pendiente"
	// RequestStatusScheduled indicates the request is linked to a live pickup.
	RequestStatusScheduled RequestStatus = "Programada"
	// RequestStatusCompleted indicates the linked pickup was completed.
	RequestStatusCompleted RequestStatus = "Completada"
	// RequestStatusCancelled indicates the owner withdrew the request. Terminal.
	RequestStatusCancelled RequestStatus = "Cancelada"
)

// Request is a user-submitted waste-collection request.
//
// Status may only be Programada or Completada while PickupID points at the
// live pickup; a Pendiente or Cancelada request carries no live association.
type Request struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	OwnerID         uint          `gorm:"not null;index" json:"owner_id"`
	Username        string        `gorm:"size:120;not null" json:"username"`
	Categories      []string      `gorm:"serializer:json;not null" json:"categories"`
	MeasureType     string        `gorm:"size:16;not null" json:"measure_type"`
	EstimatedAmount float64       `gorm:"not null" json:"estimated_amount"`
	Details         string        `gorm:"type:text" json:"details"`
	Status          RequestStatus `gorm:"type:varchar(20);not null;default:'Pendiente';index" json:"status"`
	AdminNote       string        `gorm:"type:text" json:"admin_note"`
	PickupID        *uint         `gorm:"index" json:"pickup_id"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// IsTerminal reports whether the request can no longer transition.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusCompleted || s == RequestStatusCancelled
}

// RequestStatuses lists every valid request status value.
func RequestStatuses() []RequestStatus {
	return []RequestStatus{
		RequestStatusPending,
		RequestStatusScheduled,
		RequestStatusCompleted,
		RequestStatusCancelled,
	}
}
