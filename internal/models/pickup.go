package models

import "time"

// PickupStatus defines lifecycle states for scheduled pickups.
type PickupStatus string

const (
	// PickupStatusScheduled indicates the pickup is planned and editable.
	PickupStatusScheduled PickupStatus = "Programada"
	// PickupStatusCompleted indicates residues were collected and certified. Terminal.
	PickupStatusCompleted PickupStatus = "Completada"
	// PickupStatusCancelled indicates the pickup was called off and its
	// requests reverted to pending. Terminal.
	PickupStatusCancelled PickupStatus = "Cancelada"
)

// Document kinds required to complete a pickup. The engine only stores the
// references; file content lives in the external document store.
const (
	DocumentKindCollectionCert = "certificado_recoleccion"
	DocumentKindDisposalCert   = "certificado_disposicion"
	DocumentKindOther          = "otro"
)

// Pickup is a scheduled collection event grouping one or more requests
// under one provider and date.
type Pickup struct {
	ID            uint               `gorm:"primaryKey" json:"id"`
	ProviderID    uint               `gorm:"not null;index" json:"provider_id"`
	Provider      *Provider          `gorm:"foreignKey:ProviderID" json:"provider,omitempty"`
	ScheduledDate time.Time          `gorm:"not null" json:"scheduled_date"`
	Status        PickupStatus       `gorm:"type:varchar(20);not null;default:'Programada';index" json:"status"`
	AdminNote     string             `gorm:"type:text" json:"admin_note"`
	CreatedBy     string             `gorm:"size:120;not null" json:"created_by"`
	Documents     []PickupDocument   `gorm:"foreignKey:PickupID" json:"documents,omitempty"`
	Residues      []CollectedResidue `gorm:"foreignKey:PickupID" json:"residues,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// PickupRequest is one row of the pickup-request association. Rows are never
// deleted: a request cancelled out of one pickup and rescheduled into another
// keeps both rows as history.
type PickupRequest struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PickupID  uint      `gorm:"not null;index:idx_pickup_request,unique" json:"pickup_id"`
	RequestID uint      `gorm:"not null;index:idx_pickup_request,unique" json:"request_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PickupDocument is an opaque reference to a supporting document attached on
// completion (collection certificate, disposal certificate).
type PickupDocument struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PickupID   uint      `gorm:"not null;index" json:"pickup_id"`
	Kind       string    `gorm:"size:40;not null" json:"kind"`
	Ref        string    `gorm:"size:512;not null" json:"ref"`
	UploadedBy string    `gorm:"size:120" json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// PickupStatuses lists every valid pickup status value.
func PickupStatuses() []PickupStatus {
	return []PickupStatus{
		PickupStatusScheduled,
		PickupStatusCompleted,
		PickupStatusCancelled,
	}
}
