package models

import "time"

// CollectedResidue is the finalized per-category record of what was actually
// collected during a completed pickup. Created exactly once, inside the
// completion transaction, and never mutated afterwards. RealAmount is stored
// raw in MeasureType; normalization to the canonical base unit happens at
// aggregation time.
type CollectedResidue struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PickupID    uint      `gorm:"not null;index" json:"pickup_id"`
	Category    string    `gorm:"size:120;not null;index" json:"category"`
	MeasureType string    `gorm:"size:16;not null" json:"measure_type"`
	RealAmount  float64   `gorm:"not null" json:"real_amount"`
	CreatedAt   time.Time `json:"created_at"`
}
