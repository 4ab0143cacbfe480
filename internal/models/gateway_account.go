package models

import (
	"time"

	"github.com/google/uuid"
)

// GatewayAccount holds one school's gateway credentials. A school without a
// row here simply has no online payments to reconcile.
type GatewayAccount struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	SchoolID     uuid.UUID `gorm:"uniqueIndex"`
	InstanceName string
	APIKey       string
	Enabled      bool
	CreatedAt    time.Time
}
