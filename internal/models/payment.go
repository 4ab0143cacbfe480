package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Payment is one row of the internal ledger, written by the confirmation
// webhook when a booking is marked paid. The reconciliation engine reads
// these rows and never mutates them.
type Payment struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BookingID       uuid.UUID       `gorm:"index"`
	Amount          decimal.Decimal `gorm:"type:numeric(12,2)"`
	Reference       string          `gorm:"index"`
	Status          string          `gorm:"index"` // paid | pending | refunded | cancelled
	GatewaySnapshot datatypes.JSON
	CreatedAt       time.Time
}

// SnapshotField reads a single string-or-number field out of the gateway
// snapshot captured at confirmation time. Returns "" when the snapshot is
// absent or the key is missing.
func (p *Payment) SnapshotField(key string) string {
	if len(p.GatewaySnapshot) == 0 {
		return ""
	}
	var snap map[string]json.RawMessage
	if err := json.Unmarshal(p.GatewaySnapshot, &snap); err != nil {
		return ""
	}
	raw, ok := snap[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
