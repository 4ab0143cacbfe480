package models

import (
	"time"

	"github.com/google/uuid"
)

type Booking struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	SchoolID    uuid.UUID `gorm:"index"`
	ClientEmail string    `gorm:"index"`
	ClientName  string
	Status      string `gorm:"index"` // active | cancelled
	CreatedAt   time.Time
}

func (b *Booking) IsCancelled() bool {
	return b.Status == "cancelled"
}
