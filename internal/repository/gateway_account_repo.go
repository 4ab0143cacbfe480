package repository

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"booking-payments-backend/internal/models"
)

// ErrNotConfigured marks a school without usable gateway credentials. A
// recognized condition, not a failure: such schools simply have nothing to
// reconcile.
var ErrNotConfigured = errors.New("gateway credentials not configured")

type GatewayAccountRepository struct {
	db *gorm.DB
}

func NewGatewayAccountRepository(db *gorm.DB) *GatewayAccountRepository {
	return &GatewayAccountRepository{db: db}
}

func (r *GatewayAccountRepository) GetBySchool(schoolID uuid.UUID) (*models.GatewayAccount, error) {
	var account models.GatewayAccount
	err := r.db.First(&account, "school_id = ?", schoolID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotConfigured
	}
	if err != nil {
		return nil, err
	}
	if !account.Enabled {
		return nil, ErrNotConfigured
	}
	return &account, nil
}
