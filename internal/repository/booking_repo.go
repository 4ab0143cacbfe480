package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"booking-payments-backend/internal/models"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) GetByID(id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.First(&booking, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) ListByIDs(ids []uuid.UUID) ([]models.Booking, error) {
	var bookings []models.Booking
	if len(ids) == 0 {
		return bookings, nil
	}
	err := r.db.Where("id IN ?", ids).Find(&bookings).Error
	return bookings, err
}
