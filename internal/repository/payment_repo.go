package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"booking-payments-backend/internal/models"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Expose DB if needed
func (r *PaymentRepository) DB() *gorm.DB {
	return r.db
}

func (r *PaymentRepository) ListByBooking(bookingID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("booking_id = ?", bookingID).Order("created_at ASC").Find(&payments).Error
	return payments, err
}

// ListBySchoolAndRange returns every payment of a school's bookings created
// inside the closed interval, oldest first.
func (r *PaymentRepository) ListBySchoolAndRange(schoolID uuid.UUID, from, to time.Time) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.
		Joins("JOIN bookings ON bookings.id = payments.booking_id").
		Where("bookings.school_id = ?", schoolID).
		Where("payments.created_at BETWEEN ? AND ?", from, to).
		Order("payments.created_at ASC").
		Find(&payments).Error
	return payments, err
}
