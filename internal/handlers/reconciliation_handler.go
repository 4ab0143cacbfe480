package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"booking-payments-backend/internal/reconciliation"
)

type ReconciliationHandler struct {
	service *reconciliation.Service
}

func NewReconciliationHandler(s *reconciliation.Service) *ReconciliationHandler {
	return &ReconciliationHandler{service: s}
}

// GetPortfolioReport runs the reconciliation pipeline for one school over a
// date window and returns the portfolio report.
func (h *ReconciliationHandler) GetPortfolioReport(c *gin.Context) {
	schoolID, err := uuid.Parse(c.Query("school_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid school ID"})
		return
	}

	to := time.Now()
	from := to.AddDate(0, -1, 0)
	if v := c.Query("from"); v != "" {
		from, err = time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date, expected yyyy-mm-dd"})
			return
		}
	}
	if v := c.Query("to"); v != "" {
		to, err = time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date, expected yyyy-mm-dd"})
			return
		}
		// closed interval: include the whole end day
		to = to.Add(24*time.Hour - time.Second)
	}

	report, err := h.service.ReconcilePortfolio(c.Request.Context(), schoolID, from, to)
	if errors.Is(err, reconciliation.ErrInvalidInterval) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

// VerifyBooking returns the single-booking reconciliation plus the
// per-payment test-traffic classifications.
func (h *ReconciliationHandler) VerifyBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking ID"})
		return
	}

	verification, err := h.service.ReconcileBooking(c.Request.Context(), bookingID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
		return
	}

	c.JSON(http.StatusOK, verification)
}
