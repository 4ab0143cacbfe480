package reconciliation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"booking-payments-backend/internal/gateway"
	"booking-payments-backend/internal/models"
	"booking-payments-backend/internal/repository"
	"booking-payments-backend/internal/testdetect"
)

// ErrInvalidInterval rejects a backwards date window before any network
// access. The only contract error the entrypoints return for bad input.
var ErrInvalidInterval = errors.New("interval end precedes start")

// ClientFactory builds a gateway client for one school's credentials.
type ClientFactory func(account *models.GatewayAccount) GatewayClient

// PaymentStore is the slice of the internal ledger the engine reads.
type PaymentStore interface {
	ListByBooking(bookingID uuid.UUID) ([]models.Payment, error)
	ListBySchoolAndRange(schoolID uuid.UUID, from, to time.Time) ([]models.Payment, error)
}

type BookingStore interface {
	GetByID(id uuid.UUID) (*models.Booking, error)
	ListByIDs(ids []uuid.UUID) ([]models.Booking, error)
}

// AccountStore resolves a school's gateway credentials. Implementations
// signal an unconfigured school with repository.ErrNotConfigured.
type AccountStore interface {
	GetBySchool(schoolID uuid.UUID) (*models.GatewayAccount, error)
}

// defaultResources is the lookup order: the transaction log is
// authoritative, invoices and payment-links only fill gaps.
var defaultResources = []gateway.Resource{
	gateway.ResourceTransaction,
	gateway.ResourceInvoice,
	gateway.ResourcePaylink,
}

type Service struct {
	payments  PaymentStore
	bookings  BookingStore
	accounts  AccountStore
	newClient ClientFactory
	detector  *testdetect.Detector
	log       *logrus.Logger
}

func NewService(
	payments PaymentStore,
	bookings BookingStore,
	accounts AccountStore,
	newClient ClientFactory,
	detector *testdetect.Detector,
	log *logrus.Logger,
) *Service {
	return &Service{
		payments:  payments,
		bookings:  bookings,
		accounts:  accounts,
		newClient: newClient,
		detector:  detector,
		log:       log,
	}
}

// ReconcilePortfolio cross-checks every payment of a school inside the
// window against the gateway ledger. Always returns a report for expected
// failure modes; per-booking and per-resource problems land in its issues
// list instead of aborting the run.
func (s *Service) ReconcilePortfolio(ctx context.Context, schoolID uuid.UUID, from, to time.Time) (*PortfolioReport, error) {
	if to.Before(from) {
		return nil, ErrInvalidInterval
	}

	account, err := s.accounts.GetBySchool(schoolID)
	if errors.Is(err, repository.ErrNotConfigured) {
		s.log.WithFields(logrus.Fields{
			"component": "service",
			"school_id": schoolID,
		}).Info("no gateway credentials configured, returning empty report")
		return BuildPortfolioReport(schoolID, from, to, nil, nil, emptyStats(), []Issue{{
			Component: "service",
			Scope:     schoolID.String(),
			Message:   "no gateway credentials configured",
		}}), nil
	}
	if err != nil {
		return nil, err
	}

	payments, err := s.payments.ListBySchoolAndRange(schoolID, from, to)
	if err != nil {
		return nil, err
	}

	byBooking := make(map[uuid.UUID][]models.Payment)
	sought := make(map[string]bool)
	for _, p := range payments {
		byBooking[p.BookingID] = append(byBooking[p.BookingID], p)
		if p.Reference != "" {
			sought[p.Reference] = true
		}
	}

	client := s.newClient(account)
	fetcher := NewFetcher(client, s.log)
	agg, stats, issues := fetcher.FetchAggregated(ctx, from, to, defaultResources, sought)

	bookingIDs := make([]uuid.UUID, 0, len(byBooking))
	for id := range byBooking {
		bookingIDs = append(bookingIDs, id)
	}
	bookings, err := s.bookings.ListByIDs(bookingIDs)
	if err != nil {
		return nil, err
	}

	comparator := NewComparator(client, s.log)
	var results []BookingReconciliation
	for i := range bookings {
		booking := &bookings[i]
		rows := byBooking[booking.ID]
		detections := s.detectAll(booking, rows)
		rec, bookingIssues := comparator.CompareBooking(ctx, booking, rows, agg, detections)
		results = append(results, rec)
		issues = append(issues, bookingIssues...)
	}

	return BuildPortfolioReport(schoolID, from, to, results, agg.Records(), stats, issues), nil
}

// PaymentDetection pairs one payment with its test-traffic classification.
type PaymentDetection struct {
	PaymentID uuid.UUID         `json:"payment_id"`
	Result    testdetect.Result `json:"result"`
}

// BookingVerification is the single-booking report for ad hoc checks.
type BookingVerification struct {
	Reconciliation BookingReconciliation `json:"reconciliation"`
	Detections     []PaymentDetection    `json:"detections"`
	Issues         []Issue               `json:"issues"`
}

// ReconcileBooking verifies one booking against the gateway, deriving the
// fetch window from the booking's own payments.
func (s *Service) ReconcileBooking(ctx context.Context, bookingID uuid.UUID) (*BookingVerification, error) {
	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByBooking(bookingID)
	if err != nil {
		return nil, err
	}

	detections := s.detectAll(booking, payments)
	verification := &BookingVerification{Issues: []Issue{}}
	for i := range payments {
		verification.Detections = append(verification.Detections, PaymentDetection{
			PaymentID: payments[i].ID,
			Result:    detections[payments[i].ID],
		})
	}

	account, err := s.accounts.GetBySchool(booking.SchoolID)
	if errors.Is(err, repository.ErrNotConfigured) {
		verification.Issues = append(verification.Issues, Issue{
			Component: "service",
			Scope:     booking.SchoolID.String(),
			Message:   "no gateway credentials configured",
		})
		comparator := NewComparator(nil, s.log)
		verification.Reconciliation, _ = comparator.CompareBooking(ctx, booking, payments, NewAggregator(), detections)
		return verification, nil
	}
	if err != nil {
		return nil, err
	}

	from, to := paymentWindow(payments)
	client := s.newClient(account)
	fetcher := NewFetcher(client, s.log)
	sought := make(map[string]bool)
	for _, p := range payments {
		if p.Reference != "" {
			sought[p.Reference] = true
		}
	}
	agg, _, issues := fetcher.FetchAggregated(ctx, from, to, defaultResources, sought)
	verification.Issues = append(verification.Issues, issues...)

	comparator := NewComparator(client, s.log)
	rec, bookingIssues := comparator.CompareBooking(ctx, booking, payments, agg, detections)
	verification.Reconciliation = rec
	verification.Issues = append(verification.Issues, bookingIssues...)
	return verification, nil
}

func (s *Service) detectAll(booking *models.Booking, payments []models.Payment) map[uuid.UUID]testdetect.Result {
	detections := make(map[uuid.UUID]testdetect.Result, len(payments))
	for i := range payments {
		detections[payments[i].ID] = s.detector.Evaluate(testdetect.Input{
			Payment:    &payments[i],
			BuyerEmail: booking.ClientEmail,
		})
	}
	return detections
}

// paymentWindow pads the payments' creation span by a day on each side so
// that gateway-side clock skew cannot push a record out of the window.
func paymentWindow(payments []models.Payment) (time.Time, time.Time) {
	if len(payments) == 0 {
		now := time.Now()
		return now.AddDate(0, -1, 0), now
	}
	from, to := payments[0].CreatedAt, payments[0].CreatedAt
	for _, p := range payments[1:] {
		if p.CreatedAt.Before(from) {
			from = p.CreatedAt
		}
		if p.CreatedAt.After(to) {
			to = p.CreatedAt
		}
	}
	return from.AddDate(0, 0, -1), to.AddDate(0, 0, 1)
}

func emptyStats() FetchStats {
	return FetchStats{
		Pages:      make(map[gateway.Resource]int),
		RawRecords: make(map[gateway.Resource]int),
	}
}
