package reconciliation

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Issue is one structured failure surfaced in the report instead of being
// raised to the caller.
type Issue struct {
	Component string `json:"component"`
	Scope     string `json:"scope"`
	Message   string `json:"message"`
}

// Booking classification buckets.
const (
	ClassProduction = "production"
	ClassTest       = "test"
	ClassCancelled  = "cancelled"
)

// Comparison issue tags.
const (
	IssueMissingExternal     = "missing_external"
	IssueAmountMismatch      = "amount_mismatch"
	IssueStatusMismatch      = "status_mismatch"
	IssueNormalizedReference = "matched_via_normalized_reference"
	IssueSnapshotLookup      = "matched_via_snapshot_lookup"
	IssueTestSkipped         = "test_transaction_skipped"
)

// ComparisonResult is the verdict for one reference of one booking.
type ComparisonResult struct {
	Reference      string           `json:"reference"`
	Found          bool             `json:"found"`
	InternalAmount decimal.Decimal  `json:"internal_amount"`
	ExternalAmount *decimal.Decimal `json:"external_amount,omitempty"`
	AmountMatch    bool             `json:"amount_match"`
	StatusMatch    bool             `json:"status_match"`
	Issues         []string         `json:"issues,omitempty"`

	// reference actually claimed in the aggregated map, when it differs
	// from the internal spelling (normalized-key match)
	matchedRef string
}

func (r *ComparisonResult) hasIssue(tag string) bool {
	for _, t := range r.Issues {
		if t == tag {
			return true
		}
	}
	return false
}

type BookingReconciliation struct {
	BookingID      uuid.UUID          `json:"booking_id"`
	Classification string             `json:"classification"`
	InternalTotal  decimal.Decimal    `json:"internal_total"`
	ExternalTotal  decimal.Decimal    `json:"external_total"`
	Discrepancy    decimal.Decimal    `json:"discrepancy"`
	HasDiscrepancy bool               `json:"has_discrepancy"`
	Results        []ComparisonResult `json:"results"`
}

// discrepancyEpsilon absorbs rounding noise between the two ledgers.
var discrepancyEpsilon = decimal.NewFromFloat(0.01)

type BucketTotals struct {
	Bookings          int             `json:"bookings"`
	InternalAmount    decimal.Decimal `json:"internal_amount"`
	ExternalAmount    decimal.Decimal `json:"external_amount"`
	Discrepancies     int             `json:"discrepancies"`
	DiscrepancyAmount decimal.Decimal `json:"discrepancy_amount"`
}

type PortfolioReport struct {
	SchoolID            uuid.UUID                `json:"school_id"`
	From                time.Time                `json:"from"`
	To                  time.Time                `json:"to"`
	Buckets             map[string]*BucketTotals `json:"buckets"`
	Bookings            []BookingReconciliation  `json:"bookings"`
	MissingTransactions int                      `json:"missing_transactions"`
	Orphans             []*AggregatedExternal    `json:"orphans"`
	Stats               FetchStats               `json:"fetch_stats"`
	Issues              []Issue                  `json:"issues"`
}

// BuildPortfolioReport rolls booking verdicts and the aggregated external map
// into the portfolio view: per-bucket totals, missing-transaction count, and
// the orphan references no booking ever claimed.
func BuildPortfolioReport(
	schoolID uuid.UUID,
	from, to time.Time,
	bookings []BookingReconciliation,
	aggregated map[string]*AggregatedExternal,
	stats FetchStats,
	issues []Issue,
) *PortfolioReport {
	report := &PortfolioReport{
		SchoolID: schoolID,
		From:     from,
		To:       to,
		Buckets: map[string]*BucketTotals{
			ClassProduction: {},
			ClassTest:       {},
			ClassCancelled:  {},
		},
		Bookings: bookings,
		Stats:    stats,
		Issues:   issues,
	}
	if report.Issues == nil {
		report.Issues = []Issue{}
	}

	claimed := make(map[string]bool)
	for i := range bookings {
		b := &bookings[i]
		bucket, ok := report.Buckets[b.Classification]
		if !ok {
			bucket = report.Buckets[ClassProduction]
		}
		bucket.Bookings++
		bucket.InternalAmount = bucket.InternalAmount.Add(b.InternalTotal)
		bucket.ExternalAmount = bucket.ExternalAmount.Add(b.ExternalTotal)
		if b.HasDiscrepancy {
			bucket.Discrepancies++
			bucket.DiscrepancyAmount = bucket.DiscrepancyAmount.Add(b.Discrepancy.Abs())
		}

		for j := range b.Results {
			res := &b.Results[j]
			claimed[res.Reference] = true
			if res.matchedRef != "" {
				claimed[res.matchedRef] = true
			}
			if !res.Found && !res.hasIssue(IssueTestSkipped) {
				report.MissingTransactions++
			}
		}
	}

	for ref, agg := range aggregated {
		if !claimed[ref] {
			report.Orphans = append(report.Orphans, agg)
		}
	}
	sort.Slice(report.Orphans, func(i, j int) bool {
		return report.Orphans[i].Reference < report.Orphans[j].Reference
	})

	return report
}
