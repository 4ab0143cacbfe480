package reconciliation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"booking-payments-backend/internal/models"
	"booking-payments-backend/internal/testdetect"
)

// Comparator matches one booking's internal payments against the aggregated
// external map by reference.
type Comparator struct {
	client GatewayClient
	log    *logrus.Logger
}

func NewComparator(client GatewayClient, log *logrus.Logger) *Comparator {
	return &Comparator{client: client, log: log}
}

type referenceGroup struct {
	reference string
	payments  []*models.Payment
	amount    decimal.Decimal
}

// CompareBooking produces per-reference verdicts and the booking rollup,
// plus the structured issues raised by gateway lookups along the way.
// detections carries the per-payment test classifications; a reference whose
// payments are all high-confidence test skips external lookup entirely since
// sandbox charges are not guaranteed to exist in the production ledger.
func (c *Comparator) CompareBooking(
	ctx context.Context,
	booking *models.Booking,
	payments []models.Payment,
	agg *Aggregator,
	detections map[uuid.UUID]testdetect.Result,
) (BookingReconciliation, []Issue) {
	rec := BookingReconciliation{
		BookingID:      booking.ID,
		Classification: classifyBooking(booking, detections),
	}
	var issues []Issue

	groups := groupByReference(payments)
	normalized := normalizedIndex(agg.Records())

	for _, g := range groups {
		rec.InternalTotal = rec.InternalTotal.Add(g.amount)

		result := ComparisonResult{
			Reference:      g.reference,
			InternalAmount: g.amount,
		}

		if allHighConfidenceTest(g.payments, detections) {
			result.Issues = append(result.Issues, IssueTestSkipped)
			rec.Results = append(rec.Results, result)
			continue
		}

		external, providerStatus := c.lookupExternal(ctx, g, agg, normalized, &result, &issues)
		if external == nil {
			result.Issues = append(result.Issues, IssueMissingExternal)
			rec.Results = append(rec.Results, result)
			continue
		}

		result.Found = true
		result.ExternalAmount = external
		result.AmountMatch = g.amount.Sub(*external).Abs().LessThanOrEqual(discrepancyEpsilon)
		result.StatusMatch = statusesMatch(g.payments, providerStatus)
		if !result.AmountMatch {
			result.Issues = append(result.Issues, IssueAmountMismatch)
		}
		if !result.StatusMatch {
			result.Issues = append(result.Issues, IssueStatusMismatch)
		}

		rec.ExternalTotal = rec.ExternalTotal.Add(*external)
		rec.Results = append(rec.Results, result)
	}

	rec.Discrepancy = rec.InternalTotal.Sub(rec.ExternalTotal)
	rec.HasDiscrepancy = rec.Discrepancy.Abs().GreaterThan(discrepancyEpsilon)
	return rec, issues
}

// lookupExternal resolves a reference group against the aggregated map: exact
// key, then case/whitespace-normalized key, then the per-payment snapshot id
// against the gateway's single-record retrieval.
func (c *Comparator) lookupExternal(
	ctx context.Context,
	g referenceGroup,
	agg *Aggregator,
	normalized map[string]*AggregatedExternal,
	result *ComparisonResult,
	issues *[]Issue,
) (*decimal.Decimal, string) {
	if match, ok := agg.Records()[g.reference]; ok {
		return &match.Amount, match.Status
	}

	if match, ok := normalized[normalizeReference(g.reference)]; ok {
		result.matchedRef = match.Reference
		result.Issues = append(result.Issues, IssueNormalizedReference)
		return &match.Amount, match.Status
	}

	return c.snapshotLookup(ctx, g, result, issues)
}

func (c *Comparator) snapshotLookup(ctx context.Context, g referenceGroup, result *ComparisonResult, issues *[]Issue) (*decimal.Decimal, string) {
	if c.client == nil {
		return nil, ""
	}

	total := decimal.Zero
	status := ""
	seen := make(map[int64]bool)
	for _, p := range g.payments {
		idField := p.SnapshotField("id")
		if idField == "" {
			continue
		}
		id, err := strconv.ParseInt(idField, 10, 64)
		if err != nil {
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		rec, err := c.client.GetTransaction(ctx, id)
		if err != nil {
			c.log.WithFields(logrus.Fields{
				"component":      "comparator",
				"reference":      g.reference,
				"transaction_id": id,
			}).WithError(err).Warn("snapshot fallback lookup failed")
			*issues = append(*issues, Issue{
				Component: "comparator",
				Scope:     g.reference,
				Message:   fmt.Sprintf("snapshot lookup for transaction %d failed: %v", id, err),
			})
			continue
		}
		if rec == nil || !MapProviderStatus(rec.Status, nil).Countable() {
			continue
		}
		total = total.Add(rec.AmountDecimal())
		status = rec.Status
	}

	if len(seen) == 0 || status == "" {
		return nil, ""
	}
	result.Issues = append(result.Issues, IssueSnapshotLookup)
	return &total, status
}

func groupByReference(payments []models.Payment) []referenceGroup {
	index := make(map[string]int)
	var groups []referenceGroup
	for i := range payments {
		p := &payments[i]
		gi, ok := index[p.Reference]
		if !ok {
			gi = len(groups)
			index[p.Reference] = gi
			groups = append(groups, referenceGroup{reference: p.Reference})
		}
		groups[gi].payments = append(groups[gi].payments, p)
		groups[gi].amount = groups[gi].amount.Add(p.Amount)
	}
	return groups
}

// statusesMatch holds only when every internal row of the group is
// compatible with the provider status; a lone refunded retry among paid rows
// must not report as compatible.
func statusesMatch(payments []*models.Payment, providerStatus string) bool {
	for _, p := range payments {
		if !StatusMatches(p.Status, providerStatus) {
			return false
		}
	}
	return true
}

func normalizedIndex(records map[string]*AggregatedExternal) map[string]*AggregatedExternal {
	out := make(map[string]*AggregatedExternal, len(records))
	for ref, agg := range records {
		out[normalizeReference(ref)] = agg
	}
	return out
}

func normalizeReference(ref string) string {
	return strings.ToUpper(strings.Join(strings.Fields(ref), ""))
}

func allHighConfidenceTest(payments []*models.Payment, detections map[uuid.UUID]testdetect.Result) bool {
	if len(detections) == 0 {
		return false
	}
	for _, p := range payments {
		d, ok := detections[p.ID]
		if !ok || !d.IsTest || d.Confidence != testdetect.ConfidenceHigh {
			return false
		}
	}
	return true
}

func classifyBooking(booking *models.Booking, detections map[uuid.UUID]testdetect.Result) string {
	for _, d := range detections {
		if d.IsTest {
			return ClassTest
		}
	}
	if booking.IsCancelled() {
		return ClassCancelled
	}
	return ClassProduction
}
