package reconciliation

import (
	"time"

	"github.com/shopspring/decimal"

	"booking-payments-backend/internal/gateway"
)

// AggregatedExternal is the merged view of every countable gateway record
// sharing one business reference.
type AggregatedExternal struct {
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"` // provider status of the latest record
	LastSeen  time.Time       `json:"last_seen"`
	RecordIDs []string        `json:"record_ids"`
}

// Aggregator folds raw gateway records into per-reference totals. One
// instance lives for exactly one pipeline run; the processed set is what
// makes overlapping resource kinds safe to feed in twice.
type Aggregator struct {
	processed map[string]bool
	records   map[string]*AggregatedExternal
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		processed: make(map[string]bool),
		records:   make(map[string]*AggregatedExternal),
	}
}

// Add folds one raw record observed at ts into the aggregate. Records whose
// status is not countable, and records already processed under the same raw
// identity, are ignored.
func (a *Aggregator) Add(rec *gateway.Record, ts time.Time) {
	if !MapProviderStatus(rec.Status, nil).Countable() {
		return
	}
	key := rec.Key()
	if a.processed[key] {
		return
	}
	a.processed[key] = true

	agg, ok := a.records[rec.ReferenceID]
	if !ok {
		a.records[rec.ReferenceID] = &AggregatedExternal{
			Reference: rec.ReferenceID,
			Amount:    rec.AmountDecimal(),
			Status:    rec.Status,
			LastSeen:  ts,
			RecordIDs: []string{key},
		}
		return
	}

	agg.Amount = agg.Amount.Add(rec.AmountDecimal())
	agg.RecordIDs = append(agg.RecordIDs, key)
	if ts.After(agg.LastSeen) {
		agg.LastSeen = ts
		agg.Status = rec.Status
	}
}

// Records returns the aggregated map keyed by reference.
func (a *Aggregator) Records() map[string]*AggregatedExternal {
	return a.records
}

// Has reports whether a reference has been aggregated so far.
func (a *Aggregator) Has(reference string) bool {
	_, ok := a.records[reference]
	return ok
}
