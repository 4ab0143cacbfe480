package reconciliation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking-payments-backend/internal/gateway"
)

func TestAggregator_SumsByReference(t *testing.T) {
	agg := NewAggregator()
	first := paidRecord(1, "REF-42", 5000, inWindow)
	second := paidRecord(2, "REF-42", 3000, inWindow.Add(time.Hour))

	agg.Add(&first, inWindow)
	agg.Add(&second, inWindow.Add(time.Hour))

	rec := agg.Records()["REF-42"]
	require.NotNil(t, rec)
	assert.True(t, rec.Amount.Equal(decimalFromString(t, "80.00")))
	assert.Equal(t, inWindow.Add(time.Hour), rec.LastSeen)
	assert.Len(t, rec.RecordIDs, 2)
}

func TestAggregator_Idempotent(t *testing.T) {
	agg := NewAggregator()
	rec := paidRecord(1, "REF-42", 5000, inWindow)

	agg.Add(&rec, inWindow)
	agg.Add(&rec, inWindow) // same raw identity again, e.g. returned by two resource kinds

	got := agg.Records()["REF-42"]
	require.NotNil(t, got)
	assert.True(t, got.Amount.Equal(decimalFromString(t, "50.00")))
	assert.Len(t, got.RecordIDs, 1)
}

func TestAggregator_SameIDAcrossResourcesCountsOncePerResource(t *testing.T) {
	agg := NewAggregator()
	tx := paidRecord(1, "REF-42", 5000, inWindow)
	inv := paidRecord(1, "REF-42", 5000, inWindow)
	inv.Resource = gateway.ResourceInvoice

	agg.Add(&tx, inWindow)
	agg.Add(&inv, inWindow)

	// different resource kinds are distinct raw records even with equal ids
	assert.Len(t, agg.Records()["REF-42"].RecordIDs, 2)
}

func TestAggregator_ExcludesNonCountable(t *testing.T) {
	agg := NewAggregator()
	paid := paidRecord(1, "REF-42", 5000, inWindow)
	refunded := paidRecord(2, "REF-42", 500, inWindow)
	refunded.Status = "refunded"

	agg.Add(&paid, inWindow)
	agg.Add(&refunded, inWindow)

	got := agg.Records()["REF-42"]
	require.NotNil(t, got)
	assert.True(t, got.Amount.Equal(decimalFromString(t, "50.00")))
	assert.Len(t, got.RecordIDs, 1)
}

func TestAggregator_RepresentativeTimestampIsMax(t *testing.T) {
	agg := NewAggregator()
	later := paidRecord(1, "REF-42", 5000, inWindow.Add(2*time.Hour))
	earlier := paidRecord(2, "REF-42", 3000, inWindow)

	agg.Add(&later, inWindow.Add(2*time.Hour))
	agg.Add(&earlier, inWindow) // earlier record must not move the timestamp back

	assert.Equal(t, inWindow.Add(2*time.Hour), agg.Records()["REF-42"].LastSeen)
}
