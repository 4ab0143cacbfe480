package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking-payments-backend/internal/gateway"
)

var (
	windowFrom = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	windowTo   = time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)
	inWindow   = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

// fakeClient serves pages out of in-memory slices per resource kind.
type fakeClient struct {
	records map[gateway.Resource][]gateway.Record
	failing map[gateway.Resource]error
	txByID  map[int64]*gateway.Record
	txErr   error
	offsets map[gateway.Resource][]int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		records: make(map[gateway.Resource][]gateway.Record),
		failing: make(map[gateway.Resource]error),
		txByID:  make(map[int64]*gateway.Record),
		offsets: make(map[gateway.Resource][]int),
	}
}

func (f *fakeClient) ListPage(_ context.Context, resource gateway.Resource, offset, limit int) ([]gateway.Record, error) {
	f.offsets[resource] = append(f.offsets[resource], offset)
	if err := f.failing[resource]; err != nil {
		return nil, err
	}
	all := f.records[resource]
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f *fakeClient) GetTransaction(_ context.Context, id int64) (*gateway.Record, error) {
	if f.txErr != nil {
		return nil, f.txErr
	}
	return f.txByID[id], nil
}

func paidRecord(id int64, ref string, cents int64, ts time.Time) gateway.Record {
	return gateway.Record{
		ID:          id,
		ReferenceID: ref,
		Amount:      cents,
		Status:      "confirmed",
		CreatedAt:   ts.Unix(),
		Resource:    gateway.ResourceTransaction,
	}
}

func TestFetcher_PaginationTermination(t *testing.T) {
	client := newFakeClient()
	for i := 0; i < 250; i++ {
		client.records[gateway.ResourceTransaction] = append(
			client.records[gateway.ResourceTransaction],
			paidRecord(int64(i+1), fmt.Sprintf("BK-%d", i+1), 1000, inWindow),
		)
	}

	fetcher := NewFetcher(client, testLogger())
	agg, stats, issues := fetcher.FetchAggregated(context.Background(), windowFrom, windowTo,
		[]gateway.Resource{gateway.ResourceTransaction}, nil)

	assert.Empty(t, issues)
	assert.Equal(t, 3, stats.Pages[gateway.ResourceTransaction])
	assert.Equal(t, 250, stats.RawRecords[gateway.ResourceTransaction])
	assert.Equal(t, []int{0, 100, 200}, client.offsets[gateway.ResourceTransaction])
	assert.Len(t, agg.Records(), 250)
}

func TestFetcher_EmptyCollectionFetchesOnePage(t *testing.T) {
	client := newFakeClient()

	fetcher := NewFetcher(client, testLogger())
	agg, stats, issues := fetcher.FetchAggregated(context.Background(), windowFrom, windowTo,
		[]gateway.Resource{gateway.ResourceTransaction}, nil)

	assert.Empty(t, issues)
	assert.Equal(t, 1, stats.Pages[gateway.ResourceTransaction])
	assert.Empty(t, agg.Records())
}

func TestFetcher_SkipsOutOfWindowAndUnresolvable(t *testing.T) {
	client := newFakeClient()
	tooEarly := windowFrom.Add(-time.Hour)
	client.records[gateway.ResourceTransaction] = []gateway.Record{
		paidRecord(1, "BK-1", 1000, inWindow),
		paidRecord(2, "BK-2", 1000, tooEarly),
		{ID: 3, ReferenceID: "BK-3", Amount: 1000, Status: "confirmed", Resource: gateway.ResourceTransaction}, // no timestamp
		{ID: 4, ReferenceID: "", Amount: 1000, Status: "confirmed", CreatedAt: inWindow.Unix(), Resource: gateway.ResourceTransaction},
	}

	fetcher := NewFetcher(client, testLogger())
	agg, _, _ := fetcher.FetchAggregated(context.Background(), windowFrom, windowTo,
		[]gateway.Resource{gateway.ResourceTransaction}, nil)

	require.Len(t, agg.Records(), 1)
	assert.True(t, agg.Has("BK-1"))
}

func TestFetcher_ResourceFailureIsBestEffort(t *testing.T) {
	client := newFakeClient()
	client.records[gateway.ResourceTransaction] = []gateway.Record{
		paidRecord(1, "BK-1", 1000, inWindow),
	}
	client.failing[gateway.ResourceInvoice] = errors.New("gateway status 502")

	fetcher := NewFetcher(client, testLogger())
	agg, _, issues := fetcher.FetchAggregated(context.Background(), windowFrom, windowTo,
		[]gateway.Resource{gateway.ResourceTransaction, gateway.ResourceInvoice},
		map[string]bool{"BK-1": true, "BK-404": true})

	// data collected before the failing resource survives
	assert.True(t, agg.Has("BK-1"))
	require.Len(t, issues, 1)
	assert.Equal(t, "fetcher", issues[0].Component)
	assert.Equal(t, string(gateway.ResourceInvoice), issues[0].Scope)
}

func TestFetcher_SkipsFallbacksWhenAllReferencesResolved(t *testing.T) {
	client := newFakeClient()
	client.records[gateway.ResourceTransaction] = []gateway.Record{
		paidRecord(1, "BK-1", 1000, inWindow),
	}
	client.records[gateway.ResourceInvoice] = []gateway.Record{
		paidRecord(2, "BK-other", 1000, inWindow),
	}

	fetcher := NewFetcher(client, testLogger())
	_, stats, _ := fetcher.FetchAggregated(context.Background(), windowFrom, windowTo,
		[]gateway.Resource{gateway.ResourceTransaction, gateway.ResourceInvoice},
		map[string]bool{"BK-1": true})

	assert.Zero(t, stats.Pages[gateway.ResourceInvoice])
}

func TestFetcher_ConsultsFallbacksWhileUnresolved(t *testing.T) {
	client := newFakeClient()
	client.records[gateway.ResourceTransaction] = []gateway.Record{
		paidRecord(1, "BK-1", 1000, inWindow),
	}
	invoice := paidRecord(2, "BK-2", 2500, inWindow)
	invoice.Resource = gateway.ResourceInvoice
	client.records[gateway.ResourceInvoice] = []gateway.Record{invoice}

	fetcher := NewFetcher(client, testLogger())
	agg, stats, _ := fetcher.FetchAggregated(context.Background(), windowFrom, windowTo,
		[]gateway.Resource{gateway.ResourceTransaction, gateway.ResourceInvoice},
		map[string]bool{"BK-1": true, "BK-2": true})

	assert.Equal(t, 1, stats.Pages[gateway.ResourceInvoice])
	assert.True(t, agg.Has("BK-2"))
}
