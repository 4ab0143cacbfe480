package reconciliation

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"booking-payments-backend/internal/gateway"
)

// GatewayClient is the slice of the gateway API the engine consumes.
type GatewayClient interface {
	ListPage(ctx context.Context, resource gateway.Resource, offset, limit int) ([]gateway.Record, error)
	GetTransaction(ctx context.Context, id int64) (*gateway.Record, error)
}

// maxPagesPerResource bounds a runaway collection that never returns a short
// page. 50 pages of 100 records is far beyond any school's monthly volume.
const maxPagesPerResource = 50

type FetchStats struct {
	Pages      map[gateway.Resource]int `json:"pages"`
	RawRecords map[gateway.Resource]int `json:"raw_records"`
}

type Fetcher struct {
	client GatewayClient
	log    *logrus.Logger
}

func NewFetcher(client GatewayClient, log *logrus.Logger) *Fetcher {
	return &Fetcher{client: client, log: log}
}

// FetchAggregated pages through the given resource kinds within [from, to]
// and folds every usable record into a fresh Aggregator. The first resource
// is always fetched in full; later ones are fallbacks, consulted only while
// some sought reference is still unresolved. Page failures abort the failing
// resource only — everything already collected stays in the result.
func (f *Fetcher) FetchAggregated(
	ctx context.Context,
	from, to time.Time,
	resources []gateway.Resource,
	sought map[string]bool,
) (*Aggregator, FetchStats, []Issue) {
	agg := NewAggregator()
	stats := FetchStats{
		Pages:      make(map[gateway.Resource]int),
		RawRecords: make(map[gateway.Resource]int),
	}
	var issues []Issue

	for i, resource := range resources {
		if i > 0 && allResolved(agg, sought) {
			break
		}
		if err := f.fetchResource(ctx, resource, from, to, agg, &stats); err != nil {
			f.log.WithFields(logrus.Fields{
				"component": "fetcher",
				"resource":  resource,
			}).WithError(err).Warn("resource pagination aborted")
			issues = append(issues, Issue{
				Component: "fetcher",
				Scope:     string(resource),
				Message:   err.Error(),
			})
		}
	}

	return agg, stats, issues
}

func (f *Fetcher) fetchResource(
	ctx context.Context,
	resource gateway.Resource,
	from, to time.Time,
	agg *Aggregator,
	stats *FetchStats,
) error {
	offset := 0
	for page := 0; page < maxPagesPerResource; page++ {
		records, err := f.client.ListPage(ctx, resource, offset, gateway.MaxPageSize)
		if err != nil {
			return err
		}
		stats.Pages[resource]++
		stats.RawRecords[resource] += len(records)

		for i := range records {
			rec := &records[i]
			if rec.ReferenceID == "" {
				f.log.WithFields(logrus.Fields{
					"component": "fetcher",
					"resource":  resource,
					"record_id": rec.ID,
				}).Warn("record without reference skipped")
				continue
			}
			ts, ok := gateway.ResolveCreatedAt(rec)
			if !ok {
				f.log.WithFields(logrus.Fields{
					"component": "fetcher",
					"resource":  resource,
					"record_id": rec.ID,
				}).Debug("record without resolvable timestamp skipped")
				continue
			}
			if ts.Before(from) || ts.After(to) {
				continue
			}
			agg.Add(rec, ts)
		}

		if len(records) < gateway.MaxPageSize {
			return nil
		}
		offset += gateway.MaxPageSize
	}

	f.log.WithFields(logrus.Fields{
		"component": "fetcher",
		"resource":  resource,
	}).Warn("page safety cap reached before end of collection")
	return nil
}

func allResolved(agg *Aggregator, sought map[string]bool) bool {
	if len(sought) == 0 {
		return false
	}
	for ref := range sought {
		if !agg.Has(ref) {
			return false
		}
	}
	return true
}
