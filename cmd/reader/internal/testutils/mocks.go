package testutils

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/pkg/models"
	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/pkg/store"
)

// FailingStore wraps a real store and injects read failures.
type FailingStore struct {
	store.VersionedStore
	DiscoverErr error
	QueryErr    error
}

func (f *FailingStore) DiscoverSymbols(ctx context.Context, pageLimit int) ([]string, error) {
	if f.DiscoverErr != nil {
		return nil, f.DiscoverErr
	}
	return f.VersionedStore.DiscoverSymbols(ctx, pageLimit)
}

func (f *FailingStore) QueryLatest(ctx context.Context, symbol string) (*models.StockRecord, error) {
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	return f.VersionedStore.QueryLatest(ctx, symbol)
}

func (f *FailingStore) QueryHistory(ctx context.Context, symbol string, limit int) ([]models.StockRecord, error) {
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	return f.VersionedStore.QueryHistory(ctx, symbol, limit)
}

// Seed writes one record per (timestamp, price) pair.
func Seed(ctx context.Context, st store.VersionedStore, symbol string, ts int64, prices ...string) error {
	for i, p := range prices {
		rec := models.StockRecord{
			Symbol:    symbol,
			Timestamp: ts + int64(i),
			Price:     decimal.RequireFromString(p),
			ExpireAt:  ts + int64(i) + int64(models.Retention.Seconds()),
		}
		if err := st.Put(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
