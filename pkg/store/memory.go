package store

import (
	"context"
	"sort"
	"sync"

	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/pkg/models"
)

var _ VersionedStore = (*MemoryStore)(nil)

type recordKey struct {
	symbol    string
	timestamp int64
}

// MemoryStore is a process-local VersionedStore. Its scan order is insertion
// order, so a discovery page holds the oldest writes.
type MemoryStore struct {
	mu      sync.RWMutex
	scan    []recordKey
	history map[string][]models.StockRecord // ascending by timestamp
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{history: make(map[string][]models.StockRecord)}
}

func (m *MemoryStore) Put(ctx context.Context, rec models.StockRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	versions := m.history[rec.Symbol]
	i := sort.Search(len(versions), func(i int) bool { return versions[i].Timestamp >= rec.Timestamp })
	if i < len(versions) && versions[i].Timestamp == rec.Timestamp {
		versions[i] = rec
		return nil
	}

	versions = append(versions, models.StockRecord{})
	copy(versions[i+1:], versions[i:])
	versions[i] = rec
	m.history[rec.Symbol] = versions
	m.scan = append(m.scan, recordKey{symbol: rec.Symbol, timestamp: rec.Timestamp})
	return nil
}

func (m *MemoryStore) QueryLatest(ctx context.Context, symbol string) (*models.StockRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	versions := m.history[symbol]
	if len(versions) == 0 {
		return nil, nil
	}
	latest := versions[len(versions)-1]
	return &latest, nil
}

// QueryHistory treats a non-positive limit as unbounded.
func (m *MemoryStore) QueryHistory(ctx context.Context, symbol string, limit int) ([]models.StockRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	versions := m.history[symbol]
	n := len(versions)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]models.StockRecord, 0, n)
	for i := len(versions) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, versions[i])
	}
	return out, nil
}

func (m *MemoryStore) DiscoverSymbols(ctx context.Context, pageLimit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	page := m.scan
	if pageLimit > 0 && pageLimit < len(page) {
		page = page[:pageLimit]
	}

	seen := make(map[string]bool)
	var symbols []string
	for _, k := range page {
		symbols = distinct(symbols, seen, k.symbol)
	}
	return symbols, nil
}

func (m *MemoryStore) Close() error { return nil }
