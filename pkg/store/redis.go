package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/pkg/models"
)

const (
	historyPrefix = "stock:history:"
	channelPrefix = "prices."
)

// Compile-time check to ensure RedisStore implements VersionedStore
var _ VersionedStore = (*RedisStore)(nil)

// RedisStore keeps one sorted set per symbol, scored by timestamp, whose
// members are JSON-encoded records. Each key expires with its newest record.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func historyKey(symbol string) string { return historyPrefix + symbol }

// Put replaces any member at the same timestamp, drops versions that expired
// by rec.Timestamp, appends the record and publishes it on prices.<symbol> in
// one MULTI/EXEC.
func (r *RedisStore) Put(ctx context.Context, rec models.StockRecord) error {
	member, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPut, err)
	}
	update, err := json.Marshal(rec.Update())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPut, err)
	}

	key := historyKey(rec.Symbol)
	ts := strconv.FormatInt(rec.Timestamp, 10)
	// Versions stamped at or before this score have expireAt <= rec.Timestamp.
	expired := strconv.FormatInt(rec.Timestamp-int64(models.Retention.Seconds()), 10)

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, ts, ts)
		pipe.ZRemRangeByScore(ctx, key, "-inf", expired)
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(rec.Timestamp), Member: member})
		pipe.ExpireAt(ctx, key, time.Unix(rec.ExpireAt, 0))
		pipe.Publish(ctx, channelPrefix+rec.Symbol, update)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPut, err)
	}
	return nil
}

func (r *RedisStore) QueryLatest(ctx context.Context, symbol string) (*models.StockRecord, error) {
	records, err := r.QueryHistory(ctx, symbol, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func (r *RedisStore) QueryHistory(ctx context.Context, symbol string, limit int) ([]models.StockRecord, error) {
	stop := int64(limit) - 1
	if limit <= 0 {
		stop = -1
	}

	members, err := r.client.ZRevRange(ctx, historyKey(symbol), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}

	records := make([]models.StockRecord, 0, len(members))
	for _, m := range members {
		var rec models.StockRecord
		if err := json.Unmarshal([]byte(m), &rec); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", ErrQuery, symbol, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// DiscoverSymbols issues a single SCAN. COUNT is a hint to Redis, and the
// cursor is never followed, so large keyspaces are only partially seen.
// Without a pageLimit COUNT is omitted and the server default applies.
func (r *RedisStore) DiscoverSymbols(ctx context.Context, pageLimit int) ([]string, error) {
	var count int64
	if pageLimit > 0 {
		count = int64(pageLimit)
	}
	keys, _, err := r.client.Scan(ctx, 0, historyPrefix+"*", count).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiscover, err)
	}

	seen := make(map[string]bool)
	var symbols []string
	for _, k := range keys {
		symbols = distinct(symbols, seen, strings.TrimPrefix(k, historyPrefix))
	}
	return symbols, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
