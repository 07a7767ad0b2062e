package mutator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/pkg/models"
	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/pkg/store"
)

// Result is what a run returns to its trigger.
type Result struct {
	StatusCode int         `json:"statusCode"`
	Body       interface{} `json:"body"`
}

type Summary struct {
	Status           string `json:"status"`
	Updated          int    `json:"updated"`
	CacheInvalidated bool   `json:"cache_invalidated"`
	Timestamp        int64  `json:"timestamp"`
}

type Failure struct {
	Error string `json:"error"`
}

// symbolResult is the outcome of one symbol. readErr was absorbed by falling
// back to the baseline price; err aborts the run.
type symbolResult struct {
	symbol   string
	previous decimal.Decimal
	record   models.StockRecord
	readErr  error
	err      error
}

type Mutator struct {
	logger    *zap.Logger
	store     store.VersionedStore
	flusher   Flusher
	publisher Publisher
	symbols   []string
	rand      Rand
	clock     Clock
}

// NewMutator wires a run. publisher may be nil when the price feed is disabled.
func NewMutator(
	logger *zap.Logger,
	st store.VersionedStore,
	flusher Flusher,
	publisher Publisher,
	symbols []string,
	rnd Rand,
	clock Clock,
) *Mutator {
	return &Mutator{
		logger:    logger,
		store:     st,
		flusher:   flusher,
		publisher: publisher,
		symbols:   symbols,
		rand:      rnd,
		clock:     clock,
	}
}

// Run updates every symbol, then flushes the reader cache.
func (m *Mutator) Run(ctx context.Context) Result {
	logger := m.logger.With(zap.String("run_id", uuid.NewString()))
	start := m.clock.Now()

	results, err := m.updateSymbols(ctx, logger, start)
	if err != nil {
		logger.Error("Price update failed", zap.Error(err), zap.Int("completed", len(results)-1))
		return Result{StatusCode: http.StatusInternalServerError, Body: Failure{Error: err.Error()}}
	}

	invalidated := m.flusher.Flush(ctx)

	logger.Info("Run complete",
		zap.Int("updated", len(results)),
		zap.Bool("cache_invalidated", invalidated),
		zap.Duration("took", m.clock.Now().Sub(start)),
	)

	return Result{
		StatusCode: http.StatusOK,
		Body: Summary{
			Status:           "success",
			Updated:          len(results),
			CacheInvalidated: invalidated,
			Timestamp:        m.clock.Now().Unix(),
		},
	}
}

// HandleScheduled is the Lambda entry point for the EventBridge schedule.
func (m *Mutator) HandleScheduled(ctx context.Context, _ events.CloudWatchEvent) (Result, error) {
	return m.Run(ctx), nil
}

// updateSymbols stamps every version of a run with the same time. It stops at
// the first symbol whose write fails.
func (m *Mutator) updateSymbols(ctx context.Context, logger *zap.Logger, now time.Time) ([]symbolResult, error) {
	results := make([]symbolResult, 0, len(m.symbols))

	for _, symbol := range m.symbols {
		res := m.updateSymbol(ctx, symbol, now)
		results = append(results, res)

		if res.readErr != nil {
			logger.Warn("Error getting price, using baseline",
				zap.String("symbol", res.symbol),
				zap.Error(res.readErr),
			)
		}
		if res.err != nil {
			return results, res.err
		}

		logger.Info("Updated",
			zap.String("symbol", res.symbol),
			zap.String("from", res.previous.StringFixed(2)),
			zap.String("to", res.record.Price.StringFixed(2)),
		)
		m.publish(ctx, logger, res.record)
	}

	return results, nil
}

func (m *Mutator) updateSymbol(ctx context.Context, symbol string, now time.Time) symbolResult {
	res := symbolResult{symbol: symbol, previous: BaselinePrice}

	latest, err := m.store.QueryLatest(ctx, symbol)
	switch {
	case err != nil:
		res.readErr = err
	case latest != nil:
		res.previous = latest.Price
	}

	res.record = models.NewStockRecord(symbol, NextPrice(res.previous, m.rand), now)
	if err := m.store.Put(ctx, res.record); err != nil {
		res.err = fmt.Errorf("update %s: %w", symbol, err)
	}
	return res
}

func (m *Mutator) publish(ctx context.Context, logger *zap.Logger, rec models.StockRecord) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, rec); err != nil {
		logger.Warn("Price feed publish failed", zap.String("symbol", rec.Symbol), zap.Error(err))
	}
}
