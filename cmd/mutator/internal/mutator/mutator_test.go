package mutator_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/cmd/mutator/internal/mutator"
	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/cmd/mutator/internal/testutils"
	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/pkg/models"
	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/pkg/store"
)

var epoch = time.Unix(1700000000, 0)

type fixture struct {
	store     *testutils.FlakyStore
	flusher   *testutils.MockFlusher
	publisher *testutils.MockPublisher
	clock     *testutils.MockClock
}

func setup(symbols []string, rnd mutator.Rand) (*mutator.Mutator, *fixture) {
	f := &fixture{
		store:     testutils.NewFlakyStore(store.NewMemoryStore()),
		flusher:   &testutils.MockFlusher{Result: true},
		publisher: &testutils.MockPublisher{},
		clock:     &testutils.MockClock{CurrentTime: epoch},
	}
	m := mutator.NewMutator(zap.NewNop(), f.store, f.flusher, f.publisher, symbols, rnd, f.clock)
	return m, f
}

func summary(t *testing.T, res mutator.Result) mutator.Summary {
	t.Helper()
	s, ok := res.Body.(mutator.Summary)
	if !ok {
		t.Fatalf("Expected Summary body, got %T (%v)", res.Body, res.Body)
	}
	return s
}

func TestMutator_NoHistoryUsesBaseline(t *testing.T) {
	symbols := []string{"AAPL", "MSFT", "GOOGL"}
	m, f := setup(symbols, &testutils.MockRand{ValFloat: 0.5})

	res := m.Run(context.Background())

	if res.StatusCode != 200 {
		t.Fatalf("Expected 200, got %d", res.StatusCode)
	}
	s := summary(t, res)
	if s.Status != "success" || s.Updated != 3 || !s.CacheInvalidated {
		t.Errorf("Unexpected summary %+v", s)
	}
	if s.Timestamp != epoch.Unix() {
		t.Errorf("Expected timestamp %d, got %d", epoch.Unix(), s.Timestamp)
	}

	for _, sym := range symbols {
		latest, _ := f.store.QueryLatest(context.Background(), sym)
		if latest == nil {
			t.Fatalf("No record written for %s", sym)
		}
		if !latest.Price.Equal(mutator.BaselinePrice) {
			t.Errorf("%s: expected baseline 100.00, got %s", sym, latest.Price)
		}
		if latest.Timestamp != epoch.Unix() || latest.ExpireAt != epoch.Add(models.Retention).Unix() {
			t.Errorf("%s: unexpected timestamps %d/%d", sym, latest.Timestamp, latest.ExpireAt)
		}
	}
}

func TestMutator_MovesFromPriorPrice(t *testing.T) {
	// (0.75 * 0.1) - 0.05 = +2.5%
	m, f := setup([]string{"TSLA"}, &testutils.MockRand{ValFloat: 0.75})
	ctx := context.Background()
	f.store.Put(ctx, models.NewStockRecord("TSLA", decimal.RequireFromString("200.00"), epoch.Add(-time.Minute)))

	m.Run(ctx)

	history, _ := f.store.QueryHistory(ctx, "TSLA", 100)
	if len(history) != 2 {
		t.Fatalf("Expected 2 versions, got %d", len(history))
	}
	if !history[0].Price.Equal(decimal.RequireFromString("205.00")) {
		t.Errorf("Expected 205.00, got %s", history[0].Price)
	}
	if !history[1].Price.Equal(decimal.RequireFromString("200.00")) {
		t.Errorf("Prior version must be untouched, got %s", history[1].Price)
	}
}

func TestMutator_ReadFailureFallsBackAndContinues(t *testing.T) {
	m, f := setup([]string{"AAPL", "MSFT"}, &testutils.MockRand{ValFloat: 0.5})
	ctx := context.Background()
	f.store.VersionedStore.Put(ctx, models.NewStockRecord("AAPL", decimal.RequireFromString("300.00"), epoch.Add(-time.Minute)))
	f.store.QueryErr["AAPL"] = errors.New("read timeout")

	res := m.Run(ctx)

	if res.StatusCode != 200 {
		t.Fatalf("Read failure must not be fatal, got %d", res.StatusCode)
	}
	if summary(t, res).Updated != 2 {
		t.Errorf("Expected both symbols updated")
	}
	if len(f.store.Puts) != 2 || !f.store.Puts[0].Price.Equal(mutator.BaselinePrice) {
		t.Errorf("Expected AAPL written from baseline, got %+v", f.store.Puts)
	}
}

func TestMutator_WriteFailureIsFatal(t *testing.T) {
	m, f := setup([]string{"AAPL", "MSFT", "GOOGL"}, &testutils.MockRand{ValFloat: 0.5})
	f.store.PutErr["MSFT"] = errors.New("provisioned throughput exceeded")

	res := m.Run(context.Background())

	if res.StatusCode != 500 {
		t.Fatalf("Expected 500, got %d", res.StatusCode)
	}
	failure, ok := res.Body.(mutator.Failure)
	if !ok || !strings.Contains(failure.Error, "provisioned throughput exceeded") {
		t.Errorf("Expected failure carrying the store error, got %+v", res.Body)
	}
	if f.flusher.Calls != 0 {
		t.Error("Cache must not be flushed after a fatal failure")
	}
	if len(f.store.Puts) != 1 || f.store.Puts[0].Symbol != "AAPL" {
		t.Errorf("Expected only AAPL written before the failure, got %+v", f.store.Puts)
	}
}

func TestMutator_FlushFailureIsReportedNotFatal(t *testing.T) {
	m, f := setup([]string{"AAPL"}, &testutils.MockRand{ValFloat: 0.5})
	f.flusher.Result = false

	res := m.Run(context.Background())

	if res.StatusCode != 200 {
		t.Fatalf("Expected 200, got %d", res.StatusCode)
	}
	if summary(t, res).CacheInvalidated {
		t.Error("Expected cache_invalidated false")
	}
	if f.flusher.Calls != 1 {
		t.Errorf("Expected one flush attempt, got %d", f.flusher.Calls)
	}
}

func TestMutator_PublishesEachUpdate(t *testing.T) {
	m, f := setup([]string{"AAPL", "MSFT"}, &testutils.MockRand{ValFloat: 0.5})

	m.Run(context.Background())

	if len(f.publisher.Records) != 2 {
		t.Fatalf("Expected 2 published records, got %d", len(f.publisher.Records))
	}
	if f.publisher.Records[1].Symbol != "MSFT" {
		t.Errorf("Expected MSFT second, got %s", f.publisher.Records[1].Symbol)
	}
}

func TestMutator_PublishFailureIsNotFatal(t *testing.T) {
	m, f := setup([]string{"AAPL"}, &testutils.MockRand{ValFloat: 0.5})
	f.publisher.ShouldFail = true

	if res := m.Run(context.Background()); res.StatusCode != 200 {
		t.Errorf("Expected 200 despite feed failure, got %d", res.StatusCode)
	}
}

func TestMutator_NilPublisher(t *testing.T) {
	st := store.NewMemoryStore()
	m := mutator.NewMutator(zap.NewNop(), st, &testutils.MockFlusher{}, nil,
		[]string{"AAPL"}, &testutils.MockRand{ValFloat: 0.5}, &testutils.MockClock{CurrentTime: epoch})

	if res := m.Run(context.Background()); res.StatusCode != 200 {
		t.Errorf("Expected 200, got %d", res.StatusCode)
	}
}

func TestMutator_ResultJSON(t *testing.T) {
	m, _ := setup([]string{"AAPL"}, &testutils.MockRand{ValFloat: 0.5})

	res, err := m.HandleScheduled(context.Background(), events.CloudWatchEvent{})
	if err != nil {
		t.Fatalf("HandleScheduled failed: %v", err)
	}

	b, _ := json.Marshal(res)
	want := `{"statusCode":200,"body":{"status":"success","updated":1,"cache_invalidated":true,"timestamp":1700000000}}`
	if string(b) != want {
		t.Errorf("JSON mismatch.\nGot:  %s\nWant: %s", b, want)
	}
}

func TestMutator_RepeatedRunsStayInBounds(t *testing.T) {
	rnd := &testutils.SeqRand{Vals: []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0}}
	m, f := setup([]string{"PYPL"}, rnd)
	ctx := context.Background()

	// Ten straight -5% moves from 100 would reach ~59.87; the floor is never crossed.
	for i := 0; i < 10; i++ {
		f.clock.CurrentTime = f.clock.CurrentTime.Add(time.Minute)
		m.Run(ctx)
	}

	history, _ := f.store.QueryHistory(ctx, "PYPL", 100)
	if len(history) != 10 {
		t.Fatalf("Expected 10 versions, got %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if !history[i-1].Price.LessThan(history[i].Price) {
			t.Errorf("Expected falling prices, got %s after %s", history[i-1].Price, history[i].Price)
		}
		if history[i].Price.LessThan(mutator.FloorPrice) {
			t.Errorf("Price below floor: %s", history[i].Price)
		}
	}
}
