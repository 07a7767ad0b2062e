package store_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/pkg/store"
)

type execCall struct {
	sql  string
	args []any
}

// fakePgx records Exec and Query calls. QueryRow replays a scan function and
// Query replays rows.
type fakePgx struct {
	execs    []execCall
	queries  []execCall
	execErr  error
	queryErr error
	row      func(dest ...any) error
	rows     [][]any
}

func (f *fakePgx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakePgx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.queries = append(f.queries, execCall{sql: sql, args: args})
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &fakeRows{rows: f.rows, i: -1}, nil
}

func (f *fakePgx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return rowFunc(f.row)
}

type rowFunc func(dest ...any) error

func (r rowFunc) Scan(dest ...any) error { return r(dest...) }

type fakeRows struct {
	rows [][]any
	i    int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.rows[r.i], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.i++
	return r.i < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.i]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, v := range row {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *int64:
			*d = v.(int64)
		default:
			return fmt.Errorf("scan: unsupported destination %T", dest[i])
		}
	}
	return nil
}

func TestPostgresStore_PutUpsertsThenPurges(t *testing.T) {
	db := &fakePgx{}
	s := store.NewPostgresStore(db)

	if err := s.Put(context.Background(), rec("AAPL", 1700000000, "101.23")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if len(db.execs) != 2 {
		t.Fatalf("Expected 2 statements, got %d", len(db.execs))
	}
	if !strings.Contains(db.execs[0].sql, "ON CONFLICT (stock_id, ts)") {
		t.Errorf("Expected upsert on (stock_id, ts), got %s", db.execs[0].sql)
	}
	if db.execs[0].args[2] != "101.23" {
		t.Errorf("Expected price passed as exact text, got %v", db.execs[0].args[2])
	}
	if !strings.HasPrefix(strings.TrimSpace(db.execs[1].sql), "DELETE FROM stock_prices") {
		t.Errorf("Expected purge of expired rows, got %s", db.execs[1].sql)
	}
}

func TestPostgresStore_QueryLatestNoRows(t *testing.T) {
	db := &fakePgx{row: func(dest ...any) error { return pgx.ErrNoRows }}
	s := store.NewPostgresStore(db)

	latest, err := s.QueryLatest(context.Background(), "NOPE")
	if err != nil || latest != nil {
		t.Errorf("Expected nil, nil, got %v, %v", latest, err)
	}
}

func TestPostgresStore_QueryLatestScansDecimal(t *testing.T) {
	db := &fakePgx{row: func(dest ...any) error {
		*dest[0].(*string) = "AAPL"
		*dest[1].(*int64) = 1700000000
		*dest[2].(*string) = "99.90"
		*dest[3].(*int64) = 1702592000
		return nil
	}}
	s := store.NewPostgresStore(db)

	latest, err := s.QueryLatest(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("QueryLatest failed: %v", err)
	}
	if latest.Symbol != "AAPL" || latest.Price.String() != "99.9" {
		t.Errorf("Unexpected record %+v", latest)
	}
}

func TestPostgresStore_ErrorsAreWrapped(t *testing.T) {
	db := &fakePgx{
		execErr:  errors.New("connection reset"),
		queryErr: errors.New("connection reset"),
		row:      func(dest ...any) error { return errors.New("connection reset") },
	}
	s := store.NewPostgresStore(db)
	ctx := context.Background()

	if err := s.Put(ctx, rec("AAPL", 1, "1")); !errors.Is(err, store.ErrPut) {
		t.Errorf("Expected ErrPut, got %v", err)
	}
	if _, err := s.QueryLatest(ctx, "AAPL"); !errors.Is(err, store.ErrQuery) {
		t.Errorf("Expected ErrQuery, got %v", err)
	}
	if _, err := s.DiscoverSymbols(ctx, 100); !errors.Is(err, store.ErrDiscover) {
		t.Errorf("Expected ErrDiscover, got %v", err)
	}
}

func TestPostgresStore_QueryHistoryNewestFirst(t *testing.T) {
	db := &fakePgx{rows: [][]any{
		{"AAPL", int64(1700000120), "102.00", int64(1702592120)},
		{"AAPL", int64(1700000060), "101.50", int64(1702592060)},
		{"AAPL", int64(1700000000), "100.00", int64(1702592000)},
	}}
	s := store.NewPostgresStore(db)

	history, err := s.QueryHistory(context.Background(), "AAPL", 100)
	if err != nil {
		t.Fatalf("QueryHistory failed: %v", err)
	}

	q := db.queries[0]
	if !strings.Contains(q.sql, "ORDER BY ts DESC") {
		t.Errorf("Expected descending order, got %s", q.sql)
	}
	if q.args[0] != "AAPL" || q.args[1] != 100 {
		t.Errorf("Expected args [AAPL 100], got %v", q.args)
	}

	if len(history) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i-1].Timestamp <= history[i].Timestamp {
			t.Errorf("History not newest first at %d", i)
		}
	}
	if history[1].Price.String() != "101.5" {
		t.Errorf("Expected 101.5, got %s", history[1].Price)
	}
}

func TestPostgresStore_QueryHistoryEmpty(t *testing.T) {
	s := store.NewPostgresStore(&fakePgx{})

	history, err := s.QueryHistory(context.Background(), "NOPE", 100)
	if err != nil {
		t.Fatalf("QueryHistory failed: %v", err)
	}
	if history == nil || len(history) != 0 {
		t.Errorf("Expected empty non-nil history, got %v", history)
	}
}

func TestPostgresStore_DiscoverDedupes(t *testing.T) {
	db := &fakePgx{rows: [][]any{{"AAPL"}, {"MSFT"}, {"AAPL"}}}
	s := store.NewPostgresStore(db)

	symbols, err := s.DiscoverSymbols(context.Background(), 100)
	if err != nil {
		t.Fatalf("DiscoverSymbols failed: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "AAPL" || symbols[1] != "MSFT" {
		t.Errorf("Expected [AAPL MSFT], got %v", symbols)
	}

	q := db.queries[0]
	if !strings.Contains(q.sql, "LIMIT $1") || q.args[0] != 100 {
		t.Errorf("Expected page bound 100, got %v in %s", q.args, q.sql)
	}
}

func TestPostgresStore_NonPositiveLimitIsNull(t *testing.T) {
	db := &fakePgx{}
	s := store.NewPostgresStore(db)
	ctx := context.Background()

	if _, err := s.QueryHistory(ctx, "AAPL", 0); err != nil {
		t.Fatalf("QueryHistory failed: %v", err)
	}
	if _, err := s.DiscoverSymbols(ctx, -1); err != nil {
		t.Fatalf("DiscoverSymbols failed: %v", err)
	}

	if db.queries[0].args[1] != nil {
		t.Errorf("Expected NULL history bound, got %v", db.queries[0].args[1])
	}
	if db.queries[1].args[0] != nil {
		t.Errorf("Expected NULL discovery bound, got %v", db.queries[1].args[0])
	}
}
