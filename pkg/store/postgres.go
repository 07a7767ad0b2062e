package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/pkg/models"
)

// PgxQuerier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS stock_prices (
		stock_id  TEXT           NOT NULL,
		ts        BIGINT         NOT NULL,
		price     NUMERIC(14, 2) NOT NULL,
		expire_at BIGINT         NOT NULL,
		PRIMARY KEY (stock_id, ts)
	)
`

var _ VersionedStore = (*PostgresStore)(nil)

// PostgresStore keeps versions in stock_prices. Expired rows of a symbol are
// deleted whenever that symbol is written.
type PostgresStore struct {
	db   PgxQuerier
	pool *pgxpool.Pool
}

func NewPostgresStore(db PgxQuerier) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresPool connects, pings and ensures the table exists.
func NewPostgresPool(ctx context.Context, url string, maxConns int32) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{db: pool, pool: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create stock_prices: %w", err)
	}
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, rec models.StockRecord) error {
	query := `
		INSERT INTO stock_prices (stock_id, ts, price, expire_at)
		VALUES ($1, $2, $3::numeric, $4)
		ON CONFLICT (stock_id, ts) DO UPDATE
		SET price = EXCLUDED.price, expire_at = EXCLUDED.expire_at
	`
	if _, err := s.db.Exec(ctx, query, rec.Symbol, rec.Timestamp, rec.Price.String(), rec.ExpireAt); err != nil {
		return fmt.Errorf("%w: %v", ErrPut, err)
	}

	purge := `DELETE FROM stock_prices WHERE stock_id = $1 AND expire_at <= $2`
	if _, err := s.db.Exec(ctx, purge, rec.Symbol, rec.Timestamp); err != nil {
		return fmt.Errorf("%w: purge expired: %v", ErrPut, err)
	}
	return nil
}

func (s *PostgresStore) QueryLatest(ctx context.Context, symbol string) (*models.StockRecord, error) {
	query := `
		SELECT stock_id, ts, price::text, expire_at
		FROM stock_prices
		WHERE stock_id = $1
		ORDER BY ts DESC
		LIMIT 1
	`

	rec, err := scanRecord(s.db.QueryRow(ctx, query, symbol))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	return &rec, nil
}

func (s *PostgresStore) QueryHistory(ctx context.Context, symbol string, limit int) ([]models.StockRecord, error) {
	query := `
		SELECT stock_id, ts, price::text, expire_at
		FROM stock_prices
		WHERE stock_id = $1
		ORDER BY ts DESC
		LIMIT $2
	`
	rows, err := s.db.Query(ctx, query, symbol, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	defer rows.Close()

	records := []models.StockRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrQuery, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	return records, nil
}

// DiscoverSymbols reads the first pageLimit rows in heap order, mirroring a
// single-page table scan.
func (s *PostgresStore) DiscoverSymbols(ctx context.Context, pageLimit int) ([]string, error) {
	query := `
		SELECT DISTINCT page.stock_id
		FROM (SELECT stock_id FROM stock_prices LIMIT $1) AS page
	`
	rows, err := s.db.Query(ctx, query, limitArg(pageLimit))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiscover, err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var symbols []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDiscover, err)
		}
		symbols = distinct(symbols, seen, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiscover, err)
	}
	return symbols, nil
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// limitArg maps a non-positive limit to NULL, which Postgres treats as LIMIT ALL.
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

func scanRecord(row pgx.Row) (models.StockRecord, error) {
	var (
		rec   models.StockRecord
		price string
	)
	if err := row.Scan(&rec.Symbol, &rec.Timestamp, &price, &rec.ExpireAt); err != nil {
		return models.StockRecord{}, err
	}

	d, err := decimal.NewFromString(price)
	if err != nil {
		return models.StockRecord{}, fmt.Errorf("price %q: %w", price, err)
	}
	rec.Price = d
	return rec, nil
}
