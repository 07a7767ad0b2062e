// Package store holds the versioned stock table and its backends.
//
// Every backend keeps an append-only history per symbol keyed by
// (symbol, timestamp) and answers three reads: the latest version of a
// symbol, a bounded most-recent-first history, and a bounded scan that
// discovers symbol identifiers. The scan is deliberately a single page:
// symbols that do not appear in it are not discovered.
package store

import (
	"context"
	"errors"

	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/pkg/models"
)

var (
	ErrPut      = errors.New("store put failed")
	ErrQuery    = errors.New("store query failed")
	ErrDiscover = errors.New("store symbol discovery failed")
)

type VersionedStore interface {
	// Put appends a version. A second write with the same (symbol, timestamp) overwrites the first.
	Put(ctx context.Context, rec models.StockRecord) error

	// QueryLatest returns the most recent version of symbol, or nil when it has none.
	QueryLatest(ctx context.Context, symbol string) (*models.StockRecord, error)

	// QueryHistory returns up to limit versions of symbol, most recent first.
	// A non-positive limit returns every version.
	QueryHistory(ctx context.Context, symbol string, limit int) ([]models.StockRecord, error)

	// DiscoverSymbols scans one page of at most pageLimit records and returns the
	// distinct symbols seen, in scan order. A non-positive pageLimit drops the
	// record bound but still reads a single page.
	DiscoverSymbols(ctx context.Context, pageLimit int) ([]string, error)

	Close() error
}

// distinct appends s to seen/out unless already present.
func distinct(out []string, seen map[string]bool, s string) []string {
	if s == "" || seen[s] {
		return out
	}
	seen[s] = true
	return append(out, s)
}
