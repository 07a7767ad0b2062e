package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/cmd/reader/internal/protocol"
	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/pkg/config"
	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/pkg/models"
	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/pkg/store"
)

type Handler struct {
	store          store.VersionedStore
	logger         *zap.Logger
	discoveryLimit int
	historyLimit   int
	cacheMaxAge    time.Duration
}

func NewHandler(st store.VersionedStore, logger *zap.Logger, cfg config.ReaderConfig) *Handler {
	return &Handler{
		store:          st,
		logger:         logger,
		discoveryLimit: cfg.DiscoveryLimit,
		historyLimit:   cfg.HistoryLimit,
		cacheMaxAge:    cfg.CacheMaxAge,
	}
}

// Handle dispatches on resource and method. It never returns an error: every
// failure is already a response.
func (h *Handler) Handle(ctx context.Context, req protocol.Request) protocol.Response {
	switch {
	case req.Resource == protocol.ResourceStocks && req.Method == http.MethodGet:
		return h.listLatest(ctx)
	case req.Resource == protocol.ResourceStock && req.Method == http.MethodGet:
		return h.getHistory(ctx, req.PathParameters[protocol.ParamStockID])
	}
	return h.errorResponse(http.StatusNotFound, "Not found")
}

func (h *Handler) listLatest(ctx context.Context) protocol.Response {
	latest, err := h.ListLatest(ctx)
	if err != nil {
		return h.internalError(err)
	}

	resp := h.jsonResponse(http.StatusOK, models.ToWireList(latest))
	if resp.StatusCode == http.StatusOK {
		resp.Headers["Cache-Control"] = fmt.Sprintf("max-age=%d", int(h.cacheMaxAge.Seconds()))
	}
	return resp
}

func (h *Handler) getHistory(ctx context.Context, stockID string) protocol.Response {
	if stockID == "" {
		return h.errorResponse(http.StatusBadRequest, "stockId is required")
	}

	history, err := h.store.QueryHistory(ctx, stockID, h.historyLimit)
	if err != nil {
		return h.internalError(err)
	}
	if len(history) == 0 {
		return h.errorResponse(http.StatusNotFound, "Stock not found")
	}
	return h.jsonResponse(http.StatusOK, models.ToWireList(history))
}

// ListLatest returns the newest version of every symbol found in one
// discovery page. Symbols outside that page are missing from the result, and
// the order is the order discovery returned them in.
func (h *Handler) ListLatest(ctx context.Context) ([]models.StockRecord, error) {
	symbols, err := h.store.DiscoverSymbols(ctx, h.discoveryLimit)
	if err != nil {
		return nil, err
	}

	latest := make([]models.StockRecord, 0, len(symbols))
	for _, symbol := range symbols {
		rec, err := h.store.QueryLatest(ctx, symbol)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			latest = append(latest, *rec)
		}
	}

	h.logger.Debug("Listed latest", zap.Int("discovered", len(symbols)), zap.Int("returned", len(latest)))
	return latest, nil
}

func (h *Handler) jsonResponse(status int, v interface{}) protocol.Response {
	body, err := json.Marshal(v)
	if err != nil {
		return h.internalError(err)
	}
	return protocol.Response{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func (h *Handler) errorResponse(status int, msg string) protocol.Response {
	body, _ := json.Marshal(protocol.ErrorBody{Error: msg})
	return protocol.Response{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func (h *Handler) internalError(err error) protocol.Response {
	h.logger.Error("Request failed", zap.Error(err))
	return h.errorResponse(http.StatusInternalServerError, err.Error())
}
