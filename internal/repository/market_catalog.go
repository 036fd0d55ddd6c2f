package repository

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"PolyCorr/internal/domain/models"
	xcache "PolyCorr/pkg/cache"
	xhttp "PolyCorr/pkg/http"
	xlogger "PolyCorr/pkg/logger"
)

const catalogCacheKey = "catalog:active_markets"

// gammaMarket is the shape the markets API returns per market.
type gammaMarket struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Category string `json:"category"`
	Active   bool   `json:"active"`
	Closed   bool   `json:"closed"`
}

// HTTPMarketCatalog reads active markets from the public markets API with
// a cache in front so relation sweeps do not hammer the upstream.
type HTTPMarketCatalog struct {
	client   *xhttp.Client
	cache    xcache.Service
	logger   *xlogger.Logger
	baseURL  string
	cacheTTL time.Duration
}

func NewHTTPMarketCatalog(client *xhttp.Client, cache xcache.Service, l *xlogger.Logger, baseURL string, cacheTTL time.Duration) *HTTPMarketCatalog {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &HTTPMarketCatalog{
		client:   client,
		cache:    cache,
		logger:   l,
		baseURL:  baseURL,
		cacheTTL: cacheTTL,
	}
}

func (r *HTTPMarketCatalog) ActiveMarkets(ctx context.Context) ([]models.Market, error) {
	if r.cache != nil {
		var cached []models.Market
		if err := r.cache.Get(ctx, catalogCacheKey, &cached); err == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	var raw []gammaMarket
	err := r.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: http.MethodGet,
		URL:    r.baseURL + "/markets",
		QueryParams: map[string][]string{
			"active": {"true"},
			"closed": {"false"},
		},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("fetch markets: %w", err)
	}

	markets := make([]models.Market, 0, len(raw))
	for _, m := range raw {
		if m.Closed || !m.Active || m.ID == "" {
			continue
		}
		markets = append(markets, models.Market{
			MarketID: m.ID,
			Question: m.Question,
			Category: m.Category,
		})
	}

	if r.cache != nil && len(markets) > 0 {
		if err := r.cache.Set(ctx, catalogCacheKey, markets, r.cacheTTL); err != nil {
			r.logger.Warn("cache markets failed", xlogger.Error(err))
		}
	}
	r.logger.Debug("catalog refreshed", xlogger.Int("markets", len(markets)))
	return markets, nil
}
