// Package cache provides the optional Redis-backed centrality cache. The
// analyzer works identically without it; cache failures degrade to a
// recompute, never to an analysis error.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gridline/fraudgraph/backend/internal/util"
	"github.com/gridline/fraudgraph/backend/pkg/logger"
)

const centralityKey = "fraudgraph:centrality"

// CentralityCache stores the shareholder centrality map in Redis with a
// bounded TTL, so repeated analyses within the staleness window skip the
// full ownership graph pass.
type CentralityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCentralityCache(client *redis.Client, ttl time.Duration) *CentralityCache {
	return &CentralityCache{client: client, ttl: ttl}
}

func (c *CentralityCache) Get(ctx context.Context) (map[string]float64, bool) {
	payload, err := c.client.Get(ctx, centralityKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		logger.Warn("[Cache] Centrality read failed, recomputing", "err", err)
		return nil, false
	}

	var scores map[string]float64
	if err := json.Unmarshal(payload, &scores); err != nil {
		logger.Warn("[Cache] Centrality payload corrupt, recomputing", "err", err)
		return nil, false
	}
	return scores, true
}

func (c *CentralityCache) Set(ctx context.Context, scores map[string]float64) {
	payload, err := json.Marshal(scores)
	if err != nil {
		logger.Warn("[Cache] Centrality encode failed", "err", err)
		return
	}
	err = util.RetryErr(2, func() error {
		return c.client.Set(ctx, centralityKey, payload, c.ttl).Err()
	})
	if err != nil {
		logger.Warn("[Cache] Centrality write failed", "err", err)
	}
}
