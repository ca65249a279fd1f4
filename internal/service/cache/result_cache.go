package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"RegimePull/internal/domain/models"
)

// ResultCache stores the latest classification result per series on top of
// any BytesCache backend (in-process TTL map or Redis).
type ResultCache struct {
	backend BytesCache
	ttl     time.Duration
}

func NewResultCache(backend BytesCache, ttl time.Duration) *ResultCache {
	return &ResultCache{backend: backend, ttl: ttl}
}

func resultKey(series string) string {
	return "regime:latest:" + series
}

func (c *ResultCache) Get(series string) (*models.ClassificationResult, bool, error) {
	b, ok, err := c.backend.GetBytes(resultKey(series))
	if err != nil || !ok {
		return nil, false, err
	}
	var res models.ClassificationResult
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, false, fmt.Errorf("decode cached result: %w", err)
	}
	return &res, true, nil
}

func (c *ResultCache) Set(series string, res *models.ClassificationResult) error {
	b, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return c.backend.SetBytes(resultKey(series), b, c.ttl)
}
