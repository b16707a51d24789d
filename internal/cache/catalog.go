// Package cache keeps read-mostly catalog queries in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"draftkeeper/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	keyPrefix  = "catalog"
	versionKey = keyPrefix + ":version"
)

// NewRedisClient builds the client used by the catalog cache.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
}

// CatalogCache stores published catalog listings. Every entry key embeds a
// generation number; Invalidate bumps the generation so stale entries are
// never read again and simply expire.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewCatalogCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *CatalogCache {
	return &CatalogCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "CatalogCache").Logger(),
	}
}

// Published returns the cached listing for filter, if any.
func (c *CatalogCache) Published(ctx context.Context, filter model.CatalogFilter) ([]model.Draft, bool, error) {
	var drafts []model.Draft
	ok, err := c.get(ctx, "published:"+filterKey(filter), &drafts)
	return drafts, ok, err
}

func (c *CatalogCache) StorePublished(ctx context.Context, filter model.CatalogFilter, drafts []model.Draft) error {
	return c.set(ctx, "published:"+filterKey(filter), drafts)
}

func (c *CatalogCache) Categories(ctx context.Context) ([]string, bool, error) {
	var categories []string
	ok, err := c.get(ctx, "categories", &categories)
	return categories, ok, err
}

func (c *CatalogCache) StoreCategories(ctx context.Context, categories []string) error {
	return c.set(ctx, "categories", categories)
}

// Invalidate drops every cached listing.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, versionKey).Err(); err != nil {
		return fmt.Errorf("bump catalog cache generation: %w", err)
	}
	c.logger.Debug().Msg("Catalog cache invalidated")
	return nil
}

func (c *CatalogCache) get(ctx context.Context, name string, dst any) (bool, error) {
	key, err := c.key(ctx, name)
	if err != nil {
		return false, err
	}
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(val, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *CatalogCache) set(ctx context.Context, name string, v any) error {
	key, err := c.key(ctx, name)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (c *CatalogCache) key(ctx context.Context, name string) (string, error) {
	gen, err := c.client.Get(ctx, versionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("read catalog cache generation: %w", err)
	}
	return fmt.Sprintf("%s:%d:%s", keyPrefix, gen, name), nil
}

// filterKey mirrors ListPublished: category matches exactly, search is
// case-insensitive, and "" or any casing of "all" means no category filter.
func filterKey(f model.CatalogFilter) string {
	category := strings.TrimSpace(f.Category)
	if category == "" || strings.EqualFold(category, "all") {
		category = "all"
	}
	return category + ":" + strings.ToLower(strings.TrimSpace(f.Search))
}
