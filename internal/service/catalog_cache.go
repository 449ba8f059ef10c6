package service

import (
	"context"
	"encoding/json"
	"time"

	"corp_learning_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	cacheKeyCourses     = "catalog:courses"
	cacheKeyAssessments = "catalog:assessments"
	cacheKeyReports     = "reports:snapshot"
)

// CatalogCache 目录数据（课程树、测评列表、报表快照）的读穿缓存
type CatalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{})
	Invalidate(ctx context.Context, keys ...string)
}

// NewCatalogCache rdb 为 nil 时返回不缓存的实现
func NewCatalogCache(rdb *redis.Client, ttl time.Duration) CatalogCache {
	if rdb == nil {
		return noopCache{}
	}
	return &redisCache{rdb: rdb, ttl: ttl}
}

type redisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) bool {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		logger.Log.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := json.Unmarshal(val, dest); err != nil {
		logger.Log.Warn("Cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Set 缓存失败只记日志，不影响主流程
func (c *redisCache) Set(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Log.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *redisCache) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		logger.Log.Warn("Cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

type noopCache struct{}

func (noopCache) Get(context.Context, string, interface{}) bool { return false }
func (noopCache) Set(context.Context, string, interface{})      {}
func (noopCache) Invalidate(context.Context, ...string)         {}
