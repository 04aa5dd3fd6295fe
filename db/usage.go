package db

import (
	"context"
	"fmt"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CleanupFunc receives an asynchronous cleanup request when the storage
// aggregate crosses its soft limit. It runs on its own goroutine and its
// outcome never affects the turn that triggered it.
type CleanupFunc func(tenant string, totalBytes int64)

// UsageTracker keeps the per-tenant storage aggregate (total bytes, file
// count) in Redis. The counters are eventually consistent: increments are
// best-effort and concurrent turns may interleave freely.
type UsageTracker struct {
	rdb            *redis.Client
	softLimitBytes int64
	cleanup        CleanupFunc
}

func NewUsageTracker(rdb *redis.Client, softLimitBytes int64, cleanup CleanupFunc) *UsageTracker {
	return &UsageTracker{rdb: rdb, softLimitBytes: softLimitBytes, cleanup: cleanup}
}

func bytesKey(tenant string) string { return fmt.Sprintf("storage:%s:bytes", tenant) }
func countKey(tenant string) string { return fmt.Sprintf("storage:%s:count", tenant) }

// Add records one persisted file. Failures are logged and swallowed; the
// aggregate is advisory, not a ledger.
func (t *UsageTracker) Add(ctx context.Context, tenant string, sizeBytes int64) {
	if t == nil || t.rdb == nil {
		return
	}

	total, err := t.rdb.IncrBy(ctx, bytesKey(tenant), sizeBytes).Result()
	if err != nil {
		logger.Error("Failed to increment storage bytes", zap.String("tenant", tenant), zap.Error(err))
		return
	}
	if err := t.rdb.Incr(ctx, countKey(tenant)).Err(); err != nil {
		logger.Error("Failed to increment storage count", zap.String("tenant", tenant), zap.Error(err))
	}

	if t.softLimitBytes > 0 && total > t.softLimitBytes && t.cleanup != nil {
		logger.Info("Storage soft limit crossed, requesting cleanup",
			zap.String("tenant", tenant),
			zap.Int64("totalBytes", total),
			zap.Int64("softLimitBytes", t.softLimitBytes))
		go t.cleanup(tenant, total)
	}
}

// Totals returns the current aggregate for a tenant. Missing keys read as
// zero.
func (t *UsageTracker) Totals(ctx context.Context, tenant string) (int64, int64, error) {
	totalBytes, err := t.rdb.Get(ctx, bytesKey(tenant)).Int64()
	if err != nil && err != redis.Nil {
		return 0, 0, err
	}
	fileCount, err := t.rdb.Get(ctx, countKey(tenant)).Int64()
	if err != nil && err != redis.Nil {
		return 0, 0, err
	}
	return totalBytes, fileCount, nil
}
