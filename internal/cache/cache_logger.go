package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern invalidates a cache pattern, logging failures
// instead of propagating them.
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete deletes cache keys, logging failures instead of propagating.
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateSessionCache drops the cached record for one attempt.
func InvalidateSessionCache(ctx context.Context, cm *CacheManager, studentID string, examID uint) {
	SafeDelete(ctx, cm.Session, fmt.Sprintf("key:%s:%d", studentID, examID))
	SafeInvalidatePattern(ctx, cm.Session, fmt.Sprintf("student:%s:*", studentID))
}

// InvalidateResultCache drops result and stats caches affected by a new
// or replaced result.
func InvalidateResultCache(ctx context.Context, cm *CacheManager, studentID string, examID uint) {
	SafeDelete(ctx, cm.Result,
		fmt.Sprintf("key:%s:%d", studentID, examID),
		fmt.Sprintf("report:%s", studentID))
	SafeInvalidatePattern(ctx, cm.Result, fmt.Sprintf("student:%s:*", studentID))
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("exam:%d:*", examID))
}
