package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern invalidates a pattern and logs instead of failing
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete deletes keys and logs instead of failing
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// BatchInvalidate applies every pattern to the primary helper and to any extra
// helpers. The last error is returned after all patterns were attempted.
func BatchInvalidate(ctx context.Context, helper *CacheHelper, patterns []string, extra ...*CacheHelper) error {
	var lastErr error
	for _, h := range append([]*CacheHelper{helper}, extra...) {
		for _, pattern := range patterns {
			if err := h.InvalidatePattern(ctx, pattern); err != nil {
				lastErr = err
				slog.ErrorContext(ctx, "Failed to invalidate pattern in batch",
					"error", err,
					"pattern", pattern)
			}
		}
	}
	return lastErr
}

// LookupKey is the cache key of a single lookup row
func LookupKey(kind string, id uint) string {
	return fmt.Sprintf("%s:id:%d", kind, id)
}

// QuestionKey is the cache key of a single encoded question
func QuestionKey(id uint) string {
	return fmt.Sprintf("id:%d", id)
}

// InvalidateQuestionCache drops the cached record and every cached page
func InvalidateQuestionCache(ctx context.Context, cm *CacheManager, questionID uint) {
	if questionID != 0 {
		SafeDelete(ctx, cm.Question, QuestionKey(questionID))
	}
	SafeInvalidatePattern(ctx, cm.Question, "list:*")
}

// InvalidateLookupCache drops a lookup row. Lookup deletes rewrite question
// references, so every question entry goes too.
func InvalidateLookupCache(ctx context.Context, cm *CacheManager, kind string, ids ...uint) {
	for _, id := range ids {
		SafeDelete(ctx, cm.Lookup, LookupKey(kind, id))
	}
	SafeInvalidatePattern(ctx, cm.Question, "*")
}
