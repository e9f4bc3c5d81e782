package studio

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"topic-studio/internal/cache"
)

// CachingAnswerer serves repeated questions against the same context from
// the answer cache. Cache errors are logged and otherwise ignored.
type CachingAnswerer struct {
	next  Answerer
	cache cache.Cache
	ttl   time.Duration
	log   *slog.Logger
	now   func() time.Time
}

func NewCachingAnswerer(next Answerer, c cache.Cache, ttl time.Duration, log *slog.Logger) *CachingAnswerer {
	return &CachingAnswerer{next: next, cache: c, ttl: ttl, log: orDiscard(log), now: time.Now}
}

func (a *CachingAnswerer) Answer(ctx context.Context, contextText, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}
	key := cache.GenerateCacheKey(contextText, question)
	if entry, err := a.cache.GetAnswer(ctx, key); err != nil {
		a.log.Warn("answer cache lookup failed", "err", err)
	} else if entry != nil {
		a.log.Debug("answer cache hit", "question", question)
		return entry.Answer, nil
	}

	answer, err := a.next.Answer(ctx, contextText, question)
	if err != nil {
		return "", err
	}
	if err := a.cache.SetAnswer(ctx, key, &cache.Entry{Answer: answer, CachedAt: a.now()}, a.ttl); err != nil {
		a.log.Warn("failed to cache answer", "err", err)
	}
	return answer, nil
}
