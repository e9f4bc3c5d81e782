package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache stores grounded answers keyed by context and question.
type Cache interface {
	// GetAnswer retrieves a cached answer by key.
	// Returns nil if not found.
	GetAnswer(ctx context.Context, key string) (*Entry, error)

	// SetAnswer stores an answer with TTL
	SetAnswer(ctx context.Context, key string, entry *Entry, ttl time.Duration) error

	// Close closes the cache connection
	Close() error
}

// Entry represents a cached answer.
type Entry struct {
	Answer   string    `json:"answer"`
	CachedAt time.Time `json:"cached_at"`
}

// GenerateCacheKey derives a stable key from the grounding context and the
// question. Questions differing only in case or spacing share a key.
func GenerateCacheKey(contextText, question string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(question), " "))
	h := sha256.New()
	h.Write([]byte(contextText))
	h.Write([]byte{0})
	h.Write([]byte(normalized))
	return hex.EncodeToString(h.Sum(nil))
}
