package artifacts

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/acuitylabs/triage-ai/pkg/logging"
)

// CachedStore fronts a Store with a Redis read-through cache so repeated
// artifact downloads skip the backing store. Writes go through to both.
type CachedStore struct {
	inner  Store
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

func NewCachedStore(inner Store, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedStore{inner: inner, client: client, ttl: ttl, logger: logger}
}

func cacheKey(caseID string, kind Kind) string {
	return "artifact:" + caseID + ":" + string(kind)
}

func (s *CachedStore) Put(ctx context.Context, caseID string, kind Kind, body []byte) (string, error) {
	key, err := s.inner.Put(ctx, caseID, kind, body)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, cacheKey(caseID, kind), body, s.ttl).Err(); err != nil {
		// Cache failures never fail the write; the backing store holds truth.
		s.logger.Warn("artifact cache set failed", "case_id", caseID, "kind", string(kind), "error", err.Error())
	}
	return key, nil
}

func (s *CachedStore) Get(ctx context.Context, caseID string, kind Kind) ([]byte, error) {
	body, err := s.client.Get(ctx, cacheKey(caseID, kind)).Bytes()
	if err == nil {
		return body, nil
	}
	if !errors.Is(err, redis.Nil) {
		s.logger.Warn("artifact cache get failed", "case_id", caseID, "kind", string(kind), "error", err.Error())
	}

	body, err = s.inner.Get(ctx, caseID, kind)
	if err != nil {
		return nil, err
	}
	if setErr := s.client.Set(ctx, cacheKey(caseID, kind), body, s.ttl).Err(); setErr != nil {
		s.logger.Warn("artifact cache backfill failed", "case_id", caseID, "kind", string(kind), "error", setErr.Error())
	}
	return body, nil
}
