// Package sessiontoken caches the upstream search service's session
// token and a short-TTL set of recently-seen candidate URLs. Redis-backed
// when configured, so the cache survives across worker goroutines and
// process restarts, with an in-process fallback otherwise.
package sessiontoken

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const (
	tokenKeyPrefix = "insight:session_token:"
	seenKeyPrefix  = "insight:seen_url:"

	// urlDedupTTL bounds the cross-call URL-dedup cache to a single
	// search run; the task store's unique (task_id, url) index is the
	// durable duplicate guard, this is only an optimization to avoid
	// re-embedding candidates within one run.
	urlDedupTTL = 2 * time.Hour
)

// Store is the shared accessor the search client re-reads on every call,
// so an externally refreshed token is always picked up.
type Store interface {
	Token(ctx context.Context, accountKey string) (string, error)
	SetToken(ctx context.Context, accountKey, token string, ttl time.Duration) error
	SeenURL(ctx context.Context, taskID, url string) (bool, error)
	MarkSeenURL(ctx context.Context, taskID, url string) error
}

type redisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) Store {
	return &redisStore{rdb: rdb}
}

func (s *redisStore) Token(ctx context.Context, accountKey string) (string, error) {
	val, err := s.rdb.Get(ctx, tokenKeyPrefix+accountKey).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read session token: %w", err)
	}
	return val, nil
}

func (s *redisStore) SetToken(ctx context.Context, accountKey, token string, ttl time.Duration) error {
	return s.rdb.Set(ctx, tokenKeyPrefix+accountKey, token, ttl).Err()
}

func (s *redisStore) SeenURL(ctx context.Context, taskID, url string) (bool, error) {
	n, err := s.rdb.Exists(ctx, seenKeyPrefix+taskID+":"+url).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *redisStore) MarkSeenURL(ctx context.Context, taskID, url string) error {
	return s.rdb.Set(ctx, seenKeyPrefix+taskID+":"+url, "1", urlDedupTTL).Err()
}

// memoryStore is the fallback used when REDIS_URL is unset, matching the
// host's in-memory caching posture (github.com/patrickmn/go-cache).
type memoryStore struct {
	tokens *gocache.Cache
	seen   *gocache.Cache
}

func NewMemoryStore() Store {
	return &memoryStore{
		tokens: gocache.New(30*time.Minute, time.Hour),
		seen:   gocache.New(urlDedupTTL, urlDedupTTL*2),
	}
}

func (s *memoryStore) Token(_ context.Context, accountKey string) (string, error) {
	v, ok := s.tokens.Get(accountKey)
	if !ok {
		return "", nil
	}
	return v.(string), nil
}

func (s *memoryStore) SetToken(_ context.Context, accountKey, token string, ttl time.Duration) error {
	s.tokens.Set(accountKey, token, ttl)
	return nil
}

func (s *memoryStore) SeenURL(_ context.Context, taskID, url string) (bool, error) {
	_, ok := s.seen.Get(taskID + ":" + url)
	return ok, nil
}

func (s *memoryStore) MarkSeenURL(_ context.Context, taskID, url string) error {
	s.seen.Set(taskID+":"+url, struct{}{}, urlDedupTTL)
	return nil
}
