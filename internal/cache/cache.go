// cache — кэш анонимных чтений (/api/discussions) в Redis.
//
// Reader отдаёт ответ из Redis, если он моложе TTL. Сбой Redis не ломает
// чтение: запрос уходит в источник мимо кэша.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/agora/internal/discussion"
	"github.com/pribylovaa/agora/internal/metrics"
	"github.com/pribylovaa/agora/internal/models"
	"github.com/pribylovaa/agora/pkg/log"
)

// DefaultTTL — время жизни записи, если не задано.
const DefaultTTL = 30 * time.Second

// Cache — минимальный контракт байтового кэша.
type Cache interface {
	// Get возвращает значение и признак его наличия в кэше.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set сохраняет значение с TTL.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	// Close закрывает клиент Redis.
	Close() error
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "agora:read:".
func NewRedisCache(ctx context.Context, redisURL, prefix string) (Cache, error) {
	if prefix == "" {
		prefix = "agora:read:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache/NewRedisCache: parse url: %w", err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache/NewRedisCache: ping: %w", err)
	}

	return &redisCache{rdb: rdb, prefix: prefix}, nil
}

func (c *redisCache) key(k string) string { return c.prefix + k }

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return b, true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.key(key), val, ttl).Err()
}

func (c *redisCache) Close() error { return c.rdb.Close() }

// Reader — discussion.Source с кэшем. Кэшируются только найденные обсуждения
// и категории.
type Reader struct {
	next  discussion.Source
	cache Cache
	ttl   time.Duration
}

// NewReader оборачивает next; ttl <= 0 — DefaultTTL.
func NewReader(next discussion.Source, c Cache, ttl time.Duration) *Reader {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Reader{next: next, cache: c, ttl: ttl}
}

func (r *Reader) Discussion(ctx context.Context, p discussion.GetDiscussionParams) (*models.DiscussionResult, error) {
	key := "d:" + discussionKey(p)

	var cached models.DiscussionResult
	if r.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	res, err := r.next.Discussion(ctx, p)
	if err != nil {
		return nil, err
	}

	if res.Discussion != nil {
		r.store(ctx, key, res)
	}

	return res, nil
}

func (r *Reader) Categories(ctx context.Context, repo string) (*models.CategoryResult, error) {
	key := "c:" + repo

	var cached models.CategoryResult
	if r.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	res, err := r.next.Categories(ctx, repo)
	if err != nil {
		return nil, err
	}

	r.store(ctx, key, res)

	return res, nil
}

func (r *Reader) lookup(ctx context.Context, key string, out any) bool {
	b, ok, err := r.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		log.From(ctx).Warn("cache_get_failed", "op", "cache/Reader", "err", err.Error())
		return false
	case !ok:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return false
	}

	if err := json.Unmarshal(b, out); err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		log.From(ctx).Warn("cache_decode_failed", "op", "cache/Reader", "err", err.Error())
		return false
	}

	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return true
}

func (r *Reader) store(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}

	if err := r.cache.Set(ctx, key, b, r.ttl); err != nil {
		log.From(ctx).Warn("cache_set_failed", "op", "cache/Reader", "err", err.Error())
	}
}

// discussionKey — отпечаток всех параметров, влияющих на ответ.
func discussionKey(p discussion.GetDiscussionParams) string {
	h := xxhash.New()
	for _, s := range []string{
		p.Repo, p.Term, strconv.Itoa(p.Number), p.Category, strconv.FormatBool(p.Strict),
		strconv.Itoa(p.First), strconv.Itoa(p.Last), p.After, p.Before,
	} {
		_, _ = h.WriteString(s)
		_, _ = h.Write([]byte{0})
	}

	return strconv.FormatUint(h.Sum64(), 16)
}
