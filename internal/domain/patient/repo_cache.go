package patient

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/hcevision/cardio/internal/platform/metrics"
)

var ErrCacheMiss = errors.New("cache miss")

// KVStore is the subset of Redis the record cache needs.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type RedisKVStore struct {
	client *redis.Client
}

func NewRedisKVStore(client *redis.Client) *RedisKVStore {
	return &RedisKVStore{client: client}
}

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func (r *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKVStore) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// cachedStore is a read-through snapshot cache in front of another Store.
// Writes go to the backing store first and then evict the cached snapshot.
// Cache failures are logged and never fail the operation.
type cachedStore struct {
	next   Store
	kv     KVStore
	ttl    time.Duration
	logger zerolog.Logger
}

func NewCachedStore(next Store, kv KVStore, ttl time.Duration, logger zerolog.Logger) Store {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &cachedStore{
		next:   next,
		kv:     kv,
		ttl:    ttl,
		logger: logger.With().Str("component", "record_cache").Logger(),
	}
}

func cacheKey(id string) string {
	return "hce:patient:" + id
}

func (s *cachedStore) Get(ctx context.Context, id string) (*Record, error) {
	if val, err := s.kv.Get(ctx, cacheKey(id)); err == nil {
		if rec, err := decodeRecord([]byte(val)); err == nil {
			metrics.RecordCacheLookup(true)
			return rec, nil
		}
		s.evict(ctx, id)
	} else if !errors.Is(err, ErrCacheMiss) {
		s.logger.Warn().Err(err).Str("patient_id", id).Msg("cache read failed")
	}
	metrics.RecordCacheLookup(false)

	rec, err := s.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if data, err := encodeRecord(rec); err == nil {
		if err := s.kv.Set(ctx, cacheKey(id), string(data), s.ttl); err != nil {
			s.logger.Warn().Err(err).Str("patient_id", id).Msg("cache write failed")
		}
	}
	return rec, nil
}

func (s *cachedStore) GetAll(ctx context.Context) (map[string]*Record, error) {
	return s.next.GetAll(ctx)
}

func (s *cachedStore) FindByName(ctx context.Context, name string) (*Record, error) {
	return s.next.FindByName(ctx, name)
}

func (s *cachedStore) Save(ctx context.Context, rec *Record) error {
	if err := s.next.Save(ctx, rec); err != nil {
		return err
	}
	s.evict(ctx, rec.PatientID)
	return nil
}

func (s *cachedStore) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := s.next.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	s.evict(ctx, id)
	return ok, nil
}

func (s *cachedStore) evict(ctx context.Context, id string) {
	if err := s.kv.Del(ctx, cacheKey(id)); err != nil {
		s.logger.Warn().Err(err).Str("patient_id", id).Msg("cache evict failed")
	}
}
