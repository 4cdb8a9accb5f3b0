package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/healthmate/server/internal/config"
	"github.com/healthmate/server/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix    = "healthmate:session:"
	appendMaxAttempts = 5
)

// RedisStore shares sessions across server replicas. Each session is one JSON value whose
// Redis TTL tracks ExpiresAt.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	now    func() time.Time
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// NewRedisClient dials Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg config.SessionConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
	}
	return client, nil
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func (r *RedisStore) Create(ctx context.Context, identity Identity) (*Context, error) {
	sess := newContext(identity, r.ttl, r.now())

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	if err := r.client.Set(ctx, redisKey(sess.ID), data, r.ttl).Err(); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}
	return sess, nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Context, error) {
	data, err := r.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return r.decode(data)
}

func (r *RedisStore) decode(data []byte) (*Context, error) {
	var sess Context
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	if sess.expired(r.now()) {
		return nil, ErrSessionNotFound
	}
	return &sess, nil
}

// Append runs an optimistic WATCH/MULTI transaction, retrying when a concurrent writer
// touched the same session.
func (r *RedisStore) Append(ctx context.Context, id string, turns ...Turn) (*Context, error) {
	checked, err := validateTurns(turns, r.now())
	if err != nil {
		return nil, err
	}

	key := redisKey(id)
	var updated *Context

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}

		sess, err := r.decode(data)
		if err != nil {
			return err
		}
		sess.Transcript = append(sess.Transcript, checked...)

		encoded, err := json.Marshal(sess)
		if err != nil {
			return err
		}
		remaining := sess.ExpiresAt.Sub(r.now())
		if remaining <= 0 {
			return ErrSessionNotFound
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, remaining)
			return nil
		})
		if err == nil {
			updated = sess
		}
		return err
	}

	for attempt := 1; attempt <= appendMaxAttempts; attempt++ {
		err = r.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
		logger.Warn("session_append_conflict", map[string]interface{}{
			"session_id": id,
			"attempt":    attempt,
		})
	}
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("appending to session: %w", err)
	}
	return updated, nil
}

func (r *RedisStore) Destroy(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisKey(id)).Err(); err != nil {
		return fmt.Errorf("destroying session: %w", err)
	}
	return nil
}
