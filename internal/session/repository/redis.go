package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"auth-service/internal/session/domain"
)

const (
	redisSeqKey    = "refresh_tokens:seq"
	redisKeyPrefix = "refresh_token:"
)

// RedisRepository stores each refresh token record as a hash that Redis expires on its own.
// IDs come from an INCR counter so they stay int64 like the Postgres backend.
type RedisRepository struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedisRepository returns a refresh token repository backed by client.
func NewRedisRepository(client redis.UniversalClient) *RedisRepository {
	return &RedisRepository{client: client, now: time.Now}
}

func redisKey(id int64) string {
	return redisKeyPrefix + strconv.FormatInt(id, 10)
}

// Persist allocates an id and writes the record with an EXPIREAT at expiresAt.
func (r *RedisRepository) Persist(ctx context.Context, userID int64, expiresAt time.Time) (*domain.RefreshToken, error) {
	id, err := r.client.Incr(ctx, redisSeqKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: allocate id: %w", err)
	}
	t := &domain.RefreshToken{
		ID:        id,
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: r.now().UTC(),
	}
	key := redisKey(id)
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			"user_id", t.UserID,
			"expires_at", t.ExpiresAt.UnixNano(),
			"created_at", t.CreatedAt.UnixNano(),
		)
		p.ExpireAt(ctx, key, t.ExpiresAt)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis: persist: %w", err)
	}
	return t, nil
}

// FindActive returns the record with id owned by userID, or nil when missing, expired or owned by someone else.
func (r *RedisRepository) FindActive(ctx context.Context, id, userID int64) (*domain.RefreshToken, error) {
	vals, err := r.client.HGetAll(ctx, redisKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: find: %w", err)
	}
	if len(vals) == 0 {
		return nil, nil
	}
	owner, err := strconv.ParseInt(vals["user_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis: corrupt record %d: %w", id, err)
	}
	if owner != userID {
		return nil, nil
	}
	exp, err := strconv.ParseInt(vals["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis: corrupt record %d: %w", id, err)
	}
	created, _ := strconv.ParseInt(vals["created_at"], 10, 64)
	t := &domain.RefreshToken{
		ID:        id,
		UserID:    owner,
		ExpiresAt: time.Unix(0, exp).UTC(),
		CreatedAt: time.Unix(0, created).UTC(),
	}
	if t.Expired(r.now()) {
		return nil, nil
	}
	return t, nil
}

// Delete removes the record; a missing key is not an error. DEL reports how many keys went.
func (r *RedisRepository) Delete(ctx context.Context, id int64) (bool, error) {
	n, err := r.client.Del(ctx, redisKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: delete: %w", err)
	}
	return n > 0, nil
}

// DeleteExpired sweeps records whose stored expiry has passed but whose key is still present
// (e.g. clock skew between app and Redis). Keys are scanned in batches.
func (r *RedisRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var (
		cursor  uint64
		removed int64
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, redisKeyPrefix+"*", 200).Result()
		if err != nil {
			return removed, fmt.Errorf("redis: scan: %w", err)
		}
		for _, key := range keys {
			raw, err := r.client.HGet(ctx, key, "expires_at").Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return removed, fmt.Errorf("redis: read %s: %w", key, err)
			}
			exp, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || !now.Before(time.Unix(0, exp)) {
				n, err := r.client.Del(ctx, key).Result()
				if err != nil {
					return removed, fmt.Errorf("redis: delete %s: %w", key, err)
				}
				removed += n
			}
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}
