// Package redis - бэкенд использованных refresh-токенов поверх Redis.
// Каждый использованный jti хранится отдельным ключом с TTL до истечения
// самого токена, поэтому фоновая очистка не нужна.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pribylovaa/authguard/internal/storage"
)

const defaultPrefix = "authguard:spent:"

// Revocations реализует storage.RevocationStorage.
type Revocations struct {
	rdb    *goredis.Client
	prefix string
}

// New создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой - используется "authguard:spent:".
func New(ctx context.Context, redisURL, prefix string) (*Revocations, error) {
	const op = "storage.redis.New"

	opt, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := goredis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewWithClient(rdb, prefix), nil
}

// NewWithClient оборачивает уже созданный клиент.
func NewWithClient(rdb *goredis.Client, prefix string) *Revocations {
	if prefix == "" {
		prefix = defaultPrefix
	}

	return &Revocations{rdb: rdb, prefix: prefix}
}

func (r *Revocations) key(tokenID string) string { return r.prefix + tokenID }

// MarkSpent выполняет SET NX с TTL до expiresAt.
// Токен, который уже истёк, всё равно помечается на минимальный срок.
func (r *Revocations) MarkSpent(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	const op = "storage.redis.MarkSpent"

	ttl := time.Until(expiresAt)
	if ttl < time.Second {
		ttl = time.Second
	}

	ok, err := r.rdb.SetNX(ctx, r.key(tokenID), expiresAt.UTC().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return ok, nil
}

// Ping проверяет соединение с Redis.
func (r *Revocations) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Revocations) Close() error { return r.rdb.Close() }

var (
	_ storage.RevocationStorage = (*Revocations)(nil)
	_ storage.Pinger            = (*Revocations)(nil)
)
