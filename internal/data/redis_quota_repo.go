package data

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/target/printmaker/internal/core"
)

// DefaultQuotaKeyPrefix namespaces per-user base quota keys.
const DefaultQuotaKeyPrefix = "printmaker:quota:"

// RedisQuotaRepo reads per-user base quotas from Redis, falling back to a default
// for users without a key. It implements core.QuotaSource.
type RedisQuotaRepo struct {
	client   redis.UniversalClient
	prefix   string
	fallback int
}

var _ core.QuotaSource = (*RedisQuotaRepo)(nil)

// RedisQuotaRepoOptions configures NewRedisQuotaRepo.
type RedisQuotaRepoOptions struct {
	KeyPrefix string
	// Fallback is returned for users without a stored quota.
	Fallback int
}

// NewRedisQuotaRepo creates a RedisQuotaRepo using client.
func NewRedisQuotaRepo(client redis.UniversalClient, opts RedisQuotaRepoOptions) (*RedisQuotaRepo, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = DefaultQuotaKeyPrefix
	}
	return &RedisQuotaRepo{client: client, prefix: prefix, fallback: opts.Fallback}, nil
}

func (r *RedisQuotaRepo) key(user string) string {
	return r.prefix + strings.ToLower(strings.TrimSpace(user))
}

// BaseQuota returns the stored quota for user or the fallback if none is stored.
func (r *RedisQuotaRepo) BaseQuota(ctx context.Context, user string) (int, error) {
	if strings.TrimSpace(user) == "" {
		return 0, errors.New("user cannot be empty")
	}
	val, err := r.client.Get(ctx, r.key(user)).Result()
	if errors.Is(err, redis.Nil) {
		return r.fallback, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get quota: %w", err)
	}
	quota, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("parse quota for %s: %w", user, err)
	}
	return quota, nil
}

// SetBaseQuota stores quota for user without expiry.
func (r *RedisQuotaRepo) SetBaseQuota(ctx context.Context, user string, quota int) error {
	if strings.TrimSpace(user) == "" {
		return errors.New("user cannot be empty")
	}
	if err := r.client.Set(ctx, r.key(user), strconv.Itoa(quota), 0).Err(); err != nil {
		return fmt.Errorf("redis set quota: %w", err)
	}
	return nil
}

// ClearBaseQuota removes the stored quota so the fallback applies. Reports whether a key existed.
func (r *RedisQuotaRepo) ClearBaseQuota(ctx context.Context, user string) (bool, error) {
	n, err := r.client.Del(ctx, r.key(user)).Result()
	if err != nil {
		return false, fmt.Errorf("redis del quota: %w", err)
	}
	return n > 0, nil
}

// Health pings Redis.
func (r *RedisQuotaRepo) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// StaticQuota returns the same base quota for every user.
type StaticQuota int

var _ core.QuotaSource = StaticQuota(0)

func (s StaticQuota) BaseQuota(context.Context, string) (int, error) {
	return int(s), nil
}
