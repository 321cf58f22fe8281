package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/haeminmoon/grvtgate/internal/config"
	"github.com/redis/go-redis/v9"
)

type RedisClient struct {
	Client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisClientFrom(rdb, cfg.Redis.NonceKeyPrefix), nil
}

// NewRedisClientFrom wraps an existing connection.
func NewRedisClientFrom(rdb *redis.Client, noncePrefix string) *RedisClient {
	if noncePrefix == "" {
		noncePrefix = "grvt:nonce"
	}
	return &RedisClient{Client: rdb, prefix: noncePrefix, now: time.Now}
}

func (r *RedisClient) Close() error {
	return r.Client.Close()
}

// ReserveNonce claims (signer, nonce) for ttl. It reports false when another
// process already holds the pair.
func (r *RedisClient) ReserveNonce(ctx context.Context, signer string, nonce uint32, ttl time.Duration) (bool, error) {
	return r.Client.SetNX(ctx, NonceKey(r.prefix, signer, nonce), 1, ttl).Result()
}

func NonceKey(prefix, signer string, nonce uint32) string {
	return fmt.Sprintf("%s:%s:%d", prefix, strings.ToLower(signer), nonce)
}

// GetDailyUsage implements service.UsageRepo.
func (r *RedisClient) GetDailyUsage(ctx context.Context, subAccountID string) (int, float64, error) {
	keyNotional, keyCount := usageKeys(subAccountID, r.now())

	pipe := r.Client.Pipeline()
	notionalCmd := pipe.Get(ctx, keyNotional)
	countCmd := pipe.Get(ctx, keyCount)
	_, err := pipe.Exec(ctx)

	if err != nil && err != redis.Nil {
		return 0, 0, err
	}

	notional, _ := notionalCmd.Float64()
	count, _ := countCmd.Int()

	return count, notional, nil
}

func (r *RedisClient) AddDailyUsage(ctx context.Context, subAccountID string, orders int, notional float64) error {
	keyNotional, keyCount := usageKeys(subAccountID, r.now())

	pipe := r.Client.Pipeline()
	pipe.IncrByFloat(ctx, keyNotional, notional)
	pipe.IncrBy(ctx, keyCount, int64(orders))

	pipe.Expire(ctx, keyNotional, usageTTL)
	pipe.Expire(ctx, keyCount, usageTTL)

	_, err := pipe.Exec(ctx)
	return err
}

// usageTTL keeps a day's counters past midnight in every timezone.
const usageTTL = 48 * time.Hour

func usageKeys(subAccountID string, now time.Time) (string, string) {
	today := now.UTC().Format("2006-01-02")
	return fmt.Sprintf("usage:%s:%s:notional", subAccountID, today),
		fmt.Sprintf("usage:%s:%s:count", subAccountID, today)
}
