package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReplayTTL покрывает сутки вращения с запасом на сдвиг часов.
const ReplayTTL = 26 * time.Hour

const keyPrefix = "fpvshop:spin:"

// RedisReplayCache запоминает результаты вращений по ключу идемпотентности,
// чтобы повторный запрос после таймаута не доходил до базы.
type RedisReplayCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisReplayCache(client *redis.Client) *RedisReplayCache {
	return &RedisReplayCache{client: client, ttl: ReplayTTL}
}

// Connect создаёт клиента и проверяет соединение.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func replayKey(userID int64, key string) string {
	return keyPrefix + strconv.FormatInt(userID, 10) + ":" + key
}

func (c *RedisReplayCache) Get(ctx context.Context, userID int64, key string) (int64, bool, error) {
	prize, err := c.client.Get(ctx, replayKey(userID, key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return prize, true, nil
}

func (c *RedisReplayCache) Put(ctx context.Context, userID int64, key string, prize int64) error {
	return c.client.Set(ctx, replayKey(userID, key), prize, c.ttl).Err()
}
