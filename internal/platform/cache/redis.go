package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"codearena/internal/platform/config"
	"codearena/pkg/logger"
)

// ErrMiss is returned when a key is absent or a stored value cannot be
// decoded. Callers fall through to the database on a miss.
var ErrMiss = errors.New("cache miss")

var RDB *redis.Client

func Connect() {
	RDB = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisDB,
	})

	ctx := context.Background()
	if _, err := RDB.Ping(ctx).Result(); err != nil {
		logger.Fatalf("Could not connect to Redis: %v", err)
	}
	logger.Infof("Connected to Redis at %s", config.AppConfig.RedisAddr)
}

func Close() {
	if RDB != nil {
		RDB.Close()
		logger.Infof("Redis connection closed")
	}
}

// GetJSON loads the value under key into dest. Returns ErrMiss when the key
// does not exist or holds something that does not decode into dest.
func GetJSON(ctx context.Context, rdb *redis.Client, key string, dest interface{}) error {
	raw, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return ErrMiss
	}
	return nil
}

// SetJSON stores value under key with the given TTL. Failures are returned to
// the caller but are safe to log and ignore; the cache is read-through.
func SetJSON(ctx context.Context, rdb *redis.Client, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, raw, ttl).Err()
}
