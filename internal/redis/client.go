package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/evotehq/evote-backend/config"
	"github.com/evotehq/evote-backend/internal/logging"
)

var Rdb *redis.Client
var Ctx = context.Background()

func InitRedis() {
	Rdb = redis.NewClient(&redis.Options{
		Addr:     config.GetEnv("REDIS_URI", "localhost:6379"),
		Password: config.GetEnv("REDIS_PASSWORD", ""),
		DB:       0,
	})
	pong, err := Rdb.Ping(Ctx).Result()
	if err != nil {
		logging.Fatal("failed to connect to redis", zap.Error(err))
	}

	logging.Info("redis connected", zap.String("pong", pong))
}
