package providers

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Redis config keys.
const (
	ConfRedisNetwork  = "redis.network"
	ConfRedisAddr     = "redis.addr"
	ConfRedisDB       = "redis.db"
	ConfRedisUsername = "redis.username"
	ConfRedisPassword = "redis.password"
	ConfRedisPoolSize = "redis.pool_size"
)

func init() {
	viper.SetDefault(ConfRedisNetwork, "tcp")
	viper.SetDefault(ConfRedisAddr, "localhost:6379")
	viper.SetDefault(ConfRedisDB, 0)
	viper.SetDefault(ConfRedisUsername, "")
	viper.SetDefault(ConfRedisPassword, "")
	viper.SetDefault(ConfRedisPoolSize, 0) // 0 = go-redis default
}

// NewRedis connects the shared Redis client.
// An unreachable server fails the command at construction time.
func NewRedis(ctx context.Context, log *zap.Logger, lc fx.Lifecycle) (*redis.Client, error) {
	redisOpts := &redis.Options{
		Network:  viper.GetString(ConfRedisNetwork),
		Addr:     viper.GetString(ConfRedisAddr),
		DB:       viper.GetInt(ConfRedisDB),
		Username: viper.GetString(ConfRedisUsername),
		Password: viper.GetString(ConfRedisPassword),
		PoolSize: viper.GetInt(ConfRedisPoolSize),
	}
	log.Info("Connecting to Redis",
		zap.String(ConfRedisNetwork, redisOpts.Network),
		zap.String(ConfRedisAddr, redisOpts.Addr),
		zap.Int(ConfRedisDB, redisOpts.DB))
	rd := redis.NewClient(redisOpts)
	if err := rd.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis at %s: %w", redisOpts.Addr, err)
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			log.Info("Closing Redis client")
			if err := rd.Close(); err != nil {
				log.Error("Failed to close Redis client", zap.Error(err))
				return err
			}
			return nil
		},
	})
	return rd, nil
}
