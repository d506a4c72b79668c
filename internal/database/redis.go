package database

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"

	"github.com/accountbook/backend/internal/logger"
)

// InitRedis connects the edit-session cache. It returns nil when Redis is
// unreachable; sessions then live in process memory.
func InitRedis(ctx context.Context) *redis.Client {
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	log := logger.WithComponent("redis")

	addr := viper.GetString("redis.host") + ":" + viper.GetString("redis.port")
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("Redis connection failed, keeping sessions in memory")
		rdb.Close()
		return nil
	}

	log.Info().Str("addr", addr).Msg("Redis connection established")
	return rdb
}
