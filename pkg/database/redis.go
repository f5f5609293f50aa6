package database

import (
	"context"

	"image-review/internal/config"
	"image-review/pkg/log"

	"github.com/go-redis/redis/v8"
)

var RDB *redis.Client

// InitRedis 初始化 Redis 客户端连接。未配置地址时保持 RDB 为 nil。
func InitRedis(cfg config.RedisConfig) {
	if cfg.Addr == "" {
		log.Info("Redis 未配置，token 黑名单已禁用")
		return
	}
	RDB = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 测试连接
	if err := RDB.Ping(context.Background()).Err(); err != nil {
		log.Fatal("failed to connect to redis", err)
	}

	log.Info("Redis client connected successfully")
}
