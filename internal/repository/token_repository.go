package repository

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenRepository 维护登出后失效的 access token 黑名单。
type TokenRepository interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// tokenRepository 基于 Redis。redisClient 为 nil 时黑名单不生效。
type tokenRepository struct {
	redisClient *redis.Client
}

// NewTokenRepository 创建一个新的 TokenRepository 实例。
func NewTokenRepository(redisClient *redis.Client) TokenRepository {
	return &tokenRepository{redisClient: redisClient}
}

func blacklistKey(token string) string {
	return "blacklist:" + token
}

// Revoke 将 token 加入黑名单，ttl 取 token 的剩余有效期。
func (r *tokenRepository) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if r.redisClient == nil || ttl <= 0 {
		return nil
	}
	return r.redisClient.Set(ctx, blacklistKey(token), "true", ttl).Err()
}

func (r *tokenRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	if r.redisClient == nil {
		return false, nil
	}
	n, err := r.redisClient.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
