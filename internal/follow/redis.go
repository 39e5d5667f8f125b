package follow

import (
	"context"
	"fmt"
	"time"

	"cryptocandles/internal/logger"

	"github.com/go-redis/redis/v8"
)

// toggleScript 在一次 EVAL 内完成判断与修改，返回 1 表示切换后为关注。
var toggleScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 1 then
  redis.call('SREM', KEYS[1], ARGV[1])
  return 0
end
redis.call('SADD', KEYS[1], ARGV[1])
return 1
`)

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore 以每个会话一个 SET 保存关注列表。
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore 连接并 PING 一次，失败时关闭连接。
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	logger.Infof("[follow] redis store connected addr=%s db=%d", cfg.Addr, cfg.DB)
	return &RedisStore{client: client, prefix: cfg.KeyPrefix}, nil
}

func (s *RedisStore) key(session string) string {
	return s.prefix + session
}

func (s *RedisStore) Toggle(ctx context.Context, session, providerID string) (bool, error) {
	n, err := toggleScript.Run(ctx, s.client, []string{s.key(session)}, providerID).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisStore) Following(ctx context.Context, session string) ([]string, error) {
	return s.client.SMembers(ctx, s.key(session)).Result()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
