package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/penguin2121/catalogOnline/internal/model"
)

const redisKeyPrefix = "session:"

// redisPayload はRedisに保存するセッションの値。
type redisPayload struct {
	Data      map[string]string `json:"data"`
	ExpiresAt time.Time         `json:"expires_at"`
	CreatedAt time.Time         `json:"created_at"`
}

// RedisStore はRedisを使用したセッションストア。
// 有効期限はキーのTTLで管理するため、期限切れセッションの掃除は不要。
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore はRedisに接続し、RedisStoreを生成する。
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient は既存のクライアントからRedisStoreを生成する。
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Load は指定IDのセッションを取得する。存在しない場合はnilを返す。
func (s *RedisStore) Load(ctx context.Context, id string) (*model.SessionRecord, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w: %v", model.ErrStoreUnavailable, err)
	}

	var payload redisPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode session data: %w", err)
	}
	if payload.Data == nil {
		payload.Data = map[string]string{}
	}

	return &model.SessionRecord{
		ID:        id,
		Data:      payload.Data,
		ExpiresAt: payload.ExpiresAt,
		CreatedAt: payload.CreatedAt,
	}, nil
}

// Save はセッションを保存し、ExpiresAtまでのTTLを設定する。
// 既に期限切れのレコードは削除する。
func (s *RedisStore) Save(ctx context.Context, record *model.SessionRecord) error {
	key := redisKeyPrefix + record.ID

	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		return s.Delete(ctx, record.ID)
	}

	raw, err := json.Marshal(redisPayload{
		Data:      record.Data,
		ExpiresAt: record.ExpiresAt,
		CreatedAt: record.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode session data: %w", err)
	}

	if err := s.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w: %v", model.ErrStoreUnavailable, err)
	}
	return nil
}

// Delete は指定IDのセッションを削除する。
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w: %v", model.ErrStoreUnavailable, err)
	}
	return nil
}

// PingContext はRedisへの疎通を確認する。
func (s *RedisStore) PingContext(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close はRedisクライアントを閉じる。
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// compile-time interface check
var _ Store = (*RedisStore)(nil)
