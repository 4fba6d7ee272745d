package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
)

// RedisStore はセッションレコードを Redis に保存する Store 実装です。
// レコードはJSONで保存し、TTLはアイドルタイムアウトに合わせます。
// TTL切れのレコードはRedis側で消えるため、ここでは掃除処理を持ちません。
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore は RedisStore を作成します。
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{
		rdb: rdb,
	}
}

// Get はセッションを取得します。
func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("session id is required")
	}
	data, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var record Session
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Put はセッションを保存します（存在しない場合は作成）。
func (s *RedisStore) Put(ctx context.Context, record *Session) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("session id is required")
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, sessionKey(record.ID), data, IdleTimeout).Err()
}

// Delete はセッションを削除します。存在しない場合は何もしません。
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.rdb.Del(ctx, sessionKey(id)).Err()
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}
