package session

import (
	"context"
	"sync"
)

// Store はセッションレコードの永続化を抽象化します。
// Get は存在しないIDに対して (nil, nil) を返します。
// Delete は存在しないIDに対してもエラーを返しません。
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore はプロセス内メモリに保持する Store 実装です。
// 単一ノードの開発環境とテストで使用します。
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

// NewMemoryStore は MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
	}
}

// Get はセッションを取得します。
func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := s
	return &copied, nil
}

// Put はセッションを保存します（存在する場合は上書き）。
func (m *MemoryStore) Put(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.ID] = *s
	return nil
}

// Delete はセッションを削除します。存在しない場合は何もしません。
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}
