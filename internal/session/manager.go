package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Identity はセッションに焼き込むアカウントの識別情報です。
type Identity struct {
	UserID      int64
	Username    string
	Email       string
	DisplayName string
	Role        string
}

// Manager はセッションのライフサイクルを管理します。
// ストアへのアクセスはすべて Store インターフェース経由で行い、
// 隠れたグローバル状態を持ちません。
type Manager struct {
	store Store

	// テストから時刻を差し替えるためのシーム
	now func() time.Time
}

// NewManager は Manager を作成します。
func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		now:   time.Now,
	}
}

// Create はログイン成功時に新しいセッションを確立します。
// セッションIDとCSRFトークンは毎回新規に生成します。
func (m *Manager) Create(ctx context.Context, identity Identity) (*Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("csrf token generation failed: %w", err)
	}

	now := m.now()
	record := &Session{
		ID:           uuid.NewString(),
		UserID:       identity.UserID,
		Username:     identity.Username,
		Email:        identity.Email,
		DisplayName:  identity.DisplayName,
		Role:         identity.Role,
		CSRFToken:    token,
		LastActivity: now,
		CreatedAt:    now,
	}

	if err := m.store.Put(ctx, record); err != nil {
		return nil, fmt.Errorf("session save failed: %w", err)
	}
	return record, nil
}

// Current はIDに対応する有効なセッションを返します。
// アイドルタイムアウトを超過したセッションはこの呼び出しの中で破棄され、
// (nil, nil) が返ります。有効な場合は最終アクティビティを現在時刻に更新します。
// 読み取りと副作用が結合している点は呼び出し側の前提です。
func (m *Manager) Current(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, nil
	}

	record, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	now := m.now()
	if record.Expired(now) {
		if err := m.store.Delete(ctx, id); err != nil {
			return nil, err
		}
		return nil, nil
	}

	record.LastActivity = now
	if err := m.store.Put(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Destroy はセッションを無条件に破棄します。
// 存在しないIDに対しては何もしません（冪等）。
func (m *Manager) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return m.store.Delete(ctx, id)
}

// EnsureCSRFToken はセッションのCSRFトークンを返します。
// 未設定の場合のみ生成して保存するため、セッション内では冪等です。
func (m *Manager) EnsureCSRFToken(ctx context.Context, s *Session) (string, error) {
	if s == nil {
		return "", fmt.Errorf("no active session")
	}
	if s.CSRFToken != "" {
		return s.CSRFToken, nil
	}

	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("csrf token generation failed: %w", err)
	}
	s.CSRFToken = token
	if err := m.store.Put(ctx, s); err != nil {
		return "", fmt.Errorf("session save failed: %w", err)
	}
	return token, nil
}

// ValidateCSRFToken は候補トークンをセッションのトークンと定数時間で比較します。
// セッションが無い、またはトークンが未設定の場合は false を返します。
func ValidateCSRFToken(s *Session, candidate string) bool {
	if s == nil || s.CSRFToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.CSRFToken), []byte(candidate)) == 1
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
