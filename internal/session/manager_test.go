package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return NewManager(store), store
}

func testIdentity() Identity {
	return Identity{
		UserID:      1,
		Username:    "alice",
		Email:       "a@x.com",
		DisplayName: "Alice A",
		Role:        "user",
	}
}

func TestCreateSeedsIdentityAndTokens(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := m.Create(ctx, testIdentity())
	require.NoError(t, err)

	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, int64(1), sess.UserID)
	assert.Equal(t, "alice", sess.Username)
	assert.Equal(t, "user", sess.Role)
	// 32バイトのhexエンコードで64文字
	assert.Len(t, sess.CSRFToken, 64)
	assert.False(t, sess.LastActivity.IsZero())
}

func TestCreateGeneratesFreshTokens(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	first, err := m.Create(ctx, testIdentity())
	require.NoError(t, err)
	second, err := m.Create(ctx, testIdentity())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.CSRFToken, second.CSRFToken)
}

func TestCurrentRefreshesLastActivity(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := m.Create(ctx, testIdentity())
	require.NoError(t, err)

	created := sess.LastActivity
	later := created.Add(3599 * time.Second)
	m.now = func() time.Time { return later }

	got, err := m.Current(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, later, got.LastActivity)

	// 更新された最終アクティビティがストアにも反映されている
	stored, err := m.store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, later, stored.LastActivity)
}

func TestCurrentDestroysIdleSession(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	sess, err := m.Create(ctx, testIdentity())
	require.NoError(t, err)

	// ちょうど3600秒でタイムアウトし、セッションはストアからも消える
	m.now = func() time.Time { return sess.LastActivity.Add(3600 * time.Second) }

	got, err := m.Current(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	stored, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestCurrentUnknownID(t *testing.T) {
	m, _ := newTestManager(t)

	got, err := m.Current(context.Background(), "no-such-session")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = m.Current(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDestroyIsIdempotent(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := m.Create(ctx, testIdentity())
	require.NoError(t, err)

	require.NoError(t, m.Destroy(ctx, sess.ID))
	// 2回目の呼び出しも同じ結果（アクティブなセッション無し）になる
	require.NoError(t, m.Destroy(ctx, sess.ID))

	got, err := m.Current(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEnsureCSRFTokenIsIdempotent(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := m.Create(ctx, testIdentity())
	require.NoError(t, err)

	first, err := m.EnsureCSRFToken(ctx, sess)
	require.NoError(t, err)
	second, err := m.EnsureCSRFToken(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEnsureCSRFTokenFillsMissingToken(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := m.Create(ctx, testIdentity())
	require.NoError(t, err)
	sess.CSRFToken = ""

	token, err := m.EnsureCSRFToken(ctx, sess)
	require.NoError(t, err)
	assert.Len(t, token, 64)

	stored, err := m.store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, token, stored.CSRFToken)
}

func TestValidateCSRFToken(t *testing.T) {
	sess := &Session{CSRFToken: "expected-token"}

	assert.True(t, ValidateCSRFToken(sess, "expected-token"))
	assert.False(t, ValidateCSRFToken(sess, "wrong-token"))
	assert.False(t, ValidateCSRFToken(sess, ""))
	assert.False(t, ValidateCSRFToken(nil, "expected-token"))
	assert.False(t, ValidateCSRFToken(&Session{}, "anything"))
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	original := &Session{ID: "s1", Username: "alice"}
	require.NoError(t, store.Put(ctx, original))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)

	// 取得した値を書き換えてもストア内の値は変わらない
	got.Username = "mallory"
	again, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "alice", again.Username)
}
