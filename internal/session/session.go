// Package session はサーバー側セッションのレコード定義・ストア抽象・
// ライフサイクル管理（生成/検証/失効/破棄）を提供します。
package session

import (
	"time"
)

const (
	// CookieName はセッションIDを運ぶクッキーの名前です。
	CookieName = "ua_session"

	// IdleTimeout は最終アクティビティからセッションが失効するまでの時間です。
	IdleTimeout = 3600 * time.Second
)

// MaxAgeSeconds はクッキーの MaxAge に利用する秒数を返します。
func MaxAgeSeconds() int {
	return int(IdleTimeout.Seconds())
}

// Session はログイン中のブラウザ1つに対応するサーバー側の状態です。
// アカウントの識別情報はログイン時のコピーであり、次回ログインまで
// ストレージ側の変更を反映しません。
type Session struct {
	ID           string    `json:"id"`
	UserID       int64     `json:"userId"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	Role         string    `json:"role"`
	CSRFToken    string    `json:"csrfToken"`
	LastActivity time.Time `json:"lastActivity"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Expired は最終アクティビティからアイドルタイムアウト以上が経過したかを返します。
// ちょうど3600秒経過した時点で失効します。
func (s *Session) Expired(now time.Time) bool {
	return now.Sub(s.LastActivity) >= IdleTimeout
}
