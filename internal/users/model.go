// Package users はアカウントとプロフィールの管理（一覧・検索・作成・更新・削除）を提供します。
package users

import "time"

// Role はアカウントの権限区分です。user と admin の2値のみを認めます。
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid は認識されているロール値かどうかを返します。
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Account は登録済みの利用者1人に対応します。
type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"displayName"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Profile はアカウントに0〜1件付く拡張属性です。
// 初回の書き込み時に遅延作成され、アカウント削除と同時に消えます。
type Profile struct {
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Bio       string `json:"bio"`
	AvatarRef string `json:"avatarRef"`
}

// AccountWithProfile は一覧・詳細表示用にアカウントとプロフィールを結合した行です。
type AccountWithProfile struct {
	Account
	Profile Profile `json:"profile"`
}
