package users

import (
	"context"
	"errors"
)

// ErrLastAdmin は最後の admin アカウントを削除しようとしたことを表します。
// 判定は削除と同一トランザクション内で行われます。
var ErrLastAdmin = errors.New("last admin")

// Repository は資格情報ストアへのアクセスを抽象化します。
// 見つからない場合は common.ErrNotFound、一意制約違反は common.ErrConflict を返します。
type Repository interface {
	// List は全アカウントをプロフィール結合済み・作成日時の新しい順で返します。
	List(ctx context.Context) ([]AccountWithProfile, error)

	// GetByID はIDで1件取得します。
	GetByID(ctx context.Context, id int64) (*AccountWithProfile, error)

	// Search はユーザー名・メール・表示名に対する大文字小文字を区別しない部分一致検索です。
	Search(ctx context.Context, term string) ([]AccountWithProfile, error)

	// FindByLogin はユーザー名またはメールのどちらかに一致するアカウントを返します。
	FindByLogin(ctx context.Context, identifier string) (*Account, error)

	// Exists は同じユーザー名またはメールを持つアカウントの有無を返します。
	Exists(ctx context.Context, username, email string) (bool, error)

	// Create は新規アカウントを挿入し、採番されたIDと時刻を埋めて返します。
	Create(ctx context.Context, account *Account) (*Account, error)

	// CountAdmins は admin ロールのアカウント数を返します。
	CountAdmins(ctx context.Context) (int64, error)

	// UpdateWithProfile はアカウントの可変フィールド（表示名・メール）の更新と
	// プロフィールのupsertを単一トランザクションで行います。
	// ユーザー名は作成後不変のため更新対象に含みません。
	// プロフィールのアバター参照はここでは変更しません。
	UpdateWithProfile(ctx context.Context, id int64, displayName, email string, profile Profile) error

	// UpsertProfile はプロフィール行を作成または更新します（アバター参照は対象外）。
	UpsertProfile(ctx context.Context, accountID int64, profile Profile) error

	// SetAvatar はアバター参照のみを更新し、置き換え前の参照を返します。
	SetAvatar(ctx context.Context, accountID int64, avatarRef string) (string, error)

	// Delete はプロフィールとアカウントを単一トランザクションで削除し、
	// 削除したアカウントの識別情報を返します。
	// 対象が最後の admin の場合は ErrLastAdmin を返して何も削除しません。
	Delete(ctx context.Context, id int64) (*Account, error)
}
