package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/useradmin/internal/common"
)

// Directory はアカウント一覧・検索・作成・更新・削除の業務ロジックを提供します。
// 呼び出し側の身元（actorID）はポリシー判定にのみ使用し、
// 認証そのものは auth パッケージが担います。
type Directory struct {
	repo   Repository
	logger *slog.Logger
}

// NewDirectory は Directory を作成します。
func NewDirectory(repo Repository, logger *slog.Logger) *Directory {
	return &Directory{
		repo:   repo,
		logger: logger,
	}
}

// List は全アカウントを作成日時の新しい順で返します。
func (d *Directory) List(ctx context.Context) ([]AccountWithProfile, error) {
	list, err := d.repo.List(ctx)
	if err != nil {
		return nil, d.storageError(ctx, "list accounts", err)
	}
	return list, nil
}

// Search は検索語で絞ったアカウント一覧を返します。空の検索語は全件と同じです。
func (d *Directory) Search(ctx context.Context, term string) ([]AccountWithProfile, error) {
	if term == "" {
		return d.List(ctx)
	}
	list, err := d.repo.Search(ctx, term)
	if err != nil {
		return nil, d.storageError(ctx, "search accounts", err)
	}
	return list, nil
}

// Get はIDで1件取得します。
func (d *Directory) Get(ctx context.Context, id int64) (*AccountWithProfile, error) {
	account, err := d.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.E(common.ErrNotFound, "ユーザーが見つかりません。")
		}
		return nil, d.storageError(ctx, "get account", err)
	}
	return account, nil
}

// CreateAccount は管理者操作による新規アカウント作成です。
// 登録フォームと同じ検証に加えてロールを明示的に指定でき、
// 初期プロフィールがあれば続けて作成します。
func (d *Directory) CreateAccount(ctx context.Context, username, email, password, displayName string, role Role, profile *Profile) (*Account, error) {
	if err := ValidateNewAccount(username, email, password, displayName); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, common.E(common.ErrValidation, "ロールの値が正しくありません。")
	}

	exists, err := d.repo.Exists(ctx, username, email)
	if err != nil {
		return nil, d.storageError(ctx, "check account exists", err)
	}
	if exists {
		return nil, common.E(common.ErrConflict, "ユーザー名またはメールアドレスは既に使用されています。")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, d.storageError(ctx, "hash password", err)
	}

	account := &Account{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		Role:         role,
	}
	account, err = d.repo.Create(ctx, account)
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.E(common.ErrConflict, "ユーザー名またはメールアドレスは既に使用されています。")
		}
		return nil, d.storageError(ctx, "create account", err)
	}

	if profile != nil {
		if err := d.repo.UpsertProfile(ctx, account.ID, *profile); err != nil {
			// アカウント自体は作成済みなのでプロフィール失敗だけを報告する
			return nil, d.storageError(ctx, "create profile", err)
		}
	}

	return account, nil
}

// UpdateAccountAndProfile はアカウントの可変フィールドとプロフィールを
// 単一トランザクションで更新します。ユーザー名は変更できません。
func (d *Directory) UpdateAccountAndProfile(ctx context.Context, id int64, displayName, email string, profile Profile) error {
	if displayName == "" || email == "" {
		return common.E(common.ErrValidation, "表示名とメールアドレスを入力してください。")
	}
	if !ValidEmail(email) {
		return common.E(common.ErrValidation, "メールアドレスの形式が正しくありません。")
	}
	if utf8.RuneCountInString(profile.Bio) > MaxBioLength {
		return common.E(common.ErrValidation, fmt.Sprintf("自己紹介は%d文字以内で入力してください。", MaxBioLength))
	}

	err := d.repo.UpdateWithProfile(ctx, id, displayName, email, profile)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrNotFound):
			return common.E(common.ErrNotFound, "ユーザーが見つかりません。")
		case errors.Is(err, common.ErrConflict):
			return common.E(common.ErrConflict, "メールアドレスは既に使用されています。")
		}
		return d.storageError(ctx, "update account", err)
	}
	return nil
}

// SetAvatar はアバター参照を更新し、置き換え前の参照を返します。
func (d *Directory) SetAvatar(ctx context.Context, accountID int64, avatarRef string) (string, error) {
	previous, err := d.repo.SetAvatar(ctx, accountID, avatarRef)
	if err != nil {
		return "", d.storageError(ctx, "set avatar", err)
	}
	return previous, nil
}

// DeleteAccount はアカウントとプロフィールを削除します。
// 自己削除と最後の admin の削除は常に禁止します（全ての入口で同一ポリシー）。
// 成功時は削除したアカウントの識別情報を返します。
func (d *Directory) DeleteAccount(ctx context.Context, id, actorID int64) (*Account, error) {
	if id == actorID {
		return nil, common.E(common.ErrPolicy, "自分自身のアカウントは削除できません。")
	}

	deleted, err := d.repo.Delete(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrNotFound):
			return nil, common.E(common.ErrNotFound, "ユーザーが見つかりません。")
		case errors.Is(err, ErrLastAdmin):
			return nil, common.E(common.ErrPolicy, "最後の管理者アカウントは削除できません。")
		}
		return nil, d.storageError(ctx, "delete account", err)
	}

	d.logger.InfoContext(ctx, "account deleted",
		"id", deleted.ID, "username", deleted.Username, "actorId", actorID)
	return deleted, nil
}

// EnsureBootstrapAdmin は admin が1人も居ない場合に初期管理者を作成します。
// 初期管理者の設定が空の場合は何もしません。
func (d *Directory) EnsureBootstrapAdmin(ctx context.Context, username, email, password string) error {
	if username == "" || email == "" || password == "" {
		return nil
	}

	count, err := d.repo.CountAdmins(ctx)
	if err != nil {
		return d.storageError(ctx, "count admins", err)
	}
	if count > 0 {
		return nil
	}

	_, err = d.CreateAccount(ctx, username, email, password, username, RoleAdmin, nil)
	if err != nil {
		return err
	}
	d.logger.InfoContext(ctx, "bootstrap admin created", "username", username)
	return nil
}

// ValidateNewAccount は新規アカウント共通の入力検証です。
// auth パッケージの登録処理と管理者操作による作成の両方から使用します。
// 検証に通らない限りストレージには一切触れません。
func ValidateNewAccount(username, email, password, displayName string) error {
	if username == "" || email == "" || password == "" || displayName == "" {
		return common.E(common.ErrValidation, "全ての項目を入力してください。")
	}
	if !ValidEmail(email) {
		return common.E(common.ErrValidation, "メールアドレスの形式が正しくありません。")
	}
	if len(password) < MinPasswordLength {
		return common.E(common.ErrValidation,
			fmt.Sprintf("パスワードは%d文字以上で入力してください。", MinPasswordLength))
	}
	return nil
}

func (d *Directory) storageError(ctx context.Context, op string, err error) error {
	d.logger.ErrorContext(ctx, "storage failure", "op", op, "error", err)
	return common.E(common.ErrStorage, "エラーが発生しました。もう一度お試しください。")
}
