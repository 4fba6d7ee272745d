// Package auth は認証・認可機能を提供します。
// 登録・資格情報の検証・セッションライフサイクル・CSRF検証を担い、
// ストレージ層のエラーは境界でログに落として汎用メッセージに変換します。
package auth

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/useradmin/internal/common"
	"github.com/yourusername/useradmin/internal/session"
	"github.com/yourusername/useradmin/internal/users"
)

// Service は認証処理をまとめた構造体です。
type Service struct {
	repo     users.Repository
	sessions *session.Manager
	logger   *slog.Logger
}

// NewService は認証サービスを作成します。
func NewService(repo users.Repository, sessions *session.Manager, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		sessions: sessions,
		logger:   logger,
	}
}

// Register は新規アカウントを登録します。ロールは常に user です。
// 入力検証に通らない限りストレージには触れず、パスワードハッシュも計算しません。
func (s *Service) Register(ctx context.Context, username, email, password, displayName string) error {
	if err := users.ValidateNewAccount(username, email, password, displayName); err != nil {
		return err
	}

	exists, err := s.repo.Exists(ctx, username, email)
	if err != nil {
		return s.storageError(ctx, "check account exists", err)
	}
	if exists {
		return common.E(common.ErrConflict, "ユーザー名またはメールアドレスは既に使用されています。")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return s.storageError(ctx, "hash password", err)
	}

	account := &users.Account{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		Role:         users.RoleUser,
	}
	if _, err := s.repo.Create(ctx, account); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return common.E(common.ErrConflict, "ユーザー名またはメールアドレスは既に使用されています。")
		}
		return s.storageError(ctx, "create account", err)
	}

	s.logger.InfoContext(ctx, "account registered", "username", username)
	return nil
}

// Login は資格情報を検証し、成功時に新しいセッションを確立して返します。
// ユーザー不在とパスワード不一致は同じエラーにまとめ、アカウントの存在を
// 推測できないようにします。identifier はユーザー名とメールのどちらでも構いません。
func (s *Service) Login(ctx context.Context, identifier, password string) (*session.Session, error) {
	if identifier == "" || password == "" {
		return nil, common.E(common.ErrValidation, "ユーザー名とパスワードを入力してください。")
	}

	account, err := s.repo.FindByLogin(ctx, identifier)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.E(common.ErrInvalidCredentials, "ユーザー名またはパスワードが正しくありません。")
		}
		return nil, s.storageError(ctx, "find account", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, common.E(common.ErrInvalidCredentials, "ユーザー名またはパスワードが正しくありません。")
	}

	sess, err := s.sessions.Create(ctx, session.Identity{
		UserID:      account.ID,
		Username:    account.Username,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		Role:        string(account.Role),
	})
	if err != nil {
		return nil, s.storageError(ctx, "create session", err)
	}

	s.logger.InfoContext(ctx, "login succeeded", "username", account.Username)
	return sess, nil
}

// Logout はセッションを破棄します。アクティブなセッションが無くても何もせず成功します。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		return s.storageError(ctx, "destroy session", err)
	}
	return nil
}

func (s *Service) storageError(ctx context.Context, op string, err error) error {
	s.logger.ErrorContext(ctx, "storage failure", "op", op, "error", err)
	return common.E(common.ErrStorage, "エラーが発生しました。もう一度お試しください。")
}
