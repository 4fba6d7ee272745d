// Package common はサービス層とハンドラー層で共有するエラー分類を提供します。
package common

import "errors"

// エラー分類の番兵値。errors.Is での判定に使用します。
var (
	// ErrValidation は入力不備（ストレージ到達前に検出）を表します。
	ErrValidation = errors.New("validation error")

	// ErrConflict は一意制約違反（ユーザー名/メールの重複）を表します。
	ErrConflict = errors.New("conflict")

	// ErrInvalidCredentials は認証失敗を表します。
	// ユーザー不在とパスワード不一致を意図的に区別しません。
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrPolicy は業務ポリシー違反（最終管理者の削除、自己削除）を表します。
	ErrPolicy = errors.New("policy violation")

	// ErrNotFound は対象レコードの不在を表します。
	ErrNotFound = errors.New("not found")

	// ErrStorage はストレージ層の失敗を表します。
	// 生のドライバーエラーはログにのみ残し、利用者には汎用メッセージを返します。
	ErrStorage = errors.New("storage error")
)

// AppError は分類と利用者向けメッセージを持つエラーです。
// Unwrap が分類の番兵値を返すため、errors.Is(err, common.ErrXxx) で判定できます。
type AppError struct {
	Kind    error
	Message string
}

// E は AppError を作成します。
func E(kind error, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Kind
}

// UserMessage は利用者に表示してよいメッセージを返します。
// ストレージ系のエラーや分類されていないエラーは汎用メッセージに置き換えます。
func UserMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && !errors.Is(err, ErrStorage) {
		return appErr.Message
	}
	return "エラーが発生しました。もう一度お試しください。"
}
