package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppErrorMatchesKind(t *testing.T) {
	err := E(ErrValidation, "入力が不正です。")

	if !errors.Is(err, ErrValidation) {
		t.Error("expected errors.Is to match ErrValidation")
	}
	if errors.Is(err, ErrConflict) {
		t.Error("expected errors.Is not to match ErrConflict")
	}
	if err.Error() != "入力が不正です。" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestAppErrorMatchesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("handler: %w", E(ErrNotFound, "見つかりません。"))

	if !errors.Is(err, ErrNotFound) {
		t.Error("expected errors.Is to match through wrapping")
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatal("expected errors.As to find AppError")
	}
	if appErr.Message != "見つかりません。" {
		t.Errorf("Message = %q", appErr.Message)
	}
}

func TestUserMessage(t *testing.T) {
	generic := "エラーが発生しました。もう一度お試しください。"

	cases := []struct {
		name string
		err  error
		want string
	}{
		{"validation message passes through", E(ErrValidation, "入力が不正です。"), "入力が不正です。"},
		{"policy message passes through", E(ErrPolicy, "削除できません。"), "削除できません。"},
		{"storage detail is hidden", E(ErrStorage, "connection refused"), generic},
		{"unclassified error is hidden", errors.New("pq: deadlock detected"), generic},
		{"nil error is hidden", nil, generic},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := UserMessage(tc.err); got != tc.want {
				t.Errorf("UserMessage = %q, want %q", got, tc.want)
			}
		})
	}
}
