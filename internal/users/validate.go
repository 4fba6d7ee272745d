package users

import "regexp"

const (
	// MinPasswordLength はパスワードの最低文字数です。
	MinPasswordLength = 6

	// MaxBioLength は自己紹介の最大文字数です。
	MaxBioLength = 500
)

// 厳密なRFC準拠ではなく、一般的なメールアドレスの形だけを確認する
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail は文字列がメールアドレスの形式かどうかを返します。
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}
