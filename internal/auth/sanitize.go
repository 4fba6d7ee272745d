package auth

import "strings"

// HTMLのメタ文字をエスケープする置換器。
// html/template の自動エスケープを通らない出力経路で使用します。
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// SanitizeOutput は利用者由来の文字列をHTMLに安全に埋め込める形へ変換します。
// 副作用のない純粋関数です。
func SanitizeOutput(s string) string {
	return htmlEscaper.Replace(s)
}
