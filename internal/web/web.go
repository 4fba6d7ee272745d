// Package web はサーバーサイドレンダリングのページハンドラーを提供します。
// 各ハンドラーは認証→ディレクトリ操作→描画の順で呼び出すだけの薄い層で、
// 業務ロジックは auth / users パッケージに置きます。
package web

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/useradmin/internal/auth"
	"github.com/yourusername/useradmin/internal/session"
	"github.com/yourusername/useradmin/internal/storage"
	"github.com/yourusername/useradmin/internal/users"
)

// Handlers はページハンドラーが依存するサービスをまとめた構造体です。
type Handlers struct {
	auth           *auth.Service
	sessions       *session.Manager
	directory      *users.Directory
	avatars        storage.Storage
	avatarMaxBytes int64
	logger         *slog.Logger
}

// NewHandlers は Handlers を作成します。
func NewHandlers(
	authService *auth.Service,
	sessions *session.Manager,
	directory *users.Directory,
	avatars storage.Storage,
	avatarMaxBytes int64,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		auth:           authService,
		sessions:       sessions,
		directory:      directory,
		avatars:        avatars,
		avatarMaxBytes: avatarMaxBytes,
		logger:         logger,
	}
}

// Health はヘルスチェックエンドポイントのハンドラーです。
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "useradmin",
		"version": "0.1.0",
	})
}

// setSessionCookie はセッションIDクッキーを発行します。
// Secure フラグは本番（release モード）でのみ付けます。
func setSessionCookie(c *gin.Context, sessionID string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName, sessionID, session.MaxAgeSeconds(), "/", "",
		gin.Mode() == gin.ReleaseMode, true)
}

// clearSessionCookie はセッションIDクッキーを破棄します。
func clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName, "", -1, "/", "",
		gin.Mode() == gin.ReleaseMode, true)
}

// redirectWithFlash はフラッシュメッセージをクエリパラメータで運ぶリダイレクトです。
func redirectWithFlash(c *gin.Context, path, kind, message string) {
	c.Redirect(http.StatusSeeOther, path+"?"+kind+"="+url.QueryEscape(message))
}

// flashFromQuery はクエリパラメータのフラッシュメッセージを取り出します。
func flashFromQuery(c *gin.Context) (success, errMsg string) {
	return c.Query("success"), c.Query("error")
}
