package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/useradmin/internal/session"
	"github.com/yourusername/useradmin/internal/users"
)

const (
	// ContextSessionKey は、ハンドラー間で検証済みセッションを共有するためのキーです。
	ContextSessionKey = "auth.session"

	csrfFormField = "csrf_token"
	csrfHeader    = "X-CSRF-Token"
)

// CurrentSession は RequireLogin が格納した検証済みセッションを返します。
// 保護されていないルートでは nil を返します。
func CurrentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(ContextSessionKey)
	if !ok {
		return nil
	}
	sess, ok := v.(*session.Session)
	if !ok {
		return nil
	}
	return sess
}

// RequireLogin はセッションを検証するミドルウェアを返します。
// アイドルタイムアウトの判定と最終アクティビティの更新は
// session.Manager.Current の中で行われます。
func RequireLogin(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(session.CookieName)

		sess, err := sessions.Current(c.Request.Context(), id)
		if err != nil || sess == nil {
			abortUnauthenticated(c)
			return
		}

		c.Set(ContextSessionKey, sess)
		c.Next()
	}
}

// VerifyCSRF は状態変更リクエストのCSRFトークンを検証するミドルウェアです。
// トークンはフォームの隠しフィールド、または X-CSRF-Token ヘッダーで受け取ります。
func VerifyCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		sess := CurrentSession(c)

		candidate := c.PostForm(csrfFormField)
		if candidate == "" {
			candidate = c.GetHeader(csrfHeader)
		}

		if !session.ValidateCSRFToken(sess, candidate) {
			abortCSRF(c)
			return
		}

		c.Next()
	}
}

// RequireAdmin は admin ロールのみを通すミドルウェアです。
// RequireLogin の後段に配置する前提です。
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := CurrentSession(c)
		if sess == nil || sess.Role != string(users.RoleAdmin) {
			if wantsJSON(c) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"code":    "FORBIDDEN",
					"message": "この操作には管理者権限が必要です",
				})
				return
			}
			c.Redirect(http.StatusSeeOther, "/dashboard")
			c.Abort()
			return
		}
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context) {
	if wantsJSON(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"code":    "UNAUTHORIZED",
			"message": "ログインが必要です",
		})
		return
	}

	// 失効したクッキーはここで捨てる
	c.SetCookie(session.CookieName, "", -1, "/", "", false, true)
	c.Redirect(http.StatusSeeOther, "/login")
	c.Abort()
}

func abortCSRF(c *gin.Context) {
	if wantsJSON(c) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"code":    "CSRF_INVALID",
			"message": "CSRF トークンが一致しません",
		})
		return
	}
	c.HTML(http.StatusForbidden, "error.html", gin.H{
		"Title":   "不正なリクエスト",
		"Message": "セキュリティトークンが一致しません。フォームを開き直してください。",
	})
	c.Abort()
}

func wantsJSON(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/")
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
