package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/useradmin/internal/auth"
	"github.com/yourusername/useradmin/internal/common"
	"github.com/yourusername/useradmin/internal/session"
)

// ShowLogin は GET /login のハンドラーです。ログイン済みならダッシュボードへ送ります。
func (h *Handlers) ShowLogin(c *gin.Context) {
	if h.loggedIn(c) {
		c.Redirect(http.StatusSeeOther, "/dashboard")
		return
	}

	success, errMsg := flashFromQuery(c)
	c.HTML(http.StatusOK, "login.html", gin.H{
		"Success": success,
		"Error":   errMsg,
	})
}

// HandleLogin は POST /login のハンドラーです。
func (h *Handlers) HandleLogin(c *gin.Context) {
	identifier := c.PostForm("username")
	password := c.PostForm("password")

	sess, err := h.auth.Login(c.Request.Context(), identifier, password)
	if err != nil {
		c.HTML(http.StatusUnauthorized, "login.html", gin.H{
			"Error":    common.UserMessage(err),
			"Username": identifier,
		})
		return
	}

	setSessionCookie(c, sess.ID)
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

// ShowRegister は GET /register のハンドラーです。
func (h *Handlers) ShowRegister(c *gin.Context) {
	if h.loggedIn(c) {
		c.Redirect(http.StatusSeeOther, "/dashboard")
		return
	}
	c.HTML(http.StatusOK, "register.html", gin.H{})
}

// HandleRegister は POST /register のハンドラーです。
// パスワード確認の一致チェックはページ側の責務としてここで行います。
func (h *Handlers) HandleRegister(c *gin.Context) {
	username := c.PostForm("username")
	email := c.PostForm("email")
	password := c.PostForm("password")
	confirm := c.PostForm("confirm_password")
	displayName := c.PostForm("display_name")

	render := func(status int, data gin.H) {
		data["Username"] = username
		data["Email"] = email
		data["DisplayName"] = displayName
		c.HTML(status, "register.html", data)
	}

	if password != confirm {
		render(http.StatusBadRequest, gin.H{"Error": "パスワードが一致しません。"})
		return
	}

	if err := h.auth.Register(c.Request.Context(), username, email, password, displayName); err != nil {
		render(http.StatusBadRequest, gin.H{"Error": common.UserMessage(err)})
		return
	}

	c.HTML(http.StatusOK, "register.html", gin.H{
		"Success": "登録が完了しました。ログインしてください。",
	})
}

// HandleLogout は POST /logout のハンドラーです。
// セッションが無い状態で呼ばれても同じ結果（未ログイン）になります。
func (h *Handlers) HandleLogout(c *gin.Context) {
	sess := auth.CurrentSession(c)
	if sess != nil {
		if err := h.auth.Logout(c.Request.Context(), sess.ID); err != nil {
			h.logger.ErrorContext(c.Request.Context(), "logout failed", "error", err)
		}
	}
	clearSessionCookie(c)
	c.Redirect(http.StatusSeeOther, "/login")
}

// loggedIn は保護されていないページから有効なセッションの有無を確認します。
// session.Manager.Current の仕様どおり、失効セッションの破棄と
// 最終アクティビティの更新という副作用を伴います。
func (h *Handlers) loggedIn(c *gin.Context) bool {
	id, err := c.Cookie(session.CookieName)
	if err != nil || id == "" {
		return false
	}
	sess, err := h.sessions.Current(c.Request.Context(), id)
	return err == nil && sess != nil
}
