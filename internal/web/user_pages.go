package web

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/useradmin/internal/auth"
	"github.com/yourusername/useradmin/internal/common"
	"github.com/yourusername/useradmin/internal/users"
)

// Dashboard は GET /dashboard のハンドラーです。
// アカウント一覧（検索語があれば絞り込み）とフラッシュメッセージを描画します。
func (h *Handlers) Dashboard(c *gin.Context) {
	sess := auth.CurrentSession(c)

	term := c.Query("search")
	list, err := h.directory.Search(c.Request.Context(), term)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{
			"Title":   "エラー",
			"Message": common.UserMessage(err),
		})
		return
	}

	token, err := h.sessions.EnsureCSRFToken(c.Request.Context(), sess)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{
			"Title":   "エラー",
			"Message": common.UserMessage(err),
		})
		return
	}

	success, errMsg := flashFromQuery(c)
	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"CurrentUser": sess,
		"IsAdmin":     sess.Role == string(users.RoleAdmin),
		"Users":       list,
		"Search":      term,
		"CSRFToken":   token,
		"Success":     success,
		"Error":       errMsg,
	})
}

// ViewUser は GET /users/:id のハンドラーです。
func (h *Handlers) ViewUser(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		redirectWithFlash(c, "/dashboard", "error", "ユーザーが見つかりません。")
		return
	}

	user, err := h.directory.Get(c.Request.Context(), id)
	if err != nil {
		redirectWithFlash(c, "/dashboard", "error", common.UserMessage(err))
		return
	}

	sess := auth.CurrentSession(c)
	token, err := h.sessions.EnsureCSRFToken(c.Request.Context(), sess)
	if err != nil {
		redirectWithFlash(c, "/dashboard", "error", common.UserMessage(err))
		return
	}

	c.HTML(http.StatusOK, "view_user.html", gin.H{
		"CurrentUser": sess,
		"IsAdmin":     sess.Role == string(users.RoleAdmin),
		"User":        user,
		"CSRFToken":   token,
	})
}

// ShowCreateUser は GET /users/new のハンドラーです（admin のみ）。
func (h *Handlers) ShowCreateUser(c *gin.Context) {
	sess := auth.CurrentSession(c)
	token, err := h.sessions.EnsureCSRFToken(c.Request.Context(), sess)
	if err != nil {
		redirectWithFlash(c, "/dashboard", "error", common.UserMessage(err))
		return
	}

	c.HTML(http.StatusOK, "create_user.html", gin.H{
		"CurrentUser": sess,
		"IsAdmin":     true,
		"CSRFToken":   token,
		"Role":        string(users.RoleUser),
	})
}

// HandleCreateUser は POST /users/new のハンドラーです（admin のみ）。
// ロールを明示的に指定でき、初期プロフィールがあれば同時に作成します。
func (h *Handlers) HandleCreateUser(c *gin.Context) {
	sess := auth.CurrentSession(c)

	username := c.PostForm("username")
	email := c.PostForm("email")
	password := c.PostForm("password")
	displayName := c.PostForm("display_name")
	role := users.Role(c.DefaultPostForm("role", string(users.RoleUser)))

	var profile *users.Profile
	phone := c.PostForm("phone")
	address := c.PostForm("address")
	bio := c.PostForm("bio")
	if phone != "" || address != "" || bio != "" {
		profile = &users.Profile{Phone: phone, Address: address, Bio: bio}
	}

	account, err := h.directory.CreateAccount(c.Request.Context(),
		username, email, password, displayName, role, profile)
	if err != nil {
		token, tokenErr := h.sessions.EnsureCSRFToken(c.Request.Context(), sess)
		if tokenErr != nil {
			redirectWithFlash(c, "/dashboard", "error", common.UserMessage(tokenErr))
			return
		}
		c.HTML(http.StatusBadRequest, "create_user.html", gin.H{
			"CurrentUser": sess,
			"IsAdmin":     true,
			"CSRFToken":   token,
			"Error":       common.UserMessage(err),
			"Username":    username,
			"Email":       email,
			"DisplayName": displayName,
			"Role":        string(role),
			"Phone":       phone,
			"Address":     address,
			"Bio":         bio,
		})
		return
	}

	redirectWithFlash(c, "/dashboard", "success",
		"ユーザー「"+account.DisplayName+"」を作成しました。")
}

// ShowDeleteUser は GET /users/:id/delete の確認ページです（admin のみ）。
func (h *Handlers) ShowDeleteUser(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		redirectWithFlash(c, "/dashboard", "error", "ユーザーが見つかりません。")
		return
	}

	user, err := h.directory.Get(c.Request.Context(), id)
	if err != nil {
		redirectWithFlash(c, "/dashboard", "error", common.UserMessage(err))
		return
	}

	sess := auth.CurrentSession(c)
	token, err := h.sessions.EnsureCSRFToken(c.Request.Context(), sess)
	if err != nil {
		redirectWithFlash(c, "/dashboard", "error", common.UserMessage(err))
		return
	}

	_, errMsg := flashFromQuery(c)
	c.HTML(http.StatusOK, "delete_user.html", gin.H{
		"CurrentUser": sess,
		"IsAdmin":     true,
		"User":        user,
		"CSRFToken":   token,
		"Error":       errMsg,
	})
}

// HandleDeleteUser は POST /users/:id/delete のハンドラーです（admin のみ）。
// 確認ページからの送信には confirmation フィールドの一致を要求します。
// ダッシュボードの行内フォームからの送信は confirm=row で確認入力を省略します。
func (h *Handlers) HandleDeleteUser(c *gin.Context) {
	sess := auth.CurrentSession(c)

	id, err := parseID(c)
	if err != nil {
		redirectWithFlash(c, "/dashboard", "error", "ユーザーが見つかりません。")
		return
	}

	if c.PostForm("confirm") != "row" && c.PostForm("confirmation") != "DELETE" {
		redirectWithFlash(c, "/users/"+strconv.FormatInt(id, 10)+"/delete",
			"error", "削除するには DELETE と入力してください。")
		return
	}

	// アバターファイルの後始末のため、削除前に参照を控えておく
	var avatarRef string
	if user, getErr := h.directory.Get(c.Request.Context(), id); getErr == nil {
		avatarRef = user.Profile.AvatarRef
	}

	deleted, err := h.directory.DeleteAccount(c.Request.Context(), id, sess.UserID)
	if err != nil {
		redirectWithFlash(c, "/dashboard", "error", common.UserMessage(err))
		return
	}

	if avatarRef != "" {
		if err := h.avatars.Delete(c.Request.Context(), avatarRef); err != nil {
			h.logger.WarnContext(c.Request.Context(), "avatar cleanup failed",
				"ref", avatarRef, "error", err)
		}
	}

	redirectWithFlash(c, "/dashboard", "success",
		"ユーザー「"+deleted.DisplayName+"」を削除しました。")
}

func parseID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
