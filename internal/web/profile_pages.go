package web

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/useradmin/internal/auth"
	"github.com/yourusername/useradmin/internal/common"
	"github.com/yourusername/useradmin/internal/users"
)

// アバターとして受け付ける画像形式。拡張子ではなく内容の判定結果で照合します。
var allowedAvatarTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// ShowProfile は GET /profile のハンドラーです。
// 表示はセッションのコピーではなく資格情報ストアの現在値を使います。
func (h *Handlers) ShowProfile(c *gin.Context) {
	sess := auth.CurrentSession(c)

	user, err := h.directory.Get(c.Request.Context(), sess.UserID)
	if err != nil {
		redirectWithFlash(c, "/dashboard", "error", common.UserMessage(err))
		return
	}

	token, err := h.sessions.EnsureCSRFToken(c.Request.Context(), sess)
	if err != nil {
		redirectWithFlash(c, "/dashboard", "error", common.UserMessage(err))
		return
	}

	success, errMsg := flashFromQuery(c)
	c.HTML(http.StatusOK, "profile.html", gin.H{
		"CurrentUser": sess,
		"IsAdmin":     sess.Role == string(users.RoleAdmin),
		"User":        user,
		"CSRFToken":   token,
		"Success":     success,
		"Error":       errMsg,
	})
}

// HandleProfileUpdate は POST /profile のハンドラーです。
// アカウントの可変フィールドとプロフィールを1回の操作で更新します。
func (h *Handlers) HandleProfileUpdate(c *gin.Context) {
	sess := auth.CurrentSession(c)

	displayName := c.PostForm("display_name")
	email := c.PostForm("email")
	profile := users.Profile{
		Phone:   c.PostForm("phone"),
		Address: c.PostForm("address"),
		Bio:     c.PostForm("bio"),
	}

	err := h.directory.UpdateAccountAndProfile(c.Request.Context(), sess.UserID, displayName, email, profile)
	if err != nil {
		redirectWithFlash(c, "/profile", "error", common.UserMessage(err))
		return
	}

	redirectWithFlash(c, "/profile", "success", "プロフィールを更新しました。")
}

// HandleAvatarUpload は POST /profile/avatar のハンドラーです。
// 内容をスニッフィングして画像のみを受け付け、置き換え前のファイルは削除します。
func (h *Handlers) HandleAvatarUpload(c *gin.Context) {
	sess := auth.CurrentSession(c)

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		redirectWithFlash(c, "/profile", "error", "アバター画像を選択してください。")
		return
	}
	if fileHeader.Size > h.avatarMaxBytes {
		redirectWithFlash(c, "/profile", "error", "アバター画像が大きすぎます。")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		redirectWithFlash(c, "/profile", "error", "アバター画像の読み込みに失敗しました。")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.avatarMaxBytes+1))
	if err != nil || int64(len(data)) > h.avatarMaxBytes {
		redirectWithFlash(c, "/profile", "error", "アバター画像の読み込みに失敗しました。")
		return
	}

	mtype := mimetype.Detect(data)
	ext, ok := allowedAvatarTypes[mtype.String()]
	if !ok {
		redirectWithFlash(c, "/profile", "error", "PNG・JPEG・WebP の画像のみアップロードできます。")
		return
	}

	name := uuid.NewString() + ext
	if err := h.avatars.Save(c.Request.Context(), name, data); err != nil {
		h.logger.ErrorContext(c.Request.Context(), "avatar save failed", "error", err)
		redirectWithFlash(c, "/profile", "error", "アバター画像の保存に失敗しました。")
		return
	}

	previous, err := h.directory.SetAvatar(c.Request.Context(), sess.UserID, name)
	if err != nil {
		// DB更新に失敗したらファイルを残さない
		_ = h.avatars.Delete(c.Request.Context(), name)
		redirectWithFlash(c, "/profile", "error", common.UserMessage(err))
		return
	}

	if previous != "" && previous != name {
		if err := h.avatars.Delete(c.Request.Context(), previous); err != nil {
			h.logger.WarnContext(c.Request.Context(), "avatar cleanup failed",
				"ref", previous, "error", err)
		}
	}

	redirectWithFlash(c, "/profile", "success", "アバター画像を更新しました。")
}

// Avatar は GET /avatars/:name のハンドラーです。保存済みのアバター画像を返します。
func (h *Handlers) Avatar(c *gin.Context) {
	name := c.Param("name")
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		c.Status(http.StatusNotFound)
		return
	}

	data, err := h.avatars.Load(c.Request.Context(), name)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	c.Data(http.StatusOK, mimetype.Detect(data).String(), data)
}
