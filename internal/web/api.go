package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/useradmin/internal/common"
)

func isNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}

// ListUsersJSON は GET /api/users のハンドラーです。
// ダッシュボードと同じ一覧（検索語で絞り込み可）をJSONで返します。
func (h *Handlers) ListUsersJSON(c *gin.Context) {
	list, err := h.directory.Search(c.Request.Context(), c.Query("search"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "STORAGE_ERROR",
			"message": common.UserMessage(err),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": list})
}

// GetUserJSON は GET /api/users/:id のハンドラーです。
func (h *Handlers) GetUserJSON(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_INPUT",
			"message": "IDの形式が正しくありません",
		})
		return
	}

	user, getErr := h.directory.Get(c.Request.Context(), id)
	if getErr != nil {
		status := http.StatusInternalServerError
		code := "STORAGE_ERROR"
		if isNotFound(getErr) {
			status = http.StatusNotFound
			code = "NOT_FOUND"
		}
		c.JSON(status, gin.H{
			"code":    code,
			"message": common.UserMessage(getErr),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
