package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"timetable-admin/backend/internal/api/middleware"
	"timetable-admin/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	uid := middleware.GetUserID(c)
	if uid == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return uid, true
}

// respondBindError 参数绑定失败：请求体超限返回 413，其余返回 400
func respondBindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
		return
	}
	response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
}
