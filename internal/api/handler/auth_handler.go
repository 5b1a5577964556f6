package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"timetable-admin/backend/internal/api/middleware"
	"timetable-admin/backend/internal/service"
	"timetable-admin/backend/pkg/response"
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Logout 注销当前 Token
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Unauthorized(c, 10002, "未认证")
		return
	}

	if err := h.authSvc.Logout(c.Request.Context(), claims); err != nil {
		if errors.Is(err, service.ErrRevocationUnavailable) {
			response.ServiceUnavailable(c, 11002, "Token 注销服务不可用")
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, nil)
}
