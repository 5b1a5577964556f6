package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"timetable-admin/backend/pkg/response"
)

// BodyLimit 请求体大小限制中间件
// jsonMax 适用于普通 JSON 请求；multipart 上传（ICS 作息表导入）使用 uploadMax
func BodyLimit(jsonMax, uploadMax int64) gin.HandlerFunc {
	if uploadMax < jsonMax {
		uploadMax = jsonMax
	}
	return func(c *gin.Context) {
		limit := jsonMax
		if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
			limit = uploadMax
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}

		c.Next()

		// 处理函数未写响应、只记录了错误时，由这里统一返回 413
		if c.IsAborted() || c.Writer.Written() {
			return
		}
		for _, ginErr := range c.Errors {
			var tooLarge *http.MaxBytesError
			if errors.As(ginErr.Err, &tooLarge) {
				response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
				return
			}
		}
	}
}
