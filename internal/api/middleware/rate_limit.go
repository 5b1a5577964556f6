package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"timetable-admin/backend/pkg/redis"
	"timetable-admin/backend/pkg/response"
)

// 写接口限流桶：同一资源的所有写路由共享计数，
// 交替调用创建、编辑、启停、导入不能绕过限制
const (
	BucketTimeSlot       = "time_slot_write"
	BucketTimetableEntry = "timetable_entry_write"
	BucketCatalog        = "catalog_write"
)

// RateLimit 基于 Redis 滑动窗口的速率限制中间件
// bucket: 限流桶名称；limit: 窗口内允许的最大请求数；window: 滑动窗口时长
// 已认证请求按用户计数，否则按客户端 IP；rdb 为 nil 时降级放行（与 JWTAuth 策略一致）
func RateLimit(rdb *redis.Client, bucket string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		subject := c.ClientIP()
		if uid := GetUserID(c); uid != "" {
			subject = "user:" + uid
		}
		key := fmt.Sprintf("%s:%s", bucket, subject)
		allowed, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			// Redis 出错时降级放行
			c.Next()
			return
		}

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			response.Error(c, http.StatusTooManyRequests, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
