package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"timetable-admin/backend/config"
	"timetable-admin/backend/internal/api/handler"
	"timetable-admin/backend/internal/api/middleware"
	"timetable-admin/backend/pkg/jwt"
	"timetable-admin/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时黑名单检查与限流降级放行
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit, cfg.Server.UploadLimit))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	admin := middleware.RoleAuth(jwt.RoleAdmin)
	limitFor := func(bucket string) gin.HandlerFunc {
		return middleware.RateLimit(rdb, bucket, cfg.Server.RateLimit, cfg.Server.RateWindow)
	}
	slotLimit := limitFor(middleware.BucketTimeSlot)
	entryLimit := limitFor(middleware.BucketTimetableEntry)
	catalogLimit := limitFor(middleware.BucketCatalog)

	// ── API v1（全部需要认证）──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr, rdb, logger))
	{
		v1.POST("/auth/logout", h.Auth.Logout)

		// 时间段模块
		timeSlots := v1.Group("/time-slots")
		{
			timeSlots.GET("", h.TimeSlot.ListTimeSlots)
			timeSlots.GET("/:id", h.TimeSlot.GetTimeSlot)
			timeSlots.GET("/:id/dependencies", h.TimeSlot.GetDependencies)
			timeSlots.POST("", admin, slotLimit, h.TimeSlot.CreateTimeSlot)
			timeSlots.POST("/validate", admin, h.TimeSlot.ValidateTimeSlot)
			timeSlots.POST("/import", admin, slotLimit, h.TimeSlot.ImportTimeSlots)
			timeSlots.POST("/transitions", admin, slotLimit, h.TimeSlot.BulkTransitionTimeSlots)
			timeSlots.PUT("/:id", admin, slotLimit, h.TimeSlot.UpdateTimeSlot)
			timeSlots.POST("/:id/transitions", admin, slotLimit, h.TimeSlot.TransitionTimeSlot)
		}

		// 课表项模块
		entries := v1.Group("/timetable-entries")
		{
			entries.GET("", h.TimetableEntry.ListEntries)
			entries.GET("/stale", h.TimetableEntry.ListStaleEntries)
			entries.GET("/:id", h.TimetableEntry.GetEntry)
			entries.POST("", admin, entryLimit, h.TimetableEntry.CreateEntry)
			entries.POST("/check", admin, h.TimetableEntry.CheckEntry)
			entries.PUT("/:id/active", admin, entryLimit, h.TimetableEntry.SetEntryActive)
		}

		// 基础数据
		subjects := v1.Group("/subjects")
		{
			subjects.GET("", h.Catalog.ListSubjects)
			subjects.GET("/:id", h.Catalog.GetSubject)
			subjects.POST("", admin, catalogLimit, h.Catalog.CreateSubject)
		}
		faculty := v1.Group("/faculty")
		{
			faculty.GET("", h.Catalog.ListFaculty)
			faculty.GET("/:id", h.Catalog.GetFaculty)
			faculty.POST("", admin, catalogLimit, h.Catalog.CreateFaculty)
		}
		classrooms := v1.Group("/classrooms")
		{
			classrooms.GET("", h.Catalog.ListClassrooms)
			classrooms.GET("/:id", h.Catalog.GetClassroom)
			classrooms.POST("", admin, catalogLimit, h.Catalog.CreateClassroom)
		}

		// 导出模块
		v1.GET("/export/timetable", h.Export.ExportTimetable)
	}

	return r
}
