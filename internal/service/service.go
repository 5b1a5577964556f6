package service

import (
	"go.uber.org/zap"

	"timetable-admin/backend/config"
	"timetable-admin/backend/internal/repository"
	"timetable-admin/backend/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth           AuthService
	TimeSlot       TimeSlotService
	TimetableEntry TimetableEntryService
	Catalog        CatalogService
	Export         ExportService
	Lifecycle      *LifecycleManager
}

// NewService 创建 Service 聚合；sink 为 nil 时生命周期事件写入日志
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	revoker TokenRevoker,
	sink AuditSink,
	logger *zap.Logger,
) *Service {
	if sink == nil {
		sink = NewLogAuditSink(logger)
	}
	lifecycle := NewLifecycleManager(repo, sink, logger, LifecycleOptions{
		LegacyFailOpenDelete: cfg.Feature.LegacyFailOpenDelete,
		SampleSize:           cfg.Schedule.BlockedSampleSize,
	})
	validator := NewTimeSlotValidator(&cfg.Slot)

	return &Service{
		Auth:           NewAuthService(jwtMgr, revoker, logger),
		TimeSlot:       NewTimeSlotService(repo, validator, lifecycle, logger),
		TimetableEntry: NewTimetableEntryService(repo, cfg.Schedule.ConflictPolicy, logger),
		Catalog:        NewCatalogService(repo, logger),
		Export:         NewExportService(repo, logger),
		Lifecycle:      lifecycle,
	}
}
