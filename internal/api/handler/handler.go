package handler

import "timetable-admin/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth           *AuthHandler
	TimeSlot       *TimeSlotHandler
	TimetableEntry *TimetableEntryHandler
	Catalog        *CatalogHandler
	Export         *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:           NewAuthHandler(svc.Auth),
		TimeSlot:       NewTimeSlotHandler(svc.TimeSlot),
		TimetableEntry: NewTimetableEntryHandler(svc.TimetableEntry),
		Catalog:        NewCatalogHandler(svc.Catalog),
		Export:         NewExportHandler(svc.Export),
	}
}
