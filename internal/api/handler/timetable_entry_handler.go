package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"timetable-admin/backend/internal/dto"
	"timetable-admin/backend/internal/service"
	"timetable-admin/backend/pkg/response"
)

// TimetableEntryHandler 课表项模块 HTTP 处理器
type TimetableEntryHandler struct {
	entrySvc service.TimetableEntryService
}

// NewTimetableEntryHandler 创建 TimetableEntryHandler
func NewTimetableEntryHandler(entrySvc service.TimetableEntryService) *TimetableEntryHandler {
	return &TimetableEntryHandler{entrySvc: entrySvc}
}

// ListEntries 获取课表项列表
// GET /api/v1/timetable-entries
func (h *TimetableEntryHandler) ListEntries(c *gin.Context) {
	var req dto.TimetableEntryListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	entries, err := h.entrySvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": entries})
}

// ListStaleEntries 引用已停用时间段的有效课表项
// GET /api/v1/timetable-entries/stale?semester=&academic_year=
func (h *TimetableEntryHandler) ListStaleEntries(c *gin.Context) {
	entries, err := h.entrySvc.ListStale(c.Request.Context(), c.Query("semester"), c.Query("academic_year"))
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": entries})
}

// GetEntry 获取课表项详情
// GET /api/v1/timetable-entries/:id
func (h *TimetableEntryHandler) GetEntry(c *gin.Context) {
	entry, err := h.entrySvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleEntryError(c, err)
		return
	}

	response.OK(c, entry)
}

// CreateEntry 创建课表项
// POST /api/v1/timetable-entries
func (h *TimetableEntryHandler) CreateEntry(c *gin.Context) {
	var req dto.CreateTimetableEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	entry, err := h.entrySvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleEntryError(c, err)
		return
	}

	response.Created(c, entry)
}

// CheckEntry 课表项冲突预检
// POST /api/v1/timetable-entries/check
func (h *TimetableEntryHandler) CheckEntry(c *gin.Context) {
	var req dto.CheckTimetableEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.entrySvc.CheckConflict(c.Request.Context(), &req)
	if err != nil {
		h.handleEntryError(c, err)
		return
	}

	response.OK(c, gin.H{
		"conflict": result.HasConflict(),
		"result":   result,
		"message":  result.Message(),
	})
}

// SetEntryActive 启用 / 停用课表项
// PUT /api/v1/timetable-entries/:id/active
func (h *TimetableEntryHandler) SetEntryActive(c *gin.Context) {
	var req dto.SetEntryActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	entry, err := h.entrySvc.SetActive(c.Request.Context(), c.Param("id"), *req.IsActive, callerID)
	if err != nil {
		h.handleEntryError(c, err)
		return
	}

	response.OK(c, entry)
}

// handleEntryError 统一处理课表项模块业务错误
func (h *TimetableEntryHandler) handleEntryError(c *gin.Context, err error) {
	var conflictErr *service.EntryConflictError
	switch {
	case errors.As(err, &conflictErr):
		response.ConflictWithData(c, 17002, conflictErr.Result.Message(), conflictErr.Result)
	case errors.Is(err, service.ErrEntryNotFound):
		response.NotFound(c, 17001, "课表项不存在")
	case errors.Is(err, service.ErrTimeSlotNotFound):
		response.BadRequest(c, 15001, "时间段不存在")
	case errors.Is(err, service.ErrTimeSlotInactive):
		response.BadRequest(c, 15003, "时间段已停用，不可分配课表项")
	case errors.Is(err, service.ErrSubjectNotFound):
		response.BadRequest(c, 17003, "科目不存在")
	case errors.Is(err, service.ErrFacultyNotFound):
		response.BadRequest(c, 17004, "教师不存在")
	case errors.Is(err, service.ErrClassroomNotFound):
		response.BadRequest(c, 17005, "教室不存在")
	default:
		response.InternalError(c)
	}
}
