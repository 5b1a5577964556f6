package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"timetable-admin/backend/internal/dto"
	"timetable-admin/backend/internal/service"
	pkgerrors "timetable-admin/backend/pkg/errors"
	"timetable-admin/backend/pkg/response"
)

// TimeSlotHandler 时间段模块 HTTP 处理器
type TimeSlotHandler struct {
	timeSlotSvc service.TimeSlotService
}

// NewTimeSlotHandler 创建 TimeSlotHandler
func NewTimeSlotHandler(timeSlotSvc service.TimeSlotService) *TimeSlotHandler {
	return &TimeSlotHandler{timeSlotSvc: timeSlotSvc}
}

// ListTimeSlots 获取时间段列表
// GET /api/v1/time-slots
func (h *TimeSlotHandler) ListTimeSlots(c *gin.Context) {
	var req dto.TimeSlotListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	slots, err := h.timeSlotSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": slots})
}

// GetTimeSlot 获取时间段详情
// GET /api/v1/time-slots/:id
func (h *TimeSlotHandler) GetTimeSlot(c *gin.Context) {
	slot, err := h.timeSlotSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleTimeSlotError(c, err)
		return
	}

	response.OK(c, slot)
}

// GetDependencies 获取时间段依赖快照（删除确认对话框）
// GET /api/v1/time-slots/:id/dependencies
func (h *TimeSlotHandler) GetDependencies(c *gin.Context) {
	snap, err := h.timeSlotSvc.Dependencies(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleTimeSlotError(c, err)
		return
	}

	response.OK(c, snap)
}

// CreateTimeSlot 创建时间段
// POST /api/v1/time-slots
func (h *TimeSlotHandler) CreateTimeSlot(c *gin.Context) {
	var req dto.CreateTimeSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.timeSlotSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleTimeSlotError(c, err)
		return
	}

	response.Created(c, result)
}

// ValidateTimeSlot 时间段预校验，不写入
// POST /api/v1/time-slots/validate
func (h *TimeSlotHandler) ValidateTimeSlot(c *gin.Context) {
	var req dto.ValidateTimeSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.timeSlotSvc.Validate(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// ImportTimeSlots 从 ICS 作息表导入时间段
// POST /api/v1/time-slots/import  (multipart/form-data, field="file")
func (h *TimeSlotHandler) ImportTimeSlots(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		respondBindError(c, err)
		return
	}
	defer file.Close()

	result, err := h.timeSlotSvc.ImportICS(c.Request.Context(), file, callerID)
	if err != nil {
		h.handleTimeSlotError(c, err)
		return
	}

	response.Created(c, result)
}

// UpdateTimeSlot 编辑时间段
// PUT /api/v1/time-slots/:id
func (h *TimeSlotHandler) UpdateTimeSlot(c *gin.Context) {
	var req dto.UpdateTimeSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.timeSlotSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleTimeSlotError(c, err)
		return
	}

	response.OK(c, result)
}

// TransitionTimeSlot 启用 / 停用 / 永久删除单个时间段
// POST /api/v1/time-slots/:id/transitions
func (h *TimeSlotHandler) TransitionTimeSlot(c *gin.Context) {
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	t, err := service.ParseTransition(req.Action)
	if err != nil {
		h.handleTimeSlotError(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.timeSlotSvc.Transition(c.Request.Context(), c.Param("id"), t, callerID)
	if err != nil {
		h.handleTimeSlotError(c, err)
		return
	}

	// 删除被引用阻止：状态可能已被强制停用，以 409 携带结果返回
	if result.Blocked != nil {
		response.ConflictWithData(c, 15006, result.Blocked.Error(), result)
		return
	}

	response.OK(c, result)
}

// BulkTransitionTimeSlots 批量时间段操作，各项独立执行
// POST /api/v1/time-slots/transitions
func (h *TimeSlotHandler) BulkTransitionTimeSlots(c *gin.Context) {
	var req dto.BulkTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	t, err := service.ParseTransition(req.Action)
	if err != nil {
		h.handleTimeSlotError(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	results := h.timeSlotSvc.BulkTransition(c.Request.Context(), req.IDs, t, callerID)
	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}

	response.OK(c, gin.H{
		"results":   results,
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
	})
}

// handleTimeSlotError 统一处理时间段模块业务错误
func (h *TimeSlotHandler) handleTimeSlotError(c *gin.Context, err error) {
	var shapeErr *service.ShapeError
	switch {
	case errors.As(err, &shapeErr):
		response.ErrorWithDetails(c, http.StatusBadRequest, 15002, shapeErr.Error(), string(shapeErr.Code))
	case errors.Is(err, service.ErrTimeSlotNotFound):
		response.NotFound(c, 15001, "时间段不存在")
	case errors.Is(err, service.ErrTimeSlotInUse):
		response.Conflict(c, 15004, err.Error())
	case errors.Is(err, service.ErrDependencyCheckFailed):
		response.ServiceUnavailable(c, 15005, "时间段依赖查询失败，请稍后重试")
	case errors.Is(err, service.ErrUnknownTransition):
		response.BadRequest(c, 15007, "未知的时间段操作")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 15008, "时间段已被修改，请刷新后重试")
	case errors.Is(err, service.ErrICSParse):
		response.ErrorWithDetails(c, http.StatusBadRequest, 15009, "ICS 文件格式无效", err.Error())
	default:
		response.InternalError(c)
	}
}
