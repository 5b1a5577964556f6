package dto

// ── 时间段模块 DTO ──

// CreateTimeSlotRequest 创建时间段请求
type CreateTimeSlotRequest struct {
	Name      string `json:"name"        binding:"required"`
	DayOfWeek int    `json:"day_of_week" binding:"required"`
	StartTime string `json:"start_time"  binding:"required,clock"` // "09:00"
	EndTime   string `json:"end_time"    binding:"required,clock"` // "09:50"
	Kind      string `json:"kind"        binding:"omitempty,oneof=regular break lunch"`
}

// UpdateTimeSlotRequest 编辑时间段请求（启用/停用走生命周期接口）
type UpdateTimeSlotRequest struct {
	Name      *string `json:"name"`
	DayOfWeek *int    `json:"day_of_week"`
	StartTime *string `json:"start_time" binding:"omitempty,clock"`
	EndTime   *string `json:"end_time"   binding:"omitempty,clock"`
	Kind      *string `json:"kind"       binding:"omitempty,oneof=regular break lunch"`
}

// ValidateTimeSlotRequest 时间段预校验请求；编辑场景携带 ID 以排除自身
type ValidateTimeSlotRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Kind      string `json:"kind"`
}

// TimeSlotListRequest 时间段列表查询参数
type TimeSlotListRequest struct {
	DayOfWeek       *int   `form:"day_of_week"      binding:"omitempty,min=1,max=6"`
	Kind            string `form:"kind"             binding:"omitempty,oneof=regular break lunch"`
	IncludeInactive bool   `form:"include_inactive"`
}

// TransitionRequest 单个时间段状态操作
type TransitionRequest struct {
	Action string `json:"action" binding:"required,oneof=activate deactivate delete"`
}

// BulkTransitionRequest 批量时间段状态操作
type BulkTransitionRequest struct {
	Action string   `json:"action" binding:"required,oneof=activate deactivate delete"`
	IDs    []string `json:"ids"    binding:"required,min=1,max=200,dive,required"`
}

// TimeSlotResponse 时间段信息响应
type TimeSlotResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Kind      string `json:"kind"`
	IsActive  bool   `json:"is_active"`
	Version   int    `json:"version"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// SlotOverlapWarning 时间段定义重叠提示（不阻止保存）
type SlotOverlapWarning struct {
	SlotID    string `json:"slot_id"`
	Name      string `json:"name"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// TimeSlotMutationResponse 创建/编辑时间段响应
type TimeSlotMutationResponse struct {
	Slot    TimeSlotResponse    `json:"slot"`
	Overlap *SlotOverlapWarning `json:"overlap,omitempty"`
}

// ValidateTimeSlotResponse 时间段预校验结果
type ValidateTimeSlotResponse struct {
	Valid     bool                `json:"valid"`
	ErrorCode string              `json:"error_code,omitempty"`
	Field     string              `json:"field,omitempty"`
	Message   string              `json:"message,omitempty"`
	Overlap   *SlotOverlapWarning `json:"overlap,omitempty"`
}

// ImportSkippedSlot 导入时被跳过的时间段
type ImportSkippedSlot struct {
	Name      string `json:"name"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// ImportTimeSlotsResponse ICS 导入时间段结果
type ImportTimeSlotsResponse struct {
	Created  []TimeSlotResponse   `json:"created"`
	Skipped  []ImportSkippedSlot  `json:"skipped"`
	Overlaps []SlotOverlapWarning `json:"overlaps"`
}
