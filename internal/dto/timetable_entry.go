package dto

// ── 课表项模块 DTO ──

// CreateTimetableEntryRequest 创建课表项请求
type CreateTimetableEntryRequest struct {
	SubjectID    string `json:"subject_id"    binding:"required"`
	FacultyID    string `json:"faculty_id"    binding:"required"`
	ClassroomID  string `json:"classroom_id"  binding:"required"`
	Section      string `json:"section"       binding:"required,max=20"`
	Semester     string `json:"semester"      binding:"required,max=20"`
	AcademicYear string `json:"academic_year" binding:"required,max=9"`
	TimeSlotID   string `json:"time_slot_id"  binding:"required"`
}

// CheckTimetableEntryRequest 课表项冲突预检；编辑场景携带 ID 以排除自身
type CheckTimetableEntryRequest struct {
	ID string `json:"id"`
	CreateTimetableEntryRequest
}

// TimetableEntryListRequest 课表项列表查询参数
type TimetableEntryListRequest struct {
	Semester        string `form:"semester"`
	AcademicYear    string `form:"academic_year"`
	Section         string `form:"section"`
	FacultyID       string `form:"faculty_id"`
	ClassroomID     string `form:"classroom_id"`
	TimeSlotID      string `form:"time_slot_id"`
	IncludeInactive bool   `form:"include_inactive"`
}

// SetEntryActiveRequest 启用/停用课表项
type SetEntryActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// TimetableEntryResponse 课表项信息响应
type TimetableEntryResponse struct {
	ID           string             `json:"id"`
	Section      string             `json:"section"`
	Semester     string             `json:"semester"`
	AcademicYear string             `json:"academic_year"`
	IsActive     bool               `json:"is_active"`
	Subject      *SubjectResponse   `json:"subject,omitempty"`
	SubjectID    string             `json:"subject_id"`
	Faculty      *FacultyResponse   `json:"faculty,omitempty"`
	FacultyID    string             `json:"faculty_id"`
	Classroom    *ClassroomResponse `json:"classroom,omitempty"`
	ClassroomID  string             `json:"classroom_id"`
	TimeSlot     *TimeSlotResponse  `json:"time_slot,omitempty"`
	TimeSlotID   string             `json:"time_slot_id"`
	// SlotInactive 引用的时间段已停用（保留历史课表项，仅提示）
	SlotInactive bool     `json:"slot_inactive"`
	Warnings     []string `json:"warnings,omitempty"`
	CreatedAt    string   `json:"created_at"`
}
