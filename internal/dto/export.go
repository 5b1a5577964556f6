package dto

// ExportTimetableRequest 导出课表查询参数
type ExportTimetableRequest struct {
	Semester     string `form:"semester"      binding:"required"`
	AcademicYear string `form:"academic_year" binding:"required"`
	Section      string `form:"section"`
}
