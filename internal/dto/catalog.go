package dto

// ── 基础数据（科目/教师/教室）DTO ──

// CreateSubjectRequest 创建科目请求
type CreateSubjectRequest struct {
	Code string `json:"code" binding:"required,max=20"`
	Name string `json:"name" binding:"required,max=100"`
}

// SubjectResponse 科目信息
type SubjectResponse struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// CreateFacultyRequest 创建教师请求
type CreateFacultyRequest struct {
	Name  string `json:"name"  binding:"required,max=100"`
	Email string `json:"email" binding:"omitempty,email"`
}

// FacultyResponse 教师信息
type FacultyResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// CreateClassroomRequest 创建教室请求
type CreateClassroomRequest struct {
	RoomNumber string `json:"room_number" binding:"required,max=20"`
	Building   string `json:"building"    binding:"omitempty,max=100"`
	Capacity   int    `json:"capacity"    binding:"omitempty,min=0"`
}

// ClassroomResponse 教室信息
type ClassroomResponse struct {
	ID         string `json:"id"`
	RoomNumber string `json:"room_number"`
	Building   string `json:"building,omitempty"`
	Capacity   int    `json:"capacity"`
}
