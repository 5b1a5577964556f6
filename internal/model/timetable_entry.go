package model

// TimetableEntry 课表项，对应 timetable_entries
//
// TimeSlotID 只是查找键：time_slots 不拥有课表项，也不做级联删除。
type TimetableEntry struct {
	TimetableEntryID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"timetable_entry_id"`
	SubjectID        string `gorm:"type:uuid;not null"                             json:"subject_id"`
	FacultyID        string `gorm:"type:uuid;not null"                             json:"faculty_id"`
	ClassroomID      string `gorm:"type:uuid;not null"                             json:"classroom_id"`
	Section          string `gorm:"type:varchar(20);not null"                      json:"section"`
	Semester         string `gorm:"type:varchar(20);not null"                      json:"semester"`      // e.g. "1" | "2"
	AcademicYear     string `gorm:"type:varchar(9);not null"                       json:"academic_year"` // e.g. "2025-2026"
	TimeSlotID       string `gorm:"type:uuid;not null;index"                       json:"time_slot_id"`
	IsActive         bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel

	// 关联（仅查询时预加载）
	TimeSlot  *TimeSlot  `gorm:"foreignKey:TimeSlotID;references:TimeSlotID"   json:"time_slot,omitempty"`
	Subject   *Subject   `gorm:"foreignKey:SubjectID;references:SubjectID"     json:"subject,omitempty"`
	Faculty   *Faculty   `gorm:"foreignKey:FacultyID;references:FacultyID"     json:"faculty,omitempty"`
	Classroom *Classroom `gorm:"foreignKey:ClassroomID;references:ClassroomID" json:"classroom,omitempty"`
}

// TableName 指定表名
func (TimetableEntry) TableName() string { return "timetable_entries" }
