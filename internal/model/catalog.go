package model

// Subject 科目表，对应 subjects
type Subject struct {
	SubjectID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"subject_id"`
	Code      string `gorm:"type:varchar(20);not null;uniqueIndex"          json:"code"`
	Name      string `gorm:"type:varchar(100);not null"                     json:"name"`
	BaseModel
}

func (Subject) TableName() string { return "subjects" }

// Faculty 教师表，对应 faculty
type Faculty struct {
	FacultyID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"faculty_id"`
	Name      string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email     string `gorm:"type:varchar(100)"                              json:"email,omitempty"`
	BaseModel
}

func (Faculty) TableName() string { return "faculty" }

// Classroom 教室表，对应 classrooms
type Classroom struct {
	ClassroomID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"classroom_id"`
	RoomNumber  string `gorm:"type:varchar(20);not null"                      json:"room_number"`
	Building    string `gorm:"type:varchar(100)"                              json:"building,omitempty"`
	Capacity    int    `gorm:"not null;default:0"                             json:"capacity"`
	BaseModel
}

func (Classroom) TableName() string { return "classrooms" }
