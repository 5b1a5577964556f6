package model

// 时间段类型
const (
	SlotKindRegular = "regular"
	SlotKindBreak   = "break"
	SlotKindLunch   = "lunch"
)

// TimeSlot 时间段表，对应 time_slots
type TimeSlot struct {
	TimeSlotID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"time_slot_id"`
	Name       string `gorm:"type:varchar(20);not null"                      json:"name"`
	DayOfWeek  int    `gorm:"type:smallint;not null"                         json:"day_of_week"` // 1-6（周一至周六）
	StartTime  string `gorm:"type:time;not null"                             json:"start_time"`  // "HH:MM"
	EndTime    string `gorm:"type:time;not null"                             json:"end_time"`
	Kind       string `gorm:"type:varchar(10);not null;default:'regular'"    json:"kind"` // regular | break | lunch
	IsActive   bool   `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (TimeSlot) TableName() string { return "time_slots" }
