package model

import "time"

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"type:uuid"                          json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:uuid"                          json:"updated_by,omitempty"`
}

// VersionedModel 支持乐观锁的审计模型
//
// 时间段的永久删除是物理删除，停用通过 is_active 表达，因此不再嵌入 DeletedAt。
type VersionedModel struct {
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// OperatorRef 将操作人 ID 转为审计字段；空串（命令行或系统操作）记为 NULL
func OperatorRef(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
