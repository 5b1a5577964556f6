package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	TimeSlot       TimeSlotRepository
	TimetableEntry TimetableEntryRepository
	Subject        SubjectRepository
	Faculty        FacultyRepository
	Classroom      ClassroomRepository

	db *gorm.DB
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		TimeSlot:       NewTimeSlotRepo(db),
		TimetableEntry: NewTimetableEntryRepo(db),
		Subject:        NewSubjectRepo(db),
		Faculty:        NewFacultyRepo(db),
		Classroom:      NewClassroomRepo(db),
		db:             db,
	}
}

// WithTx 返回绑定到指定事务的 Repository 聚合
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// Transaction 在单个数据库事务中执行 fn，fn 返回错误时回滚。
//
// 未绑定数据库的聚合（单元测试中直接组装的 mock）直接以自身执行 fn。
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}
