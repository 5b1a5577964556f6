package repository

import (
	"context"

	"gorm.io/gorm"

	"timetable-admin/backend/internal/model"
)

// TimetableEntryFilter 课表项查询条件，空字段表示不过滤
type TimetableEntryFilter struct {
	Semester     string
	AcademicYear string
	Section      string
	FacultyID    string
	ClassroomID  string
	TimeSlotID   string
	ActiveOnly   bool
	// SlotActive 按引用时间段的启用状态过滤（nil 不过滤）
	SlotActive *bool
}

// TimetableEntryRepository 课表项数据访问接口
type TimetableEntryRepository interface {
	Create(ctx context.Context, entry *model.TimetableEntry) error
	GetByID(ctx context.Context, id string) (*model.TimetableEntry, error)
	// List 按条件列出课表项，预加载时间段
	List(ctx context.Context, filter TimetableEntryFilter) ([]model.TimetableEntry, error)
	// ListActiveBySlot 列出引用指定时间段的有效课表项，预加载科目/教师/教室
	ListActiveBySlot(ctx context.Context, slotID string) ([]model.TimetableEntry, error)
	// CountBySlot 统计引用指定时间段的全部课表项（含已停用）
	CountBySlot(ctx context.Context, slotID string) (int64, error)
	SetActive(ctx context.Context, id string, active bool, updatedBy string) error
}

type timetableEntryRepo struct {
	db *gorm.DB
}

// NewTimetableEntryRepo 创建 TimetableEntryRepository 实例
func NewTimetableEntryRepo(db *gorm.DB) TimetableEntryRepository {
	return &timetableEntryRepo{db: db}
}

func (r *timetableEntryRepo) Create(ctx context.Context, entry *model.TimetableEntry) error {
	return r.db.WithContext(ctx).Omit("TimeSlot", "Subject", "Faculty", "Classroom").Create(entry).Error
}

func (r *timetableEntryRepo) GetByID(ctx context.Context, id string) (*model.TimetableEntry, error) {
	var entry model.TimetableEntry
	err := r.db.WithContext(ctx).
		Preload("TimeSlot").
		Preload("Subject").
		Preload("Faculty").
		Preload("Classroom").
		Where("timetable_entry_id = ?", id).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *timetableEntryRepo) List(ctx context.Context, filter TimetableEntryFilter) ([]model.TimetableEntry, error) {
	var entries []model.TimetableEntry
	db := r.db.WithContext(ctx).Model(&model.TimetableEntry{})

	if filter.ActiveOnly {
		db = db.Where("timetable_entries.is_active = ?", true)
	}
	if filter.Semester != "" {
		db = db.Where("timetable_entries.semester = ?", filter.Semester)
	}
	if filter.AcademicYear != "" {
		db = db.Where("timetable_entries.academic_year = ?", filter.AcademicYear)
	}
	if filter.Section != "" {
		db = db.Where("timetable_entries.section = ?", filter.Section)
	}
	if filter.FacultyID != "" {
		db = db.Where("timetable_entries.faculty_id = ?", filter.FacultyID)
	}
	if filter.ClassroomID != "" {
		db = db.Where("timetable_entries.classroom_id = ?", filter.ClassroomID)
	}
	if filter.TimeSlotID != "" {
		db = db.Where("timetable_entries.time_slot_id = ?", filter.TimeSlotID)
	}
	if filter.SlotActive != nil {
		db = db.Joins("JOIN time_slots ON time_slots.time_slot_id = timetable_entries.time_slot_id").
			Where("time_slots.is_active = ?", *filter.SlotActive)
	}

	err := db.Preload("TimeSlot").
		Preload("Subject").
		Preload("Faculty").
		Preload("Classroom").
		Order("timetable_entries.created_at ASC").
		Find(&entries).Error
	return entries, err
}

func (r *timetableEntryRepo) ListActiveBySlot(ctx context.Context, slotID string) ([]model.TimetableEntry, error) {
	var entries []model.TimetableEntry
	err := r.db.WithContext(ctx).
		Preload("Subject").
		Preload("Faculty").
		Preload("Classroom").
		Where("time_slot_id = ? AND is_active = ?", slotID, true).
		Order("academic_year ASC, semester ASC, section ASC").
		Find(&entries).Error
	return entries, err
}

func (r *timetableEntryRepo) CountBySlot(ctx context.Context, slotID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.TimetableEntry{}).
		Where("time_slot_id = ?", slotID).
		Count(&count).Error
	return count, err
}

func (r *timetableEntryRepo) SetActive(ctx context.Context, id string, active bool, updatedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.TimetableEntry{}).
		Where("timetable_entry_id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_by": model.OperatorRef(updatedBy),
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
