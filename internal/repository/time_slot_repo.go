package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"timetable-admin/backend/internal/model"
	pkgerrors "timetable-admin/backend/pkg/errors"
)

// TimeSlotFilter 时间段查询条件
type TimeSlotFilter struct {
	DayOfWeek       *int
	Kind            string
	IncludeInactive bool
}

// TimeSlotRepository 时间段数据访问接口
type TimeSlotRepository interface {
	Create(ctx context.Context, slot *model.TimeSlot) error
	GetByID(ctx context.Context, id string) (*model.TimeSlot, error)
	// GetForUpdate 读取并以排他行锁锁定时间段，须在事务内调用
	GetForUpdate(ctx context.Context, id string) (*model.TimeSlot, error)
	// GetForShare 读取并以共享行锁锁定时间段，须在事务内调用
	GetForShare(ctx context.Context, id string) (*model.TimeSlot, error)
	List(ctx context.Context, filter TimeSlotFilter) ([]model.TimeSlot, error)
	Update(ctx context.Context, slot *model.TimeSlot) error
	SetActive(ctx context.Context, id string, active bool, updatedBy string) error
	// Delete 物理删除，不可恢复
	Delete(ctx context.Context, id string) error
}

type timeSlotRepo struct {
	db *gorm.DB
}

// NewTimeSlotRepo 创建 TimeSlotRepository 实例
func NewTimeSlotRepo(db *gorm.DB) TimeSlotRepository {
	return &timeSlotRepo{db: db}
}

func (r *timeSlotRepo) Create(ctx context.Context, slot *model.TimeSlot) error {
	return r.db.WithContext(ctx).Create(slot).Error
}

func (r *timeSlotRepo) GetByID(ctx context.Context, id string) (*model.TimeSlot, error) {
	var slot model.TimeSlot
	err := r.db.WithContext(ctx).
		Where("time_slot_id = ?", id).
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *timeSlotRepo) GetForUpdate(ctx context.Context, id string) (*model.TimeSlot, error) {
	return r.getLocked(ctx, id, "UPDATE")
}

func (r *timeSlotRepo) GetForShare(ctx context.Context, id string) (*model.TimeSlot, error) {
	return r.getLocked(ctx, id, "SHARE")
}

func (r *timeSlotRepo) getLocked(ctx context.Context, id, strength string) (*model.TimeSlot, error) {
	var slot model.TimeSlot
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: strength}).
		Where("time_slot_id = ?", id).
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *timeSlotRepo) List(ctx context.Context, filter TimeSlotFilter) ([]model.TimeSlot, error) {
	var slots []model.TimeSlot
	db := r.db.WithContext(ctx)

	if !filter.IncludeInactive {
		db = db.Where("is_active = ?", true)
	}
	if filter.DayOfWeek != nil {
		db = db.Where("day_of_week = ?", *filter.DayOfWeek)
	}
	if filter.Kind != "" {
		db = db.Where("kind = ?", filter.Kind)
	}

	err := db.Order("day_of_week ASC, start_time ASC").Find(&slots).Error
	return slots, err
}

func (r *timeSlotRepo) Update(ctx context.Context, slot *model.TimeSlot) error {
	oldVersion := slot.Version
	result := r.db.WithContext(ctx).
		Model(&model.TimeSlot{}).
		Where("time_slot_id = ? AND version = ?", slot.TimeSlotID, oldVersion).
		Updates(map[string]interface{}{
			"name":        slot.Name,
			"day_of_week": slot.DayOfWeek,
			"start_time":  slot.StartTime,
			"end_time":    slot.EndTime,
			"kind":        slot.Kind,
			"updated_by":  slot.UpdatedBy,
			"updated_at":  gorm.Expr("NOW()"),
			"version":     oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	slot.Version = oldVersion + 1
	return nil
}

func (r *timeSlotRepo) SetActive(ctx context.Context, id string, active bool, updatedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.TimeSlot{}).
		Where("time_slot_id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_by": model.OperatorRef(updatedBy),
			"updated_at": gorm.Expr("NOW()"),
			"version":    gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *timeSlotRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("time_slot_id = ?", id).
		Delete(&model.TimeSlot{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
