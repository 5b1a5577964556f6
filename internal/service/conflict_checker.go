package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"timetable-admin/backend/internal/model"
	"timetable-admin/backend/internal/repository"
)

// ConflictKind 课表项冲突类别，按优先级：教师 > 教室 > 班级
type ConflictKind string

const (
	ConflictNone                  ConflictKind = "none"
	ConflictFacultyDoubleBooked   ConflictKind = "faculty_double_booked"
	ConflictClassroomDoubleBooked ConflictKind = "classroom_double_booked"
	ConflictSectionDoubleBooked   ConflictKind = "section_double_booked"
)

// EntryCandidate 待检查的课表项；编辑已有课表项时 ID 非空
type EntryCandidate struct {
	ID           string
	SubjectID    string
	FacultyID    string
	ClassroomID  string
	Section      string
	Semester     string
	AcademicYear string
	TimeSlotID   string
}

// ConflictResult 冲突检查结果，只报告优先级最高的一项
type ConflictResult struct {
	Kind ConflictKind `json:"kind"`
	// Range 候选课表项所在时段
	Range string `json:"range,omitempty"`
	// Entry 与候选冲突的已有课表项
	Entry *model.TimetableEntry `json:"entry,omitempty"`
	// EntryRange 冲突课表项所在时段
	EntryRange string `json:"entry_range,omitempty"`
}

// HasConflict 是否存在冲突
func (r *ConflictResult) HasConflict() bool {
	return r != nil && r.Kind != ConflictNone
}

// Message 面向管理员的冲突描述
func (r *ConflictResult) Message() string {
	if !r.HasConflict() {
		return ""
	}
	var what string
	switch r.Kind {
	case ConflictFacultyDoubleBooked:
		what = "教师在该时段已有课程"
	case ConflictClassroomDoubleBooked:
		what = "教室在该时段已被占用"
	case ConflictSectionDoubleBooked:
		what = "班级在该时段已有课程"
	}
	return fmt.Sprintf("%s（%s，冲突课表项 %s）", what, r.EntryRange, r.Entry.TimetableEntryID)
}

// ScheduleConflictChecker 检查课表项与同学期其他有效课表项的时间冲突。
//
// 只返回结果，不拦截写入；是否拒绝由调用方按策略决定。
type ScheduleConflictChecker struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewScheduleConflictChecker 创建 ScheduleConflictChecker
func NewScheduleConflictChecker(repo *repository.Repository, logger *zap.Logger) *ScheduleConflictChecker {
	return &ScheduleConflictChecker{repo: repo, logger: logger}
}

// CheckEntryConflict 检查候选课表项是否与其他有效课表项冲突
func (c *ScheduleConflictChecker) CheckEntryConflict(ctx context.Context, candidate EntryCandidate) (*ConflictResult, error) {
	slot, err := c.repo.TimeSlot.GetByID(ctx, candidate.TimeSlotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTimeSlotNotFound
		}
		c.logger.Error("查询时间段失败", zap.String("slot_id", candidate.TimeSlotID), zap.Error(err))
		return nil, err
	}
	target, err := NewTimeRange(slot.DayOfWeek, slot.StartTime, slot.EndTime)
	if err != nil {
		return nil, fmt.Errorf("时间段 %s 定义无效: %w", slot.TimeSlotID, err)
	}

	others, err := c.repo.TimetableEntry.List(ctx, repository.TimetableEntryFilter{
		Semester:     candidate.Semester,
		AcademicYear: candidate.AcademicYear,
		ActiveOnly:   true,
	})
	if err != nil {
		c.logger.Error("查询同学期课表项失败", zap.Error(err))
		return nil, err
	}

	ranges := map[string]TimeRange{slot.TimeSlotID: target}
	var facultyHit, classroomHit, sectionHit *model.TimetableEntry
	var facultyRange, classroomRange, sectionRange TimeRange

	for i := range others {
		other := &others[i]
		if candidate.ID != "" && other.TimetableEntryID == candidate.ID {
			continue
		}
		r, ok := c.resolveRange(ctx, other, ranges)
		if !ok || !target.Overlaps(r) {
			continue
		}
		if facultyHit == nil && other.FacultyID == candidate.FacultyID {
			facultyHit, facultyRange = other, r
		}
		if classroomHit == nil && other.ClassroomID == candidate.ClassroomID {
			classroomHit, classroomRange = other, r
		}
		if sectionHit == nil && other.Section == candidate.Section {
			sectionHit, sectionRange = other, r
		}
	}

	result := &ConflictResult{Kind: ConflictNone, Range: target.String()}
	switch {
	case facultyHit != nil:
		result.Kind, result.Entry, result.EntryRange = ConflictFacultyDoubleBooked, facultyHit, facultyRange.String()
	case classroomHit != nil:
		result.Kind, result.Entry, result.EntryRange = ConflictClassroomDoubleBooked, classroomHit, classroomRange.String()
	case sectionHit != nil:
		result.Kind, result.Entry, result.EntryRange = ConflictSectionDoubleBooked, sectionHit, sectionRange.String()
	}
	return result, nil
}

// resolveRange 获取课表项所在时段；引用的时间段已不存在时跳过该课表项
func (c *ScheduleConflictChecker) resolveRange(ctx context.Context, entry *model.TimetableEntry, cache map[string]TimeRange) (TimeRange, bool) {
	if r, ok := cache[entry.TimeSlotID]; ok {
		return r, true
	}

	slot := entry.TimeSlot
	if slot == nil {
		loaded, err := c.repo.TimeSlot.GetByID(ctx, entry.TimeSlotID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				c.logger.Warn("加载课表项时间段失败", zap.String("entry_id", entry.TimetableEntryID), zap.Error(err))
			}
			return TimeRange{}, false
		}
		slot = loaded
	}

	r, err := NewTimeRange(slot.DayOfWeek, slot.StartTime, slot.EndTime)
	if err != nil {
		return TimeRange{}, false
	}
	cache[entry.TimeSlotID] = r
	return r, true
}
