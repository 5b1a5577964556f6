package service

import (
	"context"

	"go.uber.org/zap"

	"timetable-admin/backend/internal/model"
	"timetable-admin/backend/internal/repository"
)

// DependentEntry 引用时间段的有效课表项及其上下文，供删除确认展示
type DependentEntry struct {
	EntryID      string `json:"entry_id"`
	SubjectCode  string `json:"subject_code,omitempty"`
	SubjectName  string `json:"subject_name,omitempty"`
	FacultyName  string `json:"faculty_name,omitempty"`
	RoomNumber   string `json:"room_number,omitempty"`
	Building     string `json:"building,omitempty"`
	Section      string `json:"section"`
	Semester     string `json:"semester"`
	AcademicYear string `json:"academic_year"`
}

// DependencySnapshot 时间段依赖快照：每次按需计算，不跨请求缓存
type DependencySnapshot struct {
	SlotID               string           `json:"slot_id"`
	HasDependencies      bool             `json:"has_dependencies"`
	ActiveEntries        []DependentEntry `json:"active_entries"`
	ActiveCount          int              `json:"active_count"`
	TotalDependencyCount int              `json:"total_dependency_count"`
	// CheckFailed 依赖查询失败，快照内容为空且不可信
	CheckFailed bool `json:"check_failed"`
}

// Sample 返回至多 n 条受影响课表项
func (s *DependencySnapshot) Sample(n int) []DependentEntry {
	if n <= 0 || len(s.ActiveEntries) <= n {
		return s.ActiveEntries
	}
	return s.ActiveEntries[:n]
}

// DependencyInspector 查询时间段被课表项引用的情况，是时间段与课表项引用一致性的唯一判断来源
type DependencyInspector struct {
	entries repository.TimetableEntryRepository
	logger  *zap.Logger
}

// NewDependencyInspector 创建 DependencyInspector；事务中应传入绑定事务的仓储
func NewDependencyInspector(entries repository.TimetableEntryRepository, logger *zap.Logger) *DependencyInspector {
	return &DependencyInspector{entries: entries, logger: logger}
}

// Inspect 计算依赖快照。
//
// 查询失败时记录告警并返回 CheckFailed=true 的空快照，不向上传播错误；
// 执行永久删除的调用方必须据此自行决定是否放行。
func (i *DependencyInspector) Inspect(ctx context.Context, slotID string) DependencySnapshot {
	snap := DependencySnapshot{SlotID: slotID, ActiveEntries: []DependentEntry{}}

	active, err := i.entries.ListActiveBySlot(ctx, slotID)
	if err != nil {
		i.logger.Warn("查询时间段依赖失败", zap.String("slot_id", slotID), zap.Error(err))
		snap.CheckFailed = true
		return snap
	}
	total, err := i.entries.CountBySlot(ctx, slotID)
	if err != nil {
		i.logger.Warn("统计时间段引用数失败", zap.String("slot_id", slotID), zap.Error(err))
		snap.CheckFailed = true
		return snap
	}

	for k := range active {
		snap.ActiveEntries = append(snap.ActiveEntries, toDependentEntry(&active[k]))
	}
	snap.ActiveCount = len(active)
	snap.TotalDependencyCount = int(total)
	if snap.TotalDependencyCount < snap.ActiveCount {
		snap.TotalDependencyCount = snap.ActiveCount
	}
	snap.HasDependencies = snap.TotalDependencyCount > 0
	return snap
}

func toDependentEntry(e *model.TimetableEntry) DependentEntry {
	d := DependentEntry{
		EntryID:      e.TimetableEntryID,
		Section:      e.Section,
		Semester:     e.Semester,
		AcademicYear: e.AcademicYear,
	}
	if e.Subject != nil {
		d.SubjectCode = e.Subject.Code
		d.SubjectName = e.Subject.Name
	}
	if e.Faculty != nil {
		d.FacultyName = e.Faculty.Name
	}
	if e.Classroom != nil {
		d.RoomNumber = e.Classroom.RoomNumber
		d.Building = e.Classroom.Building
	}
	return d
}
