package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"timetable-admin/backend/config"
	"timetable-admin/backend/internal/dto"
	"timetable-admin/backend/internal/model"
	"timetable-admin/backend/internal/repository"
)

// ── 课表项模块业务错误 ──

var (
	ErrEntryNotFound     = errors.New("课表项不存在")
	ErrSubjectNotFound   = errors.New("科目不存在")
	ErrFacultyNotFound   = errors.New("教师不存在")
	ErrClassroomNotFound = errors.New("教室不存在")
	// ErrEntryConflict 仅用于 errors.Is 比较，实际返回 *EntryConflictError
	ErrEntryConflict = errors.New("课表项存在时间冲突")
)

// EntryConflictError 拒绝策略下的课表项冲突，携带冲突详情
type EntryConflictError struct {
	Result *ConflictResult
}

func (e *EntryConflictError) Error() string {
	return ErrEntryConflict.Error() + ": " + e.Result.Message()
}

func (e *EntryConflictError) Is(target error) bool {
	return target == ErrEntryConflict
}

// TimetableEntryService 课表项业务接口
type TimetableEntryService interface {
	Create(ctx context.Context, req *dto.CreateTimetableEntryRequest, callerID string) (*dto.TimetableEntryResponse, error)
	GetByID(ctx context.Context, id string) (*dto.TimetableEntryResponse, error)
	List(ctx context.Context, req *dto.TimetableEntryListRequest) ([]dto.TimetableEntryResponse, error)
	// ListStale 列出引用已停用时间段的有效课表项，供重新排课
	ListStale(ctx context.Context, semester, academicYear string) ([]dto.TimetableEntryResponse, error)
	// CheckConflict 冲突预检，不写入
	CheckConflict(ctx context.Context, req *dto.CheckTimetableEntryRequest) (*ConflictResult, error)
	SetActive(ctx context.Context, id string, active bool, callerID string) (*dto.TimetableEntryResponse, error)
}

type timetableEntryService struct {
	repo    *repository.Repository
	checker *ScheduleConflictChecker
	policy  string
	logger  *zap.Logger
}

// NewTimetableEntryService 创建 TimetableEntryService 实例；policy 为空时按 reject 处理
func NewTimetableEntryService(repo *repository.Repository, policy string, logger *zap.Logger) TimetableEntryService {
	if policy == "" {
		policy = config.ConflictPolicyReject
	}
	return &timetableEntryService{
		repo:    repo,
		checker: NewScheduleConflictChecker(repo, logger),
		policy:  policy,
		logger:  logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *timetableEntryService) Create(ctx context.Context, req *dto.CreateTimetableEntryRequest, callerID string) (*dto.TimetableEntryResponse, error) {
	var created *model.TimetableEntry
	var warnings []string

	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		// 共享锁阻止并发的永久删除在检查与写入之间移除时间段
		slot, err := txRepo.TimeSlot.GetForShare(ctx, req.TimeSlotID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTimeSlotNotFound
			}
			s.logger.Error("锁定时间段失败", zap.String("slot_id", req.TimeSlotID), zap.Error(err))
			return err
		}
		if !slot.IsActive {
			return ErrTimeSlotInactive
		}
		if err := s.checkReferences(ctx, txRepo, req); err != nil {
			return err
		}

		candidate := entryCandidateFromRequest("", req)
		result, err := NewScheduleConflictChecker(txRepo, s.logger).CheckEntryConflict(ctx, candidate)
		if err != nil {
			return err
		}
		if warn, err := s.applyPolicy(result); err != nil {
			return err
		} else if warn != "" {
			warnings = append(warnings, warn)
		}

		entry := &model.TimetableEntry{
			SubjectID:    req.SubjectID,
			FacultyID:    req.FacultyID,
			ClassroomID:  req.ClassroomID,
			Section:      req.Section,
			Semester:     req.Semester,
			AcademicYear: req.AcademicYear,
			TimeSlotID:   req.TimeSlotID,
			IsActive:     true,
		}
		entry.CreatedBy = model.OperatorRef(callerID)
		entry.UpdatedBy = model.OperatorRef(callerID)
		if err := txRepo.TimetableEntry.Create(ctx, entry); err != nil {
			s.logger.Error("创建课表项失败", zap.Error(err))
			return err
		}
		entry.TimeSlot = slot
		created = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := toTimetableEntryResponse(created)
	resp.Warnings = warnings
	return resp, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *timetableEntryService) GetByID(ctx context.Context, id string) (*dto.TimetableEntryResponse, error) {
	entry, err := s.repo.TimetableEntry.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		s.logger.Error("查询课表项失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toTimetableEntryResponse(entry), nil
}

// ────────────────────── List ──────────────────────

func (s *timetableEntryService) List(ctx context.Context, req *dto.TimetableEntryListRequest) ([]dto.TimetableEntryResponse, error) {
	entries, err := s.repo.TimetableEntry.List(ctx, repository.TimetableEntryFilter{
		Semester:     req.Semester,
		AcademicYear: req.AcademicYear,
		Section:      req.Section,
		FacultyID:    req.FacultyID,
		ClassroomID:  req.ClassroomID,
		TimeSlotID:   req.TimeSlotID,
		ActiveOnly:   !req.IncludeInactive,
	})
	if err != nil {
		s.logger.Error("列出课表项失败", zap.Error(err))
		return nil, err
	}
	return toTimetableEntryResponses(entries), nil
}

func (s *timetableEntryService) ListStale(ctx context.Context, semester, academicYear string) ([]dto.TimetableEntryResponse, error) {
	inactive := false
	entries, err := s.repo.TimetableEntry.List(ctx, repository.TimetableEntryFilter{
		Semester:     semester,
		AcademicYear: academicYear,
		ActiveOnly:   true,
		SlotActive:   &inactive,
	})
	if err != nil {
		s.logger.Error("列出待重排课表项失败", zap.Error(err))
		return nil, err
	}
	return toTimetableEntryResponses(entries), nil
}

// ────────────────────── CheckConflict ──────────────────────

func (s *timetableEntryService) CheckConflict(ctx context.Context, req *dto.CheckTimetableEntryRequest) (*ConflictResult, error) {
	return s.checker.CheckEntryConflict(ctx, entryCandidateFromRequest(req.ID, &req.CreateTimetableEntryRequest))
}

// ────────────────────── SetActive ──────────────────────

func (s *timetableEntryService) SetActive(ctx context.Context, id string, active bool, callerID string) (*dto.TimetableEntryResponse, error) {
	var warnings []string

	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		entry, err := txRepo.TimetableEntry.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEntryNotFound
			}
			s.logger.Error("查询课表项失败", zap.String("id", id), zap.Error(err))
			return err
		}
		if entry.IsActive == active {
			return nil
		}

		// 重新启用等同于重新排课：时间段必须仍然启用且不产生冲突
		if active {
			slot, err := txRepo.TimeSlot.GetForShare(ctx, entry.TimeSlotID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrTimeSlotNotFound
				}
				return err
			}
			if !slot.IsActive {
				return ErrTimeSlotInactive
			}
			result, err := NewScheduleConflictChecker(txRepo, s.logger).CheckEntryConflict(ctx, entryCandidateFromModel(entry))
			if err != nil {
				return err
			}
			if warn, err := s.applyPolicy(result); err != nil {
				return err
			} else if warn != "" {
				warnings = append(warnings, warn)
			}
		}

		if err := txRepo.TimetableEntry.SetActive(ctx, id, active, callerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEntryNotFound
			}
			s.logger.Error("更新课表项状态失败", zap.String("id", id), zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp.Warnings = warnings
	return resp, nil
}

// ── 内部辅助方法 ──

// applyPolicy 按冲突策略决定拒绝还是提示
func (s *timetableEntryService) applyPolicy(result *ConflictResult) (string, error) {
	if !result.HasConflict() {
		return "", nil
	}
	if s.policy == config.ConflictPolicyWarn {
		s.logger.Info("课表项存在冲突，按提示策略放行",
			zap.String("kind", string(result.Kind)),
			zap.String("conflict_entry_id", result.Entry.TimetableEntryID),
		)
		return result.Message(), nil
	}
	return "", &EntryConflictError{Result: result}
}

func (s *timetableEntryService) checkReferences(ctx context.Context, txRepo *repository.Repository, req *dto.CreateTimetableEntryRequest) error {
	if _, err := txRepo.Subject.GetByID(ctx, req.SubjectID); err != nil {
		return notFoundOr(err, ErrSubjectNotFound)
	}
	if _, err := txRepo.Faculty.GetByID(ctx, req.FacultyID); err != nil {
		return notFoundOr(err, ErrFacultyNotFound)
	}
	if _, err := txRepo.Classroom.GetByID(ctx, req.ClassroomID); err != nil {
		return notFoundOr(err, ErrClassroomNotFound)
	}
	return nil
}

func notFoundOr(err, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}

func entryCandidateFromRequest(id string, req *dto.CreateTimetableEntryRequest) EntryCandidate {
	return EntryCandidate{
		ID:           id,
		SubjectID:    req.SubjectID,
		FacultyID:    req.FacultyID,
		ClassroomID:  req.ClassroomID,
		Section:      req.Section,
		Semester:     req.Semester,
		AcademicYear: req.AcademicYear,
		TimeSlotID:   req.TimeSlotID,
	}
}

func entryCandidateFromModel(e *model.TimetableEntry) EntryCandidate {
	return EntryCandidate{
		ID:           e.TimetableEntryID,
		SubjectID:    e.SubjectID,
		FacultyID:    e.FacultyID,
		ClassroomID:  e.ClassroomID,
		Section:      e.Section,
		Semester:     e.Semester,
		AcademicYear: e.AcademicYear,
		TimeSlotID:   e.TimeSlotID,
	}
}

func toTimetableEntryResponses(entries []model.TimetableEntry) []dto.TimetableEntryResponse {
	result := make([]dto.TimetableEntryResponse, 0, len(entries))
	for i := range entries {
		result = append(result, *toTimetableEntryResponse(&entries[i]))
	}
	return result
}

func toTimetableEntryResponse(e *model.TimetableEntry) *dto.TimetableEntryResponse {
	resp := &dto.TimetableEntryResponse{
		ID:           e.TimetableEntryID,
		Section:      e.Section,
		Semester:     e.Semester,
		AcademicYear: e.AcademicYear,
		IsActive:     e.IsActive,
		SubjectID:    e.SubjectID,
		FacultyID:    e.FacultyID,
		ClassroomID:  e.ClassroomID,
		TimeSlotID:   e.TimeSlotID,
		CreatedAt:    e.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if e.Subject != nil {
		resp.Subject = toSubjectResponse(e.Subject)
	}
	if e.Faculty != nil {
		resp.Faculty = toFacultyResponse(e.Faculty)
	}
	if e.Classroom != nil {
		resp.Classroom = toClassroomResponse(e.Classroom)
	}
	if e.TimeSlot != nil {
		resp.TimeSlot = toTimeSlotResponse(e.TimeSlot)
		resp.SlotInactive = !e.TimeSlot.IsActive
	}
	return resp
}
