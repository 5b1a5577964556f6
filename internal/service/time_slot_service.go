package service

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"timetable-admin/backend/internal/dto"
	"timetable-admin/backend/internal/model"
	"timetable-admin/backend/internal/repository"
)

// ── 时间段模块业务错误 ──

var (
	ErrTimeSlotNotFound = errors.New("时间段不存在")
	ErrTimeSlotInactive = errors.New("时间段已停用，不可分配课表项")
	ErrTimeSlotInUse    = errors.New("时间段仍有有效课表项引用，不可调整星期或时间")
)

// TimeSlotService 时间段业务接口
type TimeSlotService interface {
	Create(ctx context.Context, req *dto.CreateTimeSlotRequest, callerID string) (*dto.TimeSlotMutationResponse, error)
	GetByID(ctx context.Context, id string) (*dto.TimeSlotResponse, error)
	List(ctx context.Context, req *dto.TimeSlotListRequest) ([]dto.TimeSlotResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateTimeSlotRequest, callerID string) (*dto.TimeSlotMutationResponse, error)
	// Validate 预校验，不写入；形状错误体现在响应中而非 error
	Validate(ctx context.Context, req *dto.ValidateTimeSlotRequest) (*dto.ValidateTimeSlotResponse, error)
	// Dependencies 返回删除确认所需的依赖快照
	Dependencies(ctx context.Context, id string) (*DependencySnapshot, error)
	Transition(ctx context.Context, id string, t Transition, callerID string) (*TransitionResult, error)
	BulkTransition(ctx context.Context, ids []string, t Transition, callerID string) []BulkTransitionResult
	// ImportICS 从 iCalendar 作息表批量创建时间段
	ImportICS(ctx context.Context, reader io.Reader, callerID string) (*dto.ImportTimeSlotsResponse, error)
}

type timeSlotService struct {
	repo      *repository.Repository
	validator *TimeSlotValidator
	lifecycle *LifecycleManager
	logger    *zap.Logger
}

// NewTimeSlotService 创建 TimeSlotService 实例
func NewTimeSlotService(repo *repository.Repository, validator *TimeSlotValidator, lifecycle *LifecycleManager, logger *zap.Logger) TimeSlotService {
	return &timeSlotService{repo: repo, validator: validator, lifecycle: lifecycle, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *timeSlotService) Create(ctx context.Context, req *dto.CreateTimeSlotRequest, callerID string) (*dto.TimeSlotMutationResponse, error) {
	candidate := SlotCandidate{
		Name:      req.Name,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Kind:      defaultKind(req.Kind),
	}
	if err := s.validator.ValidateShape(candidate); err != nil {
		return nil, err
	}

	overlap, err := s.findOverlap(ctx, candidate)
	if err != nil {
		return nil, err
	}

	slot := &model.TimeSlot{
		Name:      candidate.Name,
		DayOfWeek: candidate.DayOfWeek,
		StartTime: NormalizeClock(candidate.StartTime),
		EndTime:   NormalizeClock(candidate.EndTime),
		Kind:      candidate.Kind,
		IsActive:  true,
	}
	slot.CreatedBy = model.OperatorRef(callerID)
	slot.UpdatedBy = model.OperatorRef(callerID)

	if err := s.repo.TimeSlot.Create(ctx, slot); err != nil {
		s.logger.Error("创建时间段失败", zap.Error(err))
		return nil, err
	}

	if overlap != nil {
		s.logger.Info("新建时间段与已有时间段重叠",
			zap.String("slot_id", slot.TimeSlotID),
			zap.String("overlap_slot_id", overlap.SlotID),
		)
	}

	return &dto.TimeSlotMutationResponse{Slot: *toTimeSlotResponse(slot), Overlap: overlap}, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *timeSlotService) GetByID(ctx context.Context, id string) (*dto.TimeSlotResponse, error) {
	slot, err := s.getSlot(ctx, id)
	if err != nil {
		return nil, err
	}
	return toTimeSlotResponse(slot), nil
}

// ────────────────────── List ──────────────────────

func (s *timeSlotService) List(ctx context.Context, req *dto.TimeSlotListRequest) ([]dto.TimeSlotResponse, error) {
	slots, err := s.repo.TimeSlot.List(ctx, repository.TimeSlotFilter{
		DayOfWeek:       req.DayOfWeek,
		Kind:            req.Kind,
		IncludeInactive: req.IncludeInactive,
	})
	if err != nil {
		s.logger.Error("列出时间段失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.TimeSlotResponse, 0, len(slots))
	for i := range slots {
		result = append(result, *toTimeSlotResponse(&slots[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *timeSlotService) Update(ctx context.Context, id string, req *dto.UpdateTimeSlotRequest, callerID string) (*dto.TimeSlotMutationResponse, error) {
	var updated *model.TimeSlot
	var overlap *dto.SlotOverlapWarning

	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		slot, err := txRepo.TimeSlot.GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTimeSlotNotFound
			}
			s.logger.Error("查询时间段失败", zap.String("id", id), zap.Error(err))
			return err
		}

		candidate := CandidateFromModel(slot)
		if req.Name != nil {
			candidate.Name = *req.Name
		}
		if req.DayOfWeek != nil {
			candidate.DayOfWeek = *req.DayOfWeek
		}
		if req.StartTime != nil {
			candidate.StartTime = *req.StartTime
		}
		if req.EndTime != nil {
			candidate.EndTime = *req.EndTime
		}
		if req.Kind != nil {
			candidate.Kind = *req.Kind
		}
		if err := s.validator.ValidateShape(candidate); err != nil {
			return err
		}

		// 已被有效课表项引用的时间段不允许改动时间，否则这些课表项会被静默挪动
		if movesRange(slot, candidate) {
			snap := NewDependencyInspector(txRepo.TimetableEntry, s.logger).Inspect(ctx, id)
			if snap.CheckFailed {
				return ErrDependencyCheckFailed
			}
			if snap.ActiveCount > 0 {
				return ErrTimeSlotInUse
			}
		}

		existing, err := txRepo.TimeSlot.List(ctx, repository.TimeSlotFilter{DayOfWeek: &candidate.DayOfWeek})
		if err != nil {
			s.logger.Error("查询同日时间段失败", zap.Error(err))
			return err
		}
		if hit := s.validator.FindConflictingSlot(candidate, existing); hit != nil {
			overlap = toOverlapWarning(hit)
		}

		slot.Name = candidate.Name
		slot.DayOfWeek = candidate.DayOfWeek
		slot.StartTime = NormalizeClock(candidate.StartTime)
		slot.EndTime = NormalizeClock(candidate.EndTime)
		slot.Kind = candidate.Kind
		slot.UpdatedBy = model.OperatorRef(callerID)

		if err := txRepo.TimeSlot.Update(ctx, slot); err != nil {
			s.logger.Error("更新时间段失败", zap.String("id", id), zap.Error(err))
			return err
		}
		updated = slot
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &dto.TimeSlotMutationResponse{Slot: *toTimeSlotResponse(updated), Overlap: overlap}, nil
}

// ────────────────────── Validate ──────────────────────

func (s *timeSlotService) Validate(ctx context.Context, req *dto.ValidateTimeSlotRequest) (*dto.ValidateTimeSlotResponse, error) {
	candidate := SlotCandidate{
		ID:        req.ID,
		Name:      req.Name,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Kind:      defaultKind(req.Kind),
	}

	if err := s.validator.ValidateShape(candidate); err != nil {
		var shapeErr *ShapeError
		if !errors.As(err, &shapeErr) {
			return nil, err
		}
		return &dto.ValidateTimeSlotResponse{
			Valid:     false,
			ErrorCode: string(shapeErr.Code),
			Field:     shapeErr.Field,
			Message:   shapeErr.Error(),
		}, nil
	}

	overlap, err := s.findOverlap(ctx, candidate)
	if err != nil {
		return nil, err
	}
	return &dto.ValidateTimeSlotResponse{Valid: true, Overlap: overlap}, nil
}

// ────────────────────── Dependencies ──────────────────────

func (s *timeSlotService) Dependencies(ctx context.Context, id string) (*DependencySnapshot, error) {
	if _, err := s.getSlot(ctx, id); err != nil {
		return nil, err
	}
	snap := NewDependencyInspector(s.repo.TimetableEntry, s.logger).Inspect(ctx, id)
	return &snap, nil
}

// ────────────────────── Lifecycle ──────────────────────

func (s *timeSlotService) Transition(ctx context.Context, id string, t Transition, callerID string) (*TransitionResult, error) {
	return s.lifecycle.Apply(ctx, id, t, callerID)
}

func (s *timeSlotService) BulkTransition(ctx context.Context, ids []string, t Transition, callerID string) []BulkTransitionResult {
	return s.lifecycle.BulkApply(ctx, ids, t, callerID)
}

// ── 内部辅助方法 ──

func (s *timeSlotService) getSlot(ctx context.Context, id string) (*model.TimeSlot, error) {
	slot, err := s.repo.TimeSlot.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTimeSlotNotFound
		}
		s.logger.Error("查询时间段失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return slot, nil
}

// findOverlap 在同日启用中的时间段里查找与候选重叠的定义
func (s *timeSlotService) findOverlap(ctx context.Context, candidate SlotCandidate) (*dto.SlotOverlapWarning, error) {
	day := candidate.DayOfWeek
	existing, err := s.repo.TimeSlot.List(ctx, repository.TimeSlotFilter{DayOfWeek: &day})
	if err != nil {
		s.logger.Error("查询同日时间段失败", zap.Error(err))
		return nil, err
	}
	if hit := s.validator.FindConflictingSlot(candidate, existing); hit != nil {
		return toOverlapWarning(hit), nil
	}
	return nil, nil
}

func movesRange(slot *model.TimeSlot, c SlotCandidate) bool {
	return slot.DayOfWeek != c.DayOfWeek ||
		NormalizeClock(slot.StartTime) != NormalizeClock(c.StartTime) ||
		NormalizeClock(slot.EndTime) != NormalizeClock(c.EndTime)
}

func defaultKind(kind string) string {
	if kind == "" {
		return model.SlotKindRegular
	}
	return kind
}

func toTimeSlotResponse(slot *model.TimeSlot) *dto.TimeSlotResponse {
	return &dto.TimeSlotResponse{
		ID:        slot.TimeSlotID,
		Name:      slot.Name,
		DayOfWeek: slot.DayOfWeek,
		StartTime: NormalizeClock(slot.StartTime),
		EndTime:   NormalizeClock(slot.EndTime),
		Kind:      slot.Kind,
		IsActive:  slot.IsActive,
		Version:   slot.Version,
		CreatedAt: slot.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: slot.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func toOverlapWarning(slot *model.TimeSlot) *dto.SlotOverlapWarning {
	return &dto.SlotOverlapWarning{
		SlotID:    slot.TimeSlotID,
		Name:      slot.Name,
		DayOfWeek: slot.DayOfWeek,
		StartTime: NormalizeClock(slot.StartTime),
		EndTime:   NormalizeClock(slot.EndTime),
	}
}
