package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"timetable-admin/backend/internal/model"
	"timetable-admin/backend/internal/repository"
)

// ── 时间段生命周期业务错误 ──

var (
	ErrUnknownTransition     = errors.New("未知的时间段操作")
	ErrDependencyCheckFailed = errors.New("时间段依赖查询失败，已阻止永久删除")
)

// SlotState 时间段生命周期状态
type SlotState string

const (
	SlotActive   SlotState = "active"
	SlotInactive SlotState = "inactive"
	// SlotDeleted 终态，行已物理删除
	SlotDeleted SlotState = "deleted"
)

func stateOf(slot *model.TimeSlot) SlotState {
	if slot.IsActive {
		return SlotActive
	}
	return SlotInactive
}

// Transition 时间段状态迁移（封闭枚举）
type Transition int

const (
	TransitionActivate Transition = iota + 1
	TransitionDeactivate
	TransitionDelete
)

func (t Transition) String() string {
	switch t {
	case TransitionActivate:
		return "activate"
	case TransitionDeactivate:
		return "deactivate"
	case TransitionDelete:
		return "delete"
	}
	return fmt.Sprintf("transition(%d)", int(t))
}

// MarshalText 以 activate/deactivate/delete 序列化
func (t Transition) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseTransition 将外部传入的操作名解析为 Transition，仅在 HTTP/CLI 边界使用
func ParseTransition(s string) (Transition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "activate":
		return TransitionActivate, nil
	case "deactivate":
		return TransitionDeactivate, nil
	case "delete":
		return TransitionDelete, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTransition, s)
}

// BlockedByDependency 永久删除因存在引用而被阻止
type BlockedByDependency struct {
	TotalCount  int              `json:"total_count"`
	ActiveCount int              `json:"active_count"`
	Sample      []DependentEntry `json:"sample"`
}

func (b *BlockedByDependency) Error() string {
	return fmt.Sprintf("时间段仍被 %d 条课表项引用（其中有效 %d 条），不可永久删除", b.TotalCount, b.ActiveCount)
}

// TransitionResult 单个时间段状态迁移的结果
type TransitionResult struct {
	SlotID     string     `json:"slot_id"`
	Transition Transition `json:"transition"`
	From       SlotState  `json:"from"`
	To         SlotState  `json:"to"`
	// Changed 状态是否实际发生变化（对已启用的时间段再次启用为 false）
	Changed               bool `json:"changed"`
	AffectedActiveEntries int  `json:"affected_active_entries"`
	// ForcedDeactivation 删除被阻止后由管理器执行的强制停用
	ForcedDeactivation bool                 `json:"forced_deactivation"`
	Blocked            *BlockedByDependency `json:"blocked,omitempty"`
	// DependencyCheckFailed 依赖查询失败（仅兼容模式下的删除会带着此标记继续执行）
	DependencyCheckFailed bool `json:"dependency_check_failed,omitempty"`
}

// BulkTransitionResult 批量操作中单个时间段的结果，各项互不影响
type BulkTransitionResult struct {
	SlotID  string            `json:"slot_id"`
	Success bool              `json:"success"`
	Result  *TransitionResult `json:"result,omitempty"`
	Reason  string            `json:"reason,omitempty"`
	Err     error             `json:"-"`
}

// LifecycleEvent 每次完成的状态迁移向审计端发送一次
type LifecycleEvent struct {
	SlotID                   string    `json:"slot_id"`
	FromState                SlotState `json:"from_state"`
	ToState                  SlotState `json:"to_state"`
	AffectedActiveEntryCount int       `json:"affected_active_entry_count"`
	OperatorID               string    `json:"operator_id,omitempty"`
	OccurredAt               time.Time `json:"occurred_at"`
}

// LifecycleOptions 生命周期管理器选项
type LifecycleOptions struct {
	// LegacyFailOpenDelete 依赖查询失败时仍执行永久删除
	LegacyFailOpenDelete bool
	// SampleSize 删除被阻止时返回的受影响课表项数量
	SampleSize int
}

// LifecycleManager 时间段状态机：active ⇄ inactive，active|inactive → deleted。
//
// 每次迁移在单个事务内分两阶段完成：beginTransition 以排他行锁锁定时间段并
// 读取依赖快照，commit 根据快照执行写入。创建课表项时对同一时间段持共享锁，
// 因此依赖检查与删除之间不会插入新的引用。
type LifecycleManager struct {
	repo   *repository.Repository
	sink   AuditSink
	logger *zap.Logger
	opts   LifecycleOptions
	now    func() time.Time
}

// NewLifecycleManager 创建 LifecycleManager
func NewLifecycleManager(repo *repository.Repository, sink AuditSink, logger *zap.Logger, opts LifecycleOptions) *LifecycleManager {
	if opts.SampleSize <= 0 {
		opts.SampleSize = 5
	}
	return &LifecycleManager{repo: repo, sink: sink, logger: logger, opts: opts, now: time.Now}
}

// transitionLease 第一阶段持有的状态：已加锁的时间段与当时的依赖快照
type transitionLease struct {
	slot       *model.TimeSlot
	from       SlotState
	transition Transition
	snapshot   DependencySnapshot
}

// Apply 对单个时间段执行状态迁移，是生命周期的唯一入口
func (m *LifecycleManager) Apply(ctx context.Context, slotID string, t Transition, callerID string) (*TransitionResult, error) {
	if t < TransitionActivate || t > TransitionDelete {
		return nil, ErrUnknownTransition
	}

	var result *TransitionResult
	err := m.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		lease, err := m.beginTransition(ctx, txRepo, slotID, t)
		if err != nil {
			return err
		}
		result, err = m.commit(ctx, txRepo, lease, callerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if result.Changed {
		m.emit(ctx, LifecycleEvent{
			SlotID:                   result.SlotID,
			FromState:                result.From,
			ToState:                  result.To,
			AffectedActiveEntryCount: result.AffectedActiveEntries,
			OperatorID:               callerID,
			OccurredAt:               m.now(),
		})
	}
	return result, nil
}

// BulkApply 依次对每个时间段独立执行同一迁移；单项失败不回滚其他项
func (m *LifecycleManager) BulkApply(ctx context.Context, slotIDs []string, t Transition, callerID string) []BulkTransitionResult {
	results := make([]BulkTransitionResult, 0, len(slotIDs))
	for _, id := range slotIDs {
		res, err := m.Apply(ctx, id, t, callerID)
		item := BulkTransitionResult{SlotID: id, Result: res}
		if err != nil {
			item.Err = err
			item.Reason = err.Error()
			m.logger.Warn("批量时间段操作单项失败",
				zap.String("slot_id", id),
				zap.Stringer("transition", t),
				zap.Error(err),
			)
		} else {
			item.Success = true
		}
		results = append(results, item)
	}
	return results
}

func (m *LifecycleManager) beginTransition(ctx context.Context, txRepo *repository.Repository, slotID string, t Transition) (*transitionLease, error) {
	slot, err := txRepo.TimeSlot.GetForUpdate(ctx, slotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTimeSlotNotFound
		}
		m.logger.Error("锁定时间段失败", zap.String("slot_id", slotID), zap.Error(err))
		return nil, err
	}

	inspector := NewDependencyInspector(txRepo.TimetableEntry, m.logger)
	return &transitionLease{
		slot:       slot,
		from:       stateOf(slot),
		transition: t,
		snapshot:   inspector.Inspect(ctx, slotID),
	}, nil
}

func (m *LifecycleManager) commit(ctx context.Context, txRepo *repository.Repository, lease *transitionLease, callerID string) (*TransitionResult, error) {
	slotID := lease.slot.TimeSlotID
	result := &TransitionResult{
		SlotID:                slotID,
		Transition:            lease.transition,
		From:                  lease.from,
		To:                    lease.from,
		AffectedActiveEntries: lease.snapshot.ActiveCount,
		DependencyCheckFailed: lease.snapshot.CheckFailed,
	}

	switch lease.transition {
	case TransitionActivate, TransitionDeactivate:
		target := SlotActive
		if lease.transition == TransitionDeactivate {
			target = SlotInactive
		}
		if lease.from == target {
			return result, nil
		}
		if err := txRepo.TimeSlot.SetActive(ctx, slotID, target == SlotActive, callerID); err != nil {
			m.logger.Error("更新时间段状态失败", zap.String("slot_id", slotID), zap.Error(err))
			return nil, err
		}
		result.To, result.Changed = target, true
		return result, nil

	case TransitionDelete:
		snap := lease.snapshot
		if snap.CheckFailed && !m.opts.LegacyFailOpenDelete {
			return nil, ErrDependencyCheckFailed
		}

		if snap.HasDependencies {
			result.Blocked = &BlockedByDependency{
				TotalCount:  snap.TotalDependencyCount,
				ActiveCount: snap.ActiveCount,
				Sample:      snap.Sample(m.opts.SampleSize),
			}
			if lease.from == SlotActive {
				if err := txRepo.TimeSlot.SetActive(ctx, slotID, false, callerID); err != nil {
					m.logger.Error("强制停用时间段失败", zap.String("slot_id", slotID), zap.Error(err))
					return nil, err
				}
				result.To, result.Changed, result.ForcedDeactivation = SlotInactive, true, true
			}
			m.logger.Info("时间段存在引用，永久删除已改为停用",
				zap.String("slot_id", slotID),
				zap.Int("total_dependency_count", snap.TotalDependencyCount),
				zap.Int("active_count", snap.ActiveCount),
			)
			return result, nil
		}

		if err := txRepo.TimeSlot.Delete(ctx, slotID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrTimeSlotNotFound
			}
			m.logger.Error("永久删除时间段失败", zap.String("slot_id", slotID), zap.Error(err))
			return nil, err
		}
		result.To, result.Changed = SlotDeleted, true
		return result, nil
	}

	return nil, ErrUnknownTransition
}

// emit 尽力投递审计事件：只调用一次，失败仅记录日志
func (m *LifecycleManager) emit(ctx context.Context, event LifecycleEvent) {
	if m.sink == nil {
		return
	}
	if err := m.sink.Emit(ctx, event); err != nil {
		m.logger.Warn("审计事件投递失败",
			zap.String("slot_id", event.SlotID),
			zap.String("from", string(event.FromState)),
			zap.String("to", string(event.ToState)),
			zap.Error(err),
		)
	}
}
