package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func setupLifecycle(opts LifecycleOptions) (*LifecycleManager, *mockStore, *recordingSink) {
	store := newMockStore()
	sink := &recordingSink{}
	m := NewLifecycleManager(store.repo(), sink, zap.NewNop(), opts)
	m.now = func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) }
	return m, store, sink
}

func TestParseTransition(t *testing.T) {
	tests := map[string]Transition{
		"activate":     TransitionActivate,
		" Deactivate ": TransitionDeactivate,
		"DELETE":       TransitionDelete,
	}
	for in, want := range tests {
		got, err := ParseTransition(in)
		if err != nil || got != want {
			t.Errorf("ParseTransition(%q) 期望 %s，实际 %s（%v）", in, want, got, err)
		}
	}
	if _, err := ParseTransition("archive"); !errors.Is(err, ErrUnknownTransition) {
		t.Errorf("期望 ErrUnknownTransition，实际: %v", err)
	}
}

func TestLifecycle_UnknownTransition(t *testing.T) {
	m, store, _ := setupLifecycle(LifecycleOptions{})
	store.addSlot("slot-1", 1, "08:00", "08:45", true)
	if _, err := m.Apply(context.Background(), "slot-1", Transition(9), "admin"); !errors.Is(err, ErrUnknownTransition) {
		t.Errorf("期望 ErrUnknownTransition，实际: %v", err)
	}
}

func TestLifecycle_NotFound(t *testing.T) {
	m, _, _ := setupLifecycle(LifecycleOptions{})
	if _, err := m.Apply(context.Background(), "missing", TransitionDeactivate, "admin"); !errors.Is(err, ErrTimeSlotNotFound) {
		t.Errorf("期望 ErrTimeSlotNotFound，实际: %v", err)
	}
}

func TestLifecycle_DeactivateAndActivate(t *testing.T) {
	m, store, sink := setupLifecycle(LifecycleOptions{})
	store.addSlot("slot-1", 1, "08:00", "08:45", true)
	store.addEntry("e1", "slot-1", "fac-1", "room-1", "A", true)
	ctx := context.Background()

	res, err := m.Apply(ctx, "slot-1", TransitionDeactivate, "admin")
	if err != nil {
		t.Fatalf("停用应成功: %v", err)
	}
	if !res.Changed || res.From != SlotActive || res.To != SlotInactive {
		t.Errorf("停用结果不符: %+v", res)
	}
	if res.AffectedActiveEntries != 1 {
		t.Errorf("期望受影响课表项 1 条，实际 %d", res.AffectedActiveEntries)
	}
	if store.slots.slots["slot-1"].IsActive {
		t.Error("时间段应已停用")
	}
	// 停用不修改课表项
	if !store.entries.entries["e1"].IsActive {
		t.Error("停用时间段不应级联停用课表项")
	}

	res, err = m.Apply(ctx, "slot-1", TransitionActivate, "admin")
	if err != nil || !res.Changed || res.To != SlotActive {
		t.Fatalf("重新启用应成功: %+v %v", res, err)
	}

	if sink.count() != 2 {
		t.Errorf("期望审计事件 2 条，实际 %d", sink.count())
	}
	ev := sink.events[0]
	if ev.FromState != SlotActive || ev.ToState != SlotInactive || ev.AffectedActiveEntryCount != 1 || ev.OperatorID != "admin" {
		t.Errorf("审计事件内容不符: %+v", ev)
	}
	if !ev.OccurredAt.Equal(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("审计事件时间不符: %v", ev.OccurredAt)
	}
}

// 状态未变化的迁移不写库、不发事件
func TestLifecycle_NoOp(t *testing.T) {
	m, store, sink := setupLifecycle(LifecycleOptions{})
	store.addSlot("slot-1", 1, "08:00", "08:45", true)

	res, err := m.Apply(context.Background(), "slot-1", TransitionActivate, "admin")
	if err != nil {
		t.Fatalf("不应报错: %v", err)
	}
	if res.Changed || res.From != SlotActive || res.To != SlotActive {
		t.Errorf("期望无变化，实际: %+v", res)
	}
	if store.slots.setActiveCalls != 0 {
		t.Errorf("无变化时不应写库，实际调用 %d 次", store.slots.setActiveCalls)
	}
	if sink.count() != 0 {
		t.Errorf("无变化时不应发事件，实际 %d 条", sink.count())
	}
}

func TestLifecycle_DeleteUnreferenced(t *testing.T) {
	m, store, sink := setupLifecycle(LifecycleOptions{})
	store.addSlot("slot-1", 1, "08:00", "08:45", false)

	res, err := m.Apply(context.Background(), "slot-1", TransitionDelete, "admin")
	if err != nil {
		t.Fatalf("删除应成功: %v", err)
	}
	if !res.Changed || res.From != SlotInactive || res.To != SlotDeleted || res.Blocked != nil {
		t.Errorf("删除结果不符: %+v", res)
	}
	if _, ok := store.slots.slots["slot-1"]; ok {
		t.Error("时间段应已被物理删除")
	}
	if sink.count() != 1 || sink.events[0].ToState != SlotDeleted {
		t.Errorf("期望一条 deleted 事件，实际 %+v", sink.events)
	}
	if len(store.slots.lockCalls) == 0 || store.slots.lockCalls[0] != "update:slot-1" {
		t.Errorf("迁移前应以排他锁读取时间段，实际 %v", store.slots.lockCalls)
	}
}

// 存在有效引用的启用时间段：删除被阻止并强制停用
func TestLifecycle_DeleteBlocked_ForcedDeactivation(t *testing.T) {
	m, store, sink := setupLifecycle(LifecycleOptions{SampleSize: 2})
	store.addCatalog("sub-1", "fac-1", "room-1")
	store.addSlot("slot-1", 1, "08:00", "08:45", true)
	store.addEntry("e1", "slot-1", "fac-1", "room-1", "A", true)
	store.addEntry("e2", "slot-1", "fac-1", "room-1", "B", true)
	store.addEntry("e3", "slot-1", "fac-1", "room-1", "C", true)
	store.addEntry("e4", "slot-1", "fac-1", "room-1", "D", false)

	res, err := m.Apply(context.Background(), "slot-1", TransitionDelete, "admin")
	if err != nil {
		t.Fatalf("被阻止的删除不应返回错误: %v", err)
	}
	if res.Blocked == nil {
		t.Fatal("期望 Blocked 非空")
	}
	if res.Blocked.TotalCount != 4 || res.Blocked.ActiveCount != 3 {
		t.Errorf("引用计数不符: %+v", res.Blocked)
	}
	if len(res.Blocked.Sample) != 2 {
		t.Errorf("期望采样 2 条，实际 %d", len(res.Blocked.Sample))
	}
	if !res.ForcedDeactivation || !res.Changed || res.To != SlotInactive {
		t.Errorf("期望强制停用: %+v", res)
	}
	if _, ok := store.slots.slots["slot-1"]; !ok {
		t.Fatal("被阻止的删除不应删除时间段")
	}
	if store.slots.slots["slot-1"].IsActive {
		t.Error("时间段应已被强制停用")
	}
	if store.slots.deleteCalls != 0 {
		t.Errorf("不应调用 Delete，实际 %d 次", store.slots.deleteCalls)
	}
	if sink.count() != 1 || sink.events[0].ToState != SlotInactive {
		t.Errorf("期望一条 inactive 事件，实际 %+v", sink.events)
	}
}

// 已停用且仅被已停用课表项引用：删除被阻止，状态不变，无事件
func TestLifecycle_DeleteBlocked_AlreadyInactive(t *testing.T) {
	m, store, sink := setupLifecycle(LifecycleOptions{})
	store.addSlot("slot-1", 1, "08:00", "08:45", false)
	store.addEntry("e1", "slot-1", "fac-1", "room-1", "A", false)

	res, err := m.Apply(context.Background(), "slot-1", TransitionDelete, "admin")
	if err != nil {
		t.Fatalf("不应报错: %v", err)
	}
	if res.Blocked == nil || res.Blocked.TotalCount != 1 || res.Blocked.ActiveCount != 0 {
		t.Errorf("期望被阻止且仅含停用引用: %+v", res.Blocked)
	}
	if res.Changed || res.ForcedDeactivation {
		t.Errorf("已停用时间段不应再次变更: %+v", res)
	}
	if sink.count() != 0 {
		t.Errorf("无变化时不应发事件，实际 %d", sink.count())
	}
}

// 依赖查询失败时删除失败关闭
func TestLifecycle_DeleteFailsClosed(t *testing.T) {
	m, store, sink := setupLifecycle(LifecycleOptions{})
	store.addSlot("slot-1", 1, "08:00", "08:45", true)
	store.entries.listActiveErr = errors.New("timeout")

	_, err := m.Apply(context.Background(), "slot-1", TransitionDelete, "admin")
	if !errors.Is(err, ErrDependencyCheckFailed) {
		t.Fatalf("期望 ErrDependencyCheckFailed，实际: %v", err)
	}
	if _, ok := store.slots.slots["slot-1"]; !ok {
		t.Error("依赖查询失败时不应删除时间段")
	}
	if sink.count() != 0 {
		t.Errorf("失败时不应发事件，实际 %d", sink.count())
	}
}

// 兼容模式：依赖查询失败仍执行删除并标记
func TestLifecycle_DeleteLegacyFailOpen(t *testing.T) {
	m, store, _ := setupLifecycle(LifecycleOptions{LegacyFailOpenDelete: true})
	store.addSlot("slot-1", 1, "08:00", "08:45", true)
	store.entries.countErr = errors.New("timeout")

	res, err := m.Apply(context.Background(), "slot-1", TransitionDelete, "admin")
	if err != nil {
		t.Fatalf("兼容模式下删除应成功: %v", err)
	}
	if !res.DependencyCheckFailed || res.To != SlotDeleted {
		t.Errorf("期望带失败标记的删除结果: %+v", res)
	}
}

// 停用与启用不依赖快照结果，查询失败不影响
func TestLifecycle_DeactivateIgnoresCheckFailure(t *testing.T) {
	m, store, _ := setupLifecycle(LifecycleOptions{})
	store.addSlot("slot-1", 1, "08:00", "08:45", true)
	store.entries.listActiveErr = errors.New("timeout")

	res, err := m.Apply(context.Background(), "slot-1", TransitionDeactivate, "admin")
	if err != nil || !res.Changed {
		t.Errorf("停用应成功: %+v %v", res, err)
	}
}

// 审计端失败不影响迁移结果
func TestLifecycle_SinkErrorIgnored(t *testing.T) {
	m, store, sink := setupLifecycle(LifecycleOptions{})
	sink.err = errors.New("broker unavailable")
	store.addSlot("slot-1", 1, "08:00", "08:45", true)

	res, err := m.Apply(context.Background(), "slot-1", TransitionDeactivate, "admin")
	if err != nil {
		t.Fatalf("审计失败不应影响迁移: %v", err)
	}
	if !res.Changed {
		t.Error("迁移应已生效")
	}
	if sink.count() != 1 {
		t.Errorf("审计事件应只投递一次，实际 %d", sink.count())
	}
}

func TestLifecycle_WriteErrorPropagates(t *testing.T) {
	m, store, sink := setupLifecycle(LifecycleOptions{})
	store.addSlot("slot-1", 1, "08:00", "08:45", true)
	store.slots.setActiveErr = errors.New("write failed")

	if _, err := m.Apply(context.Background(), "slot-1", TransitionDeactivate, "admin"); err == nil {
		t.Error("写入失败时应返回错误")
	}
	if sink.count() != 0 {
		t.Errorf("写入失败时不应发事件，实际 %d", sink.count())
	}
}

func TestLifecycle_BulkApply_Independent(t *testing.T) {
	m, store, sink := setupLifecycle(LifecycleOptions{})
	store.addSlot("slot-1", 1, "08:00", "08:45", true)
	store.addSlot("slot-3", 1, "09:00", "09:45", true)

	results := m.BulkApply(context.Background(), []string{"slot-1", "missing", "slot-3"}, TransitionDeactivate, "admin")
	if len(results) != 3 {
		t.Fatalf("期望 3 条结果，实际 %d", len(results))
	}
	if !results[0].Success || !results[2].Success {
		t.Errorf("存在的时间段应成功: %+v", results)
	}
	if results[1].Success || !errors.Is(results[1].Err, ErrTimeSlotNotFound) || results[1].Reason == "" {
		t.Errorf("不存在的时间段应单独失败: %+v", results[1])
	}
	if store.slots.slots["slot-1"].IsActive || store.slots.slots["slot-3"].IsActive {
		t.Error("单项失败不应影响其他项")
	}
	if sink.count() != 2 {
		t.Errorf("期望 2 条审计事件，实际 %d", sink.count())
	}
}

func TestLifecycle_BulkActivate_MissingMiddle(t *testing.T) {
	m, store, sink := setupLifecycle(LifecycleOptions{})
	store.addSlot("id1", 1, "08:00", "08:45", false)
	store.addSlot("id3", 1, "09:00", "09:45", false)

	results := m.BulkApply(context.Background(), []string{"id1", "id2", "id3"}, TransitionActivate, "admin")
	if len(results) != 3 {
		t.Fatalf("期望 3 条独立结果，实际 %d", len(results))
	}
	for _, i := range []int{0, 2} {
		r := results[i]
		if !r.Success || r.Result == nil || r.Result.From != SlotInactive || r.Result.To != SlotActive {
			t.Errorf("%s 应从停用迁移为启用: %+v", r.SlotID, r)
		}
	}
	if results[1].SlotID != "id2" || results[1].Success || !errors.Is(results[1].Err, ErrTimeSlotNotFound) {
		t.Errorf("id2 应以 not found 单独失败: %+v", results[1])
	}
	if !store.slots.slots["id1"].IsActive || !store.slots.slots["id3"].IsActive {
		t.Error("id1 与 id3 应处于启用状态，不受 id2 失败影响")
	}
	if sink.count() != 2 {
		t.Errorf("期望 2 条审计事件，实际 %d", sink.count())
	}
}
