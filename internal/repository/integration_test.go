//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"timetable-admin/backend/internal/model"
	"timetable-admin/backend/internal/repository"
	"timetable-admin/backend/internal/service"
	"timetable-admin/backend/pkg/database"
	pkgerrors "timetable-admin/backend/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=timetable password=timetable_password dbname=timetable_test sslmode=disable TimeZone=Asia/Shanghai"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

type fixture struct {
	subject   *model.Subject
	faculty   *model.Faculty
	classroom *model.Classroom
	slot      *model.TimeSlot
}

// setupFixture 创建基础测试数据并返回清理函数
func setupFixture(t *testing.T) (*fixture, func()) {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewRepository(testDB)
	suffix := time.Now().UnixNano()

	f := &fixture{
		subject:   &model.Subject{Code: fmt.Sprintf("T%d", suffix%1_000_000_000), Name: "测试科目"},
		faculty:   &model.Faculty{Name: "测试教师"},
		classroom: &model.Classroom{RoomNumber: "T101", Building: "测试楼"},
		slot: &model.TimeSlot{
			Name:      "测试节",
			DayOfWeek: 1,
			StartTime: "08:00",
			EndTime:   "08:45",
			Kind:      model.SlotKindRegular,
			IsActive:  true,
		},
	}
	if err := repo.Subject.Create(ctx, f.subject); err != nil {
		t.Fatalf("创建科目失败: %v", err)
	}
	if err := repo.Faculty.Create(ctx, f.faculty); err != nil {
		t.Fatalf("创建教师失败: %v", err)
	}
	if err := repo.Classroom.Create(ctx, f.classroom); err != nil {
		t.Fatalf("创建教室失败: %v", err)
	}
	if err := repo.TimeSlot.Create(ctx, f.slot); err != nil {
		t.Fatalf("创建时间段失败: %v", err)
	}

	cleanup := func() {
		testDB.Where("subject_id = ?", f.subject.SubjectID).Delete(&model.TimetableEntry{})
		testDB.Where("time_slot_id = ?", f.slot.TimeSlotID).Delete(&model.TimeSlot{})
		testDB.Where("subject_id = ?", f.subject.SubjectID).Delete(&model.Subject{})
		testDB.Where("faculty_id = ?", f.faculty.FacultyID).Delete(&model.Faculty{})
		testDB.Where("classroom_id = ?", f.classroom.ClassroomID).Delete(&model.Classroom{})
	}
	return f, cleanup
}

func (f *fixture) newEntry(section string, active bool) *model.TimetableEntry {
	return &model.TimetableEntry{
		SubjectID:    f.subject.SubjectID,
		FacultyID:    f.faculty.FacultyID,
		ClassroomID:  f.classroom.ClassroomID,
		Section:      section,
		Semester:     "1",
		AcademicYear: "2025-2026",
		TimeSlotID:   f.slot.TimeSlotID,
		IsActive:     active,
	}
}

// ═══════════════════════════════════════════════════════════
// TimeSlot
// ═══════════════════════════════════════════════════════════

func TestTimeSlot_UpdateOptimisticLock(t *testing.T) {
	f, cleanup := setupFixture(t)
	defer cleanup()
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	first, _ := repo.TimeSlot.GetByID(ctx, f.slot.TimeSlotID)
	second, _ := repo.TimeSlot.GetByID(ctx, f.slot.TimeSlotID)

	first.Name = "第一次"
	if err := repo.TimeSlot.Update(ctx, first); err != nil {
		t.Fatalf("首次更新应成功: %v", err)
	}
	second.Name = "第二次"
	if err := repo.TimeSlot.Update(ctx, second); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，实际: %v", err)
	}
}

func TestTimeSlot_CheckConstraint(t *testing.T) {
	repo := repository.NewRepository(testDB)
	bad := &model.TimeSlot{Name: "倒置", DayOfWeek: 1, StartTime: "09:00", EndTime: "08:00", Kind: model.SlotKindRegular, IsActive: true}
	if err := repo.TimeSlot.Create(context.Background(), bad); err == nil {
		testDB.Where("time_slot_id = ?", bad.TimeSlotID).Delete(&model.TimeSlot{})
		t.Error("数据库约束应拒绝开始时间晚于结束时间")
	}
}

func TestTimeSlot_ListTimeFormat(t *testing.T) {
	f, cleanup := setupFixture(t)
	defer cleanup()
	repo := repository.NewRepository(testDB)

	day := 1
	slots, err := repo.TimeSlot.List(context.Background(), repository.TimeSlotFilter{DayOfWeek: &day})
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	for _, s := range slots {
		if s.TimeSlotID == f.slot.TimeSlotID {
			if service.NormalizeClock(s.StartTime) != "08:00" {
				t.Errorf("TIME 列应可归一化为 HH:MM，实际 %q", s.StartTime)
			}
			return
		}
	}
	t.Error("List 结果中缺少测试时间段")
}

// ═══════════════════════════════════════════════════════════
// TimetableEntry
// ═══════════════════════════════════════════════════════════

func TestTimetableEntry_DependencyQueries(t *testing.T) {
	f, cleanup := setupFixture(t)
	defer cleanup()
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	for _, e := range []*model.TimetableEntry{f.newEntry("A", true), f.newEntry("B", true)} {
		if err := repo.TimetableEntry.Create(ctx, e); err != nil {
			t.Fatalf("创建课表项失败: %v", err)
		}
		// is_active 零值会被列默认值覆盖，停用须单独更新
		if e.Section == "B" {
			if err := repo.TimetableEntry.SetActive(ctx, e.TimetableEntryID, false, ""); err != nil {
				t.Fatalf("停用课表项失败: %v", err)
			}
		}
	}

	active, err := repo.TimetableEntry.ListActiveBySlot(ctx, f.slot.TimeSlotID)
	if err != nil {
		t.Fatalf("ListActiveBySlot 失败: %v", err)
	}
	if len(active) != 1 || active[0].Subject == nil || active[0].Classroom == nil {
		t.Errorf("期望 1 条有效课表项并预加载关联，实际 %+v", active)
	}

	total, err := repo.TimetableEntry.CountBySlot(ctx, f.slot.TimeSlotID)
	if err != nil || total != 2 {
		t.Errorf("期望总引用数 2，实际 %d (%v)", total, err)
	}
}

func TestTimetableEntry_ListBySlotState(t *testing.T) {
	f, cleanup := setupFixture(t)
	defer cleanup()
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	e := f.newEntry("A", true)
	if err := repo.TimetableEntry.Create(ctx, e); err != nil {
		t.Fatalf("创建课表项失败: %v", err)
	}
	if err := repo.TimeSlot.SetActive(ctx, f.slot.TimeSlotID, false, ""); err != nil {
		t.Fatalf("停用时间段失败: %v", err)
	}

	inactive := false
	stale, err := repo.TimetableEntry.List(ctx, repository.TimetableEntryFilter{
		ActiveOnly: true,
		SlotActive: &inactive,
		FacultyID:  f.faculty.FacultyID,
	})
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if len(stale) != 1 || stale[0].TimetableEntryID != e.TimetableEntryID {
		t.Errorf("期望查到引用已停用时间段的课表项，实际 %d 条", len(stale))
	}
	if stale[0].TimeSlot == nil || stale[0].TimeSlot.IsActive {
		t.Error("应预加载已停用的时间段")
	}
}

// ═══════════════════════════════════════════════════════════
// Transaction
// ═══════════════════════════════════════════════════════════

func TestTransaction_Rollback(t *testing.T) {
	f, cleanup := setupFixture(t)
	defer cleanup()
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	e := f.newEntry("A", true)
	sentinel := errors.New("rollback")
	err := repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.TimetableEntry.Create(ctx, e); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("期望返回 fn 的错误，实际: %v", err)
	}
	if _, err := repo.TimetableEntry.GetByID(ctx, e.TimetableEntryID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("回滚后不应查到课表项，实际: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Lifecycle 与行锁
// ═══════════════════════════════════════════════════════════

func TestLifecycle_DeleteAgainstDatabase(t *testing.T) {
	f, cleanup := setupFixture(t)
	defer cleanup()
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	m := service.NewLifecycleManager(repo, service.NewLogAuditSink(zap.NewNop()), zap.NewNop(), service.LifecycleOptions{})

	if err := repo.TimetableEntry.Create(ctx, f.newEntry("A", true)); err != nil {
		t.Fatalf("创建课表项失败: %v", err)
	}

	res, err := m.Apply(ctx, f.slot.TimeSlotID, service.TransitionDelete, "")
	if err != nil {
		t.Fatalf("被阻止的删除不应报错: %v", err)
	}
	if res.Blocked == nil || !res.ForcedDeactivation {
		t.Fatalf("期望删除被阻止并强制停用: %+v", res)
	}
	slot, err := repo.TimeSlot.GetByID(ctx, f.slot.TimeSlotID)
	if err != nil || slot.IsActive {
		t.Errorf("时间段应仍存在且已停用: %+v %v", slot, err)
	}

	// 移除引用后可以永久删除
	testDB.Where("time_slot_id = ?", f.slot.TimeSlotID).Delete(&model.TimetableEntry{})
	res, err = m.Apply(ctx, f.slot.TimeSlotID, service.TransitionDelete, "")
	if err != nil || res.To != service.SlotDeleted {
		t.Fatalf("无引用时应永久删除: %+v %v", res, err)
	}
	if _, err := repo.TimeSlot.GetByID(ctx, f.slot.TimeSlotID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("时间段应已物理删除，实际: %v", err)
	}
}

// 删除持有排他锁期间，创建课表项的共享锁须等待
func TestLifecycle_ShareLockWaitsForDelete(t *testing.T) {
	f, cleanup := setupFixture(t)
	defer cleanup()
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- repo.Transaction(ctx, func(txRepo *repository.Repository) error {
			if _, err := txRepo.TimeSlot.GetForUpdate(ctx, f.slot.TimeSlotID); err != nil {
				return err
			}
			close(locked)
			<-release
			return txRepo.TimeSlot.Delete(ctx, f.slot.TimeSlotID)
		})
	}()

	<-locked
	shareDone := make(chan error, 1)
	go func() {
		shareDone <- repo.Transaction(ctx, func(txRepo *repository.Repository) error {
			_, err := txRepo.TimeSlot.GetForShare(ctx, f.slot.TimeSlotID)
			return err
		})
	}()

	select {
	case err := <-shareDone:
		t.Fatalf("共享锁不应在排他锁释放前返回: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("删除事务失败: %v", err)
	}
	if err := <-shareDone; !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("删除提交后共享锁读取应查不到时间段，实际: %v", err)
	}
}
