package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"timetable-admin/backend/internal/model"
	"timetable-admin/backend/internal/repository"
	pkgerrors "timetable-admin/backend/pkg/errors"
)

// mockStore 以内存 map 模拟全部仓储，并按真实仓储的语义组装关联
type mockStore struct {
	slots      *mockTimeSlotRepo
	entries    *mockTimetableEntryRepo
	subjects   *mockSubjectRepo
	faculty    *mockFacultyRepo
	classrooms *mockClassroomRepo
}

func newMockStore() *mockStore {
	s := &mockStore{
		slots:      newMockTimeSlotRepo(),
		subjects:   &mockSubjectRepo{items: make(map[string]*model.Subject)},
		faculty:    &mockFacultyRepo{items: make(map[string]*model.Faculty)},
		classrooms: &mockClassroomRepo{items: make(map[string]*model.Classroom)},
	}
	s.entries = &mockTimetableEntryRepo{entries: make(map[string]*model.TimetableEntry), store: s}
	return s
}

// repo 组装未绑定数据库的 Repository 聚合，Transaction 直接以自身执行
func (s *mockStore) repo() *repository.Repository {
	return &repository.Repository{
		TimeSlot:       s.slots,
		TimetableEntry: s.entries,
		Subject:        s.subjects,
		Faculty:        s.faculty,
		Classroom:      s.classrooms,
	}
}

// addSlot 直接写入时间段（跳过校验），返回其 ID
func (s *mockStore) addSlot(id string, day int, start, end string, active bool) *model.TimeSlot {
	slot := &model.TimeSlot{
		TimeSlotID: id,
		Name:       id,
		DayOfWeek:  day,
		StartTime:  start,
		EndTime:    end,
		Kind:       model.SlotKindRegular,
		IsActive:   active,
	}
	slot.Version = 1
	s.slots.put(slot)
	return slot
}

// addCatalog 写入一组科目/教师/教室
func (s *mockStore) addCatalog(subjectID, facultyID, classroomID string) {
	s.subjects.items[subjectID] = &model.Subject{SubjectID: subjectID, Code: "C-" + subjectID, Name: "科目" + subjectID}
	s.faculty.items[facultyID] = &model.Faculty{FacultyID: facultyID, Name: "教师" + facultyID}
	s.classrooms.items[classroomID] = &model.Classroom{ClassroomID: classroomID, RoomNumber: "R" + classroomID, Building: "主楼"}
}

// addEntry 直接写入课表项（跳过冲突检查）
func (s *mockStore) addEntry(id, slotID, facultyID, classroomID, section string, active bool) *model.TimetableEntry {
	e := &model.TimetableEntry{
		TimetableEntryID: id,
		SubjectID:        "sub-1",
		FacultyID:        facultyID,
		ClassroomID:      classroomID,
		Section:          section,
		Semester:         "1",
		AcademicYear:     "2025-2026",
		TimeSlotID:       slotID,
		IsActive:         active,
	}
	s.entries.put(e)
	return e
}

// ── Mock TimeSlotRepository ──

type mockTimeSlotRepo struct {
	mu    sync.Mutex
	slots map[string]*model.TimeSlot
	seq   int

	getErr       error
	listErr      error
	setActiveErr error
	deleteErr    error

	lockCalls      []string // "update:<id>" | "share:<id>"
	setActiveCalls int
	deleteCalls    int
}

func newMockTimeSlotRepo() *mockTimeSlotRepo {
	return &mockTimeSlotRepo{slots: make(map[string]*model.TimeSlot)}
}

func (m *mockTimeSlotRepo) put(slot *model.TimeSlot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[slot.TimeSlotID] = slot
}

func (m *mockTimeSlotRepo) Create(_ context.Context, slot *model.TimeSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slot.TimeSlotID == "" {
		m.seq++
		slot.TimeSlotID = fmt.Sprintf("slot-new-%d", m.seq)
	}
	slot.Version = 1
	slot.CreatedAt = time.Now()
	slot.UpdatedAt = slot.CreatedAt
	cp := *slot
	m.slots[slot.TimeSlotID] = &cp
	return nil
}

func (m *mockTimeSlotRepo) GetByID(_ context.Context, id string) (*model.TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if s, ok := m.slots[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTimeSlotRepo) GetForUpdate(ctx context.Context, id string) (*model.TimeSlot, error) {
	m.mu.Lock()
	m.lockCalls = append(m.lockCalls, "update:"+id)
	m.mu.Unlock()
	return m.GetByID(ctx, id)
}

func (m *mockTimeSlotRepo) GetForShare(ctx context.Context, id string) (*model.TimeSlot, error) {
	m.mu.Lock()
	m.lockCalls = append(m.lockCalls, "share:"+id)
	m.mu.Unlock()
	return m.GetByID(ctx, id)
}

func (m *mockTimeSlotRepo) List(_ context.Context, filter repository.TimeSlotFilter) ([]model.TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	result := []model.TimeSlot{}
	for _, s := range m.slots {
		if !filter.IncludeInactive && !s.IsActive {
			continue
		}
		if filter.DayOfWeek != nil && s.DayOfWeek != *filter.DayOfWeek {
			continue
		}
		if filter.Kind != "" && s.Kind != filter.Kind {
			continue
		}
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DayOfWeek != result[j].DayOfWeek {
			return result[i].DayOfWeek < result[j].DayOfWeek
		}
		if result[i].StartTime != result[j].StartTime {
			return result[i].StartTime < result[j].StartTime
		}
		return result[i].TimeSlotID < result[j].TimeSlotID
	})
	return result, nil
}

func (m *mockTimeSlotRepo) Update(_ context.Context, slot *model.TimeSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.slots[slot.TimeSlotID]
	if !ok || cur.Version != slot.Version {
		return pkgerrors.ErrOptimisticLock
	}
	slot.Version++
	cp := *slot
	m.slots[slot.TimeSlotID] = &cp
	return nil
}

func (m *mockTimeSlotRepo) SetActive(_ context.Context, id string, active bool, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setActiveCalls++
	if m.setActiveErr != nil {
		return m.setActiveErr
	}
	s, ok := m.slots[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.IsActive = active
	s.Version++
	return nil
}

func (m *mockTimeSlotRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.slots[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.slots, id)
	return nil
}

// ── Mock TimetableEntryRepository ──

type mockTimetableEntryRepo struct {
	mu      sync.Mutex
	entries map[string]*model.TimetableEntry
	order   []string
	seq     int
	store   *mockStore

	listErr       error
	listActiveErr error
	countErr      error
}

func (m *mockTimetableEntryRepo) put(e *model.TimetableEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[e.TimetableEntryID]; !ok {
		m.order = append(m.order, e.TimetableEntryID)
	}
	m.entries[e.TimetableEntryID] = e
}

// preload 按仓储的 Preload 语义附加关联（返回副本）
func (m *mockTimetableEntryRepo) preload(e *model.TimetableEntry) model.TimetableEntry {
	cp := *e
	if s, ok := m.store.slots.slots[e.TimeSlotID]; ok {
		slot := *s
		cp.TimeSlot = &slot
	}
	if s, ok := m.store.subjects.items[e.SubjectID]; ok {
		cp.Subject = s
	}
	if f, ok := m.store.faculty.items[e.FacultyID]; ok {
		cp.Faculty = f
	}
	if c, ok := m.store.classrooms.items[e.ClassroomID]; ok {
		cp.Classroom = c
	}
	return cp
}

func (m *mockTimetableEntryRepo) Create(_ context.Context, entry *model.TimetableEntry) error {
	m.mu.Lock()
	if entry.TimetableEntryID == "" {
		m.seq++
		entry.TimetableEntryID = fmt.Sprintf("entry-new-%d", m.seq)
	}
	entry.CreatedAt = time.Now()
	m.mu.Unlock()

	cp := *entry
	cp.TimeSlot, cp.Subject, cp.Faculty, cp.Classroom = nil, nil, nil, nil
	m.put(&cp)
	return nil
}

func (m *mockTimetableEntryRepo) GetByID(_ context.Context, id string) (*model.TimetableEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[id]; ok {
		cp := m.preload(e)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTimetableEntryRepo) List(_ context.Context, filter repository.TimetableEntryFilter) ([]model.TimetableEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	result := []model.TimetableEntry{}
	for _, id := range m.order {
		e := m.entries[id]
		switch {
		case filter.ActiveOnly && !e.IsActive,
			filter.Semester != "" && e.Semester != filter.Semester,
			filter.AcademicYear != "" && e.AcademicYear != filter.AcademicYear,
			filter.Section != "" && e.Section != filter.Section,
			filter.FacultyID != "" && e.FacultyID != filter.FacultyID,
			filter.ClassroomID != "" && e.ClassroomID != filter.ClassroomID,
			filter.TimeSlotID != "" && e.TimeSlotID != filter.TimeSlotID:
			continue
		}
		if filter.SlotActive != nil {
			slot, ok := m.store.slots.slots[e.TimeSlotID]
			if !ok || slot.IsActive != *filter.SlotActive {
				continue
			}
		}
		result = append(result, m.preload(e))
	}
	return result, nil
}

func (m *mockTimetableEntryRepo) ListActiveBySlot(_ context.Context, slotID string) ([]model.TimetableEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listActiveErr != nil {
		return nil, m.listActiveErr
	}
	result := []model.TimetableEntry{}
	for _, id := range m.order {
		e := m.entries[id]
		if e.TimeSlotID == slotID && e.IsActive {
			cp := m.preload(e)
			cp.TimeSlot = nil
			result = append(result, cp)
		}
	}
	return result, nil
}

func (m *mockTimetableEntryRepo) CountBySlot(_ context.Context, slotID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countErr != nil {
		return 0, m.countErr
	}
	var n int64
	for _, e := range m.entries {
		if e.TimeSlotID == slotID {
			n++
		}
	}
	return n, nil
}

func (m *mockTimetableEntryRepo) SetActive(_ context.Context, id string, active bool, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	e.IsActive = active
	return nil
}

// ── Mock 基础数据仓储 ──

type mockSubjectRepo struct {
	items     map[string]*model.Subject
	seq       int
	createErr error
}

func (m *mockSubjectRepo) Create(_ context.Context, s *model.Subject) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	s.SubjectID = fmt.Sprintf("subject-%d", m.seq)
	m.items[s.SubjectID] = s
	return nil
}

func (m *mockSubjectRepo) GetByID(_ context.Context, id string) (*model.Subject, error) {
	if s, ok := m.items[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubjectRepo) List(_ context.Context) ([]model.Subject, error) {
	result := []model.Subject{}
	for _, s := range m.items {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

type mockFacultyRepo struct {
	items map[string]*model.Faculty
	seq   int
}

func (m *mockFacultyRepo) Create(_ context.Context, f *model.Faculty) error {
	m.seq++
	f.FacultyID = fmt.Sprintf("faculty-%d", m.seq)
	m.items[f.FacultyID] = f
	return nil
}

func (m *mockFacultyRepo) GetByID(_ context.Context, id string) (*model.Faculty, error) {
	if f, ok := m.items[id]; ok {
		return f, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockFacultyRepo) List(_ context.Context) ([]model.Faculty, error) {
	result := []model.Faculty{}
	for _, f := range m.items {
		result = append(result, *f)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

type mockClassroomRepo struct {
	items map[string]*model.Classroom
	seq   int
}

func (m *mockClassroomRepo) Create(_ context.Context, c *model.Classroom) error {
	m.seq++
	c.ClassroomID = fmt.Sprintf("classroom-%d", m.seq)
	m.items[c.ClassroomID] = c
	return nil
}

func (m *mockClassroomRepo) GetByID(_ context.Context, id string) (*model.Classroom, error) {
	if c, ok := m.items[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClassroomRepo) List(_ context.Context) ([]model.Classroom, error) {
	result := []model.Classroom{}
	for _, c := range m.items {
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RoomNumber < result[j].RoomNumber })
	return result, nil
}

// ── Mock AuditSink ──

type recordingSink struct {
	mu     sync.Mutex
	events []LifecycleEvent
	err    error
}

func (s *recordingSink) Emit(_ context.Context, event LifecycleEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}
