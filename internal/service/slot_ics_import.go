package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"timetable-admin/backend/internal/dto"
	"timetable-admin/backend/internal/model"
	"timetable-admin/backend/internal/repository"
)

// ── ICS 作息表导入 ──────────────────────────────────────────
//
// 职责：将学校作息表（iCalendar, RFC 5545）中的 VEVENT 转为时间段定义。
//
//   - DTSTART 的星期与时刻确定 day_of_week/start_time，DTEND 或 DURATION 确定 end_time
//   - 结束不晚于开始或跨越午夜的事件计入跳过列表（inverted / too_long）
//   - CATEGORIES 为 regular/break/lunch 时直接作为类型，否则按名称推断
//   - RRULE 只表示"每周重复"，不影响时间段定义，同一星期同一时段只导入一次
//   - 周日事件不在 1-6 范围内，计入跳过列表
// ─────────────────────────────────────────────────────────────

var ErrICSParse = errors.New("ICS 格式解析失败")

const (
	icsMaxFileSize   = 5 * 1024 * 1024 // 5MB
	shanghaiTimezone = "Asia/Shanghai"
)

// ImportICS 解析作息表并在单个事务内创建全部合法时间段
func (s *timeSlotService) ImportICS(ctx context.Context, reader io.Reader, callerID string) (*dto.ImportTimeSlotsResponse, error) {
	candidates, skipped, err := ParseSlotCalendar(io.LimitReader(reader, icsMaxFileSize))
	if err != nil {
		return nil, err
	}

	resp := &dto.ImportTimeSlotsResponse{
		Created:  []dto.TimeSlotResponse{},
		Skipped:  skipped,
		Overlaps: []dto.SlotOverlapWarning{},
	}

	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		existing, err := txRepo.TimeSlot.List(ctx, repository.TimeSlotFilter{})
		if err != nil {
			s.logger.Error("查询已有时间段失败", zap.Error(err))
			return err
		}

		for _, c := range candidates {
			if err := s.validator.ValidateShape(c); err != nil {
				resp.Skipped = append(resp.Skipped, skippedFromError(c, err))
				continue
			}
			if hit := s.validator.FindConflictingSlot(c, existing); hit != nil {
				resp.Overlaps = append(resp.Overlaps, *toOverlapWarning(hit))
			}

			slot := &model.TimeSlot{
				Name:      c.Name,
				DayOfWeek: c.DayOfWeek,
				StartTime: NormalizeClock(c.StartTime),
				EndTime:   NormalizeClock(c.EndTime),
				Kind:      c.Kind,
				IsActive:  true,
			}
			slot.CreatedBy = model.OperatorRef(callerID)
			slot.UpdatedBy = model.OperatorRef(callerID)
			if err := txRepo.TimeSlot.Create(ctx, slot); err != nil {
				s.logger.Error("导入时间段失败", zap.String("name", c.Name), zap.Error(err))
				return err
			}
			existing = append(existing, *slot)
			resp.Created = append(resp.Created, *toTimeSlotResponse(slot))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ICS 作息表导入完成",
		zap.Int("created", len(resp.Created)),
		zap.Int("skipped", len(resp.Skipped)),
		zap.Int("overlaps", len(resp.Overlaps)),
	)
	return resp, nil
}

// ParseSlotCalendar 将 ICS 内容解析为时间段候选；无法表示为时间段的事件计入跳过列表
func ParseSlotCalendar(reader io.Reader) ([]SlotCandidate, []dto.ImportSkippedSlot, error) {
	cal, err := ics.ParseCalendar(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrICSParse, err)
	}

	loc, err := time.LoadLocation(shanghaiTimezone)
	if err != nil {
		loc = time.FixedZone("CST", 8*3600)
	}

	type key struct {
		day        int
		start, end string
	}
	seen := make(map[key]bool)
	candidates := []SlotCandidate{}
	skipped := []dto.ImportSkippedSlot{}

	for _, evt := range cal.Events() {
		c, ok, spanErr := slotFromVEvent(evt, loc)
		if !ok {
			continue
		}
		if spanErr != nil {
			skipped = append(skipped, skippedFromError(c, spanErr))
			continue
		}
		if c.DayOfWeek > MaxDayOfWeek {
			skipped = append(skipped, dto.ImportSkippedSlot{
				Name:      c.Name,
				DayOfWeek: c.DayOfWeek,
				StartTime: c.StartTime,
				EndTime:   c.EndTime,
				ErrorCode: string(ShapeBadFormat),
				Message:   "周日不在排课范围内",
			})
			continue
		}
		k := key{c.DayOfWeek, c.StartTime, c.EndTime}
		if seen[k] {
			continue
		}
		seen[k] = true
		candidates = append(candidates, c)
	}
	return candidates, skipped, nil
}

// slotFromVEvent 缺少 SUMMARY 或 DTSTART 的事件直接忽略（ok=false）；
// 结束不晚于开始或跨越午夜的事件无法表示为单日时间段，以 spanErr 返回
func slotFromVEvent(evt *ics.VEvent, loc *time.Location) (SlotCandidate, bool, error) {
	summary := evt.GetProperty(ics.ComponentPropertySummary)
	if summary == nil || strings.TrimSpace(summary.Value) == "" {
		return SlotCandidate{}, false, nil
	}
	name := strings.TrimSpace(summary.Value)

	dtStart, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
	if err != nil {
		return SlotCandidate{}, false, nil
	}
	dtEnd, err := parseICSDateTime(evt, ics.ComponentPropertyDtEnd, loc)
	if err != nil {
		d, ok := parseICSDuration(evt)
		if !ok {
			return SlotCandidate{}, false, nil
		}
		dtEnd = dtStart.Add(d)
	}

	kind := ""
	if cat := evt.GetProperty(ics.ComponentPropertyCategories); cat != nil {
		kind = strings.ToLower(strings.TrimSpace(cat.Value))
	}
	if !isValidKind(kind) {
		kind = inferSlotKind(name)
	}

	c := SlotCandidate{
		Name:      name,
		DayOfWeek: isoWeekday(dtStart.Weekday()),
		StartTime: dtStart.Format("15:04"),
		EndTime:   dtEnd.Format("15:04"),
		Kind:      kind,
	}
	return c, true, checkEventSpan(dtStart, dtEnd)
}

// checkEventSpan 时间段只能落在同一天内，时长按完整时间差计算而非时刻差
func checkEventSpan(start, end time.Time) error {
	span := end.Sub(start)
	if span <= 0 {
		return &ShapeError{Code: ShapeInverted, Field: "end_time", Detail: "事件结束时间不晚于开始时间"}
	}
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	if sy != ey || sm != em || sd != ed {
		return &ShapeError{
			Code:   ShapeTooLong,
			Field:  "end_time",
			Detail: fmt.Sprintf("事件跨越午夜（持续 %d 分钟）", int(span/time.Minute)),
		}
	}
	return nil
}

// inferSlotKind 按名称推断时间段类型
func inferSlotKind(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "lunch") || strings.Contains(name, "午休") || strings.Contains(name, "午餐"):
		return model.SlotKindLunch
	case strings.Contains(lower, "break") || strings.Contains(name, "课间") || strings.Contains(name, "休息"):
		return model.SlotKindBreak
	}
	return model.SlotKindRegular
}

// isoWeekday 将 time.Weekday (0=Sunday) 转为 1=Monday … 7=Sunday
func isoWeekday(wd time.Weekday) int {
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

// parseICSDateTime 从 VEVENT 中解析日期时间属性
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing property %s", propName)
	}
	val := prop.Value

	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			tzid = v[0]
		}
	}

	for _, layout := range []string{"20060102T150405Z", "20060102T150405"} {
		t, err := time.Parse(layout, val)
		if err != nil {
			continue
		}
		if strings.HasSuffix(layout, "Z") {
			return t.In(loc), nil
		}
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, tzLoc).In(loc), nil
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}
	return time.Time{}, fmt.Errorf("无法解析日期: %s", val)
}

// parseICSDuration 解析 DURATION（RFC 5545 dur-value）：PnW 或 PnD[T…]、PT…，不支持负值
func parseICSDuration(evt *ics.VEvent) (time.Duration, bool) {
	prop := evt.GetProperty(ics.ComponentPropertyDuration)
	if prop == nil {
		return 0, false
	}
	v := strings.ToUpper(strings.TrimSpace(prop.Value))
	v = strings.TrimPrefix(v, "+")
	if !strings.HasPrefix(v, "P") {
		return 0, false
	}
	v = strings.TrimPrefix(v, "P")

	datePart, timePart, hasTime := strings.Cut(v, "T")
	var d time.Duration
	if datePart != "" {
		unit := datePart[len(datePart)-1]
		n, err := strconv.Atoi(datePart[:len(datePart)-1])
		if err != nil || n < 0 {
			return 0, false
		}
		switch unit {
		case 'W':
			if hasTime {
				return 0, false
			}
			d = time.Duration(n) * 7 * 24 * time.Hour
		case 'D':
			d = time.Duration(n) * 24 * time.Hour
		default:
			return 0, false
		}
	}
	if hasTime {
		if timePart == "" {
			return 0, false
		}
		td, err := time.ParseDuration(strings.ToLower(timePart))
		if err != nil || td < 0 {
			return 0, false
		}
		d += td
	}
	if d <= 0 {
		return 0, false
	}
	return d, true
}

func skippedFromError(c SlotCandidate, err error) dto.ImportSkippedSlot {
	code := string(ShapeBadFormat)
	var shapeErr *ShapeError
	if errors.As(err, &shapeErr) {
		code = string(shapeErr.Code)
	}
	return dto.ImportSkippedSlot{
		Name:      c.Name,
		DayOfWeek: c.DayOfWeek,
		StartTime: c.StartTime,
		EndTime:   c.EndTime,
		ErrorCode: code,
		Message:   err.Error(),
	}
}
