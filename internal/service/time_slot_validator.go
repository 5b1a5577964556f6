package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"timetable-admin/backend/config"
	"timetable-admin/backend/internal/model"
)

// ShapeErrorCode 时间段形状校验失败的类别
type ShapeErrorCode string

const (
	ShapeBadFormat   ShapeErrorCode = "bad_format"
	ShapeInverted    ShapeErrorCode = "inverted"
	ShapeTooShort    ShapeErrorCode = "too_short"
	ShapeTooLong     ShapeErrorCode = "too_long"
	ShapeNameTooLong ShapeErrorCode = "name_too_long"
)

// ShapeError 时间段形状校验错误，只来自输入本身，不涉及存储，调用方不应重试
type ShapeError struct {
	Code   ShapeErrorCode
	Field  string
	Detail string
}

func (e *ShapeError) Error() string {
	var msg string
	switch e.Code {
	case ShapeBadFormat:
		msg = "时间段格式无效"
	case ShapeInverted:
		msg = "开始时间必须早于结束时间"
	case ShapeTooShort:
		msg = "时间段时长过短"
	case ShapeTooLong:
		msg = "时间段时长过长"
	case ShapeNameTooLong:
		msg = "时间段名称过长"
	default:
		msg = "时间段校验失败"
	}
	if e.Detail != "" {
		return msg + ": " + e.Detail
	}
	return msg
}

// Is 按 Code 匹配，使 errors.Is(err, ErrSlotTooShort) 之类的判断成立
func (e *ShapeError) Is(target error) bool {
	t, ok := target.(*ShapeError)
	return ok && t.Code == e.Code
}

// 形状校验哨兵错误，仅用于 errors.Is 比较
var (
	ErrSlotBadFormat   = &ShapeError{Code: ShapeBadFormat}
	ErrSlotInverted    = &ShapeError{Code: ShapeInverted}
	ErrSlotTooShort    = &ShapeError{Code: ShapeTooShort}
	ErrSlotTooLong     = &ShapeError{Code: ShapeTooLong}
	ErrSlotNameTooLong = &ShapeError{Code: ShapeNameTooLong}
)

// SlotCandidate 待校验的时间段定义；编辑时 ID 为被编辑时间段自身
type SlotCandidate struct {
	ID        string
	Name      string
	DayOfWeek int
	StartTime string
	EndTime   string
	Kind      string
}

// CandidateFromModel 由已有时间段构造校验候选
func CandidateFromModel(slot *model.TimeSlot) SlotCandidate {
	return SlotCandidate{
		ID:        slot.TimeSlotID,
		Name:      slot.Name,
		DayOfWeek: slot.DayOfWeek,
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
		Kind:      slot.Kind,
	}
}

// TimeSlotValidator 时间段形状与定义重叠校验（纯函数，无副作用）
type TimeSlotValidator struct {
	minMinutes    int
	maxMinutes    int
	maxNameLength int
}

// NewTimeSlotValidator 创建校验器，cfg 为 nil 时使用默认约束 15-240 分钟、名称 20 字符
func NewTimeSlotValidator(cfg *config.SlotConfig) *TimeSlotValidator {
	v := &TimeSlotValidator{minMinutes: 15, maxMinutes: 240, maxNameLength: 20}
	if cfg != nil {
		if cfg.MinMinutes > 0 {
			v.minMinutes = cfg.MinMinutes
		}
		if cfg.MaxMinutes > 0 {
			v.maxMinutes = cfg.MaxMinutes
		}
		if cfg.MaxNameLength > 0 {
			v.maxNameLength = cfg.MaxNameLength
		}
	}
	return v
}

// ValidateShape 校验顺序：格式 → 先后 → 过短 → 过长 → 名称长度，返回首个失败项
func (v *TimeSlotValidator) ValidateShape(c SlotCandidate) error {
	if strings.TrimSpace(c.Name) == "" {
		return &ShapeError{Code: ShapeBadFormat, Field: "name", Detail: "名称不能为空"}
	}
	if c.DayOfWeek < MinDayOfWeek || c.DayOfWeek > MaxDayOfWeek {
		return &ShapeError{Code: ShapeBadFormat, Field: "day_of_week", Detail: fmt.Sprintf("星期取值 %d 超出 1-6", c.DayOfWeek)}
	}
	if !isValidKind(c.Kind) {
		return &ShapeError{Code: ShapeBadFormat, Field: "kind", Detail: fmt.Sprintf("未知类型 %q", c.Kind)}
	}

	start, err := ParseClock(c.StartTime)
	if err != nil {
		return &ShapeError{Code: ShapeBadFormat, Field: "start_time", Detail: c.StartTime}
	}
	end, err := ParseClock(c.EndTime)
	if err != nil {
		return &ShapeError{Code: ShapeBadFormat, Field: "end_time", Detail: c.EndTime}
	}

	if start >= end {
		return &ShapeError{Code: ShapeInverted, Field: "end_time", Detail: fmt.Sprintf("%s-%s", c.StartTime, c.EndTime)}
	}

	duration := end - start
	if duration < v.minMinutes {
		return &ShapeError{Code: ShapeTooShort, Detail: fmt.Sprintf("%d 分钟，至少 %d 分钟", duration, v.minMinutes)}
	}
	if duration > v.maxMinutes {
		return &ShapeError{Code: ShapeTooLong, Detail: fmt.Sprintf("%d 分钟，至多 %d 分钟", duration, v.maxMinutes)}
	}

	if n := utf8.RuneCountInString(c.Name); n > v.maxNameLength {
		return &ShapeError{Code: ShapeNameTooLong, Field: "name", Detail: fmt.Sprintf("%d 字符，至多 %d 字符", n, v.maxNameLength)}
	}
	return nil
}

// FindConflictingSlot 返回第一个与候选同日且区间重叠的已有时间段（排除候选自身 ID）。
//
// 结果仅作提示：课间/午休跨越多个课时段是常见配置，不据此阻止创建。
func (v *TimeSlotValidator) FindConflictingSlot(c SlotCandidate, existing []model.TimeSlot) *model.TimeSlot {
	candidate, err := NewTimeRange(c.DayOfWeek, c.StartTime, c.EndTime)
	if err != nil {
		return nil
	}
	for i := range existing {
		slot := &existing[i]
		if c.ID != "" && slot.TimeSlotID == c.ID {
			continue
		}
		r, err := NewTimeRange(slot.DayOfWeek, slot.StartTime, slot.EndTime)
		if err != nil {
			continue
		}
		if candidate.Overlaps(r) {
			return slot
		}
	}
	return nil
}

func isValidKind(kind string) bool {
	switch kind {
	case model.SlotKindRegular, model.SlotKindBreak, model.SlotKindLunch:
		return true
	}
	return false
}
