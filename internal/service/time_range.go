package service

import (
	"errors"
	"fmt"
	"strconv"
)

// 星期取值范围：1=周一 … 6=周六
const (
	MinDayOfWeek = 1
	MaxDayOfWeek = 6
)

var dayNames = map[int]string{1: "周一", 2: "周二", 3: "周三", 4: "周四", 5: "周五", 6: "周六"}

// ErrInvalidClock 时刻格式无效
var ErrInvalidClock = errors.New("时刻格式无效，应为 HH:MM")

// TimeRange 某一天内的半开时间区间 [Start, End)，以午夜起的分钟数表示
type TimeRange struct {
	Day   int
	Start int
	End   int
}

// NewTimeRange 由 "HH:MM" 字符串构造 TimeRange，不校验先后顺序
func NewTimeRange(day int, start, end string) (TimeRange, error) {
	s, err := ParseClock(start)
	if err != nil {
		return TimeRange{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return TimeRange{}, err
	}
	return TimeRange{Day: day, Start: s, End: e}, nil
}

// Overlaps 同一天且半开区间相交时返回 true；首尾相接（A.End == B.Start）不算重叠
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Day == other.Day && r.Start < other.End && other.Start < r.End
}

// DurationMinutes 区间时长（分钟）
func (r TimeRange) DurationMinutes() int {
	return r.End - r.Start
}

func (r TimeRange) String() string {
	day, ok := dayNames[r.Day]
	if !ok {
		day = fmt.Sprintf("星期%d", r.Day)
	}
	return fmt.Sprintf("%s %s-%s", day, FormatClock(r.Start), FormatClock(r.End))
}

// ParseClock 解析 "HH:MM"（或数据库返回的 "HH:MM:00"）为午夜起的分钟数
func ParseClock(s string) (int, error) {
	switch {
	case len(s) == 5 && s[2] == ':':
	case len(s) == 8 && s[2] == ':' && s[5] == ':':
		// 精度为分钟，秒必须为 00
		if s[6:] != "00" {
			return 0, ErrInvalidClock
		}
	default:
		return 0, ErrInvalidClock
	}

	h, err := parseTwoDigits(s[0:2])
	if err != nil || h > 23 {
		return 0, ErrInvalidClock
	}
	m, err := parseTwoDigits(s[3:5])
	if err != nil || m > 59 {
		return 0, ErrInvalidClock
	}
	return h*60 + m, nil
}

// FormatClock 将分钟数格式化为 "HH:MM"
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// NormalizeClock 将 "HH:MM:SS" 统一为 "HH:MM"，无法解析时原样返回
func NormalizeClock(s string) string {
	m, err := ParseClock(s)
	if err != nil {
		return s
	}
	return FormatClock(m)
}

func parseTwoDigits(s string) (int, error) {
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, ErrInvalidClock
	}
	return strconv.Atoi(s)
}
