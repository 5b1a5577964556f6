package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"timetable-admin/backend/internal/model"
	"timetable-admin/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoEntries    = errors.New("该学期暂无有效课表项")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 课表导出为 Excel (.xlsx)，每个班级一个 Sheet
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
//   - Sheet 格式：时段（start-end）为行 × 周一至周六为列
type ExportService interface {
	ExportTimetable(ctx context.Context, semester, academicYear, section string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// exportBand 表格中的一行：同一起止时刻在不同星期共用一行
type exportBand struct {
	start, end string
}

// ═══════════════════════════════════════════════════════════
// ExportTimetable 导出课表为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet 名为班级
//   - 行头：时段 "08:00-08:50"（按开始时刻排序）
//   - 列头：周一 ~ 周六
//   - 单元格：科目名称 / 教师 / 教室，多条时换行
//   - 引用已停用时间段的课表项追加"（时间段已停用）"
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportTimetable(ctx context.Context, semester, academicYear, section string) (*bytes.Buffer, string, error) {
	entries, err := s.repo.TimetableEntry.List(ctx, repository.TimetableEntryFilter{
		Semester:     semester,
		AcademicYear: academicYear,
		Section:      section,
		ActiveOnly:   true,
	})
	if err != nil {
		s.logger.Error("查询课表项失败", zap.Error(err))
		return nil, "", err
	}

	// 1. 按班级分组，收集时段行
	bySection := make(map[string][]*model.TimetableEntry)
	bandSet := make(map[exportBand]bool)
	for i := range entries {
		e := &entries[i]
		if e.TimeSlot == nil {
			continue
		}
		bySection[e.Section] = append(bySection[e.Section], e)
		bandSet[exportBand{NormalizeClock(e.TimeSlot.StartTime), NormalizeClock(e.TimeSlot.EndTime)}] = true
	}
	if len(bySection) == 0 {
		return nil, "", ErrExportNoEntries
	}

	bands := make([]exportBand, 0, len(bandSet))
	for b := range bandSet {
		bands = append(bands, b)
	}
	sort.Slice(bands, func(i, j int) bool {
		if bands[i].start != bands[j].start {
			return bands[i].start < bands[j].start
		}
		return bands[i].end < bands[j].end
	})
	bandRow := make(map[exportBand]int, len(bands))
	for i, b := range bands {
		bandRow[b] = i + 3
	}

	sections := make([]string, 0, len(bySection))
	for sec := range bySection {
		sections = append(sections, sec)
	}
	sort.Strings(sections)

	// 2. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	cellStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})

	for i, sec := range sections {
		sheet := sheetName(sec)
		if i == 0 {
			f.SetSheetName("Sheet1", sheet)
		} else {
			f.NewSheet(sheet)
		}

		f.SetColWidth(sheet, "A", "A", 14)
		f.SetColWidth(sheet, "B", colName(MaxDayOfWeek), 24)

		// 标题行
		f.SetCellValue(sheet, "A1", fmt.Sprintf("%s 学年第 %s 学期 %s 班课表", academicYear, semester, sec))
		f.MergeCell(sheet, "A1", cell(colName(MaxDayOfWeek), 1))
		f.SetCellStyle(sheet, "A1", "A1", headerStyle)

		// 表头
		f.SetCellValue(sheet, "A2", "时段")
		for day := MinDayOfWeek; day <= MaxDayOfWeek; day++ {
			f.SetCellValue(sheet, cell(colName(day), 2), dayNames[day])
		}
		f.SetCellStyle(sheet, "A2", cell(colName(MaxDayOfWeek), 2), headerStyle)

		for _, b := range bands {
			f.SetCellValue(sheet, cell("A", bandRow[b]), b.start+"-"+b.end)
		}

		// 单元格内容
		cells := make(map[string][]string)
		for _, e := range bySection[sec] {
			ts := e.TimeSlot
			if ts.DayOfWeek < MinDayOfWeek || ts.DayOfWeek > MaxDayOfWeek {
				continue
			}
			row := bandRow[exportBand{NormalizeClock(ts.StartTime), NormalizeClock(ts.EndTime)}]
			ref := cell(colName(ts.DayOfWeek), row)
			cells[ref] = append(cells[ref], entryCellText(e))
		}
		for ref, lines := range cells {
			f.SetCellValue(sheet, ref, strings.Join(lines, "\n"))
		}
		if len(bands) > 0 {
			f.SetCellStyle(sheet, "B3", cell(colName(MaxDayOfWeek), len(bands)+2), cellStyle)
		}
	}

	// 3. 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("课表_%s_%s.xlsx", academicYear, semester)
	if section != "" {
		filename = fmt.Sprintf("课表_%s_%s_%s.xlsx", academicYear, semester, section)
	}
	return buf, filename, nil
}

// ── 辅助函数 ──

func entryCellText(e *model.TimetableEntry) string {
	var parts []string
	if e.Subject != nil {
		parts = append(parts, e.Subject.Name)
	}
	if e.Faculty != nil {
		parts = append(parts, e.Faculty.Name)
	}
	if e.Classroom != nil {
		room := e.Classroom.RoomNumber
		if e.Classroom.Building != "" {
			room = e.Classroom.Building + " " + room
		}
		parts = append(parts, room)
	}
	text := strings.Join(parts, " / ")
	if text == "" {
		text = e.TimetableEntryID
	}
	if e.TimeSlot != nil && !e.TimeSlot.IsActive {
		text += "（时间段已停用）"
	}
	return text
}

// sheetName Excel Sheet 名最长 31 字符且不允许 []:*?/\
func sheetName(section string) string {
	name := strings.NewReplacer("[", "", "]", "", ":", "", "*", "", "?", "", "/", "-", "\\", "-").Replace(section)
	if name == "" {
		name = "未分班"
	}
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
