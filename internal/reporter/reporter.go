package reporter

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"api_auto_test/internal/config"
	"api_auto_test/internal/model"
)

const (
	// Excel 相关
	defaultSheetNameFormat = "Results_%s"
	timeFormat             = "2006-01-02_15-04-05"
	minColumn              = 'A'
	maxColumn              = 'I'
	defaultColumnWidth     = 18
	wideColumnWidth        = 60

	// 样式相关
	patternType    = "pattern"
	patternValue   = 1
	errorBgColor   = "FF5900"
	warningBgColor = "FFEB9C"
)

// 表头定义
var excelHeaders = []string{
	"API Name", "Test Case", "Parameters", "Response", "HTTP Status",
	"Response Code", "Response Message", "cURL", "Errors",
}

type Reporter struct {
	config *config.Config
	log    *logrus.Logger
	out    io.Writer
}

func New(cfg *config.Config, log *logrus.Logger) *Reporter {
	return &Reporter{config: cfg, log: log, out: os.Stdout}
}

// GenerateReport 打印汇总并写入 Excel
func (r *Reporter) GenerateReport(results []model.TestResult, duration time.Duration) error {
	r.printConsoleReport(results, duration)
	return r.generateExcelReport(results, duration)
}

func (r *Reporter) generateExcelReport(results []model.TestResult, duration time.Duration) error {
	path := r.config.OutputPath
	if path == "" {
		path = r.config.ExcelPath
	}

	// 文件已存在时追加工作表，否则新建
	created := false
	f, err := excelize.OpenFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		f, created = excelize.NewFile(), true
	} else if err != nil {
		return fmt.Errorf("打开Excel文件失败: %w", err)
	}
	defer f.Close()

	sheetName, err := writeSheet(f, results, duration)
	if err != nil {
		return err
	}
	// 新建文件时删除默认的空工作表
	if created {
		f.DeleteSheet("Sheet1")
		f.SetActiveSheet(mustSheetIndex(f, sheetName))
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("保存报告失败: %w", err)
	}

	r.log.Infof("测试报告已保存到 %s 的工作表: %s", path, sheetName)
	return nil
}

// WriteTo 生成一个只包含结果工作表的新文件，用于下载
func WriteTo(w io.Writer, results []model.TestResult, duration time.Duration) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName, err := writeSheet(f, results, duration)
	if err != nil {
		return err
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(mustSheetIndex(f, sheetName))

	if err := f.Write(w); err != nil {
		return fmt.Errorf("写出报告失败: %w", err)
	}
	return nil
}

func mustSheetIndex(f *excelize.File, sheet string) int {
	index, err := f.GetSheetIndex(sheet)
	if err != nil || index < 0 {
		return 0
	}
	return index
}

func writeSheet(f *excelize.File, results []model.TestResult, duration time.Duration) (string, error) {
	// 创建新的工作表
	sheetName := fmt.Sprintf(defaultSheetNameFormat, time.Now().Format(timeFormat))
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("创建工作表失败: %w", err)
	}
	f.SetActiveSheet(index)

	// 设置列宽
	for col := minColumn; col <= maxColumn; col++ {
		colName := string(col)
		width := float64(defaultColumnWidth)
		if col == 'D' || col == 'H' {
			width = wideColumnWidth
		}
		f.SetColWidth(sheetName, colName, colName, width)
	}

	// 写入表头
	for i, header := range excelHeaders {
		cell := fmt.Sprintf("%c1", minColumn+i)
		f.SetCellValue(sheetName, cell, header)
	}

	errorStyle, err := fillStyle(f, errorBgColor)
	if err != nil {
		return "", err
	}
	warningStyle, err := fillStyle(f, warningBgColor)
	if err != nil {
		return "", err
	}

	// 写入测试结果
	for i, result := range results {
		row := i + 2
		writeTestResult(f, sheetName, row, result, errorStyle, warningStyle)
	}

	// 写入汇总信息
	summaryRow := len(results) + 3
	writeSummary(f, sheetName, summaryRow, results, duration)

	return sheetName, nil
}

func fillStyle(f *excelize.File, color string) (int, error) {
	style, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    patternType,
			Pattern: patternValue,
			Color:   []string{color},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("创建样式失败: %w", err)
	}
	return style, nil
}

func writeTestResult(f *excelize.File, sheet string, row int, result model.TestResult, errorStyle, warningStyle int) {
	cells := []interface{}{
		result.APIName,
		result.TestCase,
		result.Parameters,
		result.Response,
		result.HTTPStatus,
		result.ResponseCode,
		result.ResponseMessage,
		result.CurlCommand,
		result.Errors,
	}

	for i, cell := range cells {
		cellName := fmt.Sprintf("%c%d", minColumn+i, row)
		f.SetCellValue(sheet, cellName, cell)
	}

	// 超时和网络错误标黄，其他非 2xx 标红
	first := fmt.Sprintf("%c%d", minColumn, row)
	last := fmt.Sprintf("%c%d", maxColumn, row)
	switch {
	case result.Success():
	case result.Errors != "":
		f.SetCellStyle(sheet, first, last, warningStyle)
	default:
		f.SetCellStyle(sheet, first, last, errorStyle)
	}
}

type summary struct {
	total  int
	failed int
	errors int
}

func summarize(results []model.TestResult) summary {
	var s summary
	s.total = len(results)
	for _, result := range results {
		if !result.Success() {
			s.failed++
		}
		if result.Errors != "" {
			s.errors++
		}
	}
	return s
}

func writeSummary(f *excelize.File, sheet string, startRow int, results []model.TestResult, duration time.Duration) {
	s := summarize(results)

	f.SetCellValue(sheet, fmt.Sprintf("A%d", startRow), "Summary")
	f.SetCellValue(sheet, fmt.Sprintf("A%d", startRow+1), fmt.Sprintf("Total time: %.3fs", duration.Seconds()))
	f.SetCellValue(sheet, fmt.Sprintf("A%d", startRow+2), fmt.Sprintf("Test cases: %d", s.total))
	f.SetCellValue(sheet, fmt.Sprintf("A%d", startRow+3), fmt.Sprintf("Non-2xx responses: %d", s.failed))
	f.SetCellValue(sheet, fmt.Sprintf("A%d", startRow+4), fmt.Sprintf("Timeouts / network errors: %d", s.errors))
}

func (r *Reporter) printConsoleReport(results []model.TestResult, duration time.Duration) {
	s := summarize(results)

	fmt.Fprintf(r.out, "\n测试汇总\n")
	fmt.Fprintf(r.out, "总执行时间: %.3fs\n", duration.Seconds())
	fmt.Fprintf(r.out, "总用例数: %d\n", s.total)
	if s.failed > 0 {
		fmt.Fprintf(r.out, "\033[31m非2xx用例数: %d\033[0m\n", s.failed)
	} else {
		fmt.Fprintf(r.out, "非2xx用例数: %d\n", s.failed)
	}
	if s.errors > 0 {
		fmt.Fprintf(r.out, "\033[33m超时/网络错误: %d\033[0m\n", s.errors)
	}
}
