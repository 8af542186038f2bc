package runner

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"api_auto_test/internal/fieldspec"
	"api_auto_test/internal/model"
)

// 列的默认位置：接口名、cURL、待测字段
const (
	defaultNameCol = 0
	defaultCurlCol = 1
	defaultVarsCol = 2
)

var (
	nameHeaders = []string{"apiname", "api", "name", "接口名称"}
	curlHeaders = []string{"curl", "curlcommand", "command"}
	varsHeaders = []string{"variables", "variable", "fields", "fieldstotest", "待测字段"}
)

// LoadRows 从 Excel 文件读取接口行
func LoadRows(path, sheet string, headerRow int) ([]model.APIRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开Excel文件: %w", err)
	}
	defer f.Close()
	return readRows(f, sheet, headerRow)
}

// ReadRows 从上传的 Excel 内容读取接口行
func ReadRows(r io.Reader, sheet string, headerRow int) ([]model.APIRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("无法读取Excel内容: %w", err)
	}
	defer f.Close()
	return readRows(f, sheet, headerRow)
}

func readRows(f *excelize.File, sheet string, headerRow int) ([]model.APIRow, error) {
	sheet = resolveSheet(f, sheet)
	if sheet == "" {
		return nil, fmt.Errorf("Excel中没有工作表")
	}
	if headerRow <= 0 {
		headerRow = 1
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("无法读取工作表: %w", err)
	}
	if len(rows) <= headerRow {
		return nil, fmt.Errorf("没有找到测试用例")
	}

	nameCol, curlCol, varsCol := locateColumns(rows[headerRow-1])

	var apis []model.APIRow
	for i, row := range rows[headerRow:] {
		curl := strings.TrimSpace(cell(row, curlCol))
		if curl == "" {
			continue
		}
		name := strings.TrimSpace(cell(row, nameCol))
		if name == "" {
			name = fmt.Sprintf("Row %d", headerRow+i+1)
		}
		vars := strings.TrimSpace(cell(row, varsCol))
		apis = append(apis, model.APIRow{
			APIName:      name,
			Curl:         curl,
			Variables:    vars,
			FieldsToTest: fieldspec.Parse(vars),
		})
	}

	if len(apis) == 0 {
		return nil, fmt.Errorf("没有找到测试用例")
	}
	return apis, nil
}

// resolveSheet 指定的工作表不存在时使用第一个
func resolveSheet(f *excelize.File, sheet string) string {
	sheets := f.GetSheetList()
	for _, s := range sheets {
		if s == sheet {
			return s
		}
	}
	if len(sheets) == 0 {
		return ""
	}
	return sheets[0]
}

// locateColumns 按表头名称定位列，找不到时使用默认位置
func locateColumns(header []string) (int, int, int) {
	nameCol, curlCol, varsCol := -1, -1, -1
	for i, h := range header {
		key := normalizeHeader(h)
		switch {
		case nameCol < 0 && contains(nameHeaders, key):
			nameCol = i
		case curlCol < 0 && contains(curlHeaders, key):
			curlCol = i
		case varsCol < 0 && contains(varsHeaders, key):
			varsCol = i
		}
	}
	if nameCol < 0 {
		nameCol = defaultNameCol
	}
	if curlCol < 0 {
		curlCol = defaultCurlCol
	}
	if varsCol < 0 {
		varsCol = defaultVarsCol
	}
	return nameCol, curlCol, varsCol
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}
