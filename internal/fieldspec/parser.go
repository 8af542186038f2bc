// Package fieldspec 解析 Variables 列中的字段表达式。
//
// 语法：
//
//	field1("v1","v2"),field2(1,2,3),field3
//
// 字段之间用逗号分隔，字段名后可跟括号包裹的取值列表。双引号内的取值
// 一律为字符串；裸值按字面推断为 bool、null、undefined、整数、小数或字符串。
package fieldspec

import (
	"regexp"
	"strconv"
	"strings"

	"api_auto_test/internal/model"
)

var (
	intPattern   = regexp.MustCompile(`^-?\d+$`)
	floatPattern = regexp.MustCompile(`^-?\d*\.\d+$`)
)

// Parse 从左到右扫描一次，返回字段列表。
// 空字段名被忽略；括号未闭合时读到字符串末尾为止，不报错。
func Parse(spec string) []model.FieldSpec {
	var fields []model.FieldSpec

	i := 0
	for i < len(spec) {
		i = skipSeparators(spec, i)
		if i >= len(spec) {
			break
		}

		var name string
		name, i = readName(spec, i)

		field := model.FieldSpec{Name: strings.TrimSpace(name), CustomValues: []model.Value{}}
		if i < len(spec) && spec[i] == '(' {
			field.CustomValues, i = readValues(spec, i+1)
		}

		if field.Name != "" {
			fields = append(fields, field)
		}
	}
	return fields
}

func skipSeparators(s string, i int) int {
	for i < len(s) && (s[i] == ',' || isSpace(s[i])) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// readName 读到 '(' 或 ',' 为止
func readName(s string, i int) (string, int) {
	start := i
	for i < len(s) && s[i] != '(' && s[i] != ',' {
		i++
	}
	return s[start:i], i
}

// readValues 从 '(' 之后开始读取，返回取值和 ')' 之后的位置
func readValues(s string, i int) ([]model.Value, int) {
	values := []model.Value{}
	for {
		i = skipSeparators(s, i)
		if i >= len(s) {
			return values, i
		}
		if s[i] == ')' {
			return values, i + 1
		}

		var v model.Value
		if s[i] == '"' {
			v, i = readQuoted(s, i+1)
		} else {
			v, i = readBare(s, i)
		}
		values = append(values, v)
	}
}

// readQuoted 读取到下一个双引号，不处理转义
func readQuoted(s string, i int) (model.Value, int) {
	end := strings.IndexByte(s[i:], '"')
	if end < 0 {
		return s[i:], len(s)
	}
	return s[i : i+end], i + end + 1
}

func readBare(s string, i int) (model.Value, int) {
	start := i
	for i < len(s) && s[i] != ',' && s[i] != ')' {
		i++
	}
	return inferValue(strings.TrimSpace(s[start:i])), i
}

// inferValue 推断裸值的类型
func inferValue(raw string) model.Value {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	case "undefined":
		return model.Undefined
	}

	if intPattern.MatchString(raw) {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n
		}
		// 超出 int64 时与 JavaScript 一样退化为浮点数
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	}
	if floatPattern.MatchString(raw) {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	}
	return raw
}
