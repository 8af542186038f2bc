package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Value 是字段的一个取值：string、int64、float64、bool、nil(null) 或 Undefined
type Value = any

type undefined struct{}

func (undefined) String() string { return "undefined" }

// Undefined 对应变量表达式里的 undefined
var Undefined Value = undefined{}

// FieldSpec 一个待测字段及其自定义取值
type FieldSpec struct {
	Name         string  `json:"fieldName"`
	CustomValues []Value `json:"customValues"`
}

// VariantType 测试用例类型：Custom1..CustomN、Empty、Invalid
type VariantType string

const (
	VariantEmpty   VariantType = "Empty"
	VariantInvalid VariantType = "Invalid"
)

// CustomVariant 第 n 个自定义取值的类型名，从 1 开始
func CustomVariant(n int) VariantType {
	return VariantType(fmt.Sprintf("Custom%d", n))
}

// IsCustom 是否为自定义取值
func (t VariantType) IsCustom() bool {
	return t != VariantEmpty && t != VariantInvalid
}

// Variant 字段的一次取值替换
type Variant struct {
	Type  VariantType `json:"type"`
	Value Value       `json:"value"`
}

// APIRow Excel 中的一行：接口名、cURL 命令和待测字段
type APIRow struct {
	APIName      string      `json:"apiName"`
	Curl         string      `json:"curl"`
	Variables    string      `json:"variables,omitempty"`
	FieldsToTest []FieldSpec `json:"fieldsToTest,omitempty"`
}

// FormatValue 按 JavaScript String() 的规则把取值转成文本
func FormatValue(v Value) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case undefined:
		return "undefined"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// StringifyValue 用于 header 和查询参数，null 和 undefined 变成空字符串
func StringifyValue(v Value) string {
	switch v.(type) {
	case nil, undefined:
		return ""
	}
	return FormatValue(v)
}
