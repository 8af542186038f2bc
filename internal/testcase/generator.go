package testcase

import (
	"math/rand"

	"api_auto_test/internal/model"
)

const (
	// InvalidPrefix Invalid 用例取值的前缀
	InvalidPrefix = "INVALID_VALUE_"

	invalidSuffixLen = 9
	base36           = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// Generate 生成一个字段的全部用例：自定义取值按声明顺序，然后是 Empty 和 Invalid。
// 返回数量恒为 len(CustomValues)+2。
func Generate(field model.FieldSpec) []model.Variant {
	variants := make([]model.Variant, 0, len(field.CustomValues)+2)
	for i, v := range field.CustomValues {
		variants = append(variants, model.Variant{Type: model.CustomVariant(i + 1), Value: v})
	}
	return append(variants,
		model.Variant{Type: model.VariantEmpty, Value: ""},
		model.Variant{Type: model.VariantInvalid, Value: InvalidPrefix + randomSuffix(invalidSuffixLen)},
	)
}

// randomSuffix 非加密随机串，撞车无所谓
func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = base36[rand.Intn(len(base36))]
	}
	return string(b)
}

// CountFields 一组字段的用例总数
func CountFields(fields []model.FieldSpec) int {
	total := 0
	for _, f := range fields {
		total += len(f.CustomValues) + 2
	}
	return total
}

// Count 在执行前统计所有行的用例总数，用于进度显示
func Count(rows []model.APIRow) int {
	total := 0
	for _, row := range rows {
		total += CountFields(row.FieldsToTest)
	}
	return total
}

// Label 用例名称：自定义取值为 field=value（字符串带引号），其余为 "Empty field" / "Invalid field"
func Label(field string, v model.Variant) string {
	if !v.Type.IsCustom() {
		return string(v.Type) + " " + field
	}
	if s, ok := v.Value.(string); ok {
		return field + "=\"" + s + "\""
	}
	return field + "=" + model.FormatValue(v.Value)
}
