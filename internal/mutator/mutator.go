// Package mutator 在请求副本上替换字段取值，原请求永远不被修改。
package mutator

import (
	"encoding/json"
	"strings"

	"api_auto_test/internal/curl"
	"api_auto_test/internal/model"
)

// Location 字段出现的位置
type Location string

const (
	InHeaders Location = "headers"
	InQuery   Location = "query"
	InBody    Location = "body"
)

// ApplyOverride 复制请求，并在 headers、查询参数、请求体中所有名为 field 的位置替换取值。
// headers 和查询参数只存字符串，null/undefined 写成空字符串；
// 请求体保留原始类型，undefined 与 JSON.stringify 一样直接去掉该键。
func ApplyOverride(req *model.ParsedRequest, field string, value model.Value) *model.ParsedRequest {
	out := req.Clone()

	if out.Headers.Has(field) {
		out.Headers.Set(field, model.StringifyValue(value))
	}
	if out.QueryParams.Has(field) {
		out.QueryParams.Set(field, model.StringifyValue(value))
	}
	if out.Body.Has(field) {
		if value == model.Undefined {
			out.Body.Delete(field)
		} else {
			out.Body.Set(field, encodeBodyValue(value))
		}
	}
	return out
}

func encodeBodyValue(value model.Value) json.RawMessage {
	if raw, err := model.MarshalValue(value); err == nil {
		return raw
	}
	raw, _ := model.MarshalValue(model.FormatValue(value))
	return raw
}

// Locations 返回字段出现的所有位置
func Locations(req *model.ParsedRequest, field string) []Location {
	var locs []Location
	if req.Headers.Has(field) {
		locs = append(locs, InHeaders)
	}
	if req.QueryParams.Has(field) {
		locs = append(locs, InQuery)
	}
	if req.Body.Has(field) {
		locs = append(locs, InBody)
	}
	return locs
}

// Value 字段当前的展示值，按 headers、查询参数、请求体的顺序取第一个
func Value(req *model.ParsedRequest, field string) (string, bool) {
	if v, ok := req.Headers.Get(field); ok {
		return v, true
	}
	if v, ok := req.QueryParams.Get(field); ok {
		return v, true
	}
	if raw, ok := req.Body.Get(field); ok {
		return curl.RawText(raw), true
	}
	return "", false
}

// InjectSessionTokens 把会话令牌加到 Cookie 最前面：
//
//	session_access_token=<a>;session_refresh_token=<b>;<原 Cookie>
//
// 只要有一个令牌非空，两段都会写出（空令牌写成空值）。两个令牌都为空时只返回副本。
// 任意大小写的 cookie 头合并为一个 Cookie，放在第一个 cookie 头的位置。
func InjectSessionTokens(req *model.ParsedRequest, accessToken, refreshToken string) *model.ParsedRequest {
	out := req.Clone()
	if accessToken == "" && refreshToken == "" {
		return out
	}

	prefix := "session_access_token=" + accessToken + ";session_refresh_token=" + refreshToken + ";"

	var cookies []string
	first := ""
	for _, key := range out.Headers.Keys() {
		if !strings.EqualFold(key, "cookie") {
			continue
		}
		if v, _ := out.Headers.Get(key); strings.TrimSpace(v) != "" {
			cookies = append(cookies, strings.TrimSpace(v))
		}
		if first == "" {
			first = key
		} else {
			out.Headers.Delete(key)
		}
	}
	if first != "" {
		out.Headers.Rename(first, "Cookie")
	}
	out.Headers.Set("Cookie", prefix+strings.Join(cookies, "; "))
	return out
}
