package curl

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"

	"api_auto_test/internal/model"
)

// Build 把请求重新拼成可直接执行的 cURL 命令：
//
//	curl -X METHOD -H "k: v" ... --data '<body>' '<url?query>'
func Build(req *model.ParsedRequest) string {
	var b strings.Builder
	b.WriteString("curl -X ")
	b.WriteString(req.Method)

	for _, key := range req.Headers.Keys() {
		value, _ := req.Headers.Get(key)
		b.WriteString(` -H "`)
		b.WriteString(escapeDouble(key + ": " + value))
		b.WriteString(`"`)
	}

	if body, ok := EncodeBody(req); ok {
		b.WriteString(" --data '")
		b.WriteString(escapeSingle(string(body)))
		b.WriteString("'")
	}

	b.WriteString(" '")
	b.WriteString(escapeSingle(FullURL(req)))
	b.WriteString("'")
	return b.String()
}

// FullURL 带上重新编码后的查询串
func FullURL(req *model.ParsedRequest) string {
	if req.QueryParams.Len() == 0 {
		return req.URL
	}
	pairs := make([]string, 0, req.QueryParams.Len())
	for _, key := range req.QueryParams.Keys() {
		value, _ := req.QueryParams.Get(key)
		pairs = append(pairs, url.QueryEscape(key)+"="+url.QueryEscape(value))
	}
	return req.URL + "?" + strings.Join(pairs, "&")
}

// EncodeBody 返回实际发送的请求体。表单按 key=value 编码，数组和标量 JSON 原样输出，其余按 JSON 对象输出。
func EncodeBody(req *model.ParsedRequest) ([]byte, bool) {
	if req.Body == nil {
		return nil, false
	}
	if req.BodyKind == model.BodyJSONValue {
		return append([]byte(nil), req.RawBody...), true
	}
	if req.BodyKind == model.BodyForm {
		pairs := make([]string, 0, req.Body.Len())
		for _, key := range req.Body.Keys() {
			raw, _ := req.Body.Get(key)
			pairs = append(pairs, url.QueryEscape(key)+"="+url.QueryEscape(RawText(raw)))
		}
		return []byte(strings.Join(pairs, "&")), true
	}
	body, err := model.MarshalValue(req.Body)
	if err != nil {
		return nil, false
	}
	return body, true
}

// RawText 把 JSON 值转成展示文本：字符串去掉引号，其余保持 JSON 原文
func RawText(raw json.RawMessage) string {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "null"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func escapeDouble(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`, "`", "\\`")
	return r.Replace(s)
}

func escapeSingle(s string) string {
	return strings.ReplaceAll(s, `'`, `'\''`)
}
