// Package curl 把复制来的 cURL 命令拆成 model.ParsedRequest，并能把请求重新拼成命令。
package curl

import (
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"regexp"
	"strings"

	"api_auto_test/internal/model"
)

// ErrNoURL 所有规则都没找到 URL，调用方应跳过这一行
var ErrNoURL = errors.New("curl: 未找到请求 URL")

var (
	continuationPattern = regexp.MustCompile(`\\\s*\r?\n\s*`)
	spacePattern        = regexp.MustCompile(`\s+`)
	curlPrefixPattern   = regexp.MustCompile(`^curl(?:\s+|$)`)

	methodPattern  = regexp.MustCompile(`(?:^|\s)(?:(?:--request|--method)\s+|-X\s*)['"]?([A-Za-z]+)['"]?`)
	hasDataPattern = regexp.MustCompile(`(?:^|\s)(?:--data(?:-raw|-binary|-ascii|-urlencode)?|-d)(?:\s|['"=]|$)`)

	locationURLPattern = regexp.MustCompile(`(?:^|\s)(?:--location|-L)\s+['"]?(https?://[^\s'"]+)['"]?`)
	urlFlagPattern     = regexp.MustCompile(`(?:^|\s)--url\s+['"]?([^\s'"]+)['"]?`)
	startURLPattern    = regexp.MustCompile(`^['"]?(https?://[^\s'"]+)['"]?`)
	endURLPattern      = regexp.MustCompile(`['"]?(https?://[^\s'"]+)['"]?$`)
	anyURLPattern      = regexp.MustCompile(`['"]?(https?://[^\s'"]+)['"]?`)

	headerPattern = regexp.MustCompile(`(?:^|\s)(-H|--header|-b|--cookie|-A|--user-agent)\s+(?:'([^']*)'|"((?:[^"\\]|\\.)*)")`)
	dataPattern   = regexp.MustCompile(`(?:^|\s)(?:--data-raw|--data-binary|--data-ascii|--data|-d)\s+`)
	formPattern   = regexp.MustCompile(`^[^=&\s]+=[^&]*(?:&[^=&\s]+=[^&]*)*$`)
)

// Parse 解析一条 cURL 命令。
// 找不到 URL 时返回的请求 URL 为空，同时返回 ErrNoURL；不会 panic。
func Parse(raw string) (*model.ParsedRequest, error) {
	req := model.NewParsedRequest()
	buf := normalize(raw)

	if m := methodPattern.FindStringSubmatchIndex(buf); m != nil {
		req.Method = strings.ToUpper(buf[m[2]:m[3]])
		buf = strings.TrimSpace(cut(buf, m[0], m[1]))
	} else if hasDataPattern.MatchString(buf) {
		req.Method = "POST"
	}

	// URL 必须先于 header 取出，后面的 header 值里可能带着 origin/referer 之类的 URL
	var rawURL string
	rawURL, buf = extractURL(buf)

	buf = extractHeaders(buf, req)
	buf = extractBody(buf, req)

	if rawURL == "" {
		rawURL, _ = findURL(strings.TrimSpace(buf), startURLPattern, endURLPattern)
	}

	req.URL, req.QueryParams = splitQuery(rawURL)
	if req.URL == "" {
		return req, ErrNoURL
	}
	return req, nil
}

// normalize 合并续行和空白，去掉开头的 curl
func normalize(raw string) string {
	s := continuationPattern.ReplaceAllString(raw, " ")
	s = spacePattern.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return strings.TrimSpace(curlPrefixPattern.ReplaceAllString(s, ""))
}

// cut 删除 [start,end) 并补一个空格
func cut(s string, start, end int) string {
	return s[:start] + " " + s[end:]
}

func extractURL(buf string) (string, string) {
	for _, p := range []*regexp.Regexp{locationURLPattern, urlFlagPattern} {
		if m := p.FindStringSubmatchIndex(buf); m != nil {
			return buf[m[2]:m[3]], cut(buf, m[0], m[1])
		}
	}
	return findURL(buf, startURLPattern)
}

// findURL 依次尝试给定规则，最后在任意位置找一个前面不是冒号的 URL
func findURL(buf string, patterns ...*regexp.Regexp) (string, string) {
	for _, p := range patterns {
		if m := p.FindStringSubmatchIndex(buf); m != nil {
			return buf[m[2]:m[3]], cut(buf, m[0], m[1])
		}
	}
	for _, m := range anyURLPattern.FindAllStringSubmatchIndex(buf, -1) {
		if strings.HasSuffix(strings.TrimRight(buf[:m[0]], " "), ":") {
			continue
		}
		return buf[m[2]:m[3]], cut(buf, m[0], m[1])
	}
	return "", buf
}

// splitQuery 拆出查询参数，返回不带查询串的 URL
func splitQuery(rawURL string) (string, *model.Fields[string]) {
	params := model.NewFields[string]()
	base, query, found := strings.Cut(rawURL, "?")
	if !found {
		return rawURL, params
	}
	query, _, _ = strings.Cut(query, "#")
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		params.Set(unescapeQuery(k), unescapeQuery(v))
	}
	return base, params
}

func unescapeQuery(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

func extractHeaders(buf string, req *model.ParsedRequest) string {
	for {
		m := headerPattern.FindStringSubmatchIndex(buf)
		if m == nil {
			return buf
		}
		flag := buf[m[2]:m[3]]
		var content string
		if m[4] >= 0 {
			content = buf[m[4]:m[5]]
		} else {
			content = unescapeDouble(buf[m[6]:m[7]])
		}
		buf = cut(buf, m[0], m[1])

		switch flag {
		case "-b", "--cookie":
			addCookie(req, strings.TrimSpace(content))
		case "-A", "--user-agent":
			req.Headers.Set("User-Agent", strings.TrimSpace(content))
		default:
			key, value, ok := strings.Cut(content, ":")
			key = strings.TrimSpace(key)
			if !ok || key == "" {
				continue
			}
			req.Headers.Set(key, strings.TrimSpace(value))
		}
	}
}

func addCookie(req *model.ParsedRequest, cookie string) {
	if cookie == "" {
		return
	}
	if existing, ok := req.Headers.Get("Cookie"); ok && existing != "" {
		cookie = existing + "; " + cookie
	}
	req.Headers.Set("Cookie", cookie)
}

// unescapeDouble 处理双引号字符串里的 \" \\ \$ \`
func unescapeDouble(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && strings.IndexByte("\"\\$`", s[i+1]) >= 0 {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func extractBody(buf string, req *model.ParsedRequest) string {
	m := dataPattern.FindStringIndex(buf)
	if m == nil {
		return buf
	}

	i := m[1]
	var raw string
	var end int
	switch {
	case strings.HasPrefix(buf[i:], "$'"):
		raw, end = scanQuoted(buf, i+2, '\'')
		raw = strings.ReplaceAll(raw, `\'`, `'`)
	case strings.HasPrefix(buf[i:], "'"):
		raw, end = scanQuoted(buf, i+1, '\'')
		raw = strings.ReplaceAll(raw, `\'`, `'`)
	case strings.HasPrefix(buf[i:], `"`):
		raw, end = scanQuoted(buf, i+1, '"')
		raw = strings.ReplaceAll(raw, `\"`, `"`)
	default:
		end = strings.IndexByte(buf[i:], ' ')
		if end < 0 {
			end = len(buf)
		} else {
			end += i
		}
		raw = buf[i:end]
	}

	if raw != "" {
		decodeBody(req, raw)
	}
	return cut(buf, m[0], end)
}

// scanQuoted 从 i 开始逐字符扫描到第一个未转义的 quote，返回内容和 quote 之后的位置。
// 请求体里常有嵌套引号和花括号，正则无法正确处理转义，这里必须手写扫描。
func scanQuoted(s string, i int, quote byte) (string, int) {
	escaped := false
	for j := i; j < len(s); j++ {
		switch {
		case escaped:
			escaped = false
		case s[j] == '\\':
			escaped = true
		case s[j] == quote:
			return s[i:j], j + 1
		}
	}
	return s[i:], len(s)
}

// decodeBody 依次尝试 JSON（对象按键拆开，数组和标量原样保留）、表单，最后包装成 {"data": raw}
func decodeBody(req *model.ParsedRequest, raw string) {
	if body, ok := decodeJSONObject(raw); ok {
		req.Body, req.BodyKind = body, model.BodyJSON
		return
	}

	body := model.NewFields[json.RawMessage]()
	if trimmed := strings.TrimSpace(raw); json.Valid([]byte(trimmed)) {
		req.Body, req.BodyKind = body, model.BodyJSONValue
		req.RawBody = json.RawMessage(trimmed)
		return
	}

	if formPattern.MatchString(raw) {
		for _, pair := range strings.Split(raw, "&") {
			k, v, _ := strings.Cut(pair, "=")
			value, _ := model.MarshalValue(unescapeQuery(v))
			body.Set(unescapeQuery(k), value)
		}
		req.Body, req.BodyKind = body, model.BodyForm
		return
	}

	value, _ := model.MarshalValue(raw)
	body.Set("data", value)
	req.Body, req.BodyKind = body, model.BodyRaw
}

// decodeJSONObject 按原顺序读出顶层键，值保留原始 JSON
func decodeJSONObject(raw string) (*model.Fields[json.RawMessage], bool) {
	dec := json.NewDecoder(strings.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, false
	}

	body := model.NewFields[json.RawMessage]()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, ok := tok.(string)
		if !ok {
			return nil, false
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, false
		}
		body.Set(key, value)
	}

	if tok, err := dec.Token(); err != nil || tok != json.Delim('}') {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return body, true
}
