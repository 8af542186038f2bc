package model

import (
	"bytes"
	"encoding/json"
)

// BodyKind 请求体来源格式
type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyJSON          // JSON 对象
	BodyForm          // key=value&key2=value2
	BodyRaw           // 其他内容，包装为 {"data": 原文}
	BodyJSONValue     // 数组或标量 JSON，原文保存在 RawBody 中
)

// ParsedRequest 是一条 cURL 命令拆解后的结构。
// URL 只包含 origin+path，查询串全部拆到 QueryParams 中。
// 解析失败时 URL 为空字符串。
type ParsedRequest struct {
	Method      string
	URL         string
	Headers     *Fields[string]
	QueryParams *Fields[string]
	Body        *Fields[json.RawMessage] // nil 表示没有请求体
	BodyKind    BodyKind
	// RawBody 只在 BodyJSONValue 时使用，原样发送，字段替换不会修改它
	RawBody json.RawMessage
}

// NewParsedRequest 返回一个空请求，默认 GET
func NewParsedRequest() *ParsedRequest {
	return &ParsedRequest{
		Method:      "GET",
		Headers:     NewFields[string](),
		QueryParams: NewFields[string](),
	}
}

// Clone 深拷贝，变体之间不能共享 headers/body/queryParams
func (p *ParsedRequest) Clone() *ParsedRequest {
	c := &ParsedRequest{
		Method:      p.Method,
		URL:         p.URL,
		Headers:     p.Headers.Clone(),
		QueryParams: p.QueryParams.Clone(),
		BodyKind:    p.BodyKind,
		RawBody:     append(json.RawMessage(nil), p.RawBody...),
	}
	if p.Body != nil {
		c.Body = NewFields[json.RawMessage]()
		for _, k := range p.Body.Keys() {
			v, _ := p.Body.Get(k)
			c.Body.Set(k, append(json.RawMessage(nil), v...))
		}
	}
	return c
}

// Fields 保持插入顺序的键值集合，零值可直接使用
type Fields[V any] struct {
	keys   []string
	values map[string]V
}

func NewFields[V any]() *Fields[V] {
	return &Fields[V]{values: make(map[string]V)}
}

func (f *Fields[V]) Set(key string, value V) {
	if f.values == nil {
		f.values = make(map[string]V)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

func (f *Fields[V]) Get(key string) (V, bool) {
	var zero V
	if f == nil || f.values == nil {
		return zero, false
	}
	v, ok := f.values[key]
	return v, ok
}

func (f *Fields[V]) Has(key string) bool {
	_, ok := f.Get(key)
	return ok
}

func (f *Fields[V]) Delete(key string) {
	if !f.Has(key) {
		return
	}
	delete(f.values, key)
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i:i], f.keys[i+1:]...)
			break
		}
	}
}

// Rename 修改键名并保留原位置；newKey 已存在时会被覆盖并移除
func (f *Fields[V]) Rename(oldKey, newKey string) {
	v, ok := f.Get(oldKey)
	if !ok || oldKey == newKey {
		return
	}
	f.Delete(newKey)
	for i, k := range f.keys {
		if k == oldKey {
			f.keys[i] = newKey
			break
		}
	}
	delete(f.values, oldKey)
	f.values[newKey] = v
}

// Keys 返回键的副本
func (f *Fields[V]) Keys() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.keys...)
}

func (f *Fields[V]) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

func (f *Fields[V]) Clone() *Fields[V] {
	c := NewFields[V]()
	if f == nil {
		return c
	}
	for _, k := range f.keys {
		c.Set(k, f.values[k])
	}
	return c
}

// Map 转成普通 map，顺序信息丢失
func (f *Fields[V]) Map() map[string]V {
	m := make(map[string]V, f.Len())
	for _, k := range f.Keys() {
		m[k] = f.values[k]
	}
	return m
}

// MarshalJSON 按插入顺序输出 JSON 对象
func (f *Fields[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range f.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := MarshalValue(k)
		if err != nil {
			return nil, err
		}
		value, err := MarshalValue(f.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalValue 与 json.Marshal 相同，但不转义 <、>、&，保持命令行里看到的原样
func MarshalValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
