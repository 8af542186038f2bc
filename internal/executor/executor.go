// Package executor 发送解析后的请求，并把响应归一化为 HTTP 状态、业务码和消息。
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"api_auto_test/internal/curl"
	"api_auto_test/internal/model"
)

const (
	// StatusNetworkError 网络错误、连接被拒绝等，没有拿到任何响应
	StatusNetworkError = 0
	// StatusTimeout 超时
	StatusTimeout = http.StatusRequestTimeout

	maxMessageLen = 1000
)

var (
	codeKeys    = []string{"responseCode", "code", "statusCode", "status"}
	messageKeys = []string{"responseMessage", "message", "msg", "error", "detail"}
)

type Executor struct {
	client  *resty.Client
	timeout time.Duration
	log     *logrus.Logger
}

func New(log *logrus.Logger, timeout time.Duration) *Executor {
	client := resty.New().
		SetTimeout(timeout).
		SetLogger(log)

	return &Executor{
		client:  client,
		timeout: timeout,
		log:     log,
	}
}

// Execute 发送请求，失败时返回状态 0（网络错误）或 408（超时），从不返回 error
func (e *Executor) Execute(ctx context.Context, req *model.ParsedRequest) model.Response {
	r := e.client.R().
		SetContext(ctx).
		SetHeaders(req.Headers.Map())
	if body, ok := curl.EncodeBody(req); ok {
		r.SetBody(body)
	}

	start := time.Now()
	resp, err := r.Execute(req.Method, curl.FullURL(req))
	duration := time.Since(start)

	if err != nil {
		return e.failure(err, duration)
	}

	code, message := Normalize(resp.Body())
	return model.Response{
		HTTPStatus:      resp.StatusCode(),
		ResponseCode:    code,
		ResponseMessage: message,
		Body:            string(resp.Body()),
		Duration:        duration,
	}
}

func (e *Executor) failure(err error, duration time.Duration) model.Response {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		e.log.Warnf("请求超时: %v", err)
		return model.Response{
			HTTPStatus:      StatusTimeout,
			ResponseMessage: fmt.Sprintf("Request timed out after %s", e.timeout),
			Duration:        duration,
		}
	}

	e.log.Warnf("请求失败: %v", err)
	return model.Response{
		HTTPStatus:      StatusNetworkError,
		ResponseMessage: fmt.Sprintf("Network error: %v", err),
		Duration:        duration,
	}
}

// Normalize 从响应体中取业务码和消息。
// 不是 JSON 对象或找不到消息字段时，用原始文本作为消息。
func Normalize(body []byte) (string, string) {
	var obj map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return "", rawMessage(body)
	}

	code := lookup(obj, codeKeys)
	message := lookup(obj, messageKeys)
	if message == "" {
		message = rawMessage(body)
	}
	return code, message
}

func lookup(obj map[string]any, keys []string) string {
	for _, k := range keys {
		v, ok := obj[k]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			return val
		case json.Number:
			return val.String()
		case bool:
			return fmt.Sprint(val)
		case map[string]any:
			// {"error": {"message": "..."}}
			if nested := lookup(val, messageKeys); nested != "" {
				return nested
			}
			b, _ := model.MarshalValue(val)
			return string(b)
		default:
			b, _ := model.MarshalValue(val)
			return string(b)
		}
	}
	return ""
}

func rawMessage(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= maxMessageLen {
		return s
	}
	// 不能截断在多字节字符中间
	cut := maxMessageLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
