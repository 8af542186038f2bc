package model

import (
	"encoding/json"
	"time"
)

// TestResult 一个 (字段, 变体) 的执行结果
type TestResult struct {
	APIName         string `json:"apiName"`
	TestCase        string `json:"testCase"`
	Parameters      string `json:"parameters"`
	Response        string `json:"response"`
	HTTPStatus      int    `json:"httpStatus"`
	ResponseCode    string `json:"responseCode,omitempty"`
	ResponseMessage string `json:"responseMessage,omitempty"`
	CurlCommand     string `json:"curlCommand,omitempty"`
	Errors          string `json:"errors,omitempty"`
}

// Success 2xx 视为成功
func (r TestResult) Success() bool {
	return r.HTTPStatus >= 200 && r.HTTPStatus < 300
}

// Response 执行一次请求后归一化的响应
type Response struct {
	HTTPStatus      int
	ResponseCode    string
	ResponseMessage string
	Body            string
	Duration        time.Duration
}

// EventType 流式事件类型
type EventType string

const (
	EventProgress EventType = "progress"
	EventResult   EventType = "result"
	EventError    EventType = "error"
	EventWarning  EventType = "warning"
	EventInfo     EventType = "info"
)

// Event 编排器写出的一条事件，每行一个 JSON
type Event struct {
	Type    EventType
	Current int
	Total   int
	Result  *TestResult
	Message string
}

func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventProgress:
		return json.Marshal(struct {
			Type    EventType `json:"type"`
			Current int       `json:"current"`
			Total   int       `json:"total"`
		}{e.Type, e.Current, e.Total})
	case EventResult:
		return json.Marshal(struct {
			Type   EventType   `json:"type"`
			Result *TestResult `json:"result"`
		}{e.Type, e.Result})
	default:
		return json.Marshal(struct {
			Type    EventType `json:"type"`
			Message string    `json:"message"`
		}{e.Type, e.Message})
	}
}

func ProgressEvent(current, total int) Event {
	return Event{Type: EventProgress, Current: current, Total: total}
}

func ResultEvent(result TestResult) Event {
	return Event{Type: EventResult, Result: &result}
}

func MessageEvent(t EventType, message string) Event {
	return Event{Type: t, Message: message}
}
