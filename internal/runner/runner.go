// Package runner 逐行、逐字段、逐用例地顺序执行测试，并以事件流的形式输出进度和结果。
package runner

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"api_auto_test/internal/curl"
	"api_auto_test/internal/fieldspec"
	"api_auto_test/internal/model"
	"api_auto_test/internal/mutator"
	"api_auto_test/internal/testcase"
)

// Executor 发送一个请求并返回归一化后的响应
type Executor interface {
	Execute(ctx context.Context, req *model.ParsedRequest) model.Response
}

// Tokens 注入到 Cookie 的会话令牌
type Tokens struct {
	Access  string
	Refresh string
}

type Runner struct {
	exec     Executor
	log      *logrus.Logger
	rowDelay time.Duration
}

func New(log *logrus.Logger, exec Executor, rowDelay time.Duration) *Runner {
	return &Runner{
		exec:     exec,
		log:      log,
		rowDelay: rowDelay,
	}
}

// emitFunc 写出一个事件，调用方已放弃读取时返回 false
type emitFunc func(model.Event) bool

// Stream 在单个 goroutine 中顺序执行所有用例。
// 第一个事件总是 progress{0,total}。ctx 取消后停止执行，通道总会被关闭。
func (r *Runner) Stream(ctx context.Context, rows []model.APIRow, tokens Tokens) <-chan model.Event {
	events := make(chan model.Event)

	go func() {
		defer close(events)
		r.run(ctx, rows, tokens, func(ev model.Event) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()

	return events
}

// Run 执行并收集全部结果，供命令行使用
func (r *Runner) Run(ctx context.Context, rows []model.APIRow, tokens Tokens) []model.TestResult {
	var results []model.TestResult
	for ev := range r.Stream(ctx, rows, tokens) {
		switch ev.Type {
		case model.EventResult:
			results = append(results, *ev.Result)
		case model.EventProgress:
			r.log.Debugf("进度: %d/%d", ev.Current, ev.Total)
		case model.EventError:
			r.log.Error(ev.Message)
		case model.EventWarning:
			r.log.Warn(ev.Message)
		default:
			r.log.Info(ev.Message)
		}
	}
	return results
}

type progress struct {
	current int
	total   int
}

func (r *Runner) run(ctx context.Context, rows []model.APIRow, tokens Tokens, emit emitFunc) {
	rows = Prepare(rows)
	p := &progress{total: testcase.Count(rows)}

	r.log.Infof("开始执行: %d 个接口, %d 个用例", len(rows), p.total)
	if !emit(model.ProgressEvent(0, p.total)) {
		return
	}

	for i, row := range rows {
		if i > 0 && r.rowDelay > 0 {
			select {
			case <-time.After(r.rowDelay):
			case <-ctx.Done():
				return
			}
		}
		if !r.runRow(ctx, row, tokens, p, emit) {
			r.log.Info("调用方已取消，停止执行")
			return
		}
	}

	emit(model.MessageEvent(model.EventInfo, fmt.Sprintf("Completed %d of %d test cases", p.current, p.total)))
}

// Prepare 复制行，并为只有 Variables 文本的行解析字段
func Prepare(rows []model.APIRow) []model.APIRow {
	out := make([]model.APIRow, len(rows))
	for i, row := range rows {
		if len(row.FieldsToTest) == 0 && row.Variables != "" {
			row.FieldsToTest = fieldspec.Parse(row.Variables)
		}
		if row.APIName == "" {
			row.APIName = fmt.Sprintf("API %d", i+1)
		}
		out[i] = row
	}
	return out
}

// runRow 执行一行接口的全部用例。行内任何失败都转成事件，不会向上抛出。
func (r *Runner) runRow(ctx context.Context, row model.APIRow, tokens Tokens, p *progress, emit emitFunc) (ok bool) {
	count := testcase.CountFields(row.FieldsToTest)
	done := 0

	// 跳过整行时进度仍然前进，保证最终 current == total
	skip := func(message string) bool {
		r.log.Error(message)
		p.current += count - done
		return emit(model.MessageEvent(model.EventError, message)) &&
			emit(model.ProgressEvent(p.current, p.total))
	}

	defer func() {
		if rec := recover(); rec != nil {
			ok = skip(fmt.Sprintf("%s: unexpected failure: %v", row.APIName, rec))
		}
	}()

	if count == 0 {
		return emit(model.MessageEvent(model.EventWarning, fmt.Sprintf("%s: no fields to test", row.APIName)))
	}

	parsed, err := curl.Parse(row.Curl)
	if err != nil {
		return skip(fmt.Sprintf("%s: unable to parse cURL command", row.APIName))
	}
	// 令牌在字段替换之前注入，不参与字段测试
	parsed = mutator.InjectSessionTokens(parsed, tokens.Access, tokens.Refresh)

	baseline := r.exec.Execute(ctx, parsed)
	if ctx.Err() != nil {
		return false
	}
	if baseline.HTTPStatus == 0 {
		return skip(fmt.Sprintf("%s: endpoint unreachable, skipping field tests (%s)", row.APIName, baseline.ResponseMessage))
	}
	if !isSuccess(baseline.HTTPStatus) {
		if !emit(model.MessageEvent(model.EventInfo, fmt.Sprintf("%s: original request returned HTTP %d, continuing with field tests", row.APIName, baseline.HTTPStatus))) {
			return false
		}
	}

	for _, field := range row.FieldsToTest {
		if len(mutator.Locations(parsed, field.Name)) == 0 {
			if !emit(model.MessageEvent(model.EventWarning, fmt.Sprintf("%s: field %q not found in headers, query or body", row.APIName, field.Name))) {
				return false
			}
		}

		for _, variant := range testcase.Generate(field) {
			mutated := mutator.ApplyOverride(parsed, field.Name, variant.Value)
			cmd := curl.Build(mutated)
			r.log.Debug(cmd)

			resp := r.exec.Execute(ctx, mutated)
			if ctx.Err() != nil {
				return false
			}

			result := buildResult(row, field.Name, variant, mutated, resp, cmd)
			done++
			p.current++
			if !emit(model.ResultEvent(result)) || !emit(model.ProgressEvent(p.current, p.total)) {
				return false
			}
		}
	}
	return true
}

func buildResult(row model.APIRow, field string, variant model.Variant, req *model.ParsedRequest, resp model.Response, cmd string) model.TestResult {
	result := model.TestResult{
		APIName:         row.APIName,
		TestCase:        testcase.Label(field, variant),
		Parameters:      formatParameters(row.FieldsToTest, req),
		Response:        formatResponse(resp),
		HTTPStatus:      resp.HTTPStatus,
		ResponseCode:    resp.ResponseCode,
		ResponseMessage: resp.ResponseMessage,
		CurlCommand:     cmd,
	}
	if resp.HTTPStatus == 0 || resp.HTTPStatus == 408 {
		result.Errors = resp.ResponseMessage
	}
	return result
}

// formatParameters (field1:value1,field2:value2)，只包含本行的待测字段
func formatParameters(fields []model.FieldSpec, req *model.ParsedRequest) string {
	params := make([]string, 0, len(fields))
	for _, f := range fields {
		value, _ := mutator.Value(req, f.Name)
		params = append(params, f.Name+":"+value)
	}
	return "(" + strings.Join(params, ",") + ")"
}

// formatResponse (code:<业务码或 HTTP 状态>,message:<消息>)
func formatResponse(resp model.Response) string {
	code := resp.ResponseCode
	if code == "" {
		code = strconv.Itoa(resp.HTTPStatus)
	}
	return "(code:" + code + ",message:" + resp.ResponseMessage + ")"
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
