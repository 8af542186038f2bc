// Package server 通过 HTTP 暴露测试执行：上传 Excel 或 JSON 后以 NDJSON 流返回事件。
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"api_auto_test/internal/config"
	"api_auto_test/internal/curl"
	"api_auto_test/internal/history"
	"api_auto_test/internal/model"
	"api_auto_test/internal/reporter"
	"api_auto_test/internal/runner"
	"api_auto_test/internal/testcase"
)

const (
	mimeNDJSON   = "application/x-ndjson"
	headerRunID  = "X-Run-ID"
	maxUploadMiB = 20
)

type HttpDelivery struct {
	runner *runner.Runner
	exec   runner.Executor
	repo   history.Repository
	cfg    *config.Config
	log    *logrus.Logger
}

func NewHttpDelivery(e *echo.Echo, log *logrus.Logger, cfg *config.Config, r *runner.Runner, exec runner.Executor, repo history.Repository) *HttpDelivery {
	hD := &HttpDelivery{
		runner: r,
		exec:   exec,
		repo:   repo,
		cfg:    cfg,
		log:    log,
	}

	e.POST("/api/test-runs", hD.StartRun)
	e.GET("/api/test-runs/:id", hD.GetRun)
	e.GET("/api/test-runs/:id/report", hD.DownloadReport)
	e.POST("/api/proxy", hD.Proxy)
	return hD
}

type runRequest struct {
	Rows         []model.APIRow `json:"rows"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
}

type proxyRequest struct {
	Curl string `json:"curl"`
}

type proxyResponse struct {
	HTTPStatus      int    `json:"httpStatus"`
	ResponseCode    string `json:"responseCode,omitempty"`
	ResponseMessage string `json:"responseMessage,omitempty"`
	Body            string `json:"body"`
	DurationMs      int64  `json:"durationMs"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// StartRun 接收 multipart 上传的 Excel（字段 file）或 JSON 行列表，逐行返回事件
func (hD *HttpDelivery) StartRun(c echo.Context) error {
	rows, tokens, err := hD.readRunRequest(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{err.Error()})
	}
	rows = runner.Prepare(rows)

	// 客户端断开时请求上下文被取消，编排器随之停止
	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	// 客户端断开后仍要写完已产生的结果
	store := context.WithoutCancel(ctx)

	run := &history.Run{ID: uuid.New(), StartedAt: time.Now(), Total: testcase.Count(rows)}
	if err := hD.repo.CreateRun(store, run); err != nil {
		hD.log.Errorf("保存执行记录失败: %v", err)
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, mimeNDJSON)
	resp.Header().Set(headerRunID, run.ID.String())
	resp.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(resp)
	seq := 0
	for ev := range hD.runner.Stream(ctx, rows, tokens) {
		if ev.Type == model.EventResult {
			seq++
			if err := hD.repo.AddResult(store, run.ID, seq, *ev.Result); err != nil {
				hD.log.Errorf("保存测试结果失败: %v", err)
			}
		}
		if err := enc.Encode(ev); err != nil {
			hD.log.Warnf("写出事件失败, 停止执行: %v", err)
			return nil
		}
		resp.Flush()
	}

	if err := hD.repo.FinishRun(store, run.ID, time.Now()); err != nil {
		hD.log.Errorf("更新执行记录失败: %v", err)
	}
	return nil
}

func (hD *HttpDelivery) readRunRequest(c echo.Context) ([]model.APIRow, runner.Tokens, error) {
	tokens := runner.Tokens{Access: hD.cfg.AccessToken, Refresh: hD.cfg.RefreshToken}

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		rows, err := hD.readUpload(c)
		if err != nil {
			return nil, tokens, err
		}
		if v := c.FormValue("accessToken"); v != "" {
			tokens.Access = v
		}
		if v := c.FormValue("refreshToken"); v != "" {
			tokens.Refresh = v
		}
		return rows, tokens, nil
	}

	var req runRequest
	if err := c.Bind(&req); err != nil {
		return nil, tokens, fmt.Errorf("invalid request body: %w", err)
	}
	if len(req.Rows) == 0 {
		return nil, tokens, errors.New("no rows to test")
	}
	if req.AccessToken != "" {
		tokens.Access = req.AccessToken
	}
	if req.RefreshToken != "" {
		tokens.Refresh = req.RefreshToken
	}
	return req.Rows, tokens, nil
}

func (hD *HttpDelivery) readUpload(c echo.Context) ([]model.APIRow, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("missing Excel file: %w", err)
	}
	if file.Size > maxUploadMiB<<20 {
		return nil, fmt.Errorf("excel file larger than %d MiB", maxUploadMiB)
	}
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	sheet := c.FormValue("sheet")
	if sheet == "" {
		sheet = hD.cfg.SheetName
	}
	headerRow := hD.cfg.HeaderRow
	if v, err := strconv.Atoi(c.FormValue("headerRow")); err == nil && v > 0 {
		headerRow = v
	}
	return runner.ReadRows(src, sheet, headerRow)
}

// Proxy 同源转发：浏览器把 cURL 交给服务端执行，绕过跨域限制
func (hD *HttpDelivery) Proxy(c echo.Context) error {
	var req proxyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{err.Error()})
	}

	parsed, err := curl.Parse(req.Curl)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{"unable to parse cURL command"})
	}

	resp := hD.exec.Execute(c.Request().Context(), parsed)
	return c.JSON(http.StatusOK, proxyResponse{
		HTTPStatus:      resp.HTTPStatus,
		ResponseCode:    resp.ResponseCode,
		ResponseMessage: resp.ResponseMessage,
		Body:            resp.Body,
		DurationMs:      resp.Duration.Milliseconds(),
	})
}

// GetRun 返回一次执行保存的全部结果
func (hD *HttpDelivery) GetRun(c echo.Context) error {
	run, results, err := hD.readRun(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, struct {
		Run     *history.Run       `json:"run"`
		Results []model.TestResult `json:"results"`
	}{run, results})
}

// DownloadReport 以 xlsx 下载一次执行的结果
func (hD *HttpDelivery) DownloadReport(c echo.Context) error {
	run, results, err := hD.readRun(c)
	if err != nil {
		return err
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	resp.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="results_%s.xlsx"`, run.ID))
	resp.WriteHeader(http.StatusOK)
	if err := reporter.WriteTo(resp, results, run.Duration()); err != nil {
		hD.log.Errorf("生成报告失败: %v", err)
	}
	return nil
}

func (hD *HttpDelivery) readRun(c echo.Context) (*history.Run, []model.TestResult, error) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid run id")
	}

	run, results, err := hD.repo.ReadRun(c.Request().Context(), runID)
	if errors.Is(err, history.ErrNotFound) {
		return nil, nil, echo.NewHTTPError(http.StatusNotFound, "run not found")
	}
	if err != nil {
		hD.log.Errorf("读取执行记录失败: %v", err)
		return nil, nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return run, results, nil
}
