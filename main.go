package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"api_auto_test/internal/config"
	"api_auto_test/internal/database/postgres/connector"
	"api_auto_test/internal/executor"
	"api_auto_test/internal/history"
	"api_auto_test/internal/history/repository"
	"api_auto_test/internal/reporter"
	"api_auto_test/internal/runner"
	"api_auto_test/internal/server"
)

func main() {
	configPath := flag.String("config", "config.json", "配置文件路径")
	serve := flag.Bool("serve", false, "以 HTTP 服务方式运行")
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("加载配置失败: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exec := executor.New(logger, cfg.Timeout)
	r := runner.New(logger, exec, cfg.RowDelay)

	if *serve {
		if err := runServer(ctx, logger, cfg, r, exec); err != nil {
			logger.Fatal(err)
		}
		return
	}

	passed, err := runBatch(ctx, logger, cfg, r)
	if err != nil {
		logger.Fatal(err)
	}
	if !passed {
		fmt.Println("测试失败")
		os.Exit(1)
	}
	fmt.Println("测试通过")
}

func runBatch(ctx context.Context, logger *logrus.Logger, cfg *config.Config, r *runner.Runner) (bool, error) {
	if cfg.ExcelPath == "" {
		return false, errors.New("未配置 excel_path")
	}
	rows, err := runner.LoadRows(cfg.ExcelPath, cfg.SheetName, cfg.HeaderRow)
	if err != nil {
		return false, fmt.Errorf("读取测试用例失败: %w", err)
	}
	logger.Infof("读取到 %d 个接口", len(rows))

	startTime := time.Now()
	results := r.Run(ctx, rows, runner.Tokens{Access: cfg.AccessToken, Refresh: cfg.RefreshToken})
	duration := time.Since(startTime)

	rep := reporter.New(cfg, logger)
	if err := rep.GenerateReport(results, duration); err != nil {
		return false, fmt.Errorf("生成报告失败: %w", err)
	}

	for _, result := range results {
		if !result.Success() {
			return false, nil
		}
	}
	return true, nil
}

func runServer(ctx context.Context, logger *logrus.Logger, cfg *config.Config, r *runner.Runner, exec runner.Executor) error {
	repo, closeRepo, err := openRepository(ctx, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "method=${method}, uri=${uri}, status=${status}\n",
	}))
	e.Use(middleware.Recover())

	server.NewHttpDelivery(e, logger, cfg, r, exec, repo)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("关闭服务失败: %v", err)
		}
	}()

	logger.Infof("服务监听端口 %s", cfg.Port)
	if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("服务异常退出: %w", err)
	}
	return nil
}

// openRepository 设置了 PSQL_HOST 时使用 Postgres，否则结果只保存在内存中
func openRepository(ctx context.Context, logger *logrus.Logger) (history.Repository, func(), error) {
	conn := connector.NewPostgresConnector()
	if !conn.Enabled() {
		logger.Info("未配置 PSQL_HOST, 执行记录保存在内存中")
		return repository.NewMemoryRepository(), func() {}, nil
	}

	pool, err := conn.Connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	repo := repository.NewPostgresRepository(logger, pool)
	if err := repo.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("初始化数据表失败: %w", err)
	}
	return repo, pool.Close, nil
}
