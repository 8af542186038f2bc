package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"
)

const (
	defaultSheetName = "Sheet1"
	defaultTimeout   = 30 * time.Second
	defaultPort      = "8080"
)

// 辅助结构体，用于解析 JSON 中的字符串时长
type jsonConfig struct {
	ExcelPath    string `json:"excel_path"`
	SheetName    string `json:"sheet_name"`
	HeaderRow    int    `json:"header_row"`
	OutputPath   string `json:"output_path"`
	Timeout      string `json:"timeout"`
	RowDelay     string `json:"row_delay"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Port         string `json:"port"`
	LogLevel     string `json:"log_level"`
}

type Config struct {
	ExcelPath    string
	SheetName    string
	HeaderRow    int
	OutputPath   string        // 为空时结果写回 ExcelPath
	Timeout      time.Duration // 单个请求的超时时间
	RowDelay     time.Duration // 两行接口之间的间隔
	AccessToken  string
	RefreshToken string
	Port         string
	LogLevel     string
}

// Load 读取配置文件，文件不存在时使用默认值，最后用环境变量覆盖
func Load(path string) (*Config, error) {
	var jsonCfg jsonConfig

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	default:
		if err := json.Unmarshal(data, &jsonCfg); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	cfg := &Config{
		ExcelPath:    jsonCfg.ExcelPath,
		SheetName:    jsonCfg.SheetName,
		HeaderRow:    jsonCfg.HeaderRow,
		OutputPath:   jsonCfg.OutputPath,
		Timeout:      parseDuration(jsonCfg.Timeout, defaultTimeout),
		RowDelay:     parseDuration(jsonCfg.RowDelay, 0),
		AccessToken:  jsonCfg.AccessToken,
		RefreshToken: jsonCfg.RefreshToken,
		Port:         jsonCfg.Port,
		LogLevel:     jsonCfg.LogLevel,
	}

	applyEnv(cfg)

	// 设置默认值
	if cfg.HeaderRow <= 0 {
		cfg.HeaderRow = 1
	}
	if cfg.SheetName == "" {
		cfg.SheetName = defaultSheetName
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}
	if timeout := os.Getenv("API_TEST_TIMEOUT"); timeout != "" {
		cfg.Timeout = parseDuration(timeout, cfg.Timeout)
	}
	if token := os.Getenv("SESSION_ACCESS_TOKEN"); token != "" {
		cfg.AccessToken = token
	}
	if token := os.Getenv("SESSION_REFRESH_TOKEN"); token != "" {
		cfg.RefreshToken = token
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
}

// parseDuration 支持 "30s" 这样的时长和纯数字秒数，解析失败返回默认值
func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return time.Duration(n) * time.Second
	}
	return def
}
