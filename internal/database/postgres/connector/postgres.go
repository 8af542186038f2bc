package connector

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v4/pgxpool"
)

type PostgresConnector struct {
	Host       string `json:"host"`
	Port       string `json:"port"`
	User       string `json:"user"`
	Password   string `json:"password"`
	Database   string `json:"database"`
	ConnString string `json:"conn_string"`
}

// NewPostgresConnector 从 PSQL_* 环境变量读取连接参数
func NewPostgresConnector() *PostgresConnector {
	port := os.Getenv("PSQL_PORT")
	if port == "" {
		port = "5432"
	}
	host := os.Getenv("PSQL_HOST")
	user := os.Getenv("PSQL_USER")
	password := os.Getenv("PSQL_PASS")
	database := os.Getenv("PSQL_DB")

	return &PostgresConnector{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		Database: database,
		ConnString: connString(map[string]string{
			"user":     user,
			"password": password,
			"host":     host,
			"port":     port,
			"dbname":   database,
		}),
	}
}

var connKeys = []string{"user", "password", "host", "port", "dbname"}

// connString 拼出 keyword/value 连接串，空值的键不写，值按 libpq 规则加引号转义
func connString(values map[string]string) string {
	parts := make([]string, 0, len(connKeys))
	for _, key := range connKeys {
		value := values[key]
		if value == "" {
			continue
		}
		if strings.ContainsAny(value, ` '\`) {
			value = "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value) + "'"
		}
		parts = append(parts, key+"="+value)
	}
	return strings.Join(parts, " ")
}

// Enabled 未设置 PSQL_HOST 时不使用数据库
func (pC *PostgresConnector) Enabled() bool {
	return pC.Host != ""
}

func (pC *PostgresConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(pC.ConnString)
	if err != nil {
		return nil, fmt.Errorf("解析数据库配置失败: %w", err)
	}
	config.MinConns = 1
	config.MaxConns = 5

	pool, err := pgxpool.ConnectConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	return pool, nil
}
