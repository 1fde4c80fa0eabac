// Package config 全局配置加载与管理。
//
// 所有字段通过 struct tag 声明环境变量映射:
//
//	`env:"VAR_NAME" default:"value" min:"0"`
//
// Load() 使用反射自动填充，无需手动逐行赋值。
package config

import (
	"github.com/agent-hub/go-chatview-v2/pkg/util"
)

// Config 应用全局配置，字段名与 .env 变量一一对应。
type Config struct {
	// HTTP
	HTTPPort int `env:"HTTP_PORT" default:"8080" min:"1"`

	// PostgreSQL (可选: 未设置连接串时纯内存运行, 不做持久化)
	PostgresConnStr     string `env:"POSTGRES_CONNECTION_STRING"`
	PostgresSchema      string `env:"POSTGRES_SCHEMA" default:"public"`
	PostgresPoolMinSize int    `env:"POSTGRES_POOL_MIN_SIZE" default:"1" min:"1"`
	PostgresPoolMaxSize int    `env:"POSTGRES_POOL_MAX_SIZE" default:"10" min:"1"`

	// 会话重建
	SessionReplayLimit int `env:"SESSION_REPLAY_LIMIT" default:"2000" min:"1"`
	StreamOutboxSize   int `env:"STREAM_OUTBOX_SIZE" default:"256" min:"1"`

	// 日志
	LogLevel string `env:"LOG_LEVEL" default:"production"`
}

// Load 从环境变量加载配置 (通过反射读取 struct tag)。
func Load() *Config {
	var cfg Config
	util.LoadFromEnv(&cfg)
	return &cfg
}

// PersistenceEnabled 是否启用消息持久化 (由连接串是否配置决定)。
func (c *Config) PersistenceEnabled() bool {
	return c.PostgresConnStr != ""
}
