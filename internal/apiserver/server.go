// Package apiserver 提供会话重建服务的 HTTP/WebSocket 外层。
//
// 核心重建逻辑 (internal/reconstruct) 保持纯内存、无 I/O; 本包负责
// 会话生命周期、消息摄入入口、持久化与推流。
package apiserver

import (
	"github.com/gin-gonic/gin"

	"github.com/agent-hub/go-chatview-v2/internal/config"
	"github.com/agent-hub/go-chatview-v2/internal/store"
)

// Server 会话重建 HTTP 服务。
type Server struct {
	router *gin.Engine
	hub    *SessionHub
	stores *Stores
	cfg    *config.Config
}

// Stores 聚合 store 依赖 (无数据库时字段为 nil, 纯内存运行)。
type Stores struct {
	SessionMessage *store.SessionMessageStore
	RewindEvent    *store.RewindEventStore
}

// NewServer 创建服务。stores 可为 nil (无持久化)。
func NewServer(cfg *config.Config, stores *Stores) *Server {
	if stores == nil {
		stores = &Stores{}
	}
	r := gin.Default()
	s := &Server{
		router: r,
		hub:    NewSessionHub(),
		stores: stores,
		cfg:    cfg,
	}
	s.registerRoutes()
	return s
}

// Engine 返回 Gin 引擎 (httptest 与 cmd/server 共用)。
func (s *Server) Engine() *gin.Engine { return s.router }

// Hub 返回会话中心。
func (s *Server) Hub() *SessionHub { return s.hub }
