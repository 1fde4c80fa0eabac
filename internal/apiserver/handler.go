// handler.go — 会话重建 REST API handlers。
package apiserver

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agent-hub/go-chatview-v2/internal/reconstruct"
	"github.com/agent-hub/go-chatview-v2/internal/sdkmsg"
	"github.com/agent-hub/go-chatview-v2/internal/store"
	"github.com/agent-hub/go-chatview-v2/pkg/logger"
)

// registerRoutes 注册 API 路由。
func (s *Server) registerRoutes() {
	api := s.router.Group("/api")

	api.POST("/sessions", s.createSession)
	api.GET("/sessions", s.listSessions)
	api.DELETE("/sessions/:id", s.deleteSession)

	api.POST("/sessions/:id/messages", s.ingestMessage)
	api.GET("/sessions/:id/timeline", s.getTimeline)
	api.GET("/sessions/:id/info", s.getSessionInfo)
	api.GET("/sessions/:id/invocations/:invocationId", s.getInvocation)

	api.POST("/sessions/:id/questions/:invocationId/answer", s.answerQuestion)
	api.POST("/sessions/:id/questions/:invocationId/cancel", s.cancelQuestion)

	api.POST("/sessions/:id/rewind", s.rewind)
	api.GET("/sessions/:id/rewinds", s.listRewinds)

	api.GET("/sessions/:id/history", s.listHistory)

	api.GET("/stream/:id", s.streamHandler)
}

// queryLimit 从 query 读分页参数 (DRY)。
func queryLimit(c *gin.Context, def int) int {
	v, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if v < 1 {
		return def
	}
	if v > 2000 {
		return 2000
	}
	return v
}

// ========================================
// 会话生命周期
// ========================================

func (s *Server) createSession(c *gin.Context) {
	var req struct {
		SessionID string `json:"sessionId"`
		Replay    bool   `json:"replay"`
	}
	// body 可为空 (全部默认)
	_ = c.ShouldBindJSON(&req)

	id := req.SessionID
	if id == "" {
		id = uuid.NewString()
	}

	isNew := s.hub.GetOrCreate(id)

	replayed := 0
	if isNew && req.Replay && s.stores.SessionMessage != nil {
		n, err := s.hydrate(c, id)
		if err != nil {
			serverError(c, err)
			return
		}
		replayed = n
	}

	logger.Info("session created", logger.FieldSessionID, id, logger.FieldCount, replayed)
	created(c, gin.H{"sessionId": id, "created": isNew, "replayed": replayed})
}

// hydrate 从持久化日志重放历史消息 (id 升序 = 到达顺序)。
func (s *Server) hydrate(c *gin.Context, id string) (int, error) {
	history, err := s.stores.SessionMessage.ListBySession(c.Request.Context(), id, s.cfg.SessionReplayLimit)
	if err != nil {
		return 0, err
	}
	n := 0
	s.hub.WithSession(id, func(sess *reconstruct.Session) {
		for _, rec := range history {
			m, err := sdkmsg.Decode(rec.Payload)
			if err != nil {
				// 单条坏帧跳过, 不中断重放
				logger.Warn("replay: bad frame skipped",
					logger.FieldSessionID, id, logger.FieldMessageUUID, rec.MessageUUID, logger.FieldError, err)
				continue
			}
			sess.Ingest(m)
			n++
		}
	})
	return n, nil
}

func (s *Server) listSessions(c *gin.Context) {
	success(c, gin.H{"sessions": s.hub.List()})
}

func (s *Server) deleteSession(c *gin.Context) {
	id := c.Param("id")
	if !s.hub.Drop(id) {
		notFound(c, "session not found: "+id)
		return
	}
	// purge=true 时连同持久化日志一起删除
	if c.Query("purge") == "true" && s.stores.SessionMessage != nil {
		if err := s.stores.SessionMessage.DeleteBySession(c.Request.Context(), id); err != nil {
			serverError(c, err)
			return
		}
	}
	logger.Info("session dropped", logger.FieldSessionID, id)
	success(c, gin.H{"sessionId": id})
}

// ========================================
// 摄入 + 查询
// ========================================

func (s *Server) ingestMessage(c *gin.Context) {
	id := c.Param("id")

	raw, err := c.GetRawData()
	if err != nil {
		badRequest(c, "invalid_request", err.Error())
		return
	}
	m, err := sdkmsg.Decode(raw)
	if err != nil {
		badRequest(c, "invalid_message", err.Error())
		return
	}

	entry, ok := s.hub.IngestEntry(id, m)
	if !ok {
		notFound(c, "session not found: "+id)
		return
	}

	if s.stores.SessionMessage != nil {
		m.Kind = entry.Classification.Kind
		if err := s.stores.SessionMessage.InsertRaw(c.Request.Context(), id, &m, raw); err != nil {
			// 持久化失败不影响已完成的内存摄入, 记日志继续
			logger.Error("persist message failed",
				logger.FieldSessionID, id, logger.FieldMessageUUID, m.UUID, logger.FieldError, err)
		}
	}

	success(c, entry)
}

func (s *Server) getTimeline(c *gin.Context) {
	id := c.Param("id")
	var entries []reconstruct.TimelineEntry
	ok := s.hub.WithSession(id, func(sess *reconstruct.Session) {
		entries = sess.Entries()
	})
	if !ok {
		notFound(c, "session not found: "+id)
		return
	}
	success(c, gin.H{"entries": entries})
}

func (s *Server) getSessionInfo(c *gin.Context) {
	id := c.Param("id")
	var resp gin.H
	ok := s.hub.WithSession(id, func(sess *reconstruct.Session) {
		resp = gin.H{"sessionId": sess.ID(), "info": sess.Info(), "messages": len(sess.Timeline())}
	})
	if !ok {
		notFound(c, "session not found: "+id)
		return
	}
	success(c, resp)
}

func (s *Server) getInvocation(c *gin.Context) {
	id := c.Param("id")
	invID := c.Param("invocationId")

	var (
		record   *reconstruct.InvocationRecord
		children []sdkmsg.Message
		question *reconstruct.QuestionRecord
		found    bool
	)
	ok := s.hub.WithSession(id, func(sess *reconstruct.Session) {
		record, found = sess.Tools().Lookup(invID)
		children = sess.Subagents().RenderedChildren(invID)
		question = sess.QuestionView(invID)
	})
	if !ok {
		notFound(c, "session not found: "+id)
		return
	}
	if !found {
		notFound(c, "invocation not found: "+invID)
		return
	}
	success(c, gin.H{"record": record, "children": children, "question": question})
}

// ========================================
// 问答
// ========================================

func (s *Server) answerQuestion(c *gin.Context) {
	var req struct {
		Responses []reconstruct.QuestionResponse `json:"responses"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", err.Error())
		return
	}
	s.resolveQuestion(c, reconstruct.QuestionSubmitted, req.Responses)
}

func (s *Server) cancelQuestion(c *gin.Context) {
	s.resolveQuestion(c, reconstruct.QuestionCancelled, nil)
}

// resolveQuestion 统一解决路径。幂等: 已终态时返回 409 与既有状态。
func (s *Server) resolveQuestion(c *gin.Context, state reconstruct.QuestionState, responses []reconstruct.QuestionResponse) {
	id := c.Param("id")
	invID := c.Param("invocationId")

	var rec *reconstruct.QuestionRecord
	ok := s.hub.WithSession(id, func(sess *reconstruct.Session) {
		rec = sess.ResolveQuestion(invID, state, responses)
	})
	if !ok {
		notFound(c, "session not found: "+id)
		return
	}
	if rec.State != state {
		// 首次解决生效, 后到的冲突解决被忽略
		conflict(c, "already_resolved", "question already "+string(rec.State))
		return
	}
	logger.Info("question resolved",
		logger.FieldSessionID, id, logger.FieldInvocationID, invID, logger.FieldState, string(state))
	success(c, rec)
}

// ========================================
// 回退
// ========================================

func (s *Server) rewind(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		MessageUUIDs []string `json:"messageUuids"`
		BatchMode    bool     `json:"batchMode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", err.Error())
		return
	}
	if len(req.MessageUUIDs) == 0 {
		badRequest(c, "invalid_request", "messageUuids is required")
		return
	}

	sel := reconstruct.Selection{}
	var rejected []string
	ok := s.hub.WithSession(id, func(sess *reconstruct.Session) {
		byUUID := make(map[string]sdkmsg.Message)
		for _, m := range sess.Timeline() {
			if m.UUID != "" {
				byUUID[m.UUID] = m
			}
		}
		for _, u := range req.MessageUUIDs {
			m, found := byUUID[u]
			if !found || !reconstruct.IsRewindEligible(&m, req.BatchMode) {
				rejected = append(rejected, u)
				continue
			}
			sel = reconstruct.Toggle(sel, u, true)
		}
	})
	if !ok {
		notFound(c, "session not found: "+id)
		return
	}
	if len(sel) == 0 {
		badRequest(c, "not_eligible", "no selected message is rewind eligible")
		return
	}

	if s.stores.RewindEvent != nil {
		ev := &store.RewindEvent{SessionID: id, MessageUUIDs: sel.IDs(), BatchMode: req.BatchMode}
		if err := s.stores.RewindEvent.Insert(c.Request.Context(), ev); err != nil {
			serverError(c, err)
			return
		}
	}

	logger.Info("rewind recorded", logger.FieldSessionID, id, logger.FieldCount, len(sel))
	success(c, gin.H{"selected": sel.IDs(), "rejected": rejected, "batchMode": req.BatchMode})
}

func (s *Server) listRewinds(c *gin.Context) {
	if s.stores.RewindEvent == nil {
		success(c, gin.H{"events": []store.RewindEvent{}})
		return
	}
	items, err := s.stores.RewindEvent.ListBySession(c.Request.Context(), c.Param("id"), queryLimit(c, 100))
	if err != nil {
		serverError(c, err)
		return
	}
	success(c, gin.H{"events": items})
}

// ========================================
// 持久化历史查询
// ========================================

func (s *Server) listHistory(c *gin.Context) {
	if s.stores.SessionMessage == nil {
		success(c, gin.H{"messages": []store.SessionMessage{}})
		return
	}
	items, err := s.stores.SessionMessage.List(c.Request.Context(),
		c.Param("id"), c.Query("kind"), c.Query("keyword"), queryLimit(c, 100))
	if err != nil {
		serverError(c, err)
		return
	}
	success(c, gin.H{"messages": items})
}
