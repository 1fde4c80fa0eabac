// stream.go — WebSocket 摄入通道: 每帧一条 JSON 消息, 逐帧 ack 分类结果。
package apiserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/agent-hub/go-chatview-v2/internal/sdkmsg"
	"github.com/agent-hub/go-chatview-v2/pkg/logger"
	"github.com/agent-hub/go-chatview-v2/pkg/util"
)

const (
	streamMaxMessageSize = 4 * 1024 * 1024 // 单帧上限 4MB
	streamWriteTimeout   = 10 * time.Second
)

// connEntry WebSocket 连接 + 写锁 (gorilla/websocket 不安全并发写)。
type connEntry struct {
	ws        *websocket.Conn
	wrMu      sync.Mutex // 序列化所有写操作
	outbox    chan []byte
	closeCh   chan struct{}
	closeOnce sync.Once
}

func newConnEntry(ws *websocket.Conn, outboxSize int) *connEntry {
	if outboxSize <= 0 {
		outboxSize = 256
	}
	return &connEntry{
		ws:      ws,
		outbox:  make(chan []byte, outboxSize),
		closeCh: make(chan struct{}),
	}
}

func (c *connEntry) writeMsg(data []byte) error {
	c.wrMu.Lock()
	defer c.wrMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *connEntry) enqueue(data []byte) bool {
	select {
	case <-c.closeCh:
		return false
	default:
	}
	select {
	case c.outbox <- data:
		return true
	default:
		return false
	}
}

func (c *connEntry) closeNow() {
	c.closeOnce.Do(func() {
		close(c.closeCh)
		if c.ws != nil {
			_ = c.ws.Close()
		}
	})
}

func (c *connEntry) writeLoop() error {
	for {
		select {
		case <-c.closeCh:
			return nil
		case data := <-c.outbox:
			if err := c.writeMsg(data); err != nil {
				return err
			}
		}
	}
}

// checkLocalOrigin 仅允许 localhost 来源的 WebSocket 连接。
//
// 接受: 无 Origin header (本地工具), localhost, 127.0.0.1, [::1]。
func checkLocalOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // 无 Origin = 非浏览器客户端 (CLI/SDK)
	}
	origin = strings.ToLower(origin)
	for _, allowed := range []string{
		"http://localhost", "https://localhost",
		"http://127.0.0.1", "https://127.0.0.1",
		"http://[::1]", "https://[::1]",
	} {
		if strings.HasPrefix(origin, allowed) {
			return true
		}
	}
	logger.Warn("stream: rejected non-local origin", logger.FieldOrigin, origin)
	return false
}

// streamAck 每帧摄入的确认负载。
type streamAck struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Entry any    `json:"entry,omitempty"`
}

// streamHandler WebSocket 摄入端点。
//
// 客户端每个文本帧发送一条线上消息; 服务端摄入后回 ack, 携带分类结果
// 与组合渲染视图, 渲染方可据此增量更新。
func (s *Server) streamHandler(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.hub.entry(id); !ok {
		notFound(c, "session not found: "+id)
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: checkLocalOrigin}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("stream: upgrade failed", logger.FieldSessionID, id, logger.FieldError, err)
		return
	}
	ws.SetReadLimit(streamMaxMessageSize)

	entry := newConnEntry(ws, s.cfg.StreamOutboxSize)
	defer entry.closeNow()

	util.SafeGo(func() {
		if err := entry.writeLoop(); err != nil {
			logger.Warn("stream: write loop failed", logger.FieldSessionID, id, logger.FieldError, err)
			entry.closeNow()
		}
	})

	logger.Info("stream: client connected",
		logger.FieldSessionID, id, logger.FieldRemote, c.Request.RemoteAddr)
	defer logger.Info("stream: client disconnected", logger.FieldSessionID, id)

	s.streamReadLoop(c, id, entry)
}

func (s *Server) streamReadLoop(c *gin.Context, id string, entry *connEntry) {
	for {
		_, frame, err := entry.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("stream: read error", logger.FieldSessionID, id, logger.FieldError, err)
			}
			return
		}

		m, err := sdkmsg.Decode(frame)
		if err != nil {
			// 单帧坏 JSON 只拒绝该帧, 连接继续
			s.sendAck(id, entry, streamAck{OK: false, Error: "invalid message: " + err.Error()})
			continue
		}

		view, ok := s.hub.IngestEntry(id, m)
		if !ok {
			// 会话在连接存续期间被销毁
			s.sendAck(id, entry, streamAck{OK: false, Error: "session closed"})
			return
		}

		if s.stores.SessionMessage != nil {
			m.Kind = view.Classification.Kind
			if err := s.stores.SessionMessage.InsertRaw(c.Request.Context(), id, &m, frame); err != nil {
				logger.Error("stream: persist message failed",
					logger.FieldSessionID, id, logger.FieldMessageUUID, m.UUID, logger.FieldError, err)
			}
		}

		if !s.sendAck(id, entry, streamAck{OK: true, Entry: view}) {
			return
		}
	}
}

// sendAck 经 outbox 发送 ack。队列打满说明客户端跟不上, 断开连接。
func (s *Server) sendAck(id string, entry *connEntry, ack streamAck) bool {
	data, err := json.Marshal(ack)
	if err != nil {
		logger.Error("stream: marshal ack failed", logger.FieldSessionID, id, logger.FieldError, err)
		return false
	}
	if !entry.enqueue(data) {
		logger.Warn("stream: client send queue overloaded, disconnecting", logger.FieldSessionID, id)
		entry.closeNow()
		return false
	}
	return true
}
