// sessions.go — 会话中心: 生命周期管理 + 单会话摄入串行化。
package apiserver

import (
	"sync"

	"github.com/agent-hub/go-chatview-v2/internal/reconstruct"
	"github.com/agent-hub/go-chatview-v2/internal/sdkmsg"
)

// sessionEntry 一个活跃会话 + 其摄入锁。
//
// 重建核心不加锁 (单 mutator 约定); 宿主是多连接服务, 由这里的
// per-session mutex 保证同一会话的 Ingest/查询串行。
type sessionEntry struct {
	mu   sync.Mutex
	sess *reconstruct.Session
}

// SessionHub 管理全部活跃会话。
type SessionHub struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

// NewSessionHub 创建空会话中心。
func NewSessionHub() *SessionHub {
	return &SessionHub{sessions: make(map[string]*sessionEntry)}
}

// GetOrCreate 获取或创建会话。返回是否新建。
func (h *SessionHub) GetOrCreate(id string) (created bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[id]; ok {
		return false
	}
	h.sessions[id] = &sessionEntry{sess: reconstruct.NewSession(id)}
	return true
}

// Drop 销毁会话 (切换对话时整个重建状态丢弃)。返回会话是否存在。
func (h *SessionHub) Drop(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[id]; !ok {
		return false
	}
	delete(h.sessions, id)
	return true
}

// List 返回活跃会话 id 列表。
func (h *SessionHub) List() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		out = append(out, id)
	}
	return out
}

// Len 返回活跃会话数。
func (h *SessionHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *SessionHub) entry(id string) (*sessionEntry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.sessions[id]
	return e, ok
}

// Ingest 向会话摄入一条消息 (串行化)。返回分类结果与会话是否存在。
func (h *SessionHub) Ingest(id string, m sdkmsg.Message) (reconstruct.Classification, bool) {
	e, ok := h.entry(id)
	if !ok {
		return reconstruct.Classification{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess.Ingest(m), true
}

// IngestEntry 摄入并返回该消息的组合渲染视图 (推流 ack 用)。
// 不可见消息 (路由到子代理或侧通道) 返回的 entry 仅含分类。
func (h *SessionHub) IngestEntry(id string, m sdkmsg.Message) (reconstruct.TimelineEntry, bool) {
	e, ok := h.entry(id)
	if !ok {
		return reconstruct.TimelineEntry{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	cls := e.sess.Ingest(m)
	m.Kind = cls.Kind
	entry := e.sess.EntryFor(m)
	entry.Classification = cls
	return entry, true
}

// WithSession 对会话执行只读/变更操作 (持锁)。返回会话是否存在。
func (h *SessionHub) WithSession(id string, fn func(s *reconstruct.Session)) bool {
	e, ok := h.entry(id)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.sess)
	return true
}
