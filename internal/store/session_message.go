// session_message.go — session_messages 表 CRUD (原始消息日志)。
//
// 每个会话的线上消息按到达顺序追加写入, 重放时按 id 升序读出
// 再逐条 Ingest — 持久化的是原始帧, 重建状态永远重新推导。
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agent-hub/go-chatview-v2/internal/sdkmsg"
)

// SessionMessage 一条持久化的线上消息。
type SessionMessage struct {
	ID          int64           `db:"id" json:"id"`
	SessionID   string          `db:"session_id" json:"sessionId"`
	MessageUUID string          `db:"message_uuid" json:"messageUuid"` // 可为空 (旧回放消息无 uuid)
	Kind        string          `db:"kind" json:"kind"`                // 归一化后的 kind
	Payload     json.RawMessage `db:"payload" json:"payload"`          // 原始帧
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
}

// SessionMessageStore session_messages 存储。
type SessionMessageStore struct{ BaseStore }

// NewSessionMessageStore 创建。
func NewSessionMessageStore(pool *pgxpool.Pool) *SessionMessageStore {
	return &SessionMessageStore{NewBaseStore(pool)}
}

const smCols = "id, session_id, message_uuid, kind, payload, created_at"

// Insert 追加写入一条消息。
func (s *SessionMessageStore) Insert(ctx context.Context, msg *SessionMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO session_messages (session_id, message_uuid, kind, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		msg.SessionID, msg.MessageUUID, msg.Kind, msg.Payload, msg.CreatedAt)
	return err
}

// InsertRaw 以原始帧 + 已解码消息追加写入 (摄入路径的便捷入口)。
func (s *SessionMessageStore) InsertRaw(ctx context.Context, sessionID string, m *sdkmsg.Message, raw []byte) error {
	return s.Insert(ctx, &SessionMessage{
		SessionID:   sessionID,
		MessageUUID: m.UUID,
		Kind:        string(m.Kind),
		Payload:     raw,
	})
}

// ListBySession 按会话读取消息, id 升序 — 重放顺序即到达顺序。
func (s *SessionMessageStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]SessionMessage, error) {
	if limit <= 0 || limit > 5000 {
		limit = 2000
	}
	rows, err := s.pool.Query(ctx,
		"SELECT "+smCols+" FROM session_messages WHERE session_id=$1 ORDER BY id ASC LIMIT $2",
		sessionID, limit)
	if err != nil {
		return nil, err
	}
	return collectRows[SessionMessage](rows)
}

// List 按条件查询 (kind 筛选 + payload 关键词搜索, 最新在前)。
func (s *SessionMessageStore) List(ctx context.Context, sessionID, kind, keyword string, limit int) ([]SessionMessage, error) {
	qb := NewQueryBuilder()
	qb.Eq("session_id", sessionID).Eq("kind", kind)
	qb.KeywordLike(keyword, "payload::text")

	sql, params := qb.Build("SELECT "+smCols+" FROM session_messages", "id DESC", limit)
	rows, err := s.pool.Query(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	return collectRows[SessionMessage](rows)
}

// CountBySession 统计某会话的消息总数。
func (s *SessionMessageStore) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM session_messages WHERE session_id=$1", sessionID).Scan(&count)
	return count, err
}

// DeleteBySession 删除某会话的所有消息 (会话销毁时调用)。
func (s *SessionMessageStore) DeleteBySession(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM session_messages WHERE session_id=$1", sessionID)
	return err
}
