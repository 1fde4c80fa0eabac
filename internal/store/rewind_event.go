// rewind_event.go — rewind_events 表 CRUD (回退审计日志)。
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RewindEvent 一次批量回退记录。
type RewindEvent struct {
	ID           int64     `db:"id" json:"id"`
	SessionID    string    `db:"session_id" json:"sessionId"`
	MessageUUIDs []string  `db:"message_uuids" json:"messageUuids"` // 通过资格校验的选中集
	BatchMode    bool      `db:"batch_mode" json:"batchMode"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// RewindEventStore rewind_events 存储。
type RewindEventStore struct{ BaseStore }

// NewRewindEventStore 创建。
func NewRewindEventStore(pool *pgxpool.Pool) *RewindEventStore {
	return &RewindEventStore{NewBaseStore(pool)}
}

const reCols = "id, session_id, message_uuids, batch_mode, created_at"

// Insert 记录一次回退。
func (s *RewindEventStore) Insert(ctx context.Context, ev *RewindEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO rewind_events (session_id, message_uuids, batch_mode, created_at)
		 VALUES ($1, $2, $3, $4)`,
		ev.SessionID, ev.MessageUUIDs, ev.BatchMode, ev.CreatedAt)
	return err
}

// ListBySession 按会话查询回退历史 (最新在前)。
func (s *RewindEventStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]RewindEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		"SELECT "+reCols+" FROM rewind_events WHERE session_id=$1 ORDER BY id DESC LIMIT $2",
		sessionID, limit)
	if err != nil {
		return nil, err
	}
	return collectRows[RewindEvent](rows)
}
