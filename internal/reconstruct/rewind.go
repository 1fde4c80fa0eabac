// rewind.go — 回退检查点资格判定与批量选择集操作。
package reconstruct

import "github.com/agent-hub/go-chatview-v2/internal/sdkmsg"

// Selection 批量回退的消息 id 选择集。由调用方持有, 核心不持久化。
type Selection map[string]struct{}

// Has 判断 id 是否已选中。
func (s Selection) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// IDs 返回选中 id 列表 (无序)。
func (s Selection) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}

// IsRewindEligible 判定消息能否作为回退检查点。全部条件必须成立:
//
//   - 有稳定标识 (uuid 非空; 旧回放消息可能缺失)
//   - 非系统注入的合成消息
//   - kind 不是 tool_progress — 进度 tick 是在途工具调用的瞬时状态,
//     不是独立检查点
//   - 批量选择模式之外, kind 限定 user — 只有用户轮次划定安全的重放
//     边界, assistant/工具/系统消息不可单独作为回退入口
func IsRewindEligible(m *sdkmsg.Message, batchMode bool) bool {
	if m.UUID == "" || m.Synthetic {
		return false
	}
	kind := NormalizeKind(m.Kind)
	if kind == sdkmsg.KindToolProgress {
		return false
	}
	if !batchMode && kind != sdkmsg.KindUser {
		return false
	}
	return true
}

// Toggle 纯函数式增删选择集: checked 为 true 插入 id, 为 false 删除。
//
// 从不原地修改 — 有变化时返回新集合, 调用方可对比前后做 undo。
// no-op (重复插入/删除不存在的 id) 返回原集合。
func Toggle(sel Selection, id string, checked bool) Selection {
	if id == "" {
		return sel
	}
	if checked == sel.Has(id) {
		return sel // idempotent no-op
	}

	next := make(Selection, len(sel)+1)
	for k := range sel {
		next[k] = struct{}{}
	}
	if checked {
		next[id] = struct{}{}
	} else {
		delete(next, id)
	}
	return next
}
