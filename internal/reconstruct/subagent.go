// subagent.go — 子代理子流分组 (parent invocation id → 有序子消息列表)。
package reconstruct

import "github.com/agent-hub/go-chatview-v2/internal/sdkmsg"

// SubagentTreeBuilder 把带 parentInvocationId 的消息按到达顺序归组到
// 发起调用之下。只分组一层: 子消息自身的调用 id 由消费方递归查询,
// 数据结构本身不嵌套, 避免对抗性输入造成无界结构递归。
//
// 分组与 ToolCorrelationIndex 相互独立: 子消息引用的调用尚未被索引时
// 照样追加, 渲染方须容忍空/残缺的调用记录。
type SubagentTreeBuilder struct {
	children map[string][]sdkmsg.Message
}

// NewSubagentTreeBuilder 创建空分组器。
func NewSubagentTreeBuilder() *SubagentTreeBuilder {
	return &SubagentTreeBuilder{children: make(map[string][]sdkmsg.Message)}
}

// Ingest 接收一条消息。无 parentInvocationId 的消息被忽略。
func (b *SubagentTreeBuilder) Ingest(m sdkmsg.Message) {
	parent := m.ParentInvocationID
	if parent == "" {
		return
	}
	b.children[parent] = append(b.children[parent], m)
}

// ChildrenOf 返回某调用的全部子消息 (到达顺序)。每条被接收的子消息
// 恰好出现一次; 无子消息返回空。
func (b *SubagentTreeBuilder) ChildrenOf(invocationID string) []sdkmsg.Message {
	return b.children[invocationID]
}

// RenderedChildren 返回渲染用子列表: 剔除内容仅为 tool_result 块的
// user 子消息 — 其内容已经由配对调用记录呈现, 重复展示只会加噪。
// 被剔除的消息仍算被接收 (结果内容经 Session 的结果记录路径进入
// ToolCorrelationIndex, 不经本分组器)。
func (b *SubagentTreeBuilder) RenderedChildren(invocationID string) []sdkmsg.Message {
	all := b.children[invocationID]
	if len(all) == 0 {
		return nil
	}
	out := make([]sdkmsg.Message, 0, len(all))
	for _, m := range all {
		if m.Kind == sdkmsg.KindUser && m.IsToolResultOnly() {
			continue
		}
		out = append(out, m)
	}
	return out
}

// ParentsWithChildren 返回当前有子消息的调用 id 数。
func (b *SubagentTreeBuilder) ParentsWithChildren() int { return len(b.children) }
