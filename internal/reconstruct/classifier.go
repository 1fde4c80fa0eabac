// Package reconstruct 将扁平的 SDK 消息流重建为逻辑结构。
//
// 线上流是扁平弱类型的, 语义模型却是树: 工具调用要和异步到达的结果配对
// (可能晚很多条, 也可能永远不到), 子代理输出要归组到发起它的调用下,
// 问答要独立于消息顺序追踪解决状态, 回退功能要判定哪些历史消息是合法
// 检查点。四个索引 (工具配对 / 子代理树 / 问答 / 回退资格) 各管一面,
// 均按 id 而非位置建键; Session 聚合持有它们, 切换会话时整体重建。
//
// 重建必须优雅降级: 任何单条坏消息都不能中断其余流的重建。
package reconstruct

import "github.com/agent-hub/go-chatview-v2/internal/sdkmsg"

// Classification 单条消息的分类结果。
type Classification struct {
	Kind sdkmsg.Kind `json:"kind"`
	// UserVisible 是否进入顶层消息列表。false 的三种来源:
	// 流内部增量事件、system_init (走会话信息侧通道)、子代理输出。
	UserVisible bool `json:"userVisible"`
}

// NormalizeKind 归一化 kind 标签。未知值落入 system_other 兜底桶,
// 渲染方永远有东西可展示, 不报错。
func NormalizeKind(raw sdkmsg.Kind) sdkmsg.Kind {
	switch raw {
	case sdkmsg.KindUser,
		sdkmsg.KindAssistant,
		sdkmsg.KindToolProgress,
		sdkmsg.KindResult,
		sdkmsg.KindSystemInit,
		sdkmsg.KindSystemOther,
		sdkmsg.KindAuthStatus,
		sdkmsg.KindStreamInternal:
		return raw
	}

	// Fallback
	return sdkmsg.KindSystemOther
}

// Classify 分类一条消息并给出顶层可见性。规则按优先级:
//
//  1. stream_internal (纯流式增量) 永不可见。
//  2. system_init 不进顶层列表 — 其内容走会话信息侧通道。
//  3. 带 parentInvocationId 的消息正常分类, 但不可见于顶层流,
//     由 SubagentTreeBuilder 接管。
//  4. 其余已分类 kind 默认可见。
func Classify(m *sdkmsg.Message) Classification {
	kind := NormalizeKind(m.Kind)

	switch {
	case kind == sdkmsg.KindStreamInternal:
		return Classification{Kind: kind, UserVisible: false}
	case kind == sdkmsg.KindSystemInit:
		return Classification{Kind: kind, UserVisible: false}
	case m.ParentInvocationID != "":
		return Classification{Kind: kind, UserVisible: false}
	}

	return Classification{Kind: kind, UserVisible: true}
}
