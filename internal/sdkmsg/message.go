// Package sdkmsg 定义 SDK 消息流的线上数据模型。
//
// 消息流是扁平、弱类型的: 每条消息带 kind 判别标签, 可选 uuid (旧回放消息
// 可能缺失), 可选 parentInvocationId (仅子代理输出携带)。语义结构 (工具调用
// 配对、子代理分组、问答状态) 由 internal/reconstruct 重建, 本包只负责形状。
//
// 解码必须宽容: 未知 kind、缺失字段一律保留原样, 不报错。
package sdkmsg

import "encoding/json"

// Kind 消息判别标签。
type Kind string

const (
	KindUser           Kind = "user"
	KindAssistant      Kind = "assistant"
	KindToolProgress   Kind = "tool_progress"
	KindResult         Kind = "result"
	KindSystemInit     Kind = "system_init"
	KindSystemOther    Kind = "system_other"
	KindAuthStatus     Kind = "auth_status"
	KindStreamInternal Kind = "stream_internal"
)

// BlockType 内容块判别标签。
type BlockType string

const (
	BlockText           BlockType = "text"
	BlockToolInvocation BlockType = "tool_invocation"
	BlockThinking       BlockType = "thinking"
	BlockToolResult     BlockType = "tool_result"
)

// Message 流中的一条消息。
//
// kind 专属字段平铺在同一结构体上 (线上格式即如此), 消费方按 Kind 取用:
//   - assistant/user: Content 内容块列表 (顺序必须保留)
//   - result: InvocationID + Output + IsError + OutputRemoved
//   - system_init/system_other/auth_status: Data 原始负载
type Message struct {
	Kind               Kind   `json:"kind"`
	UUID               string `json:"uuid,omitempty"`
	SessionID          string `json:"sessionId,omitempty"`
	ParentInvocationID string `json:"parentInvocationId,omitempty"`
	Synthetic          bool   `json:"synthetic,omitempty"`
	Ts                 string `json:"ts,omitempty"`

	// assistant / user
	Content []ContentBlock `json:"content,omitempty"`

	// result
	InvocationID  string          `json:"invocationId,omitempty"`
	Output        json.RawMessage `json:"output,omitempty"`
	IsError       bool            `json:"isError,omitempty"`
	OutputRemoved bool            `json:"outputRemoved,omitempty"`

	// system_init / system_other / auth_status / tool_progress
	Data json.RawMessage `json:"data,omitempty"`
}

// ContentBlock 内容块 (text | tool_invocation | thinking | tool_result)。
//
// 与 Message 同理, type 专属字段平铺; 缺失字段 (如工具块缺 toolName)
// 原样传递为空值, 由渲染方降级展示。
type ContentBlock struct {
	Type BlockType `json:"type"`

	// text / thinking
	Text     string `json:"text,omitempty"`
	Thinking string `json:"thinking,omitempty"`

	// tool_invocation
	InvocationID string          `json:"invocationId,omitempty"`
	ToolName     string          `json:"toolName,omitempty"`
	Input        json.RawMessage `json:"input,omitempty"`

	// tool_result
	Output        json.RawMessage `json:"output,omitempty"`
	IsError       bool            `json:"isError,omitempty"`
	OutputRemoved bool            `json:"outputRemoved,omitempty"`
}

// Invocations 返回消息内全部 tool_invocation 块 (保持顺序)。
func (m *Message) Invocations() []ContentBlock {
	return m.blocksOf(BlockToolInvocation)
}

// ToolResults 返回消息内全部 tool_result 块 (保持顺序)。
func (m *Message) ToolResults() []ContentBlock {
	return m.blocksOf(BlockToolResult)
}

func (m *Message) blocksOf(bt BlockType) []ContentBlock {
	var out []ContentBlock
	for _, b := range m.Content {
		if b.Type == bt {
			out = append(out, b)
		}
	}
	return out
}

// IsToolResultOnly 判断消息内容是否 *仅* 由 tool_result 块构成。
//
// 子代理的此类 user 消息不进入渲染子列表 — 其内容已通过配对的
// tool_invocation 记录呈现。空内容返回 false。
func (m *Message) IsToolResultOnly() bool {
	if len(m.Content) == 0 {
		return false
	}
	for _, b := range m.Content {
		if b.Type != BlockToolResult {
			return false
		}
	}
	return true
}

// Decode 解码一条线上消息。未知 kind / 缺失字段不报错, 只有 JSON 本身
// 非法才返回 error。
func Decode(raw []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}
