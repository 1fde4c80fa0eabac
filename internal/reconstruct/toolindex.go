// toolindex.go — 工具调用配对索引 (invocation id → input + result)。
package reconstruct

import (
	"encoding/json"

	"github.com/agent-hub/go-chatview-v2/internal/sdkmsg"
)

// InvocationRecord 一次工具调用的累积记录。
//
// 只有 Input 而无 Result 是合法的中间态 (调用在途), 不是错误。
type InvocationRecord struct {
	InvocationID  string          `json:"invocationId"`
	ToolName      string          `json:"toolName,omitempty"`
	Input         json.RawMessage `json:"input,omitempty"`
	Result        json.RawMessage `json:"result,omitempty"`
	HasResult     bool            `json:"hasResult"`
	IsError       bool            `json:"isError"`
	OutputRemoved bool            `json:"outputRemoved"`

	inputSet bool // Input 只允许首写 (即使首写为 nil)
}

// ToolCorrelationIndex 按 invocation id 建键的配对索引。
//
// 不关心到达顺序: 结果可以先于、晚于或穿插于无关调用到达。
// 覆写策略 (两字段刻意不同, 勿统一):
//   - Input: 首写生效 — 重放流重发同一调用块时保留第一份。
//   - Result: 末写生效 — 幂等重试传输会重复投递结果, 以最后一份为准。
type ToolCorrelationIndex struct {
	records map[string]*InvocationRecord
}

// NewToolCorrelationIndex 创建空索引。
func NewToolCorrelationIndex() *ToolCorrelationIndex {
	return &ToolCorrelationIndex{records: make(map[string]*InvocationRecord)}
}

// RecordInvocation 记录调用块的 input。同 id 重复调用时首写生效。
func (x *ToolCorrelationIndex) RecordInvocation(invocationID, toolName string, input json.RawMessage) {
	if invocationID == "" {
		return
	}
	rec := x.ensure(invocationID)
	if rec.inputSet {
		return
	}
	rec.inputSet = true
	rec.ToolName = toolName
	rec.Input = input
}

// RecordResult 记录调用的结果。同 id 重复投递时末写生效。
func (x *ToolCorrelationIndex) RecordResult(invocationID string, result json.RawMessage, isError, outputRemoved bool) {
	if invocationID == "" {
		return
	}
	rec := x.ensure(invocationID)
	rec.Result = result
	rec.HasResult = true
	rec.IsError = isError
	rec.OutputRemoved = outputRemoved
}

// RecordResultBlock 从 tool_result 内容块记录结果 (result-recording path)。
func (x *ToolCorrelationIndex) RecordResultBlock(b sdkmsg.ContentBlock) {
	x.RecordResult(b.InvocationID, b.Output, b.IsError, b.OutputRemoved)
}

// Lookup 查询调用记录。不存在返回 (nil, false) — 缺席不是错误。
func (x *ToolCorrelationIndex) Lookup(invocationID string) (*InvocationRecord, bool) {
	rec, ok := x.records[invocationID]
	return rec, ok
}

// Len 返回已索引的调用数。
func (x *ToolCorrelationIndex) Len() int { return len(x.records) }

func (x *ToolCorrelationIndex) ensure(invocationID string) *InvocationRecord {
	rec, ok := x.records[invocationID]
	if !ok {
		rec = &InvocationRecord{InvocationID: invocationID}
		x.records[invocationID] = rec
	}
	return rec
}
