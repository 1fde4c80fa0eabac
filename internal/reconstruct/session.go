// session.go — 单会话重建聚合: 摄入路由 + 顶层时间线 + 组合渲染视图。
package reconstruct

import (
	"encoding/json"
	"time"

	"github.com/agent-hub/go-chatview-v2/internal/sdkmsg"
)

// Session 一个会话的重建状态, 独占持有四类索引。
//
// 单线程同步摄入: 消息按流到达顺序逐条进入, 所有操作都是内存索引
// 变更或纯查询, 不阻塞不做 I/O。切换会话时整个 Session 丢弃重建,
// 无跨会话共享, 因此核心不加锁; 宿主多线程时由上层保证同一会话
// 最多一个 mutator (并发只读是安全的)。
type Session struct {
	id       string
	timeline []sdkmsg.Message // 顶层可见流 (到达顺序)

	tools     *ToolCorrelationIndex
	subagents *SubagentTreeBuilder
	questions *QuestionResolutionTracker

	info json.RawMessage // 最近一条 system_init 的负载 (会话信息侧通道)
}

// NewSession 创建空会话。
func NewSession(id string) *Session {
	return &Session{
		id:        id,
		tools:     NewToolCorrelationIndex(),
		subagents: NewSubagentTreeBuilder(),
		questions: NewQuestionResolutionTracker(),
	}
}

// ID 返回会话标识。
func (s *Session) ID() string { return s.id }

// Ingest 摄入一条消息: 分类、抽取索引、路由到顶层流或子代理分组。
// 返回分类结果。任何单条坏消息都只影响自身展示, 不中断重建。
func (s *Session) Ingest(m sdkmsg.Message) Classification {
	cls := Classify(&m)
	m.Kind = cls.Kind // 归一化后的 kind 贯穿全部索引

	if cls.Kind == sdkmsg.KindSystemInit {
		s.info = m.Data
	}

	// 调用块: 工具配对 + 问答登记 (子代理消息的调用块同样索引)
	for _, b := range m.Invocations() {
		s.tools.RecordInvocation(b.InvocationID, b.ToolName, b.Input)
		if b.ToolName == QuestionToolName {
			s.questions.MarkPending(b.InvocationID, ParseQuestionSet(b.Input), parseTs(m.Ts))
		}
	}

	// 结果记录路径: result 消息 + 任意消息内嵌的 tool_result 块。
	// 被 RenderedChildren 剔除的纯结果子消息也从这里汇入配对索引。
	if cls.Kind == sdkmsg.KindResult && m.InvocationID != "" {
		s.tools.RecordResult(m.InvocationID, m.Output, m.IsError, m.OutputRemoved)
	}
	for _, b := range m.ToolResults() {
		s.tools.RecordResultBlock(b)
	}

	if m.ParentInvocationID != "" {
		s.subagents.Ingest(m)
	} else if cls.UserVisible {
		s.timeline = append(s.timeline, m)
	}

	return cls
}

// Timeline 返回顶层可见流 (到达顺序)。
func (s *Session) Timeline() []sdkmsg.Message { return s.timeline }

// Info 返回会话信息侧通道负载 (最近一条 system_init, 可能为 nil)。
func (s *Session) Info() json.RawMessage { return s.info }

// Tools 返回工具配对索引。
func (s *Session) Tools() *ToolCorrelationIndex { return s.tools }

// Subagents 返回子代理分组器。
func (s *Session) Subagents() *SubagentTreeBuilder { return s.subagents }

// Questions 返回问答追踪器。
func (s *Session) Questions() *QuestionResolutionTracker { return s.questions }

// ResolveQuestion 解决一次问答 (submitted/cancelled)。幂等, 首次生效。
func (s *Session) ResolveQuestion(invocationID string, state QuestionState, responses []QuestionResponse) *QuestionRecord {
	return s.questions.Resolve(invocationID, state, responses)
}

// QuestionView 返回问答调用的展示记录, 规则:
//
//  1. 有追踪记录 → 原样返回。
//  2. 无记录但调用 input 在流中出现过 → 从 input 派生 skipped 合成视图。
//  3. 调用完全未见 → nil (真正的 absent)。
func (s *Session) QuestionView(invocationID string) *QuestionRecord {
	if rec, ok := s.questions.StatusOf(invocationID); ok {
		return rec
	}
	if inv, ok := s.tools.Lookup(invocationID); ok {
		return s.questions.SkippedView(invocationID, inv.Input)
	}
	return nil
}

// ========================================
// 组合渲染视图
// ========================================

// InvocationView 单个调用块的组合视图: 配对记录 + 子消息数 + 问答状态。
type InvocationView struct {
	Record     *InvocationRecord `json:"record"`
	ChildCount int               `json:"childCount"`
	Question   *QuestionRecord   `json:"question,omitempty"`
}

// TimelineEntry 顶层消息的完整渲染视图。
type TimelineEntry struct {
	Message        sdkmsg.Message   `json:"message"`
	Classification Classification   `json:"classification"`
	Invocations    []InvocationView `json:"invocations,omitempty"`
	RewindEligible bool             `json:"rewindEligible"` // 单击回退 (非批量)
	BatchEligible  bool             `json:"batchEligible"`  // 批量选择模式
}

// Entries 构建全部顶层消息的渲染视图。
func (s *Session) Entries() []TimelineEntry {
	out := make([]TimelineEntry, 0, len(s.timeline))
	for _, m := range s.timeline {
		out = append(out, s.EntryFor(m))
	}
	return out
}

// EntryFor 构建单条消息的渲染视图。调用记录可能残缺 (结果未到) —
// 这是合法中间态, 渲染为 pending。
func (s *Session) EntryFor(m sdkmsg.Message) TimelineEntry {
	entry := TimelineEntry{
		Message:        m,
		Classification: Classification{Kind: m.Kind, UserVisible: m.ParentInvocationID == ""},
		RewindEligible: IsRewindEligible(&m, false),
		BatchEligible:  IsRewindEligible(&m, true),
	}
	for _, b := range m.Invocations() {
		view := InvocationView{
			ChildCount: len(s.subagents.RenderedChildren(b.InvocationID)),
		}
		if rec, ok := s.tools.Lookup(b.InvocationID); ok {
			view.Record = rec
		} else {
			view.Record = &InvocationRecord{InvocationID: b.InvocationID, ToolName: b.ToolName, Input: b.Input}
		}
		if b.ToolName == QuestionToolName {
			view.Question = s.QuestionView(b.InvocationID)
		}
		entry.Invocations = append(entry.Invocations, view)
	}
	return entry
}

// parseTs 宽容解析时间戳, 失败返回零值。
func parseTs(ts string) time.Time {
	if ts == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return time.Time{}
	}
	return t
}
