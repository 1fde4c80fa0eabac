// question.go — 交互式问答的解决状态追踪。
package reconstruct

import (
	"encoding/json"
	"time"
)

// QuestionToolName 交互式问答工具的名称 (按工具名识别问答调用)。
const QuestionToolName = "AskUserQuestion"

// QuestionState 问答生命周期状态。
type QuestionState string

const (
	QuestionPending   QuestionState = "pending"
	QuestionSubmitted QuestionState = "submitted"
	QuestionCancelled QuestionState = "cancelled"
	// QuestionSkipped 合成视图: 旧回放问答没有任何活动追踪记录时,
	// 直接从调用 input 派生出的 cancelled 等价态。
	QuestionSkipped QuestionState = "skipped"
)

// Question 单个问题 (一个问答调用可含多个)。
type Question struct {
	Header      string   `json:"header,omitempty"`
	Question    string   `json:"question"`
	Options     []string `json:"options,omitempty"`
	MultiSelect bool     `json:"multiSelect,omitempty"`
}

// QuestionResponse 单个问题的回答: 选中的选项标签 和/或 自由文本。
type QuestionResponse struct {
	Selected []string `json:"selected,omitempty"`
	FreeText string   `json:"freeText,omitempty"`
}

// QuestionRecord 一次问答调用的追踪记录。
type QuestionRecord struct {
	InvocationID string             `json:"invocationId"`
	State        QuestionState      `json:"state"`
	Questions    []Question         `json:"questions,omitempty"`
	Responses    []QuestionResponse `json:"responses,omitempty"`
	AskedAt      time.Time          `json:"askedAt,omitzero"`
	ResolvedAt   time.Time          `json:"resolvedAt,omitzero"`
}

// Terminal 是否处于终态 (submitted / cancelled / skipped)。
func (r *QuestionRecord) Terminal() bool {
	return r.State != QuestionPending
}

// questionInput 问答工具 input 负载的形状。
type questionInput struct {
	Questions []Question `json:"questions"`
}

// ParseQuestionSet 从调用 input 解析问题组。解析失败返回 nil — 渲染方
// 降级展示, 不报错。
func ParseQuestionSet(input json.RawMessage) []Question {
	if len(input) == 0 {
		return nil
	}
	var qi questionInput
	if err := json.Unmarshal(input, &qi); err != nil {
		return nil
	}
	return qi.Questions
}

// QuestionResolutionTracker 按调用 id 追踪问答状态。
//
// 状态机严格向前: absent → pending → submitted | cancelled, 终态不再离开。
// 重复 resolve 首次生效 (与工具结果的末写生效刻意相反: 问答解决来自单次
// 用户动作, 二次提交是竞态, 必须丢弃)。
type QuestionResolutionTracker struct {
	records map[string]*QuestionRecord
}

// NewQuestionResolutionTracker 创建空追踪器。
func NewQuestionResolutionTracker() *QuestionResolutionTracker {
	return &QuestionResolutionTracker{records: make(map[string]*QuestionRecord)}
}

// MarkPending 首见问答调用时登记 pending。已有记录 (任何状态) 时不动。
func (t *QuestionResolutionTracker) MarkPending(invocationID string, questions []Question, askedAt time.Time) {
	if invocationID == "" {
		return
	}
	if _, ok := t.records[invocationID]; ok {
		return
	}
	t.records[invocationID] = &QuestionRecord{
		InvocationID: invocationID,
		State:        QuestionPending,
		Questions:    questions,
		AskedAt:      askedAt,
	}
}

// Resolve 将 pending 问答置为终态 (submitted 或 cancelled)。
//
// 幂等: 已终态时 no-op, 返回既有记录, 第二次调用的 responses 被丢弃。
// 无记录时先隐式登记 pending 再解决 (容忍追踪状态晚于解决动作)。
func (t *QuestionResolutionTracker) Resolve(invocationID string, state QuestionState, responses []QuestionResponse) *QuestionRecord {
	if invocationID == "" {
		return nil
	}
	if state != QuestionSubmitted && state != QuestionCancelled {
		return t.records[invocationID]
	}

	rec, ok := t.records[invocationID]
	if !ok {
		rec = &QuestionRecord{InvocationID: invocationID, State: QuestionPending}
		t.records[invocationID] = rec
	}
	if rec.Terminal() {
		return rec // first resolution wins
	}

	rec.State = state
	rec.Responses = responses
	rec.ResolvedAt = time.Now()
	return rec
}

// StatusOf 查询追踪记录。无记录返回 (nil, false)。
func (t *QuestionResolutionTracker) StatusOf(invocationID string) (*QuestionRecord, bool) {
	rec, ok := t.records[invocationID]
	return rec, ok
}

// SkippedView 从调用的存量 input 派生 "skipped" 合成视图。
//
// 必须路径, 非可选: 旧回放问答没有任何 pending/已解决记录时, 消费方
// 仍要有东西可展示, 永不为 null。派生视图不落入 records — 它不是
// 追踪状态, 只是展示兜底。
func (t *QuestionResolutionTracker) SkippedView(invocationID string, input json.RawMessage) *QuestionRecord {
	return &QuestionRecord{
		InvocationID: invocationID,
		State:        QuestionSkipped,
		Questions:    ParseQuestionSet(input),
	}
}
