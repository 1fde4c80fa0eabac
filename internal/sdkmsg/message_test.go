package sdkmsg

import (
	"encoding/json"
	"testing"
)

// ─── Decode tolerance ───

func TestDecode_UnknownKindPreserved(t *testing.T) {
	m, err := Decode([]byte(`{"kind":"totally_new_kind","uuid":"u1"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m.Kind != "totally_new_kind" {
		t.Errorf("Kind = %q, want raw value preserved", m.Kind)
	}
	if m.UUID != "u1" {
		t.Errorf("UUID = %q, want u1", m.UUID)
	}
}

func TestDecode_AbsentOptionalFields(t *testing.T) {
	m, err := Decode([]byte(`{"kind":"user"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m.UUID != "" || m.ParentInvocationID != "" {
		t.Errorf("optional fields should stay empty: uuid=%q parent=%q", m.UUID, m.ParentInvocationID)
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	if _, err := Decode([]byte(`{"kind":`)); err == nil {
		t.Error("Decode of truncated JSON should fail")
	}
}

func TestDecode_AssistantContentOrder(t *testing.T) {
	raw := `{"kind":"assistant","uuid":"a1","content":[
		{"type":"thinking","thinking":"hmm"},
		{"type":"text","text":"hello"},
		{"type":"tool_invocation","invocationId":"t1","toolName":"Bash","input":{"command":"ls"}}
	]}`
	m, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	wantTypes := []BlockType{BlockThinking, BlockText, BlockToolInvocation}
	if len(m.Content) != len(wantTypes) {
		t.Fatalf("len(Content) = %d, want %d", len(m.Content), len(wantTypes))
	}
	for i, bt := range wantTypes {
		if m.Content[i].Type != bt {
			t.Errorf("Content[%d].Type = %q, want %q", i, m.Content[i].Type, bt)
		}
	}
}

// ─── block accessors ───

func TestInvocationsAndToolResults(t *testing.T) {
	m := Message{
		Kind: KindAssistant,
		Content: []ContentBlock{
			{Type: BlockText, Text: "a"},
			{Type: BlockToolInvocation, InvocationID: "t1"},
			{Type: BlockToolInvocation, InvocationID: "t2"},
			{Type: BlockToolResult, InvocationID: "t1"},
		},
	}
	invs := m.Invocations()
	if len(invs) != 2 || invs[0].InvocationID != "t1" || invs[1].InvocationID != "t2" {
		t.Errorf("Invocations() = %+v, want t1,t2 in order", invs)
	}
	results := m.ToolResults()
	if len(results) != 1 || results[0].InvocationID != "t1" {
		t.Errorf("ToolResults() = %+v, want single t1", results)
	}
}

func TestIsToolResultOnly(t *testing.T) {
	tests := []struct {
		name   string
		blocks []ContentBlock
		want   bool
	}{
		{"single result", []ContentBlock{{Type: BlockToolResult}}, true},
		{"two results", []ContentBlock{{Type: BlockToolResult}, {Type: BlockToolResult}}, true},
		{"result plus text", []ContentBlock{{Type: BlockToolResult}, {Type: BlockText, Text: "x"}}, false},
		{"text only", []ContentBlock{{Type: BlockText, Text: "x"}}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Message{Kind: KindUser, Content: tt.blocks}
			if got := m.IsToolResultOnly(); got != tt.want {
				t.Errorf("IsToolResultOnly() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestMalformedInvocationBlock 工具块缺 toolName 时字段保持空值, 不报错。
func TestMalformedInvocationBlock(t *testing.T) {
	m, err := Decode([]byte(`{"kind":"assistant","content":[{"type":"tool_invocation","invocationId":"t9"}]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	invs := m.Invocations()
	if len(invs) != 1 {
		t.Fatalf("len(Invocations) = %d, want 1", len(invs))
	}
	if invs[0].ToolName != "" {
		t.Errorf("ToolName = %q, want empty", invs[0].ToolName)
	}
	if invs[0].Input != nil {
		t.Errorf("Input = %s, want nil", string(invs[0].Input))
	}
}

// TestResultPayload result 消息的平铺字段解码。
func TestResultPayload(t *testing.T) {
	m, err := Decode([]byte(`{"kind":"result","invocationId":"t1","output":"done","isError":false,"outputRemoved":true}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m.InvocationID != "t1" {
		t.Errorf("InvocationID = %q, want t1", m.InvocationID)
	}
	var out string
	if err := json.Unmarshal(m.Output, &out); err != nil || out != "done" {
		t.Errorf("Output = %s, want \"done\"", string(m.Output))
	}
	if !m.OutputRemoved {
		t.Error("OutputRemoved = false, want true")
	}
}
