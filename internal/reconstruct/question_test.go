package reconstruct

import (
	"encoding/json"
	"testing"
	"time"
)

var sampleInput = json.RawMessage(`{"questions":[
	{"header":"Deploy","question":"Ship to prod?","options":["yes","no"]},
	{"question":"Release notes?","multiSelect":false}
]}`)

// ─── state machine: absent → pending → terminal ───

func TestMarkPendingAndStatusOf(t *testing.T) {
	tr := NewQuestionResolutionTracker()

	if _, ok := tr.StatusOf("q1"); ok {
		t.Fatal("StatusOf before MarkPending should be absent")
	}

	asked := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tr.MarkPending("q1", ParseQuestionSet(sampleInput), asked)

	rec, ok := tr.StatusOf("q1")
	if !ok {
		t.Fatal("StatusOf after MarkPending should exist")
	}
	if rec.State != QuestionPending {
		t.Errorf("State = %q, want pending", rec.State)
	}
	if len(rec.Questions) != 2 {
		t.Errorf("len(Questions) = %d, want 2", len(rec.Questions))
	}
	if !rec.AskedAt.Equal(asked) {
		t.Errorf("AskedAt = %v, want %v", rec.AskedAt, asked)
	}
}

func TestMarkPending_DoesNotResetExisting(t *testing.T) {
	tr := NewQuestionResolutionTracker()
	tr.MarkPending("q1", []Question{{Question: "first"}}, time.Time{})
	tr.Resolve("q1", QuestionSubmitted, []QuestionResponse{{FreeText: "ok"}})

	// 重放流再次出现同一调用块 — 不得回退到 pending
	tr.MarkPending("q1", []Question{{Question: "replayed"}}, time.Time{})

	rec, _ := tr.StatusOf("q1")
	if rec.State != QuestionSubmitted {
		t.Errorf("State = %q, want submitted preserved across replayed MarkPending", rec.State)
	}
	if rec.Questions[0].Question != "first" {
		t.Errorf("Questions overwritten by replay: %q", rec.Questions[0].Question)
	}
}

func TestResolve_Submitted(t *testing.T) {
	tr := NewQuestionResolutionTracker()
	tr.MarkPending("q1", ParseQuestionSet(sampleInput), time.Time{})

	resp := []QuestionResponse{{Selected: []string{"yes"}}, {FreeText: "v2.0 fixes"}}
	rec := tr.Resolve("q1", QuestionSubmitted, resp)

	if rec.State != QuestionSubmitted {
		t.Errorf("State = %q, want submitted", rec.State)
	}
	if len(rec.Responses) != 2 || rec.Responses[0].Selected[0] != "yes" {
		t.Errorf("Responses = %+v, want submitted payload", rec.Responses)
	}
	if rec.ResolvedAt.IsZero() {
		t.Error("ResolvedAt should be set on resolution")
	}
}

func TestResolve_Cancelled(t *testing.T) {
	tr := NewQuestionResolutionTracker()
	tr.MarkPending("q1", nil, time.Time{})
	rec := tr.Resolve("q1", QuestionCancelled, nil)
	if rec.State != QuestionCancelled {
		t.Errorf("State = %q, want cancelled", rec.State)
	}
}

// ─── idempotence: first resolution wins ───

func TestResolve_FirstResolutionWins(t *testing.T) {
	tr := NewQuestionResolutionTracker()
	tr.MarkPending("q1", nil, time.Time{})

	first := tr.Resolve("q1", QuestionSubmitted, []QuestionResponse{{FreeText: "keep me"}})
	second := tr.Resolve("q1", QuestionSubmitted, []QuestionResponse{{FreeText: "discard me"}})

	if second != first {
		t.Error("second Resolve should return the existing terminal record")
	}
	if second.Responses[0].FreeText != "keep me" {
		t.Errorf("Responses = %q, second call's payload must be discarded", second.Responses[0].FreeText)
	}

	// cancelled 也不能覆盖 submitted
	third := tr.Resolve("q1", QuestionCancelled, nil)
	if third.State != QuestionSubmitted {
		t.Errorf("State = %q, terminal state must not change", third.State)
	}
}

func TestResolve_WithoutPriorPending(t *testing.T) {
	// 解决动作先于追踪登记到达 — 隐式登记后直接终态
	tr := NewQuestionResolutionTracker()
	rec := tr.Resolve("q9", QuestionCancelled, nil)
	if rec == nil || rec.State != QuestionCancelled {
		t.Fatalf("Resolve without pending = %+v, want cancelled record", rec)
	}
}

func TestResolve_InvalidStateIgnored(t *testing.T) {
	tr := NewQuestionResolutionTracker()
	tr.MarkPending("q1", nil, time.Time{})
	tr.Resolve("q1", QuestionPending, nil)
	tr.Resolve("q1", QuestionSkipped, nil)

	rec, _ := tr.StatusOf("q1")
	if rec.State != QuestionPending {
		t.Errorf("State = %q, non-terminal targets must be ignored", rec.State)
	}
}

// ─── fallback-from-input "skipped" view (required path) ───

func TestSkippedView_DerivesFromInput(t *testing.T) {
	tr := NewQuestionResolutionTracker()
	view := tr.SkippedView("q-old", sampleInput)

	if view == nil {
		t.Fatal("SkippedView must never return nil")
	}
	if view.State != QuestionSkipped {
		t.Errorf("State = %q, want skipped", view.State)
	}
	if len(view.Questions) != 2 || view.Questions[0].Question != "Ship to prod?" {
		t.Errorf("Questions = %+v, want derived from input", view.Questions)
	}

	// 派生视图不得进入追踪状态
	if _, ok := tr.StatusOf("q-old"); ok {
		t.Error("SkippedView must not create a tracked record")
	}
}

func TestSkippedView_MalformedInput(t *testing.T) {
	tr := NewQuestionResolutionTracker()
	view := tr.SkippedView("q-bad", json.RawMessage(`not json`))
	if view == nil || view.State != QuestionSkipped {
		t.Fatal("SkippedView must degrade gracefully on malformed input")
	}
	if view.Questions != nil {
		t.Errorf("Questions = %+v, want nil for unparseable input", view.Questions)
	}
}

// ─── ParseQuestionSet ───

func TestParseQuestionSet(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"two questions", string(sampleInput), 2},
		{"empty object", `{}`, 0},
		{"empty input", ``, 0},
		{"malformed", `{"questions":`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseQuestionSet(json.RawMessage(tt.input))
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}
