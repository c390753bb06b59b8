package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// fakeModel scripts one candidate's behavior.
type fakeModel struct {
	reply string
	err   error
	calls *[]string
	name  string
}

func (f *fakeModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if f.calls != nil {
		*f.calls = append(*f.calls, f.name)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &schema.Message{Role: schema.Assistant, Content: f.reply}, nil
}

func (f *fakeModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not scripted")
}

// scriptedFactory maps candidate names to fakes and fails on unknown names.
func scriptedFactory(t *testing.T, fakes map[string]*fakeModel) ModelFactory {
	t.Helper()
	return func(ctx context.Context, name string) (model.BaseChatModel, error) {
		f, ok := fakes[name]
		if !ok {
			t.Fatalf("unexpected candidate %q", name)
		}
		return f, nil
	}
}

func TestProcessEmptyInputMakesNoCall(t *testing.T) {
	factory := func(ctx context.Context, name string) (model.BaseChatModel, error) {
		t.Fatal("factory must not be called for empty input")
		return nil, nil
	}
	c := NewClient(factory, []string{"gemini-1.5-flash"}, "")

	result, err := c.Process(context.Background(), Input{Text: "   "})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !result.Empty() {
		t.Errorf("result = %+v, want empty", result)
	}
}

func TestProcessFallbackSecondCandidateWins(t *testing.T) {
	var calls []string
	fakes := map[string]*fakeModel{
		"gemini-3-flash-preview": {err: errors.New("503 service unavailable"), calls: &calls, name: "gemini-3-flash-preview"},
		"gemini-1.5-flash":       {reply: `{"tasks":[{"category":"Work","action":"우유 사기","priority":"High","deadline":null}],"memos":[]}`, calls: &calls, name: "gemini-1.5-flash"},
		"gemini-2.0-flash":       {reply: `{}`, calls: &calls, name: "gemini-2.0-flash"},
	}
	c := NewClient(scriptedFactory(t, fakes),
		[]string{"gemini-3-flash-preview", "gemini-1.5-flash", "gemini-2.0-flash"}, "")

	result, err := c.Process(context.Background(), Input{Text: "우유 사는 것 잊지 말기"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if len(result.Tasks) != 1 || result.Tasks[0].Action != "우유 사기" {
		t.Errorf("unexpected result: %+v", result)
	}
	// First success wins; the third candidate is never attempted.
	want := []string{"gemini-3-flash-preview", "gemini-1.5-flash"}
	if len(calls) != len(want) || calls[0] != want[0] || calls[1] != want[1] {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestProcessAuthErrorAborts(t *testing.T) {
	var calls []string
	fakes := map[string]*fakeModel{
		"gemini-3-flash-preview": {err: errors.New("401 unauthorized: invalid api key"), calls: &calls, name: "gemini-3-flash-preview"},
		"gemini-1.5-flash":       {reply: `{}`, calls: &calls, name: "gemini-1.5-flash"},
	}
	c := NewClient(scriptedFactory(t, fakes),
		[]string{"gemini-3-flash-preview", "gemini-1.5-flash"}, "")

	_, err := c.Process(context.Background(), Input{Text: "hello"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "aborted") {
		t.Errorf("error = %v, want abort", err)
	}
	if len(calls) != 1 {
		t.Errorf("calls = %v, want only the first candidate", calls)
	}
}

func TestProcessSkipsTextOnlyCandidatesForMedia(t *testing.T) {
	var calls []string
	fakes := map[string]*fakeModel{
		"gemini-pro":       {reply: `{}`, calls: &calls, name: "gemini-pro"},
		"gemini-1.5-flash": {reply: `{"tasks":[],"memos":[{"content":"메모"}]}`, calls: &calls, name: "gemini-1.5-flash"},
	}
	c := NewClient(scriptedFactory(t, fakes), []string{"gemini-pro", "gemini-1.5-flash"}, "")

	result, err := c.Process(context.Background(), Input{
		Image: &Media{MIME: "image/png", Data: []byte{0x89, 0x50}},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(result.Memos) != 1 {
		t.Errorf("memos = %+v", result.Memos)
	}
	if len(calls) != 1 || calls[0] != "gemini-1.5-flash" {
		t.Errorf("calls = %v, want only the multimodal candidate", calls)
	}
}

func TestProcessNoMultimodalCandidate(t *testing.T) {
	c := NewClient(scriptedFactory(t, nil), []string{"gemini-pro"}, "")

	_, err := c.Process(context.Background(), Input{
		Audio: &Media{MIME: "audio/wav", Data: []byte{1, 2}},
	})
	if err == nil || !strings.Contains(err.Error(), "no candidate model accepts") {
		t.Errorf("error = %v", err)
	}
}

func TestProcessParseFailureIsTerminal(t *testing.T) {
	var calls []string
	fakes := map[string]*fakeModel{
		"gemini-3-flash-preview": {reply: "definitely not json", calls: &calls, name: "gemini-3-flash-preview"},
		"gemini-1.5-flash":       {reply: `{}`, calls: &calls, name: "gemini-1.5-flash"},
	}
	c := NewClient(scriptedFactory(t, fakes),
		[]string{"gemini-3-flash-preview", "gemini-1.5-flash"}, "")

	_, err := c.Process(context.Background(), Input{Text: "hello"})
	if err == nil || !strings.Contains(err.Error(), "unparsable") {
		t.Fatalf("error = %v, want parse failure", err)
	}
	// A parse failure is not a fallback trigger.
	if len(calls) != 1 {
		t.Errorf("calls = %v, want one", calls)
	}
}

func TestProcessExhaustionAggregatesLastError(t *testing.T) {
	fakes := map[string]*fakeModel{
		"gemini-3-flash-preview": {err: errors.New("first boom")},
		"gemini-1.5-flash":       {err: errors.New("second boom")},
	}
	c := NewClient(scriptedFactory(t, fakes),
		[]string{"gemini-3-flash-preview", "gemini-1.5-flash"}, "")

	_, err := c.Process(context.Background(), Input{Text: "hello"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "all models failed") ||
		!strings.Contains(err.Error(), "second boom") {
		t.Errorf("error = %v, want aggregate with last failure", err)
	}
}

func TestProcessObserverSeesEveryCall(t *testing.T) {
	fakes := map[string]*fakeModel{
		"gemini-3-flash-preview": {err: errors.New("boom")},
		"gemini-1.5-flash":       {reply: `{}`},
	}
	c := NewClient(scriptedFactory(t, fakes),
		[]string{"gemini-3-flash-preview", "gemini-1.5-flash"}, "")

	var observed []string
	c.SetObserver(func(name string, _ *schema.TokenUsage, _ time.Duration, err error) {
		suffix := " ok"
		if err != nil {
			suffix = " err"
		}
		observed = append(observed, name+suffix)
	})

	if _, err := c.Process(context.Background(), Input{Text: "hi"}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(observed) != 2 || observed[0] != "gemini-3-flash-preview err" || observed[1] != "gemini-1.5-flash ok" {
		t.Errorf("observed = %v", observed)
	}
}

func TestParseResultToleratesFence(t *testing.T) {
	result, err := parseResult("```json\n{\"tasks\":[],\"memos\":[{\"content\":\"hi\"}]}\n```")
	if err != nil {
		t.Fatalf("parseResult: %v", err)
	}
	if len(result.Memos) != 1 || result.Memos[0].Content != "hi" {
		t.Errorf("result = %+v", result)
	}
}

func TestSummarize(t *testing.T) {
	cases := []struct {
		in   Input
		want string
	}{
		{Input{Text: "짧은 메모"}, "짧은 메모"},
		{Input{Text: "아주 길고 장황한 생각을 줄줄이 적어 내려가는 중"}, "아주 길고 장황한 생각을 줄..."},
		{Input{Image: &Media{MIME: "image/png"}}, "Image"},
		{Input{Audio: &Media{MIME: "audio/wav"}}, "Audio"},
		{Input{Image: &Media{}, Audio: &Media{}}, "Audio"},
		{Input{}, "Input"},
	}

	for _, tc := range cases {
		if got := Summarize(tc.in); got != tc.want {
			t.Errorf("Summarize(%+v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildSystemPromptDefaults(t *testing.T) {
	p := BuildSystemPrompt(PromptSpec{})

	for _, want := range []string{"Work", "Personal", "Health", "Shopping", "Other", "Korean", "JSON Only", "High", "Normal"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildSystemPromptOverrides(t *testing.T) {
	p := BuildSystemPrompt(PromptSpec{
		Categories:     []string{"Studio", "Errands"},
		Language:       "English",
		PriorityHigh:   "Urgent",
		PriorityNormal: "Later",
	})

	if !strings.Contains(p, "Studio, Errands") {
		t.Error("prompt missing comma-separated categories")
	}
	if !strings.Contains(p, "Studio/Errands") {
		t.Error("prompt missing slash-separated categories")
	}
	if !strings.Contains(p, "English") {
		t.Error("prompt missing language override")
	}
	if !strings.Contains(p, `"Urgent"/"Later"`) {
		t.Error("prompt missing priority label overrides")
	}
	if strings.Contains(p, "High") || strings.Contains(p, "Normal") {
		t.Error("overridden priority labels still present")
	}
}
