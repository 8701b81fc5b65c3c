package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"go.uber.org/goleak"

	"github.com/lawbot0/lawbot/internal/knowledge"
	"github.com/lawbot0/lawbot/internal/log"
	"github.com/lawbot0/lawbot/internal/normalize"
	"github.com/lawbot0/lawbot/internal/pipeline"
	"github.com/lawbot0/lawbot/internal/session"
	"github.com/lawbot0/lawbot/internal/template"
)

type passNormalizer struct{}

func (passNormalizer) Normalize(_ context.Context, raw string) normalize.Result {
	return normalize.Result{Text: raw, SourceLang: "en"}
}

type noMatcher struct{}

func (noMatcher) Match(string) (template.Document, bool) { return template.Document{}, false }

type echoCompleter struct{}

func (echoCompleter) Complete(_ context.Context, _ string, _ []session.Message, prompt string) (string, error) {
	return prompt, nil
}

type emptyRetriever struct{}

func (emptyRetriever) Search(context.Context, string, int) ([]knowledge.Passage, error) {
	return nil, nil
}

func newTestModel(t *testing.T) *Model {
	t.Helper()
	p, err := pipeline.New(pipeline.Config{
		Normalizer:  passNormalizer{},
		Matcher:     noMatcher{},
		Rewriter:    pipeline.NewRewriter(echoCompleter{}, log.NewNop()),
		Retriever:   emptyRetriever{},
		Synthesizer: pipeline.NewSynthesizer(echoCompleter{}, log.NewNop()),
		Logger:      log.NewNop(),
	})
	if err != nil {
		t.Fatal(err)
	}

	m, err := New(context.Background(), p, session.New())
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(context.Background(), nil, session.New()); err == nil {
		t.Error("New accepted nil pipeline")
	}

	m := newTestModel(t)
	if _, err := New(context.Background(), m.pipeline, nil); err == nil {
		t.Error("New accepted nil session")
	}
}

func TestHandleSubmitStartsTurn(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue("Is a verbal agreement binding?")

	_, cmd := m.handleSubmit()
	if cmd == nil {
		t.Fatal("submit returned no command")
	}
	if m.state != StateThinking {
		t.Errorf("state = %v, want StateThinking", m.state)
	}
	if len(m.messages) != 1 || m.messages[0].Role != roleUser {
		t.Errorf("messages = %+v, want one user message", m.messages)
	}
	if m.input.Value() != "" {
		t.Error("input not cleared after submit")
	}
	if len(m.history) != 1 {
		t.Errorf("history has %d entries, want 1", len(m.history))
	}
}

func TestHandleSubmitIgnoresBlankInput(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue("   ")

	_, cmd := m.handleSubmit()
	if cmd != nil {
		t.Error("blank input started a turn")
	}
	if m.state != StateInput {
		t.Error("blank input changed state")
	}
}

func TestResetClearsSessionAndTranscript(t *testing.T) {
	m := newTestModel(t)
	m.session.AppendTurn("q", "a")
	m.addMessage(Message{Role: roleUser, Text: "q"})
	m.addMessage(Message{Role: roleAssistant, Text: "a"})

	m.handleReset()

	if m.session.Len() != 0 {
		t.Error("session history not cleared")
	}
	// Transcript holds only the reset notice.
	if len(m.messages) != 1 || m.messages[0].Role != roleSystem {
		t.Errorf("messages = %+v, want single system notice", m.messages)
	}
}

func TestAskCommandCompletesWithoutLeakingGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := newTestModel(t)

	m.askSeq++
	started, ok := m.ask(m.askSeq, "What is a notice period?")().(askStartedMsg)
	if !ok {
		t.Fatal("ask did not return askStartedMsg")
	}
	defer started.cancel()

	done := make(chan tea.Msg, 1)
	go func() { done <- awaitAsk(started.seq, started.resultCh)() }()

	select {
	case msg := <-done:
		res, ok := msg.(askDoneMsg)
		if !ok {
			t.Fatalf("got %T, want askDoneMsg", msg)
		}
		if res.answer.Text == "" {
			t.Error("answer text is empty")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ask did not complete")
	}
}

func TestCanceledTurnResultIsDropped(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue("What is a security deposit?")
	m.handleSubmit()
	seq := m.askSeq

	// User hits Ctrl+C while the turn is thinking.
	m.handleCtrlC()
	if m.state != StateInput {
		t.Fatal("cancel did not return to input state")
	}
	before := len(m.messages)

	// The abandoned goroutine reports in afterwards; both outcomes
	// must be ignored.
	m.Update(askErrorMsg{seq: seq, err: context.Canceled})
	m.Update(askDoneMsg{seq: seq, answer: pipeline.Answer{Kind: pipeline.KindError, Text: "context canceled"}})

	if len(m.messages) != before {
		t.Errorf("transcript grew from %d to %d after canceled turn reported in", before, len(m.messages))
	}

	canceled := 0
	for _, msg := range m.messages {
		if msg.Text == "(Canceled)" {
			canceled++
		}
	}
	if canceled != 1 {
		t.Errorf("got %d cancellation notices, want 1", canceled)
	}
}

func TestStaleAskResultDoesNotFinishNewTurn(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue("first question")
	m.handleSubmit()
	staleSeq := m.askSeq

	m.handleCtrlC()

	m.input.SetValue("second question")
	m.handleSubmit()

	m.Update(askErrorMsg{seq: staleSeq, err: context.Canceled})
	if m.state != StateThinking {
		t.Error("stale result ended the new turn")
	}
}

func TestResetIgnoredWhileThinking(t *testing.T) {
	m := newTestModel(t)
	m.session.AppendTurn("q", "a")
	m.state = StateThinking

	m.handleReset()
	if m.session.Len() != 2 {
		t.Error("session reset mid-turn")
	}
}

func TestAnswerMessageRoles(t *testing.T) {
	tests := []struct {
		kind pipeline.Kind
		want string
	}{
		{pipeline.KindGenerated, roleAssistant},
		{pipeline.KindTemplate, roleTemplate},
		{pipeline.KindError, roleError},
	}
	for _, tt := range tests {
		got := answerMessage(pipeline.Answer{Kind: tt.kind, Text: "x"})
		if got.Role != tt.want {
			t.Errorf("kind %q rendered as %q, want %q", tt.kind, got.Role, tt.want)
		}
	}
}

func TestSlashCommandHelp(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue(cmdHelp)

	m.handleSubmit()
	if len(m.messages) != 1 || m.messages[0].Role != roleSystem {
		t.Fatalf("messages = %+v, want one system message", m.messages)
	}
	if !strings.Contains(m.messages[0].Text, cmdReset) {
		t.Error("help text does not mention /reset")
	}
}

func TestNavigateHistory(t *testing.T) {
	m := newTestModel(t)
	m.history = []string{"first", "second"}
	m.historyIdx = len(m.history)

	m.navigateHistory(-1)
	if m.input.Value() != "second" {
		t.Errorf("input = %q, want second", m.input.Value())
	}
	m.navigateHistory(-1)
	if m.input.Value() != "first" {
		t.Errorf("input = %q, want first", m.input.Value())
	}
	m.navigateHistory(-1)
	if m.input.Value() != "first" {
		t.Errorf("input = %q, want clamp at oldest", m.input.Value())
	}
	m.navigateHistory(1)
	m.navigateHistory(1)
	if m.input.Value() != "" {
		t.Errorf("input = %q, want empty past newest", m.input.Value())
	}
}

func TestMarkdownRendererNilDegradesToPlainText(t *testing.T) {
	var r *markdownRenderer
	if got := r.Render("# heading"); got != "# heading" {
		t.Errorf("got %q, want input unchanged", got)
	}
}
