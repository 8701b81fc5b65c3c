package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lawbot0/lawbot/internal/knowledge"
	"github.com/lawbot0/lawbot/internal/log"
	"github.com/lawbot0/lawbot/internal/normalize"
	"github.com/lawbot0/lawbot/internal/session"
	"github.com/lawbot0/lawbot/internal/template"
)

// stubCompleter scripts completions by inspecting the prompt.
type stubCompleter struct {
	fn    func(system string, history []session.Message, prompt string) (string, error)
	calls int
}

func (s *stubCompleter) Complete(_ context.Context, system string, history []session.Message, prompt string) (string, error) {
	s.calls++
	if s.fn != nil {
		return s.fn(system, history, prompt)
	}
	return prompt, nil
}

// echoCompleter returns the prompt unchanged, a deterministic stand-in
// for a rewriter model facing already-standalone input.
func echoCompleter() *stubCompleter {
	return &stubCompleter{}
}

type stubRetriever struct {
	passages []knowledge.Passage
	err      error
	gotQuery string
	gotK     int
}

func (s *stubRetriever) Search(_ context.Context, query string, k int) ([]knowledge.Passage, error) {
	s.gotQuery = query
	s.gotK = k
	if s.err != nil {
		return nil, s.err
	}
	if len(s.passages) > k {
		return s.passages[:k], nil
	}
	return s.passages, nil
}

type stubNormalizer struct {
	fn func(raw string) normalize.Result
}

func (s *stubNormalizer) Normalize(_ context.Context, raw string) normalize.Result {
	if s.fn != nil {
		return s.fn(raw)
	}
	return normalize.Result{Text: raw, SourceLang: "en"}
}

// writeTemplates populates a temp dir with the default template set and
// returns a Library over it.
func writeTemplates(t *testing.T) *template.Library {
	t.Helper()
	dir := t.TempDir()
	for _, b := range template.DefaultBindings() {
		content := "TEMPLATE: " + b.Keyword
		if err := os.WriteFile(filepath.Join(dir, b.Filename), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return template.New(dir, template.DefaultBindings(), log.NewNop())
}

func newTestPipeline(t *testing.T, rewrite, answer Completer, retriever Retriever, norm Normalizer) *Pipeline {
	t.Helper()
	if norm == nil {
		norm = &stubNormalizer{}
	}
	p, err := New(Config{
		Normalizer:  norm,
		Matcher:     writeTemplates(t),
		Rewriter:    NewRewriter(rewrite, log.NewNop()),
		Retriever:   retriever,
		Synthesizer: NewSynthesizer(answer, log.NewNop()),
		Logger:      log.NewNop(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestAskTemplateShortCircuit(t *testing.T) {
	rewrite := echoCompleter()
	answer := echoCompleter()
	retriever := &stubRetriever{}
	p := newTestPipeline(t, rewrite, answer, retriever, nil)
	sess := session.New()

	got, err := p.Ask(context.Background(), sess, "I need a rental agreement template")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if got.Kind != KindTemplate {
		t.Fatalf("kind = %q, want %q", got.Kind, KindTemplate)
	}
	if got.Text != "TEMPLATE: rental" {
		t.Errorf("text = %q, want literal template body", got.Text)
	}
	if sess.Len() != 0 {
		t.Errorf("history has %d messages after template turn, want 0", sess.Len())
	}
	if rewrite.calls != 0 || answer.calls != 0 {
		t.Error("models called on a template turn")
	}
	if retriever.gotQuery != "" {
		t.Error("retriever called on a template turn")
	}
}

func TestAskTranslatedQueryFullRun(t *testing.T) {
	norm := &stubNormalizer{fn: func(raw string) normalize.Result {
		return normalize.Result{Text: "What is a notice period?", SourceLang: "es", Translated: true}
	}}
	rewrite := echoCompleter()
	answer := &stubCompleter{fn: func(system string, _ []session.Message, _ string) (string, error) {
		if !strings.Contains(system, "string_severance") {
			t.Errorf("context block missing from system prompt:\n%s", system)
		}
		return "A notice period is the time between giving notice and the tenancy ending.", nil
	}}
	retriever := &stubRetriever{passages: []knowledge.Passage{
		{Text: "Notice periods are defined in section 21.", Source: "string_severance", Rank: 1},
	}}
	p := newTestPipeline(t, rewrite, answer, retriever, norm)
	sess := session.New()

	got, err := p.Ask(context.Background(), sess, "¿Qué es un plazo de preaviso?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if got.Kind != KindGenerated {
		t.Fatalf("kind = %q, want %q", got.Kind, KindGenerated)
	}
	if got.Language != "es" {
		t.Errorf("language = %q, want es", got.Language)
	}
	if retriever.gotQuery != "What is a notice period?" {
		t.Errorf("retriever query = %q, want translated query", retriever.gotQuery)
	}
	if retriever.gotK != DefaultTopK {
		t.Errorf("retriever k = %d, want %d", retriever.gotK, DefaultTopK)
	}
	if !strings.HasSuffix(got.Text, Disclaimer) {
		t.Errorf("answer does not end with disclaimer: %q", got.Text)
	}
	if sess.Len() != 2 {
		t.Errorf("history has %d messages, want 2", sess.Len())
	}
	// History keeps the raw query, not the translation.
	if msgs := sess.Messages(); msgs[0].Content != "¿Qué es un plazo de preaviso?" {
		t.Errorf("history user message = %q, want raw input", msgs[0].Content)
	}
}

func TestAskFollowUpIsRewrittenBeforeRetrieval(t *testing.T) {
	rewrite := &stubCompleter{fn: func(_ string, history []session.Message, prompt string) (string, error) {
		if len(history) == 0 {
			t.Error("rewrite called without history")
		}
		if prompt == "What about clause 5?" {
			return "What does clause 5 of an employment agreement cover?", nil
		}
		return prompt, nil
	}}
	answer := &stubCompleter{fn: func(_ string, _ []session.Message, _ string) (string, error) {
		return "Clause 5 covers probation.", nil
	}}
	retriever := &stubRetriever{}
	p := newTestPipeline(t, rewrite, answer, retriever, nil)
	sess := session.New()
	sess.AppendTurn(
		"Explain an employment agreement.",
		"An employment agreement sets out duties, pay, and termination terms.")

	if _, err := p.Ask(context.Background(), sess, "What about clause 5?"); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if !strings.Contains(retriever.gotQuery, "employment") {
		t.Errorf("retriever query = %q, want resolved topic keyword", retriever.gotQuery)
	}
	if sess.Len() != 4 {
		t.Errorf("history has %d messages, want 4", sess.Len())
	}
}

func TestAskEmptyRetrievalStillAnswers(t *testing.T) {
	answer := &stubCompleter{fn: func(system string, _ []session.Message, _ string) (string, error) {
		if !strings.Contains(system, "no relevant passages") {
			t.Errorf("empty-context marker missing from system prompt:\n%s", system)
		}
		return "", nil
	}}
	p := newTestPipeline(t, echoCompleter(), answer, &stubRetriever{}, nil)
	sess := session.New()

	got, err := p.Ask(context.Background(), sess, "What is the statute of limitations on Mars?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if got.Kind != KindGenerated {
		t.Fatalf("kind = %q, want %q", got.Kind, KindGenerated)
	}
	if strings.TrimSpace(got.Text) == "" {
		t.Fatal("answer is empty")
	}
	if !strings.HasSuffix(got.Text, Disclaimer) {
		t.Errorf("answer does not end with disclaimer: %q", got.Text)
	}
	if sess.Len() != 2 {
		t.Errorf("history has %d messages, want 2", sess.Len())
	}
}

func TestAskSynthesisFailureBecomesVisibleError(t *testing.T) {
	answer := &stubCompleter{fn: func(string, []session.Message, string) (string, error) {
		return "", errors.New("model unavailable")
	}}
	p := newTestPipeline(t, echoCompleter(), answer, &stubRetriever{}, nil)
	sess := session.New()

	got, err := p.Ask(context.Background(), sess, "Is a verbal contract binding?")
	if err != nil {
		t.Fatalf("Ask returned error, want visible-error answer: %v", err)
	}

	if got.Kind != KindError {
		t.Fatalf("kind = %q, want %q", got.Kind, KindError)
	}
	if !strings.Contains(got.Text, "model unavailable") {
		t.Errorf("error answer does not carry failure detail: %q", got.Text)
	}
	// The session still advances so the conversation can continue.
	if sess.Len() != 2 {
		t.Errorf("history has %d messages, want 2", sess.Len())
	}
}

func TestAskRewriteFailureCaughtAtSameBoundary(t *testing.T) {
	rewrite := &stubCompleter{fn: func(string, []session.Message, string) (string, error) {
		return "", errors.New("rewrite model down")
	}}
	p := newTestPipeline(t, rewrite, echoCompleter(), &stubRetriever{}, nil)
	sess := session.New()
	sess.AppendTurn("Explain leases.", "A lease grants exclusive possession for a term.")

	got, err := p.Ask(context.Background(), sess, "What about subletting it?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got.Kind != KindError {
		t.Fatalf("kind = %q, want %q", got.Kind, KindError)
	}
	if sess.Len() != 4 {
		t.Errorf("history has %d messages, want 4", sess.Len())
	}
}

func TestAskCanceledContextLeavesSessionUntouched(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	answer := &stubCompleter{fn: func(_ string, _ []session.Message, _ string) (string, error) {
		cancel()
		return "", context.Canceled
	}}
	p := newTestPipeline(t, echoCompleter(), answer, &stubRetriever{}, nil)
	sess := session.New()

	_, err := p.Ask(ctx, sess, "What is a notice period?")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if sess.Len() != 0 {
		t.Errorf("abandoned turn appended %d messages to session history", sess.Len())
	}
}

func TestAskEmptyQuery(t *testing.T) {
	p := newTestPipeline(t, echoCompleter(), echoCompleter(), &stubRetriever{}, nil)
	sess := session.New()

	if _, err := p.Ask(context.Background(), sess, "   "); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("err = %v, want ErrEmptyQuery", err)
	}
	if sess.Len() != 0 {
		t.Error("history advanced for an empty query")
	}
}

func TestAskResetClearsRewriterContext(t *testing.T) {
	rewrite := echoCompleter()
	p := newTestPipeline(t, rewrite, echoCompleter(), &stubRetriever{}, nil)
	sess := session.New()

	if _, err := p.Ask(context.Background(), sess, "Explain deposits."); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Ask(context.Background(), sess, "What about interest?"); err != nil {
		t.Fatal(err)
	}
	if rewrite.calls != 1 {
		t.Fatalf("rewrite model called %d times before reset, want 1", rewrite.calls)
	}

	sess.Reset()
	if sess.Len() != 0 {
		t.Fatal("reset left history behind")
	}

	// With no prior context the rewriter has nothing to resolve, so the
	// model is not consulted again.
	if _, err := p.Ask(context.Background(), sess, "What about interest on them?"); err != nil {
		t.Fatal(err)
	}
	if rewrite.calls != 1 {
		t.Errorf("rewrite model called %d times, want 1 (post-reset turn has no history)", rewrite.calls)
	}
	if sess.Len() != 2 {
		t.Errorf("history has %d messages after post-reset turn, want 2", sess.Len())
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("New accepted empty config")
	}
}
