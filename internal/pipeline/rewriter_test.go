package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/lawbot0/lawbot/internal/log"
	"github.com/lawbot0/lawbot/internal/session"
)

// resolvingCompleter mimics a well-behaved rewrite model: standalone
// questions come back verbatim, known follow-ups get resolved.
func resolvingCompleter() *stubCompleter {
	return &stubCompleter{fn: func(_ string, _ []session.Message, prompt string) (string, error) {
		if strings.Contains(prompt, "it") && strings.Contains(prompt, "terminate") {
			return "How can a rental agreement be terminated early?", nil
		}
		return prompt, nil
	}}
}

func history() []session.Message {
	s := session.New()
	s.AppendTurn(
		"What is a rental agreement?",
		"A rental agreement is a contract between a landlord and a tenant.")
	return s.Messages()
}

func TestRewriteEmptyHistorySkipsModel(t *testing.T) {
	completer := resolvingCompleter()
	r := NewRewriter(completer, log.NewNop())

	got, err := r.Rewrite(context.Background(), nil, "What is a lease?")
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if got != "What is a lease?" {
		t.Errorf("got %q, want query unchanged", got)
	}
	if completer.calls != 0 {
		t.Error("model called despite empty history")
	}
}

func TestRewriteResolvesFollowUp(t *testing.T) {
	r := NewRewriter(resolvingCompleter(), log.NewNop())

	got, err := r.Rewrite(context.Background(), history(), "How can I terminate it early?")
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if !strings.Contains(got, "rental agreement") {
		t.Errorf("got %q, want resolved referent", got)
	}
}

func TestRewriteStandaloneIsIdempotent(t *testing.T) {
	r := NewRewriter(resolvingCompleter(), log.NewNop())
	h := history()
	query := "How can a rental agreement be terminated early?"

	once, err := r.Rewrite(context.Background(), h, query)
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	twice, err := r.Rewrite(context.Background(), h, once)
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if once != twice {
		t.Errorf("rewrite not idempotent: %q then %q", once, twice)
	}
}

func TestRewriteRejectsAnswerLikeOutput(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{name: "empty", output: ""},
		{name: "multi paragraph", output: "A rental agreement can be terminated by:\n1. Mutual consent\n2. Breach"},
		{name: "strongly expanded", output: strings.Repeat("Termination requires notice. ", 20)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &stubCompleter{fn: func(string, []session.Message, string) (string, error) {
				return tt.output, nil
			}}
			r := NewRewriter(completer, log.NewNop())

			got, err := r.Rewrite(context.Background(), history(), "How do I end it?")
			if err != nil {
				t.Fatalf("Rewrite: %v", err)
			}
			if got != "How do I end it?" {
				t.Errorf("got %q, want fallback to original query", got)
			}
		})
	}
}
