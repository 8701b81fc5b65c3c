package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lawbot0/lawbot/internal/knowledge"
	"github.com/lawbot0/lawbot/internal/session"
)

// Disclaimer closes every generated answer. Template responses carry the
// document verbatim and are exempt.
const Disclaimer = "This is not legal advice. Please consult a lawyer for any legal decisions."

const answerSystem = `As a legal assistant chatbot specializing in legal queries, your primary objective is to provide accurate and concise information based on user queries. Use only the context from the knowledge base below. If the context does not contain the answer, say so honestly. Use no more than 4 sentences.

CONTEXT:
%s`

// emptyContext stands in when retrieval found nothing, steering the model
// toward an honest "I don't know" rather than fabrication.
const emptyContext = "(no relevant passages were found in the knowledge base)"

// fallbackAnswer covers the rare case of a model returning empty text.
const fallbackAnswer = "I couldn't find an answer to that in the knowledge base."

// Synthesizer turns a standalone query, conversation history, and
// retrieved passages into a grounded answer ending with the disclaimer.
type Synthesizer struct {
	completer Completer
	logger    *slog.Logger
}

// NewSynthesizer creates a Synthesizer backed by completer.
func NewSynthesizer(completer Completer, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{completer: completer, logger: logger}
}

// Synthesize generates the answer. Passages are concatenated in rank
// order into the system prompt's context block. The returned text is
// never empty and ends with Disclaimer exactly once.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, history []session.Message, passages []knowledge.Passage) (string, error) {
	system := fmt.Sprintf(answerSystem, contextBlock(passages))

	out, err := s.completer.Complete(ctx, system, history, query)
	if err != nil {
		return "", fmt.Errorf("synthesizing answer: %w", err)
	}

	answer := strings.TrimSpace(out)
	if answer == "" {
		answer = fallbackAnswer
	}

	s.logger.Debug("answer synthesized", "passages", len(passages), "answer_len", len(answer))
	return withDisclaimer(answer), nil
}

// contextBlock joins passages in rank order, each prefixed with its
// source so the model can attribute claims.
func contextBlock(passages []knowledge.Passage) string {
	if len(passages) == 0 {
		return emptyContext
	}
	var b strings.Builder
	for i, p := range passages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s]\n%s", p.Source, p.Text)
	}
	return b.String()
}

// withDisclaimer appends Disclaimer unless the model already ended its
// output with it.
func withDisclaimer(answer string) string {
	if strings.HasSuffix(answer, Disclaimer) {
		return answer
	}
	return answer + "\n\n" + Disclaimer
}
