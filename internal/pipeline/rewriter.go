package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lawbot0/lawbot/internal/session"
)

// Completer generates one chat completion from a system prompt, prior
// turns, and a new user message.
type Completer interface {
	Complete(ctx context.Context, system string, history []session.Message, prompt string) (string, error)
}

const rewriteSystem = `TASK: Convert context-dependent questions into standalone queries.
INPUT:
- chat history: previous messages
- question: current user query
RULES:
1. Replace pronouns (it/they/this) with specific referents
2. Expand contextual phrases ("the above", "previous")
3. Return original if already standalone
4. NEVER answer or explain - only reformulate
OUTPUT: Single reformulated question, preserving original intent and style.`

// Rewriter resolves follow-up questions into standalone queries using
// conversation history.
type Rewriter struct {
	completer Completer
	logger    *slog.Logger
}

// NewRewriter creates a Rewriter backed by completer.
func NewRewriter(completer Completer, logger *slog.Logger) *Rewriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rewriter{completer: completer, logger: logger}
}

// Rewrite returns a standalone form of query. With empty history there is
// nothing to resolve, so query is returned as is without a model call.
// The model is instructed to only reformulate; if its output looks like
// an answer instead of a question, Rewrite falls back to the original
// query rather than poisoning retrieval.
func (r *Rewriter) Rewrite(ctx context.Context, history []session.Message, query string) (string, error) {
	if len(history) == 0 {
		return query, nil
	}

	out, err := r.completer.Complete(ctx, rewriteSystem, history, query)
	if err != nil {
		return "", fmt.Errorf("rewriting query: %w", err)
	}

	rewritten := strings.TrimSpace(out)
	if answerLike(query, rewritten) {
		r.logger.Warn("rewriter output rejected, using original query",
			"query_len", len(query), "output_len", len(rewritten))
		return query, nil
	}

	r.logger.Debug("query rewritten", "original_len", len(query), "rewritten_len", len(rewritten))
	return rewritten, nil
}

// answerLike reports whether rewritten resembles an answer rather than a
// reformulated question. A reformulation is a single line roughly the
// size of the input; multi-paragraph or strongly expanded output means
// the model answered despite instructions.
func answerLike(query, rewritten string) bool {
	if rewritten == "" {
		return true
	}
	if strings.Contains(rewritten, "\n") {
		return true
	}
	if len(rewritten) > 4*len(query)+100 {
		return true
	}
	return false
}
