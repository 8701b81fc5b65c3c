// Package pipeline orchestrates one question-answering turn: normalize
// the query, serve a document template if one matches, otherwise rewrite
// the query against history, retrieve passages, and synthesize a
// grounded answer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lawbot0/lawbot/internal/knowledge"
	"github.com/lawbot0/lawbot/internal/normalize"
	"github.com/lawbot0/lawbot/internal/session"
	"github.com/lawbot0/lawbot/internal/template"
)

// DefaultTopK is the number of passages retrieved per query.
const DefaultTopK = 3

// ErrEmptyQuery is returned by Ask for blank input.
var ErrEmptyQuery = errors.New("query is empty")

// Kind classifies how an Answer was produced.
type Kind string

const (
	// KindTemplate means the answer is a document template served
	// verbatim, bypassing retrieval and the session.
	KindTemplate Kind = "template"
	// KindGenerated means the answer was synthesized from retrieved
	// passages.
	KindGenerated Kind = "generated"
	// KindError means generation failed and Text carries a user-facing
	// error message.
	KindError Kind = "error"
)

// Answer is the outcome of one pipeline turn.
type Answer struct {
	Text string
	Kind Kind

	// Passages backs a generated answer, empty otherwise.
	Passages []knowledge.Passage

	// Language is the detected language of the raw query.
	Language string
}

// Normalizer renders a raw query into the canonical language, degrading
// to a no-op on any failure.
type Normalizer interface {
	Normalize(ctx context.Context, raw string) normalize.Result
}

// Matcher maps a query to a document template.
type Matcher interface {
	Match(query string) (template.Document, bool)
}

// Retriever searches the vector index for the passages most relevant to
// a standalone query.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]knowledge.Passage, error)
}

// Config wires a Pipeline.
type Config struct {
	Normalizer  Normalizer
	Matcher     Matcher
	Rewriter    *Rewriter
	Retriever   Retriever
	Synthesizer *Synthesizer

	// TopK is the retrieval depth, DefaultTopK when zero.
	TopK int

	Logger *slog.Logger
}

// Pipeline processes user messages one at a time per session. It holds
// no per-session state itself; distinct sessions may run concurrently.
type Pipeline struct {
	normalizer  Normalizer
	matcher     Matcher
	rewriter    *Rewriter
	retriever   Retriever
	synthesizer *Synthesizer
	topK        int
	logger      *slog.Logger
}

// New creates a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	switch {
	case cfg.Normalizer == nil:
		return nil, errors.New("normalizer is required")
	case cfg.Matcher == nil:
		return nil, errors.New("matcher is required")
	case cfg.Rewriter == nil:
		return nil, errors.New("rewriter is required")
	case cfg.Retriever == nil:
		return nil, errors.New("retriever is required")
	case cfg.Synthesizer == nil:
		return nil, errors.New("synthesizer is required")
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		normalizer:  cfg.Normalizer,
		matcher:     cfg.Matcher,
		rewriter:    cfg.Rewriter,
		retriever:   cfg.Retriever,
		synthesizer: cfg.Synthesizer,
		topK:        topK,
		logger:      logger,
	}, nil
}

// Ask runs one turn for sess. Exactly one of two terminal outcomes
// happens per call: a template is served and sess is untouched, or an
// assistant reply (answer or visible error) is produced and sess grows
// by one user and one assistant message.
//
// Rewrite and synthesis failures do not return an error: they surface as
// a KindError answer so the conversation continues. Cancellation of ctx
// is the exception: the caller abandoned the turn, so Ask returns
// ctx.Err() and sess stays untouched.
func (p *Pipeline) Ask(ctx context.Context, sess *session.Session, raw string) (Answer, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Answer{}, ErrEmptyQuery
	}

	norm := p.normalizer.Normalize(ctx, raw)

	if doc, ok := p.matcher.Match(norm.Text); ok {
		p.logger.Info("template served",
			"session_id", sess.ID(), "keyword", doc.Keyword)
		return Answer{Text: doc.Content, Kind: KindTemplate, Language: norm.SourceLang}, nil
	}

	answer := Answer{Kind: KindGenerated, Language: norm.SourceLang}
	text, passages, err := p.generate(ctx, sess.Messages(), norm.Text)
	if err != nil {
		if ctx.Err() != nil {
			p.logger.Info("turn abandoned",
				"session_id", sess.ID(), "cause", ctx.Err())
			return Answer{}, ctx.Err()
		}
		p.logger.Error("answer generation failed",
			"session_id", sess.ID(), "error", err)
		answer.Kind = KindError
		answer.Text = fmt.Sprintf("Something went wrong while answering: %v. Please try again.", err)
	} else {
		answer.Text = text
		answer.Passages = passages
	}

	sess.AppendTurn(raw, answer.Text)
	p.logger.Info("turn completed",
		"session_id", sess.ID(),
		"kind", answer.Kind,
		"history_len", sess.Len())
	return answer, nil
}

// generate is the fallible stage sequence; all rewrite, retrieval, and
// synthesis errors funnel through its single return.
func (p *Pipeline) generate(ctx context.Context, history []session.Message, query string) (string, []knowledge.Passage, error) {
	standalone, err := p.rewriter.Rewrite(ctx, history, query)
	if err != nil {
		return "", nil, err
	}

	passages, err := p.retriever.Search(ctx, standalone, p.topK)
	if err != nil {
		return "", nil, err
	}

	text, err := p.synthesizer.Synthesize(ctx, standalone, history, passages)
	if err != nil {
		return "", nil, err
	}
	return text, passages, nil
}
