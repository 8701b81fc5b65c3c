// Package normalize converts incoming queries to the canonical language.
//
// Normalization never fails the pipeline: any detection or translation
// problem degrades to returning the raw query unchanged.
package normalize

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// CanonicalLanguage is the ISO 639-1 code the knowledge base and prompts
// are written in.
const CanonicalLanguage = "en"

// defaultTimeout bounds a single translation call.
const defaultTimeout = 10 * time.Second

// Detector identifies the language of a piece of text.
// ok is false when detection is not confident enough to act on.
type Detector interface {
	Detect(text string) (lang string, ok bool)
}

// Translator translates text between two ISO 639-1 language codes.
type Translator interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// Result reports what normalization did. Text is always non-empty for
// non-empty input.
type Result struct {
	Text       string
	SourceLang string // detected language, empty when detection failed
	Translated bool   // true only when Text differs from the input
}

// Normalizer detects non-canonical input and translates it.
type Normalizer struct {
	detector   Detector
	translator Translator
	lang       string
	timeout    time.Duration
	logger     *slog.Logger
}

// New creates a Normalizer. A zero timeout uses the package default.
func New(detector Detector, translator Translator, timeout time.Duration, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Normalizer{
		detector:   detector,
		translator: translator,
		lang:       CanonicalLanguage,
		timeout:    timeout,
		logger:     logger,
	}
}

// WithLanguage overrides the canonical target language. Empty codes are
// ignored.
func (n *Normalizer) WithLanguage(lang string) *Normalizer {
	if lang != "" {
		n.lang = lang
	}
	return n
}

// Normalize returns rawQuery translated to the canonical language, or
// rawQuery unchanged when it is already canonical or when anything goes
// wrong along the way.
func (n *Normalizer) Normalize(ctx context.Context, rawQuery string) Result {
	res := Result{Text: rawQuery}

	lang, ok := n.detector.Detect(rawQuery)
	if !ok {
		n.logger.Debug("language detection inconclusive, passing query through")
		return res
	}
	res.SourceLang = lang
	if lang == n.lang {
		return res
	}

	tctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	translated, err := n.translator.Translate(tctx, rawQuery, lang, n.lang)
	if err != nil {
		n.logger.Warn("translation failed, passing query through",
			"source_lang", lang, "error", err)
		return res
	}
	if strings.TrimSpace(translated) == "" {
		n.logger.Warn("translator returned empty text, passing query through",
			"source_lang", lang)
		return res
	}

	// Degenerate-translation guard: a translation identical to the input
	// is a no-op, keep the original untouched.
	if strings.EqualFold(strings.TrimSpace(translated), strings.TrimSpace(rawQuery)) {
		return res
	}

	res.Text = translated
	res.Translated = true
	return res
}
