package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

const translateSystem = `You are a translation engine. Translate the user's text exactly, preserving meaning and tone. Output only the translation, with no explanations, quotes, or extra text.`

// Translator translates text between languages with a Gemini model.
// It satisfies normalize.Translator.
type Translator struct {
	g         *genkit.Genkit
	modelName string
	logger    *slog.Logger
}

// NewTranslator creates a Translator backed by modelName.
func NewTranslator(g *genkit.Genkit, modelName string, logger *slog.Logger) *Translator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Translator{g: g, modelName: modelName, logger: logger}
}

// Translate renders text from the ISO 639-1 language code from into to.
func (t *Translator) Translate(ctx context.Context, text, from, to string) (string, error) {
	prompt := fmt.Sprintf("Translate the following text from %s to %s:\n\n%s", from, to, text)

	response, err := genkit.Generate(ctx, t.g,
		ai.WithModelName(t.modelName),
		ai.WithSystem(translateSystem),
		ai.WithMessages(ai.NewUserMessage(ai.NewTextPart(prompt))),
	)
	if err != nil {
		return "", fmt.Errorf("translating %s to %s: %w", from, to, err)
	}

	out := strings.TrimSpace(response.Text())
	t.logger.Debug("translated query", "from", from, "to", to, "chars", len(out))
	return out, nil
}
