package normalize

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// LinguaDetector implements Detector with an offline statistical model.
// Building the detector loads language models into memory, so one
// instance is created at startup and shared across sessions.
type LinguaDetector struct {
	detector lingua.LanguageDetector
}

// NewLinguaDetector creates a detector over all supported languages.
func NewLinguaDetector() *LinguaDetector {
	return &LinguaDetector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			Build(),
	}
}

// Detect returns the ISO 639-1 code of text. Short or ambiguous input
// yields ok=false rather than a guess.
func (d *LinguaDetector) Detect(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	language, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(language.IsoCode639_1().String()), true
}
