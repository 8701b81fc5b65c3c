package normalize

import (
	"context"
	"errors"
	"testing"

	"github.com/lawbot0/lawbot/internal/log"
)

type stubDetector struct {
	lang string
	ok   bool
}

func (d stubDetector) Detect(string) (string, bool) { return d.lang, d.ok }

type stubTranslator struct {
	out       string
	err       error
	callCount int
	lastFrom  string
	lastTo    string
}

func (t *stubTranslator) Translate(_ context.Context, _, from, to string) (string, error) {
	t.callCount++
	t.lastFrom = from
	t.lastTo = to
	return t.out, t.err
}

func TestNormalizeTranslatesNonCanonical(t *testing.T) {
	tr := &stubTranslator{out: "what does this contract clause mean?"}
	n := New(stubDetector{lang: "es", ok: true}, tr, 0, log.NewNop())

	res := n.Normalize(context.Background(), "¿qué significa esta cláusula del contrato?")

	if !res.Translated {
		t.Fatal("expected Translated = true")
	}
	if res.Text != "what does this contract clause mean?" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.SourceLang != "es" {
		t.Errorf("SourceLang = %q, want es", res.SourceLang)
	}
	if tr.lastFrom != "es" || tr.lastTo != CanonicalLanguage {
		t.Errorf("translate called with from=%q to=%q", tr.lastFrom, tr.lastTo)
	}
}

func TestNormalizeCanonicalInputSkipsTranslation(t *testing.T) {
	tr := &stubTranslator{out: "should not be used"}
	n := New(stubDetector{lang: "en", ok: true}, tr, 0, log.NewNop())

	res := n.Normalize(context.Background(), "what is a lien?")

	if res.Translated || res.Text != "what is a lien?" {
		t.Errorf("result = %+v, want untouched input", res)
	}
	if tr.callCount != 0 {
		t.Errorf("translator called %d times, want 0", tr.callCount)
	}
}

func TestNormalizeFailuresDegradeToNoOp(t *testing.T) {
	const query = "une question juridique"

	tests := []struct {
		name       string
		detector   stubDetector
		translator *stubTranslator
	}{
		{"detection inconclusive", stubDetector{ok: false}, &stubTranslator{out: "x"}},
		{"translation error", stubDetector{lang: "fr", ok: true}, &stubTranslator{err: errors.New("service down")}},
		{"empty translation", stubDetector{lang: "fr", ok: true}, &stubTranslator{out: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New(tt.detector, tt.translator, 0, log.NewNop())
			res := n.Normalize(context.Background(), query)
			if res.Text != query {
				t.Errorf("Text = %q, want original input", res.Text)
			}
			if res.Translated {
				t.Error("Translated = true on a degrade path")
			}
		})
	}
}

func TestNormalizeDegenerateTranslationGuard(t *testing.T) {
	// Translator echoes the input with different case and padding; the
	// original must be returned untouched.
	tr := &stubTranslator{out: "  OK then  "}
	n := New(stubDetector{lang: "de", ok: true}, tr, 0, log.NewNop())

	res := n.Normalize(context.Background(), "ok then")

	if res.Translated {
		t.Error("identical translation must be treated as no-op")
	}
	if res.Text != "ok then" {
		t.Errorf("Text = %q, want original", res.Text)
	}
}

func TestLinguaDetectorEmptyInput(t *testing.T) {
	d := NewLinguaDetector()
	if _, ok := d.Detect("   "); ok {
		t.Error("Detect on blank input must report ok=false")
	}
}
