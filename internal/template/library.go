// Package template serves canned legal document templates by keyword.
//
// Template queries short-circuit the retrieval pipeline: when a user asks
// for a rental agreement, they get the literal template text, not a
// generated answer.
package template

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Apology is returned as the document body when a keyword matches but the
// backing file is missing or unreadable. This is a user-visible degrade,
// not a pipeline error.
const Apology = "Sorry, that template format isn't available right now."

// Binding ties a trigger keyword to a template file name.
type Binding struct {
	Keyword  string
	Filename string
}

// DefaultBindings is the stock keyword mapping, checked in order.
// First match wins, so order is part of the contract.
func DefaultBindings() []Binding {
	return []Binding{
		{Keyword: "rental", Filename: "Rental_Agreement.txt"},
		{Keyword: "power of attorney", Filename: "Power_of_Attorney.txt"},
		{Keyword: "affidavit", Filename: "Affidavit_of_Residence.txt"},
		{Keyword: "non-disclosure", Filename: "Non_Disclosure_Agreement.txt"},
		{Keyword: "employment", Filename: "Employment_Contract.txt"},
	}
}

// Document is a matched template.
type Document struct {
	Keyword  string // keyword that triggered the match
	Filename string // backing file name
	Content  string // file body, or Apology when the file is unreadable
}

// Library matches queries against a fixed set of keyword bindings and loads
// template bodies from a directory.
//
// Library is read-only after construction and safe for concurrent use.
type Library struct {
	dir      string
	bindings []Binding
	logger   *slog.Logger
}

// New creates a Library over dir. If bindings is empty, DefaultBindings
// is used.
func New(dir string, bindings []Binding, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	if len(bindings) == 0 {
		bindings = DefaultBindings()
	}
	return &Library{dir: dir, bindings: bindings, logger: logger}
}

// Match checks query against each binding in order, case-insensitively,
// using substring containment. It returns the matched document and true,
// or a zero Document and false when no keyword matches.
//
// A matched keyword whose file cannot be read still reports a match; the
// document content is the fixed Apology text. Callers can tell the two
// cases apart by the returned bool.
func (l *Library) Match(query string) (Document, bool) {
	lowered := strings.ToLower(query)
	for _, b := range l.bindings {
		if !strings.Contains(lowered, b.Keyword) {
			continue
		}
		doc := Document{Keyword: b.Keyword, Filename: b.Filename}

		content, err := l.read(b.Filename)
		if err != nil {
			l.logger.Warn("template file unreadable, serving apology",
				"keyword", b.Keyword, "file", b.Filename, "error", err)
			doc.Content = Apology
			return doc, true
		}
		doc.Content = content
		return doc, true
	}
	return Document{}, false
}

// List returns the bindings in matching order.
func (l *Library) List() []Binding {
	out := make([]Binding, len(l.bindings))
	copy(out, l.bindings)
	return out
}

// read loads a template body from the library directory.
// Base-name resolution only; bindings never contain path separators.
func (l *Library) read(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(l.dir, filepath.Base(name)))
	if err != nil {
		return "", fmt.Errorf("reading template %q: %w", name, err)
	}
	return string(data), nil
}
