// Package session holds in-memory conversation state for a single user.
//
// A Session lives for the duration of one client connection and is never
// persisted. History is the only conversational context the pipeline sees;
// clearing it starts the conversation over.
package session

import (
	"sync"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

// Valid message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation turn. Messages are immutable once
// created and owned by the Session that created them.
type Message struct {
	Role    Role
	Content string
	// Ordinal is the message's position in the session, starting at 0.
	Ordinal int
}

// Session is an ordered sequence of messages for one user.
// Insertion order defines the conversational context window.
//
// Session is safe for concurrent use, though the pipeline processes one
// message to completion before accepting the next.
type Session struct {
	id uuid.UUID

	mu       sync.RWMutex
	messages []Message
}

// New creates an empty session with a fresh identity.
func New() *Session {
	return &Session{id: uuid.New()}
}

// ID returns the session's identity. Stable across Reset.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Messages returns a copy of the history in insertion order.
func (s *Session) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages in the history.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// AppendTurn records one answered turn: the user's message followed by the
// assistant's response. History grows by exactly two messages.
func (s *Session) AppendTurn(userInput, assistantResponse string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages,
		Message{Role: RoleUser, Content: userInput, Ordinal: len(s.messages)},
	)
	s.messages = append(s.messages,
		Message{Role: RoleAssistant, Content: assistantResponse, Ordinal: len(s.messages)},
	)
}

// Reset empties the history. The session itself stays usable; a later
// message starts with zero prior context.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = s.messages[:0]
}
