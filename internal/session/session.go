// Package session holds in-memory conversation state. History is
// append-only during a session, snapshotted for prompt assembly, and
// cleared atomically on reset. Nothing persists across process restarts.
package session

import "sync"

// Role tags one side of the conversation.
type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Session is the ordered message history of one logical conversation.
// Safe for concurrent use; appends from concurrent requests never
// interleave mid-pair because callers append under one lock acquisition.
type Session struct {
	mu       sync.Mutex
	messages []Message
}

// Append adds one turn to the history.
func (s *Session) Append(role Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, Message{Role: role, Content: content})
}

// AppendExchange adds a human turn and its assistant answer as one atomic
// pair, so concurrent sessions never observe a dangling question.
func (s *Session) AppendExchange(question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages,
		Message{Role: RoleHuman, Content: question},
		Message{Role: RoleAssistant, Content: answer},
	)
}

// Snapshot returns a copy of the current history. The copy is safe to
// read while other goroutines append.
func (s *Session) Snapshot() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Reset atomically clears the history.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

// Len returns the number of stored turns.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
