package store

import (
	"context"
	"sync"

	"github.com/cyberinferno/go-chat/logger"
	"github.com/cyberinferno/go-chat/protocol"
)

// MemoryUsers is a process-local Users implementation. It is used for tests
// and for running the server without a backend.
type MemoryUsers struct {
	mu    sync.Mutex
	users map[string]string
	log   logger.Logger
}

// NewMemoryUsers creates an empty in-memory credential store.
func NewMemoryUsers(log logger.Logger) *MemoryUsers {
	return &MemoryUsers{
		users: make(map[string]string),
		log:   log.With(logger.Field{Key: "component", Value: "user_store"}),
	}
}

// Register implements Users.
func (s *MemoryUsers) Register(_ context.Context, username, password string) bool {
	if username == "" || len(password) < MinPasswordLen {
		s.log.Warn("register failed: invalid username or password",
			logger.Field{Key: "username", Value: username})
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		s.log.Warn("register failed: username already exists", logger.Field{Key: "username", Value: username})
		return false
	}

	s.users[username] = password
	s.log.Info("user registered", logger.Field{Key: "username", Value: username})
	return true
}

// CheckLogin implements Users.
func (s *MemoryUsers) CheckLogin(_ context.Context, username, password string) bool {
	s.mu.Lock()
	stored, exists := s.users[username]
	s.mu.Unlock()

	ok := exists && stored == password
	s.log.Info("login attempt", logger.Field{Key: "username", Value: username}, logger.Field{Key: "ok", Value: ok})
	return ok
}

// MemoryMessages is a process-local Messages implementation holding the full
// history in a slice, in arrival order.
type MemoryMessages struct {
	mu   sync.Mutex
	msgs []protocol.ChatMsg
	log  logger.Logger
}

// NewMemoryMessages creates an empty in-memory message store.
func NewMemoryMessages(log logger.Logger) *MemoryMessages {
	return &MemoryMessages{
		log: log.With(logger.Field{Key: "component", Value: "message_store"}),
	}
}

// Push implements Messages.
func (s *MemoryMessages) Push(_ context.Context, msg protocol.ChatMsg) {
	s.mu.Lock()
	s.msgs = append(s.msgs, msg)
	s.mu.Unlock()
}

// Recent implements Messages.
func (s *MemoryMessages) Recent(_ context.Context, n int) []protocol.ChatMsg {
	if n <= 0 {
		n = DefaultHistoryCount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return lastN(s.msgs, n)
}

// ForUser implements Messages.
func (s *MemoryMessages) ForUser(_ context.Context, username string, n int) []protocol.ChatMsg {
	if n <= 0 {
		n = DefaultHistoryCount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []protocol.ChatMsg
	for _, msg := range s.msgs {
		if msg.To == "" || msg.To == username || msg.From == username {
			out = append(out, msg)
		}
	}

	return lastN(out, n)
}

func lastN(msgs []protocol.ChatMsg, n int) []protocol.ChatMsg {
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]protocol.ChatMsg, len(msgs))
	copy(out, msgs)
	return out
}
