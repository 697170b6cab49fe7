// Package chat implements the chat service itself: the listener, the
// per-connection protocol sessions, and the registry of users currently
// online. Persistence is delegated to store.Users and store.Messages.
package chat

import (
	"net"
	"sort"
	"sync"

	"github.com/cyberinferno/go-chat/idgenerator"
	"github.com/cyberinferno/go-chat/logger"
	"github.com/cyberinferno/go-chat/protocol"
	"github.com/cyberinferno/go-chat/safemap"
	"github.com/cyberinferno/go-chat/store"
	"github.com/cyberinferno/go-chat/tcpserver"
)

// Config holds the chat server settings.
type Config struct {
	// Addr is the TCP listen address, e.g. ":9000".
	Addr string

	// MaxFrameLen bounds inbound frame payloads. Zero selects
	// protocol.MaxFrameLen.
	MaxFrameLen uint32
}

// Server is the chat service. It owns the TCP accept loop and the online
// registry; message fan-out and history replay go through it.
type Server struct {
	log      logger.Logger
	cfg      Config
	users    store.Users
	messages store.Messages
	tcp      *tcpserver.TCPServer

	mu     sync.Mutex
	online map[string]*Session
}

// NewServer wires a chat server over the given stores. Start must be called
// before any connection is served.
//
// Parameters:
//   - cfg: Listen address and frame bound
//   - users: Credential store
//   - messages: Message history store
//   - log: Destination logger
//
// Returns:
//   - The configured server, not yet listening
func NewServer(cfg Config, users store.Users, messages store.Messages, log logger.Logger) *Server {
	if cfg.MaxFrameLen == 0 {
		cfg.MaxFrameLen = protocol.MaxFrameLen
	}

	s := &Server{
		log:      log.With(logger.Field{Key: "component", Value: "chat_server"}),
		cfg:      cfg,
		users:    users,
		messages: messages,
		online:   make(map[string]*Session),
	}

	s.tcp = &tcpserver.TCPServer{
		Logger:      log,
		Name:        "chat",
		Addr:        cfg.Addr,
		Sessions:    safemap.NewSafeMap[uint32, tcpserver.TCPServerSession](),
		IdGenerator: idgenerator.NewIdGenerator(1),
		NewSession: func(id uint32, conn net.Conn) tcpserver.TCPServerSession {
			return newSession(id, conn, s)
		},
	}

	return s
}

// Start binds the listener and begins accepting connections.
func (s *Server) Start() error {
	return s.tcp.Start()
}

// Stop closes the listener and every active session.
func (s *Server) Stop() {
	s.tcp.Stop()
}

// ListenAddr returns the bound listen address, useful when Addr requested an
// ephemeral port.
func (s *Server) ListenAddr() string {
	return s.tcp.ListenAddr()
}

// OnLogin records the session as online under username and announces the new
// user list to everyone. A previous session holding the same username is
// silently overwritten; that session keeps running but no longer receives
// directed messages.
func (s *Server) OnLogin(session *Session, username string) {
	s.mu.Lock()
	if prev, ok := s.online[username]; ok && prev != session {
		s.log.Warn("duplicate login overwrites online entry",
			logger.Field{Key: "username", Value: username},
			logger.Field{Key: "old_session", Value: prev.ID()},
			logger.Field{Key: "new_session", Value: session.ID()})
	}
	s.online[username] = session
	s.mu.Unlock()

	s.log.Info("user online",
		logger.Field{Key: "username", Value: username},
		logger.Field{Key: "session", Value: session.ID()})
	s.BroadcastUserList()
}

// OnDisconnect removes the session from the online registry and the session
// table, then announces the new user list. The registry entry is removed only
// if it still points at this exact session, so a duplicate login that
// overwrote the entry is unaffected by the old session going away.
func (s *Server) OnDisconnect(session *Session) {
	s.mu.Lock()
	var username string
	for name, online := range s.online {
		if online == session {
			username = name
			delete(s.online, name)
			break
		}
	}
	s.mu.Unlock()

	s.tcp.RemoveSession(session.ID())

	if username != "" {
		s.log.Info("user offline",
			logger.Field{Key: "username", Value: username},
			logger.Field{Key: "session", Value: session.ID()})
		s.BroadcastUserList()
	}
}

// Broadcast enqueues payload to every online session except the given one.
// Delivery is best-effort; a session with a full write queue drops the frame.
//
// Parameters:
//   - payload: The frame body to send
//   - except: Session to skip, usually the sender; nil skips nobody
func (s *Server) Broadcast(payload []byte, except *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, session := range s.online {
		if session == except {
			continue
		}
		session.Deliver(payload)
	}
}

// SendToUser enqueues payload to the named user if they are online. Absence
// is not an error; the frame is simply not delivered.
func (s *Server) SendToUser(username string, payload []byte) {
	s.mu.Lock()
	session, ok := s.online[username]
	s.mu.Unlock()

	if !ok {
		s.log.Warn("recipient not online", logger.Field{Key: "username", Value: username})
		return
	}

	session.Deliver(payload)
}

// BroadcastUserList sends the current sorted user list to every online
// session, including whichever session triggered the change.
func (s *Server) BroadcastUserList() {
	payload, err := marshalPayload(protocol.UserList{
		Type:  protocol.TypeUserList,
		Users: s.OnlineUsernames(),
	})
	if err != nil {
		s.log.Error("encode user list failed", logger.Field{Key: "error", Value: err})
		return
	}

	s.Broadcast(payload, nil)
}

// OnlineUsernames returns the usernames currently online, sorted.
func (s *Server) OnlineUsernames() []string {
	s.mu.Lock()
	names := make([]string, 0, len(s.online))
	for name := range s.online {
		names = append(names, name)
	}
	s.mu.Unlock()

	sort.Strings(names)
	return names
}
