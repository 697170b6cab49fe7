package chat

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"sync"
	"time"

	"github.com/cyberinferno/go-chat/logger"
	"github.com/cyberinferno/go-chat/protocol"
	"github.com/cyberinferno/go-chat/store"
)

const (
	// writeQueueLen bounds the per-session outbound queue. A session whose
	// queue is full drops further frames instead of blocking the sender.
	writeQueueLen = 256

	// loginHistoryCount is how many messages are replayed right after login.
	loginHistoryCount = 100

	// previewLen caps message text in log lines.
	previewLen = 200
)

// Session is one connected client. Reads happen on the Handle goroutine,
// writes on a dedicated writer goroutine draining the outgoing queue, so
// frames from concurrent senders never interleave.
type Session struct {
	id     uint32
	conn   net.Conn
	server *Server
	log    logger.Logger

	outgoing  chan []byte
	quit      chan struct{}
	closeOnce sync.Once

	mu       sync.RWMutex
	username string
}

func newSession(id uint32, conn net.Conn, server *Server) *Session {
	return &Session{
		id:     id,
		conn:   conn,
		server: server,
		log: server.log.With(
			logger.Field{Key: "session", Value: id},
			logger.Field{Key: "remote", Value: conn.RemoteAddr().String()}),
		outgoing: make(chan []byte, writeQueueLen),
		quit:     make(chan struct{}),
	}
}

// ID implements tcpserver.TCPServerSession.
func (s *Session) ID() uint32 {
	return s.id
}

// Username returns the name this session logged in as, or empty before login.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

func (s *Session) setUsername(name string) {
	s.mu.Lock()
	s.username = name
	s.mu.Unlock()
}

// Handle implements tcpserver.TCPServerSession. It runs the frame read loop
// until the connection fails, an oversized frame arrives, or the session is
// closed.
func (s *Session) Handle() {
	s.log.Info("session connected")
	go s.writeLoop()
	defer s.terminate()

	header := make([]byte, protocol.HeaderLen)
	for {
		if _, err := io.ReadFull(s.conn, header); err != nil {
			s.logReadEnd(err)
			return
		}

		length := protocol.DecodeLength(header)
		if length == 0 {
			continue
		}
		if length > s.server.cfg.MaxFrameLen {
			s.log.Error("frame exceeds limit, closing session",
				logger.Field{Key: "announced", Value: length},
				logger.Field{Key: "limit", Value: s.server.cfg.MaxFrameLen})
			return
		}

		body := make([]byte, length)
		if _, err := io.ReadFull(s.conn, body); err != nil {
			s.logReadEnd(err)
			return
		}

		s.dispatch(body)
	}
}

func (s *Session) logReadEnd(err error) {
	if err == io.EOF {
		s.log.Info("session disconnected")
		return
	}

	select {
	case <-s.quit:
		s.log.Info("session closed")
	default:
		s.log.Warn("session read error", logger.Field{Key: "error", Value: err})
	}
}

// dispatch decodes one frame body and routes it by command type. Malformed or
// unknown commands are logged and dropped; the session keeps running.
func (s *Session) dispatch(body []byte) {
	s.log.Debug("frame received", logger.Field{Key: "command", Value: redactForLog(body)})

	var cmd protocol.Command
	if err := json.Unmarshal(body, &cmd); err != nil {
		s.log.Warn("dropping malformed frame", logger.Field{Key: "error", Value: err})
		return
	}

	switch cmd.Type {
	case protocol.TypeRegister:
		s.handleRegister(cmd)
	case protocol.TypeLogin:
		s.handleLogin(cmd)
	case protocol.TypeMessage:
		s.handleMessage(cmd)
	case protocol.TypePrivate:
		s.handlePrivate(cmd)
	case protocol.TypeHeartbeat:
		s.send(protocol.Pong{Type: protocol.TypePong})
	case protocol.TypeHistory:
		s.handleHistory(cmd)
	case protocol.TypeListUsers:
		s.send(protocol.UserList{Type: protocol.TypeUserList, Users: s.server.OnlineUsernames()})
	case protocol.TypeLogout:
		s.log.Info("logout", logger.Field{Key: "username", Value: s.Username()})
		s.terminate()
	default:
		s.log.Warn("dropping unknown command", logger.Field{Key: "type", Value: cmd.Type})
	}
}

func (s *Session) handleRegister(cmd protocol.Command) {
	res := protocol.RegisterResult{Type: protocol.TypeRegisterResult}
	if s.server.users.Register(context.Background(), cmd.Username, cmd.Password) {
		res.Ok = true
	} else {
		res.Reason = protocol.ReasonUsernameExists
	}

	s.send(res)
}

func (s *Session) handleLogin(cmd protocol.Command) {
	if !s.server.users.CheckLogin(context.Background(), cmd.Username, cmd.Password) {
		s.send(protocol.LoginResult{Type: protocol.TypeLoginResult, Reason: protocol.ReasonInvalid})
		return
	}

	s.setUsername(cmd.Username)
	// Registration in the online table precedes the result frame, so the
	// user list announcement triggered here reaches this session too.
	s.server.OnLogin(s, cmd.Username)
	s.send(protocol.LoginResult{Type: protocol.TypeLoginResult, Ok: true, Username: cmd.Username})
	s.replayHistory(cmd.Username, loginHistoryCount)
}

func (s *Session) handleMessage(cmd protocol.Command) {
	from := s.Username()
	if from == "" {
		s.sendNotLoggedIn()
		return
	}

	msg := protocol.ChatMsg{From: from, Text: cmd.Text, Ts: time.Now().UnixMilli()}
	s.server.messages.Push(context.Background(), msg)

	payload, err := marshalPayload(msg.Wire())
	if err != nil {
		s.log.Error("encode message failed", logger.Field{Key: "error", Value: err})
		return
	}

	s.server.Broadcast(payload, s)
}

func (s *Session) handlePrivate(cmd protocol.Command) {
	from := s.Username()
	if from == "" {
		s.sendNotLoggedIn()
		return
	}

	msg := protocol.ChatMsg{From: from, To: cmd.To, Text: cmd.Text, Ts: time.Now().UnixMilli()}
	s.server.messages.Push(context.Background(), msg)

	payload, err := marshalPayload(msg.Wire())
	if err != nil {
		s.log.Error("encode message failed", logger.Field{Key: "error", Value: err})
		return
	}

	s.server.SendToUser(cmd.To, payload)
	// The sender gets an echo so their view of the conversation is complete.
	s.Deliver(payload)
}

func (s *Session) handleHistory(cmd protocol.Command) {
	n := cmd.N
	if n <= 0 {
		n = store.DefaultHistoryCount
	}

	s.replayHistory(s.Username(), n)
}

// replayHistory sends up to n stored messages involving username to this
// session, oldest first, each as its own frame.
func (s *Session) replayHistory(username string, n int) {
	for _, msg := range s.server.messages.ForUser(context.Background(), username, n) {
		payload, err := marshalPayload(msg.Wire())
		if err != nil {
			s.log.Error("encode message failed", logger.Field{Key: "error", Value: err})
			continue
		}
		s.Deliver(payload)
	}
}

func (s *Session) sendNotLoggedIn() {
	s.log.Warn("command before login rejected")
	s.send(protocol.ErrorReply{Type: protocol.TypeError, Error: protocol.ErrNotLoggedIn})
}

// send marshals v and enqueues it for this session.
func (s *Session) send(v any) {
	payload, err := marshalPayload(v)
	if err != nil {
		s.log.Error("encode reply failed", logger.Field{Key: "error", Value: err})
		return
	}

	s.Deliver(payload)
}

// Deliver enqueues one already-encoded payload for writing. Delivery is
// best-effort: if the session is closing or its queue is full the frame is
// dropped.
func (s *Session) Deliver(payload []byte) {
	frame := protocol.EncodeFrame(payload)

	select {
	case <-s.quit:
	case s.outgoing <- frame:
	default:
		s.log.Warn("write queue full, dropping frame")
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.quit:
			return
		case frame := <-s.outgoing:
			if _, err := s.conn.Write(frame); err != nil {
				s.log.Warn("session write error", logger.Field{Key: "error", Value: err})
				s.terminate()
				return
			}
		}
	}
}

// terminate shuts the session down exactly once: it stops both loops, closes
// the socket, and tells the server so the user goes offline.
func (s *Session) terminate() {
	s.closeOnce.Do(func() {
		close(s.quit)
		_ = s.conn.Close()
		s.server.OnDisconnect(s)
	})
}

// Close implements tcpserver.TCPServerSession.
func (s *Session) Close() error {
	s.terminate()
	return nil
}

func marshalPayload(v any) ([]byte, error) {
	return json.Marshal(v)
}

// redactForLog renders a frame body for logging with the password masked and
// long message text truncated. Bodies that do not parse are logged truncated
// as-is.
func redactForLog(body []byte) string {
	var cmd protocol.Command
	if err := json.Unmarshal(body, &cmd); err != nil {
		return preview(string(body))
	}

	if cmd.Password != "" {
		cmd.Password = "<REDACTED>"
	}
	cmd.Text = preview(cmd.Text)

	out, err := json.Marshal(cmd)
	if err != nil {
		return preview(string(body))
	}

	return string(out)
}

func preview(text string) string {
	if len(text) > previewLen {
		return text[:previewLen] + "..."
	}
	return text
}
